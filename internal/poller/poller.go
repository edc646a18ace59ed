// Package poller periodically fetches the activity feed and hands new
// entries to the delivery filter.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"feedrelay/internal/delivery"
	"feedrelay/internal/fetcher"
	"feedrelay/internal/history"
	"feedrelay/internal/model"
)

// Deliverer sends one new entry to its recipients.
type Deliverer interface {
	Deliver(ctx context.Context, entry model.FeedEntry) delivery.Result
}

// Recorder receives poll cycle statistics.
type Recorder interface {
	CycleCompleted()
	FetchFailed()
	NormalizeFailed()
	NewEntry()
	Delivered(sent, failed int)
}

type nopRecorder struct{}

func (nopRecorder) CycleCompleted()    {}
func (nopRecorder) FetchFailed()       {}
func (nopRecorder) NormalizeFailed()   {}
func (nopRecorder) NewEntry()          {}
func (nopRecorder) Delivered(int, int) {}

// Poller fetches the feed on a fixed period. Cycles never overlap: a cycle,
// including all of its deliveries, finishes before the next one starts.
type Poller struct {
	fetcher   *fetcher.Fetcher
	url       string
	history   *history.History
	deliverer Deliverer
	recorder  Recorder
	log       *slog.Logger
	tick      time.Duration
}

// New creates a Poller for the feed at url.
func New(f *fetcher.Fetcher, url string, interval time.Duration, d Deliverer, log *slog.Logger) *Poller {
	return &Poller{
		fetcher:   f,
		url:       url,
		history:   history.New(history.DefaultCapacity),
		deliverer: d,
		recorder:  nopRecorder{},
		log:       log,
		tick:      interval,
	}
}

// SetRecorder installs a statistics recorder.
func (p *Poller) SetRecorder(r Recorder) {
	p.recorder = r
}

// Run polls once immediately and then on every tick, blocking until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Cycle(ctx)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Cycle(ctx)
		}
	}
}

// Cycle runs one poll: fetch, normalize, drop already seen entries and
// deliver the rest in feed order. A failed fetch skips the cycle.
func (p *Poller) Cycle(ctx context.Context) {
	log := p.log.With("cycle_id", uuid.NewString())
	defer p.recorder.CycleCompleted()

	feed, err := p.fetcher.Fetch(ctx, p.url)
	if err != nil {
		log.Error("fetch feed", "url", p.url, "error", err)
		p.recorder.FetchFailed()
		return
	}

	entries, errs := fetcher.NormalizeItems(feed.Items)
	for _, err := range errs {
		log.Warn("drop feed item", "error", err)
		p.recorder.NormalizeFailed()
	}

	fresh := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if !p.history.CheckAndRecord(e) {
			continue
		}
		fresh++
		p.recorder.NewEntry()

		res := p.deliverer.Deliver(ctx, e)
		p.recorder.Delivered(res.Sent, res.Failed)
		log.Debug("entry delivered", "link", e.Link, "sent", res.Sent, "failed", res.Failed)
	}

	if fresh > 0 {
		log.Info("new feed entries", "count", fresh)
	}
}
