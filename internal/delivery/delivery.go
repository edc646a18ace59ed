// Package delivery decides which logged-in users receive a feed entry.
package delivery

import (
	"context"
	"log/slog"
	"strings"

	"feedrelay/internal/model"
)

// Sessions is the read side of the session store.
type Sessions interface {
	LoggedInIdentities() []string
	IsIgnored(identity, text string) bool
}

// Transport sends a channel line to one recipient, attributed to author.
type Transport interface {
	SendChannelMessage(ctx context.Context, recipient, author, channel, text string) error
}

// Result counts the outcome of delivering one entry.
type Result struct {
	Sent   int
	Failed int
}

// Filter delivers new feed entries to eligible users.
type Filter struct {
	sessions  Sessions
	transport Transport
	channel   string
	log       *slog.Logger
}

// New creates a Filter delivering to channel through transport.
func New(sessions Sessions, transport Transport, channel string, log *slog.Logger) *Filter {
	return &Filter{
		sessions:  sessions,
		transport: transport,
		channel:   channel,
		log:       log,
	}
}

// Recipients returns the logged-in identities that should receive entry.
func (f *Filter) Recipients(entry model.FeedEntry) []string {
	var out []string
	for _, id := range f.sessions.LoggedInIdentities() {
		if IsAuthor(entry.Author, id) {
			continue
		}
		if f.sessions.IsIgnored(id, entry.Title) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Deliver sends entry to every recipient. Send failures are logged and
// do not stop delivery to the remaining recipients.
func (f *Filter) Deliver(ctx context.Context, entry model.FeedEntry) Result {
	var res Result
	line := FormatLine(entry)
	for _, id := range f.Recipients(entry) {
		if err := f.transport.SendChannelMessage(ctx, id, entry.Author, f.channel, line); err != nil {
			f.log.Error("deliver entry", "identity", id, "link", entry.Link, "error", err)
			res.Failed++
			continue
		}
		res.Sent++
	}
	return res
}

// FormatLine renders entry as "<link> - <title>".
func FormatLine(entry model.FeedEntry) string {
	return entry.Link + " - " + entry.Title
}

// IsAuthor reports whether identity and the feed author name the same person.
// Handles and feed names rarely match exactly, so containment in either
// direction, ignoring case, is enough.
func IsAuthor(author, identity string) bool {
	if author == "" || identity == "" {
		return false
	}
	a, id := strings.ToLower(author), strings.ToLower(identity)
	return strings.Contains(a, id) || strings.Contains(id, a)
}
