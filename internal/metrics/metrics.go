// Package metrics exposes poll and delivery statistics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records poller activity. It satisfies poller.Recorder.
type Collector struct {
	cycles        prometheus.Counter
	fetchFail     prometheus.Counter
	normalizeFail prometheus.Counter
	newEntries    prometheus.Counter
	deliveries    prometheus.Counter
	deliveryFail  prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
// sessions reports the current number of logged-in users.
func NewCollector(reg prometheus.Registerer, sessions func() int) *Collector {
	c := &Collector{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedrelay_poll_cycles_total",
			Help: "Completed feed poll cycles.",
		}),
		fetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedrelay_fetch_fail_total",
			Help: "Feed fetches that failed to download or parse.",
		}),
		normalizeFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedrelay_normalize_fail_total",
			Help: "Feed items dropped because they could not be normalized.",
		}),
		newEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedrelay_new_entries_total",
			Help: "Feed entries not seen before.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedrelay_deliveries_total",
			Help: "Entry lines sent to users.",
		}),
		deliveryFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedrelay_delivery_fail_total",
			Help: "Entry lines the transport failed to send.",
		}),
	}

	reg.MustRegister(
		c.cycles,
		c.fetchFail,
		c.normalizeFail,
		c.newEntries,
		c.deliveries,
		c.deliveryFail,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "feedrelay_sessions",
			Help: "Users currently logged in.",
		}, func() float64 { return float64(sessions()) }),
	)

	return c
}

func (c *Collector) CycleCompleted()  { c.cycles.Inc() }
func (c *Collector) FetchFailed()     { c.fetchFail.Inc() }
func (c *Collector) NormalizeFailed() { c.normalizeFail.Inc() }
func (c *Collector) NewEntry()        { c.newEntries.Inc() }

// Delivered adds the outcome of delivering one entry.
func (c *Collector) Delivered(sent, failed int) {
	c.deliveries.Add(float64(sent))
	c.deliveryFail.Add(float64(failed))
}

// HealthCheck reports whether a dependency of the relay is usable.
type HealthCheck func(ctx context.Context) error

// NewRouter serves /metrics from gatherer and a /healthz probe backed by check.
// A nil check always reports healthy.
func NewRouter(gatherer prometheus.Gatherer, check HealthCheck) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if check != nil {
			if err := check(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(err.Error()))
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Server is the HTTP endpoint for metrics and health checks.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// NewServer creates a Server listening on addr.
func NewServer(addr string, gatherer prometheus.Gatherer, check HealthCheck, log *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(gatherer, check),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("metrics server starting", "addr", s.srv.Addr)
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
