// Package metrics exposes Prometheus counters for fetches and source runs.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_fetch_requests_total",
			Help: "Outbound page and API requests",
		},
		[]string{"host", "status", "blocked_by"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadscout_fetch_duration_seconds",
			Help:    "Duration of outbound requests in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"host"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_fetch_bytes_total",
			Help: "Response bytes downloaded",
		},
		[]string{"host"},
	)

	FetchCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_fetch_cache_hits_total",
			Help: "Requests answered from the page cache",
		},
		[]string{"host"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_proxy_failures_total",
			Help: "Requests that failed through a proxy",
		},
		[]string{"proxy"},
	)

	SourceInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_source_invocations_total",
			Help: "Source adapter invocations by outcome",
		},
		[]string{"source", "outcome"},
	)

	SourceLeads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_source_leads_total",
			Help: "Raw leads produced per source",
		},
		[]string{"source"},
	)

	SourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadscout_source_duration_seconds",
			Help:    "Wall time of one source invocation",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 20, 30},
		},
		[]string{"source"},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_searches_total",
			Help: "Search requests handled, by mode",
		},
		[]string{"mode"},
	)
)

// RecordFetch updates the fetch series for one request. A non-empty errMsg
// replaces the status label with "error".
func RecordFetch(host string, status int, errMsg, blockedBy string, d time.Duration, bytes int) {
	statusStr := strconv.Itoa(status)
	if errMsg != "" {
		statusStr = "error"
	}
	FetchRequestsTotal.WithLabelValues(host, statusStr, blockedBy).Inc()
	FetchDuration.WithLabelValues(host).Observe(d.Seconds())
	FetchBytesTotal.WithLabelValues(host).Add(float64(bytes))
}

// RecordSource updates the per-source series after one adapter invocation.
func RecordSource(source string, leads int, err error, d time.Duration) {
	outcome := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	SourceInvocations.WithLabelValues(source, outcome).Inc()
	SourceLeads.WithLabelValues(source).Add(float64(leads))
	SourceDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordSearch counts one handled search request. mode is "direct" or
// "webhook".
func RecordSearch(mode string) {
	SearchesTotal.WithLabelValues(mode).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// Server is a standalone listener for /metrics, used when the API server is
// not running.
type Server struct {
	srv *http.Server
}

// Start listens on addr in the background.
func Start(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return &Server{srv: srv}
}

// Stop shuts the server down, waiting at most five seconds.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
