// Package metrics defines Prometheus metrics for parkwatch.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "parkwatch"

// Poll cycle metrics.
var (
	CheckCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "check_cycles_total",
		Help:      "Total number of completed poll cycles.",
	})

	CheckCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "check_cycle_duration_seconds",
		Help:      "Duration of poll cycles in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	RecordsEvaluatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_evaluated_total",
		Help:      "Total number of availability records evaluated against the dedup tracker.",
	})

	NewAvailabilityTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "new_availability_total",
		Help:      "Total number of newly available slots detected.",
	})
)

// Fetch metrics.
var (
	FetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_failures_total",
		Help:      "Total number of availability fetch failures.",
	}, []string{"location", "kind"})
)

// Notification metrics.
var (
	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total number of notifications delivered.",
	}, []string{"channel"})

	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of notification delivery failures.",
	}, []string{"channel"})
)

// Listen serves the Prometheus scrape endpoint on addr in the background.
// Failures only lose observability, so they are logged, not fatal.
func Listen(addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("metrics listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics listener failed", "addr", addr, "error", err)
		}
	}()
}
