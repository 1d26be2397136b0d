// Package watcher implements the polling controller: fetch availability for
// every target, evaluate it against the dedup tracker, alert on newly open
// slots, sleep, repeat.
package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/skitools/parkwatch/internal/honk"
	"github.com/skitools/parkwatch/internal/metrics"
	"github.com/skitools/parkwatch/internal/notify"
	domain "github.com/skitools/parkwatch/pkg/types"
)

// Notification titles.
const (
	alertTitle     = "Palisades Parking Available!"
	heartbeatTitle = "Parking Checker Heartbeat"
)

// Watcher runs the poll loop. It owns the dedup tracker and the notifier set
// exclusively; everything executes on the calling goroutine, suspending only
// for the fetcher round-trip and the between-cycle sleep.
type Watcher struct {
	fetcher   honk.Fetcher
	notifiers []notify.Notifier
	targets   []domain.PollTarget
	tracker   *Tracker

	interval    time.Duration
	stopOnFound bool
	healthcheck bool

	out io.Writer
	log *slog.Logger
	now func() time.Time

	// Derived from targets at construction; targets never change mid-run.
	locations  []domain.Location
	datesByLoc map[domain.Location][]string
	months     []honk.Month
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the delay between cycles. Zero or negative means a
// single cycle (one-shot mode).
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		w.interval = d
	}
}

// WithStopOnFound stops the loop after the first cycle that detects newly
// available slots. The cycle in progress always completes first: every
// target is evaluated, the report printed, and notifications dispatched
// before the loop exits.
func WithStopOnFound(stop bool) Option {
	return func(w *Watcher) {
		w.stopOnFound = stop
	}
}

// WithHealthcheck sends a status heartbeat through the configured channels
// after every cycle, regardless of availability.
func WithHealthcheck(enabled bool) Option {
	return func(w *Watcher) {
		w.healthcheck = enabled
	}
}

// WithOutput redirects the console report (default stdout).
func WithOutput(out io.Writer) Option {
	return func(w *Watcher) {
		w.out = out
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.log = l
	}
}

// WithNowFunc overrides the time source for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(w *Watcher) {
		w.now = f
	}
}

// New creates a Watcher over a fixed target set.
func New(
	fetcher honk.Fetcher,
	notifiers []notify.Notifier,
	targets []domain.PollTarget,
	opts ...Option,
) (*Watcher, error) {
	w := &Watcher{
		fetcher:    fetcher,
		notifiers:  notifiers,
		targets:    targets,
		tracker:    NewTracker(),
		out:        os.Stdout,
		log:        slog.Default(),
		now:        time.Now,
		datesByLoc: make(map[domain.Location][]string),
	}
	for _, opt := range opts {
		opt(w)
	}

	var dates []string
	for _, t := range targets {
		if _, ok := w.datesByLoc[t.Location]; !ok {
			w.locations = append(w.locations, t.Location)
		}
		w.datesByLoc[t.Location] = append(w.datesByLoc[t.Location], t.Date)
		dates = append(dates, t.Date)
	}

	months, err := honk.MonthsFor(dates)
	if err != nil {
		return nil, fmt.Errorf("deriving months from targets: %w", err)
	}
	w.months = months

	return w, nil
}

// Run executes poll cycles until a stop condition: one-shot mode after the
// first cycle, stop-on-found after a cycle with new availability, or context
// cancellation. Returns the context error on cancellation, nil otherwise.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		found := w.runCycle(ctx)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if found && w.stopOnFound {
			fmt.Fprintln(w.out, "\n  Availability found. Stopping.")
			return nil
		}

		if w.interval <= 0 {
			return nil
		}

		fmt.Fprintf(w.out, "\n  Next check in %ds... (Ctrl+C to quit)\n", int(w.interval.Seconds()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// runCycle performs one full pass over all targets and returns whether any
// record passed the dedup tracker. Errors never propagate past here: a
// failed location is reported and the cycle moves on.
func (w *Watcher) runCycle(ctx context.Context) bool {
	start := w.now()
	defer func() {
		metrics.CheckCyclesTotal.Inc()
		metrics.CheckCycleDuration.Observe(time.Since(start).Seconds())
	}()

	fmt.Fprintln(w.out, cycleHeader(start))

	var (
		results    []locationResult
		foundNew   bool
		anyChecked bool
	)

	for _, loc := range w.locations {
		if ctx.Err() != nil {
			return foundNew
		}

		avail, err := w.fetcher.Fetch(ctx, loc, w.months)
		if err != nil {
			fmt.Fprintf(w.out, "  %s: Failed to fetch availability data\n", loc.Label())
			w.log.Error("availability fetch failed",
				"location", loc,
				"kind", honk.Kind(err),
				"error", err,
			)
			metrics.FetchFailuresTotal.WithLabelValues(string(loc), honk.Kind(err)).Inc()
			results = append(results, locationResult{Location: loc, FetchFailed: true})
			continue
		}

		res := locationResult{Location: loc}
		for _, date := range w.datesByLoc[loc] {
			day := avail.Day(date)
			fmt.Fprintln(w.out, formatDay(loc, day))
			res.Days = append(res.Days, day)
			anyChecked = true

			for _, r := range day.Rates {
				metrics.RecordsEvaluatedTotal.Inc()
				rec := domain.AvailabilityRecord{
					Location:  loc,
					Date:      date,
					RateLabel: r.Description,
					Price:     r.Price,
					Available: r.Available,
				}
				if w.tracker.ShouldNotify(rec) {
					metrics.NewAvailabilityTotal.Inc()
					w.log.Info("new availability",
						"location", loc,
						"date", date,
						"rate", r.Description,
						"price", r.PriceDisplay(),
					)
					foundNew = true
				}
			}
		}
		results = append(results, res)
	}

	if foundNew && len(w.notifiers) > 0 {
		if msg := buildAlertMessage(results); msg != "" {
			w.dispatch(ctx, alertTitle, msg)
		}
	}

	if w.healthcheck && len(w.notifiers) > 0 && anyChecked {
		msg := fmt.Sprintf("Checker is running as of %s\n\n%s",
			start.Format("2006-01-02 15:04:05"),
			buildStatusSummary(results),
		)
		w.dispatch(ctx, heartbeatTitle, msg)
	}

	return foundNew
}

// dispatch sends to every configured channel and reports per-channel
// outcomes. Failures are logged and counted, never retried; the dedup keys
// for this cycle are already marked, so a failed send stays sent.
func (w *Watcher) dispatch(ctx context.Context, title, message string) {
	for _, res := range notify.Dispatch(ctx, w.notifiers, title, message) {
		if res.Err != nil {
			fmt.Fprintf(w.out, "  [%s] Error: %v\n", res.Channel, res.Err)
			w.log.Error("notification failed", "channel", res.Channel, "error", res.Err)
			metrics.NotificationFailuresTotal.WithLabelValues(string(res.Channel)).Inc()
			continue
		}
		fmt.Fprintf(w.out, "  [%s] %s\n", res.Channel, res.Detail)
		w.log.Info("notification sent", "channel", res.Channel)
		metrics.NotificationsSentTotal.WithLabelValues(string(res.Channel)).Inc()
	}
}

// Tracker exposes the dedup tracker for inspection in tests.
func (w *Watcher) Tracker() *Tracker {
	return w.tracker
}
