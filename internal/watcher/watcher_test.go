package watcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skitools/parkwatch/internal/honk"
	"github.com/skitools/parkwatch/internal/notify"
	domain "github.com/skitools/parkwatch/pkg/types"
)

// fetchFunc adapts a function to the honk.Fetcher interface.
type fetchFunc func(ctx context.Context, loc domain.Location, months []honk.Month) (honk.Availability, error)

func (f fetchFunc) Fetch(ctx context.Context, loc domain.Location, months []honk.Month) (honk.Availability, error) {
	return f(ctx, loc, months)
}

// capturingNotifier records every send and can be told to fail.
type capturingNotifier struct {
	channel  notify.Channel
	failWith error
	titles   []string
	messages []string
}

func (c *capturingNotifier) Kind() notify.Channel { return c.channel }

func (c *capturingNotifier) Send(_ context.Context, title, message string) (string, error) {
	c.titles = append(c.titles, title)
	c.messages = append(c.messages, message)
	if c.failWith != nil {
		return "", c.failWith
	}
	return fmt.Sprintf("Sent via %s", c.channel), nil
}

func openDay(date string) domain.DayStatus {
	return domain.DayStatus{
		Date:  date,
		Found: true,
		Rates: []domain.Rate{
			{Description: "Free Reservations Incl ADA 6AM-1PM PST", Price: "0.0", Available: true},
			{Description: "Advanced Paid Parking", Price: "30.0", Available: false},
		},
	}
}

func soldOutDay(date string) domain.DayStatus {
	return domain.DayStatus{
		Date:    date,
		Found:   true,
		SoldOut: true,
		Rates: []domain.Rate{
			{Description: "Free Reservations Incl ADA 6AM-1PM PST", Price: "0.0", Available: false},
		},
	}
}

func staticFetcher(byLoc map[domain.Location]honk.Availability) fetchFunc {
	return func(_ context.Context, loc domain.Location, _ []honk.Month) (honk.Availability, error) {
		avail, ok := byLoc[loc]
		if !ok {
			return nil, fmt.Errorf("no fixture for %s: %w", loc, honk.ErrParse)
		}
		return avail, nil
	}
}

func TestWatcher_OneShotAlertsAndPrints(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(map[domain.Location]honk.Availability{
		domain.LocationPalisades: {"2026-02-22": openDay("2026-02-22")},
	})
	ntfy := &capturingNotifier{channel: notify.ChannelNtfy}

	var out bytes.Buffer
	w, err := New(
		fetcher,
		[]notify.Notifier{ntfy},
		domain.Targets([]domain.Location{domain.LocationPalisades}, []string{"2026-02-22"}),
		WithOutput(&out),
		WithNowFunc(func() time.Time {
			return time.Date(2026, 2, 22, 7, 0, 0, 0, time.UTC)
		}),
	)
	require.NoError(t, err)

	require.NoError(t, w.Run(context.Background()))

	console := out.String()
	assert.Contains(t, console, "Checking at 2026-02-22 07:00:00")
	assert.Contains(t, console, "  PALISADES | 2026-02-22: [AVAILABLE] Free Reservations Incl ADA 6AM-1PM PST (FREE)")
	assert.Contains(t, console, "  PALISADES | 2026-02-22: [sold out] Advanced Paid Parking ($30.0)")
	assert.Contains(t, console, "  [ntfy] Sent via ntfy")

	require.Len(t, ntfy.titles, 1)
	assert.Equal(t, "Palisades Parking Available!", ntfy.titles[0])
	assert.Contains(t, ntfy.messages[0], "PALISADES 2026-02-22: Free Reservations Incl ADA 6AM-1PM PST (FREE)")
	assert.NotContains(t, ntfy.messages[0], "Advanced Paid Parking")

	key := domain.Key{
		Location:  domain.LocationPalisades,
		Date:      "2026-02-22",
		RateLabel: "Free Reservations Incl ADA 6AM-1PM PST",
	}
	assert.True(t, w.Tracker().Seen(key))
}

func TestWatcher_RepeatCycleIsDeduplicated(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(map[domain.Location]honk.Availability{
		domain.LocationPalisades: {"2026-02-22": openDay("2026-02-22")},
	})
	ntfy := &capturingNotifier{channel: notify.ChannelNtfy}

	var out bytes.Buffer
	w, err := New(
		fetcher,
		[]notify.Notifier{ntfy},
		domain.Targets([]domain.Location{domain.LocationPalisades}, []string{"2026-02-22"}),
		WithOutput(&out),
	)
	require.NoError(t, err)

	// Two cycles over identical data: the report repeats, the alert does not.
	assert.True(t, w.runCycle(context.Background()))
	assert.False(t, w.runCycle(context.Background()))

	assert.Len(t, ntfy.titles, 1)
	assert.Equal(t, 2, strings.Count(out.String(),
		"  PALISADES | 2026-02-22: [AVAILABLE] Free Reservations Incl ADA 6AM-1PM PST (FREE)"))
}

func TestWatcher_OneShotIgnoresStopOnFound(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(map[domain.Location]honk.Availability{
		domain.LocationPalisades: {"2026-02-22": soldOutDay("2026-02-22")},
	})

	var out bytes.Buffer
	w, err := New(
		fetcher,
		nil,
		domain.Targets([]domain.Location{domain.LocationPalisades}, []string{"2026-02-22"}),
		WithOutput(&out),
		WithStopOnFound(true),
	)
	require.NoError(t, err)

	require.NoError(t, w.Run(context.Background()))
	assert.NotContains(t, out.String(), "Next check in")
	assert.NotContains(t, out.String(), "Availability found. Stopping.")
}

func TestWatcher_StopOnFoundCompletesTheCycle(t *testing.T) {
	t.Parallel()

	var fetched []domain.Location
	fetcher := fetchFunc(func(_ context.Context, loc domain.Location, _ []honk.Month) (honk.Availability, error) {
		fetched = append(fetched, loc)
		if loc == domain.LocationPalisades {
			return honk.Availability{"2026-02-22": openDay("2026-02-22")}, nil
		}
		return honk.Availability{"2026-02-22": soldOutDay("2026-02-22")}, nil
	})
	ntfy := &capturingNotifier{channel: notify.ChannelNtfy}

	var out bytes.Buffer
	w, err := New(
		fetcher,
		[]notify.Notifier{ntfy},
		domain.Targets(
			[]domain.Location{domain.LocationPalisades, domain.LocationAlpine},
			[]string{"2026-02-22"},
		),
		WithOutput(&out),
		WithInterval(time.Hour),
		WithStopOnFound(true),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after finding availability")
	}

	// Palisades found availability first, but Alpine was still checked
	// before the loop stopped.
	assert.Equal(t, []domain.Location{domain.LocationPalisades, domain.LocationAlpine}, fetched)
	assert.Contains(t, out.String(), "  ALPINE | 2026-02-22: SOLD OUT")
	assert.Contains(t, out.String(), "\n  Availability found. Stopping.")
	assert.NotContains(t, out.String(), "Next check in")
	assert.Len(t, ntfy.titles, 1)
}

func TestWatcher_FetchFailureIsIsolatedPerLocation(t *testing.T) {
	t.Parallel()

	fetcher := fetchFunc(func(_ context.Context, loc domain.Location, _ []honk.Month) (honk.Availability, error) {
		if loc == domain.LocationAlpine {
			return nil, fmt.Errorf("portal unreachable: %w", honk.ErrNetwork)
		}
		return honk.Availability{"2026-02-22": openDay("2026-02-22")}, nil
	})
	ntfy := &capturingNotifier{channel: notify.ChannelNtfy}

	var out bytes.Buffer
	w, err := New(
		fetcher,
		[]notify.Notifier{ntfy},
		domain.Targets(
			[]domain.Location{domain.LocationPalisades, domain.LocationAlpine},
			[]string{"2026-02-22"},
		),
		WithOutput(&out),
	)
	require.NoError(t, err)

	assert.True(t, w.runCycle(context.Background()))

	console := out.String()
	assert.Contains(t, console, "  ALPINE: Failed to fetch availability data")
	assert.Contains(t, console, "  PALISADES | 2026-02-22: [AVAILABLE]")
	assert.Len(t, ntfy.titles, 1, "palisades availability still alerts")
}

func TestWatcher_ChannelFailureDoesNotBlockOthersOrRetry(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(map[domain.Location]honk.Availability{
		domain.LocationPalisades: {"2026-02-22": openDay("2026-02-22")},
	})
	ntfy := &capturingNotifier{channel: notify.ChannelNtfy, failWith: errors.New("ntfy returned 500")}
	email := &capturingNotifier{channel: notify.ChannelEmail}

	var out bytes.Buffer
	w, err := New(
		fetcher,
		[]notify.Notifier{ntfy, email},
		domain.Targets([]domain.Location{domain.LocationPalisades}, []string{"2026-02-22"}),
		WithOutput(&out),
	)
	require.NoError(t, err)

	assert.True(t, w.runCycle(context.Background()))

	console := out.String()
	assert.Contains(t, console, "  [ntfy] Error: ntfy returned 500")
	assert.Contains(t, console, "  [email] Sent via email")
	assert.Len(t, email.titles, 1)

	// Keys were marked before dispatch: the failed send is never retried.
	assert.False(t, w.runCycle(context.Background()))
	assert.Len(t, ntfy.titles, 1)
	assert.Len(t, email.titles, 1)
}

func TestWatcher_CancellationDuringSleep(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(map[domain.Location]honk.Availability{
		domain.LocationPalisades: {"2026-02-22": soldOutDay("2026-02-22")},
	})

	var out bytes.Buffer
	w, err := New(
		fetcher,
		nil,
		domain.Targets([]domain.Location{domain.LocationPalisades}, []string{"2026-02-22"}),
		WithOutput(&out),
		WithInterval(time.Hour),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the first cycle time to finish, then cancel mid-sleep.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not return after cancellation")
	}
	assert.Contains(t, out.String(), "Next check in 3600s... (Ctrl+C to quit)")
}

func TestWatcher_HealthcheckHeartbeatEveryCycle(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(map[domain.Location]honk.Availability{
		domain.LocationPalisades: {"2026-02-22": soldOutDay("2026-02-22")},
	})
	ntfy := &capturingNotifier{channel: notify.ChannelNtfy}

	var out bytes.Buffer
	w, err := New(
		fetcher,
		[]notify.Notifier{ntfy},
		domain.Targets([]domain.Location{domain.LocationPalisades}, []string{"2026-02-22"}),
		WithOutput(&out),
		WithHealthcheck(true),
	)
	require.NoError(t, err)

	// Nothing is ever available; the heartbeat still fires each cycle.
	assert.False(t, w.runCycle(context.Background()))
	assert.False(t, w.runCycle(context.Background()))

	require.Len(t, ntfy.titles, 2)
	assert.Equal(t, "Parking Checker Heartbeat", ntfy.titles[0])
	assert.Equal(t, "Parking Checker Heartbeat", ntfy.titles[1])
	assert.Contains(t, ntfy.messages[0], "Checker is running as of")
	assert.Contains(t, ntfy.messages[0], "PALISADES 2026-02-22: SOLD OUT")
}

func TestWatcher_MissingDateUsesPlaceholderStatus(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(map[domain.Location]honk.Availability{
		domain.LocationPalisades: {},
	})

	var out bytes.Buffer
	w, err := New(
		fetcher,
		nil,
		domain.Targets([]domain.Location{domain.LocationPalisades}, []string{"2026-07-04"}),
		WithOutput(&out),
	)
	require.NoError(t, err)

	assert.False(t, w.runCycle(context.Background()))
	assert.Contains(t, out.String(),
		"  PALISADES | 2026-07-04: Date not in availability data (may be outside reservation season)")
}

func TestNew_RejectsMalformedTargetDates(t *testing.T) {
	t.Parallel()

	_, err := New(
		staticFetcher(nil),
		nil,
		[]domain.PollTarget{{Location: domain.LocationPalisades, Date: "02/22/2026"}},
	)
	require.Error(t, err)
}
