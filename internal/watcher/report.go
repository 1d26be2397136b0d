package watcher

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/skitools/parkwatch/pkg/types"
)

// The console report format is a compatibility surface: downstream
// log-scraping expects these exact shapes. Keep changes here deliberate.

const headerRule = "============================================================"

// locationResult collects one location's outcome for a cycle.
type locationResult struct {
	Location    domain.Location
	FetchFailed bool
	Days        []domain.DayStatus
}

// cycleHeader renders the banner printed at the top of every cycle.
func cycleHeader(now time.Time) string {
	return fmt.Sprintf("\n%s\n  Checking at %s\n%s",
		headerRule,
		now.Format("2006-01-02 15:04:05"),
		headerRule,
	)
}

// formatDay renders the per-date status lines for one location and day.
func formatDay(loc domain.Location, day domain.DayStatus) string {
	prefix := fmt.Sprintf("  %s | %s:", loc.Label(), day.Date)

	switch {
	case !day.Found:
		return fmt.Sprintf("%s %s", prefix, day.Message)
	case day.ReservationNotNeeded:
		return fmt.Sprintf("%s No reservation needed (open parking)", prefix)
	case day.Unavailable:
		return fmt.Sprintf("%s UNAVAILABLE", prefix)
	case day.SoldOut && !day.HasOpenRate():
		return fmt.Sprintf("%s SOLD OUT", prefix)
	case len(day.Rates) == 0:
		return fmt.Sprintf("%s No rate info available", prefix)
	}

	lines := make([]string, 0, len(day.Rates))
	for _, r := range day.Rates {
		tag := "sold out"
		if r.Available {
			tag = "AVAILABLE"
		}
		lines = append(lines, fmt.Sprintf("%s [%s] %s (%s)",
			prefix, tag, r.Description, r.PriceDisplay()))
	}
	return strings.Join(lines, "\n")
}

// buildAlertMessage lists every currently open rate across the cycle's
// results, one line per rate. Empty when nothing is open.
func buildAlertMessage(results []locationResult) string {
	var lines []string
	for _, res := range results {
		for _, day := range res.Days {
			for _, r := range day.Rates {
				if !r.Available {
					continue
				}
				lines = append(lines, fmt.Sprintf("%s %s: %s (%s)",
					res.Location.Label(), day.Date, r.Description, r.PriceDisplay()))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// buildStatusSummary renders the compact per-target status used by the
// healthcheck heartbeat.
func buildStatusSummary(results []locationResult) string {
	var lines []string
	for _, res := range results {
		if res.FetchFailed {
			lines = append(lines, fmt.Sprintf("%s: fetch failed", res.Location.Label()))
			continue
		}
		for _, day := range res.Days {
			prefix := fmt.Sprintf("%s %s:", res.Location.Label(), day.Date)
			switch {
			case !day.Found:
				lines = append(lines, prefix+" not found")
			case day.ReservationNotNeeded:
				lines = append(lines, prefix+" no reservation needed")
			case day.SoldOut && !day.HasOpenRate():
				lines = append(lines, prefix+" SOLD OUT")
			case day.Unavailable:
				lines = append(lines, prefix+" unavailable")
			default:
				open, sold := 0, 0
				for _, r := range day.Rates {
					if r.Available {
						open++
					} else {
						sold++
					}
				}
				lines = append(lines, fmt.Sprintf("%s %d available, %d sold out", prefix, open, sold))
			}
		}
	}
	if len(lines) == 0 {
		return "No data"
	}
	return strings.Join(lines, "\n")
}
