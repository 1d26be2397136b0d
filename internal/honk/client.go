// Package honk talks to the HONK Mobile reservation backend that serves the
// Palisades Tahoe parking portal. The backend exposes month-granular
// availability through a GraphQL query; getting that query past the portal's
// bot protection requires issuing it from a real browser context, which is
// what Browser does.
package honk

import (
	"context"
	"fmt"
	"sort"
	"time"

	domain "github.com/skitools/parkwatch/pkg/types"
)

// Reservation portal endpoints.
const (
	SiteURL      = "https://reservenski.parkpalisadestahoe.com/select-parking"
	graphqlURL   = "https://platform.honkmobile.com/graphql"
	rsvpPortalID = "9JU5"
)

// Availability maps calendar dates (YYYY-MM-DD) to their parsed day status.
// A fetch returns every day the upstream reports for the requested months,
// not just the days the caller is interested in.
type Availability map[string]domain.DayStatus

// Day returns the status for a single date. Dates the upstream did not report
// on come back with Found unset and an explanatory message.
func (a Availability) Day(date string) domain.DayStatus {
	if day, ok := a[date]; ok {
		return day
	}
	return domain.DayStatus{
		Date:    date,
		Message: "Date not in availability data (may be outside reservation season)",
	}
}

// Fetcher retrieves parking availability for a location over one or more
// months. Implementations may hold session state (a live browser); callers
// treat every call as independent.
type Fetcher interface {
	Fetch(ctx context.Context, loc domain.Location, months []Month) (Availability, error)
}

// Month identifies one calendar month to query.
type Month struct {
	Year  int
	Month time.Month
}

// MonthsFor returns the sorted, de-duplicated set of months covering the
// given YYYY-MM-DD dates.
func MonthsFor(dates []string) ([]Month, error) {
	seen := make(map[Month]struct{})
	var months []Month
	for _, d := range dates {
		t, err := time.Parse(domain.DateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", d, err)
		}
		m := Month{Year: t.Year(), Month: t.Month()}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool {
		if months[i].Year != months[j].Year {
			return months[i].Year < months[j].Year
		}
		return months[i].Month < months[j].Month
	})
	return months, nil
}

// DayRange returns the first and last day-of-year covered by the month.
// The upstream query addresses days by their ordinal within the year.
func (m Month) DayRange() (startDay, endDay int) {
	first := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.YearDay(), last.YearDay()
}

// CartStartTime returns the cartStartTime variable for the month: the first
// of the month at 6 AM Pacific, the portal's reservation-day boundary.
func (m Month) CartStartTime() string {
	return fmt.Sprintf("%04d-%02d-01T06:00:00-08:00", m.Year, int(m.Month))
}
