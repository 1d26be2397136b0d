// Package domain defines the core types for the parking availability watcher.
package domain

import (
	"fmt"
	"time"
)

// Location identifies a parking base area on the reservation site.
type Location string

// Location constants. The reservation backend addresses each base area by an
// inventory hash ID.
const (
	LocationPalisades Location = "palisades"
	LocationAlpine    Location = "alpine"
)

// locationBoth is accepted on the CLI and expands to both concrete locations.
const locationBoth = "both"

// Label returns the uppercase display label used in console output.
func (l Location) Label() string {
	switch l {
	case LocationPalisades:
		return "PALISADES"
	case LocationAlpine:
		return "ALPINE"
	default:
		return ""
	}
}

// InventoryID returns the upstream inventory hash ID for the location.
func (l Location) InventoryID() string {
	switch l {
	case LocationPalisades:
		return "G6HG"
	case LocationAlpine:
		return "eauZ"
	default:
		return ""
	}
}

// ParseLocations expands a CLI location argument into concrete locations.
// "both" yields palisades then alpine, in that order.
func ParseLocations(s string) ([]Location, error) {
	switch s {
	case string(LocationPalisades):
		return []Location{LocationPalisades}, nil
	case string(LocationAlpine):
		return []Location{LocationAlpine}, nil
	case locationBoth:
		return []Location{LocationPalisades, LocationAlpine}, nil
	default:
		return nil, fmt.Errorf("unknown location %q (want palisades, alpine, or both)", s)
	}
}

// DateLayout is the calendar date format used on the CLI and in dedup keys.
const DateLayout = "2006-01-02"

// ParseDate validates and normalizes a YYYY-MM-DD date string.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t.Format(DateLayout), nil
}

// Rate is one reservation offering for a single day.
type Rate struct {
	ID           string
	Description  string
	Price        string // upstream decimal string; "0.0" means free
	Available    bool
	Notification bool
}

// Free reports whether the rate has no charge.
func (r Rate) Free() bool {
	return r.Price == "" || r.Price == "0" || r.Price == "0.0"
}

// PriceDisplay renders the rate's price for console and alert output.
func (r Rate) PriceDisplay() string {
	if r.Free() {
		return "FREE"
	}
	return "$" + r.Price
}

// DayStatus is the upstream-reported state of one calendar day.
type DayStatus struct {
	Date                 string
	Found                bool
	SoldOut              bool
	Unavailable          bool
	ReservationNotNeeded bool
	Rates                []Rate

	// Message carries a human-readable explanation when Found is false.
	Message string
}

// HasOpenRate reports whether any rate on the day is bookable.
func (d DayStatus) HasOpenRate() bool {
	for _, r := range d.Rates {
		if r.Available {
			return true
		}
	}
	return false
}

// AvailabilityRecord is one (location, date, rate) observation from a poll.
type AvailabilityRecord struct {
	Location  Location
	Date      string
	RateLabel string
	Price     string
	Available bool
}

// Key is the dedup key identifying a logical slot type across polls.
type Key struct {
	Location  Location
	Date      string
	RateLabel string
}

// Key returns the record's dedup key.
func (r AvailabilityRecord) Key() Key {
	return Key{Location: r.Location, Date: r.Date, RateLabel: r.RateLabel}
}

// PollTarget is one (location, date) pair checked every cycle. The target set
// is fixed at startup and never mutated during the run.
type PollTarget struct {
	Location Location
	Date     string
}

// Targets builds the cross product of locations and dates, locations outermost.
func Targets(locations []Location, dates []string) []PollTarget {
	targets := make([]PollTarget, 0, len(locations)*len(dates))
	for _, loc := range locations {
		for _, date := range dates {
			targets = append(targets, PollTarget{Location: loc, Date: date})
		}
	}
	return targets
}
