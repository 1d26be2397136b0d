package honk

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	domain "github.com/skitools/parkwatch/pkg/types"
)

// graphqlEnvelope is the outer shape of a PublicParkingAvailability response.
type graphqlEnvelope struct {
	Data struct {
		PublicParkingAvailability map[string]json.RawMessage `json:"publicParkingAvailability"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// dayStatusFlags is the "status" sub-object of a day payload.
type dayStatusFlags struct {
	SoldOut              bool `json:"sold_out"`
	Unavailable          bool `json:"unavailable"`
	ReservationNotNeeded bool `json:"reservation_not_needed"`
}

// rateEntry is one rate object within a day payload. Every key of a day
// other than "status" that carries an "available" field is a rate.
type rateEntry struct {
	HashID       string     `json:"hashid"`
	Description  string     `json:"description"`
	Price        priceValue `json:"price"`
	Available    bool       `json:"available"`
	Notification bool       `json:"notification"`
}

// priceValue tolerates the upstream sending prices as either a decimal
// string or a bare JSON number.
type priceValue string

func (p *priceValue) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = priceValue(s)
		return nil
	}
	*p = priceValue(string(b))
	return nil
}

// parseEnvelope decodes a raw GraphQL response body into the merged raw
// availability map, surfacing GraphQL-level errors as ErrParse.
func parseEnvelope(body []byte) (map[string]json.RawMessage, error) {
	var env graphqlEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding graphql response: %v", ErrParse, err)
	}
	if len(env.Errors) > 0 {
		return nil, fmt.Errorf("%w: graphql error: %s", ErrParse, env.Errors[0].Message)
	}
	if env.Data.PublicParkingAvailability == nil {
		return nil, fmt.Errorf("%w: response missing publicParkingAvailability", ErrParse)
	}
	return env.Data.PublicParkingAvailability, nil
}

// ParseAvailability converts the raw availability map (keyed by upstream ISO
// datetime strings) into parsed day statuses keyed by calendar date.
func ParseAvailability(raw map[string]json.RawMessage) (Availability, error) {
	avail := make(Availability, len(raw))
	for key, payload := range raw {
		date := dateOf(key)
		day, err := parseDay(date, payload)
		if err != nil {
			return nil, fmt.Errorf("day %s: %w", key, err)
		}
		avail[date] = day
	}
	return avail, nil
}

// dateOf strips the time component from an upstream ISO datetime key.
func dateOf(key string) string {
	date, _, _ := strings.Cut(key, "T")
	return date
}

func parseDay(date string, payload json.RawMessage) (domain.DayStatus, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return domain.DayStatus{}, fmt.Errorf("%w: day payload is not an object: %v", ErrParse, err)
	}

	day := domain.DayStatus{Date: date, Found: true}

	if rawStatus, ok := fields["status"]; ok {
		var status dayStatusFlags
		if err := json.Unmarshal(rawStatus, &status); err != nil {
			return domain.DayStatus{}, fmt.Errorf("%w: day status: %v", ErrParse, err)
		}
		day.SoldOut = status.SoldOut
		day.Unavailable = status.Unavailable
		day.ReservationNotNeeded = status.ReservationNotNeeded
	}

	for key, rawRate := range fields {
		if key == "status" {
			continue
		}
		// Only objects carrying an "available" field are rate entries;
		// anything else on the day is upstream metadata we ignore.
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(rawRate, &probe); err != nil {
			continue
		}
		if _, ok := probe["available"]; !ok {
			continue
		}

		var entry rateEntry
		if err := json.Unmarshal(rawRate, &entry); err != nil {
			return domain.DayStatus{}, fmt.Errorf("%w: rate %s: %v", ErrParse, key, err)
		}
		id := entry.HashID
		if id == "" {
			id = key
		}
		description := entry.Description
		if description == "" {
			description = "Unknown"
		}
		day.Rates = append(day.Rates, domain.Rate{
			ID:           id,
			Description:  description,
			Price:        string(entry.Price),
			Available:    entry.Available,
			Notification: entry.Notification,
		})
	}

	// Map iteration order is random; keep rates deterministic for display.
	sort.Slice(day.Rates, func(i, j int) bool {
		return day.Rates[i].Description < day.Rates[j].Description
	})

	return day, nil
}
