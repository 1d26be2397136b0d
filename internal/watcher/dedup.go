package watcher

import (
	domain "github.com/skitools/parkwatch/pkg/types"
)

// Tracker records which (location, date, rate label) slots have already
// triggered a notification during this run, so a slot that stays open across
// cycles alerts exactly once. State is process-local and dies with the run;
// that is intended, the watcher runs as a disposable scheduled job.
//
// Tracker is owned by a single goroutine and is not safe for concurrent use.
type Tracker struct {
	seen map[domain.Key]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[domain.Key]struct{})}
}

// ShouldNotify reports whether the record is newly available: available now
// and never seen before in this run. When it returns true the key is marked
// seen as a side effect, making check-and-mark a single operation. Keys are
// never unmarked, even if a later notification attempt fails.
func (t *Tracker) ShouldNotify(rec domain.AvailabilityRecord) bool {
	if !rec.Available {
		return false
	}
	key := rec.Key()
	if _, ok := t.seen[key]; ok {
		return false
	}
	t.seen[key] = struct{}{}
	return true
}

// Seen reports whether the key has already triggered a notification.
func (t *Tracker) Seen(key domain.Key) bool {
	_, ok := t.seen[key]
	return ok
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	return len(t.seen)
}
