// Package stats derives dashboard metrics from the store and the audit log.
// Everything is recomputed per call; nothing here keeps state.
package stats

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/high-horse/faceid-server/internal/faceid"
)

// Counter exposes the store's population counts.
type Counter interface {
	Counts() (total, active int)
}

// Trail exposes the audit log reads the aggregator needs.
type Trail interface {
	RecentAttempts(n int) []faceid.Attempt
	SuccessesSince(t time.Time) int
}

// Stats is the dashboard snapshot.
type Stats struct {
	TotalEnrolled  int     `json:"totalEnrolled"`
	ActiveCount    int     `json:"activeCount"`
	SuccessesToday int     `json:"successesToday"`
	RecentAccuracy float64 `json:"accuracyOverRecentWindow"`
}

// Aggregator computes Stats on demand.
type Aggregator struct {
	store  Counter
	audit  Trail
	window int
	loc    *time.Location
	clock  clockwork.Clock
}

// New builds an aggregator. window is the number of recent attempts the
// accuracy figure covers; loc is the reference timezone for the "today"
// boundary. Nil loc means UTC, nil clock means the real clock.
func New(store Counter, audit Trail, window int, loc *time.Location, clock clockwork.Clock) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Aggregator{store: store, audit: audit, window: window, loc: loc, clock: clock}
}

// Compute returns the current dashboard snapshot.
func (a *Aggregator) Compute() Stats {
	total, active := a.store.Counts()

	now := a.clock.Now().In(a.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)

	recent := a.audit.RecentAttempts(a.window)
	accuracy := 0.0
	if len(recent) > 0 {
		successes := 0
		for _, at := range recent {
			if at.Result == faceid.ResultSuccess {
				successes++
			}
		}
		accuracy = float64(successes) / float64(len(recent))
	}

	return Stats{
		TotalEnrolled:  total,
		ActiveCount:    active,
		SuccessesToday: a.audit.SuccessesSince(midnight),
		RecentAccuracy: accuracy,
	}
}
