// Package audit keeps the append-only trail of identification attempts and
// registration events. Appends never fail the calling operation: persistence
// runs on a background writer and failures go to the operational log only.
package audit

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/exp/slices"

	"github.com/high-horse/faceid-server/internal/faceid"
	"github.com/high-horse/faceid-server/internal/journal"
)

// MaxQueryLimit caps Attempts results regardless of the requested limit.
const MaxQueryLimit = 50

const persistQueueSize = 256

// Log is the audit trail. All methods are safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	attempts []faceid.Attempt           // chronological
	events   []faceid.RegistrationEvent // chronological

	journal *journal.Journal
	persist chan record
	done    chan struct{}
	logf    func(format string, args ...interface{})
}

type record struct {
	Kind    string                    `cbor:"kind"` // "attempt" or "registration"
	Attempt *faceid.Attempt           `cbor:"attempt,omitempty"`
	Event   *faceid.RegistrationEvent `cbor:"event,omitempty"`
}

// Open builds the log, replaying jnl if non-nil. logf receives operational
// warnings; nil means log.Printf.
func Open(jnl *journal.Journal, logf func(string, ...interface{})) (*Log, error) {
	if logf == nil {
		logf = log.Printf
	}
	l := &Log{journal: jnl, logf: logf}
	err := jnl.Replay(func(raw []byte) error {
		var rec record
		if err := cbor.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("audit: decode record: %w", err)
		}
		switch rec.Kind {
		case "attempt":
			if rec.Attempt != nil {
				l.attempts = append(l.attempts, *rec.Attempt)
			}
		case "registration":
			if rec.Event != nil {
				l.events = append(l.events, *rec.Event)
			}
		default:
			return fmt.Errorf("audit: unknown record kind %q", rec.Kind)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if jnl != nil {
		l.persist = make(chan record, persistQueueSize)
		l.done = make(chan struct{})
		go l.writer()
	}
	return l, nil
}

func (l *Log) writer() {
	defer close(l.done)
	for rec := range l.persist {
		if err := l.journal.Append(rec); err != nil {
			l.logf("audit: persist %s record: %v", rec.Kind, err)
		}
	}
}

// Close drains the persistence queue and waits for the writer to finish.
func (l *Log) Close() {
	if l.persist == nil {
		return
	}
	close(l.persist)
	<-l.done
}

func (l *Log) enqueue(rec record) {
	if l.persist == nil {
		return
	}
	select {
	case l.persist <- rec:
	default:
		l.logf("audit: persistence queue full, dropping %s record", rec.Kind)
	}
}

// AppendAttempt records one identification attempt. It never fails.
func (l *Log) AppendAttempt(a faceid.Attempt) {
	l.mu.Lock()
	l.attempts = append(l.attempts, a)
	l.mu.Unlock()
	l.enqueue(record{Kind: "attempt", Attempt: &a})
}

// AppendEvent records one successful enrollment. It never fails.
func (l *Log) AppendEvent(e faceid.RegistrationEvent) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
	l.enqueue(record{Kind: "registration", Event: &e})
}

// Query filters attempts. Zero times mean unbounded; an empty Result matches
// both outcomes.
type Query struct {
	From   time.Time
	To     time.Time
	Result faceid.AttemptResult
	Limit  int
}

// Attempts returns matching attempts, newest first, capped at MaxQueryLimit.
func (l *Log) Attempts(q Query) []faceid.Attempt {
	limit := q.Limit
	if limit <= 0 || limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]faceid.Attempt, 0, limit)
	for i := len(l.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		a := l.attempts[i]
		if !q.From.IsZero() && a.Timestamp.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && a.Timestamp.After(q.To) {
			continue
		}
		if q.Result != "" && a.Result != q.Result {
			continue
		}
		out = append(out, a)
	}
	return out
}

// RecentAttempts returns up to n most recent attempts in chronological order.
func (l *Log) RecentAttempts(n int) []faceid.Attempt {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.attempts) {
		n = len(l.attempts)
	}
	out := make([]faceid.Attempt, 0, n)
	for i := len(l.attempts) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.attempts[i])
	}
	slices.Reverse(out)
	return out
}

// SuccessesSince counts successful attempts at or after t.
func (l *Log) SuccessesSince(t time.Time) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	// Append order is not guaranteed to follow timestamp order across
	// concurrent requests, so scan everything.
	n := 0
	for _, a := range l.attempts {
		if a.Result == faceid.ResultSuccess && !a.Timestamp.Before(t) {
			n++
		}
	}
	return n
}

// TotalAttempts reports how many attempts are on record.
func (l *Log) TotalAttempts() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.attempts)
}
