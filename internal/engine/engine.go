// Package engine performs 1:N identification: scan a snapshot of the active
// population, score every candidate, and decide against a fixed threshold.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/high-horse/faceid-server/internal/faceid"
)

// Oracle scores the similarity of two equal-length encodings in [0,1].
type Oracle interface {
	Score(ctx context.Context, a, b []float64) (float64, error)
}

// Snapshotter provides a point-in-time view of the active population.
type Snapshotter interface {
	Snapshot() []faceid.Template
}

// Recorder accepts the attempt record; it must not fail the caller.
type Recorder interface {
	AppendAttempt(faceid.Attempt)
}

// Result is the outcome of one identification.
type Result struct {
	Matched    bool
	TemplateID string // set only when Matched
	Confidence float64
}

// Engine runs identifications. Construct with New; all fields are fixed
// afterwards, so a single Engine serves concurrent calls.
type Engine struct {
	store     Snapshotter
	oracle    Oracle
	audit     Recorder
	dim       int
	threshold float64
	timeout   time.Duration // per comparison, 0 means none
	clock     clockwork.Clock
	logf      func(format string, args ...interface{})
}

// Config carries the engine's fixed policy knobs.
type Config struct {
	Dim       int
	Threshold float64
	Timeout   time.Duration
	Clock     clockwork.Clock
	Logf      func(format string, args ...interface{})
}

// New builds an engine over the given collaborators.
func New(store Snapshotter, oracle Oracle, audit Recorder, cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Engine{
		store:     store,
		oracle:    oracle,
		audit:     audit,
		dim:       cfg.Dim,
		threshold: cfg.Threshold,
		timeout:   cfg.Timeout,
		clock:     cfg.Clock,
		logf:      cfg.Logf,
	}
}

// Identify compares probe against every active template and returns the best
// candidate if it clears the threshold. The scan never exits early: the
// reported confidence is the true maximum over the population. On equal
// scores the template earlier in snapshot order wins. Every completed call
// records exactly one attempt; a call where all comparisons failed records
// nothing and returns faceid.ErrOracleUnavailable.
func (e *Engine) Identify(ctx context.Context, probe []float64, origin string) (Result, error) {
	if len(probe) != e.dim {
		return Result{}, fmt.Errorf("%w: probe has %d values, store holds %d-dimensional encodings",
			faceid.ErrEncodingShape, len(probe), e.dim)
	}

	snapshot := e.store.Snapshot()
	if len(snapshot) == 0 {
		res := Result{}
		e.record(res, origin)
		return res, nil
	}

	best := -1.0
	bestID := ""
	failures := 0
	for _, t := range snapshot {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("engine: identify cancelled: %w", err)
		}
		score, err := e.score(ctx, probe, t.Encoding)
		if err != nil {
			failures++
			e.logf("engine: comparison against template %s failed: %v", t.ID, err)
			continue
		}
		// Strict inequality keeps the first template on ties.
		if score > best {
			best = score
			bestID = t.ID
		}
	}
	if failures == len(snapshot) {
		return Result{}, fmt.Errorf("%w: all %d comparisons failed", faceid.ErrOracleUnavailable, failures)
	}

	res := Result{Confidence: best}
	if best >= e.threshold {
		res.Matched = true
		res.TemplateID = bestID
	}
	e.record(res, origin)
	return res, nil
}

func (e *Engine) score(ctx context.Context, probe, candidate []float64) (float64, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.oracle.Score(ctx, probe, candidate)
}

func (e *Engine) record(res Result, origin string) {
	a := faceid.Attempt{
		Timestamp:     e.clock.Now().UTC(),
		Confidence:    res.Confidence,
		Result:        faceid.ResultFailed,
		RequestOrigin: origin,
	}
	if res.Matched {
		id := res.TemplateID
		a.MatchedTemplateID = &id
		a.Result = faceid.ResultSuccess
	}
	e.audit.AppendAttempt(a)
}
