package audit

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/high-horse/faceid-server/internal/faceid"
	"github.com/high-horse/faceid-server/internal/journal"
)

var base = time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

func attemptAt(offset time.Duration, result faceid.AttemptResult) faceid.Attempt {
	a := faceid.Attempt{
		Timestamp:  base.Add(offset),
		Confidence: 0.5,
		Result:     result,
	}
	if result == faceid.ResultSuccess {
		id := "tpl-1"
		a.MatchedTemplateID = &id
		a.Confidence = 0.9
	}
	return a
}

func newLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(nil, func(string, ...interface{}) {})
	require.NoError(t, err)
	return l
}

func TestAttemptsNewestFirst(t *testing.T) {
	l := newLog(t)
	for i := 0; i < 5; i++ {
		l.AppendAttempt(attemptAt(time.Duration(i)*time.Minute, faceid.ResultFailed))
	}

	got := l.Attempts(Query{})
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.True(t, !got[i].Timestamp.After(got[i-1].Timestamp), "expected descending timestamps")
	}
}

func TestAttemptsFilterByResult(t *testing.T) {
	l := newLog(t)
	l.AppendAttempt(attemptAt(0, faceid.ResultFailed))
	l.AppendAttempt(attemptAt(time.Minute, faceid.ResultSuccess))
	l.AppendAttempt(attemptAt(2*time.Minute, faceid.ResultFailed))

	got := l.Attempts(Query{Result: faceid.ResultSuccess})
	require.Len(t, got, 1)
	assert.Equal(t, faceid.ResultSuccess, got[0].Result)
}

func TestAttemptsFilterByTimeRange(t *testing.T) {
	l := newLog(t)
	for i := 0; i < 10; i++ {
		l.AppendAttempt(attemptAt(time.Duration(i)*time.Hour, faceid.ResultFailed))
	}

	got := l.Attempts(Query{
		From: base.Add(2 * time.Hour),
		To:   base.Add(5 * time.Hour),
	})
	assert.Len(t, got, 4) // hours 2,3,4,5 inclusive
	for _, a := range got {
		assert.False(t, a.Timestamp.Before(base.Add(2*time.Hour)))
		assert.False(t, a.Timestamp.After(base.Add(5*time.Hour)))
	}
}

func TestAttemptsHardLimit(t *testing.T) {
	l := newLog(t)
	for i := 0; i < MaxQueryLimit+30; i++ {
		l.AppendAttempt(attemptAt(time.Duration(i)*time.Second, faceid.ResultFailed))
	}

	assert.Len(t, l.Attempts(Query{Limit: 10}), 10)
	assert.Len(t, l.Attempts(Query{Limit: 1000}), MaxQueryLimit)
	assert.Len(t, l.Attempts(Query{}), MaxQueryLimit)
}

func TestRecentAttemptsChronological(t *testing.T) {
	l := newLog(t)
	for i := 0; i < 6; i++ {
		result := faceid.ResultFailed
		if i%2 == 0 {
			result = faceid.ResultSuccess
		}
		l.AppendAttempt(attemptAt(time.Duration(i)*time.Minute, result))
	}

	got := l.RecentAttempts(4)
	require.Len(t, got, 4)
	assert.Equal(t, base.Add(2*time.Minute), got[0].Timestamp)
	assert.Equal(t, base.Add(5*time.Minute), got[3].Timestamp)

	assert.Len(t, l.RecentAttempts(100), 6)
}

func TestSuccessesSince(t *testing.T) {
	l := newLog(t)
	l.AppendAttempt(attemptAt(-24*time.Hour, faceid.ResultSuccess)) // yesterday
	l.AppendAttempt(attemptAt(0, faceid.ResultSuccess))
	l.AppendAttempt(attemptAt(time.Hour, faceid.ResultFailed))
	l.AppendAttempt(attemptAt(2*time.Hour, faceid.ResultSuccess))

	assert.Equal(t, 2, l.SuccessesSince(base))
	assert.Equal(t, 3, l.SuccessesSince(base.Add(-48*time.Hour)))
}

func TestPersistAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attempts.journal")

	jnl, err := journal.Open(path, nil)
	require.NoError(t, err)
	l, err := Open(jnl, func(string, ...interface{}) {})
	require.NoError(t, err)

	l.AppendAttempt(attemptAt(0, faceid.ResultSuccess))
	l.AppendAttempt(attemptAt(time.Minute, faceid.ResultFailed))
	l.AppendEvent(faceid.RegistrationEvent{
		Timestamp:  base,
		TemplateID: "tpl-1",
		Contact:    "ada@example.com",
	})
	l.Close() // drains the queue
	require.NoError(t, jnl.Close())

	jnl, err = journal.Open(path, nil)
	require.NoError(t, err)
	defer jnl.Close()
	reopened, err := Open(jnl, func(string, ...interface{}) {})
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 2, reopened.TotalAttempts())
	got := reopened.Attempts(Query{Result: faceid.ResultSuccess})
	require.Len(t, got, 1)
	require.NotNil(t, got[0].MatchedTemplateID)
	assert.Equal(t, "tpl-1", *got[0].MatchedTemplateID)
}

func TestAppendNeverFailsCaller(t *testing.T) {
	// A log with a closed journal file still accepts appends; the failure
	// goes to the operational log only.
	path := filepath.Join(t.TempDir(), "attempts.journal")
	jnl, err := journal.Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, jnl.Close())

	var warned bool
	l, err := Open(jnl, func(format string, args ...interface{}) {
		warned = true
		_ = fmt.Sprintf(format, args...)
	})
	require.NoError(t, err)

	l.AppendAttempt(attemptAt(0, faceid.ResultFailed))
	l.Close()

	assert.Equal(t, 1, l.TotalAttempts())
	assert.True(t, warned, "persistence failure should be reported operationally")
}
