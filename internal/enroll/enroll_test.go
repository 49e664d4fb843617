package enroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/high-horse/faceid-server/internal/faceid"
)

type fakeExtractor struct {
	encoding []float64
	err      error
	calls    int
}

func (f *fakeExtractor) Extract(context.Context, string) ([]float64, error) {
	f.calls++
	return f.encoding, f.err
}

type fakeStore struct {
	added []faceid.Template
	err   error
}

func (f *fakeStore) Add(name, contact string, encoding []float64) (faceid.Template, error) {
	if f.err != nil {
		return faceid.Template{}, f.err
	}
	t := faceid.Template{
		ID:       "tpl-1",
		Name:     name,
		Contact:  contact,
		Encoding: encoding,
		Status:   faceid.StatusActive,
	}
	f.added = append(f.added, t)
	return t, nil
}

type fakeRecorder struct {
	events []faceid.RegistrationEvent
}

func (f *fakeRecorder) AppendEvent(e faceid.RegistrationEvent) {
	f.events = append(f.events, e)
}

func newWorkflow(extractor *fakeExtractor, store *fakeStore, rec *fakeRecorder) *Workflow {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))
	return New(extractor, store, rec, clock, func(string, ...interface{}) {})
}

func TestRegister(t *testing.T) {
	extractor := &fakeExtractor{encoding: []float64{1, 2, 3}}
	store := &fakeStore{}
	rec := &fakeRecorder{}
	w := newWorkflow(extractor, store, rec)

	tpl, err := w.Register(context.Background(), "Ada", "ada@example.com", "data:image/png;base64,xxxx", "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", tpl.ID)

	require.Len(t, store.added, 1)
	require.Len(t, rec.events, 1)
	assert.Equal(t, "tpl-1", rec.events[0].TemplateID)
	assert.Equal(t, "ada@example.com", rec.events[0].Contact)
	assert.Equal(t, "10.0.0.7", rec.events[0].RequestOrigin)
}

func TestRegisterValidatesInput(t *testing.T) {
	extractor := &fakeExtractor{encoding: []float64{1}}
	store := &fakeStore{}
	rec := &fakeRecorder{}
	w := newWorkflow(extractor, store, rec)

	cases := []struct {
		name, contact, image string
	}{
		{"", "ada@example.com", "img"},
		{"Ada", "", "img"},
		{"Ada", "ada@example.com", ""},
	}
	for _, tc := range cases {
		_, err := w.Register(context.Background(), tc.name, tc.contact, tc.image, "")
		assert.ErrorIs(t, err, faceid.ErrValidation)
	}
	assert.Zero(t, extractor.calls)
	assert.Empty(t, store.added)
	assert.Empty(t, rec.events)
}

func TestRegisterExtractionFailure(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("no face detected")}
	store := &fakeStore{}
	rec := &fakeRecorder{}
	w := newWorkflow(extractor, store, rec)

	_, err := w.Register(context.Background(), "Ada", "ada@example.com", "img", "")
	assert.ErrorIs(t, err, faceid.ErrFeatureExtraction)
	assert.Empty(t, store.added, "no store mutation on extraction failure")
	assert.Empty(t, rec.events)
}

func TestRegisterPropagatesDuplicateContact(t *testing.T) {
	extractor := &fakeExtractor{encoding: []float64{1, 2, 3}}
	store := &fakeStore{err: faceid.ErrDuplicateContact}
	rec := &fakeRecorder{}
	w := newWorkflow(extractor, store, rec)

	_, err := w.Register(context.Background(), "Ada", "ada@example.com", "img", "")
	assert.ErrorIs(t, err, faceid.ErrDuplicateContact)
	assert.Empty(t, rec.events, "no registration event for a rejected enrollment")
}
