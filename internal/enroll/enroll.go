// Package enroll implements the registration workflow: extract an encoding
// from the submitted image, enroll it, and record the registration event.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/high-horse/faceid-server/internal/faceid"
)

// Extractor converts a raw image into a face encoding.
type Extractor interface {
	Extract(ctx context.Context, imageData string) ([]float64, error)
}

// Adder is the store's conditional-insert contract.
type Adder interface {
	Add(name, contact string, encoding []float64) (faceid.Template, error)
}

// Recorder accepts the registration event; it must not fail the caller.
type Recorder interface {
	AppendEvent(faceid.RegistrationEvent)
}

// Workflow wires the enrollment steps together.
type Workflow struct {
	extractor Extractor
	store     Adder
	audit     Recorder
	clock     clockwork.Clock
	logf      func(format string, args ...interface{})
}

// New builds a workflow. clock and logf may be nil.
func New(extractor Extractor, store Adder, audit Recorder, clock clockwork.Clock, logf func(string, ...interface{})) *Workflow {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Workflow{extractor: extractor, store: store, audit: audit, clock: clock, logf: logf}
}

// Register enrolls a new identity. Extraction failure leaves the store
// untouched; a duplicate contact propagates unchanged. The event write is
// best-effort and never rolls back the created template.
func (w *Workflow) Register(ctx context.Context, name, contact, imageData, origin string) (faceid.Template, error) {
	if strings.TrimSpace(name) == "" {
		return faceid.Template{}, fmt.Errorf("%w: name is required", faceid.ErrValidation)
	}
	if strings.TrimSpace(contact) == "" {
		return faceid.Template{}, fmt.Errorf("%w: contact is required", faceid.ErrValidation)
	}
	if imageData == "" {
		return faceid.Template{}, fmt.Errorf("%w: image is required", faceid.ErrValidation)
	}

	encoding, err := w.extractor.Extract(ctx, imageData)
	if err != nil {
		if errors.Is(err, faceid.ErrFeatureExtraction) {
			return faceid.Template{}, err
		}
		return faceid.Template{}, fmt.Errorf("%w: %v", faceid.ErrFeatureExtraction, err)
	}

	t, err := w.store.Add(name, contact, encoding)
	if err != nil {
		return faceid.Template{}, err
	}

	w.audit.AppendEvent(faceid.RegistrationEvent{
		Timestamp:     w.clock.Now().UTC(),
		TemplateID:    t.ID,
		Contact:       t.Contact,
		RequestOrigin: origin,
	})
	return t, nil
}
