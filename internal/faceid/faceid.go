// Package faceid defines the records and error taxonomy shared by the
// identification core.
package faceid

import "time"

// TemplateStatus tells whether a template still participates in
// identification.
type TemplateStatus string

const (
	StatusActive  TemplateStatus = "active"
	StatusRevoked TemplateStatus = "revoked"
)

// Template is one enrolled identity: a face encoding plus display metadata.
// Everything except Status is immutable after enrollment.
type Template struct {
	ID        string         `json:"id" cbor:"id"`
	Name      string         `json:"name" cbor:"name"`
	Contact   string         `json:"contact" cbor:"contact"`
	Encoding  []float64      `json:"encoding" cbor:"encoding"`
	Status    TemplateStatus `json:"status" cbor:"status"`
	CreatedAt time.Time      `json:"createdAt" cbor:"createdAt"`
}

// Active reports whether the template participates in snapshots.
func (t Template) Active() bool { return t.Status == StatusActive }

// AttemptResult is the outcome of one identification attempt.
type AttemptResult string

const (
	ResultSuccess AttemptResult = "success"
	ResultFailed  AttemptResult = "failed"
)

// Attempt is the audit record of a single identification request. Records
// are append-only and never mutated. MatchedTemplateID is nil exactly when
// Result is ResultFailed.
type Attempt struct {
	Timestamp         time.Time     `json:"timestamp" cbor:"timestamp"`
	MatchedTemplateID *string       `json:"matchedTemplateId" cbor:"matchedTemplateId"`
	Confidence        float64       `json:"confidence" cbor:"confidence"`
	Result            AttemptResult `json:"result" cbor:"result"`
	RequestOrigin     string        `json:"requestOrigin,omitempty" cbor:"requestOrigin,omitempty"`
}

// RegistrationEvent is the audit record of one successful enrollment.
type RegistrationEvent struct {
	Timestamp     time.Time `json:"timestamp" cbor:"timestamp"`
	TemplateID    string    `json:"templateId" cbor:"templateId"`
	Contact       string    `json:"contact" cbor:"contact"`
	RequestOrigin string    `json:"requestOrigin,omitempty" cbor:"requestOrigin,omitempty"`
}
