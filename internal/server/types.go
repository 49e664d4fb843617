package server

import "time"

type RegisterRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Image   string `json:"image"`
}

type RegisterResponse struct {
	TemplateID string    `json:"template_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type IdentifyRequest struct {
	Image string `json:"image"`
	// Encoding lets callers that already hold a feature vector skip
	// extraction, e.g. batch tooling.
	Encoding []float64 `json:"encoding,omitempty"`
}

type IdentifyResponse struct {
	Matched    bool    `json:"matched"`
	TemplateID string  `json:"template_id,omitempty"`
	Confidence float64 `json:"confidence"`
	Elapsed    string  `json:"elapsed"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
