package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/high-horse/faceid-server/internal/faceid"
)

// Client talks to the external face recognition service over HTTP. It serves
// both boundary roles: feature extraction and remote similarity scoring.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a client for the recognizer at endpoint, e.g.
// "http://localhost:5000". timeout bounds each request.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	ImageData string `json:"imageData"`
	ImageType string `json:"imageType"`
}

type extractResponse struct {
	Success       bool      `json:"success"`
	FaceEncoding  []float64 `json:"faceEncoding"`
	FacesDetected int       `json:"facesDetected"`
	Error         string    `json:"error"`
}

// Extract asks the recognizer for the face encoding of a base64 image
// (data-URL prefix allowed). Any recognizer-reported failure, including
// no-face, multiple-faces and low-quality, maps to faceid.ErrFeatureExtraction.
func (c *Client) Extract(ctx context.Context, imageData string) ([]float64, error) {
	var resp extractResponse
	if err := c.post(ctx, "/extract-features", extractRequest{ImageData: imageData, ImageType: "base64"}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || len(resp.FaceEncoding) == 0 {
		return nil, fmt.Errorf("%w: %s", faceid.ErrFeatureExtraction, orMsg(resp.Error, "no encoding returned"))
	}
	return resp.FaceEncoding, nil
}

type compareRequest struct {
	EncodingA []float64 `json:"encodingA"`
	EncodingB []float64 `json:"encodingB"`
}

type compareResponse struct {
	Success    bool    `json:"success"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

// Score asks the recognizer to compare two encodings. Satisfies the same
// contract as CosineOracle.
func (c *Client) Score(ctx context.Context, a, b []float64) (float64, error) {
	var resp compareResponse
	if err := c.post(ctx, "/compare-faces", compareRequest{EncodingA: a, EncodingB: b}, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("recognize: compare failed: %s", orMsg(resp.Error, "unknown error"))
	}
	return clamp(resp.Confidence, 0, 1), nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("recognize: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("recognize: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recognize: %s: %w", path, err)
	}
	defer res.Body.Close()

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("recognize: decode %s response: %w", path, err)
	}
	return nil
}

func orMsg(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
