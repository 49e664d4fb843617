package faceid

import (
	"errors"
	"fmt"
)

// Error taxonomy. Handlers classify failures with errors.Is against these
// sentinels; everything not reachable from one of them is an internal error.
var (
	// ErrValidation covers malformed input shape.
	ErrValidation = errors.New("invalid input")

	// ErrEncodingShape is returned when an encoding does not match the
	// store's fixed dimensionality.
	ErrEncodingShape = fmt.Errorf("%w: encoding length mismatch", ErrValidation)

	// ErrDuplicateContact is returned when the contact key is already
	// enrolled, regardless of template status.
	ErrDuplicateContact = errors.New("contact already enrolled")

	// ErrNotFound is returned for operations on an unknown template id.
	ErrNotFound = errors.New("template not found")

	// ErrFeatureExtraction is returned when the recognizer cannot produce
	// an encoding from the submitted image.
	ErrFeatureExtraction = errors.New("feature extraction failed")

	// ErrOracleUnavailable is returned when every comparison in a scan
	// failed and no decision could be made.
	ErrOracleUnavailable = errors.New("similarity oracle unavailable")
)
