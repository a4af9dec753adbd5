package domain

import "errors"

// Domain errors.
var (
	// ErrInvalidReference is returned when a page URL does not name a
	// single video resource (@handle/video/id).
	ErrInvalidReference = errors.New("invalid video reference")

	// ErrExtractionTimeout is returned when the rendered page never
	// produced the expected video element within the configured bound.
	ErrExtractionTimeout = errors.New("timed out waiting for video element")

	// ErrNoMediaFound is returned when the video element rendered but
	// exposes no source URL.
	ErrNoMediaFound = errors.New("no media source found on page")

	// ErrTransferFailed is returned when the read side of a streaming
	// transfer errors (network interruption, non-2xx response).
	ErrTransferFailed = errors.New("media transfer failed")

	// ErrWriteFailed is returned when the local write side of a
	// streaming transfer errors.
	ErrWriteFailed = errors.New("writing media to disk failed")
)

// GrabError wraps an error with the pipeline operation that produced it.
type GrabError struct {
	Op  string
	Err error
}

func (e *GrabError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *GrabError) Unwrap() error {
	return e.Err
}

// NewGrabError creates a new GrabError.
func NewGrabError(op string, err error) *GrabError {
	return &GrabError{Op: op, Err: err}
}
