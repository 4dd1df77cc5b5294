package client

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRequest marks a relay request body that cannot be used.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrFrameParse marks a data line whose payload is not valid JSON. It is
	// only ever reported through a skipped Frame.
	ErrFrameParse = errors.New("frame parse error")
)

// UpstreamError is returned when the provider answers with a non-success
// status.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Body)
}

// StreamError is a transport failure while reading an already open stream.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
