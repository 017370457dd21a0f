package tsdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for time-series database operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, tsdb.ErrNotConnected) {
//	    // Handle disconnected state
//	}
var (
	// ErrNotConnected indicates the client is not connected to the TSDB.
	ErrNotConnected = errors.New("tsdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("tsdb: connection failed")

	// ErrWriteFailed indicates a write operation failed.
	ErrWriteFailed = errors.New("tsdb: write failed")
)

// HTTPError is a non-success response from VictoriaMetrics.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// BatchError reports lines that WritePoint accepted but that never reached
// VictoriaMetrics. The point passed to the WritePoint call that returns it
// was still queued.
type BatchError struct {
	// Lines is the number of lines lost.
	Lines int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d lines not delivered: %v", e.Lines, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// merge folds next into e. The first cause is kept.
func (e *BatchError) merge(next *BatchError) *BatchError {
	if e == nil {
		return next
	}
	if next == nil {
		return e
	}
	return &BatchError{Lines: e.Lines + next.Lines, Err: e.Err}
}
