package influxdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for InfluxDB operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, influxdb.ErrNotConnected) {
//	    // Handle disconnected state
//	}
var (
	// ErrNotConnected indicates the client is not connected to InfluxDB.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrUnauthorized indicates the token was rejected during Connect.
	ErrUnauthorized = errors.New("influxdb: unauthorized")

	// ErrWriteFailed indicates a write operation failed.
	ErrWriteFailed = errors.New("influxdb: write failed")
)

// BatchError reports async points that Write accepted but that InfluxDB
// never stored. It is returned by a later Write, which still queued its own
// point, or by Close.
type BatchError struct {
	// Points is the number of points lost. Zero means the library did not
	// say which batch failed.
	Points int
	Err    error
}

func (e *BatchError) Error() string {
	if e.Points == 0 {
		return fmt.Sprintf("batch not delivered: %v", e.Err)
	}
	return fmt.Sprintf("%d points not delivered: %v", e.Points, e.Err)
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
	return &BatchError{Points: e.Points + next.Points, Err: e.Err}
}
