package pipeline

import (
	"errors"
	"fmt"

	"github.com/nerrad567/tsmigrate/internal/sink"
)

// Sentinel errors for pipeline lifecycle.
var (
	// ErrAlreadyStarted is returned by Run on a pipeline that has run before.
	ErrAlreadyStarted = errors.New("pipeline: already started")

	// ErrStopped is the cancellation cause recorded by Stop.
	ErrStopped = errors.New("pipeline: stop requested")
)

// Side identifies which end of the pipeline an error came from.
type Side string

const (
	SideSource Side = "source"
	SideSink   Side = "sink"
)

// ConnectError is a failure to open the source or the sink. It aborts the
// run before any data moves.
type ConnectError struct {
	Side     Side
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s connect %s: %v", e.Side, e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ReadError is a source failure other than cancellation. It ends the run.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read: %v", e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError is a classified sink failure for one point or, when Err is a
// *sink.BatchError, for an earlier batch.
type WriteError struct {
	Class    sink.Class
	Severity sink.Severity
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write (%s, %s): %v", e.Class, e.Severity, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// CloseError is a failure releasing a resource. It is logged and never
// changes the outcome of a run.
type CloseError struct {
	Side Side
	Err  error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("%s close: %v", e.Side, e.Err)
}

func (e *CloseError) Unwrap() error { return e.Err }
