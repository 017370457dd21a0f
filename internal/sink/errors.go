package sink

import "errors"

// Sentinel errors for sink operations.
//
// Write errors carry exactly one class sentinel (ErrAuth, ErrClosed,
// ErrNetwork or ErrRejected) when the writer recognised the failure. An
// error without one is classified as ClassUnknown.
var (
	// ErrConnect indicates the sink could not be reached or refused the credentials.
	ErrConnect = errors.New("sink: connect failed")

	// ErrUnknownKind indicates no factory is registered for the configured kind.
	ErrUnknownKind = errors.New("sink: unknown kind")

	// ErrAuth indicates the store rejected the credentials (token revoked, ACL denied).
	ErrAuth = errors.New("sink: unauthorized")

	// ErrClosed indicates the write handle is no longer usable.
	ErrClosed = errors.New("sink: handle closed")

	// ErrNetwork indicates a transport failure or a server-side (5xx, 429) error.
	ErrNetwork = errors.New("sink: network error")

	// ErrRejected indicates the store refused this particular point (4xx).
	ErrRejected = errors.New("sink: point rejected")
)

// BatchError reports points accepted by earlier calls that the store never
// stored. The Write that returns it still accepted its own point. Err carries
// the class sentinel of the batch failure.
type BatchError struct {
	// Points is the number of points lost, or zero when the store did not
	// say which batch failed.
	Points int
	Err    error
}

func (e *BatchError) Error() string {
	return e.Err.Error()
}

func (e *BatchError) Unwrap() error { return e.Err }
