package source

import "errors"

// Sentinel errors for source operations.
var (
	// ErrConnect indicates the source endpoint was unreachable or refused the credentials.
	ErrConnect = errors.New("source: connect failed")

	// ErrRead indicates the query or row iteration failed for a reason other than cancellation.
	ErrRead = errors.New("source: read failed")

	// ErrUnknownKind indicates no factory is registered for the configured kind.
	ErrUnknownKind = errors.New("source: unknown kind")
)
