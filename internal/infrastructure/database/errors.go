package database

import "errors"

// Sentinel errors for source database operations.
var (
	// ErrUnknownDialect indicates the configured source kind has no dialect.
	ErrUnknownDialect = errors.New("database: unknown source kind")

	// ErrConnectionFailed indicates the source could not be opened or pinged.
	ErrConnectionFailed = errors.New("database: connection failed")
)
