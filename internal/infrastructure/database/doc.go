// Package database provides relational source connectivity for tsmigrate.
//
// This package manages:
//   - Driver registration (TDengine REST, PostgreSQL via pgx, SQLite)
//   - A dialect table mapping config source kinds to drivers and DSN builders
//   - Connection verification and lifecycle management
//
// Security Considerations:
//   - DSNs contain credentials and are never logged; use DB.Endpoint instead
//   - SQLite sources are opened read-only
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Source)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	rows, err := db.QueryContext(ctx, "SELECT ts FROM sensors")
package database
