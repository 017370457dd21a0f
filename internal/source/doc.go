// Package source reads sensor records from relational time-series stores.
//
// A Reader is selected by configuration through a Registry keyed by the
// source kind ("taosrest", "postgres", "sqlite"). All built-in kinds share
// SQLReader, which runs one fixed query:
//
//	SELECT ts, temperature, humidity, pressure, status, location, device_id FROM sensors
//
// # Cancellation
//
// Run checks its context before every row. Cancellation is not an error:
// Run returns nil and the caller inspects the context to learn why.
//
// # NULL handling
//
// NULL numeric and string columns are read as zero values. A NULL ts fails
// the read with ErrRead, since a record without a timestamp cannot be written.
//
// # Usage
//
//	reader, err := source.DefaultRegistry().Open(ctx, cfg.Source, log)
//	if err != nil {
//	    return err // wraps source.ErrConnect
//	}
//	defer reader.Close()
//
//	err = reader.Run(ctx, func(rec sensor.Record) error {
//	    return handle(rec)
//	})
package source
