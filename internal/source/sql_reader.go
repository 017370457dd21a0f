package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/database"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/logging"
	"github.com/nerrad567/tsmigrate/internal/sensor"
)

// Query is the fixed statement every SQL source is read with. The column
// order is the contract scanRecord depends on.
const Query = "SELECT ts, temperature, humidity, pressure, status, location, device_id FROM sensors"

// SQLReader reads records from any database/sql source.
type SQLReader struct {
	db  *database.DB
	log *logging.Logger

	closeOnce sync.Once
	closeErr  error
}

// OpenSQL is the Factory for relational sources. It opens and pings the
// database described by cfg.
func OpenSQL(ctx context.Context, cfg config.SourceConfig, log *logging.Logger) (Reader, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Endpoint(), err)
	}

	log.Info("source connected", "kind", cfg.Kind, "endpoint", db.Endpoint())
	return NewSQLReader(db, log), nil
}

// NewSQLReader wraps an open database. The reader takes ownership of db.
func NewSQLReader(db *database.DB, log *logging.Logger) *SQLReader {
	return &SQLReader{db: db, log: log}
}

// Name returns the source kind and endpoint.
func (r *SQLReader) Name() string {
	return r.db.Kind() + "://" + r.db.Endpoint()
}

// Run executes Query and emits one record per row.
//
// A cancelled ctx, either before the next row or while the driver is
// blocked fetching it, ends the iteration with nil.
func (r *SQLReader) Run(ctx context.Context, emit func(sensor.Record) error) error {
	if ctx.Err() != nil {
		return nil
	}

	rows, err := r.db.QueryContext(ctx, Query)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: query: %w", ErrRead, err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			r.log.Warn("closing result set", "error", cerr)
		}
	}()

	var n int
	for rows.Next() {
		if ctx.Err() != nil {
			r.log.Debug("source cancelled", "rows", n)
			return nil
		}
		n++

		rec, err := scanRecord(rows)
		if err != nil {
			return fmt.Errorf("%w: row %d: %w", ErrRead, n, err)
		}

		if err := emit(rec); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}

	if err := rows.Err(); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("%w: after %d rows: %w", ErrRead, n, err)
	}

	r.log.Debug("source exhausted", "rows", n)
	return nil
}

// errNullTimestamp is returned for a row whose ts column is NULL.
var errNullTimestamp = errors.New("ts is null")

// scanRecord converts the current row. NULL numeric columns become zero and
// NULL strings become empty; a NULL timestamp is an error.
func scanRecord(rows *sql.Rows) (sensor.Record, error) {
	var (
		ts                 sql.NullTime
		temp, hum, press   sql.NullFloat64
		status             sql.NullInt64
		location, deviceID sql.NullString
	)

	if err := rows.Scan(&ts, &temp, &hum, &press, &status, &location, &deviceID); err != nil {
		return sensor.Record{}, fmt.Errorf("scan: %w", err)
	}
	if !ts.Valid {
		return sensor.Record{}, errNullTimestamp
	}

	return sensor.Record{
		Timestamp:   ts.Time,
		Temperature: temp.Float64,
		Humidity:    hum.Float64,
		Pressure:    press.Float64,
		Status:      status.Int64,
		Location:    location.String,
		DeviceID:    deviceID.String,
	}, nil
}

// HealthCheck pings the database.
func (r *SQLReader) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// Close releases the database handle. Subsequent calls return the first result.
func (r *SQLReader) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.db.Close()
	})
	return r.closeErr
}
