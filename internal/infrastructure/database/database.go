package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"               // PostgreSQL / TimescaleDB driver ("pgx")
	_ "github.com/mattn/go-sqlite3"                  // SQLite driver ("sqlite3")
	_ "github.com/taosdata/driver-go/v3/taosRestful" // TDengine REST driver ("taosRestful")

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
)

// Database configuration constants.
const (
	// connectionTimeout bounds the ping performed by Open.
	connectionTimeout = 10 * time.Second

	// connMaxIdleTime is how long idle connections are kept open.
	connMaxIdleTime = 30 * time.Minute

	// sqliteBusyTimeoutMS is the lock wait applied to sqlite sources.
	sqliteBusyTimeoutMS = 5000
)

// Dialect describes how to reach one kind of relational source through
// database/sql: which registered driver to use and how to build its DSN.
type Dialect struct {
	// Kind is the config.SourceConfig.Kind this dialect serves.
	Kind string

	// DriverName is the name the driver registered with database/sql.
	DriverName string

	// BuildDSN turns the connection descriptor into a driver DSN.
	BuildDSN func(cfg config.SourceConfig) string
}

// dialects maps source kinds to their dialect. The drivers themselves are
// registered by the blank imports above.
var dialects = map[string]Dialect{
	config.SourceTAOSRest: {
		Kind:       config.SourceTAOSRest,
		DriverName: "taosRestful",
		BuildDSN:   taosRestDSN,
	},
	config.SourcePostgres: {
		Kind:       config.SourcePostgres,
		DriverName: "pgx",
		BuildDSN:   postgresDSN,
	},
	config.SourceSQLite: {
		Kind:       config.SourceSQLite,
		DriverName: "sqlite3",
		BuildDSN:   sqliteDSN,
	},
}

// LookupDialect returns the dialect registered for kind.
func LookupDialect(kind string) (Dialect, bool) {
	d, ok := dialects[kind]
	return d, ok
}

// Kinds returns the supported source kinds in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(dialects))
	for k := range dialects {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// DSN returns the driver DSN for cfg. An explicit cfg.DSN wins.
func DSN(cfg config.SourceConfig) (string, error) {
	d, ok := LookupDialect(cfg.Kind)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, cfg.Kind)
	}
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	return d.BuildDSN(cfg), nil
}

// taosRestDSN builds a TDengine REST DSN:
// user:password@http(host:port)/database
func taosRestDSN(cfg config.SourceConfig) string {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	auth := ""
	if cfg.Username != "" {
		auth = cfg.Username
		if cfg.Password != "" {
			auth += ":" + cfg.Password
		}
		auth += "@"
	}
	return fmt.Sprintf("%shttp(%s)/%s", auth, addr, cfg.Database)
}

// postgresDSN builds a postgres:// URL with escaped credentials.
func postgresDSN(cfg config.SourceConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}
	return u.String()
}

// sqliteDSN opens the file read-only; a migration never writes to its source.
// See: https://github.com/mattn/go-sqlite3#connection-string
func sqliteDSN(cfg config.SourceConfig) string {
	return fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d", cfg.Database, sqliteBusyTimeoutMS)
}

// DB wraps a sql.DB connection to a migration source.
// It provides health checks and proper lifecycle management.
type DB struct {
	*sql.DB
	kind     string
	endpoint string
}

// Open connects to the source described by cfg.
//
// It performs the following setup:
//  1. Resolves the dialect for cfg.Kind
//  2. Builds the DSN (or uses cfg.DSN verbatim)
//  3. Opens the database handle
//  4. Verifies the connection with a ping
//
// Parameters:
//   - ctx: Context for cancellation of the ping
//   - cfg: Source connection descriptor
//
// Returns:
//   - *DB: Connected database wrapper
//   - error: wrapping ErrUnknownDialect or ErrConnectionFailed
func Open(ctx context.Context, cfg config.SourceConfig) (*DB, error) {
	d, ok := LookupDialect(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, cfg.Kind)
	}

	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrConnectionFailed, cfg.Endpoint(), err)
	}

	// A migration run reads one result set; a single connection is enough
	// and keeps the source's connection budget predictable.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	db := &DB{
		DB:       sqlDB,
		kind:     cfg.Kind,
		endpoint: cfg.Endpoint(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnectionFailed, db.endpoint, err)
	}

	return db, nil
}

// Wrap adopts an already-open *sql.DB. Tests use it with sqlmock.
func Wrap(sqlDB *sql.DB, kind, endpoint string) *DB {
	return &DB{DB: sqlDB, kind: kind, endpoint: endpoint}
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Kind returns the source kind this handle was opened for.
func (db *DB) Kind() string {
	return db.kind
}

// Endpoint returns the credential-free address of the source.
func (db *DB) Endpoint() string {
	return db.endpoint
}

// HealthCheck verifies the database is accessible and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
