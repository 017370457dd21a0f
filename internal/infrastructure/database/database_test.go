package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
)

// createSQLiteFile writes a small sensors table to a temp file and returns its path.
func createSQLiteFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "source.db")
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer raw.Close() //nolint:errcheck // Test cleanup

	if _, err := raw.Exec(`CREATE TABLE sensors (ts TIMESTAMP, temperature REAL)`); err != nil {
		t.Fatalf("creating table: %v", err)
	}
	if _, err := raw.Exec(`INSERT INTO sensors VALUES ('2024-01-01 00:00:00', 21.5)`); err != nil {
		t.Fatalf("inserting row: %v", err)
	}
	return path
}

// TestDSN verifies DSN construction for each dialect.
func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SourceConfig
		want string
	}{
		{
			name: "taosrest with credentials",
			cfg: config.SourceConfig{
				Kind: config.SourceTAOSRest, Host: "localhost", Port: 6041,
				Database: "test_db", Username: "root", Password: "taosdata",
			},
			want: "root:taosdata@http(localhost:6041)/test_db",
		},
		{
			name: "taosrest without credentials",
			cfg: config.SourceConfig{
				Kind: config.SourceTAOSRest, Host: "tdengine", Port: 6041, Database: "db",
			},
			want: "http(tdengine:6041)/db",
		},
		{
			name: "postgres escapes password",
			cfg: config.SourceConfig{
				Kind: config.SourcePostgres, Host: "pg", Port: 5432,
				Database: "metrics", Username: "reader", Password: "p@ss/word",
			},
			want: "postgres://reader:p%40ss%2Fword@pg:5432/metrics",
		},
		{
			name: "postgres user only",
			cfg: config.SourceConfig{
				Kind: config.SourcePostgres, Host: "pg", Port: 5432, Database: "metrics", Username: "reader",
			},
			want: "postgres://reader@pg:5432/metrics",
		},
		{
			name: "sqlite read only",
			cfg:  config.SourceConfig{Kind: config.SourceSQLite, Database: "/data/sensors.db"},
			want: "file:/data/sensors.db?mode=ro&_busy_timeout=5000",
		},
		{
			name: "explicit dsn wins",
			cfg:  config.SourceConfig{Kind: config.SourcePostgres, Host: "ignored", DSN: "postgres://x@y/z"},
			want: "postgres://x@y/z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DSN(tt.cfg)
			if err != nil {
				t.Fatalf("DSN() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestDSN_UnknownKind verifies unknown kinds are rejected.
func TestDSN_UnknownKind(t *testing.T) {
	_, err := DSN(config.SourceConfig{Kind: "oracle"})
	if !errors.Is(err, ErrUnknownDialect) {
		t.Errorf("DSN() error = %v, want ErrUnknownDialect", err)
	}
}

// TestLookupDialect verifies driver names for every kind.
func TestLookupDialect(t *testing.T) {
	want := map[string]string{
		config.SourceTAOSRest: "taosRestful",
		config.SourcePostgres: "pgx",
		config.SourceSQLite:   "sqlite3",
	}
	for kind, driver := range want {
		d, ok := LookupDialect(kind)
		if !ok {
			t.Errorf("LookupDialect(%q) not found", kind)
			continue
		}
		if d.DriverName != driver {
			t.Errorf("LookupDialect(%q).DriverName = %q, want %q", kind, d.DriverName, driver)
		}
	}

	kinds := Kinds()
	if strings.Join(kinds, ",") != "postgres,sqlite,taosrest" {
		t.Errorf("Kinds() = %v", kinds)
	}
}

// TestOpen verifies database connection establishment.
func TestOpen(t *testing.T) {
	t.Run("opens existing sqlite file", func(t *testing.T) {
		path := createSQLiteFile(t)

		db, err := Open(context.Background(), config.SourceConfig{Kind: config.SourceSQLite, Database: path})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if db.Kind() != config.SourceSQLite {
			t.Errorf("Kind() = %q, want %q", db.Kind(), config.SourceSQLite)
		}
		if db.Endpoint() != path {
			t.Errorf("Endpoint() = %q, want %q", db.Endpoint(), path)
		}

		var n int
		if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM sensors").Scan(&n); err != nil {
			t.Fatalf("query error = %v", err)
		}
		if n != 1 {
			t.Errorf("row count = %d, want 1", n)
		}
	})

	t.Run("source is read only", func(t *testing.T) {
		path := createSQLiteFile(t)

		db, err := Open(context.Background(), config.SourceConfig{Kind: config.SourceSQLite, Database: path})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := db.ExecContext(context.Background(), "DELETE FROM sensors"); err == nil {
			t.Error("DELETE on read-only source succeeded")
		}
	})

	t.Run("missing file fails ping", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.db")

		_, err := Open(context.Background(), config.SourceConfig{Kind: config.SourceSQLite, Database: path})
		if !errors.Is(err, ErrConnectionFailed) {
			t.Fatalf("Open() error = %v, want ErrConnectionFailed", err)
		}
		if !strings.Contains(err.Error(), path) {
			t.Errorf("error %q does not name the endpoint", err)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Open(context.Background(), config.SourceConfig{Kind: "oracle"})
		if !errors.Is(err, ErrUnknownDialect) {
			t.Errorf("Open() error = %v, want ErrUnknownDialect", err)
		}
	})
}

// TestHealthCheck verifies the health check functionality.
func TestHealthCheck(t *testing.T) {
	path := createSQLiteFile(t)
	db, err := Open(context.Background(), config.SourceConfig{Kind: config.SourceSQLite, Database: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

// TestClose verifies Close on a closed handle is harmless for the nil case.
func TestClose(t *testing.T) {
	var db DB
	if err := db.Close(); err != nil {
		t.Errorf("Close() on zero DB error = %v", err)
	}
}
