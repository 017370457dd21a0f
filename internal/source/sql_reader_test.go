package source

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/database"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/logging"
	"github.com/nerrad567/tsmigrate/internal/sensor"
)

var columns = []string{"ts", "temperature", "humidity", "pressure", "status", "location", "device_id"}

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// newMockReader returns a reader over sqlmock with exact query matching.
func newMockReader(t *testing.T) (*SQLReader, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewSQLReader(database.Wrap(db, "mock", "sqlmock"), logging.Discard()), mock
}

// sensorRows builds n rows one second apart.
func sensorRows(n int) *sqlmock.Rows {
	rows := sqlmock.NewRows(columns)
	for i := 0; i < n; i++ {
		rows.AddRow(baseTime.Add(time.Duration(i)*time.Second), 20.0+float64(i), 40.0, 1013.0, int64(i), "room-1", "dev-42")
	}
	return rows
}

// collect runs r and returns every emitted record.
func collect(ctx context.Context, t *testing.T, r Reader) ([]sensor.Record, error) {
	t.Helper()

	var got []sensor.Record
	err := r.Run(ctx, func(rec sensor.Record) error {
		got = append(got, rec)
		return nil
	})
	return got, err
}

func TestSQLReader_EmitsAllRowsInOrder(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery(Query).WillReturnRows(sensorRows(5))
	mock.ExpectClose()

	got, err := collect(context.Background(), t, r)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("emitted %d records, want 5", len(got))
	}
	for i, rec := range got {
		if rec.Status != int64(i) {
			t.Errorf("record %d status = %d, want %d (order not preserved)", i, rec.Status, i)
		}
		if !rec.Timestamp.Equal(baseTime.Add(time.Duration(i) * time.Second)) {
			t.Errorf("record %d timestamp = %v", i, rec.Timestamp)
		}
	}

	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLReader_ScansScenarioRow(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery(Query).WillReturnRows(
		sqlmock.NewRows(columns).AddRow(baseTime, 21.5, 40.0, 1013.0, int64(0), "room-1", "dev-42"),
	)

	got, err := collect(context.Background(), t, r)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := sensor.Record{
		Timestamp:   baseTime,
		Temperature: 21.5,
		Humidity:    40.0,
		Pressure:    1013.0,
		Status:      0,
		Location:    "room-1",
		DeviceID:    "dev-42",
	}
	if len(got) != 1 || got[0] != want {
		t.Errorf("Run() emitted %v, want [%v]", got, want)
	}
}

func TestSQLReader_NullColumnsDefaultToZero(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery(Query).WillReturnRows(
		sqlmock.NewRows(columns).AddRow(baseTime, nil, nil, nil, nil, nil, nil),
	)

	got, err := collect(context.Background(), t, r)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := sensor.Record{Timestamp: baseTime}
	if len(got) != 1 || got[0] != want {
		t.Errorf("Run() emitted %v, want [%v]", got, want)
	}
}

func TestSQLReader_NullTimestampIsReadError(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery(Query).WillReturnRows(
		sqlmock.NewRows(columns).
			AddRow(baseTime, 1.0, 1.0, 1.0, int64(0), "a", "b").
			AddRow(nil, 1.0, 1.0, 1.0, int64(0), "a", "b"),
	)

	got, err := collect(context.Background(), t, r)
	if !errors.Is(err, ErrRead) {
		t.Fatalf("Run() error = %v, want ErrRead", err)
	}
	if len(got) != 1 {
		t.Errorf("emitted %d records before the bad row, want 1", len(got))
	}
}

func TestSQLReader_QueryFailure(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery(Query).WillReturnError(errors.New("table does not exist"))

	_, err := collect(context.Background(), t, r)
	if !errors.Is(err, ErrRead) {
		t.Errorf("Run() error = %v, want ErrRead", err)
	}
}

func TestSQLReader_RowErrorMidIteration(t *testing.T) {
	r, mock := newMockReader(t)
	dropped := errors.New("connection reset by peer")
	mock.ExpectQuery(Query).WillReturnRows(sensorRows(3).RowError(1, dropped))

	got, err := collect(context.Background(), t, r)
	if !errors.Is(err, ErrRead) {
		t.Fatalf("Run() error = %v, want ErrRead", err)
	}
	if !errors.Is(err, dropped) {
		t.Errorf("Run() error = %v, want cause %v", err, dropped)
	}
	if len(got) != 1 {
		t.Errorf("emitted %d records, want 1", len(got))
	}
}

func TestSQLReader_CancelBeforeRowK(t *testing.T) {
	for _, k := range []int{1, 2, 4} {
		r, mock := newMockReader(t)
		mock.ExpectQuery(Query).WillReturnRows(sensorRows(5))

		ctx, cancel := context.WithCancel(context.Background())
		var emitted int
		err := r.Run(ctx, func(sensor.Record) error {
			emitted++
			if emitted == k {
				cancel()
			}
			return nil
		})
		cancel()

		if err != nil {
			t.Errorf("k=%d: Run() error = %v, want nil on cancellation", k, err)
		}
		if emitted != k {
			t.Errorf("k=%d: emitted %d records, want %d", k, emitted, k)
		}
	}
}

func TestSQLReader_AlreadyCancelled(t *testing.T) {
	r, mock := newMockReader(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := collect(ctx, t, r)
	if err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	if len(got) != 0 {
		t.Errorf("emitted %d records, want 0", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("query ran on a cancelled context: %v", err)
	}
}

func TestSQLReader_EmitErrorStopsRun(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery(Query).WillReturnRows(sensorRows(3))

	stop := errors.New("stop")
	var emitted int
	err := r.Run(context.Background(), func(sensor.Record) error {
		emitted++
		return stop
	})

	if !errors.Is(err, stop) {
		t.Errorf("Run() error = %v, want %v", err, stop)
	}
	if emitted != 1 {
		t.Errorf("emitted %d records, want 1", emitted)
	}
}

func TestSQLReader_CloseIdempotent(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectClose()

	first := r.Close()
	second := r.Close()

	if first != nil || second != nil {
		t.Errorf("Close() = %v, %v; want nil, nil", first, second)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// createSQLiteSource writes a sensors table with two rows and returns its path.
func createSQLiteSource(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sensors.db")
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer raw.Close() //nolint:errcheck // Test cleanup

	stmts := []string{
		`CREATE TABLE sensors (
			ts TIMESTAMP NOT NULL,
			temperature REAL,
			humidity REAL,
			pressure REAL,
			status INTEGER,
			location TEXT,
			device_id TEXT
		)`,
	}
	for _, s := range stmts {
		if _, err := raw.Exec(s); err != nil {
			t.Fatalf("exec: %v", err)
		}
	}

	insert := `INSERT INTO sensors VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := raw.Exec(insert, baseTime, 21.5, 40.0, 1013.0, 0, "room-1", "dev-42"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := raw.Exec(insert, baseTime.Add(time.Minute), 22.0, nil, 1012.5, 3, nil, "dev-43"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return path
}

func TestSQLReader_SQLiteEndToEnd(t *testing.T) {
	path := createSQLiteSource(t)

	r, err := DefaultRegistry().Open(context.Background(),
		config.SourceConfig{Kind: config.SourceSQLite, Database: path}, logging.Discard())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close() //nolint:errcheck // Test cleanup

	got, err := collect(context.Background(), t, r)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("emitted %d records, want 2", len(got))
	}

	if !got[0].Timestamp.Equal(baseTime) || got[0].Temperature != 21.5 || got[0].DeviceID != "dev-42" {
		t.Errorf("first record = %v", got[0])
	}
	if got[1].Humidity != 0 || got[1].Location != "" || got[1].Status != 3 {
		t.Errorf("second record = %v, want NULLs as zero values", got[1])
	}
}

func TestSQLReader_HealthCheck(t *testing.T) {
	path := createSQLiteSource(t)

	r, err := OpenSQL(context.Background(),
		config.SourceConfig{Kind: config.SourceSQLite, Database: path}, logging.Discard())
	if err != nil {
		t.Fatalf("OpenSQL() error = %v", err)
	}
	hc, ok := r.(interface{ HealthCheck(context.Context) error })
	if !ok {
		t.Fatal("SQL reader does not expose HealthCheck")
	}
	if err := hc.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := hc.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close succeeded")
	}
}
