package sink

import (
	"context"
	"errors"
	"fmt"

	ihttp "github.com/influxdata/influxdb-client-go/v2/api/http"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/influxdb"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/logging"
	"github.com/nerrad567/tsmigrate/internal/sensor"
)

// InfluxWriter writes points to InfluxDB v2.
type InfluxWriter struct {
	client   *influxdb.Client
	endpoint string
	log      *logging.Logger
}

// OpenInfluxDB is the Factory for the influxdb sink.
func OpenInfluxDB(ctx context.Context, cfg config.SinkConfig, log *logging.Logger) (Writer, error) {
	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Endpoint(), classifyInflux(err))
	}

	w := &InfluxWriter{
		client:   client,
		endpoint: cfg.Endpoint(),
		log:      log,
	}

	client.SetOnError(func(err error) {
		err = classifyInflux(err)
		w.log.Debug("influxdb batch write failed", "class", ClassOf(err), "error", err)
	})

	log.Info("sink connected",
		"kind", config.SinkInfluxDB,
		"endpoint", w.endpoint,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
		"write_mode", cfg.InfluxDB.WriteMode,
	)
	return w, nil
}

// Name returns the sink kind and endpoint.
func (w *InfluxWriter) Name() string {
	return config.SinkInfluxDB + "://" + w.endpoint
}

// Write converts the record to an InfluxDB point and submits it.
func (w *InfluxWriter) Write(ctx context.Context, rec sensor.Record, tags sensor.TagSet) error {
	p := influxdb.NewPoint(sensor.NewPoint(rec, tags))
	return classifyInflux(w.client.Write(ctx, p))
}

// HealthCheck pings the InfluxDB server.
func (w *InfluxWriter) HealthCheck(ctx context.Context) error {
	return w.client.HealthCheck(ctx)
}

// Close flushes the batch buffer and closes the client.
func (w *InfluxWriter) Close() error {
	return classifyInflux(w.client.Close())
}

// classifyInflux attaches a class sentinel to an InfluxDB client error.
// A lost async batch becomes a *BatchError.
func classifyInflux(err error) error {
	var berr *influxdb.BatchError
	if errors.As(err, &berr) {
		return &BatchError{Points: berr.Points, Err: classInflux(err)}
	}
	return classInflux(err)
}

func classInflux(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, influxdb.ErrNotConnected) {
		return withClass(ErrClosed, err)
	}
	if errors.Is(err, influxdb.ErrUnauthorized) {
		return withClass(ErrAuth, err)
	}

	var herr *ihttp.Error
	if errors.As(err, &herr) {
		return classifyStatus(herr.StatusCode, err)
	}
	if isNetError(err) {
		return withClass(ErrNetwork, err)
	}
	return err
}
