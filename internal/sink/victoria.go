package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/influxdb"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/logging"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/tsdb"
	"github.com/nerrad567/tsmigrate/internal/sensor"
)

// VictoriaWriter writes points to VictoriaMetrics as line protocol.
type VictoriaWriter struct {
	client   *tsdb.Client
	endpoint string
	log      *logging.Logger
}

// OpenVictoriaMetrics is the Factory for the victoriametrics sink.
func OpenVictoriaMetrics(ctx context.Context, cfg config.SinkConfig, log *logging.Logger) (Writer, error) {
	client, err := tsdb.Connect(ctx, cfg.VictoriaMetrics)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Endpoint(), classifyTSDB(err))
	}

	w := &VictoriaWriter{
		client:   client,
		endpoint: cfg.Endpoint(),
		log:      log,
	}

	client.SetOnError(func(err error) {
		err = classifyTSDB(err)
		w.log.Debug("victoriametrics flush failed", "class", ClassOf(err), "error", err)
	})

	log.Info("sink connected", "kind", config.SinkVictoriaMetrics, "endpoint", w.endpoint)
	return w, nil
}

// Name returns the sink kind and endpoint.
func (w *VictoriaWriter) Name() string {
	return config.SinkVictoriaMetrics + "://" + w.endpoint
}

// Write queues the point; a full batch is flushed before Write returns.
func (w *VictoriaWriter) Write(ctx context.Context, rec sensor.Record, tags sensor.TagSet) error {
	p := influxdb.NewPoint(sensor.NewPoint(rec, tags))
	return classifyTSDB(w.client.WritePoint(ctx, p))
}

// HealthCheck calls the VictoriaMetrics /health endpoint.
func (w *VictoriaWriter) HealthCheck(ctx context.Context) error {
	return w.client.HealthCheck(ctx)
}

// Close flushes the remaining batch.
func (w *VictoriaWriter) Close() error {
	return classifyTSDB(w.client.Close())
}

// classifyTSDB attaches a class sentinel to a VictoriaMetrics client error.
// A lost batch becomes a *BatchError.
func classifyTSDB(err error) error {
	var berr *tsdb.BatchError
	if errors.As(err, &berr) {
		return &BatchError{Points: berr.Lines, Err: classTSDB(err)}
	}
	return classTSDB(err)
}

func classTSDB(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tsdb.ErrNotConnected) {
		return withClass(ErrClosed, err)
	}

	var herr *tsdb.HTTPError
	if errors.As(err, &herr) {
		return classifyStatus(herr.StatusCode, err)
	}
	if isNetError(err) {
		return withClass(ErrNetwork, err)
	}
	return err
}
