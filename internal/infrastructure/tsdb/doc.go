// Package tsdb provides VictoriaMetrics connectivity for tsmigrate.
//
// It writes InfluxDB line protocol to the VictoriaMetrics /write endpoint
// over plain HTTP. Points are encoded with the influxdb-client-go encoder.
//
// # Usage
//
//	cfg := config.TSDBConfig{
//	    URL:           "http://localhost:8428",
//	    BatchSize:     1000,
//	    FlushInterval: 1,
//	}
//
//	client, err := tsdb.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.WritePoint(ctx, influxdb.NewPoint(point))
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// Writes are batched internally and flushed on size threshold or timer.
//
// # Error Handling
//
// A flush triggered by a full batch returns its error from WritePoint.
// A timer flush error is reported via SetOnError and returned by the next
// WritePoint call. Non-2xx responses carry an *HTTPError in the chain.
package tsdb
