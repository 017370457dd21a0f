// Package influxdb provides InfluxDB v2 connectivity for tsmigrate.
//
// It wraps the official influxdb-client-go v2 library with connection
// verification, point conversion, and two write modes.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:       "http://localhost:8086",
//	    Token:     os.Getenv("TSMIGRATE_INFLUXDB_TOKEN"),
//	    Org:       "my-org",
//	    Bucket:    "my-bucket",
//	    WriteMode: config.WriteModeAsync,
//	}
//
//	client, err := influxdb.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Write(ctx, influxdb.NewPoint(point))
//
// # Write Modes
//
// async: points are buffered and sent in batches of batch_size or every
// flush_interval seconds. Write success means the point was accepted into
// the buffer. A failed batch is reported through SetOnError and returned by
// the next Write (or by Close).
//
// blocking: each Write waits for the server to acknowledge the point.
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package influxdb
