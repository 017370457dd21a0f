package influxdb

import (
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/tsmigrate/internal/sensor"
)

// NewPoint converts a sensor point into an InfluxDB point.
//
// Fields keep their Go types: the three readings encode as floats and
// status as an integer field (status=0i in line protocol). The timestamp is
// written at nanosecond precision.
//
// Example:
//
//	p := influxdb.NewPoint(sensor.NewPoint(rec, tags))
//	err := client.Write(ctx, p)
func NewPoint(p sensor.Point) *write.Point {
	return write.NewPoint(p.Measurement, p.Tags.Map(), p.FieldMap(), p.Time)
}
