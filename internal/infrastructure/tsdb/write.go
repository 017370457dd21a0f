package tsdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint queues one point for the next flush.
//
// The point is encoded with the InfluxDB client's line protocol encoder at
// nanosecond precision, so tags and fields are escaped and ordered the same
// way the InfluxDB sink writes them. VictoriaMetrics accepts this format on
// the /write endpoint and maps each field to a <measurement>_<field> series.
//
// Parameters:
//   - ctx: Context for a size-triggered flush
//   - p: Point to write
//
// Returns:
//   - error: ErrNotConnected after Close, a pending background flush error,
//     or the error of a flush triggered by this write
func (c *Client) WritePoint(ctx context.Context, p *write.Point) error {
	return c.addLine(ctx, write.PointToLineProtocol(p, time.Nanosecond))
}
