// Package sink writes enriched sensor records to a time-series store.
//
// A Writer is selected by configuration through a Registry keyed by the sink
// kind:
//
//	influxdb         InfluxDB v2, async batches or blocking writes
//	victoriametrics  line protocol batches POSTed to /write
//	mqtt             one JSON message per point on <topic_prefix>/<device_id>
//
// # Error classes
//
// Every error a Writer returns wraps one class sentinel (ErrAuth, ErrClosed,
// ErrNetwork, ErrRejected) or none, which is ClassUnknown. ClassOf reads it
// back. Whether a class ends the run is decided by a Classifier; ClassPolicy
// makes that set configurable:
//
//	policy, err := sink.NewClassPolicy([]string{"auth", "closed"})
//	class, severity := policy.Classify(err)
package sink
