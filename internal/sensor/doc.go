// Package sensor defines the values that flow through the migration pipeline.
//
// # Key Types
//
//   - Record: one sensor observation read from the source
//   - TagSet: the descriptive fields used as dimensional labels
//   - Point: the sink-native unit of write (measurement, tags, fields, time)
//   - Enricher: pure Record -> (Record, TagSet) transformation
//
// All three value types are passed by value and never mutated after
// construction. TagSet is a struct rather than a map so its key set is fixed
// to location and device_id; Map returns a fresh copy for client libraries.
//
// # Usage
//
//	rec, tags := sensor.TagEnricher{}.Enrich(rec)
//	point := sensor.NewPoint(rec, tags)
//	writeAPI.WritePoint(write.NewPoint(point.Measurement, point.Tags.Map(), point.FieldMap(), point.Time))
package sensor
