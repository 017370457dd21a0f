package sensor

import (
	"fmt"
	"time"
)

// Measurement is the measurement name every Point is written under.
const Measurement = "sensors"

// Tag keys derived from a Record.
const (
	TagLocation = "location"
	TagDeviceID = "device_id"
)

// Field keys written for every Point.
const (
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
	FieldPressure    = "pressure"
	FieldStatus      = "status"
)

// Record is one sensor observation, constructed once per source row.
//
// Timestamp is always set by the reader. Numeric fields the source left NULL
// are zero.
type Record struct {
	Timestamp   time.Time
	Temperature float64
	Humidity    float64
	Pressure    float64
	Status      int64
	Location    string
	DeviceID    string
}

// String renders the record for debug logging.
func (r Record) String() string {
	return fmt.Sprintf("Record{ts=%s device_id=%q location=%q temperature=%g humidity=%g pressure=%g status=%d}",
		r.Timestamp.UTC().Format(time.RFC3339Nano), r.DeviceID, r.Location,
		r.Temperature, r.Humidity, r.Pressure, r.Status)
}

// TagSet holds the dimensional labels of a Record.
type TagSet struct {
	Location string
	DeviceID string
}

// Map returns the tags as a new map keyed by tag name.
// Callers may modify the returned map; the TagSet is unaffected.
func (t TagSet) Map() map[string]string {
	return map[string]string{
		TagLocation: t.Location,
		TagDeviceID: t.DeviceID,
	}
}

// Keys returns the tag keys in sorted order.
func (t TagSet) Keys() []string {
	return []string{TagDeviceID, TagLocation}
}

// Fields holds the numeric values of a Point.
type Fields struct {
	Temperature float64
	Humidity    float64
	Pressure    float64
	Status      int64
}

// Point is the sink-native representation of a Record.
type Point struct {
	Measurement string
	Time        time.Time
	Tags        TagSet
	Fields      Fields
}

// NewPoint builds the Point written for rec with the given tags.
func NewPoint(rec Record, tags TagSet) Point {
	return Point{
		Measurement: Measurement,
		Time:        rec.Timestamp,
		Tags:        tags,
		Fields: Fields{
			Temperature: rec.Temperature,
			Humidity:    rec.Humidity,
			Pressure:    rec.Pressure,
			Status:      rec.Status,
		},
	}
}

// FieldMap returns the fields as a new map. Floats stay float64 and status
// stays int64 so line protocol encoders emit an integer field for it.
func (p Point) FieldMap() map[string]interface{} {
	return map[string]interface{}{
		FieldTemperature: p.Fields.Temperature,
		FieldHumidity:    p.Fields.Humidity,
		FieldPressure:    p.Fields.Pressure,
		FieldStatus:      p.Fields.Status,
	}
}
