package sensor

// Enricher annotates a Record with its TagSet.
//
// Implementations must be pure: the same Record always yields the same
// output, and Enrich has no side effects and cannot fail.
type Enricher interface {
	Enrich(r Record) (Record, TagSet)
}

// TagEnricher derives the TagSet from the record's descriptive fields.
type TagEnricher struct{}

// Enrich returns r unchanged together with {location, device_id}.
func (TagEnricher) Enrich(r Record) (Record, TagSet) {
	return r, TagSet{
		Location: r.Location,
		DeviceID: r.DeviceID,
	}
}

// EnricherFunc adapts a plain function to the Enricher interface.
type EnricherFunc func(r Record) (Record, TagSet)

// Enrich calls f(r).
func (f EnricherFunc) Enrich(r Record) (Record, TagSet) {
	return f(r)
}
