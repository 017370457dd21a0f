package mqtt

import "strings"

// Topics builds the topics points are published under.
//
//	topics := mqtt.Topics{Prefix: "tsmigrate/sensors"}
//	topics.Device("dev-42") // "tsmigrate/sensors/dev-42"
//	topics.Status()         // "tsmigrate/sensors/_status"
type Topics struct {
	Prefix string
}

// statusLevel is the topic level reserved for the retained client status.
const statusLevel = "_status"

// Device returns the topic for one device's points.
//
// MQTT wildcard and separator characters in deviceID are replaced with "_"
// so every device maps to exactly one topic level. An empty id maps to "_".
func (t Topics) Device(deviceID string) string {
	return t.prefix() + "/" + sanitiseLevel(deviceID)
}

// Status returns the retained online/offline status topic.
func (t Topics) Status() string {
	return t.prefix() + "/" + statusLevel
}

func (t Topics) prefix() string {
	return strings.TrimRight(t.Prefix, "/")
}

// sanitiseLevel makes s safe to use as a single topic level.
func sanitiseLevel(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', 0:
			return '_'
		}
		return r
	}, s)
}
