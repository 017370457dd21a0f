package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/logging"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/mqtt"
	"github.com/nerrad567/tsmigrate/internal/sensor"
)

// MQTTWriter publishes one JSON message per point to <topic_prefix>/<device_id>.
type MQTTWriter struct {
	client   *mqtt.Client
	endpoint string
	log      *logging.Logger
}

// pointMessage is the JSON body published for each point.
type pointMessage struct {
	Measurement string            `json:"measurement"`
	Time        string            `json:"time"`
	TimeNS      int64             `json:"time_ns"`
	Tags        map[string]string `json:"tags"`
	Fields      pointFields       `json:"fields"`
}

type pointFields struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	Status      int64   `json:"status"`
}

// encodePoint renders p as the published JSON body.
func encodePoint(p sensor.Point) ([]byte, error) {
	return json.Marshal(pointMessage{
		Measurement: p.Measurement,
		Time:        p.Time.UTC().Format(time.RFC3339Nano),
		TimeNS:      p.Time.UnixNano(),
		Tags:        p.Tags.Map(),
		Fields: pointFields{
			Temperature: p.Fields.Temperature,
			Humidity:    p.Fields.Humidity,
			Pressure:    p.Fields.Pressure,
			Status:      p.Fields.Status,
		},
	})
}

// OpenMQTT is the Factory for the mqtt sink.
func OpenMQTT(ctx context.Context, cfg config.SinkConfig, log *logging.Logger) (Writer, error) {
	client, err := mqtt.Connect(ctx, cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Endpoint(), err)
	}

	w := &MQTTWriter{
		client:   client,
		endpoint: cfg.Endpoint(),
		log:      log,
	}

	client.SetOnDisconnect(func(err error) {
		w.log.Warn("mqtt connection lost, reconnecting", "error", err)
	})
	client.SetOnConnect(func() {
		w.log.Info("mqtt connected", "endpoint", w.endpoint)
	})

	log.Info("sink connected", "kind", config.SinkMQTT, "endpoint", w.endpoint, "topic_prefix", cfg.MQTT.TopicPrefix)
	return w, nil
}

// Name returns the sink kind and endpoint.
func (w *MQTTWriter) Name() string {
	return config.SinkMQTT + "://" + w.endpoint
}

// Write publishes the point and waits for the broker acknowledgement.
func (w *MQTTWriter) Write(ctx context.Context, rec sensor.Record, tags sensor.TagSet) error {
	body, err := encodePoint(sensor.NewPoint(rec, tags))
	if err != nil {
		return withClass(ErrRejected, err)
	}
	return classifyMQTT(w.client.PublishDefault(ctx, w.client.Topics().Device(tags.DeviceID), body))
}

// HealthCheck reports whether the broker connection is up.
func (w *MQTTWriter) HealthCheck(ctx context.Context) error {
	return w.client.HealthCheck(ctx)
}

// Close disconnects from the broker.
func (w *MQTTWriter) Close() error {
	return w.client.Close()
}

// classifyMQTT attaches a class sentinel to an MQTT client error.
func classifyMQTT(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mqtt.ErrClosed):
		return withClass(ErrClosed, err)
	case errors.Is(err, mqtt.ErrInvalidTopic), errors.Is(err, mqtt.ErrInvalidQoS):
		return withClass(ErrRejected, err)
	case errors.Is(err, mqtt.ErrNotConnected), errors.Is(err, mqtt.ErrTimeout), errors.Is(err, mqtt.ErrPublishFailed):
		return withClass(ErrNetwork, err)
	default:
		return err
	}
}
