// Package mqtt provides MQTT publishing for tsmigrate.
//
// This package manages:
//   - Connection to an MQTT broker with auto-reconnect after first connect
//   - Message publishing with QoS acknowledgement
//   - Last Will and Testament (LWT) on a retained status topic
//   - Connection health monitoring
//
// # Topics
//
// Points are published one message per record under
// <topic_prefix>/<device_id>. The client's online/offline state is
// retained at <topic_prefix>/_status.
//
// # Security Considerations
//
//   - TLS should be enabled for non-local brokers (cfg.Broker.TLS=true)
//   - Credentials come from TSMIGRATE_MQTT_USERNAME / TSMIGRATE_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.Sink.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().Device("dev-42")
//	err = client.PublishDefault(ctx, topic, payload)
package mqtt
