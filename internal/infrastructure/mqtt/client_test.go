package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// Broker tests require a running Mosquitto at MQTT_TEST_BROKER (default 127.0.0.1:1883).
func testConfig() config.MQTTConfig {
	host, port := "127.0.0.1", 1883
	if v := os.Getenv("MQTT_TEST_BROKER"); v != "" {
		if h, p, err := net.SplitHostPort(v); err == nil {
			host = h
			if n, err := net.LookupPort("tcp", p); err == nil {
				port = n
			}
		}
	}
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     host,
			Port:     port,
			ClientID: "tsmigrate-test",
		},
		QoS:         1,
		TopicPrefix: "tsmigrate-test/sensors",
	}
}

// skipIfNoBroker skips the test if no broker accepts TCP connections.
func skipIfNoBroker(t *testing.T) {
	t.Helper()
	cfg := testConfig()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(cfg.Broker.Host, strconv.Itoa(cfg.Broker.Port)), time.Second)
	if err != nil {
		t.Skip("MQTT broker not available, skipping integration test")
	}
	conn.Close() //nolint:errcheck // Reachability check
}

// =============================================================================
// Option Tests
// =============================================================================

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Host, cfg.Broker.Port = "broker", 1883
	if got := brokerURL(cfg); got != "tcp://broker:1883" {
		t.Errorf("brokerURL() = %q", got)
	}

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := brokerURL(cfg); got != "ssl://broker:8883" {
		t.Errorf("brokerURL() with TLS = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "migrator", Password: "secret"}
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)
	r := pahomqtt.NewOptionsReader(opts)

	if r.ClientID() != "tsmigrate-test" {
		t.Errorf("ClientID() = %q", r.ClientID())
	}
	if r.Username() != "migrator" || r.Password() != "secret" {
		t.Errorf("credentials = %q/%q", r.Username(), r.Password())
	}
	if !r.AutoReconnect() {
		t.Error("AutoReconnect() = false, want true")
	}
	if r.ConnectRetry() {
		t.Error("ConnectRetry() = true, initial connect must fail fast")
	}
	if !r.CleanSession() {
		t.Error("CleanSession() = false")
	}
	if r.TLSConfig() == nil || r.TLSConfig().MinVersion != tlsMinVersion {
		t.Error("TLS config missing or below minimum version")
	}
}

func TestBuildClientOptions_Anonymous(t *testing.T) {
	r := pahomqtt.NewOptionsReader(buildClientOptions(testConfig()))
	if r.Username() != "" {
		t.Errorf("Username() = %q, want empty", r.Username())
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := pahomqtt.NewClientOptions()
	configureLWT(opts, Topics{Prefix: "p"}, "client-1")
	r := pahomqtt.NewOptionsReader(opts)

	if !r.WillEnabled() || r.WillTopic() != "p/_status" || !r.WillRetained() {
		t.Errorf("will = enabled:%v topic:%q retained:%v", r.WillEnabled(), r.WillTopic(), r.WillRetained())
	}

	var payload map[string]string
	if err := json.Unmarshal(r.WillPayload(), &payload); err != nil {
		t.Fatalf("will payload not JSON: %v", err)
	}
	if payload["status"] != "offline" || payload["client_id"] != "client-1" {
		t.Errorf("will payload = %v", payload)
	}
}

func TestStatusPayloads(t *testing.T) {
	for name, raw := range map[string]string{
		"online":  buildOnlinePayload("c"),
		"offline": buildOfflinePayload("c"),
	} {
		var payload map[string]string
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			t.Fatalf("%s payload not JSON: %v", name, err)
		}
		if payload["status"] != name {
			t.Errorf("%s payload status = %q", name, payload["status"])
		}
	}
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopics(t *testing.T) {
	tests := []struct {
		name     string
		topics   Topics
		deviceID string
		expected string
	}{
		{"plain", Topics{Prefix: "tsmigrate/sensors"}, "dev-42", "tsmigrate/sensors/dev-42"},
		{"trailing slash", Topics{Prefix: "tsmigrate/sensors/"}, "dev-42", "tsmigrate/sensors/dev-42"},
		{"separator", Topics{Prefix: "p"}, "a/b", "p/a_b"},
		{"wildcards", Topics{Prefix: "p"}, "a+b#", "p/a_b_"},
		{"empty id", Topics{Prefix: "p"}, "", "p/_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.topics.Device(tt.deviceID); got != tt.expected {
				t.Errorf("Device(%q) = %q, want %q", tt.deviceID, got, tt.expected)
			}
		})
	}

	if got := (Topics{Prefix: "p"}).Status(); got != "p/_status" {
		t.Errorf("Status() = %q", got)
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Host = "127.0.0.1"
	cfg.Broker.Port = 1 // Nothing listens here

	start := time.Now()
	_, err := Connect(context.Background(), cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if time.Since(start) > defaultConnectTimeout+time.Second {
		t.Error("Connect() retried instead of failing fast")
	}
}

// silentBroker accepts TCP connections and never answers CONNECT.
func silentBroker(t *testing.T) config.MQTTConfig {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		ln.Close() //nolint:errcheck // Test cleanup
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			conn.Close() //nolint:errcheck // Test cleanup
		}
	})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	cfg := testConfig()
	cfg.Broker.Host = "127.0.0.1"
	cfg.Broker.Port = ln.Addr().(*net.TCPAddr).Port
	return cfg
}

func TestConnect_CancelledWhileWaiting(t *testing.T) {
	cfg := silentBroker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Connect(ctx, cfg)
	if !errors.Is(err, ErrConnectionFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed wrapping the deadline", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Connect() took %v, want it to return on cancellation", elapsed)
	}
}

func TestCloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestConnect(t *testing.T) {
	skipIfNoBroker(t)

	client, err := Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestPublishAndClose(t *testing.T) {
	skipIfNoBroker(t)

	client, err := Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	topic := client.Topics().Device("dev-42")
	if err := client.PublishDefault(context.Background(), topic, []byte(`{"temperature":21.5}`)); err != nil {
		t.Fatalf("PublishDefault() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	err = client.PublishDefault(context.Background(), topic, []byte(`{}`))
	if !errors.Is(err, ErrClosed) {
		t.Errorf("PublishDefault() after Close error = %v, want ErrClosed", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrClosed", err)
	}
}

func TestPublishValidation(t *testing.T) {
	skipIfNoBroker(t)

	client, err := Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := client.Publish(ctx, "", nil, 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish(ctx, "t", nil, 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("QoS 3 error = %v, want ErrInvalidQoS", err)
	}
	big := []byte(strings.Repeat("x", maxPayloadSize+1))
	if err := client.Publish(ctx, "t", big, 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversized payload error = %v, want ErrPublishFailed", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	skipIfNoBroker(t)

	client, err := Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}
