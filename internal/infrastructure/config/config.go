package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds understood by the source registry.
const (
	SourceTAOSRest = "taosrest"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Sink kinds understood by the sink registry.
const (
	SinkInfluxDB        = "influxdb"
	SinkVictoriaMetrics = "victoriametrics"
	SinkMQTT            = "mqtt"
)

// WriteErrorClasses are the names accepted in pipeline.fatal_write_errors.
// They mirror sink.Classes.
var WriteErrorClasses = []string{"auth", "closed", "network", "rejected", "unknown"}

func isWriteErrorClass(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range WriteErrorClasses {
		if c == name {
			return true
		}
	}
	return false
}

// InfluxDB write modes.
const (
	WriteModeAsync    = "async"
	WriteModeBlocking = "blocking"
)

// Config is the root configuration structure for a migration run.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Sink     SinkConfig     `yaml:"sink"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
	Status   StatusConfig   `yaml:"status"`
}

// SourceConfig is the source connection descriptor.
type SourceConfig struct {
	// Kind selects the source dialect: "taosrest", "postgres" or "sqlite".
	Kind string `yaml:"kind"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// DSN, when set, is passed to the driver verbatim and the fields above
	// are only used for logging.
	DSN string `yaml:"dsn"`
}

// Endpoint returns the host:port (or file path for sqlite) used in logs and errors.
// It never includes credentials.
func (s SourceConfig) Endpoint() string {
	if s.Kind == SourceSQLite {
		return s.Database
	}
	if s.DSN != "" && s.Host == "" {
		return "(dsn)"
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SinkConfig is the sink connection descriptor.
type SinkConfig struct {
	// Kind selects the sink: "influxdb", "victoriametrics" or "mqtt".
	Kind string `yaml:"kind"`

	InfluxDB        InfluxDBConfig `yaml:"influxdb"`
	VictoriaMetrics TSDBConfig     `yaml:"victoriametrics"`
	MQTT            MQTTConfig     `yaml:"mqtt"`
}

// Endpoint returns the URL or broker address of the selected sink.
func (s SinkConfig) Endpoint() string {
	switch s.Kind {
	case SinkVictoriaMetrics:
		return s.VictoriaMetrics.URL
	case SinkMQTT:
		return net.JoinHostPort(s.MQTT.Broker.Host, strconv.Itoa(s.MQTT.Broker.Port))
	default:
		return s.InfluxDB.URL
	}
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`

	// WriteMode is "async" (accepted into the client's batch buffer) or
	// "blocking" (acknowledged by the server before Write returns).
	WriteMode string `yaml:"write_mode"`
}

// TSDBConfig contains VictoriaMetrics connection settings.
type TSDBConfig struct {
	URL           string `yaml:"url"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PipelineConfig controls how records move from source to sink.
type PipelineConfig struct {
	// QueueSize is the capacity of the channel between the reader and writer
	// goroutines. 0 runs both on a single goroutine.
	QueueSize int `yaml:"queue_size"`

	// FatalWriteErrors lists the write error classes that end the run.
	// Every other class is logged and the point dropped.
	FatalWriteErrors []string `yaml:"fatal_write_errors"`

	// RunTimeout bounds the whole run in seconds. 0 means no deadline.
	RunTimeout int `yaml:"run_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// StatusConfig contains the status/metrics HTTP server settings.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TSMIGRATE_SECTION_KEY
// For example: TSMIGRATE_SOURCE_PASSWORD, TSMIGRATE_INFLUXDB_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
// The defaults describe the TDengine REST -> InfluxDB migration.
func defaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:     SourceTAOSRest,
			Host:     "localhost",
			Port:     6041,
			Database: "test_db",
		},
		Sink: SinkConfig{
			Kind: SinkInfluxDB,
			InfluxDB: InfluxDBConfig{
				URL:           "http://localhost:8086",
				BatchSize:     1000,
				FlushInterval: 1,
				WriteMode:     WriteModeAsync,
			},
			VictoriaMetrics: TSDBConfig{
				URL:           "http://localhost:8428",
				BatchSize:     1000,
				FlushInterval: 1,
			},
			MQTT: MQTTConfig{
				Broker: MQTTBrokerConfig{
					Host:     "localhost",
					Port:     1883,
					ClientID: "tsmigrate",
				},
				QoS:         1,
				TopicPrefix: "tsmigrate/sensors",
			},
		},
		Pipeline: PipelineConfig{
			QueueSize:        256,
			FatalWriteErrors: []string{"auth", "closed"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Status: StatusConfig{
			Host: "127.0.0.1",
			Port: 9464,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Credentials are expected to arrive this way rather than from the file.
func applyEnvOverrides(cfg *Config) {
	// Source
	if v := os.Getenv("TSMIGRATE_SOURCE_HOST"); v != "" {
		cfg.Source.Host = v
	}
	if v := os.Getenv("TSMIGRATE_SOURCE_USERNAME"); v != "" {
		cfg.Source.Username = v
	}
	if v := os.Getenv("TSMIGRATE_SOURCE_PASSWORD"); v != "" {
		cfg.Source.Password = v
	}
	if v := os.Getenv("TSMIGRATE_SOURCE_DSN"); v != "" {
		cfg.Source.DSN = v
	}

	// InfluxDB
	if v := os.Getenv("TSMIGRATE_INFLUXDB_URL"); v != "" {
		cfg.Sink.InfluxDB.URL = v
	}
	if v := os.Getenv("TSMIGRATE_INFLUXDB_TOKEN"); v != "" {
		cfg.Sink.InfluxDB.Token = v
	}

	// MQTT
	if v := os.Getenv("TSMIGRATE_MQTT_USERNAME"); v != "" {
		cfg.Sink.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TSMIGRATE_MQTT_PASSWORD"); v != "" {
		cfg.Sink.MQTT.Auth.Password = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	errs = append(errs, c.Source.validate()...)
	errs = append(errs, c.Sink.validate()...)

	if c.Pipeline.QueueSize < 0 {
		errs = append(errs, "pipeline.queue_size must not be negative")
	}
	if c.Pipeline.RunTimeout < 0 {
		errs = append(errs, "pipeline.run_timeout must not be negative")
	}
	for _, name := range c.Pipeline.FatalWriteErrors {
		if !isWriteErrorClass(name) {
			errs = append(errs, fmt.Sprintf("pipeline.fatal_write_errors: %q is not one of %s",
				name, strings.Join(WriteErrorClasses, ", ")))
		}
	}

	if c.Status.Enabled && (c.Status.Port < 1 || c.Status.Port > 65535) {
		errs = append(errs, "status.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (s SourceConfig) validate() []string {
	var errs []string

	switch s.Kind {
	case SourceTAOSRest, SourcePostgres:
		if s.DSN == "" {
			if s.Host == "" {
				errs = append(errs, "source.host is required")
			}
			if s.Port < 1 || s.Port > 65535 {
				errs = append(errs, "source.port must be between 1 and 65535")
			}
			if s.Database == "" {
				errs = append(errs, "source.database is required")
			}
		}
	case SourceSQLite:
		if s.DSN == "" && s.Database == "" {
			errs = append(errs, "source.database (file path) is required for sqlite")
		}
	default:
		errs = append(errs, fmt.Sprintf("source.kind %q is not one of taosrest, postgres, sqlite", s.Kind))
	}

	return errs
}

func (s SinkConfig) validate() []string {
	var errs []string

	switch s.Kind {
	case SinkInfluxDB:
		c := s.InfluxDB
		if c.URL == "" {
			errs = append(errs, "sink.influxdb.url is required")
		}
		if c.Token == "" {
			errs = append(errs, "sink.influxdb.token is required (set TSMIGRATE_INFLUXDB_TOKEN environment variable)")
		}
		if c.Org == "" {
			errs = append(errs, "sink.influxdb.org is required")
		}
		if c.Bucket == "" {
			errs = append(errs, "sink.influxdb.bucket is required")
		}
		if c.WriteMode != WriteModeAsync && c.WriteMode != WriteModeBlocking {
			errs = append(errs, "sink.influxdb.write_mode must be async or blocking")
		}
	case SinkVictoriaMetrics:
		if s.VictoriaMetrics.URL == "" {
			errs = append(errs, "sink.victoriametrics.url is required")
		}
	case SinkMQTT:
		c := s.MQTT
		if c.Broker.Host == "" {
			errs = append(errs, "sink.mqtt.broker.host is required")
		}
		if c.Broker.Port < 1 || c.Broker.Port > 65535 {
			errs = append(errs, "sink.mqtt.broker.port must be between 1 and 65535")
		}
		if c.QoS < 0 || c.QoS > 2 {
			errs = append(errs, "sink.mqtt.qos must be 0, 1, or 2")
		}
		if c.TopicPrefix == "" {
			errs = append(errs, "sink.mqtt.topic_prefix is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("sink.kind %q is not one of influxdb, victoriametrics, mqtt", s.Kind))
	}

	return errs
}

// GetRunTimeout returns the whole-run deadline as a Duration (0 = none).
func (c *Config) GetRunTimeout() time.Duration {
	return time.Duration(c.Pipeline.RunTimeout) * time.Second
}
