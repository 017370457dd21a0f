// Package config handles loading and validating tsmigrate configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields per source and sink kind
//   - Default value handling
//
// Security Considerations:
//   - Credentials (source password, InfluxDB token, MQTT password) should be
//     set via TSMIGRATE_* environment variables, never committed to the file
//   - Endpoint() helpers never include credentials, so they are safe to log
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Source.Endpoint(), "->", cfg.Sink.Endpoint())
package config
