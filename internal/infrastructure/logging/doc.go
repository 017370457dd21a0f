// Package logging wraps log/slog with the defaults every tsmigrate component
// shares.
//
// Entries are JSON (default) or text, filtered by level, and always carry
// service and version. Components add their own scope with With:
//
//	log := logging.New(cfg.Logging, version)
//	runLog := log.With("component", "pipeline", "run_id", id)
//	runLog.Info("pipeline running", "source", reader.Name())
//
// # Configuration
//
//	logging:
//	  level: info      # debug, info, warn, error
//	  format: json     # json, text
//	  output: stdout   # stdout, stderr
//
// # Secrets
//
// Attributes keyed password, token, dsn or secret are written as
// "[redacted]". Endpoints are logged through config.SourceConfig.Endpoint and
// config.SinkConfig.Endpoint, which never include credentials.
package logging
