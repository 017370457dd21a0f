package influxdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	ihttp "github.com/influxdata/influxdb-client-go/v2/api/http"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
)

// Default timeouts for InfluxDB operations.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	// errorDrainTimeout bounds how long Close waits for the async error
	// channel to be closed by the client library.
	errorDrainTimeout = 5 * time.Second

	// millisecondsPerSecond converts seconds to milliseconds for the InfluxDB API.
	millisecondsPerSecond = 1000
)

// Client wraps the InfluxDB v2 client for point migration.
//
// It provides connection management, authenticated org lookup, point writing
// in either async (batched) or blocking mode, and health monitoring.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   influxdb2.Client
	cfg      config.InfluxDBConfig
	writeAPI api.WriteAPI         // set in async mode
	blocking api.WriteAPIBlocking // set in blocking mode

	// connected tracks current connection state.
	connected bool
	mu        sync.RWMutex

	// asyncErr accumulates async batch failures not yet returned by Write.
	asyncErr *BatchError

	// onError is called when async write errors occur.
	onError func(err error)

	// errorsDone is closed when the async error goroutine exits.
	errorsDone chan struct{}
}

// Connect establishes an authenticated connection to the InfluxDB server.
//
// It performs the following setup:
//  1. Creates the client with token authentication
//  2. Verifies connectivity with a ping
//  3. Verifies the token by looking up the configured organisation
//  4. Configures the write API for the configured write mode
//  5. Sets up error delivery for async write failures
//
// Parameters:
//   - ctx: Context for cancellation of the connection checks
//   - cfg: InfluxDB configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: wrapping ErrConnectionFailed or ErrUnauthorized
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	// Validate and convert config values (ensure non-negative for uint conversion)
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000 // Default
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 1 // Default
	}

	// #nosec G115 -- values validated above to be positive
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond). // Convert to milliseconds
			SetPrecision(time.Nanosecond),
	)

	connectCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(connectCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	// /ping is unauthenticated; the org lookup proves the token is accepted.
	if _, err := client.OrganizationsAPI().FindOrganizationByName(connectCtx, cfg.Org); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: organisation %q: %w", ErrUnauthorized, cfg.Org, err)
	}

	c := &Client{
		client:     client,
		cfg:        cfg,
		connected:  true,
		errorsDone: make(chan struct{}),
	}

	if cfg.WriteMode == config.WriteModeBlocking {
		c.blocking = client.WriteAPIBlocking(cfg.Org, cfg.Bucket)
		close(c.errorsDone)
		return c, nil
	}

	c.writeAPI = client.WriteAPI(cfg.Org, cfg.Bucket)

	// Retried batches would be counted as lost and then land later, so a
	// retryable failure discards the batch and is recorded with its size.
	c.writeAPI.SetWriteFailedCallback(c.batchFailed)

	// Errors() must be obtained before the first write or failures are only
	// logged by the library.
	errorsCh := c.writeAPI.Errors()
	go c.handleWriteErrors(errorsCh)

	return c, nil
}

// batchFailed is called by the write API for retryable failures
// (transport errors, 429 and 5xx). The payload is one line per point.
func (c *Client) batchFailed(batch string, herr ihttp.Error, _ uint) bool {
	c.record(&BatchError{
		Points: strings.Count(batch, "\n"),
		Err:    fmt.Errorf("%w: %w", ErrWriteFailed, &herr),
	})
	return false
}

// handleWriteErrors processes async write errors from the WriteAPI.
// Retryable failures were already recorded by batchFailed. Other
// failures arrive without their batch, so the point count is unknown.
func (c *Client) handleWriteErrors(errorsCh <-chan error) {
	defer close(c.errorsDone)

	for err := range errorsCh {
		if retryable(err) {
			continue
		}
		c.record(&BatchError{Err: fmt.Errorf("%w: %w", ErrWriteFailed, err)})
	}
}

// retryable matches the write API's retry rule.
func retryable(err error) bool {
	var herr *ihttp.Error
	if !errors.As(err, &herr) {
		return false
	}
	return herr.StatusCode == 0 || herr.StatusCode >= http.StatusTooManyRequests
}

// record latches a batch failure and notifies the callback.
func (c *Client) record(berr *BatchError) {
	c.mu.Lock()
	c.asyncErr = c.asyncErr.merge(berr)
	callback := c.onError
	c.mu.Unlock()

	if callback != nil {
		callback(berr)
	}
}

// takeAsyncErr returns and clears the pending batch failure.
func (c *Client) takeAsyncErr() *BatchError {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.asyncErr
	c.asyncErr = nil
	return err
}

// Blocking reports whether writes wait for the server's acknowledgement.
func (c *Client) Blocking() bool {
	return c.blocking != nil
}

// Write submits one point.
//
// In blocking mode Write returns once the server has accepted the point.
// In async mode the point is always added to the batch buffer, and any
// batch failure reported since the previous call is returned as a
// *BatchError.
func (c *Client) Write(ctx context.Context, p *write.Point) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if c.blocking != nil {
		if err := c.blocking.WritePoint(ctx, p); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		return nil
	}

	c.writeAPI.WritePoint(p)

	if berr := c.takeAsyncErr(); berr != nil {
		return berr
	}
	return nil
}

// Close gracefully shuts down the InfluxDB connection.
//
// It performs:
//  1. Flushes any pending writes
//  2. Closes the underlying client
//  3. Waits for outstanding async errors to be delivered
//
// Returns:
//   - error: a *BatchError for async failures not yet returned by Write
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()

	if c.writeAPI != nil {
		c.writeAPI.Flush()
	}

	c.client.Close()

	select {
	case <-c.errorsDone:
	case <-time.After(errorDrainTimeout):
	}

	if berr := c.takeAsyncErr(); berr != nil {
		return berr
	}
	return nil
}

// HealthCheck verifies the InfluxDB connection is alive and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}

	return nil
}

// IsConnected returns the current connection state.
//
// Note: This reflects the last known state. For reliability,
// use HealthCheck which performs an active ping.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SetOnError sets a callback to be invoked when async write errors occur.
//
// The callback runs on a write API goroutine, before the same failure is
// returned by the next Write.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// Flush forces all pending writes to be sent to InfluxDB.
//
// This blocks until all buffered points are written.
// Safe to call after Close() (no-op) and in blocking mode (no-op).
func (c *Client) Flush() {
	if c.writeAPI == nil || !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}
