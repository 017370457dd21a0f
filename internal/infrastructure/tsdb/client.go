package tsdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
)

// Default timeouts for TSDB operations.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultWriteTimeout   = 5 * time.Second
	defaultHealthTimeout  = 5 * time.Second

	// maxErrorBody caps how much of a failed response is kept in HTTPError.
	maxErrorBody = 512
)

// Client writes time-series data to VictoriaMetrics using InfluxDB line protocol.
//
// Writes are batched internally and flushed either when the batch reaches
// the configured size or when the flush interval timer fires. The flush
// is a single HTTP POST to /write with newline-delimited line protocol.
//
// WritePoint always queues its point. A failed flush, whether size or timer
// triggered, is returned as a *BatchError by the next WritePoint or by Close.
// Timer flush failures are also reported via the onError callback.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	url        string
	httpClient *http.Client

	connected bool
	mu        sync.RWMutex

	// Batching
	batch     []string
	batchMu   sync.Mutex
	batchSize int
	flushTick *time.Ticker
	done      chan struct{}
	wg        sync.WaitGroup

	// flushMu serialises HTTP flushes so batches reach the server in order.
	flushMu sync.Mutex

	// pendingErr accumulates timer flush failures not yet returned to a caller.
	pendingErr *BatchError

	// Error callback for background flush failures.
	onError func(err error)
}

// Connect establishes a connection to VictoriaMetrics.
//
// It performs the following:
//  1. Applies batch defaults
//  2. Creates an HTTP client
//  3. Verifies connectivity via GET /health
//  4. Starts background flush goroutine
//
// Parameters:
//   - ctx: Context for cancellation (used for health check)
//   - cfg: VictoriaMetrics configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If the connection fails
func Connect(ctx context.Context, cfg config.TSDBConfig) (*Client, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 1
	}

	url := strings.TrimRight(cfg.URL, "/")

	c := &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: defaultWriteTimeout,
		},
		batch:     make([]string, 0, batchSize),
		batchSize: batchSize,
		done:      make(chan struct{}),
		connected: true,
	}

	// Verify connectivity
	healthCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	if err := c.HealthCheck(healthCtx); err != nil {
		return nil, fmt.Errorf("%w: health check failed: %w", ErrConnectionFailed, err)
	}

	c.flushTick = time.NewTicker(time.Duration(flushInterval) * time.Second)
	c.wg.Add(1)
	go c.flushLoop()

	return c, nil
}

// flushLoop periodically flushes the batch on timer or when done is signalled.
func (c *Client) flushLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.flushTick.C:
			ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
			if berr := c.flush(ctx); berr != nil {
				c.latch(berr)
			}
			cancel()
		case <-c.done:
			return
		}
	}
}

// latch records a background flush failure and notifies the callback.
func (c *Client) latch(err *BatchError) {
	c.mu.Lock()
	c.pendingErr = c.pendingErr.merge(err)
	callback := c.onError
	c.mu.Unlock()

	if callback != nil {
		callback(err)
	}
}

// takePending returns and clears the pending background flush failure.
func (c *Client) takePending() *BatchError {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.pendingErr
	c.pendingErr = nil
	return err
}

// Close gracefully shuts down the TSDB connection.
//
// It performs:
//  1. Marks client as disconnected
//  2. Stops the flush timer and goroutine
//  3. Flushes any remaining batched writes
//
// Returns:
//   - error: a *BatchError covering the final flush and any background
//     flush failure not yet returned
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()

	c.flushTick.Stop()
	close(c.done)
	c.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()

	final := c.flush(ctx)
	if berr := c.takePending().merge(final); berr != nil {
		return berr
	}
	return nil
}

// HealthCheck verifies the VictoriaMetrics connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, defaultHealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, c.url+"/health", nil)
	if err != nil {
		return fmt.Errorf("tsdb health check: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tsdb health check: %w", err)
	}
	defer resp.Body.Close()
	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tsdb health check: %w", &HTTPError{StatusCode: resp.StatusCode})
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

// SetOnError sets a callback to be invoked when a background flush fails.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// addLine adds a line protocol string to the batch.
// If the batch reaches the configured size, it flushes before returning.
// The line is queued even when an earlier flush failed; that failure comes
// back as a *BatchError.
func (c *Client) addLine(ctx context.Context, line string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.batchMu.Lock()
	c.batch = append(c.batch, line)
	shouldFlush := len(c.batch) >= c.batchSize
	c.batchMu.Unlock()

	var berr *BatchError
	if shouldFlush {
		// The swapped-out lines are gone once the request starts, so the
		// POST outlives a cancelled caller.
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultWriteTimeout)
		berr = c.flush(flushCtx)
		cancel()
	}
	if pending := c.takePending().merge(berr); pending != nil {
		return pending
	}
	return nil
}

// Pending returns the number of lines waiting for the next flush.
func (c *Client) Pending() int {
	c.batchMu.Lock()
	defer c.batchMu.Unlock()
	return len(c.batch)
}

// Flush sends all pending writes to VictoriaMetrics.
//
// This is called automatically by the flush timer and when the batch
// is full. It can also be called manually for testing or shutdown.
// Safe to call concurrently; only one flush executes at a time.
// A failure is returned as a *BatchError.
func (c *Client) Flush(ctx context.Context) error {
	if berr := c.flush(ctx); berr != nil {
		return berr
	}
	return nil
}

func (c *Client) flush(ctx context.Context) *BatchError {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.batchMu.Lock()
	if len(c.batch) == 0 {
		c.batchMu.Unlock()
		return nil
	}
	// Swap batch out under lock
	lines := c.batch
	c.batch = make([]string, 0, c.batchSize)
	c.batchMu.Unlock()

	body := strings.Join(lines, "")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/write", strings.NewReader(body))
	if err != nil {
		return &BatchError{Lines: len(lines), Err: fmt.Errorf("%w: %w", ErrWriteFailed, err)}
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &BatchError{Lines: len(lines), Err: fmt.Errorf("%w: %w", ErrWriteFailed, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &BatchError{Lines: len(lines), Err: fmt.Errorf("%w: %w", ErrWriteFailed,
			&HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))})}
	}

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
