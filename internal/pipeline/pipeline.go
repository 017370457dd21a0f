package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/logging"
	"github.com/nerrad567/tsmigrate/internal/sensor"
	"github.com/nerrad567/tsmigrate/internal/sink"
	"github.com/nerrad567/tsmigrate/internal/source"
)

// Deps holds the dependencies required by a Pipeline.
type Deps struct {
	Source   config.SourceConfig
	Sink     config.SinkConfig
	Pipeline config.PipelineConfig
	Logger   *logging.Logger

	// Optional. Defaults: source.DefaultRegistry, sink.DefaultRegistry,
	// sensor.TagEnricher, a sink.ClassPolicy built from
	// Pipeline.FatalWriteErrors, and NopObserver.
	Sources    *source.Registry
	Sinks      *sink.Registry
	Enricher   sensor.Enricher
	Classifier sink.Classifier
	Observer   Observer
}

// HealthChecker is implemented by readers and writers that can check the
// store behind them.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Stats is a snapshot of a run's progress.
type Stats struct {
	RunID   string `json:"run_id"`
	State   State  `json:"state"`
	Read    uint64 `json:"read"`
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
}

// Pipeline moves records from one source to one sink.
//
// A Pipeline runs exactly once. Run drives the lifecycle; Stop may be called
// from any goroutine at any time, including before Run and after it returns.
//
// Thread Safety: All methods are safe for concurrent use.
type Pipeline struct {
	id         string
	srcCfg     config.SourceConfig
	sinkCfg    config.SinkConfig
	queueSize  int
	log        *logging.Logger
	sources    *source.Registry
	sinks      *sink.Registry
	enricher   sensor.Enricher
	classifier sink.Classifier
	observer   Observer

	started atomic.Bool

	mu            sync.Mutex
	state         State
	cancel        context.CancelCauseFunc
	stopRequested bool
	closeErrs     []error
	checks        map[Side]HealthChecker

	read    atomic.Uint64
	written atomic.Uint64
	dropped atomic.Uint64
}

// New creates a pipeline. Nothing is opened until Run.
//
// Returns:
//   - *Pipeline: Configured pipeline in StateCreated
//   - error: If the logger is missing or the fatal class list is invalid
func New(deps Deps) (*Pipeline, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Pipeline.QueueSize < 0 {
		return nil, fmt.Errorf("queue size must not be negative")
	}

	id := uuid.NewString()
	p := &Pipeline{
		id:         id,
		srcCfg:     deps.Source,
		sinkCfg:    deps.Sink,
		queueSize:  deps.Pipeline.QueueSize,
		log:        deps.Logger.With("component", "pipeline", "run_id", id),
		sources:    deps.Sources,
		sinks:      deps.Sinks,
		enricher:   deps.Enricher,
		classifier: deps.Classifier,
		observer:   deps.Observer,
		state:      StateCreated,
		checks:     make(map[Side]HealthChecker),
	}

	if p.sources == nil {
		p.sources = source.DefaultRegistry()
	}
	if p.sinks == nil {
		p.sinks = sink.DefaultRegistry()
	}
	if p.enricher == nil {
		p.enricher = sensor.TagEnricher{}
	}
	if p.classifier == nil {
		policy, err := sink.NewClassPolicy(deps.Pipeline.FatalWriteErrors)
		if err != nil {
			return nil, fmt.Errorf("pipeline.fatal_write_errors: %w", err)
		}
		p.classifier = policy
	}
	if p.observer == nil {
		p.observer = NopObserver{}
	}

	return p, nil
}

// ID returns the run identifier attached to every log line of this pipeline.
func (p *Pipeline) ID() string {
	return p.id
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stats returns counters for the run so far.
func (p *Pipeline) Stats() Stats {
	return Stats{
		RunID:   p.id,
		State:   p.State(),
		Read:    p.read.Load(),
		Written: p.written.Load(),
		Dropped: p.dropped.Load(),
	}
}

// CloseErrors returns the resource release failures logged during the run.
func (p *Pipeline) CloseErrors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.closeErrs...)
}

// Stop requests a clean drain. The reader stops before its next row and no
// further points are written. Stop is idempotent; only the first call
// records a cause.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopRequested = true
	if p.cancel != nil {
		p.cancel(ErrStopped)
	}
}

func (p *Pipeline) setState(to State) {
	p.mu.Lock()
	from := p.state
	p.state = to
	p.mu.Unlock()

	if from == to {
		return
	}
	p.log.Debug("pipeline state changed", "from", from, "to", to)
	p.observer.StateChanged(from, to)
}

// Run opens the source then the sink, streams every record through the
// enricher into the sink, and releases both in reverse order.
//
// Run returns nil when the source is exhausted or the run was cancelled by
// Stop, by ctx, or by a ctx deadline; the pipeline ends in StateClosed.
// It returns *ConnectError, *ReadError or a fatal *WriteError otherwise;
// the pipeline ends in StateFailed. Resources are closed before the
// terminal state is set.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	p.mu.Lock()
	p.cancel = cancel
	stopped := p.stopRequested
	p.mu.Unlock()

	if stopped {
		p.log.Info("pipeline stopped before start")
		p.setState(StateClosed)
		return nil
	}

	// Registered first so it runs after every resource is released.
	final := StateClosed
	defer func() {
		p.setState(final)
		p.logOutcome(runCtx, final, err)
	}()

	p.setState(StateOpening)

	reader, err := p.sources.Open(runCtx, p.srcCfg, p.log.With("side", SideSource))
	if err != nil {
		if runCtx.Err() != nil {
			return nil
		}
		final = StateFailed
		return &ConnectError{Side: SideSource, Endpoint: p.srcCfg.Endpoint(), Err: err}
	}
	p.attach(SideSource, reader)
	defer p.release(SideSource, reader.Close)

	if runCtx.Err() != nil {
		return nil
	}

	writer, err := p.sinks.Open(runCtx, p.sinkCfg, p.log.With("side", SideSink))
	if err != nil {
		if runCtx.Err() != nil {
			return nil
		}
		final = StateFailed
		return &ConnectError{Side: SideSink, Endpoint: p.sinkCfg.Endpoint(), Err: err}
	}
	p.attach(SideSink, writer)
	defer p.release(SideSink, writer.Close)

	p.setState(StateRunning)
	p.log.Info("pipeline running",
		"source", reader.Name(),
		"sink", writer.Name(),
		"queue_size", p.queueSize,
	)

	p.stream(runCtx, cancel, reader, writer)
	p.setState(StateDraining)

	var (
		readErr  *ReadError
		writeErr *WriteError
	)
	cause := context.Cause(runCtx)
	switch {
	case errors.As(cause, &readErr):
		final = StateFailed
		return readErr
	case errors.As(cause, &writeErr):
		final = StateFailed
		return writeErr
	default:
		return nil
	}
}

// stream drives the reader into the writer. A read failure cancels runCtx
// with a *ReadError cause; a fatal write cancels it with a *WriteError.
func (p *Pipeline) stream(ctx context.Context, cancel context.CancelCauseFunc, r source.Reader, w sink.Writer) {
	if p.queueSize == 0 {
		err := r.Run(ctx, func(rec sensor.Record) error {
			p.recordRead()
			p.deliver(ctx, cancel, w, rec)
			return nil
		})
		if err != nil {
			cancel(&ReadError{Err: err})
		}
		return
	}

	queue := make(chan sensor.Record, p.queueSize)
	var g errgroup.Group

	g.Go(func() error {
		defer close(queue)
		err := r.Run(ctx, func(rec sensor.Record) error {
			p.recordRead()
			select {
			case queue <- rec:
				p.observer.QueueDepth(len(queue))
				return nil
			case <-ctx.Done():
				p.dropped.Add(1)
				return ctx.Err()
			}
		})
		if err != nil {
			cancel(&ReadError{Err: err})
		}
		return nil
	})

	g.Go(func() error {
		for rec := range queue {
			p.observer.QueueDepth(len(queue))
			p.deliver(ctx, cancel, w, rec)
		}
		return nil
	})

	_ = g.Wait() //nolint:errcheck // Both goroutines report through cancel
}

func (p *Pipeline) recordRead() {
	p.read.Add(1)
	p.observer.RecordRead()
}

// deliver enriches and writes one record. Writes are refused once ctx is done.
//
// A *sink.BatchError means the record itself was accepted and an earlier
// batch was lost; the loss is charged to that batch, not to rec.
func (p *Pipeline) deliver(ctx context.Context, cancel context.CancelCauseFunc, w sink.Writer, rec sensor.Record) {
	if ctx.Err() != nil {
		p.dropped.Add(1)
		return
	}

	rec, tags := p.enricher.Enrich(rec)

	start := time.Now()
	err := w.Write(ctx, rec, tags)
	var berr *sink.BatchError
	if err == nil || errors.As(err, &berr) {
		p.written.Add(1)
		p.observer.PointWritten(time.Since(start))
		if berr != nil {
			p.batchFailed(cancel, berr)
		}
		return
	}

	p.dropped.Add(1)

	if ctx.Err() != nil {
		// The write was interrupted by the drain itself.
		p.log.Debug("write interrupted by cancellation", "ts", rec.Timestamp, "device_id", rec.DeviceID, "error", err)
		return
	}

	class, severity := p.classifier.Classify(err)
	p.observer.WriteFailed(class, severity)

	if severity == sink.Fatal {
		p.log.Error("fatal write error, draining",
			"class", class,
			"ts", rec.Timestamp,
			"device_id", rec.DeviceID,
			"error", err,
		)
		cancel(&WriteError{Class: class, Severity: severity, Err: err})
		return
	}

	p.log.Warn("point dropped",
		"class", class,
		"ts", rec.Timestamp,
		"device_id", rec.DeviceID,
		"error", err,
	)
}

// batchFailed moves the points of a lost batch from written to dropped and
// applies the classifier to the batch failure.
func (p *Pipeline) batchFailed(cancel context.CancelCauseFunc, berr *sink.BatchError) {
	p.unwrite(berr.Points)

	class, severity := p.classifier.Classify(berr)
	p.observer.WriteFailed(class, severity)

	if severity == sink.Fatal {
		p.log.Error("fatal batch write error, draining",
			"class", class,
			"points", berr.Points,
			"error", berr,
		)
		cancel(&WriteError{Class: class, Severity: severity, Err: berr})
		return
	}

	p.log.Warn("batch dropped",
		"class", class,
		"points", berr.Points,
		"error", berr,
	)
}

// unwrite reclassifies n written points as dropped.
func (p *Pipeline) unwrite(n int) {
	if n <= 0 {
		return
	}
	p.written.Add(^uint64(n - 1))
	p.dropped.Add(uint64(n))
}

// HealthCheck checks the open source, then the open sink, and returns the
// first failure. Sides that are not open, or have no HealthCheck, are skipped.
func (p *Pipeline) HealthCheck(ctx context.Context) error {
	p.mu.Lock()
	src, dst := p.checks[SideSource], p.checks[SideSink]
	p.mu.Unlock()

	if src != nil {
		if err := src.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", SideSource, err)
		}
	}
	if dst != nil {
		if err := dst.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", SideSink, err)
		}
	}
	return nil
}

// attach makes an opened side visible to HealthCheck.
func (p *Pipeline) attach(side Side, v any) {
	hc, ok := v.(HealthChecker)
	if !ok {
		return
	}
	p.mu.Lock()
	p.checks[side] = hc
	p.mu.Unlock()
}

// release closes one side and logs, never returns, a failure. A batch lost
// by the final flush is still charged to the counters.
func (p *Pipeline) release(side Side, closeFn func() error) {
	p.mu.Lock()
	delete(p.checks, side)
	p.mu.Unlock()

	err := closeFn()
	if err == nil {
		p.log.Debug("closed", "side", side)
		return
	}

	cerr := &CloseError{Side: side, Err: err}
	p.mu.Lock()
	p.closeErrs = append(p.closeErrs, cerr)
	p.mu.Unlock()

	var berr *sink.BatchError
	if !errors.As(err, &berr) {
		p.log.Warn("close failed", "side", side, "error", cerr)
		return
	}

	p.unwrite(berr.Points)
	class, severity := p.classifier.Classify(berr)
	p.observer.WriteFailed(class, severity)
	p.log.Warn("batch dropped",
		"side", side,
		"class", class,
		"points", berr.Points,
		"error", cerr,
	)
}

// logOutcome writes the single summary line for the run.
func (p *Pipeline) logOutcome(ctx context.Context, final State, err error) {
	s := p.Stats()
	args := []any{
		"state", final,
		"read", s.Read,
		"written", s.Written,
		"dropped", s.Dropped,
	}

	if final == StateFailed {
		p.log.Error("pipeline failed", append(args, "error", err)...)
		return
	}
	p.log.Info("pipeline closed", append(args, "reason", drainReason(context.Cause(ctx)))...)
}

// drainReason describes why a clean run ended.
func drainReason(cause error) string {
	switch {
	case cause == nil:
		return "source exhausted"
	case errors.Is(cause, ErrStopped):
		return "stop requested"
	case errors.Is(cause, context.DeadlineExceeded):
		return "run deadline reached"
	default:
		return "cancelled"
	}
}
