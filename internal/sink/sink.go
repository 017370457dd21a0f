package sink

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/logging"
	"github.com/nerrad567/tsmigrate/internal/sensor"
)

// Writer persists enriched records to a time-series store.
//
// Write builds a sensor.Point and submits it. Success means the point was
// accepted for delivery; writers that batch may report a failed batch on a
// later Write or on Close. Calls on one Writer are never reordered.
//
// Close flushes buffered points and releases the handle. It is called once,
// after the last Write; further calls return nil.
type Writer interface {
	Name() string
	Write(ctx context.Context, rec sensor.Record, tags sensor.TagSet) error
	Close() error
}

// Factory opens a Writer for cfg. A failure to reach or authenticate against
// the store must wrap ErrConnect.
type Factory func(ctx context.Context, cfg config.SinkConfig, log *logging.Logger) (Writer, error)

// Registry selects a Factory by the configured sink kind.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every built-in sink registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(config.SinkInfluxDB, OpenInfluxDB)
	r.Register(config.SinkVictoriaMetrics, OpenVictoriaMetrics)
	r.Register(config.SinkMQTT, OpenMQTT)
	return r
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Open looks up cfg.Kind and invokes its factory.
func (r *Registry) Open(ctx context.Context, cfg config.SinkConfig, log *logging.Logger) (Writer, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
	return f(ctx, cfg, log)
}
