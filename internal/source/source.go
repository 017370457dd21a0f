package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/logging"
	"github.com/nerrad567/tsmigrate/internal/sensor"
)

// Reader pulls sensor records from a time-series source.
//
// Run iterates the source in the order it returns rows and calls emit once
// per record. It checks ctx before every row: a cancelled context ends the
// iteration with a nil error. Reaching the end of the results also returns nil.
//
// Close releases the connection. It is safe to call more than once and after
// Run has returned for any reason.
type Reader interface {
	Name() string
	Run(ctx context.Context, emit func(sensor.Record) error) error
	Close() error
}

// Factory opens a Reader for cfg. A failure to reach or authenticate against
// the source must wrap ErrConnect.
type Factory func(ctx context.Context, cfg config.SourceConfig, log *logging.Logger) (Reader, error)

// Registry selects a Factory by the configured source kind.
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

// DefaultRegistry returns a registry with the SQL reader registered for
// every relational dialect.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, kind := range []string{config.SourceTAOSRest, config.SourcePostgres, config.SourceSQLite} {
		r.Register(kind, OpenSQL)
	}
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
func (r *Registry) Open(ctx context.Context, cfg config.SourceConfig, log *logging.Logger) (Reader, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
	return f(ctx, cfg, log)
}
