// Package sink defines the warehouse sink contract and a registry of
// backends.
//
// Backends register a Factory for their kind from an init function.
// Importing internal/sink/all enables every built-in backend:
//
//	import _ "github.com/ginjaninja78/tabular-loader/internal/sink/all"
//
//	s, err := sink.Open(ctx, cfg.Sink, logger)
//	if err != nil { ... }
//	defer s.Close()
//
// The rest of the loader depends only on the Sink interface.
package sink

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/types"
	"github.com/rs/zerolog"
)

// Sink appends normalized records to a warehouse table.
type Sink interface {
	// Append writes all records in one operation. An empty slice is a
	// valid call and writes nothing.
	Append(ctx context.Context, records []types.Record) error

	// Close releases connections held by the sink.
	Close() error
}

// Factory opens a sink for the given configuration.
type Factory func(ctx context.Context, cfg config.SinkConfig, logger zerolog.Logger) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Registering the same kind
// twice replaces the earlier factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// Kinds returns the registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open creates the sink for cfg.Kind. Append errors of the returned sink
// are reported as *Error.
func Open(ctx context.Context, cfg config.SinkConfig, logger zerolog.Logger) (Sink, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported sink kind %q (available: %v)", cfg.Kind, Kinds())
	}

	s, err := f(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s sink: %w", cfg.Kind, err)
	}
	return &reporting{Sink: s, kind: cfg.Kind}, nil
}

// Error reports a failed Append.
type Error struct {
	Kind string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s sink: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type reporting struct {
	Sink
	kind string
}

func (r *reporting) Append(ctx context.Context, records []types.Record) error {
	if err := r.Sink.Append(ctx, records); err != nil {
		return &Error{Kind: r.kind, Err: err}
	}
	return nil
}
