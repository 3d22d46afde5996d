package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"decksage/simgraph/internal/metrics"
)

var (
	ErrUnknownBackend = errors.New("unknown graph backend")
	ErrNoBackend      = errors.New("store has no backend")
	ErrNoGraph        = errors.New("backend holds no graph")
)

// Backend persists a whole Graph. Every implementation must round-trip the
// same node set, edge counts, deck IDs, total deck count and last update.
type Backend interface {
	Kind() string
	Location() string
	Save(ctx context.Context, g *Graph) error
	Load(ctx context.Context) (*Graph, error)
	Exists(ctx context.Context) (bool, error)
	Remove(ctx context.Context) error
}

// Sizer is implemented by backends that can count stored nodes and edges
// without loading the graph.
type Sizer interface {
	Size(ctx context.Context) (nodes, edges int, err error)
}

func asSizer(b Backend) (Sizer, bool) {
	if i, ok := b.(*instrumented); ok {
		b = i.Backend
	}
	s, ok := b.(Sizer)
	return s, ok
}

// Backend kinds accepted by NewBackend.
const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

// NewBackend builds the backend named by kind at path. A non-nil m times
// every operation.
func NewBackend(kind, path string, m *metrics.Metrics) (Backend, error) {
	var b Backend
	switch kind {
	case KindJSON:
		b = NewJSONBackend(path)
	case KindSQLite:
		b = NewSQLiteBackend(path)
	case KindBadger:
		b = NewBadgerBackend(path)
	default:
		return nil, fmt.Errorf("%w: %q (want json, sqlite or badger)", ErrUnknownBackend, kind)
	}
	if m == nil {
		return b, nil
	}
	return &instrumented{Backend: b, m: m}, nil
}

type instrumented struct {
	Backend
	m *metrics.Metrics
}

func (i *instrumented) Save(ctx context.Context, g *Graph) error {
	start := time.Now()
	err := i.Backend.Save(ctx, g)
	i.m.ObserveBackend(i.Kind(), "save", start, err)
	return err
}

func (i *instrumented) Load(ctx context.Context) (*Graph, error) {
	start := time.Now()
	g, err := i.Backend.Load(ctx)
	i.m.ObserveBackend(i.Kind(), "load", start, err)
	return g, err
}

func (i *instrumented) Remove(ctx context.Context) error {
	start := time.Now()
	err := i.Backend.Remove(ctx)
	i.m.ObserveBackend(i.Kind(), "remove", start, err)
	return err
}
