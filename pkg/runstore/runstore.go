// Package runstore keeps a ledger of pipeline runs: which model was trained
// on which data, with what parameters, and how it scored.
//
// Backends register themselves by driver name ("sqlite", "postgres") and
// are selected with Open. The "none" driver keeps no history.
package runstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// Config selects and configures a backend.
type Config struct {
	Driver string `yaml:"driver" mapstructure:"driver" validate:"omitempty,oneof=none sqlite postgres"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// Run is one ledger entry.
type Run struct {
	ID        string
	Kind      string // train, evaluate, predict or experiment
	StartedAt time.Time
	Duration  time.Duration
	ModelType string
	DataURI   string
	ModelPath string
	Params    map[string]float64
	Metrics   map[string]float64
	Decision  string
}

// NewRun starts a run record with a fresh id.
func NewRun(kind string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}
}

// Finish sets Duration from StartedAt.
func (r *Run) Finish() {
	r.Duration = time.Since(r.StartedAt)
}

// Store persists runs.
type Store interface {
	// Record inserts r. Recording the same ID twice is a conflict error.
	Record(ctx context.Context, r *Run) error
	// Get returns the run with id, or a not-found error.
	Get(ctx context.Context, id string) (*Run, error)
	// List returns up to limit runs, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}

// Factory opens a backend from a DSN.
type Factory func(ctx context.Context, dsn string) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a backend under driver. Registering a driver twice panics.
func Register(driver string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if driver == "" || f == nil {
		panic("runstore: Register with empty driver or nil factory")
	}
	if _, exists := factories[driver]; exists {
		panic("runstore: driver already registered: " + driver)
	}
	factories[driver] = f
}

// Drivers returns the registered drivers in sorted order.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for d := range factories {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Open connects to the configured backend and ensures its schema exists.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "none"
	}
	mu.RLock()
	f, ok := factories[driver]
	mu.RUnlock()
	if !ok {
		return nil, errors.Configuration("unknown run store driver").
			WithDetail("driver", driver).
			WithDetail("supported", Drivers())
	}
	return f(ctx, cfg.DSN)
}

func init() {
	Register("none", func(context.Context, string) (Store, error) { return Nop(), nil })
}

// Nop returns a store that discards runs, the "none" driver.
func Nop() Store { return nopStore{} }

// nopStore discards runs.
type nopStore struct{}

func (nopStore) Record(context.Context, *Run) error { return nil }

func (nopStore) Get(_ context.Context, id string) (*Run, error) {
	return nil, errors.New(errors.ErrorTypeNotFound, "run not found").WithDetail("id", id)
}

func (nopStore) List(context.Context, int) ([]*Run, error) { return nil, nil }

func (nopStore) Close() error { return nil }
