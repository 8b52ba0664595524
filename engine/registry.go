package engine

import (
	"errors"
	"fmt"
	"iter"

	"github.com/hupe1980/kmeansbench"
)

var (
	// ErrDuplicateEngine is returned when a name is registered twice.
	ErrDuplicateEngine = errors.New("engine already registered")

	// ErrUnknownEngine is returned when a requested name is not registered.
	ErrUnknownEngine = errors.New("unknown engine")
)

// Record pairs an engine with its registered name.
type Record struct {
	Name   string
	Engine Engine
}

// Registry is an ordered, name-unique collection of engines.
//
// Iteration order equals registration order. The registry only references
// engines; callers own them and must keep them usable while the registry is
// in use.
type Registry struct {
	records []Record
	index   map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends e under name.
func (r *Registry) Register(name string, e Engine) error {
	if name == "" {
		return fmt.Errorf("%w: empty engine name", kmeansbench.ErrInvalidArgument)
	}
	if e == nil {
		return fmt.Errorf("%w: nil engine %q", kmeansbench.ErrInvalidArgument, name)
	}
	if _, ok := r.index[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateEngine, name)
	}
	r.index[name] = len(r.records)
	r.records = append(r.records, Record{Name: name, Engine: e})
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, e Engine) {
	if err := r.Register(name, e); err != nil {
		panic(err)
	}
}

// Len returns the number of registered engines.
func (r *Registry) Len() int {
	return len(r.records)
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.records))
	for i, rec := range r.records {
		names[i] = rec.Name
	}
	return names
}

// Lookup returns the engine registered under name.
func (r *Registry) Lookup(name string) (Engine, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.records[i].Engine, true
}

// Records returns a copy of the records in registration order.
func (r *Registry) Records() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// All iterates name/engine pairs in registration order.
func (r *Registry) All() iter.Seq2[string, Engine] {
	return func(yield func(string, Engine) bool) {
		for _, rec := range r.records {
			if !yield(rec.Name, rec.Engine) {
				return
			}
		}
	}
}

// Filter returns a registry with only the named engines, kept in
// registration order. With no names it returns r itself.
func (r *Registry) Filter(names ...string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := r.index[n]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, n)
		}
		want[n] = struct{}{}
	}

	out := NewRegistry()
	for _, rec := range r.records {
		if _, ok := want[rec.Name]; ok {
			out.MustRegister(rec.Name, rec.Engine)
		}
	}
	return out, nil
}
