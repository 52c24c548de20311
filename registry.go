package atomsynth

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

type (
	// Factory creates a fresh blueprint of one unit type. Every patch gets its
	// own blueprints, so two instruments using the same unit type never share
	// knobs.
	Factory struct {
		Category    string
		Name        string
		Description string
		New         func() Blueprint
	}

	// Registry lists the unit types available for building patches. It is safe
	// for concurrent use.
	Registry struct {
		mu        sync.RWMutex
		factories map[unitKey]Factory
	}

	// ManifestEntry describes one registered unit type, together with the
	// controls a fresh blueprint of it declares.
	ManifestEntry struct {
		Category    string
		Name        string
		Description string
		Controls    []string
	}

	unitKey struct{ category, name string }
)

var (
	ErrUnknownUnit   = errors.New("unknown unit")
	ErrDuplicateUnit = errors.New("unit already registered")
)

func NewRegistry() *Registry {
	return &Registry{factories: make(map[unitKey]Factory)}
}

// Register adds a unit type. It fails if the category/name pair is taken.
func (r *Registry) Register(f Factory) error {
	if f.New == nil {
		return fmt.Errorf("unit %v/%v: factory has no constructor", f.Category, f.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = make(map[unitKey]Factory)
	}
	key := unitKey{f.Category, f.Name}
	if _, ok := r.factories[key]; ok {
		return fmt.Errorf("unit %v/%v: %w", f.Category, f.Name, ErrDuplicateUnit)
	}
	r.factories[key] = f
	return nil
}

// MustRegister is like Register but panics on error. Useful when building
// registries of known units.
func (r *Registry) MustRegister(f Factory) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Lookup creates a new blueprint of the given type. The returned error wraps
// ErrUnknownUnit if the type is not registered.
func (r *Registry) Lookup(category, name string) (Blueprint, error) {
	r.mu.RLock()
	f, ok := r.factories[unitKey{category, name}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%v/%v: %w", category, name, ErrUnknownUnit)
	}
	return f.New(), nil
}

// Manifest lists the registered unit types, sorted by category and then by
// name.
func (r *Registry) Manifest() []ManifestEntry {
	r.mu.RLock()
	ret := make([]ManifestEntry, 0, len(r.factories))
	news := make([]func() Blueprint, 0, len(r.factories))
	for _, f := range r.factories {
		ret = append(ret, ManifestEntry{Category: f.Category, Name: f.Name, Description: f.Description})
		news = append(news, f.New)
	}
	r.mu.RUnlock()
	for i, n := range news {
		if c, ok := n().(interface{ ControlNames() []string }); ok {
			ret[i].Controls = c.ControlNames()
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Category != ret[j].Category {
			return ret[i].Category < ret[j].Category
		}
		return ret[i].Name < ret[j].Name
	})
	return ret
}
