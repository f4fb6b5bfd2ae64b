package application

import (
	"fmt"
	"sync"

	"github.com/rafaelDom/TestJuridoc/internal/util"
)

// Type describes a handler or service type: how to construct it and which
// of its methods are routed.
type Type struct {
	Name   string
	New    func(args ...any) (any, error)
	Routes []Declaration
}

// Injector constructs instances of t.
type Injector func(t *Type, args ...any) (any, error)

// DefaultInjector calls t.New with args.
func DefaultInjector(t *Type, args ...any) (any, error) {
	if t.New == nil {
		return nil, util.NewConfigError("type."+t.Name, "type has no constructor")
	}
	instance, err := t.New(args...)
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s: %w", t.Name, err)
	}
	if instance == nil {
		return nil, util.NewConfigError("type."+t.Name, "constructor returned no instance")
	}
	return instance, nil
}

// Registry is the table of described types.
type Registry struct {
	types map[string]*Type
	order []*Type
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Describe registers t. Describing a second type with the same name fails.
func (r *Registry) Describe(t *Type) error {
	if err := validateType(t); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Name]; exists {
		return util.NewConfigError("type."+t.Name, fmt.Sprintf("type %q is already described", t.Name))
	}

	r.types[t.Name] = t
	r.order = append(r.order, t)
	return nil
}

// Lookup returns the type described under name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	return t, ok
}

// Types returns the described types in registration order.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]*Type, len(r.order))
	copy(types, r.order)
	return types
}

// resolve returns the registered type for t, describing t when its name is
// unknown. A different type under the same name is a duplicate.
func (r *Registry) resolve(t *Type) (*Type, error) {
	if t == nil {
		return nil, util.NewConfigError("type", "type is required")
	}
	if registered, ok := r.Lookup(t.Name); ok {
		if registered != t {
			return nil, util.NewConfigError("type."+t.Name, fmt.Sprintf("type %q is already described", t.Name))
		}
		return registered, nil
	}
	if err := r.Describe(t); err != nil {
		return nil, err
	}
	return t, nil
}

func validateType(t *Type) error {
	if t == nil {
		return util.NewConfigError("type", "type is required")
	}
	if t.Name == "" {
		return util.NewConfigError("type.name", "type name is required")
	}
	for i, d := range t.Routes {
		if d.Method == "" {
			return util.NewConfigError(fmt.Sprintf("type.%s.routes[%d]", t.Name, i), "method name is required")
		}
		if d.Kind != KindFilter && d.Kind != KindProcessor {
			return util.NewConfigError(fmt.Sprintf("type.%s.routes[%d]", t.Name, i), "unknown route kind")
		}
	}
	return nil
}
