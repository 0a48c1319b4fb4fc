package di

import (
	"reflect"
	"sort"
	"sync"

	"github.com/sghaida/scenedi/scene"
)

// Binder injects resolved services into a node's marked methods.
//
// Binders are generated; each one is a no-op for nodes of any type other than the
// one it was generated for, and returns the first resolution or invocation failure.
type Binder func(node scene.Node, scope *Scope) error

// Registry maps exact runtime node types to their binders.
//
// It is populated once during startup (Populate, or Setup for Default) and read by
// the installer afterwards. Re-populating overwrites entries with identical ones.
type Registry struct {
	mu      sync.RWMutex
	binders map[reflect.Type]Binder
	ready   bool
}

// Default is the process-wide registry filled by the generated RegisterBindings.
var Default = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{binders: map[reflect.Type]Binder{}}
}

// Register stores b for the node type T. Generated registrars call it as
//
//	di.Register[*Player](reg, diBindPlayer)
func Register[T scene.Node](reg *Registry, b Binder) {
	reg.Set(reflect.TypeFor[T](), b)
}

// Set stores b under t, overwriting any previous entry. A nil binder removes the entry.
func (r *Registry) Set(t reflect.Type, b Binder) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b == nil {
		delete(r.binders, t)
		return r
	}
	r.binders[t] = b
	return r
}

// Lookup returns the binder registered for node's exact dynamic type.
// There is no fallback to interfaces or embedded types.
func (r *Registry) Lookup(node scene.Node) (Binder, bool) {
	if node == nil {
		return nil, false
	}
	r.mu.RLock()
	b, ok := r.binders[reflect.TypeOf(node)]
	r.mu.RUnlock()
	return b, ok
}

// Has reports whether t has a binder.
func (r *Registry) Has(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.binders[t]
	return ok
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.binders)
}

// Types returns the registered types sorted by their string form.
func (r *Registry) Types() []reflect.Type {
	r.mu.RLock()
	out := make([]reflect.Type, 0, len(r.binders))
	for t := range r.binders {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Populate runs registrar against r and marks the startup phase complete.
func (r *Registry) Populate(registrar func(*Registry)) {
	if registrar != nil {
		registrar(r)
	}
	r.markReady()
}

// Ready reports whether the startup phase has completed.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// Reset empties r and returns it to the pre-startup state. Intended for tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.binders = map[reflect.Type]Binder{}
	r.ready = false
}

func (r *Registry) markReady() {
	r.mu.Lock()
	r.ready = true
	r.mu.Unlock()
}

// invoke runs b and converts a panic into a BinderPanicError.
func invoke(b Binder, node scene.Node, scope *Scope) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &BinderPanicError{Node: node.Name(), Value: rec}
		}
	}()
	return b(node, scope)
}
