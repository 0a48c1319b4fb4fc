package di

import (
	"errors"
	"strings"

	"go.uber.org/dig"
)

// container is the slice of dig shared by *dig.Container and *dig.Scope.
type container interface {
	Provide(constructor interface{}, opts ...dig.ProvideOption) error
	Invoke(function interface{}, opts ...dig.InvokeOption) error
	Scope(name string, opts ...dig.ScopeOption) *dig.Scope
}

// Scope is a nested resolution container. The root scope wraps the finalized dig
// container; every nested scope wraps a dig child scope, so a type provided in a
// nested scope shadows the same type provided by any ancestor.
//
// A Scope is owned by exactly one Context (the root scope by the caller of Setup)
// and is not safe for concurrent use.
type Scope struct {
	name     string
	c        container
	parent   *Scope
	children []*Scope
	onClose  []func() error
	closed   bool
}

// NewRootScope wraps a finalized dig container.
func NewRootScope(c *dig.Container) *Scope {
	return &Scope{name: "root", c: c}
}

// Name returns the scope name.
func (s *Scope) Name() string { return s.name }

// Parent returns the enclosing scope, or nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Children returns the live nested scopes in creation order.
func (s *Scope) Children() []*Scope {
	out := make([]*Scope, len(s.children))
	copy(out, s.children)
	return out
}

// Closed reports whether Close has run.
func (s *Scope) Closed() bool { return s.closed }

// Path returns the slash-separated names from the root to s.
func (s *Scope) Path() string {
	var parts []string
	for cur := s; cur != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// BindingsFunc declares the additional services of a nested scope.
type BindingsFunc func(b *Bindings) error

// BeginNestedScope creates a child scope and runs declare against it before anything
// can be resolved from it.
func (s *Scope) BeginNestedScope(name string, declare BindingsFunc) (*Scope, error) {
	if s.closed {
		return nil, ErrScopeClosed
	}
	child := &Scope{name: name, c: s.c.Scope(name), parent: s}
	if declare != nil {
		if err := declare(&Bindings{scope: child}); err != nil {
			_ = child.close(false)
			return nil, &ProvideError{Scope: name, Cause: err}
		}
	}
	s.children = append(s.children, child)
	return child, nil
}

// Resolve returns the T visible from s, searching s first and then its ancestors.
func Resolve[T any](s *Scope) (T, error) {
	var out T
	if s == nil {
		return out, ErrNilScope
	}
	if s.closed {
		return out, ErrScopeClosed
	}
	err := s.c.Invoke(func(v T) { out = v })
	return out, err
}

// MustResolve is Resolve that panics on failure. Useful in examples and tests.
func MustResolve[T any](s *Scope) T {
	v, err := Resolve[T](s)
	if err != nil {
		panic(err)
	}
	return v
}

// Close disposes s: nested scopes first, most recent first, then s's own close hooks
// in reverse registration order. Close is idempotent; all hook errors are joined.
//
// dig cannot remove a child scope from its parent, so the underlying *dig.Scope of
// a closed nested scope stays reachable from the root container. A host that swaps
// scenes for the life of the process should keep scene-level services small, or give
// each scene a fresh root container built with NewRootScope.
func (s *Scope) Close() error {
	return s.close(true)
}

func (s *Scope) close(detach bool) error {
	if s.closed {
		return nil
	}
	var errs []error
	for i := len(s.children) - 1; i >= 0; i-- {
		if err := s.children[i].close(false); err != nil {
			errs = append(errs, err)
		}
	}
	s.children = nil

	for i := len(s.onClose) - 1; i >= 0; i-- {
		if err := s.onClose[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.onClose = nil
	s.closed = true

	if detach && s.parent != nil {
		s.parent.detach(s)
	}
	return errors.Join(errs...)
}

func (s *Scope) detach(child *Scope) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// Bindings is handed to a BindingsFunc to register a nested scope's services.
type Bindings struct {
	scope *Scope
}

// Scope returns the scope being declared.
func (b *Bindings) Scope() *Scope { return b.scope }

// Provide registers a dig constructor in the scope.
func (b *Bindings) Provide(constructor interface{}, opts ...dig.ProvideOption) error {
	return b.scope.c.Provide(constructor, opts...)
}

// OnClose registers fn to run when the scope is closed.
func (b *Bindings) OnClose(fn func() error) {
	if fn != nil {
		b.scope.onClose = append(b.scope.onClose, fn)
	}
}

// Supply registers a ready value of type T in the scope.
func Supply[T any](b *Bindings, v T) error {
	return b.Provide(func() T { return v })
}
