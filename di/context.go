package di

import (
	"errors"
	"reflect"

	"github.com/sghaida/scenedi/scene"
	"go.uber.org/dig"
)

// Context is a scene node that owns a scope boundary. Its subtree resolves from the
// context's own scope, which is nested under the scope of the nearest enclosing
// Context.
//
// Implementations embed ContextBase and provide InstallBindings:
//
//	type Team struct {
//		di.ContextBase
//	}
//
//	func (t *Team) InstallBindings(b *di.Bindings) error {
//		return di.Supply[Announcer](b, teamAnnouncer{team: t.Name()})
//	}
type Context interface {
	scene.Node

	// InstallBindings declares the services this context adds for its subtree.
	InstallBindings(b *Bindings) error

	// LifetimeScope returns the attached scope, or nil before installation.
	LifetimeScope() *Scope

	attachScope(s *Scope)
}

// ContextBase is the embeddable part of every Context.
type ContextBase struct {
	scene.Base
	scope *Scope
}

// NewContextBase returns a ContextBase with the given node name.
func NewContextBase(name string) ContextBase {
	return ContextBase{Base: scene.NewBase(name)}
}

// LifetimeScope returns the attached scope.
func (c *ContextBase) LifetimeScope() *Scope { return c.scope }

func (c *ContextBase) attachScope(s *Scope) { c.scope = s }

// isNilContext reports whether ctx is nil or holds a nil pointer.
func isNilContext(ctx Context) bool {
	if ctx == nil {
		return true
	}
	v := reflect.ValueOf(ctx)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// ErrNilContainer is returned by Setup without a container.
var ErrNilContainer = errors.New("di: nil container")

// Setup is the startup phase: it wraps the finalized root container into the root
// scope and then runs the generated registrar, which fills Default. It must complete
// before the first Install.
func Setup(c *dig.Container, registrar func()) (*Scope, error) {
	return SetupRegistry(Default, c, func(*Registry) {
		if registrar != nil {
			registrar()
		}
	})
}

// SetupRegistry is Setup for an explicit registry.
func SetupRegistry(reg *Registry, c *dig.Container, registrar func(*Registry)) (*Scope, error) {
	if c == nil {
		return nil, ErrNilContainer
	}
	root := NewRootScope(c)
	reg.Populate(registrar)
	return root, nil
}

// Dispose closes ctx's scope (and, through it, every nested scope) and detaches it
// from ctx. Call it when ctx leaves the tree.
func Dispose(ctx Context) error {
	if isNilContext(ctx) {
		return ErrNilContext
	}
	s := ctx.LifetimeScope()
	if s == nil {
		return nil
	}
	ctx.attachScope(nil)
	return s.Close()
}
