package di_test

import (
	"errors"
	"testing"

	"github.com/sghaida/scenedi/di"
	"github.com/sghaida/scenedi/scene"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"
)

//
// -----------------------------------------------------------------------------
// Services
// -----------------------------------------------------------------------------

type Service interface{ ID() string }

type namedService struct{ id string }

func (s namedService) ID() string { return s.id }

type Other struct{ Tag string }

type Missing interface{ Nope() }

//
// -----------------------------------------------------------------------------
// Nodes
// -----------------------------------------------------------------------------

// level is a scope context whose bindings come from a closure.
type level struct {
	di.ContextBase
	bind func(b *di.Bindings) error
	got  []string
}

func newLevel(name string, bind func(b *di.Bindings) error) *level {
	return &level{ContextBase: di.NewContextBase(name), bind: bind}
}

func (l *level) InstallBindings(b *di.Bindings) error {
	if l.bind == nil {
		return nil
	}
	return l.bind(b)
}

func (l *level) Construct(s Service) { l.got = append(l.got, s.ID()) }

// actor has one marked method taking Service.
type actor struct {
	scene.Base
	got   []string
	calls int
}

func newActor(name string) *actor { return &actor{Base: scene.NewBase(name)} }

func (a *actor) Construct(s Service) {
	a.got = append(a.got, s.ID())
	a.calls++
}

// dual has two marked methods, M1 then M2.
type dual struct {
	scene.Base
	order []string
	svc   Service
	other *Other
}

func (d *dual) M1(s Service) {
	d.order = append(d.order, "M1")
	d.svc = s
}

func (d *dual) M2(o *Other) {
	d.order = append(d.order, "M2")
	d.other = o
}

// needy asks for a type nothing provides.
type needy struct{ scene.Base }

func (n *needy) Construct(Missing) {}

// faulty returns an error from its marked method.
type faulty struct{ scene.Base }

func (f *faulty) Setup(Service) error { return errors.New("setup exploded") }

// panicky panics inside its marked method.
type panicky struct{ scene.Base }

func (p *panicky) Construct(Service) { panic("boom") }

// plain has no marked methods.
type plain struct{ scene.Base }

func newPlain(name string) *plain { return &plain{Base: scene.NewBase(name)} }

//
// -----------------------------------------------------------------------------
// Binders, written the way cmd/injectgen emits them
// -----------------------------------------------------------------------------

func bindLevel(node scene.Node, scope *di.Scope) error {
	instance, ok := node.(*level)
	if !ok {
		return nil
	}
	arg0, err := di.Resolve[Service](scope)
	if err != nil {
		return di.NewResolutionError("di_test.level", "Construct", "di_test.Service", err)
	}
	instance.Construct(arg0)
	return nil
}

func bindActor(node scene.Node, scope *di.Scope) error {
	instance, ok := node.(*actor)
	if !ok {
		return nil
	}
	arg0, err := di.Resolve[Service](scope)
	if err != nil {
		return di.NewResolutionError("di_test.actor", "Construct", "di_test.Service", err)
	}
	instance.Construct(arg0)
	return nil
}

func bindDual(node scene.Node, scope *di.Scope) error {
	instance, ok := node.(*dual)
	if !ok {
		return nil
	}
	{
		arg0, err := di.Resolve[Service](scope)
		if err != nil {
			return di.NewResolutionError("di_test.dual", "M1", "di_test.Service", err)
		}
		instance.M1(arg0)
	}
	{
		arg0, err := di.Resolve[*Other](scope)
		if err != nil {
			return di.NewResolutionError("di_test.dual", "M2", "*di_test.Other", err)
		}
		instance.M2(arg0)
	}
	return nil
}

func bindNeedy(node scene.Node, scope *di.Scope) error {
	instance, ok := node.(*needy)
	if !ok {
		return nil
	}
	arg0, err := di.Resolve[Missing](scope)
	if err != nil {
		return di.NewResolutionError("di_test.needy", "Construct", "di_test.Missing", err)
	}
	instance.Construct(arg0)
	return nil
}

func bindFaulty(node scene.Node, scope *di.Scope) error {
	instance, ok := node.(*faulty)
	if !ok {
		return nil
	}
	arg0, err := di.Resolve[Service](scope)
	if err != nil {
		return di.NewResolutionError("di_test.faulty", "Setup", "di_test.Service", err)
	}
	if err := instance.Setup(arg0); err != nil {
		return di.NewInvokeError("di_test.faulty", "Setup", err)
	}
	return nil
}

func bindPanicky(node scene.Node, scope *di.Scope) error {
	instance, ok := node.(*panicky)
	if !ok {
		return nil
	}
	arg0, err := di.Resolve[Service](scope)
	if err != nil {
		return di.NewResolutionError("di_test.panicky", "Construct", "di_test.Service", err)
	}
	instance.Construct(arg0)
	return nil
}

func registerTestBinders(reg *di.Registry) {
	di.Register[*level](reg, bindLevel)
	di.Register[*actor](reg, bindActor)
	di.Register[*dual](reg, bindDual)
	di.Register[*needy](reg, bindNeedy)
	di.Register[*faulty](reg, bindFaulty)
	di.Register[*panicky](reg, bindPanicky)
}

//
// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// readyRegistry returns a populated registry holding every test binder.
func readyRegistry(t *testing.T) *di.Registry {
	t.Helper()
	reg := di.NewRegistry()
	reg.Populate(registerTestBinders)
	return reg
}

// rootScope returns a root scope whose container provides Service with the given id.
func rootScope(t *testing.T, serviceID string) *di.Scope {
	t.Helper()
	c := dig.New()
	if serviceID != "" {
		require.NoError(t, c.Provide(func() Service { return namedService{id: serviceID} }))
	}
	return di.NewRootScope(c)
}

// supplyService returns a bindings function that binds Service to id.
func supplyService(id string) func(b *di.Bindings) error {
	return func(b *di.Bindings) error {
		return di.Supply[Service](b, namedService{id: id})
	}
}
