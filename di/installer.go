package di

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sghaida/scenedi/internal/logging"
	"github.com/sghaida/scenedi/scene"
)

// Installer attaches scopes to scope contexts and runs the registered binders over
// their subtrees.
type Installer struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the installer's logger. Passes and scope replacement log at debug.
func WithLogger(l *slog.Logger) Option {
	return func(in *Installer) { in.logger = logging.OrNop(l) }
}

// WithMetrics makes the installer record into m.
func WithMetrics(m *Metrics) Option {
	return func(in *Installer) { in.metrics = m }
}

// NewInstaller returns an installer reading binders from reg (Default when nil).
func NewInstaller(reg *Registry, opts ...Option) *Installer {
	if reg == nil {
		reg = Default
	}
	in := &Installer{registry: reg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Install attaches scope to ctx and injects ctx's subtree.
//
// If ctx already owns a different scope, that scope is closed first (with its nested
// scopes) and replaced. Installing the same scope again re-runs the injection.
func (in *Installer) Install(ctx Context, scope *Scope) error {
	if isNilContext(ctx) {
		return ErrNilContext
	}
	if scope == nil {
		return ErrNilScope
	}
	if scope.Closed() {
		return ErrScopeClosed
	}
	if !in.registry.Ready() {
		return ErrRegistryNotReady
	}
	in.attach(ctx, scope)
	return in.run(ctx)
}

// InjectSubtree injects ctx's subtree using the scope already attached to ctx.
func (in *Installer) InjectSubtree(ctx Context) error {
	if isNilContext(ctx) {
		return ErrNilContext
	}
	if ctx.LifetimeScope() == nil {
		return ErrScopeNotInstalled
	}
	if !in.registry.Ready() {
		return ErrRegistryNotReady
	}
	return in.run(ctx)
}

func (in *Installer) attach(ctx Context, scope *Scope) {
	old := ctx.LifetimeScope()
	if old != nil && old != scope {
		if err := old.Close(); err != nil {
			in.logger.Warn("closing replaced scope failed", "scope", old.Path(), "err", err)
		}
		in.logger.Debug("scope replaced", "context", ctx.Name(), "old", old.Path(), "new", scope.Path())
	}
	ctx.attachScope(scope)
}

// pass is one context's traversal: its scope and the nodes still to visit.
type pass struct {
	ctx   Context
	scope *Scope
	work  []scene.Node
}

// run drives every pass reachable from root with explicit stacks only. A nested
// context's pass is pushed when its parent pass reaches it, so it completes before
// the rest of the parent pass resumes.
func (in *Installer) run(root Context) (err error) {
	start := time.Now()
	defer func() { in.metrics.observe(start, err) }()

	seen := map[scene.Node]struct{}{}
	passes := []*pass{in.beginPass(root)}
	injected := 0

	for len(passes) > 0 {
		p := passes[len(passes)-1]
		if len(p.work) == 0 {
			passes = passes[:len(passes)-1]
			in.logger.Debug("pass complete", "context", p.ctx.Name(), "scope", p.scope.Path())
			continue
		}

		node := p.work[len(p.work)-1]
		p.work = p.work[:len(p.work)-1]
		if _, dup := seen[node]; dup {
			continue
		}
		seen[node] = struct{}{}

		if binder, ok := in.registry.Lookup(node); ok {
			if err := invoke(binder, node, p.scope); err != nil {
				in.logger.Debug("pass aborted", "context", p.ctx.Name(), "node", node.Name(), "err", err)
				return err
			}
			injected++
			in.metrics.nodeInjected()
		}

		var plain []scene.Node
		var nested []*pass
		for _, child := range node.Children() {
			if child == nil {
				continue
			}
			childCtx, ok := child.(Context)
			if !ok {
				plain = append(plain, child)
				continue
			}
			if _, dup := seen[child]; dup {
				continue
			}
			childScope, err := p.scope.BeginNestedScope(scopeName(childCtx), childCtx.InstallBindings)
			if err != nil {
				return err
			}
			in.metrics.scopeCreated()
			in.attach(childCtx, childScope)
			nested = append(nested, in.beginPass(childCtx))
		}
		// Both stacks pop from the end; push in reverse to keep declaration order.
		for i := len(plain) - 1; i >= 0; i-- {
			p.work = append(p.work, plain[i])
		}
		for i := len(nested) - 1; i >= 0; i-- {
			passes = append(passes, nested[i])
		}
	}

	in.logger.Debug("install complete", "context", root.Name(), "injected", injected)
	return nil
}

func (in *Installer) beginPass(ctx Context) *pass {
	in.metrics.pass()
	in.logger.Debug("pass started", "context", ctx.Name(), "scope", ctx.LifetimeScope().Path())
	return &pass{ctx: ctx, scope: ctx.LifetimeScope(), work: []scene.Node{ctx}}
}

func scopeName(ctx Context) string {
	if n := ctx.Name(); n != "" {
		return n
	}
	return fmt.Sprintf("%T", ctx)
}

var defaultInstaller = NewInstaller(Default)

// Install runs Installer.Install against Default.
func Install(ctx Context, scope *Scope) error {
	return defaultInstaller.Install(ctx, scope)
}

// InjectSubtree runs Installer.InjectSubtree against Default.
func InjectSubtree(ctx Context) error {
	return defaultInstaller.InjectSubtree(ctx)
}
