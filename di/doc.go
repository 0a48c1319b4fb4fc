// Package di is the runtime half of scenedi: scope-aware injection into the nodes of a
// live scene tree.
//
// It has three parts:
//
//   - Scope: a nested resolution container backed by go.uber.org/dig. A nested scope
//     sees everything its ancestors provide and may shadow any of it.
//   - Registry: a process-wide table from exact node type to Binder. Binders are not
//     written by hand; cmd/injectgen generates one per type that has methods marked
//     with the //di:inject directive, plus a RegisterBindings registrar.
//   - Installer: walks a Context's subtree with an explicit stack, invokes the binder of
//     each node with the scope of its nearest enclosing Context, and opens a nested
//     scope whenever it reaches another Context.
//
// Startup
//
//	c := dig.New()
//	_ = c.Provide(NewClock)
//	root, err := di.Setup(c, bindings.RegisterBindings)
//	if err != nil {
//		// handle
//	}
//
// Activation
//
//	if err := di.Install(level, root); err != nil {
//		// a *di.ResolutionError names the type, method and missing parameter type
//	}
//
// There is no reflection-based discovery at runtime: reflection only supplies the
// reflect.Type used as the registry key and the nil check on contexts.
//
// Everything except the Registry assumes the single goroutine that owns the scene tree.
package di
