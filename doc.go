// Package scenedi provides scope-aware dependency injection for live scene graphs.
//
// Nodes mark the methods that should receive dependencies with a directive comment:
//
//	//di:inject
//	func (p *Player) Construct(a Announcer, r *Roster) { ... }
//
// Injection happens in two phases:
//
//   - build time: cmd/injectgen discovers marked methods across the module and writes
//     typed binders plus one aggregate registrar (no runtime reflection scanning)
//   - run time: di.Setup wraps the root container and runs the registrar, then
//     di.Install walks a scene, opening a nested scope at every di.Context and
//     calling each node's binder with the nearest scope
//
// See subpackages:
//   - di: registry, scopes and the scope tree installer
//   - scene: nodes, the deferred-call loop, the tree and the scene controller
//   - cmd/injectgen: the binder generator
//   - examples/arena: an end-to-end example with generated binders
package scenedi
