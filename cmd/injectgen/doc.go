// Command injectgen generates the injection binders used by the di runtime.
//
// Mark a method of a scene node type for injection with a directive comment:
//
//	//di:inject
//	func (p *Player) Construct(clock Clock, roster *Roster) { ... }
//
// Then run, usually through go:generate:
//
//	injectgen generate ./...
//
// Every package with marked methods gets a zz_di_binders.gen.go file holding one
// binder per type and a RegisterBinders function. With a registrar directory
// configured, injectgen also writes registrar.gen.go exposing RegisterBindings,
// the zero-argument function passed to di.Setup at startup.
//
// Settings are read from injectgen.yaml in the working directory when present:
//
//	patterns: ["./..."]
//	marker: //di:inject
//	tags: []
//	binderFile: zz_di_binders.gen.go
//	binderRegistrar: RegisterBinders
//	registrar:
//	  dir: bindings
//	  package: bindings
//	  file: registrar.gen.go
//	runtime:
//	  di: github.com/sghaida/scenedi/di
//	  scene: github.com/sghaida/scenedi/scene
//
// Flags override file values. "injectgen list" prints what would be generated.
// Exit codes: 0 success, 1 failure, 2 bad flags or arguments.
package main
