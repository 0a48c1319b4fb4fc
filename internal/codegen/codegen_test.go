package codegen

import (
	"context"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sghaida/scenedi/internal/discover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// -----------------------------------------------------------------------------
// Fixture module
// -----------------------------------------------------------------------------

var fixture = map[string]string{
	"go.mod": "module example.com/fixture\n\ngo 1.22\n",

	"scene/scene.go": `package scene

type Node interface {
	Name() string
	Children() []Node
}

type Base struct{ kids []Node }

func (b *Base) Name() string     { return "" }
func (b *Base) Children() []Node { return b.kids }
`,

	"di/di.go": `package di

import (
	"reflect"

	"example.com/fixture/scene"
)

type Binder func(scene.Node, *Scope) error

type Registry struct{ m map[reflect.Type]Binder }

var Default = &Registry{m: map[reflect.Type]Binder{}}

func Register[T scene.Node](reg *Registry, b Binder) { reg.m[reflect.TypeFor[T]()] = b }

type Scope struct{}

func Resolve[T any](s *Scope) (T, error) {
	var zero T
	return zero, nil
}

func NewResolutionError(declType, method, paramType string, err error) error { return err }

func NewInvokeError(declType, method string, err error) error { return err }
`,

	"clock/clock.go": `package clock

type Clock interface{ Tick() }
`,

	"other/clock/clock.go": `package clock

type Clock interface{ Tock() }
`,

	"game/game.go": `package game

import (
	"time"

	"example.com/fixture/clock"
	otherclock "example.com/fixture/other/clock"
	"example.com/fixture/scene"
)

type Announcer interface{ Say(string) }

type Player struct{ scene.Base }

//di:inject
func (p *Player) Construct(a Announcer, c clock.Clock) {}

//di:inject
func (p *Player) Setup(o otherclock.Clock, loc *time.Location, tags ...string) error { return nil }

type Arena struct{ scene.Base }

//di:inject
func (a *Arena) Open() {}
`,

	"idle/idle.go": `package idle

import "example.com/fixture/scene"

type Rock struct{ scene.Base }
`,
}

func writeFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range fixture {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return root
}

// fixtureRuntime points generated code at the fixture's own runtime stand-ins so the
// output type-checks inside the fixture module.
var fixtureRuntime = Runtime{DI: "example.com/fixture/di", Scene: "example.com/fixture/scene"}

func discoverFixture(t *testing.T, dir string) *discover.Result {
	t.Helper()
	res, err := discover.Discover(context.Background(), discover.Options{Dir: dir})
	require.NoError(t, err)
	require.Len(t, res.Packages, 1)
	return res
}

func mustParse(t *testing.T, src []byte) {
	t.Helper()
	_, err := parser.ParseFile(token.NewFileSet(), "gen.go", src, parser.AllErrors)
	require.NoError(t, err, string(src))
}

//
// -----------------------------------------------------------------------------
// RenderBinders()
// -----------------------------------------------------------------------------

func TestRenderBinders(t *testing.T) {
	t.Parallel()

	res := discoverFixture(t, writeFixture(t))
	src, err := RenderBinders(res.Packages[0], DefaultRuntime, DefaultBinderRegistrar)
	require.NoError(t, err)
	mustParse(t, src)
	out := string(src)

	assert.True(t, strings.HasPrefix(out, headerLine+"\n// Discovery-SHA256: "))
	assert.Contains(t, out, "package game")

	// imports: runtime pinned, colliding package names aliased
	assert.Contains(t, out, `"github.com/sghaida/scenedi/di"`)
	assert.Contains(t, out, `"github.com/sghaida/scenedi/scene"`)
	assert.Contains(t, out, `"example.com/fixture/clock"`)
	assert.Contains(t, out, `clock2 "example.com/fixture/other/clock"`)
	assert.Contains(t, out, `"time"`)
	assert.NotContains(t, out, `"example.com/fixture/game"`)

	// registration, sorted by type
	assert.Contains(t, out, "func RegisterBinders(reg *di.Registry) {")
	arena := strings.Index(out, "di.Register[*Arena](reg, diBindArena)")
	player := strings.Index(out, "di.Register[*Player](reg, diBindPlayer)")
	require.Positive(t, arena)
	require.Positive(t, player)
	assert.Less(t, arena, player)

	// binder body
	assert.Contains(t, out, "func diBindPlayer(node scene.Node, scope *di.Scope) error {")
	assert.Contains(t, out, "instance, ok := node.(*Player)")
	assert.Contains(t, out, "arg0, err := di.Resolve[Announcer](scope)")
	assert.Contains(t, out, `di.NewResolutionError("game.Player", "Construct", "game.Announcer", err)`)
	assert.Contains(t, out, "arg1, err := di.Resolve[clock.Clock](scope)")
	assert.Contains(t, out, "instance.Construct(arg0, arg1)")

	assert.Contains(t, out, "arg0, err := di.Resolve[clock2.Clock](scope)")
	assert.Contains(t, out, `"game.Player", "Setup", "*time.Location", err`)
	assert.Contains(t, out, "arg2, err := di.Resolve[[]string](scope)")
	assert.Contains(t, out, "if err := instance.Setup(arg0, arg1, arg2...); err != nil {")
	assert.Contains(t, out, `di.NewInvokeError("game.Player", "Setup", err)`)

	assert.Contains(t, out, "instance.Open()")

	// Construct is resolved and called before Setup starts resolving.
	construct := strings.Index(out, "instance.Construct(")
	setup := strings.Index(out, "di.Resolve[clock2.Clock]")
	assert.Less(t, construct, setup)
}

func TestRenderBinders_CustomRegistrarAndRuntime(t *testing.T) {
	t.Parallel()

	res := discoverFixture(t, writeFixture(t))
	rt := Runtime{DI: "example.com/fork/di", Scene: "example.com/fork/scene"}
	src, err := RenderBinders(res.Packages[0], rt, "AddBinders")
	require.NoError(t, err)
	mustParse(t, src)

	assert.Contains(t, string(src), `"example.com/fork/di"`)
	assert.Contains(t, string(src), "func AddBinders(reg *di.Registry)")
}

func TestFingerprint_Stable(t *testing.T) {
	t.Parallel()

	dir := writeFixture(t)
	a := discoverFixture(t, dir)
	b := discoverFixture(t, dir)
	assert.Equal(t, fingerprint(a.Targets()), fingerprint(b.Targets()))
	assert.Len(t, fingerprint(a.Targets()), 64)
	assert.NotEqual(t, fingerprint(a.Targets()), fingerprint(a.Targets()[:1]))
}

//
// -----------------------------------------------------------------------------
// RenderRegistrar()
// -----------------------------------------------------------------------------

func TestRenderRegistrar(t *testing.T) {
	t.Parallel()

	res := discoverFixture(t, writeFixture(t))
	src, err := RenderRegistrar(res, "example.com/fixture/bindings", "bindings", DefaultRuntime, DefaultBinderRegistrar)
	require.NoError(t, err)
	mustParse(t, src)
	out := string(src)

	assert.Contains(t, out, "package bindings")
	assert.Contains(t, out, `"example.com/fixture/game"`)
	assert.Contains(t, out, "func RegisterBindings() {\n\tRegisterBindingsInto(di.Default)\n}")
	assert.Contains(t, out, "func RegisterBindingsInto(reg *di.Registry) {\n\tgame.RegisterBinders(reg)\n}")
}

func TestRenderRegistrar_SamePackage(t *testing.T) {
	t.Parallel()

	res := discoverFixture(t, writeFixture(t))
	src, err := RenderRegistrar(res, "example.com/fixture/game", "game", DefaultRuntime, DefaultBinderRegistrar)
	require.NoError(t, err)
	mustParse(t, src)

	assert.Contains(t, string(src), "\tRegisterBinders(reg)\n")
	assert.NotContains(t, string(src), `"example.com/fixture/game"`)
}

func TestRenderRegistrar_Empty(t *testing.T) {
	t.Parallel()

	src, err := RenderRegistrar(&discover.Result{}, "example.com/x/bindings", "bindings", DefaultRuntime, DefaultBinderRegistrar)
	require.NoError(t, err)
	mustParse(t, src)
	assert.Contains(t, string(src), "func RegisterBindingsInto(reg *di.Registry) {\n}")
}

//
// -----------------------------------------------------------------------------
// Generate()
// -----------------------------------------------------------------------------

func TestGenerate_WritesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := writeFixture(t)
	opts := Options{Dir: dir, Runtime: fixtureRuntime, Registrar: RegistrarOptions{Dir: "bindings"}}

	rep, err := Generate(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Targets)

	binders := filepath.Join(dir, "game", discover.DefaultGeneratedFile)
	registrar := filepath.Join(dir, "bindings", DefaultRegistrarFile)
	assert.ElementsMatch(t, []string{binders, registrar}, rep.Written)
	assert.FileExists(t, binders)
	assert.FileExists(t, registrar)
	assert.NoFileExists(t, filepath.Join(dir, "idle", discover.DefaultGeneratedFile))

	reg, err := os.ReadFile(registrar)
	require.NoError(t, err)
	assert.Contains(t, string(reg), "package bindings")
	assert.Contains(t, string(reg), "game.RegisterBinders(reg)")

	again, err := Generate(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, again.Written)
	assert.ElementsMatch(t, []string{binders, registrar}, again.Unchanged)
	assert.Equal(t, "2 targets, 0 written, 2 unchanged", again.Summary())

	// The generated files type-check: a strict load reports no errors.
	strict, err := discover.Discover(context.Background(), discover.Options{Dir: dir, GeneratedFile: "none.go"})
	require.NoError(t, err)
	assert.Len(t, strict.Targets(), 2)
}

func TestGenerate_DryRunWritesNothing(t *testing.T) {
	t.Parallel()

	dir := writeFixture(t)
	rep, err := Generate(context.Background(), Options{
		Dir:       dir,
		Runtime:   fixtureRuntime,
		DryRun:    true,
		Registrar: RegistrarOptions{Dir: "bindings"},
	})
	require.NoError(t, err)
	assert.Len(t, rep.Written, 2)
	assert.NoFileExists(t, filepath.Join(dir, "game", discover.DefaultGeneratedFile))
	assert.NoDirExists(t, filepath.Join(dir, "bindings"))
}

func TestGenerate_RemovesStaleBinders(t *testing.T) {
	t.Parallel()

	dir := writeFixture(t)
	stale := filepath.Join(dir, "idle", discover.DefaultGeneratedFile)
	require.NoError(t, os.WriteFile(stale, []byte(headerLine+"\n\npackage idle\n\nvar _ = diBindGone\n"), 0o644))

	handWritten := filepath.Join(dir, "clock", discover.DefaultGeneratedFile)
	require.NoError(t, os.WriteFile(handWritten, []byte("package clock\n"), 0o644))

	rep, err := Generate(context.Background(), Options{Dir: dir, Runtime: fixtureRuntime})
	require.NoError(t, err)
	assert.Equal(t, []string{stale}, rep.Removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, handWritten)
}

func TestGenerate_RegistrarPackageMismatch(t *testing.T) {
	t.Parallel()

	dir := writeFixture(t)
	_, err := Generate(context.Background(), Options{
		Dir:       dir,
		Registrar: RegistrarOptions{Dir: "game", Package: "bindings"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match game")
}

func TestOptionsDefaults(t *testing.T) {
	t.Parallel()

	o, err := Options{Dir: "/w", Registrar: RegistrarOptions{Dir: "internal/wiring"}}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, discover.DefaultGeneratedFile, o.BinderFile)
	assert.Equal(t, DefaultBinderRegistrar, o.BinderRegistrar)
	assert.Equal(t, DefaultRuntime, o.Runtime)
	assert.Equal(t, filepath.Join("/w", "internal/wiring"), o.Registrar.Dir)
	assert.Equal(t, "wiring", o.Registrar.Package)
	assert.Equal(t, DefaultRegistrarFile, o.Registrar.File)
	assert.NotNil(t, o.Logger)
}

//
// -----------------------------------------------------------------------------
// imports
// -----------------------------------------------------------------------------

func TestImportSet(t *testing.T) {
	t.Parallel()

	set := newImportSet("example.com/self", "err")
	set.pin("example.com/rt/di", "di", "di")

	assert.Equal(t, "", set.add("example.com/self", "self"))
	assert.Equal(t, "clock", set.add("example.com/a/clock", "clock"))
	assert.Equal(t, "clock", set.add("example.com/a/clock", "clock"))
	assert.Equal(t, "clock2", set.add("example.com/b/clock", "clock"))
	assert.Equal(t, "di2", set.add("example.com/other/di", "di"))
	assert.Equal(t, "err2", set.add("example.com/err", "err"))

	assert.Equal(t, []GoImport{
		{Path: "example.com/a/clock"},
		{Name: "clock2", Path: "example.com/b/clock"},
		{Name: "err2", Path: "example.com/err"},
		{Name: "di2", Path: "example.com/other/di"},
		{Path: "example.com/rt/di"},
	}, set.list())
}

func TestDisplay(t *testing.T) {
	t.Parallel()

	pkg := types.NewPackage("example.com/deep/arena", "arena")
	named := types.NewNamed(types.NewTypeName(token.NoPos, pkg, "Announcer", nil), types.NewInterfaceType(nil, nil), nil)
	assert.Equal(t, "arena.Announcer", display(named))
	assert.Equal(t, "*arena.Announcer", display(types.NewPointer(named)))
}

func TestDedupeAndSortImports(t *testing.T) {
	t.Parallel()

	got := dedupeAndSortImports([]GoImport{
		{Path: "b"}, {Path: "a"}, {Path: "b"}, {Name: "x", Path: "a"},
	})
	assert.Equal(t, []GoImport{{Path: "a"}, {Name: "x", Path: "a"}, {Path: "b"}}, got)
}
