// Package discover finds the injection targets of a set of Go packages: methods whose
// doc comment carries the injection marker, grouped by their declaring type.
//
// Discovery is static. It loads fully type-checked packages through
// golang.org/x/tools/go/packages and inspects declarations; nothing is executed.
package discover

import (
	"context"
	"errors"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sghaida/scenedi/internal/logging"
	"golang.org/x/tools/go/packages"
)

const (
	// DefaultMarker is the directive comment that selects a method.
	DefaultMarker = "//di:inject"

	// DefaultGeneratedFile is the per-package binder file name written by injectgen.
	DefaultGeneratedFile = "zz_di_binders.gen.go"
)

// Options controls a discovery run.
type Options struct {
	// Dir is the directory patterns are resolved from. Empty means the process
	// working directory.
	Dir string

	// Patterns are go/packages patterns. Empty means "./...".
	Patterns []string

	// Marker is the full directive comment text, e.g. "//di:inject".
	Marker string

	// Tags are build tags passed to the loader.
	Tags []string

	// GeneratedFile is the name of previously generated binder files. Load errors
	// confined to such files are tolerated, and the files are never scanned.
	GeneratedFile string

	// TolerateFiles lists further file names whose load errors are tolerated,
	// such as the aggregate registrar.
	TolerateFiles []string

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if len(o.Patterns) == 0 {
		o.Patterns = []string{"./..."}
	}
	if strings.TrimSpace(o.Marker) == "" {
		o.Marker = DefaultMarker
	}
	if o.GeneratedFile == "" {
		o.GeneratedFile = DefaultGeneratedFile
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// ErrNoPackages is returned when the patterns match nothing.
var ErrNoPackages = errors.New("discover: patterns matched no packages")

// LoadError reports a package that failed to load or type-check.
type LoadError struct {
	Package string
	Errors  []packages.Error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	msg := "discover: package " + e.Package + " has errors"
	for _, pe := range e.Errors {
		msg += "\n\t" + pe.Error()
	}
	return msg
}

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo

// Discover loads the packages matched by opts and returns every injection target.
func Discover(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     opts.Dir,
		Fset:    token.NewFileSet(),
	}
	if len(opts.Tags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(opts.Tags, ",")}
	}

	pkgs, err := packages.Load(cfg, opts.Patterns...)
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, ErrNoPackages
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].PkgPath < pkgs[j].PkgPath })

	res := &Result{}
	for _, pkg := range pkgs {
		if err := checkLoadErrors(pkg, opts); err != nil {
			return nil, err
		}
		scanned := scanPackage(pkg, cfg.Fset, opts, res)
		res.Scanned = append(res.Scanned, scanned)
		if len(scanned.Targets) > 0 {
			res.Packages = append(res.Packages, scanned)
		}
	}

	for _, s := range res.Skipped {
		opts.Logger.Warn("injection method skipped",
			"pos", s.Pos.String(), "type", s.Type, "method", s.Method, "reason", s.Reason)
	}
	opts.Logger.Debug("discovery complete",
		"packages", len(res.Scanned), "targets", len(res.Targets()), "skipped", len(res.Skipped))
	return res, nil
}

// checkLoadErrors fails on any error outside previously generated binder files.
func checkLoadErrors(pkg *packages.Package, opts Options) error {
	if len(pkg.Errors) == 0 {
		return nil
	}
	tolerated := append([]string{opts.GeneratedFile}, opts.TolerateFiles...)
	var fatal []packages.Error
	for _, pe := range pkg.Errors {
		if inGeneratedFile(pe, tolerated...) {
			opts.Logger.Info("ignoring error in generated file", "package", pkg.PkgPath, "err", pe.Msg)
			continue
		}
		fatal = append(fatal, pe)
	}
	if len(fatal) > 0 {
		return &LoadError{Package: pkg.PkgPath, Errors: fatal}
	}
	return nil
}

// inGeneratedFile reports whether pe is confined to files named in names.
//
// Errors without a position carry the compiler output of go list, one
// "file:line:col: msg" per line; such an error is confined when every file it
// quotes is.
func inGeneratedFile(pe packages.Error, names ...string) bool {
	if pe.Pos != "" && pe.Pos != "-" {
		return isNamed(posFile(pe.Pos), names)
	}
	quoted := false
	for _, line := range strings.Split(pe.Msg, "\n") {
		// "# pkg" headers and indented continuations.
		if line == "" || strings.HasPrefix(line, "#") || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		if strings.TrimSpace(line) == "too many errors" {
			continue
		}
		file, ok := quotedFile(line)
		if !ok || !isNamed(file, names) {
			return false
		}
		quoted = true
	}
	return quoted
}

// posFile strips ":line:col" or ":line" from a position.
func posFile(pos string) string {
	file := pos
	for i := 0; i < 2; i++ {
		if idx := strings.LastIndexByte(file, ':'); idx > 0 {
			file = file[:idx]
		}
	}
	return file
}

// quotedFile returns the Go file a compiler line such as
// "game/zz_di_binders.gen.go:3:9: undefined: x" points at.
func quotedFile(line string) (string, bool) {
	idx := strings.Index(line, ".go:")
	if idx < 0 {
		return "", false
	}
	rest := line[idx+len(".go:"):]
	if rest == "" || rest[0] < '0' || rest[0] > '9' {
		return "", false
	}
	return line[:idx+len(".go")], true
}

func isNamed(file string, names []string) bool {
	base := filepath.Base(file)
	for _, name := range names {
		if name != "" && base == name {
			return true
		}
	}
	return false
}

func scanPackage(pkg *packages.Package, fset *token.FileSet, opts Options, res *Result) *Package {
	out := &Package{
		Path:  pkg.PkgPath,
		Name:  pkg.Name,
		Types: pkg.Types,
	}
	if len(pkg.GoFiles) > 0 {
		out.Dir = filepath.Dir(pkg.GoFiles[0])
	}
	if pkg.TypesInfo == nil {
		return out
	}

	files := make([]*ast.File, len(pkg.Syntax))
	copy(files, pkg.Syntax)
	sort.SliceStable(files, func(i, j int) bool {
		return fset.File(files[i].Pos()).Name() < fset.File(files[j].Pos()).Name()
	})

	byType := map[*types.TypeName]*Target{}
	for _, file := range files {
		if filepath.Base(fset.File(file.Pos()).Name()) == opts.GeneratedFile {
			continue
		}
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || !hasMarker(fn.Doc, opts.Marker) {
				continue
			}
			m, named, reason := inspect(fn, pkg)
			if reason != "" {
				res.Skipped = append(res.Skipped, Skipped{
					Pos:    fset.Position(fn.Pos()),
					Type:   receiverName(fn),
					Method: fn.Name.Name,
					Reason: reason,
				})
				continue
			}
			m.Pos = fset.Position(fn.Pos())

			obj := named.Obj()
			t, ok := byType[obj]
			if !ok {
				t = &Target{Package: out, Name: obj.Name(), Named: named}
				byType[obj] = t
				out.Targets = append(out.Targets, t)
			}
			t.Methods = append(t.Methods, m)
		}
	}
	sort.SliceStable(out.Targets, func(i, j int) bool { return out.Targets[i].Name < out.Targets[j].Name })
	return out
}

// hasMarker reports whether doc contains marker as a whole comment line.
func hasMarker(doc *ast.CommentGroup, marker string) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if strings.TrimRight(c.Text, " \t") == marker {
			return true
		}
	}
	return false
}

func receiverName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}
