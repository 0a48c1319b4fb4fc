// Package codegen turns discovery results into Go source: one binder file per package
// with injection targets and one aggregate registrar.
package codegen

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sghaida/scenedi/internal/discover"
	"github.com/sghaida/scenedi/internal/logging"
)

const (
	// DefaultBinderRegistrar is the per-package registration function name.
	DefaultBinderRegistrar = "RegisterBinders"

	// DefaultRegistrarFile is the aggregate registrar file name.
	DefaultRegistrarFile = "registrar.gen.go"
)

// RegistrarOptions places the aggregate registrar.
type RegistrarOptions struct {
	// Dir is the registrar package directory, relative to Options.Dir unless absolute.
	// Empty disables the registrar.
	Dir string `yaml:"dir"`

	// Package is the package clause; defaults to the base name of Dir.
	Package string `yaml:"package"`

	// File defaults to DefaultRegistrarFile.
	File string `yaml:"file"`
}

// Options configures Generate.
type Options struct {
	Dir             string
	Patterns        []string
	Marker          string
	Tags            []string
	BinderFile      string
	BinderRegistrar string
	Registrar       RegistrarOptions
	Runtime         Runtime

	// DryRun renders everything but writes and removes nothing.
	DryRun bool

	Logger *slog.Logger
}

func (o Options) withDefaults() (Options, error) {
	if o.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return o, err
		}
		o.Dir = wd
	}
	if o.BinderFile == "" {
		o.BinderFile = discover.DefaultGeneratedFile
	}
	if o.BinderRegistrar == "" {
		o.BinderRegistrar = DefaultBinderRegistrar
	}
	if o.Runtime.DI == "" {
		o.Runtime.DI = DefaultRuntime.DI
	}
	if o.Runtime.Scene == "" {
		o.Runtime.Scene = DefaultRuntime.Scene
	}
	if o.Registrar.Dir != "" {
		if !filepath.IsAbs(o.Registrar.Dir) {
			o.Registrar.Dir = filepath.Join(o.Dir, o.Registrar.Dir)
		}
		if o.Registrar.Package == "" {
			o.Registrar.Package = filepath.Base(o.Registrar.Dir)
		}
		if o.Registrar.File == "" {
			o.Registrar.File = DefaultRegistrarFile
		}
	}
	o.Logger = logging.OrNop(o.Logger)
	return o, nil
}

// Report describes what a Generate run did.
type Report struct {
	Written   []string
	Unchanged []string
	Removed   []string
	Skipped   []discover.Skipped
	Targets   int
}

// Generate discovers targets and writes binder files and the registrar.
func Generate(ctx context.Context, opts Options) (*Report, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	res, err := discover.Discover(ctx, discover.Options{
		Dir:           opts.Dir,
		Patterns:      opts.Patterns,
		Marker:        opts.Marker,
		Tags:          opts.Tags,
		GeneratedFile: opts.BinderFile,
		TolerateFiles: []string{opts.Registrar.File},
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	rep := &Report{Skipped: res.Skipped, Targets: len(res.Targets())}

	for _, pkg := range res.Packages {
		if pkg.Dir == "" {
			return nil, &genError{msg: "package " + pkg.Path + " has no directory"}
		}
		src, err := RenderBinders(pkg, opts.Runtime, opts.BinderRegistrar)
		if err != nil {
			return nil, err
		}
		if err := emit(filepath.Join(pkg.Dir, opts.BinderFile), src, opts, rep); err != nil {
			return nil, err
		}
	}

	if err := removeStale(res, opts, rep); err != nil {
		return nil, err
	}

	if opts.Registrar.Dir != "" {
		if err := emitRegistrar(res, opts, rep); err != nil {
			return nil, err
		}
	}

	opts.Logger.Info("generation complete",
		"targets", rep.Targets,
		"written", len(rep.Written),
		"unchanged", len(rep.Unchanged),
		"removed", len(rep.Removed),
		"skipped", len(rep.Skipped))
	return rep, nil
}

func emitRegistrar(res *discover.Result, opts Options, rep *Report) error {
	modRoot, modPath, err := findModule(opts.Registrar.Dir)
	if err != nil {
		return fmt.Errorf("registrar: %w", err)
	}
	importPath, err := moduleImportPathForDir(modRoot, modPath, opts.Registrar.Dir)
	if err != nil {
		return fmt.Errorf("registrar: %w", err)
	}
	for _, p := range res.Packages {
		if p.Path == importPath && p.Name != opts.Registrar.Package {
			return &genError{msg: "registrar package name " + opts.Registrar.Package + " does not match " + p.Name + " in " + filepath.ToSlash(opts.Registrar.Dir)}
		}
	}

	src, err := RenderRegistrar(res, importPath, opts.Registrar.Package, opts.Runtime, opts.BinderRegistrar)
	if err != nil {
		return err
	}
	if !opts.DryRun {
		if err := os.MkdirAll(opts.Registrar.Dir, 0o755); err != nil {
			return err
		}
	}
	return emit(filepath.Join(opts.Registrar.Dir, opts.Registrar.File), src, opts, rep)
}

// emit writes src to path unless the file already holds it.
func emit(path string, src []byte, opts Options, rep *Report) error {
	if sameContent(path, src) {
		rep.Unchanged = append(rep.Unchanged, path)
		opts.Logger.Debug("unchanged", "file", path)
		return nil
	}
	if !opts.DryRun {
		if err := writeFileAtomic(path, src, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	rep.Written = append(rep.Written, path)
	opts.Logger.Debug("written", "file", path, "dryRun", opts.DryRun)
	return nil
}

// removeStale deletes generated binder files of scanned packages that no longer
// have targets. Files without the generated header are left alone.
func removeStale(res *discover.Result, opts Options, rep *Report) error {
	active := map[string]bool{}
	for _, p := range res.Packages {
		active[p.Path] = true
	}
	for _, p := range res.Scanned {
		if active[p.Path] || p.Dir == "" {
			continue
		}
		path := filepath.Join(p.Dir, opts.BinderFile)
		if !fileExists(path) {
			continue
		}
		if !isGenerated(path) {
			opts.Logger.Warn("not removing hand-written file with generated name", "file", path)
			continue
		}
		if !opts.DryRun {
			if err := removeFile(path); err != nil {
				return fmt.Errorf("remove stale %s: %w", path, err)
			}
		}
		rep.Removed = append(rep.Removed, path)
		opts.Logger.Info("removed stale binders", "file", path)
	}
	return nil
}

// Summary renders a one-line description of rep.
func (r *Report) Summary() string {
	parts := []string{
		fmt.Sprintf("%d targets", r.Targets),
		fmt.Sprintf("%d written", len(r.Written)),
		fmt.Sprintf("%d unchanged", len(r.Unchanged)),
	}
	if len(r.Removed) > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", len(r.Removed)))
	}
	if len(r.Skipped) > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", len(r.Skipped)))
	}
	return strings.Join(parts, ", ")
}
