package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sghaida/scenedi/internal/codegen"
	"github.com/sghaida/scenedi/internal/discover"
	"github.com/sghaida/scenedi/internal/logging"
	"github.com/spf13/cobra"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks bad flags or arguments.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "injectgen: %s\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	dir      string
	config   string
	logLevel string

	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "injectgen",
		Short:         "Generate scope-aware injection binders for scene graph nodes",
		Long:          "injectgen finds methods marked //di:inject, writes one typed binder file per package and an aggregate registrar that fills the di registry at startup.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
				return &usageError{err: fmt.Errorf("invalid --log-level %q", g.logLevel)}
			}
			g.logger = logging.NewWithWriter(g.stderr, level)
			return nil
		},
		// No Run: prints help by default.
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.PersistentFlags().StringVarP(&g.dir, "dir", "C", ".", "directory patterns and the config file are resolved from")
	root.PersistentFlags().StringVar(&g.config, "config", defaultConfigFile, "generator config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level: debug|info|warn|error")

	root.AddCommand(newGenerateCmd(g))
	root.AddCommand(newListCmd(g))
	root.AddCommand(newVersionCmd(g))
	return root
}

// options loads the config file and applies the positional patterns.
func (g *globals) options(cmd *cobra.Command, patterns []string) (codegen.Options, error) {
	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return codegen.Options{}, err
	}
	cfg, err := loadConfig(dir, g.config, cmd.Flags().Changed("config"))
	if err != nil {
		return codegen.Options{}, err
	}
	opts := cfg.options(dir)
	if len(patterns) > 0 {
		opts.Patterns = patterns
	}
	opts.Logger = g.logger
	return opts, nil
}

//
// -----------------------------------------------------------------------------
// generate
// -----------------------------------------------------------------------------

type generateFlags struct {
	marker           string
	tags             []string
	binderFile       string
	registrarDir     string
	registrarPackage string
	dryRun           bool
}

func newGenerateCmd(g *globals) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate [patterns...]",
		Short: "Write binder files and the aggregate registrar",
		Long:  "Loads the packages matched by patterns (default ./...), writes zz_di_binders.gen.go into every package with injection targets and, when a registrar directory is configured, the aggregate registrar.",
		Args:  usageArgs(cobra.ArbitraryArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options(cmd, args)
			if err != nil {
				return err
			}
			f.apply(cmd, &opts)

			rep, err := codegen.Generate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, p := range rep.Written {
				verb := "wrote"
				if opts.DryRun {
					verb = "would write"
				}
				fmt.Fprintf(g.stdout, "%s %s\n", verb, rel(opts.Dir, p))
			}
			for _, p := range rep.Removed {
				fmt.Fprintf(g.stdout, "removed %s\n", rel(opts.Dir, p))
			}
			fmt.Fprintln(g.stdout, rep.Summary())
			return nil
		},
	}
	cmd.Flags().StringVar(&f.marker, "marker", "", "directive comment that selects a method (default "+discover.DefaultMarker+")")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "build tags used while loading packages")
	cmd.Flags().StringVar(&f.binderFile, "binder-file", "", "per-package output file name (default "+discover.DefaultGeneratedFile+")")
	cmd.Flags().StringVar(&f.registrarDir, "registrar-dir", "", "directory of the aggregate registrar package")
	cmd.Flags().StringVar(&f.registrarPackage, "registrar-package", "", "package name of the registrar (default: base of --registrar-dir)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "render everything but write nothing")
	return cmd
}

// apply overrides file settings with the flags the user set.
func (f *generateFlags) apply(cmd *cobra.Command, opts *codegen.Options) {
	flags := cmd.Flags()
	if flags.Changed("marker") {
		opts.Marker = f.marker
	}
	if flags.Changed("tags") {
		opts.Tags = f.tags
	}
	if flags.Changed("binder-file") {
		opts.BinderFile = f.binderFile
	}
	if flags.Changed("registrar-dir") {
		opts.Registrar.Dir = f.registrarDir
	}
	if flags.Changed("registrar-package") {
		opts.Registrar.Package = f.registrarPackage
	}
	opts.DryRun = f.dryRun
}

//
// -----------------------------------------------------------------------------
// list
// -----------------------------------------------------------------------------

func newListCmd(g *globals) *cobra.Command {
	var marker string
	var tags []string
	cmd := &cobra.Command{
		Use:   "list [patterns...]",
		Short: "Print discovered injection targets without writing anything",
		Args:  usageArgs(cobra.ArbitraryArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options(cmd, args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("marker") {
				opts.Marker = marker
			}
			if cmd.Flags().Changed("tags") {
				opts.Tags = tags
			}

			res, err := discover.Discover(cmd.Context(), discover.Options{
				Dir:           opts.Dir,
				Patterns:      opts.Patterns,
				Marker:        opts.Marker,
				Tags:          opts.Tags,
				GeneratedFile: opts.BinderFile,
				TolerateFiles: []string{opts.Registrar.File, codegen.DefaultRegistrarFile},
				Logger:        opts.Logger,
			})
			if err != nil {
				return err
			}
			for _, t := range res.Targets() {
				fmt.Fprintln(g.stdout, t.Package.Path+"."+t.Name)
				for _, m := range t.Methods {
					fmt.Fprintf(g.stdout, "\t%s\n", signature(m))
				}
			}
			for _, s := range res.Skipped {
				fmt.Fprintf(g.stdout, "skipped %s.%s at %s: %s\n", s.Type, s.Method, rel(opts.Dir, s.Pos.String()), s.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&marker, "marker", "", "directive comment that selects a method")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "build tags used while loading packages")
	return cmd
}

func signature(m discover.Method) string {
	params := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		s := p.Type.String()
		if p.Variadic {
			s = "..." + strings.TrimPrefix(s, "[]")
		}
		params = append(params, s)
	}
	sig := m.Name + "(" + strings.Join(params, ", ") + ")"
	if m.ReturnsError {
		sig += " error"
	}
	return sig
}

//
// -----------------------------------------------------------------------------
// version
// -----------------------------------------------------------------------------

func newVersionCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the injectgen version",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(g.stdout, "injectgen version %s\n", version)
		},
	}
}

// rel shortens path for display when it lies under base.
func rel(base, path string) string {
	if r, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return path
}
