package codegen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/format"
	"go/types"
	"strconv"
	"strings"
	"text/template"

	"github.com/sghaida/scenedi/internal/discover"
)

const headerLine = "// Code generated by injectgen; DO NOT EDIT."

// Runtime names the packages generated code calls into.
type Runtime struct {
	DI    string `yaml:"di"`
	Scene string `yaml:"scene"`
}

// DefaultRuntime points at this module's runtime packages.
var DefaultRuntime = Runtime{
	DI:    "github.com/sghaida/scenedi/di",
	Scene: "github.com/sghaida/scenedi/scene",
}

// Identifiers used inside generated binders; imports must not shadow them.
var binderLocals = []string{"node", "scope", "instance", "ok", "err", "reg"}

type binderFile struct {
	Package   string
	Hash      string
	Imports   []GoImport
	DI        string
	Scene     string
	Registrar string
	Types     []binderType
}

type binderType struct {
	Name    string
	Func    string
	Display string
	Methods []binderMethod
}

type binderMethod struct {
	Name         string
	Params       []binderParam
	ReturnsError bool
}

type binderParam struct {
	Var      string
	Type     string
	Display  string
	Variadic bool
}

// binderFuncName returns the generated binder name for a type.
func binderFuncName(typeName string) string {
	return "diBind" + typeName
}

// RenderBinders returns the formatted binder source for one package's targets.
func RenderBinders(pkg *discover.Package, rt Runtime, registrar string) ([]byte, error) {
	set := newImportSet(pkg.Path, binderLocals...)
	set.pin(rt.DI, "di", "di")
	set.pin(rt.Scene, "scene", "scene")
	q := set.qualifier()

	data := binderFile{
		Package:   pkg.Name,
		Hash:      fingerprint(pkg.Targets),
		DI:        "di",
		Scene:     "scene",
		Registrar: registrar,
	}
	for _, t := range pkg.Targets {
		bt := binderType{
			Name:    t.Name,
			Func:    binderFuncName(t.Name),
			Display: t.Qualified(),
		}
		for _, m := range t.Methods {
			bm := binderMethod{Name: m.Name, ReturnsError: m.ReturnsError}
			for i, p := range m.Params {
				bm.Params = append(bm.Params, binderParam{
					Var:      "arg" + strconv.Itoa(i),
					Type:     types.TypeString(p.Type, q),
					Display:  display(p.Type),
					Variadic: p.Variadic,
				})
			}
			bt.Methods = append(bt.Methods, bm)
		}
		data.Types = append(data.Types, bt)
	}
	data.Imports = set.list()

	return render(binderTpl, data, pkg.Path)
}

func render(tpl *template.Template, data any, what string) ([]byte, error) {
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", what, err)
	}
	src, err := format.Source([]byte(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", what, err)
	}
	return src, nil
}

// fingerprint hashes the canonical form of a target list.
func fingerprint(targets []*discover.Target) string {
	h := sha256.New()
	for _, t := range targets {
		fmt.Fprintf(h, "%s.%s\n", t.Package.Path, t.Name)
		for _, m := range t.Methods {
			parts := make([]string, 0, len(m.Params))
			for _, p := range m.Params {
				s := types.TypeString(p.Type, nil)
				if p.Variadic {
					s = "..." + s
				}
				parts = append(parts, s)
			}
			fmt.Fprintf(h, "\t%s(%s) error=%t\n", m.Name, strings.Join(parts, ","), m.ReturnsError)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func callArgs(m binderMethod) string {
	args := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		if p.Variadic {
			args = append(args, p.Var+"...")
			continue
		}
		args = append(args, p.Var)
	}
	return strings.Join(args, ", ")
}

var templateFuncs = template.FuncMap{
	"quote": strconv.Quote,
	"args":  callArgs,
}

const importsBlock = `import (
{{- range .Imports }}
	{{- if .Name }}
	{{ .Name }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)
`

var binderTpl = template.Must(
	template.New("binders").
		Funcs(templateFuncs).
		Parse(headerLine + `
// Discovery-SHA256: {{.Hash}}

package {{.Package}}

` + importsBlock + `
// {{.Registrar}} adds the injection binders of package {{.Package}} to reg.
func {{.Registrar}}(reg *{{.DI}}.Registry) {
{{- range .Types }}
	{{ $.DI }}.Register[*{{ .Name }}](reg, {{ .Func }})
{{- end }}
}
{{ range .Types }}
{{- $t := . }}
// {{ .Func }} injects the marked methods of *{{ .Name }}.
func {{ .Func }}(node {{ $.Scene }}.Node, scope *{{ $.DI }}.Scope) error {
	instance, ok := node.(*{{ .Name }})
	if !ok {
		return nil
	}
{{- range .Methods }}
{{- $m := . }}
	{
	{{- range .Params }}
		{{ .Var }}, err := {{ $.DI }}.Resolve[{{ .Type }}](scope)
		if err != nil {
			return {{ $.DI }}.NewResolutionError({{ quote $t.Display }}, {{ quote $m.Name }}, {{ quote .Display }}, err)
		}
	{{- end }}
	{{- if .ReturnsError }}
		if err := instance.{{ .Name }}({{ args . }}); err != nil {
			return {{ $.DI }}.NewInvokeError({{ quote $t.Display }}, {{ quote .Name }}, err)
		}
	{{- else }}
		instance.{{ .Name }}({{ args . }})
	{{- end }}
	}
{{- end }}
	return nil
}
{{ end }}`),
)
