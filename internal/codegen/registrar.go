package codegen

import (
	"text/template"

	"github.com/sghaida/scenedi/internal/discover"
)

type registrarFile struct {
	Package   string
	Hash      string
	Imports   []GoImport
	DI        string
	Registrar string
	Calls     []string
}

// RenderRegistrar returns the aggregate registrar source. importPath and pkgName
// describe the package the file is written into.
func RenderRegistrar(res *discover.Result, importPath, pkgName string, rt Runtime, registrar string) ([]byte, error) {
	set := newImportSet(importPath, "reg")
	set.pin(rt.DI, "di", "di")

	data := registrarFile{
		Package:   pkgName,
		Hash:      fingerprint(res.Targets()),
		DI:        "di",
		Registrar: registrar,
	}
	for _, p := range res.Packages {
		id := set.add(p.Path, p.Name)
		if id == "" {
			data.Calls = append(data.Calls, registrar)
			continue
		}
		data.Calls = append(data.Calls, id+"."+registrar)
	}
	data.Imports = set.list()

	return render(registrarTpl, data, importPath)
}

var registrarTpl = template.Must(
	template.New("registrar").
		Funcs(templateFuncs).
		Parse(headerLine + `
// Discovery-SHA256: {{.Hash}}

package {{.Package}}

` + importsBlock + `
// RegisterBindings fills {{.DI}}.Default with every generated binder.
// Pass it to {{.DI}}.Setup once the root container is built.
func RegisterBindings() {
	RegisterBindingsInto({{.DI}}.Default)
}

// RegisterBindingsInto fills reg with every generated binder.
func RegisterBindingsInto(reg *{{.DI}}.Registry) {
{{- range .Calls }}
	{{ . }}(reg)
{{- end }}
}
`),
)
