package codegen

import (
	"go/types"
	"sort"
	"strconv"
)

// GoImport is one import line of a generated file.
type GoImport struct {
	Name string // alias, empty when the package name is used as-is
	Path string
}

// importSet assigns file-unique identifiers to the packages a generated file refers to.
type importSet struct {
	self     string            // import path of the file's own package
	byPath   map[string]string // path -> identifier
	taken    map[string]bool   // identifiers in use
	explicit map[string]bool   // paths whose identifier differs from the package name
}

func newImportSet(self string, reserved ...string) *importSet {
	s := &importSet{
		self:     self,
		byPath:   map[string]string{},
		taken:    map[string]bool{},
		explicit: map[string]bool{},
	}
	for _, r := range reserved {
		s.taken[r] = true
	}
	return s
}

// add registers path with its preferred package name and returns the identifier to use.
func (s *importSet) add(path, name string) string {
	if path == s.self {
		return ""
	}
	if id, ok := s.byPath[path]; ok {
		return id
	}
	id := name
	for i := 2; s.taken[id]; i++ {
		id = name + strconv.Itoa(i)
	}
	s.taken[id] = true
	s.byPath[path] = id
	if id != name {
		s.explicit[path] = true
	}
	return id
}

// pin registers path under a fixed identifier that must not be renamed (runtime packages).
func (s *importSet) pin(path, id, pkgName string) {
	s.byPath[path] = id
	s.taken[id] = true
	if id != pkgName {
		s.explicit[path] = true
	}
}

// qualifier returns a types.Qualifier that records every package it is asked about.
func (s *importSet) qualifier() types.Qualifier {
	return func(p *types.Package) string {
		return s.add(p.Path(), p.Name())
	}
}

// list returns the imports sorted by path. An alias is emitted only when the
// identifier differs from the package name.
func (s *importSet) list() []GoImport {
	out := make([]GoImport, 0, len(s.byPath))
	for path, id := range s.byPath {
		gi := GoImport{Path: path}
		if s.explicit[path] {
			gi.Name = id
		}
		out = append(out, gi)
	}
	return dedupeAndSortImports(out)
}

func dedupeAndSortImports(imps []GoImport) []GoImport {
	type key struct {
		path string
		name string
	}
	seen := map[key]bool{}
	out := make([]GoImport, 0, len(imps))
	for _, gi := range imps {
		k := key{path: gi.Path, name: gi.Name}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, gi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// display renders t relative to its declaring package name, for error messages:
// "arena.Announcer", "*time.Location".
func display(t types.Type) string {
	return types.TypeString(t, func(p *types.Package) string { return p.Name() })
}
