package discover

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// Result is the outcome of a discovery run.
type Result struct {
	// Packages holds the packages that have at least one target, sorted by import path.
	Packages []*Package

	// Scanned holds every matched package, targets or not, sorted by import path.
	Scanned []*Package

	// Skipped lists marked methods that cannot be injected.
	Skipped []Skipped
}

// Targets returns every target across packages in package, then type-name order.
func (r *Result) Targets() []*Target {
	var out []*Target
	for _, p := range r.Packages {
		out = append(out, p.Targets...)
	}
	return out
}

// Package is one loaded package.
type Package struct {
	Path    string
	Name    string
	Dir     string
	Types   *types.Package
	Targets []*Target
}

// Target is a named type with at least one marked method.
type Target struct {
	Package *Package
	Name    string
	Named   *types.Named
	Methods []Method
}

// Qualified returns "pkgname.Type".
func (t *Target) Qualified() string {
	return t.Package.Name + "." + t.Name
}

// Method is one marked method, in declaration order within its type.
type Method struct {
	Name         string
	Params       []Param
	ReturnsError bool
	Pos          token.Position
}

// Param is one method parameter. For a variadic parameter Type is the slice type.
type Param struct {
	Type     types.Type
	Variadic bool
}

// Skipped is a marked method discovery had to leave out.
type Skipped struct {
	Pos    token.Position
	Type   string
	Method string
	Reason string
}

const (
	reasonNoReceiver   = "marker on a function without receiver"
	reasonNotNamed     = "receiver is not a named type"
	reasonGeneric      = "receiver type is generic"
	reasonResults      = "method must return nothing or a single error"
	reasonNotNode      = "pointer to receiver type does not implement Name and Children"
	reasonUnreferenced = "parameter type is not accessible from the declaring package: "
	reasonNoTypeInfo   = "no type information for method"
)

var errorType = types.Universe.Lookup("error").Type()

// inspect validates a marked declaration and converts it to a Method.
// A non-empty reason means the method is skipped.
func inspect(fn *ast.FuncDecl, pkg *packages.Package) (Method, *types.Named, string) {
	if fn.Recv == nil {
		return Method{}, nil, reasonNoReceiver
	}
	obj, ok := pkg.TypesInfo.Defs[fn.Name].(*types.Func)
	if !ok {
		return Method{}, nil, reasonNoTypeInfo
	}
	sig := obj.Type().(*types.Signature)

	recv := sig.Recv().Type()
	if ptr, ok := recv.(*types.Pointer); ok {
		recv = ptr.Elem()
	}
	named, ok := types.Unalias(recv).(*types.Named)
	if !ok {
		return Method{}, nil, reasonNotNamed
	}
	if named.TypeParams().Len() > 0 {
		return Method{}, nil, reasonGeneric
	}
	if !looksLikeNode(named) {
		return Method{}, nil, reasonNotNode
	}

	m := Method{Name: obj.Name()}
	switch res := sig.Results(); {
	case res.Len() == 0:
	case res.Len() == 1 && types.Identical(res.At(0).Type(), errorType):
		m.ReturnsError = true
	default:
		return Method{}, nil, reasonResults
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		pt := params.At(i).Type()
		if bad := inaccessible(pt, pkg.Types); bad != "" {
			return Method{}, nil, reasonUnreferenced + bad
		}
		m.Params = append(m.Params, Param{
			Type:     pt,
			Variadic: sig.Variadic() && i == params.Len()-1,
		})
	}
	return m, named, ""
}

// looksLikeNode checks the method set of *T for the scene node contract.
func looksLikeNode(named *types.Named) bool {
	ms := types.NewMethodSet(types.NewPointer(named))
	return hasMethod(ms, "Name", 0, 1) && hasMethod(ms, "Children", 0, 1)
}

func hasMethod(ms *types.MethodSet, name string, params, results int) bool {
	for i := 0; i < ms.Len(); i++ {
		fn := ms.At(i).Obj()
		if fn.Name() != name {
			continue
		}
		sig := fn.Type().(*types.Signature)
		return sig.Params().Len() == params && sig.Results().Len() == results
	}
	return false
}

// inaccessible returns the first named type in t that from cannot reference, or "".
func inaccessible(t types.Type, from *types.Package) string {
	seen := map[types.Type]bool{}
	var walk func(types.Type) string
	walk = func(t types.Type) string {
		if t == nil || seen[t] {
			return ""
		}
		seen[t] = true

		switch tt := t.(type) {
		case *types.Alias:
			if bad := checkObj(tt.Obj(), from); bad != "" {
				return bad
			}
			return walk(types.Unalias(tt))
		case *types.Named:
			if bad := checkObj(tt.Obj(), from); bad != "" {
				return bad
			}
			if args := tt.TypeArgs(); args != nil {
				for i := 0; i < args.Len(); i++ {
					if bad := walk(args.At(i)); bad != "" {
						return bad
					}
				}
			}
		case *types.Pointer:
			return walk(tt.Elem())
		case *types.Slice:
			return walk(tt.Elem())
		case *types.Array:
			return walk(tt.Elem())
		case *types.Map:
			if bad := walk(tt.Key()); bad != "" {
				return bad
			}
			return walk(tt.Elem())
		case *types.Chan:
			return walk(tt.Elem())
		case *types.Signature:
			for _, tuple := range []*types.Tuple{tt.Params(), tt.Results()} {
				for i := 0; i < tuple.Len(); i++ {
					if bad := walk(tuple.At(i).Type()); bad != "" {
						return bad
					}
				}
			}
		case *types.Struct:
			for i := 0; i < tt.NumFields(); i++ {
				if bad := walk(tt.Field(i).Type()); bad != "" {
					return bad
				}
			}
		case *types.Interface:
			for i := 0; i < tt.NumExplicitMethods(); i++ {
				if bad := walk(tt.ExplicitMethod(i).Type()); bad != "" {
					return bad
				}
			}
		case *types.TypeParam:
			return tt.Obj().Name()
		}
		return ""
	}
	return walk(t)
}

func checkObj(obj *types.TypeName, from *types.Package) string {
	if obj == nil || obj.Pkg() == nil || obj.Pkg() == from || obj.Exported() {
		return ""
	}
	return obj.Pkg().Path() + "." + obj.Name()
}
