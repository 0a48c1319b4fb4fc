package scene

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Descriptor is the on-disk form of a scene:
//
//	name: arena
//	type: Arena
//	props:
//	  title: The Pit
//	children:
//	  - name: red
//	    type: Team
type Descriptor struct {
	Name     string         `yaml:"name"`
	Type     string         `yaml:"type"`
	Props    map[string]any `yaml:"props"`
	Children []Descriptor   `yaml:"children"`
}

// Constructor creates an empty node for a descriptor type.
type Constructor func() Node

// Packed builds a ready scene, the in-memory counterpart of a descriptor file.
type Packed func() (Node, error)

var (
	// ErrEmptyType is returned when a descriptor has no type.
	ErrEmptyType = errors.New("scene: descriptor type is empty")

	// ErrNotContainer is returned when a descriptor declares children for a node that
	// cannot hold any.
	ErrNotContainer = errors.New("scene: node cannot have children")
)

// UnknownTypeError is returned when a descriptor names a type the factory lacks.
type UnknownTypeError struct{ Type string }

func (e UnknownTypeError) Error() string {
	return "scene: unknown node type " + strconv.Quote(e.Type)
}

// Factory maps descriptor type names to constructors.
type Factory struct {
	ctors map[string]Constructor
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{ctors: map[string]Constructor{}}
}

// Register stores ctor under typeName and returns the factory for chaining.
// Registering the same name twice overwrites.
func (f *Factory) Register(typeName string, ctor Constructor) *Factory {
	f.ctors[typeName] = ctor
	return f
}

// Types returns the registered type names, sorted.
func (f *Factory) Types() []string {
	out := make([]string, 0, len(f.ctors))
	for k := range f.ctors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Loader turns descriptors into live node trees.
type Loader struct {
	factory *Factory
}

// NewLoader returns a loader backed by factory.
func NewLoader(factory *Factory) *Loader {
	return &Loader{factory: factory}
}

// LoadFile reads and builds the scene descriptor at path.
func (l *Loader) LoadFile(path string) (Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root, err := l.Load(f)
	if err != nil {
		return nil, fmt.Errorf("scene: load %s: %w", path, err)
	}
	return root, nil
}

// Load decodes a YAML descriptor from r and builds it.
func (l *Loader) Load(r io.Reader) (Node, error) {
	var d Descriptor
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	return l.Build(d)
}

// Packed returns a Packed that builds d on each call.
func (l *Loader) Packed(d Descriptor) Packed {
	return func() (Node, error) { return l.Build(d) }
}

type adder interface {
	AddChild(children ...Node)
}

type namer interface {
	SetName(name string)
}

// Build instantiates d and its children. Children are attached in declaration order.
func (l *Loader) Build(d Descriptor) (Node, error) {
	root, err := l.instantiate(d)
	if err != nil {
		return nil, err
	}

	type pending struct {
		desc   Descriptor
		parent Node
	}
	stack := []pending{{desc: d, parent: root}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(p.desc.Children) == 0 {
			continue
		}

		container, ok := p.parent.(adder)
		if !ok {
			return nil, fmt.Errorf("%w: %s (%T)", ErrNotContainer, p.desc.Name, p.parent)
		}
		for _, cd := range p.desc.Children {
			child, err := l.instantiate(cd)
			if err != nil {
				return nil, err
			}
			container.AddChild(child)
			stack = append(stack, pending{desc: cd, parent: child})
		}
	}
	return root, nil
}

func (l *Loader) instantiate(d Descriptor) (Node, error) {
	if d.Type == "" {
		return nil, ErrEmptyType
	}
	ctor, ok := l.factory.ctors[d.Type]
	if !ok {
		return nil, UnknownTypeError{Type: d.Type}
	}
	n := ctor()

	if d.Name != "" {
		if nm, ok := n.(namer); ok {
			nm.SetName(d.Name)
		}
	}
	if len(d.Props) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           n,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(d.Props); err != nil {
			return nil, fmt.Errorf("props for %s (%s): %w", d.Name, d.Type, err)
		}
	}
	return n, nil
}
