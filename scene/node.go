// Package scene provides the minimal live object tree the injector walks: the Node
// contract, an embeddable Base implementation, a deferred-call Loop standing in for the
// host event loop, and a Controller that swaps the current scene at safe points.
//
// The injector only ever reads the tree through Node.Children; every mutation happens
// here, on the single goroutine that owns the loop.
package scene

import (
	"github.com/google/uuid"
)

// Node is a generic hierarchical entity with an ordered list of children.
//
// Implementations must be comparable (in practice: pointers), since the installer
// tracks visited nodes by identity.
type Node interface {
	Name() string
	Children() []Node
}

// Base is the embeddable Node implementation.
//
//	type Player struct {
//		scene.Base
//		Speed int `mapstructure:"speed"`
//	}
type Base struct {
	name     string
	id       string
	children []Node
}

// NewBase returns a Base with the given name.
func NewBase(name string) Base {
	return Base{name: name}
}

// Name returns the node name.
func (b *Base) Name() string { return b.name }

// SetName renames the node.
func (b *Base) SetName(name string) { b.name = name }

// ID returns a stable unique identifier, assigned on first use.
func (b *Base) ID() string {
	if b.id == "" {
		b.id = uuid.NewString()
	}
	return b.id
}

// Children returns a snapshot of the node's children.
// Mutating the tree while a caller iterates the snapshot is safe.
func (b *Base) Children() []Node {
	if len(b.children) == 0 {
		return nil
	}
	out := make([]Node, len(b.children))
	copy(out, b.children)
	return out
}

// ChildCount returns the number of direct children.
func (b *Base) ChildCount() int { return len(b.children) }

// AddChild appends children in order. Nil children are ignored.
func (b *Base) AddChild(children ...Node) {
	for _, c := range children {
		if c == nil {
			continue
		}
		b.children = append(b.children, c)
	}
}

// RemoveChild removes the first occurrence of child and reports whether it was found.
func (b *Base) RemoveChild(child Node) bool {
	for i, c := range b.children {
		if c == child {
			b.children = append(b.children[:i], b.children[i+1:]...)
			return true
		}
	}
	return false
}

// Walk visits root and every descendant in pre-order using an explicit stack.
// Returning false from fn stops the walk.
func Walk(root Node, fn func(Node) bool) {
	if root == nil {
		return
	}
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			return
		}
		kids := n.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// Find returns the first node named name under root (root included).
func Find(root Node, name string) (Node, bool) {
	var found Node
	Walk(root, func(n Node) bool {
		if n.Name() == name {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}
