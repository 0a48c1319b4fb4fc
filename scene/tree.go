package scene

// Tree owns the current scene and raises a tree-changed notification after each swap.
//
// The notification is deferred on the loop, so listeners always observe the tree
// after the swap has fully completed.
type Tree struct {
	loop      *Loop
	current   Node
	listeners []*treeListener
	nextID    int
}

type treeListener struct {
	id   int
	once bool
	fn   func(Node)
}

// NewTree returns an empty tree bound to loop.
func NewTree(loop *Loop) *Tree {
	return &Tree{loop: loop}
}

// Loop returns the loop the tree defers its notifications on.
func (t *Tree) Loop() *Loop { return t.loop }

// CurrentScene returns the active scene root, or nil.
func (t *Tree) CurrentScene() Node { return t.current }

// ChangeSceneTo replaces the current scene and returns the previous one.
// Callers must only do this at a safe point (from a deferred call).
func (t *Tree) ChangeSceneTo(root Node) Node {
	old := t.current
	t.current = root
	t.loop.CallDeferred(t.emitChanged)
	return old
}

// OnTreeChanged registers fn for every tree-changed notification and returns a
// function that removes it.
func (t *Tree) OnTreeChanged(fn func(Node)) (cancel func()) {
	return t.subscribe(fn, false)
}

// OnceTreeChanged registers fn for the next tree-changed notification only.
func (t *Tree) OnceTreeChanged(fn func(Node)) (cancel func()) {
	return t.subscribe(fn, true)
}

func (t *Tree) subscribe(fn func(Node), once bool) func() {
	t.nextID++
	l := &treeListener{id: t.nextID, once: once, fn: fn}
	t.listeners = append(t.listeners, l)
	return func() { t.remove(l.id) }
}

func (t *Tree) remove(id int) {
	for i, l := range t.listeners {
		if l.id == id {
			t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
			return
		}
	}
}

func (t *Tree) emitChanged() {
	snapshot := make([]*treeListener, len(t.listeners))
	copy(snapshot, t.listeners)
	for _, l := range snapshot {
		if l.once {
			t.remove(l.id)
		}
		l.fn(t.current)
	}
}
