package scene

import (
	"log/slog"

	"github.com/sghaida/scenedi/internal/logging"
)

// SceneChange is delivered to OnChangeScene listeners once a swap has completed and
// the tree-changed notification fired.
type SceneChange struct {
	Old Node
	New Node
}

// Controller swaps the tree's current scene at the loop's next safe point.
//
// ChangeScene and ChangeSceneTo return immediately; the swap runs on the next
// Flush and listeners run on the flush after that, once the tree reports the change.
// Installing injection on the new scene is the listeners' job.
type Controller struct {
	tree      *Tree
	loader    *Loader
	logger    *slog.Logger
	listeners []func(SceneChange)
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControllerLogger sets the controller's logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logging.OrNop(l) }
}

// NewController returns a controller for tree. loader may be nil if only
// ChangeSceneTo is used.
func NewController(tree *Tree, loader *Loader, opts ...ControllerOption) *Controller {
	c := &Controller{tree: tree, loader: loader, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChangeScene registers fn to run after every completed swap.
func (c *Controller) OnChangeScene(fn func(SceneChange)) {
	if fn != nil {
		c.listeners = append(c.listeners, fn)
	}
}

// CurrentScene returns the tree's active scene.
func (c *Controller) CurrentScene() Node { return c.tree.CurrentScene() }

// ChangeScene schedules a swap to the scene descriptor at path.
// A descriptor that fails to load leaves the current scene in place and is logged.
func (c *Controller) ChangeScene(path string) {
	c.tree.Loop().CallDeferred(func() {
		if c.loader == nil {
			c.logger.Error("scene change skipped: controller has no loader", "path", path)
			return
		}
		root, err := c.loader.LoadFile(path)
		if err != nil {
			c.logger.Error("scene change failed", "path", path, "err", err)
			return
		}
		c.swap(root)
	})
}

// ChangeSceneTo schedules a swap to the scene built by packed.
func (c *Controller) ChangeSceneTo(packed Packed) {
	c.tree.Loop().CallDeferred(func() {
		if packed == nil {
			c.logger.Error("scene change skipped: nil packed scene")
			return
		}
		root, err := packed()
		if err != nil {
			c.logger.Error("scene change failed", "err", err)
			return
		}
		c.swap(root)
	})
}

func (c *Controller) swap(root Node) {
	old := c.tree.ChangeSceneTo(root)
	c.logger.Debug("scene swapped", "scene", root.Name())
	c.tree.OnceTreeChanged(func(current Node) {
		change := SceneChange{Old: old, New: current}
		for _, fn := range c.listeners {
			fn(change)
		}
	})
}
