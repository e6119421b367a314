package pose

import (
	"sync/atomic"

	"github.com/okian/motionplay/internal/domain/model"
)

// Cell is the single hand-off point between the estimation loop and the
// render loop. Writers replace, readers take whatever is there; neither waits.
type Cell struct {
	p atomic.Pointer[model.BodyPosition]
}

// Store publishes b, replacing any previous value.
func (c *Cell) Store(b model.BodyPosition) {
	c.p.Store(&b)
}

// Load returns the latest published value. The returned pointer must be
// treated as read-only; it may be shared with other readers.
func (c *Cell) Load() (*model.BodyPosition, bool) {
	b := c.p.Load()
	return b, b != nil
}

// Reset forgets the published value.
func (c *Cell) Reset() {
	c.p.Store(nil)
}
