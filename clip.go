package retro

import (
	"log"
	"math"
)

// clipStack tracks the nested scissor regions applied while walking a batch
// list. Pushes and pops are expected to balance within one frame; an
// unmatched pop is treated as "no scissor" rather than failing.
type clipStack struct {
	regions []ScissorRect
	warned  bool // one-shot latch for the clip approximation warning
}

// push projects the clip box through transform, sets it as the active
// scissor, and records it on the stack.
func (c *clipStack) push(transform Affine, boxSize Vec2) {
	if !c.warned {
		log.Printf("retro: UI elements use clipping; clip regions are " +
			"axis-aligned approximations and may be incorrect under rotated " +
			"transforms")
		c.warned = true
	}
	c.regions = append(c.regions, projectScissor(transform, boxSize))
}

// pop removes the innermost region. Popping an empty stack is a logic error
// in the upstream tesselation and leaves the stack empty.
func (c *clipStack) pop() {
	if len(c.regions) == 0 {
		return
	}
	c.regions = c.regions[:len(c.regions)-1]
}

// active returns the current scissor, or nil when no clip region applies.
func (c *clipStack) active() *ScissorRect {
	if len(c.regions) == 0 {
		return nil
	}
	return &c.regions[len(c.regions)-1]
}

// projectScissor projects the four corners of a (0,0)-(boxSize.X, boxSize.Y)
// box through the transform and returns the axis-aligned bounding rectangle,
// rounded to integer pixels. Taking the min/max over all four corners is
// required because the transform may rotate or skew the box.
func projectScissor(m Affine, boxSize Vec2) ScissorRect {
	tlx, tly := m.Apply(0, 0)
	trx, try := m.Apply(boxSize.X, 0)
	brx, bry := m.Apply(boxSize.X, boxSize.Y)
	blx, bly := m.Apply(0, boxSize.Y)

	x1 := math.Round(math.Min(math.Min(tlx, trx), math.Min(brx, blx)))
	y1 := math.Round(math.Min(math.Min(tly, try), math.Min(bry, bly)))
	x2 := math.Round(math.Max(math.Max(tlx, trx), math.Max(brx, blx)))
	y2 := math.Round(math.Max(math.Max(tly, try), math.Max(bry, bly)))

	return ScissorRect{
		X:      int(x1),
		Y:      int(y1),
		Width:  int(x2 - x1),
		Height: int(y2 - y1),
	}
}
