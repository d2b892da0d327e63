package retro

import (
	"math"
	"testing"
)

// --- projectScissor ---

func TestProjectScissor(t *testing.T) {
	tests := []struct {
		name   string
		m      Affine
		box    Vec2
		expect ScissorRect
	}{
		{"identity", IdentityAffine, Vec2{X: 100, Y: 50}, ScissorRect{0, 0, 100, 50}},
		{"translated", TranslationAffine(10, 20), Vec2{X: 30, Y: 40}, ScissorRect{10, 20, 30, 40}},
		{"scaled", ScaleAffine(2, 3), Vec2{X: 10, Y: 10}, ScissorRect{0, 0, 20, 30}},
		{"negative origin", TranslationAffine(-5, -5), Vec2{X: 10, Y: 10}, ScissorRect{-5, -5, 10, 10}},
		{"fractional rounds", TranslationAffine(0.4, 0.6), Vec2{X: 10, Y: 10}, ScissorRect{0, 1, 10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := projectScissor(tt.m, tt.box)
			if got != tt.expect {
				t.Errorf("projectScissor(%v, %v) = %+v, want %+v", tt.m, tt.box, got, tt.expect)
			}
		})
	}
}

func TestProjectScissorRotatedBounds(t *testing.T) {
	// A 90° rotation about the origin carries the box into negative x;
	// the projection is the axis-aligned bounds of the rotated corners.
	got := projectScissor(RotationAffine(math.Pi/2), Vec2{X: 100, Y: 50})
	want := ScissorRect{X: -50, Y: 0, Width: 50, Height: 100}
	if got != want {
		t.Errorf("rotated projection = %+v, want %+v", got, want)
	}
}

// --- clipStack ---

func TestClipStackNesting(t *testing.T) {
	var c clipStack
	if c.active() != nil {
		t.Fatalf("empty stack active() = %+v, want nil", c.active())
	}

	c.push(TranslationAffine(0, 0), Vec2{X: 200, Y: 200})
	outer := c.active()
	if outer == nil || *outer != (ScissorRect{0, 0, 200, 200}) {
		t.Fatalf("outer active() = %+v, want {0 0 200 200}", outer)
	}

	c.push(TranslationAffine(50, 50), Vec2{X: 20, Y: 20})
	inner := c.active()
	if inner == nil || *inner != (ScissorRect{50, 50, 20, 20}) {
		t.Fatalf("inner active() = %+v, want {50 50 20 20}", inner)
	}

	c.pop()
	restored := c.active()
	if restored == nil || *restored != (ScissorRect{0, 0, 200, 200}) {
		t.Errorf("after pop, active() = %+v, want outer region", restored)
	}

	c.pop()
	if c.active() != nil {
		t.Errorf("after final pop, active() = %+v, want nil", c.active())
	}
}

func TestClipStackUnmatchedPop(t *testing.T) {
	var c clipStack
	// Popping an empty stack must not panic and must leave no region active.
	c.pop()
	c.pop()
	if c.active() != nil {
		t.Errorf("active() after unmatched pops = %+v, want nil", c.active())
	}

	c.push(IdentityAffine, Vec2{X: 10, Y: 10})
	c.pop()
	c.pop()
	if c.active() != nil {
		t.Errorf("active() after pop past bottom = %+v, want nil", c.active())
	}
}

func TestClipStackWarnsOnce(t *testing.T) {
	var c clipStack
	c.push(IdentityAffine, Vec2{X: 1, Y: 1})
	if !c.warned {
		t.Error("first push did not set the warn latch")
	}
	c.pop()
	c.push(IdentityAffine, Vec2{X: 1, Y: 1})
	if !c.warned {
		t.Error("warn latch reset unexpectedly")
	}
}
