package retro

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// hoverFadeDuration is how long a button takes to fade between its idle and
// hover backgrounds, in seconds.
const hoverFadeDuration = 0.15

// widgetState is the live interactive state of one widget instance. States
// are keyed by widget ID and survive tree re-application so hover fades
// don't restart when the host swaps trees.
type widgetState struct {
	hover   bool
	pressed bool
	fade    *gween.Tween // animates fadeVal toward the hover target
	fadeVal float32      // 0 = idle background, 1 = hover background
}

// UIApplication is the render hook's exclusive mutable state: the applied
// widget tree, per-widget interactive state, the animation clock, and the
// last computed layout. It is created once at hook initialization and only
// ever touched from the hook's frame callbacks.
type UIApplication struct {
	root    *Widget
	version uint64
	states  map[string]*widgetState
	layout  *WidgetLayout
	delta   float64 // seconds, set each frame before processing
	clock   float64 // accumulated animation time
}

// NewUIApplication creates an empty UI application.
func NewUIApplication() *UIApplication {
	return &UIApplication{states: make(map[string]*widgetState)}
}

// Apply replaces the widget tree. Interactive state is keyed by widget ID
// and carries over to the new tree.
func (a *UIApplication) Apply(root *Widget, version uint64) {
	a.root = root
	a.version = version
}

// Version returns the version of the last applied tree.
func (a *UIApplication) Version() uint64 {
	return a.version
}

// SetAnimationsDelta sets the frame delta time, in seconds, used by
// ForcedProcess to advance animations.
func (a *UIApplication) SetAnimationsDelta(dt float64) {
	a.delta = dt
}

// ForcedProcess advances widget animations by the current delta time. It
// runs every frame regardless of whether the tree changed: widgets animate
// and react independent of tree changes, so processing is immediate-mode
// re-evaluation, not change-driven.
func (a *UIApplication) ForcedProcess() {
	a.clock += a.delta
	dt := float32(a.delta)
	for _, st := range a.states {
		if st.fade != nil {
			v, done := st.fade.Update(dt)
			st.fadeVal = v
			if done {
				st.fade = nil
			}
		}
	}
}

// Interact consumes the interaction engine's events for this frame and
// updates widget states, starting hover fade tweens as the pointer enters
// and leaves interactive widgets.
func (a *UIApplication) Interact(engine *InteractionEngine) {
	for _, ev := range engine.Events() {
		st := a.state(ev.Widget)
		switch ev.Kind {
		case UIEventPointerEnter:
			st.hover = true
			st.fade = gween.New(st.fadeVal, 1, hoverFadeDuration, ease.OutQuad)
		case UIEventPointerLeave:
			st.hover = false
			st.pressed = false
			st.fade = gween.New(st.fadeVal, 0, hoverFadeDuration, ease.OutQuad)
		case UIEventPointerDown:
			st.pressed = true
		case UIEventPointerUp, UIEventClick:
			st.pressed = false
		}
	}
}

// Layout computes the widget layout for this frame. The coords mapping is
// rebuilt by the caller from the current target size, so resizing the
// window reflows the UI.
func (a *UIApplication) Layout(coords CoordsMapping, imageSizes map[string]Vec2) error {
	layout, err := ComputeLayout(a.root, coords, imageSizes)
	if err != nil {
		return err
	}
	a.layout = layout
	return nil
}

// CurrentLayout returns the layout computed by the last Layout call.
func (a *UIApplication) CurrentLayout() *WidgetLayout {
	return a.layout
}

// Tesselate flattens the current layout into a tesselation, using this
// application as the widget styler so interactive fades show up in the
// output.
func (a *UIApplication) Tesselate() (*Tesselation, error) {
	return Tesselate(a.layout, a)
}

// Background implements WidgetStyler. Buttons blend between their idle and
// hover backgrounds by the current fade value, and snap to the pressed
// color while held.
func (a *UIApplication) Background(w *Widget) Color {
	if w.Kind != WidgetButton || w.ID == "" {
		return w.Background
	}
	st, ok := a.states[w.ID]
	if !ok {
		return w.Background
	}
	if st.pressed {
		return w.PressedColor
	}
	return lerpColor(w.Background, w.HoverColor, float64(st.fadeVal))
}

func (a *UIApplication) state(id string) *widgetState {
	st, ok := a.states[id]
	if !ok {
		st = &widgetState{}
		a.states[id] = st
	}
	return st
}

func lerpColor(from, to Color, t float64) Color {
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}
	return Color{
		R: from.R + (to.R-from.R)*t,
		G: from.G + (to.G-from.G)*t,
		B: from.B + (to.B-from.B)*t,
		A: from.A + (to.A-from.A)*t,
	}
}
