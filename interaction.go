package retro

// InputSnapshot is the host's pointer state for one frame, in viewport pixel
// space. The host glue polls it (from Ebitengine or injected test input) and
// passes it explicitly into the render hook; the interaction engine never
// reads input devices itself.
type InputSnapshot struct {
	CursorX, CursorY float64
	Pressed          bool // primary button currently held
	JustPressed      bool
	JustReleased     bool
	Button           MouseButton
}

// UIEventKind identifies a kind of UI interaction event.
type UIEventKind uint8

const (
	UIEventPointerEnter UIEventKind = iota // pointer moved onto a widget
	UIEventPointerLeave                    // pointer moved off a widget
	UIEventPointerDown                     // button pressed over a widget
	UIEventPointerUp                       // button released over a widget
	UIEventClick                           // press then release over the same widget
)

// UIEvent carries interaction data for one widget.
type UIEvent struct {
	Kind   UIEventKind
	Widget string // widget ID
	X, Y   float64
	Button MouseButton
}

// EventSink receives UI events for forwarding outside the hook, typically
// into the host's ECS event log.
type EventSink interface {
	EmitUIEvent(event UIEvent)
}

// InteractionEngine translates per-frame pointer snapshots into UI events by
// hit testing against the previous frame's layout. State (hover, pressed
// widget) persists across frames so enter/leave and click pairing work.
type InteractionEngine struct {
	sink    EventSink
	hover   string // widget under the pointer last frame
	pressed string // widget the press started on
	queue   []UIEvent
}

// NewInteractionEngine creates an engine forwarding events to sink.
// A nil sink is allowed; events are still queued for the UI application.
func NewInteractionEngine(sink EventSink) *InteractionEngine {
	return &InteractionEngine{sink: sink}
}

// Update processes one frame of pointer input against the given layout.
// A nil layout (no frame rendered yet) only clears transient state.
func (e *InteractionEngine) Update(input InputSnapshot, layout *WidgetLayout) {
	e.queue = e.queue[:0]

	var hit string
	if layout != nil {
		hit = hitTest(layout.root, input.CursorX, input.CursorY)
	}

	if hit != e.hover {
		if e.hover != "" {
			e.emit(UIEvent{Kind: UIEventPointerLeave, Widget: e.hover, X: input.CursorX, Y: input.CursorY})
		}
		if hit != "" {
			e.emit(UIEvent{Kind: UIEventPointerEnter, Widget: hit, X: input.CursorX, Y: input.CursorY})
		}
		e.hover = hit
	}

	if input.JustPressed && hit != "" {
		e.pressed = hit
		e.emit(UIEvent{Kind: UIEventPointerDown, Widget: hit, X: input.CursorX, Y: input.CursorY, Button: input.Button})
	}

	if input.JustReleased {
		if hit != "" {
			e.emit(UIEvent{Kind: UIEventPointerUp, Widget: hit, X: input.CursorX, Y: input.CursorY, Button: input.Button})
		}
		// A click requires press and release over the same widget.
		if e.pressed != "" && e.pressed == hit {
			e.emit(UIEvent{Kind: UIEventClick, Widget: hit, X: input.CursorX, Y: input.CursorY, Button: input.Button})
		}
		e.pressed = ""
	}
}

// Events returns the events produced by the last Update, in order.
func (e *InteractionEngine) Events() []UIEvent {
	return e.queue
}

func (e *InteractionEngine) emit(ev UIEvent) {
	e.queue = append(e.queue, ev)
	if e.sink != nil {
		e.sink.EmitUIEvent(ev)
	}
}

// hitTest returns the ID of the topmost interactive widget containing the
// point. Later siblings draw on top of earlier ones, so the search prefers
// the last match in tree order; children sit on top of their parents.
func hitTest(box *layoutBox, x, y float64) string {
	if box == nil {
		return ""
	}
	var found string
	if box.widget.Kind == WidgetButton && box.rect.Contains(x, y) {
		found = box.widget.ID
	}
	for _, child := range box.children {
		if id := hitTest(child, x, y); id != "" {
			found = id
		}
	}
	return found
}
