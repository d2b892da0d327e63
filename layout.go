package retro

import "fmt"

// Axis is the direction a container lays out its children.
type Axis uint8

const (
	AxisVertical   Axis = iota // children stack top to bottom (default)
	AxisHorizontal             // children flow left to right
)

// Align positions children on a container's cross axis.
type Align uint8

const (
	AlignStart   Align = iota // top (horizontal axis) or left (vertical axis)
	AlignCenter               // centered on the cross axis
	AlignEnd                  // bottom or right
	AlignStretch              // children fill the cross axis
)

// SizeMode selects how one dimension of a widget is sized.
type SizeMode uint8

const (
	SizeFit    SizeMode = iota // size to content (children, image, or text)
	SizeFixed                  // explicit size in UI units
	SizeExpand                 // share the container's leftover space
)

// Sizing describes both dimensions of a widget.
type Sizing struct {
	WMode, HMode SizeMode
	W, H         float64
}

// Fixed returns an explicit size.
func Fixed(w, h float64) Sizing {
	return Sizing{WMode: SizeFixed, HMode: SizeFixed, W: w, H: h}
}

// Expand returns a sizing that fills leftover container space.
func Expand() Sizing {
	return Sizing{WMode: SizeExpand, HMode: SizeExpand}
}

// Fit returns a sizing that wraps content. This is the zero value.
func Fit() Sizing {
	return Sizing{}
}

// Insets is padding around a container's content box.
type Insets struct {
	Left, Top, Right, Bottom float64
}

// UniformInsets returns equal padding on all four sides.
func UniformInsets(v float64) Insets {
	return Insets{v, v, v, v}
}

// CoordsMapping maps the render target onto the UI's logical layout space.
// It is recomputed every frame from the current target size, which is what
// makes runtime resize work.
type CoordsMapping struct {
	Viewport Rect
}

// NewCoordsMapping maps the rectangle (0,0)-(width, height) onto UI space.
func NewCoordsMapping(width, height float64) CoordsMapping {
	return CoordsMapping{Viewport: Rect{Width: width, Height: height}}
}

// Size returns the mapped viewport size.
func (c CoordsMapping) Size() Vec2 {
	return Vec2{X: c.Viewport.Width, Y: c.Viewport.Height}
}

// layoutBox is one widget with its resolved viewport-space rectangle.
type layoutBox struct {
	widget   *Widget
	rect     Rect
	children []*layoutBox
}

// WidgetLayout is the result of laying a widget tree out against a viewport:
// a tree of resolved rectangles plus an ID lookup for interaction hit tests.
type WidgetLayout struct {
	root *layoutBox
	byID map[string]Rect
}

// Rect returns the resolved rectangle for the widget with the given ID.
func (l *WidgetLayout) Rect(id string) (Rect, bool) {
	r, ok := l.byID[id]
	return r, ok
}

// ComputeLayout lays out the widget tree against the coords mapping.
// imageSizes maps image asset paths to known pixel dimensions; images whose
// size is not yet known measure as zero until their asset loads (one frame
// of lag is expected on first reference).
//
// A malformed tree (nil widgets) is an error; the caller treats layout
// failure as fatal for the frame.
func ComputeLayout(root *Widget, coords CoordsMapping, imageSizes map[string]Vec2) (*WidgetLayout, error) {
	layout := &WidgetLayout{byID: make(map[string]Rect)}
	if root == nil {
		return layout, nil
	}
	box, err := measure(root, imageSizes)
	if err != nil {
		return nil, err
	}
	arrange(box, coords.Viewport)
	collectRects(box, layout.byID)
	layout.root = box
	return layout, nil
}

// measured carries a widget's desired size through the measure pass.
type measured struct {
	box  *layoutBox
	w, h float64
}

func measure(w *Widget, imageSizes map[string]Vec2) (*layoutBox, error) {
	box := &layoutBox{widget: w}
	if len(w.Children) > 0 {
		box.children = make([]*layoutBox, 0, len(w.Children))
		for i, child := range w.Children {
			if child == nil {
				return nil, fmt.Errorf("retro: malformed widget tree: nil child %d of %q", i, w.ID)
			}
			cb, err := measure(child, imageSizes)
			if err != nil {
				return nil, err
			}
			box.children = append(box.children, cb)
		}
	}
	dw, dh := desiredSize(box, imageSizes)
	box.rect.Width = dw
	box.rect.Height = dh
	return box, nil
}

// desiredSize computes the measured size of a box. Expand dimensions measure
// as zero; they are resolved against leftover space during arrange.
func desiredSize(box *layoutBox, imageSizes map[string]Vec2) (float64, float64) {
	w := box.widget
	var dw, dh float64

	switch {
	case w.Sizing.WMode == SizeFixed:
		dw = w.Sizing.W
	case w.Sizing.WMode == SizeFit:
		dw = fitWidth(box, imageSizes)
	}
	switch {
	case w.Sizing.HMode == SizeFixed:
		dh = w.Sizing.H
	case w.Sizing.HMode == SizeFit:
		dh = fitHeight(box, imageSizes)
	}
	return dw, dh
}

func fitWidth(box *layoutBox, imageSizes map[string]Vec2) float64 {
	w := box.widget
	switch w.Kind {
	case WidgetImage:
		return imageSizes[w.ImagePath].X
	case WidgetText:
		return estimateTextWidth(w.Text, w.FontSize)
	}
	// Containers wrap their children.
	var total float64
	for _, c := range box.children {
		if w.Axis == AxisHorizontal {
			total += c.rect.Width
		} else if c.rect.Width > total {
			total = c.rect.Width
		}
	}
	if w.Axis == AxisHorizontal && len(box.children) > 1 {
		total += w.Gap * float64(len(box.children)-1)
	}
	return total + w.Padding.Left + w.Padding.Right
}

func fitHeight(box *layoutBox, imageSizes map[string]Vec2) float64 {
	w := box.widget
	switch w.Kind {
	case WidgetImage:
		return imageSizes[w.ImagePath].Y
	case WidgetText:
		return w.FontSize * 1.25
	}
	var total float64
	for _, c := range box.children {
		if w.Axis == AxisVertical {
			total += c.rect.Height
		} else if c.rect.Height > total {
			total = c.rect.Height
		}
	}
	if w.Axis == AxisVertical && len(box.children) > 1 {
		total += w.Gap * float64(len(box.children)-1)
	}
	return total + w.Padding.Top + w.Padding.Bottom
}

// estimateTextWidth approximates a text run's width from the font size.
// Exact metrics would require the font asset, which may not be loaded when
// layout runs; text widgets that need precise bounds should use Fixed sizing.
func estimateTextWidth(text string, fontSize float64) float64 {
	n := 0
	for range text {
		n++
	}
	return float64(n) * fontSize * 0.6
}

// arrange assigns final rectangles. rect is the space allotted to box.
func arrange(box *layoutBox, rect Rect) {
	w := box.widget
	box.rect = rect

	if len(box.children) == 0 {
		return
	}

	content := Rect{
		X:      rect.X + w.Padding.Left,
		Y:      rect.Y + w.Padding.Top,
		Width:  rect.Width - w.Padding.Left - w.Padding.Right,
		Height: rect.Height - w.Padding.Top - w.Padding.Bottom,
	}

	// Fixed and fit children keep their measured main-axis size; expand
	// children split the leftover evenly.
	var used float64
	expanding := 0
	for _, c := range box.children {
		if mainExpands(w.Axis, c.widget) {
			expanding++
			continue
		}
		used += mainSize(w.Axis, c.rect)
	}
	gaps := w.Gap * float64(len(box.children)-1)
	leftover := mainSize(w.Axis, content) - used - gaps
	if leftover < 0 {
		leftover = 0
	}
	var share float64
	if expanding > 0 {
		share = leftover / float64(expanding)
	}

	cursor := 0.0
	for _, c := range box.children {
		main := mainSize(w.Axis, c.rect)
		if mainExpands(w.Axis, c.widget) {
			main = share
		}
		cross := crossSize(w.Axis, c.rect)
		if crossExpands(w.Axis, c.widget) || w.Align == AlignStretch {
			cross = crossSize(w.Axis, content)
		}

		var crossOff float64
		switch w.Align {
		case AlignCenter:
			crossOff = (crossSize(w.Axis, content) - cross) / 2
		case AlignEnd:
			crossOff = crossSize(w.Axis, content) - cross
		}

		var childRect Rect
		if w.Axis == AxisHorizontal {
			childRect = Rect{X: content.X + cursor, Y: content.Y + crossOff, Width: main, Height: cross}
		} else {
			childRect = Rect{X: content.X + crossOff, Y: content.Y + cursor, Width: cross, Height: main}
		}
		arrange(c, childRect)
		cursor += main + w.Gap
	}
}

func mainSize(axis Axis, r Rect) float64 {
	if axis == AxisHorizontal {
		return r.Width
	}
	return r.Height
}

func crossSize(axis Axis, r Rect) float64 {
	if axis == AxisHorizontal {
		return r.Height
	}
	return r.Width
}

func mainExpands(axis Axis, w *Widget) bool {
	if axis == AxisHorizontal {
		return w.Sizing.WMode == SizeExpand
	}
	return w.Sizing.HMode == SizeExpand
}

func crossExpands(axis Axis, w *Widget) bool {
	if axis == AxisHorizontal {
		return w.Sizing.HMode == SizeExpand
	}
	return w.Sizing.WMode == SizeExpand
}

func collectRects(box *layoutBox, byID map[string]Rect) {
	if box.widget.ID != "" {
		byID[box.widget.ID] = box.rect
	}
	for _, c := range box.children {
		collectRects(c, byID)
	}
}
