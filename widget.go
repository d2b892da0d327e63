package retro

// WidgetKind distinguishes the widget variants understood by the layout and
// tesselation engine.
type WidgetKind uint8

const (
	WidgetContainer WidgetKind = iota // groups children; optional background and clipping
	WidgetImage                       // draws an image asset referenced by path
	WidgetText                        // draws a rasterized text block
	WidgetButton                      // interactive container with hover/press styling
)

// Widget is one node of a UI tree description. A tree is authored by host
// code, handed to the UITree store, and treated as immutable from then on;
// to change the UI, build a new tree and Set it.
//
// ID gives a widget a stable identity across trees. Interactive and text
// widgets require one; purely decorative widgets may leave it empty.
type Widget struct {
	ID   string
	Kind WidgetKind

	// Layout.
	Axis    Axis
	Sizing  Sizing
	Padding Insets
	Gap     float64
	Align   Align

	// Container style. A background with A > 0 emits a colored quad.
	Background Color
	// Clip constrains children to this widget's rectangle via a scissor
	// region.
	Clip bool

	// Image widgets.
	ImagePath string
	Tint      Color

	// Text widgets.
	Text      string
	FontPath  string
	FontSize  float64
	TextColor Color
	HAlign    TextHorizontalAlign
	VAlign    TextVerticalAlign

	// Button style. The rendered background fades between Background,
	// HoverColor, and PressedColor as the pointer interacts with it.
	HoverColor   Color
	PressedColor Color

	Children []*Widget
}

// NewContainer creates a container widget laying out children along axis.
func NewContainer(axis Axis, children ...*Widget) *Widget {
	return &Widget{Kind: WidgetContainer, Axis: axis, Children: children}
}

// NewImage creates an image widget referencing an image asset by path.
func NewImage(path string) *Widget {
	return &Widget{Kind: WidgetImage, ImagePath: path, Tint: ColorWhite}
}

// NewText creates a text widget. The font is referenced by asset path and
// loaded on demand; the widget renders nothing until the font is available.
func NewText(id, text, fontPath string, size float64) *Widget {
	return &Widget{
		Kind:      WidgetText,
		ID:        id,
		Text:      text,
		FontPath:  fontPath,
		FontSize:  size,
		TextColor: ColorWhite,
	}
}

// NewButton creates a button widget with the given stable ID.
func NewButton(id string, children ...*Widget) *Widget {
	return &Widget{Kind: WidgetButton, ID: id, Children: children}
}

// UITree is the host-owned UI description resource. The render hook compares
// the monotonic version counter each frame and re-applies the whole tree
// when it has changed; there is no deep diffing.
type UITree struct {
	root    *Widget
	version uint64
}

// NewUITree creates an empty tree store.
func NewUITree() *UITree {
	return &UITree{}
}

// Set replaces the tree wholesale and bumps the version counter. The root
// and everything reachable from it must not be mutated afterwards.
func (t *UITree) Set(root *Widget) {
	t.root = root
	t.version++
}

// Root returns the current tree root, or nil if none has been set.
func (t *UITree) Root() *Widget {
	return t.root
}

// Version returns the monotonic change counter. Zero means no tree has been
// set yet.
func (t *UITree) Version() uint64 {
	return t.version
}
