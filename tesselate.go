package retro

import "fmt"

// BatchKind tags one drawable unit within a tesselation. The draw executor
// matches on every kind exhaustively; adding a kind without teaching the
// executor about it is a bug that fails loudly at draw time.
type BatchKind uint8

const (
	BatchNone             BatchKind = iota // placeholder; draws nothing
	BatchColoredTriangles                  // vertex-colored triangles
	BatchImageTriangles                    // textured triangles referencing an image path
	BatchExternalText                      // text block rasterized externally per frame
	BatchFontTriangles                     // reserved: tesselated glyph triangles, unimplemented
	BatchClipPush                          // push a clip region for subsequent batches
	BatchClipPop                           // pop the innermost clip region
)

// IndexRange is a half-open range [Start, End) into a tesselation's index
// buffer.
type IndexRange struct {
	Start, End int
}

// Len returns the number of indices covered by the range.
func (r IndexRange) Len() int {
	return r.End - r.Start
}

// TextBatch carries everything needed to rasterize one text block: content,
// styling, the box it is laid out in, and the transform that positions the
// resulting quad.
type TextBatch struct {
	Text      string
	Font      string // font asset path
	Size      float64
	Color     Color
	BoxSize   Vec2
	HAlign    TextHorizontalAlign
	VAlign    TextVerticalAlign
	Transform Affine
}

// Batch is a tagged variant describing one drawable unit. Which fields are
// meaningful depends on Kind:
//
//	BatchColoredTriangles  Range
//	BatchImageTriangles    Range, Image
//	BatchExternalText      Widget, Text
//	BatchFontTriangles     Range, Image
//	BatchClipPush          Transform, BoxSize
//	BatchClipPop, BatchNone (no fields)
type Batch struct {
	Kind      BatchKind
	Range     IndexRange
	Image     string
	Widget    string
	Text      *TextBatch
	Transform Affine
	BoxSize   Vec2
}

// Tesselation is the flattened per-frame output of tesselating a laid-out
// widget tree: an interleaved vertex buffer, an index buffer, and an ordered
// batch list.
//
// Batch order is significant. Later batches draw on top of earlier ones, and
// clip push/pop batches nest; rendering out of order changes visual output.
type Tesselation struct {
	Vertices []Vertex
	Indices  []uint16
	Batches  []Batch
}

// WidgetStyler resolves the effective background color of a widget, letting
// interactive state (hover and press fades) influence tesselation output.
// A nil styler uses each widget's static Background.
type WidgetStyler interface {
	Background(w *Widget) Color
}

// Tesselate flattens a laid-out widget tree into vertices, indices, and an
// ordered batch list.
func Tesselate(layout *WidgetLayout, styler WidgetStyler) (*Tesselation, error) {
	t := &Tesselation{}
	if layout == nil || layout.root == nil {
		return t, nil
	}
	if err := t.walk(layout.root, styler); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tesselation) walk(box *layoutBox, styler WidgetStyler) error {
	w := box.widget

	if w.Clip {
		t.Batches = append(t.Batches, Batch{
			Kind:      BatchClipPush,
			Transform: TranslationAffine(box.rect.X, box.rect.Y),
			BoxSize:   Vec2{X: box.rect.Width, Y: box.rect.Height},
		})
	}

	switch w.Kind {
	case WidgetContainer, WidgetButton:
		bg := w.Background
		if styler != nil {
			bg = styler.Background(w)
		}
		if bg.A > 0 {
			if err := t.appendColoredQuad(box.rect, bg); err != nil {
				return err
			}
		}
	case WidgetImage:
		if err := t.appendImageQuad(box.rect, w.ImagePath, w.Tint); err != nil {
			return err
		}
	case WidgetText:
		if w.Text != "" && w.FontPath != "" {
			t.Batches = append(t.Batches, Batch{
				Kind:   BatchExternalText,
				Widget: w.ID,
				Text: &TextBatch{
					Text:      w.Text,
					Font:      w.FontPath,
					Size:      w.FontSize,
					Color:     w.TextColor,
					BoxSize:   Vec2{X: box.rect.Width, Y: box.rect.Height},
					HAlign:    w.HAlign,
					VAlign:    w.VAlign,
					Transform: TranslationAffine(box.rect.X, box.rect.Y),
				},
			})
		}
	}

	for _, child := range box.children {
		if err := t.walk(child, styler); err != nil {
			return err
		}
	}

	if w.Clip {
		t.Batches = append(t.Batches, Batch{Kind: BatchClipPop})
	}
	return nil
}

// appendColoredQuad emits a solid quad, extending the previous batch when it
// is also colored triangles so adjacent quads share one draw call.
func (t *Tesselation) appendColoredQuad(r Rect, c Color) error {
	rng, err := t.appendQuad(r, c)
	if err != nil {
		return err
	}
	if n := len(t.Batches); n > 0 && t.Batches[n-1].Kind == BatchColoredTriangles {
		t.Batches[n-1].Range.End = rng.End
		return nil
	}
	t.Batches = append(t.Batches, Batch{Kind: BatchColoredTriangles, Range: rng})
	return nil
}

// appendImageQuad emits a textured quad, extending the previous batch when
// it references the same image.
func (t *Tesselation) appendImageQuad(r Rect, path string, tint Color) error {
	rng, err := t.appendQuad(r, tint)
	if err != nil {
		return err
	}
	if n := len(t.Batches); n > 0 && t.Batches[n-1].Kind == BatchImageTriangles && t.Batches[n-1].Image == path {
		t.Batches[n-1].Range.End = rng.End
		return nil
	}
	t.Batches = append(t.Batches, Batch{Kind: BatchImageTriangles, Image: path, Range: rng})
	return nil
}

// appendQuad pushes four vertices and six indices (two CW triangles) for the
// rectangle and returns the index range covering them.
func (t *Tesselation) appendQuad(r Rect, c Color) (IndexRange, error) {
	base := len(t.Vertices)
	if base+4 > 0x10000 {
		return IndexRange{}, fmt.Errorf("retro: tesselation vertex buffer overflow (%d vertices)", base+4)
	}
	col := [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
	x0, y0 := float32(r.X), float32(r.Y)
	x1, y1 := float32(r.X+r.Width), float32(r.Y+r.Height)
	t.Vertices = append(t.Vertices,
		Vertex{Pos: [2]float32{x0, y0}, UV: [2]float32{0, 0}, Color: col},
		Vertex{Pos: [2]float32{x1, y0}, UV: [2]float32{1, 0}, Color: col},
		Vertex{Pos: [2]float32{x1, y1}, UV: [2]float32{1, 1}, Color: col},
		Vertex{Pos: [2]float32{x0, y1}, UV: [2]float32{0, 1}, Color: col},
	)
	start := len(t.Indices)
	b := uint16(base)
	t.Indices = append(t.Indices, b, b+1, b+2, b, b+2, b+3)
	return IndexRange{Start: start, End: start + 6}, nil
}
