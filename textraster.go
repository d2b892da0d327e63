package retro

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// RasterizeTextBlock renders a text batch into a standalone RGBA bitmap
// sized to the batch's box: the width is the box width, the height is the
// box height when set, or the laid-out content height otherwise.
//
// Rasterization happens on the CPU every frame for every visible text
// block; results are not cached across frames. Caching identical
// rasterizations is a future optimization.
func RasterizeTextBlock(batch *TextBatch, fontAsset *FontAsset) (*image.RGBA, error) {
	face, err := opentype.NewFace(fontAsset.Font, &opentype.FaceOptions{
		Size:    batch.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("retro: create font face: %w", err)
	}
	defer face.Close()

	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	boxW := int(math.Round(batch.BoxSize.X))
	if boxW <= 0 {
		boxW = 1
	}
	lines := wrapLines(face, batch.Text, fixed.I(boxW))
	contentH := len(lines) * lineHeight

	boxH := int(math.Round(batch.BoxSize.Y))
	if boxH <= 0 {
		boxH = contentH
	}
	if boxH <= 0 {
		boxH = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, boxW, boxH))

	var yOff int
	switch batch.VAlign {
	case TextAlignMiddle:
		yOff = (boxH - contentH) / 2
	case TextAlignBottom:
		yOff = boxH - contentH
	}

	src := image.NewUniform(color.NRGBA{
		R: uint8(clamp01(batch.Color.R) * 255),
		G: uint8(clamp01(batch.Color.G) * 255),
		B: uint8(clamp01(batch.Color.B) * 255),
		A: uint8(clamp01(batch.Color.A) * 255),
	})

	d := font.Drawer{Dst: img, Src: src, Face: face}
	for i, line := range lines {
		width := d.MeasureString(line)
		var x fixed.Int26_6
		switch batch.HAlign {
		case TextAlignCenter:
			x = (fixed.I(boxW) - width) / 2
		case TextAlignRight:
			x = fixed.I(boxW) - width
		}
		d.Dot = fixed.Point26_6{X: x, Y: fixed.I(yOff + i*lineHeight + ascent)}
		d.DrawString(line)
	}

	return img, nil
}

// wrapLines splits text on newlines and wraps each paragraph to maxWidth at
// word boundaries. A single word wider than the box stays on its own line
// and overflows; mid-word breaking is not supported.
func wrapLines(face font.Face, text string, maxWidth fixed.Int26_6) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			if font.MeasureString(face, candidate) > maxWidth {
				lines = append(lines, current)
				current = word
				continue
			}
			current = candidate
		}
		lines = append(lines, current)
	}
	return lines
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
