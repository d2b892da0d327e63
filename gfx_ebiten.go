package retro

import (
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// uiShaderSrc is the single shared program all UI batches render through.
// The WidgetType uniform multiplexes the three shading modes over one
// shader so batches never cause a program switch.
const uiShaderSrc = `//kage:unit pixels
package main

var WidgetType float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	// Plain colored triangles: vertex color only, premultiplied.
	if WidgetType == 0 {
		return vec4(color.rgb*color.a, color.a)
	}

	c := imageSrc0At(src)
	// Un-premultiply before tinting.
	if c.a > 0 {
		c.rgb /= c.a
	}

	// Text blocks are rasterized with their color baked in; the quad's
	// vertex color is white, so this is a pass-through for them.
	out := c * color
	return vec4(out.rgb*out.a, out.a)
}
`

// EbitenGraphics implements GraphicsContext on Ebitengine. Programs are Kage
// shaders, tesses are retained vertex/index slices, and textures are
// ebiten images sampled nearest-neighbor inside the shader (the pixel-art
// requirement; linear filtering is not supported by this backend).
type EbitenGraphics struct {
	whitePixel *ebiten.Image
}

// NewEbitenGraphics creates the production graphics context.
func NewEbitenGraphics() *EbitenGraphics {
	white := ebiten.NewImage(1, 1)
	white.Fill(color.White)
	return &EbitenGraphics{whitePixel: white}
}

type ebitenProgram struct {
	shader *ebiten.Shader
}

type ebitenTess struct {
	vertices []Vertex
	indices  []uint16
}

type ebitenTexture struct {
	img *ebiten.Image
}

// Size returns the texture dimensions in pixels.
func (t *ebitenTexture) Size() (int, int) {
	b := t.img.Bounds()
	return b.Dx(), b.Dy()
}

// EbitenRenderTarget wraps an ebiten image as a pipeline target.
type EbitenRenderTarget struct {
	Image *ebiten.Image
}

// Size returns the target dimensions in pixels.
func (t *EbitenRenderTarget) Size() (int, int) {
	b := t.Image.Bounds()
	return b.Dx(), b.Dy()
}

// NewProgram compiles Kage shader source.
func (g *EbitenGraphics) NewProgram(source string) (Program, error) {
	shader, err := ebiten.NewShader([]byte(source))
	if err != nil {
		return nil, fmt.Errorf("retro: compile shader: %w", err)
	}
	return &ebitenProgram{shader: shader}, nil
}

// NewTess retains the vertex and index buffers. Triangle fans are expanded
// to an indexed triangle list up front.
func (g *EbitenGraphics) NewTess(vertices []Vertex, indices []uint16, mode PrimitiveMode) (Tess, error) {
	tess := &ebitenTess{vertices: vertices}
	switch mode {
	case PrimitiveTriangles:
		tess.indices = indices
	case PrimitiveTriangleFan:
		for i := 1; i+1 < len(vertices); i++ {
			tess.indices = append(tess.indices, 0, uint16(i), uint16(i+1))
		}
	default:
		return nil, fmt.Errorf("retro: unsupported primitive mode %d", mode)
	}
	return tess, nil
}

// NewTexture uploads premultiplied RGBA pixels into a new ebiten image.
func (g *EbitenGraphics) NewTexture(width, height int, pixels []byte, sampler Sampler) (Texture, error) {
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("retro: texture pixel buffer is %d bytes, want %d", len(pixels), width*height*4)
	}
	img := ebiten.NewImage(width, height)
	img.WritePixels(pixels)
	return &ebitenTexture{img: img}, nil
}

// BeginPipeline opens a pipeline against the target.
func (g *EbitenGraphics) BeginPipeline(target RenderTarget) Pipeline {
	return &ebitenPipeline{g: g, target: target.(*EbitenRenderTarget).Image}
}

type ebitenPipeline struct {
	g      *EbitenGraphics
	target *ebiten.Image

	// Scratch buffers reused across draws within the pipeline.
	verts []ebiten.Vertex
}

// Draw issues one draw call. Scissoring uses a SubImage of the target:
// rendering into a subimage clips to its region while vertex coordinates
// stay in the parent image's space.
func (p *ebitenPipeline) Draw(call DrawCall) {
	program := call.Program.(*ebitenProgram)
	tess := call.Tess.(*ebitenTess)

	dst := p.target
	if s := call.Scissor; s != nil {
		sub := dst.Bounds().Intersect(image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height))
		if sub.Empty() {
			return
		}
		dst = dst.SubImage(sub).(*ebiten.Image)
	}

	src := p.g.whitePixel
	if call.Texture != nil {
		src = call.Texture.(*ebitenTexture).img
	}
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()

	p.verts = p.verts[:0]
	for _, v := range tess.vertices {
		x, y := float64(v.Pos[0]), float64(v.Pos[1])
		if call.Mode == WidgetTextQuad {
			// The shared quad is a unit square; scale by the text size and
			// run it through the transform uniform.
			x, y = call.TextTransform.Apply(x*float64(call.TextSize[0]), y*float64(call.TextSize[1]))
		}
		p.verts = append(p.verts, ebiten.Vertex{
			DstX:   float32(x),
			DstY:   float32(y),
			SrcX:   v.UV[0] * float32(sw),
			SrcY:   v.UV[1] * float32(sh),
			ColorR: v.Color[0],
			ColorG: v.Color[1],
			ColorB: v.Color[2],
			ColorA: v.Color[3],
		})
	}

	indices := tess.indices
	if call.Count > 0 {
		indices = indices[call.Start : call.Start+call.Count]
	}

	opts := &ebiten.DrawTrianglesShaderOptions{
		Images: [4]*ebiten.Image{src},
		Blend:  call.State.Blend.EbitenBlend(),
		Uniforms: map[string]any{
			"WidgetType": float32(call.Mode),
		},
	}
	dst.DrawTrianglesShader(p.verts, indices, program.shader, opts)
}
