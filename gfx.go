package retro

// This file defines the graphics context capability protocol that render
// hooks draw through. The production implementation is the Ebitengine
// backend in gfx_ebiten.go; tests substitute recording fakes.

// PrimitiveMode selects how a tess's vertices are assembled into triangles.
type PrimitiveMode uint8

const (
	PrimitiveTriangles   PrimitiveMode = iota // indexed triangle list
	PrimitiveTriangleFan                      // fan around vertex 0 (quads)
)

// Vertex is the interleaved vertex format shared by all widget draw modes.
// Pos is in target pixels, UV in [0, 1], Color non-premultiplied RGBA.
type Vertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// TextureFilter selects the sampling filter for a texture.
type TextureFilter uint8

const (
	FilterNearest TextureFilter = iota // nearest-neighbor (pixel-perfect)
	FilterLinear                       // bilinear
)

// TextureWrap selects texture addressing outside [0, 1].
type TextureWrap uint8

const (
	WrapClampToEdge TextureWrap = iota // clamp (no tiling)
	WrapRepeat                         // tile
)

// Sampler configures texture filtering and wrapping.
type Sampler struct {
	MinFilter TextureFilter
	MagFilter TextureFilter
	WrapU     TextureWrap
	WrapV     TextureWrap
}

// PixelatedSampler is nearest-neighbor with clamp-to-edge wrapping.
// This is a hard requirement of the pixel-art rendering style: UI and text
// textures must never be smoothed.
var PixelatedSampler = Sampler{
	MinFilter: FilterNearest,
	MagFilter: FilterNearest,
	WrapU:     WrapClampToEdge,
	WrapV:     WrapClampToEdge,
}

// ScissorRect is a pixel-space clip rectangle. Rendering outside it is
// discarded.
type ScissorRect struct {
	X, Y, Width, Height int
}

// RenderState carries the fixed-function state for a draw call.
type RenderState struct {
	Blend     BlendMode
	CullCW    bool // cull back faces assuming clockwise front winding
	DepthTest bool
}

// UIRenderState is the state used for all UI draws: source-over blending,
// clockwise back-face culling, and no depth test so the UI always renders
// on top of scene content.
var UIRenderState = RenderState{Blend: BlendNormal, CullCW: true, DepthTest: false}

// WidgetMode is the value of the widget-type shader uniform. One shared
// program multiplexes all three shading modes.
type WidgetMode int32

const (
	WidgetColoredTriangles WidgetMode = iota // vertex color only
	WidgetImageTriangles                     // texture * vertex color
	WidgetTextQuad                           // fixed quad positioned by transform + size uniforms
)

// Program is an opaque handle to a compiled shader program.
type Program interface{}

// Tess is an opaque handle to an uploaded vertex + index buffer.
type Tess interface{}

// Texture is an opaque handle to an uploaded 2D texture.
type Texture interface {
	// Size returns the texture dimensions in pixels.
	Size() (width, height int)
}

// RenderTarget is a framebuffer a pipeline renders into.
type RenderTarget interface {
	// Size returns the target dimensions in pixels.
	Size() (width, height int)
}

// DrawCall is a single draw issued against a pipeline. One batch produces
// exactly one draw call.
type DrawCall struct {
	Program Program
	Tess    Tess
	Start   int // first index
	Count   int // number of indices; 0 draws the entire tess
	Mode    WidgetMode
	Texture Texture // nil for WidgetColoredTriangles

	// Uniforms.
	TargetSize [2]float32

	// WidgetTextQuad only: the transform and size that position the shared
	// unit quad. Ignored for other modes.
	TextTransform Affine
	TextSize      [2]float32

	Scissor *ScissorRect // nil = no scissor (full target)
	State   RenderState
}

// Pipeline issues draw calls against a render target. Draw order is
// submission order; the pipeline never reorders.
type Pipeline interface {
	Draw(call DrawCall)
}

// GraphicsContext is the capability a render hook drives to allocate GPU
// resources and render. It is owned by the host and passed explicitly to
// each hook, never looked up ambiently.
type GraphicsContext interface {
	// NewProgram compiles a shader program from source.
	NewProgram(source string) (Program, error)
	// NewTess uploads a vertex + index buffer. For PrimitiveTriangleFan,
	// indices may be nil.
	NewTess(vertices []Vertex, indices []uint16, mode PrimitiveMode) (Tess, error)
	// NewTexture uploads raw RGBA pixels (4 bytes per pixel, row-major).
	NewTexture(width, height int, pixels []byte, sampler Sampler) (Texture, error)
	// BeginPipeline opens a pipeline against a target framebuffer.
	BeginPipeline(target RenderTarget) Pipeline
}
