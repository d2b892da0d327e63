package retro

import (
	"fmt"
	"math"
)

// RenderHook is the host rendering pipeline's extension point. The host
// calls Init once when the graphics context becomes available, then Prepare
// and Render once per frame, in that order, on the thread that owns the
// graphics context.
//
// Prepare and Render errors are fatal for the frame: they indicate a
// malformed or unimplemented state, not a transient condition, and the host
// is expected to terminate with the diagnostic rather than skip rendering.
type RenderHook interface {
	Init(gc GraphicsContext) error
	Prepare(frame *FrameContext) error
	Render(frame *FrameContext, target RenderTarget) error
}

// UIRenderHook bridges the retained widget tree into the immediate-mode
// tesselate-and-draw pipeline. Per frame it updates interactions, re-applies
// the tree if its version changed, advances animations, lays out and
// tesselates the UI, resolves the assets the tesselation references,
// rasterizes text blocks, and issues one draw call per batch through a
// single shared shader program.
type UIRenderHook struct {
	gc           GraphicsContext
	tree         *UITree
	app          *UIApplication
	interactions *InteractionEngine

	program  Program
	textTess Tess // shared unit quad positioned by the text uniforms

	currentTess *Tesselation

	// imageRetention and fontRetention hold every asset handle the UI has
	// ever referenced so the host's reference-counted asset system never
	// unloads them. Growth is monotonic for the hook's lifetime: once the
	// UI uses an asset it may want it again at any time, so nothing is
	// evicted. This is a known limitation, not a leak to fix silently.
	imageRetention map[Handle]struct{}
	fontRetention  map[Handle]struct{}

	// handleToPath is the reverse lookup from handle to the path string the
	// tesselation references it by. The image-size mapping fed to layout is
	// keyed by path, but uploaded textures are keyed by handle, so both
	// directions are needed.
	handleToPath map[Handle]string

	// textureCache holds image textures uploaded from loaded assets.
	textureCache map[Handle]Texture

	// textTextures maps widget ID to this frame's rasterized text texture.
	// Rebuilt every frame; never persisted.
	textTextures map[string]Texture

	clips clipStack
}

// NewUIRenderHook creates the hook rendering tree. Interaction events are
// forwarded to sink, which may be nil.
func NewUIRenderHook(tree *UITree, sink EventSink) *UIRenderHook {
	return &UIRenderHook{
		tree:           tree,
		app:            NewUIApplication(),
		interactions:   NewInteractionEngine(sink),
		imageRetention: make(map[Handle]struct{}),
		fontRetention:  make(map[Handle]struct{}),
		handleToPath:   make(map[Handle]string),
		textureCache:   make(map[Handle]Texture),
		textTextures:   make(map[string]Texture),
	}
}

// quadVerts is the shared unit quad, as a triangle fan, that the text mode
// stretches to each text block's transform and size.
var quadVerts = []Vertex{
	{Pos: [2]float32{0, 0}, UV: [2]float32{0, 0}, Color: [4]float32{1, 1, 1, 1}},
	{Pos: [2]float32{1, 0}, UV: [2]float32{1, 0}, Color: [4]float32{1, 1, 1, 1}},
	{Pos: [2]float32{1, 1}, UV: [2]float32{1, 1}, Color: [4]float32{1, 1, 1, 1}},
	{Pos: [2]float32{0, 1}, UV: [2]float32{0, 1}, Color: [4]float32{1, 1, 1, 1}},
}

// Init compiles the shared shader program and builds the text quad.
func (h *UIRenderHook) Init(gc GraphicsContext) error {
	h.gc = gc
	program, err := gc.NewProgram(uiShaderSrc)
	if err != nil {
		return fmt.Errorf("retro: compile UI shader: %w", err)
	}
	h.program = program

	textTess, err := gc.NewTess(quadVerts, nil, PrimitiveTriangleFan)
	if err != nil {
		return fmt.Errorf("retro: build text quad tess: %w", err)
	}
	h.textTess = textTess
	return nil
}

// Prepare runs the frame's UI processing: interactions, tree diff,
// animation advance, layout, and tesselation. Layout or tesselation failure
// means the widget tree is malformed and is fatal for the frame.
func (h *UIRenderHook) Prepare(frame *FrameContext) error {
	// Interactions hit test against the previous frame's layout, matching
	// what was actually on screen when the input happened.
	h.interactions.Update(frame.Input, h.app.CurrentLayout())

	if h.tree.Version() != h.app.Version() {
		h.app.Apply(h.tree.Root(), h.tree.Version())
	}

	h.app.SetAnimationsDelta(frame.DeltaSeconds)

	// Forced processing runs every frame, not just on tree changes: widgets
	// animate and react independent of the tree, immediate-mode style.
	h.app.ForcedProcess()
	h.app.Interact(h.interactions)

	coords := NewCoordsMapping(frame.TargetSize.X, frame.TargetSize.Y)
	if err := h.app.Layout(coords, h.imageSizes()); err != nil {
		return fmt.Errorf("could not layout UI: %w", err)
	}

	tess, err := h.app.Tesselate()
	if err != nil {
		return fmt.Errorf("could not tesselate UI: %w", err)
	}
	h.currentTess = tess
	return nil
}

// imageSizes collects the pixel dimensions of every uploaded UI texture,
// keyed by asset path via the reverse handle lookup. An image referenced for
// the first time has no entry until its handle resolves and uploads, so its
// widget measures as zero for one frame.
func (h *UIRenderHook) imageSizes() map[string]Vec2 {
	sizes := make(map[string]Vec2, len(h.textureCache))
	for handle, tex := range h.textureCache {
		path, ok := h.handleToPath[handle]
		if !ok {
			continue
		}
		w, hh := tex.Size()
		sizes[path] = Vec2{X: float64(w), Y: float64(hh)}
	}
	return sizes
}

// Render resolves assets, rasterizes text, and executes the batched draw
// loop against the target framebuffer.
func (h *UIRenderHook) Render(frame *FrameContext, target RenderTarget) error {
	tess := h.currentTess
	if tess == nil {
		return nil
	}
	h.currentTess = nil

	h.resolveImages(frame.Assets, tess.Batches)
	h.resolveFonts(frame.Assets, tess.Batches)
	if err := h.rasterizeTextBlocks(frame.Assets, tess.Batches); err != nil {
		return err
	}

	gpuTess, err := h.uploadTess(tess)
	if err != nil {
		return fmt.Errorf("retro: upload UI tess: %w", err)
	}

	tw, th := target.Size()
	targetSize := [2]float32{float32(tw), float32(th)}

	// Clip regions never carry across frames; the warn-once latch does.
	h.clips.regions = h.clips.regions[:0]

	pipeline := h.gc.BeginPipeline(target)

	for _, batch := range tess.Batches {
		switch batch.Kind {
		case BatchColoredTriangles:
			pipeline.Draw(DrawCall{
				Program:    h.program,
				Tess:       gpuTess,
				Start:      batch.Range.Start,
				Count:      batch.Range.Len(),
				Mode:       WidgetColoredTriangles,
				TargetSize: targetSize,
				Scissor:    h.clips.active(),
				State:      UIRenderState,
			})

		case BatchImageTriangles:
			texture, ok := h.textureCache[frame.Assets.GetHandle(batch.Image)]
			if !ok {
				// Not loaded yet; skip this batch for this frame.
				continue
			}
			pipeline.Draw(DrawCall{
				Program:    h.program,
				Tess:       gpuTess,
				Start:      batch.Range.Start,
				Count:      batch.Range.Len(),
				Mode:       WidgetImageTriangles,
				Texture:    texture,
				TargetSize: targetSize,
				Scissor:    h.clips.active(),
				State:      UIRenderState,
			})

		case BatchExternalText:
			texture, ok := h.textTextures[batch.Widget]
			if !ok {
				continue
			}
			w, hh := texture.Size()
			// Round the translation so text lands on whole pixels.
			m := batch.Text.Transform
			m[4] = math.Round(m[4])
			m[5] = math.Round(m[5])
			pipeline.Draw(DrawCall{
				Program:       h.program,
				Tess:          h.textTess,
				Mode:          WidgetTextQuad,
				Texture:       texture,
				TargetSize:    targetSize,
				TextTransform: m,
				TextSize:      [2]float32{float32(w), float32(hh)},
				Scissor:       h.clips.active(),
				State:         UIRenderState,
			})

		case BatchFontTriangles:
			panic("retro: tesselated font rendering not implemented")

		case BatchClipPush:
			h.clips.push(batch.Transform, batch.BoxSize)

		case BatchClipPop:
			h.clips.pop()

		case BatchNone:
			// Nothing to draw.

		default:
			panic(fmt.Sprintf("retro: unknown batch kind %d", batch.Kind))
		}
	}

	return nil
}

// resolveImages maps every image path referenced by the batch list to an
// asset handle, requests loads for assets not yet loading, retains the
// handles, and uploads textures for assets whose data has arrived.
func (h *UIRenderHook) resolveImages(assets AssetServer, batches []Batch) {
	for i := range batches {
		if batches[i].Kind != BatchImageTriangles {
			continue
		}
		path := batches[i].Image
		handle := assets.GetHandle(path)
		h.handleToPath[handle] = path

		// Only request a load if none has started; loads in flight or
		// completed are left alone.
		if assets.LoadState(handle) == LoadStateNotLoaded {
			assets.Load(path)
		}

		h.imageRetention[handle] = struct{}{}

		if _, uploaded := h.textureCache[handle]; !uploaded {
			if img := assets.Image(handle); img != nil {
				texture, err := h.gc.NewTexture(img.Width, img.Height, img.Pixels, PixelatedSampler)
				if err == nil {
					h.textureCache[handle] = texture
				}
			}
		}
	}
}

// resolveFonts does the same for font paths referenced by text batches.
func (h *UIRenderHook) resolveFonts(assets AssetServer, batches []Batch) {
	for i := range batches {
		if batches[i].Kind != BatchExternalText {
			continue
		}
		path := batches[i].Text.Font
		handle := assets.GetHandle(path)

		if assets.LoadState(handle) == LoadStateNotLoaded {
			assets.Load(path)
		}

		h.fontRetention[handle] = struct{}{}
	}
}

// rasterizeTextBlocks renders every text batch whose font is available into
// a fresh texture for this frame, keyed by widget identity. Batches whose
// font has not loaded yet are skipped silently; the load was already
// requested.
func (h *UIRenderHook) rasterizeTextBlocks(assets AssetServer, batches []Batch) error {
	clear(h.textTextures)
	for i := range batches {
		if batches[i].Kind != BatchExternalText {
			continue
		}
		textBatch := batches[i].Text
		fontAsset := assets.Font(assets.GetHandle(textBatch.Font))
		if fontAsset == nil {
			continue
		}

		img, err := RasterizeTextBlock(textBatch, fontAsset)
		if err != nil {
			return err
		}
		bounds := img.Bounds()
		texture, err := h.gc.NewTexture(bounds.Dx(), bounds.Dy(), img.Pix, PixelatedSampler)
		if err != nil {
			return fmt.Errorf("retro: upload text texture: %w", err)
		}
		h.textTextures[batches[i].Widget] = texture
	}
	return nil
}

// uploadTess builds the frame's vertex and index buffers. Positions are
// floored to whole pixels for pixel-perfect output.
func (h *UIRenderHook) uploadTess(tess *Tesselation) (Tess, error) {
	verts := make([]Vertex, len(tess.Vertices))
	for i, v := range tess.Vertices {
		v.Pos[0] = float32(math.Floor(float64(v.Pos[0])))
		v.Pos[1] = float32(math.Floor(float64(v.Pos[1])))
		verts[i] = v
	}
	return h.gc.NewTess(verts, tess.Indices, PrimitiveTriangles)
}
