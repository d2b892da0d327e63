package retro

import (
	"strings"
	"testing"
)

// --- test doubles for the graphics protocol ---

type fakeProgram struct{ source string }

type fakeTess struct {
	vertices []Vertex
	indices  []uint16
	mode     PrimitiveMode
}

type fakeTexture struct{ w, h int }

func (t *fakeTexture) Size() (int, int) { return t.w, t.h }

type fakeTarget struct{ w, h int }

func (t *fakeTarget) Size() (int, int) { return t.w, t.h }

type fakePipeline struct {
	target RenderTarget
	calls  []DrawCall
}

func (p *fakePipeline) Draw(call DrawCall) {
	// Snapshot the scissor; the hook may reuse the backing array.
	if call.Scissor != nil {
		s := *call.Scissor
		call.Scissor = &s
	}
	p.calls = append(p.calls, call)
}

// fakeGraphics records resource creation and draw submission.
type fakeGraphics struct {
	programs  []*fakeProgram
	tesss     []*fakeTess
	textures  []*fakeTexture
	pipelines []*fakePipeline
}

func (g *fakeGraphics) NewProgram(source string) (Program, error) {
	p := &fakeProgram{source: source}
	g.programs = append(g.programs, p)
	return p, nil
}

func (g *fakeGraphics) NewTess(vertices []Vertex, indices []uint16, mode PrimitiveMode) (Tess, error) {
	t := &fakeTess{vertices: vertices, indices: indices, mode: mode}
	g.tesss = append(g.tesss, t)
	return t, nil
}

func (g *fakeGraphics) NewTexture(w, h int, pixels []byte, sampler Sampler) (Texture, error) {
	t := &fakeTexture{w: w, h: h}
	g.textures = append(g.textures, t)
	return t, nil
}

func (g *fakeGraphics) BeginPipeline(target RenderTarget) Pipeline {
	p := &fakePipeline{target: target}
	g.pipelines = append(g.pipelines, p)
	return p
}

// lastDraws returns the draw calls of the most recent pipeline.
func (g *fakeGraphics) lastDraws() []DrawCall {
	if len(g.pipelines) == 0 {
		return nil
	}
	return g.pipelines[len(g.pipelines)-1].calls
}

// --- synchronous fake asset server ---

// fakeAssets resolves loads instantly for registered content and leaves
// unregistered paths in the Loading state until finish is called.
type fakeAssets struct {
	byPath    map[string]Handle
	next      Handle
	states    map[Handle]LoadState
	images    map[Handle]*ImageAsset
	fonts     map[Handle]*FontAsset
	sounds    map[Handle][]byte
	loadCalls map[string]int

	imageContent map[string]*ImageAsset
	fontContent  map[string]*FontAsset
	soundContent map[string][]byte
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{
		byPath:       make(map[string]Handle),
		states:       make(map[Handle]LoadState),
		images:       make(map[Handle]*ImageAsset),
		fonts:        make(map[Handle]*FontAsset),
		sounds:       make(map[Handle][]byte),
		loadCalls:    make(map[string]int),
		imageContent: make(map[string]*ImageAsset),
		fontContent:  make(map[string]*FontAsset),
		soundContent: make(map[string][]byte),
	}
}

func (a *fakeAssets) addImage(path string, w, h int) {
	a.imageContent[path] = &ImageAsset{Width: w, Height: h, Pixels: make([]byte, w*h*4)}
}

func (a *fakeAssets) addFont(t *testing.T, path string) {
	a.fontContent[path] = testFont(t)
}

func (a *fakeAssets) addSound(path string, data []byte) {
	a.soundContent[path] = data
}

// finish completes a load that was pending when Load was called.
func (a *fakeAssets) finish(path string) {
	h := a.GetHandle(path)
	if img, ok := a.imageContent[path]; ok {
		a.images[h] = img
		a.states[h] = LoadStateLoaded
		return
	}
	if f, ok := a.fontContent[path]; ok {
		a.fonts[h] = f
		a.states[h] = LoadStateLoaded
		return
	}
	if d, ok := a.soundContent[path]; ok {
		a.sounds[h] = d
		a.states[h] = LoadStateLoaded
	}
}

func (a *fakeAssets) GetHandle(path string) Handle {
	if h, ok := a.byPath[path]; ok {
		return h
	}
	a.next++
	a.byPath[path] = a.next
	a.states[a.next] = LoadStateNotLoaded
	return a.next
}

func (a *fakeAssets) LoadState(h Handle) LoadState { return a.states[h] }

func (a *fakeAssets) Load(path string) {
	a.loadCalls[path]++
	h := a.GetHandle(path)
	if a.states[h] != LoadStateNotLoaded {
		return
	}
	a.states[h] = LoadStateLoading
	a.finish(path)
}

func (a *fakeAssets) Image(h Handle) *ImageAsset { return a.images[h] }
func (a *fakeAssets) Font(h Handle) *FontAsset   { return a.fonts[h] }
func (a *fakeAssets) SoundData(h Handle) []byte  { return a.sounds[h] }

// --- hook scenario helpers ---

func runFrame(t *testing.T, h *UIRenderHook, assets AssetServer) []DrawCall {
	t.Helper()
	gc := h.gc.(*fakeGraphics)
	frame := &FrameContext{
		DeltaSeconds: 1.0 / 60,
		TargetSize:   Vec2{X: 200, Y: 200},
		Assets:       assets,
	}
	if err := h.Prepare(frame); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := h.Render(frame, &fakeTarget{w: 200, h: 200}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return gc.lastDraws()
}

func newTestHook(t *testing.T, tree *UITree) (*UIRenderHook, *fakeGraphics) {
	t.Helper()
	gc := &fakeGraphics{}
	h := NewUIRenderHook(tree, nil)
	if err := h.Init(gc); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return h, gc
}

// --- Init ---

func TestUIRenderHookInit(t *testing.T) {
	_, gc := newTestHook(t, NewUITree())
	if len(gc.programs) != 1 {
		t.Fatalf("Init compiled %d programs, want 1", len(gc.programs))
	}
	if !strings.Contains(gc.programs[0].source, "WidgetType") {
		t.Error("UI shader source is missing the WidgetType uniform")
	}
	if len(gc.tesss) != 1 || gc.tesss[0].mode != PrimitiveTriangleFan {
		t.Errorf("Init did not build the shared text quad fan")
	}
}

// --- asset resolution and skip-if-missing ---

func TestUIRenderHookImageLoadLifecycle(t *testing.T) {
	assets := newFakeAssets()
	// Content registered only later: the load stays pending.

	tree := NewUITree()
	tree.Set(NewContainer(AxisVertical, NewImage("images/hero.png")))
	h, _ := newTestHook(t, tree)

	// Frame 1: the load is requested once; nothing can be drawn.
	draws := runFrame(t, h, assets)
	if got := assets.loadCalls["images/hero.png"]; got != 1 {
		t.Fatalf("frame 1 load calls = %d, want 1", got)
	}
	if len(draws) != 0 {
		t.Fatalf("frame 1 issued %d draws, want 0", len(draws))
	}

	// Frame 2: still loading. The hook must not re-request.
	draws = runFrame(t, h, assets)
	if got := assets.loadCalls["images/hero.png"]; got != 1 {
		t.Errorf("frame 2 load calls = %d, want still 1", got)
	}
	if len(draws) != 0 {
		t.Errorf("frame 2 issued %d draws, want 0", len(draws))
	}

	// The load completes; the next frame uploads and draws.
	assets.addImage("images/hero.png", 16, 16)
	assets.finish("images/hero.png")
	draws = runFrame(t, h, assets)
	if len(draws) != 1 {
		t.Fatalf("frame 3 issued %d draws, want 1", len(draws))
	}
	call := draws[0]
	if call.Mode != WidgetImageTriangles {
		t.Errorf("draw mode = %v, want WidgetImageTriangles", call.Mode)
	}
	if call.Texture == nil {
		t.Error("image draw has no texture")
	}
	if call.TargetSize != [2]float32{200, 200} {
		t.Errorf("target size uniform = %v", call.TargetSize)
	}
}

func TestUIRenderHookRetentionMonotonic(t *testing.T) {
	assets := newFakeAssets()
	assets.addImage("images/a.png", 4, 4)
	assets.addImage("images/b.png", 4, 4)

	tree := NewUITree()
	tree.Set(NewContainer(AxisVertical, NewImage("images/a.png")))
	h, _ := newTestHook(t, tree)
	runFrame(t, h, assets)

	if _, ok := h.imageRetention[assets.GetHandle("images/a.png")]; !ok {
		t.Fatal("referenced image not retained")
	}

	// A tree that no longer references the first image must not release it.
	tree.Set(NewContainer(AxisVertical, NewImage("images/b.png")))
	runFrame(t, h, assets)

	if _, ok := h.imageRetention[assets.GetHandle("images/a.png")]; !ok {
		t.Error("retention released a previously referenced image")
	}
	if _, ok := h.imageRetention[assets.GetHandle("images/b.png")]; !ok {
		t.Error("newly referenced image not retained")
	}
}

func TestUIRenderHookImageSizeLag(t *testing.T) {
	assets := newFakeAssets()
	assets.addImage("images/a.png", 32, 8)

	img := NewImage("images/a.png")
	img.ID = "img"
	tree := NewUITree()
	tree.Set(NewContainer(AxisVertical, img))
	h, _ := newTestHook(t, tree)

	// First frame: the texture uploads during Render, after layout already
	// ran, so the widget measures zero.
	runFrame(t, h, assets)
	r, _ := h.app.CurrentLayout().Rect("img")
	if r.Width != 0 || r.Height != 0 {
		t.Errorf("frame 1 image rect = %+v, want zero", r)
	}

	// Second frame: layout sees the uploaded texture's size.
	runFrame(t, h, assets)
	r, _ = h.app.CurrentLayout().Rect("img")
	if r.Width != 32 || r.Height != 8 {
		t.Errorf("frame 2 image rect = %+v, want 32x8", r)
	}
}

// --- draw order and clipping ---

func TestUIRenderHookBatchOrderAndScissor(t *testing.T) {
	assets := newFakeAssets()
	assets.addImage("images/icon.png", 8, 8)

	icon := NewImage("images/icon.png")
	clipped := NewContainer(AxisVertical, icon)
	clipped.Sizing = Fixed(50, 40)
	clipped.Clip = true
	clipped.Background = Color{B: 1, A: 1}

	after := NewContainer(AxisVertical)
	after.Sizing = Fixed(10, 10)
	after.Background = Color{R: 1, A: 1}

	tree := NewUITree()
	tree.Set(NewContainer(AxisVertical, clipped, after))
	h, _ := newTestHook(t, tree)

	// Two frames so the icon texture exists when geometry is emitted.
	runFrame(t, h, assets)
	draws := runFrame(t, h, assets)

	if len(draws) != 3 {
		t.Fatalf("issued %d draws, want 3", len(draws))
	}
	if draws[0].Mode != WidgetColoredTriangles || draws[1].Mode != WidgetImageTriangles || draws[2].Mode != WidgetColoredTriangles {
		t.Fatalf("draw modes = %v %v %v", draws[0].Mode, draws[1].Mode, draws[2].Mode)
	}

	want := ScissorRect{X: 0, Y: 0, Width: 50, Height: 40}
	for i := 0; i < 2; i++ {
		if draws[i].Scissor == nil || *draws[i].Scissor != want {
			t.Errorf("draw %d scissor = %+v, want %+v", i, draws[i].Scissor, want)
		}
	}
	if draws[2].Scissor != nil {
		t.Errorf("draw after clip pop still scissored: %+v", *draws[2].Scissor)
	}
}

func TestUIRenderHookNestedClipScissor(t *testing.T) {
	assets := newFakeAssets()

	leaf := NewContainer(AxisVertical)
	leaf.Background = ColorWhite

	inner := NewContainer(AxisVertical, leaf)
	inner.Sizing = Fixed(20, 20)
	inner.Clip = true
	inner.Background = ColorWhite

	outer := NewContainer(AxisVertical, inner)
	outer.Sizing = Fixed(100, 100)
	outer.Clip = true
	outer.Background = ColorWhite

	tree := NewUITree()
	tree.Set(NewContainer(AxisVertical, outer))
	h, _ := newTestHook(t, tree)
	draws := runFrame(t, h, assets)

	// outer background under the outer clip, then inner background + leaf
	// merged under the inner clip.
	if len(draws) != 2 {
		t.Fatalf("issued %d draws, want 2", len(draws))
	}
	if s := draws[0].Scissor; s == nil || *s != (ScissorRect{0, 0, 100, 100}) {
		t.Errorf("outer scissor = %+v", s)
	}
	if s := draws[1].Scissor; s == nil || *s != (ScissorRect{0, 0, 20, 20}) {
		t.Errorf("inner scissor = %+v", s)
	}
}

// --- text ---

func TestUIRenderHookTextDraw(t *testing.T) {
	assets := newFakeAssets()
	assets.addFont(t, "fonts/regular.ttf")

	text := NewText("label", "Hi", "fonts/regular.ttf", 12)
	text.Sizing = Fixed(40, 20)
	tree := NewUITree()
	tree.Set(NewContainer(AxisVertical, text))
	h, gc := newTestHook(t, tree)

	draws := runFrame(t, h, assets)
	if len(draws) != 1 {
		t.Fatalf("issued %d draws, want 1", len(draws))
	}
	call := draws[0]
	if call.Mode != WidgetTextQuad {
		t.Fatalf("draw mode = %v, want WidgetTextQuad", call.Mode)
	}
	// Text reuses the shared unit quad built at Init.
	if call.Tess != gc.tesss[0] {
		t.Error("text draw does not use the shared quad tess")
	}
	if call.Texture == nil {
		t.Fatal("text draw has no texture")
	}
	w, hh := call.Texture.Size()
	if w != 40 || hh != 20 {
		t.Errorf("text texture = %dx%d, want the 40x20 box", w, hh)
	}
	if call.TextSize != [2]float32{40, 20} {
		t.Errorf("text size uniform = %v", call.TextSize)
	}
	// The transform translation is rounded to whole pixels.
	if tx := call.TextTransform[4]; tx != float64(int(tx)) {
		t.Errorf("text translation x = %v, want whole pixels", tx)
	}
}

func TestUIRenderHookTextFontPending(t *testing.T) {
	assets := newFakeAssets()

	tree := NewUITree()
	tree.Set(NewContainer(AxisVertical, NewText("label", "Hi", "fonts/regular.ttf", 12)))
	h, _ := newTestHook(t, tree)

	draws := runFrame(t, h, assets)
	if len(draws) != 0 {
		t.Errorf("pending font produced %d draws, want 0", len(draws))
	}
	if got := assets.loadCalls["fonts/regular.ttf"]; got != 1 {
		t.Errorf("font load calls = %d, want 1", got)
	}
	if _, ok := h.fontRetention[assets.GetHandle("fonts/regular.ttf")]; !ok {
		t.Error("referenced font not retained")
	}
}

func TestUIRenderHookTextTexturesPerFrame(t *testing.T) {
	assets := newFakeAssets()
	assets.addFont(t, "fonts/regular.ttf")

	text := NewText("label", "Hi", "fonts/regular.ttf", 12)
	text.Sizing = Fixed(40, 20)
	tree := NewUITree()
	tree.Set(NewContainer(AxisVertical, text))
	h, gc := newTestHook(t, tree)

	runFrame(t, h, assets)
	first := len(gc.textures)
	runFrame(t, h, assets)
	// Rasterization is per frame: a second frame uploads a fresh texture.
	if len(gc.textures) <= first {
		t.Error("second frame did not re-rasterize the text block")
	}
}

// --- unimplemented batch kinds ---

func TestUIRenderHookFontTrianglesPanics(t *testing.T) {
	h, _ := newTestHook(t, NewUITree())
	h.currentTess = &Tesselation{Batches: []Batch{{Kind: BatchFontTriangles}}}

	defer func() {
		if recover() == nil {
			t.Error("tesselated font batch did not panic")
		}
	}()
	frame := &FrameContext{TargetSize: Vec2{X: 100, Y: 100}, Assets: newFakeAssets()}
	h.Render(frame, &fakeTarget{w: 100, h: 100})
}

// --- tree versioning ---

func TestUIRenderHookAppliesOnVersionChange(t *testing.T) {
	assets := newFakeAssets()
	tree := NewUITree()
	tree.Set(NewContainer(AxisVertical))
	h, _ := newTestHook(t, tree)

	runFrame(t, h, assets)
	if h.app.Version() != tree.Version() {
		t.Fatalf("app version = %d, tree version = %d", h.app.Version(), tree.Version())
	}

	tree.Set(NewContainer(AxisVertical))
	runFrame(t, h, assets)
	if h.app.Version() != tree.Version() {
		t.Errorf("app did not re-apply after Set: app %d, tree %d", h.app.Version(), tree.Version())
	}
}
