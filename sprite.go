package retro

import (
	"math"
	"sort"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// PositionData is an entity's position in world pixels. Coordinates are
// integers: sprites sit on exact pixels, never between them. Z selects the
// draw layer; higher Z draws on top.
type PositionData struct {
	X, Y, Z int
}

// Position is the position component.
var Position = donburi.NewComponentType[PositionData]()

// SpriteData renders an image asset at the entity's position.
type SpriteData struct {
	Image    string // image asset path
	FlipX    bool
	FlipY    bool
	Centered bool // position is the sprite's center instead of its top-left
	Visible  bool
}

// Sprite is the sprite component.
var Sprite = donburi.NewComponentType[SpriteData]()

// CameraSizeMode selects how the camera maps world pixels to the target.
type CameraSizeMode uint8

const (
	// CameraFixedHeight fixes the world height in pixels; width follows the
	// target's aspect ratio.
	CameraFixedHeight CameraSizeMode = iota
	// CameraFixedWidth fixes the world width; height follows.
	CameraFixedWidth
	// CameraLetterboxed fixes both dimensions and letterboxes the rest.
	CameraLetterboxed
)

// CameraData is the scene camera. CenterX/CenterY is the world point at the
// middle of the screen.
type CameraData struct {
	Mode             CameraSizeMode
	Height           int // world pixels, CameraFixedHeight and CameraLetterboxed
	Width            int // world pixels, CameraFixedWidth and CameraLetterboxed
	CenterX, CenterY int
	Background       Color
}

// Camera is the camera component.
var Camera = donburi.NewComponentType[CameraData]()

var (
	spriteQuery = donburi.NewQuery(filter.Contains(Position, Sprite))
	cameraQuery = donburi.NewQuery(filter.Contains(Camera))
)

// viewTransform computes the world→target transform for a camera. The scale
// is uniform; world pixels map to square blocks of target pixels.
func viewTransform(cam *CameraData, targetW, targetH float64) Affine {
	var scale float64
	switch cam.Mode {
	case CameraFixedHeight:
		scale = targetH / float64(cam.Height)
	case CameraFixedWidth:
		scale = targetW / float64(cam.Width)
	case CameraLetterboxed:
		scale = math.Min(targetW/float64(cam.Width), targetH/float64(cam.Height))
	}
	m := TranslationAffine(targetW/2, targetH/2)
	m = m.Mul(ScaleAffine(scale, scale))
	return m.Mul(TranslationAffine(-float64(cam.CenterX), -float64(cam.CenterY)))
}

// SpriteRenderHook renders all sprite entities through the shared UI shader
// program, as colored and image-mapped triangle batches. It uses the same
// poll-and-skip asset resolution as the UI hook: sprites whose image hasn't
// loaded yet are skipped until it has.
type SpriteRenderHook struct {
	world donburi.World
	gc    GraphicsContext

	program Program

	retention    map[Handle]struct{}
	textureCache map[Handle]Texture

	currentTess *Tesselation
	background  Color
	hasCamera   bool
}

// NewSpriteRenderHook creates the hook rendering the world's sprites.
func NewSpriteRenderHook(world donburi.World) *SpriteRenderHook {
	return &SpriteRenderHook{
		world:        world,
		retention:    make(map[Handle]struct{}),
		textureCache: make(map[Handle]Texture),
	}
}

// Init compiles the shader program.
func (h *SpriteRenderHook) Init(gc GraphicsContext) error {
	h.gc = gc
	program, err := gc.NewProgram(uiShaderSrc)
	if err != nil {
		return err
	}
	h.program = program
	return nil
}

// spriteEntry is one visible sprite captured during Prepare.
type spriteEntry struct {
	pos    PositionData
	sprite SpriteData
	order  int // query order, for a stable sort within a Z layer
}

// Prepare gathers the camera and visible sprites and builds the frame's
// tesselation. Without a camera nothing is rendered.
func (h *SpriteRenderHook) Prepare(frame *FrameContext) error {
	h.currentTess = nil
	h.hasCamera = false

	var cam *CameraData
	cameraQuery.Each(h.world, func(entry *donburi.Entry) {
		if cam == nil {
			cam = Camera.Get(entry)
		}
	})
	if cam == nil {
		return nil
	}
	h.hasCamera = true
	h.background = cam.Background

	var sprites []spriteEntry
	spriteQuery.Each(h.world, func(entry *donburi.Entry) {
		sprite := Sprite.Get(entry)
		if !sprite.Visible {
			return
		}
		sprites = append(sprites, spriteEntry{
			pos:    *Position.Get(entry),
			sprite: *sprite,
			order:  len(sprites),
		})
	})
	// Z layers first; query order breaks ties so equal layers are stable.
	sort.SliceStable(sprites, func(i, j int) bool {
		if sprites[i].pos.Z != sprites[j].pos.Z {
			return sprites[i].pos.Z < sprites[j].pos.Z
		}
		return sprites[i].order < sprites[j].order
	})

	view := viewTransform(cam, frame.TargetSize.X, frame.TargetSize.Y)

	tess := &Tesselation{}
	if h.background.A > 0 {
		full := Rect{Width: frame.TargetSize.X, Height: frame.TargetSize.Y}
		if err := tess.appendColoredQuad(full, h.background); err != nil {
			return err
		}
	}
	for _, s := range sprites {
		size, known := h.spriteSize(frame.Assets, s.sprite.Image)
		if !known {
			// Size unknown until the asset loads; the resolve step in
			// Render requests the load, so the sprite appears next frame.
			size = Vec2{}
		}
		rect := spriteRect(s, size, view)
		if err := appendSpriteQuad(tess, rect, s.sprite); err != nil {
			return err
		}
	}

	h.currentTess = tess
	return nil
}

// spriteSize reports the pixel size of a sprite's image, if uploaded.
func (h *SpriteRenderHook) spriteSize(assets AssetServer, path string) (Vec2, bool) {
	tex, ok := h.textureCache[assets.GetHandle(path)]
	if !ok {
		return Vec2{}, false
	}
	w, hh := tex.Size()
	return Vec2{X: float64(w), Y: float64(hh)}, true
}

// spriteRect maps a sprite's world rectangle through the view transform,
// flooring to whole target pixels.
func spriteRect(s spriteEntry, size Vec2, view Affine) Rect {
	x := float64(s.pos.X)
	y := float64(s.pos.Y)
	if s.sprite.Centered {
		x -= size.X / 2
		y -= size.Y / 2
	}
	x0, y0 := view.Apply(x, y)
	x1, y1 := view.Apply(x+size.X, y+size.Y)
	return Rect{
		X:      math.Floor(x0),
		Y:      math.Floor(y0),
		Width:  math.Floor(x1) - math.Floor(x0),
		Height: math.Floor(y1) - math.Floor(y0),
	}
}

// appendSpriteQuad emits an image quad, mirroring UVs for flips.
func appendSpriteQuad(t *Tesselation, r Rect, sprite SpriteData) error {
	if err := t.appendImageQuad(r, sprite.Image, ColorWhite); err != nil {
		return err
	}
	if !sprite.FlipX && !sprite.FlipY {
		return nil
	}
	verts := t.Vertices[len(t.Vertices)-4:]
	if sprite.FlipX {
		for i := range verts {
			verts[i].UV[0] = 1 - verts[i].UV[0]
		}
	}
	if sprite.FlipY {
		for i := range verts {
			verts[i].UV[1] = 1 - verts[i].UV[1]
		}
	}
	return nil
}

// Render resolves sprite images and draws the batches in order.
func (h *SpriteRenderHook) Render(frame *FrameContext, target RenderTarget) error {
	tess := h.currentTess
	if tess == nil || !h.hasCamera {
		return nil
	}
	h.currentTess = nil

	h.resolve(frame.Assets, tess.Batches)

	gpuTess, err := h.gc.NewTess(tess.Vertices, tess.Indices, PrimitiveTriangles)
	if err != nil {
		return err
	}

	tw, th := target.Size()
	targetSize := [2]float32{float32(tw), float32(th)}
	state := RenderState{Blend: BlendNormal, CullCW: true}

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
				State:      state,
			})
		case BatchImageTriangles:
			texture, ok := h.textureCache[frame.Assets.GetHandle(batch.Image)]
			if !ok {
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
				State:      state,
			})
		}
	}
	return nil
}

// resolve requests loads and uploads textures for the frame's image batches.
func (h *SpriteRenderHook) resolve(assets AssetServer, batches []Batch) {
	for i := range batches {
		if batches[i].Kind != BatchImageTriangles {
			continue
		}
		path := batches[i].Image
		handle := assets.GetHandle(path)
		if assets.LoadState(handle) == LoadStateNotLoaded {
			assets.Load(path)
		}
		h.retention[handle] = struct{}{}
		if _, uploaded := h.textureCache[handle]; !uploaded {
			if img := assets.Image(handle); img != nil {
				if texture, err := h.gc.NewTexture(img.Width, img.Height, img.Pixels, PixelatedSampler); err == nil {
					h.textureCache[handle] = texture
				}
			}
		}
	}
}
