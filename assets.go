package retro

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"log"
	"strings"
	"sync"

	_ "image/png" // register PNG decoding for image assets

	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Handle is an opaque identifier for an asset. Handle IDs are not derivable
// from paths; the asset server owns the path → handle mapping. The same path
// always resolves to the same handle within a session.
type Handle uint32

// HandleNone is the zero Handle, referring to no asset.
const HandleNone Handle = 0

// LoadState describes where an asset is in its load lifecycle.
type LoadState uint8

const (
	LoadStateNotLoaded LoadState = iota // no load requested yet
	LoadStateLoading                    // load in flight
	LoadStateLoaded                     // data available
	LoadStateFailed                     // load failed; data never becomes available
)

// ImageAsset is a decoded image: raw RGBA pixels, row-major, 4 bytes per pixel.
type ImageAsset struct {
	Width  int
	Height int
	Pixels []byte
}

// FontAsset is a parsed TrueType/OpenType font.
type FontAsset struct {
	Font *sfnt.Font
}

// AssetServer is the host asset system contract. Paths are slash-delimited
// strings, optionally suffixed with "#label" to address a sub-asset.
//
// Render hooks only ever poll: they request loads, check states, and skip
// work for assets that are not available yet. They never block on a load.
type AssetServer interface {
	// GetHandle returns the stable handle for a path, allocating one if the
	// path has not been seen before.
	GetHandle(path string) Handle
	// LoadState reports the load lifecycle state of a handle.
	LoadState(h Handle) LoadState
	// Load requests that the asset at path be loaded. Idempotent: loads
	// already in flight or completed are not re-requested.
	Load(path string)
	// Image returns the decoded image for a handle, or nil if the handle is
	// not a loaded image.
	Image(h Handle) *ImageAsset
	// Font returns the parsed font for a handle, or nil if the handle is
	// not a loaded font.
	Font(h Handle) *FontAsset
	// SoundData returns the raw bytes of a sound asset, or nil if the
	// handle is not a loaded sound. Decoding is the audio backend's job.
	SoundData(h Handle) []byte
}

// SplitAssetPath splits an asset path into its file part and optional label
// ("ui/sheet.png#button" -> "ui/sheet.png", "button").
func SplitAssetPath(path string) (file, label string) {
	if i := strings.IndexByte(path, '#'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

// FSAssetServer is an AssetServer backed by an fs.FS. Loads are decoded on a
// background goroutine; callers observe NotLoaded -> Loading -> Loaded or
// Failed through LoadState polling.
//
// Asset kind is determined by file extension: .png images, .ttf/.otf fonts.
type FSAssetServer struct {
	fsys fs.FS

	mu     sync.Mutex
	byPath map[string]Handle
	states map[Handle]LoadState
	images map[Handle]*ImageAsset
	fonts  map[Handle]*FontAsset
	sounds map[Handle][]byte
	next   Handle
}

// NewFSAssetServer creates an asset server reading from fsys.
func NewFSAssetServer(fsys fs.FS) *FSAssetServer {
	return &FSAssetServer{
		fsys:   fsys,
		byPath: make(map[string]Handle),
		states: make(map[Handle]LoadState),
		images: make(map[Handle]*ImageAsset),
		fonts:  make(map[Handle]*FontAsset),
		sounds: make(map[Handle][]byte),
	}
}

// GetHandle returns the stable handle for path, allocating one on first use.
func (s *FSAssetServer) GetHandle(path string) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.byPath[path]; ok {
		return h
	}
	s.next++
	h := s.next
	s.byPath[path] = h
	s.states[h] = LoadStateNotLoaded
	return h
}

// LoadState reports the current load state of h.
func (s *FSAssetServer) LoadState(h Handle) LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[h]
}

// Load requests a load of the asset at path. Loads already in flight or
// completed are not re-requested.
func (s *FSAssetServer) Load(path string) {
	h := s.GetHandle(path)
	s.mu.Lock()
	if s.states[h] != LoadStateNotLoaded {
		s.mu.Unlock()
		return
	}
	s.states[h] = LoadStateLoading
	s.mu.Unlock()

	go s.load(h, path)
}

// Image returns the decoded image for h, or nil.
func (s *FSAssetServer) Image(h Handle) *ImageAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images[h]
}

// Font returns the parsed font for h, or nil.
func (s *FSAssetServer) Font(h Handle) *FontAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fonts[h]
}

// SoundData returns the raw sound bytes for h, or nil.
func (s *FSAssetServer) SoundData(h Handle) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sounds[h]
}

func (s *FSAssetServer) load(h Handle, path string) {
	file, _ := SplitAssetPath(path)
	data, err := fs.ReadFile(s.fsys, file)
	if err != nil {
		s.fail(h, path, err)
		return
	}

	switch {
	case strings.HasSuffix(file, ".wav") || strings.HasSuffix(file, ".ogg"):
		s.mu.Lock()
		s.sounds[h] = data
		s.states[h] = LoadStateLoaded
		s.mu.Unlock()
	case strings.HasSuffix(file, ".ttf") || strings.HasSuffix(file, ".otf"):
		ft, err := opentype.Parse(data)
		if err != nil {
			s.fail(h, path, fmt.Errorf("parse font: %w", err))
			return
		}
		s.mu.Lock()
		s.fonts[h] = &FontAsset{Font: ft}
		s.states[h] = LoadStateLoaded
		s.mu.Unlock()
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			s.fail(h, path, fmt.Errorf("decode image: %w", err))
			return
		}
		bounds := img.Bounds()
		rgba := image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
		s.mu.Lock()
		s.images[h] = &ImageAsset{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
			Pixels: rgba.Pix,
		}
		s.states[h] = LoadStateLoaded
		s.mu.Unlock()
	}
}

func (s *FSAssetServer) fail(h Handle, path string, err error) {
	log.Printf("retro: failed to load asset %q: %v", path, err)
	s.mu.Lock()
	s.states[h] = LoadStateFailed
	s.mu.Unlock()
}
