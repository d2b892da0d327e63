package retro

import (
	"bytes"
	"log"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// SoundID identifies a logical sound instance across sound events. IDs are
// chosen by the host; the audio system maps them to live backend handles
// when the CreateSound event for the ID is processed.
type SoundID uint32

// SoundEventKind identifies a sound event variant.
type SoundEventKind uint8

const (
	SoundEventCreate SoundEventKind = iota // map a sound asset to a SoundID
	SoundEventPlay
	SoundEventPause
	SoundEventResume
	SoundEventStop
)

// PlaybackSettings tunes a playback operation. A zero Volume leaves the
// current volume unchanged.
type PlaybackSettings struct {
	Volume float64
}

// SoundEvent is one entry in the host's ordered sound event log.
// Asset is only meaningful for SoundEventCreate.
type SoundEvent struct {
	Kind     SoundEventKind
	Asset    Handle
	Sound    SoundID
	Settings PlaybackSettings
}

// SoundEventType is the Donburi event type for sound events. Host code
// publishes SoundEvents here; the AudioSystem subscribes.
var SoundEventType = events.NewEventType[SoundEvent]()

// SoundHandle is a live backend sound that can be controlled.
type SoundHandle interface {
	Play(settings PlaybackSettings) error
	Pause(settings PlaybackSettings) error
	Resume(settings PlaybackSettings) error
	Stop(settings PlaybackSettings) error
}

// AudioBackend turns raw sound asset bytes into controllable sounds.
type AudioBackend interface {
	AddSound(data []byte) (SoundHandle, error)
}

// pendingHighWater is the pending-queue size at which the audio system
// warns that events are accumulating. Events referencing a SoundID that is
// never created retry forever; the warning makes that visible.
const pendingHighWater = 256

// AudioSystem processes the sound event log with deferred retry: events
// that cannot be handled yet (sound data not loaded, SoundID not mapped)
// are re-queued and retried every subsequent tick until they succeed.
// Nothing is ever dropped and no error is surfaced for an unresolved
// event; order among retried events is preserved.
type AudioSystem struct {
	backend AudioBackend
	assets  AssetServer

	handles map[SoundID]SoundHandle
	pending []SoundEvent
	inbox   []SoundEvent
	scratch []SoundEvent
	warned  bool
}

// NewAudioSystem creates the audio event processor.
func NewAudioSystem(backend AudioBackend, assets AssetServer) *AudioSystem {
	return &AudioSystem{
		backend: backend,
		assets:  assets,
		handles: make(map[SoundID]SoundHandle),
	}
}

// Attach subscribes the system to the world's sound event log.
func (s *AudioSystem) Attach(w donburi.World) {
	SoundEventType.Subscribe(w, s.receive)
}

func (s *AudioSystem) receive(_ donburi.World, ev SoundEvent) {
	s.inbox = append(s.inbox, ev)
}

// Process handles this tick's events: first the deferred events from
// earlier ticks, in their original order, then the newly received ones.
// Call once per tick, after the world's events have been dispatched.
func (s *AudioSystem) Process() {
	s.scratch = s.scratch[:0]
	for _, ev := range s.pending {
		if !s.handleEvent(ev) {
			s.scratch = append(s.scratch, ev)
		}
	}
	s.pending, s.scratch = s.scratch, s.pending

	for _, ev := range s.inbox {
		if !s.handleEvent(ev) {
			s.pending = append(s.pending, ev)
		}
	}
	s.inbox = s.inbox[:0]

	if !s.warned && len(s.pending) > pendingHighWater {
		log.Printf("retro: %d sound events pending; events referencing a "+
			"SoundID that is never created are retried forever", len(s.pending))
		s.warned = true
	}
}

// handleEvent returns false when the event cannot be handled yet and must
// be retried.
func (s *AudioSystem) handleEvent(ev SoundEvent) bool {
	if ev.Kind == SoundEventCreate {
		data := s.assets.SoundData(ev.Asset)
		if data == nil {
			return false
		}
		handle, err := s.backend.AddSound(data)
		if err != nil {
			// A backend rejection is permanent; retrying cannot succeed.
			log.Printf("retro: audio backend rejected sound %d: %v", ev.Sound, err)
			return true
		}
		s.handles[ev.Sound] = handle
		return true
	}

	handle, ok := s.handles[ev.Sound]
	if !ok {
		return false
	}
	var err error
	switch ev.Kind {
	case SoundEventPlay:
		err = handle.Play(ev.Settings)
	case SoundEventPause:
		err = handle.Pause(ev.Settings)
	case SoundEventResume:
		err = handle.Resume(ev.Settings)
	case SoundEventStop:
		err = handle.Stop(ev.Settings)
	}
	if err != nil {
		log.Printf("retro: sound %d operation failed: %v", ev.Sound, err)
	}
	return true
}

// EbitenAudioBackend plays sounds through Ebitengine's audio package.
// Sound data must be raw PCM in the context's sample rate and format;
// codec decoding stays outside this package.
type EbitenAudioBackend struct {
	ctx *audio.Context
}

// NewEbitenAudioBackend creates a backend on an audio context. There can be
// only one audio.Context per process; pass the host's.
func NewEbitenAudioBackend(ctx *audio.Context) *EbitenAudioBackend {
	return &EbitenAudioBackend{ctx: ctx}
}

// AddSound creates a player for the sound data.
func (b *EbitenAudioBackend) AddSound(data []byte) (SoundHandle, error) {
	player, err := b.ctx.NewPlayer(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &ebitenSound{player: player}, nil
}

type ebitenSound struct {
	player *audio.Player
}

func (s *ebitenSound) Play(settings PlaybackSettings) error {
	if settings.Volume > 0 {
		s.player.SetVolume(settings.Volume)
	}
	if err := s.player.Rewind(); err != nil {
		return err
	}
	s.player.Play()
	return nil
}

func (s *ebitenSound) Pause(PlaybackSettings) error {
	s.player.Pause()
	return nil
}

func (s *ebitenSound) Resume(settings PlaybackSettings) error {
	if settings.Volume > 0 {
		s.player.SetVolume(settings.Volume)
	}
	s.player.Play()
	return nil
}

func (s *ebitenSound) Stop(PlaybackSettings) error {
	s.player.Pause()
	return s.player.Rewind()
}
