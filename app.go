package retro

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// FrameContext carries the host collaborators a render hook needs for one
// frame. Each pipeline stage receives exactly the collaborators it uses as
// arguments; there is no ambient world lookup from inside hooks.
type FrameContext struct {
	DeltaSeconds float64
	TargetSize   Vec2
	Input        InputSnapshot
	Assets       AssetServer
}

// Plugin wires a feature into an App.
type Plugin interface {
	Build(app *App)
}

// System is a per-tick update function.
type System func(app *App, dt float64)

// UIEventType is the Donburi event type for UI interaction events.
// Subscribe to it in host systems to react to clicks and hovers.
var UIEventType = events.NewEventType[UIEvent]()

// worldEventSink publishes UI events to a world's event log.
type worldEventSink struct {
	world donburi.World
}

// NewWorldEventSink returns an EventSink that publishes to UIEventType.
func NewWorldEventSink(world donburi.World) EventSink {
	return worldEventSink{world: world}
}

func (s worldEventSink) EmitUIEvent(ev UIEvent) {
	UIEventType.Publish(s.world, ev)
}

// App is the host application: the donburi world, the asset server, the UI
// tree resource, registered systems, and render hooks. Construct one, add
// plugins, then Run.
type App struct {
	World  donburi.World
	Assets AssetServer
	Tree   *UITree

	systems []System
	hooks   []RenderHook
}

// NewApp creates an application around an asset server.
func NewApp(assets AssetServer) *App {
	return &App{
		World:  donburi.NewWorld(),
		Assets: assets,
		Tree:   NewUITree(),
	}
}

// AddPlugin builds the plugin into this app.
func (a *App) AddPlugin(p Plugin) *App {
	p.Build(a)
	return a
}

// AddSystem registers a per-tick system. Systems run in registration order,
// after the world's events have been dispatched.
func (a *App) AddSystem(s System) *App {
	a.systems = append(a.systems, s)
	return a
}

// AddRenderHook registers a render hook. Hooks prepare and render in
// registration order each frame; later hooks draw on top.
func (a *App) AddRenderHook(h RenderHook) *App {
	a.hooks = append(a.hooks, h)
	return a
}

// UIPlugin adds the UI render hook, publishing interaction events to the
// world's event log.
type UIPlugin struct{}

// Build implements Plugin.
func (UIPlugin) Build(app *App) {
	app.AddRenderHook(NewUIRenderHook(app.Tree, NewWorldEventSink(app.World)))
}

// SpritePlugin adds sprite and camera rendering.
type SpritePlugin struct{}

// Build implements Plugin.
func (SpritePlugin) Build(app *App) {
	app.AddRenderHook(NewSpriteRenderHook(app.World))
}

// AudioPlugin adds the sound event system on a backend.
type AudioPlugin struct {
	Backend AudioBackend
}

// Build implements Plugin.
func (p AudioPlugin) Build(app *App) {
	system := NewAudioSystem(p.Backend, app.Assets)
	system.Attach(app.World)
	app.AddSystem(func(*App, float64) {
		system.Process()
	})
}

// RunConfig configures the window for Run.
type RunConfig struct {
	Title  string
	Width  int
	Height int
}

// Run opens a window and drives the app's systems and render hooks until
// the window closes.
func (a *App) Run(cfg RunConfig) error {
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(&game{app: a})
}

// game adapts an App to the ebiten game loop.
type game struct {
	app *App

	gc          GraphicsContext
	initialized bool

	last        time.Time
	delta       float64
	input       InputSnapshot
	prevPressed bool
}

// Update advances one tick: measures delta time, polls input, dispatches
// world events, and runs systems.
func (g *game) Update() error {
	now := time.Now()
	if g.last.IsZero() {
		g.delta = 0
	} else {
		g.delta = now.Sub(g.last).Seconds()
	}
	g.last = now

	cx, cy := ebiten.CursorPosition()
	pressed := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	g.input = InputSnapshot{
		CursorX:      float64(cx),
		CursorY:      float64(cy),
		Pressed:      pressed,
		JustPressed:  pressed && !g.prevPressed,
		JustReleased: !pressed && g.prevPressed,
		Button:       MouseButtonLeft,
	}
	g.prevPressed = pressed

	events.ProcessAllEvents(g.app.World)
	for _, system := range g.app.systems {
		system(g.app, g.delta)
	}
	return nil
}

// Draw runs every render hook's prepare and render callbacks against the
// screen. Hook failures are fatal: they mean a malformed widget tree or an
// unimplemented code path, not a condition to render around.
func (g *game) Draw(screen *ebiten.Image) {
	if !g.initialized {
		g.gc = NewEbitenGraphics()
		for _, hook := range g.app.hooks {
			if err := hook.Init(g.gc); err != nil {
				panic(err)
			}
		}
		g.initialized = true
	}

	bounds := screen.Bounds()
	frame := &FrameContext{
		DeltaSeconds: g.delta,
		TargetSize:   Vec2{X: float64(bounds.Dx()), Y: float64(bounds.Dy())},
		Input:        g.input,
		Assets:       g.app.Assets,
	}
	target := &EbitenRenderTarget{Image: screen}

	for _, hook := range g.app.hooks {
		if err := hook.Prepare(frame); err != nil {
			panic(err)
		}
		if err := hook.Render(frame, target); err != nil {
			panic(err)
		}
	}
}

// Layout reports the rendering size; the UI reflows to match the window.
func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
