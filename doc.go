// Package retro is a pixel-perfect 2D rendering and UI layer for [Ebitengine].
//
// Retro bridges a retained widget tree into an immediate-mode draw pipeline:
// each frame the tree is laid out, tesselated into batched triangle geometry,
// and executed as a short list of draw calls against a pluggable graphics
// backend. Sprites, cameras, and sound plug into the same host loop through
// [Donburi] components and events.
//
// # Quick start
//
// Construct an [App] around an asset server, add the plugins you need, and
// call [App.Run]:
//
//	assets := retro.NewFSAssetServer(os.DirFS("assets"))
//	app := retro.NewApp(assets)
//	app.AddPlugin(retro.UIPlugin{})
//	app.AddPlugin(retro.SpritePlugin{})
//
//	app.Tree.Set(retro.NewContainer(retro.AxisVertical,
//		retro.NewText("title", "Hello", "fonts/mono.ttf", 16),
//	))
//
//	app.Run(retro.RunConfig{Title: "My Game", Width: 640, Height: 480})
//
// # Widget tree
//
// The UI is described as a tree of [Widget] values, built with the typed
// constructors [NewContainer], [NewImage], [NewText], and [NewButton] and
// installed with [UITree.Set]. Setting the tree bumps its version; the render
// hook diffs versions, so an unchanged tree costs no rebuild work.
//
// Layout is a single measure-then-arrange pass: widgets size themselves by
// [Sizing] mode (fit content, fixed pixels, or expand into leftover space)
// along a [Axis] with padding, gap, and cross-axis alignment.
//
// # Rendering
//
// Rendering is split behind the [GraphicsContext] interface. The shipped
// backend ([NewEbitenGraphics]) draws with Kage shaders on Ebitengine;
// tests drive the same pipeline with recording fakes. Assets load
// asynchronously and draws that reference a still-loading image are skipped
// until it resolves, so a frame never blocks on I/O.
//
// Text is rasterized on the CPU each frame with [golang.org/x/image/font]
// and uploaded as a texture per text widget, which keeps glyph placement
// identical across backends.
//
// # Sprites, events, and sound
//
// [SpritePlugin] renders [Sprite] components at integer pixel positions
// under a [Camera]. Button interactions publish [UIEvent] values to the
// world's event log as [UIEventType]; sound is requested by publishing
// [SoundEvent] values, which [AudioPlugin] retries until the underlying
// asset has loaded.
//
// [Ebitengine]: https://ebitengine.org
// [Donburi]: https://github.com/yohamta/donburi
package retro
