// Package vizmap draws a robot's transform tree and pose estimate on a
// pannable, zoomable 2D map using [Ebitengine].
//
// Data arrives as JSON messages from a [Subscriber] (the rosbridge client, or
// a [Loopback] for offline use). A [FrameTree] holds every frame's pose
// relative to its parent and resolves them into a fixed frame. A
// [Projector] maps world metres to screen pixels. Layers turn both into
// pixels, and a [Scene] hosts the layers as an [ebiten.Game].
//
// # Quick start
//
// The simplest way to get a window is [Run]:
//
//	ctx := vizmap.NewContext(vizmap.ContextOptions{FixedFrame: "map"})
//	scene, _ := vizmap.NewScene(ctx, vizmap.SceneConfig{ShowStatus: true})
//	scene.AddLayer(vizmap.NewTFLayer(ctx, "tf"))
//	vizmap.Run(scene, vizmap.RunConfig{Title: "map", Width: 960, Height: 640})
//
// # Threading
//
// Core state is owned by the game loop goroutine. Transports deliver on their
// own goroutines and hand work over through a [Dispatcher]; [Scene.Post] is
// the production one. Messages from a subscription that has since been
// replaced carry an old generation and are dropped.
//
// # Events
//
// The [Bus] announces topology changes (frames added, removed or moved, or a
// new fixed frame), view changes (pan, zoom, resize) and accepted pose data.
// Layers subscribe in their constructors and unsubscribe in Close.
//
// # Rendering
//
// Each layer draws into its own offscreen [Surface] and is redrawn only
// when its Dirty flag is set. The scene composites the surfaces every frame.
// Renderers ([LinesRenderer], [AxesRenderer], [LabelRenderer],
// [CovarianceEllipseRenderer]) draw through the Surface interface so they
// can be tested without a GPU.
//
// # Input
//
// Left or middle drag pans, the wheel zooms about the cursor. Keys are bound
// with [Scene.BindKey]; P saves a screenshot. [Scene.InjectDrag] and
// [Scene.InjectWheel] feed synthetic input, and [LoadScript] sequences them
// with screenshots for automated visual checks.
//
// [Ebitengine]: https://ebitengine.org
package vizmap
