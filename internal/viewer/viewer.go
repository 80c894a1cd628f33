// Package viewer implements the interactive splat viewer: window and
// input handling, an orbit camera, and the per-frame drive of the
// software render pipeline.
package viewer

import (
	"fmt"
	gomath "math"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/halcyox/gsplat/internal/config"
	"github.com/halcyox/gsplat/internal/engine/camera"
	"github.com/halcyox/gsplat/internal/engine/debug"
	"github.com/halcyox/gsplat/internal/engine/input"
	"github.com/halcyox/gsplat/internal/engine/renderer"
	"github.com/halcyox/gsplat/internal/engine/window"
	"github.com/halcyox/gsplat/internal/logger"
	"github.com/halcyox/gsplat/pkg/formats"
	"github.com/halcyox/gsplat/pkg/math"
	"github.com/halcyox/gsplat/pkg/render"
	"github.com/halcyox/gsplat/pkg/splat"
)

// App is the viewer application.
type App struct {
	cfg     *config.Config
	running bool

	window     *window.Window
	renderer   *renderer.Renderer
	input      *input.Input
	camera     *camera.OrbitCamera
	screenshot *debug.ScreenshotCapture

	scene    *splat.Scene
	pipeline *render.Pipeline
	frame    []byte

	width  int
	height int

	dragging   bool
	lastMouseX int
	lastMouseY int
}

// New loads the scene and creates the viewer window.
func New(cfg *config.Config) (*App, error) {
	logger.Info("loading scene", zap.String("path", cfg.Scene.Path))

	start := time.Now()
	scene, err := formats.ImportPLYFile(cfg.Scene.Path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.Scene.Path, err)
	}
	logger.Info("scene loaded",
		zap.Int("splats", scene.NumSplats),
		zap.Duration("took", time.Since(start)),
	)

	a := &App{
		cfg:    cfg,
		scene:  scene,
		width:  cfg.Graphics.Width,
		height: cfg.Graphics.Height,
	}

	// Create window (this also creates OpenGL context)
	a.window, err = window.New(window.Config{
		Title:      fmt.Sprintf("gsplat - %s", cfg.Scene.Path),
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	a.renderer, err = renderer.New(renderer.Config{
		Width:  cfg.Graphics.Width,
		Height: cfg.Graphics.Height,
	})
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	a.input = input.New()
	a.screenshot = debug.NewScreenshotCapture("screenshots", "gsplat")

	a.camera = camera.NewOrbitCamera()
	a.camera.FitToBounds(sceneBounds(scene))

	a.pipeline = render.New(scene, render.Config{
		Width:       cfg.Graphics.Width,
		Height:      cfg.Graphics.Height,
		RadiusSigma: cfg.Render.RadiusSigma,
		Workers:     cfg.Render.Workers,
	})

	logger.Info("viewer initialized")
	return a, nil
}

// Run starts the main loop.
func (a *App) Run() error {
	a.running = true

	frameCount := 0
	fpsTimer := time.Now()

	logger.Info("starting viewer loop")

	for a.running {
		// 1. Process input
		if a.input.Update() {
			break
		}
		a.handleEvents()

		// 2. Render the frame on the CPU
		fb := a.pipeline.Render(a.frameParams(), a.cfg.Render.Background)
		a.frame = fb.Resolve(a.frame)

		// 3. Present
		a.renderer.Present(a.frame)
		a.window.SwapBuffers()

		// FPS counter
		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			if a.cfg.Graphics.ShowFPS {
				a.window.SetTitle(fmt.Sprintf("gsplat - %s - %d fps", a.cfg.Scene.Path, frameCount))
			}
			logger.Debug("fps", zap.Int("count", frameCount))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

// Close cleans up viewer resources.
func (a *App) Close() {
	logger.Info("closing viewer")

	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}

func (a *App) handleEvents() {
	for _, event := range a.input.Events() {
		switch event.Type {
		case input.EventQuit:
			a.running = false

		case input.EventWindowResize:
			a.resize(event.Width, event.Height)

		case input.EventKeyDown:
			switch event.Key {
			case sdl.SCANCODE_ESCAPE:
				a.running = false
			case sdl.SCANCODE_S:
				a.captureScreenshot()
			case sdl.SCANCODE_R:
				a.camera.FitToBounds(sceneBounds(a.scene))
			}

		case input.EventMouseDown:
			if event.Button == sdl.BUTTON_LEFT {
				a.dragging = true
				a.lastMouseX = event.MouseX
				a.lastMouseY = event.MouseY
			}

		case input.EventMouseUp:
			if event.Button == sdl.BUTTON_LEFT {
				a.dragging = false
			}

		case input.EventMouseMove:
			if a.dragging {
				dx := float32(event.MouseX - a.lastMouseX)
				dy := float32(event.MouseY - a.lastMouseY)
				a.camera.HandleDrag(dx, dy)
				a.lastMouseX = event.MouseX
				a.lastMouseY = event.MouseY
			}

		case input.EventMouseWheel:
			a.camera.HandleZoom(float32(event.WheelY))
		}
	}
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	a.renderer.Resize(width, height)
	a.pipeline.Resize(width, height)
	logger.Debug("viewer resized", zap.Int("width", width), zap.Int("height", height))
}

// frameParams assembles the pipeline constants for the current camera.
func (a *App) frameParams() render.Params {
	resolution := math.Vec2{X: float32(a.width), Y: float32(a.height)}
	view := a.camera.ViewMatrix()
	proj := math.Perspective(fovY, resolution.X/resolution.Y, nearPlane, farPlane)

	return render.Params{
		LocalToView:    view,
		LocalToClip:    proj.Mul(view),
		TwoFocalLength: render.FocalLengths(proj, resolution),
		Resolution:     resolution,
	}
}

const (
	fovY      = 60 * gomath.Pi / 180
	nearPlane = 0.01
	farPlane  = 1000
)

func (a *App) captureScreenshot() {
	if a.frame == nil {
		return
	}
	path, err := a.screenshot.CaptureFromPixels(a.frame, a.width, a.height)
	if err != nil {
		logger.Error("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
}

// sceneBounds returns the decoded axis-aligned bounding box of a scene.
func sceneBounds(s *splat.Scene) (math.Vec3, math.Vec3) {
	min := s.Position(0)
	max := min
	for i := 1; i < s.NumSplats; i++ {
		p := s.Position(i)
		min = min.Min(p)
		max = max.Max(p)
	}
	return min, max
}
