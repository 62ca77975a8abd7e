//go:build !tinygo && cgo

package sdfaux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast/glrender"
)

// View opens a window rendering scene with an orbit camera: drag with the left
// mouse button to rotate and scroll to zoom. It returns when the window is closed
// or cfg.Context is done. View must be called from the main goroutine.
func View(scene glrender.Scene, cfg ViewerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	} else if scene == nil || scene.Tree() == nil {
		return errors.New("nil scene or scene tree")
	}
	log := cfg.logger()
	window, term, err := startGLFW(cfg.Width, cfg.Height, cfg.Title)
	if err != nil {
		return err
	}
	defer term()

	plcfg := cfg.Pipeline
	if plcfg.Logger == nil {
		plcfg.Logger = log
	}
	pl, err := glrender.NewPipeline(plcfg)
	if err != nil {
		return err
	}
	defer pl.Delete()
	tree := scene.Tree()
	if tree.Bounds == nil {
		tree.Bounds = pl
		defer func() { tree.Bounds = nil }()
	}
	fbw, fbh := window.GetFramebufferSize()
	film, err := glrender.NewFilm(fbw, fbh)
	if err != nil {
		return err
	}
	defer film.Delete()
	var viewer glrender.InputViewer
	for _, pass := range pl.Passes() {
		if iv, ok := pass.(glrender.InputViewer); ok {
			viewer = iv
		}
	}
	if viewer == nil {
		return errors.New("pipeline has no displayable pass")
	}

	orb := newOrbit(tree.Root().FinalAABB())
	view := &configuredScene{Scene: scene}
	params := cfg.Params
	apply := func(sc SceneConfig) {
		params = sc.Render
		view.lights = sc.Lights
		if sc.Camera != nil {
			orb.lookFrom(mgl32.Vec3(sc.Camera.Position), mgl32.Vec3(sc.Camera.Target))
		}
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var configs <-chan SceneConfig
	if cfg.ConfigFile != "" {
		sc, err := LoadSceneConfigFile(cfg.ConfigFile)
		if err != nil {
			return err
		}
		apply(sc)
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		configs, err = WatchSceneConfig(wctx, cfg.ConfigFile, log)
		if err != nil {
			return fmt.Errorf("watching %s: %w", cfg.ConfigFile, err)
		}
	}

	var (
		lastMouseX       float64
		lastMouseY       float64
		firstMouseMove   = true
		isMousePressed   = false
		yawSensitivity   = 0.005
		pitchSensitivity = 0.005
		refresh          = true
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		if !isMousePressed {
			return
		}
		refresh = true
		if firstMouseMove {
			lastMouseX = xpos
			lastMouseY = ypos
			firstMouseMove = false
		}
		orb.rotate((xpos-lastMouseX)*yawSensitivity, -(ypos-lastMouseY)*pitchSensitivity)
		lastMouseX = xpos
		lastMouseY = ypos
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		refresh = true
		orb.zoom(yoff)
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		refresh = true
		if action == glfw.Press {
			isMousePressed = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else if action == glfw.Release {
			isMousePressed = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	var lastErr string
	lastFrame := time.Now()
	for !window.ShouldClose() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sc, ok := <-configs:
			if ok {
				apply(sc)
				refresh = true
			}
		default:
		}
		now := time.Now()
		if cfg.OnFrame != nil {
			cfg.OnFrame(now.Sub(lastFrame))
			refresh = true
		}
		lastFrame = now
		if refresh {
			refresh = false
			err = renderView(pl, film, viewer, view, orb.camera(), params, fbw, fbh)
			if err != nil && err.Error() != lastErr {
				// Edits may leave the scene unrenderable for a while.
				log.Error("viewer frame", slog.Any("err", err))
				lastErr = err.Error()
			} else if err == nil {
				lastErr = ""
				window.SwapBuffers()
			}
		}
		time.Sleep(time.Second / 60)
		glfw.PollEvents()
	}
	return nil
}

func renderView(pl *glrender.Pipeline, film *glrender.Film, viewer glrender.InputViewer, scene glrender.Scene, cam glrender.Camera, params glrender.RenderParams, width, height int) error {
	err := pl.RenderScene(film, scene, cam, params)
	if err != nil {
		return err
	}
	tex, ok := viewer.InputView(film)
	if !ok {
		return errors.New("no view texture")
	}
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	return film.Blit(tex, width, height)
}

// orbit is a camera orbiting a target point.
type orbit struct {
	target  mgl32.Vec3
	yaw     float64
	pitch   float64
	dist    float64
	minDist float64
	maxDist float64
}

// newOrbit returns an orbit framing bb, or the origin if ok is false.
func newOrbit(bb ms3.Box, ok bool) *orbit {
	diag := float32(10)
	var center ms3.Vec
	if ok && bb.Max.X-bb.Min.X < 1e6 {
		center = ms3.Scale(0.5, ms3.Add(bb.Min, bb.Max))
		diag = max(ms3.Norm(bb.Size()), 1e-3)
	}
	return &orbit{
		target:  mgl32.Vec3{center.X, center.Y, center.Z},
		dist:    1.5 * float64(diag),
		pitch:   0.3,
		minDist: float64(diag) * 1e-4,
		maxDist: float64(diag) * 10,
	}
}

// direction returns the unit vector from the camera to its target.
func (o *orbit) direction() mgl32.Vec3 {
	sy, cy := math.Sincos(o.yaw)
	sp, cp := math.Sincos(o.pitch)
	return mgl32.Vec3{float32(cp * sy), float32(sp), float32(cp * cy)}
}

func (o *orbit) rotate(dyaw, dpitch float64) {
	const maxPitch = math.Pi/2 - 0.01
	o.yaw += dyaw
	o.pitch = min(max(o.pitch+dpitch, -maxPitch), maxPitch)
}

func (o *orbit) zoom(steps float64) {
	o.dist -= steps * (o.dist*.1 + .01)
	o.dist = min(max(o.dist, o.minDist), o.maxDist)
}

func (o *orbit) lookFrom(pos, target mgl32.Vec3) {
	dir := target.Sub(pos)
	dist := dir.Len()
	if dist == 0 {
		return
	}
	dir = dir.Mul(1 / dist)
	o.target = target
	o.dist = float64(dist)
	o.yaw = math.Atan2(float64(dir[0]), float64(dir[2]))
	o.pitch = math.Asin(float64(dir[1]))
	o.maxDist = max(o.maxDist, 2*o.dist)
}

func (o *orbit) camera() glrender.Camera {
	pos := o.target.Sub(o.direction().Mul(float32(o.dist)))
	return glrender.NewCamera(pos, o.target)
}

func startGLFW(width, height int, title string) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
