//go:build !tinygo && cgo

package glrender

import (
	"github.com/go-gl/gl/v4.6-core/gl"
)

// Frame is the state shared by the passes of a single [Pipeline.RenderScene] call.
type Frame struct {
	Film   *Film
	Scene  Scene
	Camera Camera
	Params RenderParams
	// Primary is the draw plan of camera rays.
	Primary Plan
	// Shadow is the draw plan of shadow rays. It is not frustum culled.
	Shadow Plan

	pl     *Pipeline
	block  frameBlock
	lights []Light
}

// Pass is a stage of the frame. Passes run in order and share the GL state set up by the pipeline.
type Pass interface {
	Name() string
	Execute(f *Frame) error
}

// InputViewer is implemented by passes whose output can be displayed with [Film.Blit].
type InputViewer interface {
	// InputView returns the film texture holding the pass output.
	InputView(film *Film) (texture uint32, ok bool)
}

var (
	drawNone    = [3]uint32{gl.NONE, gl.NONE, gl.NONE}
	drawExtract = [3]uint32{gl.NONE, gl.COLOR_ATTACHMENT1, gl.COLOR_ATTACHMENT2}
	drawColor   = [3]uint32{gl.COLOR_ATTACHMENT0, gl.NONE, gl.NONE}
	drawAll     = [3]uint32{gl.COLOR_ATTACHMENT0, gl.COLOR_ATTACHMENT1, gl.COLOR_ATTACHMENT2}
)

func setDrawBuffers(bufs *[3]uint32) {
	gl.DrawBuffers(int32(len(bufs)), &bufs[0])
}

// rasterPass traces camera rays. Every iteration draws the primary plan, advances
// the rays and extracts the resolved ones into the film's distance and ID targets.
type rasterPass struct{}

func (rasterPass) Name() string { return "raster" }

func (rasterPass) Execute(f *Frame) error {
	p := f.pl
	setDrawBuffers(&drawAll)
	far := [4]float32{f.Params.MaxDistance}
	noID := [4]int32{-1}
	gl.ClearBufferfv(gl.COLOR, 1, &far[0])
	gl.ClearBufferiv(gl.COLOR, 2, &noID[0])
	gl.DepthMask(true)
	gl.ClearDepth(1)
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.Disable(gl.STENCIL_TEST)
	gl.Disable(gl.DEPTH_TEST)
	setDrawBuffers(&drawNone)

	f.block.Viewport[2], f.block.Viewport[3] = 0, 0
	p.runFixed(f, progPrepare)
	for it := 0; it < f.Params.Iterations; it++ {
		f.block.Viewport[2] = int32(it)
		p.frameUBO.update(ptr(&f.block))
		p.drawPlan(&f.Primary)
		p.runFixed(f, progAdvance)

		setDrawBuffers(&drawExtract)
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LESS)
		p.runFixed(f, progExtract)
		gl.Disable(gl.DEPTH_TEST)
		setDrawBuffers(&drawNone)
	}
	return nil
}

// shadowPass traces a shadow ray from every camera ray hit towards each shadowed light.
// Pixels whose shadow ray finished are masked out with the stencil buffer.
type shadowPass struct{}

func (shadowPass) Name() string { return "shadow" }

func (shadowPass) Execute(f *Frame) error {
	if f.Params.ShadowIterations == 0 {
		return nil
	}
	p := f.pl
	p.shadowRays.bind(ssboRays)
	p.rays.bind(ssboPrimaryRays)
	defer p.rays.bind(ssboRays)
	defer func() { f.block.TraceParams[2] = f.Params.ShadowSharpness }()
	setDrawBuffers(&drawNone)
	for i := range f.lights {
		l := &f.lights[i]
		if !l.Shadows {
			continue
		}
		f.block.Viewport[3] = int32(i)
		f.block.TraceParams[2] = l.shadowSharpness(&f.Params)
		if l.Point {
			f.block.Light = [4]float32{l.Position[0], l.Position[1], l.Position[2], 1}
		} else {
			f.block.Light = [4]float32{l.Direction[0], l.Direction[1], l.Direction[2], 0}
		}
		gl.Disable(gl.STENCIL_TEST)
		gl.StencilMask(0xff)
		gl.ClearStencil(0)
		gl.Clear(gl.STENCIL_BUFFER_BIT)
		f.block.Viewport[2] = 0
		p.runFixed(f, progShadowPrepare)

		gl.Enable(gl.STENCIL_TEST)
		markFinished(f)
		for it := 0; it < f.Params.ShadowIterations; it++ {
			f.block.Viewport[2] = int32(it)
			p.frameUBO.update(ptr(&f.block))
			gl.StencilFunc(gl.EQUAL, 0, 0xff)
			gl.StencilOp(gl.KEEP, gl.KEEP, gl.KEEP)
			p.drawPlan(&f.Shadow)
			p.runFixed(f, progShadowAdvance)
			markFinished(f)
		}
		gl.Disable(gl.STENCIL_TEST)
	}
	return nil
}

// markFinished sets the stencil of pixels whose shadow ray is no longer tracing.
func markFinished(f *Frame) {
	gl.StencilFunc(gl.ALWAYS, 1, 0xff)
	gl.StencilOp(gl.KEEP, gl.KEEP, gl.REPLACE)
	f.pl.runFixed(f, progShadowMark)
}

// shadePass lights resolved pixels and writes the film's color target.
type shadePass struct{}

func (shadePass) Name() string { return "shade" }

func (shadePass) Execute(f *Frame) error {
	p := f.pl
	for tex, unit := range p.atlasUnit {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D, tex)
	}
	gl.ActiveTexture(gl.TEXTURE0)
	setDrawBuffers(&drawColor)
	p.runFixed(f, progShade)
	setDrawBuffers(&drawNone)
	return nil
}

func (shadePass) InputView(film *Film) (uint32, bool) { return film.color, film.color != 0 }
