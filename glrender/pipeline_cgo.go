//go:build !tinygo && cgo

package glrender

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/sdfrast"
	"github.com/soypat/sdfrast/glbuild"
	"github.com/soypat/sdfrast/gleval"
)

// Pipeline renders scenes on the GPU. It owns the compiled node programs, the
// built-in pass programs and the per-pixel buffers. A Pipeline must only be used
// from the goroutine owning the GL context it was created in.
type Pipeline struct {
	cfg        Config
	log        *slog.Logger
	programmer *glbuild.Programmer
	cache      programCache
	fixed      [numFixedPrograms]glgl.Program
	vao        uint32
	passes     []Pass

	nodeUBO   uniformBuffer
	frameUBO  uniformBuffer
	lightsUBO uniformBuffer

	rays       storageBuffer
	shadowRays storageBuffer
	stacks     storageBuffer
	shadows    storageBuffer
	materials  storageBuffer

	frame     Frame
	matBuf    []materialStd430
	atlasUnit map[uint32]int32
	bufW      int
	bufH      int
	deleted   bool
}

// NewPipeline compiles the built-in programs and allocates the uniform buffers.
// A GL 4.6 context must be current.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:        cfg,
		log:        cfg.logger(),
		programmer: glbuild.NewDefaultProgrammer(),
		atlasUnit:  make(map[uint32]int32),
	}
	p.programmer.SetMaxStackDepth(cfg.MaxStackDepth)
	p.cache = newProgramCache(p.log, p.programmer)
	err := compileFixed(&p.fixed, cfg.MaxStackDepth)
	if err != nil {
		p.Delete()
		return nil, err
	}
	gl.GenVertexArrays(1, &p.vao)
	if p.nodeUBO, err = newUniformBuffer(int(unsafe.Sizeof(nodeDrawBlock{})), uboNodeDraw); err != nil {
		p.Delete()
		return nil, err
	}
	if p.frameUBO, err = newUniformBuffer(int(unsafe.Sizeof(frameBlock{})), uboFrame); err != nil {
		p.Delete()
		return nil, err
	}
	if p.lightsUBO, err = newUniformBuffer(int(unsafe.Sizeof(lightsBlock{})), uboLights); err != nil {
		p.Delete()
		return nil, err
	}
	shade := p.fixed[progShade]
	shade.Bind()
	units := [maxAtlases]int32{0, 1, 2, 3}
	gl.Uniform1iv(gl.GetUniformLocation(shade.ID(), gl.Str("uAtlas\x00")), maxAtlases, &units[0])
	shade.Unbind()
	p.passes = []Pass{rasterPass{}, shadowPass{}, shadePass{}}
	if err = glgl.Err(); err != nil {
		p.Delete()
		return nil, fmt.Errorf("initializing pipeline: %w", err)
	}
	p.log.Info("pipeline ready", slog.Int("maxStackDepth", cfg.MaxStackDepth))
	return p, nil
}

// Passes returns the passes run by [Pipeline.RenderScene] in execution order.
func (p *Pipeline) Passes() []Pass { return p.passes }

// Program returns the compiled program of n, compiling it first if n was flagged for rebuild.
// ok is false if n has no usable program.
func (p *Pipeline) Program(n *sdfrast.Node) (prog glgl.Program, ok bool) {
	return p.cache.program(n)
}

func (p *Pipeline) hasProgram(n *sdfrast.Node) bool {
	_, ok := p.cache.program(n)
	return ok
}

// ComputeBounds searches the local space bounding box of leaf n on the GPU.
// It implements [sdfrast.BoundsComputer] so a Pipeline may be set as a tree's Bounds.
func (p *Pipeline) ComputeBounds(n *sdfrast.Node, search ms3.Box) (ms3.Box, error) {
	cfg := gleval.DefaultBoundsConfig(search)
	cfg.Resolution = p.cfg.BoundsResolution
	cfg.Dispatches = p.cfg.BoundsDispatches
	cfg.StepsPerDispatch = p.cfg.BoundsSteps
	cfg.InvocX = p.programmer.ComputeInvocations()
	var sb strings.Builder
	_, err := sdfrast.WriteBoundsProgram(&sb, p.programmer, n, cfg.StepsPerDispatch)
	if err != nil {
		return ms3.Box{}, err
	}
	bb, err := gleval.ComputeBounds(sb.String(), cfg)
	if err != nil {
		p.log.Warn("bounds search failed", slog.String("node", n.Name()), slog.Any("err", err))
		return ms3.Box{}, err
	}
	p.log.Debug("bounds search", slog.String("node", n.Name()), slog.Any("box", bb))
	return bb, nil
}

// RenderScene renders scene as seen by cam into film.
func (p *Pipeline) RenderScene(film *Film, scene Scene, cam Camera, params RenderParams) error {
	switch {
	case p.deleted:
		return errors.New("pipeline deleted")
	case film == nil || film.fbo == 0:
		return errors.New("nil or deleted film")
	case scene == nil || scene.Tree() == nil:
		return errors.New("nil scene or scene tree")
	}
	if err := params.Validate(); err != nil {
		return err
	} else if err = cam.Validate(); err != nil {
		return err
	}
	tree := scene.Tree()
	if err := tree.Err(); err != nil {
		return fmt.Errorf("scene tree: %w", err)
	}
	w, h := film.Size()
	aspect := float32(w) / float32(h)
	viewProj := cam.ViewProjection(aspect)

	f := &p.frame
	f.pl = p
	f.Film, f.Scene, f.Camera, f.Params = film, scene, cam, params
	f.lights = scene.Lights()
	if len(f.lights) > MaxLights {
		p.log.Warn("too many lights, extra lights ignored", slog.Int("lights", len(f.lights)), slog.Int("max", MaxLights))
		f.lights = f.lights[:MaxLights]
	}
	buildPlans(&f.Primary, &f.Shadow, tree, viewProj, &params, p.hasProgram)
	p.cache.prune(tree)
	if depth := max(f.Primary.MaxStackDepth, f.Shadow.MaxStackDepth); depth > p.cfg.MaxStackDepth {
		return fmt.Errorf("%w: draw plan needs stack depth %d, pipeline supports %d", sdfrast.ErrTreeTooDeep, depth, p.cfg.MaxStackDepth)
	}
	p.log.Debug("frame planned", slog.Int("draws", len(f.Primary.Draws)),
		slog.Int("culled", f.Primary.CulledObjects), slog.Int("shadowDraws", len(f.Shadow.Draws)))

	err := p.ensureBuffers(w, h)
	if err != nil {
		return err
	}
	p.uploadMaterials(tree)
	p.uploadLights(f.lights, &params)

	inv := viewProj.Inv()
	f.block = frameBlock{
		InvViewProj: inv,
		CameraPos:   [4]float32{cam.Position[0], cam.Position[1], cam.Position[2], 1},
		Viewport:    [4]int32{int32(w), int32(h), 0, 0},
		TraceParams: [4]float32{params.Threshold, params.MaxDistance, params.ShadowSharpness, params.shadowOffset()},
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, film.fbo)
	defer gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(w), int32(h))
	gl.BindVertexArray(p.vao)
	defer gl.BindVertexArray(0)
	gl.Disable(gl.BLEND)
	gl.Disable(gl.CULL_FACE)
	p.bindFrameBuffers()
	for _, pass := range p.passes {
		err = pass.Execute(f)
		if err != nil {
			return fmt.Errorf("%s pass: %w", pass.Name(), err)
		}
		if err = glgl.Err(); err != nil {
			return fmt.Errorf("%s pass: %w", pass.Name(), err)
		}
	}
	return nil
}

func (p *Pipeline) ensureBuffers(w, h int) error {
	if w == p.bufW && h == p.bufH && p.rays.id != 0 {
		return nil
	}
	npix := w * h
	err := p.rays.ensure(npix*rayStride, ssboRays)
	if err == nil {
		err = p.shadowRays.ensure(npix*rayStride, ssboRays)
	}
	if err == nil {
		err = p.stacks.ensure(npix*gleval.StackBufferStride(p.cfg.MaxStackDepth), ssboStacks)
	}
	if err == nil {
		err = p.shadows.ensure(npix*MaxLights*4, ssboShadowFactors)
	}
	if err != nil {
		return fmt.Errorf("allocating %dx%d pixel buffers: %w", w, h, err)
	}
	p.bufW, p.bufH = w, h
	p.log.Debug("pixel buffers allocated", slog.Int("width", w), slog.Int("height", h))
	return nil
}

// bindFrameBuffers binds the storage buffers of the primary passes.
func (p *Pipeline) bindFrameBuffers() {
	p.rays.bind(ssboRays)
	p.stacks.bind(ssboStacks)
	p.shadows.bind(ssboShadowFactors)
	p.materials.bind(ssboMaterials)
	p.rays.bind(ssboPrimaryRays)
	p.nodeUBO.bind()
	p.frameUBO.bind()
	p.lightsUBO.bind()
}

// uploadMaterials writes the material of every node indexed by ID and assigns atlas texture units.
func (p *Pipeline) uploadMaterials(tree *sdfrast.Tree) {
	clear(p.atlasUnit)
	p.matBuf = p.matBuf[:0]
	for _, n := range tree.Nodes() {
		mat := resolveMaterial(p.cfg.Materials, n)
		m := materialStd430{
			Color: [4]float32{mat.Color[0], mat.Color[1], mat.Color[2], 1},
			UV:    mat.UV,
			Atlas: [4]int32{-1, 0, 0, 0},
		}
		if mat.Atlas != 0 {
			unit, ok := p.atlasUnit[mat.Atlas]
			if !ok && len(p.atlasUnit) < maxAtlases {
				unit, ok = int32(len(p.atlasUnit)), true
				p.atlasUnit[mat.Atlas] = unit
			} else if !ok {
				p.log.Warn("atlas texture limit reached", slog.String("node", n.Name()), slog.Int("max", maxAtlases))
			}
			if ok {
				m.Atlas[0] = unit
			}
		}
		p.matBuf = append(p.matBuf, m)
	}
	if len(p.matBuf) == 0 {
		p.matBuf = append(p.matBuf, materialStd430{Atlas: [4]int32{-1}})
	}
	size := len(p.matBuf) * int(unsafe.Sizeof(materialStd430{}))
	if p.materials.id == 0 || p.materials.size < size {
		p.materials.delete()
		p.materials.id = gleval.LoadSSBO(p.matBuf, ssboMaterials, gl.DYNAMIC_DRAW)
		p.materials.size = size
		return
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, p.materials.id)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, size, unsafe.Pointer(&p.matBuf[0]))
}

func (p *Pipeline) uploadLights(lights []Light, params *RenderParams) {
	var blk lightsBlock
	for i := range lights {
		l := &lights[i]
		dst := &blk.Lights[i]
		dst.Position = [4]float32{l.Position[0], l.Position[1], l.Position[2], b2f(l.Point)}
		dst.Direction = [4]float32{l.Direction[0], l.Direction[1], l.Direction[2], 0}
		dst.Color = [4]float32{l.Color[0], l.Color[1], l.Color[2], l.Intensity}
		dst.Attenuation = [4]float32{l.Attenuation[0], l.Attenuation[1], l.Attenuation[2], b2f(l.Shadows && params.ShadowIterations > 0)}
	}
	blk.Count[0] = int32(len(lights))
	blk.Shading = [4]float32{params.Ambient, params.Exposure, params.Gamma, 0}
	blk.Background = [4]float32{params.Background[0], params.Background[1], params.Background[2], 1}
	p.lightsUBO.update(unsafe.Pointer(&blk))
}

// drawPlan runs every node program of plan once. Each draw's stack writes are
// made visible before the next draw, which may be the node's parent.
func (p *Pipeline) drawPlan(plan *Plan) {
	var blk nodeDrawBlock
	for i := range plan.Draws {
		cmd := &plan.Draws[i]
		prog, ok := p.cache.program(cmd.Node)
		if !ok {
			continue
		}
		n := cmd.Node
		blk = nodeDrawBlock{
			WorldToLocal:   n.WorldToLocal(),
			Scale:          n.WorldScale(),
			NodeID:         int32(cmd.ID),
			VisibleIndex:   int32(cmd.VisibleIndex),
			CulledSiblings: int32(cmd.CulledSiblings),
		}
		p.nodeUBO.update(unsafe.Pointer(&blk))
		prog.Bind()
		drawFullscreen()
		storageBarrier()
	}
}

// runFixed runs a built-in program with the frame block's iteration and light index set.
func (p *Pipeline) runFixed(f *Frame, fp fixedProgram) {
	p.frameUBO.update(ptr(&f.block))
	p.fixed[fp].Bind()
	drawFullscreen()
	storageBarrier()
}

// Delete releases every GL resource owned by the pipeline.
func (p *Pipeline) Delete() {
	p.cache.delete()
	for i := range p.fixed {
		if p.fixed[i].ID() != 0 {
			p.fixed[i].Delete()
		}
	}
	p.fixed = [numFixedPrograms]glgl.Program{}
	if p.vao != 0 {
		gl.DeleteVertexArrays(1, &p.vao)
		p.vao = 0
	}
	p.nodeUBO.delete()
	p.frameUBO.delete()
	p.lightsUBO.delete()
	p.rays.delete()
	p.shadowRays.delete()
	p.stacks.delete()
	p.shadows.delete()
	p.materials.delete()
	p.deleted = true
}

func b2f(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
