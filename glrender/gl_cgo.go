//go:build !tinygo && cgo

package glrender

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/sdfrast/gleval"
)

// compileFragment links fragment, a null terminated fragment program, against the full screen vertex program.
func compileFragment(fragment string) (glgl.Program, error) {
	return glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertexSource() + "\x00",
		Fragment: fragment,
	})
}

// uniformBuffer is a uniform buffer object bound to a fixed binding point.
type uniformBuffer struct {
	id      uint32
	size    int
	binding uint32
}

func newUniformBuffer(size int, binding uint32) (uniformBuffer, error) {
	ub := uniformBuffer{size: size, binding: binding}
	gl.GenBuffers(1, &ub.id)
	if ub.id == 0 {
		return ub, gleval.GLErrOrMessage("zero id creating uniform buffer")
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, ub.id)
	gl.BufferData(gl.UNIFORM_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, binding, ub.id)
	return ub, nil
}

// update uploads the std140 block pointed to by block, which must be ub.size bytes long.
func (ub *uniformBuffer) update(block unsafe.Pointer) {
	gl.BindBuffer(gl.UNIFORM_BUFFER, ub.id)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, ub.size, block)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, ub.binding, ub.id)
}

func (ub *uniformBuffer) bind() {
	gl.BindBufferBase(gl.UNIFORM_BUFFER, ub.binding, ub.id)
}

func (ub *uniformBuffer) delete() {
	if ub.id != 0 {
		gl.DeleteBuffers(1, &ub.id)
		ub.id = 0
	}
}

// storageBuffer is a resizable shader storage buffer.
type storageBuffer struct {
	id   uint32
	size int
}

// ensure grows the buffer to hold at least size bytes. Contents are lost on growth.
func (sb *storageBuffer) ensure(size int, binding uint32) error {
	if sb.id != 0 && sb.size >= size {
		return nil
	}
	sb.delete()
	sb.id = gleval.CreateSSBO(size, binding, gl.DYNAMIC_COPY)
	if sb.id == 0 {
		return gleval.GLErrOrMessage(fmt.Sprintf("zero id creating %d byte storage buffer", size))
	}
	sb.size = size
	return nil
}

func (sb *storageBuffer) bind(binding uint32) {
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, binding, sb.id)
}

func (sb *storageBuffer) delete() {
	if sb.id != 0 {
		gl.DeleteBuffers(1, &sb.id)
		sb.id, sb.size = 0, 0
	}
}

// frameBlock is the std140 Frame uniform block.
type frameBlock struct {
	InvViewProj [16]float32
	CameraPos   [4]float32
	Viewport    [4]int32
	TraceParams [4]float32
	Light       [4]float32
}

// nodeDrawBlock is the std140 NodeDraw uniform block.
type nodeDrawBlock struct {
	WorldToLocal   [16]float32
	Scale          float32
	NodeID         int32
	VisibleIndex   int32
	CulledSiblings int32
}

type lightStd140 struct {
	Position    [4]float32
	Direction   [4]float32
	Color       [4]float32
	Attenuation [4]float32
}

// lightsBlock is the std140 Lights uniform block of the shading program.
type lightsBlock struct {
	Lights     [MaxLights]lightStd140
	Count      [4]int32
	Shading    [4]float32
	Background [4]float32
}

// materialStd430 is an element of the material storage buffer.
type materialStd430 struct {
	Color [4]float32
	UV    [4]float32
	Atlas [4]int32
}

// Binding points shared with the GLSL programs.
const (
	uboNodeDraw = 0
	uboFrame    = 1
	uboLights   = 2

	ssboRays          = 0
	ssboStacks        = 1
	ssboShadowFactors = 2
	ssboMaterials     = 3
	ssboPrimaryRays   = 4

	rayStride = 64
)

func ptr[T any](v *T) unsafe.Pointer { return unsafe.Pointer(v) }

// drawFullscreen runs the bound program once per pixel of the viewport.
func drawFullscreen() {
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
}

// storageBarrier makes shader storage writes of previous draws visible to the following ones.
func storageBarrier() {
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
}
