//go:build !tinygo && cgo

package gleval

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// ComputeBounds compiles computeSource, a program generated for the bounds search, and runs it
// over cfg.Search. It blocks until the GPU result is read back.
// The source's work group size must match cfg.InvocX.
func ComputeBounds(computeSource string, cfg BoundsConfig) (ms3.Box, error) {
	err := cfg.Validate()
	if err != nil {
		return ms3.Box{}, err
	}
	if !strings.HasSuffix(computeSource, "\x00") {
		computeSource += "\x00"
	}
	prog, err := glgl.CompileProgram(glgl.ShaderSource{Compute: computeSource})
	if err != nil {
		return ms3.Box{}, fmt.Errorf("compiling bounds program: %w", err)
	}
	defer prog.Delete()
	prog.Bind()
	defer prog.Unbind()

	id := prog.ID()
	lo, hi := cfg.Search.Min, cfg.Search.Max
	gl.Uniform3f(gl.GetUniformLocation(id, gl.Str("uSearchMin\x00")), lo.X, lo.Y, lo.Z)
	gl.Uniform3f(gl.GetUniformLocation(id, gl.Str("uSearchMax\x00")), hi.X, hi.Y, hi.Z)
	gl.Uniform1i(gl.GetUniformLocation(id, gl.Str("uResolution\x00")), int32(cfg.Resolution))
	gl.Uniform1f(gl.GetUniformLocation(id, gl.Str("uThreshold\x00")), cfg.Threshold)
	iterLoc := gl.GetUniformLocation(id, gl.Str("uIteration\x00"))

	nrays := cfg.NumRays()
	rays := CreateSSBO(nrays*boundsRayStride, 0, gl.DYNAMIC_COPY)
	if rays == 0 {
		return ms3.Box{}, GLErrOrMessage("zero id SSBO creating bounds ray buffer")
	}
	defer gl.DeleteBuffers(1, &rays)
	acc := NewBoundsAccumulator()
	result := []int32{acc.Min[0], acc.Min[1], acc.Min[2], acc.Max[0], acc.Max[1], acc.Max[2]}
	box := LoadSSBO(result, 1, gl.DYNAMIC_READ)
	if box == 0 {
		return ms3.Box{}, GLErrOrMessage("zero id SSBO creating bounds result buffer")
	}
	defer gl.DeleteBuffers(1, &box)

	groups := uint32((nrays + cfg.InvocX - 1) / cfg.InvocX)
	for i := 0; i < cfg.Dispatches; i++ {
		gl.Uniform1i(iterLoc, int32(i))
		gl.DispatchCompute(groups, 1, 1)
		gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	}
	err = CopySSBO(result, box)
	if err != nil {
		return ms3.Box{}, err
	}
	if err = glgl.Err(); err != nil {
		return ms3.Box{}, err
	}
	copy(acc.Min[:], result[:3])
	copy(acc.Max[:], result[3:])
	return acc.Box()
}
