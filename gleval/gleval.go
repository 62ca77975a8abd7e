// Package gleval contains the evaluation primitives shared by the CPU and GPU
// paths of the renderer: the fixed point codec, the per-pixel distance stack,
// soft shadow accumulation and the GPU bounding box search.
package gleval

import (
	"errors"

	"github.com/soypat/geometry/ms3"
)

// SDF3 implements a 3D signed distance field in vectorized
// form suitable for running on GPU.
type SDF3 interface {
	// Evaluate evaluates the signed distance field over pos positions.
	// dist and pos must be of same length.  Resulting distances are stored
	// in dist.
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
	// Bounds returns the SDF's bounding box such that all of the shape is contained within.
	Bounds() ms3.Box
}

var errEmptyBuffers = errors.New("empty buffers")

// NormalScratch holds the buffers used by [NormalsCentralDiff]. Pass a *NormalScratch
// as userData to reuse them across calls. The zero value is ready to use.
type NormalScratch struct {
	d1, d2 []float32
	aux    []ms3.Vec
}

func (ns *NormalScratch) acquire(n int) (d1, d2 []float32, aux []ms3.Vec) {
	if cap(ns.aux) < n {
		ns.d1 = make([]float32, n)
		ns.d2 = make([]float32, n)
		ns.aux = make([]ms3.Vec, n)
	}
	return ns.d1[:n], ns.d2[:n], ns.aux[:n]
}

// NormalsCentralDiff uses central differences algorithm for normal calculation, which are stored in normals for each position.
// The returned normals are not normalized (converted to unit length). Buffers come from
// userData if it is a *[NormalScratch] and are allocated otherwise. userData is passed on to s.
func NormalsCentralDiff(s SDF3, pos []ms3.Vec, normals []ms3.Vec, step float32, userData any) error {
	step *= 0.5
	if step <= 0 {
		return errors.New("invalid step")
	} else if len(pos) != len(normals) {
		return errors.New("length of position must match length of normals")
	} else if s == nil {
		return errors.New("nil SDF3")
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	scratch, _ := userData.(*NormalScratch)
	if scratch == nil {
		scratch = new(NormalScratch)
	}
	d1, d2, auxPos := scratch.acquire(len(pos))
	var vecs = [3]ms3.Vec{{X: step}, {Y: step}, {Z: step}}
	for dim := 0; dim < 3; dim++ {
		h := vecs[dim]
		for i, p := range pos {
			auxPos[i] = ms3.Add(p, h)
		}
		err := s.Evaluate(auxPos, d1, userData)
		if err != nil {
			return err
		}
		for i, p := range pos {
			auxPos[i] = ms3.Sub(p, h)
		}
		err = s.Evaluate(auxPos, d2, userData)
		if err != nil {
			return err
		}

		switch dim {
		case 0:
			for i, d := range d1 {
				normals[i].X = d - d2[i]
			}
		case 1:
			for i, d := range d1 {
				normals[i].Y = d - d2[i]
			}
		case 2:
			for i, d := range d1 {
				normals[i].Z = d - d2[i]
			}
		}
	}
	return nil
}
