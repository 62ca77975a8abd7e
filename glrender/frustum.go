package glrender

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
)

// Frustum is the set of 6 clip planes of a view-projection matrix. Planes are
// stored as (a, b, c, d) with a*x + b*y + c*z + d >= 0 for points inside.
type Frustum [6]mgl32.Vec4

// NewFrustum extracts the clip planes of viewProj using the Gribb-Hartmann method.
func NewFrustum(viewProj mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)
	return Frustum{
		r3.Add(r0), // Left.
		r3.Sub(r0), // Right.
		r3.Add(r1), // Bottom.
		r3.Sub(r1), // Top.
		r3.Add(r2), // Near.
		r3.Sub(r2), // Far.
	}
}

// IntersectsBox reports whether bb is at least partially inside the frustum.
// It may report true for some boxes outside of the frustum near its corners.
func (f *Frustum) IntersectsBox(bb ms3.Box) bool {
	for _, pl := range f {
		// Positive vertex: the box corner furthest along the plane normal.
		p := bb.Min
		if pl[0] >= 0 {
			p.X = bb.Max.X
		}
		if pl[1] >= 0 {
			p.Y = bb.Max.Y
		}
		if pl[2] >= 0 {
			p.Z = bb.Max.Z
		}
		if pl[0]*p.X+pl[1]*p.Y+pl[2]*p.Z+pl[3] < 0 {
			return false
		}
	}
	return true
}
