package sdfrast

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast/glbuild"
	"github.com/soypat/sdfrast/glbuild/glsllib"
)

type sphere struct {
	r float32
}

// NewSphere creates a sphere centered at the origin of radius r.
func (bld *Builder) NewSphere(r float32) *Function {
	valid := r > 0
	if !valid {
		bld.shapeErrorf("zero or negative sphere radius")
	}
	return NewShapeFunction(&sphere{r: r})
}

func (s *sphere) AppendShaderName(b []byte) []byte {
	b = append(b, "sphere"...)
	b = glbuild.AppendFloat(b, 'n', 'p', s.r)
	return b
}

func (s *sphere) AppendShaderBody(b []byte) []byte {
	b = append(b, "return length(p)-"...)
	b = glbuild.AppendFloat(b, '-', '.', s.r)
	b = append(b, ';')
	return b
}

func (s *sphere) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}

func (s *sphere) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	r := s.r
	for i, p := range pos {
		dist[i] = ms3.Norm(p) - r
	}
	return nil
}

func (s *sphere) Bounds() ms3.Box {
	return ms3.Box{
		Min: ms3.Vec{X: -s.r, Y: -s.r, Z: -s.r},
		Max: ms3.Vec{X: s.r, Y: s.r, Z: s.r},
	}
}

// NewBox creates a box centered at the origin with x,y,z dimensions and a rounding parameter to round edges.
func (bld *Builder) NewBox(x, y, z, round float32) *Function {
	if round < 0 || round > x/2 || round > y/2 || round > z/2 {
		bld.shapeErrorf("invalid box rounding value")
	}
	if x <= 0 || y <= 0 || z <= 0 {
		bld.shapeErrorf("zero or negative box dimension")
	}
	return NewShapeFunction(&box{dims: ms3.Vec{X: x, Y: y, Z: z}, round: round})
}

type box struct {
	dims  ms3.Vec
	round float32
}

func (s *box) AppendShaderName(b []byte) []byte {
	b = append(b, "box"...)
	arr := s.dims.Array()
	b = glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
	b = glbuild.AppendFloat(b, 'n', 'p', s.round)
	return b
}

func (s *box) AppendShaderBody(b []byte) []byte {
	b = append(b, "return libBox3D(p,"...)
	b = glbuild.AppendFloats(b, ',', '-', '.', s.dims.X, s.dims.Y, s.dims.Z, s.round)
	b = append(b, ");"...)
	return b
}

func (s *box) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return append(objects, glsllib.Box3D())
}

func (s *box) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	d := ms3.Scale(0.5, s.dims)
	r := s.round
	for i, p := range pos {
		q := ms3.AddScalar(r, ms3.Sub(ms3.AbsElem(p), d))
		dist[i] = ms3.Norm(ms3.MaxElem(q, ms3.Vec{})) + minf(maxf(q.X, maxf(q.Y, q.Z)), 0.0) - r
	}
	return nil
}

func (s *box) Bounds() ms3.Box {
	return ms3.NewCenteredBox(ms3.Vec{}, s.dims)
}

// NewTorus creates a torus lying on the xy plane centered at the origin. greaterRadius is the distance
// from the origin to the center of the tube and lesserRadius is the radius of the tube.
func (bld *Builder) NewTorus(greaterRadius, lesserRadius float32) *Function {
	if greaterRadius < 2*lesserRadius {
		bld.shapeErrorf("too large torus lesser radius")
	} else if greaterRadius <= 0 || lesserRadius <= 0 {
		bld.shapeErrorf("invalid torus parameter")
	}
	return NewShapeFunction(&torus{rGreater: greaterRadius, rLesser: lesserRadius})
}

type torus struct {
	rGreater, rLesser float32
}

func (s *torus) AppendShaderName(b []byte) []byte {
	b = append(b, "torus"...)
	b = glbuild.AppendFloats(b, 0, 'n', 'p', s.rGreater, s.rLesser)
	return b
}

func (s *torus) AppendShaderBody(b []byte) []byte {
	b = append(b, "return libTorus3D(p,"...)
	b = glbuild.AppendFloats(b, ',', '-', '.', s.rGreater, s.rLesser)
	b = append(b, ");"...)
	return b
}

func (s *torus) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return append(objects, glsllib.Torus3D())
}

func (s *torus) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	t1, t2 := s.rGreater, s.rLesser
	for i, p := range pos {
		dist[i] = hypotf(hypotf(p.X, p.Y)-t1, p.Z) - t2
	}
	return nil
}

func (s *torus) Bounds() ms3.Box {
	R := s.rLesser + s.rGreater
	return ms3.Box{
		Min: ms3.Vec{X: -R, Y: -R, Z: -s.rLesser},
		Max: ms3.Vec{X: R, Y: R, Z: s.rLesser},
	}
}

// NewCylinder creates a cylinder centered at the origin with given radius and height.
// The cylinder's axis points in z direction.
func (bld *Builder) NewCylinder(r, h, rounding float32) *Function {
	okRounding := rounding >= 0 && rounding < r && rounding < h/2
	if !okRounding {
		bld.shapeErrorf("invalid cylinder rounding")
	}
	okDim := r > 0 && h > 0
	if !okDim {
		bld.shapeErrorf("bad cylinder dimension")
	}
	return NewShapeFunction(&cylinder{r: r, h: h, round: rounding})
}

type cylinder struct {
	r     float32
	h     float32
	round float32
}

func (s *cylinder) AppendShaderName(b []byte) []byte {
	b = append(b, "cyl"...)
	b = glbuild.AppendFloats(b, 0, 'n', 'p', s.r, s.h, s.round)
	return b
}

func (s *cylinder) AppendShaderBody(b []byte) []byte {
	b = append(b, "return libCylinder3D(p,"...)
	b = glbuild.AppendFloats(b, ',', '-', '.', s.r, s.h, s.round)
	b = append(b, ");"...)
	return b
}

func (s *cylinder) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return append(objects, glsllib.Cylinder3D())
}

func (s *cylinder) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	r, hh, rd := s.r, s.h/2, s.round
	for i, p := range pos {
		dx := hypotf(p.X, p.Y) - r + rd
		dy := absf(p.Z) - hh + rd
		dist[i] = minf(maxf(dx, dy), 0) + hypotf(maxf(dx, 0), maxf(dy, 0)) - rd
	}
	return nil
}

func (s *cylinder) Bounds() ms3.Box {
	return ms3.Box{
		Min: ms3.Vec{X: -s.r, Y: -s.r, Z: -s.h / 2},
		Max: ms3.Vec{X: s.r, Y: s.r, Z: s.h / 2},
	}
}

// NewPlane creates the half space below the plane with given normal passing at
// distance offset from the origin. The plane is unbounded.
func (bld *Builder) NewPlane(normal ms3.Vec, offset float32) *Function {
	n := ms3.Norm(normal)
	if n < epstol || math32.IsNaN(n) {
		bld.shapeErrorf("degenerate plane normal")
		n = 1
	}
	return NewShapeFunction(&plane{n: ms3.Scale(1/n, normal), off: offset})
}

type plane struct {
	n   ms3.Vec
	off float32
}

func (s *plane) AppendShaderName(b []byte) []byte {
	b = append(b, "plane"...)
	arr := s.n.Array()
	b = glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
	b = glbuild.AppendFloat(b, 'n', 'p', s.off)
	return b
}

func (s *plane) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendVec3Decl(b, "n", s.n)
	b = append(b, "return dot(p,n)-"...)
	b = glbuild.AppendFloat(b, '-', '.', s.off)
	b = append(b, ';')
	return b
}

func (s *plane) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}

func (s *plane) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	for i, p := range pos {
		dist[i] = ms3.Dot(p, s.n) - s.off
	}
	return nil
}

func (s *plane) Bounds() ms3.Box {
	return unboundedBox
}
