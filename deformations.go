package sdfrast

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast/glbuild"
	"github.com/soypat/sdfrast/glbuild/glsllib"
)

var unboundedBox = ms3.Box{
	Min: ms3.Vec{X: -largenum, Y: -largenum, Z: -largenum},
	Max: ms3.Vec{X: largenum, Y: largenum, Z: largenum},
}

// Repeat returns an input deformation that repeats space along the axes with
// non-zero spacing. Zero spacing leaves that axis untouched.
func (bld *Builder) Repeat(spacing ms3.Vec) *Function {
	if spacing.X < 0 || spacing.Y < 0 || spacing.Z < 0 {
		bld.shapeErrorf("negative repeat spacing")
	} else if spacing == (ms3.Vec{}) {
		bld.shapeErrorf("repeat needs at least one spaced axis")
	}
	return NewInputDeformationFunction(&repeat{s: spacing})
}

type repeat struct {
	s ms3.Vec
}

func (r *repeat) AppendShaderName(b []byte) []byte {
	b = append(b, "repeat"...)
	arr := r.s.Array()
	return glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
}

func (r *repeat) AppendShaderBody(b []byte) []byte {
	arr := r.s.Array()
	for i, s := range arr {
		if s == 0 {
			continue
		}
		c := "xyz"[i]
		b = append(b, "p."...)
		b = append(b, c)
		b = append(b, "-="...)
		b = glbuild.AppendFloat(b, '-', '.', s)
		b = append(b, "*round(p."...)
		b = append(b, c, '/')
		b = glbuild.AppendFloat(b, '-', '.', s)
		b = append(b, ");\n"...)
	}
	b = append(b, "return p;"...)
	return b
}

func (r *repeat) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objs
}

func (r *repeat) DeformPositions(pos []ms3.Vec) {
	for i := range pos {
		pos[i].X = repeatAxis(pos[i].X, r.s.X)
		pos[i].Y = repeatAxis(pos[i].Y, r.s.Y)
		pos[i].Z = repeatAxis(pos[i].Z, r.s.Z)
	}
}

func repeatAxis(v, s float32) float32 {
	if s == 0 {
		return v
	}
	// GLSL round is implementation defined at halfway values. Either choice is
	// equidistant to both copies.
	return v - s*math32.Floor(v/s+0.5)
}

func (r *repeat) DeformBounds(bb ms3.Box) ms3.Box {
	if r.s.X != 0 {
		bb.Min.X, bb.Max.X = -largenum, largenum
	}
	if r.s.Y != 0 {
		bb.Min.Y, bb.Max.Y = -largenum, largenum
	}
	if r.s.Z != 0 {
		bb.Min.Z, bb.Max.Z = -largenum, largenum
	}
	return bb
}

// Twist returns an input deformation that rotates the xy plane by rate radians
// per unit of z.
func (bld *Builder) Twist(rate float32) *Function {
	if math32.IsNaN(rate) || math32.IsInf(rate, 0) {
		bld.shapeErrorf("invalid twist rate")
	}
	return NewInputDeformationFunction(&twist{rate: rate})
}

type twist struct {
	rate float32
}

func (t *twist) AppendShaderName(b []byte) []byte {
	b = append(b, "twist"...)
	return glbuild.AppendFloat(b, 'n', 'p', t.rate)
}

func (t *twist) AppendShaderBody(b []byte) []byte {
	b = append(b, "p.xy=libRotate2D(p.xy,-("...)
	b = glbuild.AppendFloat(b, '-', '.', t.rate)
	b = append(b, ")*p.z);\nreturn p;"...)
	return b
}

func (t *twist) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	return append(objs, glsllib.Rotate2D())
}

func (t *twist) DeformPositions(pos []ms3.Vec) {
	for i, p := range pos {
		a := -t.rate * p.Z
		s, c := math32.Sin(a), math32.Cos(a)
		pos[i].X = c*p.X - s*p.Y
		pos[i].Y = s*p.X + c*p.Y
	}
}

// DeformBounds returns the cylinder around z containing every rotation of bb.
func (t *twist) DeformBounds(bb ms3.Box) ms3.Box {
	R := hypotf(maxf(absf(bb.Min.X), absf(bb.Max.X)), maxf(absf(bb.Min.Y), absf(bb.Max.Y)))
	bb.Min.X, bb.Min.Y = -R, -R
	bb.Max.X, bb.Max.Y = R, R
	return bb
}

// Symmetry returns an input deformation that mirrors the positive half of
// each selected axis onto the negative half.
func (bld *Builder) Symmetry(x, y, z bool) *Function {
	if !x && !y && !z {
		bld.shapeErrorf("symmetry needs at least one axis")
	}
	return NewInputDeformationFunction(&symmetry{x: x, y: y, z: z})
}

type symmetry struct {
	x, y, z bool
}

func (s *symmetry) AppendShaderName(b []byte) []byte {
	b = append(b, "symmetry"...)
	for i, on := range [3]bool{s.x, s.y, s.z} {
		if on {
			b = append(b, "XYZ"[i])
		}
	}
	return b
}

func (s *symmetry) AppendShaderBody(b []byte) []byte {
	for i, on := range [3]bool{s.x, s.y, s.z} {
		if on {
			c := "xyz"[i]
			b = append(b, "p."...)
			b = append(b, c)
			b = append(b, "=abs(p."...)
			b = append(b, c, ')', ';', '\n')
		}
	}
	b = append(b, "return p;"...)
	return b
}

func (s *symmetry) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objs
}

func (s *symmetry) DeformPositions(pos []ms3.Vec) {
	for i := range pos {
		if s.x {
			pos[i].X = absf(pos[i].X)
		}
		if s.y {
			pos[i].Y = absf(pos[i].Y)
		}
		if s.z {
			pos[i].Z = absf(pos[i].Z)
		}
	}
}

func (s *symmetry) DeformBounds(bb ms3.Box) ms3.Box {
	if s.x {
		bb.Min.X = minf(bb.Min.X, -bb.Max.X)
	}
	if s.y {
		bb.Min.Y = minf(bb.Min.Y, -bb.Max.Y)
	}
	if s.z {
		bb.Min.Z = minf(bb.Min.Z, -bb.Max.Z)
	}
	return bb
}

// Elongate returns an input deformation that stretches geometry by splitting it
// at the origin and inserting dimX, dimY, dimZ of extruded cross section.
func (bld *Builder) Elongate(dimX, dimY, dimZ float32) *Function {
	if dimX < 0 || dimY < 0 || dimZ < 0 {
		bld.shapeErrorf("negative elongation")
	}
	return NewInputDeformationFunction(&elongate{h: ms3.Vec{X: dimX, Y: dimY, Z: dimZ}})
}

type elongate struct {
	h ms3.Vec
}

func (e *elongate) AppendShaderName(b []byte) []byte {
	b = append(b, "elongate"...)
	arr := e.h.Array()
	return glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
}

func (e *elongate) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendVec3Decl(b, "h", ms3.Scale(0.5, e.h))
	b = append(b, "return p-clamp(p,-h,h);"...)
	return b
}

func (e *elongate) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objs
}

func (e *elongate) DeformPositions(pos []ms3.Vec) {
	h := ms3.Scale(0.5, e.h)
	for i, p := range pos {
		pos[i] = ms3.Vec{
			X: p.X - clampf(p.X, -h.X, h.X),
			Y: p.Y - clampf(p.Y, -h.Y, h.Y),
			Z: p.Z - clampf(p.Z, -h.Z, h.Z),
		}
	}
}

func (e *elongate) DeformBounds(bb ms3.Box) ms3.Box {
	h := ms3.Scale(0.5, e.h)
	bb.Min = ms3.Sub(bb.Min, h)
	bb.Max = ms3.Add(bb.Max, h)
	return bb
}

// Offset returns an output deformation that adds off to the distance.
// Negative offsets grow the shape and round its edges.
func (bld *Builder) Offset(off float32) *Function {
	if math32.IsNaN(off) || math32.IsInf(off, 0) {
		bld.shapeErrorf("invalid offset")
	}
	return NewOutputDeformationFunction(&offset{off: off})
}

type offset struct {
	off float32
}

func (o *offset) AppendShaderName(b []byte) []byte {
	b = append(b, "offset"...)
	return glbuild.AppendFloat(b, 'n', 'p', o.off)
}

func (o *offset) AppendShaderBody(b []byte) []byte {
	b = append(b, "return d+("...)
	b = glbuild.AppendFloat(b, '-', '.', o.off)
	b = append(b, ");"...)
	return b
}

func (o *offset) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objs
}

func (o *offset) DeformDistances(dist []float32, pos []ms3.Vec) {
	for i := range dist {
		dist[i] += o.off
	}
}

func (o *offset) DeformBounds(bb ms3.Box) ms3.Box {
	if o.off >= 0 {
		return bb
	}
	return expandBox(bb, -o.off)
}

// Shell returns an output deformation that hollows a shape into a shell of
// the given thickness centered on its surface.
func (bld *Builder) Shell(thickness float32) *Function {
	if thickness <= 0 {
		bld.shapeErrorf("zero or negative shell thickness")
	}
	return NewOutputDeformationFunction(&shell{t: thickness})
}

type shell struct {
	t float32
}

func (s *shell) AppendShaderName(b []byte) []byte {
	b = append(b, "shell"...)
	return glbuild.AppendFloat(b, 'n', 'p', s.t)
}

func (s *shell) AppendShaderBody(b []byte) []byte {
	b = append(b, "return abs(d)-"...)
	b = glbuild.AppendFloat(b, '-', '.', s.t/2)
	b = append(b, ';')
	return b
}

func (s *shell) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objs
}

func (s *shell) DeformDistances(dist []float32, pos []ms3.Vec) {
	h := s.t / 2
	for i, d := range dist {
		dist[i] = absf(d) - h
	}
}

func (s *shell) DeformBounds(bb ms3.Box) ms3.Box {
	return expandBox(bb, s.t/2)
}

// Displace returns an output deformation that ripples the surface with a
// sinusoidal pattern of the given amplitude and spatial frequency.
func (bld *Builder) Displace(amplitude, frequency float32) *Function {
	if frequency <= 0 {
		bld.shapeErrorf("zero or negative displacement frequency")
	}
	return NewOutputDeformationFunction(&displace{amp: amplitude, freq: frequency})
}

type displace struct {
	amp, freq float32
}

func (s *displace) AppendShaderName(b []byte) []byte {
	b = append(b, "displace"...)
	return glbuild.AppendFloats(b, 0, 'n', 'p', s.amp, s.freq)
}

func (s *displace) AppendShaderBody(b []byte) []byte {
	b = append(b, "vec3 q=sin(p*"...)
	b = glbuild.AppendFloat(b, '-', '.', s.freq)
	b = append(b, ");\nreturn d+("...)
	b = glbuild.AppendFloat(b, '-', '.', s.amp)
	b = append(b, ")*q.x*q.y*q.z;"...)
	return b
}

func (s *displace) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objs
}

func (s *displace) DeformDistances(dist []float32, pos []ms3.Vec) {
	f := s.freq
	for i, p := range pos {
		dist[i] += s.amp * math32.Sin(f*p.X) * math32.Sin(f*p.Y) * math32.Sin(f*p.Z)
	}
}

func (s *displace) DeformBounds(bb ms3.Box) ms3.Box {
	return expandBox(bb, absf(s.amp))
}

func expandBox(bb ms3.Box, v float32) ms3.Box {
	bb.Min = ms3.AddScalar(-v, bb.Min)
	bb.Max = ms3.AddScalar(v, bb.Max)
	return bb
}
