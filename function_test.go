package sdfrast

import (
	"bytes"
	"strings"
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast/glbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveDistances(t *testing.T) {
	var bld Builder
	var tests = []struct {
		f    *Function
		p    ms3.Vec
		want float32
	}{
		{f: bld.NewSphere(1), p: ms3.Vec{Z: -5}, want: 4},
		{f: bld.NewBox(2, 2, 2, 0), p: ms3.Vec{Z: -5}, want: 4},
		{f: bld.NewBox(2, 2, 2, 0), p: ms3.Vec{}, want: -1},
		{f: bld.NewBox(2, 4, 2, 0.5), p: ms3.Vec{Y: 3}, want: 1},
		{f: bld.NewTorus(2, 0.5), p: ms3.Vec{}, want: 1.5},
		{f: bld.NewTorus(2, 0.5), p: ms3.Vec{X: 2, Z: 1}, want: 0.5},
		{f: bld.NewCylinder(1, 2, 0), p: ms3.Vec{Z: 5}, want: 4},
		{f: bld.NewCylinder(1, 2, 0), p: ms3.Vec{X: 5}, want: 4},
		{f: bld.NewPlane(ms3.Vec{Z: 2}, 1), p: ms3.Vec{X: 7, Z: 3}, want: 2},
	}
	for _, test := range tests {
		pos := []ms3.Vec{test.p}
		dist := make([]float32, 1)
		require.NoError(t, test.f.evaluateShape(pos, dist))
		assert.InDelta(t, test.want, dist[0], tol, "%s at %v", test.f, test.p)
		bb, ok := test.f.shapeBounds()
		require.True(t, ok)
		if dist[0] <= 0 {
			p := test.p
			inside := p.X >= bb.Min.X && p.Y >= bb.Min.Y && p.Z >= bb.Min.Z &&
				p.X <= bb.Max.X && p.Y <= bb.Max.Y && p.Z <= bb.Max.Z
			assert.True(t, inside, "%s bounds %v must contain interior point %v", test.f, bb, p)
		}
	}
}

func TestInputDeformations(t *testing.T) {
	var bld Builder
	var tests = []struct {
		f    *Function
		p    ms3.Vec
		want ms3.Vec
	}{
		{f: bld.Repeat(ms3.Vec{X: 4}), p: ms3.Vec{X: 5, Y: 9}, want: ms3.Vec{X: 1, Y: 9}},
		{f: bld.Repeat(ms3.Vec{X: 4}), p: ms3.Vec{X: -3}, want: ms3.Vec{X: 1}},
		{f: bld.Symmetry(true, false, true), p: ms3.Vec{X: -1, Y: -2, Z: -3}, want: ms3.Vec{X: 1, Y: -2, Z: 3}},
		{f: bld.Elongate(2, 0, 0), p: ms3.Vec{X: 3, Y: 1}, want: ms3.Vec{X: 2, Y: 1}},
		{f: bld.Elongate(2, 0, 0), p: ms3.Vec{X: 0.5}, want: ms3.Vec{}},
		{f: bld.Twist(1), p: ms3.Vec{X: 1}, want: ms3.Vec{X: 1}},
	}
	for _, test := range tests {
		pos := []ms3.Vec{test.p}
		test.f.deformPositions(pos)
		assert.InDelta(t, test.want.X, pos[0].X, tol, "%s", test.f)
		assert.InDelta(t, test.want.Y, pos[0].Y, tol, "%s", test.f)
		assert.InDelta(t, test.want.Z, pos[0].Z, tol, "%s", test.f)
	}
}

func TestOutputDeformations(t *testing.T) {
	var bld Builder
	pos := []ms3.Vec{{}, {X: 1}}
	dist := []float32{-1, 2}
	bld.Offset(0.5).deformDistances(dist, pos)
	assert.Equal(t, []float32{-0.5, 2.5}, dist)
	bld.Shell(1).deformDistances(dist, pos)
	assert.Equal(t, []float32{0, 2}, dist)
	bld.Displace(1, 2).deformDistances(dist, pos)
	assert.Equal(t, []float32{0, 2}, dist, "displacement vanishes on coordinate planes")
}

func TestFunctionShaderNames(t *testing.T) {
	var bld Builder
	names := map[string]bool{}
	for _, f := range []*Function{
		bld.NewSphere(1), bld.NewSphere(1), bld.NewBox(1, 2, 3, 0), bld.NewTorus(3, 1),
		bld.NewCylinder(1, 3, 0.1), bld.NewPlane(ms3.Vec{Y: 1}, -2), bld.Repeat(ms3.Vec{X: 1}),
		bld.Twist(-0.5), bld.Symmetry(true, true, false), bld.Elongate(1, 0, 0),
		bld.Offset(-0.1), bld.Shell(0.1), bld.Displace(0.1, 3),
	} {
		name := string(f.Shader().AppendShaderName(nil))
		for _, c := range name {
			valid := c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
			require.True(t, valid, "invalid identifier %q", name)
		}
		names[name] = true
	}
	assert.Len(t, names, 12, "equal spheres share a name")
}

func TestNewFunctionSource(t *testing.T) {
	f, err := NewFunctionSource(SignatureSDF, "float blob(vec3 p) {\n\treturn length(p)-1.0;\n}")
	require.NoError(t, err)
	assert.Equal(t, SignatureSDF, f.Signature())
	assert.False(t, f.HasCPU())
	assert.Equal(t, "blob", string(f.Shader().AppendShaderName(nil)))
	assert.Equal(t, "return length(p)-1.0;", string(f.Shader().AppendShaderBody(nil)))

	_, err = NewFunctionSource(SignatureODF, "float ripple(float d, in vec3 p) { return d; }")
	assert.NoError(t, err)
	_, err = NewFunctionSource(SignatureIDF, "vec3 warp(vec3 p) { return p.yxz; }")
	assert.NoError(t, err)

	_, err = NewFunctionSource(SignatureIDF, "float blob(vec3 p) { return 1.0; }")
	assert.ErrorIs(t, err, ErrSignature)
	_, err = NewFunctionSource(SignatureODF, "float ripple(vec3 p) { return 1.0; }")
	assert.ErrorIs(t, err, ErrSignature)
	_, err = NewFunctionSource(SignatureSDF, "not glsl")
	assert.Error(t, err)

	// Leaves with source shapes are culled by the CPU evaluator but still produce programs.
	root := NewLeaf("blob", f)
	tree, err := NewTree(root)
	require.NoError(t, err)
	d, leaf := tree.EvaluateDistance(root, ms3.Vec{})
	assert.Equal(t, float32(largenum), d)
	assert.Same(t, root, leaf)
	var buf bytes.Buffer
	_, err = WriteNodeProgram(&buf, glbuild.NewDefaultProgrammer(), root)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "float blob(vec3 p)")
}

func TestNodeSource(t *testing.T) {
	tree, root, a, b, c, _ := newTestTree(t)
	var bld Builder
	rootIDF, bIDF, cIDF := bld.Twist(1), bld.Symmetry(true, false, false), bld.Elongate(1, 1, 1)
	require.NoError(t, tree.AddInputDeformation(root, rootIDF))
	require.NoError(t, tree.AddInputDeformation(b, bIDF))
	require.NoError(t, tree.AddInputDeformation(c, cIDF))
	require.NoError(t, tree.SetOperator(b, OpSubtraction))

	ns, err := NodeSource(c)
	require.NoError(t, err)
	assert.Equal(t, c.ID(), ns.ID)
	assert.True(t, ns.HasParent)
	assert.Equal(t, 0, ns.ChildIndex)
	assert.Equal(t, OpSubtraction, ns.ParentOp)
	assert.Equal(t, []glbuild.Shader{rootIDF.Shader(), bIDF.Shader(), cIDF.Shader()}, ns.InputDeformations)
	assert.True(t, ns.IsLeaf())

	ns, err = NodeSource(root)
	require.NoError(t, err)
	assert.False(t, ns.HasParent)
	assert.False(t, ns.IsLeaf())

	var buf bytes.Buffer
	_, err = WriteNodeProgram(&buf, glbuild.NewDefaultProgrammer(), a)
	require.NoError(t, err)
	prog := buf.String()
	assert.True(t, strings.HasPrefix(prog, glbuild.VersionStr), prog)

	empty := NewNode("empty")
	require.NoError(t, tree.AddChild(b, empty))
	_, err = NodeSource(empty)
	assert.ErrorIs(t, err, ErrNoSDF)
}
