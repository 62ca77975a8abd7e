package glbuild

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testShader struct {
	name string
	body string
	objs []ShaderObject
}

func (s *testShader) AppendShaderName(b []byte) []byte { return append(b, s.name...) }
func (s *testShader) AppendShaderBody(b []byte) []byte { return append(b, s.body...) }
func (s *testShader) AppendShaderObjects(objs []ShaderObject) []ShaderObject {
	return append(objs, s.objs...)
}

func TestAppendFloat(t *testing.T) {
	var tests = []struct {
		v    float32
		neg  byte
		dec  byte
		want string
	}{
		{v: 1, neg: '-', dec: '.', want: "1."},
		{v: -1.5, neg: '-', dec: '.', want: "-1.5"},
		{v: -1.5, neg: 'n', dec: 'p', want: "n1p5"},
		{v: 0.25, neg: 'n', dec: 'p', want: "0p25"},
	}
	for _, test := range tests {
		got := string(AppendFloat(nil, test.neg, test.dec, test.v))
		assert.Equal(t, test.want, got)
	}
}

func TestMakeShaderFunction(t *testing.T) {
	obj, err := MakeShaderFunction([]byte("\n float helper(vec3 p) {\n\treturn p.x;\n}\n"))
	require.NoError(t, err)
	assert.Equal(t, "helper", string(obj.NamePtr))
	assert.True(t, obj.IsFunction())

	_, err = MakeShaderFunction([]byte("notafunction"))
	assert.Error(t, err)
}

func TestSourceSectionOrder(t *testing.T) {
	var src Source
	src.Reset()
	src.AppendString(SectionEntry, "void main() {}\n")
	src.AppendString(SectionFunctions, "float f(vec3 p) {return 0.0;}\n")
	src.Include(IncludeCombine, IncludeCombine)
	src.DefineInt("MAX_STACK_DEPTH", 4)
	got := string(src.AppendTo(nil))

	require.True(t, strings.HasPrefix(got, VersionStr))
	iDefine := strings.Index(got, "#define MAX_STACK_DEPTH 4")
	iInclude := strings.Index(got, "void sdfUnion(")
	iFunc := strings.Index(got, "float f(vec3 p)")
	iMain := strings.Index(got, "void main()")
	assert.True(t, iDefine > 0 && iDefine < iInclude && iInclude < iFunc && iFunc < iMain, "bad section order:\n%s", got)
	assert.Equal(t, 1, strings.Count(got, "void sdfUnion("), "include written twice")
	assert.True(t, src.Included(IncludeCombine))
	assert.False(t, src.Included(IncludeStack))

	var buf bytes.Buffer
	n, err := src.WriteTo(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, src.Len(), n)
	assert.Equal(t, got, buf.String())
}

func TestCombine(t *testing.T) {
	var tests = []struct {
		op      CombineOp
		a, b    float32
		want    float32
		wantTag string
	}{
		{op: OpUnion, a: 1, b: 2, want: 1, wantTag: "a"},
		{op: OpUnion, a: 3, b: 2, want: 2, wantTag: "b"},
		{op: OpUnion, a: 2, b: 2, want: 2, wantTag: "a"},
		{op: OpIntersection, a: 1, b: 2, want: 2, wantTag: "b"},
		{op: OpIntersection, a: 3, b: 2, want: 3, wantTag: "a"},
		{op: OpSubtraction, a: 1, b: 2, want: 1, wantTag: "a"},
		{op: OpSubtraction, a: 1, b: -2, want: 2, wantTag: "b"},
		{op: OpSubtraction, a: -1, b: 0.5, want: -0.5, wantTag: "b"},
	}
	for _, test := range tests {
		got, tag := Combine(test.op, test.a, "a", test.b, "b")
		assert.Equal(t, test.want, got, "%s(%g,%g)", test.op, test.a, test.b)
		assert.Equal(t, test.wantTag, tag, "%s(%g,%g)", test.op, test.a, test.b)
	}
}

func TestCombineSurvives(t *testing.T) {
	assert.True(t, OpUnion.Survives([]bool{false, true, false}))
	assert.False(t, OpUnion.Survives([]bool{false, false}))
	assert.False(t, OpUnion.Survives(nil))
	assert.True(t, OpIntersection.Survives([]bool{true, true}))
	assert.False(t, OpIntersection.Survives([]bool{true, false}))
	assert.True(t, OpSubtraction.Survives([]bool{true, false, false}))
	assert.False(t, OpSubtraction.Survives([]bool{false, true}))
}

func TestWriteNodeProgramLeaf(t *testing.T) {
	helper, err := MakeShaderFunction([]byte("float helperLen(vec3 p) {\n\treturn length(p);\n}"))
	require.NoError(t, err)
	sdf := &testShader{name: "sphere1", body: "return helperLen(p)-1.0;", objs: []ShaderObject{helper}}
	outer := &testShader{name: "twistOuter", body: "return p.yxz;"}
	inner := &testShader{name: "repeatInner", body: "return mod(p, 2.0);"}
	odf := &testShader{name: "offset2", body: "return d-0.5;"}
	p := NewDefaultProgrammer()
	var buf bytes.Buffer
	_, err = p.WriteNodeProgram(&buf, NodeSource{
		ID:                 7,
		ChildIndex:         2,
		HasParent:          true,
		ParentOp:           OpSubtraction,
		SDF:                sdf,
		InputDeformations:  []Shader{outer, inner, outer},
		OutputDeformations: []Shader{odf},
	})
	require.NoError(t, err)
	got := buf.String()
	t.Log(got)
	assert.Contains(t, got, "#define NODE_ID 7\n")
	assert.Contains(t, got, "#define NODE_CHILD_INDEX 2\n")
	assert.Contains(t, got, "#define MAX_STACK_DEPTH 16\n")
	assert.Contains(t, got, "layout(early_fragment_tests) in;")
	assert.Contains(t, got, "sdfSubtraction(prevD, prevID, d, id);")
	assert.Contains(t, got, "sphere1((uWorldToLocal*vec4(p, 1.0)).xyz)*uScale;")
	assert.Contains(t, got, "d = offset2(d, p);")
	assert.Equal(t, 1, strings.Count(got, "vec3 twistOuter(vec3 p)"), "duplicate definition")
	assert.Equal(t, 1, strings.Count(got, "float helperLen(vec3 p)"))
	// Input deformations apply outermost first.
	iOuter := strings.Index(got, "p = twistOuter(p);")
	iInner := strings.Index(got, "p = repeatInner(p);")
	iLastOuter := strings.LastIndex(got, "p = twistOuter(p);")
	assert.True(t, iOuter >= 0 && iOuter < iInner && iInner < iLastOuter)
	// Leaves do not pop before evaluating.
	assert.NotContains(t, got, "stackPop(pix, d, id);")
}

func TestWriteNodeProgramRoot(t *testing.T) {
	p := NewDefaultProgrammer()
	p.SetMaxStackDepth(5)
	got, err := p.AppendNodeProgram(nil, NodeSource{ID: 3})
	require.NoError(t, err)
	s := string(got)
	assert.Contains(t, s, "#define MAX_STACK_DEPTH 5\n")
	assert.Contains(t, s, "float transform(vec3 p, float d)")
	assert.Contains(t, s, "stackPop(pix, d, id);")
	assert.Contains(t, s, "sdfUnion(prevD, prevID, d, id);")
	assert.NotContains(t, s, "uCulledSiblings == 0")
}

func TestWriteNodeProgramBranchDeformations(t *testing.T) {
	repeat := &testShader{name: "repeatX", body: "return mod(p, 2.0);"}
	odf := &testShader{name: "offset1", body: "return d-1.0;"}
	p := NewDefaultProgrammer()
	got, err := p.AppendNodeProgram(nil, NodeSource{
		ID:                2,
		HasParent:         true,
		ParentOp:          OpUnion,
		InputDeformations: []Shader{repeat},
	})
	require.NoError(t, err)
	s := string(got)
	assert.NotContains(t, s, "repeatX", "branch without output deformations never reads p")
	assert.Contains(t, s, "float transform(vec3 p, float d)")

	got, err = p.AppendNodeProgram(nil, NodeSource{
		ID:                 2,
		HasParent:          true,
		ParentOp:           OpUnion,
		InputDeformations:  []Shader{repeat},
		OutputDeformations: []Shader{odf},
	})
	require.NoError(t, err)
	s = string(got)
	assert.Contains(t, s, "vec3 repeatX(vec3 p)")
	iIDF := strings.Index(s, "p = repeatX(p);")
	iODF := strings.Index(s, "d = offset1(d, p);")
	assert.True(t, iIDF >= 0 && iIDF < iODF, "output deformations see the deformed point")
}

func TestWriteNodeProgramNameConflict(t *testing.T) {
	a := &testShader{name: "same", body: "return p;"}
	b := &testShader{name: "same", body: "return -p;"}
	p := NewDefaultProgrammer()
	_, err := p.AppendNodeProgram(nil, NodeSource{
		SDF:               &testShader{name: "s", body: "return 1.0;"},
		InputDeformations: []Shader{a, b},
	})
	assert.Error(t, err)
}

func TestWriteBoundsCompute(t *testing.T) {
	p := NewDefaultProgrammer()
	p.SetComputeInvocations(64)
	var buf bytes.Buffer
	_, err := p.WriteBoundsCompute(&buf, NodeSource{SDF: &testShader{name: "s", body: "return length(p)-1.0;"}}, 8)
	require.NoError(t, err)
	got := buf.String()
	assert.Contains(t, got, "layout(local_size_x = 64, local_size_y = 1, local_size_z = 1) in;")
	assert.Contains(t, got, "#define BOUNDS_STEPS 8")
	assert.Contains(t, got, "int floatToFixedPoint(float v)")
	assert.Contains(t, got, "float d = s(p);")
	assert.NotContains(t, got, "uWorldToLocal")

	_, err = p.WriteBoundsCompute(&buf, NodeSource{}, 8)
	assert.Error(t, err)
}
