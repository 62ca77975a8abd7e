package glrender

import (
	"strings"
	"testing"

	"github.com/soypat/sdfrast/glbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedProgramSources(t *testing.T) {
	var src glbuild.Source
	for fp := fixedProgram(0); fp < numFixedPrograms; fp++ {
		require.NoError(t, fp.writeSource(&src, 12), fp.String())
		got := string(src.AppendTo(nil))
		assert.True(t, strings.HasPrefix(got, "#version"), fp.String())
		assert.Contains(t, got, "MAX_STACK_DEPTH 12", fp.String())
		assert.Contains(t, got, "void main()", fp.String())
		assert.Contains(t, got, "uniform Frame", fp.String())
		assert.Equal(t, fp.usesStack(), src.Included(glbuild.IncludeStack), fp.String())
		// Version, defines and includes must precede the program body.
		assert.Less(t, strings.Index(got, "uniform Frame"), strings.Index(got, "void main()"), fp.String())
	}
}

func TestShadowAdvanceEarlyTests(t *testing.T) {
	var src glbuild.Source
	require.NoError(t, progShadowAdvance.writeSource(&src, 8))
	assert.Contains(t, string(src.AppendTo(nil)), "early_fragment_tests", "stencil must reject finished pixels before storage writes")
	require.NoError(t, progShadowMark.writeSource(&src, 8))
	assert.NotContains(t, string(src.AppendTo(nil)), "early_fragment_tests")
}

func TestVertexSource(t *testing.T) {
	vs := vertexSource()
	assert.True(t, strings.HasPrefix(vs, "#version"))
	assert.Contains(t, vs, "gl_VertexID")
}
