package glrender

import (
	"embed"

	"github.com/soypat/sdfrast/glbuild"
)

//go:embed shaders
var shaderFS embed.FS

// maxAtlases is the number of material atlas textures bound during shading.
const maxAtlases = 4

// fixedProgram is one of the built-in full screen programs run between node draws.
type fixedProgram uint8

const (
	progPrepare fixedProgram = iota
	progAdvance
	progExtract
	progShadowPrepare
	progShadowMark
	progShadowAdvance
	progShade
	numFixedPrograms
)

func (fp fixedProgram) String() string {
	switch fp {
	case progPrepare:
		return "prepare"
	case progAdvance:
		return "advance"
	case progExtract:
		return "extract"
	case progShadowPrepare:
		return "shadow_prepare"
	case progShadowMark:
		return "shadow_mark"
	case progShadowAdvance:
		return "shadow_advance"
	case progShade:
		return "shade"
	}
	return "unknown"
}

// usesStack reports whether the program accesses the distance stack buffer.
func (fp fixedProgram) usesStack() bool {
	switch fp {
	case progPrepare, progAdvance, progShadowPrepare, progShadowAdvance:
		return true
	}
	return false
}

// writeSource assembles the fragment program source of fp into src.
func (fp fixedProgram) writeSource(src *glbuild.Source, maxStackDepth int) error {
	body, err := shaderFS.ReadFile("shaders/" + fp.String() + ".frag")
	if err != nil {
		return err
	}
	src.Reset()
	src.DefineInt("MAX_STACK_DEPTH", maxStackDepth)
	src.DefineInt("MAX_LIGHTS", MaxLights)
	src.DefineInt("MAX_ATLASES", maxAtlases)
	src.Include(glbuild.IncludeFrame)
	if fp.usesStack() {
		src.Include(glbuild.IncludeStack)
	}
	src.Append(glbuild.SectionEntry, body...)
	return nil
}

// vertexSource returns the full screen triangle vertex program shared by every program.
func vertexSource() string {
	b, err := shaderFS.ReadFile("shaders/fullscreen.vert")
	if err != nil {
		panic(err)
	}
	return string(b)
}
