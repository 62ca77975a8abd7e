package glbuild

import (
	_ "embed"
	"io"
	"strconv"
)

//go:embed include/frame.glsl
var frameSrc []byte

//go:embed include/stack.glsl
var stackSrc []byte

//go:embed include/combine.glsl
var combineSrc []byte

//go:embed include/fixedpoint.glsl
var fixedPointSrc []byte

//go:embed include/bounds.glsl
var boundsSrc []byte

// Include is a fixed block of GLSL shared by the generated and the built-in programs.
type Include uint8

const (
	// IncludeFrame declares the NodeDraw and Frame uniform blocks, the ray buffer and pixel addressing.
	IncludeFrame Include = iota
	// IncludeStack declares the per-pixel distance stack buffer and its push/pop functions.
	// Requires MAX_STACK_DEPTH to be defined before inclusion.
	IncludeStack
	// IncludeCombine declares the union, intersection and subtraction fold functions.
	IncludeCombine
	// IncludeFixedPoint declares the float to fixed point conversion functions.
	IncludeFixedPoint
	// IncludeBounds declares the bounding box search buffers and uniforms for compute programs.
	// Requires IncludeFixedPoint.
	IncludeBounds
	numIncludes
)

// Source returns the GLSL source of the include.
func (inc Include) Source() []byte {
	switch inc {
	case IncludeFrame:
		return frameSrc
	case IncludeStack:
		return stackSrc
	case IncludeCombine:
		return combineSrc
	case IncludeFixedPoint:
		return fixedPointSrc
	case IncludeBounds:
		return boundsSrc
	}
	return nil
}

// Section is a region of a [Source]. Sections are written in declaration order.
type Section uint8

const (
	SectionVersion Section = iota
	SectionDefines
	SectionLayout
	SectionIncludes
	SectionDecls
	SectionFunctions
	SectionEntry
	numSections
)

// Source assembles a GLSL program from independently written sections
// so that defines always precede includes, includes precede functions and so on.
type Source struct {
	sections [numSections][]byte
	included uint32
}

// Reset clears all sections. Version is reset to [VersionStr].
func (s *Source) Reset() {
	for i := range s.sections {
		s.sections[i] = s.sections[i][:0]
	}
	s.sections[SectionVersion] = append(s.sections[SectionVersion], VersionStr...)
	s.included = 0
}

// Append appends b to section sec.
func (s *Source) Append(sec Section, b ...byte) {
	s.sections[sec] = append(s.sections[sec], b...)
}

// AppendString appends str to section sec.
func (s *Source) AppendString(sec Section, str string) {
	s.sections[sec] = append(s.sections[sec], str...)
}

// Define appends a preprocessor #define to the defines section.
func (s *Source) Define(name, value string) {
	s.sections[SectionDefines] = AppendDefineDecl(s.sections[SectionDefines], name, value)
}

// DefineInt appends an integer valued #define to the defines section.
func (s *Source) DefineInt(name string, v int) {
	s.Define(name, strconv.Itoa(v))
}

// Include adds the include block to the includes section. Includes are written once.
func (s *Source) Include(incs ...Include) {
	for _, inc := range incs {
		bit := uint32(1) << inc
		if s.included&bit != 0 || inc >= numIncludes {
			continue
		}
		s.included |= bit
		s.sections[SectionIncludes] = append(s.sections[SectionIncludes], inc.Source()...)
		s.sections[SectionIncludes] = append(s.sections[SectionIncludes], '\n')
	}
}

// Included reports whether inc has been added to the source.
func (s *Source) Included(inc Include) bool {
	return s.included&(1<<inc) != 0
}

// Section returns the contents of section sec. The returned buffer is
// valid until the next modification of s.
func (s *Source) Section(sec Section) []byte { return s.sections[sec] }

// Len returns the length in bytes of the assembled program.
func (s *Source) Len() (n int) {
	for i := range s.sections {
		n += len(s.sections[i])
	}
	return n
}

// AppendTo appends the assembled program to dst.
func (s *Source) AppendTo(dst []byte) []byte {
	for i := range s.sections {
		dst = append(dst, s.sections[i]...)
	}
	return dst
}

// WriteTo writes the assembled program to w. It implements [io.WriterTo].
func (s *Source) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for i := range s.sections {
		if len(s.sections[i]) == 0 {
			continue
		}
		ngot, err := w.Write(s.sections[i])
		n += int64(ngot)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
