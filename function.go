package sdfrast

import (
	"bytes"
	"fmt"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast/glbuild"
	"github.com/soypat/sdfrast/gleval"
)

// Shape is a signed distance function with GPU and CPU implementations.
// Distances are evaluated in the node's local space.
type Shape interface {
	glbuild.Shader
	gleval.SDF3
}

// InputDeformation warps sample points before they reach descendant shapes.
type InputDeformation interface {
	glbuild.Shader
	// DeformPositions deforms pos in place.
	DeformPositions(pos []ms3.Vec)
}

// OutputDeformation modifies the distance a node produces.
type OutputDeformation interface {
	glbuild.Shader
	// DeformDistances modifies dist in place. pos holds the deformed sample points.
	DeformDistances(dist []float32, pos []ms3.Vec)
}

// boundsDeformer is implemented by deformations that change the region a shape occupies.
// DeformBounds returns a box containing the deformed geometry of geometry contained in bb.
type boundsDeformer interface {
	DeformBounds(bb ms3.Box) ms3.Box
}

// Function is a geometry function shared between nodes. A Function counts
// how many node slots hold it.
type Function struct {
	sig    glbuild.Signature
	shader glbuild.Shader
	refs   int
}

// NewShapeFunction wraps a user defined shape.
func NewShapeFunction(s Shape) *Function {
	return &Function{sig: glbuild.SignatureSDF, shader: s}
}

// NewInputDeformationFunction wraps a user defined input deformation.
func NewInputDeformationFunction(d InputDeformation) *Function {
	return &Function{sig: glbuild.SignatureIDF, shader: d}
}

// NewOutputDeformationFunction wraps a user defined output deformation.
func NewOutputDeformationFunction(d OutputDeformation) *Function {
	return &Function{sig: glbuild.SignatureODF, shader: d}
}

// NewFunctionSource creates a function from a complete GLSL definition, i.e:
//
//	float myShape(vec3 p) { return length(p) - 1.0; }
//
// The definition's return and parameter types must match sig. Parameters are named p
// and, for output deformations, d followed by p. Functions created from source
// have no CPU implementation: the CPU evaluator treats their shapes as empty and
// their deformations as identity. Helper functions may be passed in helpers.
func NewFunctionSource(sig glbuild.Signature, src string, helpers ...glbuild.ShaderObject) (*Function, error) {
	b := bytes.TrimSpace([]byte(src))
	obj, err := glbuild.MakeShaderFunction(b)
	if err != nil {
		return nil, err
	}
	open := bytes.IndexByte(b, '{')
	end := bytes.LastIndexByte(b, '}')
	if open < 0 || end < open {
		return nil, fmt.Errorf("function %q has no body", obj.NamePtr)
	}
	var wantRet, wantArgs string
	switch sig {
	case glbuild.SignatureSDF:
		wantRet, wantArgs = "float", "vec3"
	case glbuild.SignatureIDF:
		wantRet, wantArgs = "vec3", "vec3"
	case glbuild.SignatureODF:
		wantRet, wantArgs = "float", "float,vec3"
	default:
		return nil, fmt.Errorf("invalid signature %d", sig)
	}
	proto := b[:open]
	ret := string(bytes.TrimSpace(proto[:bytes.IndexByte(proto, ' ')]))
	args := argTypes(proto[bytes.IndexByte(proto, '(')+1:])
	if ret != wantRet || args != wantArgs {
		return nil, fmt.Errorf("%w: %s %s(%s) is not a valid %s", ErrSignature, ret, obj.NamePtr, args, sig)
	}
	s := &sourceShader{
		name:    string(obj.NamePtr),
		body:    string(bytes.TrimSpace(b[open+1 : end])),
		helpers: helpers,
	}
	return &Function{sig: sig, shader: s}, nil
}

// argTypes returns the comma separated parameter types of a GLSL parameter list.
func argTypes(params []byte) string {
	if i := bytes.IndexByte(params, ')'); i >= 0 {
		params = params[:i]
	}
	var types []string
	for _, param := range bytes.Split(params, []byte{','}) {
		fields := bytes.Fields(param)
		if len(fields) == 0 {
			continue
		}
		typ := fields[0]
		if len(fields) > 2 {
			typ = fields[len(fields)-2] // Skip qualifiers such as in/const.
		}
		types = append(types, string(typ))
	}
	var buf bytes.Buffer
	for i, typ := range types {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(typ)
	}
	return buf.String()
}

// Signature returns the GLSL signature of the function.
func (f *Function) Signature() glbuild.Signature { return f.sig }

// Shader returns the GLSL definition of the function.
func (f *Function) Shader() glbuild.Shader { return f.shader }

// Refs returns the number of node slots holding f.
func (f *Function) Refs() int { return f.refs }

// HasCPU reports whether the function can be evaluated on the CPU.
func (f *Function) HasCPU() bool {
	_, isSource := f.shader.(*sourceShader)
	return !isSource
}

func (f *Function) String() string {
	return f.sig.String() + ":" + string(f.shader.AppendShaderName(nil))
}

func (f *Function) acquire() { f.refs++ }

func (f *Function) release() {
	if f.refs <= 0 {
		panic("function released more times than acquired")
	}
	f.refs--
}

// evaluateShape evaluates an SDF function at local positions.
func (f *Function) evaluateShape(pos []ms3.Vec, dist []float32) error {
	s, ok := f.shader.(Shape)
	if !ok {
		for i := range dist {
			dist[i] = largenum
		}
		return nil
	}
	return s.Evaluate(pos, dist, nil)
}

func (f *Function) deformPositions(pos []ms3.Vec) {
	if d, ok := f.shader.(InputDeformation); ok {
		d.DeformPositions(pos)
	}
}

func (f *Function) deformDistances(dist []float32, pos []ms3.Vec) {
	if d, ok := f.shader.(OutputDeformation); ok {
		d.DeformDistances(dist, pos)
	}
}

// shapeBounds returns the analytic local bounds of an SDF function. ok is false
// if the function has no CPU implementation.
func (f *Function) shapeBounds() (bb ms3.Box, ok bool) {
	s, ok := f.shader.(Shape)
	if !ok {
		return ms3.Box{}, false
	}
	return s.Bounds(), true
}

func (f *Function) deformBounds(bb ms3.Box) ms3.Box {
	if d, ok := f.shader.(boundsDeformer); ok {
		return d.DeformBounds(bb)
	}
	return bb
}

type sourceShader struct {
	name    string
	body    string
	helpers []glbuild.ShaderObject
}

func (s *sourceShader) AppendShaderName(b []byte) []byte { return append(b, s.name...) }
func (s *sourceShader) AppendShaderBody(b []byte) []byte { return append(b, s.body...) }
func (s *sourceShader) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	return append(objs, s.helpers...)
}
