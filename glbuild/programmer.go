package glbuild

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// DefaultMaxStackDepth is the distance stack capacity used by [NewDefaultProgrammer].
const DefaultMaxStackDepth = 16

// NodeSource holds what is needed to generate the program of a single geometry node.
type NodeSource struct {
	// ID is the node's post-order ID.
	ID int
	// ChildIndex is the node's index among its parent's children, culled siblings included.
	ChildIndex int
	// HasParent is false for the root node.
	HasParent bool
	// ParentOp is the combination operator of the parent. Ignored when HasParent is false.
	ParentOp CombineOp
	// SDF is the signed distance function of a leaf node. Nil for branch nodes.
	SDF Shader
	// InputDeformations are applied to the sample point in order.
	// For node programs these are the IDFs of all ancestors (outermost first) followed by the node's own.
	InputDeformations []Shader
	// OutputDeformations are the node's own ODFs applied to its distance in order.
	OutputDeformations []Shader
}

// IsLeaf reports whether the source describes a leaf node.
func (ns *NodeSource) IsLeaf() bool { return ns.SDF != nil }

// usesPosition reports whether the program reads the deformed sample point.
// Branches without output deformations only fold distances.
func (ns *NodeSource) usesPosition() bool {
	return ns.IsLeaf() || len(ns.OutputDeformations) > 0
}

// Programmer implements program generation for geometry nodes.
type Programmer struct {
	fs       functionSet
	src      Source
	scratch  []byte
	invocX   int
	maxStack int
}

// NewDefaultProgrammer returns a Programmer with a stack depth of [DefaultMaxStackDepth]
// and 32 compute invocations in the X dimension.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		invocX:   32,
		maxStack: DefaultMaxStackDepth,
	}
}

// SetComputeInvocations sets the work group size of generated compute programs.
func (p *Programmer) SetComputeInvocations(x int) {
	if x <= 0 {
		panic("invalid compute invocation size")
	}
	p.invocX = x
}

// ComputeInvocations returns the work group size of generated compute programs.
func (p *Programmer) ComputeInvocations() int { return p.invocX }

// SetMaxStackDepth sets the per-pixel distance stack capacity of generated programs.
func (p *Programmer) SetMaxStackDepth(depth int) {
	if depth <= 0 {
		panic("invalid stack depth")
	}
	p.maxStack = depth
}

// MaxStackDepth returns the per-pixel distance stack capacity of generated programs.
func (p *Programmer) MaxStackDepth() int { return p.maxStack }

// WriteNodeProgram writes the fragment program of a geometry node to w.
// The program samples its pixel's ray, evaluates the node and folds the result
// into the distance stack following its parent's operator.
func (p *Programmer) WriteNodeProgram(w io.Writer, ns NodeSource) (int, error) {
	err := p.buildNodeProgram(ns)
	if err != nil {
		return 0, err
	}
	n, err := p.src.WriteTo(w)
	return int(n), err
}

// AppendNodeProgram appends the fragment program of a geometry node to dst. See [Programmer.WriteNodeProgram].
func (p *Programmer) AppendNodeProgram(dst []byte, ns NodeSource) ([]byte, error) {
	err := p.buildNodeProgram(ns)
	if err != nil {
		return dst, err
	}
	return p.src.AppendTo(dst), nil
}

func (p *Programmer) buildNodeProgram(ns NodeSource) error {
	if ns.ID < 0 || ns.ChildIndex < 0 {
		return errors.New("negative node ID or child index")
	} else if ns.HasParent && !ns.ParentOp.IsValid() {
		return fmt.Errorf("invalid parent operator %d", ns.ParentOp)
	}
	src := &p.src
	src.Reset()
	src.DefineInt("MAX_STACK_DEPTH", p.maxStack)
	src.DefineInt("NODE_ID", ns.ID)
	src.DefineInt("NODE_CHILD_INDEX", ns.ChildIndex)
	src.AppendString(SectionLayout, "layout(early_fragment_tests) in;\n")
	src.Include(IncludeFrame, IncludeStack, IncludeCombine)
	err := p.appendFunctions(&ns)
	if err != nil {
		return err
	}
	p.appendTransform(&ns, true)

	b := src.sections[SectionEntry]
	b = append(b, "void main() {\n\tint pix = pixelIndex();\n\tif (!rayTracing(pix)) {\n\t\treturn;\n\t}\n\tvec3 p = raySample(pix);\n"...)
	if ns.IsLeaf() {
		b = append(b, "\tfloat d = transform(p);\n\tint id = NODE_ID;\n"...)
	} else {
		b = append(b, "\tfloat d;\n\tint id;\n\tstackPop(pix, d, id);\n\td = transform(p, d);\n"...)
	}
	if ns.HasParent {
		b = append(b, "\tif (NODE_CHILD_INDEX - uCulledSiblings == 0) {\n\t\tstackPush(pix, d, id);\n\t} else {\n\t\tfloat prevD;\n\t\tint prevID;\n\t\tstackPop(pix, prevD, prevID);\n\t\t"...)
		b = ns.ParentOp.AppendFunctionName(b)
		b = append(b, "(prevD, prevID, d, id);\n\t\tstackPush(pix, prevD, prevID);\n\t}\n"...)
	} else {
		// Root unions with any leftover entry.
		b = append(b, "\tfloat prevD;\n\tint prevID;\n\tif (stackPop(pix, prevD, prevID)) {\n\t\t"...)
		b = OpUnion.AppendFunctionName(b)
		b = append(b, "(prevD, prevID, d, id);\n\t\td = prevD;\n\t\tid = prevID;\n\t}\n\tstackPush(pix, d, id);\n"...)
	}
	b = append(b, "}\n"...)
	src.sections[SectionEntry] = b
	return nil
}

// appendFunctions writes every shader function of ns to the functions section.
func (p *Programmer) appendFunctions(ns *NodeSource) (err error) {
	p.fs.reset()
	fn := p.src.sections[SectionFunctions]
	for _, idf := range ns.InputDeformations {
		if !ns.usesPosition() {
			break
		}
		fn, err = p.fs.appendShader(fn, SignatureIDF, idf)
		if err != nil {
			return err
		}
	}
	if ns.SDF != nil {
		fn, err = p.fs.appendShader(fn, SignatureSDF, ns.SDF)
		if err != nil {
			return err
		}
	}
	for _, odf := range ns.OutputDeformations {
		fn, err = p.fs.appendShader(fn, SignatureODF, odf)
		if err != nil {
			return err
		}
	}
	p.src.sections[SectionFunctions] = fn
	return nil
}

// appendTransform writes the node's transform function to the functions section.
// Leaves evaluate float transform(vec3 p), branches float transform(vec3 p, float d).
// When world is true leaves evaluate their SDF in local space and scale the result
// by the node's world scale. Input deformations are skipped when nothing reads p.
func (p *Programmer) appendTransform(ns *NodeSource, world bool) {
	b := p.src.sections[SectionFunctions]
	if ns.IsLeaf() {
		b = append(b, "float transform(vec3 p) {\n"...)
	} else {
		b = append(b, "float transform(vec3 p, float d) {\n"...)
	}
	for _, idf := range ns.InputDeformations {
		if !ns.usesPosition() {
			break
		}
		b = append(b, "\tp = "...)
		b = AppendCall(b, idf, "p")
		b = append(b, ";\n"...)
	}
	if ns.IsLeaf() {
		b = append(b, "\tfloat d = "...)
		if world {
			b = AppendCall(b, ns.SDF, "(uWorldToLocal*vec4(p, 1.0)).xyz")
			b = append(b, "*uScale;\n"...)
		} else {
			b = AppendCall(b, ns.SDF, "p")
			b = append(b, ";\n"...)
		}
	}
	for _, odf := range ns.OutputDeformations {
		b = append(b, "\td = "...)
		b = AppendCall(b, odf, "d, p")
		b = append(b, ";\n"...)
	}
	b = append(b, "\treturn d;\n}\n"...)
	p.src.sections[SectionFunctions] = b
}

// WriteBoundsCompute writes a compute program that searches the bounding box of the leaf
// described by ns evaluated standalone in its local space. steps is the
// number of sphere tracing steps each invocation performs per dispatch.
func (p *Programmer) WriteBoundsCompute(w io.Writer, ns NodeSource, steps int) (int, error) {
	if !ns.IsLeaf() {
		return 0, errors.New("bounds compute requires a leaf with an SDF")
	} else if steps <= 0 {
		return 0, errors.New("bounds compute requires positive step count")
	}
	src := &p.src
	src.Reset()
	src.DefineInt("BOUNDS_STEPS", steps)
	p.scratch = append(p.scratch[:0], "layout(local_size_x = "...)
	p.scratch = strconv.AppendInt(p.scratch, int64(p.invocX), 10)
	p.scratch = append(p.scratch, ", local_size_y = 1, local_size_z = 1) in;\n"...)
	src.Append(SectionLayout, p.scratch...)
	src.Include(IncludeFixedPoint, IncludeBounds)
	err := p.appendFunctions(&ns)
	if err != nil {
		return 0, err
	}
	p.appendTransform(&ns, false)
	src.AppendString(SectionEntry, `void main() {
	int idx = int(gl_GlobalInvocationID.x);
	if (idx >= 6*uResolution*uResolution) {
		return;
	}
	BoundsRay r;
	if (uIteration == 0) {
		r = boundsRayStart(idx);
	} else {
		r = brays[idx];
	}
	if (r.dir.w != BOUNDS_TRACING) {
		return;
	}
	float maxTravel = boundsMaxTravel(r);
	for (int i = 0; i < BOUNDS_STEPS; i++) {
		vec3 p = r.origin.xyz + r.dir.xyz*r.origin.w;
		float d = transform(p);
		if (d < uThreshold) {
			boundsFold(p);
			r.dir.w = BOUNDS_HIT;
			break;
		}
		r.origin.w += d;
		if (r.origin.w > maxTravel) {
			r.dir.w = BOUNDS_MISS;
			break;
		}
	}
	brays[idx] = r;
}
`)
	n, err := src.WriteTo(w)
	return int(n), err
}
