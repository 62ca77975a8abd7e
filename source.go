package sdfrast

import (
	"io"

	"github.com/soypat/sdfrast/glbuild"
)

// NodeSource returns the description of n's fragment program. Input deformations
// are listed outermost ancestor first followed by n's own.
func NodeSource(n *Node) (glbuild.NodeSource, error) {
	if n.IsLeaf() && n.sdf == nil {
		return glbuild.NodeSource{}, ErrNoSDF
	}
	ns := glbuild.NodeSource{
		ID:        n.id,
		HasParent: n.parent != nil,
	}
	if n.parent != nil {
		ns.ChildIndex = n.ChildIndex()
		ns.ParentOp = n.parent.op
	}
	if n.sdf != nil {
		ns.SDF = n.sdf.shader
	}
	var buf [16]*Node
	path := buf[:0]
	for it := n.parent; it != nil; it = it.parent {
		path = append(path, it)
	}
	for i := len(path) - 1; i >= 0; i-- {
		for _, f := range path[i].idfs {
			ns.InputDeformations = append(ns.InputDeformations, f.shader)
		}
	}
	for _, f := range n.idfs {
		ns.InputDeformations = append(ns.InputDeformations, f.shader)
	}
	for _, f := range n.odfs {
		ns.OutputDeformations = append(ns.OutputDeformations, f.shader)
	}
	return ns, nil
}

// WriteNodeProgram writes the fragment program of n to w.
func WriteNodeProgram(w io.Writer, p *glbuild.Programmer, n *Node) (int, error) {
	ns, err := NodeSource(n)
	if err != nil {
		return 0, err
	}
	return p.WriteNodeProgram(w, ns)
}

// WriteBoundsProgram writes the compute program searching the local space bounding box of leaf n's SDF.
func WriteBoundsProgram(w io.Writer, p *glbuild.Programmer, n *Node, stepsPerDispatch int) (int, error) {
	if n.sdf == nil {
		return 0, ErrNoSDF
	}
	return p.WriteBoundsCompute(w, glbuild.NodeSource{SDF: n.sdf.shader}, stepsPerDispatch)
}
