package sdfrast

import (
	"errors"
	"math"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast/glbuild"
	"github.com/soypat/sdfrast/gleval"
)

// Contributes reports whether n produces geometry: a visible leaf with an SDF,
// or a visible branch whose contributing children satisfy its operator. See [Op.Survives].
func Contributes(n *Node) bool {
	return contributes(n, func(*Node) bool { return true })
}

// contributes applies the drawability rules with an extra per-leaf predicate.
func contributes(n *Node, leafOK func(*Node) bool) bool {
	if !n.visible {
		return false
	}
	if len(n.children) == 0 {
		return n.sdf != nil && leafOK(n)
	}
	var buf [16]bool
	included := buf[:0]
	for _, c := range n.children {
		included = append(included, contributes(c, leafOK))
	}
	return n.op.Survives(included)
}

// EvaluateDistance evaluates the subtree rooted at n at world position p and
// returns the distance and the leaf closest to p. The root's and ancestors' input
// deformations are not applied unless n is the root. leaf is nil if the subtree
// has no geometry, in which case the distance is +Inf.
func (t *Tree) EvaluateDistance(n *Node, p ms3.Vec) (d float32, leaf *Node) {
	pos := [1]ms3.Vec{p}
	var dist [1]float32
	var leaves [1]*Node
	ok := t.evaluate(n, pos[:], dist[:], leaves[:])
	if !ok {
		return float32(math.Inf(1)), nil
	}
	return dist[0], leaves[0]
}

// Normal returns the unit surface normal of the whole tree at p computed with
// central differences of step [NormalStep].
func (t *Tree) Normal(p ms3.Vec) ms3.Vec {
	return t.NormalWith(p, nil)
}

// NormalWith is like [Tree.Normal] but reuses the buffers in scratch, which may be nil.
func (t *Tree) NormalWith(p ms3.Vec, scratch *gleval.NormalScratch) ms3.Vec {
	if !Contributes(t.root) {
		return ms3.Vec{}
	}
	var normal [1]ms3.Vec
	pos := [1]ms3.Vec{p}
	var userData any
	if scratch != nil {
		userData = scratch
	}
	err := gleval.NormalsCentralDiff(t.SDF(), pos[:], normal[:], NormalStep, userData)
	if err != nil || ms3.Norm(normal[0]) < epstol {
		return ms3.Vec{}
	}
	return ms3.Unit(normal[0])
}

// LeafDistance evaluates the program of leaf n for world points pos: all input deformations of
// n and its ancestors outermost first, the SDF in local space scaled to world units and n's own output
// deformations. pos is deformed in place.
func (t *Tree) LeafDistance(n *Node, pos []ms3.Vec, dist []float32) error {
	if n.sdf == nil {
		return ErrNoSDF
	} else if len(pos) != len(dist) {
		return errors.New("position and distance length mismatch")
	}
	t.deformAncestors(n, pos)
	return n.leafDistance(pos, dist)
}

// BranchDistance evaluates the program of branch n for world points pos given the combined
// distance of its children in dist. pos is deformed in place.
func (t *Tree) BranchDistance(n *Node, pos []ms3.Vec, dist []float32) {
	t.deformAncestors(n, pos)
	for _, f := range n.idfs {
		f.deformPositions(pos)
	}
	for _, f := range n.odfs {
		f.deformDistances(dist, pos)
	}
}

func (t *Tree) deformAncestors(n *Node, pos []ms3.Vec) {
	var buf [16]*Node
	path := buf[:0]
	for it := n.parent; it != nil; it = it.parent {
		path = append(path, it)
	}
	for i := len(path) - 1; i >= 0; i-- {
		for _, f := range path[i].idfs {
			f.deformPositions(pos)
		}
	}
}

// leafDistance expects pos deformed by ancestors' input deformations.
func (n *Node) leafDistance(pos []ms3.Vec, dist []float32) error {
	for _, f := range n.idfs {
		f.deformPositions(pos)
	}
	local := make([]ms3.Vec, len(pos))
	copy(local, pos)
	transformPoints(n.WorldToLocal(), local)
	err := n.sdf.evaluateShape(local, dist)
	if err != nil {
		return err
	}
	scale := n.WorldScale()
	for i := range dist {
		dist[i] *= scale
	}
	for _, f := range n.odfs {
		f.deformDistances(dist, pos)
	}
	return nil
}

// evaluate evaluates n's subtree with pos deformed by n's ancestors. pos is not modified.
func (t *Tree) evaluate(n *Node, pos []ms3.Vec, dist []float32, leaves []*Node) bool {
	if !Contributes(n) {
		return false
	}
	local := make([]ms3.Vec, len(pos))
	copy(local, pos)
	if len(n.children) == 0 {
		if n.leafDistance(local, dist) != nil {
			return false
		}
		for i := range leaves {
			leaves[i] = n
		}
		return true
	}
	for _, f := range n.idfs {
		f.deformPositions(local)
	}
	cdist := make([]float32, len(pos))
	cleaves := make([]*Node, len(pos))
	first := true
	for _, c := range n.children {
		if !t.evaluate(c, local, cdist, cleaves) {
			continue
		}
		if first {
			copy(dist, cdist)
			copy(leaves, cleaves)
			first = false
			continue
		}
		for i := range dist {
			dist[i], leaves[i] = glbuild.Combine(n.op, dist[i], leaves[i], cdist[i], cleaves[i])
		}
	}
	for _, f := range n.odfs {
		f.deformDistances(dist, local)
	}
	return true
}

// SDF returns the tree as a [gleval.SDF3] evaluated on the CPU.
func (t *Tree) SDF() gleval.SDF3 { return treeSDF{t: t} }

type treeSDF struct{ t *Tree }

func (s treeSDF) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errors.New("position and distance length mismatch")
	}
	leaves := make([]*Node, len(pos))
	if !s.t.evaluate(s.t.root, pos, dist, leaves) {
		for i := range dist {
			dist[i] = largenum
		}
	}
	return nil
}

func (s treeSDF) Bounds() ms3.Box {
	bb, _ := s.t.root.FinalAABB()
	return bb
}
