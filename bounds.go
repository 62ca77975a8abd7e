package sdfrast

import (
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast/gleval"
)

type nodeBounds struct {
	user    ms3.Box
	hasUser bool

	native      ms3.Box
	nativeOK    bool
	nativeDirty bool

	dynamic    ms3.Box
	dynamicOK  bool
	dynamicGen uint64
	dynamicVer uint64

	final      ms3.Box
	finalOK    bool
	finalDirty bool

	// nativeVer increments every time native is recomputed.
	nativeVer uint64
}

// NativeAABB returns the leaf's bounding box in local space, without deformations.
// It is the author specified box if set, otherwise it is computed by the tree's
// [BoundsComputer] or analytically. ok is false for nodes without geometry of their own.
func (n *Node) NativeAABB() (bb ms3.Box, ok bool) {
	b := &n.bounds
	if b.nativeDirty {
		b.native, b.nativeOK = n.computeNative()
		b.nativeDirty = false
		b.nativeVer++
	}
	return b.native, b.nativeOK
}

func (n *Node) computeNative() (ms3.Box, bool) {
	if n.bounds.hasUser {
		return n.bounds.user, true
	} else if n.sdf == nil || len(n.children) > 0 {
		return ms3.Box{}, false
	}
	analytic, ok := n.sdf.shapeBounds()
	if !ok {
		analytic = n.searchVolume()
	}
	if n.tree == nil || n.tree.Bounds == nil || !boundsSearchable(analytic) {
		return analytic, true
	}
	search := analytic.ScaleCentered(ms3.Vec{X: 1.25, Y: 1.25, Z: 1.25})
	computed, err := n.tree.Bounds.ComputeBounds(n, search)
	if err != nil {
		return analytic, true
	}
	return computed, true
}

func (n *Node) searchVolume() ms3.Box {
	if n.tree != nil {
		return n.tree.SearchVolume
	}
	return ms3.Box{Min: ms3.Vec{X: -largenum, Y: -largenum, Z: -largenum}, Max: ms3.Vec{X: largenum, Y: largenum, Z: largenum}}
}

// boundsSearchable reports whether a GPU search of bb fits the fixed point range.
func boundsSearchable(bb ms3.Box) bool {
	const lim = gleval.FixedPointMax / 2
	return bb.Min.X > -lim && bb.Min.Y > -lim && bb.Min.Z > -lim &&
		bb.Max.X < lim && bb.Max.Y < lim && bb.Max.Z < lim
}

// DynamicAABB returns the world space box of the node's own geometry: the native box transformed to
// world space and expanded by the node's own deformations.
func (n *Node) DynamicAABB() (bb ms3.Box, ok bool) {
	native, ok := n.NativeAABB()
	if !ok {
		return ms3.Box{}, false
	}
	n.refreshTransforms()
	b := &n.bounds
	if !b.dynamicOK || b.dynamicGen != n.xf.gen || b.dynamicVer != b.nativeVer {
		bb = transformBox(n.xf.localToWorld, native)
		b.dynamic = n.deformBounds(bb)
		b.dynamicOK = true
		b.dynamicGen = n.xf.gen
		b.dynamicVer = b.nativeVer
	}
	return b.dynamic, true
}

// FinalAABB returns the world space box enclosing the node's subtree. ok is false
// if the subtree has no geometry.
func (n *Node) FinalAABB() (bb ms3.Box, ok bool) {
	b := &n.bounds
	if !b.finalDirty {
		return b.final, b.finalOK
	}
	bb, ok = n.DynamicAABB()
	var children ms3.Box
	var childrenOK bool
	for i, c := range n.children {
		cbb, cok := c.FinalAABB()
		if !cok {
			continue
		}
		switch {
		case !childrenOK:
			children, childrenOK = cbb, true
		case n.op == OpIntersection:
			children = intersectBox(children, cbb)
		case n.op == OpSubtraction && i > 0:
			// Subtracted operands never grow the result.
		default:
			children = children.Union(cbb)
		}
	}
	if childrenOK {
		children = n.deformBounds(children)
		if ok {
			bb = bb.Union(children)
		} else {
			bb, ok = children, true
		}
	}
	b.final, b.finalOK, b.finalDirty = bb, ok, false
	return bb, ok
}

// DeformedAABB returns the world space region where the node's subtree can produce
// geometry: its final box expanded by the deformations of all of its ancestors,
// nearest first. Use it to decide whether a node is visible.
func (n *Node) DeformedAABB() (bb ms3.Box, ok bool) {
	bb, ok = n.FinalAABB()
	if !ok {
		return bb, false
	}
	for it := n.parent; it != nil; it = it.parent {
		bb = it.deformBounds(bb)
	}
	return bb, true
}

// deformBounds expands a world space box by the node's input and output deformations.
func (n *Node) deformBounds(bb ms3.Box) ms3.Box {
	for i := len(n.idfs) - 1; i >= 0; i-- {
		bb = n.idfs[i].deformBounds(bb)
	}
	for _, f := range n.odfs {
		bb = f.deformBounds(bb)
	}
	return bb
}

func intersectBox(a, b ms3.Box) ms3.Box {
	out := ms3.Box{
		Min: ms3.MaxElem(a.Min, b.Min),
		Max: ms3.MinElem(a.Max, b.Max),
	}
	// Keep a degenerate box on the overlap boundary when disjoint.
	out.Max = ms3.MaxElem(out.Max, out.Min)
	return out
}

func (n *Node) invalidateNativeBounds() {
	n.bounds.nativeDirty = true
	n.invalidateFinalBounds()
}

func (n *Node) invalidateFinalBounds() {
	for it := n; it != nil; it = it.parent {
		it.bounds.finalDirty = true
	}
}
