package sdfrast

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
)

// transforms memoizes a node's matrices. Recomputation is lazy and top-down:
// when a dirty node is recomputed its children are flagged dirty in turn.
type transforms struct {
	localToParent mgl32.Mat4
	parentToLocal mgl32.Mat4
	localToWorld  mgl32.Mat4
	worldToLocal  mgl32.Mat4
	worldScale    float32
	dirty         bool
	// gen increments on every recomputation.
	gen uint64
}

// Position returns the node's translation relative to its parent.
func (n *Node) Position() mgl32.Vec3 { return n.position }

// Orientation returns the node's rotation relative to its parent.
func (n *Node) Orientation() mgl32.Quat { return n.orientation }

// Scale returns the node's uniform scale relative to its parent.
func (n *Node) Scale() float32 { return n.scale }

// SetPosition sets the node's translation relative to its parent.
func (n *Node) SetPosition(pos mgl32.Vec3) {
	n.position = pos
	n.invalidateTransform()
}

// SetOrientation sets the node's rotation relative to its parent. q is normalized.
func (n *Node) SetOrientation(q mgl32.Quat) {
	if q.Len() < epstol {
		panic("degenerate orientation quaternion")
	}
	n.orientation = q.Normalize()
	n.invalidateTransform()
}

// SetScale sets the node's uniform scale relative to its parent. Scale must be positive.
func (n *Node) SetScale(s float32) {
	if !(s > epstol) || math.IsInf(float64(s), 0) {
		panic("scale must be positive and finite")
	}
	n.scale = s
	n.invalidateTransform()
}

// LocalToParent returns the matrix taking local coordinates to parent coordinates:
// translation * rotation * scale.
func (n *Node) LocalToParent() mgl32.Mat4 {
	n.refreshTransforms()
	return n.xf.localToParent
}

// ParentToLocal returns the inverse of [Node.LocalToParent].
func (n *Node) ParentToLocal() mgl32.Mat4 {
	n.refreshTransforms()
	return n.xf.parentToLocal
}

// LocalToWorld returns the matrix taking local coordinates to world coordinates.
func (n *Node) LocalToWorld() mgl32.Mat4 {
	n.refreshTransforms()
	return n.xf.localToWorld
}

// WorldToLocal returns the inverse of [Node.LocalToWorld].
func (n *Node) WorldToLocal() mgl32.Mat4 {
	n.refreshTransforms()
	return n.xf.worldToLocal
}

// WorldScale returns the product of the scales of the node and its ancestors.
// Local distances multiplied by WorldScale are world distances.
func (n *Node) WorldScale() float32 {
	n.refreshTransforms()
	return n.xf.worldScale
}

func (n *Node) invalidateTransform() {
	n.xf.dirty = true
	n.walk(func(desc *Node) { desc.bounds.finalDirty = true })
	n.invalidateFinalBounds()
}

func (n *Node) refreshTransforms() {
	var buf [16]*Node
	path := buf[:0]
	for it := n; it != nil; it = it.parent {
		path = append(path, it)
	}
	for i := len(path) - 1; i >= 0; i-- {
		node := path[i]
		if !node.xf.dirty {
			continue
		}
		node.recomputeTransforms()
		for _, c := range node.children {
			c.xf.dirty = true
		}
	}
}

// recomputeTransforms expects the parent's transforms to be up to date.
func (n *Node) recomputeTransforms() {
	s := n.scale
	p := n.position
	l2p := mgl32.Translate3D(p.X(), p.Y(), p.Z()).Mul4(n.orientation.Mat4()).Mul4(mgl32.Scale3D(s, s, s))
	// Inverse of T*R*S is S⁻¹*Rᵀ*T⁻¹.
	inv := 1 / s
	p2l := mgl32.Scale3D(inv, inv, inv).Mul4(n.orientation.Conjugate().Mat4()).Mul4(mgl32.Translate3D(-p.X(), -p.Y(), -p.Z()))
	n.xf.localToParent = l2p
	n.xf.parentToLocal = p2l
	if n.parent == nil {
		n.xf.localToWorld = l2p
		n.xf.worldToLocal = p2l
		n.xf.worldScale = s
	} else {
		pxf := &n.parent.xf
		n.xf.localToWorld = pxf.localToWorld.Mul4(l2p)
		n.xf.worldToLocal = p2l.Mul4(pxf.worldToLocal)
		n.xf.worldScale = pxf.worldScale * s
	}
	n.xf.dirty = false
	n.xf.gen++
}

func vecToMGL(v ms3.Vec) mgl32.Vec3 { return mgl32.Vec3{v.X, v.Y, v.Z} }

func mglToVec(v mgl32.Vec3) ms3.Vec { return ms3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// transformPoints applies affine transform m to pos in place.
func transformPoints(m mgl32.Mat4, pos []ms3.Vec) {
	for i, p := range pos {
		v := m.Mul4x1(mgl32.Vec4{p.X, p.Y, p.Z, 1})
		pos[i] = ms3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
}

// transformBox returns the axis aligned box containing bb transformed by m.
func transformBox(m mgl32.Mat4, bb ms3.Box) ms3.Box {
	verts := bb.Vertices()
	transformPoints(m, verts[:])
	out := ms3.Box{Min: verts[0], Max: verts[0]}
	for _, v := range verts[1:] {
		out = out.IncludePoint(v)
	}
	return out
}
