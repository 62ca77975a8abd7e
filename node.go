package sdfrast

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
)

// Node is a geometry node. A node with children is a branch that combines them
// with its operator. A node without children is a leaf that draws its SDF, if any.
// Any node may hold input and output deformations.
//
// Nodes are created detached and attached to a [Tree] with [Tree.AddChild]. IDs
// are assigned by the tree in post-order so that children always precede their parent.
type Node struct {
	name     string
	id       int
	tree     *Tree
	parent   *Node
	children []*Node
	op       Op
	visible  bool
	material any

	sdf  *Function
	idfs []*Function
	odfs []*Function

	needsRebuild bool

	scale       float32
	position    mgl32.Vec3
	orientation mgl32.Quat
	xf          transforms

	bounds nodeBounds
}

// NewNode returns a visible detached node with identity transform and union operator.
func NewNode(name string) *Node {
	n := &Node{
		name:         name,
		id:           -1,
		op:           OpUnion,
		visible:      true,
		needsRebuild: true,
		scale:        1,
		orientation:  mgl32.QuatIdent(),
	}
	n.xf.dirty = true
	n.bounds.nativeDirty = true
	n.bounds.finalDirty = true
	return n
}

// NewLeaf returns a detached node holding sdf.
func NewLeaf(name string, sdf *Function) *Node {
	n := NewNode(name)
	if sdf != nil {
		if sdf.sig != SignatureSDF {
			panic(ErrSignature.Error())
		}
		sdf.acquire()
		n.sdf = sdf
	}
	return n
}

// NewBranch returns a detached node with operator op.
func NewBranch(name string, op Op) *Node {
	if !op.IsValid() {
		panic("invalid operator")
	}
	n := NewNode(name)
	n.op = op
	return n
}

func (n *Node) Name() string { return n.name }

// ID returns the node's post-order index in its tree or -1 if detached.
func (n *Node) ID() int { return n.id }

// Tree returns the tree the node belongs to or nil.
func (n *Node) Tree() *Tree { return n.tree }

func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children. The returned slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

func (n *Node) NumChildren() int { return len(n.children) }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// ChildIndex returns the node's index among its parent's children or -1 for roots.
func (n *Node) ChildIndex() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.children {
		if c == n {
			return i
		}
	}
	panic("node missing from parent's children")
}

// Operator returns the combination operator applied to the node's children.
func (n *Node) Operator() Op { return n.op }

func (n *Node) Visible() bool { return n.visible }

// SetVisible hides or shows the node's subtree. Hidden nodes are culled from rendering
// following the same rules as nodes without geometry.
func (n *Node) SetVisible(visible bool) { n.visible = visible }

// Material returns the material reference set with [Node.SetMaterial].
func (n *Node) Material() any { return n.material }

// SetMaterial sets an opaque material reference resolved by the renderer.
func (n *Node) SetMaterial(material any) { n.material = material }

// SDF returns the leaf's signed distance function or nil.
func (n *Node) SDF() *Function { return n.sdf }

// InputDeformations returns the node's input deformations in application order.
// The returned slice must not be modified.
func (n *Node) InputDeformations() []*Function { return n.idfs }

// OutputDeformations returns the node's output deformations in application order.
// The returned slice must not be modified.
func (n *Node) OutputDeformations() []*Function { return n.odfs }

// NeedsRebuild reports whether the node's GPU program is stale.
func (n *Node) NeedsRebuild() bool { return n.needsRebuild }

// ClearRebuild is called by program caches after rebuilding the node's program.
func (n *Node) ClearRebuild() { n.needsRebuild = false }

// Depth returns the number of levels from the root to the node, the root being at depth 1.
func (n *Node) Depth() int {
	depth := 0
	for it := n; it != nil; it = it.parent {
		depth++
	}
	return depth
}

// Height returns the number of levels of the node's subtree, a leaf having height 1.
func (n *Node) Height() int {
	h := 0
	for _, c := range n.children {
		h = max(h, c.Height())
	}
	return h + 1
}

// Size returns the number of nodes in the node's subtree including itself.
func (n *Node) Size() int {
	size := 1
	for _, c := range n.children {
		size += c.Size()
	}
	return size
}

// Walk calls fn for every node of n's subtree in post-order. Walk stops at the first error.
func (n *Node) Walk(fn func(*Node) error) error {
	for _, c := range n.children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return fn(n)
}

func (n *Node) walk(fn func(*Node)) {
	for _, c := range n.children {
		c.walk(fn)
	}
	fn(n)
}

func (n *Node) isAncestorOf(other *Node) bool {
	for it := other.parent; it != nil; it = it.parent {
		if it == n {
			return true
		}
	}
	return false
}

// SetNativeBounds sets the node's local space bounding box overriding automatic calculation.
func (n *Node) SetNativeBounds(bb ms3.Box) {
	n.bounds.user = bb.Canon()
	n.bounds.hasUser = true
	n.invalidateNativeBounds()
}

// ClearNativeBounds restores automatic calculation of the node's local bounding box.
func (n *Node) ClearNativeBounds() {
	n.bounds.hasUser = false
	n.invalidateNativeBounds()
}
