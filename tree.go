package sdfrast

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast/glbuild"
)

// BoundsComputer computes the local space bounding box of a leaf's SDF by sampling it,
// searching no further than search.
type BoundsComputer interface {
	ComputeBounds(n *Node, search ms3.Box) (ms3.Box, error)
}

// Tree owns a hierarchy of nodes, keeps their post-order IDs dense and
// tracks which node programs need rebuilding after edits.
//
// Structural invariant violations such as cycles or exceeding MaxDepth panic
// unless NoInvariantPanic is set, in which case they are accumulated and
// returned by [Tree.Err] as well as by the offending call.
type Tree struct {
	// MaxDepth is the maximum number of levels of the tree. It bounds the
	// distance stack depth needed on the GPU.
	MaxDepth int
	// NoInvariantPanic makes structural errors return instead of panic.
	NoInvariantPanic bool
	// Bounds computes leaf bounding boxes. If nil leaf bounds are analytic.
	Bounds BoundsComputer
	// SearchVolume bounds shapes without analytic bounds, i.e. those created from GLSL source.
	SearchVolume ms3.Box

	root      *Node
	nodes     []*Node
	accumErrs []error
}

// NewTree returns a tree rooted at root, which must be detached.
func NewTree(root *Node) (*Tree, error) {
	t := &Tree{
		MaxDepth:     glbuild.DefaultMaxStackDepth,
		SearchVolume: ms3.Box{Min: ms3.Vec{X: -64, Y: -64, Z: -64}, Max: ms3.Vec{X: 64, Y: 64, Z: 64}},
	}
	if root == nil {
		return nil, errors.New("nil root")
	} else if root.parent != nil || root.tree != nil {
		return nil, ErrAttached
	} else if h := root.Height(); h > t.MaxDepth {
		return nil, fmt.Errorf("%w: %d levels", ErrTreeTooDeep, h)
	}
	t.root = root
	root.walk(func(n *Node) {
		n.tree = t
		n.needsRebuild = true
	})
	t.renumber()
	return t, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Nodes returns all nodes in post-order, which is also ID order. The returned slice must not be modified.
func (t *Tree) Nodes() []*Node { return t.nodes }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given ID.
func (t *Tree) Node(id int) *Node {
	if id < 0 || id >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Err returns accumulated invariant errors. See [Tree.NoInvariantPanic].
func (t *Tree) Err() error {
	if len(t.accumErrs) == 0 {
		return nil
	}
	return errors.Join(t.accumErrs...)
}

func (t *Tree) invariantErr(err error) error {
	if !t.NoInvariantPanic {
		panic(err.Error())
	}
	t.accumErrs = append(t.accumErrs, err)
	return err
}

func (t *Tree) checkOwned(n *Node) error {
	if n == nil {
		return t.invariantErr(errors.New("nil node"))
	} else if n.tree != t {
		return t.invariantErr(fmt.Errorf("%w: %q", ErrForeignNode, n.name))
	}
	return nil
}

// AddChild appends child to branch's children. child must be detached.
// The programs of branch, its children and child's subtree are marked for rebuild.
func (t *Tree) AddChild(branch, child *Node) error {
	if err := t.checkOwned(branch); err != nil {
		return err
	}
	switch {
	case child == nil:
		return t.invariantErr(errors.New("nil child"))
	case child == branch || child.isAncestorOf(branch):
		return t.invariantErr(fmt.Errorf("adding %q to %q creates a cycle", child.name, branch.name))
	case child.parent != nil || child.tree != nil:
		return t.invariantErr(fmt.Errorf("%w: %q", ErrAttached, child.name))
	case branch.sdf != nil:
		return t.invariantErr(fmt.Errorf("%w: %q", ErrNotBranch, branch.name))
	}
	if levels := branch.Depth() + child.Height(); levels > t.MaxDepth {
		return t.invariantErr(fmt.Errorf("%w: adding %q results in %d levels, max %d", ErrTreeTooDeep, child.name, levels, t.MaxDepth))
	}
	branch.children = append(branch.children, child)
	child.parent = branch
	child.walk(func(n *Node) {
		n.tree = t
		n.needsRebuild = true // Ancestor input deformations changed.
	})
	markDirty(ComputeDirtySet(nil, branch, ChangeTopology))
	child.invalidateTransform()
	branch.invalidateFinalBounds()
	t.renumber()
	return nil
}

// RemoveChild detaches child and its subtree from branch. The remaining
// children of branch and branch itself are marked for rebuild. The detached
// subtree may be added back to any tree.
func (t *Tree) RemoveChild(branch, child *Node) error {
	if err := t.checkOwned(branch); err != nil {
		return err
	}
	idx := -1
	for i, c := range branch.children {
		if c == child {
			idx = i
			break
		}
	}
	if idx < 0 {
		return t.invariantErr(ErrNotChild)
	}
	branch.children = append(branch.children[:idx], branch.children[idx+1:]...)
	child.parent = nil
	child.walk(func(n *Node) {
		n.tree = nil
		n.id = -1
		n.needsRebuild = true
	})
	markDirty(ComputeDirtySet(nil, branch, ChangeTopology))
	child.invalidateTransform()
	branch.invalidateFinalBounds()
	t.renumber()
	return nil
}

// SetSDF sets or clears (with nil f) the SDF of a leaf.
func (t *Tree) SetSDF(n *Node, f *Function) error {
	if err := t.checkOwned(n); err != nil {
		return err
	} else if len(n.children) > 0 {
		return t.invariantErr(fmt.Errorf("%w: %q", ErrNotLeaf, n.name))
	} else if f != nil && f.sig != SignatureSDF {
		return fmt.Errorf("%w: %s is not an SDF", ErrSignature, f)
	}
	if f != nil {
		f.acquire()
	}
	if n.sdf != nil {
		n.sdf.release()
	}
	n.sdf = f
	markDirty(ComputeDirtySet(nil, n, ChangeSDF))
	n.invalidateNativeBounds()
	return nil
}

// AddInputDeformation appends an input deformation to n. It warps the sample point
// of n's whole subtree so all of its programs are marked for rebuild.
func (t *Tree) AddInputDeformation(n *Node, f *Function) error {
	if err := t.checkOwned(n); err != nil {
		return err
	} else if f == nil || f.sig != SignatureIDF {
		return fmt.Errorf("%w: want input deformation", ErrSignature)
	}
	f.acquire()
	n.idfs = append(n.idfs, f)
	markDirty(ComputeDirtySet(nil, n, ChangeIDF))
	n.invalidateNativeBounds()
	return nil
}

// AddOutputDeformation appends an output deformation to n.
func (t *Tree) AddOutputDeformation(n *Node, f *Function) error {
	if err := t.checkOwned(n); err != nil {
		return err
	} else if f == nil || f.sig != SignatureODF {
		return fmt.Errorf("%w: want output deformation", ErrSignature)
	}
	f.acquire()
	n.odfs = append(n.odfs, f)
	markDirty(ComputeDirtySet(nil, n, ChangeODF))
	n.invalidateNativeBounds()
	return nil
}

// RemoveFunction removes the first occurrence of f from n's slots.
func (t *Tree) RemoveFunction(n *Node, f *Function) error {
	if err := t.checkOwned(n); err != nil {
		return err
	} else if f == nil {
		return ErrNotAttached
	}
	switch f.sig {
	case SignatureSDF:
		if n.sdf != f {
			return ErrNotAttached
		}
		return t.SetSDF(n, nil)
	case SignatureIDF:
		if !removeFunc(&n.idfs, f) {
			return ErrNotAttached
		}
		markDirty(ComputeDirtySet(nil, n, ChangeIDF))
	case SignatureODF:
		if !removeFunc(&n.odfs, f) {
			return ErrNotAttached
		}
		markDirty(ComputeDirtySet(nil, n, ChangeODF))
	}
	f.release()
	n.invalidateNativeBounds()
	return nil
}

func removeFunc(slot *[]*Function, f *Function) bool {
	for i, got := range *slot {
		if got == f {
			*slot = append((*slot)[:i], (*slot)[i+1:]...)
			return true
		}
	}
	return false
}

// SetOperator sets the operator n combines its children with.
func (t *Tree) SetOperator(n *Node, op Op) error {
	if err := t.checkOwned(n); err != nil {
		return err
	} else if !op.IsValid() {
		return t.invariantErr(fmt.Errorf("invalid operator %d", op))
	}
	if n.op == op {
		return nil
	}
	n.op = op
	markDirty(ComputeDirtySet(nil, n, ChangeOperator))
	n.invalidateFinalBounds()
	return nil
}

// renumber assigns post-order IDs. Nodes whose ID changes need their program rebuilt
// since IDs are compiled into programs.
func (t *Tree) renumber() {
	t.nodes = t.nodes[:0]
	t.root.walk(func(n *Node) {
		id := len(t.nodes)
		if n.id != id {
			n.id = id
			n.needsRebuild = true
		}
		t.nodes = append(t.nodes, n)
	})
}
