package sdfrast

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTree builds:
//
//	root(union)
//	├── a(sphere)
//	└── b(union)
//	    ├── c(sphere)
//	    └── d(box)
func newTestTree(t *testing.T) (tree *Tree, root, a, b, c, d *Node) {
	t.Helper()
	var bld Builder
	root = NewBranch("root", OpUnion)
	tree, err := NewTree(root)
	require.NoError(t, err)
	a = NewLeaf("a", bld.NewSphere(1))
	b = NewBranch("b", OpUnion)
	c = NewLeaf("c", bld.NewSphere(0.5))
	d = NewLeaf("d", bld.NewBox(1, 1, 1, 0))
	require.NoError(t, tree.AddChild(root, a))
	require.NoError(t, tree.AddChild(root, b))
	require.NoError(t, tree.AddChild(b, c))
	require.NoError(t, tree.AddChild(b, d))
	return tree, root, a, b, c, d
}

func clearRebuild(tree *Tree) {
	for _, n := range tree.Nodes() {
		n.ClearRebuild()
	}
}

func rebuildNames(tree *Tree) (names []string) {
	for _, n := range tree.Nodes() {
		if n.NeedsRebuild() {
			names = append(names, n.Name())
		}
	}
	return names
}

func TestTreePostOrderIDs(t *testing.T) {
	tree, root, a, b, c, d := newTestTree(t)
	assert.Equal(t, 5, tree.Len())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, []int{a.ID(), c.ID(), d.ID(), b.ID(), root.ID()})
	for id, n := range tree.Nodes() {
		assert.Equal(t, id, n.ID())
		assert.Same(t, n, tree.Node(id))
		for _, child := range n.Children() {
			assert.Less(t, child.ID(), n.ID(), "children precede parent")
		}
	}

	require.NoError(t, tree.RemoveChild(root, a))
	assert.Equal(t, -1, a.ID())
	assert.Nil(t, a.Tree())
	assert.Equal(t, 4, tree.Len())
	assert.Equal(t, []int{0, 1, 2, 3}, []int{c.ID(), d.ID(), b.ID(), root.ID()})
	assert.Nil(t, tree.Node(4))
	assert.Nil(t, tree.Node(-1))

	// Detached subtrees can be reattached.
	require.NoError(t, tree.AddChild(b, a))
	assert.Equal(t, 2, a.ID())
	assert.Equal(t, 2, a.ChildIndex())
	assert.Equal(t, 3, a.Depth())
}

func TestDirtySet(t *testing.T) {
	tree, root, a, b, c, d := newTestTree(t)
	var bld Builder

	clearRebuild(tree)
	require.NoError(t, tree.SetSDF(c, bld.NewSphere(2)))
	assert.Equal(t, []string{"c"}, rebuildNames(tree))

	clearRebuild(tree)
	require.NoError(t, tree.AddOutputDeformation(a, bld.Offset(0.1)))
	assert.Equal(t, []string{"a"}, rebuildNames(tree))

	clearRebuild(tree)
	require.NoError(t, tree.AddInputDeformation(b, bld.Twist(0.1)))
	assert.Equal(t, []string{"c", "d", "b"}, rebuildNames(tree))

	clearRebuild(tree)
	require.NoError(t, tree.SetOperator(b, OpSubtraction))
	assert.Equal(t, []string{"c", "d", "b"}, rebuildNames(tree))

	clearRebuild(tree)
	require.NoError(t, tree.SetOperator(b, OpSubtraction))
	assert.Empty(t, rebuildNames(tree), "setting same operator")

	clearRebuild(tree)
	c.SetPosition(mgl32.Vec3{1, 2, 3})
	c.SetScale(2)
	root.SetOrientation(mgl32.QuatRotate(1, mgl32.Vec3{0, 0, 1}))
	assert.Empty(t, rebuildNames(tree), "transforms are program inputs")

	clearRebuild(tree)
	e := NewLeaf("e", bld.NewSphere(1))
	require.NoError(t, tree.AddChild(b, e))
	got := rebuildNames(tree)
	assert.Subset(t, got, []string{"c", "d", "e", "b"})
	assert.NotContains(t, got, "a")

	assert.ElementsMatch(t, []*Node{b, c, d, e}, ComputeDirtySet(nil, b, ChangeOperator))
	assert.ElementsMatch(t, []*Node{b, c, d, e}, ComputeDirtySet(nil, b, ChangeIDF))
	assert.Equal(t, []*Node{c}, ComputeDirtySet(nil, c, ChangeODF))
	assert.Empty(t, ComputeDirtySet(nil, b, ChangeTransform))
}

func TestTreeMaxDepth(t *testing.T) {
	root := NewNode("root")
	tree, err := NewTree(root)
	require.NoError(t, err)
	tree.NoInvariantPanic = true
	parent := root
	for i := 1; i < tree.MaxDepth; i++ {
		n := NewNode("level")
		require.NoError(t, tree.AddChild(parent, n))
		parent = n
	}
	assert.Equal(t, tree.MaxDepth, root.Height())
	err = tree.AddChild(parent, NewNode("overflow"))
	assert.ErrorIs(t, err, ErrTreeTooDeep)
	assert.ErrorIs(t, tree.Err(), ErrTreeTooDeep)
	assert.Equal(t, tree.MaxDepth, tree.Len())

	tree.NoInvariantPanic = false
	assert.Panics(t, func() {
		tree.AddChild(parent, NewNode("overflow"))
	})
}

func TestTreeInvariants(t *testing.T) {
	tree, root, a, b, c, _ := newTestTree(t)
	tree.NoInvariantPanic = true
	var bld Builder

	assert.Error(t, tree.AddChild(c, root), "cycle")
	assert.ErrorIs(t, tree.AddChild(root, c), ErrAttached)
	assert.ErrorIs(t, tree.AddChild(a, NewNode("x")), ErrNotBranch)
	assert.ErrorIs(t, tree.SetSDF(b, bld.NewSphere(1)), ErrNotLeaf)
	assert.ErrorIs(t, tree.RemoveChild(b, a), ErrNotChild)
	assert.ErrorIs(t, tree.SetSDF(NewNode("foreign"), bld.NewSphere(1)), ErrForeignNode)
	assert.Error(t, tree.Err())

	// Signature errors are not invariant violations.
	assert.ErrorIs(t, tree.SetSDF(a, bld.Offset(1)), ErrSignature)
	assert.ErrorIs(t, tree.AddInputDeformation(a, bld.NewSphere(1)), ErrSignature)
	assert.ErrorIs(t, tree.AddOutputDeformation(a, bld.Twist(1)), ErrSignature)
	assert.ErrorIs(t, tree.RemoveFunction(a, bld.Offset(1)), ErrNotAttached)

	_, err := NewTree(a)
	assert.ErrorIs(t, err, ErrAttached)

	tree.NoInvariantPanic = false
	assert.Panics(t, func() { tree.AddChild(c, root) })
}

func TestFunctionRefs(t *testing.T) {
	var bld Builder
	shared := bld.NewSphere(1)
	offset := bld.Offset(0.5)
	root := NewBranch("root", OpUnion)
	tree, err := NewTree(root)
	require.NoError(t, err)
	a, b := NewLeaf("a", shared), NewLeaf("b", shared)
	require.NoError(t, tree.AddChild(root, a))
	require.NoError(t, tree.AddChild(root, b))
	require.NoError(t, tree.AddOutputDeformation(a, offset))
	require.NoError(t, tree.AddOutputDeformation(b, offset))
	assert.Equal(t, 2, shared.Refs())
	assert.Equal(t, 2, offset.Refs())

	require.NoError(t, tree.RemoveFunction(a, shared))
	assert.Nil(t, a.SDF())
	assert.Equal(t, 1, shared.Refs())
	require.NoError(t, tree.RemoveFunction(b, offset))
	assert.Equal(t, 1, offset.Refs())
	assert.Empty(t, b.OutputDeformations())
	assert.Len(t, a.OutputDeformations(), 1)
}

func TestBuilderErrors(t *testing.T) {
	bld := Builder{NoDimensionPanic: true}
	bld.NewSphere(-1)
	bld.NewBox(1, 1, 1, 2)
	bld.NewTorus(1, 1)
	bld.NewCylinder(1, 1, 5)
	bld.NewPlane(ms3.Vec{}, 0)
	bld.Repeat(ms3.Vec{})
	bld.Symmetry(false, false, false)
	bld.Shell(0)
	err := bld.Err()
	require.Error(t, err)

	var strict Builder
	assert.Panics(t, func() { strict.NewSphere(0) })
	assert.NoError(t, strict.Err())
}
