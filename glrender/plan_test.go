package glrender

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPlanTree returns the tree root(op) -> a, b(union) -> c, d of unit spheres.
func newPlanTree(t *testing.T, op sdfrast.Op) (tree *sdfrast.Tree, nodes map[string]*sdfrast.Node) {
	t.Helper()
	var bld sdfrast.Builder
	root := sdfrast.NewBranch("root", op)
	tree, err := sdfrast.NewTree(root)
	require.NoError(t, err)
	a := sdfrast.NewLeaf("a", bld.NewSphere(1))
	b := sdfrast.NewBranch("b", sdfrast.OpUnion)
	c := sdfrast.NewLeaf("c", bld.NewSphere(1))
	d := sdfrast.NewLeaf("d", bld.NewSphere(1))
	require.NoError(t, tree.AddChild(root, a))
	require.NoError(t, tree.AddChild(root, b))
	require.NoError(t, tree.AddChild(b, c))
	require.NoError(t, tree.AddChild(b, d))
	require.NoError(t, bld.Err())
	return tree, map[string]*sdfrast.Node{"root": root, "a": a, "b": b, "c": c, "d": d}
}

func drawNames(p *Plan) (names []string) {
	for _, cmd := range p.Draws {
		names = append(names, cmd.Node.Name())
	}
	return names
}

func TestPlanPostOrder(t *testing.T) {
	tree, _ := newPlanTree(t, sdfrast.OpUnion)
	p := BuildPlan(tree.Root(), nil, nil)
	assert.Equal(t, []string{"a", "c", "d", "b", "root"}, drawNames(p))
	for i, cmd := range p.Draws {
		assert.Equal(t, i, cmd.ID, "post-order draws follow IDs")
		assert.Zero(t, cmd.CulledSiblings)
	}
	assert.Zero(t, p.CulledObjects)
	assert.Equal(t, 2, p.MaxStackDepth)
}

func TestPlanCulledSiblings(t *testing.T) {
	tree, nodes := newPlanTree(t, sdfrast.OpUnion)
	var bld sdfrast.Builder
	e := sdfrast.NewLeaf("e", bld.NewSphere(1))
	require.NoError(t, tree.AddChild(tree.Root(), e))
	nodes["b"].SetVisible(false)

	p := BuildPlan(tree.Root(), nil, nil)
	assert.Equal(t, []string{"a", "e", "root"}, drawNames(p))
	assert.Equal(t, 3, p.CulledObjects, "hidden branch takes its subtree with it")
	cmdE := p.Draws[1]
	assert.Equal(t, 1, cmdE.VisibleIndex)
	assert.Equal(t, 1, cmdE.CulledSiblings)
	assert.False(t, cmdE.firstSibling())
	assert.False(t, p.Included(nodes["c"]))
	assert.True(t, p.Included(e))

	// Culling the first child makes the next drawn sibling push.
	nodes["a"].SetVisible(false)
	p.Build(tree.Root(), nil, nil)
	assert.Equal(t, []string{"e", "root"}, drawNames(p))
	assert.Equal(t, 0, p.Draws[0].VisibleIndex)
	assert.Equal(t, 2, p.Draws[0].CulledSiblings)
	assert.True(t, p.Draws[0].firstSibling())
}

func TestPlanOperatorSurvival(t *testing.T) {
	tree, nodes := newPlanTree(t, sdfrast.OpSubtraction)
	// Subtracting nothing leaves the minuend.
	nodes["b"].SetVisible(false)
	p := BuildPlan(tree.Root(), nil, nil)
	assert.Equal(t, []string{"a", "root"}, drawNames(p))

	// Without a minuend nothing remains.
	nodes["b"].SetVisible(true)
	nodes["a"].SetVisible(false)
	p.Build(tree.Root(), nil, nil)
	assert.Empty(t, p.Draws)
	assert.Equal(t, tree.Len(), p.CulledObjects)

	require.NoError(t, tree.SetOperator(tree.Root(), sdfrast.OpIntersection))
	nodes["a"].SetVisible(true)
	nodes["d"].SetVisible(false)
	p.Build(tree.Root(), nil, nil)
	assert.Equal(t, []string{"a", "c", "b", "root"}, drawNames(p), "union branch survives losing one child")

	nodes["c"].SetVisible(false)
	p.Build(tree.Root(), nil, nil)
	assert.Empty(t, p.Draws, "intersection with an empty operand is empty")
}

func TestPlanFilters(t *testing.T) {
	tree, nodes := newPlanTree(t, sdfrast.OpUnion)
	var asked []string
	hasProgram := func(n *sdfrast.Node) bool {
		asked = append(asked, n.Name())
		return n != nodes["d"]
	}
	notC := func(n *sdfrast.Node) bool { return n != nodes["c"] }
	p := BuildPlan(tree.Root(), notC, hasProgram)
	assert.Equal(t, []string{"a", "root"}, drawNames(p))
	assert.NotContains(t, asked, "c", "programs are not requested for filtered nodes")
	assert.NotContains(t, asked, "b", "nor for branches left without children")
	assert.Equal(t, 3, p.CulledObjects)
}

func TestPlanFrustumCulling(t *testing.T) {
	tree, nodes := newPlanTree(t, sdfrast.OpUnion)
	nodes["a"].SetPosition(mgl32.Vec3{0, 0, 10})
	nodes["b"].SetPosition(mgl32.Vec3{0, 0, -10})
	cam := NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})
	params := DefaultRenderParams()
	var primary, shadow Plan
	buildPlans(&primary, &shadow, tree, cam.ViewProjection(1), &params, nil)
	assert.Equal(t, []string{"a", "root"}, drawNames(&primary))
	assert.Equal(t, 3, primary.CulledObjects)
	assert.Len(t, shadow.Draws, tree.Len(), "shadow plan is not frustum culled")

	params.DisableCulling = true
	buildPlans(&primary, &shadow, tree, cam.ViewProjection(1), &params, nil)
	assert.Len(t, primary.Draws, tree.Len())
}

func TestPlanCullingAncestorDeformations(t *testing.T) {
	var bld sdfrast.Builder
	root := sdfrast.NewBranch("root", sdfrast.OpUnion)
	tree, err := sdfrast.NewTree(root)
	require.NoError(t, err)
	leaf := sdfrast.NewLeaf("sphere", bld.NewSphere(1))
	require.NoError(t, tree.AddChild(root, leaf))
	require.NoError(t, tree.AddInputDeformation(root, bld.Repeat(ms3.Vec{X: 10})))
	require.NoError(t, bld.Err())

	// Only a repeated copy of the sphere is in view.
	cam := NewCamera(mgl32.Vec3{20, 0, -5}, mgl32.Vec3{20, 0, 0})
	params := DefaultRenderParams()
	var primary, shadow Plan
	buildPlans(&primary, &shadow, tree, cam.ViewProjection(1), &params, nil)
	assert.Equal(t, []string{"sphere", "root"}, drawNames(&primary))
	assert.Zero(t, primary.CulledObjects)

	r, err := NewEmulator(tree, &primary).Trace(ms3.Vec{X: 20, Z: -5}, rayZ, params)
	require.NoError(t, err)
	assert.Equal(t, RayHit, r.Status)
	assert.InDelta(t, 4, r.Traveled, hitTol)
	assert.Equal(t, leaf.ID(), r.ID)

	// Without repetition the sphere is out of view.
	require.NoError(t, tree.RemoveFunction(root, root.InputDeformations()[0]))
	buildPlans(&primary, &shadow, tree, cam.ViewProjection(1), &params, nil)
	assert.Empty(t, primary.Draws)
	assert.Equal(t, 2, primary.CulledObjects)
}

func TestPlanEmpty(t *testing.T) {
	p := BuildPlan(nil, nil, nil)
	assert.Empty(t, p.Draws)
	root := sdfrast.NewBranch("root", sdfrast.OpUnion)
	_, err := sdfrast.NewTree(root)
	require.NoError(t, err)
	p.Build(root, nil, nil)
	assert.Empty(t, p.Draws, "branch without children has no geometry")
	assert.Equal(t, 1, p.CulledObjects)
}

// newSpineTree returns a tree of depth levels where every branch has branching
// children, one of which continues down to the next level. deepFirst places the
// continuing child first among its siblings, otherwise last.
func newSpineTree(t *testing.T, depth, branching int, deepFirst bool) *sdfrast.Tree {
	t.Helper()
	var bld sdfrast.Builder
	ops := [...]sdfrast.Op{sdfrast.OpUnion, sdfrast.OpIntersection, sdfrast.OpSubtraction}
	leaf := func(level, j int) *sdfrast.Node {
		n := sdfrast.NewLeaf(fmt.Sprintf("leaf%d.%d", level, j), bld.NewSphere(1+0.1*float32(j)))
		n.SetPosition(mgl32.Vec3{0.3 * float32(j), 0.2 * float32(level), 0})
		return n
	}
	if depth == 1 {
		tree, err := sdfrast.NewTree(leaf(1, 0))
		require.NoError(t, err)
		return tree
	}
	cur := sdfrast.NewBranch("level1", ops[0])
	tree, err := sdfrast.NewTree(cur)
	require.NoError(t, err)
	deep := branching - 1
	if deepFirst {
		deep = 0
	}
	for level := 2; level <= depth; level++ {
		var next *sdfrast.Node
		for j := 0; j < branching; j++ {
			child := leaf(level, j)
			if j == deep && level < depth {
				next = sdfrast.NewBranch(fmt.Sprintf("level%d", level), ops[level%len(ops)])
				child = next
			}
			require.NoError(t, tree.AddChild(cur, child))
		}
		if next == nil {
			break
		}
		cur = next
	}
	require.NoError(t, bld.Err())
	return tree
}

func TestPlanStackDiscipline(t *testing.T) {
	samples := []ms3.Vec{{}, {X: 0.5, Y: 1}, {X: -2, Y: 3, Z: 1}, {Z: 5}}
	for _, depth := range []int{1, 2, 5, 16} {
		for _, branching := range []int{1, 2, 3} {
			for _, deepFirst := range []bool{false, true} {
				name := fmt.Sprintf("D%d_B%d_first%v", depth, branching, deepFirst)
				t.Run(name, func(t *testing.T) {
					tree := newSpineTree(t, depth, branching, deepFirst)
					require.Equal(t, depth, tree.Root().Height())
					plan := BuildPlan(tree.Root(), nil, nil)
					require.Len(t, plan.Draws, tree.Len())
					assert.LessOrEqual(t, plan.MaxStackDepth, depth)

					em := NewEmulator(tree, plan)
					for _, p := range samples {
						d, id, ok, err := em.Sample(p)
						require.NoError(t, err)
						require.True(t, ok)
						assert.Zero(t, em.stack.Len(), "walk leaves nothing on the stack")
						want, leaf := tree.EvaluateDistance(tree.Root(), p)
						assert.InDelta(t, want, d, 1e-4)
						assert.Equal(t, leaf.ID(), id)
					}
					assert.LessOrEqual(t, em.stack.HighWater(), depth)
				})
			}
		}
	}
}
