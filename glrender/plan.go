package glrender

import (
	"github.com/soypat/sdfrast"
	"github.com/soypat/sdfrast/gleval"
)

// DrawCmd is a single node program draw of a rasterization iteration.
type DrawCmd struct {
	Node *sdfrast.Node
	// ID is the node's ID at the time the plan was built.
	ID int
	// VisibleIndex is the node's index among its drawn siblings.
	VisibleIndex int
	// CulledSiblings is the number of siblings preceding the node that are not drawn.
	CulledSiblings int
}

// NodeFilter reports whether a node passes a drawability condition.
type NodeFilter func(n *sdfrast.Node) bool

// Plan is the ordered list of node draws of one rasterization iteration. It
// is built once per frame and replayed every iteration.
//
// A node is drawn when it is visible, passes the plan's filters and produces geometry
// under the operator rules of [sdfrast.Op.Survives]: a leaf must hold an SDF and a
// branch keeps its operator's meaning with only its drawn children. Nodes that are not
// drawn take their whole subtree with them, adding its size to CulledObjects.
type Plan struct {
	// Draws are in post-order: children precede their parent and siblings keep their order.
	Draws []DrawCmd
	// CulledObjects is the number of nodes not drawn.
	CulledObjects int
	// MaxStackDepth is the largest per-pixel stack size reached while drawing.
	MaxStackDepth int

	included []bool
}

// BuildPlan returns the plan of the tree rooted at root. visible is typically a frustum test
// and hasProgram reports whether the node's program is usable. Nil filters accept every node.
func BuildPlan(root *sdfrast.Node, visible, hasProgram NodeFilter) *Plan {
	var p Plan
	p.Build(root, visible, hasProgram)
	return &p
}

// Build rebuilds p reusing its memory. See [BuildPlan].
func (p *Plan) Build(root *sdfrast.Node, visible, hasProgram NodeFilter) {
	p.Draws = p.Draws[:0]
	p.CulledObjects = 0
	p.MaxStackDepth = 0
	if root == nil {
		return
	}
	p.included = p.included[:0]
	for i := 0; i < root.ID()+1; i++ {
		p.included = append(p.included, false)
	}
	if !p.include(root, visible, hasProgram) {
		p.CulledObjects = root.Size()
		return
	}
	p.emit(root, 0, 0)
	p.MaxStackDepth = simulateStackDepth(p.Draws)
}

// Included reports whether n is drawn by the plan.
func (p *Plan) Included(n *sdfrast.Node) bool {
	id := n.ID()
	return id >= 0 && id < len(p.included) && p.included[id]
}

func (p *Plan) include(n *sdfrast.Node, visible, hasProgram NodeFilter) bool {
	ok := n.Visible() && (visible == nil || visible(n))
	if ok && n.IsLeaf() {
		ok = n.SDF() != nil
	} else if ok {
		var buf [16]bool
		children := buf[:0]
		for _, c := range n.Children() {
			children = append(children, p.include(c, visible, hasProgram))
		}
		ok = n.Operator().Survives(children)
	}
	// Programs are only requested for nodes that would otherwise be drawn.
	ok = ok && (hasProgram == nil || hasProgram(n))
	p.included[n.ID()] = ok
	return ok
}

func (p *Plan) emit(n *sdfrast.Node, visibleIndex, culledSiblings int) {
	drawn, culled := 0, 0
	for _, c := range n.Children() {
		if !p.Included(c) {
			culled++
			p.CulledObjects += c.Size()
			continue
		}
		p.emit(c, drawn, culled)
		drawn++
	}
	p.Draws = append(p.Draws, DrawCmd{
		Node:           n,
		ID:             n.ID(),
		VisibleIndex:   visibleIndex,
		CulledSiblings: culledSiblings,
	})
}

// firstSibling is the test node programs run to decide whether to push their
// result or fold it into the running result of their preceding siblings.
func (cmd *DrawCmd) firstSibling() bool {
	return cmd.Node.ChildIndex()-cmd.CulledSiblings == 0
}

// simulateStackDepth replays the stack operations of draws and returns the largest stack size.
func simulateStackDepth(draws []DrawCmd) int {
	stack := gleval.NewDistanceStack(len(draws) + 1)
	for i := range draws {
		cmd := &draws[i]
		var d float32
		var id int32
		if !cmd.Node.IsLeaf() {
			d, id, _ = stack.Pop()
		}
		combineOnStack(stack, cmd, d, id)
	}
	return stack.HighWater()
}
