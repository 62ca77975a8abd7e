package sdfrast

// ChangeKind is the kind of edit made to a node.
type ChangeKind uint8

const (
	// ChangeSDF is a change of a leaf's SDF.
	ChangeSDF ChangeKind = iota
	// ChangeIDF is a change of a node's input deformations.
	ChangeIDF
	// ChangeODF is a change of a node's output deformations.
	ChangeODF
	// ChangeOperator is a change of a branch's combination operator.
	ChangeOperator
	// ChangeTopology is a change of a branch's children.
	ChangeTopology
	// ChangeTransform is a change of a node's position, orientation or scale.
	// Transforms are program inputs so they never require rebuilding.
	ChangeTransform
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSDF:
		return "sdf"
	case ChangeIDF:
		return "idf"
	case ChangeODF:
		return "odf"
	case ChangeOperator:
		return "operator"
	case ChangeTopology:
		return "topology"
	case ChangeTransform:
		return "transform"
	}
	return "unknown"
}

// ComputeDirtySet appends to dst the nodes whose program must be rebuilt after
// an edit of the given kind is made to n, and returns the result.
//   - SDF and output deformation edits only affect n.
//   - Input deformation edits affect n and all of its descendants since their programs inline n's deformations.
//   - Operator and topology edits affect n and its direct children since children
//     programs encode the parent operator and their sibling index.
func ComputeDirtySet(dst []*Node, n *Node, kind ChangeKind) []*Node {
	switch kind {
	case ChangeSDF, ChangeODF:
		dst = append(dst, n)
	case ChangeIDF:
		n.walk(func(desc *Node) { dst = append(dst, desc) })
	case ChangeOperator, ChangeTopology:
		dst = append(dst, n)
		dst = append(dst, n.children...)
	}
	return dst
}

func markDirty(nodes []*Node) {
	for _, n := range nodes {
		n.needsRebuild = true
	}
}
