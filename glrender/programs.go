package glrender

import (
	"github.com/soypat/sdfrast"
)

// programKey holds the node properties compiled into a node program as constants.
// A program built for a different key is wrong for the node, not just outdated.
type programKey struct {
	id         int
	childIndex int
	hasParent  bool
	parentOp   sdfrast.Op
}

func makeProgramKey(n *sdfrast.Node) programKey {
	key := programKey{id: n.ID(), childIndex: n.ChildIndex()}
	if parent := n.Parent(); parent != nil {
		key.hasParent = true
		key.parentOp = parent.Operator()
	}
	return key
}

// keepOnFailure reports whether a node's previous program can keep being drawn after
// a failed rebuild. Previous programs with outdated IDs or sibling bookkeeping would
// corrupt the distance stack so the node is culled instead.
func keepOnFailure(prev programKey, prevOK bool, cur programKey) bool {
	return prevOK && prev == cur
}
