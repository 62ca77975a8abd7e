package glbuild

import "strconv"

// CombineOp is the operator a branch node uses to fold the distances of its children.
type CombineOp uint8

const (
	OpIntersection CombineOp = iota
	OpUnion
	OpSubtraction
)

func (op CombineOp) String() string {
	switch op {
	case OpIntersection:
		return "intersection"
	case OpUnion:
		return "union"
	case OpSubtraction:
		return "subtraction"
	}
	return "CombineOp(" + strconv.Itoa(int(op)) + ")"
}

// IsValid reports whether op is one of the defined operators.
func (op CombineOp) IsValid() bool { return op <= OpSubtraction }

// AppendFunctionName appends the name of the GLSL combination function of op.
func (op CombineOp) AppendFunctionName(b []byte) []byte {
	switch op {
	case OpIntersection:
		return append(b, "sdfIntersection"...)
	case OpSubtraction:
		return append(b, "sdfSubtraction"...)
	default:
		return append(b, "sdfUnion"...)
	}
}

// Prunable reports whether the operand at index i may be left out of
// the combination without growing the combined shape. Union operands are
// all prunable, intersection operands never are and subtraction may drop any
// operand except the first.
func (op CombineOp) Prunable(i int) bool {
	switch op {
	case OpUnion:
		return true
	case OpSubtraction:
		return i > 0
	}
	return false
}

// Combine folds operand b into accumulated operand a. Each operand carries a
// tag identifying the leaf that produced its distance. Ties keep a.
func Combine[T any](op CombineOp, a float32, aTag T, b float32, bTag T) (float32, T) {
	switch op {
	case OpIntersection:
		if b > a {
			return b, bTag
		}
	case OpSubtraction:
		if -b > a {
			return -b, bTag
		}
	default:
		if b < a {
			return b, bTag
		}
	}
	return a, aTag
}

// Survives reports whether a combination with operator op produces geometry
// when included reports which of its operands produce geometry.
func (op CombineOp) Survives(included []bool) bool {
	some := false
	for i, ok := range included {
		if ok {
			some = true
		} else if !op.Prunable(i) {
			return false
		}
	}
	return some
}
