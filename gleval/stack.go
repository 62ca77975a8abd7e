package gleval

import "errors"

// ErrStackOverflow is returned when pushing onto a full [DistanceStack].
var ErrStackOverflow = errors.New("distance stack overflow")

// DistanceStack is the CPU model of the per-pixel stack of (distance, node ID)
// pairs node programs use to pass partial results to their parents.
type DistanceStack struct {
	dist []float32
	id   []int32
	high int
}

// NewDistanceStack returns a stack with room for maxDepth entries.
func NewDistanceStack(maxDepth int) *DistanceStack {
	if maxDepth <= 0 {
		panic("invalid distance stack depth")
	}
	return &DistanceStack{
		dist: make([]float32, 0, maxDepth),
		id:   make([]int32, 0, maxDepth),
	}
}

// Push adds an entry on top of the stack. Pushing on a full stack leaves it unmodified.
func (s *DistanceStack) Push(d float32, id int32) error {
	if len(s.dist) == cap(s.dist) {
		return ErrStackOverflow
	}
	s.dist = append(s.dist, d)
	s.id = append(s.id, id)
	s.high = max(s.high, len(s.dist))
	return nil
}

// Pop removes and returns the top entry. ok is false if the stack is empty.
func (s *DistanceStack) Pop() (d float32, id int32, ok bool) {
	n := len(s.dist) - 1
	if n < 0 {
		return 0, -1, false
	}
	d, id = s.dist[n], s.id[n]
	s.dist = s.dist[:n]
	s.id = s.id[:n]
	return d, id, true
}

// Peek returns the top entry without removing it.
func (s *DistanceStack) Peek() (d float32, id int32, ok bool) {
	n := len(s.dist) - 1
	if n < 0 {
		return 0, -1, false
	}
	return s.dist[n], s.id[n], true
}

// Len returns the number of entries in the stack.
func (s *DistanceStack) Len() int { return len(s.dist) }

// Cap returns the maximum number of entries the stack can hold.
func (s *DistanceStack) Cap() int { return cap(s.dist) }

// HighWater returns the largest length the stack reached since creation or the last call to [DistanceStack.ResetHighWater].
func (s *DistanceStack) HighWater() int { return s.high }

// ResetHighWater sets the high water mark to the current length.
func (s *DistanceStack) ResetHighWater() { s.high = len(s.dist) }

// Clear empties the stack.
func (s *DistanceStack) Clear() {
	s.dist = s.dist[:0]
	s.id = s.id[:0]
}

// StackBufferStride returns the size in bytes of a single pixel's stack in the
// GPU stack buffer for the given depth. Layout is std430:
//
//	struct DistanceStack { int size; float dist[depth]; int id[depth]; };
func StackBufferStride(depth int) int {
	return 4 * (1 + 2*depth)
}
