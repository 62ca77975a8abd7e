package glrender

import (
	"errors"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast"
	"github.com/soypat/sdfrast/glbuild"
	"github.com/soypat/sdfrast/gleval"
)

// emptyStackDistance is the distance popped from an empty stack. Matches STACK_EMPTY_DISTANCE.
const emptyStackDistance = 1e30

// RayStatus is the state of a traced ray.
type RayStatus uint8

const (
	RayTracing RayStatus = iota
	RayHit
	RayMiss
)

func (s RayStatus) String() string {
	switch s {
	case RayTracing:
		return "tracing"
	case RayHit:
		return "hit"
	case RayMiss:
		return "miss"
	}
	return "unknown"
}

// RayResult is the outcome of tracing a single ray.
type RayResult struct {
	Status RayStatus
	// Traveled is the distance along the ray to the hit point, or traveled so far if not a hit.
	Traveled float32
	// LastDistance is the combined scene distance sampled at the last iteration.
	LastDistance float32
	// ID is the ID of the node owning the hit surface, or -1.
	ID int
	// Iterations is the number of iterations the ray was traced for.
	Iterations int
}

// Emulator executes plans on the CPU with the same stack protocol node programs
// follow on the GPU, one sample point at a time.
type Emulator struct {
	tree  *sdfrast.Tree
	plan  *Plan
	stack *gleval.DistanceStack
	pos   [1]ms3.Vec
	dist  [1]float32
}

// NewEmulator returns an emulator of plan over tree. The stack holds up to tree.MaxDepth entries.
func NewEmulator(tree *sdfrast.Tree, plan *Plan) *Emulator {
	return &Emulator{
		tree:  tree,
		plan:  plan,
		stack: gleval.NewDistanceStack(max(1, tree.MaxDepth)),
	}
}

// Sample runs every draw of the plan at p and returns the combined distance and node ID
// left on the stack. ok is false if the plan draws nothing.
func (e *Emulator) Sample(p ms3.Vec) (d float32, id int, ok bool, err error) {
	e.stack.Clear()
	for i := range e.plan.Draws {
		err = e.draw(&e.plan.Draws[i], p)
		if err != nil {
			return 0, -1, false, err
		}
	}
	d32, id32, ok := e.stack.Pop()
	return d32, int(id32), ok, nil
}

func (e *Emulator) draw(cmd *DrawCmd, p ms3.Vec) error {
	n := cmd.Node
	e.pos[0] = p
	var d float32
	var id int32
	if n.IsLeaf() {
		err := e.tree.LeafDistance(n, e.pos[:], e.dist[:])
		if err != nil {
			return err
		}
		d, id = e.dist[0], int32(cmd.ID)
	} else {
		var ok bool
		d, id, ok = e.stack.Pop()
		if !ok {
			d = emptyStackDistance
		}
		e.dist[0] = d
		e.tree.BranchDistance(n, e.pos[:], e.dist[:])
		d = e.dist[0]
	}
	return combineOnStack(e.stack, cmd, d, id)
}

// combineOnStack is the epilogue of node programs: the first drawn sibling pushes its
// result, later siblings fold theirs into it with the parent's operator. The root unions
// with any leftover entry.
func combineOnStack(stack *gleval.DistanceStack, cmd *DrawCmd, d float32, id int32) error {
	n := cmd.Node
	parent := n.Parent()
	switch {
	case parent == nil:
		if prevD, prevID, ok := stack.Pop(); ok {
			d, id = glbuild.Combine(sdfrast.OpUnion, prevD, prevID, d, id)
		}
	case !cmd.firstSibling():
		prevD, prevID, ok := stack.Pop()
		if !ok {
			prevD = emptyStackDistance
		}
		d, id = glbuild.Combine(parent.Operator(), prevD, prevID, d, id)
	}
	return stack.Push(d, id)
}

// advance mirrors the ray advance pass. d and id are the values popped from
// the stack, ok false if the stack was empty.
func advance(r *RayResult, d float32, id int, ok bool, threshold, maxTravel float32) {
	if r.Status != RayTracing {
		return
	}
	if !ok {
		d, id = maxTravel, -1
	}
	r.LastDistance = d
	r.Iterations++
	if d < threshold && id >= 0 {
		r.Status = RayHit
		r.ID = id
		return
	}
	r.Traveled += d
	if r.Traveled >= maxTravel {
		r.Status = RayMiss
	}
}

// Trace sphere traces the ray from origin along unit direction dir for params.Iterations
// iterations.
func (e *Emulator) Trace(origin, dir ms3.Vec, params RenderParams) (RayResult, error) {
	r := RayResult{ID: -1}
	err := params.Validate()
	if err != nil {
		return r, err
	}
	for i := 0; i < params.Iterations && r.Status == RayTracing; i++ {
		p := ms3.Add(origin, ms3.Scale(r.Traveled, dir))
		d, id, ok, err := e.Sample(p)
		if err != nil {
			return r, err
		}
		advance(&r, d, id, ok, params.Threshold, params.MaxDistance)
	}
	return r, nil
}

// Shadow traces a shadow ray from the primary hit point of a ray with direction
// viewDir towards light and returns the light's visibility in [0, 1].
func (e *Emulator) Shadow(hit, viewDir ms3.Vec, light Light, params RenderParams) (float32, error) {
	err := params.Validate()
	if err != nil {
		return 0, err
	}
	offset := params.shadowOffset()
	origin := ms3.Sub(hit, ms3.Scale(offset, viewDir))
	dir, maxTravel := shadowRay(origin, light, params.MaxDistance)
	ss := gleval.NewSoftShadow(light.shadowSharpness(&params))
	var t float32
	for i := 0; i < params.ShadowIterations; i++ {
		d, _, ok, err := e.Sample(ms3.Add(origin, ms3.Scale(t, dir)))
		if err != nil {
			return 0, err
		}
		if !ok {
			d = maxTravel
		}
		if t > offset {
			if d < params.Threshold {
				ss.Occlude()
				break
			}
			ss.Sample(d, t)
		}
		t += max(d, params.Threshold)
		if t >= maxTravel {
			break
		}
	}
	return ss.Factor(), nil
}

// shadowRay returns the unit direction from origin to light and the distance to travel.
func shadowRay(origin ms3.Vec, light Light, maxDistance float32) (dir ms3.Vec, maxTravel float32) {
	if light.Point {
		toLight := ms3.Sub(vec(light.Position), origin)
		maxTravel = ms3.Norm(toLight)
		if maxTravel == 0 {
			return ms3.Vec{Z: 1}, 0
		}
		return ms3.Scale(1/maxTravel, toLight), maxTravel
	}
	return ms3.Scale(-1, ms3.Unit(vec(light.Direction))), maxDistance
}

// EmulateRay builds a plan of the whole tree without frustum culling and traces a single ray.
func EmulateRay(tree *sdfrast.Tree, origin, dir ms3.Vec, params RenderParams) (RayResult, error) {
	if tree == nil {
		return RayResult{}, errors.New("nil tree")
	}
	plan := BuildPlan(tree.Root(), nil, nil)
	return NewEmulator(tree, plan).Trace(origin, dir, params)
}
