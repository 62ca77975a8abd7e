// Package sdfrast models scenes as trees of signed distance function nodes
// for rendering with a multi-pass GPU sphere tracer. Leaves hold a shape's
// distance function, branches fold their children with union, intersection
// or subtraction and any node may deform its input points or output distances.
package sdfrast

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/sdfrast/glbuild"
)

// Op is the operator a branch uses to combine its children.
type Op = glbuild.CombineOp

const (
	OpIntersection = glbuild.OpIntersection
	OpUnion        = glbuild.OpUnion
	OpSubtraction  = glbuild.OpSubtraction
)

const (
	SignatureSDF = glbuild.SignatureSDF
	SignatureIDF = glbuild.SignatureIDF
	SignatureODF = glbuild.SignatureODF
)

const (
	largenum = 1e20
	// epstol is used to check for badly conditioned denominators
	// such as lengths used for normalization or scale factors.
	epstol = 6e-7
	// NormalStep is the central difference step used by [Tree.Normal].
	NormalStep = 1e-3
)

var (
	// ErrTreeTooDeep is returned when an operation would make the tree deeper than [Tree.MaxDepth] levels.
	ErrTreeTooDeep = errors.New("tree exceeds maximum depth")
	// ErrNotLeaf is returned when setting an SDF on a node with children.
	ErrNotLeaf = errors.New("node has children")
	// ErrNotBranch is returned when adding children to a node with an SDF.
	ErrNotBranch = errors.New("node has an SDF")
	// ErrNotChild is returned when removing a node that is not a child of the branch.
	ErrNotChild = errors.New("node is not a child of branch")
	// ErrAttached is returned when adding a node that already has a parent or is a tree root.
	ErrAttached = errors.New("node already attached")
	// ErrForeignNode is returned when operating on a node that does not belong to the tree.
	ErrForeignNode = errors.New("node does not belong to tree")
	// ErrSignature is returned when attaching a function in a slot of a different signature.
	ErrSignature = errors.New("function signature mismatch")
	// ErrNotAttached is returned when removing a function a node does not hold.
	ErrNotAttached = errors.New("function not attached to node")
	// ErrNoSDF is returned when generating a program for a leaf without SDF.
	ErrNoSDF = errors.New("leaf has no SDF")
)

// Builder creates the built-in geometry functions.
// Provides error handling strategies with panics or error accumulation during function creation.
type Builder struct {
	NoDimensionPanic bool
	accumErrs        []error
}

func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

func (bld *Builder) shapeErrorf(msg string, args ...any) {
	if !bld.NoDimensionPanic {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

func minf(a, b float32) float32 {
	return math32.Min(a, b)
}

func maxf(a, b float32) float32 {
	return math32.Max(a, b)
}

func absf(a float32) float32 {
	return math32.Abs(a)
}

func hypotf(a, b float32) float32 {
	return math32.Hypot(a, b)
}

func clampf(v, Min, Max float32) float32 {
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}
