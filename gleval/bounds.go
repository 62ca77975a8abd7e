package gleval

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
)

// ErrEmptyBounds is returned when a bounding box search finds no surface.
var ErrEmptyBounds = errors.New("no surface found in bounds search volume")

// BoundsConfig configures the GPU bounding box search. Orthographic rays are
// cast inwards from each of the 6 faces of Search and the surface points they hit
// are folded into the result box.
type BoundsConfig struct {
	// Search is the volume searched for surface. The result never exceeds it.
	Search ms3.Box
	// Resolution is the number of rays per side of each face.
	Resolution int
	// Dispatches is the number of compute dispatches run. Ray state persists between dispatches.
	Dispatches int
	// StepsPerDispatch is the number of sphere tracing steps a ray takes per dispatch.
	StepsPerDispatch int
	// Threshold is the distance below which a ray is considered to hit the surface.
	Threshold float32
	// InvocX is the compute work group size.
	InvocX int
}

// DefaultBoundsConfig returns a configuration searching the given volume.
func DefaultBoundsConfig(search ms3.Box) BoundsConfig {
	return BoundsConfig{
		Search:           search,
		Resolution:       64,
		Dispatches:       16,
		StepsPerDispatch: 32,
		Threshold:        1e-4 * ms3.Norm(search.Size()),
		InvocX:           64,
	}
}

// Validate checks the configuration for errors.
func (cfg *BoundsConfig) Validate() error {
	size := cfg.Search.Size()
	switch {
	case size.X <= 0 || size.Y <= 0 || size.Z <= 0:
		return fmt.Errorf("bounds search volume must have positive size, got %v", size)
	case cfg.Resolution <= 0:
		return errors.New("bounds resolution must be positive")
	case cfg.Dispatches <= 0 || cfg.StepsPerDispatch <= 0:
		return errors.New("bounds dispatches and steps must be positive")
	case cfg.Threshold <= 0:
		return errors.New("bounds threshold must be positive")
	case cfg.InvocX <= 0:
		return errors.New("bounds compute invocations must be positive")
	}
	hi := cfg.Search.Max
	lo := cfg.Search.Min
	lim := float32(FixedPointMax)
	if hi.X >= lim || hi.Y >= lim || hi.Z >= lim || lo.X <= -lim || lo.Y <= -lim || lo.Z <= -lim {
		return fmt.Errorf("bounds search volume exceeds fixed point range ±%g", lim)
	}
	return nil
}

// NumRays returns the number of rays cast by the search.
func (cfg *BoundsConfig) NumRays() int { return 6 * cfg.Resolution * cfg.Resolution }

// BoundsAccumulator folds surface points into a box using the same fixed point
// min/max representation the GPU search uses.
type BoundsAccumulator struct {
	Min, Max [3]int32
}

// NewBoundsAccumulator returns an empty accumulator.
func NewBoundsAccumulator() BoundsAccumulator {
	return BoundsAccumulator{
		Min: [3]int32{FixedPointPosInf, FixedPointPosInf, FixedPointPosInf},
		Max: [3]int32{FixedPointNegInf, FixedPointNegInf, FixedPointNegInf},
	}
}

// Fold includes p in the accumulated box.
func (acc *BoundsAccumulator) Fold(p ms3.Vec) {
	q := [3]int32{FloatToFixed(p.X), FloatToFixed(p.Y), FloatToFixed(p.Z)}
	for i := range q {
		acc.Min[i] = min(acc.Min[i], q[i])
		acc.Max[i] = max(acc.Max[i], q[i])
	}
}

// Box decodes the accumulated box. It returns [ErrEmptyBounds] if nothing was folded.
func (acc *BoundsAccumulator) Box() (ms3.Box, error) {
	for i := range acc.Min {
		if acc.Min[i] > acc.Max[i] {
			return ms3.Box{}, ErrEmptyBounds
		}
	}
	return ms3.Box{
		Min: ms3.Vec{X: FixedToFloat(acc.Min[0]), Y: FixedToFloat(acc.Min[1]), Z: FixedToFloat(acc.Min[2])},
		Max: ms3.Vec{X: FixedToFloat(acc.Max[0]), Y: FixedToFloat(acc.Max[1]), Z: FixedToFloat(acc.Max[2])},
	}, nil
}

// boundsRayStride is the std430 size of a single BoundsRay.
const boundsRayStride = 2 * 4 * 4
