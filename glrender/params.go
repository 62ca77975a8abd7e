package glrender

import (
	"errors"
	"fmt"
)

// MaxLights is the maximum number of lights shaded per frame.
const MaxLights = 8

// RenderParams is a snapshot of the per-frame rendering parameters.
// It is read once at the start of a frame and not retained.
type RenderParams struct {
	// Iterations is the number of primary sphere tracing iterations. Every iteration
	// draws all drawable nodes once and advances every unresolved ray.
	Iterations int `toml:"iterations"`
	// ShadowIterations is the number of shadow tracing iterations per shadow casting light.
	ShadowIterations int `toml:"shadow_iterations"`
	// Threshold is the distance below which a ray is considered to hit a surface.
	Threshold float32 `toml:"threshold"`
	// MaxDistance is the distance after which primary rays and directional light shadow rays miss.
	MaxDistance float32 `toml:"max_distance"`
	// ShadowSharpness scales the soft shadow penumbra. Smaller values give harder shadows.
	ShadowSharpness float32 `toml:"shadow_sharpness"`
	// Ambient is the light received by surfaces regardless of lights.
	Ambient float32 `toml:"ambient"`
	// Exposure scales colors before tone mapping.
	Exposure float32 `toml:"exposure"`
	// Gamma is the display gamma colors are encoded for.
	Gamma float32 `toml:"gamma"`
	// Background is the linear RGB color of pixels whose ray misses.
	Background [3]float32 `toml:"background"`
	// DisableCulling draws every visible node regardless of the camera frustum.
	DisableCulling bool `toml:"disable_culling"`
}

// DefaultRenderParams returns parameters suitable for scenes a few tens of units across.
func DefaultRenderParams() RenderParams {
	return RenderParams{
		Iterations:       96,
		ShadowIterations: 48,
		Threshold:        1e-3,
		MaxDistance:      200,
		ShadowSharpness:  0.05,
		Ambient:          0.08,
		Exposure:         1,
		Gamma:            2.2,
		Background:       [3]float32{0.1, 0.1, 0.12},
	}
}

// Validate checks the parameters for errors.
func (p *RenderParams) Validate() error {
	switch {
	case p.Iterations <= 0:
		return errors.New("iterations must be positive")
	case p.ShadowIterations < 0:
		return errors.New("negative shadow iterations")
	case !(p.Threshold > 0):
		return errors.New("threshold must be positive")
	case !(p.MaxDistance > p.Threshold):
		return fmt.Errorf("max distance %g must exceed threshold %g", p.MaxDistance, p.Threshold)
	case !(p.ShadowSharpness > 0):
		return errors.New("shadow sharpness must be positive")
	case p.Ambient < 0 || p.Exposure <= 0:
		return errors.New("ambient must be non-negative and exposure positive")
	case !(p.Gamma > 0):
		return errors.New("gamma must be positive")
	}
	return nil
}

// shadowOffset is the distance shadow rays start behind the primary hit point
// and within which they ignore occluders.
func (p *RenderParams) shadowOffset() float32 { return 2 * p.Threshold }
