// Package glrender renders [sdfrast] trees by sphere tracing them on the GPU.
// Every node of the tree is drawn with its own generated fragment program once
// per iteration, children before parents, and combines its distance into a
// per-pixel stack. Fixed passes prepare camera rays, advance them by the
// combined distance, extract resolved hits, trace shadow rays and shade the film.
package glrender

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast/glbuild"
	"github.com/soypat/sdfrast/gleval"
)

// Config configures a [Pipeline].
type Config struct {
	// Logger receives pipeline diagnostics. Nil discards them.
	Logger *slog.Logger
	// MaxStackDepth is the per-pixel distance stack capacity. Trees deeper than it are rejected.
	MaxStackDepth int
	// Materials resolves node material references. May be nil.
	Materials MaterialLookup
	// BoundsResolution is the number of rays per side of each face of bounding box searches.
	BoundsResolution int
	// BoundsDispatches is the number of compute dispatches run per bounding box search.
	BoundsDispatches int
	// BoundsSteps is the number of sphere tracing steps per dispatch of bounding box searches.
	BoundsSteps int
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	bcfg := gleval.DefaultBoundsConfig(ms3.Box{Max: ms3.Vec{X: 1, Y: 1, Z: 1}})
	return Config{
		MaxStackDepth:    glbuild.DefaultMaxStackDepth,
		BoundsResolution: bcfg.Resolution,
		BoundsDispatches: bcfg.Dispatches,
		BoundsSteps:      bcfg.StepsPerDispatch,
	}
}

// Validate checks the configuration for errors.
func (cfg *Config) Validate() error {
	switch {
	case cfg.MaxStackDepth <= 0:
		return errors.New("max stack depth must be positive")
	case cfg.BoundsResolution <= 0 || cfg.BoundsDispatches <= 0 || cfg.BoundsSteps <= 0:
		return errors.New("bounds search parameters must be positive")
	}
	return nil
}

func (cfg *Config) logger() *slog.Logger {
	if cfg.Logger == nil {
		return slog.New(nopHandler{})
	}
	return cfg.Logger
}

// nopHandler discards all records. Enabled returns false so messages are never formatted.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func vec(v mgl32.Vec3) ms3.Vec { return ms3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func mglVec(v ms3.Vec) mgl32.Vec3 { return mgl32.Vec3{v.X, v.Y, v.Z} }
