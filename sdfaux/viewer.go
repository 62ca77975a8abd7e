package sdfaux

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/soypat/sdfrast/glrender"
)

// ViewerConfig configures [View].
type ViewerConfig struct {
	Width  int
	Height int
	Title  string
	// Context stops the viewer when done. May be nil.
	Context context.Context
	Params  glrender.RenderParams
	// Pipeline configures the GPU pipeline. Its Logger defaults to the viewer's.
	Pipeline glrender.Config
	// ConfigFile is a TOML [SceneConfig] applied on start and reloaded when written.
	ConfigFile string
	// OnFrame is called before rendering every frame with the time since the previous one.
	// It may edit the scene. Frames are only rendered on input if nil.
	OnFrame func(dt time.Duration)
	Logger  *slog.Logger
}

// DefaultViewerConfig returns a configuration for a 800x600 window.
func DefaultViewerConfig() ViewerConfig {
	return ViewerConfig{
		Width:    800,
		Height:   600,
		Title:    "sdfrast viewer",
		Params:   glrender.DefaultRenderParams(),
		Pipeline: glrender.DefaultConfig(),
	}
}

// Validate checks the configuration for errors.
func (cfg *ViewerConfig) Validate() error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("invalid viewer window size")
	}
	if err := cfg.Params.Validate(); err != nil {
		return err
	}
	return cfg.Pipeline.Validate()
}

func (cfg *ViewerConfig) logger() *slog.Logger {
	if cfg.Logger == nil {
		return slog.Default()
	}
	return cfg.Logger
}
