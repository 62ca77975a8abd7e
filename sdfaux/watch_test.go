package sdfaux

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchSceneConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(name, []byte("[render]\niterations = 10\n"), 0o644))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	configs, err := WatchSceneConfig(ctx, name, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	// Invalid contents and unrelated files are skipped.
	require.NoError(t, os.WriteFile(name, []byte("[render]\niterations = 0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(name, []byte("[render]\niterations = 20\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-configs:
			if cfg.Render.Iterations == 20 {
				cancel()
				for range configs {
				}
				return
			}
			assert.NotEqual(t, 0, cfg.Render.Iterations)
		case <-deadline:
			t.Fatal("no config received")
		}
	}
}
