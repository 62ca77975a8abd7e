package sdfaux

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchSceneConfig sends the decoded contents of the named TOML file every time it
// is written until ctx is done, after which the returned channel is closed.
// Invalid contents are logged and skipped.
func WatchSceneConfig(ctx context.Context, name string, log *slog.Logger) (<-chan SceneConfig, error) {
	if log == nil {
		log = slog.Default()
	}
	name = filepath.Clean(name)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors often replace files instead of writing them so the directory is watched.
	err = watcher.Add(filepath.Dir(name))
	if err != nil {
		watcher.Close()
		return nil, err
	}
	configs := make(chan SceneConfig, 1)
	go func() {
		defer close(configs)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != name || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := LoadSceneConfigFile(name)
				if err != nil {
					log.Warn("ignoring scene config", slog.String("file", name), slog.Any("err", err))
					continue
				}
				log.Info("scene config reloaded", slog.String("file", name))
				// Keep only the latest configuration.
				select {
				case <-configs:
				default:
				}
				configs <- cfg
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("scene config watcher", slog.Any("err", err))
			}
		}
	}()
	return configs, nil
}
