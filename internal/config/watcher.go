package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/rfnet/nfctap/internal/logging"
)

// Watch reloads the config file on change and hands each valid reloaded
// Config to onChange. It returns after starting the watch goroutine, which
// runs until ctx is done. Invalid intermediate states (for example a
// half-written file) are logged and skipped.
func Watch(ctx context.Context, log *logging.Logger, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory rather than the file: editors replace config
	// files via rename, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := viper.ReadInConfig(); err != nil {
					log.Warn("config reload failed", "error", err.Error())
					continue
				}
				cfg, err := Load()
				if err != nil {
					log.Warn("reloaded config rejected", "error", err.Error())
					continue
				}
				log.Info("configuration reloaded", "path", target)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("config watch error", "error", err.Error())
			}
		}
	}()

	return nil
}
