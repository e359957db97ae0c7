package config

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig reloads the configuration whenever the file changes on disk
// and hands the fresh copy to onChange. It returns a stop function.
// Reload failures keep the previous configuration and are only logged.
func WatchConfig(cfile string, realhw bool, onChange func(*Config)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watch the directory: editors replace the file on save
	if err := watcher.Add(filepath.Dir(cfile)); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(cfile) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if err := ReadConfig(cfile, realhw); err != nil {
					slog.Error("Config reload failed, keeping previous", "file", cfile, "error", err)
					continue
				}
				slog.Info("Config reloaded", "file", cfile)
				if onChange != nil {
					cfg := CONFIG
					onChange(&cfg)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Config watcher error", "error", err)
			}
		}
	}()

	stop := func() {
		close(done)
		watcher.Close()
	}
	return stop, nil
}
