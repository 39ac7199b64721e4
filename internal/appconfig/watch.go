package appconfig

import (
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// LevelSetter is satisfied by obslog's atomic level handle; kept as a
// narrow interface so this package doesn't need to import obslog's
// concrete type.
type LevelSetter interface {
	SetLevel(level string)
}

// WatchLogLevel watches path for changes and, on every write or create event,
// re-reads the file's logging.level field and applies it live via setter.
// Only the log level is hot-reloaded — every other field requires a
// restart, since coalescer.Config is immutable after construction
// (spec.md §3) and the demo server's listen address can't be rebound.
// The returned *fsnotify.Watcher should be closed by the caller on
// shutdown.
func WatchLogLevel(path string, setter LevelSetter, log *zap.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					log.Warn("config reload failed", zap.Error(err))
					continue
				}
				setter.SetLevel(cfg.Logging.Level)
				log.Info("log level reloaded", zap.String("level", cfg.Logging.Level))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("config watch error", zap.Error(err))
			}
		}
	}()

	return watcher, nil
}
