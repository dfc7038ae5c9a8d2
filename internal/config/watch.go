package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	path     string
	w        *fsnotify.Watcher
	log      *zap.Logger
	onChange func(Config)
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher watches path. The parent directory is watched so that editors
// which replace the file by rename are noticed; it must exist.
func NewWatcher(path string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{path: filepath.Clean(path), w: w, log: log}, nil
}

// OnChange sets the callback invoked with each successfully reloaded
// config. It runs on the watcher goroutine.
func (cw *Watcher) OnChange(fn func(Config)) {
	cw.onChange = fn
}

// Start begins watching in a background goroutine.
func (cw *Watcher) Start() {
	cw.stopCh = make(chan struct{})
	cw.doneCh = make(chan struct{})
	go cw.watchLoop()
}

// Stop stops watching and releases the underlying watcher.
func (cw *Watcher) Stop() {
	if cw.stopCh != nil {
		close(cw.stopCh)
		<-cw.doneCh
	}
	cw.w.Close()
}

func (cw *Watcher) watchLoop() {
	defer close(cw.doneCh)
	for {
		select {
		case <-cw.stopCh:
			return
		case ev, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != cw.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(cw.path)
			if err != nil {
				cw.log.Warn("config reload", zap.String("path", cw.path), zap.Error(err))
				continue
			}
			cw.log.Info("config reloaded", zap.String("path", cw.path))
			if cw.onChange != nil {
				cw.onChange(cfg)
			}
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			cw.log.Warn("config watch", zap.Error(err))
		}
	}
}
