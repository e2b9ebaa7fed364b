package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

// debounce absorbs the burst of fsnotify events a single editor save
// typically produces (grounded on pkg/hotreload's DebounceInterval).
const debounce = 200 * time.Millisecond

// OnFilterChanged receives the reloaded filter/rate-limit subset whenever
// the watched file changes on disk.
type OnFilterChanged func(filter model.FilterConfig, maxLogsPerSecond int)

// Watcher is a debug-builds-only fsnotify watcher over the config file,
// narrowed to reload only FilterConfig and Limits.MaxLogsPerSecond — the
// two fields safe to change without restarting transport or persistence
// (orig's immutable-after-start rule otherwise applies to everything
// else; see DESIGN.md for why this subset was chosen).
//
// Grounded on pkg/hotreload/config_reloader.go's watch-debounce-reload
// shape, stripped of backup/webhook/validate-and-rollback machinery this
// narrow reload surface doesn't need.
type Watcher struct {
	path   string
	logger *logrus.Logger
	onChange OnFilterChanged

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher constructs a Watcher over path. Start begins watching.
func NewWatcher(path string, logger *logrus.Logger, onChange OnFilterChanged) (*Watcher, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{path: path, logger: logger, onChange: onChange, watcher: fw, done: make(chan struct{})}, nil
}

// Start runs the debounced watch loop in the background.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop closes the underlying fsnotify watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.WithError(err).Warn("config hot-reload: load failed, keeping previous filter")
		return
	}
	if w.onChange != nil {
		w.onChange(cfg.Filter, cfg.Limits.MaxLogsPerSecond)
	}
}
