package app

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// LayerWatcher watches the files of read-only layers and triggers a callback
// when one is rewritten by another program. Editable layers are skipped
// because their files are written by this process.
//
// Directories are watched rather than files so that editors replacing a
// file by rename are noticed. Bursts of events are debounced, and the
// modification time decides whether a layer really changed.
type LayerWatcher struct {
	debounce time.Duration
	onChange func(layerID string) // Called from the watcher goroutine
	logger   *log.Logger
	stopCh   chan struct{}

	mu     sync.Mutex
	files  map[string]string // layer id -> absolute path
	stamps map[string]time.Time
	timer  *time.Timer
}

// NewLayerWatcher creates a watcher. debounce is also the polling period
// used when file notifications are unavailable.
func NewLayerWatcher(debounce time.Duration, onChange func(layerID string)) *LayerWatcher {
	return &LayerWatcher{
		debounce: debounce,
		onChange: onChange,
		logger:   log.Default(),
		files:    make(map[string]string),
		stamps:   make(map[string]time.Time),
	}
}

// Watch adds a layer file, recording its current modification time. Files
// added after Start are only picked up by the next Start.
func (w *LayerWatcher) Watch(layerID, path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[layerID] = path
	if info, err := os.Stat(path); err == nil {
		w.stamps[layerID] = info.ModTime()
	} else {
		w.stamps[layerID] = time.Time{}
	}
}

// Unwatch forgets a layer.
func (w *LayerWatcher) Unwatch(layerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.files, layerID)
	delete(w.stamps, layerID)
}

// Start begins watching in a background goroutine.
func (w *LayerWatcher) Start() {
	// Create a fresh stop channel in case we're restarting
	w.stopCh = make(chan struct{})

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Printf("Watch: %v, polling every %v", err, w.debounce)
		go w.pollLoop(w.stopCh)
		return
	}
	for _, dir := range w.dirs() {
		if err := fw.Add(dir); err != nil {
			w.logger.Printf("Watch: %s: %v", dir, err)
		}
	}
	go w.notifyLoop(fw, w.stopCh)
}

// Stop stops the watcher goroutine.
func (w *LayerWatcher) Stop() {
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
}

func (w *LayerWatcher) dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	seen := make(map[string]bool)
	var dirs []string
	for _, path := range w.files {
		dir := filepath.Dir(path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func (w *LayerWatcher) watching(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.files {
		if p == path {
			return true
		}
	}
	return false
}

func (w *LayerWatcher) notifyLoop(fw *fsnotify.Watcher, stop chan struct{}) {
	defer fw.Close()

	for {
		select {
		case <-stop:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.watching(filepath.Clean(event.Name)) {
				w.schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("Watch: %v", err)
		}
	}
}

func (w *LayerWatcher) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.fire()
		}
	}
}

// schedule runs fire once events have been quiet for the debounce period.
func (w *LayerWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *LayerWatcher) fire() {
	for _, id := range w.Check() {
		if w.onChange != nil {
			w.onChange(id)
		}
	}
}

// Check returns the layers whose files changed since the last check and
// records their new modification times.
func (w *LayerWatcher) Check() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var changed []string
	for id, path := range w.files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(w.stamps[id]) {
			w.stamps[id] = info.ModTime()
			changed = append(changed, id)
		}
	}
	return changed
}

// WatchLayers starts a watcher over the files of the read-only layers of
// the current project. Changed layers are reloaded.
func (s *State) WatchLayers(debounce time.Duration) *LayerWatcher {
	w := NewLayerWatcher(debounce, func(id string) {
		if err := s.ReloadLayer(id); err != nil {
			s.logger.Printf("Project: %v", err)
		}
	})
	w.logger = s.logger
	s.mu.RLock()
	store := s.Store
	s.mu.RUnlock()
	for _, l := range store.Layers() {
		if l.Path != "" && !l.Editable() {
			w.Watch(l.ID, l.Path)
		}
	}
	w.Start()
	return w
}
