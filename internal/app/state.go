// Package app provides application lifecycle management, configuration, and events.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"autotrace/internal/crs"
	"autotrace/internal/features"
	"autotrace/internal/project"
	"autotrace/internal/trace"
	"autotrace/pkg/geometry"
)

// ErrToolDisabled is returned when the trace tool is activated without an
// editable line or polygon layer.
var ErrToolDisabled = errors.New("trace tool needs an editable line or polygon layer")

// State holds the application state: the project, its layers, and the
// tracing session bound to the active layer.
type State struct {
	mu sync.RWMutex

	// Project
	ProjectPath string
	Project     *project.File

	// Layers and coordinate systems
	Store    *features.Store
	Registry *crs.Registry
	Locator  *features.Locator
	Sink     *features.Sink

	// Tracing; Session is driven from the UI goroutine only
	Session     *trace.Session
	activeLayer string
	toolActive  bool
	tolerancePx float64
	decider     features.Decider

	logger *log.Logger

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events. Layer events carry
// the layer id, EventTraceFinished the new feature id, EventToolAvailability
// a bool and EventWarning a message.
type EventType int

const (
	EventProjectLoaded EventType = iota
	EventProjectSaved
	EventFeaturesChanged
	EventLayerReloaded
	EventActiveLayerChanged
	EventToolAvailability
	EventTraceFinished
	EventWarning
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates an application state with an empty project. decider is
// asked whether to keep traces that fail validation.
func NewState(tolerancePx float64, decider features.Decider, logger *log.Logger) *State {
	if logger == nil {
		logger = log.Default()
	}
	s := &State{
		tolerancePx: tolerancePx,
		decider:     decider,
		logger:      logger,
		listeners:   make(map[EventType][]EventListener),
	}
	s.install(project.New("untitled", crs.WebMercator), "", features.NewStore(), crs.NewRegistry())
	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// LoadProject loads a project and its layers from the specified path.
func (s *State) LoadProject(path string) error {
	proj, err := project.Load(path)
	if err != nil {
		return err
	}
	store, err := proj.LoadLayers(path)
	if err != nil {
		return err
	}
	reg, err := proj.Registry()
	if err != nil {
		return err
	}
	for _, id := range store.CRSs() {
		if !reg.Has(id, proj.MapCRS) {
			s.logger.Printf("Project: no conversion from %s to map CRS %s", id, proj.MapCRS)
		}
	}

	s.install(proj, path, store, reg)

	active := proj.ActiveLayer
	if active == "" {
		for _, l := range store.Layers() {
			if l.Editable() {
				active = l.ID
				break
			}
		}
	}
	if active != "" {
		if err := s.SetActiveLayer(active); err != nil {
			s.logger.Printf("Project: %v", err)
		}
	}

	s.Emit(EventProjectLoaded, path)
	return nil
}

// install replaces the project and rebuilds the tracing collaborators.
func (s *State) install(proj *project.File, path string, store *features.Store, reg *crs.Registry) {
	locator := features.NewLocator(store, reg, proj.MapCRS, s.logger)
	sink := features.NewSink(store, s.decider, s.logger)
	vp := trace.NewViewport(geometry.NewPoint2D(proj.View.OriginX, proj.View.OriginY), proj.View.UnitsPerPixel)
	session := trace.NewSession(trace.Config{
		Snapper:     locator,
		Source:      store,
		Reprojector: reg,
		Sink:        sink,
		Viewport:    vp,
		MapCRS:      proj.MapCRS,
		TolerancePx: s.tolerancePx,
		Logger:      s.logger,
	})

	store.OnChange(func(l *features.Layer) { s.Emit(EventFeaturesChanged, l.ID) })
	sink.OnAdded(func(_, featureID string) { s.Emit(EventTraceFinished, featureID) })

	s.mu.Lock()
	s.Project = proj
	s.ProjectPath = path
	s.Store = store
	s.Registry = reg
	s.Locator = locator
	s.Sink = sink
	s.activeLayer = ""
	s.toolActive = false
	s.Session = session
	s.mu.Unlock()
}

// SaveProject writes modified layers and the project file. An empty path
// saves to the current project path.
func (s *State) SaveProject(path string) error {
	s.mu.RLock()
	if path == "" {
		path = s.ProjectPath
	}
	proj, store := s.Project, s.Store
	proj.ActiveLayer = s.activeLayer
	s.mu.RUnlock()

	if path == "" {
		return fmt.Errorf("save project: no path")
	}
	if err := project.SaveLayers(store); err != nil {
		return err
	}
	if err := proj.Save(path); err != nil {
		return err
	}

	s.mu.Lock()
	s.ProjectPath = path
	s.mu.Unlock()

	s.Emit(EventProjectSaved, path)
	return nil
}

// Modified reports whether any layer has unsaved changes.
func (s *State) Modified() bool {
	s.mu.RLock()
	store := s.Store
	s.mu.RUnlock()
	return len(store.Modified()) > 0
}

// ActiveLayer returns the id of the layer new traces are added to.
func (s *State) ActiveLayer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLayer
}

// SetActiveLayer selects the edit layer. An empty id clears it. The trace
// in progress is discarded.
func (s *State) SetActiveLayer(id string) error {
	target := trace.Target{}
	if id != "" {
		l, err := s.Store.Layer(id)
		if err != nil {
			return err
		}
		kind, _ := l.Type.TraceKind()
		target = trace.Target{LayerID: l.ID, Kind: kind, CRS: l.CRS}
	}

	s.mu.Lock()
	s.activeLayer = id
	s.mu.Unlock()

	s.Sink.SetLayer(id)
	s.Session.SetTarget(target)

	s.Emit(EventActiveLayerChanged, id)
	s.updateToolAvailability()
	return nil
}

// SetLayerEditable starts or stops editing a layer.
func (s *State) SetLayerEditable(id string, editable bool) error {
	l, err := s.Store.Layer(id)
	if err != nil {
		return err
	}
	l.SetEditable(editable)
	if id == s.ActiveLayer() {
		s.updateToolAvailability()
	}
	return nil
}

// ToolEnabled reports whether the active layer can receive traces: it must
// be editable and of line or polygon type.
func (s *State) ToolEnabled() bool {
	id := s.ActiveLayer()
	if id == "" {
		return false
	}
	l, err := s.Store.Layer(id)
	if err != nil {
		return false
	}
	_, traceable := l.Type.TraceKind()
	return traceable && l.Editable()
}

func (s *State) updateToolAvailability() {
	enabled := s.ToolEnabled()
	if !enabled && s.ToolActive() {
		s.DeactivateTool()
	}
	s.Emit(EventToolAvailability, enabled)
}

// SnappableLayerCount returns the number of visible snappable layers.
func (s *State) SnappableLayerCount() int {
	return len(s.Store.Snappable())
}

// ToolActive reports whether the trace tool receives input.
func (s *State) ToolActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toolActive
}

// ActivateTool makes the trace tool current.
func (s *State) ActivateTool() error {
	if !s.ToolEnabled() {
		return ErrToolDisabled
	}
	s.mu.Lock()
	s.toolActive = true
	s.mu.Unlock()

	s.Session.Activate()

	if s.SnappableLayerCount() == 0 {
		msg := "No snappable layers: tracing will only add clicked points"
		s.logger.Printf("Trace: %s", msg)
		s.Emit(EventWarning, msg)
	}
	return nil
}

// DeactivateTool discards the trace in progress and stops routing input.
func (s *State) DeactivateTool() {
	s.mu.Lock()
	s.toolActive = false
	s.mu.Unlock()

	s.Session.Deactivate()
}

// HandleEvent routes an input event to the session while the tool is active.
// Finishing errors are also reported as warnings.
func (s *State) HandleEvent(ev trace.Event) error {
	if !s.ToolActive() {
		return nil
	}
	err := s.Session.Handle(ev)
	if err != nil {
		s.logger.Printf("Trace: %v", err)
		s.Emit(EventWarning, err.Error())
	}
	return err
}

// ReloadLayer rereads a layer from its file, replacing its features.
// Unsaved changes in the layer are lost. When the file cannot be read the
// layer keeps its features.
func (s *State) ReloadLayer(id string) error {
	l, err := s.Store.Layer(id)
	if err != nil {
		return err
	}
	if l.Path == "" {
		return fmt.Errorf("reload %s: layer has no file", id)
	}
	fresh := features.NewLayer(l.ID, l.Name, l.Type, l.CRS)
	if err := project.ReadLayer(l.Path, fresh); err != nil {
		return fmt.Errorf("reload %s: %w", id, err)
	}
	l.Replace(fresh.Features())
	l.MarkSaved()
	s.logger.Printf("Project: reloaded layer %s (%d features)", id, l.Count())
	s.Emit(EventLayerReloaded, id)
	return nil
}
