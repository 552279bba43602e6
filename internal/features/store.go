package features

import (
	"errors"
	"fmt"
	"sync"

	"autotrace/internal/crs"
	"autotrace/internal/trace"
)

// ErrLayerNotFound is returned when a layer id is not in the store.
var ErrLayerNotFound = errors.New("layer not found")

// Store is the ordered set of layers of a project. Layer order is the draw
// order and breaks ties between equally distant snap candidates.
type Store struct {
	mu       sync.RWMutex
	layers   []*Layer
	byID     map[string]*Layer
	onChange func(l *Layer)
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Layer)}
}

// AddLayer appends a layer. Layer ids must be unique.
func (s *Store) AddLayer(l *Layer) error {
	s.mu.Lock()
	if _, exists := s.byID[l.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("add layer %s: duplicate id", l.ID)
	}
	s.layers = append(s.layers, l)
	s.byID[l.ID] = l
	s.mu.Unlock()

	l.mu.Lock()
	l.onChange = s.layerChanged
	l.mu.Unlock()
	return nil
}

// RemoveLayer removes a layer by id.
func (s *Store) RemoveLayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	for i, cur := range s.layers {
		if cur == l {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			break
		}
	}
	l.mu.Lock()
	l.onChange = nil
	l.mu.Unlock()
	return true
}

// Layer returns the layer with the given id.
func (s *Store) Layer(id string) (*Layer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrLayerNotFound)
	}
	return l, nil
}

// Layers returns the layers in order.
func (s *Store) Layers() []*Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Layer, len(s.layers))
	copy(result, s.layers)
	return result
}

// Order returns the position of a layer, or -1.
func (s *Store) Order(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, l := range s.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// OnChange sets a callback invoked after any layer changes.
func (s *Store) OnChange(fn func(l *Layer)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) layerChanged(l *Layer) {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn(l)
	}
}

// SourceFeature returns the stored geometry of a feature together with the
// layer CRS and revision.
func (s *Store) SourceFeature(layerID, featureID string) (trace.SourceFeature, error) {
	l, err := s.Layer(layerID)
	if err != nil {
		return trace.SourceFeature{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.features[featureID]
	if !ok {
		return trace.SourceFeature{}, fmt.Errorf("%s/%s: %w", layerID, featureID, ErrFeatureNotFound)
	}
	return trace.SourceFeature{Geometry: f.Geometry, CRS: l.CRS, Revision: l.revision}, nil
}

// Snappable returns the visible layers that take part in snapping.
func (s *Store) Snappable() []*Layer {
	var out []*Layer
	for _, l := range s.Layers() {
		if l.Snappable() && l.Visible() {
			out = append(out, l)
		}
	}
	return out
}

// Modified returns the layers with unsaved changes.
func (s *Store) Modified() []*Layer {
	var out []*Layer
	for _, l := range s.Layers() {
		if l.Modified() {
			out = append(out, l)
		}
	}
	return out
}

// CRSs returns the distinct layer CRSs in layer order.
func (s *Store) CRSs() []crs.ID {
	seen := make(map[crs.ID]bool)
	var out []crs.ID
	for _, l := range s.Layers() {
		id := crs.Normalize(l.CRS)
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
