package features

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"autotrace/internal/crs"
)

var (
	// ErrFeatureNotFound is returned when a feature id is not in a layer.
	ErrFeatureNotFound = errors.New("feature not found")

	// ErrWrongGeometryType is returned when a geometry does not match the layer.
	ErrWrongGeometryType = errors.New("geometry does not match layer type")
)

// Layer is an ordered set of features sharing a geometry type and CRS.
// Every change bumps the revision so indexes and trace anchors can detect
// stale data.
type Layer struct {
	mu sync.RWMutex

	ID   string
	Name string
	Type GeometryType
	CRS  crs.ID
	Path string // Backing GeoJSON file, empty for in-memory layers

	editable  bool
	snappable bool
	visible   bool
	modified  bool

	features map[string]*Feature
	order    []string
	nextID   int
	revision uint64

	onChange func(l *Layer)
}

// NewLayer creates an empty, visible layer.
func NewLayer(id, name string, typ GeometryType, ref crs.ID) *Layer {
	return &Layer{
		ID:       id,
		Name:     name,
		Type:     typ,
		CRS:      ref,
		visible:  true,
		features: make(map[string]*Feature),
		order:    make([]string, 0),
		nextID:   1,
		revision: 1,
	}
}

// Add appends a feature. An empty id is replaced by a generated one.
func (l *Layer) Add(f *Feature) (string, error) {
	if typ, ok := TypeOf(f.Geometry); !ok || typ != l.Type {
		return "", fmt.Errorf("add %T to %s layer %s: %w", f.Geometry, l.Type, l.ID, ErrWrongGeometryType)
	}

	l.mu.Lock()
	if f.ID == "" {
		f.ID = l.generateID()
	}
	if _, exists := l.features[f.ID]; !exists {
		l.order = append(l.order, f.ID)
	}
	l.features[f.ID] = f
	l.changed()
	l.mu.Unlock()

	l.notify()
	return f.ID, nil
}

// generateID returns an unused numeric id. Callers hold the lock.
func (l *Layer) generateID() string {
	for {
		id := strconv.Itoa(l.nextID)
		l.nextID++
		if _, taken := l.features[id]; !taken {
			return id
		}
	}
}

// Remove deletes a feature by id.
func (l *Layer) Remove(id string) bool {
	l.mu.Lock()
	if _, ok := l.features[id]; !ok {
		l.mu.Unlock()
		return false
	}
	delete(l.features, id)
	l.order = removeString(l.order, id)
	l.changed()
	l.mu.Unlock()

	l.notify()
	return true
}

// Replace swaps in a new set of features, keeping their ids, as a single
// change. Later duplicates of an id are dropped.
func (l *Layer) Replace(features []*Feature) {
	l.mu.Lock()
	l.features = make(map[string]*Feature, len(features))
	l.order = make([]string, 0, len(features))
	for _, f := range features {
		if _, dup := l.features[f.ID]; dup {
			continue
		}
		l.features[f.ID] = f
		l.order = append(l.order, f.ID)
	}
	l.changed()
	l.mu.Unlock()

	l.notify()
}

// Feature returns the feature with the given id.
func (l *Layer) Feature(id string) (*Feature, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.features[id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", l.ID, id, ErrFeatureNotFound)
	}
	return f, nil
}

// Features returns the features in insertion order.
func (l *Layer) Features() []*Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]*Feature, 0, len(l.order))
	for _, id := range l.order {
		result = append(result, l.features[id])
	}
	return result
}

// Count returns the number of features.
func (l *Layer) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Revision returns a counter that changes whenever the layer changes.
func (l *Layer) Revision() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.revision
}

// Editable reports whether new features may be added interactively.
func (l *Layer) Editable() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.editable
}

// SetEditable starts or stops editing.
func (l *Layer) SetEditable(v bool) {
	l.mu.Lock()
	changed := l.editable != v
	l.editable = v
	l.mu.Unlock()
	if changed {
		l.notify()
	}
}

// Snappable reports whether the layer takes part in snapping.
func (l *Layer) Snappable() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snappable
}

// SetSnappable enables or disables snapping to this layer.
func (l *Layer) SetSnappable(v bool) {
	l.mu.Lock()
	l.snappable = v
	l.mu.Unlock()
}

// Visible reports whether the layer is shown.
func (l *Layer) Visible() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.visible
}

// SetVisible shows or hides the layer.
func (l *Layer) SetVisible(v bool) {
	l.mu.Lock()
	l.visible = v
	l.mu.Unlock()
}

// Modified reports whether the layer has unsaved changes.
func (l *Layer) Modified() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modified
}

// MarkSaved clears the modified flag.
func (l *Layer) MarkSaved() {
	l.mu.Lock()
	l.modified = false
	l.mu.Unlock()
}

// changed records a content change. Callers hold the lock.
func (l *Layer) changed() {
	l.revision++
	l.modified = true
}

func (l *Layer) notify() {
	l.mu.RLock()
	fn := l.onChange
	l.mu.RUnlock()
	if fn != nil {
		fn(l)
	}
}

func removeString(slice []string, s string) []string {
	for i, v := range slice {
		if v == s {
			return append(slice[:i], slice[i+1:]...)
		}
	}
	return slice
}
