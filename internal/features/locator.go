package features

import (
	"log"
	"sync"

	"autotrace/internal/crs"
	"autotrace/internal/trace"
	"autotrace/pkg/geometry"
)

// Locator snaps map points to vertices of the snappable layers of a store.
// Vertices are indexed in map coordinates; the index is rebuilt when a layer
// revision or the set of snappable layers changes.
type Locator struct {
	store  *Store
	reproj trace.Reprojector
	mapCRS crs.ID
	logger *log.Logger

	mu        sync.Mutex
	index     *vertexIndex
	revisions map[string]uint64
}

// NewLocator creates a locator. reproj may be nil when every layer shares
// the map CRS.
func NewLocator(store *Store, reproj trace.Reprojector, mapCRS crs.ID, logger *log.Logger) *Locator {
	if logger == nil {
		logger = log.Default()
	}
	return &Locator{store: store, reproj: reproj, mapCRS: mapCRS, logger: logger}
}

// SetMapCRS changes the map CRS and drops the index.
func (l *Locator) SetMapCRS(id crs.ID) {
	l.mu.Lock()
	l.mapCRS = id
	l.index = nil
	l.mu.Unlock()
}

// Snap returns the vertices within tolerance of p, closest first.
func (l *Locator) Snap(p geometry.Point2D, tolerance float64) []trace.SnapResult {
	l.mu.Lock()
	idx := l.current()
	l.mu.Unlock()

	found := idx.within(p, tolerance)
	if len(found) == 0 {
		return nil
	}
	out := make([]trace.SnapResult, len(found))
	for i, v := range found {
		out[i] = trace.SnapResult{
			LayerID:   v.layerID,
			FeatureID: v.id,
			Point:     v.point,
			Vertex:    v.index,
			Distance:  v.point.Distance(p),
		}
	}
	return out
}

// Size returns the number of indexed vertices.
func (l *Locator) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current().size
}

// current returns an up to date index. Callers hold l.mu.
func (l *Locator) current() *vertexIndex {
	layers := l.store.Snappable()
	if l.index != nil && !l.stale(layers) {
		return l.index
	}

	revisions := make(map[string]uint64, len(layers))
	var items []*vertex
	for _, layer := range layers {
		revisions[layer.ID] = layer.Revision()
		order := l.store.Order(layer.ID)
		for fi, f := range layer.Features() {
			for _, vi := range snapVertices(f.Geometry) {
				p, ok := trace.VertexAt(f.Geometry, vi)
				if !ok {
					continue
				}
				q, err := l.toMap(p, layer.CRS)
				if err != nil {
					l.logger.Printf("Snap: %s/%s skipped: %v", layer.ID, f.ID, err)
					break
				}
				items = append(items, &vertex{
					point:   q,
					layer:   order,
					layerID: layer.ID,
					feature: fi,
					id:      f.ID,
					index:   vi,
				})
			}
		}
	}

	l.index = newVertexIndex(items)
	l.revisions = revisions
	l.logger.Printf("Snap: indexed %d vertices from %d layers", len(items), len(layers))
	return l.index
}

func (l *Locator) stale(layers []*Layer) bool {
	if len(layers) != len(l.revisions) {
		return true
	}
	for _, layer := range layers {
		rev, ok := l.revisions[layer.ID]
		if !ok || rev != layer.Revision() {
			return true
		}
	}
	return false
}

func (l *Locator) toMap(p geometry.Point2D, src crs.ID) (geometry.Point2D, error) {
	if src == "" || l.mapCRS == "" || crs.Normalize(src) == crs.Normalize(l.mapCRS) || l.reproj == nil {
		return p, nil
	}
	return l.reproj.Reproject(p, src, l.mapCRS)
}
