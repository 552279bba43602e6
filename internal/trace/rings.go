package trace

import (
	"errors"
	"fmt"
	"sort"

	"autotrace/pkg/geometry"

	"github.com/twpayne/go-geom"
)

// ErrUnsupportedGeometry is returned for geometries that have no traceable
// boundary (points, collections).
var ErrUnsupportedGeometry = errors.New("unsupported geometry type")

// Ring describes one traversable vertex run of a geometry: a line, a line
// part of a multi-line, or a polygon ring.
type Ring struct {
	Part   int  // Part index within a multi-geometry (0 for single geometries)
	Ring   int  // Ring index within the part (0 = exterior, lines are always 0)
	Offset int  // Flat index of the ring's first vertex
	Count  int  // Physical vertex count, including the closing vertex of a ring
	Closed bool // True for polygon rings
}

// Distinct returns the number of logically distinct vertices. The closing
// vertex of a ring repeats the first and is not counted.
func (r Ring) Distinct() int {
	if r.Closed && r.Count > 0 {
		return r.Count - 1
	}
	return r.Count
}

// Contains reports whether the flat vertex index falls inside this ring.
func (r Ring) Contains(vertex int) bool {
	return vertex >= r.Offset && vertex < r.Offset+r.Count
}

// Local converts a flat vertex index into a ring-local index. The closing
// vertex of a ring folds onto index 0.
func (r Ring) Local(vertex int) int {
	local := vertex - r.Offset
	if r.Closed && local == r.Count-1 {
		return 0
	}
	return local
}

// SameRing reports whether two rings name the same part and ring.
func (r Ring) SameRing(other Ring) bool {
	return r.Part == other.Part && r.Ring == other.Ring
}

// RingTable is a prefix-sum table of ring offsets for one geometry, built
// once per geometry fetch.
type RingTable struct {
	rings []Ring
}

// NewRingTable builds the ring table of a line or polygon geometry.
func NewRingTable(g geom.T) (*RingTable, error) {
	if g == nil {
		return nil, fmt.Errorf("ring table: %w", ErrUnsupportedGeometry)
	}
	stride := g.Stride()
	if stride == 0 {
		return &RingTable{}, nil
	}

	t := &RingTable{}
	switch g := g.(type) {
	case *geom.LineString:
		t.rings = append(t.rings, Ring{Count: g.NumCoords()})
	case *geom.LinearRing:
		t.rings = append(t.rings, Ring{Count: g.NumCoords(), Closed: true})
	case *geom.Polygon:
		t.addPart(0, g.Ends(), 0, stride)
	case *geom.MultiLineString:
		start := 0
		for part, end := range g.Ends() {
			t.rings = append(t.rings, Ring{Part: part, Offset: start / stride, Count: (end - start) / stride})
			start = end
		}
	case *geom.MultiPolygon:
		start := 0
		for part, ends := range g.Endss() {
			start = t.addPart(part, ends, start, stride)
		}
	default:
		return nil, fmt.Errorf("ring table for %T: %w", g, ErrUnsupportedGeometry)
	}
	return t, nil
}

// addPart appends the rings of one polygon part and returns the flat
// coordinate offset where the next part starts.
func (t *RingTable) addPart(part int, ends []int, start, stride int) int {
	for ring, end := range ends {
		t.rings = append(t.rings, Ring{
			Part:   part,
			Ring:   ring,
			Offset: start / stride,
			Count:  (end - start) / stride,
			Closed: true,
		})
		start = end
	}
	return start
}

// Rings returns the rings in traversal order.
func (t *RingTable) Rings() []Ring {
	return t.rings
}

// Locate returns the ring containing the flat vertex index. When no ring
// contains it, the first ring is returned with ok set to false; callers
// should treat that as an invariant violation.
func (t *RingTable) Locate(vertex int) (Ring, bool) {
	if len(t.rings) == 0 {
		return Ring{}, false
	}
	i := sort.Search(len(t.rings), func(i int) bool {
		return t.rings[i].Offset+t.rings[i].Count > vertex
	})
	if i < len(t.rings) && t.rings[i].Contains(vertex) {
		return t.rings[i], true
	}
	return t.rings[0], false
}

// Locate returns the part, ring and ring offset of a flat vertex index of g.
// Unknown indices and unsupported geometries yield (0, 0, 0).
func Locate(g geom.T, vertex int) (part, ring, offset int) {
	t, err := NewRingTable(g)
	if err != nil {
		return 0, 0, 0
	}
	r, ok := t.Locate(vertex)
	if !ok {
		return 0, 0, 0
	}
	return r.Part, r.Ring, r.Offset
}

// VertexAt returns the XY position of a flat vertex index of g.
func VertexAt(g geom.T, vertex int) (geometry.Point2D, bool) {
	stride := g.Stride()
	flat := g.FlatCoords()
	if vertex < 0 || stride < 2 || (vertex+1)*stride > len(flat) {
		return geometry.Point2D{}, false
	}
	i := vertex * stride
	return geometry.Point2D{X: flat[i], Y: flat[i+1]}, true
}
