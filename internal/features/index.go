package features

import (
	"math"
	"sort"

	"autotrace/internal/trace"
	"autotrace/pkg/geometry"

	"github.com/twpayne/go-geom"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// vertex is one indexed background vertex in map coordinates.
type vertex struct {
	point   geometry.Point2D
	layer   int // Layer order in the store
	layerID string
	feature int // Feature order in the layer
	id      string
	index   int // Flat vertex index in the feature geometry
}

func (v *vertex) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return v.point.X
	}
	return v.point.Y
}

// Compare returns the signed distance of v from the plane through c
// perpendicular to dimension d.
func (v *vertex) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return v.coord(d) - c.(*vertex).coord(d)
}

// Dims returns the number of dimensions described by the receiver.
func (v *vertex) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between v and c.
func (v *vertex) Distance(c kdtree.Comparable) float64 {
	return v.point.DistanceSq(c.(*vertex).point)
}

type vertices []*vertex

func (v vertices) Index(i int) kdtree.Comparable         { return v[i] }
func (v vertices) Len() int                              { return len(v) }
func (v vertices) Pivot(d kdtree.Dim) int                { return plane{Dim: d, vertices: v}.Pivot() }
func (v vertices) Slice(start, end int) kdtree.Interface { return v[start:end] }

// plane sorts vertices along one dimension for median partitioning.
type plane struct {
	kdtree.Dim
	vertices
}

func (p plane) Less(i, j int) bool {
	return p.vertices[i].coord(p.Dim) < p.vertices[j].coord(p.Dim)
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.vertices = p.vertices[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.vertices[i], p.vertices[j] = p.vertices[j], p.vertices[i]
}

// vertexIndex is an immutable kd-tree over the vertices of snappable layers.
type vertexIndex struct {
	tree *kdtree.Tree
	size int
}

func newVertexIndex(items []*vertex) *vertexIndex {
	if len(items) == 0 {
		return &vertexIndex{}
	}
	return &vertexIndex{tree: kdtree.New(vertices(items), false), size: len(items)}
}

// within returns the vertices no farther than tolerance from p, closest
// first. Ties go to the earlier layer, then the earlier feature, then the
// lower vertex index.
func (x *vertexIndex) within(p geometry.Point2D, tolerance float64) []*vertex {
	if x.tree == nil || tolerance < 0 || math.IsNaN(tolerance) {
		return nil
	}
	q := &vertex{point: p}
	keeper := kdtree.NewDistKeeper(tolerance * tolerance)
	x.tree.NearestSet(keeper, q)

	out := make([]*vertex, 0, keeper.Len())
	for _, c := range keeper.Heap {
		if c.Comparable == nil {
			continue
		}
		out = append(out, c.Comparable.(*vertex))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		da, db := a.point.DistanceSq(p), b.point.DistanceSq(p)
		if da != db {
			return da < db
		}
		if a.layer != b.layer {
			return a.layer < b.layer
		}
		if a.feature != b.feature {
			return a.feature < b.feature
		}
		return a.index < b.index
	})
	return out
}

// snapVertices lists the flat indices of the vertices of g that can be
// snapped to. The closing vertex of a ring repeats the first and is left out.
func snapVertices(g geom.T) []int {
	switch g.(type) {
	case *geom.Point, *geom.MultiPoint:
		n := 0
		if stride := g.Stride(); stride > 0 {
			n = len(g.FlatCoords()) / stride
		}
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	table, err := trace.NewRingTable(g)
	if err != nil {
		return nil
	}
	var out []int
	for _, r := range table.Rings() {
		for i := 0; i < r.Distinct(); i++ {
			out = append(out, r.Offset+i)
		}
	}
	return out
}
