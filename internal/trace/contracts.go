package trace

import (
	"autotrace/internal/crs"
	"autotrace/pkg/geometry"

	"github.com/twpayne/go-geom"
)

// SnapResult is a background vertex found near a query point.
type SnapResult struct {
	LayerID   string
	FeatureID string
	Point     geometry.Point2D // Vertex position in map coordinates
	Vertex    int              // Flat vertex index within the feature geometry
	Distance  float64          // Distance from the query point in map units
}

// Snapper finds background vertices near a map point. Results are ordered by
// ascending distance; an empty result means nothing is within tolerance.
type Snapper interface {
	Snap(p geometry.Point2D, tolerance float64) []SnapResult
}

// SourceFeature is the geometry of one background feature as stored by its
// layer.
type SourceFeature struct {
	Geometry geom.T
	CRS      crs.ID
	Revision uint64 // Layer revision at fetch time
}

// GeometrySource fetches background feature geometries.
type GeometrySource interface {
	SourceFeature(layerID, featureID string) (SourceFeature, error)
}

// Reprojector converts points between coordinate reference systems.
type Reprojector interface {
	Reproject(p geometry.Point2D, src, dst crs.ID) (geometry.Point2D, error)
}

// FeatureSink receives finished trace geometries. The sink owns validation
// and persistence.
type FeatureSink interface {
	TraceFinished(g geom.T) error
}

// Kind is the geometry type produced by a trace.
type Kind int

const (
	KindLine Kind = iota
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// MinVertices returns the minimum distinct vertex count for the kind.
func (k Kind) MinVertices() int {
	if k == KindPolygon {
		return 3
	}
	return 2
}

// Target describes the layer being edited.
type Target struct {
	LayerID string
	Kind    Kind
	CRS     crs.ID
}
