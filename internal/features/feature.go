// Package features holds vector feature layers, the vertex index used for
// snapping, and the sink that stores finished traces.
package features

import (
	"fmt"

	"autotrace/internal/trace"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// GeometryType is the geometry kind stored by a layer.
type GeometryType string

const (
	TypePoint   GeometryType = "point"
	TypeLine    GeometryType = "line"
	TypePolygon GeometryType = "polygon"
)

// TraceKind returns the trace kind for line and polygon layers.
func (t GeometryType) TraceKind() (trace.Kind, bool) {
	switch t {
	case TypeLine:
		return trace.KindLine, true
	case TypePolygon:
		return trace.KindPolygon, true
	default:
		return 0, false
	}
}

// TypeOf returns the layer geometry type that accepts g.
func TypeOf(g geom.T) (GeometryType, bool) {
	switch g.(type) {
	case *geom.Point, *geom.MultiPoint:
		return TypePoint, true
	case *geom.LineString, *geom.MultiLineString:
		return TypeLine, true
	case *geom.Polygon, *geom.MultiPolygon:
		return TypePolygon, true
	default:
		return "", false
	}
}

// Feature is one geometry with its attributes.
type Feature struct {
	ID         string
	Geometry   geom.T
	Properties map[string]interface{}
}

// String returns the feature id and its geometry as WKT.
func (f *Feature) String() string {
	text, err := wkt.Marshal(f.Geometry)
	if err != nil {
		return fmt.Sprintf("%s <%v>", f.ID, err)
	}
	return f.ID + " " + text
}
