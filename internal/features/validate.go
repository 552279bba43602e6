package features

import (
	"fmt"

	"autotrace/pkg/geometry"

	"github.com/twpayne/go-geom"
)

// Problem is one validity issue found in a geometry.
type Problem struct {
	Message  string
	Where    geometry.Point2D
	HasWhere bool
}

func (p Problem) String() string {
	if p.HasWhere {
		return fmt.Sprintf("%s at (%.3f, %.3f)", p.Message, p.Where.X, p.Where.Y)
	}
	return p.Message
}

// Validate checks a line or polygon for too few points, repeated
// consecutive points and self-intersections.
func Validate(g geom.T) []Problem {
	switch g := g.(type) {
	case *geom.LineString:
		return validatePath(points(g.FlatCoords(), g.Stride()), false)
	case *geom.Polygon:
		var problems []Problem
		for i := 0; i < g.NumLinearRings(); i++ {
			r := g.LinearRing(i)
			problems = append(problems, validatePath(points(r.FlatCoords(), r.Stride()), true)...)
		}
		return problems
	case nil:
		return []Problem{{Message: "empty geometry"}}
	default:
		return []Problem{{Message: fmt.Sprintf("unsupported geometry %T", g)}}
	}
}

func validatePath(path []geometry.Point2D, ring bool) []Problem {
	var problems []Problem

	distinct := geometry.DedupConsecutive(path)
	if ring && len(distinct) > 1 && distinct[0] == distinct[len(distinct)-1] {
		distinct = distinct[:len(distinct)-1]
	}
	need := 2
	if ring {
		need = 3
	}
	if len(distinct) < need {
		problems = append(problems, Problem{
			Message: fmt.Sprintf("too few points: %d, need %d", len(distinct), need),
		})
		return problems
	}

	for i := 1; i < len(path); i++ {
		if path[i] == path[i-1] {
			problems = append(problems, Problem{Message: "repeated point", Where: path[i], HasWhere: true})
		}
	}

	for _, p := range geometry.SelfIntersections(distinct, ring) {
		problems = append(problems, Problem{Message: "self-intersection", Where: p, HasWhere: true})
	}
	return problems
}

func points(flat []float64, stride int) []geometry.Point2D {
	if stride < 2 {
		return nil
	}
	out := make([]geometry.Point2D, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, geometry.NewPoint2D(flat[i], flat[i+1]))
	}
	return out
}
