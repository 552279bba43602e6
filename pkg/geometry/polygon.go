package geometry

import "math"

const epsilon = 1e-10

// DedupConsecutive returns points with consecutive duplicates removed.
func DedupConsecutive(points []Point2D) []Point2D {
	if len(points) == 0 {
		return nil
	}
	out := make([]Point2D, 0, len(points))
	out = append(out, points[0])
	for _, p := range points[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// SegmentIntersection computes the intersection point of segments p1-p2 and
// e1-e2. Parallel and collinear segments report no intersection.
func SegmentIntersection(p1, p2, e1, e2 Point2D) (Point2D, bool) {
	x1, y1 := p1.X, p1.Y
	x2, y2 := p2.X, p2.Y
	x3, y3 := e1.X, e1.Y
	x4, y4 := e2.X, e2.Y

	denom := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if math.Abs(denom) < epsilon {
		return Point2D{}, false
	}

	t := ((x1-x3)*(y3-y4) - (y1-y3)*(x3-x4)) / denom
	u := -((x1-x2)*(y1-y3) - (y1-y2)*(x1-x3)) / denom
	if t < -epsilon || t > 1+epsilon || u < -epsilon || u > 1+epsilon {
		return Point2D{}, false
	}

	return Point2D{
		X: x1 + t*(x2-x1),
		Y: y1 + t*(y2-y1),
	}, true
}

// SelfIntersections returns the points where non-adjacent edges of a path
// cross. When closed is true the path is treated as a ring and the closing
// edge from the last point back to the first is included.
func SelfIntersections(path []Point2D, closed bool) []Point2D {
	pts := path
	if closed && len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	n := len(pts)
	edges := n - 1
	if closed {
		edges = n
	}
	if edges < 3 {
		return nil
	}

	var hits []Point2D
	for i := 0; i < edges; i++ {
		a1, a2 := pts[i], pts[(i+1)%n]
		for j := i + 2; j < edges; j++ {
			// First and last edges of a ring share a vertex.
			if closed && i == 0 && j == edges-1 {
				continue
			}
			b1, b2 := pts[j], pts[(j+1)%n]
			if p, ok := SegmentIntersection(a1, a2, b1, b2); ok {
				hits = append(hits, p)
			}
		}
	}
	return hits
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]

		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// SignedArea returns the shoelace area of a ring; positive when the ring is
// counter-clockwise.
func SignedArea(ring []Point2D) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}
