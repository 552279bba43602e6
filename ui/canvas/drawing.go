package canvas

import (
	"image"
	"image/color"
	"math"

	"autotrace/pkg/geometry"
)

// drawPolyline draws the segments of a polyline, closing it if requested.
func drawPolyline(output *image.RGBA, line Polyline) {
	n := len(line.Points)
	if n == 0 {
		return
	}
	if n == 1 {
		drawDot(output, line.Points[0], line.Thickness, line.Color)
		return
	}
	segments := n - 1
	if line.Closed && n > 2 {
		segments = n
	}
	for i := 0; i < segments; i++ {
		a, b := line.Points[i], line.Points[(i+1)%n]
		if ca, cb, ok := clipSegment(a, b, output.Bounds()); ok {
			drawLine(output, int(math.Round(ca.X)), int(math.Round(ca.Y)), int(math.Round(cb.X)), int(math.Round(cb.Y)), line.Color, line.Thickness)
		}
	}
}

// clipSegment clips a-b to the rectangle grown by a small margin
// (Liang-Barsky). ok is false when the segment lies entirely outside.
func clipSegment(a, b geometry.Point2D, bounds image.Rectangle) (geometry.Point2D, geometry.Point2D, bool) {
	const margin = 4
	minX, minY := float64(bounds.Min.X-margin), float64(bounds.Min.Y-margin)
	maxX, maxY := float64(bounds.Max.X+margin), float64(bounds.Max.Y+margin)

	dx, dy := b.X-a.X, b.Y-a.Y
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, a.X - minX},
		{dx, maxX - a.X},
		{-dy, a.Y - minY},
		{dy, maxY - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return a, b, false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return a, b, false
			}
			if r < t1 {
				t1 = r
			}
		}
	}
	return geometry.Point2D{X: a.X + t0*dx, Y: a.Y + t0*dy},
		geometry.Point2D{X: a.X + t1*dx, Y: a.Y + t1*dy}, true
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := output.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				px, py := x1+s, y1+t
				if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
					output.SetRGBA(px, py, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawDot fills a circle of radius r around p.
func drawDot(output *image.RGBA, p geometry.Point2D, r int, col color.RGBA) {
	bounds := output.Bounds()
	cx, cy := int(math.Round(p.X)), int(math.Round(p.Y))
	r2 := r * r
	for y := cy - r; y <= cy+r; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := cx - r; x <= cx+r; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			if dx, dy := x-cx, y-cy; dx*dx+dy*dy <= r2 {
				output.SetRGBA(x, y, col)
			}
		}
	}
}

// drawCross draws the snap marker: a diagonal cross of the given half size.
func drawCross(output *image.RGBA, p geometry.Point2D, size int, col color.RGBA) {
	cx, cy := int(math.Round(p.X)), int(math.Round(p.Y))
	drawLine(output, cx-size, cy-size, cx+size, cy+size, col, 2)
	drawLine(output, cx-size, cy+size, cx+size, cy-size, col, 2)
}
