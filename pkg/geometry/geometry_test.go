package geometry

import (
	"math"
	"testing"
)

func TestAffineInverse(t *testing.T) {
	tr := Translation(10, -5).Compose(Scale(2, 3))
	inv, ok := tr.Inverse()
	if !ok {
		t.Fatal("Inverse reported singular transform")
	}
	p := NewPoint2D(7, 11)
	got := inv.Apply(tr.Apply(p))
	if got.Distance(p) > 1e-9 {
		t.Errorf("round trip got %v, want %v", got, p)
	}
}

func TestAffineInverseSingular(t *testing.T) {
	if _, ok := Scale(0, 1).Inverse(); ok {
		t.Error("Inverse should fail for a degenerate transform")
	}
}

func TestScaleFactor(t *testing.T) {
	if got := Scale(4, 4).ScaleFactor(); math.Abs(got-4) > 1e-12 {
		t.Errorf("ScaleFactor got %v, want 4", got)
	}
}

func TestBoundingBox(t *testing.T) {
	r := BoundingBox([]Point2D{{1, 5}, {-2, 3}, {4, -1}})
	want := Rect{X: -2, Y: -1, Width: 6, Height: 6}
	if r != want {
		t.Errorf("BoundingBox got %+v, want %+v", r, want)
	}
	if !r.Contains(NewPoint2D(0, 0)) {
		t.Error("box should contain origin")
	}
}

func TestDedupConsecutive(t *testing.T) {
	in := []Point2D{{0, 0}, {0, 0}, {1, 1}, {0, 0}, {0, 0}}
	got := DedupConsecutive(in)
	if len(got) != 3 {
		t.Fatalf("got %v, want 3 points", got)
	}
	if got[2] != (Point2D{0, 0}) {
		t.Errorf("non-consecutive duplicate should survive, got %v", got)
	}
}

func TestSegmentIntersection(t *testing.T) {
	p, ok := SegmentIntersection(Point2D{0, 0}, Point2D{2, 2}, Point2D{0, 2}, Point2D{2, 0})
	if !ok {
		t.Fatal("expected crossing diagonals to intersect")
	}
	if p.Distance(Point2D{1, 1}) > 1e-9 {
		t.Errorf("got %v, want (1,1)", p)
	}
	if _, ok := SegmentIntersection(Point2D{0, 0}, Point2D{1, 0}, Point2D{2, 1}, Point2D{3, -1}); ok {
		t.Error("disjoint segments should not intersect")
	}
}

func TestSelfIntersections(t *testing.T) {
	square := []Point2D{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	if hits := SelfIntersections(square, true); len(hits) != 0 {
		t.Errorf("square should be simple, got %v", hits)
	}
	bowtie := []Point2D{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}
	if hits := SelfIntersections(bowtie, true); len(hits) == 0 {
		t.Error("bowtie should self-intersect")
	}
	zigzag := []Point2D{{0, 0}, {2, 0}, {2, 1}, {1, -1}}
	if hits := SelfIntersections(zigzag, false); len(hits) != 1 {
		t.Errorf("open zigzag got %d hits, want 1", len(hits))
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Point2D{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	if !PointInPolygon(Point2D{2, 2}, square) {
		t.Error("center should be inside")
	}
	if PointInPolygon(Point2D{5, 2}, square) {
		t.Error("point right of square should be outside")
	}
}

func TestSignedArea(t *testing.T) {
	ccw := []Point2D{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	if got := SignedArea(ccw); got != 4 {
		t.Errorf("SignedArea got %v, want 4", got)
	}
}
