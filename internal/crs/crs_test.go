package crs

import (
	"errors"
	"math"
	"testing"

	"autotrace/pkg/geometry"
)

func TestReprojectIdentity(t *testing.T) {
	r := NewRegistry()
	p := geometry.NewPoint2D(3, 4)
	got, err := r.Reproject(p, "epsg:27700", "EPSG:27700")
	if err != nil {
		t.Fatalf("Reproject: %v", err)
	}
	if got != p {
		t.Errorf("got %v, want %v", got, p)
	}
}

func TestReprojectMercatorRoundTrip(t *testing.T) {
	r := NewRegistry()
	p := geometry.NewPoint2D(-0.1276, 51.5072)
	m, err := r.Reproject(p, WGS84, WebMercator)
	if err != nil {
		t.Fatalf("to mercator: %v", err)
	}
	if math.Abs(m.X-(-14204.28)) > 1 {
		t.Errorf("mercator X got %v, want about -14204", m.X)
	}
	back, err := r.Reproject(m, WebMercator, WGS84)
	if err != nil {
		t.Fatalf("to lon/lat: %v", err)
	}
	if back.Distance(p) > 1e-9 {
		t.Errorf("round trip got %v, want %v", back, p)
	}
}

func TestReprojectUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Reproject(geometry.Point2D{}, "EPSG:1", "EPSG:2")
	if !errors.Is(err, ErrUnknownCRS) {
		t.Errorf("got %v, want ErrUnknownCRS", err)
	}
	if r.Has("EPSG:1", "EPSG:2") {
		t.Error("Has should be false for unregistered pair")
	}
}

func TestRegisterAffineInstallsInverse(t *testing.T) {
	r := NewRegistry()
	tr := geometry.Translation(100, 200)
	if err := r.RegisterAffine("LOCAL:A", "LOCAL:B", tr); err != nil {
		t.Fatalf("RegisterAffine: %v", err)
	}
	got, err := r.Reproject(geometry.NewPoint2D(101, 202), "LOCAL:B", "LOCAL:A")
	if err != nil {
		t.Fatalf("Reproject: %v", err)
	}
	if got.Distance(geometry.NewPoint2D(1, 2)) > 1e-9 {
		t.Errorf("got %v, want (1,2)", got)
	}
	if err := r.RegisterAffine("LOCAL:A", "LOCAL:C", geometry.Scale(0, 0)); err == nil {
		t.Error("singular transform should be rejected")
	}
}

func TestFitAffine(t *testing.T) {
	want := geometry.AffineTransform{A: 2, B: 0.5, TX: 10, C: -0.25, D: 3, TY: -4}
	var cps []ControlPoint
	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 7, Y: 3}, {X: -4, Y: 9}} {
		cps = append(cps, ControlPoint{Src: p, Dst: want.Apply(p)})
	}
	got, err := FitAffine(cps)
	if err != nil {
		t.Fatalf("FitAffine: %v", err)
	}
	if res := Residual(got, cps); res > 1e-9 {
		t.Errorf("residual got %v, want ~0", res)
	}
	if math.Abs(got.A-want.A) > 1e-9 || math.Abs(got.TY-want.TY) > 1e-9 {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestFitAffineTooFewPoints(t *testing.T) {
	if _, err := FitAffine([]ControlPoint{{}, {}}); err == nil {
		t.Error("expected error for two control points")
	}
}
