package canvas

import (
	"image"
	"image/color"
	"io"
	"log"
	"math"
	"testing"

	"autotrace/internal/app"
	"autotrace/internal/crs"
	"autotrace/internal/features"
	"autotrace/internal/trace"
	"autotrace/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/twpayne/go-geom"
)

func TestBindingsMods(t *testing.T) {
	b := DefaultBindings()
	tests := []struct {
		in   fyne.KeyModifier
		want trace.Modifiers
	}{
		{0, 0},
		{fyne.KeyModifierShift, trace.ModTrace},
		{fyne.KeyModifierControl, trace.ModReverse},
		{fyne.KeyModifierShift | fyne.KeyModifierControl, trace.ModTrace | trace.ModReverse},
		{fyne.KeyModifierAlt, 0},
	}
	for _, tt := range tests {
		if got := b.Mods(tt.in); got != tt.want {
			t.Errorf("Mods(%v) got %v, want %v", tt.in, got, tt.want)
		}
	}

	alt := Bindings{Trace: "Alt", Reverse: "super"}
	if got := alt.Mods(fyne.KeyModifierAlt | fyne.KeyModifierShift); got != trace.ModTrace {
		t.Errorf("alt bindings got %v, want ModTrace", got)
	}
}

func TestBindingsKeyEvent(t *testing.T) {
	b := DefaultBindings()
	tests := []struct {
		key  fyne.KeyName
		down bool
		want trace.EventKind
		ok   bool
	}{
		{desktop.KeyShiftLeft, true, trace.EventModifierDown, true},
		{desktop.KeyShiftRight, false, trace.EventModifierUp, true},
		{desktop.KeyControlLeft, true, trace.EventReverseDown, true},
		{desktop.KeyControlRight, false, trace.EventReverseUp, true},
		{desktop.KeyAltLeft, true, 0, false},
		{fyne.KeyA, true, 0, false},
	}
	for _, tt := range tests {
		got, ok := b.KeyEvent(tt.key, tt.down)
		if ok != tt.ok || got != tt.want {
			t.Errorf("KeyEvent(%s, %v) got %v %v, want %v %v", tt.key, tt.down, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCommandKey(t *testing.T) {
	if k, ok := CommandKey(fyne.KeyBackspace); !ok || k != trace.EventBackspace {
		t.Errorf("backspace got %v %v", k, ok)
	}
	if k, ok := CommandKey(fyne.KeyEscape); !ok || k != trace.EventCancel {
		t.Errorf("escape got %v %v", k, ok)
	}
	if _, ok := CommandKey(fyne.KeyReturn); ok {
		t.Error("return should not map to a session event")
	}
}

func TestClipSegment(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	a, b, ok := clipSegment(geometry.NewPoint2D(-1000, 50), geometry.NewPoint2D(1000, 50), bounds)
	if !ok || math.Abs(a.X+4) > 1e-9 || math.Abs(b.X-104) > 1e-9 {
		t.Errorf("horizontal clip got %v %v %v", a, b, ok)
	}
	if _, _, ok := clipSegment(geometry.NewPoint2D(-50, -50), geometry.NewPoint2D(-10, -60), bounds); ok {
		t.Error("segment outside should be rejected")
	}
	a, b, ok = clipSegment(geometry.NewPoint2D(10, 10), geometry.NewPoint2D(20, 30), bounds)
	if !ok || a != geometry.NewPoint2D(10, 10) || b != geometry.NewPoint2D(20, 30) {
		t.Errorf("inside segment changed: %v %v", a, b)
	}
}

func TestSceneRender(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	scene := &Scene{
		Lines: []Polyline{{
			Points:    []geometry.Point2D{{X: 2, Y: 5}, {X: 18, Y: 5}},
			Color:     red,
			Thickness: 1,
		}},
		Marker:    geometry.NewPoint2D(10, 15),
		HasMarker: true,
	}
	img := scene.Render(20, 20)
	if got := img.RGBAAt(10, 5); got != red {
		t.Errorf("line pixel got %v, want %v", got, red)
	}
	if got := img.RGBAAt(10, 10); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("background pixel got %v, want white", got)
	}
	if got := img.RGBAAt(10, 15); got != rgba(app.ColorIndicator) {
		t.Errorf("marker pixel got %v, want indicator color", got)
	}
}

func TestBuildScene(t *testing.T) {
	state := app.NewState(3, nil, log.New(io.Discard, "", 0))
	layer := features.NewLayer("parcels", "Parcels", features.TypePolygon, crs.WebMercator)
	layer.SetSnappable(true)
	if err := state.Store.AddLayer(layer); err != nil {
		t.Fatal(err)
	}
	layer.Add(&features.Feature{Geometry: geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0, 0}, {10, 0}, {10, -10}, {0, 0},
	}})})
	edit := features.NewLayer("edit", "Edit", features.TypeLine, crs.WebMercator)
	edit.SetEditable(true)
	state.Store.AddLayer(edit)
	if err := state.SetActiveLayer("edit"); err != nil {
		t.Fatal(err)
	}
	if err := state.ActivateTool(); err != nil {
		t.Fatal(err)
	}

	scene := BuildScene(state)
	if len(scene.Lines) != 1 || len(scene.Lines[0].Points) != 3 || !scene.Lines[0].Closed {
		t.Fatalf("scene lines got %+v, want one closed ring of 3 points", scene.Lines)
	}
	if scene.Lines[0].Points[2] != geometry.NewPoint2D(10, 10) {
		t.Errorf("screen point got %v, want (10,10)", scene.Lines[0].Points[2])
	}

	state.HandleEvent(trace.PrimaryClick(geometry.NewPoint2D(10, 0)))
	state.HandleEvent(trace.PointerMove(geometry.NewPoint2D(30, 30), 0))
	scene = BuildScene(state)
	if len(scene.Lines) != 3 {
		t.Fatalf("got %d lines, want ring, committed and rubber band", len(scene.Lines))
	}
	if rubber := scene.Lines[2].Points; len(rubber) != 2 || rubber[1] != geometry.NewPoint2D(30, 30) {
		t.Errorf("rubber band got %v", rubber)
	}
	if scene.HasMarker {
		t.Error("no marker expected away from vertices")
	}
}

func TestToPointUsesRasterPixels(t *testing.T) {
	tests := []struct {
		pos   fyne.Position
		scale float32
		want  geometry.Point2D
	}{
		{fyne.NewPos(10, 7.5), 1, geometry.NewPoint2D(10, 7.5)},
		{fyne.NewPos(10, 7.5), 2, geometry.NewPoint2D(20, 15)},
		{fyne.NewPos(4, 4), 1.5, geometry.NewPoint2D(6, 6)},
	}
	for _, tt := range tests {
		if got := toPoint(tt.pos, tt.scale); got != tt.want {
			t.Errorf("toPoint(%v, %v) got %v, want %v", tt.pos, tt.scale, got, tt.want)
		}
	}
}
