package replay

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"autotrace/internal/app"
	"autotrace/internal/features"
	"autotrace/internal/project"
	"autotrace/internal/trace"

	"github.com/twpayne/go-geom"
)

const parcelsJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"p1","properties":{},
  "geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[20,0],[20,10],[20,20],[10,20],[0,20],[0,10],[0,0]]]}}]}`

// Map origin (-10, 30) at one unit per pixel: screen = (x+10, 30-y).
func loadState(t *testing.T, kind features.GeometryType) *app.State {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "parcels.geojson"), []byte(parcelsJSON), 0644); err != nil {
		t.Fatal(err)
	}
	proj := project.New("replay", "EPSG:27700")
	proj.View = project.View{OriginX: -10, OriginY: 30, UnitsPerPixel: 1}
	proj.Layers = []project.LayerSpec{
		{ID: "parcels", Path: "parcels.geojson", Type: features.TypePolygon, Snappable: true},
		{ID: "edit", Path: "edit.geojson", Type: kind, Editable: true},
	}
	path := filepath.Join(dir, "replay.atproj")
	if err := proj.Save(path); err != nil {
		t.Fatal(err)
	}
	state := app.NewState(3, features.Always(false), log.New(io.Discard, "", 0))
	if err := state.LoadProject(path); err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	return state
}

func TestParse(t *testing.T) {
	events, err := Parse([]byte(`[
		{"kind": "move", "x": 1, "y": 2, "mods": ["trace", "reverse"]},
		{"kind": "click", "x": 3, "y": 4},
		{"kind": "modifier_down"},
		{"kind": "rclick"}
	]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if events[0].Mods != trace.ModTrace|trace.ModReverse || events[0].Pos.Y != 2 {
		t.Errorf("move got %+v", events[0])
	}
	if events[1].Kind != trace.EventPrimaryClick || events[3].Kind != trace.EventSecondaryClick {
		t.Errorf("kinds got %v, %v", events[1].Kind, events[3].Kind)
	}

	if _, err := Parse([]byte(`[{"kind": "jump"}]`)); err == nil {
		t.Error("unknown kind should fail")
	}
	if _, err := Parse([]byte(`[{"kind": "move", "mods": ["hyper"]}]`)); err == nil {
		t.Error("unknown modifier should fail")
	}
}

func TestParseMovesKeepHeldModifiers(t *testing.T) {
	events, err := Parse([]byte(`[
		{"kind": "modifier_down"},
		{"kind": "move", "x": 1, "y": 1},
		{"kind": "reverse_down"},
		{"kind": "move", "x": 2, "y": 2},
		{"kind": "move", "x": 3, "y": 3, "mods": []},
		{"kind": "move", "x": 4, "y": 4},
		{"kind": "modifier_down"},
		{"kind": "modifier_up"},
		{"kind": "move", "x": 5, "y": 5}
	]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tests := []struct {
		step int
		want trace.Modifiers
	}{
		{1, trace.ModTrace},
		{3, trace.ModTrace | trace.ModReverse},
		{4, 0},
		{5, 0},
		{8, 0},
	}
	for _, tt := range tests {
		if got := events[tt.step].Mods; got != tt.want {
			t.Errorf("step %d mods got %v, want %v", tt.step, got, tt.want)
		}
	}
}

func TestRunWithModifierKeySteps(t *testing.T) {
	state := loadState(t, features.TypeLine)
	events, err := Parse([]byte(`[
		{"kind": "click", "x": 20, "y": 30},
		{"kind": "modifier_down"},
		{"kind": "move", "x": 10, "y": 10},
		{"kind": "click", "x": 10, "y": 10},
		{"kind": "modifier_up"},
		{"kind": "rclick", "x": 10, "y": 10}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := Run(state, events)
	if err != nil || len(res.Finished) != 1 {
		t.Fatalf("Run got %+v, %v", res, err)
	}
	edit, _ := state.Store.Layer("edit")
	f, _ := edit.Feature(res.Finished[0])
	// (10,0) (0,0) (0,10) (0,20)
	if n := f.Geometry.(*geom.LineString).NumCoords(); n != 4 {
		t.Errorf("line has %d coordinates, want 4: %v", n, f.Geometry.FlatCoords())
	}
}

func TestRunTracesWrapArc(t *testing.T) {
	state := loadState(t, features.TypeLine)
	// Anchor on (10,0), trace to (0,20): the shorter arc passes (0,0) and (0,10).
	events, err := Parse([]byte(`[
		{"kind": "click", "x": 20, "y": 30},
		{"kind": "modifier_down"},
		{"kind": "move", "x": 10, "y": 10, "mods": ["trace"]},
		{"kind": "click", "x": 10, "y": 10},
		{"kind": "modifier_up"},
		{"kind": "rclick", "x": 10, "y": 10}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := Run(state, events)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Events != 6 || len(res.Errors) != 0 || len(res.Finished) != 1 {
		t.Fatalf("result got %+v", res)
	}
	edit, _ := state.Store.Layer("edit")
	f, err := edit.Feature(res.Finished[0])
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{10, 0, 0, 0, 0, 10, 0, 20}
	got := f.Geometry.(*geom.LineString).FlatCoords()
	if len(got) != len(want) {
		t.Fatalf("line got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line got %v, want %v", got, want)
		}
	}
	if state.ToolActive() {
		t.Error("tool should be deactivated after the replay")
	}
}

func TestRunReverseTracesPolygon(t *testing.T) {
	state := loadState(t, features.TypePolygon)
	events, err := Parse([]byte(`[
		{"kind": "click", "x": 20, "y": 30},
		{"kind": "move", "x": 10, "y": 10, "mods": ["trace", "reverse"]},
		{"kind": "click", "x": 10, "y": 10},
		{"kind": "move", "x": 100, "y": 100},
		{"kind": "rclick", "x": 100, "y": 100}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := Run(state, events)
	if err != nil || len(res.Finished) != 1 {
		t.Fatalf("Run got %+v, %v", res, err)
	}
	edit, _ := state.Store.Layer("edit")
	f, _ := edit.Feature(res.Finished[0])
	poly := f.Geometry.(*geom.Polygon)
	// (10,0) (20,0) (20,10) (20,20) (10,20) (0,20), closed.
	if n := poly.NumCoords(); n != 7 {
		t.Errorf("polygon has %d coordinates, want 7: %v", n, poly.FlatCoords())
	}
}

func TestRunCollectsFinishErrors(t *testing.T) {
	state := loadState(t, features.TypeLine)
	events, _ := Parse([]byte(`[{"kind": "click", "x": 90, "y": 90}, {"kind": "rclick", "x": 90, "y": 90}]`))
	res, err := Run(state, events)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], trace.ErrTooFewVertices) {
		t.Errorf("errors got %v, want ErrTooFewVertices", res.Errors)
	}
}

func TestRunNeedsEditableLayer(t *testing.T) {
	state := loadState(t, features.TypeLine)
	if err := state.SetActiveLayer("parcels"); err != nil {
		t.Fatal(err)
	}
	if _, err := Run(state, nil); !errors.Is(err, app.ErrToolDisabled) {
		t.Errorf("got %v, want ErrToolDisabled", err)
	}
}
