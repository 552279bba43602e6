package project

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"autotrace/internal/crs"
	"autotrace/internal/features"
	"autotrace/pkg/geometry"

	"github.com/twpayne/go-geom"
)

const parcelsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "p1", "properties": {"owner": "a"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"type": "Feature", "id": "p2", "properties": null, "geometry": null},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Point", "coordinates": [1,1]}}
  ]
}`

func writeProject(t *testing.T) (string, *File) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "parcels.geojson"), []byte(parcelsJSON), 0644); err != nil {
		t.Fatal(err)
	}
	proj := New("test", "EPSG:27700")
	path := filepath.Join(dir, "test"+Extension)
	proj.AddLayer(path, LayerSpec{ID: "parcels", Path: filepath.Join(dir, "parcels.geojson"), Type: features.TypePolygon, Snappable: true})
	proj.AddLayer(path, LayerSpec{ID: "edit", Type: features.TypeLine, Editable: true})
	proj.Transforms = []TransformSpec{{
		Src: "EPSG:27700",
		Dst: "LOCAL:SHEET",
		Points: []crs.ControlPoint{
			{Src: geometry.NewPoint2D(0, 0), Dst: geometry.NewPoint2D(5, 5)},
			{Src: geometry.NewPoint2D(1, 0), Dst: geometry.NewPoint2D(7, 5)},
			{Src: geometry.NewPoint2D(0, 1), Dst: geometry.NewPoint2D(5, 7)},
		},
	}}
	if err := proj.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path, proj
}

func TestLoadRoundTrip(t *testing.T) {
	path, _ := writeProject(t)
	proj, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if proj.MapCRS != "EPSG:27700" || len(proj.Layers) != 2 {
		t.Fatalf("got map crs %s and %d layers", proj.MapCRS, len(proj.Layers))
	}
	if proj.Layers[0].Path != "parcels.geojson" {
		t.Errorf("layer path got %q, want relative path", proj.Layers[0].Path)
	}
	if got, want := proj.LayerPath(path, proj.Layers[1]), filepath.Join(filepath.Dir(path), "test_edit.geojson"); got != want {
		t.Errorf("default layer path got %q, want %q", got, want)
	}
}

func TestLoadLayers(t *testing.T) {
	path, proj := writeProject(t)
	store, err := proj.LoadLayers(path)
	if err != nil {
		t.Fatalf("LoadLayers: %v", err)
	}
	parcels, err := store.Layer("parcels")
	if err != nil {
		t.Fatal(err)
	}
	if parcels.Count() != 1 {
		t.Errorf("parcels got %d features, want 1", parcels.Count())
	}
	if parcels.Modified() || !parcels.Snappable() || parcels.Editable() {
		t.Error("parcels flags not applied")
	}
	f, err := parcels.Feature("p1")
	if err != nil {
		t.Fatal(err)
	}
	if f.Properties["owner"] != "a" {
		t.Errorf("properties got %v", f.Properties)
	}
	edit, _ := store.Layer("edit")
	if edit == nil || edit.Count() != 0 || !edit.Editable() || edit.CRS != "EPSG:27700" {
		t.Errorf("edit layer got %+v", edit)
	}
}

func TestLoadLayersMissingReadOnly(t *testing.T) {
	dir := t.TempDir()
	proj := New("test", "EPSG:27700")
	proj.Layers = []LayerSpec{{ID: "roads", Path: "roads.geojson", Type: features.TypeLine}}
	if _, err := proj.LoadLayers(filepath.Join(dir, "p.atproj")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want a not-exist error", err)
	}
}

func TestSaveLayers(t *testing.T) {
	path, proj := writeProject(t)
	store, err := proj.LoadLayers(path)
	if err != nil {
		t.Fatal(err)
	}
	edit, _ := store.Layer("edit")
	line := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{0, 0}, {10, 0}, {10, 10}})
	if _, err := edit.Add(&features.Feature{Geometry: line, Properties: map[string]interface{}{}}); err != nil {
		t.Fatal(err)
	}
	if err := SaveLayers(store); err != nil {
		t.Fatalf("SaveLayers: %v", err)
	}
	if edit.Modified() {
		t.Error("saved layer should not be modified")
	}

	reread := features.NewLayer("edit", "edit", features.TypeLine, "")
	if err := ReadLayer(edit.Path, reread); err != nil {
		t.Fatalf("ReadLayer: %v", err)
	}
	fs := reread.Features()
	if len(fs) != 1 || fs[0].ID != "1" {
		t.Fatalf("reread got %v", fs)
	}
	if got := fs[0].Geometry.FlatCoords(); len(got) != 6 || got[4] != 10 || got[5] != 10 {
		t.Errorf("coordinates got %v", got)
	}
}

func TestRegistryFromControlPoints(t *testing.T) {
	_, proj := writeProject(t)
	reg, err := proj.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	got, err := reg.Reproject(geometry.NewPoint2D(2, 3), "EPSG:27700", "LOCAL:SHEET")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got.X-9) > 1e-9 || math.Abs(got.Y-11) > 1e-9 {
		t.Errorf("got %v, want (9,11)", got)
	}
	back, err := reg.Reproject(got, "LOCAL:SHEET", "EPSG:27700")
	if err != nil || back.Distance(geometry.NewPoint2D(2, 3)) > 1e-9 {
		t.Errorf("inverse got %v %v", back, err)
	}
}
