// Package project provides project file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"autotrace/internal/crs"
	"autotrace/internal/features"
)

// Extension is the file extension of project files.
const Extension = ".atproj"

// File represents an autotrace project file (.atproj).
type File struct {
	Version     int       `json:"version"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Description string    `json:"description,omitempty"`

	// Map coordinate system that vertices are drawn and snapped in
	MapCRS crs.ID `json:"map_crs"`
	View   View   `json:"view"`

	// Layers in draw order; paths are relative to the project file
	Layers      []LayerSpec `json:"layers"`
	ActiveLayer string      `json:"active_layer,omitempty"`

	// Control point fits for systems without a built-in conversion
	Transforms []TransformSpec `json:"transforms,omitempty"`
}

// View is the initial viewport: the map point at the top-left screen corner
// and the map units covered by one pixel.
type View struct {
	OriginX       float64 `json:"origin_x"`
	OriginY       float64 `json:"origin_y"`
	UnitsPerPixel float64 `json:"units_per_pixel,omitempty"`
}

// LayerSpec describes one layer and its backing GeoJSON file.
type LayerSpec struct {
	ID        string                `json:"id"`
	Name      string                `json:"name,omitempty"`
	Path      string                `json:"path"`
	Type      features.GeometryType `json:"type"`
	CRS       crs.ID                `json:"crs,omitempty"`
	Editable  bool                  `json:"editable,omitempty"`
	Snappable bool                  `json:"snappable,omitempty"`
	Hidden    bool                  `json:"hidden,omitempty"`
}

// TransformSpec fits an affine transform from Src to Dst through control points.
type TransformSpec struct {
	Src    crs.ID             `json:"src"`
	Dst    crs.ID             `json:"dst"`
	Points []crs.ControlPoint `json:"points"`
}

// New creates a new project file with default settings.
func New(name string, mapCRS crs.ID) *File {
	now := time.Now()
	return &File{
		Version:  1,
		Name:     name,
		Created:  now,
		Modified: now,
		MapCRS:   mapCRS,
		View:     View{UnitsPerPixel: 1},
	}
}

// Load loads a project from a .atproj file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if proj.View.UnitsPerPixel <= 0 {
		proj.View.UnitsPerPixel = 1
	}
	for i, l := range proj.Layers {
		if l.ID == "" {
			return nil, fmt.Errorf("parse %s: layer %d has no id", path, i)
		}
		if _, ok := l.Type.TraceKind(); !ok && l.Type != features.TypePoint {
			return nil, fmt.Errorf("parse %s: layer %s has unknown type %q", path, l.ID, l.Type)
		}
	}

	return &proj, nil
}

// Save saves the project to a file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AddLayer appends a layer spec, storing its path relative to the project.
func (p *File) AddLayer(projectPath string, spec LayerSpec) {
	rel, err := filepath.Rel(filepath.Dir(projectPath), spec.Path)
	if err == nil && filepath.IsAbs(spec.Path) {
		spec.Path = rel
	}
	p.Layers = append(p.Layers, spec)
	p.Modified = time.Now()
}

// LayerPath returns the absolute path of a layer's GeoJSON file.
func (p *File) LayerPath(projectPath string, spec LayerSpec) string {
	if spec.Path == "" {
		// Default: project_name_<layer>.geojson
		base := projectPath[:len(projectPath)-len(filepath.Ext(projectPath))]
		return base + "_" + spec.ID + ".geojson"
	}
	if filepath.IsAbs(spec.Path) {
		return spec.Path
	}
	return filepath.Join(filepath.Dir(projectPath), spec.Path)
}

// Registry builds the CRS registry: the built-in conversions plus one fitted
// affine transform per TransformSpec.
func (p *File) Registry() (*crs.Registry, error) {
	reg := crs.NewRegistry()
	for _, t := range p.Transforms {
		fit, err := crs.FitAffine(t.Points)
		if err != nil {
			return nil, fmt.Errorf("transform %s -> %s: %w", t.Src, t.Dst, err)
		}
		if err := reg.RegisterAffine(t.Src, t.Dst, fit); err != nil {
			return nil, err
		}
		log.Printf("Project: fitted %s -> %s from %d points, rms %.4f",
			t.Src, t.Dst, len(t.Points), crs.Residual(fit, t.Points))
	}
	return reg, nil
}

// LoadLayers reads every layer file into a new store. Missing files of
// editable layers start empty; missing read-only layers are an error.
func (p *File) LoadLayers(projectPath string) (*features.Store, error) {
	store := features.NewStore()
	for _, spec := range p.Layers {
		ref := spec.CRS
		if ref == "" {
			ref = p.MapCRS
		}
		layer := features.NewLayer(spec.ID, spec.Name, spec.Type, ref)
		if layer.Name == "" {
			layer.Name = spec.ID
		}
		layer.Path = p.LayerPath(projectPath, spec)

		if err := ReadLayer(layer.Path, layer); err != nil {
			if !(os.IsNotExist(err) && spec.Editable) {
				return nil, fmt.Errorf("layer %s: %w", spec.ID, err)
			}
			log.Printf("Project: %s does not exist, starting empty layer %s", layer.Path, spec.ID)
		}
		layer.MarkSaved()
		layer.SetEditable(spec.Editable)
		layer.SetSnappable(spec.Snappable)
		layer.SetVisible(!spec.Hidden)

		if err := store.AddLayer(layer); err != nil {
			return nil, err
		}
		log.Printf("Project: loaded layer %s (%s, %d features)", spec.ID, spec.Type, layer.Count())
	}
	return store, nil
}

// SaveLayers writes every modified layer back to its file.
func SaveLayers(store *features.Store) error {
	for _, layer := range store.Modified() {
		if layer.Path == "" {
			continue
		}
		if err := WriteLayer(layer.Path, layer); err != nil {
			return fmt.Errorf("layer %s: %w", layer.ID, err)
		}
		layer.MarkSaved()
		log.Printf("Project: saved layer %s to %s", layer.ID, layer.Path)
	}
	return nil
}
