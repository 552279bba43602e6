package project

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"autotrace/internal/features"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// ReadLayer adds the features of a GeoJSON FeatureCollection file to layer.
// Features without geometry or of the wrong type are skipped with a log line.
func ReadLayer(path string, layer *features.Layer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for i, f := range fc.Features {
		if f.Geometry == nil {
			log.Printf("Project: %s feature %d has no geometry, skipped", path, i)
			continue
		}
		props := f.Properties
		if props == nil {
			props = make(map[string]interface{})
		}
		if _, err := layer.Add(&features.Feature{ID: f.ID, Geometry: f.Geometry, Properties: props}); err != nil {
			log.Printf("Project: %s feature %d: %v", path, i, err)
		}
	}
	return nil
}

// WriteLayer writes the features of layer as a GeoJSON FeatureCollection.
func WriteLayer(path string, layer *features.Layer) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, layer.Count())}
	for _, f := range layer.Features() {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         f.ID,
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}

	data, err := json.MarshalIndent(&fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
