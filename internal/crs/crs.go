// Package crs converts points between coordinate reference systems.
package crs

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"autotrace/pkg/geometry"
)

// ID names a coordinate reference system by authority code, e.g. "EPSG:4326".
type ID string

// Well-known systems with built-in conversions.
const (
	WGS84        ID = "EPSG:4326"
	WebMercator  ID = "EPSG:3857"
	earthRadius     = 6378137.0
	maxMercatorY    = 85.0511287798066
)

// ErrUnknownCRS is returned when no conversion between two systems is registered.
var ErrUnknownCRS = errors.New("no transformation registered")

// Normalize canonicalizes an authority code for comparison.
func Normalize(id ID) ID {
	return ID(strings.ToUpper(strings.TrimSpace(string(id))))
}

// Transformer converts a point from one system into another.
type Transformer interface {
	Transform(p geometry.Point2D) (geometry.Point2D, error)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(p geometry.Point2D) (geometry.Point2D, error)

// Transform calls f(p).
func (f TransformerFunc) Transform(p geometry.Point2D) (geometry.Point2D, error) {
	return f(p)
}

// Affine wraps an affine transform as a Transformer.
type Affine geometry.AffineTransform

// Transform applies the affine transform.
func (a Affine) Transform(p geometry.Point2D) (geometry.Point2D, error) {
	return geometry.AffineTransform(a).Apply(p), nil
}

type pair struct {
	src, dst ID
}

// Registry holds transformers keyed by (source, destination) system.
type Registry struct {
	mu           sync.RWMutex
	transformers map[pair]Transformer
}

// NewRegistry creates a registry preloaded with the WGS84/Web Mercator pair.
func NewRegistry() *Registry {
	r := &Registry{transformers: make(map[pair]Transformer)}
	r.Register(WGS84, WebMercator, TransformerFunc(lonLatToMercator))
	r.Register(WebMercator, WGS84, TransformerFunc(mercatorToLonLat))
	return r
}

// Register installs a transformer from src to dst, replacing any existing one.
func (r *Registry) Register(src, dst ID, t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[pair{Normalize(src), Normalize(dst)}] = t
}

// RegisterAffine installs an affine transform from src to dst and its inverse
// from dst to src.
func (r *Registry) RegisterAffine(src, dst ID, t geometry.AffineTransform) error {
	inv, ok := t.Inverse()
	if !ok {
		return fmt.Errorf("register %s -> %s: transform is not invertible", src, dst)
	}
	r.Register(src, dst, Affine(t))
	r.Register(dst, src, Affine(inv))
	return nil
}

// Has reports whether a conversion from src to dst is available.
func (r *Registry) Has(src, dst ID) bool {
	src, dst = Normalize(src), Normalize(dst)
	if src == dst {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.transformers[pair{src, dst}]
	return ok
}

// Reproject converts p from src to dst. Equal systems are an identity.
func (r *Registry) Reproject(p geometry.Point2D, src, dst ID) (geometry.Point2D, error) {
	src, dst = Normalize(src), Normalize(dst)
	if src == dst {
		return p, nil
	}
	r.mu.RLock()
	t, ok := r.transformers[pair{src, dst}]
	r.mu.RUnlock()
	if !ok {
		return p, fmt.Errorf("%s -> %s: %w", src, dst, ErrUnknownCRS)
	}
	out, err := t.Transform(p)
	if err != nil {
		return p, fmt.Errorf("%s -> %s: %w", src, dst, err)
	}
	return out, nil
}

func lonLatToMercator(p geometry.Point2D) (geometry.Point2D, error) {
	lat := math.Max(-maxMercatorY, math.Min(maxMercatorY, p.Y))
	x := earthRadius * p.X * math.Pi / 180
	y := earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return geometry.Point2D{X: x, Y: y}, nil
}

func mercatorToLonLat(p geometry.Point2D) (geometry.Point2D, error) {
	lon := p.X / earthRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(p.Y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return geometry.Point2D{X: lon, Y: lat}, nil
}
