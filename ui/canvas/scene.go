package canvas

import (
	"image"
	"image/color"

	"autotrace/internal/app"
	"autotrace/internal/crs"
	"autotrace/internal/features"
	"autotrace/internal/trace"
	"autotrace/pkg/geometry"
)

// Polyline is a run of screen points drawn with one color.
type Polyline struct {
	Points    []geometry.Point2D
	Closed    bool
	Color     color.RGBA
	Thickness int
}

// Scene is a snapshot of everything drawn on the trace canvas, in screen
// coordinates.
type Scene struct {
	Lines     []Polyline
	Points    []geometry.Point2D // Point features
	Marker    geometry.Point2D
	HasMarker bool
}

func rgba(c color.NRGBA) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// BuildScene captures the visible layers and the trace in progress.
func BuildScene(state *app.State) *Scene {
	scene := &Scene{}
	vp := state.Session.Viewport()
	mapCRS := state.Project.MapCRS
	active := state.ActiveLayer()

	for _, layer := range state.Store.Layers() {
		if !layer.Visible() {
			continue
		}
		col := rgba(app.ColorFeature)
		if layer.ID == active {
			col = rgba(app.ColorEditFeature)
		}
		toScreen := func(p geometry.Point2D) (geometry.Point2D, error) {
			q, err := reproject(state.Registry, p, layer.CRS, mapCRS)
			if err != nil {
				return p, err
			}
			return vp.ToScreen(q), nil
		}
		if err := scene.addLayer(layer, col, toScreen); err != nil {
			continue
		}
	}

	session := state.Session
	if committed := session.Committed(); len(committed) > 0 {
		scene.Lines = append(scene.Lines, Polyline{
			Points:    screenPoints(vp, committed),
			Color:     rgba(app.ColorCommitted),
			Thickness: 2,
		})
		tail := append([]geometry.Point2D{committed[len(committed)-1]}, session.Provisional()...)
		if rubber, ok := session.Rubber(); ok {
			tail = append(tail, rubber)
		}
		scene.Lines = append(scene.Lines, Polyline{
			Points:    screenPoints(vp, tail),
			Color:     rgba(app.ColorProvisional),
			Thickness: 2,
		})
	}
	if p, ok := session.Indicator(); ok {
		scene.Marker = vp.ToScreen(p)
		scene.HasMarker = true
	}
	return scene
}

func (s *Scene) addLayer(layer *features.Layer, col color.RGBA, toScreen func(geometry.Point2D) (geometry.Point2D, error)) error {
	for _, f := range layer.Features() {
		if layer.Type == features.TypePoint {
			for i := 0; ; i++ {
				p, ok := trace.VertexAt(f.Geometry, i)
				if !ok {
					break
				}
				q, err := toScreen(p)
				if err != nil {
					return err
				}
				s.Points = append(s.Points, q)
			}
			continue
		}
		table, err := trace.NewRingTable(f.Geometry)
		if err != nil {
			continue
		}
		for _, r := range table.Rings() {
			line := Polyline{Closed: r.Closed, Color: col, Thickness: 1}
			for i := 0; i < r.Distinct(); i++ {
				p, _ := trace.VertexAt(f.Geometry, r.Offset+i)
				q, err := toScreen(p)
				if err != nil {
					return err
				}
				line.Points = append(line.Points, q)
			}
			s.Lines = append(s.Lines, line)
		}
	}
	return nil
}

func reproject(reg *crs.Registry, p geometry.Point2D, src, dst crs.ID) (geometry.Point2D, error) {
	if src == "" || dst == "" {
		return p, nil
	}
	return reg.Reproject(p, src, dst)
}

func screenPoints(vp *trace.Viewport, pts []geometry.Point2D) []geometry.Point2D {
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i] = vp.ToScreen(p)
	}
	return out
}

// Render draws the scene onto a white w x h image.
func (s *Scene) Render(w, h int) *image.RGBA {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range output.Pix {
		output.Pix[i] = 255
	}
	for _, line := range s.Lines {
		drawPolyline(output, line)
	}
	for _, p := range s.Points {
		drawDot(output, p, 3, rgba(app.ColorFeature))
	}
	if s.HasMarker {
		drawCross(output, s.Marker, 6, rgba(app.ColorIndicator))
	}
	return output
}
