// Package trace implements the tracing engine: a drawing session that can
// follow the boundary of existing features between two snapped vertices.
package trace

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"autotrace/internal/crs"
	"autotrace/pkg/geometry"

	"github.com/twpayne/go-geom"
)

// DefaultTolerancePx is the snapping distance in screen pixels.
const DefaultTolerancePx = 12.0

var (
	// ErrTooFewVertices is returned when a trace is finished with fewer
	// vertices than its geometry kind needs.
	ErrTooFewVertices = errors.New("too few vertices")

	// ErrNoTarget is returned when a trace is finished without an edit layer.
	ErrNoTarget = errors.New("no edit layer")
)

// State is the externally visible state of a session.
type State int

const (
	StateIdle State = iota
	StateUnanchored
	StateAnchored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUnanchored:
		return "drawing"
	case StateAnchored:
		return "drawing-anchored"
	default:
		return "unknown"
	}
}

// Anchor is the last committed snap, one endpoint of the next traced path.
type Anchor struct {
	LayerID   string
	FeatureID string
	Vertex    int  // Flat vertex index
	Ring      Ring // Ring containing Vertex
	Revision  uint64
}

// Config holds the collaborators of a Session.
type Config struct {
	Snapper     Snapper
	Source      GeometrySource
	Reprojector Reprojector
	Sink        FeatureSink
	Viewport    *Viewport
	MapCRS      crs.ID
	Target      Target
	TolerancePx float64     // Snap distance in pixels (DefaultTolerancePx if zero)
	Logger      *log.Logger // log.Default() if nil
}

// Session is the stateful tracing engine. It is driven by Handle from the
// goroutine delivering input events and is not safe for concurrent use.
//
// The vertex list holds map coordinates: a committed prefix, then
// provisional traced vertices, then the rubber point following the cursor.
type Session struct {
	cfg    Config
	logger *log.Logger

	open        bool
	vertices    []geometry.Point2D
	provisional int
	anchor      *Anchor

	traceHeld   bool
	reverseHeld bool
	cursor      geometry.Point2D // Last pointer position in screen pixels

	indicator   geometry.Point2D
	hasIndicate bool
}

// NewSession creates an idle session.
func NewSession(cfg Config) *Session {
	if cfg.TolerancePx <= 0 {
		cfg.TolerancePx = DefaultTolerancePx
	}
	if cfg.Viewport == nil {
		cfg.Viewport = NewViewport(geometry.Point2D{}, 1)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Session{cfg: cfg, logger: logger}
}

// SetTarget changes the edit layer and discards any open trace.
func (s *Session) SetTarget(t Target) {
	s.cfg.Target = t
	s.reset()
}

// Target returns the current edit layer.
func (s *Session) Target() Target {
	return s.cfg.Target
}

// SetTolerance changes the snap distance in pixels.
func (s *Session) SetTolerance(px float64) {
	if px > 0 {
		s.cfg.TolerancePx = px
	}
}

// Viewport returns the screen to map mapping used by the session.
func (s *Session) Viewport() *Viewport {
	return s.cfg.Viewport
}

// Activate prepares the session when its tool becomes current.
func (s *Session) Activate() {
	s.clearIndicator()
}

// Deactivate discards transient state when the tool is switched away.
func (s *Session) Deactivate() {
	s.reset()
	s.traceHeld = false
	s.reverseHeld = false
}

// Handle processes one input event. Errors are only returned when finishing
// a trace; the session is idle again afterwards.
func (s *Session) Handle(ev Event) error {
	switch ev.Kind {
	case EventPointerMove:
		s.cursor = ev.Pos
		s.traceHeld = ev.Mods&ModTrace != 0
		s.reverseHeld = ev.Mods&ModReverse != 0
		s.pointerMoved()
	case EventModifierDown, EventModifierUp:
		s.traceHeld = ev.Kind == EventModifierDown
		s.revert()
		if s.traceHeld {
			s.propose()
		}
	case EventReverseDown, EventReverseUp:
		s.reverseHeld = ev.Kind == EventReverseDown
		if s.traceHeld {
			s.revert()
			s.propose()
		}
	case EventPrimaryClick:
		s.cursor = ev.Pos
		s.primaryClick()
	case EventSecondaryClick:
		if s.traceHeld {
			return nil
		}
		return s.finish()
	case EventBackspace:
		s.removeLastVertex()
	case EventCancel:
		s.reset()
	default:
		return fmt.Errorf("unhandled event %v", ev.Kind)
	}
	return nil
}

// State returns the current session state.
func (s *Session) State() State {
	switch {
	case !s.open:
		return StateIdle
	case s.anchor != nil:
		return StateAnchored
	default:
		return StateUnanchored
	}
}

// Vertices returns a copy of the full vertex list including provisional
// vertices and the rubber point.
func (s *Session) Vertices() []geometry.Point2D {
	out := make([]geometry.Point2D, len(s.vertices))
	copy(out, s.vertices)
	return out
}

// Committed returns a copy of the committed vertices.
func (s *Session) Committed() []geometry.Point2D {
	n := s.committedCount()
	out := make([]geometry.Point2D, n)
	copy(out, s.vertices[:n])
	return out
}

// Provisional returns a copy of the provisional traced vertices.
func (s *Session) Provisional() []geometry.Point2D {
	n := s.committedCount()
	out := make([]geometry.Point2D, s.provisional)
	copy(out, s.vertices[n:n+s.provisional])
	return out
}

// Rubber returns the transient point following the cursor.
func (s *Session) Rubber() (geometry.Point2D, bool) {
	if !s.open || len(s.vertices) == 0 {
		return geometry.Point2D{}, false
	}
	return s.vertices[len(s.vertices)-1], true
}

// Indicator returns the position of the snap marker, if one is shown.
func (s *Session) Indicator() (geometry.Point2D, bool) {
	return s.indicator, s.hasIndicate
}

// Anchor returns the current anchor, if any.
func (s *Session) Anchor() (Anchor, bool) {
	if s.anchor == nil {
		return Anchor{}, false
	}
	return *s.anchor, true
}

func (s *Session) committedCount() int {
	if !s.open || len(s.vertices) == 0 {
		return 0
	}
	return len(s.vertices) - 1 - s.provisional
}

func (s *Session) reset() {
	s.open = false
	s.vertices = nil
	s.provisional = 0
	s.anchor = nil
	s.clearIndicator()
}

func (s *Session) setIndicator(p geometry.Point2D) {
	s.indicator = p
	s.hasIndicate = true
}

func (s *Session) clearIndicator() {
	s.indicator = geometry.Point2D{}
	s.hasIndicate = false
}

func (s *Session) moveRubber(p geometry.Point2D) {
	if !s.open {
		return
	}
	if len(s.vertices) == 0 {
		s.vertices = append(s.vertices, p)
		return
	}
	s.vertices[len(s.vertices)-1] = p
}

// snapAt returns the closest snap result at a screen position.
func (s *Session) snapAt(screen geometry.Point2D) (SnapResult, bool) {
	if s.cfg.Snapper == nil {
		return SnapResult{}, false
	}
	tolerance := s.cfg.TolerancePx * s.cfg.Viewport.UnitsPerPixel()
	results := s.cfg.Snapper.Snap(s.cfg.Viewport.ToMap(screen), tolerance)
	if len(results) == 0 {
		return SnapResult{}, false
	}
	return results[0], true
}

// follow moves the rubber point to the snap at the cursor, or to the raw
// cursor position when nothing is in range.
func (s *Session) follow() {
	if res, ok := s.snapAt(s.cursor); ok {
		s.moveRubber(res.Point)
		s.setIndicator(res.Point)
		return
	}
	s.moveRubber(s.cfg.Viewport.ToMap(s.cursor))
	s.clearIndicator()
}

func (s *Session) pointerMoved() {
	if !s.open {
		if res, ok := s.snapAt(s.cursor); ok {
			s.setIndicator(res.Point)
		} else {
			s.clearIndicator()
		}
		return
	}
	s.revert()
	if s.traceHeld {
		s.propose()
		return
	}
	s.follow()
}

// revert drops provisional vertices, keeping the rubber point.
func (s *Session) revert() {
	if s.provisional == 0 {
		return
	}
	n := len(s.vertices)
	rubber := s.vertices[n-1]
	s.vertices = append(s.vertices[:n-1-s.provisional], rubber)
	s.provisional = 0
}

// propose inserts the traced path between the anchor and the vertex snapped
// at the cursor as provisional vertices.
func (s *Session) propose() {
	if !s.open {
		return
	}
	if s.anchor == nil {
		s.follow()
		return
	}

	res, ok := s.snapAt(s.cursor)
	if !ok {
		s.clearIndicator()
		s.moveRubber(s.cfg.Viewport.ToMap(s.cursor))
		return
	}
	s.setIndicator(res.Point)

	if res.LayerID != s.anchor.LayerID || res.FeatureID != s.anchor.FeatureID {
		s.moveRubber(res.Point)
		return
	}

	src, err := s.fetch(res)
	if err != nil {
		s.logger.Printf("Trace: %v", err)
		s.anchor = nil
		s.moveRubber(res.Point)
		return
	}
	if src.Revision != s.anchor.Revision {
		s.logger.Printf("Trace: layer %s changed during trace, dropping anchor", res.LayerID)
		s.anchor = nil
		s.moveRubber(res.Point)
		return
	}

	ring, ok := s.locate(src.Geometry, res.Vertex)
	if !ok || !ring.SameRing(s.anchor.Ring) {
		s.moveRubber(res.Point)
		return
	}

	path := RingPath(ring, s.anchor.Vertex, res.Vertex, s.reverseHeld)
	traced := make([]geometry.Point2D, 0, len(path))
	for _, idx := range path {
		v, ok := VertexAt(src.Geometry, idx)
		if !ok {
			s.logger.Printf("Trace: vertex %d missing from %s/%s", idx, res.LayerID, res.FeatureID)
			s.moveRubber(res.Point)
			return
		}
		v, err = s.reproject(v, src.CRS, s.cfg.MapCRS)
		if err != nil {
			s.logger.Printf("Trace: reproject traced vertex: %v", err)
			s.moveRubber(res.Point)
			return
		}
		traced = append(traced, v)
	}

	n := len(s.vertices)
	tail := append(traced, res.Point)
	s.vertices = append(s.vertices[:n-1], tail...)
	s.provisional = len(traced)
}

func (s *Session) fetch(res SnapResult) (SourceFeature, error) {
	if s.cfg.Source == nil {
		return SourceFeature{}, fmt.Errorf("fetch %s/%s: no geometry source", res.LayerID, res.FeatureID)
	}
	src, err := s.cfg.Source.SourceFeature(res.LayerID, res.FeatureID)
	if err != nil {
		return SourceFeature{}, fmt.Errorf("fetch %s/%s: %w", res.LayerID, res.FeatureID, err)
	}
	return src, nil
}

// locate finds the ring of a flat vertex, logging when the table has no ring
// for it.
func (s *Session) locate(g geom.T, vertex int) (Ring, bool) {
	table, err := NewRingTable(g)
	if err != nil {
		s.logger.Printf("Trace: %v", err)
		return Ring{}, false
	}
	ring, ok := table.Locate(vertex)
	if !ok {
		s.logger.Printf("Trace: vertex %d not in any ring, using part 0 ring 0", vertex)
	}
	return ring, true
}

func (s *Session) reproject(p geometry.Point2D, src, dst crs.ID) (geometry.Point2D, error) {
	if src == "" || dst == "" || crs.Normalize(src) == crs.Normalize(dst) || s.cfg.Reprojector == nil {
		return p, nil
	}
	return s.cfg.Reprojector.Reproject(p, src, dst)
}

func (s *Session) primaryClick() {
	if !s.open {
		s.open = true
		s.vertices = nil
		s.provisional = 0
		s.anchor = nil
	}
	// Accept the proposal.
	s.provisional = 0

	var point geometry.Point2D
	if res, ok := s.snapAt(s.cursor); ok {
		point = res.Point
		s.setAnchor(res)
	} else {
		point = s.cfg.Viewport.ToMap(s.cursor)
		s.anchor = nil
	}
	s.appendCommitted(point)
}

// appendCommitted adds a committed vertex unless it repeats the previous one.
// The rubber point always moves to p.
func (s *Session) appendCommitted(p geometry.Point2D) {
	if len(s.vertices) == 0 {
		s.vertices = append(s.vertices, p, p)
		return
	}
	n := s.committedCount()
	if n > 0 && s.vertices[n-1] == p {
		s.moveRubber(p)
		return
	}
	s.vertices[len(s.vertices)-1] = p
	s.vertices = append(s.vertices, p)
}

func (s *Session) setAnchor(res SnapResult) {
	src, err := s.fetch(res)
	if err != nil {
		s.logger.Printf("Trace: %v", err)
		s.anchor = nil
		return
	}
	ring, ok := s.locate(src.Geometry, res.Vertex)
	if !ok {
		s.anchor = nil
		return
	}
	s.anchor = &Anchor{
		LayerID:   res.LayerID,
		FeatureID: res.FeatureID,
		Vertex:    res.Vertex,
		Ring:      ring,
		Revision:  src.Revision,
	}
}

func (s *Session) removeLastVertex() {
	if !s.open {
		return
	}
	s.revert()
	n := s.committedCount()
	if n == 0 {
		return
	}
	rubber := s.vertices[len(s.vertices)-1]
	s.vertices = append(s.vertices[:n-1], rubber)
	n--

	if n < 2 {
		s.anchor = nil
		return
	}
	last := s.vertices[n-1]
	if res, ok := s.snapAt(s.cfg.Viewport.ToScreen(last)); ok {
		s.setAnchor(res)
	} else {
		s.anchor = nil
	}
}

// finish hands the committed vertices to the sink and returns to idle.
func (s *Session) finish() error {
	if !s.open {
		s.clearIndicator()
		return nil
	}
	s.revert()
	committed := s.Committed()
	s.reset()

	target := s.cfg.Target
	if target.LayerID == "" {
		return ErrNoTarget
	}

	points := make([]geometry.Point2D, 0, len(committed))
	for _, p := range committed {
		q, err := s.reproject(p, s.cfg.MapCRS, target.CRS)
		if err != nil {
			return fmt.Errorf("finish trace: %w", err)
		}
		points = append(points, q)
	}
	points = geometry.DedupConsecutive(points)
	if target.Kind == KindPolygon && len(points) > 1 && points[0] == points[len(points)-1] {
		points = points[:len(points)-1]
	}
	if len(points) < target.Kind.MinVertices() {
		return fmt.Errorf("%s needs %d vertices, got %d: %w",
			target.Kind, target.Kind.MinVertices(), len(points), ErrTooFewVertices)
	}

	g := BuildGeometry(target.Kind, points)
	if srid, ok := SRID(target.CRS); ok {
		g = setSRID(g, srid)
	}
	if s.cfg.Sink == nil {
		return nil
	}
	if err := s.cfg.Sink.TraceFinished(g); err != nil {
		return fmt.Errorf("finish trace: %w", err)
	}
	return nil
}

// BuildGeometry builds a line string or a single-ring polygon from points.
// Polygon rings are closed automatically.
func BuildGeometry(kind Kind, points []geometry.Point2D) geom.T {
	flat := make([]float64, 0, 2*(len(points)+1))
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	if kind == KindPolygon {
		if len(points) > 0 {
			flat = append(flat, points[0].X, points[0].Y)
		}
		return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
	}
	return geom.NewLineStringFlat(geom.XY, flat)
}

// SRID extracts the numeric code of an EPSG identifier.
func SRID(id crs.ID) (int, bool) {
	code, ok := strings.CutPrefix(string(crs.Normalize(id)), "EPSG:")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, false
	}
	return n, true
}

func setSRID(g geom.T, srid int) geom.T {
	switch g := g.(type) {
	case *geom.Polygon:
		return g.SetSRID(srid)
	case *geom.LineString:
		return g.SetSRID(srid)
	}
	return g
}
