// Package canvas provides the trace canvas: a map view that feeds pointer
// and keyboard input to the tracing session and draws its state.
package canvas

import (
	"image"
	"sync"

	"autotrace/internal/app"
	"autotrace/internal/trace"
	"autotrace/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

const zoomStep = 1.25

// TraceCanvas displays the project layers and routes input to the
// application state.
type TraceCanvas struct {
	widget.BaseWidget

	state    *app.State
	bindings Bindings
	raster   *fynecanvas.Raster

	// Scene snapshot shared with the raster draw callback
	mu    sync.Mutex
	scene *Scene

	// Callbacks
	onZoomChange func(unitsPerPixel float64)
}

var (
	_ desktop.Hoverable      = (*TraceCanvas)(nil)
	_ desktop.Keyable        = (*TraceCanvas)(nil)
	_ fyne.Focusable         = (*TraceCanvas)(nil)
	_ fyne.Tappable          = (*TraceCanvas)(nil)
	_ fyne.SecondaryTappable = (*TraceCanvas)(nil)
	_ fyne.Draggable         = (*TraceCanvas)(nil)
	_ fyne.Scrollable        = (*TraceCanvas)(nil)
	_ fyne.Widget            = (*TraceCanvas)(nil)
)

// NewTraceCanvas creates a canvas bound to state.
func NewTraceCanvas(state *app.State, bindings Bindings) *TraceCanvas {
	tc := &TraceCanvas{
		state:    state,
		bindings: bindings,
		scene:    &Scene{},
	}
	tc.raster = fynecanvas.NewRaster(tc.draw)
	tc.raster.ScaleMode = fynecanvas.ImageScalePixels
	tc.ExtendBaseWidget(tc)
	return tc
}

// SetBindings changes the modifier keys.
func (tc *TraceCanvas) SetBindings(b Bindings) {
	tc.bindings = b
}

// OnZoomChange sets a callback invoked after zooming.
func (tc *TraceCanvas) OnZoomChange(callback func(unitsPerPixel float64)) {
	tc.onZoomChange = callback
}

// Refresh rebuilds the scene from the application state and redraws.
func (tc *TraceCanvas) Refresh() {
	scene := BuildScene(tc.state)
	tc.mu.Lock()
	tc.scene = scene
	tc.mu.Unlock()
	tc.BaseWidget.Refresh()
}

func (tc *TraceCanvas) draw(w, h int) image.Image {
	tc.mu.Lock()
	scene := tc.scene
	tc.mu.Unlock()
	return scene.Render(w, h)
}

// toPoint converts an event position into raster pixels.
func toPoint(pos fyne.Position, scale float32) geometry.Point2D {
	return geometry.NewPoint2D(float64(pos.X*scale), float64(pos.Y*scale))
}

// scale returns the pixels per device independent unit of the canvas that
// shows tc. The raster draws in pixels while events arrive in units.
func (tc *TraceCanvas) scale() float32 {
	if a := fyne.CurrentApp(); a != nil {
		if c := a.Driver().CanvasForObject(tc); c != nil && c.Scale() > 0 {
			return c.Scale()
		}
	}
	return 1
}

func (tc *TraceCanvas) handle(ev trace.Event) {
	// Errors are reported through app.EventWarning.
	_ = tc.state.HandleEvent(ev)
	tc.Refresh()
}

// MouseIn implements desktop.Hoverable.
func (tc *TraceCanvas) MouseIn(ev *desktop.MouseEvent) {
	tc.MouseMoved(ev)
}

// MouseMoved implements desktop.Hoverable.
func (tc *TraceCanvas) MouseMoved(ev *desktop.MouseEvent) {
	tc.handle(trace.PointerMove(toPoint(ev.Position, tc.scale()), tc.bindings.Mods(ev.Modifier)))
}

// MouseOut implements desktop.Hoverable.
func (tc *TraceCanvas) MouseOut() {}

// Tapped commits a vertex.
func (tc *TraceCanvas) Tapped(ev *fyne.PointEvent) {
	tc.focus()
	tc.handle(trace.PrimaryClick(toPoint(ev.Position, tc.scale())))
}

// TappedSecondary finishes the trace.
func (tc *TraceCanvas) TappedSecondary(ev *fyne.PointEvent) {
	tc.handle(trace.SecondaryClick(toPoint(ev.Position, tc.scale())))
}

// Dragged pans the view.
func (tc *TraceCanvas) Dragged(ev *fyne.DragEvent) {
	scale := tc.scale()
	tc.state.Session.Viewport().Pan(float64(ev.Dragged.DX*scale), float64(ev.Dragged.DY*scale))
	tc.Refresh()
}

// DragEnd implements fyne.Draggable.
func (tc *TraceCanvas) DragEnd() {}

// Scrolled zooms around the pointer.
func (tc *TraceCanvas) Scrolled(ev *fyne.ScrollEvent) {
	switch {
	case ev.Scrolled.DY > 0:
		tc.Zoom(zoomStep, toPoint(ev.Position, tc.scale()))
	case ev.Scrolled.DY < 0:
		tc.Zoom(1/zoomStep, toPoint(ev.Position, tc.scale()))
	}
}

// Zoom scales the view around a screen position.
func (tc *TraceCanvas) Zoom(factor float64, around geometry.Point2D) {
	vp := tc.state.Session.Viewport()
	vp.Zoom(factor, around)
	if tc.onZoomChange != nil {
		tc.onZoomChange(vp.UnitsPerPixel())
	}
	tc.Refresh()
}

// ZoomCenter scales the view around the middle of the canvas.
func (tc *TraceCanvas) ZoomCenter(factor float64) {
	size := tc.Size()
	tc.Zoom(factor, toPoint(fyne.NewPos(size.Width/2, size.Height/2), tc.scale()))
}

// KeyDown implements desktop.Keyable.
func (tc *TraceCanvas) KeyDown(ev *fyne.KeyEvent) {
	if kind, ok := tc.bindings.KeyEvent(ev.Name, true); ok {
		tc.handle(trace.Key(kind))
	}
}

// KeyUp implements desktop.Keyable.
func (tc *TraceCanvas) KeyUp(ev *fyne.KeyEvent) {
	if kind, ok := tc.bindings.KeyEvent(ev.Name, false); ok {
		tc.handle(trace.Key(kind))
	}
}

// TypedKey implements fyne.Focusable.
func (tc *TraceCanvas) TypedKey(ev *fyne.KeyEvent) {
	if kind, ok := CommandKey(ev.Name); ok {
		tc.handle(trace.Key(kind))
	}
}

// TypedRune implements fyne.Focusable.
func (tc *TraceCanvas) TypedRune(rune) {}

// FocusGained implements fyne.Focusable.
func (tc *TraceCanvas) FocusGained() {}

// FocusLost releases the modifiers, since their key-up events go elsewhere.
func (tc *TraceCanvas) FocusLost() {
	tc.handle(trace.Key(trace.EventReverseUp))
	tc.handle(trace.Key(trace.EventModifierUp))
}

func (tc *TraceCanvas) focus() {
	if c := fyne.CurrentApp().Driver().CanvasForObject(tc); c != nil {
		c.Focus(tc)
	}
}

// CreateRenderer implements fyne.Widget.
func (tc *TraceCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &traceCanvasRenderer{canvas: tc}
}

type traceCanvasRenderer struct {
	canvas *TraceCanvas
}

func (r *traceCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
}

func (r *traceCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *traceCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *traceCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *traceCanvasRenderer) Destroy() {}
