// Package trackeditor implements the multi-track timeline interaction
// layer: zoom, scroll, ruler seeking, and drag/resize of clips and
// annotations through a single-interaction state machine.
package trackeditor

import (
	"math"

	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/timeline"
)

// Interaction constants.
const (
	MinZoom       = 1.0
	MaxZoom       = 10.0
	ZoomStep      = 1.5
	DragThreshold = 3.0
	DefaultHandle = 6.0
	DefaultWidth  = 1000.0
	clipLayerType = models.LayerClips
)

// Model is the part of the timeline store the editor mutates.
type Model interface {
	Duration() float64
	Clips() []models.Clip
	Annotations() []models.Annotation
	MoveClip(id string, newStart float64) (models.Clip, bool)
	ResizeClip(id string, edge timeline.Edge, t float64) (models.Clip, bool)
	MoveAnnotation(id string, newStart float64) (models.Annotation, bool)
	ResizeAnnotation(id string, edge timeline.Edge, t float64) (models.Annotation, bool)
}

// ItemKind distinguishes the two kinds of track items.
type ItemKind string

// Item kinds.
const (
	KindClip       ItemKind = "clip"
	KindAnnotation ItemKind = "annotation"
)

// ItemRef identifies a track item.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   string   `json:"id"`
}

// Part is the region of an item under the pointer.
type Part int

// Item parts.
const (
	PartBody Part = iota
	PartStartHandle
	PartEndHandle
)

// Hit is the result of a hit test.
type Hit struct {
	Item ItemRef
	Part Part
}

// Mode is the interaction state tag.
type Mode int

// Interaction modes.
const (
	Idle Mode = iota
	Dragging
	Resizing
)

func (m Mode) String() string {
	switch m {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// State is the tagged interaction state. Edge is set only while Resizing.
type State struct {
	Mode Mode
	Item ItemRef
	Edge timeline.Edge
}

// Release describes how a pointer interaction ended.
type Release struct {
	Item ItemRef
	// Click is true when the pointer never passed DragThreshold.
	Click bool
	// SeekTo is the item's start time, set for clicks.
	SeekTo float64
}

// Editor holds the zoom, scroll, layer and interaction state of the track
// view. It is not safe for concurrent use.
type Editor struct {
	model  Model
	width  float64
	handle float64

	zoom   float64
	scroll float64
	layers []models.Layer

	state    State
	pressX   float64
	anchor   float64 // item edge or start time at press
	moved    bool
	selected ItemRef
}

// New creates an editor for a track of the given pixel width.
func New(model Model, width float64) *Editor {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Editor{
		model:  model,
		width:  width,
		handle: DefaultHandle,
		zoom:   MinZoom,
		layers: DefaultLayers(),
	}
}

// State returns the current interaction state.
func (e *Editor) State() State { return e.state }

// Selected returns the last clicked item.
func (e *Editor) Selected() (ItemRef, bool) {
	return e.selected, e.selected.ID != ""
}

// Select sets the selected item.
func (e *Editor) Select(ref ItemRef) { e.selected = ref }

// Deselect clears the selection.
func (e *Editor) Deselect() { e.selected = ItemRef{} }

// Zoom returns the zoom level.
func (e *Editor) Zoom() float64 { return e.zoom }

// ZoomIn multiplies the zoom level by ZoomStep.
func (e *Editor) ZoomIn() { e.SetZoom(e.zoom * ZoomStep) }

// ZoomOut divides the zoom level by ZoomStep.
func (e *Editor) ZoomOut() { e.SetZoom(e.zoom / ZoomStep) }

// SetZoom sets the zoom level clamped to [MinZoom, MaxZoom] and re-clamps
// the scroll offset.
func (e *Editor) SetZoom(z float64) {
	e.zoom = math.Min(MaxZoom, math.Max(MinZoom, z))
	e.SetScroll(e.scroll)
}

// Scroll returns the horizontal scroll offset in seconds.
func (e *Editor) Scroll() float64 { return e.scroll }

// SetScroll sets the scroll offset clamped to [0, total - total/zoom].
func (e *Editor) SetScroll(s float64) {
	total := e.model.Duration()
	hi := math.Max(0, total-total/e.zoom)
	e.scroll = math.Min(hi, math.Max(0, s))
}

// ScrollBy moves the scroll offset by ds seconds.
func (e *Editor) ScrollBy(ds float64) { e.SetScroll(e.scroll + ds) }

// Window returns the visible time range.
func (e *Editor) Window() (start, end float64) {
	return e.scroll, e.scroll + e.span()
}

func (e *Editor) span() float64 {
	return e.model.Duration() / e.zoom
}

// TimeAt converts a track x coordinate to a time clamped to the timeline.
func (e *Editor) TimeAt(x float64) float64 {
	t := e.scroll + x/e.width*e.span()
	return math.Min(e.model.Duration(), math.Max(0, t))
}

// XAt converts a time to a track x coordinate.
func (e *Editor) XAt(t float64) float64 {
	span := e.span()
	if span <= 0 {
		return 0
	}
	return (t - e.scroll) / span * e.width
}

func (e *Editor) secondsPerPixel() float64 {
	return e.span() / e.width
}

// ClickRuler returns the time a ruler click at x seeks to.
func (e *Editor) ClickRuler(x float64) float64 {
	return e.TimeAt(x)
}

type trackItem struct {
	ref        ItemRef
	start, end float64
}

func (e *Editor) items(layerID string) []trackItem {
	layer, ok := e.Layer(layerID)
	if !ok || !layer.Visible {
		return nil
	}
	var out []trackItem
	if layer.Type == clipLayerType {
		for _, c := range e.model.Clips() {
			out = append(out, trackItem{ItemRef{KindClip, c.ID}, c.StartTime, c.EndTime})
		}
		return out
	}
	for _, a := range e.model.Annotations() {
		if string(a.Type) == layer.Type {
			out = append(out, trackItem{ItemRef{KindAnnotation, a.ID}, a.StartTime, a.EndTime})
		}
	}
	return out
}

// HitTest finds the item on a layer's track under x. Later items are on
// top. Edge handles take priority over the body.
func (e *Editor) HitTest(layerID string, x float64) (Hit, bool) {
	items := e.items(layerID)
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		x0, x1 := e.XAt(it.start), e.XAt(it.end)
		if x < x0-e.handle/2 || x > x1+e.handle/2 {
			continue
		}
		switch {
		case math.Abs(x-x0) <= e.handle/2:
			return Hit{it.ref, PartStartHandle}, true
		case math.Abs(x-x1) <= e.handle/2:
			return Hit{it.ref, PartEndHandle}, true
		case x >= x0 && x <= x1:
			return Hit{it.ref, PartBody}, true
		}
	}
	return Hit{}, false
}

func (e *Editor) bounds(ref ItemRef) (start, end float64, ok bool) {
	if ref.Kind == KindClip {
		for _, c := range e.model.Clips() {
			if c.ID == ref.ID {
				return c.StartTime, c.EndTime, true
			}
		}
		return 0, 0, false
	}
	for _, a := range e.model.Annotations() {
		if a.ID == ref.ID {
			return a.StartTime, a.EndTime, true
		}
	}
	return 0, 0, false
}

// PointerDown starts an interaction on the item under x. It is ignored
// while another interaction is active.
func (e *Editor) PointerDown(layerID string, x float64) (Hit, bool) {
	if e.state.Mode != Idle {
		return Hit{}, false
	}
	hit, ok := e.HitTest(layerID, x)
	if !ok {
		return Hit{}, false
	}
	start, end, ok := e.bounds(hit.Item)
	if !ok {
		return Hit{}, false
	}
	e.pressX = x
	e.moved = false
	switch hit.Part {
	case PartStartHandle:
		e.state = State{Mode: Resizing, Item: hit.Item, Edge: timeline.EdgeStart}
		e.anchor = start
	case PartEndHandle:
		e.state = State{Mode: Resizing, Item: hit.Item, Edge: timeline.EdgeEnd}
		e.anchor = end
	default:
		e.state = State{Mode: Dragging, Item: hit.Item}
		e.anchor = start
	}
	return hit, true
}

// PointerMove applies the active interaction for pointer x. Movement within
// DragThreshold of the press point is ignored until it has been exceeded
// once. It reports whether the model was mutated.
func (e *Editor) PointerMove(x float64) bool {
	if e.state.Mode == Idle {
		return false
	}
	dx := x - e.pressX
	if !e.moved && math.Abs(dx) < DragThreshold {
		return false
	}
	e.moved = true
	t := e.anchor + dx*e.secondsPerPixel()
	id := e.state.Item.ID
	switch {
	case e.state.Mode == Dragging && e.state.Item.Kind == KindClip:
		_, ok := e.model.MoveClip(id, t)
		return ok
	case e.state.Mode == Dragging:
		_, ok := e.model.MoveAnnotation(id, t)
		return ok
	case e.state.Item.Kind == KindClip:
		_, ok := e.model.ResizeClip(id, e.state.Edge, t)
		return ok
	default:
		_, ok := e.model.ResizeAnnotation(id, e.state.Edge, t)
		return ok
	}
}

// PointerUp ends the active interaction. A press that never passed the
// threshold is a click: the item is selected and the caller should seek to
// its start.
func (e *Editor) PointerUp(x float64) (Release, bool) {
	if e.state.Mode == Idle {
		return Release{}, false
	}
	if !e.moved && math.Abs(x-e.pressX) >= DragThreshold {
		e.PointerMove(x)
	}
	rel := Release{Item: e.state.Item, Click: !e.moved}
	if rel.Click {
		e.selected = rel.Item
		if start, _, ok := e.bounds(rel.Item); ok {
			rel.SeekTo = start
		}
	}
	e.Cancel()
	return rel, true
}

// Cancel returns to Idle without further mutation.
func (e *Editor) Cancel() {
	e.state = State{}
	e.moved = false
	e.pressX, e.anchor = 0, 0
}
