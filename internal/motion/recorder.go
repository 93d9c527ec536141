// Package motion records pointer drags on an annotation as keyframes.
package motion

import (
	"math"

	"github.com/starford/tactica/internal/keyframe"
	"github.com/starford/tactica/internal/models"
)

// MinSampleDistance is the pointer travel, in device-independent units,
// below which a drag sample is skipped.
const MinSampleDistance = 2.0

// Mode is the recorder state tag.
type Mode int

// Recorder modes.
const (
	Idle Mode = iota
	Recording
)

func (m Mode) String() string {
	if m == Recording {
		return "recording"
	}
	return "idle"
}

// State is the tagged recorder state. AnnotationID is set only while Recording.
type State struct {
	Mode         Mode
	AnnotationID string
}

// Point is a pointer position on the render surface.
type Point struct {
	X, Y float64
}

// Pose is the live transform of an annotation as shown on the surface.
type Pose struct {
	X, Y, Rotation, ScaleX, ScaleY float64
}

// Keyframe samples p at time t.
func (p Pose) Keyframe(t float64) models.Keyframe {
	return models.Keyframe{
		Time:     t,
		X:        p.X,
		Y:        p.Y,
		Rotation: models.Float(p.Rotation),
		ScaleX:   models.Float(p.ScaleX),
		ScaleY:   models.Float(p.ScaleY),
	}
}

// PoseAt returns the transform a shows at time t: its interpolated motion
// when it has keyframes, otherwise its static position and transform.
func PoseAt(a models.Annotation, t float64) Pose {
	p := Pose{
		X:        a.X,
		Y:        a.Y,
		Rotation: a.Transform.Rotation,
		ScaleX:   a.Transform.ScaleX,
		ScaleY:   a.Transform.ScaleY,
	}
	kf, ok := keyframe.Interpolate(a.Keyframes, t)
	if !ok {
		return p
	}
	p.X, p.Y = kf.X, kf.Y
	if kf.Rotation != nil {
		p.Rotation = *kf.Rotation
	}
	if kf.ScaleX != nil {
		p.ScaleX = *kf.ScaleX
	}
	if kf.ScaleY != nil {
		p.ScaleY = *kf.ScaleY
	}
	return p
}

// Clock is the part of the media clock the recorder drives.
type Clock interface {
	CurrentTime() float64
	Paused() bool
	Play()
}

// Target is the keyframe sink, normally a *timeline.Store.
type Target interface {
	Annotation(id string) (models.Annotation, bool)
	InsertKeyframe(id string, kf models.Keyframe) bool
}

// Recorder is the Idle -> Recording(id) -> Idle state machine.
type Recorder struct {
	target Target
	clock  Clock

	state   State
	last    Point
	hasLast bool
	live    Pose
}

// NewRecorder creates an idle recorder.
func NewRecorder(target Target, clock Clock) *Recorder {
	return &Recorder{target: target, clock: clock}
}

// State returns the current state.
func (r *Recorder) State() State { return r.state }

// IsRecording reports whether annotation id is being recorded.
func (r *Recorder) IsRecording(id string) bool {
	return r.state.Mode == Recording && r.state.AnnotationID == id
}

// Live returns the raw transform of the annotation under recording.
func (r *Recorder) Live(id string) (Pose, bool) {
	if !r.IsRecording(id) {
		return Pose{}, false
	}
	return r.live, true
}

// Begin starts recording annotation id for a drag that started at pointer.
// It requires the modifier to be held and the select tool to be active.
// A paused clock is resumed, and the annotation's current transform is
// stored as the first keyframe.
func (r *Recorder) Begin(id string, modifierHeld, selectTool bool, pointer Point) bool {
	if r.state.Mode != Idle || !modifierHeld || !selectTool {
		return false
	}
	a, ok := r.target.Annotation(id)
	if !ok {
		return false
	}
	if r.clock.Paused() {
		r.clock.Play()
	}
	t := r.clock.CurrentTime()
	r.live = PoseAt(a, t)
	r.state = State{Mode: Recording, AnnotationID: id}
	r.last, r.hasLast = pointer, true
	r.target.InsertKeyframe(id, r.live.Keyframe(t))
	return true
}

// Move handles a drag-move: pointer is the pointer position and pose the
// annotation's dragged transform. Samples closer than MinSampleDistance to
// the previous sample are skipped. It reports whether a keyframe was written.
func (r *Recorder) Move(pointer Point, pose Pose) bool {
	if r.state.Mode != Recording {
		return false
	}
	r.live = pose
	if r.hasLast && math.Hypot(pointer.X-r.last.X, pointer.Y-r.last.Y) < MinSampleDistance {
		return false
	}
	r.last, r.hasLast = pointer, true
	return r.target.InsertKeyframe(r.state.AnnotationID, pose.Keyframe(r.clock.CurrentTime()))
}

// End finishes the recording on drag-end, modifier release or Escape,
// writing pose as the final keyframe.
func (r *Recorder) End(pose Pose) bool {
	if r.state.Mode != Recording {
		return false
	}
	r.target.InsertKeyframe(r.state.AnnotationID, pose.Keyframe(r.clock.CurrentTime()))
	r.Reset()
	return true
}

// Finish ends the recording using the last live transform.
func (r *Recorder) Finish() bool {
	return r.End(r.live)
}

// Reset returns to Idle without writing a keyframe.
func (r *Recorder) Reset() {
	r.state = State{Mode: Idle}
	r.hasLast = false
	r.last = Point{}
	r.live = Pose{}
}
