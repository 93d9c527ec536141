// Package models defines the domain types for Tactica.
package models

// AnnotationType names the drawing tool that produced an annotation.
type AnnotationType string

// Annotation types.
const (
	AnnotationText      AnnotationType = "text"
	AnnotationCircle    AnnotationType = "circle"
	AnnotationSpotlight AnnotationType = "spotlight"
	AnnotationLine      AnnotationType = "line"
	AnnotationArrow     AnnotationType = "arrow"
	AnnotationPolygon   AnnotationType = "polygon"
)

// AnnotationTypes lists every annotation type in track order.
var AnnotationTypes = []AnnotationType{
	AnnotationText,
	AnnotationCircle,
	AnnotationSpotlight,
	AnnotationLine,
	AnnotationArrow,
	AnnotationPolygon,
}

// Clip is a named, bounded time range on the timeline.
type Clip struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Type        string  `json:"type" yaml:"type"`
	StartTime   float64 `json:"startTime" yaml:"startTime"`
	EndTime     float64 `json:"endTime" yaml:"endTime"`
	Duration    float64 `json:"duration" yaml:"duration"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// Style holds the paint parameters of an annotation.
// A nil Opacity means fully opaque.
type Style struct {
	Fill        string   `json:"fill,omitempty" yaml:"fill,omitempty"`
	Stroke      string   `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	StrokeWidth float64  `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty"`
	Opacity     *float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
}

// EffectiveOpacity returns the style opacity, defaulting to 1.
func (s Style) EffectiveOpacity() float64 {
	if s.Opacity == nil {
		return 1
	}
	return *s.Opacity
}

// Transform is the static rotation and scale of an annotation.
type Transform struct {
	Rotation float64 `json:"rotation" yaml:"rotation"`
	ScaleX   float64 `json:"scaleX" yaml:"scaleX"`
	ScaleY   float64 `json:"scaleY" yaml:"scaleY"`
}

// IdentityTransform is the transform of an unrotated, unscaled annotation.
func IdentityTransform() Transform {
	return Transform{Rotation: 0, ScaleX: 1, ScaleY: 1}
}

// Keyframe is an immutable sample of an annotation's transform at Time.
// Rotation and scale are optional; absent fields are not interpolated.
type Keyframe struct {
	Time     float64  `json:"time" yaml:"time"`
	X        float64  `json:"x" yaml:"x"`
	Y        float64  `json:"y" yaml:"y"`
	Rotation *float64 `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	ScaleX   *float64 `json:"scaleX,omitempty" yaml:"scaleX,omitempty"`
	ScaleY   *float64 `json:"scaleY,omitempty" yaml:"scaleY,omitempty"`
}

// Annotation is a time-bound graphical overlay drawn on top of the video.
type Annotation struct {
	ID        string         `json:"id" yaml:"id"`
	Type      AnnotationType `json:"type" yaml:"type"`
	ClipID    string         `json:"clipId,omitempty" yaml:"clipId,omitempty"`
	StartTime float64        `json:"startTime" yaml:"startTime"`
	EndTime   float64        `json:"endTime" yaml:"endTime"`
	X         float64        `json:"x" yaml:"x"`
	Y         float64        `json:"y" yaml:"y"`

	// Shape parameters; which ones apply depends on Type.
	Radius   float64   `json:"radius,omitempty" yaml:"radius,omitempty"`
	Points   []float64 `json:"points,omitempty" yaml:"points,omitempty"`
	Text     string    `json:"text,omitempty" yaml:"text,omitempty"`
	FontSize float64   `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`

	Style     Style      `json:"style" yaml:"style"`
	Transform Transform  `json:"transform" yaml:"transform"`
	Keyframes []Keyframe `json:"keyframes" yaml:"keyframes"`

	IsPauseScene       bool     `json:"isPauseScene" yaml:"isPauseScene"`
	PauseSceneDuration *float64 `json:"pauseSceneDuration,omitempty" yaml:"pauseSceneDuration,omitempty"`
}

// Clone returns a deep copy of a.
func (a Annotation) Clone() Annotation {
	out := a
	if a.Points != nil {
		out.Points = append([]float64(nil), a.Points...)
	}
	if a.Keyframes != nil {
		out.Keyframes = append([]Keyframe(nil), a.Keyframes...)
	}
	if a.Style.Opacity != nil {
		v := *a.Style.Opacity
		out.Style.Opacity = &v
	}
	if a.PauseSceneDuration != nil {
		v := *a.PauseSceneDuration
		out.PauseSceneDuration = &v
	}
	return out
}

// Layer is a timeline track grouping items of one type. Layers are a
// presentation construct; only Visible and Expanded are user state.
type Layer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Color    string `json:"color"`
	Visible  bool   `json:"visible"`
	Expanded bool   `json:"expanded"`
}

// LayerClips is the layer type of the clip track.
const LayerClips = "clips"

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
