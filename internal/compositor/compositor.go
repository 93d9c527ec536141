// Package compositor turns the timeline into per-frame draw descriptors:
// which annotations are visible, their faded opacity and their smoothed
// transform.
package compositor

import (
	"github.com/starford/tactica/internal/keyframe"
	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/motion"
)

// Settings tunes visibility, fading and smoothing.
type Settings struct {
	// VisibilityMargin extends the visible window on both sides, in seconds.
	VisibilityMargin float64
	FadeDuration     float64
	// MinOpacity is the opacity at or below which an annotation is culled.
	MinOpacity      float64
	SmoothTransform float64
	SmoothOpacity   float64
}

// DefaultSettings returns the stock compositor settings.
func DefaultSettings() Settings {
	return Settings{
		VisibilityMargin: 0.1,
		FadeDuration:     0.5,
		MinOpacity:       0.01,
		SmoothTransform:  0.15,
		SmoothOpacity:    0.225,
	}
}

// Descriptor is one renderable annotation for the render surface.
type Descriptor struct {
	ID        string                `json:"id"`
	Type      models.AnnotationType `json:"type"`
	X         float64               `json:"x"`
	Y         float64               `json:"y"`
	Rotation  float64               `json:"rotation"`
	ScaleX    float64               `json:"scaleX"`
	ScaleY    float64               `json:"scaleY"`
	Opacity   float64               `json:"opacity"`
	Recording bool                  `json:"recording,omitempty"`

	Radius   float64      `json:"radius,omitempty"`
	Points   []float64    `json:"points,omitempty"`
	Text     string       `json:"text,omitempty"`
	FontSize float64      `json:"fontSize,omitempty"`
	Style    models.Style `json:"style"`
}

// LiveSource reports the raw transform of an annotation under recording.
type LiveSource interface {
	Live(id string) (motion.Pose, bool)
}

type smoothState struct {
	x, y, opacity, rotation, scaleX, scaleY float64
}

// Compositor owns the smoothing side table. It is not safe for concurrent use.
type Compositor struct {
	settings Settings
	smoothed map[string]smoothState
}

// New creates a compositor with empty smoothing state.
func New(settings Settings) *Compositor {
	return &Compositor{
		settings: settings,
		smoothed: make(map[string]smoothState),
	}
}

// Reset clears all smoothing state, e.g. on session switch.
func (c *Compositor) Reset() {
	clear(c.smoothed)
}

// Forget drops the smoothing state of one annotation.
func (c *Compositor) Forget(id string) {
	delete(c.smoothed, id)
}

// Tracked returns the number of annotations with smoothing state.
func (c *Compositor) Tracked() int {
	return len(c.smoothed)
}

// FadeOpacity returns the opacity of a at time t before smoothing: its style
// opacity shaped by a smootherstep fade-in after StartTime and fade-out
// before EndTime, clamped to [0,1].
func FadeOpacity(a models.Annotation, t, fadeDuration float64) float64 {
	if t < a.StartTime {
		return 0
	}
	op := a.Style.EffectiveOpacity()
	if fadeDuration > 0 {
		if t < a.StartTime+fadeDuration {
			op *= keyframe.Smootherstep((t - a.StartTime) / fadeDuration)
		}
		if t > a.EndTime-fadeDuration {
			op *= keyframe.Smootherstep(max(0, (a.EndTime-t)/fadeDuration))
		}
	} else if t > a.EndTime {
		op = 0
	}
	return min(1, max(0, op))
}

// Frame computes the descriptors for time t, in annotation order. live may
// be nil when nothing is being recorded.
func (c *Compositor) Frame(t float64, annotations []models.Annotation, live LiveSource) []Descriptor {
	s := c.settings
	out := make([]Descriptor, 0, len(annotations))
	seen := make(map[string]struct{}, len(annotations))

	for _, a := range annotations {
		seen[a.ID] = struct{}{}
		if t < a.StartTime-s.VisibilityMargin || t > a.EndTime+s.VisibilityMargin {
			delete(c.smoothed, a.ID)
			continue
		}
		opacity := FadeOpacity(a, t, s.FadeDuration)
		if opacity <= s.MinOpacity {
			delete(c.smoothed, a.ID)
			continue
		}

		d := describe(a)
		if live != nil {
			if pose, ok := live.Live(a.ID); ok {
				delete(c.smoothed, a.ID)
				d.X, d.Y = pose.X, pose.Y
				d.Rotation, d.ScaleX, d.ScaleY = pose.Rotation, pose.ScaleX, pose.ScaleY
				d.Opacity = opacity
				d.Recording = true
				out = append(out, d)
				continue
			}
		}

		target := motion.PoseAt(a, t)
		st, ok := c.smoothed[a.ID]
		if !ok {
			st = smoothState{
				x: target.X, y: target.Y, opacity: opacity,
				rotation: target.Rotation, scaleX: target.ScaleX, scaleY: target.ScaleY,
			}
		} else {
			k := s.SmoothTransform
			st.x += (target.X - st.x) * k
			st.y += (target.Y - st.y) * k
			st.rotation += (target.Rotation - st.rotation) * k
			st.scaleX += (target.ScaleX - st.scaleX) * k
			st.scaleY += (target.ScaleY - st.scaleY) * k
			st.opacity += (opacity - st.opacity) * s.SmoothOpacity
		}
		c.smoothed[a.ID] = st

		d.X, d.Y = st.x, st.y
		d.Rotation, d.ScaleX, d.ScaleY = st.rotation, st.scaleX, st.scaleY
		d.Opacity = st.opacity
		out = append(out, d)
	}

	for id := range c.smoothed {
		if _, ok := seen[id]; !ok {
			delete(c.smoothed, id)
		}
	}
	return out
}

func describe(a models.Annotation) Descriptor {
	return Descriptor{
		ID:       a.ID,
		Type:     a.Type,
		Radius:   a.Radius,
		Points:   a.Points,
		Text:     a.Text,
		FontSize: a.FontSize,
		Style:    a.Style,
	}
}
