package compositor

import (
	"math"
	"testing"

	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/motion"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func circle(id string, start, end, x float64) models.Annotation {
	return models.Annotation{
		ID:        id,
		Type:      models.AnnotationCircle,
		StartTime: start,
		EndTime:   end,
		X:         x,
		Y:         10,
		Radius:    20,
		Transform: models.IdentityTransform(),
	}
}

type liveMap map[string]motion.Pose

func (m liveMap) Live(id string) (motion.Pose, bool) {
	p, ok := m[id]
	return p, ok
}

func TestFadeOpacity_Envelope(t *testing.T) {
	a := circle("a", 10, 20, 0)
	cases := []struct {
		t    float64
		want float64
	}{
		{9, 0},
		{10, 0},
		{10.25, 0.5},
		{10.5, 1},
		{15, 1},
		{19.5, 1},
		{19.75, 0.5},
		{20, 0},
		{20.5, 0},
	}
	for _, c := range cases {
		if got := FadeOpacity(a, c.t, 0.5); !approx(got, c.want) {
			t.Errorf("FadeOpacity(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestFadeOpacity_ScalesStyleOpacity(t *testing.T) {
	a := circle("a", 0, 10, 0)
	a.Style.Opacity = models.Float(0.4)
	if got := FadeOpacity(a, 5, 0.5); !approx(got, 0.4) {
		t.Errorf("opacity = %v, want 0.4", got)
	}
}

func TestFrame_VisibilityAndCulling(t *testing.T) {
	c := New(DefaultSettings())
	anns := []models.Annotation{circle("a", 10, 20, 0), circle("b", 0, 5, 0)}

	if got := c.Frame(9, anns, nil); len(got) != 0 {
		t.Errorf("t=9: %d descriptors, want 0", len(got))
	}
	// Inside the margin but faded to almost nothing.
	if got := c.Frame(10.05, anns, nil); len(got) != 0 {
		t.Errorf("t=10.05: %d descriptors, want 0", len(got))
	}
	got := c.Frame(2, anns, nil)
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("t=2: %+v", got)
	}
	if got[0].Radius != 20 || got[0].Type != models.AnnotationCircle {
		t.Errorf("descriptor lost geometry: %+v", got[0])
	}
}

func TestFrame_FirstSightStartsAtTarget(t *testing.T) {
	c := New(DefaultSettings())
	got := c.Frame(15, []models.Annotation{circle("a", 10, 20, 100)}, nil)
	if len(got) != 1 {
		t.Fatalf("descriptors = %d", len(got))
	}
	if got[0].X != 100 || got[0].Opacity != 1 || got[0].ScaleX != 1 {
		t.Errorf("descriptor = %+v", got[0])
	}
}

func TestFrame_SmoothsTowardTarget(t *testing.T) {
	c := New(DefaultSettings())
	a := circle("a", 10, 20, 100)
	c.Frame(10.25, []models.Annotation{a}, nil)

	a.X = 200
	got := c.Frame(15, []models.Annotation{a}, nil)[0]
	if !approx(got.X, 115) {
		t.Errorf("x = %v, want 115", got.X)
	}
	if !approx(got.Opacity, 0.5+0.5*0.225) {
		t.Errorf("opacity = %v, want %v", got.Opacity, 0.5+0.5*0.225)
	}
}

func TestFrame_FollowsKeyframes(t *testing.T) {
	c := New(DefaultSettings())
	a := circle("a", 0, 10, 0)
	a.Keyframes = []models.Keyframe{{Time: 2, X: 0, Y: 0}, {Time: 4, X: 100, Y: 0}}
	got := c.Frame(3, []models.Annotation{a}, nil)[0]
	if !approx(got.X, 50) {
		t.Errorf("x = %v, want 50", got.X)
	}
}

func TestFrame_RecordingBypassesSmoothing(t *testing.T) {
	c := New(DefaultSettings())
	a := circle("a", 0, 10, 0)
	c.Frame(5, []models.Annotation{a}, nil)
	if c.Tracked() != 1 {
		t.Fatalf("tracked = %d", c.Tracked())
	}

	live := liveMap{"a": {X: 300, Y: 40, ScaleX: 2, ScaleY: 2}}
	got := c.Frame(5.1, []models.Annotation{a}, live)[0]
	if !got.Recording || got.X != 300 || got.ScaleX != 2 {
		t.Errorf("descriptor = %+v, want raw live pose", got)
	}
	if c.Tracked() != 0 {
		t.Error("smoothing state should be dropped while recording")
	}

	// After recording the next frame starts from the target again.
	got = c.Frame(5.2, []models.Annotation{a}, nil)[0]
	if got.X != 0 || got.Recording {
		t.Errorf("descriptor = %+v", got)
	}
}

func TestFrame_PrunesDeletedAndReset(t *testing.T) {
	c := New(DefaultSettings())
	c.Frame(1, []models.Annotation{circle("a", 0, 5, 0), circle("b", 0, 5, 0)}, nil)
	if c.Tracked() != 2 {
		t.Fatalf("tracked = %d, want 2", c.Tracked())
	}
	c.Frame(1, []models.Annotation{circle("a", 0, 5, 0)}, nil)
	if c.Tracked() != 1 {
		t.Errorf("tracked = %d, want 1 after delete", c.Tracked())
	}
	c.Reset()
	if c.Tracked() != 0 {
		t.Error("Reset should clear smoothing state")
	}
}
