package keyframe

import (
	"math"
	"testing"

	"github.com/starford/tactica/internal/models"
)

func TestSmootherstep(t *testing.T) {
	tests := []struct {
		u, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{2, 1},
	}
	for _, tt := range tests {
		if got := Smootherstep(tt.u); got != tt.want {
			t.Errorf("Smootherstep(%v) = %v, want %v", tt.u, got, tt.want)
		}
	}
	// Monotonic on [0,1].
	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := Smootherstep(float64(i) / 100)
		if v < prev {
			t.Fatalf("not monotonic at %d: %v < %v", i, v, prev)
		}
		prev = v
	}
}

func TestInterpolate_Empty(t *testing.T) {
	if _, ok := Interpolate(nil, 1); ok {
		t.Error("empty keyframes should report !ok")
	}
}

func TestInterpolate_BoundariesVerbatim(t *testing.T) {
	kfs := []models.Keyframe{
		{Time: 1, X: 10, Y: 20, Rotation: models.Float(15)},
		{Time: 3, X: 30, Y: 40},
	}
	for _, at := range []float64{-5, 0, 1} {
		got, ok := Interpolate(kfs, at)
		if !ok || got.Time != 1 || got.X != 10 || got.Y != 20 || got.Rotation == nil || *got.Rotation != 15 {
			t.Errorf("Interpolate(%v) = %+v, want first keyframe", at, got)
		}
	}
	for _, at := range []float64{3, 3.5, 100} {
		got, ok := Interpolate(kfs, at)
		if !ok || got.Time != 3 || got.X != 30 || got.Y != 40 || got.Rotation != nil {
			t.Errorf("Interpolate(%v) = %+v, want last keyframe", at, got)
		}
	}
}

func TestInterpolate_NonFiniteTime(t *testing.T) {
	kfs := []models.Keyframe{{Time: 0}, {Time: 1, X: 10}}
	tests := []struct {
		t     float64
		wantX float64
	}{
		{math.NaN(), 0},
		{math.Inf(-1), 0},
		{math.Inf(1), 10},
	}
	for _, tt := range tests {
		got, ok := Interpolate(kfs, tt.t)
		if !ok || got.X != tt.wantX {
			t.Errorf("Interpolate(%v) = %+v, want X=%v", tt.t, got, tt.wantX)
		}
	}
}

func TestInterpolate_EasingMidpoint(t *testing.T) {
	kfs := []models.Keyframe{
		{Time: 0, X: 0, Y: 0},
		{Time: 2, X: 100, Y: 0},
	}
	got, ok := Interpolate(kfs, 1)
	if !ok {
		t.Fatal("expected ok")
	}
	if got.X != 50 {
		t.Errorf("x = %v, want 50", got.X)
	}
	if got.Y != 0 {
		t.Errorf("y = %v, want 0", got.Y)
	}
}

func TestInterpolate_BracketsMultipleSegments(t *testing.T) {
	kfs := []models.Keyframe{
		{Time: 0, X: 0},
		{Time: 1, X: 10},
		{Time: 2, X: 10},
		{Time: 4, X: -10, ScaleX: models.Float(2)},
	}
	tests := []struct {
		at    float64
		wantX float64
	}{
		{1, 10},
		{1.5, 10},
		{3, 0},
	}
	for _, tt := range tests {
		got, _ := Interpolate(kfs, tt.at)
		if math.Abs(got.X-tt.wantX) > 1e-9 {
			t.Errorf("Interpolate(%v).X = %v, want %v", tt.at, got.X, tt.wantX)
		}
	}
	// Scale present only on the right keyframe is held, not blended from zero.
	got, _ := Interpolate(kfs, 3)
	if got.ScaleX == nil || *got.ScaleX != 2 {
		t.Errorf("ScaleX = %v, want held 2", got.ScaleX)
	}
}

func TestInterpolate_OptionalFieldsBlend(t *testing.T) {
	kfs := []models.Keyframe{
		{Time: 0, Rotation: models.Float(0), ScaleY: models.Float(1)},
		{Time: 1, Rotation: models.Float(90), ScaleY: models.Float(3)},
	}
	got, _ := Interpolate(kfs, 0.5)
	if got.Rotation == nil || *got.Rotation != 45 {
		t.Errorf("rotation = %v, want 45", got.Rotation)
	}
	if got.ScaleY == nil || *got.ScaleY != 2 {
		t.Errorf("scaleY = %v, want 2", got.ScaleY)
	}
	if got.ScaleX != nil {
		t.Errorf("scaleX = %v, want nil", *got.ScaleX)
	}
}

func TestInterpolate_Deterministic(t *testing.T) {
	kfs := []models.Keyframe{{Time: 0, X: 1, Y: 2}, {Time: 0.7, X: 13, Y: -4}}
	a, _ := Interpolate(kfs, 0.31)
	b, _ := Interpolate(kfs, 0.31)
	if a.X != b.X || a.Y != b.Y {
		t.Error("same inputs produced different outputs")
	}
}

func TestInsert_DedupesAndSorts(t *testing.T) {
	kfs := []models.Keyframe{{Time: 0, X: 0}, {Time: 1, X: 1}}
	out := Insert(kfs, models.Keyframe{Time: 0.5, X: 5})
	if len(out) != 3 || out[1].Time != 0.5 {
		t.Fatalf("insert = %+v", out)
	}
	out = Insert(out, models.Keyframe{Time: 1.01, X: 7})
	if len(out) != 3 {
		t.Fatalf("near-duplicate should replace, got %+v", out)
	}
	if out[2].X != 7 {
		t.Errorf("replacement x = %v, want 7", out[2].X)
	}
	if len(kfs) != 2 || kfs[1].X != 1 {
		t.Error("input slice modified")
	}
}

func TestNormalize(t *testing.T) {
	out := Normalize([]models.Keyframe{{Time: 2}, {Time: 1}, {Time: 1.005, X: 3}})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Time != 1.005 || out[1].Time != 2 {
		t.Errorf("normalize = %+v", out)
	}
	if got := Normalize(nil); got == nil || len(got) != 0 {
		t.Errorf("Normalize(nil) = %v, want empty non-nil", got)
	}
}
