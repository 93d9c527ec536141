// Package gatewaytest holds the behavioural test suite every
// gateway.Gateway implementation must pass.
package gatewaytest

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/tactica/internal/apperr"
	"github.com/starford/tactica/internal/gateway"
	"github.com/starford/tactica/internal/models"
)

// Sample returns a snapshot exercising every persisted field.
func Sample() models.Snapshot {
	return models.Snapshot{
		CanvasWidth:  1920,
		CanvasHeight: 1080,
		Clips: []models.Clip{
			{ID: "c1", Name: "Clip 1", Type: "highlight", StartTime: 5, EndTime: 30, Duration: 25, Description: "kick-off"},
			{ID: "c2", Name: "Clip 2", Type: "try", StartTime: 40, EndTime: 41, Duration: 1},
		},
		Annotations: []models.Annotation{
			{
				ID: "a1", Type: models.AnnotationCircle, ClipID: "c1",
				StartTime: 6, EndTime: 9, X: 100, Y: 200, Radius: 40,
				Style:     models.Style{Fill: "#ff000033", Stroke: "#ff0000", StrokeWidth: 3, Opacity: models.Float(0.8)},
				Transform: models.Transform{Rotation: 15, ScaleX: 1.5, ScaleY: 1},
				Keyframes: []models.Keyframe{
					{Time: 6, X: 100, Y: 200},
					{Time: 7.5, X: 180, Y: 220, Rotation: models.Float(15), ScaleX: models.Float(1.5), ScaleY: models.Float(1)},
				},
			},
			{
				ID: "a2", Type: models.AnnotationPolygon, StartTime: 10, EndTime: 12,
				Points:             []float64{0, 0, 50, 0, 50, 50},
				Transform:          models.IdentityTransform(),
				IsPauseScene:       true,
				PauseSceneDuration: models.Float(4),
			},
			{
				ID: "a3", Type: models.AnnotationText, StartTime: 1, EndTime: 3,
				Text: "Line break", FontSize: 24, Transform: models.IdentityTransform(),
			},
		},
	}
}

// Run exercises gw through create, save, load, list, set-video and delete.
func Run(t *testing.T, gw gateway.Gateway) {
	t.Helper()
	ctx := context.Background()

	t.Run("create requires name", func(t *testing.T) {
		if _, err := gw.Create(ctx, "  "); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("err = %v, want ErrInvalid", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		id, err := gw.Create(ctx, "Round trip")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := gw.SetVideo(ctx, id, "match.mp4", 4800); err != nil {
			t.Fatalf("SetVideo: %v", err)
		}
		want := Sample()
		if err := gw.Save(ctx, id, want); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := gw.Load(ctx, id)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Name != "Round trip" || got.VideoFileName != "match.mp4" || got.VideoDuration != 4800 {
			t.Errorf("metadata = %+v", got)
		}
		if got.Checksum != gateway.Revision(want) {
			t.Errorf("checksum = %q, want %q", got.Checksum, gateway.Revision(want))
		}
		CheckSnapshot(t, want, got.Snapshot())
	})

	t.Run("last write wins", func(t *testing.T) {
		id, _ := gw.Create(ctx, "Overwrite")
		first := Sample()
		second := Sample()
		second.Clips = second.Clips[:1]
		second.Annotations = nil
		if err := gw.Save(ctx, id, first); err != nil {
			t.Fatal(err)
		}
		if err := gw.Save(ctx, id, second); err != nil {
			t.Fatal(err)
		}
		got, _ := gw.Load(ctx, id)
		if len(got.Clips) != 1 || len(got.Annotations) != 0 {
			t.Errorf("clips=%d annotations=%d, want 1/0", len(got.Clips), len(got.Annotations))
		}
	})

	t.Run("rejects invalid snapshot", func(t *testing.T) {
		id, _ := gw.Create(ctx, "Invalid")
		bad := models.Snapshot{Clips: []models.Clip{{ID: "x", StartTime: 5, EndTime: 2}}}
		if err := gw.Save(ctx, id, bad); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("err = %v, want ErrInvalid", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := gw.Load(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Load err = %v, want ErrNotFound", err)
		}
		if err := gw.Save(ctx, "missing", models.Snapshot{}); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Save err = %v, want ErrNotFound", err)
		}
		if err := gw.Delete(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Delete err = %v, want ErrNotFound", err)
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		id, _ := gw.Create(ctx, "Listed")
		if err := gw.Save(ctx, id, Sample()); err != nil {
			t.Fatal(err)
		}
		list, err := gw.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		var found *models.SessionSummary
		for i := range list {
			if list[i].ID == id {
				found = &list[i]
			}
		}
		if found == nil {
			t.Fatalf("session %s not listed", id)
		}
		if found.ClipCount != 2 || found.AnnotationCount != 3 || found.Name != "Listed" {
			t.Errorf("summary = %+v", *found)
		}

		if err := gw.Delete(ctx, id); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := gw.Load(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Load after delete err = %v", err)
		}
	})
}

// CheckSnapshot compares two snapshots field by field.
func CheckSnapshot(t *testing.T, want, got models.Snapshot) {
	t.Helper()
	if got.CanvasWidth != want.CanvasWidth || got.CanvasHeight != want.CanvasHeight {
		t.Errorf("canvas = %dx%d, want %dx%d", got.CanvasWidth, got.CanvasHeight, want.CanvasWidth, want.CanvasHeight)
	}
	if len(got.Clips) != len(want.Clips) {
		t.Fatalf("clips = %d, want %d", len(got.Clips), len(want.Clips))
	}
	for i := range want.Clips {
		if got.Clips[i] != want.Clips[i] {
			t.Errorf("clip[%d] = %+v, want %+v", i, got.Clips[i], want.Clips[i])
		}
	}
	if len(got.Annotations) != len(want.Annotations) {
		t.Fatalf("annotations = %d, want %d", len(got.Annotations), len(want.Annotations))
	}
	for i := range want.Annotations {
		checkAnnotation(t, i, want.Annotations[i], got.Annotations[i])
	}
}

func checkAnnotation(t *testing.T, i int, want, got models.Annotation) {
	t.Helper()
	if got.ID != want.ID || got.Type != want.Type || got.ClipID != want.ClipID ||
		got.StartTime != want.StartTime || got.EndTime != want.EndTime ||
		got.X != want.X || got.Y != want.Y || got.Radius != want.Radius ||
		got.Text != want.Text || got.FontSize != want.FontSize ||
		got.Transform != want.Transform || got.IsPauseScene != want.IsPauseScene {
		t.Errorf("annotation[%d] = %+v, want %+v", i, got, want)
	}
	if !floatPtrEqual(got.PauseSceneDuration, want.PauseSceneDuration) {
		t.Errorf("annotation[%d] pause duration mismatch", i)
	}
	if got.Style.Fill != want.Style.Fill || got.Style.Stroke != want.Style.Stroke ||
		got.Style.StrokeWidth != want.Style.StrokeWidth || !floatPtrEqual(got.Style.Opacity, want.Style.Opacity) {
		t.Errorf("annotation[%d] style = %+v, want %+v", i, got.Style, want.Style)
	}
	if len(got.Points) != len(want.Points) {
		t.Errorf("annotation[%d] points = %v, want %v", i, got.Points, want.Points)
	} else {
		for j := range want.Points {
			if got.Points[j] != want.Points[j] {
				t.Errorf("annotation[%d] point %d = %v, want %v", i, j, got.Points[j], want.Points[j])
			}
		}
	}
	if len(got.Keyframes) != len(want.Keyframes) {
		t.Errorf("annotation[%d] keyframes = %d, want %d", i, len(got.Keyframes), len(want.Keyframes))
		return
	}
	for j, kf := range want.Keyframes {
		g := got.Keyframes[j]
		if g.Time != kf.Time || g.X != kf.X || g.Y != kf.Y ||
			!floatPtrEqual(g.Rotation, kf.Rotation) || !floatPtrEqual(g.ScaleX, kf.ScaleX) || !floatPtrEqual(g.ScaleY, kf.ScaleY) {
			t.Errorf("annotation[%d] keyframe %d = %+v, want %+v", i, j, g, kf)
		}
	}
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
