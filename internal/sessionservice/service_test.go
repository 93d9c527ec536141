package sessionservice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/starford/tactica/internal/apperr"
	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/motion"
	"github.com/starford/tactica/internal/studio"
	"github.com/starford/tactica/internal/testutil"
	"github.com/starford/tactica/internal/timeline"
)

type recordingPublisher struct {
	mu       sync.Mutex
	timeline []string
	sessions []string
}

func (p *recordingPublisher) PublishTimelineChange(_, kind, _ string) {
	p.mu.Lock()
	p.timeline = append(p.timeline, kind)
	p.mu.Unlock()
}

func (p *recordingPublisher) PublishSessionEvent(kind, _ string) {
	p.mu.Lock()
	p.sessions = append(p.sessions, kind)
	p.mu.Unlock()
}

func newService(t *testing.T) (*Service, *recordingPublisher, string) {
	t.Helper()
	db := testutil.TestDB(t)
	id := testutil.SeedSession(t, db, "Derby", 100, nil)
	pub := &recordingPublisher{}
	return NewService(db, studio.DefaultSettings(), testutil.Logger(), pub), pub, id
}

func TestMarkClip_ClampsAndPublishes(t *testing.T) {
	svc, pub, id := newService(t)
	ctx := context.Background()

	c, err := svc.MarkClip(ctx, id, 90, "")
	if err != nil {
		t.Fatal(err)
	}
	if c.StartTime != 90 || c.EndTime != 100 || c.Type != "highlight" {
		t.Errorf("clip = %+v", c)
	}
	sess, err := svc.GetSession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Clips) != 1 || sess.CanvasWidth != 1920 {
		t.Errorf("saved session = %+v", sess)
	}
	if len(pub.timeline) != 1 || pub.timeline[0] != string(timeline.KindClipCreated) {
		t.Errorf("timeline events = %v", pub.timeline)
	}
}

func TestMarkClip_NoDuration(t *testing.T) {
	db := testutil.TestDB(t)
	id, err := db.Create(context.Background(), "No video")
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(db, studio.DefaultSettings(), testutil.Logger(), nil)
	_, err = svc.MarkClip(context.Background(), id, 3, "")
	if !errors.Is(err, apperr.ErrNoMedia) || !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrNoMedia", err)
	}
}

func TestAnnotationEdits(t *testing.T) {
	svc, _, id := newService(t)
	ctx := context.Background()

	a, err := svc.AddAnnotation(ctx, id, models.Annotation{Type: models.AnnotationCircle, StartTime: 98, EndTime: 120, Radius: 10})
	if err != nil {
		t.Fatal(err)
	}
	if a.EndTime != 100 || a.ID == "" {
		t.Errorf("annotation = %+v", a)
	}

	text := "Press here"
	start := 10.0
	if _, err := svc.UpdateAnnotation(ctx, id, a.ID, timeline.AnnotationPatch{Text: &text, StartTime: &start}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateAnnotation(ctx, id, "missing", timeline.AnnotationPatch{Text: &text}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update unknown err = %v", err)
	}

	got, err := svc.RecordMotion(ctx, id, a.ID, 20, 22, []motion.Pose{
		{X: 0, Y: 0, ScaleX: 1, ScaleY: 1},
		{X: 50, Y: 0, ScaleX: 1, ScaleY: 1},
		{X: 100, Y: 0, ScaleX: 1, ScaleY: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Keyframes) != 3 || got.Keyframes[1].Time != 21 || got.Keyframes[2].X != 100 {
		t.Errorf("keyframes = %+v", got.Keyframes)
	}

	frame, err := svc.Frame(ctx, id, 21)
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != 1 || frame[0].X != 50 {
		t.Errorf("frame = %+v", frame)
	}
	if frame, _ := svc.Frame(ctx, id, 5); len(frame) != 0 {
		t.Errorf("frame before start = %+v", frame)
	}

	if err := svc.DeleteAnnotation(ctx, id, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteAnnotation(ctx, id, a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestSaveSession_IfMatch(t *testing.T) {
	svc, pub, id := newService(t)
	ctx := context.Background()

	sess, err := svc.GetSession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	snap := models.Snapshot{Clips: []models.Clip{{ID: "c1", Name: "Press", StartTime: 1, EndTime: 5, Duration: 4}}}

	if _, err := svc.SaveSession(ctx, id, snap, "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale save err = %v, want ErrConflict", err)
	}
	saved, err := svc.SaveSession(ctx, id, snap, sess.Checksum)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Checksum == sess.Checksum || len(saved.Clips) != 1 {
		t.Errorf("saved = %+v", saved)
	}
	if _, err := svc.SaveSession(ctx, id, snap, ""); err != nil {
		t.Errorf("unconditional save: %v", err)
	}
	if len(pub.sessions) != 2 {
		t.Errorf("session events = %v", pub.sessions)
	}
}

func TestSetVideo_ReclampsContent(t *testing.T) {
	svc, _, id := newService(t)
	ctx := context.Background()
	if _, err := svc.MarkClip(ctx, id, 80, ""); err != nil {
		t.Fatal(err)
	}
	sess, err := svc.SetVideo(ctx, id, "short.mp4", 50)
	if err != nil {
		t.Fatal(err)
	}
	if sess.VideoDuration != 50 || len(sess.Clips) != 1 {
		t.Fatalf("session = %+v", sess)
	}
	if c := sess.Clips[0]; c.EndTime > 50 || c.EndTime-c.StartTime < 1 {
		t.Errorf("clip not clamped: %+v", c)
	}
}

func TestCreateListDelete(t *testing.T) {
	svc, pub, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.CreateSession(ctx, "  "); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("blank name err = %v", err)
	}
	sess, err := svc.CreateSession(ctx, "Cup final")
	if err != nil {
		t.Fatal(err)
	}
	items, err := svc.ListSessions(ctx)
	if err != nil || len(items) != 2 {
		t.Fatalf("list = %v, %v", items, err)
	}
	if err := svc.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetSession(ctx, sess.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get deleted err = %v", err)
	}
	want := []string{EventCreated, EventRemoved}
	if len(pub.sessions) != 2 || pub.sessions[0] != want[0] || pub.sessions[1] != want[1] {
		t.Errorf("session events = %v, want %v", pub.sessions, want)
	}
}
