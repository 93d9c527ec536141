package studio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/starford/tactica/internal/autosave"
	"github.com/starford/tactica/internal/mediaclock"
	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/motion"
	"github.com/starford/tactica/internal/sessiondb"
	"github.com/starford/tactica/internal/testutil"
	"github.com/starford/tactica/internal/trackeditor"
)

// manualTimers runs debounce callbacks only when fired explicitly.
type manualTimers struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (m *manualTimers) AfterFunc(_ time.Duration, f func()) autosave.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{f: f}
	m.pending = append(m.pending, t)
	return t
}

func (m *manualTimers) FireAll() {
	m.mu.Lock()
	timers := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.stopped = true
			t.f()
		}
	}
}

type fixture struct {
	studio *Studio
	db     *sessiondb.DB
	clock  *mediaclock.Clock
	timers *manualTimers
	events *eventSink
	id     string
}

type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventSink) add(ev Event) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *eventSink) count(typ string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func newFixture(t *testing.T, snap *models.Snapshot) *fixture {
	t.Helper()
	db := testutil.TestDB(t)
	id := testutil.SeedSession(t, db, "Final", 60, snap)
	clock := mediaclock.New(0)
	timers := &manualTimers{}
	events := &eventSink{}
	s := New(db, clock, DefaultSettings(), testutil.Logger(),
		WithEvents(events.add),
		WithAutosaveOptions(autosave.WithAfterFunc(timers.AfterFunc)),
	)
	if err := s.Open(context.Background(), id); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return &fixture{studio: s, db: db, clock: clock, timers: timers, events: events, id: id}
}

func (f *fixture) load(t *testing.T, id string) *models.Session {
	t.Helper()
	sess, err := f.db.Load(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return sess
}

func TestOpen_SetsClockAndLoadsContent(t *testing.T) {
	snap := &models.Snapshot{Clips: []models.Clip{{ID: "c1", Name: "Clip 1", StartTime: 2, EndTime: 8, Duration: 6}}}
	f := newFixture(t, snap)
	if f.clock.Duration() != 60 {
		t.Errorf("clock duration = %v, want 60", f.clock.Duration())
	}
	if len(f.studio.Store().Clips()) != 1 {
		t.Errorf("clips = %d, want 1", len(f.studio.Store().Clips()))
	}
	if f.studio.SaveStatus() != autosave.StatusSaved {
		t.Errorf("status = %v", f.studio.SaveStatus())
	}
	if f.studio.Session().VideoFileName != "Final.mp4" {
		t.Errorf("session = %+v", f.studio.Session())
	}
}

func TestChange_DebouncedSave(t *testing.T) {
	f := newFixture(t, nil)
	f.clock.Seek(12)
	if !f.studio.HandleKey(Key{Code: "m"}) {
		t.Fatal("M not handled")
	}
	if f.studio.SaveStatus() != autosave.StatusUnsaved {
		t.Errorf("status = %v, want unsaved", f.studio.SaveStatus())
	}
	if got := f.load(t, f.id); len(got.Clips) != 0 {
		t.Fatal("saved before the debounce fired")
	}

	f.timers.FireAll()
	got := f.load(t, f.id)
	if len(got.Clips) != 1 || got.Clips[0].StartTime != 12 || got.Clips[0].EndTime != 37 {
		t.Errorf("saved clips = %+v", got.Clips)
	}
	if f.studio.SaveStatus() != autosave.StatusSaved {
		t.Errorf("status = %v, want saved", f.studio.SaveStatus())
	}
	if f.events.count(EventSaveStatus) < 3 || f.events.count(EventTimelineChanged) < 1 {
		t.Errorf("events = %+v", f.events.events)
	}
}

func TestOpen_SwitchCancelsPendingSave(t *testing.T) {
	f := newFixture(t, nil)
	other := testutil.SeedSession(t, f.db, "Other", 30, nil)

	f.studio.MarkClip()
	if err := f.studio.Open(context.Background(), other); err != nil {
		t.Fatal(err)
	}
	f.timers.FireAll()
	if got := f.load(t, f.id); len(got.Clips) != 0 {
		t.Error("pending save of the previous session should be cancelled")
	}
	if f.clock.Duration() != 30 || f.studio.SessionID() != other {
		t.Errorf("switched to %s with duration %v", f.studio.SessionID(), f.clock.Duration())
	}
}

func TestHandleKey_PlaybackAndSeek(t *testing.T) {
	f := newFixture(t, nil)
	s := f.studio

	s.HandleKey(Key{Code: "Space"})
	if f.clock.Paused() {
		t.Error("space should play")
	}
	s.HandleKey(Key{Code: "Space"})
	if !f.clock.Paused() {
		t.Error("space should pause")
	}

	s.HandleKey(Key{Code: "ArrowRight"})
	s.HandleKey(Key{Code: "ArrowRight", Secondary: true})
	if f.clock.CurrentTime() != 11 {
		t.Errorf("t = %v, want 11", f.clock.CurrentTime())
	}
	s.HandleKey(Key{Code: "ArrowLeft"})
	s.HandleKey(Key{Code: "ArrowLeft"})
	if f.clock.CurrentTime() != 0 {
		t.Errorf("t = %v, want clamped 0", f.clock.CurrentTime())
	}

	if s.HandleKey(Key{Code: "+"}) {
		t.Error("+ without primary modifier should not zoom")
	}
	s.HandleKey(Key{Code: "+", Primary: true})
	if s.Editor().Zoom() != 1.5 {
		t.Errorf("zoom = %v", s.Editor().Zoom())
	}
	s.HandleKey(Key{Code: "-", Primary: true})
	if s.Editor().Zoom() != 1 {
		t.Errorf("zoom = %v", s.Editor().Zoom())
	}

	s.HandleKey(Key{Code: "R"})
	if f.clock.PlaybackRate() != 1.5 {
		t.Errorf("rate = %v, want 1.5", f.clock.PlaybackRate())
	}
}

func TestHandleKey_DeleteSelected(t *testing.T) {
	f := newFixture(t, nil)
	s := f.studio
	s.SetTool(ToolCircle)
	s.PointerDownCanvas(motion.Point{X: 100, Y: 100}, "", false)
	a, ok := s.PointerUpCanvas(motion.Point{X: 130, Y: 140}, nil)
	if !ok {
		t.Fatal("circle not created")
	}
	if sel, _ := s.Selected(); sel != a.ID {
		t.Fatalf("selected = %q, want new annotation", sel)
	}
	if !s.HandleKey(Key{Code: "Backspace"}) {
		t.Error("Backspace not handled")
	}
	if _, ok := s.Store().Annotation(a.ID); ok {
		t.Error("annotation not deleted")
	}
	if _, ok := s.Selected(); ok {
		t.Error("selection should clear")
	}
	if s.HandleKey(Key{Code: "Delete"}) {
		t.Error("Delete with nothing selected should not be consumed")
	}
}

func TestEscape_Priority(t *testing.T) {
	f := newFixture(t, &models.Snapshot{Annotations: []models.Annotation{
		{ID: "a1", Type: models.AnnotationCircle, StartTime: 0, EndTime: 30, X: 10, Y: 10, Transform: models.IdentityTransform()},
	}})
	s := f.studio

	s.SetTool(ToolArrow)
	s.HandleKey(Key{Code: "Escape"})
	if s.Tool() != ToolSelect {
		t.Fatalf("tool = %v, want select", s.Tool())
	}

	s.PointerDownCanvas(motion.Point{X: 10, Y: 10}, "a1", true)
	if !s.Recorder().IsRecording("a1") {
		t.Fatal("modifier drag should start recording")
	}
	s.HandleKey(Key{Code: "Escape"})
	if s.Recorder().State().Mode != motion.Idle {
		t.Error("escape should exit recording")
	}
	if _, ok := s.Selected(); !ok {
		t.Error("escape exiting recording should keep the selection")
	}

	s.HandleKey(Key{Code: "Escape"})
	if _, ok := s.Selected(); ok {
		t.Error("third escape should deselect")
	}
}

func TestRecording_WritesKeyframesAndRendersRaw(t *testing.T) {
	f := newFixture(t, &models.Snapshot{Annotations: []models.Annotation{
		{ID: "a1", Type: models.AnnotationCircle, StartTime: 0, EndTime: 30, X: 10, Y: 10, Transform: models.IdentityTransform()},
	}})
	s := f.studio
	f.clock.Seek(5)
	s.Tick(0)

	s.PointerDownCanvas(motion.Point{X: 10, Y: 10}, "a1", true)
	if f.clock.Paused() {
		t.Error("recording should resume playback")
	}
	s.Tick(0.5)
	s.PointerMoveCanvas(motion.Point{X: 60, Y: 10}, &motion.Pose{X: 60, Y: 10, ScaleX: 1, ScaleY: 1})
	frame := s.Tick(0.1)
	if len(frame) != 1 || !frame[0].Recording || frame[0].X != 60 {
		t.Fatalf("frame = %+v, want raw live pose", frame)
	}
	s.PointerUpCanvas(motion.Point{X: 80, Y: 10}, &motion.Pose{X: 80, Y: 10, ScaleX: 1, ScaleY: 1})

	a, _ := s.Store().Annotation("a1")
	if len(a.Keyframes) != 3 {
		t.Fatalf("keyframes = %+v, want 3", a.Keyframes)
	}
	if a.Keyframes[0].Time != 5 || a.Keyframes[2].X != 80 {
		t.Errorf("keyframes = %+v", a.Keyframes)
	}
}

func TestDrawing_GesturesAndClipAssociation(t *testing.T) {
	f := newFixture(t, &models.Snapshot{Clips: []models.Clip{{ID: "c1", StartTime: 10, EndTime: 20, Duration: 10}}})
	s := f.studio
	s.Editor().Select(trackeditor.ItemRef{Kind: trackeditor.KindClip, ID: "c1"})
	s.Seek(12)

	s.SetTool(ToolLine)
	s.PointerDownCanvas(motion.Point{X: 5, Y: 5}, "", false)
	if _, ok := s.PointerUpCanvas(motion.Point{X: 6, Y: 5}, nil); ok {
		t.Error("a click with the line tool should not create a line")
	}

	s.PointerDownCanvas(motion.Point{X: 5, Y: 5}, "", false)
	s.PointerMoveCanvas(motion.Point{X: 50, Y: 20}, nil)
	line, ok := s.PointerUpCanvas(motion.Point{X: 105, Y: 5}, nil)
	if !ok {
		t.Fatal("line not created")
	}
	if line.Points[2] != 100 || line.Points[3] != 0 {
		t.Errorf("points = %v", line.Points)
	}
	if line.StartTime != 12 || line.EndTime != 17 || line.ClipID != "c1" {
		t.Errorf("line = %+v", line)
	}

	s.SetTool(ToolPolygon)
	s.PointerDownCanvas(motion.Point{X: 50, Y: 80}, "", false)
	poly, ok := s.PointerUpCanvas(motion.Point{X: 10, Y: 20}, nil)
	if !ok || poly.X != 10 || poly.Y != 20 || poly.Points[4] != 40 || poly.Points[5] != 60 {
		t.Errorf("polygon = %+v", poly)
	}

	s.SetTool(ToolText)
	s.PointerDownCanvas(motion.Point{X: 1, Y: 2}, "", false)
	text, ok := s.PointerUpCanvas(motion.Point{X: 1, Y: 2}, nil)
	if !ok || text.Text == "" || text.FontSize != 24 {
		t.Errorf("text = %+v", text)
	}
}

func TestPauseScene_PausesThenResumes(t *testing.T) {
	f := newFixture(t, &models.Snapshot{Annotations: []models.Annotation{
		{ID: "p1", Type: models.AnnotationSpotlight, StartTime: 2, EndTime: 6, Radius: 30,
			Transform: models.IdentityTransform(), IsPauseScene: true, PauseSceneDuration: models.Float(1.5)},
	}})
	s := f.studio
	s.TogglePlay()
	for i := 0; i < 4; i++ {
		s.Tick(0.5)
	}
	if !f.clock.Paused() || f.clock.CurrentTime() != 2 {
		t.Fatalf("paused=%v t=%v, want paused at 2", f.clock.Paused(), f.clock.CurrentTime())
	}
	if id, _, ok := s.PauseScene(); !ok || id != "p1" {
		t.Fatal("pause scene not active")
	}

	s.Tick(1)
	if !f.clock.Paused() {
		t.Error("resumed too early")
	}
	s.Tick(0.5)
	if f.clock.Paused() {
		t.Error("should resume after the pause duration")
	}
	s.Tick(0.5)
	if _, _, ok := s.PauseScene(); ok || f.clock.CurrentTime() != 2.5 {
		t.Errorf("t = %v, want 2.5 without re-pausing", f.clock.CurrentTime())
	}
}

func TestPauseSceneMode_DrawingPausesPlayback(t *testing.T) {
	f := newFixture(t, nil)
	s := f.studio
	s.TogglePauseSceneMode()
	s.TogglePlay()
	s.SetTool(ToolCircle)
	s.PointerDownCanvas(motion.Point{X: 10, Y: 10}, "", false)
	a, ok := s.PointerUpCanvas(motion.Point{X: 10, Y: 10}, nil)
	if !ok || !a.IsPauseScene || a.PauseSceneDuration == nil || *a.PauseSceneDuration != 3 {
		t.Errorf("annotation = %+v", a)
	}
	if a.Radius != defaultRadius {
		t.Errorf("radius = %v, want default", a.Radius)
	}
	if !f.clock.Paused() {
		t.Error("drawing a pause scene should pause playback")
	}
}

func TestFrame_HidesInvisibleLayers(t *testing.T) {
	f := newFixture(t, &models.Snapshot{Annotations: []models.Annotation{
		{ID: "a1", Type: models.AnnotationCircle, StartTime: 0, EndTime: 30, Transform: models.IdentityTransform()},
		{ID: "a2", Type: models.AnnotationText, StartTime: 0, EndTime: 30, Text: "x", Transform: models.IdentityTransform()},
	}})
	s := f.studio
	if got := s.Frame(5); len(got) != 2 {
		t.Fatalf("frame = %d descriptors", len(got))
	}
	s.Editor().ToggleVisible("text")
	got := s.Frame(5)
	if len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("frame = %+v", got)
	}
	if len(s.Store().Annotations()) != 2 {
		t.Error("hiding a layer must not touch the model")
	}
}

func TestTrack_ClickSeeksAndSelects(t *testing.T) {
	f := newFixture(t, &models.Snapshot{Annotations: []models.Annotation{
		{ID: "a1", Type: models.AnnotationArrow, StartTime: 30, EndTime: 36, Points: []float64{0, 0, 5, 5}, Transform: models.IdentityTransform()},
	}})
	s := f.studio
	// 60s on a 1000px track: a1 spans x 500..600.
	if !s.TrackPointerDown("arrow", 550) {
		t.Fatal("track item not hit")
	}
	rel, ok := s.TrackPointerUp(551)
	if !ok || !rel.Click {
		t.Fatalf("release = %+v", rel)
	}
	if f.clock.CurrentTime() != 30 {
		t.Errorf("t = %v, want 30", f.clock.CurrentTime())
	}
	if sel, _ := s.Selected(); sel != "a1" {
		t.Errorf("selected = %q", sel)
	}

	s.RulerClick(250)
	if f.clock.CurrentTime() != 15 {
		t.Errorf("ruler seek t = %v, want 15", f.clock.CurrentTime())
	}
}

func TestSaveNow(t *testing.T) {
	f := newFixture(t, nil)
	f.studio.MarkClip()
	if err := f.studio.SaveNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := f.load(t, f.id); len(got.Clips) != 1 || got.CanvasWidth != 1920 {
		t.Errorf("saved = %+v", got)
	}
}
