// Package studio wires the timeline store, motion recorder, compositor,
// track editor and autosave into one editing session driven by input
// events and render ticks.
//
// A Studio is owned by a single goroutine. Only the event hook may be
// called from other goroutines (autosave status changes arrive on timer
// goroutines).
package studio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/tactica/internal/autosave"
	"github.com/starford/tactica/internal/compositor"
	"github.com/starford/tactica/internal/gateway"
	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/motion"
	"github.com/starford/tactica/internal/timeline"
	"github.com/starford/tactica/internal/trackeditor"
)

// MediaClock is the video playhead the studio drives.
type MediaClock interface {
	CurrentTime() float64
	Seek(t float64)
	Duration() float64
	Play()
	Pause()
	Paused() bool
	PlaybackRate() float64
	SetPlaybackRate(r float64)
}

// Event types emitted through the event hook.
const (
	EventTimelineChanged = "timeline.changed"
	EventSaveStatus      = "save.status"
)

// Event is a notification for outer surfaces such as SSE.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Kind      string `json:"kind,omitempty"`
	ID        string `json:"id,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Settings are the editor defaults.
type Settings struct {
	Timeline           timeline.Options
	Compositor         compositor.Settings
	AutosaveDelay      time.Duration
	AnnotationSpan     float64
	PauseSceneDuration float64
	FontSize           float64
	CanvasWidth        int
	CanvasHeight       int
	TrackWidth         float64
}

// DefaultSettings returns the stock editor settings.
func DefaultSettings() Settings {
	return Settings{
		Timeline:           timeline.DefaultOptions(),
		Compositor:         compositor.DefaultSettings(),
		AutosaveDelay:      autosave.DefaultDelay,
		AnnotationSpan:     5,
		PauseSceneDuration: 3,
		FontSize:           24,
		CanvasWidth:        1920,
		CanvasHeight:       1080,
		TrackWidth:         trackeditor.DefaultWidth,
	}
}

// Option configures a Studio.
type Option func(*Studio)

// WithEvents registers the event hook. It must be safe for concurrent use.
func WithEvents(fn func(Event)) Option {
	return func(s *Studio) { s.onEvent = fn }
}

// WithAutosaveOptions passes extra options to every session's autosaver.
func WithAutosaveOptions(opts ...autosave.Option) Option {
	return func(s *Studio) { s.saveOpts = append(s.saveOpts, opts...) }
}

// Studio is one editing session over a gateway and a media clock.
type Studio struct {
	gw       gateway.Gateway
	clock    MediaClock
	logger   *slog.Logger
	settings Settings
	onEvent  func(Event)
	saveOpts []autosave.Option

	store    *timeline.Store
	recorder *motion.Recorder
	comp     *compositor.Compositor
	editor   *trackeditor.Editor
	saver    *autosave.Autosaver

	session models.Session // metadata only; content lives in store

	tool           Tool
	selected       string
	pauseSceneMode bool
	gesture        *gesture
	pause          *pauseScene
	lastTime       float64
}

// New creates a studio with no open session.
func New(gw gateway.Gateway, clock MediaClock, settings Settings, logger *slog.Logger, opts ...Option) *Studio {
	s := &Studio{
		gw:       gw,
		clock:    clock,
		logger:   logger,
		settings: settings,
		tool:     ToolSelect,
	}
	for _, o := range opts {
		o(s)
	}
	s.store = timeline.New(clock.Duration(), settings.Timeline, logger)
	s.recorder = motion.NewRecorder(s.store, clock)
	s.comp = compositor.New(settings.Compositor)
	s.editor = trackeditor.New(s.store, settings.TrackWidth)
	s.store.Subscribe(s.onChange)
	return s
}

// Store returns the timeline store.
func (s *Studio) Store() *timeline.Store { return s.store }

// Editor returns the track editor.
func (s *Studio) Editor() *trackeditor.Editor { return s.editor }

// Recorder returns the motion recorder.
func (s *Studio) Recorder() *motion.Recorder { return s.recorder }

// Clock returns the media clock.
func (s *Studio) Clock() MediaClock { return s.clock }

// SessionID returns the open session id, or "" when none is open.
func (s *Studio) SessionID() string { return s.session.ID }

// Session returns the open session with its current content.
func (s *Studio) Session() models.Session {
	out := s.session
	snap := s.snapshot()
	out.Clips, out.Annotations = snap.Clips, snap.Annotations
	out.CanvasWidth, out.CanvasHeight = snap.CanvasWidth, snap.CanvasHeight
	return out
}

// SaveStatus returns the persistence indicator.
func (s *Studio) SaveStatus() autosave.Status {
	if s.saver == nil {
		return autosave.StatusSaved
	}
	return s.saver.Status()
}

func (s *Studio) snapshot() models.Snapshot {
	snap := s.store.Snapshot()
	snap.CanvasWidth = s.session.CanvasWidth
	snap.CanvasHeight = s.session.CanvasHeight
	if snap.CanvasWidth == 0 || snap.CanvasHeight == 0 {
		snap.CanvasWidth, snap.CanvasHeight = s.settings.CanvasWidth, s.settings.CanvasHeight
	}
	return snap
}

func (s *Studio) emit(e Event) {
	if s.onEvent != nil {
		s.onEvent(e)
	}
}

func (s *Studio) onChange(c timeline.Change) {
	if c.Kind == timeline.KindAnnotationDeleted {
		s.comp.Forget(c.ID)
		if s.selected == c.ID {
			s.selected = ""
		}
	}
	if c.Kind == timeline.KindClipDeleted {
		if ref, ok := s.editor.Selected(); ok && ref.ID == c.ID {
			s.editor.Deselect()
		}
	}
	if s.session.ID == "" {
		return
	}
	s.emit(Event{Type: EventTimelineChanged, SessionID: s.session.ID, Kind: string(c.Kind), ID: c.ID})
	if c.Kind != timeline.KindLoaded && s.saver != nil {
		s.saver.Schedule(s.snapshot())
	}
}

// Open switches to session id: the pending save of the previous session
// is cancelled, smoothing state cleared and recording exited before the
// new content is loaded.
func (s *Studio) Open(ctx context.Context, id string) error {
	sess, err := s.gw.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("studio: open %s: %w", id, err)
	}
	s.Close()

	if sess.VideoDuration > 0 {
		s.setClockDuration(sess.VideoDuration)
	} else {
		sess.VideoDuration = s.clock.Duration()
	}
	s.session = *sess
	s.session.Clips, s.session.Annotations = nil, nil
	s.clock.Pause()
	s.clock.Seek(0)
	s.lastTime = 0

	sessionID := sess.ID
	opts := append([]autosave.Option{
		autosave.WithDelay(s.settings.AutosaveDelay),
		autosave.WithStatusHook(func(st autosave.Status) {
			s.emit(Event{Type: EventSaveStatus, SessionID: sessionID, Status: string(st)})
		}),
	}, s.saveOpts...)
	s.saver = autosave.New(func(ctx context.Context, snap models.Snapshot) error {
		return s.gw.Save(ctx, sessionID, snap)
	}, s.logger, opts...)

	s.store.Load(sess)
	s.logger.Info("studio: session opened",
		slog.String("id", sess.ID),
		slog.Int("clips", len(sess.Clips)),
		slog.Int("annotations", len(sess.Annotations)))
	return nil
}

// Close leaves the current session without saving pending changes.
func (s *Studio) Close() {
	if s.saver != nil {
		s.saver.Cancel()
		s.saver = nil
	}
	s.recorder.Reset()
	s.comp.Reset()
	s.editor.Cancel()
	s.editor.Deselect()
	s.selected = ""
	s.gesture = nil
	s.pause = nil
	s.session = models.Session{}
}

// SaveNow saves the current content immediately.
func (s *Studio) SaveNow(ctx context.Context) error {
	if s.saver == nil {
		return fmt.Errorf("studio: no open session")
	}
	return s.saver.SaveNow(ctx, s.snapshot())
}

// SetVideo records the video of the open session and re-clamps the
// timeline to its duration.
func (s *Studio) SetVideo(ctx context.Context, fileName string, duration float64) error {
	if s.session.ID == "" {
		return fmt.Errorf("studio: no open session")
	}
	if err := s.gw.SetVideo(ctx, s.session.ID, fileName, duration); err != nil {
		return fmt.Errorf("studio: set video: %w", err)
	}
	s.session.VideoFileName = fileName
	s.session.VideoDuration = duration
	s.setClockDuration(duration)
	s.store.SetDuration(duration)
	return nil
}

func (s *Studio) setClockDuration(d float64) {
	if c, ok := s.clock.(interface{ SetDuration(float64) }); ok {
		c.SetDuration(d)
	}
}

// Selected returns the selected annotation id.
func (s *Studio) Selected() (string, bool) {
	return s.selected, s.selected != ""
}

// Select selects an annotation. Unknown ids clear the selection.
func (s *Studio) Select(id string) {
	if _, ok := s.store.Annotation(id); !ok {
		s.selected = ""
		return
	}
	s.selected = id
	s.editor.Select(trackeditor.ItemRef{Kind: trackeditor.KindAnnotation, ID: id})
}

// Seek moves the playhead. A running pause scene is abandoned.
func (s *Studio) Seek(t float64) {
	s.clock.Seek(t)
	s.lastTime = s.clock.CurrentTime()
	s.pause = nil
}

// MarkClip creates a clip at the playhead and selects it.
func (s *Studio) MarkClip() (models.Clip, bool) {
	c, ok := s.store.MarkClip(s.clock.CurrentTime(), "")
	if ok {
		s.editor.Select(trackeditor.ItemRef{Kind: trackeditor.KindClip, ID: c.ID})
	}
	return c, ok
}

// DeleteSelected deletes the selected annotation, ending any recording
// of it first.
func (s *Studio) DeleteSelected() bool {
	if s.selected == "" {
		return false
	}
	if s.recorder.IsRecording(s.selected) {
		s.recorder.Reset()
	}
	return s.store.DeleteAnnotation(s.selected)
}
