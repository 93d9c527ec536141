// Package sessionservice applies session operations for the HTTP and MCP
// surfaces on top of a persistence gateway.
package sessionservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/tactica/internal/apperr"
	"github.com/starford/tactica/internal/compositor"
	"github.com/starford/tactica/internal/gateway"
	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/motion"
	"github.com/starford/tactica/internal/studio"
	"github.com/starford/tactica/internal/timeline"
)

// Publisher receives change notifications, normally the SSE broker.
type Publisher interface {
	PublishTimelineChange(sessionID, kind, id string)
	PublishSessionEvent(kind, sessionID string)
}

// Session event kinds published by the service.
const (
	EventCreated = "created"
	EventWritten = "written"
	EventRemoved = "removed"
)

// Service serialises edits to sessions. Every edit loads the session into a
// fresh timeline store, applies the change with the store's clamping rules
// and saves the result.
type Service struct {
	gw       gateway.Gateway
	settings studio.Settings
	logger   *slog.Logger
	pub      Publisher

	mu sync.Mutex
}

// NewService creates a session service. pub may be nil.
func NewService(gw gateway.Gateway, settings studio.Settings, logger *slog.Logger, pub Publisher) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gw: gw, settings: settings, logger: logger, pub: pub}
}

func (s *Service) publish(kind, id string) {
	if s.pub != nil {
		s.pub.PublishSessionEvent(kind, id)
	}
}

// ListSessions returns all session summaries, most recently updated first.
func (s *Service) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	items, err := s.gw.List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.SessionSummary{}
	}
	return items, nil
}

// GetSession loads a session with its content.
func (s *Service) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return s.gw.Load(ctx, id)
}

// CreateSession creates an empty session and returns it.
func (s *Service) CreateSession(ctx context.Context, name string) (*models.Session, error) {
	id, err := s.gw.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	s.publish(EventCreated, id)
	return s.gw.Load(ctx, id)
}

// SaveSession replaces the content of a session. A non-empty ifMatch must
// equal the stored revision.
func (s *Service) SaveSession(ctx context.Context, id string, snap models.Snapshot, ifMatch string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.gw.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != current.Checksum {
		return nil, apperr.ErrConflict
	}
	if err := s.gw.Save(ctx, id, snap); err != nil {
		return nil, err
	}
	s.publish(EventWritten, id)
	return s.gw.Load(ctx, id)
}

// SetVideo records the video of a session. Existing content is re-clamped
// to the new duration.
func (s *Service) SetVideo(ctx context.Context, id, fileName string, duration float64) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gw.SetVideo(ctx, id, fileName, duration); err != nil {
		return nil, err
	}
	sess, err := s.gw.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if duration > 0 && (len(sess.Clips) > 0 || len(sess.Annotations) > 0) {
		store := timeline.New(duration, s.settings.Timeline, s.logger)
		store.Load(sess)
		if err := s.gw.Save(ctx, id, s.snapshot(sess, store)); err != nil {
			return nil, err
		}
		if sess, err = s.gw.Load(ctx, id); err != nil {
			return nil, err
		}
	}
	s.publish(EventWritten, id)
	return sess, nil
}

// DeleteSession removes a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.gw.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(EventRemoved, id)
	return nil
}

// MarkClip creates a clip at time at in the session.
func (s *Service) MarkClip(ctx context.Context, id string, at float64, clipType string) (models.Clip, error) {
	var out models.Clip
	err := s.edit(ctx, id, func(store *timeline.Store) error {
		c, ok := store.MarkClip(at, clipType)
		if !ok {
			return apperr.ErrNoMedia
		}
		out = c
		return nil
	})
	return out, err
}

// UpdateClip patches a clip in the session.
func (s *Service) UpdateClip(ctx context.Context, id, clipID string, patch timeline.ClipPatch) (models.Clip, error) {
	var out models.Clip
	err := s.edit(ctx, id, func(store *timeline.Store) error {
		c, ok := store.UpdateClip(clipID, patch)
		if !ok {
			return fmt.Errorf("clip %s: %w", clipID, apperr.ErrNotFound)
		}
		out = c
		return nil
	})
	return out, err
}

// DeleteClip removes a clip. Annotations drawn within it are detached.
func (s *Service) DeleteClip(ctx context.Context, id, clipID string) error {
	return s.edit(ctx, id, func(store *timeline.Store) error {
		if !store.DeleteClip(clipID) {
			return fmt.Errorf("clip %s: %w", clipID, apperr.ErrNotFound)
		}
		return nil
	})
}

// AddAnnotation adds an annotation to the session.
func (s *Service) AddAnnotation(ctx context.Context, id string, a models.Annotation) (models.Annotation, error) {
	var out models.Annotation
	err := s.edit(ctx, id, func(store *timeline.Store) error {
		created, err := store.AddAnnotation(a)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	return out, err
}

// UpdateAnnotation patches an annotation in the session.
func (s *Service) UpdateAnnotation(ctx context.Context, id, annotationID string, patch timeline.AnnotationPatch) (models.Annotation, error) {
	var out models.Annotation
	err := s.edit(ctx, id, func(store *timeline.Store) error {
		a, ok := store.UpdateAnnotation(annotationID, patch)
		if !ok {
			return fmt.Errorf("annotation %s: %w", annotationID, apperr.ErrNotFound)
		}
		out = a
		return nil
	})
	return out, err
}

// DeleteAnnotation removes an annotation from the session.
func (s *Service) DeleteAnnotation(ctx context.Context, id, annotationID string) error {
	return s.edit(ctx, id, func(store *timeline.Store) error {
		if !store.DeleteAnnotation(annotationID) {
			return fmt.Errorf("annotation %s: %w", annotationID, apperr.ErrNotFound)
		}
		return nil
	})
}

// RecordMotion writes keyframes for a drag of an annotation: poses are
// sampled at evenly spaced times from start to end.
func (s *Service) RecordMotion(ctx context.Context, id, annotationID string, start, end float64, poses []motion.Pose) (models.Annotation, error) {
	var out models.Annotation
	err := s.edit(ctx, id, func(store *timeline.Store) error {
		if _, ok := store.Annotation(annotationID); !ok {
			return fmt.Errorf("annotation %s: %w", annotationID, apperr.ErrNotFound)
		}
		if len(poses) == 0 {
			return fmt.Errorf("at least one pose is required: %w", apperr.ErrInvalid)
		}
		step := 0.0
		if len(poses) > 1 {
			step = (end - start) / float64(len(poses)-1)
		}
		for i, p := range poses {
			store.InsertKeyframe(annotationID, p.Keyframe(start+step*float64(i)))
		}
		out, _ = store.Annotation(annotationID)
		return nil
	})
	return out, err
}

// Frame computes the render descriptors of a session at time t with a
// fresh compositor, so no smoothing is applied.
func (s *Service) Frame(ctx context.Context, id string, t float64) ([]compositor.Descriptor, error) {
	sess, err := s.gw.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	comp := compositor.New(s.settings.Compositor)
	frame := comp.Frame(t, sess.Annotations, nil)
	if frame == nil {
		frame = []compositor.Descriptor{}
	}
	return frame, nil
}

func (s *Service) edit(ctx context.Context, id string, fn func(*timeline.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.gw.Load(ctx, id)
	if err != nil {
		return err
	}
	store := timeline.New(sess.VideoDuration, s.settings.Timeline, s.logger)
	store.Load(sess)

	var changes []timeline.Change
	unsubscribe := store.Subscribe(func(c timeline.Change) { changes = append(changes, c) })
	defer unsubscribe()

	if err := fn(store); err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	if err := s.gw.Save(ctx, id, s.snapshot(sess, store)); err != nil {
		return err
	}
	if s.pub != nil {
		for _, c := range changes {
			s.pub.PublishTimelineChange(id, string(c.Kind), c.ID)
		}
	}
	return nil
}

func (s *Service) snapshot(sess *models.Session, store *timeline.Store) models.Snapshot {
	snap := store.Snapshot()
	snap.CanvasWidth, snap.CanvasHeight = sess.CanvasWidth, sess.CanvasHeight
	if snap.CanvasWidth == 0 || snap.CanvasHeight == 0 {
		snap.CanvasWidth, snap.CanvasHeight = s.settings.CanvasWidth, s.settings.CanvasHeight
	}
	return snap
}
