// Package timeline holds the authoritative model of clips and annotations.
//
// Every bound-affecting mutation is clamped into [0, duration] and keeps the
// configured minimum durations; out-of-range input is corrected, never
// rejected. Unknown ids are logged no-ops. A Store is not safe for
// concurrent use: it belongs to the editing session's event goroutine.
package timeline

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/tactica/internal/apperr"
	"github.com/starford/tactica/internal/keyframe"
	"github.com/starford/tactica/internal/models"
)

// Kind classifies a model change.
type Kind string

// Change kinds.
const (
	KindClipCreated       Kind = "clip.created"
	KindClipUpdated       Kind = "clip.updated"
	KindClipDeleted       Kind = "clip.deleted"
	KindAnnotationCreated Kind = "annotation.created"
	KindAnnotationUpdated Kind = "annotation.updated"
	KindAnnotationDeleted Kind = "annotation.deleted"
	KindDuration          Kind = "timeline.duration"
	// KindLoaded is emitted when content is replaced from persistence.
	KindLoaded Kind = "timeline.loaded"
)

// Change describes one mutation. ID is empty for whole-timeline changes.
type Change struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// Options tunes the clamping rules of a Store.
type Options struct {
	MinClipDuration       float64
	MinAnnotationDuration float64
	DefaultClipSpan       float64
	DefaultClipType       string
}

// DefaultOptions returns the stock editing limits.
func DefaultOptions() Options {
	return Options{
		MinClipDuration:       1,
		MinAnnotationDuration: 0.5,
		DefaultClipSpan:       25,
		DefaultClipType:       "highlight",
	}
}

type subscriber struct {
	id int
	fn func(Change)
}

// Store is the timeline model.
type Store struct {
	opts   Options
	total  float64
	logger *slog.Logger

	clips       []models.Clip
	annotations []models.Annotation
	clipSeq     int

	subs    []subscriber
	nextSub int
}

// New creates an empty store for a video of totalDuration seconds.
func New(totalDuration float64, opts Options, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if totalDuration < 0 {
		totalDuration = 0
	}
	return &Store{
		opts:        opts,
		total:       totalDuration,
		logger:      logger,
		clips:       []models.Clip{},
		annotations: []models.Annotation{},
	}
}

// Subscribe registers fn to be called after every mutation, in
// registration order. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(kind Kind, id string) {
	c := Change{Kind: kind, ID: id}
	for _, sub := range s.subs {
		sub.fn(c)
	}
}

func (s *Store) unknown(op, id string) {
	s.logger.Warn("timeline: unknown id", slog.String("op", op), slog.String("id", id))
}

// Duration returns the total timeline length in seconds.
func (s *Store) Duration() float64 { return s.total }

// Options returns the clamping options.
func (s *Store) Options() Options { return s.opts }

// SetDuration changes the timeline length and re-clamps every item.
func (s *Store) SetDuration(total float64) {
	if total < 0 {
		total = 0
	}
	if total == s.total {
		return
	}
	s.total = total
	if total == 0 {
		s.notify(KindDuration, "")
		return
	}
	for i := range s.clips {
		s.fitClip(&s.clips[i], s.clips[i].StartTime, s.clips[i].EndTime)
	}
	for i := range s.annotations {
		a := &s.annotations[i]
		a.StartTime, a.EndTime = fitRange(a.StartTime, a.EndTime, s.total, s.opts.MinAnnotationDuration)
	}
	s.notify(KindDuration, "")
}

// Load replaces the content of the store with a persisted session.
// Out-of-bounds items are clamped to the session's video duration when
// it is known.
func (s *Store) Load(sess *models.Session) {
	s.total = max(0, sess.VideoDuration)
	bounded := s.total > 0
	s.clips = make([]models.Clip, 0, len(sess.Clips))
	for _, c := range sess.Clips {
		if bounded {
			s.fitClip(&c, c.StartTime, c.EndTime)
		}
		s.clips = append(s.clips, c)
	}
	s.clipSeq = max(len(s.clips), lastClipNumber(s.clips))
	s.annotations = make([]models.Annotation, 0, len(sess.Annotations))
	for _, a := range sess.Annotations {
		a = a.Clone()
		if bounded {
			a.StartTime, a.EndTime = fitRange(a.StartTime, a.EndTime, s.total, s.opts.MinAnnotationDuration)
		}
		a.Keyframes = keyframe.Normalize(a.Keyframes)
		s.annotations = append(s.annotations, a)
	}
	s.notify(KindLoaded, "")
}

// lastClipNumber returns the highest N among clips named "Clip N", so
// generated names stay unique after earlier clips were deleted.
func lastClipNumber(clips []models.Clip) int {
	last := 0
	for _, c := range clips {
		rest, ok := strings.CutPrefix(c.Name, "Clip ")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > last {
			last = n
		}
	}
	return last
}

// Snapshot returns a deep copy of the authored content.
func (s *Store) Snapshot() models.Snapshot {
	return models.Snapshot{
		Clips:       s.Clips(),
		Annotations: s.Annotations(),
	}
}

// ---------------------------------------------------------------------------
// Clips

// ClipPatch is a partial clip update; nil fields are left unchanged.
type ClipPatch struct {
	Name        *string
	Type        *string
	Description *string
	StartTime   *float64
	EndTime     *float64
}

// Clips returns a copy of all clips in creation order.
func (s *Store) Clips() []models.Clip {
	return append([]models.Clip{}, s.clips...)
}

// Clip returns the clip with id.
func (s *Store) Clip(id string) (models.Clip, bool) {
	if i := s.clipIndex(id); i >= 0 {
		return s.clips[i], true
	}
	return models.Clip{}, false
}

// ClipAt returns the most recently created clip covering t.
func (s *Store) ClipAt(t float64) (models.Clip, bool) {
	for i := len(s.clips) - 1; i >= 0; i-- {
		if c := s.clips[i]; t >= c.StartTime && t <= c.EndTime {
			return c, true
		}
	}
	return models.Clip{}, false
}

func (s *Store) clipIndex(id string) int {
	for i := range s.clips {
		if s.clips[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) fitClip(c *models.Clip, start, end float64) {
	c.StartTime, c.EndTime = fitRange(start, end, s.total, s.opts.MinClipDuration)
	c.Duration = c.EndTime - c.StartTime
}

// MarkClip creates a clip starting at the playhead time at, spanning the
// default clip span clamped to the remaining duration. An empty clipType
// uses the default type. Nothing is created before the duration is known.
func (s *Store) MarkClip(at float64, clipType string) (models.Clip, bool) {
	if s.total <= 0 {
		s.logger.Warn("timeline: mark before duration is known", slog.Float64("at", at))
		return models.Clip{}, false
	}
	if clipType == "" {
		clipType = s.opts.DefaultClipType
	}
	s.clipSeq++
	c := models.Clip{
		ID:   uuid.NewString(),
		Name: fmt.Sprintf("Clip %d", s.clipSeq),
		Type: clipType,
	}
	start := clamp(at, 0, s.total)
	s.fitClip(&c, start, start+s.opts.DefaultClipSpan)
	s.clips = append(s.clips, c)
	s.notify(KindClipCreated, c.ID)
	return c, true
}

// UpdateClip applies patch to the clip with id. Changing one bound behaves
// like an edge resize; changing both fits the new range.
func (s *Store) UpdateClip(id string, patch ClipPatch) (models.Clip, bool) {
	i := s.clipIndex(id)
	if i < 0 {
		s.unknown("update_clip", id)
		return models.Clip{}, false
	}
	c := &s.clips[i]
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	switch {
	case patch.StartTime != nil && patch.EndTime != nil:
		s.fitClip(c, *patch.StartTime, *patch.EndTime)
	case patch.StartTime != nil:
		c.StartTime, c.EndTime = resize(c.StartTime, c.EndTime, EdgeStart, *patch.StartTime, s.total, s.opts.MinClipDuration)
		c.Duration = c.EndTime - c.StartTime
	case patch.EndTime != nil:
		c.StartTime, c.EndTime = resize(c.StartTime, c.EndTime, EdgeEnd, *patch.EndTime, s.total, s.opts.MinClipDuration)
		c.Duration = c.EndTime - c.StartTime
	}
	s.notify(KindClipUpdated, id)
	return *c, true
}

// MoveClip translates a clip so it starts at newStart, preserving its duration.
func (s *Store) MoveClip(id string, newStart float64) (models.Clip, bool) {
	i := s.clipIndex(id)
	if i < 0 {
		s.unknown("move_clip", id)
		return models.Clip{}, false
	}
	c := &s.clips[i]
	c.StartTime, c.EndTime = translate(c.StartTime, c.EndTime, newStart, s.total)
	c.Duration = c.EndTime - c.StartTime
	s.notify(KindClipUpdated, id)
	return *c, true
}

// ResizeClip moves one edge of a clip to t.
func (s *Store) ResizeClip(id string, edge Edge, t float64) (models.Clip, bool) {
	i := s.clipIndex(id)
	if i < 0 {
		s.unknown("resize_clip", id)
		return models.Clip{}, false
	}
	c := &s.clips[i]
	c.StartTime, c.EndTime = resize(c.StartTime, c.EndTime, edge, t, s.total, s.opts.MinClipDuration)
	c.Duration = c.EndTime - c.StartTime
	s.notify(KindClipUpdated, id)
	return *c, true
}

// DeleteClip removes a clip. Annotations referencing it are kept and
// detached (their ClipID is cleared).
func (s *Store) DeleteClip(id string) bool {
	i := s.clipIndex(id)
	if i < 0 {
		s.unknown("delete_clip", id)
		return false
	}
	s.clips = append(s.clips[:i], s.clips[i+1:]...)
	for j := range s.annotations {
		if s.annotations[j].ClipID == id {
			s.annotations[j].ClipID = ""
		}
	}
	s.notify(KindClipDeleted, id)
	return true
}

// ---------------------------------------------------------------------------
// Annotations

// AnnotationPatch is a partial annotation update; nil fields are left unchanged.
type AnnotationPatch struct {
	ClipID             *string
	StartTime          *float64
	EndTime            *float64
	X                  *float64
	Y                  *float64
	Radius             *float64
	Points             []float64
	Text               *string
	FontSize           *float64
	Style              *models.Style
	Transform          *models.Transform
	IsPauseScene       *bool
	PauseSceneDuration *float64
}

// Annotations returns deep copies of all annotations in creation (z) order.
func (s *Store) Annotations() []models.Annotation {
	out := make([]models.Annotation, len(s.annotations))
	for i, a := range s.annotations {
		out[i] = a.Clone()
	}
	return out
}

// Annotation returns a copy of the annotation with id.
func (s *Store) Annotation(id string) (models.Annotation, bool) {
	if i := s.annotationIndex(id); i >= 0 {
		return s.annotations[i].Clone(), true
	}
	return models.Annotation{}, false
}

func (s *Store) annotationIndex(id string) int {
	for i := range s.annotations {
		if s.annotations[i].ID == id {
			return i
		}
	}
	return -1
}

func knownType(t models.AnnotationType) bool {
	for _, k := range models.AnnotationTypes {
		if k == t {
			return true
		}
	}
	return false
}

// AddAnnotation inserts a new annotation. A missing or duplicate id is
// replaced with a fresh one, the time range is clamped, zero scale becomes
// identity, and keyframes are normalized.
func (s *Store) AddAnnotation(a models.Annotation) (models.Annotation, error) {
	if !knownType(a.Type) {
		return models.Annotation{}, fmt.Errorf("timeline: annotation type %q: %w", a.Type, apperr.ErrInvalid)
	}
	if s.total <= 0 {
		return models.Annotation{}, fmt.Errorf("timeline: add annotation: %w", apperr.ErrNoMedia)
	}
	a = a.Clone()
	if a.ID == "" || s.annotationIndex(a.ID) >= 0 {
		a.ID = uuid.NewString()
	}
	if a.ClipID != "" && s.clipIndex(a.ClipID) < 0 {
		a.ClipID = ""
	}
	a.StartTime, a.EndTime = fitRange(a.StartTime, a.EndTime, s.total, s.opts.MinAnnotationDuration)
	if a.Transform.ScaleX == 0 && a.Transform.ScaleY == 0 {
		a.Transform.ScaleX, a.Transform.ScaleY = 1, 1
	}
	a.Keyframes = keyframe.Normalize(a.Keyframes)
	s.annotations = append(s.annotations, a)
	s.notify(KindAnnotationCreated, a.ID)
	return a.Clone(), nil
}

// UpdateAnnotation applies patch to the annotation with id.
func (s *Store) UpdateAnnotation(id string, patch AnnotationPatch) (models.Annotation, bool) {
	i := s.annotationIndex(id)
	if i < 0 {
		s.unknown("update_annotation", id)
		return models.Annotation{}, false
	}
	a := &s.annotations[i]
	if patch.ClipID != nil && (*patch.ClipID == "" || s.clipIndex(*patch.ClipID) >= 0) {
		a.ClipID = *patch.ClipID
	}
	if patch.X != nil {
		a.X = *patch.X
	}
	if patch.Y != nil {
		a.Y = *patch.Y
	}
	if patch.Radius != nil {
		a.Radius = max(0, *patch.Radius)
	}
	if patch.Points != nil {
		a.Points = append([]float64(nil), patch.Points...)
	}
	if patch.Text != nil {
		a.Text = *patch.Text
	}
	if patch.FontSize != nil {
		a.FontSize = max(1, *patch.FontSize)
	}
	if patch.Style != nil {
		st := *patch.Style
		if st.Opacity != nil {
			st.Opacity = models.Float(clamp(*st.Opacity, 0, 1))
		}
		a.Style = st
	}
	if patch.Transform != nil {
		a.Transform = *patch.Transform
	}
	if patch.IsPauseScene != nil {
		a.IsPauseScene = *patch.IsPauseScene
	}
	if patch.PauseSceneDuration != nil {
		a.PauseSceneDuration = models.Float(max(0, *patch.PauseSceneDuration))
	}
	minDur := s.opts.MinAnnotationDuration
	switch {
	case patch.StartTime != nil && patch.EndTime != nil:
		a.StartTime, a.EndTime = fitRange(*patch.StartTime, *patch.EndTime, s.total, minDur)
	case patch.StartTime != nil:
		a.StartTime, a.EndTime = resize(a.StartTime, a.EndTime, EdgeStart, *patch.StartTime, s.total, minDur)
	case patch.EndTime != nil:
		a.StartTime, a.EndTime = resize(a.StartTime, a.EndTime, EdgeEnd, *patch.EndTime, s.total, minDur)
	}
	s.notify(KindAnnotationUpdated, id)
	return a.Clone(), true
}

// MoveAnnotation translates an annotation in time, preserving its duration.
func (s *Store) MoveAnnotation(id string, newStart float64) (models.Annotation, bool) {
	i := s.annotationIndex(id)
	if i < 0 {
		s.unknown("move_annotation", id)
		return models.Annotation{}, false
	}
	a := &s.annotations[i]
	a.StartTime, a.EndTime = translate(a.StartTime, a.EndTime, newStart, s.total)
	s.notify(KindAnnotationUpdated, id)
	return a.Clone(), true
}

// ResizeAnnotation moves one edge of an annotation to t.
func (s *Store) ResizeAnnotation(id string, edge Edge, t float64) (models.Annotation, bool) {
	i := s.annotationIndex(id)
	if i < 0 {
		s.unknown("resize_annotation", id)
		return models.Annotation{}, false
	}
	a := &s.annotations[i]
	a.StartTime, a.EndTime = resize(a.StartTime, a.EndTime, edge, t, s.total, s.opts.MinAnnotationDuration)
	s.notify(KindAnnotationUpdated, id)
	return a.Clone(), true
}

// DeleteAnnotation removes an annotation.
func (s *Store) DeleteAnnotation(id string) bool {
	i := s.annotationIndex(id)
	if i < 0 {
		s.unknown("delete_annotation", id)
		return false
	}
	s.annotations = append(s.annotations[:i], s.annotations[i+1:]...)
	s.notify(KindAnnotationDeleted, id)
	return true
}

// InsertKeyframe adds kf to an annotation, replacing any keyframe within
// one frame of kf.Time.
func (s *Store) InsertKeyframe(id string, kf models.Keyframe) bool {
	i := s.annotationIndex(id)
	if i < 0 {
		s.unknown("insert_keyframe", id)
		return false
	}
	s.annotations[i].Keyframes = keyframe.Insert(s.annotations[i].Keyframes, kf)
	s.notify(KindAnnotationUpdated, id)
	return true
}

// ClearKeyframes removes all recorded motion from an annotation.
func (s *Store) ClearKeyframes(id string) bool {
	i := s.annotationIndex(id)
	if i < 0 {
		s.unknown("clear_keyframes", id)
		return false
	}
	s.annotations[i].Keyframes = []models.Keyframe{}
	s.notify(KindAnnotationUpdated, id)
	return true
}
