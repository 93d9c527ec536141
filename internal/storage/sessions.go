package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/tactica/internal/apperr"
	"github.com/starford/tactica/internal/gateway"
	"github.com/starford/tactica/internal/models"
)

// SessionExt is the extension of session documents.
const SessionExt = ".yaml"

// Sessions stores each session as one YAML document named <id>.yaml.
type Sessions struct {
	store Provider
	mu    sync.Mutex
}

// Verify *Sessions satisfies gateway.Gateway at compile time.
var _ gateway.Gateway = (*Sessions)(nil)

// NewSessions creates a YAML session gateway on top of store.
func NewSessions(store Provider) *Sessions {
	return &Sessions{store: store}
}

// SessionID returns the session id for a document path, if it is one.
func SessionID(rel string) (string, bool) {
	base := path.Base(strings.ReplaceAll(rel, "\\", "/"))
	if base != rel || !strings.HasSuffix(base, SessionExt) || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, SessionExt), true
}

func docPath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("storage: session %q: %w", id, apperr.ErrNotFound)
	}
	return id + SessionExt, nil
}

func (s *Sessions) read(id string) (*models.Session, error) {
	p, err := docPath(id)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: session %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var sess models.Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("storage: decode session %s: %w", id, err)
	}
	sess.ID = id
	return &sess, nil
}

func (s *Sessions) write(sess *models.Session) error {
	p, err := docPath(sess.ID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("storage: encode session %s: %w", sess.ID, err)
	}
	return s.store.Write(p, data)
}

// Create writes an empty session document and returns its id.
func (s *Sessions) Create(_ context.Context, name string) (string, error) {
	name, err := gateway.CheckName(name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sess := &models.Session{
		ID:          uuid.NewString(),
		Name:        name,
		Clips:       []models.Clip{},
		Annotations: []models.Annotation{},
		Checksum:    gateway.Revision(models.Snapshot{}),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.write(sess); err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Load reads a session document.
func (s *Sessions) Load(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// Save replaces the authored content of a session document.
func (s *Sessions) Save(_ context.Context, id string, snap models.Snapshot) error {
	if err := gateway.CheckSnapshot(snap); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.read(id)
	if err != nil {
		return err
	}
	sess.Clips = snap.Clips
	sess.Annotations = snap.Annotations
	sess.CanvasWidth = snap.CanvasWidth
	sess.CanvasHeight = snap.CanvasHeight
	sess.Checksum = gateway.Revision(snap)
	sess.UpdatedAt = time.Now().UTC()
	return s.write(sess)
}

// SetVideo records the video file and duration of a session.
func (s *Sessions) SetVideo(_ context.Context, id, fileName string, duration float64) error {
	if err := gateway.CheckVideo(fileName, duration); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.read(id)
	if err != nil {
		return err
	}
	sess.VideoFileName = fileName
	sess.VideoDuration = duration
	sess.UpdatedAt = time.Now().UTC()
	return s.write(sess)
}

// List returns a summary of every readable session document, most
// recently updated first. Unreadable documents are skipped.
func (s *Sessions) List(_ context.Context) ([]models.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.store.List(SessionExt)
	if err != nil {
		return nil, err
	}
	out := []models.SessionSummary{}
	for _, f := range files {
		id, ok := SessionID(f.Name)
		if !ok {
			continue
		}
		sess, err := s.read(id)
		if err != nil {
			continue
		}
		out = append(out, sess.Summary())
	}
	slices.SortFunc(out, func(a, b models.SessionSummary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Delete moves a session document into the trash directory. Deleting the
// same id twice keeps both revisions.
func (s *Sessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.read(id); err != nil {
		return err
	}
	p, _ := docPath(id)
	if _, err := s.store.Trash(p); err != nil {
		return fmt.Errorf("storage: delete session %s: %w", id, err)
	}
	return nil
}

// Close is a no-op; documents are written synchronously.
func (s *Sessions) Close() error { return nil }
