// Package gateway defines the persistence contract for analysis sessions.
// Implementations live in sessiondb (SQLite) and storage (YAML files).
package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/tactica/internal/apperr"
	"github.com/starford/tactica/internal/checksum"
	"github.com/starford/tactica/internal/models"
)

// Gateway loads and saves sessions. Saves are last-write-wins.
type Gateway interface {
	Create(ctx context.Context, name string) (string, error)
	Load(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, id string, snap models.Snapshot) error
	List(ctx context.Context) ([]models.SessionSummary, error)
	Delete(ctx context.Context, id string) error
	SetVideo(ctx context.Context, id, fileName string, duration float64) error
	Close() error
}

// Revision returns the content checksum of a snapshot.
func Revision(snap models.Snapshot) string {
	sum, err := checksum.OfJSON(snap)
	if err != nil {
		return ""
	}
	return sum
}

// CheckName validates a session name and returns it trimmed.
func CheckName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("session name is required: %w", apperr.ErrInvalid)
	}
	return name, nil
}

// CheckSnapshot validates a snapshot before it is written.
func CheckSnapshot(snap models.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, apperr.ErrInvalid)
	}
	return nil
}

// CheckVideo validates video metadata.
func CheckVideo(fileName string, duration float64) error {
	if duration < 0 {
		return fmt.Errorf("video duration must not be negative: %w", apperr.ErrInvalid)
	}
	if strings.ContainsAny(fileName, "\x00") {
		return fmt.Errorf("video file name: %w", apperr.ErrInvalid)
	}
	return nil
}
