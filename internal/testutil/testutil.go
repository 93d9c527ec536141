// Package testutil provides shared test helpers for setting up session
// gateways.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/sessiondb"
	"github.com/starford/tactica/internal/storage"
)

// TestDB creates a temporary SQLite gateway that is automatically cleaned up.
func TestDB(t *testing.T) *sessiondb.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "tactica-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := sessiondb.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSessionsDir creates a temporary YAML session gateway.
func TestSessionsDir(t *testing.T) (string, *storage.Sessions) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, storage.NewSessions(fs)
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Creator is the part of a gateway needed to seed sessions.
type Creator interface {
	Create(ctx context.Context, name string) (string, error)
	SetVideo(ctx context.Context, id, fileName string, duration float64) error
	Save(ctx context.Context, id string, snap models.Snapshot) error
}

// SeedSession creates a session with a video of the given duration and
// optional content.
func SeedSession(t *testing.T, gw Creator, name string, duration float64, snap *models.Snapshot) string {
	t.Helper()
	ctx := context.Background()
	id, err := gw.Create(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	if err := gw.SetVideo(ctx, id, name+".mp4", duration); err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		if err := gw.Save(ctx, id, *snap); err != nil {
			t.Fatal(err)
		}
	}
	return id
}
