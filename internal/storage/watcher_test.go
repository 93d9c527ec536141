package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(kind, id string) {
	l.mu.Lock()
	l.events = append(l.events, kind+":"+id)
	l.mu.Unlock()
}

func (l *eventLog) has(e string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.events {
		if got == e {
			return true
		}
	}
	return false
}

func (l *eventLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func startWatch(t *testing.T, root string) *eventLog {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log := &eventLog{}
	go Watch(ctx, root, logger, log.add)
	time.Sleep(100 * time.Millisecond)
	return log
}

func TestWatcher_ReportsAtomicWriteOnce(t *testing.T) {
	fs := tempRoot(t)
	log := startWatch(t, fs.Root())

	if err := fs.Write("s1.yaml", []byte("name: one\n")); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("written:s1")
	}, "expected written:s1")

	time.Sleep(2 * settleDelay)
	if n := log.count(); n != 1 {
		t.Errorf("events = %d, want one settled event", n)
	}
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	fs := tempRoot(t)
	_ = fs.Write("gone.yaml", []byte("name: gone\n"))
	log := startWatch(t, fs.Root())

	_ = os.Remove(filepath.Join(fs.Root(), "gone.yaml"))
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("removed:gone")
	}, "expected removed:gone")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	fs := tempRoot(t)
	log := startWatch(t, fs.Root())

	_ = os.WriteFile(filepath.Join(fs.Root(), "notes.txt"), []byte("x"), 0o644)
	time.Sleep(3 * settleDelay)
	if n := log.count(); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}
