// Package autosave debounces timeline changes into gateway saves and
// tracks the saved/saving/unsaved status shown to the user.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/tactica/internal/models"
)

// Defaults.
const (
	DefaultDelay   = 2 * time.Second
	DefaultTimeout = 15 * time.Second
)

// Status is the persistence indicator.
type Status string

// Statuses.
const (
	StatusSaved   Status = "saved"
	StatusSaving  Status = "saving"
	StatusUnsaved Status = "unsaved"
)

// SaveFunc persists a snapshot, normally bound to one session.
type SaveFunc func(ctx context.Context, snap models.Snapshot) error

// Timer is the subset of *time.Timer the autosaver needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) Timer

// Option configures an Autosaver.
type Option func(*Autosaver)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(a *Autosaver) { a.delay = d }
}

// WithTimeout bounds each save call.
func WithTimeout(d time.Duration) Option {
	return func(a *Autosaver) { a.timeout = d }
}

// WithAfterFunc replaces the timer source.
func WithAfterFunc(f AfterFunc) Option {
	return func(a *Autosaver) { a.afterFunc = f }
}

// WithStatusHook registers a callback invoked on every status change. It
// runs without the autosaver's lock held.
func WithStatusHook(fn func(Status)) Option {
	return func(a *Autosaver) { a.onStatus = fn }
}

// Autosaver owns one debounce timer. Schedule may be called from the event
// goroutine while saves complete on timer goroutines.
type Autosaver struct {
	save      SaveFunc
	logger    *slog.Logger
	delay     time.Duration
	timeout   time.Duration
	afterFunc AfterFunc
	onStatus  func(Status)

	mu      sync.Mutex
	timer   Timer
	pending *models.Snapshot
	status  Status
	gen     uint64
	lastErr error
}

// New creates an autosaver in the saved state.
func New(save SaveFunc, logger *slog.Logger, opts ...Option) *Autosaver {
	a := &Autosaver{
		save:    save,
		logger:  logger,
		delay:   DefaultDelay,
		timeout: DefaultTimeout,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		status: StatusSaved,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Status returns the current status.
func (a *Autosaver) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Err returns the error of the last failed save, or nil after a success.
func (a *Autosaver) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Pending reports whether a debounced save is waiting.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Schedule records snap as the latest content and restarts the debounce
// timer.
func (a *Autosaver) Schedule(snap models.Snapshot) {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.pending = &snap
	gen := a.gen
	a.timer = a.afterFunc(a.delay, func() { a.fire(gen) })
	changed := a.setStatus(StatusUnsaved)
	a.mu.Unlock()
	a.emit(changed)
}

func (a *Autosaver) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || a.pending == nil {
		a.mu.Unlock()
		return
	}
	snap := *a.pending
	a.pending = nil
	a.timer = nil
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	_ = a.run(ctx, gen, snap)
}

// SaveNow saves snap immediately without touching the debounce timer.
func (a *Autosaver) SaveNow(ctx context.Context, snap models.Snapshot) error {
	a.mu.Lock()
	gen := a.gen
	a.mu.Unlock()
	return a.run(ctx, gen, snap)
}

func (a *Autosaver) run(ctx context.Context, gen uint64, snap models.Snapshot) error {
	a.mu.Lock()
	changed := a.setStatus(StatusSaving)
	a.mu.Unlock()
	a.emit(changed)

	err := a.save(ctx, snap)

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return err
	}
	next := StatusSaved
	if err != nil {
		next = StatusUnsaved
		a.lastErr = err
		a.logger.Error("autosave: save failed", slog.String("error", err.Error()))
	} else {
		a.lastErr = nil
		if a.pending != nil {
			next = StatusUnsaved
		}
	}
	changed = a.setStatus(next)
	a.mu.Unlock()
	a.emit(changed)
	return err
}

// Cancel stops the pending save, if any, and ignores results of saves
// already in flight. Used on session switch.
func (a *Autosaver) Cancel() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = nil
	a.gen++
	a.lastErr = nil
	changed := a.setStatus(StatusSaved)
	a.mu.Unlock()
	a.emit(changed)
}

func (a *Autosaver) setStatus(s Status) Status {
	if a.status == s {
		return ""
	}
	a.status = s
	return s
}

func (a *Autosaver) emit(s Status) {
	if s != "" && a.onStatus != nil {
		a.onStatus(s)
	}
}
