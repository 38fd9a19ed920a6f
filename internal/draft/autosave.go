// internal/draft/autosave.go
//
// Debounced auto-save. A burst of edits collapses into a single write
// that fires after a fixed quiet period; only the most recent state at
// that moment is persisted. The 2 second window is a product invariant.

package draft

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"specsmith/internal/wizard"
)

// DebounceInterval is the quiet period before an auto-save fires.
const DebounceInterval = 2 * time.Second

// AutoSaver coalesces session snapshots into debounced writes. Notify
// restarts the timer; Flush writes immediately and is never throttled.
type AutoSaver struct {
	mu       sync.Mutex
	store    *Store
	logger   *zap.Logger
	interval time.Duration
	timer    *time.Timer
	pending  *wizard.Session
	lastErr  error
	closed   bool
	onSave   func(error)
}

// NewAutoSaver builds an auto-saver over a draft store. onSave, if
// non-nil, is invoked after every attempted write with its outcome so
// the presentation layer can show save status.
func NewAutoSaver(store *Store, logger *zap.Logger, onSave func(error)) *AutoSaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoSaver{
		store:    store,
		logger:   logger,
		interval: DebounceInterval,
		onSave:   onSave,
	}
}

// Notify schedules a save of the given snapshot after the quiet period.
// A newer snapshot before the timer fires replaces the pending one and
// restarts the window. Completed sessions stop auto-save.
func (a *AutoSaver) Notify(session wizard.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if session.IsComplete {
		// Final notification: the draft is done, drop anything queued
		// so a later Flush cannot resurrect it.
		a.pending = nil
		if a.timer != nil {
			a.timer.Stop()
			a.timer = nil
		}
		return
	}
	a.pending = &session
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.interval, a.fire)
}

func (a *AutoSaver) fire() {
	a.mu.Lock()
	if a.closed || a.pending == nil {
		a.mu.Unlock()
		return
	}
	session := *a.pending
	a.pending = nil
	a.mu.Unlock()

	a.save(session)
}

// Flush writes the pending snapshot (if any) right now. Manual saves go
// through here and bypass the debounce window entirely.
func (a *AutoSaver) Flush() error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	if pending == nil {
		return nil
	}
	return a.save(*pending)
}

// SaveNow persists the given snapshot immediately, independent of any
// pending debounce.
func (a *AutoSaver) SaveNow(session wizard.Session) error {
	return a.save(session)
}

func (a *AutoSaver) save(session wizard.Session) error {
	err := a.store.Save(session)
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
	if err != nil {
		// The next tick retries; meanwhile the wizard continues
		// without persistence.
		a.logger.Warn("auto-save failed",
			zap.String("sessionId", session.ID), zap.Error(err))
	}
	if a.onSave != nil {
		a.onSave(err)
	}
	return err
}

// LastErr returns the outcome of the most recent write attempt.
func (a *AutoSaver) LastErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Close cancels any pending write. It does not flush; callers that want
// the final state persisted call Flush first.
func (a *AutoSaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = nil
}
