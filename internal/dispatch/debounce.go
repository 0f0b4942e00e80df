// Package dispatch batches rapid-fire user messages behind a debounce window
// and shapes model replies into one or several chat messages.
package dispatch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer delays work per user so that a burst of messages triggers a
// single model call. Each Schedule cancels the user's pending timer and arms
// a fresh one; only the last scheduled fire runs.
type Debouncer struct {
	clock  clockwork.Clock
	window time.Duration
	log    *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingFire
}

type pendingFire struct {
	timer clockwork.Timer
	fire  func()
}

// NewDebouncer creates a debouncer with the given window. A zero window fires
// on the next clock tick, which keeps tests synchronous.
func NewDebouncer(clock clockwork.Clock, window time.Duration, log *slog.Logger) *Debouncer {
	return &Debouncer{
		clock:   clock,
		window:  window,
		log:     log.With("component", "debouncer"),
		pending: make(map[string]*pendingFire),
	}
}

// Schedule arms the user's timer, replacing any pending one. fire runs on the
// clock's goroutine after the window elapses without another Schedule call.
func (d *Debouncer) Schedule(userKey string, fire func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.pending[userKey]; ok {
		entry.timer.Stop()
		d.log.Debug("Debounce window reset", "user_key", userKey)
	}

	entry := &pendingFire{fire: fire}
	entry.timer = d.clock.AfterFunc(d.window, func() {
		d.fireExpired(userKey, entry)
	})
	d.pending[userKey] = entry
}

// fireExpired runs when a timer elapses. A Schedule call can race the expiry:
// the timer fires, then Schedule replaces the entry before this callback gets
// the lock. The stale callback must not fire or touch the replacement, so the
// entry identity is checked under the lock.
func (d *Debouncer) fireExpired(userKey string, entry *pendingFire) {
	d.mu.Lock()
	if d.pending[userKey] != entry {
		d.mu.Unlock()
		return
	}
	delete(d.pending, userKey)
	d.mu.Unlock()

	entry.fire()
}

// Cancel drops the user's pending timer, if any.
func (d *Debouncer) Cancel(userKey string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.pending[userKey]; ok {
		entry.timer.Stop()
		delete(d.pending, userKey)
	}
}

// Flush runs every pending callback immediately instead of waiting for its
// window. The shutdown path calls it so a burst captured just before the
// process stops still gets its answer.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	var entries []*pendingFire
	for userKey, entry := range d.pending {
		// Stop reports false when the timer already fired; the in-flight
		// callback still owns the entry and runs the work itself.
		if entry.timer.Stop() {
			delete(d.pending, userKey)
			entries = append(entries, entry)
		}
	}
	d.mu.Unlock()

	for _, entry := range entries {
		entry.fire()
	}
}

// Pending reports whether the user has an armed timer.
func (d *Debouncer) Pending(userKey string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.pending[userKey]
	return ok
}
