package session

import (
	"sync"
	"time"
)

// State describes how far the paired client has progressed.
type State string

const (
	StateWaiting   State = "waiting"
	StateConnected State = "connected"
	StateSyncing   State = "syncing"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateTimedOut  State = "timedOut"
)

// Tracker follows the single mobile client's sync session. A new pairing
// starts in waiting; client activity moves it forward and refreshes the
// idle deadline.
type Tracker struct {
	mu           sync.Mutex
	state        State
	lastActivity time.Time
	timeout      time.Duration
	now          func() time.Time
}

// NewTracker creates a tracker in the waiting state.
func NewTracker(timeout time.Duration) *Tracker {
	return &Tracker{
		state:   StateWaiting,
		timeout: timeout,
		now:     time.Now,
	}
}

// Touch refreshes the idle deadline and, on first contact, moves from
// waiting to connected.
func (t *Tracker) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastActivity = t.now()
	if t.state == StateWaiting {
		t.state = StateConnected
	}
}

// Syncing marks the session as actively transferring data.
func (t *Tracker) Syncing() {
	t.set(StateSyncing)
}

// Completed marks the sync as finished successfully.
func (t *Tracker) Completed() {
	t.set(StateCompleted)
}

// Cancelled marks the sync as abandoned by the client.
func (t *Tracker) Cancelled() {
	t.set(StateCancelled)
}

// State returns the current session state. An active session whose idle
// deadline has passed is reported (and remembered) as timed out.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	active := t.state == StateConnected || t.state == StateSyncing
	if active && t.now().Sub(t.lastActivity) > t.timeout {
		t.state = StateTimedOut
	}
	return t.state
}

func (t *Tracker) set(state State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	t.lastActivity = t.now()
}
