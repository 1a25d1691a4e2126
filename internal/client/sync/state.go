package sync

import (
	"sync"
	"time"
)

// SyncState describes the current phase of a sync run.
type SyncState string

const (
	StateIdle       SyncState = "idle"
	StateConnecting SyncState = "connecting"
	StateComparing  SyncState = "comparing"
	StateSyncing    SyncState = "syncing"
	StateFinalizing SyncState = "finalizing"
	StateCompleted  SyncState = "completed"
	StateFailed     SyncState = "failed"
)

// ErrorKind classifies sync failures for the UI.
type ErrorKind string

const (
	ErrorNetwork  ErrorKind = "network"
	ErrorStorage  ErrorKind = "storage"
	ErrorDatabase ErrorKind = "database"
)

// SyncError is a classified, timestamped sync failure.
type SyncError struct {
	Kind      ErrorKind
	Message   string
	Timestamp time.Time
}

func (e *SyncError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Progress holds the counters shown during a running sync.
type Progress struct {
	TotalItems       int
	SyncedItems      int
	CurrentBatch     int
	TotalBatches     int
	CurrentOperation string
}

// Snapshot is an immutable view of the sync status at one moment.
type Snapshot struct {
	State    SyncState
	Progress Progress
	// Errors lists every failure recorded during the run, oldest first.
	// Err points at the most recent one for convenient access.
	Errors []SyncError
	Err    *SyncError
}

// Observer receives state snapshots as the sync advances.
type Observer func(Snapshot)

// Status holds the observable sync state. All methods are safe for
// concurrent use: the orchestrator writes while the UI reads.
type Status struct {
	mu        sync.Mutex
	state     SyncState
	progress  Progress
	errs      []SyncError
	observers []Observer
}

// NewStatus returns a status store in the idle state.
func NewStatus() *Status {
	return &Status{state: StateIdle}
}

// Subscribe registers an observer. Observers are invoked synchronously on
// every change, so they must be fast.
func (s *Status) Subscribe(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Snapshot returns the current state, progress and recorded errors.
func (s *Status) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Status) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, Progress: s.progress}
	if n := len(s.errs); n > 0 {
		snap.Errors = append([]SyncError(nil), s.errs...)
		snap.Err = &snap.Errors[n-1]
	}
	return snap
}

// State returns just the current phase.
func (s *Status) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setState moves to the given phase and notifies observers.
func (s *Status) setState(state SyncState) {
	s.mu.Lock()
	s.state = state
	snap := s.snapshotLocked()
	observers := s.observers
	s.mu.Unlock()

	for _, obs := range observers {
		obs(snap)
	}
}

// setProgress replaces the progress counters and notifies observers.
func (s *Status) setProgress(p Progress) {
	s.mu.Lock()
	s.progress = p
	snap := s.snapshotLocked()
	observers := s.observers
	s.mu.Unlock()

	for _, obs := range observers {
		obs(snap)
	}
}

// fail appends the classified error and moves to the failed state.
// Терминальное состояние: выйти из него можно только через Reset.
func (s *Status) fail(kind ErrorKind, message string) {
	s.mu.Lock()
	s.errs = append(s.errs, SyncError{Kind: kind, Message: message, Timestamp: time.Now()})
	s.state = StateFailed
	snap := s.snapshotLocked()
	observers := s.observers
	s.mu.Unlock()

	for _, obs := range observers {
		obs(snap)
	}
}

// Reset returns to idle and clears progress and errors. Meaningful only from
// the terminal states (completed, failed) or after a cancellation.
func (s *Status) Reset() {
	s.mu.Lock()
	s.state = StateIdle
	s.progress = Progress{}
	s.errs = nil
	snap := Snapshot{State: s.state}
	observers := s.observers
	s.mu.Unlock()

	for _, obs := range observers {
		obs(snap)
	}
}
