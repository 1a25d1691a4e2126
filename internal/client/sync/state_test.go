package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_InitialState(t *testing.T) {
	status := NewStatus()

	snap := status.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Err)
	assert.Empty(t, snap.Errors)
	assert.Equal(t, Progress{}, snap.Progress)
}

func TestStatus_ObserversSeeEveryTransition(t *testing.T) {
	status := NewStatus()

	var seen []SyncState
	status.Subscribe(func(s Snapshot) {
		seen = append(seen, s.State)
	})

	status.setState(StateConnecting)
	status.setState(StateComparing)
	status.setState(StateSyncing)
	status.setState(StateCompleted)

	assert.Equal(t, []SyncState{StateConnecting, StateComparing, StateSyncing, StateCompleted}, seen)
}

func TestStatus_FailRecordsClassifiedError(t *testing.T) {
	status := NewStatus()
	status.setState(StateSyncing)

	status.fail(ErrorStorage, "not enough free space")

	snap := status.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	require.NotNil(t, snap.Err)
	assert.Equal(t, ErrorStorage, snap.Err.Kind)
	assert.Equal(t, "not enough free space", snap.Err.Message)
	assert.False(t, snap.Err.Timestamp.IsZero())
}

func TestStatus_AccumulatesErrors(t *testing.T) {
	status := NewStatus()

	status.fail(ErrorNetwork, "timeout")
	status.fail(ErrorDatabase, "insert failed")

	snap := status.Snapshot()
	require.Len(t, snap.Errors, 2)
	assert.Equal(t, ErrorNetwork, snap.Errors[0].Kind)
	assert.Equal(t, ErrorDatabase, snap.Errors[1].Kind)
	// Err указывает на последнюю ошибку
	require.NotNil(t, snap.Err)
	assert.Equal(t, "insert failed", snap.Err.Message)
}

func TestStatus_ResetClearsEverything(t *testing.T) {
	status := NewStatus()
	status.setProgress(Progress{TotalItems: 10, SyncedItems: 4})
	status.fail(ErrorNetwork, "boom")

	status.Reset()

	snap := status.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Err)
	assert.Empty(t, snap.Errors)
	assert.Equal(t, Progress{}, snap.Progress)
}

func TestSyncError_Error(t *testing.T) {
	err := &SyncError{Kind: ErrorDatabase, Message: "insert failed"}
	assert.Equal(t, "database: insert failed", err.Error())
}
