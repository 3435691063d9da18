package lockmgr

import (
	"testing"

	appErrors "github.com/iamNilotpal/ember/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSharedLocksCoexist verifies two lockers can both hold Shared on the
// same object.
func TestSharedLocksCoexist(t *testing.T) {
	m := New(10, 10, 10)
	require.NoError(t, m.Acquire(1, "k", Shared))
	require.NoError(t, m.Acquire(2, "k", Shared))
}

// TestExclusiveBlocksRecordsWaitEdge verifies an Exclusive request against
// an object already held does not itself error (the real blocking happens
// at the backing store) but records a wait-for edge for cycle detection.
func TestExclusiveBlocksRecordsWaitEdge(t *testing.T) {
	m := New(10, 10, 10)
	require.NoError(t, m.Acquire(1, "k", Exclusive))
	require.NoError(t, m.Acquire(2, "k", Exclusive))
	assert.True(t, m.waitFor[2][1])
}

// TestDeadlockCycleAbortsCallerWhenCallerIsVictim verifies that when the
// calling locker itself is the minimum-locks victim, Acquire reports
// Deadlock to its own caller.
func TestDeadlockCycleAbortsCallerWhenCallerIsVictim(t *testing.T) {
	m := New(10, 10, 10)

	require.NoError(t, m.Acquire(1, "r", Exclusive))
	require.NoError(t, m.Acquire(3, "r", Exclusive)) // 3 waits on 1 over "r"
	require.NoError(t, m.Acquire(3, "s", Exclusive))

	err := m.Acquire(1, "s", Exclusive) // 1 waits on 3 over "s" -> cycle; 1 holds fewer locks
	require.Error(t, err)

	txnErr, ok := appErrors.AsTxnError(err)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrorCodeDeadlock, txnErr.Code())
	assert.True(t, txnErr.Retryable())
	assert.Equal(t, uint64(1), txnErr.TxnID())
}

// TestDeadlockCycleAbortsBystanderAndInvokesCallback verifies that when a
// cycle is detected but some other locker (not the caller) is the chosen
// victim, Acquire never fails the caller: it aborts the victim via its
// registered callback, re-evaluates the object, and grants the lock.
func TestDeadlockCycleAbortsBystanderAndInvokesCallback(t *testing.T) {
	m := New(10, 10, 10)

	aborted := false
	m.Register(2, func() { aborted = true })

	require.NoError(t, m.Acquire(1, "a", Exclusive))
	require.NoError(t, m.Acquire(1, "extra", Exclusive))
	require.NoError(t, m.Acquire(2, "b", Exclusive))
	require.NoError(t, m.Acquire(2, "a", Exclusive)) // 2 waits on 1 over "a"

	err := m.Acquire(1, "b", Exclusive) // cycle; 1 and 2 each count 2 locks, the tie goes to blocker 2
	require.NoError(t, err)
	assert.True(t, aborted)

	assert.Equal(t, Exclusive, m.holders["b"][1])
	assert.NotContains(t, m.holders["b"], LockerID(2))
}

// TestReleaseClearsLocksAndEdges verifies Release frees held objects and
// removes the locker from any wait-for graph.
func TestReleaseClearsLocksAndEdges(t *testing.T) {
	m := New(10, 10, 10)
	require.NoError(t, m.Acquire(1, "k", Exclusive))
	require.NoError(t, m.Acquire(2, "k", Exclusive))

	m.Release(1)
	assert.Empty(t, m.holders["k"])
	require.NoError(t, m.Acquire(2, "k", Exclusive))
}
