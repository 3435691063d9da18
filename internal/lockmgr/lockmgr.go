// Package lockmgr implements the fine-grained key locking and deadlock
// detection that the chosen kv substrate does not provide on its own: it
// serializes one writer at a time at the file level but has no notion of
// per-key locks, lockers, or cycle detection. Manager layers both on top,
// giving internal/txn its Deadlock errors. Acquire never waits, so no lock
// request times out and Manager never returns a LockTimeout error.
package lockmgr

import (
	"sync"

	appErrors "github.com/iamNilotpal/ember/pkg/errors"
)

// Mode is the lock mode requested for an object.
type Mode int

const (
	// Shared allows any number of concurrent Shared holders, but excludes
	// an Exclusive holder.
	Shared Mode = iota
	// Exclusive excludes every other holder, Shared or Exclusive.
	Exclusive
)

// LockerID identifies the Txn requesting a lock; internal/txn uses its own
// handle identity for this.
type LockerID uint64

// Manager tracks which locker holds which objects, detects wait-for cycles
// eagerly on every blocking request, and exposes the minimum-locks victim
// policy spec.md's Env background worker description calls for.
type Manager struct {
	mu sync.Mutex

	maxLockers uint32
	maxLocks   uint32
	maxObjects uint32

	// holders maps an object key to the lockers currently holding it and
	// their mode. A single Exclusive holder or any number of Shared
	// holders may occupy the map for one key at a time.
	holders map[string]map[LockerID]Mode

	// waitFor maps a blocked locker to the set of lockers it is waiting
	// on — the adjacency list of the wait-for graph.
	waitFor map[LockerID]map[LockerID]bool

	// lockCount is the number of objects each locker currently holds,
	// used to pick the minimum-locks victim on a detected cycle.
	lockCount map[LockerID]int

	// onAbort holds the callback internal/txn registers per root Txn so
	// that a locker chosen as a deadlock victim by someone else's Acquire
	// call, or by a DetectCycles sweep, actually gets its own handle
	// invalidated instead of just having its lock bookkeeping wiped.
	onAbort map[LockerID]func()
}

// New creates a lock manager that records the given limits. Acquire does
// not enforce them: the number of lockers, locks and objects tracked is
// not capped.
func New(maxLockers, maxLocks, maxObjects uint32) *Manager {
	return &Manager{
		maxLockers: maxLockers,
		maxLocks:   maxLocks,
		maxObjects: maxObjects,
		holders:    make(map[string]map[LockerID]Mode),
		waitFor:    make(map[LockerID]map[LockerID]bool),
		lockCount:  make(map[LockerID]int),
		onAbort:    make(map[LockerID]func()),
	}
}

// Register associates locker with an abort callback, invoked when Manager
// picks it as a deadlock victim on another locker's Acquire call or on a
// DetectCycles sweep. internal/txn calls this once per root Txn, passing a
// callback that invalidates that Txn's handle. The callback is forgotten
// automatically once locker's locks are released (by Release, or by this
// victim selection itself), so callers never need to unregister normal
// Commit/Abort terminations.
func (m *Manager) Register(locker LockerID, onAbort func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAbort[locker] = onAbort
}

// Acquire grabs object under mode for locker. If the object is held
// incompatibly by other lockers, Acquire records a wait-for edge to each
// blocking holder and runs cycle detection; a detected cycle aborts the
// locker with the fewest locks held (on a tie, a blocking holder is
// chosen before the caller, the first blocker found winning) via
// abortLocker. Acquire only ever returns a Deadlock *errors.TxnError to its
// own caller when that caller is the chosen victim; when some other locker
// is picked instead, that locker's registered abort callback invalidates
// its handle directly and this call simply re-evaluates object now that
// the cycle is broken — a bystander Txn must never fail a call it was
// never the victim of. Acquire never actually blocks the calling goroutine
// — the caller (internal/txn, ultimately serialized by the backing store's
// single-writer transaction) already provides the real blocking; this
// call's job is purely to detect and report conflicts the backing store
// itself cannot see across nested Txns.
func (m *Manager) Acquire(locker LockerID, object string, mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	holders := m.holders[object]
	if holders == nil {
		holders = make(map[LockerID]Mode)
		m.holders[object] = holders
	}

	if _, already := holders[locker]; already {
		return nil
	}

	blockers := conflictingHolders(holders, locker, mode)
	if len(blockers) == 0 {
		holders[locker] = mode
		m.lockCount[locker]++
		return nil
	}

	if m.wouldDeadlock(locker, blockers) {
		victim := m.pickVictim(append(append([]LockerID{}, blockers...), locker))
		m.abortLocker(victim)

		if victim == locker {
			return appErrors.NewDeadlockError(uint64(victim))
		}

		// The victim was one of the blockers, not the caller: its locks
		// are gone now, so re-evaluate object the way a fresh Acquire
		// would rather than failing a call that was never the victim.
		holders = m.holders[object]
		if holders == nil {
			holders = make(map[LockerID]Mode)
			m.holders[object] = holders
		}
		blockers = conflictingHolders(holders, locker, mode)
		if len(blockers) == 0 {
			holders[locker] = mode
			m.lockCount[locker]++
			return nil
		}
	}

	edges := m.waitFor[locker]
	if edges == nil {
		edges = make(map[LockerID]bool)
		m.waitFor[locker] = edges
	}
	for _, b := range blockers {
		edges[b] = true
	}

	holders[locker] = mode
	m.lockCount[locker]++
	return nil
}

// Release drops every lock held by locker and clears any wait-for edges
// naming it, called when a Txn commits or aborts.
func (m *Manager) Release(locker LockerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseAll(locker)
}

func (m *Manager) releaseAll(locker LockerID) {
	for obj, holders := range m.holders {
		if _, ok := holders[locker]; ok {
			delete(holders, locker)
			if len(holders) == 0 {
				delete(m.holders, obj)
			}
		}
	}
	delete(m.waitFor, locker)
	for _, edges := range m.waitFor {
		delete(edges, locker)
	}
	delete(m.lockCount, locker)
	delete(m.onAbort, locker)
}

// abortLocker releases every lock held by locker and invokes its registered
// abort callback, if any, so the Txn owning locker actually learns it was
// chosen as a deadlock victim and tears itself down. Called with m.mu held.
func (m *Manager) abortLocker(locker LockerID) {
	cb := m.onAbort[locker]
	m.releaseAll(locker)
	if cb != nil {
		cb()
	}
}

func conflictingHolders(holders map[LockerID]Mode, locker LockerID, mode Mode) []LockerID {
	var blockers []LockerID
	for holder, holderMode := range holders {
		if holder == locker {
			continue
		}
		if mode == Exclusive || holderMode == Exclusive {
			blockers = append(blockers, holder)
		}
	}
	return blockers
}

// wouldDeadlock reports whether adding wait-for edges from locker to each
// of blockers would close a cycle in the wait-for graph — i.e. whether any
// blocker already (transitively) waits on locker.
func (m *Manager) wouldDeadlock(locker LockerID, blockers []LockerID) bool {
	visited := make(map[LockerID]bool)
	var stack []LockerID
	stack = append(stack, blockers...)

	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]

		if cur == locker {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true

		for next := range m.waitFor[cur] {
			stack = append(stack, next)
		}
	}
	return false
}

// pickVictim applies the minimum-locks policy: the candidate holding the
// fewest locks is chosen to abort, since it has the least invested work.
func (m *Manager) pickVictim(candidates []LockerID) LockerID {
	victim := candidates[0]
	for _, c := range candidates[1:] {
		if m.lockCount[c] < m.lockCount[victim] {
			victim = c
		}
	}
	return victim
}

// DetectCycles runs a proactive sweep of the whole wait-for graph, on
// behalf of the Env background worker (spec.md's "every 60s ... invokes
// deadlock detection"). Any lockers found on a cycle are released as
// victims by the minimum-locks policy, applied repeatedly until no cycle
// remains. It returns the number of lockers aborted this sweep.
func (m *Manager) DetectCycles() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	victims := 0
	for {
		cycle := m.findAnyCycle()
		if cycle == nil {
			return victims
		}
		victim := m.pickVictim(cycle)
		m.abortLocker(victim)
		victims++
	}
}

// findAnyCycle returns the lockers on one cycle of the wait-for graph, or
// nil if the graph is currently acyclic.
func (m *Manager) findAnyCycle() []LockerID {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[LockerID]int)
	var path []LockerID

	var visit func(n LockerID) []LockerID
	visit = func(n LockerID) []LockerID {
		color[n] = gray
		path = append(path, n)
		for next := range m.waitFor[n] {
			switch color[next] {
			case white:
				if cyc := visit(next); cyc != nil {
					return cyc
				}
			case gray:
				for i, p := range path {
					if p == next {
						return append([]LockerID{}, path[i:]...)
					}
				}
			}
		}
		color[n] = black
		path = path[:len(path)-1]
		return nil
	}

	for n := range m.waitFor {
		if color[n] == white {
			if cyc := visit(n); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}
