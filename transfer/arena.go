package transfer

import (
	"sync"
	"time"

	"github.com/warmline/warmline/types"
)

// entry is one live transfer plus its owned timeout handle. All
// state-changing operations for a transfer serialize on mu; unrelated
// transfers never contend.
type entry struct {
	mu    sync.Mutex
	xfer  *Transfer
	timer *time.Timer

	// ready flips once initiation setup (room and summary) has finished.
	// Joins are refused before that, so briefing can never begin without
	// a summary in place.
	ready bool
}

// disarm stops the timeout timer. Safe to call more than once.
func (e *entry) disarm() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// arena is the live working set of transfers: a concurrency-safe map
// keyed by transferID with a uniqueness index on callID. Entries are
// written only by the Orchestrator and torn down together with their
// timer at the terminal transition.
type arena struct {
	mu      sync.RWMutex
	entries map[string]*entry
	byCall  map[string]string // callID -> transferID
	max     int
}

func newArena(maxConcurrent int) *arena {
	return &arena{
		entries: make(map[string]*entry),
		byCall:  make(map[string]string),
		max:     maxConcurrent,
	}
}

// insert adds a new live transfer. It fails with Conflict if a live
// transfer already exists for the same call, and with Unavailable if the
// working set is at capacity.
func (a *arena) insert(t *Transfer) (*entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.byCall[t.CallID]; ok {
		return nil, types.NewErrorf(types.ErrConflict,
			"call %s already has live transfer %s", t.CallID, existing)
	}
	if a.max > 0 && len(a.entries) >= a.max {
		return nil, types.NewErrorf(types.ErrUnavailable,
			"live transfer limit reached (%d)", a.max)
	}

	e := &entry{xfer: t}
	a.entries[t.TransferID] = e
	a.byCall[t.CallID] = t.TransferID
	return e, nil
}

// get returns the live entry for a transfer, or nil.
func (a *arena) get(transferID string) *entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.entries[transferID]
}

// remove deletes both indexes for a transfer. The timer is disarmed by
// the caller under the entry lock, never here. Idempotent.
func (a *arena) remove(transferID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.entries[transferID]; ok {
		delete(a.entries, transferID)
		delete(a.byCall, e.xfer.CallID)
	}
}

// snapshots returns copies of all live transfers for read-only listing.
func (a *arena) snapshots() []*Transfer {
	a.mu.RLock()
	entries := make([]*entry, 0, len(a.entries))
	for _, e := range a.entries {
		entries = append(entries, e)
	}
	a.mu.RUnlock()

	out := make([]*Transfer, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.xfer.snapshot())
		e.mu.Unlock()
	}
	return out
}

// len reports the live set size.
func (a *arena) len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}
