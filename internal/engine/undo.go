package engine

import (
	"sync"
	"time"

	"github.com/cardpilot/cardpilot/internal/types"
)

/*
 * Time-bounded undo snapshots.
 *
 * One slot, in memory only. Each top-level rule execution overwrites the
 * slot with enough prior task state to reverse exactly that execution,
 * including descendant snapshots when completion cascaded to subtasks.
 * The slot expires ten seconds after capture; undo past expiry, or a
 * second undo, degrades to ErrNothingToUndo rather than failing.
 */

// TaskSnapshot holds one task's pre-mutation state plus the pre-mutation
// state of any subtasks the action cascaded to.
type TaskSnapshot struct {
	Task     types.Task
	Subtasks map[types.TaskID]types.Task
}

// Snapshot is the undo slot content for one rule execution.
type Snapshot struct {
	RuleID     types.RuleID
	CapturedAt time.Time
	Entries    []TaskSnapshot
}

// UndoStore holds the single undo slot.
type UndoStore struct {
	mu    sync.Mutex
	clock Clock
	slot  *Snapshot
}

// NewUndoStore creates an empty undo store.
func NewUndoStore(clock Clock) *UndoStore {
	return &UndoStore{clock: clock}
}

// Capture replaces the slot with a new snapshot. The previous snapshot,
// expired or not, is evicted.
func (u *UndoStore) Capture(ruleID types.RuleID, entries []TaskSnapshot) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.slot = &Snapshot{
		RuleID:     ruleID,
		CapturedAt: u.clock.Now(),
		Entries:    entries,
	}
}

// Peek returns the current snapshot if it is still redeemable, without
// consuming it. Used by hosts to decide whether to offer an undo control.
func (u *UndoStore) Peek() (*Snapshot, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.slot == nil || u.clock.Now().Sub(u.slot.CapturedAt) > types.UndoWindow {
		return nil, false
	}
	return u.slot, true
}

// Take consumes the snapshot if redeemable. Single level: a second Take
// without an intervening Capture returns ErrNothingToUndo.
func (u *UndoStore) Take() (*Snapshot, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.slot == nil {
		return nil, types.ErrNothingToUndo
	}
	if u.clock.Now().Sub(u.slot.CapturedAt) > types.UndoWindow {
		u.slot = nil
		return nil, types.ErrNothingToUndo
	}
	snap := u.slot
	u.slot = nil
	return snap, nil
}
