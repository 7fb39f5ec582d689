// Package scheduler runs the periodic tick that evaluates scheduled
// rules, gated by heartbeat-based leader election so only one of several
// runtime instances sharing the same persisted state executes ticks.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/cardpilot/cardpilot/internal/engine"
	"github.com/cardpilot/cardpilot/internal/types"

	"github.com/google/uuid"
)

/*
 * Leader election.
 *
 * Each instance periodically writes {instanceID, leaseID, renewedAt} to a
 * shared lease row and reads whoever wrote last. The state machine is
 * {follower, contesting, leader}:
 *
 *   follower ---- lease absent/expired ----> contesting (writes lease)
 *   contesting -- next beat, lease is ours -> leader
 *   contesting -- next beat, lease is not -> follower (lost the race)
 *   leader ------ refresh in time ---------> leader
 *   leader ------ someone else's lease ----> follower (deposed)
 *
 * Losing is not an error; it is the expected steady state for every
 * instance but one. Two instances may briefly both believe they lead
 * during a handover; the executor's dedup guard bounds the damage inside
 * a chain, and the remaining duplicate-execution window is accepted and
 * bounded by the heartbeat timeout.
 *
 * ForceTakeover overwrites the lease unconditionally, for when the
 * previous leader is suspected dead but has not yet timed out.
 */

// State is the election state of this instance.
type State string

const (
	StateFollower   State = "follower"
	StateContesting State = "contesting"
	StateLeader     State = "leader"
)

// Lease is the persisted heartbeat record.
type Lease struct {
	Scope      string
	InstanceID types.InstanceID
	LeaseID    string
	RenewedAt  time.Time
}

// LeaseStore reads and writes the shared lease row. Get returns nil when
// no lease exists yet. Put is last-writer-wins; the store needs no
// compare-and-swap because the state machine tolerates lost races.
type LeaseStore interface {
	Get(scope string) (*Lease, error)
	Put(lease Lease) error
}

// Elector runs the heartbeat state machine for one instance.
type Elector struct {
	store      LeaseStore
	clock      engine.Clock
	scope      string
	instanceID types.InstanceID
	timeout    time.Duration

	mu    sync.Mutex
	state State
	// transitions records state changes for tests and diagnostics.
	transitions []State
}

// NewElector creates an elector in the follower state.
func NewElector(store LeaseStore, clock engine.Clock, scope string, instanceID types.InstanceID, timeout time.Duration) *Elector {
	return &Elector{
		store:      store,
		clock:      clock,
		scope:      scope,
		instanceID: instanceID,
		timeout:    timeout,
		state:      StateFollower,
	}
}

// State returns the current election state.
func (e *Elector) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsLeader reports whether this instance currently leads.
func (e *Elector) IsLeader() bool {
	return e.State() == StateLeader
}

// Transitions returns the observed state sequence since creation.
func (e *Elector) Transitions() []State {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]State, len(e.transitions))
	copy(out, e.transitions)
	return out
}

func (e *Elector) setState(s State) {
	if e.state != s {
		e.state = s
		e.transitions = append(e.transitions, s)
	}
}

// Heartbeat advances the state machine one beat. Called on the heartbeat
// interval, which must be shorter than the timeout.
func (e *Elector) Heartbeat() (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	lease, err := e.store.Get(e.scope)
	if err != nil {
		return e.state, fmt.Errorf("read scheduler lease: %w", err)
	}

	ours := lease != nil && lease.InstanceID == e.instanceID
	fresh := lease != nil && now.Sub(lease.RenewedAt) < e.timeout

	switch {
	case ours:
		// We hold the lease: refresh it. A contesting instance whose
		// write stuck becomes leader on this confirmation beat.
		if err := e.writeLease(now); err != nil {
			return e.state, err
		}
		e.setState(StateLeader)

	case fresh:
		// Someone else leads and is alive. If we were leader, we have
		// been deposed (forced takeover elsewhere).
		e.setState(StateFollower)

	default:
		// No lease, or the holder timed out: contest by writing ours.
		// Leadership is confirmed on the next beat when the lease reads
		// back as ours.
		if err := e.writeLease(now); err != nil {
			return e.state, err
		}
		e.setState(StateContesting)
	}

	return e.state, nil
}

// ForceTakeover overwrites the lease and assumes leadership immediately,
// regardless of the current holder's freshness.
func (e *Elector) ForceTakeover() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.writeLease(e.clock.Now()); err != nil {
		return err
	}
	e.setState(StateLeader)
	return nil
}

func (e *Elector) writeLease(now time.Time) error {
	lease := Lease{
		Scope:      e.scope,
		InstanceID: e.instanceID,
		LeaseID:    uuid.Must(uuid.NewV7()).String(),
		RenewedAt:  now,
	}
	if err := e.store.Put(lease); err != nil {
		return fmt.Errorf("write scheduler lease: %w", err)
	}
	return nil
}
