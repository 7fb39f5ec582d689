package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/cardpilot/cardpilot/internal/core/db"
	"github.com/cardpilot/cardpilot/internal/scheduler"
	"github.com/cardpilot/cardpilot/internal/types"
)

// LeaseStore implements scheduler.LeaseStore over the shared database.
// The lease row is the "shared location" every runtime instance
// heartbeats against; last writer wins, which the election state machine
// tolerates by confirming ownership on the following beat.
type LeaseStore struct {
	q *db.Queries
}

// NewLeaseStore creates a lease store.
func NewLeaseStore(q *db.Queries) *LeaseStore {
	return &LeaseStore{q: q}
}

func (s *LeaseStore) Get(scope string) (*scheduler.Lease, error) {
	var row leaseRow
	if err := s.q.Get("get-lease", &row, scope); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lease %s: %w", scope, err)
	}
	return &scheduler.Lease{
		Scope:      row.Scope,
		InstanceID: types.InstanceID(row.InstanceID),
		LeaseID:    row.LeaseID,
		RenewedAt:  parseTime(row.RenewedAt),
	}, nil
}

func (s *LeaseStore) Put(lease scheduler.Lease) error {
	_, err := s.q.Exec("upsert-lease",
		lease.Scope, string(lease.InstanceID), lease.LeaseID, formatTime(lease.RenewedAt))
	if err != nil {
		return fmt.Errorf("put lease %s: %w", lease.Scope, err)
	}
	return nil
}

var _ scheduler.LeaseStore = (*LeaseStore)(nil)
