// Package store provides sqlx-backed implementations of the engine's
// collaborator interfaces over the shared database.
package store

import (
	"time"

	"github.com/cardpilot/cardpilot/internal/types"
)

// Timestamps are persisted as RFC3339 text on both drivers so row
// scanning stays uniform between SQLite and PostgreSQL.
const timeFormat = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := parseTime(*s)
	return &t
}

type taskRow struct {
	ID               string  `db:"id"`
	ProjectID        string  `db:"project_id"`
	SectionID        string  `db:"section_id"`
	ParentID         *string `db:"parent_id"`
	Title            string  `db:"title"`
	Completed        bool    `db:"completed"`
	DueDate          *string `db:"due_date"`
	Position         int     `db:"position"`
	EnteredSectionAt string  `db:"entered_section_at"`
	CompletedAt      *string `db:"completed_at"`
	CreatedAt        string  `db:"created_at"`
	UpdatedAt        string  `db:"updated_at"`
}

func (r taskRow) toTask() *types.Task {
	task := &types.Task{
		ID:               types.TaskID(r.ID),
		ProjectID:        types.ProjectID(r.ProjectID),
		SectionID:        types.SectionID(r.SectionID),
		Title:            r.Title,
		Completed:        r.Completed,
		DueDate:          parseTimePtr(r.DueDate),
		Position:         r.Position,
		EnteredSectionAt: parseTime(r.EnteredSectionAt),
		CompletedAt:      parseTimePtr(r.CompletedAt),
		CreatedAt:        parseTime(r.CreatedAt),
		UpdatedAt:        parseTime(r.UpdatedAt),
	}
	if r.ParentID != nil {
		parent := types.TaskID(*r.ParentID)
		task.ParentID = &parent
	}
	return task
}

type sectionRow struct {
	ID        string `db:"id"`
	ProjectID string `db:"project_id"`
	Name      string `db:"name"`
	Position  int    `db:"position"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r sectionRow) toSection() *types.Section {
	return &types.Section{
		ID:        types.SectionID(r.ID),
		ProjectID: types.ProjectID(r.ProjectID),
		Name:      r.Name,
		Position:  r.Position,
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
}

type ruleRow struct {
	ID       string `db:"id"`
	Document string `db:"document"`
}

type leaseRow struct {
	Scope      string `db:"scope"`
	InstanceID string `db:"instance_id"`
	LeaseID    string `db:"lease_id"`
	RenewedAt  string `db:"renewed_at"`
}
