package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/cardpilot/cardpilot/internal/core/db"
	"github.com/cardpilot/cardpilot/internal/types"
)

// SectionStore implements engine.SectionRepository.
type SectionStore struct {
	q *db.Queries
}

// NewSectionStore creates a section repository.
func NewSectionStore(q *db.Queries) *SectionStore {
	return &SectionStore{q: q}
}

func (s *SectionStore) Get(id types.SectionID) (*types.Section, error) {
	var row sectionRow
	if err := s.q.Get("get-section", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrSectionNotFound
		}
		return nil, fmt.Errorf("get section %s: %w", id, err)
	}
	return row.toSection(), nil
}

func (s *SectionStore) Create(section *types.Section) error {
	_, err := s.q.Exec("insert-section",
		string(section.ID), string(section.ProjectID), section.Name,
		section.Position, formatTime(section.CreatedAt), formatTime(section.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert section %s: %w", section.ID, err)
	}
	return nil
}

func (s *SectionStore) FindByProjectID(id types.ProjectID) ([]*types.Section, error) {
	var rows []sectionRow
	if err := s.q.Select("list-sections-by-project", &rows, string(id)); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	sections := make([]*types.Section, len(rows))
	for i, r := range rows {
		sections[i] = r.toSection()
	}
	return sections, nil
}
