package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/cardpilot/cardpilot/internal/core/db"
	"github.com/cardpilot/cardpilot/internal/engine"
	"github.com/cardpilot/cardpilot/internal/types"
)

// TaskStore implements engine.TaskRepository over the shared database.
// Updates are read-modify-write of the full row: each mutation is a
// single independent write, which is the concurrency contract the
// executor relies on.
type TaskStore struct {
	q     *db.Queries
	clock engine.Clock
}

// NewTaskStore creates a task repository.
func NewTaskStore(q *db.Queries, clock engine.Clock) *TaskStore {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &TaskStore{q: q, clock: clock}
}

func (s *TaskStore) Get(id types.TaskID) (*types.Task, error) {
	var row taskRow
	if err := s.q.Get("get-task", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return row.toTask(), nil
}

func (s *TaskStore) Create(task *types.Task) error {
	var parent *string
	if task.ParentID != nil {
		p := string(*task.ParentID)
		parent = &p
	}
	_, err := s.q.Exec("insert-task",
		string(task.ID), string(task.ProjectID), string(task.SectionID), parent,
		task.Title, task.Completed, formatTimePtr(task.DueDate), task.Position,
		formatTime(task.EnteredSectionAt), formatTimePtr(task.CompletedAt),
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert task %s: %w", task.ID, err)
	}
	return nil
}

func (s *TaskStore) Update(id types.TaskID, patch engine.TaskPatch) (*types.Task, error) {
	task, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if patch.SectionID != nil && *patch.SectionID != task.SectionID {
		task.SectionID = *patch.SectionID
		task.EnteredSectionAt = now
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Completed != nil && *patch.Completed != task.Completed {
		task.Completed = *patch.Completed
		if task.Completed {
			done := now
			task.CompletedAt = &done
		} else {
			task.CompletedAt = nil
		}
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.ClearDueDate {
		task.DueDate = nil
	}
	if patch.Position != nil {
		task.Position = *patch.Position
	}
	task.UpdatedAt = now

	_, err = s.q.Exec("update-task",
		string(task.SectionID), task.Title, task.Completed,
		formatTimePtr(task.DueDate), task.Position,
		formatTime(task.EnteredSectionAt), formatTimePtr(task.CompletedAt),
		formatTime(task.UpdatedAt), string(task.ID))
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	return task, nil
}

func (s *TaskStore) FindByParentTaskID(id types.TaskID) ([]*types.Task, error) {
	return s.list("list-tasks-by-parent", string(id))
}

func (s *TaskStore) FindBySectionID(id types.SectionID) ([]*types.Task, error) {
	return s.list("list-tasks-by-section", string(id))
}

func (s *TaskStore) FindByProjectID(id types.ProjectID) ([]*types.Task, error) {
	return s.list("list-tasks-by-project", string(id))
}

func (s *TaskStore) list(query string, arg string) ([]*types.Task, error) {
	var rows []taskRow
	if err := s.q.Select(query, &rows, arg); err != nil {
		return nil, fmt.Errorf("%s: %w", query, err)
	}
	tasks := make([]*types.Task, len(rows))
	for i, r := range rows {
		tasks[i] = r.toTask()
	}
	return tasks, nil
}
