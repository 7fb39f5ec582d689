package engine

import (
	"time"

	"github.com/cardpilot/cardpilot/internal/rules"
	"github.com/cardpilot/cardpilot/internal/types"
)

/*
 * Collaborator contracts.
 *
 * The engine consumes these interfaces and holds no long-lived locks over
 * them; each mutation is a single independent write. internal/store
 * provides sqlx-backed implementations, tests provide in-memory fakes,
 * and a host with its own persistence supplies its own.
 */

// TaskPatch is a partial task mutation. Nil fields are left unchanged.
// ClearDueDate distinguishes "remove the due date" from "leave it alone",
// which a nil DueDate cannot express.
type TaskPatch struct {
	SectionID    *types.SectionID
	Completed    *bool
	DueDate      *time.Time
	ClearDueDate bool
	Position     *int
	Title        *string
}

// TaskRepository is the synchronous CRUD surface action handlers and
// filter evaluation use.
type TaskRepository interface {
	Get(id types.TaskID) (*types.Task, error)
	// Update applies a partial mutation and returns the post-mutation task.
	Update(id types.TaskID, patch TaskPatch) (*types.Task, error)
	Create(task *types.Task) error
	FindByParentTaskID(id types.TaskID) ([]*types.Task, error)
	FindBySectionID(id types.SectionID) ([]*types.Task, error)
	FindByProjectID(id types.ProjectID) ([]*types.Task, error)
}

// SectionRepository resolves section references for action validation.
type SectionRepository interface {
	Get(id types.SectionID) (*types.Section, error)
	FindByProjectID(id types.ProjectID) ([]*types.Section, error)
}

// RuleRepository persists automation rules and the executor's bookkeeping
// writes (counters, logs, broken reasons, schedule state).
type RuleRepository interface {
	Get(id types.RuleID) (*rules.Rule, error)
	ListByProject(id types.ProjectID) ([]*rules.Rule, error)
	// ListScheduled returns every rule with a scheduled trigger type,
	// regardless of enabled state; the scheduler filters runnability.
	ListScheduled() ([]*rules.Rule, error)
	Save(rule *rules.Rule) error
	Delete(id types.RuleID) error
	DeleteByProject(id types.ProjectID) error
	// ReplaceAll swaps a project's entire rule set in one operation (bulk
	// import). Rules with unsupported triggers are stored broken, not
	// rejected; partial success beats all-or-nothing.
	ReplaceAll(project types.ProjectID, ruleSet []*rules.Rule) error
}

// Notifier receives one aggregated summary per top-level execution. The
// host renders it however it likes (toast, log line, nothing).
type Notifier interface {
	Notify(summary string)
}

// NopNotifier discards summaries.
type NopNotifier struct{}

func (NopNotifier) Notify(string) {}
