package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cardpilot/cardpilot/internal/core/db"
	"github.com/cardpilot/cardpilot/internal/engine"
	"github.com/cardpilot/cardpilot/internal/rules"
	"github.com/cardpilot/cardpilot/internal/types"
)

// RuleStore implements engine.RuleRepository. Each rule is persisted as a
// JSON document alongside indexed columns (project, trigger type, enabled,
// display order) so listing stays cheap without a schema migration per
// rule-model change.
type RuleStore struct {
	q     *db.Queries
	clock engine.Clock
}

// NewRuleStore creates a rule repository.
func NewRuleStore(q *db.Queries, clock engine.Clock) *RuleStore {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &RuleStore{q: q, clock: clock}
}

func (s *RuleStore) Get(id types.RuleID) (*rules.Rule, error) {
	var row ruleRow
	if err := s.q.Get("get-rule", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrRuleNotFound
		}
		return nil, fmt.Errorf("get rule %s: %w", id, err)
	}
	return decodeRule(row)
}

func (s *RuleStore) ListByProject(id types.ProjectID) ([]*rules.Rule, error) {
	return s.list("list-rules-by-project", string(id))
}

func (s *RuleStore) ListScheduled() ([]*rules.Rule, error) {
	var rows []ruleRow
	if err := s.q.Select("list-scheduled-rules", &rows); err != nil {
		return nil, fmt.Errorf("list scheduled rules: %w", err)
	}
	return decodeRules(rows)
}

func (s *RuleStore) Save(rule *rules.Rule) error {
	rule.UpdatedAt = s.clock.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = rule.UpdatedAt
	}

	document, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("encode rule %s: %w", rule.ID, err)
	}

	_, err = s.q.Exec("upsert-rule",
		string(rule.ID), string(rule.ProjectID), rule.Name, rule.Enabled,
		string(rule.BrokenReason), string(rule.Trigger.Type), rule.DisplayOrder,
		string(document), rule.ExecutionCount, formatTimePtr(rule.LastExecutedAt),
		formatTime(rule.CreatedAt), formatTime(rule.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save rule %s: %w", rule.ID, err)
	}
	return nil
}

func (s *RuleStore) Delete(id types.RuleID) error {
	if _, err := s.q.Exec("delete-rule", string(id)); err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	return nil
}

func (s *RuleStore) DeleteByProject(id types.ProjectID) error {
	if _, err := s.q.Exec("delete-rules-by-project", string(id)); err != nil {
		return fmt.Errorf("delete rules for project %s: %w", id, err)
	}
	return nil
}

// ReplaceAll swaps a project's rule set transactionally. Rules with
// unsupported trigger types are stored disabled with a broken reason
// instead of failing the import; partial success beats all-or-nothing.
func (s *RuleStore) ReplaceAll(project types.ProjectID, ruleSet []*rules.Rule) error {
	tx, err := s.q.DB().Beginx()
	if err != nil {
		return fmt.Errorf("begin rule import: %w", err)
	}

	if _, err := s.q.ExecTx(tx, "delete-rules-by-project", string(project)); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear rules for project %s: %w", project, err)
	}

	now := s.clock.Now()
	for _, rule := range ruleSet {
		rule.ProjectID = project
		if !rule.Trigger.Type.Known() {
			rule.Enabled = false
			rule.BrokenReason = rules.BrokenUnsupportedTrigger
		}
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = now
		}
		rule.UpdatedAt = now

		document, err := json.Marshal(rule)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode rule %s: %w", rule.ID, err)
		}
		_, err = s.q.ExecTx(tx, "upsert-rule",
			string(rule.ID), string(rule.ProjectID), rule.Name, rule.Enabled,
			string(rule.BrokenReason), string(rule.Trigger.Type), rule.DisplayOrder,
			string(document), rule.ExecutionCount, formatTimePtr(rule.LastExecutedAt),
			formatTime(rule.CreatedAt), formatTime(rule.UpdatedAt))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("import rule %s: %w", rule.ID, err)
		}
	}

	return tx.Commit()
}

func (s *RuleStore) list(query string, arg string) ([]*rules.Rule, error) {
	var rows []ruleRow
	if err := s.q.Select(query, &rows, arg); err != nil {
		return nil, fmt.Errorf("%s: %w", query, err)
	}
	return decodeRules(rows)
}

func decodeRule(row ruleRow) (*rules.Rule, error) {
	var rule rules.Rule
	if err := json.Unmarshal([]byte(row.Document), &rule); err != nil {
		return nil, fmt.Errorf("decode rule %s: %w", row.ID, err)
	}
	return &rule, nil
}

func decodeRules(rows []ruleRow) ([]*rules.Rule, error) {
	out := make([]*rules.Rule, 0, len(rows))
	for _, row := range rows {
		rule, err := decodeRule(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

var _ engine.RuleRepository = (*RuleStore)(nil)
var _ engine.TaskRepository = (*TaskStore)(nil)
var _ engine.SectionRepository = (*SectionStore)(nil)
