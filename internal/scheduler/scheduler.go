package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cardpilot/cardpilot/internal/engine"
	"github.com/cardpilot/cardpilot/internal/rules"
	"github.com/cardpilot/cardpilot/internal/schedule"
	"github.com/cardpilot/cardpilot/internal/types"
)

/*
 * Scheduler tick.
 *
 * A fixed-interval tick, independent of any one rule's period, evaluates
 * every runnable scheduled rule against elapsed wall-clock time. The tick
 * runs only while this instance leads; followers skip mutation entirely.
 *
 * Per rule and tick: ask the schedule evaluator whether the rule fires,
 * persist the lastEvaluatedAt bookkeeping (the leader owns all schedule
 * bookkeeping writes), compute the matched task set by applying the
 * rule's filters to the live top-level task list, and hand the result to
 * the executor as a depth-0 chain. Missed windows collapse to at most
 * one execution, tagged catch-up; a window that elapsed with nothing to
 * do is logged as skipped.
 */

// Scheduler drives scheduled-rule evaluation.
type Scheduler struct {
	ruleRepo engine.RuleRepository
	tasks    engine.TaskRepository
	exec     *engine.Executor
	elector  *Elector
	clock    engine.Clock

	tickInterval      time.Duration
	heartbeatInterval time.Duration
}

// New wires a scheduler.
func New(ruleRepo engine.RuleRepository, tasks engine.TaskRepository, exec *engine.Executor, elector *Elector, clock engine.Clock, tickInterval, heartbeatInterval time.Duration) *Scheduler {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &Scheduler{
		ruleRepo:          ruleRepo,
		tasks:             tasks,
		exec:              exec,
		elector:           elector,
		clock:             clock,
		tickInterval:      tickInterval,
		heartbeatInterval: heartbeatInterval,
	}
}

// Run beats the elector and ticks the scheduler until the context ends.
// An immediate first heartbeat avoids waiting a full interval before the
// instance can contest leadership.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.elector.Heartbeat(); err != nil {
		log.Printf("scheduler heartbeat: %v", err)
	}

	heartbeat := time.NewTicker(s.heartbeatInterval)
	defer heartbeat.Stop()
	tick := time.NewTicker(s.tickInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-heartbeat.C:
			if _, err := s.elector.Heartbeat(); err != nil {
				log.Printf("scheduler heartbeat: %v", err)
			}
		case <-tick.C:
			if err := s.Tick(); err != nil {
				log.Printf("scheduler tick: %v", err)
			}
		}
	}
}

// Tick evaluates all scheduled rules once. Non-leaders return without
// touching anything; that is steady state, not an error.
func (s *Scheduler) Tick() error {
	if !s.elector.IsLeader() {
		return nil
	}

	scheduled, err := s.ruleRepo.ListScheduled()
	if err != nil {
		return fmt.Errorf("list scheduled rules: %w", err)
	}

	now := s.clock.Now()
	for _, rule := range scheduled {
		if !rule.Runnable() {
			continue
		}
		if err := s.evaluateRule(rule, now); err != nil {
			// One broken rule must not starve the rest of the tick.
			log.Printf("scheduled rule %s: %v", rule.ID, err)
		}
	}
	return nil
}

func (s *Scheduler) evaluateRule(rule *rules.Rule, now time.Time) error {
	trigger := rule.Trigger
	if trigger.Schedule == nil {
		return fmt.Errorf("scheduled rule has no schedule payload")
	}
	last := trigger.Schedule.LastEvaluatedAt

	res, err := schedule.ShouldFire(trigger, now)
	if err != nil {
		return err
	}

	// Bookkeeping write happens whether or not the rule fires; only the
	// leader reaches this point, so the write is single-owner.
	next := res.NextEvaluatedAt
	rule.Trigger.Schedule.LastEvaluatedAt = &next
	if !res.Fire {
		return s.ruleRepo.Save(rule)
	}

	matched, err := s.matchTasks(rule, last, now)
	if err != nil {
		return err
	}

	if len(matched) == 0 {
		// The window elapsed with nothing to act on. skip_missed rules
		// record that outcome so the log explains the silence.
		if rule.Trigger.Schedule.CatchUp == rules.SkipMissed || res.Missed > 0 {
			rule.RecordExecution(now, rules.LogEntry{
				At:           now,
				Trigger:      rules.DescribeTrigger(rule.Trigger),
				Action:       rules.DescribeAction(rule.Action),
				MatchedCount: 0,
				Type:         rules.ExecSkipped,
			})
		}
		if res.DisableRule {
			rule.Enabled = false
		}
		return s.ruleRepo.Save(rule)
	}

	if err := s.exec.ExecuteScheduled(rule, matched, res.Type); err != nil {
		return err
	}

	if res.DisableRule {
		// One-time triggers self-destruct logically: the rule is disabled
		// after its single fire.
		rule.Enabled = false
		return s.ruleRepo.Save(rule)
	}
	return s.ruleRepo.Save(rule)
}

// matchTasks computes the task set a scheduled rule applies to: top-level
// tasks in the rule's project passing every filter, further narrowed by
// the due-date window for due-relative triggers.
func (s *Scheduler) matchTasks(rule *rules.Rule, last *time.Time, now time.Time) ([]*types.Task, error) {
	all, err := s.tasks.FindByProjectID(rule.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for project %s: %w", rule.ProjectID, err)
	}

	var matched []*types.Task
	for _, task := range all {
		if task.ParentID != nil {
			continue
		}
		if !rules.MatchFilters(rule.Filters, task, now) {
			continue
		}
		if rule.Trigger.Type == rules.TriggerScheduleDueRelative {
			if !schedule.DueWindowContains(task, rule.Trigger.Schedule.DueOffsetMinutes, last, now) {
				continue
			}
		}
		matched = append(matched, task)
	}
	return matched, nil
}

// PauseAll disables every scheduled rule in the project without touching
// lastEvaluatedAt, so resuming does not manufacture a catch-up burst for
// rules that were intentionally paused.
func (s *Scheduler) PauseAll(project types.ProjectID) error {
	return s.setAllEnabled(project, false)
}

// ResumeAll re-enables every scheduled rule in the project. Broken rules
// stay broken; enabling does not clear brokenReason.
func (s *Scheduler) ResumeAll(project types.ProjectID) error {
	return s.setAllEnabled(project, true)
}

func (s *Scheduler) setAllEnabled(project types.ProjectID, enabled bool) error {
	all, err := s.ruleRepo.ListByProject(project)
	if err != nil {
		return err
	}
	for _, rule := range all {
		if !rule.Trigger.Type.Scheduled() || rule.Enabled == enabled {
			continue
		}
		rule.Enabled = enabled
		if err := s.ruleRepo.Save(rule); err != nil {
			return err
		}
	}
	return nil
}
