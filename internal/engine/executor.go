package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cardpilot/cardpilot/internal/rules"
	"github.com/cardpilot/cardpilot/internal/types"
)

/*
 * Rule execution and cascade control.
 *
 * HandleEvent is the single entry point for domain events. Evaluation
 * produces candidates; each applied action may raise further events,
 * which feed back recursively. Two guards bound the cascade:
 *
 *   - Depth: events carry a generation counter; at MaxCascadeDepth the
 *     chain truncates silently. A designed safety valve, never an error.
 *   - Dedup: a ruleID:entityID:actionType key set, scoped to one
 *     top-level call. A rule A -> B -> A oscillation is suppressed the
 *     second time the same triple recurs. The key includes the rule ID,
 *     so two different rules applying the same action to the same entity
 *     both run; collapsing those is a product question, not an engine
 *     guarantee.
 *
 * Depth is the only state threading through recursive calls. Every
 * top-level call starts at depth 0 with a fresh dedup set, so concurrent
 * top-level calls (scheduler tick vs. user action) never share state.
 *
 * Processing is depth-first: one action's full cascade completes before
 * the next sibling candidate is considered, which is what makes the
 * dedup set meaningful across the whole chain.
 *
 * Undo snapshots are captured only at depth 0, before mutation. One
 * aggregated notification summarizes each top-level call.
 */

// Executor applies rule actions against the repositories.
type Executor struct {
	tasks    TaskRepository
	sections SectionRepository
	rules    RuleRepository
	undo     *UndoStore
	notifier Notifier
	clock    Clock
}

// NewExecutor wires an executor. A nil notifier discards summaries.
func NewExecutor(tasks TaskRepository, sections SectionRepository, ruleRepo RuleRepository, notifier Notifier, clock Clock) *Executor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Executor{
		tasks:    tasks,
		sections: sections,
		rules:    ruleRepo,
		undo:     NewUndoStore(clock),
		notifier: notifier,
		clock:    clock,
	}
}

// UndoStore exposes the undo slot for hosts that render an undo control.
func (x *Executor) UndoStore() *UndoStore { return x.undo }

// chain is the per-top-level-call cascade state: the dedup key set and
// the summary lines for the aggregated notification. Never shared
// between top-level calls.
type chain struct {
	seen      map[string]struct{}
	summaries []string
	execType  rules.ExecutionType
}

func newChain(execType rules.ExecutionType) *chain {
	return &chain{seen: make(map[string]struct{}), execType: execType}
}

func dedupKey(ruleID types.RuleID, entityID types.TaskID, action rules.ActionType) string {
	return fmt.Sprintf("%s:%s:%s", ruleID, entityID, action)
}

// HandleEvent runs one top-level cascade for a host-originated event.
func (x *Executor) HandleEvent(ev types.DomainEvent) error {
	ch := newChain(rules.ExecManual)
	err := x.handleEvent(ev, ev.Depth, ch)
	x.flush(ch)
	return err
}

// handleEvent is the recursive cascade step.
func (x *Executor) handleEvent(ev types.DomainEvent, depth int, ch *chain) error {
	if depth >= types.MaxCascadeDepth {
		// Silent truncation: the chain just stops here.
		return nil
	}

	projectRules, err := x.rules.ListByProject(ev.ProjectID)
	if err != nil {
		return fmt.Errorf("list rules for project %s: %w", ev.ProjectID, err)
	}
	ix := rules.BuildIndex(projectRules)

	for _, cand := range rules.EvaluateEvent(ev, ix, x.clock.Now()) {
		if err := x.applyCandidate(cand, depth, ch, true); err != nil {
			return err
		}
	}
	return nil
}

// applyCandidate applies one candidate action, guarded by the dedup set,
// then recurses into the events the action raised. logEntry controls the
// per-application bookkeeping (log entry and depth-0 undo capture); the
// scheduled path writes one aggregated entry and one batch snapshot per
// execution instead.
func (x *Executor) applyCandidate(cand rules.Candidate, depth int, ch *chain, logEntry bool) error {
	key := dedupKey(cand.Rule.ID, cand.Task.ID, cand.Action.Type)
	if _, dup := ch.seen[key]; dup {
		return nil
	}
	ch.seen[key] = struct{}{}

	target, ok, err := x.resolveTargetSection(cand)
	if err != nil {
		return err
	}
	if !ok {
		// Referenced section is gone: mark the rule broken and surface it
		// in UI instead of silently deleting or erroring the chain.
		cand.Rule.BrokenReason = rules.BrokenSectionDeleted
		if err := x.rules.Save(cand.Rule); err != nil {
			return fmt.Errorf("mark rule %s broken: %w", cand.Rule.ID, err)
		}
		return nil
	}

	if depth == 0 && logEntry {
		x.captureUndo(cand.Rule.ID, []*types.Task{cand.Task}, cand.Action.Type)
	}

	applied, events, err := x.applyAction(cand, target, depth)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	now := x.clock.Now()
	if logEntry {
		cand.Rule.RecordExecution(now, rules.LogEntry{
			At:            now,
			Trigger:       rules.DescribeTrigger(cand.Rule.Trigger),
			Action:        rules.DescribeAction(cand.Action),
			MatchedCount:  1,
			AffectedNames: []string{cand.Task.Title},
			Type:          ch.execType,
		})
		if err := x.rules.Save(cand.Rule); err != nil {
			return fmt.Errorf("save rule %s: %w", cand.Rule.ID, err)
		}
	}

	ch.summaries = append(ch.summaries, fmt.Sprintf("%s: %s (%s)",
		cand.Rule.Name, rules.DescribeAction(cand.Action), cand.Task.Title))

	// Depth-first: finish this action's whole cascade before the caller
	// moves to the next sibling candidate.
	for _, child := range events {
		if err := x.handleEvent(child, child.Depth, ch); err != nil {
			return err
		}
	}
	return nil
}

// resolveTargetSection resolves the section an action targets, honoring
// the use-triggering-section sentinel. ok=false means the reference is
// dangling. Actions without a section target resolve trivially.
func (x *Executor) resolveTargetSection(cand rules.Candidate) (types.SectionID, bool, error) {
	switch cand.Action.Type {
	case rules.ActionMoveToTop, rules.ActionMoveToBottom, rules.ActionCreateCard:
	default:
		return "", true, nil
	}

	target := cand.Action.SectionID
	if cand.Action.UseTriggeringSection {
		target = cand.TriggeringSection
	}
	if _, err := x.sections.Get(target); err != nil {
		if errors.Is(err, types.ErrSectionNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolve section %s: %w", target, err)
	}
	return target, true, nil
}

// applyAction interprets one action. Returned events are the mutations it
// committed, with Depth already set one generation below the handling
// depth; events at or beyond MaxCascadeDepth are never constructed.
func (x *Executor) applyAction(cand rules.Candidate, target types.SectionID, depth int) (bool, []types.DomainEvent, error) {
	switch cand.Action.Type {
	case rules.ActionMoveToTop:
		return x.applyMove(cand.Task, target, true, depth)
	case rules.ActionMoveToBottom:
		return x.applyMove(cand.Task, target, false, depth)
	case rules.ActionMarkComplete:
		if cand.Task.Completed {
			return false, nil, nil
		}
		events, err := x.completeCascade(cand.Task, depth+1)
		return err == nil, events, err
	case rules.ActionMarkIncomplete:
		return x.applyMarkIncomplete(cand.Task, depth)
	case rules.ActionSetDueDate:
		return x.applySetDueDate(cand.Task, cand.Action, depth)
	case rules.ActionRemoveDueDate:
		return x.applyRemoveDueDate(cand.Task, depth)
	case rules.ActionCreateCard:
		return x.applyCreateCard(cand, target, depth)
	default:
		return false, nil, fmt.Errorf("unknown action type %q", cand.Action.Type)
	}
}

func (x *Executor) applyMove(task *types.Task, target types.SectionID, top bool, depth int) (bool, []types.DomainEvent, error) {
	neighbors, err := x.tasks.FindBySectionID(target)
	if err != nil {
		return false, nil, err
	}
	pos := edgePosition(neighbors, task.ID, top)

	oldSection := task.SectionID
	post, err := x.tasks.Update(task.ID, TaskPatch{SectionID: &target, Position: &pos})
	if err != nil {
		return false, nil, err
	}

	var events []types.DomainEvent
	if oldSection != target {
		events = x.eventFor(post, types.Delta{SectionID: &target}, types.Delta{SectionID: &oldSection}, depth+1)
	}
	return true, events, nil
}

func (x *Executor) applyMarkIncomplete(task *types.Task, depth int) (bool, []types.DomainEvent, error) {
	if !task.Completed {
		return false, nil, nil
	}
	done := false
	post, err := x.tasks.Update(task.ID, TaskPatch{Completed: &done})
	if err != nil {
		return false, nil, err
	}
	wasDone := true
	return true, x.eventFor(post, types.Delta{Completed: &done}, types.Delta{Completed: &wasDone}, depth+1), nil
}

func (x *Executor) applySetDueDate(task *types.Task, action rules.Action, depth int) (bool, []types.DomainEvent, error) {
	var due time.Time
	switch {
	case action.DueInDays != nil:
		due = x.clock.Now().AddDate(0, 0, *action.DueInDays)
	case action.DueAt != nil:
		due = *action.DueAt
	default:
		return false, nil, fmt.Errorf("set_due_date action has no due option")
	}
	post, err := x.tasks.Update(task.ID, TaskPatch{DueDate: &due})
	if err != nil {
		return false, nil, err
	}
	// Due-date changes carry no trigger-matchable delta.
	return true, x.eventFor(post, types.Delta{}, types.Delta{}, depth+1), nil
}

func (x *Executor) applyRemoveDueDate(task *types.Task, depth int) (bool, []types.DomainEvent, error) {
	if task.DueDate == nil {
		return false, nil, nil
	}
	post, err := x.tasks.Update(task.ID, TaskPatch{ClearDueDate: true})
	if err != nil {
		return false, nil, err
	}
	return true, x.eventFor(post, types.Delta{}, types.Delta{}, depth+1), nil
}

func (x *Executor) applyCreateCard(cand rules.Candidate, target types.SectionID, depth int) (bool, []types.DomainEvent, error) {
	title := strings.ReplaceAll(cand.Action.TitleTemplate, "{title}", cand.Task.Title)
	if title == "" {
		title = cand.Task.Title
	}

	neighbors, err := x.tasks.FindBySectionID(target)
	if err != nil {
		return false, nil, err
	}
	now := x.clock.Now()
	card := &types.Task{
		ID:               types.NewTaskID(),
		ProjectID:        cand.Task.ProjectID,
		SectionID:        target,
		Title:            title,
		Position:         edgePosition(neighbors, "", false),
		EnteredSectionAt: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := x.tasks.Create(card); err != nil {
		return false, nil, err
	}

	// task.created events do not drive event-triggered rules; the event is
	// still raised for any host-side subscribers downstream.
	var events []types.DomainEvent
	if depth+1 < types.MaxCascadeDepth {
		events = append(events, types.DomainEvent{
			Type:      types.EventTaskCreated,
			TaskID:    card.ID,
			ProjectID: card.ProjectID,
			Task:      card,
			Changes:   types.Delta{SectionID: &card.SectionID},
			Depth:     depth + 1,
		})
	}
	return true, events, nil
}

// completeCascade completes a task and every incomplete descendant one
// level down, emitting the parent's event at eventDepth and each child's
// at eventDepth+1. Each completion is its own event.
func (x *Executor) completeCascade(task *types.Task, eventDepth int) ([]types.DomainEvent, error) {
	done := true
	post, err := x.tasks.Update(task.ID, TaskPatch{Completed: &done})
	if err != nil {
		return nil, err
	}
	wasDone := false

	events := x.eventFor(post, types.Delta{Completed: &done}, types.Delta{Completed: &wasDone}, eventDepth)

	children, err := x.tasks.FindByParentTaskID(task.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if child.Completed {
			continue
		}
		childPost, err := x.tasks.Update(child.ID, TaskPatch{Completed: &done})
		if err != nil {
			return nil, err
		}
		events = append(events, x.eventFor(childPost, types.Delta{Completed: &done}, types.Delta{Completed: &wasDone}, eventDepth+1)...)
	}
	return events, nil
}

// eventFor constructs a task.updated event one generation deep, or none
// at all once the cascade ceiling is reached.
func (x *Executor) eventFor(task *types.Task, changes, previous types.Delta, depth int) []types.DomainEvent {
	if depth >= types.MaxCascadeDepth {
		return nil
	}
	return []types.DomainEvent{{
		Type:           types.EventTaskUpdated,
		TaskID:         task.ID,
		ProjectID:      task.ProjectID,
		Task:           task,
		Changes:        changes,
		PreviousValues: previous,
		Depth:          depth,
	}}
}

// edgePosition computes the position one past the top or bottom of a
// section, ignoring the moving task itself.
func edgePosition(neighbors []*types.Task, moving types.TaskID, top bool) int {
	pos := 0
	first := true
	for _, t := range neighbors {
		if t.ID == moving {
			continue
		}
		if first {
			pos = t.Position
			first = false
			continue
		}
		if top && t.Position < pos {
			pos = t.Position
		}
		if !top && t.Position > pos {
			pos = t.Position
		}
	}
	if first {
		return 0
	}
	if top {
		return pos - 1
	}
	return pos + 1
}

// captureUndo snapshots the pre-mutation state of the affected tasks,
// including subtask state when the action will cascade completion.
func (x *Executor) captureUndo(ruleID types.RuleID, affected []*types.Task, action rules.ActionType) {
	entries := make([]TaskSnapshot, 0, len(affected))
	for _, t := range affected {
		entry := TaskSnapshot{Task: *t}
		if action == rules.ActionMarkComplete {
			children, err := x.tasks.FindByParentTaskID(t.ID)
			if err == nil && len(children) > 0 {
				entry.Subtasks = make(map[types.TaskID]types.Task, len(children))
				for _, c := range children {
					entry.Subtasks[c.ID] = *c
				}
			}
		}
		entries = append(entries, entry)
	}
	x.undo.Capture(ruleID, entries)
}

// flush sends the single aggregated notification for a top-level call.
func (x *Executor) flush(ch *chain) {
	if len(ch.summaries) == 0 {
		return
	}
	x.notifier.Notify(strings.Join(ch.summaries, "; "))
}

// ExecuteScheduled runs one scheduled rule against its matched task set
// as a depth-0 chain. One undo snapshot and one log entry cover the whole
// execution; cascaded follow-up events recurse through the same dedup
// set as event-driven chains.
func (x *Executor) ExecuteScheduled(rule *rules.Rule, matched []*types.Task, execType rules.ExecutionType) error {
	ch := newChain(execType)
	defer x.flush(ch)

	x.captureUndo(rule.ID, matched, rule.Action.Type)

	names := make([]string, 0, types.MaxAffectedNames)
	for _, task := range matched {
		if len(names) < types.MaxAffectedNames {
			names = append(names, task.Title)
		}
		cand := rules.Candidate{Rule: rule, Action: rule.Action, Task: task, TriggeringSection: task.SectionID}
		if err := x.applyCandidate(cand, 0, ch, false); err != nil {
			return err
		}
	}

	now := x.clock.Now()
	rule.RecordExecution(now, rules.LogEntry{
		At:            now,
		Trigger:       rules.DescribeTrigger(rule.Trigger),
		Action:        rules.DescribeAction(rule.Action),
		MatchedCount:  len(matched),
		AffectedNames: names,
		Type:          execType,
	})
	return x.rules.Save(rule)
}

// CompleteTaskCascade is the manual completion surface hosts call when a
// user completes a card: it completes the card and its subtasks, captures
// an undo snapshot, and feeds the resulting events through rule
// evaluation (parent at depth 0, subtasks at depth 1).
func (x *Executor) CompleteTaskCascade(id types.TaskID) error {
	task, err := x.tasks.Get(id)
	if err != nil {
		return err
	}
	if task.Completed {
		return nil
	}

	ch := newChain(rules.ExecManual)
	defer x.flush(ch)

	x.captureUndo("", []*types.Task{task}, rules.ActionMarkComplete)

	events, err := x.completeCascade(task, 0)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := x.handleEvent(ev, ev.Depth, ch); err != nil {
			return err
		}
	}
	return nil
}

// Undo restores the most recent execution's snapshot. Single level:
// calling twice does not restore two generations. Expired or missing
// snapshots return ErrNothingToUndo; restoring raises no events, so an
// undo never re-triggers rules.
func (x *Executor) Undo() error {
	snap, err := x.undo.Take()
	if err != nil {
		return err
	}
	for _, entry := range snap.Entries {
		if err := x.restoreTask(entry.Task); err != nil {
			return err
		}
		for _, sub := range entry.Subtasks {
			if err := x.restoreTask(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

func (x *Executor) restoreTask(prior types.Task) error {
	patch := TaskPatch{
		SectionID: &prior.SectionID,
		Completed: &prior.Completed,
		Position:  &prior.Position,
		Title:     &prior.Title,
	}
	if prior.DueDate != nil {
		patch.DueDate = prior.DueDate
	} else {
		patch.ClearDueDate = true
	}
	_, err := x.tasks.Update(prior.ID, patch)
	return err
}
