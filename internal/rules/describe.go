package rules

import (
	"fmt"

	"github.com/cardpilot/cardpilot/internal/cron"
)

// DescribeTrigger renders deterministic human text for a trigger, used in
// execution log entries and rule previews.
func DescribeTrigger(t Trigger) string {
	switch t.Type {
	case TriggerCardMovedInto:
		return "card moved into section"
	case TriggerCardMovedOutOf:
		return "card moved out of section"
	case TriggerCardMarkedComplete:
		return "card marked complete"
	case TriggerCardMarkedIncomplete:
		return "card marked incomplete"
	case TriggerCardCreatedInSection:
		return "card created in section"
	case TriggerSectionCreated:
		return "section created"
	case TriggerSectionRenamed:
		return "section renamed"
	case TriggerScheduleInterval:
		if t.Schedule != nil {
			return fmt.Sprintf("every %d minutes", t.Schedule.IntervalMinutes)
		}
		return "every interval"
	case TriggerScheduleCron:
		if t.Schedule != nil && t.Schedule.Cron != nil {
			return cron.Describe(*t.Schedule.Cron)
		}
		return "on schedule"
	case TriggerScheduleDueRelative:
		if t.Schedule != nil {
			return describeDueOffset(t.Schedule.DueOffsetMinutes)
		}
		return "relative to due date"
	case TriggerScheduleOneTime:
		if t.Schedule != nil && t.Schedule.FireAt != nil {
			return "once at " + t.Schedule.FireAt.Format("2006-01-02 15:04")
		}
		return "once"
	default:
		return string(t.Type)
	}
}

func describeDueOffset(minutes int) string {
	if minutes < 0 {
		return fmt.Sprintf("%d minutes before due", -minutes)
	}
	if minutes == 0 {
		return "when due"
	}
	return fmt.Sprintf("%d minutes after due", minutes)
}

// DescribeAction renders deterministic human text for an action.
func DescribeAction(a Action) string {
	switch a.Type {
	case ActionMoveToTop:
		return "move to top of section"
	case ActionMoveToBottom:
		return "move to bottom of section"
	case ActionMarkComplete:
		return "mark complete"
	case ActionMarkIncomplete:
		return "mark incomplete"
	case ActionSetDueDate:
		if a.DueInDays != nil {
			return fmt.Sprintf("set due date to %d days from now", *a.DueInDays)
		}
		return "set due date"
	case ActionRemoveDueDate:
		return "remove due date"
	case ActionCreateCard:
		return "create card"
	default:
		return string(a.Type)
	}
}
