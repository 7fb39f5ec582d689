package rules

import "sort"

// Index maps trigger type to the runnable rules carrying it, so event
// evaluation is O(rules matching the type) instead of O(all rules).
// Within a bucket, rules keep persisted display order, which makes
// candidate ordering deterministic for a fixed rule set.
type Index struct {
	byType map[TriggerType][]*Rule
}

// BuildIndex indexes runnable rules by trigger type. Disabled and broken
// rules are dropped here, once, instead of being re-checked per event.
func BuildIndex(all []*Rule) *Index {
	ix := &Index{byType: make(map[TriggerType][]*Rule)}
	for _, r := range all {
		if !r.Runnable() {
			continue
		}
		ix.byType[r.Trigger.Type] = append(ix.byType[r.Trigger.Type], r)
	}
	for _, bucket := range ix.byType {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].DisplayOrder < bucket[j].DisplayOrder
		})
	}
	return ix
}

// ByTriggerType returns the runnable rules for one trigger type, in
// display order. The returned slice is shared; callers must not mutate it.
func (ix *Index) ByTriggerType(t TriggerType) []*Rule {
	return ix.byType[t]
}

// Scheduled returns all runnable scheduled rules in display order across
// the scheduled trigger types.
func (ix *Index) Scheduled() []*Rule {
	var out []*Rule
	for _, t := range []TriggerType{TriggerScheduleInterval, TriggerScheduleCron, TriggerScheduleDueRelative, TriggerScheduleOneTime} {
		out = append(out, ix.byType[t]...)
	}
	return out
}
