// Package rules holds the pure threshold evaluation logic: which rules
// a playtime total newly crosses, which single consequence to apply,
// and the roast lines attached to it. No storage or Discord access.
package rules

import (
	"sort"

	"github.com/Josperdo/mjolnir/internal/model"
)

// GroupByWindow partitions rules by window type, preserving order
// within each bucket.
func GroupByWindow(rules []*model.ThresholdRule) map[model.Window][]*model.ThresholdRule {
	grouped := map[model.Window][]*model.ThresholdRule{}
	for _, r := range rules {
		grouped[r.Window] = append(grouped[r.Window], r)
	}
	return grouped
}

// SortByHours orders rules ascending by hour threshold, in place.
func SortByHours(rules []*model.ThresholdRule) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Hours < rules[j].Hours })
}

// Crossed returns the rules whose threshold the playtime reaches or
// exceeds, skipping rules already in fired.
func Crossed(rules []*model.ThresholdRule, playtimeHours float64, fired map[int64]bool) []*model.ThresholdRule {
	var out []*model.ThresholdRule
	for _, r := range rules {
		if playtimeHours >= r.Hours && !fired[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// MostSevere picks the single rule to act on from a set of crossings.
// A timeout with the longest duration wins; with no timeouts present
// the warn with the highest hour threshold wins. Nil for an empty set.
func MostSevere(rules []*model.ThresholdRule) *model.ThresholdRule {
	var best *model.ThresholdRule
	for _, r := range rules {
		switch {
		case best == nil:
			best = r
		case r.Action == model.ActionTimeout && best.Action != model.ActionTimeout:
			best = r
		case r.Action == model.ActionTimeout && best.Action == model.ActionTimeout && r.DurationHours > best.DurationHours:
			best = r
		case r.Action != model.ActionTimeout && best.Action != model.ActionTimeout && r.Hours > best.Hours:
			best = r
		}
	}
	return best
}

// Upcoming returns the next rule ahead of the playtime once playtime
// is within the pct fraction of its threshold, or nil when nothing is
// near. Rules must be sorted ascending by hours; a pct of zero or less
// disables approach notices entirely.
func Upcoming(rules []*model.ThresholdRule, playtimeHours, pct float64) *model.ThresholdRule {
	if pct <= 0 {
		return nil
	}
	for _, r := range rules {
		if playtimeHours >= r.Hours {
			continue
		}
		if playtimeHours < r.Hours*pct {
			return nil
		}
		return r
	}
	return nil
}
