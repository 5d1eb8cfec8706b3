package rules

import (
	"testing"

	"github.com/Josperdo/mjolnir/internal/model"
)

func warnRule(id int64, hours float64) *model.ThresholdRule {
	return &model.ThresholdRule{
		ID: id, Hours: hours, Action: model.ActionWarn,
		Window: model.WindowRolling7d, Scope: model.GlobalScope(),
	}
}

func timeoutRule(id int64, hours float64, duration int) *model.ThresholdRule {
	return &model.ThresholdRule{
		ID: id, Hours: hours, Action: model.ActionTimeout, DurationHours: duration,
		Window: model.WindowRolling7d, Scope: model.GlobalScope(),
	}
}

func sampleRules() []*model.ThresholdRule {
	return []*model.ThresholdRule{
		warnRule(1, 10),
		timeoutRule(2, 15, 1),
		timeoutRule(3, 20, 6),
		timeoutRule(4, 30, 24),
	}
}

func ids(rules []*model.ThresholdRule) []int64 {
	out := make([]int64, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}

func TestCrossed(t *testing.T) {
	cases := []struct {
		name     string
		playtime float64
		fired    map[int64]bool
		want     []int64
	}{
		{"below all thresholds", 5, nil, nil},
		{"single match", 12, nil, []int64{1}},
		{"multiple match", 22, nil, []int64{1, 2, 3}},
		{"all match", 50, nil, []int64{1, 2, 3, 4}},
		{"skips already fired", 22, map[int64]bool{1: true, 2: true}, []int64{3}},
		{"all already fired", 22, map[int64]bool{1: true, 2: true, 3: true}, nil},
		{"exact boundary fires", 10, nil, []int64{1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Crossed(sampleRules(), tc.playtime, tc.fired))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestMostSevere(t *testing.T) {
	if got := MostSevere(nil); got != nil {
		t.Fatalf("expected nil for empty set, got %+v", got)
	}

	got := MostSevere([]*model.ThresholdRule{warnRule(1, 10), timeoutRule(2, 15, 1)})
	if got.ID != 2 {
		t.Fatalf("expected timeout to beat warn, got rule %d", got.ID)
	}

	got = MostSevere([]*model.ThresholdRule{timeoutRule(2, 15, 1), timeoutRule(3, 20, 6)})
	if got.ID != 3 {
		t.Fatalf("expected longest timeout to win, got rule %d", got.ID)
	}

	got = MostSevere([]*model.ThresholdRule{warnRule(1, 5), warnRule(2, 10)})
	if got.ID != 2 {
		t.Fatalf("expected highest-hour warn to win, got rule %d", got.ID)
	}

	got = MostSevere([]*model.ThresholdRule{warnRule(1, 10)})
	if got.ID != 1 {
		t.Fatalf("expected lone rule back, got rule %d", got.ID)
	}
}

func TestUpcoming(t *testing.T) {
	rules := sampleRules()

	if got := Upcoming(rules, 9.5, 0.9); got == nil || got.ID != 1 {
		t.Fatalf("expected rule 1 near 9.5h, got %+v", got)
	}
	if got := Upcoming(rules, 5, 0.9); got != nil {
		t.Fatalf("expected nothing near at 5h, got rule %d", got.ID)
	}
	// First rule exceeded, second not yet near.
	if got := Upcoming(rules, 12, 0.9); got != nil {
		t.Fatalf("expected nothing near at 12h, got rule %d", got.ID)
	}
	// First rule exceeded, second within reach.
	if got := Upcoming(rules, 13.5, 0.9); got == nil || got.ID != 2 {
		t.Fatalf("expected rule 2 near 13.5h, got %+v", got)
	}
	if got := Upcoming(rules, 50, 0.9); got != nil {
		t.Fatalf("expected nothing when every rule is exceeded, got rule %d", got.ID)
	}
	if got := Upcoming(rules, 9.5, 0); got != nil {
		t.Fatalf("expected pct=0 to disable notices, got rule %d", got.ID)
	}
}

func TestSortByHours(t *testing.T) {
	rules := []*model.ThresholdRule{warnRule(3, 30), warnRule(1, 10), warnRule(2, 20)}
	SortByHours(rules)
	got := ids(rules)
	want := []int64{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got order %v, want %v", got, want)
		}
	}
}

func TestGroupByWindow(t *testing.T) {
	daily := warnRule(2, 4)
	daily.Window = model.WindowDaily
	grouped := GroupByWindow([]*model.ThresholdRule{warnRule(1, 10), daily, warnRule(3, 20)})

	if len(grouped) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(grouped))
	}
	if got := ids(grouped[model.WindowRolling7d]); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("unexpected rolling bucket: %v", got)
	}
	if got := ids(grouped[model.WindowDaily]); len(got) != 1 || got[0] != 2 {
		t.Fatalf("unexpected daily bucket: %v", got)
	}
}

func TestRoast(t *testing.T) {
	warnPool := map[string]bool{}
	for _, m := range warnRoasts {
		warnPool[m] = true
	}
	timeoutPool := map[string]bool{}
	for _, m := range timeoutRoasts {
		timeoutPool[m] = true
	}

	for i := 0; i < 20; i++ {
		if m := Roast(model.ActionWarn, nil); !warnPool[m] {
			t.Fatalf("warn roast %q not from warn pool", m)
		}
		if m := Roast(model.ActionTimeout, nil); !timeoutPool[m] {
			t.Fatalf("timeout roast %q not from timeout pool", m)
		}
		if m := Roast(model.Action("unknown"), nil); !warnPool[m] {
			t.Fatalf("unknown action roast %q not from warn pool", m)
		}
	}

	custom := []*model.Roast{
		{ID: 1, Action: model.ActionWarn, Message: "custom warn"},
		{ID: 2, Action: model.ActionTimeout, Message: "custom timeout"},
	}
	for i := 0; i < 20; i++ {
		if m := Roast(model.ActionWarn, custom); m != "custom warn" {
			t.Fatalf("expected custom warn pool to take over, got %q", m)
		}
		if m := Roast(model.ActionTimeout, custom); m != "custom timeout" {
			t.Fatalf("expected custom timeout pool to take over, got %q", m)
		}
	}
}
