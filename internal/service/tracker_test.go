package service

import (
	"context"
	"testing"
	"time"
)

func newTrackerFixture() (*memStore, *fakeDiscord, *TrackerService, *time.Time) {
	store := newMemStore()
	dc := &fakeDiscord{}
	now := new(time.Time)
	*now = testTime
	clock := func() time.Time { return *now }

	pt := NewPlaytimeService(store, store)
	pt.clock = clock
	w := NewWatcherService(store, store, store, store, store, pt, dc, dc, testLogger())
	w.clock = clock
	tr := NewTrackerService(store, store, store, store, w, testLogger())
	tr.clock = clock
	return store, dc, tr, now
}

func optInUser(t *testing.T, store *memStore, userID int64) {
	t.Helper()
	if err := store.SetOptedIn(context.Background(), userID, true, testTime); err != nil {
		t.Fatalf("opt in: %v", err)
	}
}

func trackGame(t *testing.T, store *memStore, name string) {
	t.Helper()
	if _, err := store.AddTrackedGame(context.Background(), name, testTime); err != nil {
		t.Fatalf("track game: %v", err)
	}
}

func TestTracker_SessionLifecycle(t *testing.T) {
	store, _, tr, now := newTrackerFixture()
	optInUser(t, store, 7)
	trackGame(t, store, "Overwatch")
	ctx := context.Background()

	if err := tr.HandleActivityStart(ctx, 7, "Overwatch Competitive"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(store.sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(store.sessions))
	}
	sess := store.sessions[0]
	if sess.GameName != "Overwatch" {
		t.Fatalf("session stored under %q, want the registry name", sess.GameName)
	}
	if !sess.Open() {
		t.Fatalf("session should be open")
	}

	// A second start for the same game is a no-op.
	if err := tr.HandleActivityStart(ctx, 7, "Overwatch"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if len(store.sessions) != 1 {
		t.Fatalf("duplicate start opened a second session")
	}

	*now = testTime.Add(2 * time.Hour)
	if err := tr.HandleActivityStop(ctx, 7, "Overwatch Competitive"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sess.Open() {
		t.Fatalf("session should be closed")
	}
	if sess.DurationSeconds != 7200 {
		t.Fatalf("duration = %ds, want 7200", sess.DurationSeconds)
	}

	// And a stop with nothing open stays silent.
	if err := tr.HandleActivityStop(ctx, 7, "Overwatch"); err != nil {
		t.Fatalf("redundant stop: %v", err)
	}
}

func TestTracker_StopWithoutStart(t *testing.T) {
	store, _, tr, _ := newTrackerFixture()
	optInUser(t, store, 7)
	trackGame(t, store, "Overwatch")

	if err := tr.HandleActivityStop(context.Background(), 7, "Overwatch"); err != nil {
		t.Fatalf("stop without start must be benign: %v", err)
	}
	if len(store.sessions) != 0 || len(store.events) != 0 {
		t.Fatalf("nothing should be recorded")
	}
}

func TestTracker_IngestGates(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name  string
		setup func(store *memStore)
	}{
		{"tracking disabled", func(store *memStore) {
			store.SetOptedIn(ctx, 7, true, testTime)
			store.AddTrackedGame(ctx, "Overwatch", testTime)
			store.settings.TrackingEnabled = false
		}},
		{"unknown user", func(store *memStore) {
			store.AddTrackedGame(ctx, "Overwatch", testTime)
		}},
		{"opted out", func(store *memStore) {
			store.SetOptedIn(ctx, 7, false, testTime)
			store.AddTrackedGame(ctx, "Overwatch", testTime)
		}},
		{"exempt", func(store *memStore) {
			store.SetOptedIn(ctx, 7, true, testTime)
			store.SetExempt(ctx, 7, true, testTime)
			store.AddTrackedGame(ctx, "Overwatch", testTime)
		}},
		{"game disabled", func(store *memStore) {
			store.SetOptedIn(ctx, 7, true, testTime)
			store.AddTrackedGame(ctx, "Overwatch", testTime)
			store.SetGameEnabled(ctx, "Overwatch", false)
		}},
		{"game excluded by user", func(store *memStore) {
			store.SetOptedIn(ctx, 7, true, testTime)
			store.AddTrackedGame(ctx, "Overwatch", testTime)
			store.SetExcluded(ctx, 7, "Overwatch", true)
		}},
		{"activity not tracked", func(store *memStore) {
			store.SetOptedIn(ctx, 7, true, testTime)
			store.AddTrackedGame(ctx, "Minecraft", testTime)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, _, tr, _ := newTrackerFixture()
			tc.setup(store)
			if err := tr.HandleActivityStart(context.Background(), 7, "Overwatch"); err != nil {
				t.Fatalf("start: %v", err)
			}
			if len(store.sessions) != 0 {
				t.Fatalf("gate %q let a session through", tc.name)
			}
		})
	}
}

func TestTracker_SubstringMatchUsesCanonicalName(t *testing.T) {
	store, _, tr, _ := newTrackerFixture()
	optInUser(t, store, 7)
	trackGame(t, store, "Overwatch")

	if err := tr.HandleActivityStart(context.Background(), 7, "OVERWATCH 2 ranked grind"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(store.sessions) != 1 || store.sessions[0].GameName != "Overwatch" {
		t.Fatalf("activity should resolve to the registry name, got %+v", store.sessions)
	}
}

func TestTracker_StopFeedsThresholdCheck(t *testing.T) {
	store, dc, tr, now := newTrackerFixture()
	optInUser(t, store, 7)
	trackGame(t, store, "Overwatch")
	seedDefaultRules(t, store)
	ctx := context.Background()

	if err := tr.HandleActivityStart(ctx, 7, "Overwatch"); err != nil {
		t.Fatalf("start: %v", err)
	}
	*now = testTime.Add(22 * time.Hour)
	if err := tr.HandleActivityStop(ctx, 7, "Overwatch"); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if len(store.events) != 3 {
		t.Fatalf("closing a 22h session must cross 10h/15h/20h, got %d events", len(store.events))
	}
	if len(dc.timeouts) != 1 {
		t.Fatalf("expected the 6h timeout to apply")
	}
}

func TestTracker_ExemptUserGetsNoSessions(t *testing.T) {
	store, dc, tr, now := newTrackerFixture()
	optInUser(t, store, 7)
	store.SetExempt(context.Background(), 7, true, testTime)
	trackGame(t, store, "Overwatch")
	seedDefaultRules(t, store)
	ctx := context.Background()

	if err := tr.HandleActivityStart(ctx, 7, "Overwatch"); err != nil {
		t.Fatalf("start: %v", err)
	}
	*now = testTime.Add(22 * time.Hour)
	if err := tr.HandleActivityStop(ctx, 7, "Overwatch"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(store.sessions) != 0 || len(store.events) != 0 || len(dc.timeouts) != 0 {
		t.Fatalf("exempt users are invisible to tracking")
	}
}
