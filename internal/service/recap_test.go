package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Josperdo/mjolnir/pkg/discord"
)

// recapTime is Monday 09:30 UTC, inside the default recap slot.
var recapTime = time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC)

func newRecapFixture(now time.Time) (*memStore, *fakeDiscord, *RecapService) {
	store := newMemStore()
	dc := &fakeDiscord{}
	svc := NewRecapService(store, store, store, dc, testLogger())
	svc.clock = func() time.Time { return now }
	return store, dc, svc
}

func TestRecap_SendsSummariesAndShameBoard(t *testing.T) {
	store, dc, svc := newRecapFixture(recapTime)
	ctx := context.Background()
	store.settings.AnnouncementChannelID = 999
	store.SetOptedIn(ctx, 1, true, recapTime)
	store.SetOptedIn(ctx, 2, true, recapTime)

	// One session inside the previous calendar week (Mon Mar 4 - Sun Mar 10).
	addClosedSession(store, 1, "Overwatch", time.Date(2024, 3, 6, 20, 0, 0, 0, time.UTC), 6)
	// And one this week, which must not count.
	addClosedSession(store, 2, "Overwatch", recapTime.Add(-2*time.Hour), 3)

	if err := svc.RunDue(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(dc.dms) != 1 {
		t.Fatalf("only players with last-week sessions get a recap, got %d DMs", len(dc.dms))
	}
	dm := dc.dms[0]
	if dm.userID != 1 {
		t.Fatalf("recap went to %d", dm.userID)
	}
	for _, want := range []string{"**Your Weekly Recap**", "Total Playtime: **6.0h**", "Sessions: **1**", "Longest Session: **6.0h**", "Busiest Day: **Wed**"} {
		if !strings.Contains(dm.content, want) {
			t.Fatalf("recap DM missing %q:\n%s", want, dm.content)
		}
	}

	if len(dc.channelMsgs) != 1 || dc.channelIDs[0] != 999 {
		t.Fatalf("shame board not posted, got %v", dc.channelMsgs)
	}
	board := dc.channelMsgs[0]
	for _, want := range []string{"**Weekly Shame Board**", "Last week's biggest offenders:", "1. <@1> — 6.0h"} {
		if !strings.Contains(board, want) {
			t.Fatalf("shame board missing %q:\n%s", want, board)
		}
	}

	if store.settings.LastWeeklyRecapAt == nil || !store.settings.LastWeeklyRecapAt.Equal(recapTime) {
		t.Fatalf("watermark not stamped: %v", store.settings.LastWeeklyRecapAt)
	}
}

func TestRecap_OffScheduleIsNoOp(t *testing.T) {
	for _, now := range []time.Time{
		testTime,                     // Wednesday
		recapTime.Add(2 * time.Hour), // right day, wrong hour
		recapTime.AddDate(0, 0, 1),   // Tuesday
	} {
		store, dc, svc := newRecapFixture(now)
		ctx := context.Background()
		store.SetOptedIn(ctx, 1, true, now)
		addClosedSession(store, 1, "Overwatch", now.AddDate(0, 0, -5), 6)

		if err := svc.RunDue(ctx); err != nil {
			t.Fatalf("run at %v: %v", now, err)
		}
		if len(dc.dms) != 0 || store.settings.LastWeeklyRecapAt != nil {
			t.Fatalf("recap fired off schedule at %v", now)
		}
	}
}

func TestRecap_WatermarkBlocksSameSlot(t *testing.T) {
	store, dc, svc := newRecapFixture(recapTime)
	ctx := context.Background()
	earlier := recapTime.Add(-2 * time.Hour)
	store.settings.LastWeeklyRecapAt = &earlier
	store.SetOptedIn(ctx, 1, true, recapTime)
	addClosedSession(store, 1, "Overwatch", time.Date(2024, 3, 6, 20, 0, 0, 0, time.UTC), 6)

	if err := svc.RunDue(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(dc.dms) != 0 {
		t.Fatalf("recap repeated within the same slot")
	}

	lastWeek := recapTime.AddDate(0, 0, -7)
	store.settings.LastWeeklyRecapAt = &lastWeek
	if err := svc.RunDue(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(dc.dms) != 1 {
		t.Fatalf("a week-old watermark must not block the recap")
	}
}

func TestRecap_NoChannelSkipsShameBoard(t *testing.T) {
	store, dc, svc := newRecapFixture(recapTime)
	ctx := context.Background()
	store.SetOptedIn(ctx, 1, true, recapTime)
	addClosedSession(store, 1, "Overwatch", time.Date(2024, 3, 6, 20, 0, 0, 0, time.UTC), 6)

	if err := svc.RunDue(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(dc.dms) != 1 {
		t.Fatalf("summary DM should still go out")
	}
	if len(dc.channelMsgs) != 0 {
		t.Fatalf("no channel configured, nothing to post")
	}
}

func TestRecap_ClosedDMsDoNotAbort(t *testing.T) {
	store, dc, svc := newRecapFixture(recapTime)
	ctx := context.Background()
	dc.dmErr = discord.ErrForbidden
	store.SetOptedIn(ctx, 1, true, recapTime)
	addClosedSession(store, 1, "Overwatch", time.Date(2024, 3, 6, 20, 0, 0, 0, time.UTC), 6)

	if err := svc.RunDue(ctx); err != nil {
		t.Fatalf("closed DMs must not fail the recap: %v", err)
	}
	if store.settings.LastWeeklyRecapAt == nil {
		t.Fatalf("watermark should still be stamped")
	}
}
