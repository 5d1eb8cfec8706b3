package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
	"github.com/Josperdo/mjolnir/internal/repository"
	"github.com/Josperdo/mjolnir/pkg/discord"
)

// RecapService sends the weekly recap: a summary DM to every opted-in
// user who played last week, plus a shame board in the announcement
// channel. Scheduling is watermark-guarded so one slot fires once.
type RecapService struct {
	settings repository.SettingsRepository
	users    repository.UserRepository
	sessions repository.SessionRepository
	notifier Notifier
	log      *slog.Logger
	clock    func() time.Time
}

func NewRecapService(
	settings repository.SettingsRepository,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	notifier Notifier,
	log *slog.Logger,
) *RecapService {
	return &RecapService{
		settings: settings,
		users:    users,
		sessions: sessions,
		notifier: notifier,
		log:      log,
		clock:    time.Now,
	}
}

// RunDue fires the recap when the configured day and UTC hour match
// and the last recap is at least a day old. Callers invoke it on a
// coarse tick; off-slot calls are cheap no-ops.
func (s *RecapService) RunDue(ctx context.Context) error {
	cfg, err := s.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	now := s.clock().UTC()
	if mondayIndexed(now.Weekday()) != cfg.WeeklyRecapDay {
		return nil
	}
	if now.Hour() != cfg.WeeklyRecapHour {
		return nil
	}
	if cfg.LastWeeklyRecapAt != nil && now.Sub(*cfg.LastWeeklyRecapAt) < 24*time.Hour {
		return nil
	}

	from := model.StartOfWeek(now).AddDate(0, 0, -7)
	to := model.StartOfWeek(now)

	if err := s.sendSummaries(ctx, from, to); err != nil {
		return err
	}
	s.sendShameBoard(ctx, cfg, from, to)

	cfg.LastWeeklyRecapAt = &now
	if err := s.settings.UpdateSettings(ctx, cfg); err != nil {
		return err
	}
	s.log.Info("weekly recap sent", "week_start", from.Format("2006-01-02"))
	return nil
}

func (s *RecapService) sendSummaries(ctx context.Context, from, to time.Time) error {
	optedIn, err := s.users.ListOptedIn(ctx)
	if err != nil {
		return err
	}
	for _, user := range optedIn {
		summary, err := s.sessions.WeeklySummary(ctx, user.ID, from, to)
		if err != nil {
			s.log.Warn("weekly summary failed", "user_id", user.ID, "error", err)
			continue
		}
		if summary.SessionCount == 0 {
			continue
		}
		if err := s.notifier.SendDM(ctx, user.ID, formatRecap(summary)); err != nil {
			if !errors.Is(err, discord.ErrForbidden) {
				s.log.Warn("recap dm failed", "user_id", user.ID, "error", err)
			}
		}
	}
	return nil
}

func formatRecap(summary *model.WeeklySummary) string {
	var b strings.Builder
	b.WriteString("**Your Weekly Recap**\n")
	fmt.Fprintf(&b, "Total Playtime: **%.1fh**\n", summary.TotalHours)
	fmt.Fprintf(&b, "Sessions: **%d**\n", summary.SessionCount)
	fmt.Fprintf(&b, "Longest Session: **%.1fh**", summary.LongestHours)
	if summary.BusiestDay != "" {
		fmt.Fprintf(&b, "\nBusiest Day: **%s**", summary.BusiestDay)
	}
	return b.String()
}

func (s *RecapService) sendShameBoard(ctx context.Context, cfg *model.Settings, from, to time.Time) {
	if cfg.AnnouncementChannelID == 0 {
		return
	}
	top, err := s.sessions.TopByHoursBetween(ctx, from, to, leaderboardSize)
	if err != nil {
		s.log.Warn("shame board query failed", "error", err)
		return
	}
	if len(top) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString("**Weekly Shame Board**\nLast week's biggest offenders:\n**Most Hours Played**\n")
	for i, entry := range top {
		fmt.Fprintf(&b, "%d. <@%d> — %.1fh\n", i+1, entry.UserID, entry.Hours)
	}
	if err := s.notifier.SendChannelMessage(ctx, cfg.AnnouncementChannelID, strings.TrimRight(b.String(), "\n")); err != nil {
		s.log.Warn("failed to post weekly shame board", "error", err)
	}
}

// mondayIndexed converts Go's Sunday-first weekday numbering to the
// stored 0=Monday convention.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}
