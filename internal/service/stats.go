package service

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
	"github.com/Josperdo/mjolnir/internal/repository"
	"github.com/Josperdo/mjolnir/internal/rules"
)

// ErrNotOptedIn marks stats requests from users without tracking.
var ErrNotOptedIn = errors.New("user is not opted in")

const leaderboardSize = 5

// StatsService builds the personal stats view, the public
// leaderboards and the data export and deletion bundles.
type StatsService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	rules    repository.RuleRepository
	games    repository.GameRepository
	ledger   repository.LedgerRepository
	clock    func() time.Time
}

func NewStatsService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	ruleRepo repository.RuleRepository,
	games repository.GameRepository,
	ledger repository.LedgerRepository,
) *StatsService {
	return &StatsService{
		users:    users,
		sessions: sessions,
		rules:    ruleRepo,
		games:    games,
		ledger:   ledger,
		clock:    time.Now,
	}
}

// MyStats assembles the per-window standings for one user. Open
// sessions count live: their elapsed time is added to every
// historical window, and the longest one stands in for the session
// window.
func (s *StatsService) MyStats(ctx context.Context, userID int64) (*model.UserStats, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotOptedIn
	}
	if err != nil {
		return nil, err
	}
	if !user.OptedIn {
		return nil, ErrNotOptedIn
	}

	all, err := s.rules.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	grouped := rules.GroupByWindow(all)

	now := s.clock()
	open, err := s.sessions.OpenSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	var activeHours, longestOpen float64
	for _, sess := range open {
		h := sess.ElapsedHours(now)
		activeHours += h
		if h > longestOpen {
			longestOpen = h
		}
	}

	stats := &model.UserStats{ActiveHours: activeHours}
	for _, window := range model.Windows {
		windowRules := grouped[window]
		if len(windowRules) == 0 {
			continue
		}
		playtime, err := s.windowPlaytime(ctx, userID, window, activeHours, longestOpen)
		if err != nil {
			return nil, err
		}
		stats.Windows = append(stats.Windows, buildStanding(window, windowRules, playtime))
	}

	stats.Daily, err = s.sessions.DailyBreakdown(ctx, userID, 7, now)
	if err != nil {
		return nil, err
	}
	stats.Sessions, err = s.sessions.SessionStats(ctx, userID, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	stats.Warns, stats.Timeouts, err = s.ledger.EventActionCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *StatsService) windowPlaytime(ctx context.Context, userID int64, window model.Window, activeHours, longestOpen float64) (float64, error) {
	cutoff, ok := window.Cutoff(s.clock())
	if !ok {
		return longestOpen, nil
	}
	completed, err := s.sessions.SumHours(ctx, userID, nil, cutoff)
	if err != nil {
		return 0, err
	}
	return completed + activeHours, nil
}

// buildStanding finds the next unreached rule in an ascending list and
// derives the progress-bar cap from it, or from the highest rule when
// everything is already exceeded.
func buildStanding(window model.Window, windowRules []*model.ThresholdRule, playtime float64) model.WindowStanding {
	rules.SortByHours(windowRules)
	st := model.WindowStanding{Window: window, Playtime: playtime}
	for _, r := range windowRules {
		if playtime < r.Hours {
			st.Pending = append(st.Pending, r)
		}
	}
	if len(st.Pending) > 0 {
		st.Next = st.Pending[0]
		st.BarCap = st.Next.Hours
		st.Remaining = st.Next.Hours - playtime
	} else {
		st.BarCap = windowRules[len(windowRules)-1].Hours
	}
	return st
}

// Leaderboards returns the three rolling 7-day rankings. Only opted-in
// users with leaderboard visibility appear.
func (s *StatsService) Leaderboards(ctx context.Context) (*model.Leaderboards, error) {
	since := s.clock().Add(-7 * 24 * time.Hour)
	boards := &model.Leaderboards{}
	var err error
	boards.MostHours, err = s.sessions.TopByHours(ctx, since, leaderboardSize)
	if err != nil {
		return nil, err
	}
	boards.LongestSession, err = s.sessions.TopByLongestSession(ctx, since, leaderboardSize)
	if err != nil {
		return nil, err
	}
	boards.MostSessions, err = s.sessions.TopBySessionCount(ctx, since, leaderboardSize)
	if err != nil {
		return nil, err
	}
	return boards, nil
}

// Export collects everything stored about a user. Works even when the
// user row itself is gone but orphaned history remains.
func (s *StatsService) Export(ctx context.Context, userID int64) (*model.UserExport, error) {
	out := &model.UserExport{ExportedAt: s.clock()}

	user, err := s.users.GetUser(ctx, userID)
	switch {
	case err == nil:
		out.User = user
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	out.Sessions, err = s.sessions.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out.Events, err = s.ledger.ListEvents(ctx, userID)
	if err != nil {
		return nil, err
	}
	out.Warnings, err = s.ledger.ListProactive(ctx, userID)
	if err != nil {
		return nil, err
	}
	out.Exclusions, err = s.games.ListExclusions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Forget permanently removes every trace of a user: warnings, events,
// sessions, game exclusions and finally the user row itself.
func (s *StatsService) Forget(ctx context.Context, userID int64) (*model.DeletionReport, error) {
	report := &model.DeletionReport{}
	var err error
	report.Warnings, err = s.ledger.ClearProactive(ctx, userID)
	if err != nil {
		return nil, err
	}
	report.Events, err = s.ledger.ClearFired(ctx, userID)
	if err != nil {
		return nil, err
	}
	report.Sessions, err = s.sessions.DeleteUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	excluded, err := s.games.ListExclusions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, game := range excluded {
		if err := s.games.SetExcluded(ctx, userID, game, false); err != nil {
			return nil, err
		}
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return report, nil
}

// ResetPlaytime wipes a user's sessions and threshold events but keeps
// the user, their preferences and any proactive-warning records.
func (s *StatsService) ResetPlaytime(ctx context.Context, userID int64) (sessions, events int64, err error) {
	sessions, err = s.sessions.DeleteUserSessions(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	events, err = s.ledger.ClearFired(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return sessions, events, nil
}
