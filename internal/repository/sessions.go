package repository

import (
	"context"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
)

// SessionRepository abstracts persistence of play sessions and the
// aggregate queries built over them. Missing rows are reported as
// os.ErrNotExist.
type SessionRepository interface {
	// OpenSession inserts a new open session starting at now.
	OpenSession(ctx context.Context, userID int64, game string, now time.Time) (*model.PlaySession, error)
	// CloseSession stamps end_time and the derived duration on an open
	// session. os.ErrNotExist when the id is unknown or already closed.
	CloseSession(ctx context.Context, id string, now time.Time) (*model.PlaySession, error)
	// ActiveSession returns the open session for (user, game), if any.
	ActiveSession(ctx context.Context, userID int64, game string) (*model.PlaySession, error)
	// OpenSessions returns every session of the user still in progress.
	OpenSessions(ctx context.Context, userID int64) ([]*model.PlaySession, error)

	// SumHours totals completed-session hours with start_time >= since.
	// games narrows to the named games (case-insensitive); nil means all.
	SumHours(ctx context.Context, userID int64, games []string, since time.Time) (float64, error)
	// WeeklySummary aggregates one calendar week [from, to).
	WeeklySummary(ctx context.Context, userID int64, from, to time.Time) (*model.WeeklySummary, error)
	// DailyBreakdown returns hours per UTC day for the last days days,
	// oldest first, gaps filled with zero.
	DailyBreakdown(ctx context.Context, userID int64, days int, now time.Time) ([]model.DayHours, error)
	// SessionStats summarizes completed sessions since the cutoff.
	SessionStats(ctx context.Context, userID int64, since time.Time) (*model.SessionStats, error)

	// TopByHours ranks opted-in leaderboard-visible users by total hours
	// since the cutoff.
	TopByHours(ctx context.Context, since time.Time, limit int) ([]model.LeaderboardEntry, error)
	// TopByHoursBetween is TopByHours over a closed interval [from, to).
	TopByHoursBetween(ctx context.Context, from, to time.Time, limit int) ([]model.LeaderboardEntry, error)
	// TopByLongestSession ranks by single longest session since the cutoff.
	TopByLongestSession(ctx context.Context, since time.Time, limit int) ([]model.LeaderboardEntry, error)
	// TopBySessionCount ranks by number of completed sessions since the cutoff.
	TopBySessionCount(ctx context.Context, since time.Time, limit int) ([]model.LeaderboardEntry, error)

	// ListSessions returns every session for a user, oldest first.
	ListSessions(ctx context.Context, userID int64) ([]*model.PlaySession, error)
	// DeleteUserSessions removes all of a user's sessions.
	DeleteUserSessions(ctx context.Context, userID int64) (int64, error)
}
