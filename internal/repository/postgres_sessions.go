package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Josperdo/mjolnir/internal/model"
)

var _ SessionRepository = (*Postgres)(nil)

func (p *Postgres) OpenSession(ctx context.Context, userID int64, game string, now time.Time) (*model.PlaySession, error) {
	s := &model.PlaySession{
		ID:        uuid.NewString(),
		UserID:    userID,
		GameName:  game,
		StartTime: now,
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO play_sessions (id, user_id, game_name, start_time) VALUES ($1, $2, $3, $4)`,
		s.ID, s.UserID, s.GameName, s.StartTime,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Postgres) CloseSession(ctx context.Context, id string, now time.Time) (*model.PlaySession, error) {
	row := p.db.QueryRowContext(ctx,
		`UPDATE play_sessions
		 SET end_time = $2,
		     duration_seconds = EXTRACT(EPOCH FROM ($2 - start_time))::BIGINT
		 WHERE id = $1 AND end_time IS NULL
		 RETURNING id, user_id, game_name, start_time, end_time, duration_seconds`,
		id, now,
	)
	return scanSession(row)
}

func (p *Postgres) ActiveSession(ctx context.Context, userID int64, game string) (*model.PlaySession, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, user_id, game_name, start_time, end_time, duration_seconds
		 FROM play_sessions
		 WHERE user_id = $1 AND game_name = $2 AND end_time IS NULL
		 ORDER BY start_time DESC LIMIT 1`,
		userID, game,
	)
	return scanSession(row)
}

func (p *Postgres) OpenSessions(ctx context.Context, userID int64) ([]*model.PlaySession, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, user_id, game_name, start_time, end_time, duration_seconds
		 FROM play_sessions
		 WHERE user_id = $1 AND end_time IS NULL
		 ORDER BY start_time`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.PlaySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) SumHours(ctx context.Context, userID int64, games []string, since time.Time) (float64, error) {
	var seconds int64
	var err error
	if games == nil {
		err = p.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(duration_seconds), 0) FROM play_sessions
			 WHERE user_id = $1 AND start_time >= $2 AND end_time IS NOT NULL`,
			userID, since,
		).Scan(&seconds)
	} else {
		lowered := make([]string, len(games))
		for i, g := range games {
			lowered[i] = strings.ToLower(g)
		}
		err = p.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(duration_seconds), 0) FROM play_sessions
			 WHERE user_id = $1 AND start_time >= $2 AND end_time IS NOT NULL
			   AND LOWER(game_name) = ANY($3)`,
			userID, since, lowered,
		).Scan(&seconds)
	}
	if err != nil {
		return 0, err
	}
	return float64(seconds) / 3600, nil
}

func (p *Postgres) WeeklySummary(ctx context.Context, userID int64, from, to time.Time) (*model.WeeklySummary, error) {
	sum := &model.WeeklySummary{}
	var totalSec, longestSec int64
	err := p.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(duration_seconds), 0), COUNT(*), COALESCE(MAX(duration_seconds), 0)
		 FROM play_sessions
		 WHERE user_id = $1 AND start_time >= $2 AND start_time < $3 AND end_time IS NOT NULL`,
		userID, from, to,
	).Scan(&totalSec, &sum.SessionCount, &longestSec)
	if err != nil {
		return nil, err
	}
	sum.TotalHours = float64(totalSec) / 3600
	sum.LongestHours = float64(longestSec) / 3600

	var dow int
	var dowSec int64
	err = p.db.QueryRowContext(ctx,
		`SELECT EXTRACT(DOW FROM start_time AT TIME ZONE 'UTC')::INT, SUM(duration_seconds)
		 FROM play_sessions
		 WHERE user_id = $1 AND start_time >= $2 AND start_time < $3 AND end_time IS NOT NULL
		 GROUP BY 1 ORDER BY 2 DESC LIMIT 1`,
		userID, from, to,
	).Scan(&dow, &dowSec)
	switch {
	case err == nil:
		dayNames := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
		sum.BusiestDay = dayNames[dow]
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT game_name, SUM(duration_seconds)
		 FROM play_sessions
		 WHERE user_id = $1 AND start_time >= $2 AND start_time < $3 AND end_time IS NOT NULL
		 GROUP BY game_name ORDER BY 2 DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var gh model.GameHours
		var sec int64
		if err := rows.Scan(&gh.Game, &sec); err != nil {
			return nil, err
		}
		gh.Hours = float64(sec) / 3600
		sum.PerGame = append(sum.PerGame, gh)
	}
	return sum, rows.Err()
}

func (p *Postgres) DailyBreakdown(ctx context.Context, userID int64, days int, now time.Time) ([]model.DayHours, error) {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	rows, err := p.db.QueryContext(ctx,
		`SELECT TO_CHAR(start_time AT TIME ZONE 'UTC', 'YYYY-MM-DD'), SUM(duration_seconds)
		 FROM play_sessions
		 WHERE user_id = $1 AND start_time >= $2 AND end_time IS NOT NULL
		 GROUP BY 1`,
		userID, cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byDay := map[string]float64{}
	for rows.Next() {
		var day string
		var sec int64
		if err := rows.Scan(&day, &sec); err != nil {
			return nil, err
		}
		byDay[day] = float64(sec) / 3600
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.DayHours, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.UTC().AddDate(0, 0, -i).Format("2006-01-02")
		out = append(out, model.DayHours{Day: day, Hours: byDay[day]})
	}
	return out, nil
}

func (p *Postgres) SessionStats(ctx context.Context, userID int64, since time.Time) (*model.SessionStats, error) {
	stats := &model.SessionStats{}
	var longestSec, avgSec float64
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(duration_seconds), 0), COALESCE(AVG(duration_seconds), 0)
		 FROM play_sessions
		 WHERE user_id = $1 AND start_time >= $2 AND end_time IS NOT NULL`,
		userID, since,
	).Scan(&stats.Count, &longestSec, &avgSec)
	if err != nil {
		return nil, err
	}
	stats.LongestHours = longestSec / 3600
	stats.AvgHours = avgSec / 3600
	return stats, nil
}

func (p *Postgres) TopByHours(ctx context.Context, since time.Time, limit int) ([]model.LeaderboardEntry, error) {
	return p.queryLeaderboard(ctx,
		`SELECT ps.user_id, SUM(ps.duration_seconds) AS ranked
		 FROM play_sessions ps
		 JOIN users u ON ps.user_id = u.user_id
		 WHERE u.opted_in AND u.leaderboard_visible
		   AND ps.end_time IS NOT NULL AND ps.start_time >= $1
		 GROUP BY ps.user_id ORDER BY ranked DESC LIMIT $2`,
		true, since, limit)
}

func (p *Postgres) TopByHoursBetween(ctx context.Context, from, to time.Time, limit int) ([]model.LeaderboardEntry, error) {
	return p.queryLeaderboard(ctx,
		`SELECT ps.user_id, SUM(ps.duration_seconds) AS ranked
		 FROM play_sessions ps
		 JOIN users u ON ps.user_id = u.user_id
		 WHERE u.opted_in AND u.leaderboard_visible
		   AND ps.end_time IS NOT NULL AND ps.start_time >= $1 AND ps.start_time < $2
		 GROUP BY ps.user_id ORDER BY ranked DESC LIMIT $3`,
		true, from, to, limit)
}

func (p *Postgres) TopByLongestSession(ctx context.Context, since time.Time, limit int) ([]model.LeaderboardEntry, error) {
	return p.queryLeaderboard(ctx,
		`SELECT ps.user_id, MAX(ps.duration_seconds) AS ranked
		 FROM play_sessions ps
		 JOIN users u ON ps.user_id = u.user_id
		 WHERE u.opted_in AND u.leaderboard_visible
		   AND ps.end_time IS NOT NULL AND ps.start_time >= $1
		 GROUP BY ps.user_id ORDER BY ranked DESC LIMIT $2`,
		true, since, limit)
}

func (p *Postgres) TopBySessionCount(ctx context.Context, since time.Time, limit int) ([]model.LeaderboardEntry, error) {
	return p.queryLeaderboard(ctx,
		`SELECT ps.user_id, COUNT(*) AS ranked
		 FROM play_sessions ps
		 JOIN users u ON ps.user_id = u.user_id
		 WHERE u.opted_in AND u.leaderboard_visible
		   AND ps.end_time IS NOT NULL AND ps.start_time >= $1
		 GROUP BY ps.user_id ORDER BY ranked DESC LIMIT $2`,
		false, since, limit)
}

// queryLeaderboard runs a two-column (user_id, ranked) query. asHours
// says whether the ranked value is seconds to convert or a plain count.
func (p *Postgres) queryLeaderboard(ctx context.Context, query string, asHours bool, args ...any) ([]model.LeaderboardEntry, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		var ranked int64
		if err := rows.Scan(&e.UserID, &ranked); err != nil {
			return nil, err
		}
		if asHours {
			e.Hours = float64(ranked) / 3600
		} else {
			e.Sessions = int(ranked)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) ListSessions(ctx context.Context, userID int64) ([]*model.PlaySession, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, user_id, game_name, start_time, end_time, duration_seconds
		 FROM play_sessions WHERE user_id = $1 ORDER BY start_time`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.PlaySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteUserSessions(ctx context.Context, userID int64) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM play_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.PlaySession, error) {
	s := &model.PlaySession{}
	var end sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.GameName, &s.StartTime, &end, &s.DurationSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, os.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		s.EndTime = &t
	}
	return s, nil
}
