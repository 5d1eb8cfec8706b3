package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
)

var _ LedgerRepository = (*Postgres)(nil)

func (p *Postgres) FiredRuleIDs(ctx context.Context, userID int64, since time.Time, dedupGame string) (map[int64]bool, error) {
	var rows *sql.Rows
	var err error
	if dedupGame == "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT DISTINCT rule_id FROM threshold_events
			 WHERE user_id = $1 AND triggered_at >= $2 AND game_name IS NULL`,
			userID, since,
		)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT DISTINCT rule_id FROM threshold_events
			 WHERE user_id = $1 AND triggered_at >= $2 AND LOWER(game_name) = LOWER($3)`,
			userID, since, dedupGame,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	fired := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		fired[id] = true
	}
	return fired, rows.Err()
}

func (p *Postgres) RecordFired(ctx context.Context, userID, ruleID int64, window model.Window, dedupGame string, at time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO threshold_events (user_id, rule_id, window_type, game_name, triggered_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, ruleID, string(window), nullableGame(dedupGame), at,
	)
	return err
}

func (p *Postgres) LastFiredAt(ctx context.Context, userID int64) (time.Time, error) {
	var last sql.NullTime
	err := p.db.QueryRowContext(ctx,
		`SELECT MAX(triggered_at) FROM threshold_events WHERE user_id = $1`,
		userID,
	).Scan(&last)
	if err != nil {
		return time.Time{}, err
	}
	if !last.Valid {
		return time.Time{}, os.ErrNotExist
	}
	return last.Time, nil
}

func (p *Postgres) ClearFired(ctx context.Context, userID int64) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM threshold_events WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *Postgres) ListEvents(ctx context.Context, userID int64) ([]*model.ThresholdEvent, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, user_id, rule_id, window_type, game_name, triggered_at
		 FROM threshold_events WHERE user_id = $1 ORDER BY triggered_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ThresholdEvent
	for rows.Next() {
		e := &model.ThresholdEvent{}
		var window string
		var game sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.RuleID, &window, &game, &e.FiredAt); err != nil {
			return nil, err
		}
		e.Window = model.Window(window)
		e.DedupGame = game.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) EventActionCounts(ctx context.Context, userID int64) (int, int, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT tr.action, COUNT(*)
		 FROM threshold_events te
		 JOIN threshold_rules tr ON te.rule_id = tr.id
		 WHERE te.user_id = $1
		 GROUP BY tr.action`,
		userID,
	)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()
	var warns, timeouts int
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return 0, 0, err
		}
		switch model.Action(action) {
		case model.ActionWarn:
			warns = n
		case model.ActionTimeout:
			timeouts = n
		}
	}
	return warns, timeouts, rows.Err()
}

func (p *Postgres) ProactiveSent(ctx context.Context, userID, ruleID int64, since time.Time, dedupGame string) (bool, error) {
	var n int
	var err error
	if dedupGame == "" {
		err = p.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM proactive_warnings
			 WHERE user_id = $1 AND rule_id = $2 AND warned_at >= $3 AND game_name IS NULL`,
			userID, ruleID, since,
		).Scan(&n)
	} else {
		err = p.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM proactive_warnings
			 WHERE user_id = $1 AND rule_id = $2 AND warned_at >= $3 AND LOWER(game_name) = LOWER($4)`,
			userID, ruleID, since, dedupGame,
		).Scan(&n)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	return n > 0, nil
}

func (p *Postgres) RecordProactive(ctx context.Context, userID, ruleID int64, window model.Window, dedupGame string, at time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO proactive_warnings (user_id, rule_id, window_type, game_name, warned_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, ruleID, string(window), nullableGame(dedupGame), at,
	)
	return err
}

func (p *Postgres) ClearProactive(ctx context.Context, userID int64) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM proactive_warnings WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *Postgres) ListProactive(ctx context.Context, userID int64) ([]*model.ProactiveWarning, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, user_id, rule_id, window_type, game_name, warned_at
		 FROM proactive_warnings WHERE user_id = $1 ORDER BY warned_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ProactiveWarning
	for rows.Next() {
		w := &model.ProactiveWarning{}
		var window string
		var game sql.NullString
		if err := rows.Scan(&w.ID, &w.UserID, &w.RuleID, &window, &game, &w.WarnedAt); err != nil {
			return nil, err
		}
		w.Window = model.Window(window)
		w.DedupGame = game.String
		out = append(out, w)
	}
	return out, rows.Err()
}

func nullableGame(game string) sql.NullString {
	if game == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: game, Valid: true}
}
