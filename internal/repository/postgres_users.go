package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
)

var _ UserRepository = (*Postgres)(nil)

func (p *Postgres) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT user_id, opted_in, exempt, leaderboard_visible, created_at
		 FROM users WHERE user_id = $1`,
		userID,
	)
	u := &model.User{}
	err := row.Scan(&u.ID, &u.OptedIn, &u.Exempt, &u.LeaderboardVisible, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, os.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (p *Postgres) EnsureUser(ctx context.Context, userID int64, now time.Time) (*model.User, error) {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (user_id, created_at) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, now,
	)
	if err != nil {
		return nil, err
	}
	return p.GetUser(ctx, userID)
}

func (p *Postgres) SetOptedIn(ctx context.Context, userID int64, optedIn bool, now time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (user_id, opted_in, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET opted_in = EXCLUDED.opted_in`,
		userID, optedIn, now,
	)
	return err
}

func (p *Postgres) SetExempt(ctx context.Context, userID int64, exempt bool, now time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (user_id, exempt, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET exempt = EXCLUDED.exempt`,
		userID, exempt, now,
	)
	return err
}

func (p *Postgres) SetLeaderboardVisible(ctx context.Context, userID int64, visible bool, now time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (user_id, leaderboard_visible, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET leaderboard_visible = EXCLUDED.leaderboard_visible`,
		userID, visible, now,
	)
	return err
}

func (p *Postgres) ListOptedIn(ctx context.Context) ([]*model.User, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT user_id, opted_in, exempt, leaderboard_visible, created_at
		 FROM users WHERE opted_in ORDER BY user_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.ID, &u.OptedIn, &u.Exempt, &u.LeaderboardVisible, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteUser(ctx context.Context, userID int64) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	return err
}
