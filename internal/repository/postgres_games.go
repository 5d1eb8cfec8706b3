package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
)

var _ GameRepository = (*Postgres)(nil)

func (p *Postgres) ListTrackedGames(ctx context.Context) ([]*model.TrackedGame, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, game_name, enabled, added_at FROM tracked_games ORDER BY game_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.TrackedGame
	for rows.Next() {
		g := &model.TrackedGame{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Enabled, &g.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (p *Postgres) FindTrackedGame(ctx context.Context, name string) (*model.TrackedGame, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, game_name, enabled, added_at FROM tracked_games
		 WHERE LOWER(game_name) = LOWER($1)`,
		name,
	)
	g := &model.TrackedGame{}
	err := row.Scan(&g.ID, &g.Name, &g.Enabled, &g.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, os.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (p *Postgres) AddTrackedGame(ctx context.Context, name string, now time.Time) (*model.TrackedGame, error) {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO tracked_games (game_name, enabled, added_at) VALUES ($1, TRUE, $2)
		 ON CONFLICT (game_name) DO NOTHING`,
		name, now,
	)
	if err != nil {
		return nil, err
	}
	return p.FindTrackedGame(ctx, name)
}

func (p *Postgres) RemoveTrackedGame(ctx context.Context, name string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM tracked_games WHERE LOWER(game_name) = LOWER($1)`, name,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return os.ErrNotExist
	}
	return nil
}

func (p *Postgres) SetGameEnabled(ctx context.Context, name string, enabled bool) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE tracked_games SET enabled = $2 WHERE LOWER(game_name) = LOWER($1)`,
		name, enabled,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return os.ErrNotExist
	}
	return nil
}

func (p *Postgres) ListGroups(ctx context.Context) ([]*model.GameGroup, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, group_name, created_at FROM game_groups ORDER BY group_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.GameGroup
	for rows.Next() {
		g := &model.GameGroup{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, g := range out {
		members, err := p.GroupMembers(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		g.Members = members
	}
	return out, nil
}

func (p *Postgres) GetGroup(ctx context.Context, id int64) (*model.GameGroup, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, group_name, created_at FROM game_groups WHERE id = $1`, id,
	)
	g := &model.GameGroup{}
	err := row.Scan(&g.ID, &g.Name, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, os.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	g.Members, err = p.GroupMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (p *Postgres) CreateGroup(ctx context.Context, name string, now time.Time) (*model.GameGroup, error) {
	g := &model.GameGroup{Name: name, CreatedAt: now}
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO game_groups (group_name, created_at) VALUES ($1, $2) RETURNING id`,
		name, now,
	).Scan(&g.ID)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (p *Postgres) DeleteGroup(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM game_groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return os.ErrNotExist
	}
	return nil
}

func (p *Postgres) AddGameToGroup(ctx context.Context, groupID int64, game string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO game_group_members (group_id, game_name) VALUES ($1, $2)
		 ON CONFLICT (group_id, game_name) DO NOTHING`,
		groupID, game,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Postgres) RemoveGameFromGroup(ctx context.Context, groupID int64, game string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM game_group_members WHERE group_id = $1 AND LOWER(game_name) = LOWER($2)`,
		groupID, game,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return os.ErrNotExist
	}
	return nil
}

func (p *Postgres) GroupMembers(ctx context.Context, groupID int64) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT game_name FROM game_group_members WHERE group_id = $1 ORDER BY game_name`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (p *Postgres) GroupsContaining(ctx context.Context, game string) ([]int64, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT DISTINCT group_id FROM game_group_members WHERE LOWER(game_name) = LOWER($1)`,
		game,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (p *Postgres) IsExcluded(ctx context.Context, userID int64, game string) (bool, error) {
	var n int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_game_exclusions
		 WHERE user_id = $1 AND LOWER(game_name) = LOWER($2)`,
		userID, game,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Postgres) SetExcluded(ctx context.Context, userID int64, game string, excluded bool) error {
	if excluded {
		_, err := p.db.ExecContext(ctx,
			`INSERT INTO user_game_exclusions (user_id, game_name) VALUES ($1, $2)
			 ON CONFLICT (user_id, game_name) DO NOTHING`,
			userID, game,
		)
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM user_game_exclusions WHERE user_id = $1 AND LOWER(game_name) = LOWER($2)`,
		userID, game,
	)
	return err
}

func (p *Postgres) ListExclusions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT game_name FROM user_game_exclusions WHERE user_id = $1 ORDER BY game_name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
