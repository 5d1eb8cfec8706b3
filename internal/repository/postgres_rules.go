package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"

	"github.com/Josperdo/mjolnir/internal/model"
)

var _ RuleRepository = (*Postgres)(nil)

func (p *Postgres) ListRules(ctx context.Context) ([]*model.ThresholdRule, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, hours, action, duration_hours, window_type, game_name, group_id
		 FROM threshold_rules ORDER BY window_type, hours`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ThresholdRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) GetRule(ctx context.Context, id int64) (*model.ThresholdRule, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, hours, action, duration_hours, window_type, game_name, group_id
		 FROM threshold_rules WHERE id = $1`,
		id,
	)
	return scanRule(row)
}

func (p *Postgres) AddRule(ctx context.Context, rule *model.ThresholdRule) (*model.ThresholdRule, error) {
	var game sql.NullString
	var group sql.NullInt64
	switch rule.Scope.Kind {
	case model.ScopeGame:
		game = sql.NullString{String: rule.Scope.Game, Valid: true}
	case model.ScopeGroup:
		group = sql.NullInt64{Int64: rule.Scope.GroupID, Valid: true}
	}
	var duration sql.NullInt32
	if rule.Action == model.ActionTimeout {
		duration = sql.NullInt32{Int32: int32(rule.DurationHours), Valid: true}
	}
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO threshold_rules (hours, action, duration_hours, window_type, game_name, group_id)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		rule.Hours, string(rule.Action), duration, string(rule.Window), game, group,
	).Scan(&rule.ID)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (p *Postgres) DeleteRule(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM threshold_rules WHERE id = $1`, id)
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

func scanRule(row rowScanner) (*model.ThresholdRule, error) {
	r := &model.ThresholdRule{}
	var action, window string
	var duration sql.NullInt32
	var game sql.NullString
	var group sql.NullInt64
	err := row.Scan(&r.ID, &r.Hours, &action, &duration, &window, &game, &group)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, os.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	r.Action = model.Action(action)
	r.Window = model.Window(window)
	if duration.Valid {
		r.DurationHours = int(duration.Int32)
	}
	switch {
	case game.Valid:
		r.Scope = model.GameScope(game.String)
	case group.Valid:
		r.Scope = model.GroupScope(group.Int64)
	default:
		r.Scope = model.GlobalScope()
	}
	return r, nil
}
