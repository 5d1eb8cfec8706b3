package repository

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
)

var (
	_ AuditRepository = (*Postgres)(nil)
	_ RoastRepository = (*Postgres)(nil)
)

func (p *Postgres) RecordAudit(ctx context.Context, action string, actorID, targetID int64, details string, now time.Time) error {
	var target sql.NullInt64
	if targetID != 0 {
		target = sql.NullInt64{Int64: targetID, Valid: true}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO audit_log (action_type, admin_id, target_user_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		action, actorID, target, details, now,
	)
	return err
}

func (p *Postgres) RecentAudit(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, action_type, admin_id, target_user_id, details, created_at
		 FROM audit_log ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.AuditEntry
	for rows.Next() {
		e := &model.AuditEntry{}
		var target sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &target, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if target.Valid {
			e.TargetID = target.Int64
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) ListRoasts(ctx context.Context, action model.Action) ([]*model.Roast, error) {
	query := `SELECT id, action, message FROM custom_roasts ORDER BY id`
	args := []any{}
	if action != "" {
		query = `SELECT id, action, message FROM custom_roasts WHERE action = $1 ORDER BY id`
		args = append(args, string(action))
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Roast
	for rows.Next() {
		r := &model.Roast{}
		if err := rows.Scan(&r.ID, &r.Action, &r.Message); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) AddRoast(ctx context.Context, action model.Action, message string) (*model.Roast, error) {
	r := &model.Roast{Action: action, Message: message}
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO custom_roasts (action, message) VALUES ($1, $2) RETURNING id`,
		string(action), message,
	).Scan(&r.ID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (p *Postgres) DeleteRoast(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM custom_roasts WHERE id = $1`, id)
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
