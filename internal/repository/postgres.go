package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres implements every repository interface on one database/sql
// handle using the pgx stdlib driver.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the connection and ensures the schema and seed
// data exist.
func NewPostgres(connStr string) (*Postgres, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, err
	}
	p := &Postgres{db: db}
	if err := p.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return p, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			opted_in BOOLEAN NOT NULL DEFAULT FALSE,
			exempt BOOLEAN NOT NULL DEFAULT FALSE,
			leaderboard_visible BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS play_sessions (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL,
			game_name TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ,
			duration_seconds BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_time
			ON play_sessions (user_id, start_time)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INT PRIMARY KEY CHECK (id = 1),
			tracking_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			announcement_channel_id BIGINT,
			warning_threshold_pct DOUBLE PRECISION NOT NULL DEFAULT 0.9,
			cooldown_days INT NOT NULL DEFAULT 3,
			weekly_recap_day INT NOT NULL DEFAULT 0,
			weekly_recap_hour INT NOT NULL DEFAULT 9,
			last_weekly_recap_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS threshold_rules (
			id BIGSERIAL PRIMARY KEY,
			hours DOUBLE PRECISION NOT NULL,
			action TEXT NOT NULL DEFAULT 'warn',
			duration_hours INT,
			window_type TEXT NOT NULL DEFAULT 'rolling_7d',
			game_name TEXT,
			group_id BIGINT,
			CHECK (game_name IS NULL OR group_id IS NULL)
		)`,
		`CREATE TABLE IF NOT EXISTS threshold_events (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			rule_id BIGINT NOT NULL,
			window_type TEXT NOT NULL,
			game_name TEXT,
			triggered_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_threshold_events_user_rule
			ON threshold_events (user_id, rule_id, triggered_at)`,
		`CREATE TABLE IF NOT EXISTS proactive_warnings (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			rule_id BIGINT NOT NULL,
			window_type TEXT NOT NULL,
			game_name TEXT,
			warned_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_proactive_warnings_user_rule
			ON proactive_warnings (user_id, rule_id, warned_at)`,
		`CREATE TABLE IF NOT EXISTS tracked_games (
			id BIGSERIAL PRIMARY KEY,
			game_name TEXT NOT NULL UNIQUE,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			added_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS game_groups (
			id BIGSERIAL PRIMARY KEY,
			group_name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS game_group_members (
			group_id BIGINT NOT NULL REFERENCES game_groups(id) ON DELETE CASCADE,
			game_name TEXT NOT NULL,
			PRIMARY KEY (group_id, game_name)
		)`,
		`CREATE TABLE IF NOT EXISTS user_game_exclusions (
			user_id BIGINT NOT NULL,
			game_name TEXT NOT NULL,
			PRIMARY KEY (user_id, game_name)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id BIGSERIAL PRIMARY KEY,
			admin_id BIGINT NOT NULL,
			action_type TEXT NOT NULL,
			target_user_id BIGINT,
			details TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS custom_roasts (
			id BIGSERIAL PRIMARY KEY,
			action TEXT NOT NULL,
			message TEXT NOT NULL
		)`,
		`INSERT INTO settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.Exec(stmt); err != nil {
			return err
		}
	}
	return p.seedRules()
}

// seedRules installs the default escalation ladder the first time the
// bot runs against an empty database.
func (p *Postgres) seedRules() error {
	var n int
	if err := p.db.QueryRow(`SELECT COUNT(*) FROM threshold_rules`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	seed := []struct {
		hours    float64
		action   string
		duration sql.NullInt32
	}{
		{10, "warn", sql.NullInt32{}},
		{15, "timeout", sql.NullInt32{Int32: 1, Valid: true}},
		{20, "timeout", sql.NullInt32{Int32: 6, Valid: true}},
		{30, "timeout", sql.NullInt32{Int32: 24, Valid: true}},
	}
	for _, s := range seed {
		_, err := p.db.Exec(
			`INSERT INTO threshold_rules (hours, action, duration_hours, window_type) VALUES ($1, $2, $3, 'rolling_7d')`,
			s.hours, s.action, s.duration,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
