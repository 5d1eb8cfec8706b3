package repository

import (
	"context"
	"database/sql"

	"github.com/Josperdo/mjolnir/internal/model"
)

var _ SettingsRepository = (*Postgres)(nil)

func (p *Postgres) GetSettings(ctx context.Context) (*model.Settings, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT tracking_enabled, announcement_channel_id, warn_threshold_pct,
		        cooldown_days, weekly_recap_day, weekly_recap_hour, last_weekly_recap_at
		 FROM settings WHERE id = 1`,
	)
	s := &model.Settings{}
	var channel sql.NullInt64
	var recapAt sql.NullTime
	err := row.Scan(&s.TrackingEnabled, &channel, &s.WarnThresholdPct,
		&s.CooldownDays, &s.WeeklyRecapDay, &s.WeeklyRecapHour, &recapAt)
	if err != nil {
		return nil, err
	}
	if channel.Valid {
		s.AnnouncementChannelID = channel.Int64
	}
	if recapAt.Valid {
		t := recapAt.Time
		s.LastWeeklyRecapAt = &t
	}
	return s, nil
}

func (p *Postgres) UpdateSettings(ctx context.Context, s *model.Settings) error {
	var channel sql.NullInt64
	if s.AnnouncementChannelID != 0 {
		channel = sql.NullInt64{Int64: s.AnnouncementChannelID, Valid: true}
	}
	var recapAt sql.NullTime
	if s.LastWeeklyRecapAt != nil {
		recapAt = sql.NullTime{Time: *s.LastWeeklyRecapAt, Valid: true}
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE settings SET tracking_enabled = $1, announcement_channel_id = $2,
		        warn_threshold_pct = $3, cooldown_days = $4, weekly_recap_day = $5,
		        weekly_recap_hour = $6, last_weekly_recap_at = $7
		 WHERE id = 1`,
		s.TrackingEnabled, channel, s.WarnThresholdPct,
		s.CooldownDays, s.WeeklyRecapDay, s.WeeklyRecapHour, recapAt,
	)
	return err
}
