package model

import "time"

// Settings is the single mutable row of bot configuration. Every
// evaluation re-reads it; nothing caches it across events.
type Settings struct {
	TrackingEnabled bool `json:"tracking_enabled"`
	// AnnouncementChannelID is 0 when no public channel is configured.
	AnnouncementChannelID int64 `json:"announcement_channel_id"`
	// WarnThresholdPct is the proactive-warning trigger fraction.
	// 0 disables proactive warnings entirely.
	WarnThresholdPct float64 `json:"warning_threshold_pct"`
	CooldownDays     int     `json:"cooldown_days"`
	// WeeklyRecapDay is 0=Monday .. 6=Sunday; WeeklyRecapHour is UTC.
	WeeklyRecapDay    int        `json:"weekly_recap_day"`
	WeeklyRecapHour   int        `json:"weekly_recap_hour"`
	LastWeeklyRecapAt *time.Time `json:"last_weekly_recap_at,omitempty"`
}

// DefaultSettings are the values seeded into an empty database.
func DefaultSettings() *Settings {
	return &Settings{
		TrackingEnabled:  true,
		WarnThresholdPct: 0.9,
		CooldownDays:     3,
		WeeklyRecapDay:   0,
		WeeklyRecapHour:  9,
	}
}
