package model

import "time"

// DayHours is one day's total playtime, keyed by the UTC date label.
type DayHours struct {
	Day   string  `json:"day"`
	Hours float64 `json:"hours"`
}

// SessionStats summarizes a user's completed sessions in a window.
type SessionStats struct {
	Count        int     `json:"session_count"`
	LongestHours float64 `json:"longest_session_hours"`
	AvgHours     float64 `json:"avg_session_hours"`
}

// LeaderboardEntry is one row of a playtime leaderboard. Hours carries
// the ranked value for the hours and longest-session boards; Sessions
// carries it for the session-count board.
type LeaderboardEntry struct {
	UserID   int64   `json:"user_id"`
	Hours    float64 `json:"hours,omitempty"`
	Sessions int     `json:"sessions,omitempty"`
}

// WeeklySummary covers one calendar week (Monday to Monday, UTC).
type WeeklySummary struct {
	TotalHours   float64     `json:"total_hours"`
	SessionCount int         `json:"session_count"`
	LongestHours float64     `json:"longest_session_hours"`
	BusiestDay   string      `json:"busiest_day,omitempty"`
	PerGame      []GameHours `json:"per_game,omitempty"`
}

// GameHours is a per-game slice of a playtime total.
type GameHours struct {
	Game  string  `json:"game"`
	Hours float64 `json:"hours"`
}

// UserExport is the full data bundle returned for a data-export request.
type UserExport struct {
	ExportedAt time.Time           `json:"exported_at"`
	User       *User               `json:"user,omitempty"`
	Sessions   []*PlaySession      `json:"play_sessions"`
	Events     []*ThresholdEvent   `json:"threshold_events"`
	Warnings   []*ProactiveWarning `json:"proactive_warnings"`
	Exclusions []string            `json:"excluded_games,omitempty"`
}

// DeletionReport counts the rows removed by a data-deletion request.
type DeletionReport struct {
	Sessions int64 `json:"sessions_deleted"`
	Events   int64 `json:"events_deleted"`
	Warnings int64 `json:"warnings_deleted"`
}

// WindowStanding is a user's position against the rules of one window:
// current playtime, the next unreached rule and what remains until it.
type WindowStanding struct {
	Window    Window
	Playtime  float64
	BarCap    float64
	Next      *ThresholdRule
	Remaining float64
	Pending   []*ThresholdRule
}

// UserStats is the personal stats view: per-window standings plus the
// daily breakdown and lifetime consequence counts.
type UserStats struct {
	Windows     []WindowStanding
	ActiveHours float64
	Daily       []DayHours
	Sessions    *SessionStats
	Warns       int
	Timeouts    int
}

// Leaderboards bundles the three public rankings.
type Leaderboards struct {
	MostHours      []LeaderboardEntry
	LongestSession []LeaderboardEntry
	MostSessions   []LeaderboardEntry
}
