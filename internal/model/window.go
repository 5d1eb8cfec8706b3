package model

import "time"

// Window names the time span playtime is aggregated over for a rule.
type Window string

const (
	// WindowRolling7d sums completed sessions started in the last 7 days.
	WindowRolling7d Window = "rolling_7d"
	// WindowDaily sums completed sessions started in the last 24 hours.
	WindowDaily Window = "daily"
	// WindowWeekly sums completed sessions since Monday 00:00 UTC.
	WindowWeekly Window = "weekly"
	// WindowSession looks only at the single session being evaluated.
	WindowSession Window = "session"
)

// Windows lists every window in display order.
var Windows = []Window{WindowRolling7d, WindowDaily, WindowWeekly, WindowSession}

// Valid reports whether w is one of the known windows.
func (w Window) Valid() bool {
	switch w {
	case WindowRolling7d, WindowDaily, WindowWeekly, WindowSession:
		return true
	}
	return false
}

// Label returns the human-readable name used in messages.
func (w Window) Label() string {
	switch w {
	case WindowRolling7d:
		return "Rolling 7-Day"
	case WindowDaily:
		return "Daily (24h)"
	case WindowWeekly:
		return "Calendar Week"
	case WindowSession:
		return "Per Session"
	}
	return string(w)
}

// Cutoff returns the start of the window ending at now. The second
// return is false for WindowSession, which has no historical span.
func (w Window) Cutoff(now time.Time) (time.Time, bool) {
	switch w {
	case WindowRolling7d:
		return now.Add(-7 * 24 * time.Hour), true
	case WindowDaily:
		return now.Add(-24 * time.Hour), true
	case WindowWeekly:
		return StartOfWeek(now), true
	}
	return time.Time{}, false
}

// StartOfWeek returns the most recent Monday 00:00 UTC at or before now.
func StartOfWeek(now time.Time) time.Time {
	now = now.UTC()
	days := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -days)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}
