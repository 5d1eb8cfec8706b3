package model

import "time"

// PlaySession is one bounded stretch of activity in a tracked game.
// At most one session per (user, game) may be open at a time.
type PlaySession struct {
	ID              string     `json:"id"`
	UserID          int64      `json:"user_id"`
	GameName        string     `json:"game_name"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
}

// Open reports whether the session has not been closed yet.
func (s *PlaySession) Open() bool {
	return s.EndTime == nil
}

// Hours returns the closed duration in hours. Zero while open.
func (s *PlaySession) Hours() float64 {
	return float64(s.DurationSeconds) / 3600
}

// ElapsedHours returns hours since start for an open session,
// or the closed duration for a finished one.
func (s *PlaySession) ElapsedHours(now time.Time) float64 {
	if s.Open() {
		return now.Sub(s.StartTime).Hours()
	}
	return s.Hours()
}
