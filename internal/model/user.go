package model

import "time"

// User stores tracking preferences for a guild member.
type User struct {
	ID                 int64     `json:"user_id"`
	OptedIn            bool      `json:"opted_in"`
	Exempt             bool      `json:"exempt"`
	LeaderboardVisible bool      `json:"leaderboard_visible"`
	CreatedAt          time.Time `json:"created_at"`
}
