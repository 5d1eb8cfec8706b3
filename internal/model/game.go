package model

import "time"

// TrackedGame is an entry in the registry of games the bot watches.
// Disabling keeps history but stops new sessions and evaluation.
type TrackedGame struct {
	ID      int64     `json:"id"`
	Name    string    `json:"game_name"`
	Enabled bool      `json:"enabled"`
	AddedAt time.Time `json:"added_at"`
}

// GameGroup combines several games under one playtime budget.
// Membership can change over the group's lifetime without touching
// past sessions.
type GameGroup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"group_name"`
	Members   []string  `json:"members,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
