package model

import "time"

// AuditEntry is one append-only record of an administrative action.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action_type"`
	ActorID   int64     `json:"admin_id"`
	TargetID  int64     `json:"target_user_id,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Roast is a custom flavor-text line for warn or timeout notices.
// When no custom roasts exist for an action the built-in pool is used.
type Roast struct {
	ID      int64  `json:"id"`
	Action  Action `json:"action"`
	Message string `json:"message"`
}
