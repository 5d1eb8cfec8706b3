package model

import (
	"errors"
	"fmt"
	"time"
)

// Action is what happens when a threshold rule is crossed.
type Action string

const (
	ActionWarn    Action = "warn"
	ActionTimeout Action = "timeout"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionWarn || a == ActionTimeout
}

// ScopeKind discriminates the three mutually exclusive rule scopes.
type ScopeKind int

const (
	// ScopeGlobal applies the rule to every enabled tracked game,
	// each game firing independently.
	ScopeGlobal ScopeKind = iota
	// ScopeGame applies the rule to a single named game.
	ScopeGame
	// ScopeGroup applies the rule to the combined playtime of a game group.
	ScopeGroup
)

// Scope says which games a rule covers. Exactly one interpretation is
// active, selected by Kind; the other fields are zero.
type Scope struct {
	Kind    ScopeKind `json:"kind"`
	Game    string    `json:"game,omitempty"`
	GroupID int64     `json:"group_id,omitempty"`
}

// GlobalScope covers all enabled tracked games individually.
func GlobalScope() Scope { return Scope{Kind: ScopeGlobal} }

// GameScope covers one named game, matched case-insensitively.
func GameScope(name string) Scope { return Scope{Kind: ScopeGame, Game: name} }

// GroupScope covers the combined playtime of one game group.
func GroupScope(id int64) Scope { return Scope{Kind: ScopeGroup, GroupID: id} }

func (s Scope) String() string {
	switch s.Kind {
	case ScopeGame:
		return fmt.Sprintf("game %q", s.Game)
	case ScopeGroup:
		return fmt.Sprintf("group #%d", s.GroupID)
	}
	return "all games"
}

// ThresholdRule fires an action once playtime in its window reaches Hours.
type ThresholdRule struct {
	ID            int64   `json:"id"`
	Hours         float64 `json:"hours"`
	Action        Action  `json:"action"`
	DurationHours int     `json:"duration_hours,omitempty"`
	Window        Window  `json:"window_type"`
	Scope         Scope   `json:"scope"`
}

// Validate rejects malformed rules at creation time so evaluation can
// assume every stored rule is well-formed.
func (r *ThresholdRule) Validate() error {
	if r.Hours <= 0 {
		return errors.New("rule hours must be greater than 0")
	}
	if !r.Action.Valid() {
		return fmt.Errorf("unknown rule action %q", r.Action)
	}
	if r.Action == ActionWarn && r.DurationHours != 0 {
		return errors.New("warn rules must not carry a timeout duration")
	}
	if r.Action == ActionTimeout && r.DurationHours <= 0 {
		return errors.New("timeout rules require a positive duration")
	}
	if !r.Window.Valid() {
		return fmt.Errorf("unknown window type %q", r.Window)
	}
	switch r.Scope.Kind {
	case ScopeGlobal:
		if r.Scope.Game != "" || r.Scope.GroupID != 0 {
			return errors.New("global rules must not name a game or group")
		}
	case ScopeGame:
		if r.Scope.Game == "" {
			return errors.New("game rules require a game name")
		}
		if r.Scope.GroupID != 0 {
			return errors.New("game rules must not reference a group")
		}
	case ScopeGroup:
		if r.Scope.GroupID <= 0 {
			return errors.New("group rules require a group id")
		}
		if r.Scope.Game != "" {
			return errors.New("group rules must not name a game")
		}
	default:
		return fmt.Errorf("unknown scope kind %d", r.Scope.Kind)
	}
	return nil
}

// Describe renders the rule the way admin replies show it.
func (r *ThresholdRule) Describe() string {
	if r.Action == ActionTimeout {
		return fmt.Sprintf("%gh = %dh timeout", r.Hours, r.DurationHours)
	}
	return fmt.Sprintf("%gh = warning", r.Hours)
}

// ThresholdEvent records that a rule fired for a user, for dedup.
// DedupGame is set only for global-scope rules so each tracked game
// fires independently; it is empty for game and group scoped rules.
type ThresholdEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	RuleID    int64     `json:"rule_id"`
	Window    Window    `json:"window_type"`
	DedupGame string    `json:"game_name,omitempty"`
	FiredAt   time.Time `json:"triggered_at"`
}

// ProactiveWarning records an approach notice, in a dedup namespace
// separate from ThresholdEvent.
type ProactiveWarning struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	RuleID    int64     `json:"rule_id"`
	Window    Window    `json:"window_type"`
	DedupGame string    `json:"game_name,omitempty"`
	WarnedAt  time.Time `json:"warned_at"`
}
