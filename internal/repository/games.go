package repository

import (
	"context"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
)

// GameRepository abstracts the tracked-game registry, game groups and
// per-user game exclusions. Game name matching is case-insensitive
// throughout.
type GameRepository interface {
	// ListTrackedGames returns the full registry, enabled or not.
	ListTrackedGames(ctx context.Context) ([]*model.TrackedGame, error)
	// FindTrackedGame resolves a reported activity name to a registry
	// entry. os.ErrNotExist when the game is not tracked.
	FindTrackedGame(ctx context.Context, name string) (*model.TrackedGame, error)
	// AddTrackedGame registers a game, returning the existing row on
	// duplicate names.
	AddTrackedGame(ctx context.Context, name string, now time.Time) (*model.TrackedGame, error)
	// RemoveTrackedGame deletes a registry entry. os.ErrNotExist when
	// no row matched. Past sessions are kept.
	RemoveTrackedGame(ctx context.Context, name string) error
	// SetGameEnabled toggles tracking for one game.
	SetGameEnabled(ctx context.Context, name string, enabled bool) error

	// ListGroups returns all groups with their member lists.
	ListGroups(ctx context.Context) ([]*model.GameGroup, error)
	// GetGroup fetches one group with members. os.ErrNotExist when missing.
	GetGroup(ctx context.Context, id int64) (*model.GameGroup, error)
	// CreateGroup adds an empty group.
	CreateGroup(ctx context.Context, name string, now time.Time) (*model.GameGroup, error)
	// DeleteGroup removes a group and its membership rows.
	DeleteGroup(ctx context.Context, id int64) error
	// AddGameToGroup returns false when the game was already a member.
	AddGameToGroup(ctx context.Context, groupID int64, game string) (bool, error)
	// RemoveGameFromGroup removes one membership row.
	RemoveGameFromGroup(ctx context.Context, groupID int64, game string) error
	// GroupMembers returns the games currently in a group.
	GroupMembers(ctx context.Context, groupID int64) ([]string, error)
	// GroupsContaining returns ids of groups that include the game.
	GroupsContaining(ctx context.Context, game string) ([]int64, error)

	// IsExcluded reports a per-user per-game opt-out.
	IsExcluded(ctx context.Context, userID int64, game string) (bool, error)
	// SetExcluded adds or removes an exclusion.
	SetExcluded(ctx context.Context, userID int64, game string, excluded bool) error
	// ListExclusions returns the games a user has excluded.
	ListExclusions(ctx context.Context, userID int64) ([]string, error)
}
