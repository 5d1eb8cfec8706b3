package repository

import (
	"context"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
)

// UserRepository abstracts storage of guild members known to the bot.
// Users are created lazily on their first opt-in, exemption or
// exclusion change.
type UserRepository interface {
	// GetUser fetches a user. os.ErrNotExist when unknown.
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	// EnsureUser returns the user, creating a non-opted-in row first
	// when none exists.
	EnsureUser(ctx context.Context, userID int64, now time.Time) (*model.User, error)
	// SetOptedIn flips the opt-in flag, creating the user if needed.
	SetOptedIn(ctx context.Context, userID int64, optedIn bool, now time.Time) error
	// SetExempt flips the exemption flag, creating the user if needed.
	SetExempt(ctx context.Context, userID int64, exempt bool, now time.Time) error
	// SetLeaderboardVisible flips leaderboard visibility.
	SetLeaderboardVisible(ctx context.Context, userID int64, visible bool, now time.Time) error
	// ListOptedIn returns every opted-in user.
	ListOptedIn(ctx context.Context) ([]*model.User, error)
	// DeleteUser removes the user row itself.
	DeleteUser(ctx context.Context, userID int64) error
}
