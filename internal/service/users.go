package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Josperdo/mjolnir/internal/repository"
)

// UserService manages tracking preferences and manual overrides.
type UserService struct {
	users repository.UserRepository
	games repository.GameRepository
	mod   Moderator
	clock func() time.Time
}

func NewUserService(users repository.UserRepository, games repository.GameRepository, mod Moderator) *UserService {
	return &UserService{users: users, games: games, mod: mod, clock: time.Now}
}

// OptIn enables tracking, creating the user on first contact.
func (s *UserService) OptIn(ctx context.Context, userID int64) error {
	return s.users.SetOptedIn(ctx, userID, true, s.clock())
}

// OptOut stops new sessions; existing history stays.
func (s *UserService) OptOut(ctx context.Context, userID int64) error {
	return s.users.SetOptedIn(ctx, userID, false, s.clock())
}

// ToggleExempt flips exemption and reports the new state. Unknown
// users count as not exempt, so the first toggle always exempts.
func (s *UserService) ToggleExempt(ctx context.Context, userID int64) (bool, error) {
	current := false
	user, err := s.users.GetUser(ctx, userID)
	switch {
	case err == nil:
		current = user.Exempt
	case !errors.Is(err, os.ErrNotExist):
		return false, err
	}
	next := !current
	if err := s.users.SetExempt(ctx, userID, next, s.clock()); err != nil {
		return false, err
	}
	return next, nil
}

func (s *UserService) SetLeaderboardVisible(ctx context.Context, userID int64, visible bool) error {
	return s.users.SetLeaderboardVisible(ctx, userID, visible, s.clock())
}

// SetGameExcluded stores a per-game opt-out under the registry's
// canonical name. os.ErrNotExist when the game is not tracked.
func (s *UserService) SetGameExcluded(ctx context.Context, userID int64, game string, excluded bool) (string, error) {
	tracked, err := s.games.FindTrackedGame(ctx, game)
	if err != nil {
		return "", err
	}
	if _, err := s.users.EnsureUser(ctx, userID, s.clock()); err != nil {
		return "", err
	}
	if err := s.games.SetExcluded(ctx, userID, tracked.Name, excluded); err != nil {
		return "", err
	}
	return tracked.Name, nil
}

func (s *UserService) Exclusions(ctx context.Context, userID int64) ([]string, error) {
	return s.games.ListExclusions(ctx, userID)
}

// Pardon lifts an active timeout early.
func (s *UserService) Pardon(ctx context.Context, userID, adminID int64) error {
	return s.mod.ClearTimeout(ctx, userID, fmt.Sprintf("Pardoned by admin %d", adminID))
}
