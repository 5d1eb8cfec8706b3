package service

import (
	"context"
	"strings"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
	"github.com/Josperdo/mjolnir/internal/repository"
)

// PlaytimeService computes aggregate hours over a window. It is
// scope-agnostic: callers say which game or group they care about.
type PlaytimeService struct {
	sessions repository.SessionRepository
	games    repository.GameRepository
	clock    func() time.Time
}

func NewPlaytimeService(sessions repository.SessionRepository, games repository.GameRepository) *PlaytimeService {
	return &PlaytimeService{sessions: sessions, games: games, clock: time.Now}
}

// ForGame returns hours played in one game inside the window. For the
// session window it is the duration of the just-completed session when
// its game matches, and zero otherwise.
func (s *PlaytimeService) ForGame(ctx context.Context, userID int64, game string, window model.Window, completed *model.PlaySession) (float64, error) {
	cutoff, ok := window.Cutoff(s.clock())
	if !ok {
		if completed != nil && strings.EqualFold(completed.GameName, game) {
			return completed.Hours(), nil
		}
		return 0, nil
	}
	return s.sessions.SumHours(ctx, userID, []string{game}, cutoff)
}

// ForGroup returns combined hours across every game currently in the
// group inside the window.
func (s *PlaytimeService) ForGroup(ctx context.Context, userID int64, groupID int64, window model.Window, completed *model.PlaySession) (float64, error) {
	members, err := s.games.GroupMembers(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}
	cutoff, ok := window.Cutoff(s.clock())
	if !ok {
		if completed == nil {
			return 0, nil
		}
		for _, m := range members {
			if strings.EqualFold(completed.GameName, m) {
				return completed.Hours(), nil
			}
		}
		return 0, nil
	}
	return s.sessions.SumHours(ctx, userID, members, cutoff)
}

// AllGames returns hours across every game inside the window.
func (s *PlaytimeService) AllGames(ctx context.Context, userID int64, window model.Window, completed *model.PlaySession) (float64, error) {
	cutoff, ok := window.Cutoff(s.clock())
	if !ok {
		if completed != nil {
			return completed.Hours(), nil
		}
		return 0, nil
	}
	return s.sessions.SumHours(ctx, userID, nil, cutoff)
}
