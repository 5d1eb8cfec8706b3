package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Josperdo/mjolnir/internal/repository"
)

// TrackerService converts raw activity transitions into bounded play
// sessions and hands each closed session to the watcher.
type TrackerService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	games    repository.GameRepository
	settings repository.SettingsRepository
	watcher  *WatcherService
	log      *slog.Logger
	clock    func() time.Time
}

func NewTrackerService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	games repository.GameRepository,
	settings repository.SettingsRepository,
	watcher *WatcherService,
	log *slog.Logger,
) *TrackerService {
	return &TrackerService{
		users:    users,
		sessions: sessions,
		games:    games,
		settings: settings,
		watcher:  watcher,
		log:      log,
		clock:    time.Now,
	}
}

// HandleActivityStart opens a session when the activity maps to a
// tracked game the user has not excluded. Starting an already-started
// game is a no-op.
func (s *TrackerService) HandleActivityStart(ctx context.Context, userID int64, activity string) error {
	game, err := s.eligible(ctx, userID, activity)
	if err != nil || game == "" {
		return err
	}
	_, err = s.sessions.ActiveSession(ctx, userID, game)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	sess, err := s.sessions.OpenSession(ctx, userID, game, s.clock())
	if err != nil {
		return err
	}
	s.log.Info("session started", "user_id", userID, "game", game, "session_id", sess.ID)
	return nil
}

// HandleActivityStop closes the matching open session and runs the
// threshold check. A stop with no matching start is a no-op.
func (s *TrackerService) HandleActivityStop(ctx context.Context, userID int64, activity string) error {
	game, err := s.eligible(ctx, userID, activity)
	if err != nil || game == "" {
		return err
	}
	open, err := s.sessions.ActiveSession(ctx, userID, game)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	closed, err := s.sessions.CloseSession(ctx, open.ID, s.clock())
	if err != nil {
		return err
	}
	s.log.Info("session closed", "user_id", userID, "game", game,
		"hours", closed.Hours(), "session_id", closed.ID)
	return s.watcher.CheckThresholds(ctx, userID, closed)
}

// eligible applies the tracking gates in order: global switch, opt-in
// and exemption, registry match, per-user exclusion. An empty game
// means the transition is dropped.
func (s *TrackerService) eligible(ctx context.Context, userID int64, activity string) (string, error) {
	cfg, err := s.settings.GetSettings(ctx)
	if err != nil {
		return "", err
	}
	if !cfg.TrackingEnabled {
		return "", nil
	}
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !user.OptedIn || user.Exempt {
		return "", nil
	}
	game, err := s.resolveGame(ctx, activity)
	if err != nil || game == "" {
		return "", err
	}
	excluded, err := s.games.IsExcluded(ctx, userID, game)
	if err != nil {
		return "", err
	}
	if excluded {
		return "", nil
	}
	return game, nil
}

// resolveGame maps a reported activity name to the registry. A tracked
// name matches when it appears case-insensitively inside the activity.
func (s *TrackerService) resolveGame(ctx context.Context, activity string) (string, error) {
	if activity == "" {
		return "", nil
	}
	tracked, err := s.games.ListTrackedGames(ctx)
	if err != nil {
		return "", err
	}
	lower := strings.ToLower(activity)
	for _, g := range tracked {
		if !g.Enabled {
			continue
		}
		if strings.Contains(lower, strings.ToLower(g.Name)) {
			return g.Name, nil
		}
	}
	return "", nil
}
