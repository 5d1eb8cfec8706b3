package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
	"github.com/Josperdo/mjolnir/internal/repository"
)

// AdminService executes the admin command surface: bot settings, the
// game registry and groups, rule and roast management, and the manual
// overrides. Every mutation that goes through here lands in the audit
// log; read-only lookups do not.
type AdminService struct {
	settings repository.SettingsRepository
	rules    repository.RuleRepository
	games    repository.GameRepository
	roasts   repository.RoastRepository
	audit    repository.AuditRepository
	userRepo repository.UserRepository
	users    *UserService
	stats    *StatsService
	log      *slog.Logger
	clock    func() time.Time
}

func NewAdminService(
	settings repository.SettingsRepository,
	rules repository.RuleRepository,
	games repository.GameRepository,
	roasts repository.RoastRepository,
	audit repository.AuditRepository,
	userRepo repository.UserRepository,
	users *UserService,
	stats *StatsService,
	log *slog.Logger,
) *AdminService {
	return &AdminService{
		settings: settings,
		rules:    rules,
		games:    games,
		roasts:   roasts,
		audit:    audit,
		userRepo: userRepo,
		users:    users,
		stats:    stats,
		log:      log,
		clock:    time.Now,
	}
}

// StatusReport is the hammer status view.
type StatusReport struct {
	Settings *model.Settings
	OptedIn  int
	Games    []*model.TrackedGame
	Rules    []*model.ThresholdRule
}

func (s *AdminService) Status(ctx context.Context) (*StatusReport, error) {
	cfg, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	optedIn, err := s.userRepo.ListOptedIn(ctx)
	if err != nil {
		return nil, err
	}
	games, err := s.games.ListTrackedGames(ctx)
	if err != nil {
		return nil, err
	}
	ruleList, err := s.rules.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	return &StatusReport{Settings: cfg, OptedIn: len(optedIn), Games: games, Rules: ruleList}, nil
}

// SetTracking flips the master switch. Returns false without touching
// anything when the switch is already in the requested position.
func (s *AdminService) SetTracking(ctx context.Context, adminID int64, enabled bool) (bool, error) {
	cfg, err := s.settings.GetSettings(ctx)
	if err != nil {
		return false, err
	}
	if cfg.TrackingEnabled == enabled {
		return false, nil
	}
	cfg.TrackingEnabled = enabled
	if err := s.settings.UpdateSettings(ctx, cfg); err != nil {
		return false, err
	}
	action := "tracking_off"
	if enabled {
		action = "tracking_on"
	}
	s.recordAudit(ctx, adminID, action, 0, "")
	return true, nil
}

func (s *AdminService) SetAnnouncementChannel(ctx context.Context, adminID, channelID int64) error {
	cfg, err := s.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	cfg.AnnouncementChannelID = channelID
	if err := s.settings.UpdateSettings(ctx, cfg); err != nil {
		return err
	}
	s.recordAudit(ctx, adminID, "set_channel", 0, fmt.Sprintf("channel %d", channelID))
	return nil
}

func (s *AdminService) SetSchedule(ctx context.Context, adminID int64, day, hour int) error {
	if day < 0 || day > 6 {
		return errors.New("recap day must be between 0 (Monday) and 6 (Sunday)")
	}
	if hour < 0 || hour > 23 {
		return errors.New("recap hour must be between 0 and 23")
	}
	cfg, err := s.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	cfg.WeeklyRecapDay = day
	cfg.WeeklyRecapHour = hour
	if err := s.settings.UpdateSettings(ctx, cfg); err != nil {
		return err
	}
	s.recordAudit(ctx, adminID, "set_schedule", 0, fmt.Sprintf("day %d, %02d:00 UTC", day, hour))
	return nil
}

func (s *AdminService) SetWarnFraction(ctx context.Context, adminID int64, pct float64) error {
	if pct < 0 || pct > 1 {
		return errors.New("warn fraction must be between 0 and 1")
	}
	cfg, err := s.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	cfg.WarnThresholdPct = pct
	if err := s.settings.UpdateSettings(ctx, cfg); err != nil {
		return err
	}
	s.recordAudit(ctx, adminID, "set_warn_pct", 0, fmt.Sprintf("%g", pct))
	return nil
}

func (s *AdminService) SetCooldown(ctx context.Context, adminID int64, days int) error {
	if days < 0 {
		return errors.New("cooldown days cannot be negative")
	}
	cfg, err := s.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	cfg.CooldownDays = days
	if err := s.settings.UpdateSettings(ctx, cfg); err != nil {
		return err
	}
	s.recordAudit(ctx, adminID, "set_cooldown", 0, fmt.Sprintf("%d days", days))
	return nil
}

func (s *AdminService) Rules(ctx context.Context) ([]*model.ThresholdRule, error) {
	return s.rules.ListRules(ctx)
}

// AddRule validates and stores a new threshold rule.
func (s *AdminService) AddRule(ctx context.Context, adminID int64, rule *model.ThresholdRule) (*model.ThresholdRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	added, err := s.rules.AddRule(ctx, rule)
	if err != nil {
		return nil, err
	}
	detail := fmt.Sprintf("#%d %s (%s, %s)", added.ID, added.Describe(), added.Window, added.Scope)
	s.recordAudit(ctx, adminID, "rule_add", 0, detail)
	return added, nil
}

func (s *AdminService) RemoveRule(ctx context.Context, adminID, ruleID int64) error {
	if err := s.rules.DeleteRule(ctx, ruleID); err != nil {
		return err
	}
	s.recordAudit(ctx, adminID, "rule_remove", 0, fmt.Sprintf("#%d", ruleID))
	return nil
}

func (s *AdminService) Games(ctx context.Context) ([]*model.TrackedGame, error) {
	return s.games.ListTrackedGames(ctx)
}

func (s *AdminService) AddGame(ctx context.Context, adminID int64, name string) (*model.TrackedGame, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("game name cannot be empty")
	}
	game, err := s.games.AddTrackedGame(ctx, name, s.clock())
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, adminID, "game_add", 0, game.Name)
	return game, nil
}

func (s *AdminService) RemoveGame(ctx context.Context, adminID int64, name string) error {
	if err := s.games.RemoveTrackedGame(ctx, name); err != nil {
		return err
	}
	s.recordAudit(ctx, adminID, "game_remove", 0, name)
	return nil
}

// SetGameEnabled pauses or resumes tracking for one game. Disabling
// keeps history; new sessions and Global evaluation skip the game.
func (s *AdminService) SetGameEnabled(ctx context.Context, adminID int64, name string, enabled bool) (string, error) {
	game, err := s.games.FindTrackedGame(ctx, name)
	if err != nil {
		return "", err
	}
	if err := s.games.SetGameEnabled(ctx, game.Name, enabled); err != nil {
		return "", err
	}
	action := "game_disable"
	if enabled {
		action = "game_enable"
	}
	s.recordAudit(ctx, adminID, action, 0, game.Name)
	return game.Name, nil
}

func (s *AdminService) Groups(ctx context.Context) ([]*model.GameGroup, error) {
	return s.games.ListGroups(ctx)
}

func (s *AdminService) CreateGroup(ctx context.Context, adminID int64, name string) (*model.GameGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("group name cannot be empty")
	}
	group, err := s.games.CreateGroup(ctx, name, s.clock())
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, adminID, "group_create", 0, fmt.Sprintf("#%d %s", group.ID, group.Name))
	return group, nil
}

func (s *AdminService) DeleteGroup(ctx context.Context, adminID, groupID int64) error {
	if err := s.games.DeleteGroup(ctx, groupID); err != nil {
		return err
	}
	s.recordAudit(ctx, adminID, "group_delete", 0, fmt.Sprintf("#%d", groupID))
	return nil
}

// AddGameToGroup stores membership under the registry's canonical
// name. The bool is false when the game was already a member.
func (s *AdminService) AddGameToGroup(ctx context.Context, adminID, groupID int64, game string) (string, bool, error) {
	tracked, err := s.games.FindTrackedGame(ctx, game)
	if err != nil {
		return "", false, err
	}
	added, err := s.games.AddGameToGroup(ctx, groupID, tracked.Name)
	if err != nil {
		return "", false, err
	}
	if added {
		s.recordAudit(ctx, adminID, "group_add_game", 0, fmt.Sprintf("%s -> #%d", tracked.Name, groupID))
	}
	return tracked.Name, added, nil
}

func (s *AdminService) RemoveGameFromGroup(ctx context.Context, adminID, groupID int64, game string) error {
	if err := s.games.RemoveGameFromGroup(ctx, groupID, game); err != nil {
		return err
	}
	s.recordAudit(ctx, adminID, "group_remove_game", 0, fmt.Sprintf("%s <- #%d", game, groupID))
	return nil
}

func (s *AdminService) Roasts(ctx context.Context) ([]*model.Roast, error) {
	return s.roasts.ListRoasts(ctx, "")
}

func (s *AdminService) AddRoast(ctx context.Context, adminID int64, action model.Action, message string) (*model.Roast, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("unknown roast action %q", action)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New("roast message cannot be empty")
	}
	roast, err := s.roasts.AddRoast(ctx, action, message)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, adminID, "roast_add", 0, fmt.Sprintf("#%d (%s)", roast.ID, action))
	return roast, nil
}

func (s *AdminService) RemoveRoast(ctx context.Context, adminID, roastID int64) error {
	if err := s.roasts.DeleteRoast(ctx, roastID); err != nil {
		return err
	}
	s.recordAudit(ctx, adminID, "roast_remove", 0, fmt.Sprintf("#%d", roastID))
	return nil
}

// Pardon lifts a user's timeout early.
func (s *AdminService) Pardon(ctx context.Context, adminID, userID int64) error {
	if err := s.users.Pardon(ctx, userID, adminID); err != nil {
		return err
	}
	s.recordAudit(ctx, adminID, "pardon", userID, "Timeout removed early")
	return nil
}

// ToggleExempt flips tracking exemption and reports the new state.
func (s *AdminService) ToggleExempt(ctx context.Context, adminID, userID int64) (bool, error) {
	exempt, err := s.users.ToggleExempt(ctx, userID)
	if err != nil {
		return false, err
	}
	action := "unexempt"
	if exempt {
		action = "exempt"
	}
	s.recordAudit(ctx, adminID, action, userID, "")
	return exempt, nil
}

// ResetPlaytime wipes a user's sessions and threshold events.
func (s *AdminService) ResetPlaytime(ctx context.Context, adminID, userID int64) (sessions, events int64, err error) {
	sessions, events, err = s.stats.ResetPlaytime(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	detail := fmt.Sprintf("Deleted %d sessions, %d events", sessions, events)
	s.recordAudit(ctx, adminID, "reset_playtime", userID, detail)
	return sessions, events, nil
}

// Forget erases every trace of a user on their deletion request.
func (s *AdminService) Forget(ctx context.Context, adminID, userID int64) (*model.DeletionReport, error) {
	report, err := s.stats.Forget(ctx, userID)
	if err != nil {
		return nil, err
	}
	detail := fmt.Sprintf("Deleted %d sessions, %d events, %d warnings", report.Sessions, report.Events, report.Warnings)
	s.recordAudit(ctx, adminID, "data_deletion", userID, detail)
	return report, nil
}

// RecentAudit returns the newest entries, default 10, capped at 25.
func (s *AdminService) RecentAudit(ctx context.Context, count int) ([]*model.AuditEntry, error) {
	if count <= 0 {
		count = 10
	}
	if count > 25 {
		count = 25
	}
	return s.audit.RecentAudit(ctx, count)
}

// recordAudit is best effort: a failed audit write never rolls back
// the action it describes.
func (s *AdminService) recordAudit(ctx context.Context, adminID int64, action string, targetID int64, details string) {
	if err := s.audit.RecordAudit(ctx, action, adminID, targetID, details, s.clock()); err != nil {
		s.log.Warn("audit write failed", "action", action, "error", err)
	}
}
