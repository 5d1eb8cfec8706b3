package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
	"github.com/Josperdo/mjolnir/internal/repository"
	"github.com/Josperdo/mjolnir/internal/rules"
	"github.com/Josperdo/mjolnir/pkg/discord"
)

// Moderator applies and lifts guild timeouts.
type Moderator interface {
	TimeoutMember(ctx context.Context, userID int64, until time.Time, reason string) error
	ClearTimeout(ctx context.Context, userID int64, reason string) error
}

// Notifier delivers messages to a channel or a user's DMs.
type Notifier interface {
	SendChannelMessage(ctx context.Context, channelID int64, content string) error
	SendDM(ctx context.Context, userID int64, content string) error
}

// WatcherService evaluates threshold rules after each completed
// session: it records every newly-crossed rule, dispatches the single
// most severe consequence, and when nothing crossed nudges the user
// about the next rule they are approaching.
type WatcherService struct {
	settings repository.SettingsRepository
	rules    repository.RuleRepository
	ledger   repository.LedgerRepository
	games    repository.GameRepository
	roasts   repository.RoastRepository
	playtime *PlaytimeService
	mod      Moderator
	notifier Notifier
	log      *slog.Logger
	clock    func() time.Time
}

func NewWatcherService(
	settings repository.SettingsRepository,
	ruleRepo repository.RuleRepository,
	ledger repository.LedgerRepository,
	games repository.GameRepository,
	roasts repository.RoastRepository,
	playtime *PlaytimeService,
	mod Moderator,
	notifier Notifier,
	log *slog.Logger,
) *WatcherService {
	return &WatcherService{
		settings: settings,
		rules:    ruleRepo,
		ledger:   ledger,
		games:    games,
		roasts:   roasts,
		playtime: playtime,
		mod:      mod,
		notifier: notifier,
		log:      log,
		clock:    time.Now,
	}
}

// CheckThresholds runs the full evaluation for a user after a session
// completes. Rules are bucketed per scope: global rules see the
// finished game's own playtime and dedup per game, game rules see the
// same playtime, group rules see the combined playtime of the group.
// Every crossing is recorded before the single consequence dispatches.
func (s *WatcherService) CheckThresholds(ctx context.Context, userID int64, completed *model.PlaySession) error {
	cfg, err := s.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	all, err := s.rules.ListRules(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return nil
	}

	if err := s.applyCooldown(ctx, userID, cfg.CooldownDays); err != nil {
		return err
	}

	game := ""
	if completed != nil {
		game = completed.GameName
	}

	globalRules, gameRules := splitScopes(all, game)
	groupIDs, err := s.games.GroupsContaining(ctx, game)
	if err != nil {
		return err
	}

	var crossed []*model.ThresholdRule

	newly, err := s.crossedInBuckets(ctx, userID, globalRules, game, 0, completed, game)
	if err != nil {
		return err
	}
	crossed = append(crossed, newly...)

	newly, err = s.crossedInBuckets(ctx, userID, gameRules, game, 0, completed, "")
	if err != nil {
		return err
	}
	crossed = append(crossed, newly...)

	for _, groupID := range groupIDs {
		newly, err = s.crossedInBuckets(ctx, userID, rulesForGroup(all, groupID), "", groupID, completed, "")
		if err != nil {
			return err
		}
		crossed = append(crossed, newly...)
	}

	if len(crossed) == 0 {
		return s.checkProactive(ctx, userID, all, completed, cfg, game)
	}

	now := s.clock()
	for _, r := range crossed {
		dedup := ""
		if r.Scope.Kind == model.ScopeGlobal {
			dedup = game
		}
		if err := s.ledger.RecordFired(ctx, userID, r.ID, r.Window, dedup, now); err != nil {
			return err
		}
	}

	highest := rules.MostSevere(crossed)
	switch highest.Action {
	case model.ActionTimeout:
		s.applyTimeout(ctx, cfg, userID, highest, game)
	case model.ActionWarn:
		s.sendWarning(ctx, cfg, userID, highest, game)
	}
	return nil
}

func (s *WatcherService) crossedInBuckets(ctx context.Context, userID int64, bucket []*model.ThresholdRule, game string, groupID int64, completed *model.PlaySession, dedupGame string) ([]*model.ThresholdRule, error) {
	grouped := rules.GroupByWindow(bucket)
	var out []*model.ThresholdRule
	for _, window := range model.Windows {
		windowRules := grouped[window]
		if len(windowRules) == 0 {
			continue
		}
		playtime, err := s.bucketPlaytime(ctx, userID, game, groupID, window, completed)
		if err != nil {
			return nil, err
		}
		fired, err := s.firedSet(ctx, userID, window, dedupGame)
		if err != nil {
			return nil, err
		}
		out = append(out, rules.Crossed(windowRules, playtime, fired)...)
	}
	return out, nil
}

func (s *WatcherService) bucketPlaytime(ctx context.Context, userID int64, game string, groupID int64, window model.Window, completed *model.PlaySession) (float64, error) {
	if groupID != 0 {
		return s.playtime.ForGroup(ctx, userID, groupID, window, completed)
	}
	return s.playtime.ForGame(ctx, userID, game, window, completed)
}

// firedSet returns the rule ids already recorded in the window. The
// session window never dedups: each completed session may fire anew.
func (s *WatcherService) firedSet(ctx context.Context, userID int64, window model.Window, dedupGame string) (map[int64]bool, error) {
	cutoff, ok := window.Cutoff(s.clock())
	if !ok {
		return nil, nil
	}
	return s.ledger.FiredRuleIDs(ctx, userID, cutoff, dedupGame)
}

// applyCooldown clears the fired-rule ledger once the user has stayed
// clean for the full cooldown period. Proactive-warning records are
// left alone.
func (s *WatcherService) applyCooldown(ctx context.Context, userID int64, cooldownDays int) error {
	if cooldownDays <= 0 {
		return nil
	}
	last, err := s.ledger.LastFiredAt(ctx, userID)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	cutoff := s.clock().AddDate(0, 0, -cooldownDays)
	if !last.Before(cutoff) {
		return nil
	}
	cleared, err := s.ledger.ClearFired(ctx, userID)
	if err != nil {
		return err
	}
	if cleared > 0 {
		s.log.Info("cooldown cleared threshold events", "user_id", userID, "cleared", cleared)
	}
	return nil
}

func (s *WatcherService) checkProactive(ctx context.Context, userID int64, all []*model.ThresholdRule, completed *model.PlaySession, cfg *model.Settings, game string) error {
	pct := cfg.WarnThresholdPct
	if pct <= 0 {
		return nil
	}

	globalRules, gameRules := splitScopes(all, game)
	groupIDs, err := s.games.GroupsContaining(ctx, game)
	if err != nil {
		return err
	}

	if err := s.warnForScope(ctx, userID, globalRules, game, 0, completed, pct, game); err != nil {
		return err
	}
	if err := s.warnForScope(ctx, userID, gameRules, game, 0, completed, pct, ""); err != nil {
		return err
	}
	for _, groupID := range groupIDs {
		if err := s.warnForScope(ctx, userID, rulesForGroup(all, groupID), "", groupID, completed, pct, ""); err != nil {
			return err
		}
	}
	return nil
}

// warnForScope nudges about at most one upcoming rule per window.
func (s *WatcherService) warnForScope(ctx context.Context, userID int64, bucket []*model.ThresholdRule, game string, groupID int64, completed *model.PlaySession, pct float64, dedupGame string) error {
	grouped := rules.GroupByWindow(bucket)
	for _, window := range model.Windows {
		windowRules := grouped[window]
		if len(windowRules) == 0 {
			continue
		}
		playtime, err := s.bucketPlaytime(ctx, userID, game, groupID, window, completed)
		if err != nil {
			return err
		}
		rules.SortByHours(windowRules)
		candidate := rules.Upcoming(windowRules, playtime, pct)
		if candidate == nil {
			continue
		}
		sent := false
		if cutoff, ok := window.Cutoff(s.clock()); ok {
			sent, err = s.ledger.ProactiveSent(ctx, userID, candidate.ID, cutoff, dedupGame)
			if err != nil {
				return err
			}
		}
		if sent {
			continue
		}
		s.sendProactive(ctx, userID, candidate, playtime, dedupGame)
		if err := s.ledger.RecordProactive(ctx, userID, candidate.ID, candidate.Window, dedupGame, s.clock()); err != nil {
			return err
		}
	}
	return nil
}

// applyTimeout mutes the member and announces it. When the mute itself
// fails nothing is announced; the crossing stays recorded either way.
func (s *WatcherService) applyTimeout(ctx context.Context, cfg *model.Settings, userID int64, rule *model.ThresholdRule, game string) {
	gameLabel := ""
	if game != "" {
		gameLabel = " in " + game
	}
	until := s.clock().Add(time.Duration(rule.DurationHours) * time.Hour)
	reason := fmt.Sprintf("Playtime threshold exceeded (%gh %s%s)", rule.Hours, rule.Window, gameLabel)
	if err := s.mod.TimeoutMember(ctx, userID, until, reason); err != nil {
		if errors.Is(err, discord.ErrForbidden) {
			s.log.Warn("cannot timeout user, missing permissions", "user_id", userID)
		} else {
			s.log.Warn("timeout failed", "user_id", userID, "error", err)
		}
		return
	}
	s.log.Info("timed out user", "user_id", userID, "duration_hours", rule.DurationHours,
		"threshold_hours", rule.Hours, "window", rule.Window, "game", game)

	roast := s.pickRoast(ctx, model.ActionTimeout)
	notice := fmt.Sprintf("**Timeout Notice**\nThreshold: %gh (%s) | Timeout: %dh", rule.Hours, rule.Window, rule.DurationHours)
	if game != "" {
		notice += " | Game: " + game
	}
	s.announce(ctx, cfg, userID,
		fmt.Sprintf("<@%d> %s\n%s", userID, roast, notice),
		roast+"\n"+notice)
}

func (s *WatcherService) sendWarning(ctx context.Context, cfg *model.Settings, userID int64, rule *model.ThresholdRule, game string) {
	roast := s.pickRoast(ctx, model.ActionWarn)
	notice := fmt.Sprintf("**Playtime Warning**\nThreshold: %gh (%s)", rule.Hours, rule.Window)
	if game != "" {
		notice += " | Game: " + game
	}
	s.announce(ctx, cfg, userID,
		fmt.Sprintf("<@%d> %s\n%s", userID, roast, notice),
		roast+"\n"+notice)
}

// sendProactive DMs the user that they are approaching a threshold.
func (s *WatcherService) sendProactive(ctx context.Context, userID int64, rule *model.ThresholdRule, playtime float64, game string) {
	actionText := "a warning"
	if rule.Action == model.ActionTimeout {
		actionText = fmt.Sprintf("a **%dh** timeout", rule.DurationHours)
	}
	gameContext := ""
	if game != "" {
		gameContext = fmt.Sprintf(" in **%s**", game)
	}
	msg := fmt.Sprintf("You've played **%.1fh**%s %s. At **%gh**, you'll get %s. (**%.1fh** remaining)",
		playtime, gameContext, windowPhrase(rule.Window), rule.Hours, actionText, rule.Hours-playtime)
	if err := s.notifier.SendDM(ctx, userID, msg); err != nil {
		if errors.Is(err, discord.ErrForbidden) {
			s.log.Warn("could not dm proactive warning", "user_id", userID)
		} else {
			s.log.Warn("proactive dm failed", "user_id", userID, "error", err)
		}
		return
	}
	s.log.Info("proactive warning sent", "user_id", userID,
		"playtime_hours", playtime, "threshold_hours", rule.Hours, "window", rule.Window)
}

func (s *WatcherService) pickRoast(ctx context.Context, action model.Action) string {
	custom, err := s.roasts.ListRoasts(ctx, "")
	if err != nil {
		s.log.Warn("loading custom roasts failed", "error", err)
		custom = nil
	}
	return rules.Roast(action, custom)
}

// announce posts to the announcement channel, falling back to a DM
// when the channel is unset or the post fails.
func (s *WatcherService) announce(ctx context.Context, cfg *model.Settings, userID int64, channelMsg, dmMsg string) {
	if cfg.AnnouncementChannelID != 0 {
		err := s.notifier.SendChannelMessage(ctx, cfg.AnnouncementChannelID, channelMsg)
		if err == nil {
			return
		}
		s.log.Warn("channel announcement failed", "channel_id", cfg.AnnouncementChannelID, "error", err)
	}
	if err := s.notifier.SendDM(ctx, userID, dmMsg); err != nil {
		if errors.Is(err, discord.ErrForbidden) {
			s.log.Warn("could not dm user", "user_id", userID)
		} else {
			s.log.Warn("dm failed", "user_id", userID, "error", err)
		}
	}
}

func splitScopes(all []*model.ThresholdRule, game string) (global, gameRules []*model.ThresholdRule) {
	for _, r := range all {
		switch {
		case r.Scope.Kind == model.ScopeGlobal:
			global = append(global, r)
		case r.Scope.Kind == model.ScopeGame && game != "" && strings.EqualFold(r.Scope.Game, game):
			gameRules = append(gameRules, r)
		}
	}
	return global, gameRules
}

func rulesForGroup(all []*model.ThresholdRule, groupID int64) []*model.ThresholdRule {
	var out []*model.ThresholdRule
	for _, r := range all {
		if r.Scope.Kind == model.ScopeGroup && r.Scope.GroupID == groupID {
			out = append(out, r)
		}
	}
	return out
}

func windowPhrase(w model.Window) string {
	switch w {
	case model.WindowRolling7d:
		return "this week"
	case model.WindowDaily:
		return "today"
	case model.WindowWeekly:
		return "this calendar week"
	case model.WindowSession:
		return "this session"
	}
	return string(w)
}
