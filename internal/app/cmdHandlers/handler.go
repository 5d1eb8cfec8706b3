// Package cmdHandlers routes slash-command events from the gateway
// bridge to the services and renders the replies.
package cmdHandlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Josperdo/mjolnir/internal/service"
	"github.com/Josperdo/mjolnir/pkg/discord"
)

// Command names as they arrive on the event feed.
const (
	OptInCmd       = "optin"
	OptOutCmd      = "optout"
	MyStatsCmd     = "mystats"
	LeaderboardCmd = "leaderboard"
	ExcludeCmd     = "exclude"
	IncludeCmd     = "include"
	VisibilityCmd  = "visibility"
	ExportCmd      = "export"
	HammerCmd      = "hammer"
)

type CmdHandler struct {
	users    *service.UserService
	stats    *service.StatsService
	admin    *service.AdminService
	notifier service.Notifier
	log      *slog.Logger
}

func NewCmdHandler(
	users *service.UserService,
	stats *service.StatsService,
	admin *service.AdminService,
	notifier service.Notifier,
	log *slog.Logger,
) *CmdHandler {
	return &CmdHandler{
		users:    users,
		stats:    stats,
		admin:    admin,
		notifier: notifier,
		log:      log,
	}
}

// HandleCommand routes one command event to its handler.
func (c *CmdHandler) HandleCommand(ctx context.Context, ev discord.Event) {
	fields := strings.Fields(ev.Command)
	if len(fields) == 0 {
		return
	}
	name, args := fields[0], fields[1:]
	c.log.Info("command received", "user_id", ev.UserID, "command", name)

	switch name {
	case OptInCmd:
		c.handleOptIn(ctx, ev)
	case OptOutCmd:
		c.handleOptOut(ctx, ev)
	case MyStatsCmd:
		c.handleMyStats(ctx, ev)
	case LeaderboardCmd:
		c.handleLeaderboard(ctx, ev)
	case ExcludeCmd:
		c.handleExclusion(ctx, ev, args, true)
	case IncludeCmd:
		c.handleExclusion(ctx, ev, args, false)
	case VisibilityCmd:
		c.handleVisibility(ctx, ev, args)
	case ExportCmd:
		c.handleExport(ctx, ev)
	case HammerCmd:
		c.handleHammer(ctx, ev, args)
	default:
		c.sendDM(ctx, ev.UserID, "Unknown command. Try `/mystats`, `/optin` or `/optout`.")
	}
}

// announce posts to the invoking channel, falling back to a DM when
// the channel send fails or the event carries no channel.
func (c *CmdHandler) announce(ctx context.Context, ev discord.Event, text string) {
	if ev.ChannelID != 0 {
		err := c.notifier.SendChannelMessage(ctx, ev.ChannelID, text)
		if err == nil {
			return
		}
		c.log.Warn("channel reply failed", "channel_id", ev.ChannelID, "error", err)
	}
	c.sendDM(ctx, ev.UserID, text)
}

// sendDM delivers a private reply, logging failures.
func (c *CmdHandler) sendDM(ctx context.Context, userID int64, text string) {
	if err := c.notifier.SendDM(ctx, userID, text); err != nil {
		c.log.Warn("command reply failed", "user_id", userID, "error", err)
	}
}

// sendLongDM splits an oversized reply so every part fits under the
// platform's message limit.
func (c *CmdHandler) sendLongDM(ctx context.Context, userID int64, text string) {
	const limit = 1900
	runes := []rune(text)
	for len(runes) > 0 {
		n := limit
		if n > len(runes) {
			n = len(runes)
		}
		c.sendDM(ctx, userID, string(runes[:n]))
		runes = runes[n:]
	}
}

// parseUserRef accepts a raw ID or a <@...> / <@!...> mention.
func parseUserRef(arg string) (int64, bool) {
	arg = strings.TrimSuffix(strings.TrimPrefix(arg, "<@"), ">")
	arg = strings.TrimPrefix(arg, "!")
	return parseID(arg)
}

// parseChannelRef accepts a raw ID or a <#...> mention.
func parseChannelRef(arg string) (int64, bool) {
	arg = strings.TrimSuffix(strings.TrimPrefix(arg, "<#"), ">")
	return parseID(arg)
}

func parseID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
