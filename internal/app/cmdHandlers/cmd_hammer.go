package cmdHandlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Josperdo/mjolnir/pkg/discord"
)

const hammerUsage = "Available subcommands: `on`, `off`, `status`, `setchannel`, `setschedule`, " +
	"`setwarnpct`, `setcooldown`, `pardon`, `exempt`, `resetplaytime`, `forget`, `audit`, " +
	"`games`, `groups`, `rules`, `roasts`"

func (c *CmdHandler) handleHammer(ctx context.Context, ev discord.Event, args []string) {
	if !ev.Admin {
		c.sendDM(ctx, ev.UserID, "You need administrator permissions to use `/hammer`.")
		return
	}
	if len(args) == 0 {
		c.sendDM(ctx, ev.UserID, hammerUsage)
		return
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "on":
		c.hammerSetTracking(ctx, ev, true)
	case "off":
		c.hammerSetTracking(ctx, ev, false)
	case "status":
		c.hammerStatus(ctx, ev)
	case "setchannel":
		c.hammerSetChannel(ctx, ev, rest)
	case "setschedule":
		c.hammerSetSchedule(ctx, ev, rest)
	case "setwarnpct":
		c.hammerSetWarnPct(ctx, ev, rest)
	case "setcooldown":
		c.hammerSetCooldown(ctx, ev, rest)
	case "pardon":
		c.hammerPardon(ctx, ev, rest)
	case "exempt":
		c.hammerExempt(ctx, ev, rest)
	case "resetplaytime":
		c.hammerResetPlaytime(ctx, ev, rest)
	case "forget":
		c.hammerForget(ctx, ev, rest)
	case "audit":
		c.hammerAudit(ctx, ev, rest)
	case "games":
		c.hammerGames(ctx, ev, rest)
	case "groups":
		c.hammerGroups(ctx, ev, rest)
	case "rules":
		c.hammerRules(ctx, ev, rest)
	case "roasts":
		c.hammerRoasts(ctx, ev, rest)
	default:
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("Unknown subcommand `%s`.\n%s", sub, hammerUsage))
	}
}

// adminError logs the failure and sends the generic apology. Validation
// problems get specific replies before the service is ever called.
func (c *CmdHandler) adminError(ctx context.Context, ev discord.Event, msg string, err error) {
	c.log.Error(msg, "admin_id", ev.UserID, "error", err)
	c.sendDM(ctx, ev.UserID, "Something went wrong, please try again later.")
}

func (c *CmdHandler) hammerSetTracking(ctx context.Context, ev discord.Event, enabled bool) {
	changed, err := c.admin.SetTracking(ctx, ev.UserID, enabled)
	if err != nil {
		c.adminError(ctx, ev, "tracking toggle failed", err)
		return
	}
	switch {
	case !changed && enabled:
		c.sendDM(ctx, ev.UserID, "Tracking is already enabled.")
	case !changed:
		c.sendDM(ctx, ev.UserID, "Tracking is already disabled.")
	case enabled:
		games, err := c.admin.Games(ctx)
		if err != nil {
			c.log.Error("failed to list games for activation notice", "error", err)
		}
		c.announce(ctx, ev, fmt.Sprintf("**Mjolnir activated!**\n\nPlaytime tracking is now **enabled**.\nMonitoring: %s", gamesLine(games)))
	default:
		c.announce(ctx, ev, "**Mjolnir deactivated.**\n\nPlaytime tracking is now **disabled**.\nActive sessions will not be tracked.")
	}
}

func (c *CmdHandler) hammerStatus(ctx context.Context, ev discord.Event) {
	report, err := c.admin.Status(ctx)
	if err != nil {
		c.adminError(ctx, ev, "status report failed", err)
		return
	}
	c.sendDM(ctx, ev.UserID, formatStatus(report))
}

func (c *CmdHandler) hammerSetChannel(ctx context.Context, ev discord.Event, args []string) {
	if len(args) == 0 {
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer setchannel <#channel>`")
		return
	}
	channelID, ok := parseChannelRef(args[0])
	if !ok {
		c.sendDM(ctx, ev.UserID, "That doesn't look like a channel.")
		return
	}
	if err := c.admin.SetAnnouncementChannel(ctx, ev.UserID, channelID); err != nil {
		c.adminError(ctx, ev, "channel update failed", err)
		return
	}
	c.sendDM(ctx, ev.UserID, fmt.Sprintf("Announcement channel set to <#%d>.", channelID))
}

func (c *CmdHandler) hammerSetSchedule(ctx context.Context, ev discord.Event, args []string) {
	if len(args) < 2 {
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer setschedule <day 0-6> <hour 0-23>`")
		return
	}
	day, dayErr := strconv.Atoi(args[0])
	hour, hourErr := strconv.Atoi(args[1])
	if dayErr != nil || hourErr != nil {
		c.sendDM(ctx, ev.UserID, "Day and hour must be numbers.")
		return
	}
	if day < 0 || day > 6 {
		c.sendDM(ctx, ev.UserID, "Day must be between 0 (Monday) and 6 (Sunday).")
		return
	}
	if hour < 0 || hour > 23 {
		c.sendDM(ctx, ev.UserID, "Hour must be between 0 and 23.")
		return
	}
	if err := c.admin.SetSchedule(ctx, ev.UserID, day, hour); err != nil {
		c.adminError(ctx, ev, "schedule update failed", err)
		return
	}
	c.sendDM(ctx, ev.UserID, fmt.Sprintf("Weekly recap set to **%s** at **%02d:00 UTC**.", dayNames[day], hour))
}

func (c *CmdHandler) hammerSetWarnPct(ctx context.Context, ev discord.Event, args []string) {
	if len(args) == 0 {
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer setwarnpct <percent 0-100>`")
		return
	}
	pct, err := strconv.ParseFloat(args[0], 64)
	if err != nil || pct < 0 || pct > 100 {
		c.sendDM(ctx, ev.UserID, "Percent must be a number between 0 and 100.")
		return
	}
	if err := c.admin.SetWarnFraction(ctx, ev.UserID, pct/100); err != nil {
		c.adminError(ctx, ev, "warn threshold update failed", err)
		return
	}
	if pct == 0 {
		c.sendDM(ctx, ev.UserID, "Proactive warnings are now **disabled**.")
		return
	}
	c.sendDM(ctx, ev.UserID, fmt.Sprintf("Users will now be warned at **%.0f%%** of each threshold.", pct))
}

func (c *CmdHandler) hammerSetCooldown(ctx context.Context, ev discord.Event, args []string) {
	if len(args) == 0 {
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer setcooldown <days>`")
		return
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days < 0 {
		c.sendDM(ctx, ev.UserID, "Days must be a non-negative number.")
		return
	}
	if err := c.admin.SetCooldown(ctx, ev.UserID, days); err != nil {
		c.adminError(ctx, ev, "cooldown update failed", err)
		return
	}
	if days == 0 {
		c.sendDM(ctx, ev.UserID, "Timeout cooldown is now **disabled**.")
		return
	}
	c.sendDM(ctx, ev.UserID, fmt.Sprintf("Timeout cooldown set to **%d days**.", days))
}

func (c *CmdHandler) hammerPardon(ctx context.Context, ev discord.Event, args []string) {
	userID, ok := userArg(args)
	if !ok {
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer pardon <user>`")
		return
	}
	err := c.admin.Pardon(ctx, ev.UserID, userID)
	if errors.Is(err, discord.ErrForbidden) {
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("Cannot pardon <@%d> — missing permissions.", userID))
		return
	}
	if err != nil {
		c.adminError(ctx, ev, "pardon failed", err)
		return
	}
	c.sendDM(ctx, ev.UserID, fmt.Sprintf("<@%d> has been pardoned. Their timeout has been removed.", userID))
}

func (c *CmdHandler) hammerExempt(ctx context.Context, ev discord.Event, args []string) {
	userID, ok := userArg(args)
	if !ok {
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer exempt <user>`")
		return
	}
	exempt, err := c.admin.ToggleExempt(ctx, ev.UserID, userID)
	if err != nil {
		c.adminError(ctx, ev, "exempt toggle failed", err)
		return
	}
	if exempt {
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("<@%d> is now **exempt** from tracking.", userID))
	} else {
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("<@%d> is no longer exempt from tracking.", userID))
	}
}

func (c *CmdHandler) hammerResetPlaytime(ctx context.Context, ev discord.Event, args []string) {
	userID, ok := userArg(args)
	if !ok {
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer resetplaytime <user>`")
		return
	}
	sessions, events, err := c.admin.ResetPlaytime(ctx, ev.UserID, userID)
	if err != nil {
		c.adminError(ctx, ev, "playtime reset failed", err)
		return
	}
	c.sendDM(ctx, ev.UserID, fmt.Sprintf("Reset playtime for <@%d>.\nRemoved **%d** sessions and **%d** threshold events.",
		userID, sessions, events))
}

func (c *CmdHandler) hammerForget(ctx context.Context, ev discord.Event, args []string) {
	userID, ok := userArg(args)
	if !ok {
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer forget <user>`")
		return
	}
	report, err := c.admin.Forget(ctx, ev.UserID, userID)
	if err != nil {
		c.adminError(ctx, ev, "data deletion failed", err)
		return
	}
	c.sendDM(ctx, ev.UserID, fmt.Sprintf("All data for <@%d> has been deleted: **%d** sessions, **%d** threshold events, **%d** warnings.",
		userID, report.Sessions, report.Events, report.Warnings))
}

func (c *CmdHandler) hammerAudit(ctx context.Context, ev discord.Event, args []string) {
	count := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			c.sendDM(ctx, ev.UserID, "Count must be a number.")
			return
		}
		count = n
	}
	entries, err := c.admin.RecentAudit(ctx, count)
	if err != nil {
		c.adminError(ctx, ev, "audit lookup failed", err)
		return
	}
	if len(entries) == 0 {
		c.sendDM(ctx, ev.UserID, "No audit log entries yet.")
		return
	}
	c.sendLongDM(ctx, ev.UserID, formatAudit(entries))
}

func userArg(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	return parseUserRef(args[0])
}
