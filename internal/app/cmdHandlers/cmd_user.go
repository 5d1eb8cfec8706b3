package cmdHandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Josperdo/mjolnir/internal/service"
	"github.com/Josperdo/mjolnir/pkg/discord"
)

func (c *CmdHandler) handleOptIn(ctx context.Context, ev discord.Event) {
	if err := c.users.OptIn(ctx, ev.UserID); err != nil {
		c.log.Error("opt-in failed", "user_id", ev.UserID, "error", err)
		c.sendDM(ctx, ev.UserID, "Something went wrong, please try again later.")
		return
	}
	games, err := c.admin.Games(ctx)
	if err != nil {
		c.log.Error("failed to list games for opt-in reply", "user_id", ev.UserID, "error", err)
	}
	ruleList, err := c.admin.Rules(ctx)
	if err != nil {
		c.log.Error("failed to list rules for opt-in reply", "user_id", ev.UserID, "error", err)
	}
	var b strings.Builder
	b.WriteString("You've opted in to playtime tracking!\n\n")
	fmt.Fprintf(&b, "**Tracked games:** %s\n\n", gamesLine(games))
	b.WriteString("**Thresholds:**\n" + rulesSummary(ruleList) + "\n\n")
	b.WriteString("If you exceed a threshold, you may be warned or timed out.\nUse `/optout` to stop tracking at any time.")
	c.sendDM(ctx, ev.UserID, b.String())
}

func (c *CmdHandler) handleOptOut(ctx context.Context, ev discord.Event) {
	if err := c.users.OptOut(ctx, ev.UserID); err != nil {
		c.log.Error("opt-out failed", "user_id", ev.UserID, "error", err)
		c.sendDM(ctx, ev.UserID, "Something went wrong, please try again later.")
		return
	}
	c.sendDM(ctx, ev.UserID, "You've opted out of playtime tracking.\n\n"+
		"Your previous play sessions are still saved, but we won't track new sessions.\n"+
		"Use `/optin` if you change your mind!")
}

func (c *CmdHandler) handleMyStats(ctx context.Context, ev discord.Event) {
	st, err := c.stats.MyStats(ctx, ev.UserID)
	if errors.Is(err, service.ErrNotOptedIn) {
		c.sendDM(ctx, ev.UserID, "You're not currently opted in to playtime tracking.\nUse `/optin` to start!")
		return
	}
	if err != nil {
		c.log.Error("stats lookup failed", "user_id", ev.UserID, "error", err)
		c.sendDM(ctx, ev.UserID, "Something went wrong, please try again later.")
		return
	}
	c.sendLongDM(ctx, ev.UserID, formatMyStats(st))
}

func (c *CmdHandler) handleLeaderboard(ctx context.Context, ev discord.Event) {
	lb, err := c.stats.Leaderboards(ctx)
	if err != nil {
		c.log.Error("leaderboard lookup failed", "user_id", ev.UserID, "error", err)
		c.sendDM(ctx, ev.UserID, "Something went wrong, please try again later.")
		return
	}
	if len(lb.MostHours) == 0 && len(lb.LongestSession) == 0 && len(lb.MostSessions) == 0 {
		c.sendDM(ctx, ev.UserID, "No playtime data available for the last 7 days.")
		return
	}
	c.announce(ctx, ev, formatLeaderboards(lb))
}

func (c *CmdHandler) handleExclusion(ctx context.Context, ev discord.Event, args []string, excluded bool) {
	if len(args) == 0 {
		usage := "Usage: `/include <game>`"
		if excluded {
			usage = "Usage: `/exclude <game>`"
		}
		c.sendDM(ctx, ev.UserID, usage)
		return
	}
	game := strings.Join(args, " ")
	name, err := c.users.SetGameExcluded(ctx, ev.UserID, game, excluded)
	if errors.Is(err, os.ErrNotExist) {
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** is not a tracked game.", game))
		return
	}
	if err != nil {
		c.log.Error("exclusion update failed", "user_id", ev.UserID, "game", game, "error", err)
		c.sendDM(ctx, ev.UserID, "Something went wrong, please try again later.")
		return
	}
	if excluded {
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** no longer counts toward your playtime.", name))
	} else {
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** counts toward your playtime again.", name))
	}
}

func (c *CmdHandler) handleVisibility(ctx context.Context, ev discord.Event, args []string) {
	if len(args) == 0 || (args[0] != "show" && args[0] != "hide") {
		c.sendDM(ctx, ev.UserID, "Usage: `/visibility show` or `/visibility hide`")
		return
	}
	visible := args[0] == "show"
	if err := c.users.SetLeaderboardVisible(ctx, ev.UserID, visible); err != nil {
		c.log.Error("visibility update failed", "user_id", ev.UserID, "error", err)
		c.sendDM(ctx, ev.UserID, "Something went wrong, please try again later.")
		return
	}
	if visible {
		c.sendDM(ctx, ev.UserID, "You'll appear on the leaderboards again.")
	} else {
		c.sendDM(ctx, ev.UserID, "You're now hidden from the leaderboards.")
	}
}

func (c *CmdHandler) handleExport(ctx context.Context, ev discord.Event) {
	export, err := c.stats.Export(ctx, ev.UserID)
	if err != nil {
		c.log.Error("export failed", "user_id", ev.UserID, "error", err)
		c.sendDM(ctx, ev.UserID, "Something went wrong, please try again later.")
		return
	}
	raw, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		c.log.Error("export marshal failed", "user_id", ev.UserID, "error", err)
		c.sendDM(ctx, ev.UserID, "Something went wrong, please try again later.")
		return
	}
	c.sendLongDM(ctx, ev.UserID, "Your data export:\n"+string(raw))
}
