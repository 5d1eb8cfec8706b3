package cmdHandlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Josperdo/mjolnir/internal/model"
	"github.com/Josperdo/mjolnir/pkg/discord"
)

const rulesAddUsage = "Usage: `/hammer rules add <hours> <warn|timeout> <window> [timeout hours] [game <name> | group <id>]`\n" +
	"Windows: `rolling`, `daily`, `weekly`, `session`"

func (c *CmdHandler) hammerGames(ctx context.Context, ev discord.Event, args []string) {
	if len(args) == 0 {
		args = []string{"list"}
	}
	name := strings.Join(args[1:], " ")
	switch args[0] {
	case "list":
		games, err := c.admin.Games(ctx)
		if err != nil {
			c.adminError(ctx, ev, "game list failed", err)
			return
		}
		if len(games) == 0 {
			c.sendDM(ctx, ev.UserID, "No tracked games yet.\nUse `/hammer games add <name>` to start tracking one.")
			return
		}
		c.sendDM(ctx, ev.UserID, "**Tracked Games**\n"+gamesLine(games))
	case "add":
		if name == "" {
			c.sendDM(ctx, ev.UserID, "Usage: `/hammer games add <name>`")
			return
		}
		game, err := c.admin.AddGame(ctx, ev.UserID, name)
		if err != nil {
			c.adminError(ctx, ev, "game add failed", err)
			return
		}
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** is now tracked.", game.Name))
	case "remove":
		if name == "" {
			c.sendDM(ctx, ev.UserID, "Usage: `/hammer games remove <name>`")
			return
		}
		err := c.admin.RemoveGame(ctx, ev.UserID, name)
		if errors.Is(err, os.ErrNotExist) {
			c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** is not a tracked game.", name))
			return
		}
		if err != nil {
			c.adminError(ctx, ev, "game removal failed", err)
			return
		}
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** is no longer tracked.", name))
	case "enable", "disable":
		if name == "" {
			c.sendDM(ctx, ev.UserID, fmt.Sprintf("Usage: `/hammer games %s <name>`", args[0]))
			return
		}
		enabled := args[0] == "enable"
		canonical, err := c.admin.SetGameEnabled(ctx, ev.UserID, name, enabled)
		if errors.Is(err, os.ErrNotExist) {
			c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** is not a tracked game.", name))
			return
		}
		if err != nil {
			c.adminError(ctx, ev, "game toggle failed", err)
			return
		}
		if enabled {
			c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** is enabled again.", canonical))
		} else {
			c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** is now disabled. History is kept, but new sessions won't be tracked.", canonical))
		}
	default:
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer games list|add|remove|enable|disable`")
	}
}

func (c *CmdHandler) hammerGroups(ctx context.Context, ev discord.Event, args []string) {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		groups, err := c.admin.Groups(ctx)
		if err != nil {
			c.adminError(ctx, ev, "group list failed", err)
			return
		}
		if len(groups) == 0 {
			c.sendDM(ctx, ev.UserID, "No game groups yet.\nUse `/hammer groups create <name>` to make one.")
			return
		}
		c.sendDM(ctx, ev.UserID, formatGroups(groups))
	case "create":
		name := strings.Join(args[1:], " ")
		if name == "" {
			c.sendDM(ctx, ev.UserID, "Usage: `/hammer groups create <name>`")
			return
		}
		group, err := c.admin.CreateGroup(ctx, ev.UserID, name)
		if err != nil {
			c.adminError(ctx, ev, "group creation failed", err)
			return
		}
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("Group `#%d` **%s** created.\nAdd games with `/hammer groups addgame %d <game>`.",
			group.ID, group.Name, group.ID))
	case "delete":
		groupID, ok := idArg(args[1:])
		if !ok {
			c.sendDM(ctx, ev.UserID, "Usage: `/hammer groups delete <id>`")
			return
		}
		err := c.admin.DeleteGroup(ctx, ev.UserID, groupID)
		if errors.Is(err, os.ErrNotExist) {
			c.sendDM(ctx, ev.UserID, fmt.Sprintf("No group found with ID `#%d`.", groupID))
			return
		}
		if err != nil {
			c.adminError(ctx, ev, "group deletion failed", err)
			return
		}
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("Group `#%d` has been deleted.", groupID))
	case "addgame":
		if len(args) < 3 {
			c.sendDM(ctx, ev.UserID, "Usage: `/hammer groups addgame <id> <game>`")
			return
		}
		groupID, ok := idArg(args[1:])
		if !ok {
			c.sendDM(ctx, ev.UserID, "Usage: `/hammer groups addgame <id> <game>`")
			return
		}
		game := strings.Join(args[2:], " ")
		canonical, added, err := c.admin.AddGameToGroup(ctx, ev.UserID, groupID, game)
		if errors.Is(err, os.ErrNotExist) {
			c.sendDM(ctx, ev.UserID, "Couldn't find that group or game.")
			return
		}
		if err != nil {
			c.adminError(ctx, ev, "group membership update failed", err)
			return
		}
		if added {
			c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** added to group `#%d`.", canonical, groupID))
		} else {
			c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** is already in group `#%d`.", canonical, groupID))
		}
	case "removegame":
		if len(args) < 3 {
			c.sendDM(ctx, ev.UserID, "Usage: `/hammer groups removegame <id> <game>`")
			return
		}
		groupID, ok := idArg(args[1:])
		if !ok {
			c.sendDM(ctx, ev.UserID, "Usage: `/hammer groups removegame <id> <game>`")
			return
		}
		game := strings.Join(args[2:], " ")
		err := c.admin.RemoveGameFromGroup(ctx, ev.UserID, groupID, game)
		if errors.Is(err, os.ErrNotExist) {
			c.sendDM(ctx, ev.UserID, "Couldn't find that group or game.")
			return
		}
		if err != nil {
			c.adminError(ctx, ev, "group membership update failed", err)
			return
		}
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("**%s** removed from group `#%d`.", game, groupID))
	default:
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer groups list|create|delete|addgame|removegame`")
	}
}

func (c *CmdHandler) hammerRules(ctx context.Context, ev discord.Event, args []string) {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		ruleList, err := c.admin.Rules(ctx)
		if err != nil {
			c.adminError(ctx, ev, "rule list failed", err)
			return
		}
		if len(ruleList) == 0 {
			c.sendDM(ctx, ev.UserID, "No threshold rules configured.\nUse `/hammer rules add` to create one.")
			return
		}
		c.sendLongDM(ctx, ev.UserID, formatRules(ruleList))
	case "add":
		rule, complaint := parseRuleSpec(args[1:])
		if complaint != "" {
			c.sendDM(ctx, ev.UserID, complaint)
			return
		}
		created, err := c.admin.AddRule(ctx, ev.UserID, rule)
		if err != nil {
			c.adminError(ctx, ev, "rule creation failed", err)
			return
		}
		msg := fmt.Sprintf("Rule `#%d` added to **%s**:\n%s", created.ID, created.Window.Label(), created.Describe())
		if created.Scope.Kind != model.ScopeGlobal {
			msg += fmt.Sprintf(" [%s]", created.Scope)
		}
		c.sendDM(ctx, ev.UserID, msg)
	case "remove":
		ruleID, ok := idArg(args[1:])
		if !ok {
			c.sendDM(ctx, ev.UserID, "Usage: `/hammer rules remove <id>`")
			return
		}
		err := c.admin.RemoveRule(ctx, ev.UserID, ruleID)
		if errors.Is(err, os.ErrNotExist) {
			c.sendDM(ctx, ev.UserID, fmt.Sprintf("No rule found with ID `#%d`.", ruleID))
			return
		}
		if err != nil {
			c.adminError(ctx, ev, "rule removal failed", err)
			return
		}
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("Rule `#%d` has been removed.", ruleID))
	default:
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer rules list|add|remove`")
	}
}

func (c *CmdHandler) hammerRoasts(ctx context.Context, ev discord.Event, args []string) {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		roastList, err := c.admin.Roasts(ctx)
		if err != nil {
			c.adminError(ctx, ev, "roast list failed", err)
			return
		}
		if len(roastList) == 0 {
			c.sendDM(ctx, ev.UserID, "No custom roasts configured — using default roast messages.\nUse `/hammer roasts add` to add your own!")
			return
		}
		c.sendLongDM(ctx, ev.UserID, formatRoasts(roastList))
	case "add":
		if len(args) < 3 {
			c.sendDM(ctx, ev.UserID, "Usage: `/hammer roasts add <warn|timeout> <message>`")
			return
		}
		action := model.Action(strings.ToLower(args[1]))
		if !action.Valid() {
			c.sendDM(ctx, ev.UserID, "Action must be `warn` or `timeout`.")
			return
		}
		roast, err := c.admin.AddRoast(ctx, ev.UserID, action, strings.Join(args[2:], " "))
		if err != nil {
			c.adminError(ctx, ev, "roast creation failed", err)
			return
		}
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("Roast `#%d` added for **%s**:\n%s", roast.ID, roast.Action, roast.Message))
	case "remove":
		roastID, ok := idArg(args[1:])
		if !ok {
			c.sendDM(ctx, ev.UserID, "Usage: `/hammer roasts remove <id>`")
			return
		}
		err := c.admin.RemoveRoast(ctx, ev.UserID, roastID)
		if errors.Is(err, os.ErrNotExist) {
			c.sendDM(ctx, ev.UserID, fmt.Sprintf("No roast found with ID `#%d`.", roastID))
			return
		}
		if err != nil {
			c.adminError(ctx, ev, "roast removal failed", err)
			return
		}
		c.sendDM(ctx, ev.UserID, fmt.Sprintf("Roast `#%d` has been removed.", roastID))
	default:
		c.sendDM(ctx, ev.UserID, "Usage: `/hammer roasts list|add|remove`")
	}
}

// parseRuleSpec turns `<hours> <action> <window> [duration] [scope]`
// into a rule. The second return is a reply for the admin when the
// arguments don't parse; it is empty on success.
func parseRuleSpec(args []string) (*model.ThresholdRule, string) {
	if len(args) < 3 {
		return nil, rulesAddUsage
	}
	hours, err := strconv.ParseFloat(args[0], 64)
	if err != nil || hours <= 0 {
		return nil, "Hours must be a positive number."
	}
	action := model.Action(strings.ToLower(args[1]))
	if !action.Valid() {
		return nil, "Action must be `warn` or `timeout`."
	}
	window, ok := parseWindow(args[2])
	if !ok {
		return nil, "Window must be one of `rolling`, `daily`, `weekly`, `session`."
	}
	rule := &model.ThresholdRule{Hours: hours, Action: action, Window: window, Scope: model.GlobalScope()}
	rest := args[3:]
	if action == model.ActionTimeout {
		if len(rest) == 0 {
			return nil, "Timeout rules need a duration in hours."
		}
		duration, err := strconv.Atoi(rest[0])
		if err != nil || duration <= 0 {
			return nil, "Timeout duration must be a positive number of hours."
		}
		rule.DurationHours = duration
		rest = rest[1:]
	}
	switch {
	case len(rest) == 0:
	case rest[0] == "game" && len(rest) > 1:
		rule.Scope = model.GameScope(strings.Join(rest[1:], " "))
	case rest[0] == "group" && len(rest) == 2:
		groupID, ok := parseID(rest[1])
		if !ok {
			return nil, "Group ID must be a number."
		}
		rule.Scope = model.GroupScope(groupID)
	default:
		return nil, rulesAddUsage
	}
	return rule, ""
}

func parseWindow(arg string) (model.Window, bool) {
	switch strings.ToLower(arg) {
	case "rolling", "rolling7d", "rolling_7d", "7d":
		return model.WindowRolling7d, true
	case "daily", "day":
		return model.WindowDaily, true
	case "weekly", "week":
		return model.WindowWeekly, true
	case "session":
		return model.WindowSession, true
	}
	return "", false
}

// idArg reads a numeric ID from the head of args, tolerating the `#`
// prefix replies use when rendering IDs.
func idArg(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	return parseID(strings.TrimPrefix(args[0], "#"))
}
