package cmdHandlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
	"github.com/Josperdo/mjolnir/internal/rules"
	"github.com/Josperdo/mjolnir/internal/service"
)

const barLength = 20

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// progressBar renders playtime against a cap as a fixed-width block bar.
func progressBar(playtime, cap float64) string {
	fill := 0.0
	if cap > 0 {
		fill = playtime / cap
		if fill > 1 {
			fill = 1
		}
	}
	filled := int(fill * barLength)
	if filled > barLength {
		filled = barLength
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barLength-filled)
}

func formatMyStats(st *model.UserStats) string {
	var b strings.Builder
	b.WriteString("**Your Playtime Stats**\n")
	for _, w := range st.Windows {
		fmt.Fprintf(&b, "\n**%s**\n%s\n**%.1f** / **%g** hours\n",
			w.Window.Label(), progressBar(w.Playtime, w.BarCap), w.Playtime, w.BarCap)
		if w.Next != nil {
			fmt.Fprintf(&b, "%.1fh until %s\n", w.Remaining, w.Next.Action)
		} else {
			b.WriteString("All thresholds exceeded\n")
		}
	}
	if st.ActiveHours > 0 {
		fmt.Fprintf(&b, "\n**Active Session**\n**%.1f hrs** this session\n", st.ActiveHours)
	}
	if len(st.Daily) > 0 {
		parts := make([]string, 0, len(st.Daily))
		for _, d := range st.Daily {
			parts = append(parts, fmt.Sprintf("%s: %.1fh", dayAbbrev(d.Day), d.Hours))
		}
		b.WriteString("\n**Daily Breakdown (Last 7 Days)**\n" + strings.Join(parts, " | ") + "\n")
	}
	if st.Sessions != nil && st.Sessions.Count > 0 {
		fmt.Fprintf(&b, "\n**Session Stats**\nTotal sessions: %d\nLongest: %.1fh\nAverage: %.1fh\n",
			st.Sessions.Count, st.Sessions.LongestHours, st.Sessions.AvgHours)
	}
	fmt.Fprintf(&b, "\n**Warnings & Timeouts**\nWarnings: %d\nTimeouts: %d\n", st.Warns, st.Timeouts)
	if upcoming := upcomingLines(st.Windows); len(upcoming) > 0 {
		b.WriteString("\n**Upcoming Thresholds**\n" + strings.Join(upcoming, "\n") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func upcomingLines(standings []model.WindowStanding) []string {
	var lines []string
	for _, w := range standings {
		if len(w.Pending) == 0 {
			continue
		}
		entries := make([]string, 0, len(w.Pending))
		for _, r := range w.Pending {
			if r.Action == model.ActionTimeout {
				entries = append(entries, fmt.Sprintf("%gh (timeout %dh)", r.Hours, r.DurationHours))
			} else {
				entries = append(entries, fmt.Sprintf("%gh (warn)", r.Hours))
			}
		}
		lines = append(lines, fmt.Sprintf("**%s:** %s", w.Window.Label(), strings.Join(entries, ", ")))
	}
	return lines
}

// dayAbbrev shortens a "2006-01-02" date label to its weekday name.
func dayAbbrev(day string) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return day
	}
	return t.Format("Mon")
}

func formatLeaderboards(lb *model.Leaderboards) string {
	var b strings.Builder
	b.WriteString("**Playtime Leaderboard (Last 7 Days)**\n")
	if len(lb.MostHours) > 0 {
		b.WriteString("\n**Most Hours Played**\n")
		for i, e := range lb.MostHours {
			fmt.Fprintf(&b, "%d. <@%d> — %.1fh\n", i+1, e.UserID, e.Hours)
		}
	}
	if len(lb.LongestSession) > 0 {
		b.WriteString("\n**Longest Single Session**\n")
		for i, e := range lb.LongestSession {
			fmt.Fprintf(&b, "%d. <@%d> — %.1fh\n", i+1, e.UserID, e.Hours)
		}
	}
	if len(lb.MostSessions) > 0 {
		b.WriteString("\n**Most Frequent Player**\n")
		for i, e := range lb.MostSessions {
			fmt.Fprintf(&b, "%d. <@%d> — %d sessions\n", i+1, e.UserID, e.Sessions)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// rulesSummary collapses the rule list to one line per window, in the
// fixed window display order.
func rulesSummary(ruleList []*model.ThresholdRule) string {
	if len(ruleList) == 0 {
		return "No rules configured."
	}
	grouped := rules.GroupByWindow(ruleList)
	var lines []string
	for _, w := range model.Windows {
		bucket := grouped[w]
		if len(bucket) == 0 {
			continue
		}
		entries := make([]string, 0, len(bucket))
		for _, r := range bucket {
			entries = append(entries, r.Describe())
		}
		lines = append(lines, fmt.Sprintf("**%s:** %s", w.Label(), strings.Join(entries, ", ")))
	}
	return strings.Join(lines, "\n")
}

func formatRules(ruleList []*model.ThresholdRule) string {
	grouped := rules.GroupByWindow(ruleList)
	var b strings.Builder
	b.WriteString("**Threshold Rules**\n")
	for _, w := range model.Windows {
		bucket := grouped[w]
		if len(bucket) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n**%s**\n", w.Label())
		for _, r := range bucket {
			fmt.Fprintf(&b, "`#%d` — %s", r.ID, r.Describe())
			if r.Scope.Kind != model.ScopeGlobal {
				fmt.Fprintf(&b, " [%s]", r.Scope)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStatus(report *service.StatusReport) string {
	state := "DISABLED"
	if report.Settings.TrackingEnabled {
		state = "ENABLED"
	}
	channel := "Not configured"
	if report.Settings.AnnouncementChannelID != 0 {
		channel = fmt.Sprintf("<#%d>", report.Settings.AnnouncementChannelID)
	}
	var b strings.Builder
	b.WriteString("**Mjolnir Status**\n")
	fmt.Fprintf(&b, "Tracking: **%s**\n", state)
	fmt.Fprintf(&b, "Opted-In Users: **%d**\n", report.OptedIn)
	fmt.Fprintf(&b, "Tracked Games: %s\n", gamesLine(report.Games))
	fmt.Fprintf(&b, "Announcement Channel: %s\n", channel)
	fmt.Fprintf(&b, "Weekly Recap: **%s** at **%02d:00 UTC**\n",
		dayNames[report.Settings.WeeklyRecapDay], report.Settings.WeeklyRecapHour)
	fmt.Fprintf(&b, "Warn Threshold: **%.0f%%**\n", report.Settings.WarnThresholdPct*100)
	fmt.Fprintf(&b, "Timeout Cooldown: **%d days**\n", report.Settings.CooldownDays)
	b.WriteString("\n" + rulesSummary(report.Rules))
	return b.String()
}

func gamesLine(games []*model.TrackedGame) string {
	if len(games) == 0 {
		return "None yet"
	}
	parts := make([]string, 0, len(games))
	for _, g := range games {
		if g.Enabled {
			parts = append(parts, fmt.Sprintf("**%s**", g.Name))
		} else {
			parts = append(parts, fmt.Sprintf("**%s** (disabled)", g.Name))
		}
	}
	return strings.Join(parts, ", ")
}

func formatGroups(groups []*model.GameGroup) string {
	var b strings.Builder
	b.WriteString("**Game Groups**\n")
	for _, g := range groups {
		members := "(empty)"
		if len(g.Members) > 0 {
			members = strings.Join(g.Members, ", ")
		}
		fmt.Fprintf(&b, "`#%d` **%s** — %s\n", g.ID, g.Name, members)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatRoasts(roastList []*model.Roast) string {
	var warnLines, timeoutLines []string
	for _, r := range roastList {
		line := fmt.Sprintf("`#%d` — %s", r.ID, r.Message)
		if r.Action == model.ActionTimeout {
			timeoutLines = append(timeoutLines, line)
		} else {
			warnLines = append(warnLines, line)
		}
	}
	var b strings.Builder
	b.WriteString("**Custom Roast Messages**\n")
	if len(warnLines) > 0 {
		b.WriteString("\n**Warning Roasts**\n" + strings.Join(warnLines, "\n") + "\n")
	}
	if len(timeoutLines) > 0 {
		b.WriteString("\n**Timeout Roasts**\n" + strings.Join(timeoutLines, "\n") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAudit(entries []*model.AuditEntry) string {
	var b strings.Builder
	b.WriteString("**Admin Audit Log**\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n**%s** by <@%d>", strings.ReplaceAll(e.Action, "_", " "), e.ActorID)
		if e.TargetID != 0 {
			fmt.Fprintf(&b, " on <@%d>", e.TargetID)
		}
		fmt.Fprintf(&b, " at %s\n", e.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
		if e.Details != "" {
			b.WriteString(e.Details + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
