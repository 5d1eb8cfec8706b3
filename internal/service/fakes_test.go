package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
	"github.com/Josperdo/mjolnir/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres repositories.
type memStore struct {
	settings   *model.Settings
	rules      []*model.ThresholdRule
	events     []*model.ThresholdEvent
	warnings   []*model.ProactiveWarning
	users      map[int64]*model.User
	games      []*model.TrackedGame
	groups     map[int64]*model.GameGroup
	exclusions map[int64]map[string]bool
	sessions   []*model.PlaySession
	roasts     []*model.Roast
	auditLog   []*model.AuditEntry
	nextID     int64
}

var (
	_ repository.SettingsRepository = (*memStore)(nil)
	_ repository.RuleRepository     = (*memStore)(nil)
	_ repository.LedgerRepository   = (*memStore)(nil)
	_ repository.GameRepository     = (*memStore)(nil)
	_ repository.UserRepository     = (*memStore)(nil)
	_ repository.SessionRepository  = (*memStore)(nil)
	_ repository.RoastRepository    = (*memStore)(nil)
	_ repository.AuditRepository    = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		settings:   model.DefaultSettings(),
		users:      map[int64]*model.User{},
		groups:     map[int64]*model.GameGroup{},
		exclusions: map[int64]map[string]bool{},
	}
}

func (m *memStore) id() int64 { m.nextID++; return m.nextID }

func (m *memStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	c := *m.settings
	return &c, nil
}

func (m *memStore) UpdateSettings(ctx context.Context, s *model.Settings) error {
	c := *s
	m.settings = &c
	return nil
}

func (m *memStore) ListRules(ctx context.Context) ([]*model.ThresholdRule, error) {
	out := make([]*model.ThresholdRule, len(m.rules))
	copy(out, m.rules)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Window != out[j].Window {
			return out[i].Window < out[j].Window
		}
		return out[i].Hours < out[j].Hours
	})
	return out, nil
}

func (m *memStore) GetRule(ctx context.Context, id int64) (*model.ThresholdRule, error) {
	for _, r := range m.rules {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, os.ErrNotExist
}

func (m *memStore) AddRule(ctx context.Context, rule *model.ThresholdRule) (*model.ThresholdRule, error) {
	c := *rule
	c.ID = m.id()
	m.rules = append(m.rules, &c)
	return &c, nil
}

func (m *memStore) DeleteRule(ctx context.Context, id int64) error {
	for i, r := range m.rules {
		if r.ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return os.ErrNotExist
}

func (m *memStore) FiredRuleIDs(ctx context.Context, userID int64, since time.Time, dedupGame string) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, e := range m.events {
		if e.UserID == userID && !e.FiredAt.Before(since) && strings.EqualFold(e.DedupGame, dedupGame) {
			out[e.RuleID] = true
		}
	}
	return out, nil
}

func (m *memStore) RecordFired(ctx context.Context, userID, ruleID int64, window model.Window, dedupGame string, at time.Time) error {
	m.events = append(m.events, &model.ThresholdEvent{
		ID: m.id(), UserID: userID, RuleID: ruleID,
		Window: window, DedupGame: dedupGame, FiredAt: at,
	})
	return nil
}

func (m *memStore) LastFiredAt(ctx context.Context, userID int64) (time.Time, error) {
	var last time.Time
	found := false
	for _, e := range m.events {
		if e.UserID == userID && e.FiredAt.After(last) {
			last, found = e.FiredAt, true
		}
	}
	if !found {
		return time.Time{}, os.ErrNotExist
	}
	return last, nil
}

func (m *memStore) ClearFired(ctx context.Context, userID int64) (int64, error) {
	var kept []*model.ThresholdEvent
	var n int64
	for _, e := range m.events {
		if e.UserID == userID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

func (m *memStore) ListEvents(ctx context.Context, userID int64) ([]*model.ThresholdEvent, error) {
	var out []*model.ThresholdEvent
	for _, e := range m.events {
		if e.UserID == userID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) EventActionCounts(ctx context.Context, userID int64) (int, int, error) {
	var warns, timeouts int
	for _, e := range m.events {
		if e.UserID != userID {
			continue
		}
		r, err := m.GetRule(ctx, e.RuleID)
		if err != nil {
			continue
		}
		switch r.Action {
		case model.ActionWarn:
			warns++
		case model.ActionTimeout:
			timeouts++
		}
	}
	return warns, timeouts, nil
}

func (m *memStore) ProactiveSent(ctx context.Context, userID, ruleID int64, since time.Time, dedupGame string) (bool, error) {
	for _, w := range m.warnings {
		if w.UserID == userID && w.RuleID == ruleID && !w.WarnedAt.Before(since) && strings.EqualFold(w.DedupGame, dedupGame) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) RecordProactive(ctx context.Context, userID, ruleID int64, window model.Window, dedupGame string, at time.Time) error {
	m.warnings = append(m.warnings, &model.ProactiveWarning{
		ID: m.id(), UserID: userID, RuleID: ruleID,
		Window: window, DedupGame: dedupGame, WarnedAt: at,
	})
	return nil
}

func (m *memStore) ClearProactive(ctx context.Context, userID int64) (int64, error) {
	var kept []*model.ProactiveWarning
	var n int64
	for _, w := range m.warnings {
		if w.UserID == userID {
			n++
			continue
		}
		kept = append(kept, w)
	}
	m.warnings = kept
	return n, nil
}

func (m *memStore) ListProactive(ctx context.Context, userID int64) ([]*model.ProactiveWarning, error) {
	var out []*model.ProactiveWarning
	for _, w := range m.warnings {
		if w.UserID == userID {
			c := *w
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) ListTrackedGames(ctx context.Context) ([]*model.TrackedGame, error) {
	out := make([]*model.TrackedGame, 0, len(m.games))
	for _, g := range m.games {
		c := *g
		out = append(out, &c)
	}
	return out, nil
}

func (m *memStore) FindTrackedGame(ctx context.Context, name string) (*model.TrackedGame, error) {
	for _, g := range m.games {
		if strings.EqualFold(g.Name, name) {
			c := *g
			return &c, nil
		}
	}
	return nil, os.ErrNotExist
}

func (m *memStore) AddTrackedGame(ctx context.Context, name string, now time.Time) (*model.TrackedGame, error) {
	if g, err := m.FindTrackedGame(ctx, name); err == nil {
		return g, nil
	}
	g := &model.TrackedGame{ID: m.id(), Name: name, Enabled: true, AddedAt: now}
	m.games = append(m.games, g)
	c := *g
	return &c, nil
}

func (m *memStore) RemoveTrackedGame(ctx context.Context, name string) error {
	for i, g := range m.games {
		if strings.EqualFold(g.Name, name) {
			m.games = append(m.games[:i], m.games[i+1:]...)
			return nil
		}
	}
	return os.ErrNotExist
}

func (m *memStore) SetGameEnabled(ctx context.Context, name string, enabled bool) error {
	for _, g := range m.games {
		if strings.EqualFold(g.Name, name) {
			g.Enabled = enabled
			return nil
		}
	}
	return os.ErrNotExist
}

func (m *memStore) ListGroups(ctx context.Context) ([]*model.GameGroup, error) {
	out := make([]*model.GameGroup, 0, len(m.groups))
	for _, g := range m.groups {
		c := *g
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetGroup(ctx context.Context, id int64) (*model.GameGroup, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	c := *g
	return &c, nil
}

func (m *memStore) CreateGroup(ctx context.Context, name string, now time.Time) (*model.GameGroup, error) {
	g := &model.GameGroup{ID: m.id(), Name: name, CreatedAt: now}
	m.groups[g.ID] = g
	c := *g
	return &c, nil
}

func (m *memStore) DeleteGroup(ctx context.Context, id int64) error {
	if _, ok := m.groups[id]; !ok {
		return os.ErrNotExist
	}
	delete(m.groups, id)
	return nil
}

func (m *memStore) AddGameToGroup(ctx context.Context, groupID int64, game string) (bool, error) {
	g, ok := m.groups[groupID]
	if !ok {
		return false, os.ErrNotExist
	}
	for _, member := range g.Members {
		if strings.EqualFold(member, game) {
			return false, nil
		}
	}
	g.Members = append(g.Members, game)
	return true, nil
}

func (m *memStore) RemoveGameFromGroup(ctx context.Context, groupID int64, game string) error {
	g, ok := m.groups[groupID]
	if !ok {
		return os.ErrNotExist
	}
	for i, member := range g.Members {
		if strings.EqualFold(member, game) {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return nil
		}
	}
	return os.ErrNotExist
}

func (m *memStore) GroupMembers(ctx context.Context, groupID int64) ([]string, error) {
	g, ok := m.groups[groupID]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), g.Members...), nil
}

func (m *memStore) GroupsContaining(ctx context.Context, game string) ([]int64, error) {
	var out []int64
	for id, g := range m.groups {
		for _, member := range g.Members {
			if strings.EqualFold(member, game) {
				out = append(out, id)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memStore) IsExcluded(ctx context.Context, userID int64, game string) (bool, error) {
	return m.exclusions[userID][strings.ToLower(game)], nil
}

func (m *memStore) SetExcluded(ctx context.Context, userID int64, game string, excluded bool) error {
	if excluded {
		if m.exclusions[userID] == nil {
			m.exclusions[userID] = map[string]bool{}
		}
		m.exclusions[userID][strings.ToLower(game)] = true
		return nil
	}
	delete(m.exclusions[userID], strings.ToLower(game))
	return nil
}

func (m *memStore) ListExclusions(ctx context.Context, userID int64) ([]string, error) {
	var out []string
	for game := range m.exclusions[userID] {
		out = append(out, game)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, os.ErrNotExist
	}
	c := *u
	return &c, nil
}

func (m *memStore) EnsureUser(ctx context.Context, userID int64, now time.Time) (*model.User, error) {
	if u, ok := m.users[userID]; ok {
		c := *u
		return &c, nil
	}
	u := &model.User{ID: userID, LeaderboardVisible: true, CreatedAt: now}
	m.users[userID] = u
	c := *u
	return &c, nil
}

func (m *memStore) SetOptedIn(ctx context.Context, userID int64, optedIn bool, now time.Time) error {
	m.mustUser(userID, now).OptedIn = optedIn
	return nil
}

func (m *memStore) SetExempt(ctx context.Context, userID int64, exempt bool, now time.Time) error {
	m.mustUser(userID, now).Exempt = exempt
	return nil
}

func (m *memStore) SetLeaderboardVisible(ctx context.Context, userID int64, visible bool, now time.Time) error {
	m.mustUser(userID, now).LeaderboardVisible = visible
	return nil
}

func (m *memStore) mustUser(userID int64, now time.Time) *model.User {
	if u, ok := m.users[userID]; ok {
		return u
	}
	u := &model.User{ID: userID, LeaderboardVisible: true, CreatedAt: now}
	m.users[userID] = u
	return u
}

func (m *memStore) ListOptedIn(ctx context.Context) ([]*model.User, error) {
	var out []*model.User
	for _, u := range m.users {
		if u.OptedIn {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeleteUser(ctx context.Context, userID int64) error {
	delete(m.users, userID)
	return nil
}

func (m *memStore) OpenSession(ctx context.Context, userID int64, game string, now time.Time) (*model.PlaySession, error) {
	s := &model.PlaySession{
		ID: fmt.Sprintf("sess-%d", m.id()), UserID: userID,
		GameName: game, StartTime: now,
	}
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *memStore) CloseSession(ctx context.Context, id string, now time.Time) (*model.PlaySession, error) {
	for _, s := range m.sessions {
		if s.ID == id && s.Open() {
			end := now
			s.EndTime = &end
			s.DurationSeconds = int64(end.Sub(s.StartTime).Seconds())
			c := *s
			return &c, nil
		}
	}
	return nil, os.ErrNotExist
}

func (m *memStore) ActiveSession(ctx context.Context, userID int64, game string) (*model.PlaySession, error) {
	for _, s := range m.sessions {
		if s.UserID == userID && s.Open() && strings.EqualFold(s.GameName, game) {
			c := *s
			return &c, nil
		}
	}
	return nil, os.ErrNotExist
}

func (m *memStore) OpenSessions(ctx context.Context, userID int64) ([]*model.PlaySession, error) {
	var out []*model.PlaySession
	for _, s := range m.sessions {
		if s.UserID == userID && s.Open() {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) SumHours(ctx context.Context, userID int64, games []string, since time.Time) (float64, error) {
	var secs int64
	for _, s := range m.sessions {
		if s.UserID != userID || s.Open() || s.StartTime.Before(since) {
			continue
		}
		if games != nil && !containsFold(games, s.GameName) {
			continue
		}
		secs += s.DurationSeconds
	}
	return float64(secs) / 3600, nil
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

func (m *memStore) WeeklySummary(ctx context.Context, userID int64, from, to time.Time) (*model.WeeklySummary, error) {
	sum := &model.WeeklySummary{}
	byDay := map[string]float64{}
	for _, s := range m.sessions {
		if s.UserID != userID || s.Open() || s.StartTime.Before(from) || !s.StartTime.Before(to) {
			continue
		}
		h := s.Hours()
		sum.TotalHours += h
		sum.SessionCount++
		if h > sum.LongestHours {
			sum.LongestHours = h
		}
		byDay[s.StartTime.UTC().Weekday().String()[:3]] += h
	}
	var best float64
	for day, h := range byDay {
		if h > best {
			best, sum.BusiestDay = h, day
		}
	}
	return sum, nil
}

func (m *memStore) DailyBreakdown(ctx context.Context, userID int64, days int, now time.Time) ([]model.DayHours, error) {
	out := make([]model.DayHours, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.UTC().AddDate(0, 0, -i).Format("2006-01-02")
		var h float64
		for _, s := range m.sessions {
			if s.UserID == userID && !s.Open() && s.StartTime.UTC().Format("2006-01-02") == day {
				h += s.Hours()
			}
		}
		out = append(out, model.DayHours{Day: day, Hours: h})
	}
	return out, nil
}

func (m *memStore) SessionStats(ctx context.Context, userID int64, since time.Time) (*model.SessionStats, error) {
	st := &model.SessionStats{}
	var total float64
	for _, s := range m.sessions {
		if s.UserID != userID || s.Open() || s.StartTime.Before(since) {
			continue
		}
		h := s.Hours()
		st.Count++
		total += h
		if h > st.LongestHours {
			st.LongestHours = h
		}
	}
	if st.Count > 0 {
		st.AvgHours = total / float64(st.Count)
	}
	return st, nil
}

func (m *memStore) TopByHours(ctx context.Context, since time.Time, limit int) ([]model.LeaderboardEntry, error) {
	return m.rankHours(since, time.Time{}, limit), nil
}

func (m *memStore) TopByHoursBetween(ctx context.Context, from, to time.Time, limit int) ([]model.LeaderboardEntry, error) {
	return m.rankHours(from, to, limit), nil
}

func (m *memStore) rankHours(from, to time.Time, limit int) []model.LeaderboardEntry {
	totals := map[int64]float64{}
	for _, s := range m.sessions {
		if !m.ranked(s, from, to) {
			continue
		}
		totals[s.UserID] += s.Hours()
	}
	return topEntries(totals, limit)
}

func (m *memStore) TopByLongestSession(ctx context.Context, since time.Time, limit int) ([]model.LeaderboardEntry, error) {
	longest := map[int64]float64{}
	for _, s := range m.sessions {
		if !m.ranked(s, since, time.Time{}) {
			continue
		}
		if h := s.Hours(); h > longest[s.UserID] {
			longest[s.UserID] = h
		}
	}
	return topEntries(longest, limit), nil
}

func (m *memStore) TopBySessionCount(ctx context.Context, since time.Time, limit int) ([]model.LeaderboardEntry, error) {
	counts := map[int64]int{}
	for _, s := range m.sessions {
		if !m.ranked(s, since, time.Time{}) {
			continue
		}
		counts[s.UserID]++
	}
	hours := map[int64]float64{}
	for id, n := range counts {
		hours[id] = float64(n)
	}
	entries := topEntries(hours, limit)
	for i := range entries {
		entries[i].Sessions = counts[entries[i].UserID]
		entries[i].Hours = 0
	}
	return entries, nil
}

// ranked applies the leaderboard visibility rules to one session.
func (m *memStore) ranked(s *model.PlaySession, from, to time.Time) bool {
	if s.Open() || s.StartTime.Before(from) {
		return false
	}
	if !to.IsZero() && !s.StartTime.Before(to) {
		return false
	}
	u := m.users[s.UserID]
	return u != nil && u.OptedIn && u.LeaderboardVisible
}

func topEntries(totals map[int64]float64, limit int) []model.LeaderboardEntry {
	out := make([]model.LeaderboardEntry, 0, len(totals))
	for id, h := range totals {
		out = append(out, model.LeaderboardEntry{UserID: id, Hours: h})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hours != out[j].Hours {
			return out[i].Hours > out[j].Hours
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memStore) ListSessions(ctx context.Context, userID int64) ([]*model.PlaySession, error) {
	var out []*model.PlaySession
	for _, s := range m.sessions {
		if s.UserID == userID {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) DeleteUserSessions(ctx context.Context, userID int64) (int64, error) {
	var kept []*model.PlaySession
	var n int64
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
			continue
		}
		kept = append(kept, s)
	}
	m.sessions = kept
	return n, nil
}

func (m *memStore) ListRoasts(ctx context.Context, action model.Action) ([]*model.Roast, error) {
	var out []*model.Roast
	for _, r := range m.roasts {
		if action != "" && r.Action != action {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (m *memStore) AddRoast(ctx context.Context, action model.Action, message string) (*model.Roast, error) {
	r := &model.Roast{ID: m.id(), Action: action, Message: message}
	m.roasts = append(m.roasts, r)
	c := *r
	return &c, nil
}

func (m *memStore) DeleteRoast(ctx context.Context, id int64) error {
	for i, r := range m.roasts {
		if r.ID == id {
			m.roasts = append(m.roasts[:i], m.roasts[i+1:]...)
			return nil
		}
	}
	return os.ErrNotExist
}

func (m *memStore) RecordAudit(ctx context.Context, action string, actorID, targetID int64, details string, now time.Time) error {
	m.auditLog = append(m.auditLog, &model.AuditEntry{
		ID: m.id(), Action: action, ActorID: actorID, TargetID: targetID,
		Details: details, CreatedAt: now,
	})
	return nil
}

func (m *memStore) RecentAudit(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	var out []*model.AuditEntry
	for i := len(m.auditLog) - 1; i >= 0 && len(out) < limit; i-- {
		c := *m.auditLog[i]
		out = append(out, &c)
	}
	return out, nil
}

type sentDM struct {
	userID  int64
	content string
}

type timeoutCall struct {
	userID int64
	until  time.Time
	reason string
}

// fakeDiscord captures outbound Discord calls and can be primed to fail.
type fakeDiscord struct {
	channelMsgs []string
	channelIDs  []int64
	dms         []sentDM
	timeouts    []timeoutCall
	cleared     []int64
	channelErr  error
	dmErr       error
	timeoutErr  error
}

var (
	_ Moderator = (*fakeDiscord)(nil)
	_ Notifier  = (*fakeDiscord)(nil)
)

func (f *fakeDiscord) TimeoutMember(ctx context.Context, userID int64, until time.Time, reason string) error {
	if f.timeoutErr != nil {
		return f.timeoutErr
	}
	f.timeouts = append(f.timeouts, timeoutCall{userID: userID, until: until, reason: reason})
	return nil
}

func (f *fakeDiscord) ClearTimeout(ctx context.Context, userID int64, reason string) error {
	f.cleared = append(f.cleared, userID)
	return nil
}

func (f *fakeDiscord) SendChannelMessage(ctx context.Context, channelID int64, content string) error {
	if f.channelErr != nil {
		return f.channelErr
	}
	f.channelIDs = append(f.channelIDs, channelID)
	f.channelMsgs = append(f.channelMsgs, content)
	return nil
}

func (f *fakeDiscord) SendDM(ctx context.Context, userID int64, content string) error {
	if f.dmErr != nil {
		return f.dmErr
	}
	f.dms = append(f.dms, sentDM{userID: userID, content: content})
	return nil
}

func (f *fakeDiscord) reset() {
	f.channelMsgs, f.channelIDs, f.dms = nil, nil, nil
	f.timeouts, f.cleared = nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testTime is a Wednesday so calendar-week cutoffs stay mid-week.
var testTime = time.Date(2024, 3, 13, 18, 0, 0, 0, time.UTC)

func addClosedSession(store *memStore, userID int64, game string, start time.Time, hours float64) *model.PlaySession {
	secs := int64(hours * 3600)
	end := start.Add(time.Duration(secs) * time.Second)
	s := &model.PlaySession{
		ID: fmt.Sprintf("sess-%d", store.id()), UserID: userID, GameName: game,
		StartTime: start, EndTime: &end, DurationSeconds: secs,
	}
	store.sessions = append(store.sessions, s)
	return s
}
