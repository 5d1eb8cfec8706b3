package repository

import (
	"context"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
)

// LedgerRepository abstracts the dedup ledger: threshold events for
// crossed rules and the separate proactive-warning namespace.
//
// dedupGame carries the per-game discriminator used by global-scope
// rules; the empty string matches records stored without one (game and
// group scoped rules).
type LedgerRepository interface {
	// FiredRuleIDs returns ids of rules with an event at or after since
	// under the given dedup key.
	FiredRuleIDs(ctx context.Context, userID int64, since time.Time, dedupGame string) (map[int64]bool, error)
	// RecordFired appends a threshold event.
	RecordFired(ctx context.Context, userID, ruleID int64, window model.Window, dedupGame string, at time.Time) error
	// LastFiredAt returns the timestamp of the user's most recent
	// threshold event. os.ErrNotExist when the user has none.
	LastFiredAt(ctx context.Context, userID int64) (time.Time, error)
	// ClearFired deletes all of a user's threshold events.
	ClearFired(ctx context.Context, userID int64) (int64, error)
	// ListEvents returns a user's threshold events, oldest first.
	ListEvents(ctx context.Context, userID int64) ([]*model.ThresholdEvent, error)
	// EventActionCounts counts a user's lifetime events split by the
	// action of the rule that fired them.
	EventActionCounts(ctx context.Context, userID int64) (warns, timeouts int, err error)

	// ProactiveSent reports whether an approach notice for the rule was
	// already recorded at or after since under the given dedup key.
	ProactiveSent(ctx context.Context, userID, ruleID int64, since time.Time, dedupGame string) (bool, error)
	// RecordProactive appends a proactive-warning record.
	RecordProactive(ctx context.Context, userID, ruleID int64, window model.Window, dedupGame string, at time.Time) error
	// ClearProactive deletes all of a user's proactive-warning records.
	ClearProactive(ctx context.Context, userID int64) (int64, error)
	// ListProactive returns a user's proactive records, oldest first.
	ListProactive(ctx context.Context, userID int64) ([]*model.ProactiveWarning, error)
}
