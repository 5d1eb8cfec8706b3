package repository

import (
	"context"
	"time"

	"github.com/Josperdo/mjolnir/internal/model"
)

// AuditRepository abstracts the append-only admin action log.
type AuditRepository interface {
	// RecordAudit appends one entry. targetID 0 means no target user.
	RecordAudit(ctx context.Context, action string, actorID, targetID int64, details string, now time.Time) error
	// RecentAudit returns the newest entries first.
	RecentAudit(ctx context.Context, limit int) ([]*model.AuditEntry, error)
}

// RoastRepository abstracts the custom flavor-text pool.
type RoastRepository interface {
	// ListRoasts returns custom roasts, optionally filtered by action
	// (empty action means all).
	ListRoasts(ctx context.Context, action model.Action) ([]*model.Roast, error)
	AddRoast(ctx context.Context, action model.Action, message string) (*model.Roast, error)
	// DeleteRoast removes one roast. os.ErrNotExist when no row matched.
	DeleteRoast(ctx context.Context, id int64) error
}
