package repository

import (
	"context"

	"github.com/Josperdo/mjolnir/internal/model"
)

// RuleRepository abstracts storage of threshold rules.
type RuleRepository interface {
	// ListRules returns every rule ordered by window then hours ascending.
	ListRules(ctx context.Context) ([]*model.ThresholdRule, error)
	// GetRule fetches one rule by id. os.ErrNotExist when missing.
	GetRule(ctx context.Context, id int64) (*model.ThresholdRule, error)
	// AddRule inserts a rule and returns it with its assigned id.
	// Callers validate before inserting.
	AddRule(ctx context.Context, rule *model.ThresholdRule) (*model.ThresholdRule, error)
	// DeleteRule removes a rule. os.ErrNotExist when no row matched.
	DeleteRule(ctx context.Context, id int64) error
}
