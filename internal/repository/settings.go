package repository

import (
	"context"

	"github.com/Josperdo/mjolnir/internal/model"
)

// SettingsRepository abstracts the single mutable settings row.
type SettingsRepository interface {
	// GetSettings returns current settings; an empty database yields
	// the seeded defaults.
	GetSettings(ctx context.Context) (*model.Settings, error)
	// UpdateSettings overwrites the settings row.
	UpdateSettings(ctx context.Context, s *model.Settings) error
}
