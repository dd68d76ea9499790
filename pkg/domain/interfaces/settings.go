package interfaces

import (
	"context"

	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

// SettingsRepository defines the interface for the singleton settings record
type SettingsRepository interface {
	// Get returns the stored settings, or defaults when none were stored
	Get(ctx context.Context) (*model.Settings, error)

	// Put replaces the settings record in full
	Put(ctx context.Context, settings *model.Settings) (*model.Settings, error)
}
