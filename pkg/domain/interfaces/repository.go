package interfaces

import (
	"context"

	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

// Repository defines the interface for data persistence. Implementations are
// interchangeable: callers must not depend on which backend is in effect.
type Repository interface {
	User() UserRepository
	Settings() SettingsRepository

	// Replace swaps the entire user collection and the settings record for
	// the given ones. Users keep their IDs. Either everything is replaced or
	// nothing is.
	Replace(ctx context.Context, users []*model.User, settings *model.Settings) error

	Close() error
}
