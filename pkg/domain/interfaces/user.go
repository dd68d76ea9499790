package interfaces

import (
	"context"

	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

// UserRepository defines the interface for tracked user persistence
type UserRepository interface {
	// List returns every user, active and blacklisted, in storage order
	List(ctx context.Context) ([]*model.User, error)

	// Get retrieves a user by ID
	Get(ctx context.Context, id model.UserID) (*model.User, error)

	// Create stores a new user with a store assigned ID and DateAdded
	Create(ctx context.Context, draft *model.User) (*model.User, error)

	// Update merges patch onto the stored user and returns the result
	Update(ctx context.Context, id model.UserID, patch *model.UserPatch) (*model.User, error)

	// Delete removes a user permanently
	Delete(ctx context.Context, id model.UserID) error
}
