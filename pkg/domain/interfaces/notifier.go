package interfaces

import (
	"context"

	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

// Notifier delivers reminder digests to the operator
type Notifier interface {
	Name() string
	Notify(ctx context.Context, settings *model.Settings, message string) error
}
