package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/interfaces"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

type SettingsUseCase struct {
	repo interfaces.Repository
}

func NewSettingsUseCase(repo interfaces.Repository) *SettingsUseCase {
	return &SettingsUseCase{repo: repo}
}

func (uc *SettingsUseCase) GetSettings(ctx context.Context) (*model.Settings, error) {
	settings, err := uc.repo.Settings().Get(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get settings")
	}
	return settings, nil
}

// UpdateSettings replaces the settings in full. Unset reminder intervals
// fall back to their defaults.
func (uc *SettingsUseCase) UpdateSettings(ctx context.Context, settings *model.Settings) (*model.Settings, error) {
	if settings == nil {
		return nil, goerr.Wrap(model.ErrValidation, "settings are required")
	}

	staged := settings.Clone()
	staged.Normalize()
	for i, acc := range staged.MyAccounts {
		staged.MyAccounts[i] = model.NormalizeUsername(acc)
	}
	if err := staged.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid settings")
	}

	stored, err := uc.repo.Settings().Put(ctx, staged)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update settings")
	}
	return stored, nil
}
