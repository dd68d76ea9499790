package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

type settingsRepository struct {
	m *Memory
}

func (r *settingsRepository) Get(ctx context.Context) (*model.Settings, error) {
	if err := r.m.wait(ctx); err != nil {
		return nil, err
	}

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	if r.m.settings == nil {
		return r.m.defaults.Clone(), nil
	}
	return r.m.settings.Settings(), nil
}

func (r *settingsRepository) Put(ctx context.Context, settings *model.Settings) (*model.Settings, error) {
	if err := r.m.wait(ctx); err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, goerr.Wrap(model.ErrValidation, "settings are required")
	}

	staged := settings.Clone()
	staged.Normalize()
	if err := staged.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid settings")
	}
	rec := staged.Record()

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.settings = rec
	return rec.Settings(), nil
}
