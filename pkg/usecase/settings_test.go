package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/repository/memory"
	"github.com/secmon-lab/instaflow/pkg/usecase"
)

func TestSettingsUseCase(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewSettingsUseCase(memory.New())

	t.Run("defaults before any update", func(t *testing.T) {
		settings, err := uc.GetSettings(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, settings.UnfollowReminderDays).Equal(model.DefaultUnfollowReminderDays)
		gt.Value(t, settings.DMReminderDays).Equal(model.DefaultDMReminderDays)
		gt.Array(t, settings.AccountSources).Equal(model.DefaultAccountSources)
	})

	t.Run("update replaces in full", func(t *testing.T) {
		stored, err := uc.UpdateSettings(ctx, &model.Settings{
			MyAccounts:     []string{" @main ", "alt"},
			AccountSources: []string{"hashtag"},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, stored.MyAccounts).Equal([]string{"main", "alt"})
		gt.Value(t, stored.UnfollowReminderDays).Equal(model.DefaultUnfollowReminderDays)

		got, err := uc.GetSettings(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, got.AccountSources).Equal([]string{"hashtag"})
	})

	t.Run("negative interval is rejected", func(t *testing.T) {
		_, err := uc.UpdateSettings(ctx, &model.Settings{UnfollowReminderDays: -1})
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("nil settings", func(t *testing.T) {
		_, err := uc.UpdateSettings(ctx, nil)
		gt.Error(t, err).Is(model.ErrValidation)
	})
}
