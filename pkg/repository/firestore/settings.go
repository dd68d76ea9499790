package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

type settingsDocument struct {
	MyAccounts           string `firestore:"my_accounts"`
	AccountSources       string `firestore:"account_sources"`
	UnfollowReminderDays int64  `firestore:"unfollow_reminder_days"`
	DMReminderDays       int64  `firestore:"dm_reminder_days"`
	TelegramBotToken     string `firestore:"telegram_bot_token"`
	TelegramChatID       string `firestore:"telegram_chat_id"`
}

func toSettingsDocument(r *model.SettingsRecord) *settingsDocument {
	return &settingsDocument{
		MyAccounts:           r.MyAccounts,
		AccountSources:       r.AccountSources,
		UnfollowReminderDays: int64(r.UnfollowReminderDays),
		DMReminderDays:       int64(r.DMReminderDays),
		TelegramBotToken:     r.TelegramBotToken,
		TelegramChatID:       r.TelegramChatID,
	}
}

func (d *settingsDocument) toRecord() *model.SettingsRecord {
	return &model.SettingsRecord{
		MyAccounts:           d.MyAccounts,
		AccountSources:       d.AccountSources,
		UnfollowReminderDays: int(d.UnfollowReminderDays),
		DMReminderDays:       int(d.DMReminderDays),
		TelegramBotToken:     d.TelegramBotToken,
		TelegramChatID:       d.TelegramChatID,
	}
}

type settingsRepository struct {
	client           *firestore.Client
	collectionPrefix string
	defaults         *model.Settings
}

func newSettingsRepository(client *firestore.Client) *settingsRepository {
	return &settingsRepository{
		client:           client,
		collectionPrefix: "",
		defaults:         model.DefaultSettings(),
	}
}

func (r *settingsRepository) settingsCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_settings"
	}
	return "settings"
}

func (r *settingsRepository) settingsRef() *firestore.DocumentRef {
	return r.client.Collection(r.settingsCollection()).Doc("app")
}

func (r *settingsRepository) Get(ctx context.Context) (*model.Settings, error) {
	snap, err := r.settingsRef().Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return r.defaults.Clone(), nil
		}
		return nil, backendError(err, "failed to get settings")
	}

	var doc settingsDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, backendError(err, "failed to unmarshal settings")
	}
	return doc.toRecord().Settings(), nil
}

func (r *settingsRepository) Put(ctx context.Context, settings *model.Settings) (*model.Settings, error) {
	if settings == nil {
		return nil, goerr.Wrap(model.ErrValidation, "settings are required")
	}

	staged := settings.Clone()
	staged.Normalize()
	if err := staged.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid settings")
	}
	rec := staged.Record()

	if _, err := r.settingsRef().Set(ctx, toSettingsDocument(rec)); err != nil {
		return nil, backendError(err, "failed to put settings")
	}
	return rec.Settings(), nil
}
