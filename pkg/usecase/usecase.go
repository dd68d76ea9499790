package usecase

import (
	"time"

	"github.com/secmon-lab/instaflow/pkg/domain/interfaces"
)

type UseCases struct {
	repo      interfaces.Repository
	now       func() time.Time
	notifiers []interfaces.Notifier
	blob      interfaces.BlobStorage

	User     *UserUseCase
	Settings *SettingsUseCase
	Backup   *BackupUseCase
	Reminder *ReminderUseCase
}

type Option func(*UseCases)

// WithClock replaces the time source used for file names, manifests and reminders
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func WithNotifiers(notifiers ...interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifiers = append(uc.notifiers, notifiers...)
	}
}

// WithBlobStorage enables saving and loading archives by name
func WithBlobStorage(blob interfaces.BlobStorage) Option {
	return func(uc *UseCases) {
		uc.blob = blob
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.User = NewUserUseCase(repo, uc.now)
	uc.Settings = NewSettingsUseCase(repo)
	uc.Backup = NewBackupUseCase(repo, uc.blob, uc.now)
	uc.Reminder = NewReminderUseCase(repo, uc.notifiers, uc.now)

	return uc
}
