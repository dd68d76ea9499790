package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/instaflow/pkg/usecase"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
)

// NewReminderWorker sends the reminder digest every interval
func NewReminderWorker(uc *usecase.ReminderUseCase, interval time.Duration, opts ...Option) *Worker {
	return New("reminder", interval, func(ctx context.Context) error {
		_, err := uc.SendReminders(ctx)
		return err
	}, opts...)
}

// NewBackupWorker writes a backup to blob storage every interval. Cycles are
// skipped while a restore is running.
func NewBackupWorker(uc *usecase.BackupUseCase, interval time.Duration, opts ...Option) *Worker {
	return New("backup", interval, func(ctx context.Context) error {
		if uc.IsRestoring() {
			logging.From(ctx).Info("restore in progress, scheduled backup skipped")
			return nil
		}
		file, location, err := uc.SaveBackup(ctx)
		if err != nil {
			return err
		}
		logging.From(ctx).Info("scheduled backup saved", "name", file.Name, "location", location)
		return nil
	}, opts...)
}

// NewRestoreSessionSweeper drops restore sessions left untouched for ttl
func NewRestoreSessionSweeper(uc *usecase.BackupUseCase, interval, ttl time.Duration, opts ...Option) *Worker {
	return New("restore-session-sweep", interval, func(ctx context.Context) error {
		if n := uc.PruneRestoreSessions(ttl); n > 0 {
			logging.From(ctx).Info("stale restore sessions dropped", "count", n)
		}
		return nil
	}, opts...)
}
