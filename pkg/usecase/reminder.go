package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/interfaces"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/utils/errutil"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/secmon-lab/instaflow/pkg/utils/metrics"
)

// ReminderReport summarizes one SendReminders run
type ReminderReport struct {
	Reminders []*model.Reminder `json:"reminders"`
	Delivered []string          `json:"delivered"`
	Skipped   []string          `json:"skipped"`
	Failed    []string          `json:"failed"`
}

type ReminderUseCase struct {
	repo      interfaces.Repository
	notifiers []interfaces.Notifier
	now       func() time.Time
}

func NewReminderUseCase(repo interfaces.Repository, notifiers []interfaces.Notifier, now func() time.Time) *ReminderUseCase {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ReminderUseCase{
		repo:      repo,
		notifiers: notifiers,
		now:       now,
	}
}

func (uc *ReminderUseCase) DueReminders(ctx context.Context) ([]*model.Reminder, *model.Settings, error) {
	settings, err := uc.repo.Settings().Get(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to get settings")
	}
	users, err := uc.repo.User().List(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to list users")
	}
	return model.DueReminders(users, settings, uc.now()), settings, nil
}

// SendReminders delivers a digest of due reminders through every notifier.
// Notifiers without credentials are skipped. Delivery failures are logged
// and reported; an error is returned only when every attempted delivery failed.
func (uc *ReminderUseCase) SendReminders(ctx context.Context) (*ReminderReport, error) {
	reminders, settings, err := uc.DueReminders(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReminderReport{
		Reminders: reminders,
		Delivered: []string{},
		Skipped:   []string{},
		Failed:    []string{},
	}
	if len(reminders) == 0 {
		logging.From(ctx).Debug("no reminders due")
		return report, nil
	}

	digest := model.FormatReminderDigest(reminders)
	var lastErr error
	for _, n := range uc.notifiers {
		err := n.Notify(ctx, settings, digest)
		switch {
		case err == nil:
			report.Delivered = append(report.Delivered, n.Name())
			metrics.RemindersSent.WithLabelValues(n.Name(), metrics.ResultSuccess).Inc()
		case errors.Is(err, model.ErrNotConfigured):
			report.Skipped = append(report.Skipped, n.Name())
			metrics.RemindersSent.WithLabelValues(n.Name(), metrics.ResultSkipped).Inc()
		default:
			report.Failed = append(report.Failed, n.Name())
			metrics.RemindersSent.WithLabelValues(n.Name(), metrics.ResultFailure).Inc()
			lastErr = errutil.Handle(ctx, goerr.Wrap(err, "failed to send reminders", goerr.V(NotifierKey, n.Name())), "reminder delivery failed")
		}
	}

	logging.From(ctx).Info("reminders processed",
		"due", len(reminders),
		"delivered", report.Delivered,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)

	if len(report.Failed) > 0 && len(report.Delivered) == 0 {
		return report, lastErr
	}
	return report, nil
}
