package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/interfaces"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-process store. Each instance owns its data, so tests can
// create isolated stores. Records are kept in storage shape.
type Memory struct {
	mu        sync.RWMutex
	records   []*model.UserRecord
	highWater model.UserID
	settings  *model.SettingsRecord

	latency  time.Duration
	now      func() time.Time
	defaults *model.Settings

	user         *userRepository
	settingsRepo *settingsRepository
}

var _ interfaces.Repository = &Memory{}

type Option func(*Memory)

// WithLatency delays every operation by d to mimic a remote backend
func WithLatency(d time.Duration) Option {
	return func(m *Memory) {
		m.latency = d
	}
}

// WithClock replaces the time source used for DateAdded and action dates
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

// WithDefaultSettings sets the settings returned before any were stored
func WithDefaultSettings(s *model.Settings) Option {
	return func(m *Memory) {
		m.defaults = s.Clone()
	}
}

func New(opts ...Option) *Memory {
	m := &Memory{
		records:  []*model.UserRecord{},
		now:      func() time.Time { return time.Now().UTC() },
		defaults: model.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.user = &userRepository{m: m}
	m.settingsRepo = &settingsRepository{m: m}
	return m
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

func (m *Memory) Settings() interfaces.SettingsRepository {
	return m.settingsRepo
}

// Replace stages the new state completely before swapping it in under the lock
func (m *Memory) Replace(ctx context.Context, users []*model.User, settings *model.Settings) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if settings == nil {
		return goerr.Wrap(model.ErrValidation, "settings are required for replace")
	}
	if err := model.ValidateUserSet(users); err != nil {
		return goerr.Wrap(err, "invalid user set for replace")
	}

	staged := make([]*model.UserRecord, len(users))
	for i, u := range users {
		restored := u.Clone()
		restored.Normalize(m.now())
		staged[i] = restored.Record()
	}
	stagedSettings := settings.Clone()
	stagedSettings.Normalize()
	if err := stagedSettings.Validate(); err != nil {
		return goerr.Wrap(err, "invalid settings for replace")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = staged
	m.highWater = model.MaxUserID(users)
	m.settings = stagedSettings.Record()
	return nil
}

// Reset drops every record and the stored settings
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = []*model.UserRecord{}
	m.highWater = 0
	m.settings = nil
}

func (m *Memory) Close() error {
	return nil
}

// wait simulates latency and reports cancellation the way a remote backend would
func (m *Memory) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(errors.Join(model.ErrBackend, err), "operation cancelled")
	}
	if m.latency <= 0 {
		return nil
	}

	timer := time.NewTimer(m.latency)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(errors.Join(model.ErrBackend, ctx.Err()), "operation cancelled")
	}
}
