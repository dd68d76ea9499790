package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/interfaces"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/service/archive"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/secmon-lab/instaflow/pkg/utils/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	// RestoreSessionTTL is how long an untouched restore session is kept
	RestoreSessionTTL = 30 * time.Minute
	// MaxRestoreSessions caps the sessions held at once
	MaxRestoreSessions = 8
)

type BackupUseCase struct {
	repo interfaces.Repository
	blob interfaces.BlobStorage
	now  func() time.Time

	// restoring is shared by every session so only one replace runs at a time
	restoring atomic.Bool

	sessionMu sync.Mutex
	sessions  map[string]*RestoreSession
}

func NewBackupUseCase(repo interfaces.Repository, blob interfaces.BlobStorage, now func() time.Time) *BackupUseCase {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &BackupUseCase{
		repo:     repo,
		blob:     blob,
		now:      now,
		sessions: make(map[string]*RestoreSession),
	}
}

// CreateBackup snapshots users and settings into a zip archive
func (uc *BackupUseCase) CreateBackup(ctx context.Context) (*model.BackupFile, error) {
	file, err := uc.createBackup(ctx)
	metrics.Backups.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create backup")
	}
	return file, nil
}

func (uc *BackupUseCase) createBackup(ctx context.Context) (*model.BackupFile, error) {
	var (
		users    []*model.User
		settings *model.Settings
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		users, err = uc.repo.User().List(egCtx)
		if err != nil {
			return goerr.Wrap(err, "failed to list users")
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		settings, err = uc.repo.Settings().Get(egCtx)
		if err != nil {
			return goerr.Wrap(err, "failed to get settings")
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	createdAt := uc.now()
	manifest := model.NewBackupManifest(users, settings, createdAt)
	data, err := archive.Encode(manifest, createdAt)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("backup created",
		"users", len(manifest.Data.Users),
		"blacklisted", len(manifest.Data.Blacklist),
		"size", len(data),
	)

	return &model.BackupFile{
		Name:    model.BackupFileName(createdAt),
		Data:    data,
		Message: "Backup created successfully",
		Stats:   manifest.Stats(),
	}, nil
}

// SaveBackup creates a backup and writes it to blob storage. It returns the
// file and the location it was written to.
func (uc *BackupUseCase) SaveBackup(ctx context.Context) (*model.BackupFile, string, error) {
	if uc.blob == nil {
		return nil, "", goerr.Wrap(model.ErrNotConfigured, "backup storage is not configured")
	}

	file, err := uc.CreateBackup(ctx)
	if err != nil {
		return nil, "", err
	}

	location, err := uc.blob.Put(ctx, file.Name, file.Data)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to store backup", goerr.V(BlobNameKey, file.Name))
	}
	return file, location, nil
}

// LoadBackup reads a stored archive by name
func (uc *BackupUseCase) LoadBackup(ctx context.Context, name string) (*archive.File, error) {
	if uc.blob == nil {
		return nil, goerr.Wrap(model.ErrNotConfigured, "backup storage is not configured")
	}

	data, err := uc.blob.Get(ctx, name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load backup", goerr.V(BlobNameKey, name))
	}
	return archive.NewFile(name, data), nil
}

// ValidateBackupFile never fails; problems are reported in the result
func (uc *BackupUseCase) ValidateBackupFile(file *archive.File) archive.ValidationResult {
	return archive.Validate(file)
}

// RestoreBackup decodes file independently of any earlier validation and
// replaces the whole store with its content. Nothing is modified unless
// decoding fully succeeds. Only one restore may run at a time; a concurrent
// request fails with ErrBusy. Once replacing begins it is not cancelled by ctx.
func (uc *BackupUseCase) RestoreBackup(ctx context.Context, file *archive.File) (*model.RestoreOutcome, error) {
	if !uc.restoring.CompareAndSwap(false, true) {
		return nil, goerr.Wrap(model.ErrBusy, "another restore is running")
	}
	defer uc.restoring.Store(false)

	outcome, err := uc.restore(ctx, file)
	metrics.Restores.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return &model.RestoreOutcome{
			Success: false,
			Message: "Failed to restore backup: " + err.Error(),
		}, goerr.Wrap(err, "failed to restore backup")
	}
	return outcome, nil
}

func (uc *BackupUseCase) restore(ctx context.Context, file *archive.File) (*model.RestoreOutcome, error) {
	manifest, err := archive.Decode(file)
	if err != nil {
		return nil, err
	}

	users := manifest.RestoredUsers()
	if err := uc.repo.Replace(context.WithoutCancel(ctx), users, manifest.Data.Settings); err != nil {
		return nil, goerr.Wrap(err, "failed to replace store")
	}

	logging.From(ctx).Info("backup restored",
		"users", len(users),
		"version", manifest.Version,
		"timestamp", manifest.Timestamp,
	)

	return &model.RestoreOutcome{
		Success: true,
		Message: fmt.Sprintf("Backup restored successfully. %d users and settings restored.", len(users)),
		Stats:   manifest.Stats(),
	}, nil
}

// IsRestoring reports whether a restore is running
func (uc *BackupUseCase) IsRestoring() bool {
	return uc.restoring.Load()
}

// NewRestoreSession starts a restore workflow in the Idle state and keeps it
// for later lookup by ID. Sessions idle longer than RestoreSessionTTL are
// dropped first; when MaxRestoreSessions are still open the least recently
// used one that is not restoring is evicted.
func (uc *BackupUseCase) NewRestoreSession() *RestoreSession {
	now := uc.now()
	s := &RestoreSession{
		id:      uuid.NewString(),
		backup:  uc,
		state:   RestoreStateIdle,
		touched: now,
	}

	uc.sessionMu.Lock()
	defer uc.sessionMu.Unlock()

	uc.pruneLocked(now, RestoreSessionTTL)
	if len(uc.sessions) >= MaxRestoreSessions {
		var oldest *RestoreSession
		var oldestAt time.Time
		for _, candidate := range uc.sessions {
			at, restoring := candidate.lastActivity()
			if restoring {
				continue
			}
			if oldest == nil || at.Before(oldestAt) {
				oldest, oldestAt = candidate, at
			}
		}
		if oldest != nil {
			delete(uc.sessions, oldest.id)
		}
	}

	uc.sessions[s.id] = s
	return s
}

// RestoreSession returns a session created by NewRestoreSession
func (uc *BackupUseCase) RestoreSession(id string) (*RestoreSession, error) {
	uc.sessionMu.Lock()
	defer uc.sessionMu.Unlock()

	s, ok := uc.sessions[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "restore session not found", goerr.V(SessionIDKey, id))
	}
	return s, nil
}

// CloseRestoreSession forgets a session that is not restoring
func (uc *BackupUseCase) CloseRestoreSession(id string) error {
	s, err := uc.RestoreSession(id)
	if err != nil {
		return err
	}
	if err := s.Cancel(); err != nil {
		return err
	}

	uc.forgetSession(id)
	return nil
}

// PruneRestoreSessions drops sessions with no activity for maxIdle. Sessions
// that are restoring are kept. It returns the number of dropped sessions.
func (uc *BackupUseCase) PruneRestoreSessions(maxIdle time.Duration) int {
	uc.sessionMu.Lock()
	defer uc.sessionMu.Unlock()
	return uc.pruneLocked(uc.now(), maxIdle)
}

// OpenRestoreSessions reports how many sessions are registered
func (uc *BackupUseCase) OpenRestoreSessions() int {
	uc.sessionMu.Lock()
	defer uc.sessionMu.Unlock()
	return len(uc.sessions)
}

// pruneLocked requires sessionMu
func (uc *BackupUseCase) pruneLocked(now time.Time, maxIdle time.Duration) int {
	pruned := 0
	for id, s := range uc.sessions {
		at, restoring := s.lastActivity()
		if restoring || now.Sub(at) < maxIdle {
			continue
		}
		delete(uc.sessions, id)
		pruned++
	}
	return pruned
}

func (uc *BackupUseCase) forgetSession(id string) {
	uc.sessionMu.Lock()
	defer uc.sessionMu.Unlock()
	delete(uc.sessions, id)
}
