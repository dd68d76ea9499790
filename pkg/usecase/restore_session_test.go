package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/repository/memory"
	"github.com/secmon-lab/instaflow/pkg/service/archive"
	"github.com/secmon-lab/instaflow/pkg/usecase"
)

func backupFixture(t *testing.T) *archive.File {
	t.Helper()
	source := usecase.New(memory.New(memory.WithClock(fixedClock)), usecase.WithClock(fixedClock))
	seedUsers(t, source)
	file, err := source.Backup.CreateBackup(context.Background())
	gt.NoError(t, err).Required()
	return archive.NewFile(file.Name, file.Data)
}

func TestRestoreSession_HappyPath(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := usecase.New(repo, usecase.WithClock(fixedClock))

	session := uc.Backup.NewRestoreSession()
	gt.Value(t, session.State()).Equal(usecase.RestoreStateIdle)

	result, err := session.SelectFile(backupFixture(t))
	gt.NoError(t, err).Required()
	gt.Bool(t, result.Valid).True()
	gt.Value(t, session.State()).Equal(usecase.RestoreStateFileSelected)

	status := session.Status()
	gt.Value(t, status.FileName).Equal("instaflow-backup-2024-09-01.zip")
	gt.Value(t, status.Stats.Users).Equal(3)

	gt.NoError(t, session.RequestRestore()).Required()
	gt.Value(t, session.State()).Equal(usecase.RestoreStateAwaitingConfirmation)

	outcome, err := session.Confirm(ctx)
	gt.NoError(t, err).Required()
	gt.Bool(t, outcome.Success).True()
	gt.Value(t, session.State()).Equal(usecase.RestoreStateIdle)

	status = session.Status()
	gt.Value(t, status.FileName).Equal("")
	gt.Value(t, status.LastOutcome).NotNil()
	gt.Bool(t, status.LastOutcome.Success).True()

	users, err := repo.User().List(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, users).Length(3)
}

func TestRestoreSession_InvalidFileStaysIdle(t *testing.T) {
	uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
	session := uc.Backup.NewRestoreSession()

	result, err := session.SelectFile(archive.NewFile("backup.txt", []byte("hello")))
	gt.NoError(t, err).Required()
	gt.Bool(t, result.Valid).False()
	gt.String(t, result.Error).Contains("File must be a ZIP archive")
	gt.Value(t, session.State()).Equal(usecase.RestoreStateIdle)

	// an invalid reselection drops a previously selected file
	_, err = session.SelectFile(backupFixture(t))
	gt.NoError(t, err).Required()
	_, err = session.SelectFile(archive.NewFile("backup.zip", []byte("garbage")))
	gt.NoError(t, err).Required()
	gt.Value(t, session.State()).Equal(usecase.RestoreStateIdle)
	gt.Value(t, session.Status().FileName).Equal("")
}

func TestRestoreSession_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
	session := uc.Backup.NewRestoreSession()

	gt.Error(t, session.RequestRestore()).Is(model.ErrInvalidState)
	_, err := session.Confirm(ctx)
	gt.Error(t, err).Is(model.ErrInvalidState)

	_, err = session.SelectFile(backupFixture(t))
	gt.NoError(t, err).Required()
	_, err = session.Confirm(ctx)
	gt.Error(t, err).Is(model.ErrInvalidState)

	gt.NoError(t, session.RequestRestore()).Required()
	_, err = session.SelectFile(backupFixture(t))
	gt.Error(t, err).Is(model.ErrInvalidState)
	gt.Error(t, session.RequestRestore()).Is(model.ErrInvalidState)
}

func TestRestoreSession_CancelLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := usecase.New(repo, usecase.WithClock(fixedClock))
	_, err := uc.User.AddUser(ctx, &model.User{Username: "keep", AccountSource: "manual"})
	gt.NoError(t, err).Required()

	session := uc.Backup.NewRestoreSession()
	_, err = session.SelectFile(backupFixture(t))
	gt.NoError(t, err).Required()
	gt.NoError(t, session.Cancel()).Required()
	gt.Value(t, session.State()).Equal(usecase.RestoreStateIdle)

	_, err = session.SelectFile(backupFixture(t))
	gt.NoError(t, err).Required()
	gt.NoError(t, session.RequestRestore()).Required()
	gt.NoError(t, session.Cancel()).Required()
	gt.Value(t, session.State()).Equal(usecase.RestoreStateIdle)

	users, err := repo.User().List(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, users).Length(1)
	gt.Value(t, users[0].Username).Equal("keep")
}

func TestRestoreSession_BusyAcrossSessions(t *testing.T) {
	repo := newBlockingRepo()
	uc := usecase.New(repo, usecase.WithClock(fixedClock))

	first := uc.Backup.NewRestoreSession()
	second := uc.Backup.NewRestoreSession()
	for _, s := range []*usecase.RestoreSession{first, second} {
		_, err := s.SelectFile(backupFixture(t))
		gt.NoError(t, err).Required()
		gt.NoError(t, s.RequestRestore()).Required()
	}

	done := make(chan error, 1)
	go func() {
		_, err := first.Confirm(context.Background())
		done <- err
	}()

	select {
	case <-repo.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first restore did not start")
	}

	gt.Value(t, first.State()).Equal(usecase.RestoreStateRestoring)
	gt.Error(t, first.Cancel()).Is(model.ErrInvalidState)
	_, err := first.Confirm(context.Background())
	gt.Error(t, err).Is(model.ErrBusy)

	_, err = second.Confirm(context.Background())
	gt.Error(t, err).Is(model.ErrBusy)
	gt.Value(t, second.State()).Equal(usecase.RestoreStateAwaitingConfirmation)

	close(repo.release)
	gt.NoError(t, <-done).Required()
	gt.Value(t, first.State()).Equal(usecase.RestoreStateIdle)

	outcome, err := second.Confirm(context.Background())
	gt.NoError(t, err).Required()
	gt.Bool(t, outcome.Success).True()
}

func TestRestoreSession_Registry(t *testing.T) {
	uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
	session := uc.Backup.NewRestoreSession()

	found, err := uc.Backup.RestoreSession(session.ID())
	gt.NoError(t, err).Required()
	gt.Value(t, found).Equal(session)

	gt.NoError(t, uc.Backup.CloseRestoreSession(session.ID())).Required()
	_, err = uc.Backup.RestoreSession(session.ID())
	gt.Error(t, err).Is(model.ErrNotFound)
	gt.Error(t, uc.Backup.CloseRestoreSession(session.ID())).Is(model.ErrNotFound)
}

// manualClock is a clock the test moves forward explicitly
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRestoreSession_ConfirmReleasesSession(t *testing.T) {
	uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
	session := uc.Backup.NewRestoreSession()

	_, err := session.SelectFile(backupFixture(t))
	gt.NoError(t, err).Required()
	gt.NoError(t, session.RequestRestore()).Required()
	_, err = session.Confirm(context.Background())
	gt.NoError(t, err).Required()

	_, err = uc.Backup.RestoreSession(session.ID())
	gt.Error(t, err).Is(model.ErrNotFound)
	gt.Value(t, uc.Backup.OpenRestoreSessions()).Equal(0)
	gt.Value(t, session.Status().LastOutcome).NotNil()
}

func TestRestoreSession_PruneIdle(t *testing.T) {
	clock := &manualClock{now: fixedNow}
	repo := newBlockingRepo()
	uc := usecase.New(repo, usecase.WithClock(clock.Now))

	abandoned := make([]*usecase.RestoreSession, 3)
	for i := range abandoned {
		abandoned[i] = uc.Backup.NewRestoreSession()
		_, err := abandoned[i].SelectFile(backupFixture(t))
		gt.NoError(t, err).Required()
	}

	running := uc.Backup.NewRestoreSession()
	_, err := running.SelectFile(backupFixture(t))
	gt.NoError(t, err).Required()
	gt.NoError(t, running.RequestRestore()).Required()
	done := make(chan error, 1)
	go func() {
		_, err := running.Confirm(context.Background())
		done <- err
	}()
	select {
	case <-repo.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("restore did not start")
	}

	gt.Value(t, uc.Backup.PruneRestoreSessions(usecase.RestoreSessionTTL)).Equal(0)

	clock.Advance(usecase.RestoreSessionTTL + time.Minute)
	gt.Value(t, uc.Backup.PruneRestoreSessions(usecase.RestoreSessionTTL)).Equal(3)
	for _, s := range abandoned {
		_, err := uc.Backup.RestoreSession(s.ID())
		gt.Error(t, err).Is(model.ErrNotFound)
	}

	// the running session survives the sweep
	_, err = uc.Backup.RestoreSession(running.ID())
	gt.NoError(t, err)

	close(repo.release)
	gt.NoError(t, <-done).Required()
	gt.Value(t, uc.Backup.OpenRestoreSessions()).Equal(0)
}

func TestRestoreSession_CapEvictsLeastRecentlyUsed(t *testing.T) {
	clock := &manualClock{now: fixedNow}
	uc := usecase.New(memory.New(), usecase.WithClock(clock.Now))

	sessions := make([]*usecase.RestoreSession, usecase.MaxRestoreSessions)
	for i := range sessions {
		sessions[i] = uc.Backup.NewRestoreSession()
		clock.Advance(time.Second)
	}
	// touching the first session makes the second the oldest
	gt.NoError(t, sessions[0].Cancel()).Required()
	clock.Advance(time.Second)

	extra := uc.Backup.NewRestoreSession()
	gt.Value(t, uc.Backup.OpenRestoreSessions()).Equal(usecase.MaxRestoreSessions)

	_, err := uc.Backup.RestoreSession(sessions[1].ID())
	gt.Error(t, err).Is(model.ErrNotFound)
	_, err = uc.Backup.RestoreSession(sessions[0].ID())
	gt.NoError(t, err)
	_, err = uc.Backup.RestoreSession(extra.ID())
	gt.NoError(t, err)
}
