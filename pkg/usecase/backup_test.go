package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/domain/types"
	"github.com/secmon-lab/instaflow/pkg/repository/memory"
	"github.com/secmon-lab/instaflow/pkg/service/archive"
	"github.com/secmon-lab/instaflow/pkg/usecase"
)

// blockingRepo holds Replace until release is closed
type blockingRepo struct {
	*memory.Memory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingRepo() *blockingRepo {
	return &blockingRepo{
		Memory:  memory.New(memory.WithClock(fixedClock)),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *blockingRepo) Replace(ctx context.Context, users []*model.User, settings *model.Settings) error {
	r.once.Do(func() { close(r.entered) })
	<-r.release
	return r.Memory.Replace(ctx, users, settings)
}

type memoryBlob struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryBlob() *memoryBlob {
	return &memoryBlob{files: map[string][]byte{}}
}

func (b *memoryBlob) Put(_ context.Context, name string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[name] = append([]byte(nil), data...)
	return "mem://" + name, nil
}

func (b *memoryBlob) Get(_ context.Context, name string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[name]
	if !ok {
		return nil, model.ErrNotFound
	}
	return data, nil
}

func seedUsers(t *testing.T, uc *usecase.UseCases) {
	t.Helper()
	ctx := context.Background()

	alice, err := uc.User.AddUser(ctx, &model.User{Username: "alice", AccountSource: "hashtag"})
	gt.NoError(t, err).Required()
	_, err = uc.User.UpdateUser(ctx, alice.ID, &model.UserPatch{
		FollowedBy:     ptr([]string{"main", "alt"}),
		FollowedBack:   ptr(true),
		DMSent:         ptr(true),
		ResponseStatus: ptr(types.ResponseStatusReplied),
		Notes:          ptr("likes coffee"),
	})
	gt.NoError(t, err).Required()

	_, err = uc.User.AddUser(ctx, &model.User{Username: "bob", AccountSource: "competitor"})
	gt.NoError(t, err).Required()

	spam, err := uc.User.AddUser(ctx, &model.User{Username: "spam", AccountSource: "manual"})
	gt.NoError(t, err).Required()
	_, err = uc.User.BlacklistUser(ctx, spam.ID)
	gt.NoError(t, err).Required()

	_, err = uc.Settings.UpdateSettings(ctx, &model.Settings{
		MyAccounts:           []string{"main", "@alt"},
		AccountSources:       []string{"hashtag", "competitor", "manual"},
		UnfollowReminderDays: 5,
		DMReminderDays:       2,
	})
	gt.NoError(t, err).Required()
}

func TestBackupUseCase_CreateBackup(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New(memory.WithClock(fixedClock)), usecase.WithClock(fixedClock))
	seedUsers(t, uc)

	file, err := uc.Backup.CreateBackup(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, file.Name).Equal("instaflow-backup-2024-09-01.zip")
	gt.Value(t, file.Message).Equal("Backup created successfully")
	gt.Value(t, file.Stats.Users).Equal(3)
	gt.Value(t, file.Stats.Version).Equal(model.BackupFormatVersion)
	gt.Value(t, file.Stats.Timestamp).Equal("2024-09-01T12:00:00.000Z")

	manifest, err := archive.Decode(archive.NewFile(file.Name, file.Data))
	gt.NoError(t, err).Required()
	gt.Array(t, manifest.Data.Blacklist).Length(1)
	gt.Value(t, manifest.Data.Blacklist[0].Username).Equal("spam")
	gt.Value(t, manifest.Data.Users[0].FollowedBy).Equal("main,alt")
}

func TestBackupUseCase_RoundTrip(t *testing.T) {
	ctx := context.Background()
	source := usecase.New(memory.New(memory.WithClock(fixedClock)), usecase.WithClock(fixedClock))
	seedUsers(t, source)

	file, err := source.Backup.CreateBackup(ctx)
	gt.NoError(t, err).Required()

	// the target holds unrelated data that must disappear
	target := usecase.New(memory.New(), usecase.WithClock(fixedClock))
	for _, name := range []string{"x1", "x2", "x3", "x4", "x5"} {
		_, err := target.User.AddUser(ctx, &model.User{Username: name, AccountSource: "location"})
		gt.NoError(t, err).Required()
	}

	outcome, err := target.Backup.RestoreBackup(ctx, archive.NewFile(file.Name, file.Data))
	gt.NoError(t, err).Required()
	gt.Bool(t, outcome.Success).True()
	gt.Value(t, outcome.Message).Equal("Backup restored successfully. 3 users and settings restored.")

	want, err := source.User.ListUsers(ctx, usecase.UserQuery{View: usecase.UserViewAll})
	gt.NoError(t, err).Required()
	got, err := target.User.ListUsers(ctx, usecase.UserQuery{View: usecase.UserViewAll})
	gt.NoError(t, err).Required()
	gt.Value(t, got).Equal(want)

	wantSettings, err := source.Settings.GetSettings(ctx)
	gt.NoError(t, err).Required()
	gotSettings, err := target.Settings.GetSettings(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, gotSettings).Equal(wantSettings)
	gt.Array(t, gotSettings.MyAccounts).Equal([]string{"main", "alt"})

	// IDs continue after the restored maximum
	created, err := target.User.AddUser(ctx, &model.User{Username: "new", AccountSource: "manual"})
	gt.NoError(t, err).Required()
	gt.Value(t, created.ID).Equal(model.UserID(4))
}

// negativeDaysArchive is a well formed archive whose settings break the
// reminder interval rule
func negativeDaysArchive(t *testing.T) []byte {
	t.Helper()
	users := []*model.User{{ID: 1, Username: "intruder", AccountSource: "manual", DateAdded: fixedClock()}}
	manifest := model.NewBackupManifest(users, &model.Settings{UnfollowReminderDays: -5, DMReminderDays: -1}, fixedClock())
	data, err := archive.Encode(manifest, fixedClock())
	gt.NoError(t, err).Required()
	return data
}

func TestBackupUseCase_RestoreInvalidArchive(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(memory.WithClock(fixedClock))
	uc := usecase.New(repo, usecase.WithClock(fixedClock))
	seedUsers(t, uc)

	before, err := repo.User().List(ctx)
	gt.NoError(t, err).Required()

	testCases := map[string]*archive.File{
		"not a zip extension": archive.NewFile("backup.json", []byte(`{}`)),
		"corrupted zip":       archive.NewFile("backup.zip", []byte("PK not really")),
		"empty file":          archive.NewFile("backup.zip", nil),
		"invalid settings":    archive.NewFile("backup.zip", negativeDaysArchive(t)),
	}

	for name, file := range testCases {
		t.Run(name, func(t *testing.T) {
			outcome, err := uc.Backup.RestoreBackup(ctx, file)
			gt.Value(t, err).NotNil()
			gt.Bool(t, outcome.Success).False()
			gt.String(t, outcome.Message).Contains("Failed to restore backup")

			after, err := repo.User().List(ctx)
			gt.NoError(t, err).Required()
			gt.Array(t, after).Length(len(before))
			gt.Bool(t, uc.Backup.IsRestoring()).False()

			settings, err := uc.Settings.GetSettings(ctx)
			gt.NoError(t, err).Required()
			gt.Value(t, settings.UnfollowReminderDays).Equal(5)
			gt.Value(t, settings.DMReminderDays).Equal(2)
		})
	}
}

func TestBackupUseCase_RestoreCancelledContext(t *testing.T) {
	source := usecase.New(memory.New(memory.WithClock(fixedClock)), usecase.WithClock(fixedClock))
	seedUsers(t, source)
	file, err := source.Backup.CreateBackup(context.Background())
	gt.NoError(t, err).Required()

	repo := memory.New()
	target := usecase.New(repo, usecase.WithClock(fixedClock))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := target.Backup.RestoreBackup(ctx, archive.NewFile(file.Name, file.Data))
	gt.NoError(t, err).Required()
	gt.Bool(t, outcome.Success).True()

	users, err := repo.User().List(context.Background())
	gt.NoError(t, err).Required()
	gt.Array(t, users).Length(3)
}

func TestBackupUseCase_ConcurrentRestoreIsBusy(t *testing.T) {
	source := usecase.New(memory.New(memory.WithClock(fixedClock)), usecase.WithClock(fixedClock))
	seedUsers(t, source)
	file, err := source.Backup.CreateBackup(context.Background())
	gt.NoError(t, err).Required()

	repo := newBlockingRepo()
	uc := usecase.New(repo, usecase.WithClock(fixedClock))

	done := make(chan error, 1)
	go func() {
		_, err := uc.Backup.RestoreBackup(context.Background(), archive.NewFile(file.Name, file.Data))
		done <- err
	}()

	select {
	case <-repo.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first restore did not start")
	}
	gt.Bool(t, uc.Backup.IsRestoring()).True()

	_, err = uc.Backup.RestoreBackup(context.Background(), archive.NewFile(file.Name, file.Data))
	gt.Error(t, err).Is(model.ErrBusy)

	close(repo.release)
	gt.NoError(t, <-done).Required()
	gt.Bool(t, uc.Backup.IsRestoring()).False()
}

func TestBackupUseCase_SaveAndLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("without storage", func(t *testing.T) {
		uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
		_, _, err := uc.Backup.SaveBackup(ctx)
		gt.Error(t, err).Is(model.ErrNotConfigured)
		_, err = uc.Backup.LoadBackup(ctx, "instaflow-backup-2024-09-01.zip")
		gt.Error(t, err).Is(model.ErrNotConfigured)
	})

	t.Run("with storage", func(t *testing.T) {
		blob := newMemoryBlob()
		uc := usecase.New(memory.New(memory.WithClock(fixedClock)),
			usecase.WithClock(fixedClock),
			usecase.WithBlobStorage(blob),
		)
		seedUsers(t, uc)

		file, location, err := uc.Backup.SaveBackup(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, location).Equal("mem://instaflow-backup-2024-09-01.zip")

		loaded, err := uc.Backup.LoadBackup(ctx, file.Name)
		gt.NoError(t, err).Required()
		result := uc.Backup.ValidateBackupFile(loaded)
		gt.Bool(t, result.Valid).True()
		gt.Value(t, result.Stats.Users).Equal(3)

		_, err = uc.Backup.LoadBackup(ctx, "missing.zip")
		gt.Error(t, err).Is(model.ErrNotFound)
	})
}
