package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/interfaces"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/secmon-lab/instaflow/pkg/utils/metrics"
	"golang.org/x/sync/errgroup"
)

// UserView selects which part of the collection a listing covers
type UserView string

const (
	UserViewActive      UserView = "active"
	UserViewBlacklisted UserView = "blacklisted"
	UserViewAll         UserView = "all"
)

// ParseUserView parses a view name. An empty string selects the active view.
func ParseUserView(s string) (UserView, error) {
	switch UserView(s) {
	case "", UserViewActive:
		return UserViewActive, nil
	case UserViewBlacklisted, UserViewAll:
		return UserView(s), nil
	}
	return "", goerr.Wrap(model.ErrValidation, "invalid view", goerr.V("view", s))
}

// UserQuery describes a filtered listing
type UserQuery struct {
	View   UserView
	Search string
	Filter model.UserFilter
}

// BulkAddResult reports what BulkAddUsers did with each username
type BulkAddResult struct {
	Added      []*model.User `json:"added"`
	Duplicates []string      `json:"duplicates"`
}

// CSVExport is a rendered CSV file
type CSVExport struct {
	FileName string
	Data     []byte
	Rows     int
}

// Dashboard combines statistics with the reminders currently due
type Dashboard struct {
	Stats        *model.UserStats  `json:"stats"`
	DueReminders []*model.Reminder `json:"dueReminders"`
}

type UserUseCase struct {
	repo interfaces.Repository
	now  func() time.Time

	// addMu serializes the duplicate check and the create
	addMu sync.Mutex
}

func NewUserUseCase(repo interfaces.Repository, now func() time.Time) *UserUseCase {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &UserUseCase{
		repo: repo,
		now:  now,
	}
}

func (uc *UserUseCase) ListUsers(ctx context.Context, q UserQuery) ([]*model.User, error) {
	users, err := uc.repo.User().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}

	switch q.View {
	case UserViewBlacklisted:
		users = model.BlacklistedUsers(users)
	case UserViewAll:
	default:
		users = model.ActiveUsers(users)
	}

	return model.FilterUsers(users, q.Search, q.Filter), nil
}

func (uc *UserUseCase) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	user, err := uc.repo.User().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user", goerr.V(model.UserIDKey, id))
	}
	return user, nil
}

// AddUser creates a user after checking that no active or blacklisted user
// has the same username.
func (uc *UserUseCase) AddUser(ctx context.Context, draft *model.User) (*model.User, error) {
	if draft == nil {
		return nil, goerr.Wrap(model.ErrValidation, "user is required")
	}

	uc.addMu.Lock()
	defer uc.addMu.Unlock()

	existing, err := uc.repo.User().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}
	if err := checkConflict(existing, draft.Username, 0); err != nil {
		return nil, err
	}

	fresh := draft.Clone()
	fresh.IsBlacklisted = false
	created, err := uc.repo.User().Create(ctx, fresh)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create user", goerr.V(model.UsernameKey, draft.Username))
	}

	metrics.UsersCreated.WithLabelValues("single").Inc()
	logging.From(ctx).Info("user added", "user_id", created.ID, "username", created.Username)
	return created, nil
}

// ParseUsernames splits text into one username per line. Leading "@" and
// blank lines are dropped.
func ParseUsernames(text string) []string {
	var usernames []string
	for _, line := range strings.Split(text, "\n") {
		name := model.NormalizeUsername(line)
		if name != "" {
			usernames = append(usernames, name)
		}
	}
	return usernames
}

// BulkAddUsers creates users for every username not already tracked.
// Usernames matching an existing user, blacklisted or not, or repeated in
// the input are reported as duplicates.
func (uc *UserUseCase) BulkAddUsers(ctx context.Context, usernames []string, accountSource string) (*BulkAddResult, error) {
	accountSource = strings.TrimSpace(accountSource)
	if accountSource == "" {
		return nil, goerr.Wrap(model.ErrValidation, "account source is required", goerr.V(model.FieldKey, "accountSource"))
	}

	names := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if name := model.NormalizeUsername(u); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, goerr.Wrap(model.ErrValidation, "at least one username is required", goerr.V(model.FieldKey, "usernames"))
	}

	uc.addMu.Lock()
	defer uc.addMu.Unlock()

	existing, err := uc.repo.User().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}

	known := make(map[string]struct{}, len(existing)+len(names))
	for _, u := range existing {
		known[strings.ToLower(u.Username)] = struct{}{}
	}

	result := &BulkAddResult{
		Added:      []*model.User{},
		Duplicates: []string{},
	}
	for _, name := range names {
		key := strings.ToLower(name)
		if _, dup := known[key]; dup {
			result.Duplicates = append(result.Duplicates, name)
			continue
		}

		created, err := uc.repo.User().Create(ctx, &model.User{
			Username:      name,
			AccountSource: accountSource,
		})
		if err != nil {
			return result, goerr.Wrap(err, "failed to create user", goerr.V(model.UsernameKey, name))
		}
		known[key] = struct{}{}
		result.Added = append(result.Added, created)
	}

	metrics.UsersCreated.WithLabelValues("bulk").Add(float64(len(result.Added)))
	logging.From(ctx).Info("bulk add finished",
		"added", len(result.Added),
		"duplicates", len(result.Duplicates),
	)
	return result, nil
}

func (uc *UserUseCase) UpdateUser(ctx context.Context, id model.UserID, patch *model.UserPatch) (*model.User, error) {
	if patch != nil && patch.Username != nil {
		uc.addMu.Lock()
		defer uc.addMu.Unlock()

		existing, err := uc.repo.User().List(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list users")
		}
		if err := checkConflict(existing, *patch.Username, id); err != nil {
			return nil, err
		}
	}

	updated, err := uc.repo.User().Update(ctx, id, patch)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update user", goerr.V(model.UserIDKey, id))
	}
	return updated, nil
}

func (uc *UserUseCase) BlacklistUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return uc.setBlacklisted(ctx, id, true)
}

func (uc *UserUseCase) UnblacklistUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return uc.setBlacklisted(ctx, id, false)
}

func (uc *UserUseCase) setBlacklisted(ctx context.Context, id model.UserID, blacklisted bool) (*model.User, error) {
	updated, err := uc.repo.User().Update(ctx, id, &model.UserPatch{IsBlacklisted: &blacklisted})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to change blacklist flag",
			goerr.V(model.UserIDKey, id),
			goerr.V("blacklisted", blacklisted),
		)
	}
	return updated, nil
}

func (uc *UserUseCase) DeleteUser(ctx context.Context, id model.UserID) error {
	if err := uc.repo.User().Delete(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete user", goerr.V(model.UserIDKey, id))
	}
	return nil
}

// Dashboard loads users and settings concurrently and computes statistics
// and due reminders.
func (uc *UserUseCase) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		users    []*model.User
		settings *model.Settings
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		users, err = uc.repo.User().List(ctx)
		if err != nil {
			return goerr.Wrap(err, "failed to list users")
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		settings, err = uc.repo.Settings().Get(ctx)
		if err != nil {
			return goerr.Wrap(err, "failed to get settings")
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	reminders := model.DueReminders(users, settings, uc.now())
	if reminders == nil {
		reminders = []*model.Reminder{}
	}
	return &Dashboard{
		Stats:        model.ComputeUserStats(users),
		DueReminders: reminders,
	}, nil
}

var csvHeader = []string{
	"username",
	"dateAdded",
	"accountSource",
	"followedBy",
	"followDate",
	"followedBack",
	"dmSent",
	"dmSentDate",
	"responseStatus",
	"unfollowed",
	"notes",
}

// ExportCSV renders active users as CSV. Values are quoted as needed, so
// delimiters in free text are preserved.
func (uc *UserUseCase) ExportCSV(ctx context.Context) (*CSVExport, error) {
	users, err := uc.ListUsers(ctx, UserQuery{View: UserViewActive})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, goerr.Wrap(err, "failed to write CSV header")
	}
	for _, u := range users {
		if err := w.Write(csvRow(u)); err != nil {
			return nil, goerr.Wrap(err, "failed to write CSV row", goerr.V(model.UserIDKey, u.ID))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, goerr.Wrap(err, "failed to flush CSV")
	}

	return &CSVExport{
		FileName: model.UsersCSVFileName(uc.now()),
		Data:     buf.Bytes(),
		Rows:     len(users),
	}, nil
}

func csvRow(u *model.User) []string {
	return []string{
		u.Username,
		formatTime(&u.DateAdded),
		u.AccountSource,
		strings.Join(u.FollowedBy, ";"),
		formatTime(u.FollowDate),
		yesNo(u.FollowedBack),
		yesNo(u.DMSent),
		formatTime(u.DMSentDate),
		string(u.ResponseStatus),
		yesNo(u.Unfollowed),
		u.Notes,
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(model.ManifestTimeLayout)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// checkConflict fails with ErrConflict when username is already used by a
// user other than self.
func checkConflict(users []*model.User, username string, self model.UserID) error {
	for _, u := range users {
		if u.ID == self || !model.SameUsername(u.Username, username) {
			continue
		}
		if u.IsBlacklisted {
			return goerr.Wrap(model.ErrConflict, "user is blacklisted",
				goerr.V(model.UsernameKey, username),
				goerr.V(model.UserIDKey, u.ID),
			)
		}
		return goerr.Wrap(model.ErrConflict, "user already exists",
			goerr.V(model.UsernameKey, username),
			goerr.V(model.UserIDKey, u.ID),
		)
	}
	return nil
}
