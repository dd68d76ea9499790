package firestore

import (
	"context"
	"errors"
	"strconv"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/interfaces"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Firestore struct {
	client       *firestore.Client
	user         *userRepository
	settingsRepo *settingsRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.user.collectionPrefix = prefix
		f.settingsRepo.collectionPrefix = prefix
	}
}

// WithDefaultSettings sets the settings returned before any were stored
func WithDefaultSettings(s *model.Settings) Option {
	return func(f *Firestore) {
		f.settingsRepo.defaults = s.Clone()
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID),
		)
	}

	f := &Firestore{
		client:       client,
		user:         newUserRepository(client),
		settingsRepo: newSettingsRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.user
}

func (f *Firestore) Settings() interfaces.SettingsRepository {
	return f.settingsRepo
}

// Replace swaps the whole user collection, the ID counter and the settings
// document inside a single transaction.
func (f *Firestore) Replace(ctx context.Context, users []*model.User, settings *model.Settings) error {
	if settings == nil {
		return goerr.Wrap(model.ErrValidation, "settings are required for replace")
	}
	if err := model.ValidateUserSet(users); err != nil {
		return goerr.Wrap(err, "invalid user set for replace")
	}

	staged := make([]*userDocument, len(users))
	keep := make(map[string]struct{}, len(users))
	now := f.user.now()
	for i, u := range users {
		restored := u.Clone()
		restored.Normalize(now)
		staged[i] = toUserDocument(restored.Record(), int64(i+1))
		keep[docID(restored.ID)] = struct{}{}
	}
	stagedSettings := settings.Clone()
	stagedSettings.Normalize()
	if err := stagedSettings.Validate(); err != nil {
		return goerr.Wrap(err, "invalid settings for replace")
	}

	usersCol := f.client.Collection(f.user.usersCollection())
	counterRef := f.user.counterRef()
	settingsRef := f.settingsRepo.settingsRef()

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(usersCol).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to read users")
		}

		for _, doc := range existing {
			if _, ok := keep[doc.Ref.ID]; ok {
				continue
			}
			if err := tx.Delete(doc.Ref); err != nil {
				return goerr.Wrap(err, "failed to delete user", goerr.V("doc_id", doc.Ref.ID))
			}
		}
		for _, doc := range staged {
			if err := tx.Set(usersCol.Doc(docID(model.UserID(doc.ID))), doc); err != nil {
				return goerr.Wrap(err, "failed to write user", goerr.V(model.UserIDKey, doc.ID))
			}
		}

		counter := &counterDocument{
			Value: int64(model.MaxUserID(users)),
			Seq:   int64(len(users)),
		}
		if err := tx.Set(counterRef, counter); err != nil {
			return goerr.Wrap(err, "failed to reset counter")
		}
		return tx.Set(settingsRef, toSettingsDocument(stagedSettings.Record()))
	})
	if err != nil {
		return backendError(err, "failed to replace store")
	}

	return nil
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func docID(id model.UserID) string {
	return strconv.FormatInt(int64(id), 10)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// backendError marks an opaque service failure with ErrBackend unless it
// already carries one of the domain sentinels.
func backendError(err error, msg string, opts ...goerr.Option) error {
	for _, sentinel := range []error{
		model.ErrValidation,
		model.ErrNotFound,
		model.ErrBackend,
	} {
		if errors.Is(err, sentinel) {
			return goerr.Wrap(err, msg, opts...)
		}
	}
	return goerr.Wrap(errors.Join(model.ErrBackend, err), msg, opts...)
}
