package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type userDocument struct {
	ID             int64      `firestore:"id"`
	Seq            int64      `firestore:"seq"`
	Username       string     `firestore:"username"`
	DateAdded      time.Time  `firestore:"date_added"`
	AccountSource  string     `firestore:"account_source"`
	FollowedBy     string     `firestore:"followed_by"`
	FollowDate     *time.Time `firestore:"follow_date"`
	FollowedBack   bool       `firestore:"followed_back"`
	DMSent         bool       `firestore:"dm_sent"`
	DMSentDate     *time.Time `firestore:"dm_sent_date"`
	ResponseStatus string     `firestore:"response_status"`
	Unfollowed     bool       `firestore:"unfollowed"`
	Notes          string     `firestore:"notes"`
	IsBlacklisted  bool       `firestore:"is_blacklisted"`
}

// counterDocument tracks the ID high-water mark and the storage order position
type counterDocument struct {
	Value int64 `firestore:"value"`
	Seq   int64 `firestore:"seq"`
}

func toUserDocument(r *model.UserRecord, seq int64) *userDocument {
	return &userDocument{
		ID:             int64(r.ID),
		Seq:            seq,
		Username:       r.Username,
		DateAdded:      r.DateAdded,
		AccountSource:  r.AccountSource,
		FollowedBy:     r.FollowedBy,
		FollowDate:     r.FollowDate,
		FollowedBack:   r.FollowedBack,
		DMSent:         r.DMSent,
		DMSentDate:     r.DMSentDate,
		ResponseStatus: string(r.ResponseStatus),
		Unfollowed:     r.Unfollowed,
		Notes:          r.Notes,
		IsBlacklisted:  r.IsBlacklisted,
	}
}

func (d *userDocument) toRecord() *model.UserRecord {
	return &model.UserRecord{
		ID:             model.UserID(d.ID),
		Username:       d.Username,
		DateAdded:      d.DateAdded,
		AccountSource:  d.AccountSource,
		FollowedBy:     d.FollowedBy,
		FollowDate:     d.FollowDate,
		FollowedBack:   d.FollowedBack,
		DMSent:         d.DMSent,
		DMSentDate:     d.DMSentDate,
		ResponseStatus: types.ResponseStatus(d.ResponseStatus),
		Unfollowed:     d.Unfollowed,
		Notes:          d.Notes,
		IsBlacklisted:  d.IsBlacklisted,
	}
}

type userRepository struct {
	client           *firestore.Client
	collectionPrefix string
	now              func() time.Time
}

func newUserRepository(client *firestore.Client) *userRepository {
	return &userRepository{
		client:           client,
		collectionPrefix: "",
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// UsersCollection returns the name of the user collection for prefix
func UsersCollection(prefix string) string {
	if prefix != "" {
		return prefix + "_users"
	}
	return "users"
}

func (r *userRepository) usersCollection() string {
	return UsersCollection(r.collectionPrefix)
}

func (r *userRepository) counterCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_counters"
	}
	return "counters"
}

func (r *userRepository) counterRef() *firestore.DocumentRef {
	return r.client.Collection(r.counterCollection()).Doc("user_counter")
}

func (r *userRepository) userRef(id model.UserID) *firestore.DocumentRef {
	return r.client.Collection(r.usersCollection()).Doc(docID(id))
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	iter := r.client.Collection(r.usersCollection()).OrderBy("seq", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	users := []*model.User{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, backendError(err, "failed to iterate users")
		}

		var userDoc userDocument
		if err := doc.DataTo(&userDoc); err != nil {
			return nil, backendError(err, "failed to unmarshal user", goerr.V("doc_id", doc.Ref.ID))
		}
		users = append(users, userDoc.toRecord().User())
	}

	return users, nil
}

func (r *userRepository) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	doc, err := r.userRef(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(model.ErrNotFound, "user not found", goerr.V(model.UserIDKey, id))
		}
		return nil, backendError(err, "failed to get user", goerr.V(model.UserIDKey, id))
	}

	var userDoc userDocument
	if err := doc.DataTo(&userDoc); err != nil {
		return nil, backendError(err, "failed to unmarshal user", goerr.V(model.UserIDKey, id))
	}
	return userDoc.toRecord().User(), nil
}

// Create allocates the next ID and writes the document in one transaction
func (r *userRepository) Create(ctx context.Context, draft *model.User) (*model.User, error) {
	now := r.now()
	created, err := model.PrepareDraft(draft, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create user")
	}
	created.DateAdded = now

	counterRef := r.counterRef()
	var stored *userDocument

	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var counter counterDocument
		snap, err := tx.Get(counterRef)
		switch {
		case err == nil:
			if err := snap.DataTo(&counter); err != nil {
				return goerr.Wrap(err, "failed to get counter value")
			}
		case isNotFound(err):
			// first user
		default:
			return goerr.Wrap(err, "failed to get counter")
		}

		counter.Value++
		counter.Seq++
		user := created.Clone()
		user.ID = model.UserID(counter.Value)

		doc := toUserDocument(user.Record(), counter.Seq)
		if err := tx.Set(counterRef, &counter); err != nil {
			return goerr.Wrap(err, "failed to update counter")
		}
		if err := tx.Create(r.userRef(user.ID), doc); err != nil {
			return goerr.Wrap(err, "failed to create user document")
		}
		stored = doc
		return nil
	})
	if err != nil {
		return nil, backendError(err, "failed to create user", goerr.V(model.UsernameKey, created.Username))
	}

	return stored.toRecord().User(), nil
}

func (r *userRepository) Update(ctx context.Context, id model.UserID, patch *model.UserPatch) (*model.User, error) {
	ref := r.userRef(id)
	now := r.now()
	var stored *userDocument

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return goerr.Wrap(model.ErrNotFound, "user not found", goerr.V(model.UserIDKey, id))
			}
			return goerr.Wrap(err, "failed to get user")
		}

		var current userDocument
		if err := snap.DataTo(&current); err != nil {
			return goerr.Wrap(err, "failed to unmarshal user")
		}

		merged, err := model.MergePatch(current.toRecord().User(), patch, now)
		if err != nil {
			return err
		}

		doc := toUserDocument(merged.Record(), current.Seq)
		if err := tx.Set(ref, doc); err != nil {
			return goerr.Wrap(err, "failed to write user")
		}
		stored = doc
		return nil
	})
	if err != nil {
		return nil, backendError(err, "failed to update user", goerr.V(model.UserIDKey, id))
	}

	return stored.toRecord().User(), nil
}

func (r *userRepository) Delete(ctx context.Context, id model.UserID) error {
	ref := r.userRef(id)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if isNotFound(err) {
				return goerr.Wrap(model.ErrNotFound, "user not found", goerr.V(model.UserIDKey, id))
			}
			return goerr.Wrap(err, "failed to get user")
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return backendError(err, "failed to delete user", goerr.V(model.UserIDKey, id))
	}

	return nil
}
