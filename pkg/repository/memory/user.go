package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

type userRepository struct {
	m *Memory
}

// indexOf returns the position of id in records, or -1. Caller holds the lock.
func (r *userRepository) indexOf(id model.UserID) int {
	for i, rec := range r.m.records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	if err := r.m.wait(ctx); err != nil {
		return nil, err
	}

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	users := make([]*model.User, len(r.m.records))
	for i, rec := range r.m.records {
		users[i] = rec.User()
	}
	return users, nil
}

func (r *userRepository) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	if err := r.m.wait(ctx); err != nil {
		return nil, err
	}

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, goerr.Wrap(model.ErrNotFound, "user not found", goerr.V(model.UserIDKey, id))
	}
	return r.m.records[idx].User(), nil
}

func (r *userRepository) Create(ctx context.Context, draft *model.User) (*model.User, error) {
	if err := r.m.wait(ctx); err != nil {
		return nil, err
	}

	now := r.m.now()
	created, err := model.PrepareDraft(draft, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create user")
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	// Deleted IDs are never handed out again
	r.m.highWater++
	created.ID = r.m.highWater
	created.DateAdded = now

	rec := created.Record()
	r.m.records = append(r.m.records, rec)
	return rec.User(), nil
}

func (r *userRepository) Update(ctx context.Context, id model.UserID, patch *model.UserPatch) (*model.User, error) {
	if err := r.m.wait(ctx); err != nil {
		return nil, err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, goerr.Wrap(model.ErrNotFound, "user not found", goerr.V(model.UserIDKey, id))
	}

	merged, err := model.MergePatch(r.m.records[idx].User(), patch, r.m.now())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update user")
	}

	rec := merged.Record()
	r.m.records[idx] = rec
	return rec.User(), nil
}

func (r *userRepository) Delete(ctx context.Context, id model.UserID) error {
	if err := r.m.wait(ctx); err != nil {
		return err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return goerr.Wrap(model.ErrNotFound, "user not found", goerr.V(model.UserIDKey, id))
	}

	r.m.records = append(r.m.records[:idx], r.m.records[idx+1:]...)
	return nil
}
