package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/domain/types"
)

func ptr[T any](v T) *T {
	return &v
}

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"alice", "alice"},
		{"@alice", "alice"},
		{"  @alice  ", "alice"},
		{"", ""},
		{"@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			gt.Value(t, model.NormalizeUsername(tt.input)).Equal(tt.expected)
		})
	}
}

func TestSameUsername(t *testing.T) {
	gt.Bool(t, model.SameUsername("Alice", "@alice")).True()
	gt.Bool(t, model.SameUsername("alice", "alicia")).False()
}

func TestPrepareDraft(t *testing.T) {
	t.Run("valid draft is normalized", func(t *testing.T) {
		draft := &model.User{Username: "@alice", AccountSource: "hashtag", DMSent: true}
		got, err := model.PrepareDraft(draft, testNow)
		gt.NoError(t, err).Required()

		gt.Value(t, got.Username).Equal("alice")
		gt.Value(t, got.ResponseStatus).Equal(types.ResponseStatusNone)
		gt.Array(t, got.FollowedBy).Length(0)
		gt.Value(t, got.FollowDate).Nil()
		gt.Bool(t, got.DMSentDate.Equal(testNow)).True()

		// draft itself is untouched
		gt.Value(t, draft.Username).Equal("@alice")
		gt.Value(t, draft.DMSentDate).Nil()
	})

	t.Run("missing username", func(t *testing.T) {
		_, err := model.PrepareDraft(&model.User{Username: " @ ", AccountSource: "hashtag"}, testNow)
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := model.PrepareDraft(&model.User{Username: "alice"}, testNow)
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := model.PrepareDraft(&model.User{
			Username:       "alice",
			AccountSource:  "hashtag",
			ResponseStatus: "Unknown",
		}, testNow)
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("nil draft", func(t *testing.T) {
		_, err := model.PrepareDraft(nil, testNow)
		gt.Error(t, err).Is(model.ErrValidation)
	})
}

func TestMergePatch(t *testing.T) {
	earlier := testNow.Add(-48 * time.Hour)
	base := &model.User{
		ID:             1,
		Username:       "alice",
		AccountSource:  "hashtag",
		FollowedBy:     []string{},
		ResponseStatus: types.ResponseStatusNone,
		Notes:          "note",
	}

	t.Run("followedBack alone leaves dm fields", func(t *testing.T) {
		got, err := model.MergePatch(base, &model.UserPatch{FollowedBack: ptr(true)}, testNow)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.FollowedBack).True()
		gt.Bool(t, got.DMSent).False()
		gt.Value(t, got.DMSentDate).Nil()
		gt.Value(t, got.Notes).Equal("note")
		gt.Bool(t, base.FollowedBack).False()
	})

	t.Run("first follower stamps now", func(t *testing.T) {
		got, err := model.MergePatch(base, &model.UserPatch{FollowedBy: &[]string{"main"}}, testNow)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.FollowDate.Equal(testNow)).True()
	})

	t.Run("explicit follow date wins", func(t *testing.T) {
		got, err := model.MergePatch(base, &model.UserPatch{
			FollowedBy: &[]string{"main"},
			FollowDate: &earlier,
		}, testNow)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.FollowDate.Equal(earlier)).True()
	})

	t.Run("existing follow date kept on further followers", func(t *testing.T) {
		followed := base.Clone()
		followed.FollowedBy = []string{"main"}
		followed.FollowDate = &earlier

		got, err := model.MergePatch(followed, &model.UserPatch{FollowedBy: &[]string{"main", "alt"}}, testNow)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.FollowDate.Equal(earlier)).True()
	})

	t.Run("dm sent stamps date and unsending clears it", func(t *testing.T) {
		sent, err := model.MergePatch(base, &model.UserPatch{DMSent: ptr(true)}, testNow)
		gt.NoError(t, err).Required()
		gt.Bool(t, sent.DMSentDate.Equal(testNow)).True()

		unsent, err := model.MergePatch(sent, &model.UserPatch{DMSent: ptr(false)}, testNow)
		gt.NoError(t, err).Required()
		gt.Value(t, unsent.DMSentDate).Nil()
	})

	t.Run("empty username rejected", func(t *testing.T) {
		_, err := model.MergePatch(base, &model.UserPatch{Username: ptr("@")}, testNow)
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("nil patch rejected", func(t *testing.T) {
		_, err := model.MergePatch(base, nil, testNow)
		gt.Error(t, err).Is(model.ErrValidation)
	})
}

func TestUserRecordConversion(t *testing.T) {
	u := &model.User{
		ID:             4,
		Username:       "dave",
		DateAdded:      testNow,
		AccountSource:  "manual",
		FollowedBy:     []string{"main", "alt"},
		FollowDate:     &testNow,
		ResponseStatus: types.ResponseStatusBlocked,
	}

	rec := u.Record()
	gt.Value(t, rec.FollowedBy).Equal("main,alt")

	back := rec.User()
	gt.Array(t, back.FollowedBy).Equal([]string{"main", "alt"})
	gt.Value(t, back.ResponseStatus).Equal(types.ResponseStatusBlocked)
	gt.Bool(t, back.FollowDate.Equal(testNow)).True()

	rec.ResponseStatus = ""
	gt.Value(t, rec.User().ResponseStatus).Equal(types.ResponseStatusNone)
}

func TestValidateUserSet(t *testing.T) {
	tests := []struct {
		name    string
		users   []*model.User
		wantErr bool
	}{
		{name: "empty set", users: []*model.User{}},
		{name: "valid set", users: []*model.User{{ID: 2, Username: "a"}, {ID: 1, Username: "b"}}},
		{name: "zero id", users: []*model.User{{ID: 0, Username: "a"}}, wantErr: true},
		{name: "duplicate id", users: []*model.User{{ID: 1, Username: "a"}, {ID: 1, Username: "b"}}, wantErr: true},
		{name: "missing username", users: []*model.User{{ID: 1}}, wantErr: true},
		{name: "nil entry", users: []*model.User{nil}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := model.ValidateUserSet(tt.users)
			if tt.wantErr {
				gt.Error(t, err).Is(model.ErrValidation)
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestMaxUserID(t *testing.T) {
	gt.Value(t, model.MaxUserID(nil)).Equal(model.UserID(0))
	gt.Value(t, model.MaxUserID([]*model.User{{ID: 3}, {ID: 9}, {ID: 2}})).Equal(model.UserID(9))
}

func TestActiveAndBlacklistedUsers(t *testing.T) {
	users := []*model.User{
		{ID: 1, IsBlacklisted: false},
		{ID: 2, IsBlacklisted: true},
		{ID: 3, IsBlacklisted: false},
	}

	gt.Array(t, userIDs(model.ActiveUsers(users))).Equal([]model.UserID{1, 3})
	gt.Array(t, userIDs(model.BlacklistedUsers(users))).Equal([]model.UserID{2})
}
