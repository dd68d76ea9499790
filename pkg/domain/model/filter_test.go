package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/domain/types"
)

func filterFixture() []*model.User {
	return []*model.User{
		{ID: 1, Username: "alice", AccountSource: "hashtag", FollowedBy: []string{"main"}, FollowedBack: true, DMSent: true, ResponseStatus: types.ResponseStatusReplied, Notes: "Loves coffee"},
		{ID: 2, Username: "bob", AccountSource: "hashtag", FollowedBy: []string{"alt"}, FollowedBack: false, ResponseStatus: types.ResponseStatusNone},
		{ID: 3, Username: "carol", AccountSource: "competitor", FollowedBy: []string{"main", "alt"}, FollowedBack: true, ResponseStatus: types.ResponseStatusNone},
		{ID: 4, Username: "dave", AccountSource: "hashtag", FollowedBy: []string{"main"}, FollowedBack: true, DMSent: true, ResponseStatus: types.ResponseStatusIgnored, Unfollowed: true},
		{ID: 5, Username: "erin", AccountSource: "location", FollowedBy: []string{}, ResponseStatus: types.ResponseStatusNone, Notes: "hashtag #travel"},
	}
}

func userIDs(users []*model.User) []model.UserID {
	ids := make([]model.UserID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func TestFilterUsers(t *testing.T) {
	tests := []struct {
		name     string
		search   string
		filter   model.UserFilter
		expected []model.UserID
	}{
		{
			name:     "no constraints returns everything in order",
			expected: []model.UserID{1, 2, 3, 4, 5},
		},
		{
			name:     "source and followed back are AND-combined",
			filter:   model.UserFilter{AccountSource: "hashtag", FollowedBack: "true"},
			expected: []model.UserID{1, 4},
		},
		{
			name:     "followed back false",
			filter:   model.UserFilter{FollowedBack: "false"},
			expected: []model.UserID{2, 5},
		},
		{
			name:     "followedBy membership",
			filter:   model.UserFilter{FollowedBy: "alt"},
			expected: []model.UserID{2, 3},
		},
		{
			name:     "response status exact match",
			filter:   model.UserFilter{ResponseStatus: "Replied"},
			expected: []model.UserID{1},
		},
		{
			name:     "dm sent and unfollowed",
			filter:   model.UserFilter{DMSent: "true", Unfollowed: "false"},
			expected: []model.UserID{1},
		},
		{
			name:     "search matches username case-insensitively",
			search:   "ALI",
			expected: []model.UserID{1},
		},
		{
			name:     "search matches source and notes",
			search:   "hashtag",
			expected: []model.UserID{1, 2, 4, 5},
		},
		{
			name:     "search combined with filter",
			search:   "coffee",
			filter:   model.UserFilter{AccountSource: "competitor"},
			expected: []model.UserID{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := model.FilterUsers(filterFixture(), tt.search, tt.filter)
			gt.Array(t, userIDs(got)).Equal(tt.expected)
		})
	}
}

func TestFilterUsersDoesNotModifyInput(t *testing.T) {
	users := filterFixture()
	_ = model.FilterUsers(users, "a", model.UserFilter{AccountSource: "hashtag"})

	gt.Array(t, users).Length(5)
	gt.Value(t, users[0].ID).Equal(model.UserID(1))
	gt.Value(t, users[4].ID).Equal(model.UserID(5))
}

func TestFilterUsersPartition(t *testing.T) {
	filters := []model.UserFilter{
		{},
		{AccountSource: "hashtag"},
		{FollowedBy: "main", FollowedBack: "true"},
		{DMSent: "false"},
		{ResponseStatus: "None", Unfollowed: "false"},
		{AccountSource: "location", FollowedBack: "true"},
	}

	for _, f := range filters {
		users := filterFixture()
		got := model.FilterUsers(users, "", f)

		included := make(map[model.UserID]bool)
		for _, u := range got {
			gt.Bool(t, f.Match(u)).True()
			included[u.ID] = true
		}
		for _, u := range users {
			if !included[u.ID] {
				gt.Bool(t, f.Match(u)).False()
			}
		}
	}
}

func TestUserFilterIsEmpty(t *testing.T) {
	gt.Bool(t, model.UserFilter{}.IsEmpty()).True()
	gt.Bool(t, model.UserFilter{DMSent: "true"}.IsEmpty()).False()
}
