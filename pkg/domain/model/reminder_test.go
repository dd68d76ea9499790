package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

func TestDueReminders(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	daysAgo := func(d int) *time.Time {
		v := now.Add(-time.Duration(d) * 24 * time.Hour)
		return &v
	}

	settings := &model.Settings{UnfollowReminderDays: 7, DMReminderDays: 3}
	users := []*model.User{
		{ID: 1, Username: "stale", FollowedBy: []string{"main"}, FollowDate: daysAgo(8)},
		{ID: 2, Username: "fresh", FollowedBy: []string{"main"}, FollowDate: daysAgo(2)},
		{ID: 3, Username: "exact", FollowedBy: []string{"main"}, FollowDate: daysAgo(7)},
		{ID: 4, Username: "dmdue", FollowedBy: []string{"main"}, FollowDate: daysAgo(4), FollowedBack: true},
		{ID: 5, Username: "dmdone", FollowedBy: []string{"main"}, FollowDate: daysAgo(10), FollowedBack: true, DMSent: true},
		{ID: 6, Username: "blocked", FollowedBy: []string{"main"}, FollowDate: daysAgo(30), IsBlacklisted: true},
		{ID: 7, Username: "gone", FollowedBy: []string{"main"}, FollowDate: daysAgo(30), Unfollowed: true},
		{ID: 8, Username: "notyet", FollowedBy: []string{}},
	}

	got := model.DueReminders(users, settings, now)
	gt.Array(t, got).Length(3)

	gt.Value(t, got[0].UserID).Equal(model.UserID(1))
	gt.Value(t, got[0].Kind).Equal(model.ReminderUnfollow)
	gt.Bool(t, got[0].DueSince.Equal(*daysAgo(1))).True()

	gt.Value(t, got[1].UserID).Equal(model.UserID(3))
	gt.Value(t, got[1].Kind).Equal(model.ReminderUnfollow)

	gt.Value(t, got[2].UserID).Equal(model.UserID(4))
	gt.Value(t, got[2].Kind).Equal(model.ReminderDM)
	gt.Value(t, got[2].Username).Equal("dmdue")
}

func TestFormatReminderDigest(t *testing.T) {
	digest := model.FormatReminderDigest([]*model.Reminder{
		{Kind: model.ReminderUnfollow, UserID: 1, Username: "stale"},
		{Kind: model.ReminderDM, UserID: 4, Username: "dmdue"},
	})

	gt.String(t, digest).Contains("InstaFlow reminders (2)")
	gt.String(t, digest).Contains("@stale")
	gt.String(t, digest).Contains("Send DM (followed back):\n@dmdue")
}
