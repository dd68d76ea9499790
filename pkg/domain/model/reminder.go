package model

import (
	"fmt"
	"strings"
	"time"
)

// ReminderKind identifies what follow-up action a reminder asks for
type ReminderKind string

const (
	// ReminderUnfollow asks to unfollow a user who has not followed back
	ReminderUnfollow ReminderKind = "unfollow"
	// ReminderDM asks to message a user who followed back
	ReminderDM ReminderKind = "dm"
)

// Reminder is a follow-up action that became due
type Reminder struct {
	Kind     ReminderKind `json:"kind"`
	UserID   UserID       `json:"userId"`
	Username string       `json:"username"`
	DueSince time.Time    `json:"dueSince"`
}

const day = 24 * time.Hour

// DueReminders returns reminders due at now for active users, in input order.
// A user is due for unfollow when it was followed UnfollowReminderDays ago
// without following back, and due for a DM when it followed back, no DM was
// sent and the follow is DMReminderDays old.
func DueReminders(users []*User, settings *Settings, now time.Time) []*Reminder {
	var reminders []*Reminder

	unfollowAfter := time.Duration(settings.UnfollowReminderDays) * day
	dmAfter := time.Duration(settings.DMReminderDays) * day

	for _, u := range users {
		if u.IsBlacklisted || u.Unfollowed || !u.IsFollowed() || u.FollowDate == nil {
			continue
		}

		switch {
		case !u.FollowedBack:
			due := u.FollowDate.Add(unfollowAfter)
			if !now.Before(due) {
				reminders = append(reminders, &Reminder{
					Kind:     ReminderUnfollow,
					UserID:   u.ID,
					Username: u.Username,
					DueSince: due,
				})
			}
		case !u.DMSent:
			due := u.FollowDate.Add(dmAfter)
			if !now.Before(due) {
				reminders = append(reminders, &Reminder{
					Kind:     ReminderDM,
					UserID:   u.ID,
					Username: u.Username,
					DueSince: due,
				})
			}
		}
	}

	return reminders
}

// FormatReminderDigest renders reminders as a plain text message
func FormatReminderDigest(reminders []*Reminder) string {
	var unfollow, dm []string
	for _, r := range reminders {
		switch r.Kind {
		case ReminderUnfollow:
			unfollow = append(unfollow, "@"+r.Username)
		case ReminderDM:
			dm = append(dm, "@"+r.Username)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "InstaFlow reminders (%d)\n", len(reminders))
	if len(unfollow) > 0 {
		fmt.Fprintf(&b, "\nUnfollow (no follow back):\n%s\n", strings.Join(unfollow, "\n"))
	}
	if len(dm) > 0 {
		fmt.Fprintf(&b, "\nSend DM (followed back):\n%s\n", strings.Join(dm, "\n"))
	}
	return b.String()
}
