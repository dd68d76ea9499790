package model

import (
	"math"
	"sort"

	"github.com/secmon-lab/instaflow/pkg/domain/types"
)

// UserStats aggregates outreach progress over active users
type UserStats struct {
	Total          int            `json:"total"`
	Followed       int            `json:"followed"`
	FollowedBack   int            `json:"followedBack"`
	DMsSent        int            `json:"dmsSent"`
	Replies        int            `json:"replies"`
	Unfollowed     int            `json:"unfollowed"`
	Blacklisted    int            `json:"blacklisted"`
	ToFollow       int            `json:"toFollow"`
	ToDM           int            `json:"toDM"`
	AwaitingReply  int            `json:"awaitingReply"`
	FollowBackRate float64        `json:"followBackRate"`
	ResponseRate   float64        `json:"responseRate"`
	RecentlyAdded  []*User        `json:"recentlyAdded"`
	BySource       map[string]int `json:"bySource"`
}

const recentUserCount = 5

// ComputeUserStats builds dashboard statistics. Blacklisted users are counted
// but excluded from every other figure.
func ComputeUserStats(users []*User) *UserStats {
	stats := &UserStats{
		BySource: make(map[string]int),
	}

	active := make([]*User, 0, len(users))
	for _, u := range users {
		if u.IsBlacklisted {
			stats.Blacklisted++
			continue
		}
		active = append(active, u)
	}

	for _, u := range active {
		stats.Total++
		stats.BySource[u.AccountSource]++

		if u.IsFollowed() {
			stats.Followed++
		} else {
			stats.ToFollow++
		}
		if u.FollowedBack {
			stats.FollowedBack++
			if !u.DMSent {
				stats.ToDM++
			}
		}
		if u.DMSent {
			stats.DMsSent++
			if !u.ResponseStatus.IsAnswered() {
				stats.AwaitingReply++
			}
		}
		if u.ResponseStatus == types.ResponseStatusReplied {
			stats.Replies++
		}
		if u.Unfollowed {
			stats.Unfollowed++
		}
	}

	stats.FollowBackRate = percentage(stats.FollowedBack, stats.Followed)
	stats.ResponseRate = percentage(stats.Replies, stats.DMsSent)

	recent := make([]*User, len(active))
	copy(recent, active)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].DateAdded.After(recent[j].DateAdded)
	})
	if len(recent) > recentUserCount {
		recent = recent[:recentUserCount]
	}
	stats.RecentlyAdded = recent

	return stats
}

// percentage returns part/whole*100 rounded to one decimal, or 0 when whole is 0
func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}
