package model

import (
	"slices"
	"strings"
)

// UserFilter holds column constraints for FilterUsers. An empty string means
// the column is unconstrained. Boolean columns take the tokens "true" and "false".
type UserFilter struct {
	AccountSource  string `json:"accountSource"`
	FollowedBy     string `json:"followedBy"`
	FollowedBack   string `json:"followedBack"`
	DMSent         string `json:"dmSent"`
	ResponseStatus string `json:"responseStatus"`
	Unfollowed     string `json:"unfollowed"`
}

// IsEmpty reports whether no column constraint is set
func (f UserFilter) IsEmpty() bool {
	return f == UserFilter{}
}

// FilterUsers returns users matching the search term and every active
// constraint, preserving input order. The input slice is not modified.
func FilterUsers(users []*User, search string, filter UserFilter) []*User {
	term := strings.ToLower(search)

	result := make([]*User, 0, len(users))
	for _, u := range users {
		if u == nil {
			continue
		}
		if term != "" && !matchesSearch(u, term) {
			continue
		}
		if !filter.Match(u) {
			continue
		}
		result = append(result, u)
	}
	return result
}

// Match reports whether u satisfies every active constraint
func (f UserFilter) Match(u *User) bool {
	if f.AccountSource != "" && u.AccountSource != f.AccountSource {
		return false
	}
	if f.FollowedBy != "" && !slices.Contains(u.FollowedBy, f.FollowedBy) {
		return false
	}
	if f.FollowedBack != "" && u.FollowedBack != parseToken(f.FollowedBack) {
		return false
	}
	if f.DMSent != "" && u.DMSent != parseToken(f.DMSent) {
		return false
	}
	if f.ResponseStatus != "" && string(u.ResponseStatus) != f.ResponseStatus {
		return false
	}
	if f.Unfollowed != "" && u.Unfollowed != parseToken(f.Unfollowed) {
		return false
	}
	return true
}

func matchesSearch(u *User, term string) bool {
	return strings.Contains(strings.ToLower(u.Username), term) ||
		strings.Contains(strings.ToLower(u.AccountSource), term) ||
		strings.Contains(strings.ToLower(u.Notes), term)
}

// parseToken maps the literal "true" to true and anything else to false
func parseToken(token string) bool {
	return token == "true"
}
