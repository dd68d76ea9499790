package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/types"
)

// UserID identifies a tracked account. IDs are positive and assigned by the store.
type UserID int64

// User is a tracked Instagram account in application shape
type User struct {
	ID             UserID               `json:"Id"`
	Username       string               `json:"username" validate:"required"`
	DateAdded      time.Time            `json:"dateAdded"`
	AccountSource  string               `json:"accountSource" validate:"required"`
	FollowedBy     []string             `json:"followedBy"`
	FollowDate     *time.Time           `json:"followDate"`
	FollowedBack   bool                 `json:"followedBack"`
	DMSent         bool                 `json:"dmSent"`
	DMSentDate     *time.Time           `json:"dmSentDate"`
	ResponseStatus types.ResponseStatus `json:"responseStatus" validate:"response_status"`
	Unfollowed     bool                 `json:"unfollowed"`
	Notes          string               `json:"notes"`
	IsBlacklisted  bool                 `json:"isBlacklisted"`
}

// UserRecord is the flat storage and wire shape of a User. List-valued
// fields are encoded with EncodeList.
type UserRecord struct {
	ID             UserID               `json:"Id"`
	Username       string               `json:"username"`
	DateAdded      time.Time            `json:"dateAdded"`
	AccountSource  string               `json:"accountSource"`
	FollowedBy     string               `json:"followedBy"`
	FollowDate     *time.Time           `json:"followDate"`
	FollowedBack   bool                 `json:"followedBack"`
	DMSent         bool                 `json:"dmSent"`
	DMSentDate     *time.Time           `json:"dmSentDate"`
	ResponseStatus types.ResponseStatus `json:"responseStatus"`
	Unfollowed     bool                 `json:"unfollowed"`
	Notes          string               `json:"notes"`
	IsBlacklisted  bool                 `json:"isBlacklisted"`
}

// UserPatch carries a partial update. Nil fields are left untouched.
type UserPatch struct {
	Username       *string               `json:"username,omitempty"`
	AccountSource  *string               `json:"accountSource,omitempty"`
	FollowedBy     *[]string             `json:"followedBy,omitempty"`
	FollowDate     *time.Time            `json:"followDate,omitempty"`
	FollowedBack   *bool                 `json:"followedBack,omitempty"`
	DMSent         *bool                 `json:"dmSent,omitempty"`
	DMSentDate     *time.Time            `json:"dmSentDate,omitempty"`
	ResponseStatus *types.ResponseStatus `json:"responseStatus,omitempty"`
	Unfollowed     *bool                 `json:"unfollowed,omitempty"`
	Notes          *string               `json:"notes,omitempty"`
	IsBlacklisted  *bool                 `json:"isBlacklisted,omitempty"`
}

// NormalizeUsername trims whitespace and a leading "@"
func NormalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}

// SameUsername compares usernames case-insensitively after normalization
func SameUsername(a, b string) bool {
	return strings.EqualFold(NormalizeUsername(a), NormalizeUsername(b))
}

// IsFollowed reports whether at least one of the operator's accounts follows the user
func (u *User) IsFollowed() bool {
	return len(u.FollowedBy) > 0
}

// IsActive reports whether the user belongs to active views
func (u *User) IsActive() bool {
	return !u.IsBlacklisted
}

// Validate checks fields required to persist a new user
func (u *User) Validate() error {
	if u == nil {
		return goerr.Wrap(ErrValidation, "user is required")
	}
	if err := validateStruct(u); err != nil {
		return goerr.Wrap(err, "invalid user", goerr.V(UsernameKey, u.Username))
	}
	return nil
}

// Normalize fills empty optional fields and enforces the date invariants:
// FollowDate is present iff FollowedBy is non-empty and DMSentDate is present iff DMSent.
func (u *User) Normalize(now time.Time) {
	u.Username = NormalizeUsername(u.Username)
	u.AccountSource = strings.TrimSpace(u.AccountSource)
	if u.FollowedBy == nil {
		u.FollowedBy = []string{}
	}
	if u.ResponseStatus == "" {
		u.ResponseStatus = types.ResponseStatusNone
	}

	if u.IsFollowed() {
		if u.FollowDate == nil {
			u.FollowDate = timePtr(now)
		}
	} else {
		u.FollowDate = nil
	}

	if u.DMSent {
		if u.DMSentDate == nil {
			u.DMSentDate = timePtr(now)
		}
	} else {
		u.DMSentDate = nil
	}
}

// Apply merges patch onto u. FollowDate is stamped with now when FollowedBy
// goes from empty to non-empty and DMSentDate when DMSent becomes true,
// unless the patch carries an explicit date.
func (u *User) Apply(p *UserPatch, now time.Time) {
	if p == nil {
		return
	}

	wasFollowed := u.IsFollowed()
	wasDMSent := u.DMSent

	if p.Username != nil {
		u.Username = NormalizeUsername(*p.Username)
	}
	if p.AccountSource != nil {
		u.AccountSource = strings.TrimSpace(*p.AccountSource)
	}
	if p.FollowedBy != nil {
		u.FollowedBy = copyList(*p.FollowedBy)
	}
	if p.FollowDate != nil {
		u.FollowDate = timePtr(*p.FollowDate)
	}
	if p.FollowedBack != nil {
		u.FollowedBack = *p.FollowedBack
	}
	if p.DMSent != nil {
		u.DMSent = *p.DMSent
	}
	if p.DMSentDate != nil {
		u.DMSentDate = timePtr(*p.DMSentDate)
	}
	if p.ResponseStatus != nil {
		u.ResponseStatus = *p.ResponseStatus
	}
	if p.Unfollowed != nil {
		u.Unfollowed = *p.Unfollowed
	}
	if p.Notes != nil {
		u.Notes = *p.Notes
	}
	if p.IsBlacklisted != nil {
		u.IsBlacklisted = *p.IsBlacklisted
	}

	if u.IsFollowed() && !wasFollowed && p.FollowDate == nil {
		u.FollowDate = timePtr(now)
	}
	if u.DMSent && !wasDMSent && p.DMSentDate == nil {
		u.DMSentDate = timePtr(now)
	}
	u.Normalize(now)
}

// Validate checks that set fields carry acceptable values
func (p *UserPatch) Validate() error {
	if p == nil {
		return goerr.Wrap(ErrValidation, "patch is required")
	}
	if p.Username != nil && NormalizeUsername(*p.Username) == "" {
		return goerr.Wrap(ErrValidation, "username must not be empty", goerr.V(FieldKey, "username"))
	}
	if p.AccountSource != nil && strings.TrimSpace(*p.AccountSource) == "" {
		return goerr.Wrap(ErrValidation, "accountSource must not be empty", goerr.V(FieldKey, "accountSource"))
	}
	if p.ResponseStatus != nil && !p.ResponseStatus.IsValid() {
		return goerr.Wrap(ErrValidation, "invalid responseStatus",
			goerr.V(FieldKey, "responseStatus"),
			goerr.V("value", *p.ResponseStatus),
		)
	}
	return nil
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	copied := *u
	copied.FollowedBy = copyList(u.FollowedBy)
	copied.FollowDate = copyTimePtr(u.FollowDate)
	copied.DMSentDate = copyTimePtr(u.DMSentDate)
	return &copied
}

// Record converts the user into storage shape
func (u *User) Record() *UserRecord {
	return &UserRecord{
		ID:             u.ID,
		Username:       u.Username,
		DateAdded:      u.DateAdded,
		AccountSource:  u.AccountSource,
		FollowedBy:     EncodeList(u.FollowedBy),
		FollowDate:     copyTimePtr(u.FollowDate),
		FollowedBack:   u.FollowedBack,
		DMSent:         u.DMSent,
		DMSentDate:     copyTimePtr(u.DMSentDate),
		ResponseStatus: u.ResponseStatus,
		Unfollowed:     u.Unfollowed,
		Notes:          u.Notes,
		IsBlacklisted:  u.IsBlacklisted,
	}
}

// User converts a stored record back into application shape
func (r *UserRecord) User() *User {
	status := r.ResponseStatus
	if status == "" {
		status = types.ResponseStatusNone
	}
	return &User{
		ID:             r.ID,
		Username:       r.Username,
		DateAdded:      r.DateAdded,
		AccountSource:  r.AccountSource,
		FollowedBy:     DecodeList(r.FollowedBy),
		FollowDate:     copyTimePtr(r.FollowDate),
		FollowedBack:   r.FollowedBack,
		DMSent:         r.DMSent,
		DMSentDate:     copyTimePtr(r.DMSentDate),
		ResponseStatus: status,
		Unfollowed:     r.Unfollowed,
		Notes:          r.Notes,
		IsBlacklisted:  r.IsBlacklisted,
	}
}

// Clone returns a deep copy of the record
func (r *UserRecord) Clone() *UserRecord {
	copied := *r
	copied.FollowDate = copyTimePtr(r.FollowDate)
	copied.DMSentDate = copyTimePtr(r.DMSentDate)
	return &copied
}

// ActiveUsers returns users that are not blacklisted, preserving order
func ActiveUsers(users []*User) []*User {
	result := make([]*User, 0, len(users))
	for _, u := range users {
		if u.IsActive() {
			result = append(result, u)
		}
	}
	return result
}

// BlacklistedUsers returns blacklisted users, preserving order
func BlacklistedUsers(users []*User) []*User {
	result := make([]*User, 0)
	for _, u := range users {
		if u.IsBlacklisted {
			result = append(result, u)
		}
	}
	return result
}

// BlacklistedRecords returns blacklisted records, preserving order
func BlacklistedRecords(records []*UserRecord) []*UserRecord {
	result := make([]*UserRecord, 0)
	for _, r := range records {
		if r.IsBlacklisted {
			result = append(result, r)
		}
	}
	return result
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// PrepareDraft returns a normalized copy of draft ready to be stored, or
// ErrValidation when required fields are missing. ID and DateAdded are left
// for the store to assign.
func PrepareDraft(draft *User, now time.Time) (*User, error) {
	if draft == nil {
		return nil, goerr.Wrap(ErrValidation, "user is required")
	}
	prepared := draft.Clone()
	prepared.Normalize(now)
	if err := prepared.Validate(); err != nil {
		return nil, err
	}
	return prepared, nil
}

// MergePatch validates patch and returns current with patch applied.
// current is not modified.
func MergePatch(current *User, patch *UserPatch, now time.Time) (*User, error) {
	if err := patch.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid patch", goerr.V(UserIDKey, current.ID))
	}
	merged := current.Clone()
	merged.Apply(patch, now)
	return merged, nil
}

// ValidateUserSet checks a complete user collection before it replaces a
// store: IDs must be positive and unique and usernames present.
func ValidateUserSet(users []*User) error {
	seen := make(map[UserID]struct{}, len(users))
	for i, u := range users {
		if u == nil {
			return goerr.Wrap(ErrValidation, "user entry is null", goerr.V("index", i))
		}
		if u.ID <= 0 {
			return goerr.Wrap(ErrValidation, "user ID must be positive", goerr.V("index", i), goerr.V(UserIDKey, u.ID))
		}
		if _, dup := seen[u.ID]; dup {
			return goerr.Wrap(ErrValidation, "duplicate user ID", goerr.V("index", i), goerr.V(UserIDKey, u.ID))
		}
		seen[u.ID] = struct{}{}
		if NormalizeUsername(u.Username) == "" {
			return goerr.Wrap(ErrValidation, "username is required", goerr.V("index", i), goerr.V(UserIDKey, u.ID))
		}
	}
	return nil
}

// MaxUserID returns the largest ID in users, or 0
func MaxUserID(users []*User) UserID {
	var highest UserID
	for _, u := range users {
		if u.ID > highest {
			highest = u.ID
		}
	}
	return highest
}
