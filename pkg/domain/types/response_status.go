package types

// ResponseStatus represents how a user reacted to a direct message
type ResponseStatus string

const (
	ResponseStatusNone    ResponseStatus = "None"
	ResponseStatusReplied ResponseStatus = "Replied"
	ResponseStatusIgnored ResponseStatus = "Ignored"
	ResponseStatusBlocked ResponseStatus = "Blocked"
)

// IsValid checks if the response status is valid
func (s ResponseStatus) IsValid() bool {
	switch s {
	case ResponseStatusNone,
		ResponseStatusReplied,
		ResponseStatusIgnored,
		ResponseStatusBlocked:
		return true
	default:
		return false
	}
}

// IsAnswered reports whether the user has reacted in any way
func (s ResponseStatus) IsAnswered() bool {
	return s != "" && s != ResponseStatusNone
}

// String returns the string representation of the response status
func (s ResponseStatus) String() string {
	return string(s)
}
