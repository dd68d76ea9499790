package model

import "strings"

// ListDelimiter separates items of a list-valued field in storage shape.
// Items containing the delimiter are not supported.
const ListDelimiter = ","

// EncodeList joins a list-valued field into its storage representation.
// An empty or nil list encodes to "".
func EncodeList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return strings.Join(items, ListDelimiter)
}

// DecodeList splits a stored list-valued field. Blank items are dropped and
// the result is never nil.
func DecodeList(s string) []string {
	result := []string{}
	if strings.TrimSpace(s) == "" {
		return result
	}
	for _, item := range strings.Split(s, ListDelimiter) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		result = append(result, item)
	}
	return result
}

func copyList(items []string) []string {
	copied := make([]string, len(items))
	copy(copied, items)
	return copied
}
