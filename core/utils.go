package core

import "strings"

// CleanString normalizes free-text input: surrounding whitespace is trimmed
// and, when `lower` is set, the result is lower-cased (emails, lookup keys).
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}
