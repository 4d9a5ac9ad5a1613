// Package strings provides string slice utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim trims every value and drops empty strings and repeats,
// keeping the first occurrence. It never returns nil for non-nil input.
//
//	DedupeAndTrim([]string{"  index fallback ", "offline", "index fallback", ""})
//	// []string{"index fallback", "offline"}
func DedupeAndTrim(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
