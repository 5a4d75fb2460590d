package execution

import "strings"

// Normalize canonicalizes program output for comparison: every line is
// trimmed, blank lines are dropped and the rest are joined with "\n".
func Normalize(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}
