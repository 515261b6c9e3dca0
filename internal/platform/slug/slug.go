package slug

import (
	"regexp"
	"strings"
)

const maxLen = 60

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

// Make joins the non-empty parts into one lowercase, dash-separated file
// name stem.
func Make(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		s := nonAlphaNum.ReplaceAllString(strings.ToLower(strings.TrimSpace(part)), "-")
		if s = strings.Trim(s, "-"); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return "untitled"
	}
	out := strings.Join(cleaned, "-")
	if len(out) > maxLen {
		out = strings.TrimRight(out[:maxLen], "-")
	}
	return out
}
