package logutil

import "strings"

// Sanitize strips newlines and control characters from strings that originate
// outside the process (router list fields, remote file names) so a crafted
// value cannot forge extra log lines.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
