package utils

import (
	"regexp"
	"strings"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
	subjectPrefixes  = regexp.MustCompile(`(?i)^(Re|Fwd|Fw)(\[\d+\])?:\s*`)
)

// NormalizeSubject removes prefixes like Re:, Fwd:, etc. from a subject
func NormalizeSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for subjectPrefixes.MatchString(subject) {
		subject = subjectPrefixes.ReplaceAllString(subject, "")
		subject = strings.TrimSpace(subject)
	}
	return subject
}

// Slugify lowercases and collapses everything outside [a-z0-9] into single
// dashes, capping the result at maxLen runes
func Slugify(s string, maxLen int) string {
	slug := slugInvalidChars.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "untitled"
	}
	if len(slug) > maxLen {
		slug = strings.Trim(slug[:maxLen], "-")
	}
	return slug
}
