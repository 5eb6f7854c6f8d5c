// Package validate provides functions to normalize chat answers and file names.
package validate

import (
	"errors"
	"regexp"
	"strings"
)

var (
	unsafeRx   = regexp.MustCompile(`[^a-zA-Z0-9_\-]+`)
	repeatedRx = regexp.MustCompile(`_{2,}`)
	dayRx      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// maxNameLen caps the customer part of generated file names.
const maxNameLen = 48

// Text trims surrounding whitespace and rejects empty answers.
func Text(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty answer")
	}
	return s, nil
}

// FileComponent reduces s to [a-zA-Z0-9_-] so it can be embedded in an
// object name. Falls back to def when nothing survives.
func FileComponent(s, def string) string {
	s = unsafeRx.ReplaceAllString(strings.TrimSpace(s), "_")
	s = repeatedRx.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_-")
	if len(s) > maxNameLen {
		s = strings.TrimRight(s[:maxNameLen], "_-")
	}
	if s == "" {
		return def
	}
	return s
}

// Day checks a yyyy-mm-dd day string.
func Day(d string) error {
	if !dayRx.MatchString(d) {
		return errors.New("date must be yyyy-mm-dd")
	}
	return nil
}
