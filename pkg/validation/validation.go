package validation

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Errors maps a field name to the first problem found with it.
type Errors map[string]string

func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

func (e Errors) Empty() bool { return len(e) == 0 }

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Err returns nil when nothing was recorded.
func (e Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// MinLen counts runes after trimming surrounding whitespace.
func MinLen(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
