package validate

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Error reports a rejected input field. Handlers map it to a 400 and must
// not touch any external service afterwards.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string { return e.Msg }

func errf(field, format string, args ...any) *Error {
	return &Error{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Free-text limits shared across handlers.
const (
	MaxTitleLen   = 200
	MaxTopicLen   = 200
	MaxMessageLen = 5000
	MaxHistoryLen = 2000
	MaxAnswerLen  = 2000
)

// UUID checks id syntax. Canonical lowercase/uppercase hex with dashes only;
// uuid.Parse also accepts urn: and braced forms, so reject those up front.
func UUID(field, value string) error {
	if len(value) != 36 {
		return errf(field, "Invalid %s", field)
	}
	if _, err := uuid.Parse(value); err != nil {
		return errf(field, "Invalid %s", field)
	}
	return nil
}

// ClampCount floors the value into [min, max], substituting def when the
// value is zero (i.e. absent from the JSON body).
func ClampCount(value, def, min, max int) int {
	if value == 0 {
		value = def
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Text requires a non-empty string and truncates it to maxLen.
func Text(field, value string, maxLen int) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", errf(field, "%s is required", field)
	}
	return Truncate(value, maxLen), nil
}

// Truncate cuts value to at most maxLen bytes without splitting a rune.
// Model output and user text are both clipped with this before persistence.
func Truncate(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	cut := value[:maxLen]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

// FileURL accepts only absolute http/https URLs.
func FileURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errf(field, "Invalid %s", field)
	}
	return nil
}
