package editor

import (
	"strconv"
	"strings"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
)

// Coerce converts raw form input into a leaf of the given kind.
//
// Strings are kept verbatim. Integers take the longest leading base-10
// prefix after optional whitespace and sign; input without one yields 0.
// A prefix outside the int64 range is clamped to math.MinInt64 or
// math.MaxInt64.
// Booleans accept anything strconv.ParseBool does plus "on", the value an
// HTML checkbox submits; anything else is false.
func Coerce(raw string, kind document.Kind) (document.Value, error) {
	switch kind {
	case document.KindString:
		return document.String(raw), nil
	case document.KindInteger:
		return document.Integer(parseLeadingInt(raw)), nil
	case document.KindBoolean:
		return document.Boolean(parseFlag(raw)), nil
	default:
		return document.Value{}, ErrKindMismatch
	}
}

func parseLeadingInt(raw string) int64 {
	s := strings.TrimLeft(raw, " \t\n\r\f\v")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	// ParseInt returns the nearest bound on overflow.
	n, _ := strconv.ParseInt(s[:end], 10, 64)
	return n
}

func parseFlag(raw string) bool {
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, "on") {
		return true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}
