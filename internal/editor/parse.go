package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
)

// ParsePath converts a form field name into a Path. Both the dotted form
// "sessions.0.slice.sst" and the bracket form "sessions[0].slice.sst" are
// accepted. Purely numeric segments become index segments.
func ParsePath(s string) (document.Path, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("parse path: empty")
	}

	var p document.Path
	for _, part := range strings.Split(s, ".") {
		name, rest, _ := strings.Cut(part, "[")
		if name == "" && rest == "" {
			return nil, fmt.Errorf("parse path %q: empty segment", s)
		}
		if name != "" {
			n, numeric, ok := parseIndex(name)
			switch {
			case ok:
				p = append(p, document.Index(n))
			case numeric:
				return nil, fmt.Errorf("parse path %q: bad index %q", s, name)
			default:
				p = append(p, document.Key(name))
			}
		}
		for rest != "" {
			idx, tail, ok := strings.Cut(rest, "]")
			if !ok {
				return nil, fmt.Errorf("parse path %q: unterminated index", s)
			}
			n, _, ok := parseIndex(idx)
			if !ok {
				return nil, fmt.Errorf("parse path %q: bad index %q", s, idx)
			}
			p = append(p, document.Index(n))
			if tail == "" {
				break
			}
			if !strings.HasPrefix(tail, "[") {
				return nil, fmt.Errorf("parse path %q: unexpected %q", s, tail)
			}
			rest = tail[1:]
		}
	}
	return p, nil
}

// MustParsePath is like ParsePath but panics on error. It is meant for
// paths written in source.
func MustParsePath(s string) document.Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// parseIndex reads a segment made only of digits. numeric reports whether
// s has that form; ok is false as well when the number overflows an int.
func parseIndex(s string) (n int, numeric, ok bool) {
	if s == "" {
		return 0, false, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, false
	}
	return n, true, true
}
