package console

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
	"github.com/jaydenhoang5291/ue-profile/internal/editor"
)

// ErrInvalidEdit is returned for edits that cannot be parsed.
var ErrInvalidEdit = errors.New("invalid edit")

// Op is the kind of a string encoded edit.
type Op int

const (
	// OpSet writes a scalar: "plmnid.mcc=001".
	OpSet Op = iota
	// OpAdd appends the default element to an array: "sessions".
	OpAdd
	// OpRemove deletes an array item: "sessions.1".
	OpRemove
	// OpMerge merges a JSON value into an array item: "sessions.0.slice={\"sst\":5}".
	OpMerge
)

// String implements fmt.Stringer.
func (o Op) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpMerge:
		return "merge"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Edit is one parsed change to a session document.
type Edit struct {
	Op    Op
	Path  document.Path
	Raw   string
	Index int
}

// ParseEdit parses the string form of an edit of kind op.
//
//	set:    path=value
//	add:    arrayPath
//	remove: arrayPath.index or arrayPath[index]
//	merge:  arrayPath.index[.subPath]=json
func ParseEdit(op Op, s string) (Edit, error) {
	switch op {
	case OpSet, OpMerge:
		name, raw, ok := strings.Cut(s, "=")
		if !ok {
			return Edit{}, fmt.Errorf("%w: %s %q: expected path=value", ErrInvalidEdit, op, s)
		}
		path, err := editor.ParsePath(strings.TrimSpace(name))
		if err != nil {
			return Edit{}, fmt.Errorf("%w: %s: %v", ErrInvalidEdit, op, err)
		}
		return Edit{Op: op, Path: path, Raw: raw}, nil

	case OpAdd:
		path, err := editor.ParsePath(strings.TrimSpace(s))
		if err != nil {
			return Edit{}, fmt.Errorf("%w: add: %v", ErrInvalidEdit, err)
		}
		return Edit{Op: op, Path: path}, nil

	case OpRemove:
		path, err := editor.ParsePath(strings.TrimSpace(s))
		if err != nil {
			return Edit{}, fmt.Errorf("%w: remove: %v", ErrInvalidEdit, err)
		}
		last := path[len(path)-1]
		if !last.IsIndex() || len(path) < 2 {
			return Edit{}, fmt.Errorf("%w: remove %q: expected arrayPath.index", ErrInvalidEdit, s)
		}
		return Edit{Op: op, Path: path[:len(path)-1], Index: last.Position()}, nil

	default:
		return Edit{}, fmt.Errorf("%w: unknown op %s", ErrInvalidEdit, op)
	}
}

// String renders the edit in its parseable form.
func (e Edit) String() string {
	switch e.Op {
	case OpAdd:
		return e.Path.String()
	case OpRemove:
		return e.Path.Append(document.Index(e.Index)).String()
	default:
		return e.Path.String() + "=" + e.Raw
	}
}

// splitArrayPath splits p at its last index segment into the array path,
// the index and the path below the item.
func splitArrayPath(p document.Path) (document.Path, int, document.Path, bool) {
	for i := len(p) - 1; i > 0; i-- {
		if p[i].IsIndex() {
			return p[:i], p[i].Position(), p[i+1:], true
		}
	}
	return nil, 0, nil, false
}
