package document

import (
	"strconv"
	"strings"
)

// Segment is one step of a Path: either a named object member or an
// array position.
type Segment struct {
	name    string
	index   int
	isIndex bool
}

// Key returns a segment addressing the object member name.
func Key(name string) Segment {
	return Segment{name: name}
}

// Index returns a segment addressing array position i.
func Index(i int) Segment {
	return Segment{index: i, isIndex: true}
}

// IsIndex reports whether s addresses an array position.
func (s Segment) IsIndex() bool { return s.isIndex }

// Name returns the member name of a key segment.
func (s Segment) Name() string { return s.name }

// Position returns the array position of an index segment.
func (s Segment) Position() int { return s.index }

// String implements fmt.Stringer.
func (s Segment) String() string {
	if s.isIndex {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	return s.name
}

// Path addresses a node inside a document, starting at the root object.
type Path []Segment

// NewPath builds a Path from its segments.
func NewPath(segments ...Segment) Path {
	p := make(Path, len(segments))
	copy(p, segments)
	return p
}

// Keys builds a Path made only of key segments.
func Keys(names ...string) Path {
	p := make(Path, len(names))
	for i, n := range names {
		p[i] = Key(n)
	}
	return p
}

// Append returns a new Path with segments added. The receiver is not
// modified.
func (p Path) Append(segments ...Segment) Path {
	out := make(Path, 0, len(p)+len(segments))
	out = append(out, p...)
	return append(out, segments...)
}

// Equal reports whether p and o address the same node.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// String renders the path as "sessions[0].slice.sst".
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if !s.isIndex && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}
