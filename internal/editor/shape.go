package editor

import (
	"fmt"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
)

// Shape describes one kind of document the editor can manage.
//
// Path patterns in Repeatable and WriteOnce may contain index segments;
// an index segment in a pattern matches any array position.
type Shape struct {
	// Name identifies the shape in logs and errors.
	Name string

	// Template is the blank document. Every repeatable array in it must
	// hold exactly one default element.
	Template document.Value

	// Required lists leaves that must be present and non-empty on submit.
	Required []document.Path

	// Repeatable lists arrays that must always hold at least one element.
	Repeatable []document.Path

	// WriteOnce lists fields that can only be written in create mode.
	WriteOnce []document.Path

	// Key is the field that identifies a stored document.
	Key document.Path

	// Identity lists top-level members stripped from edit payloads.
	Identity []string

	// Check runs extra validation and returns the offending field names.
	Check func(doc document.Value) []string
}

// Blank returns an independent copy of the template.
func (s Shape) Blank() document.Value {
	return s.Template.Clone()
}

// IsRepeatable reports whether the array at p is repeatable.
func (s Shape) IsRepeatable(p document.Path) bool {
	return matchAny(s.Repeatable, p)
}

// IsWriteOnce reports whether p is a write-once field or lies under one.
func (s Shape) IsWriteOnce(p document.Path) bool {
	for _, pattern := range s.WriteOnce {
		if len(p) >= len(pattern) && match(pattern, p[:len(pattern)]) {
			return true
		}
	}
	return false
}

// ElementTemplate returns the default element for the array at p, taken
// from the template's first item.
func (s Shape) ElementTemplate(p document.Path) (document.Value, error) {
	arr, err := document.Get(s.Template, templatePath(p))
	if err != nil {
		return document.Value{}, fmt.Errorf("%s: no template for %s: %w", s.Name, p, err)
	}
	if arr.Kind() != document.KindArray {
		return document.Value{}, fmt.Errorf("%s: template for %s: %w", s.Name, p, ErrNotAnArray)
	}
	first, ok := arr.At(0)
	if !ok {
		return document.Value{}, fmt.Errorf("%s: template for %s is empty: %w", s.Name, p, ErrPathNotFound)
	}
	return first.Clone(), nil
}

// Conform fills members the template defines but doc lacks, and seeds
// absent or empty repeatable arrays with their default element. Members of
// doc that the template does not know are kept.
func (s Shape) Conform(doc document.Value) document.Value {
	out := fillMissing(s.Template, doc)
	for _, p := range s.Repeatable {
		if hasIndex(p) {
			continue
		}
		cur, err := document.Get(out, p)
		if err == nil && (cur.Kind() != document.KindArray || cur.Len() > 0) {
			continue
		}
		elem, err := s.ElementTemplate(p)
		if err != nil {
			continue
		}
		if seeded, err := document.Set(out, p, document.CreateObjects, document.Array(elem)); err == nil {
			out = seeded
		}
	}
	return out
}

func fillMissing(tmpl, doc document.Value) document.Value {
	if tmpl.Kind() != document.KindObject || doc.Kind() != document.KindObject {
		return doc
	}
	out := doc
	for _, k := range tmpl.Keys() {
		want, _ := tmpl.Field(k)
		have, ok := doc.Field(k)
		switch {
		case !ok:
			out = out.With(k, want.Clone())
		case want.Kind() == document.KindObject && have.Kind() == document.KindObject:
			out = out.With(k, fillMissing(want, have))
		}
	}
	return out
}

func templatePath(p document.Path) document.Path {
	out := make(document.Path, len(p))
	for i, seg := range p {
		if seg.IsIndex() {
			seg = document.Index(0)
		}
		out[i] = seg
	}
	return out
}

func hasIndex(p document.Path) bool {
	for _, seg := range p {
		if seg.IsIndex() {
			return true
		}
	}
	return false
}

func matchAny(patterns []document.Path, p document.Path) bool {
	for _, pattern := range patterns {
		if len(pattern) == len(p) && match(pattern, p) {
			return true
		}
	}
	return false
}

func match(pattern, p document.Path) bool {
	for i, seg := range pattern {
		if seg.IsIndex() != p[i].IsIndex() {
			return false
		}
		if !seg.IsIndex() && seg.Name() != p[i].Name() {
			return false
		}
	}
	return true
}
