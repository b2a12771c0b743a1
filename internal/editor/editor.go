package editor

import (
	"fmt"
	"strconv"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
)

// Mode tells whether the editor builds a new document or edits a stored
// one.
type Mode struct {
	edit     bool
	identity string
}

// CreateMode returns the mode for a new document.
func CreateMode() Mode { return Mode{} }

// EditMode returns the mode for editing the stored document identified by
// identity.
func EditMode(identity string) Mode {
	return Mode{edit: true, identity: identity}
}

// IsEdit reports whether m is edit mode.
func (m Mode) IsEdit() bool { return m.edit }

// Identity returns the bound identity in edit mode.
func (m Mode) Identity() string { return m.identity }

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m.edit {
		return "edit(" + m.identity + ")"
	}
	return "create"
}

// Editor owns one in-memory document and applies path-addressed edits to
// it. Each successful mutation replaces the document with a new root;
// values returned earlier are never modified. An Editor is not safe for
// concurrent use.
type Editor struct {
	shape Shape
	mode  Mode
	doc   document.Value
}

// New returns an editor in create mode holding a blank document of shape.
func New(shape Shape) *Editor {
	e := &Editor{shape: shape}
	e.reset(shape.Template, CreateMode())
	return e
}

// NewEdit returns an editor in edit mode bound to existing. The identity
// is read from the shape's key field.
func NewEdit(shape Shape, existing document.Value) (*Editor, error) {
	e := &Editor{shape: shape}
	if err := e.Initialize(existing, EditMode("")); err != nil {
		return nil, err
	}
	return e, nil
}

// Initialize replaces the editor state with an independent copy of source.
// An edit mode with an empty identity takes it from the shape's key field.
func (e *Editor) Initialize(source document.Value, mode Mode) error {
	if source.Kind() != document.KindObject {
		return fmt.Errorf("initialize %s: %w", e.shape.Name, ErrNotAnObject)
	}
	if mode.IsEdit() && mode.Identity() == "" {
		key, err := document.Get(source, e.shape.Key)
		if err != nil || key.AsString() == "" {
			return fmt.Errorf("initialize %s: %s: %w", e.shape.Name, e.shape.Key, ErrMissingRequiredField)
		}
		mode = EditMode(key.AsString())
	}
	e.reset(source, mode)
	return nil
}

func (e *Editor) reset(source document.Value, mode Mode) {
	e.doc = e.shape.Conform(source.Clone())
	e.mode = mode
}

// Shape returns the shape the editor was built with.
func (e *Editor) Shape() Shape { return e.shape }

// Mode returns the current mode.
func (e *Editor) Mode() Mode { return e.mode }

// Document returns the current document.
func (e *Editor) Document() document.Value { return e.doc }

// Get returns the node at path in the current document.
func (e *Editor) Get(path document.Path) (document.Value, error) {
	return document.Get(e.doc, path)
}

// SetScalar coerces raw to kind and stores it at path. Missing object
// members along the path are created; array items are not. On error the
// document is unchanged and returned as is.
func (e *Editor) SetScalar(path document.Path, raw string, kind document.Kind) (document.Value, error) {
	if err := e.checkWritable(path); err != nil {
		return e.doc, fmt.Errorf("set %s: %w", path, err)
	}
	val, err := Coerce(raw, kind)
	if err != nil {
		return e.doc, fmt.Errorf("set %s: %w", path, err)
	}
	next, err := document.Update(e.doc, path, document.CreateObjects, func(cur document.Value, exists bool) (document.Value, error) {
		if exists && cur.Kind() != kind {
			return document.Value{}, fmt.Errorf("%w: have %s, got %s", ErrKindMismatch, cur.Kind(), kind)
		}
		return val, nil
	})
	if err != nil {
		return e.doc, fmt.Errorf("set %s: %w", path, err)
	}
	e.doc = next
	return e.doc, nil
}

// SetChecked stores a checkbox state at path.
func (e *Editor) SetChecked(path document.Path, checked bool) (document.Value, error) {
	return e.SetScalar(path, strconv.FormatBool(checked), document.KindBoolean)
}

// InsertElement appends an independent copy of def to the array at path.
// When the shape has a template for the array, def must match its kinds
// and may not carry members the template lacks; members it omits are
// filled from the template. Otherwise def must match the first item.
func (e *Editor) InsertElement(path document.Path, def document.Value) (document.Value, error) {
	tmpl, tmplErr := e.shape.ElementTemplate(path)
	next, err := document.Update(e.doc, path, document.ReadOnly, func(cur document.Value, _ bool) (document.Value, error) {
		if cur.Kind() != document.KindArray {
			return document.Value{}, ErrNotAnArray
		}
		elem := def.Clone()
		switch first, ok := cur.At(0); {
		case tmplErr == nil:
			if err := checkKinds(tmpl, elem, path.String()+"[]", false); err != nil {
				return document.Value{}, err
			}
			elem = fillMissing(tmpl, elem)
		case ok:
			if err := checkKinds(first, elem, path.String()+"[]", true); err != nil {
				return document.Value{}, err
			}
		}
		return cur.Append(elem), nil
	})
	if err != nil {
		return e.doc, fmt.Errorf("insert %s: %w", path, err)
	}
	e.doc = next
	return e.doc, nil
}

// InsertDefault appends the shape's default element to the array at path.
func (e *Editor) InsertDefault(path document.Path) (document.Value, error) {
	def, err := e.shape.ElementTemplate(path)
	if err != nil {
		return e.doc, fmt.Errorf("insert %s: %w", path, err)
	}
	return e.InsertElement(path, def)
}

// RemoveElement deletes item index from the array at path. Removing the
// last item of a repeatable array is rejected with ErrRejected.
func (e *Editor) RemoveElement(path document.Path, index int) (document.Value, error) {
	arr, err := document.Get(e.doc, path)
	if err != nil {
		return e.doc, fmt.Errorf("remove %s: %w", path, err)
	}
	if arr.Kind() != document.KindArray {
		return e.doc, fmt.Errorf("remove %s: %w", path, ErrNotAnArray)
	}
	if e.shape.IsRepeatable(path) && arr.Len() <= 1 {
		return e.doc, fmt.Errorf("remove %s: last element of repeatable array: %w", path, ErrRejected)
	}
	if index < 0 || index >= arr.Len() {
		return e.doc, fmt.Errorf("remove %s[%d]: %w", path, index, ErrIndexOutOfRange)
	}
	next, err := document.Set(e.doc, path, document.ReadOnly, arr.RemoveAt(index))
	if err != nil {
		return e.doc, fmt.Errorf("remove %s: %w", path, err)
	}
	e.doc = next
	return e.doc, nil
}

// MergeNestedArrayField writes value at subPath inside item index of the
// array at path. When both value and the current node are objects the
// members of value are merged over the current ones; otherwise value
// replaces the node. An empty subPath addresses the item itself.
func (e *Editor) MergeNestedArrayField(path document.Path, index int, subPath document.Path, value document.Value) (document.Value, error) {
	arr, err := document.Get(e.doc, path)
	if err != nil {
		return e.doc, fmt.Errorf("merge %s: %w", path, err)
	}
	if arr.Kind() != document.KindArray {
		return e.doc, fmt.Errorf("merge %s: %w", path, ErrNotAnArray)
	}
	if index < 0 || index >= arr.Len() {
		return e.doc, fmt.Errorf("merge %s[%d]: %w", path, index, ErrIndexOutOfRange)
	}

	target := path.Append(document.Index(index)).Append(subPath...)
	if err := e.checkWritable(target); err != nil {
		return e.doc, fmt.Errorf("merge %s: %w", target, err)
	}

	next, err := document.Update(e.doc, target, document.CreateObjects, func(cur document.Value, exists bool) (document.Value, error) {
		if !exists {
			if ref, err := document.Get(e.shape.Template, templatePath(target)); err == nil {
				cur = ref
			} else {
				return value.Clone(), nil
			}
		}
		if err := checkKinds(cur, value, target.String(), true); err != nil {
			return document.Value{}, err
		}
		if !exists {
			return value.Clone(), nil
		}
		return document.Merge(cur, value.Clone()), nil
	})
	if err != nil {
		return e.doc, fmt.Errorf("merge %s: %w", target, err)
	}
	e.doc = next
	return e.doc, nil
}

// Validate checks required fields and the shape's own rules.
func (e *Editor) Validate() error {
	verr := &ValidationError{}
	for _, p := range e.shape.Required {
		v, err := document.Get(e.doc, p)
		if err != nil || !v.IsValid() || (v.Kind() == document.KindString && v.AsString() == "") {
			verr.Missing = append(verr.Missing, p.String())
		}
	}
	if e.shape.Check != nil {
		verr.Invalid = e.shape.Check(e.doc)
	}
	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return verr
	}
	return nil
}

// SubmitPayload validates the document and returns what should be sent to
// the repository. In edit mode the identity members are stripped.
func (e *Editor) SubmitPayload() (document.Value, error) {
	if err := e.Validate(); err != nil {
		return document.Value{}, err
	}
	if e.mode.IsEdit() {
		return e.doc.Without(e.shape.Identity...), nil
	}
	return e.doc, nil
}

// CreateBatch returns the create-mode payload wrapped as a one-item batch.
func (e *Editor) CreateBatch() (document.Value, error) {
	if e.mode.IsEdit() {
		return document.Value{}, fmt.Errorf("create batch in %s mode: %w", e.mode, ErrRejected)
	}
	payload, err := e.SubmitPayload()
	if err != nil {
		return document.Value{}, err
	}
	return document.Array(payload), nil
}

func (e *Editor) checkWritable(path document.Path) error {
	if e.mode.IsEdit() && e.shape.IsWriteOnce(path) {
		return ErrImmutableField
	}
	return nil
}

// checkKinds walks got alongside ref and fails at the first node whose
// kind differs. Array items are compared with the first item of ref.
// Members ref does not define are skipped when extra is set and rejected
// with ErrUnknownField otherwise.
func checkKinds(ref, got document.Value, at string, extra bool) error {
	if ref.Kind() != got.Kind() {
		return fmt.Errorf("%w: %s has %s, got %s", ErrKindMismatch, at, ref.Kind(), got.Kind())
	}
	switch got.Kind() {
	case document.KindObject:
		for _, k := range got.Keys() {
			member := k
			if at != "" {
				member = at + "." + k
			}
			want, ok := ref.Field(k)
			if !ok {
				if extra {
					continue
				}
				return fmt.Errorf("%w: %s", ErrUnknownField, member)
			}
			have, _ := got.Field(k)
			if err := checkKinds(want, have, member, extra); err != nil {
				return err
			}
		}
	case document.KindArray:
		first, ok := ref.At(0)
		if !ok {
			return nil
		}
		for i, item := range got.Items() {
			if err := checkKinds(first, item, fmt.Sprintf("%s[%d]", at, i), extra); err != nil {
				return err
			}
		}
	}
	return nil
}
