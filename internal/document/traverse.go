package document

// Policy decides which missing nodes a traversal may create while
// descending toward its target.
type Policy struct {
	// CreateMissingKeys materializes absent object members. An absent
	// member followed by another key segment becomes an empty object; an
	// absent final member is handed to the update function as missing.
	// Array items are never created, whatever the policy.
	CreateMissingKeys bool
}

// Traversal policies.
var (
	// ReadOnly resolves existing nodes only.
	ReadOnly = Policy{}

	// CreateObjects creates missing object members on the way down.
	CreateObjects = Policy{CreateMissingKeys: true}
)

// creates reports whether a missing node addressed by seg may be created
// when it is followed by next. Only key segments leading into another key
// qualify, because the created node is always an object.
func (p Policy) creates(seg Segment, next *Segment) bool {
	if seg.isIndex || !p.CreateMissingKeys {
		return false
	}
	return next == nil || !next.isIndex
}

// UpdateFunc computes the replacement for the node at the end of a path.
// exists is false when the node is an absent object member that the
// policy allowed to be created; current is then the zero Value.
type UpdateFunc func(current Value, exists bool) (Value, error)

// Get resolves path against root.
func Get(root Value, path Path) (Value, error) {
	node := root
	for i, seg := range path {
		next, err := step(node, seg)
		if err != nil {
			return Value{}, pathErr(path[:i+1], err)
		}
		node = next
	}
	return node, nil
}

// Update rebuilds root with the node at path replaced by the result of fn.
// Every container from root to the target is copied; everything else is
// shared with root, which is never modified.
func Update(root Value, path Path, policy Policy, fn UpdateFunc) (Value, error) {
	return update(root, path, 0, policy, fn)
}

// Set replaces the node at path with val.
func Set(root Value, path Path, policy Policy, val Value) (Value, error) {
	return Update(root, path, policy, func(Value, bool) (Value, error) {
		return val, nil
	})
}

// Merge overlays the members of patch onto base when both are objects,
// descending into members that are objects on both sides. Members absent
// from patch keep their value from base. For any other combination patch
// replaces base.
func Merge(base, patch Value) Value {
	if base.kind != KindObject || patch.kind != KindObject {
		return patch
	}
	out := base
	for _, k := range patch.keys {
		if cur, ok := base.fields[k]; ok {
			out = out.With(k, Merge(cur, patch.fields[k]))
			continue
		}
		out = out.With(k, patch.fields[k])
	}
	return out
}

func step(node Value, seg Segment) (Value, error) {
	if seg.isIndex {
		if node.kind != KindArray {
			return Value{}, ErrNotAnArray
		}
		item, ok := node.At(seg.index)
		if !ok {
			return Value{}, ErrPathNotFound
		}
		return item, nil
	}
	field, ok := node.Field(seg.name)
	if !ok {
		return Value{}, ErrPathNotFound
	}
	return field, nil
}

func update(node Value, path Path, depth int, policy Policy, fn UpdateFunc) (Value, error) {
	if depth == len(path) {
		return fn(node, true)
	}

	seg := path[depth]
	var next *Segment
	if depth+1 < len(path) {
		next = &path[depth+1]
	}

	if seg.isIndex {
		if node.kind != KindArray {
			return Value{}, pathErr(path[:depth+1], ErrNotAnArray)
		}
		child, ok := node.At(seg.index)
		if !ok {
			return Value{}, pathErr(path[:depth+1], ErrPathNotFound)
		}
		replaced, err := update(child, path, depth+1, policy, fn)
		if err != nil {
			return Value{}, err
		}
		return node.SetAt(seg.index, replaced), nil
	}

	if node.kind != KindObject {
		return Value{}, pathErr(path[:depth+1], ErrPathNotFound)
	}

	child, ok := node.fields[seg.name]
	if !ok {
		if !policy.creates(seg, next) {
			return Value{}, pathErr(path[:depth+1], ErrPathNotFound)
		}
		if next == nil {
			created, err := fn(Value{}, false)
			if err != nil {
				return Value{}, err
			}
			return node.With(seg.name, created), nil
		}
		child = Object()
	}

	replaced, err := update(child, path, depth+1, policy, fn)
	if err != nil {
		return Value{}, err
	}
	return node.With(seg.name, replaced), nil
}
