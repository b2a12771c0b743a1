// Package console drives the profile editor against a profile repository.
//
// A Session owns one editor document from its creation until a
// successful submit or a cancel. Edits arrive in their string form, the
// way the command line and the interactive console produce them.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
	"github.com/jaydenhoang5291/ue-profile/internal/editor"
	"github.com/jaydenhoang5291/ue-profile/internal/models"
	"github.com/jaydenhoang5291/ue-profile/internal/profile"
)

// ErrSessionClosed is returned by operations on a submitted or canceled
// session.
var ErrSessionClosed = errors.New("session closed")

// ProfileRepository is the remote store a session submits to.
type ProfileRepository interface {
	List(ctx context.Context, q models.ProfileQuery) ([]*profile.UeProfile, error)
	Get(ctx context.Context, supi string) (*profile.UeProfile, error)
	Create(ctx context.Context, batch document.Value) ([]*profile.UeProfile, error)
	Generate(ctx context.Context, spec document.Value) ([]*profile.UeProfile, error)
	Update(ctx context.Context, supi string, payload document.Value) (*profile.UeProfile, error)
	Delete(ctx context.Context, supi string) error
}

// Kind selects what a session submits.
type Kind int

const (
	// KindCreate submits a one-profile batch.
	KindCreate Kind = iota
	// KindEdit replaces an existing profile.
	KindEdit
	// KindGenerate submits a generation template.
	KindGenerate
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindEdit:
		return "edit"
	case KindGenerate:
		return "generate"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session binds an editor document to a repository.
type Session struct {
	repo   ProfileRepository
	kind   Kind
	ed     *editor.Editor
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewCreateSession starts a session on a blank profile form.
func NewCreateSession(repo ProfileRepository, opts ...Option) *Session {
	return newSession(repo, KindCreate, editor.New(profile.CreateShape()), opts)
}

// NewGenerateSession starts a session on a blank generation form.
func NewGenerateSession(repo ProfileRepository, opts ...Option) *Session {
	return newSession(repo, KindGenerate, editor.New(profile.GeneratorShape()), opts)
}

// NewEditSession starts a session on a copy of existing.
func NewEditSession(repo ProfileRepository, existing *profile.UeProfile, opts ...Option) (*Session, error) {
	if existing == nil {
		return nil, fmt.Errorf("edit session: profile cannot be nil")
	}
	doc, err := profile.ToDocument(existing)
	if err != nil {
		return nil, fmt.Errorf("edit session: %w", err)
	}
	ed, err := editor.NewEdit(profile.CreateShape(), doc)
	if err != nil {
		return nil, fmt.Errorf("edit session: %w", err)
	}
	return newSession(repo, KindEdit, ed, opts), nil
}

func newSession(repo ProfileRepository, kind Kind, ed *editor.Editor, opts []Option) *Session {
	if repo == nil {
		panic("repository cannot be nil")
	}
	s := &Session{
		repo:   repo,
		kind:   kind,
		ed:     ed,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", kind.String()))
	return s
}

// Kind returns what the session submits.
func (s *Session) Kind() Kind { return s.kind }

// Document returns the current document.
func (s *Session) Document() document.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Document()
}

// Get returns the node at path.
func (s *Session) Get(path document.Path) (document.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Get(path)
}

// Load replaces the document with doc, keeping the session's mode. Members
// the form defines but doc lacks are filled from the blank template.
func (s *Session) Load(doc document.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	return s.ed.Initialize(doc, s.ed.Mode())
}

// Apply performs one edit. A failed edit leaves the document unchanged.
func (s *Session) Apply(e Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	var err error
	switch e.Op {
	case OpSet:
		_, err = s.ed.SetScalar(e.Path, e.Raw, s.leafKind(e.Path))
	case OpAdd:
		_, err = s.ed.InsertDefault(e.Path)
	case OpRemove:
		_, err = s.ed.RemoveElement(e.Path, e.Index)
	case OpMerge:
		err = s.merge(e)
	default:
		err = fmt.Errorf("%w: unknown op %s", ErrInvalidEdit, e.Op)
	}
	if err != nil {
		s.logger.Debug("edit rejected", zap.Stringer("op", e.Op), zap.String("edit", e.String()), zap.Error(err))
		return err
	}
	return nil
}

// ApplyAll performs edits in order and stops at the first failure.
func (s *Session) ApplyAll(edits []Edit) error {
	for _, e := range edits {
		if err := s.Apply(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) merge(e Edit) error {
	arrPath, index, sub, ok := splitArrayPath(e.Path)
	if !ok {
		return fmt.Errorf("%w: merge %s: path has no array index", ErrInvalidEdit, e.Path)
	}
	value, err := document.Parse([]byte(e.Raw))
	if err != nil {
		return fmt.Errorf("%w: merge %s: %v", ErrInvalidEdit, e.Path, err)
	}
	_, err = s.ed.MergeNestedArrayField(arrPath, index, sub, value)
	return err
}

// leafKind picks the kind a raw value is coerced to: the kind of the
// current node, else the kind of the template leaf, else string.
func (s *Session) leafKind(path document.Path) document.Kind {
	if cur, err := s.ed.Get(path); err == nil && cur.Kind().IsScalar() {
		return cur.Kind()
	}
	if leaf, err := document.Get(s.ed.Shape().Template, firstItemPath(path)); err == nil && leaf.Kind().IsScalar() {
		return leaf.Kind()
	}
	return document.KindString
}

func firstItemPath(p document.Path) document.Path {
	out := make(document.Path, len(p))
	for i, seg := range p {
		if seg.IsIndex() {
			seg = document.Index(0)
		}
		out[i] = seg
	}
	return out
}

// Validate checks the document without submitting it.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Validate()
}

// Submit validates the document and sends it to the repository. The
// session closes on success; on failure the document is kept so the
// caller can fix it and retry.
func (s *Session) Submit(ctx context.Context) ([]*profile.UeProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	out, err := s.submit(ctx)
	if err != nil {
		SubmitsTotal.WithLabelValues(s.kind.String(), resultLabel(err)).Inc()
		s.logger.Info("submit failed", zap.Error(err))
		return nil, err
	}

	SubmitsTotal.WithLabelValues(s.kind.String(), "success").Inc()
	s.logger.Info("submit succeeded", zap.Int("profiles", len(out)))
	s.closed = true
	return out, nil
}

func (s *Session) submit(ctx context.Context) ([]*profile.UeProfile, error) {
	switch s.kind {
	case KindCreate:
		batch, err := s.ed.CreateBatch()
		if err != nil {
			return nil, err
		}
		return s.repo.Create(ctx, batch)

	case KindEdit:
		payload, err := s.ed.SubmitPayload()
		if err != nil {
			return nil, err
		}
		ue, err := s.repo.Update(ctx, s.ed.Mode().Identity(), payload)
		if err != nil {
			return nil, err
		}
		return []*profile.UeProfile{ue}, nil

	case KindGenerate:
		spec, err := s.ed.SubmitPayload()
		if err != nil {
			return nil, err
		}
		return s.repo.Generate(ctx, spec)

	default:
		return nil, fmt.Errorf("unknown session kind %s", s.kind)
	}
}

// Cancel discards the document. It never contacts the repository.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.logger.Debug("session canceled")
	}
	s.closed = true
}

// Closed reports whether the session was submitted or canceled.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func resultLabel(err error) string {
	var verr *editor.ValidationError
	if errors.As(err, &verr) {
		return "invalid"
	}
	return "error"
}
