package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
)

func slice(sst int64, sd string) document.Value {
	return document.Object(
		document.M("sst", document.Integer(sst)),
		document.M("sd", document.String(sd)),
	)
}

func testShape() Shape {
	return Shape{
		Name: "test",
		Template: document.Object(
			document.M("supi", document.String("")),
			document.M("plmnid", document.Object(
				document.M("mcc", document.String("")),
				document.M("mnc", document.String("")),
			)),
			document.M("nssai", document.Array(slice(0, ""))),
			document.M("gnbSearchList", document.Array(document.String(""))),
			document.M("sessions", document.Array(document.Object(
				document.M("apn", document.String("")),
				document.M("slice", slice(0, "")),
			))),
			document.M("integrity", document.Object(document.M("IA1", document.Boolean(false)))),
			document.M("protectionScheme", document.Integer(0)),
			document.M("extras", document.Array()),
		),
		Required: []document.Path{
			document.Keys("plmnid", "mcc"),
			document.Keys("plmnid", "mnc"),
		},
		Repeatable: []document.Path{
			document.Keys("nssai"),
			document.Keys("gnbSearchList"),
			document.Keys("sessions"),
		},
		WriteOnce: []document.Path{document.Keys("supi")},
		Key:       document.Keys("supi"),
		Identity:  []string{"supi", "userId"},
	}
}

func valueAt(t *testing.T, doc document.Value, path string) document.Value {
	t.Helper()
	v, err := document.Get(doc, MustParsePath(path))
	require.NoError(t, err)
	return v
}

func TestNew_StartsFromBlankTemplate(t *testing.T) {
	e := New(testShape())

	assert.False(t, e.Mode().IsEdit())
	assert.True(t, document.Equal(testShape().Template, e.Document()))
}

func TestInitialize_ReplacesAndCopies(t *testing.T) {
	e := New(testShape())
	_, err := e.SetScalar(document.Keys("plmnid", "mcc"), "001", document.KindString)
	require.NoError(t, err)

	existing := document.Object(
		document.M("supi", document.String("imsi-001010000000001")),
		document.M("userId", document.String("u1")),
		document.M("plmnid", document.Object(document.M("mnc", document.String("02")))),
		document.M("custom", document.String("kept")),
	)

	require.NoError(t, e.Initialize(existing, EditMode("")))
	assert.Equal(t, "imsi-001010000000001", e.Mode().Identity())

	doc := e.Document()
	assert.Equal(t, "", valueAt(t, doc, "plmnid.mcc").AsString(), "no merge with previous state")
	assert.Equal(t, "02", valueAt(t, doc, "plmnid.mnc").AsString())
	assert.Equal(t, "kept", valueAt(t, doc, "custom").AsString())
	assert.Equal(t, 1, valueAt(t, doc, "sessions").Len(), "repeatable seeded")
	assert.Equal(t, 0, valueAt(t, doc, "extras").Len())

	// Edits never reach the source.
	_, err = e.SetScalar(document.Keys("plmnid", "mnc"), "99", document.KindString)
	require.NoError(t, err)
	plmn, _ := existing.Field("plmnid")
	mnc, _ := plmn.Field("mnc")
	assert.Equal(t, "02", mnc.AsString())
}

func TestInitialize_Errors(t *testing.T) {
	e := New(testShape())

	err := e.Initialize(document.String("x"), CreateMode())
	assert.ErrorIs(t, err, ErrNotAnObject)

	err = e.Initialize(document.Object(), EditMode(""))
	assert.ErrorIs(t, err, ErrMissingRequiredField)

	_, err = NewEdit(testShape(), document.Object(document.M("supi", document.String(""))))
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestSetScalar(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		raw     string
		kind    document.Kind
		want    document.Value
		wantErr error
	}{
		{name: "string verbatim", path: "plmnid.mcc", raw: " 001 ", kind: document.KindString, want: document.String(" 001 ")},
		{name: "integer", path: "protectionScheme", raw: "42", kind: document.KindInteger, want: document.Integer(42)},
		{name: "negative integer", path: "protectionScheme", raw: "-3", kind: document.KindInteger, want: document.Integer(-3)},
		{name: "unparseable integer", path: "protectionScheme", raw: "abc", kind: document.KindInteger, want: document.Integer(0)},
		{name: "checkbox on", path: "integrity.IA1", raw: "on", kind: document.KindBoolean, want: document.Boolean(true)},
		{name: "checkbox unknown", path: "integrity.IA1", raw: "maybe", kind: document.KindBoolean, want: document.Boolean(false)},
		{name: "nested array item", path: "sessions.0.slice.sst", raw: "7", kind: document.KindInteger, want: document.Integer(7)},
		{name: "scalar array item", path: "gnbSearchList[0]", raw: "10.0.0.1", kind: document.KindString, want: document.String("10.0.0.1")},
		{name: "creates missing objects", path: "uacAic.mps", raw: "true", kind: document.KindBoolean, want: document.Boolean(true)},
		{name: "missing array item", path: "sessions.3.apn", raw: "x", kind: document.KindString, wantErr: ErrPathNotFound},
		{name: "kind mismatch", path: "protectionScheme", raw: "1", kind: document.KindString, wantErr: ErrKindMismatch},
		{name: "non-scalar kind", path: "plmnid", raw: "{}", kind: document.KindObject, wantErr: ErrKindMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(testShape())
			before := e.Document()

			doc, err := e.SetScalar(MustParsePath(tt.path), tt.raw, tt.kind)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.True(t, document.Equal(before, doc), "document must be unchanged")
				return
			}
			require.NoError(t, err)
			assert.True(t, document.Equal(tt.want, valueAt(t, doc, tt.path)))
		})
	}
}

func TestSetChecked(t *testing.T) {
	e := New(testShape())

	doc, err := e.SetChecked(document.Keys("integrity", "IA1"), true)
	require.NoError(t, err)
	assert.True(t, valueAt(t, doc, "integrity.IA1").AsBool())

	doc, err = e.SetChecked(document.Keys("integrity", "IA1"), false)
	require.NoError(t, err)
	assert.False(t, valueAt(t, doc, "integrity.IA1").AsBool())

	_, err = e.SetChecked(document.Keys("plmnid", "mcc"), true)
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestSetScalar_SiblingsAndSnapshots(t *testing.T) {
	e := New(testShape())
	before := e.Document()

	after, err := e.SetScalar(document.Keys("plmnid", "mcc"), "001", document.KindString)
	require.NoError(t, err)

	assert.Equal(t, "001", valueAt(t, after, "plmnid.mcc").AsString())
	assert.True(t, document.Equal(valueAt(t, before, "plmnid.mnc"), valueAt(t, after, "plmnid.mnc")))
	assert.True(t, document.Equal(before.Without("plmnid"), after.Without("plmnid")))
	assert.Equal(t, "", valueAt(t, before, "plmnid.mcc").AsString(), "earlier snapshot not mutated")
}

func TestSetScalar_WriteOnceInEditMode(t *testing.T) {
	existing := testShape().Blank().With("supi", document.String("imsi-1"))

	e, err := NewEdit(testShape(), existing)
	require.NoError(t, err)

	_, err = e.SetScalar(document.Keys("supi"), "imsi-2", document.KindString)
	assert.ErrorIs(t, err, ErrImmutableField)
	assert.Equal(t, "imsi-1", valueAt(t, e.Document(), "supi").AsString())

	c := New(testShape())
	_, err = c.SetScalar(document.Keys("supi"), "imsi-2", document.KindString)
	assert.NoError(t, err)
}

func TestInsertElement(t *testing.T) {
	e := New(testShape())

	doc, err := e.InsertElement(document.Keys("nssai"), slice(1, "aa"))
	require.NoError(t, err)
	assert.Equal(t, 2, valueAt(t, doc, "nssai").Len())
	assert.Equal(t, int64(1), valueAt(t, doc, "nssai.1.sst").AsInt())

	_, err = e.InsertElement(document.Keys("plmnid"), slice(0, ""))
	assert.ErrorIs(t, err, ErrNotAnArray)

	_, err = e.InsertElement(document.Keys("nope"), slice(0, ""))
	assert.ErrorIs(t, err, ErrPathNotFound)

	_, err = e.InsertElement(document.Keys("gnbSearchList"), slice(0, ""))
	assert.ErrorIs(t, err, ErrKindMismatch)

	doc, err = e.InsertElement(document.Keys("extras"), document.String("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, valueAt(t, doc, "extras").Len())
}

func TestInsertElement_FollowsTemplate(t *testing.T) {
	e := New(testShape())
	before := e.Document()

	_, err := e.InsertElement(document.Keys("sessions"), document.Object(document.M("bogus", document.Boolean(true))))
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.True(t, document.Equal(before, e.Document()))

	_, err = e.InsertElement(document.Keys("sessions"), document.Object(
		document.M("slice", document.Object(document.M("sst", document.String("1")))),
	))
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.True(t, document.Equal(before, e.Document()))

	doc, err := e.InsertElement(document.Keys("sessions"), document.Object(document.M("apn", document.String("ims"))))
	require.NoError(t, err)
	assert.Equal(t, "ims", valueAt(t, doc, "sessions.1.apn").AsString())
	assert.Equal(t, document.KindInteger, valueAt(t, doc, "sessions.1.slice.sst").Kind())
	assert.Equal(t, "", valueAt(t, doc, "sessions.1.slice.sd").AsString())
}

func TestInsertDefault(t *testing.T) {
	e := New(testShape())

	doc, err := e.InsertDefault(document.Keys("sessions"))
	require.NoError(t, err)
	assert.True(t, document.Equal(valueAt(t, doc, "sessions.0"), valueAt(t, doc, "sessions.1")))

	_, err = e.InsertDefault(document.Keys("extras"))
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestRemoveElement(t *testing.T) {
	t.Run("last repeatable element is a no-op", func(t *testing.T) {
		e := New(testShape())
		before := e.Document()

		doc, err := e.RemoveElement(document.Keys("nssai"), 0)
		assert.ErrorIs(t, err, ErrRejected)
		assert.True(t, document.Equal(before, doc))
		assert.Equal(t, 1, valueAt(t, e.Document(), "nssai").Len())
	})

	t.Run("insert then remove last round-trips", func(t *testing.T) {
		e := New(testShape())
		before := e.Document()

		_, err := e.InsertElement(document.Keys("gnbSearchList"), document.String("10.0.0.2"))
		require.NoError(t, err)
		doc, err := e.RemoveElement(document.Keys("gnbSearchList"), 1)
		require.NoError(t, err)
		assert.True(t, document.Equal(before, doc))
	})

	t.Run("index out of range", func(t *testing.T) {
		e := New(testShape())
		_, err := e.InsertDefault(document.Keys("nssai"))
		require.NoError(t, err)

		_, err = e.RemoveElement(document.Keys("nssai"), 2)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		_, err = e.RemoveElement(document.Keys("nssai"), -1)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("not an array", func(t *testing.T) {
		e := New(testShape())
		_, err := e.RemoveElement(document.Keys("plmnid"), 0)
		assert.ErrorIs(t, err, ErrNotAnArray)
	})

	t.Run("non-repeatable array may become empty", func(t *testing.T) {
		e := New(testShape())
		_, err := e.InsertElement(document.Keys("extras"), document.String("x"))
		require.NoError(t, err)
		doc, err := e.RemoveElement(document.Keys("extras"), 0)
		require.NoError(t, err)
		assert.Equal(t, 0, valueAt(t, doc, "extras").Len())
	})
}

func TestMergeNestedArrayField(t *testing.T) {
	e := New(testShape())
	_, err := e.SetScalar(MustParsePath("sessions.0.slice.sd"), "010203", document.KindString)
	require.NoError(t, err)

	doc, err := e.MergeNestedArrayField(document.Keys("sessions"), 0, document.Keys("slice"),
		document.Object(document.M("sst", document.Integer(5))))
	require.NoError(t, err)
	assert.Equal(t, int64(5), valueAt(t, doc, "sessions.0.slice.sst").AsInt())
	assert.Equal(t, "010203", valueAt(t, doc, "sessions.0.slice.sd").AsString())

	doc, err = e.MergeNestedArrayField(document.Keys("sessions"), 0, document.Keys("apn"), document.String("internet"))
	require.NoError(t, err)
	assert.Equal(t, "internet", valueAt(t, doc, "sessions.0.apn").AsString())

	doc, err = e.MergeNestedArrayField(document.Keys("nssai"), 0, nil, slice(2, "ff"))
	require.NoError(t, err)
	assert.True(t, document.Equal(slice(2, "ff"), valueAt(t, doc, "nssai.0")))

	_, err = e.MergeNestedArrayField(document.Keys("sessions"), 4, document.Keys("apn"), document.String("x"))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = e.MergeNestedArrayField(document.Keys("plmnid"), 0, nil, document.String("x"))
	assert.ErrorIs(t, err, ErrNotAnArray)

	_, err = e.MergeNestedArrayField(document.Keys("sessions"), 0, document.Keys("slice"),
		document.Object(document.M("sst", document.String("5"))))
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestMergeNestedArrayField_Nested(t *testing.T) {
	e := New(testShape())
	_, err := e.SetScalar(MustParsePath("sessions.0.slice.sd"), "abc", document.KindString)
	require.NoError(t, err)
	before := e.Document()

	_, err = e.MergeNestedArrayField(document.Keys("sessions"), 0, nil, document.Object(
		document.M("slice", document.Object(document.M("sst", document.String("x")))),
	))
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.True(t, document.Equal(before, e.Document()))
	assert.Equal(t, document.KindInteger, valueAt(t, e.Document(), "sessions.0.slice.sst").Kind())

	doc, err := e.MergeNestedArrayField(document.Keys("sessions"), 0, nil, document.Object(
		document.M("slice", document.Object(document.M("sst", document.Integer(7)))),
	))
	require.NoError(t, err)
	assert.Equal(t, int64(7), valueAt(t, doc, "sessions.0.slice.sst").AsInt())
	assert.Equal(t, "abc", valueAt(t, doc, "sessions.0.slice.sd").AsString())
	assert.Equal(t, "abc", valueAt(t, before, "sessions.0.slice.sd").AsString())
	assert.Equal(t, int64(0), valueAt(t, before, "sessions.0.slice.sst").AsInt())
}

func TestSubmitPayload(t *testing.T) {
	t.Run("create mode requires mcc and mnc", func(t *testing.T) {
		e := New(testShape())

		_, err := e.SubmitPayload()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingRequiredField)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"plmnid.mcc", "plmnid.mnc"}, verr.Missing)
	})

	t.Run("create mode keeps supi", func(t *testing.T) {
		e := New(testShape())
		for path, raw := range map[string]string{"supi": "imsi-1", "plmnid.mcc": "001", "plmnid.mnc": "01"} {
			_, err := e.SetScalar(MustParsePath(path), raw, document.KindString)
			require.NoError(t, err)
		}

		payload, err := e.SubmitPayload()
		require.NoError(t, err)
		assert.Equal(t, "imsi-1", valueAt(t, payload, "supi").AsString())

		batch, err := e.CreateBatch()
		require.NoError(t, err)
		require.Equal(t, 1, batch.Len())
		first, _ := batch.At(0)
		assert.True(t, document.Equal(payload, first))
	})

	t.Run("edit mode strips identity", func(t *testing.T) {
		existing := testShape().Blank().
			With("supi", document.String("imsi-1")).
			With("userId", document.String("u1")).
			With("plmnid", document.Object(
				document.M("mcc", document.String("001")),
				document.M("mnc", document.String("01")),
			))

		e, err := NewEdit(testShape(), existing)
		require.NoError(t, err)

		payload, err := e.SubmitPayload()
		require.NoError(t, err)
		_, ok := payload.Field("supi")
		assert.False(t, ok)
		_, ok = payload.Field("userId")
		assert.False(t, ok)

		_, err = e.CreateBatch()
		assert.ErrorIs(t, err, ErrRejected)
	})

	t.Run("shape check reports invalid fields", func(t *testing.T) {
		shape := testShape()
		shape.Required = nil
		shape.Check = func(doc document.Value) []string {
			v, _ := document.Get(doc, document.Keys("protectionScheme"))
			if v.AsInt() > 2 {
				return []string{"protectionScheme"}
			}
			return nil
		}
		e := New(shape)
		_, err := e.SetScalar(document.Keys("protectionScheme"), "3", document.KindInteger)
		require.NoError(t, err)

		_, err = e.SubmitPayload()
		assert.ErrorIs(t, err, ErrInvalidField)
		assert.NotErrorIs(t, err, ErrMissingRequiredField)
	})
}

func TestScenario_BlankToSubmit(t *testing.T) {
	e := New(testShape())

	_, err := e.SetScalar(document.Keys("plmnid", "mcc"), "001", document.KindString)
	require.NoError(t, err)
	_, err = e.SetScalar(document.Keys("plmnid", "mnc"), "01", document.KindString)
	require.NoError(t, err)

	inserted := slice(0, "")
	doc, err := e.InsertElement(document.Keys("nssai"), inserted)
	require.NoError(t, err)
	require.Equal(t, 2, valueAt(t, doc, "nssai").Len())

	doc, err = e.RemoveElement(document.Keys("nssai"), 0)
	require.NoError(t, err)
	require.Equal(t, 1, valueAt(t, doc, "nssai").Len())
	assert.True(t, document.Equal(inserted, valueAt(t, doc, "nssai.0")))

	_, err = e.SubmitPayload()
	assert.NoError(t, err)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "create", CreateMode().String())
	assert.Equal(t, "edit(imsi-1)", EditMode("imsi-1").String())
}
