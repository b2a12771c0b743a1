package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() Value {
	return Object(
		M("supi", String("imsi-001010000000001")),
		M("plmnid", Object(
			M("mcc", String("001")),
			M("mnc", String("01")),
		)),
		M("sessions", Array(
			Object(
				M("type", String("IPv4")),
				M("apn", String("internet")),
				M("slice", Object(M("sst", Integer(1)), M("sd", String("010203")))),
			),
		)),
		M("integrity", Object(M("IA1", Boolean(true)))),
	)
}

func TestObject_PreservesOrder(t *testing.T) {
	v := Object(M("b", Integer(1)), M("a", Integer(2)), M("b", Integer(3)))

	assert.Equal(t, []string{"b", "a"}, v.Keys())
	b, ok := v.Field("b")
	require.True(t, ok)
	assert.Equal(t, int64(3), b.AsInt())
}

func TestValue_WithDoesNotMutateReceiver(t *testing.T) {
	base := Object(M("a", String("x")))
	next := base.With("b", String("y"))

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, next.Len())
	_, ok := base.Field("b")
	assert.False(t, ok)

	replaced := next.With("a", String("z"))
	assert.Equal(t, "x", mustField(t, next, "a").AsString())
	assert.Equal(t, "z", mustField(t, replaced, "a").AsString())
	assert.Equal(t, []string{"a", "b"}, replaced.Keys())
}

func TestValue_ArrayHelpers(t *testing.T) {
	arr := Array(String("a"), String("b"))

	appended := arr.Append(String("c"))
	assert.Equal(t, 2, arr.Len())
	assert.Equal(t, 3, appended.Len())

	removed := appended.RemoveAt(0)
	assert.Equal(t, 3, appended.Len())
	assert.Equal(t, []Value{String("b"), String("c")}, removed.Items())

	set := removed.SetAt(1, String("z"))
	item, ok := removed.At(1)
	require.True(t, ok)
	assert.Equal(t, "c", item.AsString())
	item, ok = set.At(1)
	require.True(t, ok)
	assert.Equal(t, "z", item.AsString())

	_, ok = set.At(5)
	assert.False(t, ok)
}

func TestValue_HelpersPanicOnWrongKind(t *testing.T) {
	assert.Panics(t, func() { String("x").With("a", Integer(1)) })
	assert.Panics(t, func() { Object().Append(Integer(1)) })
	assert.Panics(t, func() { Array().RemoveAt(0) })
}

func TestValue_Without(t *testing.T) {
	doc := sampleDoc().Without("supi", "userId")

	_, ok := doc.Field("supi")
	assert.False(t, ok)
	assert.Equal(t, []string{"plmnid", "sessions", "integrity"}, doc.Keys())
}

func TestValue_CloneIsIndependent(t *testing.T) {
	doc := sampleDoc()
	clone := doc.Clone()

	assert.True(t, Equal(doc, clone))

	sessions := mustField(t, clone, "sessions")
	clone.fields["sessions"] = sessions.Append(Object())

	assert.Equal(t, 1, mustField(t, doc, "sessions").Len())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same scalars", Integer(1), Integer(1), true},
		{"different kinds", Integer(1), String("1"), false},
		{"member order ignored", Object(M("a", Integer(1)), M("b", Integer(2))), Object(M("b", Integer(2)), M("a", Integer(1))), true},
		{"array order matters", Array(Integer(1), Integer(2)), Array(Integer(2), Integer(1)), false},
		{"missing member", Object(M("a", Integer(1))), Object(M("b", Integer(1))), false},
		{"zero values", Value{}, Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestValue_Accessors(t *testing.T) {
	assert.Equal(t, "", Integer(3).AsString())
	assert.Equal(t, int64(0), String("3").AsInt())
	assert.False(t, String("true").AsBool())
	assert.Equal(t, "42", Integer(42).String())
	assert.Equal(t, "true", Boolean(true).String())
	assert.Equal(t, `{"a":[1,"x"]}`, Object(M("a", Array(Integer(1), String("x")))).String())
	assert.False(t, Value{}.IsValid())
	assert.True(t, KindBoolean.IsScalar())
	assert.False(t, KindArray.IsScalar())
}

func mustField(t *testing.T, v Value, key string) Value {
	t.Helper()
	f, ok := v.Field(key)
	require.True(t, ok, "missing field %q", key)
	return f
}
