package query

import (
	"bytes"
	"testing"

	"github.com/fcb-io/fcb/errs"
	"github.com/fcb-io/fcb/index"
	"github.com/fcb-io/fcb/key"
	"github.com/stretchr/testify/require"
)

type readerAt struct{ b []byte }

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, r.b[off:])

	return n, nil
}

// buildRegistry serializes one sorted index per field into a single buffer
// and returns a MultiIndex plus the backing source, mirroring how the
// attribute-index section of a container concatenates per-field indices.
func buildRegistry(t *testing.T, byField map[string]index.SortedIndex) (*MultiIndex, *readerAt) {
	t.Helper()

	var buf bytes.Buffer
	fields := make(map[string]FieldMeta)

	for name, idx := range byField {
		offset := int64(buf.Len())
		idx.WriteTo(&buf)
		length := int64(buf.Len()) - offset

		fields[name] = FieldMeta{
			Type:       idx.Type,
			EntryCount: uint64(idx.Len()),
			ByteOffset: offset,
			ByteLength: length,
		}
	}

	return NewMultiIndex(fields), &readerAt{b: buf.Bytes()}
}

func heightFixture(t *testing.T) (*MultiIndex, *readerAt) {
	t.Helper()

	height := index.Build(key.F64, []index.Entry{
		{Key: key.NewF64(10), Offsets: []uint64{0}},
		{Key: key.NewF64(20), Offsets: []uint64{1}},
		{Key: key.NewF64(20), Offsets: []uint64{2}},
		{Key: key.NewF64(30), Offsets: []uint64{3}},
	})

	class := index.Build(key.String, []index.Entry{
		{Key: key.NewString("residential"), Offsets: []uint64{0, 3}},
		{Key: key.NewString("commercial"), Offsets: []uint64{1, 2}},
	})

	return buildRegistry(t, map[string]index.SortedIndex{
		"height": height,
		"class":  class,
	})
}

func TestEvaluateEquality(t *testing.T) {
	mi, src := heightFixture(t)

	got, err := mi.Evaluate(src, []Condition{{Field: "height", Op: Eq, Value: key.NewF64(20)}})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, got)
}

func TestEvaluateRangeOperators(t *testing.T) {
	mi, src := heightFixture(t)

	gt, err := mi.Evaluate(src, []Condition{{Field: "height", Op: Gt, Value: key.NewF64(20)}})
	require.NoError(t, err)
	require.Equal(t, []uint64{3}, gt)

	ge, err := mi.Evaluate(src, []Condition{{Field: "height", Op: Ge, Value: key.NewF64(20)}})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, ge)

	lt, err := mi.Evaluate(src, []Condition{{Field: "height", Op: Lt, Value: key.NewF64(20)}})
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, lt)

	le, err := mi.Evaluate(src, []Condition{{Field: "height", Op: Le, Value: key.NewF64(20)}})
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 2}, le)

	ne, err := mi.Evaluate(src, []Condition{{Field: "height", Op: Ne, Value: key.NewF64(20)}})
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 3}, ne)
}

func TestEvaluateConjunctionAcrossFields(t *testing.T) {
	mi, src := heightFixture(t)

	got, err := mi.Evaluate(src, []Condition{
		{Field: "height", Op: Eq, Value: key.NewF64(20)},
		{Field: "class", Op: Eq, Value: key.NewString("commercial")},
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, got)
}

func TestEvaluateUnknownFieldIsDropped(t *testing.T) {
	mi, src := heightFixture(t)

	got, err := mi.Evaluate(src, []Condition{
		{Field: "height", Op: Eq, Value: key.NewF64(20)},
		{Field: "nonexistent_field", Op: Eq, Value: key.NewBool(true)},
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, got)
}

func TestEvaluateEmptyConditionsReturnsEmpty(t *testing.T) {
	mi, src := heightFixture(t)

	got, err := mi.Evaluate(src, nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestValidateRejectsAllUnindexedFields(t *testing.T) {
	mi, _ := heightFixture(t)

	err := mi.Validate([]Condition{{Field: "nonexistent_field", Op: Eq, Value: key.NewBool(true)}})
	require.ErrorIs(t, err, errs.ErrAttributeIndexNotFound)
}

func TestValidateRejectsEmptyConditions(t *testing.T) {
	mi, _ := heightFixture(t)

	err := mi.Validate(nil)
	require.Error(t, err)
}

func TestValidateAcceptsAtLeastOneIndexedField(t *testing.T) {
	mi, _ := heightFixture(t)

	err := mi.Validate([]Condition{
		{Field: "nonexistent_field", Op: Eq, Value: key.NewBool(true)},
		{Field: "height", Op: Eq, Value: key.NewF64(20)},
	})
	require.NoError(t, err)
}
