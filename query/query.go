// Package query implements the multi-index registry and AND-query
// evaluator: a mapping from field name to its sorted attribute index
// metadata and byte offset within the source the indices are read from,
// plus the logic that evaluates a conjunction of per-field conditions into
// a single ascending set of feature offsets.
package query

import (
	"io"
	"sort"

	"github.com/fcb-io/fcb/errs"
	"github.com/fcb-io/fcb/index"
	"github.com/fcb-io/fcb/key"
)

// Op is a condition's comparison operator.
type Op int

const (
	Eq Op = iota
	Ne
	Gt
	Lt
	Ge
	Le
)

// Condition is one field of a conjunctive query: "field Op Value".
type Condition struct {
	Field string
	Op    Op
	Value key.Key
}

// FieldMeta describes one field's attribute index: its key type, entry
// count, and byte offset/length. ByteOffset is the index's offset within
// the source passed to Evaluate (for a container.Reader, absolute from the
// start of the container), not an offset relative to the start of the
// attribute-index section.
type FieldMeta struct {
	Type        key.Type
	EntryCount  uint64
	ByteOffset  int64
	ByteLength  int64
}

// MultiIndex is the registry of per-field attribute indices backing the
// query evaluator. It does not own the index bytes; every query reads
// through the source supplied to Evaluate.
type MultiIndex struct {
	fields map[string]FieldMeta
}

// NewMultiIndex builds a registry from field name to its index metadata.
func NewMultiIndex(fields map[string]FieldMeta) *MultiIndex {
	return &MultiIndex{fields: fields}
}

// Fields returns the set of indexed field names.
func (m *MultiIndex) Fields() map[string]FieldMeta { return m.fields }

// HasField reports whether field has a declared index.
func (m *MultiIndex) HasField(field string) bool {
	_, ok := m.fields[field]

	return ok
}

// Evaluate runs a conjunction of conditions against src (a file or HTTP
// range source) and returns the ascending, deduplicated set of feature
// offsets matching every condition.
//
// Conditions whose field has no declared index are silently dropped: this
// is a deliberate schema-evolution affordance, not an error. An empty
// query (zero conditions, or every condition dropped because its field is
// unindexed) returns an empty result and a nil error, never "everything".
// Evaluate itself returns neither ErrQueryError nor
// ErrAttributeIndexNotFound for these cases; Validate reports them, and
// the top-level caller (container.Reader) runs it before Evaluate.
func (m *MultiIndex) Evaluate(src io.ReaderAt, conditions []Condition) ([]uint64, error) {
	if len(conditions) == 0 {
		return nil, nil
	}

	var sets [][]uint64

	for _, c := range conditions {
		meta, ok := m.fields[c.Field]
		if !ok {
			continue
		}

		offsets, err := m.evaluateCondition(src, meta, c)
		if err != nil {
			return nil, err
		}

		sets = append(sets, offsets)
	}

	if len(sets) == 0 {
		// Every condition named an unindexed field: those are dropped,
		// leaving no constraint, but Evaluate is only ever reached once
		// the caller has verified at least one condition is indexed (see
		// container.Reader.SelectAttrQuery), so this path returns an
		// empty result rather than "everything".
		return nil, nil
	}

	return intersectSorted(sets), nil
}

func (m *MultiIndex) evaluateCondition(src io.ReaderAt, meta FieldMeta, c Condition) ([]uint64, error) {
	si, err := index.Open(src, meta.ByteOffset, meta.ByteLength)
	if err != nil {
		return nil, err
	}

	switch c.Op {
	case Eq:
		return si.QueryExact(c.Value)
	case Ne:
		all, err := si.QueryRange(nil, nil)
		if err != nil {
			return nil, err
		}

		eq, err := si.QueryExact(c.Value)
		if err != nil {
			return nil, err
		}

		return subtractSorted(all, eq), nil
	case Gt:
		gte, err := si.QueryRange(&c.Value, nil)
		if err != nil {
			return nil, err
		}

		eq, err := si.QueryExact(c.Value)
		if err != nil {
			return nil, err
		}

		return subtractSorted(gte, eq), nil
	case Lt:
		return si.QueryRange(nil, &c.Value)
	case Ge:
		return si.QueryRange(&c.Value, nil)
	case Le:
		lt, err := si.QueryRange(nil, &c.Value)
		if err != nil {
			return nil, err
		}

		eq, err := si.QueryExact(c.Value)
		if err != nil {
			return nil, err
		}

		return unionSorted(lt, eq), nil
	default:
		return nil, errs.ErrQueryError
	}
}

// Validate checks that conditions is non-empty and that at least one
// condition's field is indexed; it does not evaluate anything. Callers
// (container.Reader.SelectAttrQuery) run this before Evaluate so an
// entirely-unindexed query fails with ErrAttributeIndexNotFound rather
// than silently returning an empty result.
func (m *MultiIndex) Validate(conditions []Condition) error {
	if len(conditions) == 0 {
		return errs.ErrQueryError
	}

	for _, c := range conditions {
		if m.HasField(c.Field) {
			return nil
		}
	}

	return errs.ErrAttributeIndexNotFound
}

func subtractSorted(a, b []uint64) []uint64 {
	if len(b) == 0 {
		return append([]uint64(nil), a...)
	}

	bSet := make(map[uint64]struct{}, len(b))
	for _, v := range b {
		bSet[v] = struct{}{}
	}

	out := make([]uint64, 0, len(a))
	for _, v := range a {
		if _, skip := bSet[v]; !skip {
			out = append(out, v)
		}
	}

	return out
}

func unionSorted(a, b []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(a)+len(b))
	out := make([]uint64, 0, len(a)+len(b))

	for _, v := range a {
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	for _, v := range b {
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// intersectSorted intersects N offset sets (not necessarily sorted
// individually) and returns the ascending, deduplicated result.
func intersectSorted(sets [][]uint64) []uint64 {
	counts := make(map[uint64]int)
	for _, s := range sets {
		seenInSet := make(map[uint64]struct{}, len(s))
		for _, v := range s {
			if _, dup := seenInSet[v]; dup {
				continue
			}

			seenInSet[v] = struct{}{}
			counts[v]++
		}
	}

	out := make([]uint64, 0, len(counts))
	for v, c := range counts {
		if c == len(sets) {
			out = append(out, v)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}
