package record

import (
	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core"
)

// Field pairs an entity's JSON name with its remote column name.
type Field struct {
	JSON   string
	Column string
}

// Schema describes how one entity type maps onto a remote table.
type Schema[T any] struct {
	Table    string
	Fields   []Field
	Ordering []core.DBOrdering // canonical order of the collection
	Less     func(a, b T) bool // same order as Ordering
	Meta     func(v *T) *Meta

	encode func(v T) Record
	decode func(r *reader) T
}

func (s Schema[T]) Encode(v T) Record {
	return s.encode(v)
}

func (s Schema[T]) Decode(rec Record) (T, error) {
	r := &reader{rec: rec}
	v := s.decode(r)
	if r.err != nil {
		var zero T
		return zero, errors.Wrapf(r.err, "decoding %s record", s.Table)
	}
	return v, nil
}

// DecodeAll decodes recs, stopping at the first failure.
func (s Schema[T]) DecodeAll(recs []Record) ([]T, error) {
	items := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := s.Decode(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

// InsertPayload is what gets sent to the remote store on insert:
// the remote store assigns the identifier and timestamps.
func (s Schema[T]) InsertPayload(v T, ownerID string) Record {
	rec := s.Encode(v)
	delete(rec, ColID)
	delete(rec, ColCreatedAt)
	delete(rec, ColUpdatedAt)
	rec[ColOwnerID] = ownerID
	return rec
}

// UpdatePayload is what gets sent to the remote store on update.
func (s Schema[T]) UpdatePayload(v T) Record {
	rec := s.Encode(v)
	delete(rec, ColID)
	delete(rec, ColOwnerID)
	delete(rec, ColCreatedAt)
	delete(rec, ColUpdatedAt)
	return rec
}

func (s Schema[T]) Columns() []string {
	cols := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		cols = append(cols, f.Column)
	}
	return cols
}

// Column returns the column mapped to a JSON name, e.g. for client-side orderings.
func (s Schema[T]) Column(jsonName string) (string, bool) {
	for _, f := range s.Fields {
		if f.JSON == jsonName {
			return f.Column, true
		}
	}
	return "", false
}

// ID returns v's identifier.
func (s Schema[T]) ID(v T) string {
	return s.Meta(&v).ID
}
