// Package record holds the dashboard entities and the explicit mapping between
// them and the rows of the remote record store.
//
// Entities use camelCase JSON names (the UI convention); the remote store uses
// snake_case column names. Every entity lists its Field pairs explicitly so no
// name is ever derived by string manipulation at runtime.
package record

import (
	"time"

	"github.com/pkg/errors"
)

// Tables
const (
	TableModules      = "modules"
	TableTasks        = "tasks"
	TableTransactions = "transactions"
)

// Shared columns
const (
	ColID        = "id"
	ColOwnerID   = "user_id"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
)

var ErrInvalidRecord = errors.New("invalid record")

// Record is one row as seen by the remote store: column name -> value.
type Record map[string]interface{}

// ID returns the record's identifier, if any.
func (rec Record) ID() string {
	id, _ := toString(rec[ColID])
	return id
}

// OwnerID returns the record's owner reference, if any.
func (rec Record) OwnerID() string {
	id, _ := toString(rec[ColOwnerID])
	return id
}

// Copy returns a shallow copy of rec.
func (rec Record) Copy() Record {
	c := make(Record, len(rec))
	for k, v := range rec {
		c[k] = v
	}
	return c
}

// ChangeType is the kind of a remote change notification.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Change is a remote change notification.
// New is set for inserts and updates, Old for deletes (at least its id).
type Change struct {
	Table string
	Type  ChangeType
	New   Record
	Old   Record
}

// ID returns the identifier of the changed row.
func (c Change) ID() string {
	if c.Type == ChangeDelete {
		if id := c.Old.ID(); id != "" {
			return id
		}
	}
	if id := c.New.ID(); id != "" {
		return id
	}
	return c.Old.ID()
}

// Filter is an equality filter on a single column.
type Filter struct {
	Column string
	Value  interface{}
}

// OwnerFilter matches the rows owned by ownerID.
func OwnerFilter(ownerID string) Filter {
	return Filter{Column: ColOwnerID, Value: ownerID}
}

func (f Filter) IsEmpty() bool { return f.Column == "" }

// Match reports whether rec satisfies the filter. An empty filter matches everything.
func (f Filter) Match(rec Record) bool {
	if f.IsEmpty() {
		return true
	}
	want, err := toString(f.Value)
	if err != nil {
		return false
	}
	got, err := toString(rec[f.Column])
	return err == nil && got == want
}

// Meta holds the fields every entity carries and the remote store assigns.
type Meta struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m Meta) encode(rec Record) {
	rec[ColID] = m.ID
	rec[ColOwnerID] = m.OwnerID
	rec[ColCreatedAt] = nullTime(m.CreatedAt)
	rec[ColUpdatedAt] = nullTime(m.UpdatedAt)
}

func decodeMeta(r *reader) Meta {
	return Meta{
		ID:        r.str(ColID),
		OwnerID:   r.str(ColOwnerID),
		CreatedAt: r.time(ColCreatedAt),
		UpdatedAt: r.time(ColUpdatedAt),
	}
}

var metaFields = []Field{
	{JSON: "id", Column: ColID},
	{JSON: "userId", Column: ColOwnerID},
	{JSON: "createdAt", Column: ColCreatedAt},
	{JSON: "updatedAt", Column: ColUpdatedAt},
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullValue(valid bool, v interface{}) interface{} {
	if !valid {
		return nil
	}
	return v
}
