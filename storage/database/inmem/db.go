// Package inmemdb is a RecordStore held in memory.
package inmemdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/record"
	"github.com/trezcool/unilife/core/syncstore"
	"github.com/trezcool/unilife/storage/database/changefeed"
)

type table struct {
	rows  map[string]record.Record
	mutex sync.RWMutex
}

type DB struct {
	tables map[string]*table
	hub    *changefeed.Hub
}

var _ syncstore.RecordStore = (*DB)(nil)

func Open() (*DB, error) {
	db := &DB{
		tables: make(map[string]*table),
		hub:    changefeed.NewHub(),
	}
	for _, name := range []string{record.TableModules, record.TableTasks, record.TableTransactions} {
		db.tables[name] = &table{rows: make(map[string]record.Record)}
	}
	return db, nil
}

func (db *DB) table(name string) (*table, error) {
	t, ok := db.tables[name]
	if !ok {
		return nil, errors.Errorf("unknown table %q", name)
	}
	return t, nil
}

func (db *DB) Select(_ context.Context, name string, filter record.Filter, order []core.DBOrdering) ([]record.Record, error) {
	t, err := db.table(name)
	if err != nil {
		return nil, err
	}
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	rows := make([]record.Record, 0, len(t.rows))
	for _, row := range t.rows {
		if filter.Match(row) {
			rows = append(rows, row.Copy())
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			c := record.Compare(rows[i][o.Field], rows[j][o.Field])
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		return rows[i].ID() < rows[j].ID()
	})
	return rows, nil
}

func (db *DB) Insert(_ context.Context, name string, rec record.Record) (record.Record, error) {
	t, err := db.table(name)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	row := rec.Copy()
	row[record.ColID] = uuid.New().String()
	row[record.ColCreatedAt] = now
	row[record.ColUpdatedAt] = now

	t.mutex.Lock()
	t.rows[row.ID()] = row
	t.mutex.Unlock()

	db.hub.Publish(record.Change{Table: name, Type: record.ChangeInsert, New: row.Copy()})
	return row.Copy(), nil
}

// Update overwrites the given columns of the row.
func (db *DB) Update(_ context.Context, name, id string, rec record.Record) error {
	t, err := db.table(name)
	if err != nil {
		return err
	}

	t.mutex.Lock()
	old, ok := t.rows[id]
	if !ok {
		t.mutex.Unlock()
		return syncstore.ErrNotFound
	}
	row := old.Copy()
	for col, val := range rec {
		switch col {
		case record.ColID, record.ColOwnerID, record.ColCreatedAt:
		default:
			row[col] = val
		}
	}
	row[record.ColUpdatedAt] = time.Now().UTC()
	t.rows[id] = row
	t.mutex.Unlock()

	db.hub.Publish(record.Change{Table: name, Type: record.ChangeUpdate, New: row.Copy(), Old: old})
	return nil
}

func (db *DB) Delete(_ context.Context, name, id string) error {
	t, err := db.table(name)
	if err != nil {
		return err
	}

	t.mutex.Lock()
	old, ok := t.rows[id]
	if !ok {
		t.mutex.Unlock()
		return syncstore.ErrNotFound
	}
	delete(t.rows, id)
	t.mutex.Unlock()

	db.hub.Publish(record.Change{Table: name, Type: record.ChangeDelete, Old: old})
	return nil
}

func (db *DB) Subscribe(ctx context.Context, name string, filter record.Filter) (<-chan record.Change, error) {
	if _, err := db.table(name); err != nil {
		return nil, err
	}
	return db.hub.Subscribe(ctx, name, filter), nil
}

// Count returns the number of rows in the table, for tests and stats.
func (db *DB) Count(name string) int {
	t, err := db.table(name)
	if err != nil {
		return 0
	}
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.rows)
}
