// Package sqlstore is the RecordStore over an SQL database (postgres or sqlite).
// Changes are streamed from postgres NOTIFY triggers, or published in-process for sqlite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/record"
	"github.com/trezcool/unilife/core/syncstore"
	"github.com/trezcool/unilife/storage/database"
	"github.com/trezcool/unilife/storage/database/changefeed"
)

// sqlite keeps timestamps as fixed-width UTC text, so they sort as they compare.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"

type Options struct {
	// ListenDSN is the postgres connection string of the change listener.
	ListenDSN string
	Logger    core.Logger
}

type Store struct {
	db      *sqlx.DB
	logger  core.Logger
	hub     *changefeed.Hub
	columns map[string]map[string]bool

	listenDSN  string
	listenOnce sync.Once
	listenErr  error
	stop       chan struct{}
	stopOnce   sync.Once
}

var _ syncstore.RecordStore = (*Store)(nil)

func New(db *sqlx.DB, opts Options) *Store {
	return &Store{
		db:     db,
		logger: opts.Logger,
		hub:    changefeed.NewHub(),
		columns: map[string]map[string]bool{
			record.TableModules:      columnSet(record.ModuleSchema.Columns()),
			record.TableTasks:        columnSet(record.TaskSchema.Columns()),
			record.TableTransactions: columnSet(record.TransactionSchema.Columns()),
		},
		listenDSN: opts.ListenDSN,
		stop:      make(chan struct{}),
	}
}

func columnSet(cols []string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}

// Close stops the change listener.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *Store) isPostgres() bool {
	return s.db.DriverName() == database.DriverPostgres
}

// checkColumns rejects unknown tables and columns; names are interpolated into queries.
func (s *Store) checkColumns(table string, cols ...string) error {
	known, ok := s.columns[table]
	if !ok {
		return errors.Errorf("unknown table %q", table)
	}
	for _, c := range cols {
		if !known[c] {
			return errors.Errorf("unknown column %s.%s", table, c)
		}
	}
	return nil
}

// bind converts a record value to a driver value.
func (s *Store) bind(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case time.Time:
		if s.isPostgres() {
			return val.UTC(), nil
		}
		return val.UTC().Format(sqliteTimeLayout), nil
	case []record.Record, []interface{}, map[string]interface{}, record.Record:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
	return v, nil
}

func (s *Store) Select(ctx context.Context, table string, filter record.Filter, order []core.DBOrdering) ([]record.Record, error) {
	cols := make([]string, 0, len(order)+1)
	if !filter.IsEmpty() {
		cols = append(cols, filter.Column)
	}
	for _, o := range order {
		cols = append(cols, o.Field)
	}
	if err := s.checkColumns(table, cols...); err != nil {
		return nil, err
	}

	var (
		q    strings.Builder
		args []interface{}
	)
	q.WriteString("SELECT * FROM " + table)
	if !filter.IsEmpty() {
		q.WriteString(" WHERE " + filter.Column + " = ?")
		args = append(args, filter.Value)
	}
	if len(order) > 0 {
		parts := make([]string, 0, len(order))
		for _, o := range order {
			parts = append(parts, o.String())
		}
		q.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(q.String()), args...)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting %s", table)
	}
	defer func() { _ = rows.Close() }()

	recs := make([]record.Record, 0)
	for rows.Next() {
		rec := make(map[string]interface{})
		if err = rows.MapScan(rec); err != nil {
			return nil, errors.Wrapf(err, "scanning %s", table)
		}
		recs = append(recs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "selecting %s", table)
	}
	return recs, nil
}

func (s *Store) get(ctx context.Context, q sqlx.QueryerContext, table, id string) (record.Record, error) {
	rec := make(map[string]interface{})
	row := q.QueryRowxContext(ctx, s.db.Rebind("SELECT * FROM "+table+" WHERE id = ?"), id)
	if err := row.MapScan(rec); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, syncstore.ErrNotFound
		}
		return nil, errors.Wrapf(err, "reading %s", table)
	}
	return rec, nil
}

// Insert stores rec under a new identifier and returns the stored row.
func (s *Store) Insert(ctx context.Context, table string, rec record.Record) (record.Record, error) {
	now := time.Now().UTC()
	row := rec.Copy()
	row[record.ColID] = uuid.New().String()
	row[record.ColCreatedAt] = now
	row[record.ColUpdatedAt] = now

	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	if err := s.checkColumns(table, cols...); err != nil {
		return nil, err
	}
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		v, err := s.bind(row[col])
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s.%s", table, col)
		}
		args = append(args, v)
	}

	q := "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ") RETURNING *"
	stored := make(map[string]interface{})
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(q), args...).MapScan(stored); err != nil {
		return nil, errors.Wrapf(err, "inserting into %s", table)
	}

	s.publish(record.Change{Table: table, Type: record.ChangeInsert, New: stored})
	return stored, nil
}

// Update overwrites the given columns of the row and touches its update time.
func (s *Store) Update(ctx context.Context, table, id string, rec record.Record) error {
	cols := make([]string, 0, len(rec)+1)
	for col := range rec {
		switch col {
		case record.ColID, record.ColOwnerID, record.ColCreatedAt, record.ColUpdatedAt:
		default:
			cols = append(cols, col)
		}
	}
	cols = append(cols, record.ColUpdatedAt)
	if err := s.checkColumns(table, cols...); err != nil {
		return err
	}

	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for _, col := range cols {
		val := rec[col]
		if col == record.ColUpdatedAt {
			val = time.Now().UTC()
		}
		v, err := s.bind(val)
		if err != nil {
			return errors.Wrapf(err, "encoding %s.%s", table, col)
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	args = append(args, id)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	old, err := s.get(ctx, tx, table, id)
	if err != nil {
		return err
	}
	q := "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err = tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
		return errors.Wrapf(err, "updating %s", table)
	}
	updated, err := s.get(ctx, tx, table, id)
	if err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	s.publish(record.Change{Table: table, Type: record.ChangeUpdate, New: updated, Old: old})
	return nil
}

func (s *Store) Delete(ctx context.Context, table, id string) error {
	if err := s.checkColumns(table); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	old, err := s.get(ctx, tx, table, id)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE id = ?"), id); err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	s.publish(record.Change{Table: table, Type: record.ChangeDelete, Old: old})
	return nil
}

// publish hands sqlite changes to subscribers; postgres changes come back through NOTIFY.
func (s *Store) publish(change record.Change) {
	if s.isPostgres() {
		return
	}
	s.hub.Publish(change)
}

func (s *Store) Subscribe(ctx context.Context, table string, filter record.Filter) (<-chan record.Change, error) {
	var cols []string
	if !filter.IsEmpty() {
		cols = append(cols, filter.Column)
	}
	if err := s.checkColumns(table, cols...); err != nil {
		return nil, err
	}
	if s.isPostgres() {
		s.listenOnce.Do(func() { s.listenErr = s.listen() })
		if s.listenErr != nil {
			return nil, s.listenErr
		}
	}
	return s.hub.Subscribe(ctx, table, filter), nil
}
