package syncstore

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/record"
)

// pendingCreate tracks a create whose remote insert has not resolved yet.
type pendingCreate[T any] struct {
	done    chan struct{}
	edited  bool // edited locally while in flight
	deleted bool // deleted locally while in flight
	saved   T    // set on success
	realID  string
	err     error
}

// Collection is the local mirror of one remote table, kept in the table's canonical order.
type Collection[T any] struct {
	schema record.Schema[T]
	remote RecordStore
	ident  Identity
	logger core.Logger
	notify func(table string)

	mu      sync.Mutex
	items   []T
	pending map[string]*pendingCreate[T] // by temporary id
}

func newCollection[T any](
	schema record.Schema[T],
	remote RecordStore,
	ident Identity,
	logger core.Logger,
	notify func(string),
) *Collection[T] {
	return &Collection[T]{
		schema:  schema,
		remote:  remote,
		ident:   ident,
		logger:  logger,
		notify:  notify,
		pending: make(map[string]*pendingCreate[T]),
	}
}

func (c *Collection[T]) Table() string { return c.schema.Table }

// All returns a snapshot of the collection.
func (c *Collection[T]) All() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]T, len(c.items))
	copy(items, c.items)
	return items
}

func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Reload replaces the collection with the owner's rows from the remote store.
func (c *Collection[T]) Reload(ctx context.Context) error {
	owner, err := resolveOwner(ctx, c.ident)
	if err != nil {
		return err
	}
	recs, err := c.remote.Select(ctx, c.schema.Table, record.OwnerFilter(owner), c.schema.Ordering)
	if err != nil {
		return errors.Wrapf(err, "loading %s", c.schema.Table)
	}
	items, err := c.schema.DecodeAll(recs)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	c.changed()
	return nil
}

// Create shows v at once under a temporary identifier, then inserts it remotely.
// On success the local entry is replaced by the stored one, which is returned;
// on failure the local entry is removed again.
func (c *Collection[T]) Create(ctx context.Context, v T) (T, error) {
	var zero T
	owner, err := resolveOwner(ctx, c.ident)
	if err != nil {
		return zero, err
	}
	meta := c.schema.Meta(&v)
	if !record.IsTempID(meta.ID) || meta.ID == "" {
		meta.ID = record.NewTempID()
	}
	meta.OwnerID = owner
	return c.create(ctx, v, owner)
}

func (c *Collection[T]) create(ctx context.Context, v T, owner string) (T, error) {
	var zero T
	tempID := c.schema.ID(v)
	p := &pendingCreate[T]{done: make(chan struct{})}

	c.mu.Lock()
	c.upsert(v)
	c.pending[tempID] = p
	c.mu.Unlock()
	c.changed()

	rec, err := c.remote.Insert(ctx, c.schema.Table, c.schema.InsertPayload(v, owner))
	var saved T
	if err == nil {
		saved, err = c.schema.Decode(rec)
	}
	if err != nil {
		c.mu.Lock()
		c.remove(tempID)
		delete(c.pending, tempID)
		p.err = err
		close(p.done)
		c.mu.Unlock()
		c.changed()

		c.logger.Error("create "+c.schema.Table+" failed; reverted", err, core.Owner{ID: owner})
		return zero, errors.Wrapf(err, "creating %s", c.schema.Table)
	}

	c.mu.Lock()
	realID := c.schema.ID(saved)
	ti := c.indexOf(tempID)
	if p.edited && ti >= 0 {
		// keep the fields edited in the meantime, under the stored identity
		edited := c.items[ti]
		*c.schema.Meta(&edited) = *c.schema.Meta(&saved)
		saved = edited
	}
	switch ri := c.indexOf(realID); {
	case p.deleted:
		// the pending Delete removes the stored row
	case ri >= 0:
		// a notification brought the stored row in first
		c.remove(tempID)
		c.replaceAt(c.indexOf(realID), saved)
	case ti >= 0:
		c.replaceAt(ti, saved)
	default:
		c.insertSorted(saved)
	}
	p.saved = saved
	p.realID = realID
	delete(c.pending, tempID)
	close(p.done)
	c.mu.Unlock()
	c.changed()
	return saved, nil
}

// Update shows the edit at once, then persists it.
// Editing an entity whose create is still in flight waits for that create and then
// updates the stored row; editing an unsaved entity with no create in flight creates it.
// When a remote update fails the whole collection is reloaded from the remote store.
func (c *Collection[T]) Update(ctx context.Context, v T) error {
	owner, err := resolveOwner(ctx, c.ident)
	if err != nil {
		return err
	}
	meta := c.schema.Meta(&v)
	meta.UpdatedAt = time.Now().UTC()
	id := meta.ID

	if record.IsTempID(id) {
		c.mu.Lock()
		p, inFlight := c.pending[id]
		if !inFlight {
			c.mu.Unlock()
			meta.OwnerID = owner
			if id == "" {
				meta.ID = record.NewTempID()
			}
			_, err := c.create(ctx, v, owner)
			return err
		}
		p.edited = true
		c.upsert(v)
		c.mu.Unlock()
		c.changed()

		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if p.err != nil {
			return errors.Wrapf(p.err, "creating %s", c.schema.Table)
		}
		cur, ok := c.Get(p.realID)
		if !ok {
			return nil // deleted meanwhile
		}
		return c.persistUpdate(ctx, p.realID, cur, owner)
	}

	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return ErrNotFound
	}
	meta.OwnerID = c.schema.Meta(&c.items[i]).OwnerID
	meta.CreatedAt = c.schema.Meta(&c.items[i]).CreatedAt
	c.replaceAt(i, v)
	c.mu.Unlock()
	c.changed()

	return c.persistUpdate(ctx, id, v, owner)
}

func (c *Collection[T]) persistUpdate(ctx context.Context, id string, v T, owner string) error {
	err := c.remote.Update(ctx, c.schema.Table, id, c.schema.UpdatePayload(v))
	if err == nil {
		return nil
	}
	c.logger.Error("update "+c.schema.Table+" failed; reloading", err, core.Owner{ID: owner})
	if rErr := c.Reload(ctx); rErr != nil {
		c.logger.Warn("reload "+c.schema.Table+" failed", rErr, core.Owner{ID: owner})
	}
	return errors.Wrapf(err, "updating %s", c.schema.Table)
}

// Delete removes the entity at once, then deletes it remotely; it is put back if that fails.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	owner, err := resolveOwner(ctx, c.ident)
	if err != nil {
		return err
	}

	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return ErrNotFound
	}
	removed := c.items[i]
	c.removeAt(i)
	p := c.pending[id]
	if p != nil {
		p.deleted = true
	}
	c.mu.Unlock()
	c.changed()

	if record.IsTempID(id) {
		if p == nil {
			return nil // never stored
		}
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if p.err != nil {
			return nil
		}
		// a notification may have brought the stored row in meanwhile
		c.mu.Lock()
		c.remove(p.realID)
		c.mu.Unlock()
		c.changed()
		id, removed = p.realID, p.saved
	}

	if err := c.remote.Delete(ctx, c.schema.Table, id); err != nil {
		c.mu.Lock()
		if c.indexOf(id) < 0 {
			c.insertSorted(removed)
		}
		c.mu.Unlock()
		c.changed()

		c.logger.Error("delete "+c.schema.Table+" failed; restored", err, core.Owner{ID: owner})
		return errors.Wrapf(err, "deleting %s", c.schema.Table)
	}
	return nil
}

// Apply merges a remote change notification. Inserts of a known identifier, and
// updates or deletes of an unknown one, leave the collection unchanged.
func (c *Collection[T]) Apply(change record.Change) error {
	var (
		v   T
		err error
	)
	if change.Type != record.ChangeDelete {
		if v, err = c.schema.Decode(change.New); err != nil {
			return err
		}
	}

	c.mu.Lock()
	changed := c.merge(change, v)
	c.mu.Unlock()
	if changed {
		c.changed()
	}
	return nil
}

func (c *Collection[T]) merge(change record.Change, v T) bool {
	switch change.Type {
	case record.ChangeInsert:
		if c.indexOf(c.schema.ID(v)) >= 0 {
			return false
		}
		c.insertSorted(v)
		return true
	case record.ChangeUpdate:
		i := c.indexOf(c.schema.ID(v))
		if i < 0 {
			return false
		}
		c.replaceAt(i, v)
		return true
	case record.ChangeDelete:
		return c.remove(change.ID())
	}
	return false
}

func (c *Collection[T]) changed() {
	if c.notify != nil {
		c.notify(c.schema.Table)
	}
}

// helpers below expect c.mu to be held

func (c *Collection[T]) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range c.items {
		if c.schema.Meta(&c.items[i]).ID == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) insertSorted(v T) {
	i := 0
	for i < len(c.items) && !c.schema.Less(v, c.items[i]) {
		i++
	}
	c.items = append(c.items, v)
	copy(c.items[i+1:], c.items[i:])
	c.items[i] = v
}

// replaceAt replaces the item at i, in place unless the order changes.
func (c *Collection[T]) replaceAt(i int, v T) {
	c.items[i] = v
	if (i > 0 && c.schema.Less(v, c.items[i-1])) || (i < len(c.items)-1 && c.schema.Less(c.items[i+1], v)) {
		c.removeAt(i)
		c.insertSorted(v)
	}
}

func (c *Collection[T]) upsert(v T) {
	if i := c.indexOf(c.schema.ID(v)); i >= 0 {
		c.replaceAt(i, v)
		return
	}
	c.insertSorted(v)
}

func (c *Collection[T]) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

func (c *Collection[T]) remove(id string) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}
