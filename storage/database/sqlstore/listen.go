package sqlstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core/record"
	"github.com/trezcool/unilife/core/syncstore"
)

// NotifyChannel is the channel the postgres triggers notify on.
const NotifyChannel = "record_changes"

// notification names the changed row; the row itself is read back on dispatch.
type notification struct {
	Table   string            `json:"table"`
	Type    record.ChangeType `json:"type"`
	ID      string            `json:"id"`
	OwnerID string            `json:"user_id"`
}

// change builds the change n announces. Deletes carry the keys only.
func (s *Store) change(ctx context.Context, n notification) (record.Change, error) {
	if _, ok := s.columns[n.Table]; !ok {
		return record.Change{}, errors.Errorf("unknown table %q", n.Table)
	}
	if n.ID == "" {
		return record.Change{}, errors.New("missing id")
	}
	change := record.Change{Table: n.Table, Type: n.Type}
	switch n.Type {
	case record.ChangeDelete:
		change.Old = record.Record{record.ColID: n.ID, record.ColOwnerID: n.OwnerID}
	case record.ChangeInsert, record.ChangeUpdate:
		row, err := s.get(ctx, s.db, n.Table, n.ID)
		if err != nil {
			return record.Change{}, err
		}
		change.New = row
	default:
		return record.Change{}, errors.Errorf("unknown change type %q", n.Type)
	}
	return change, nil
}

// listen starts forwarding postgres notifications to the hub until the store is closed.
func (s *Store) listen() error {
	if s.listenDSN == "" {
		return errors.New("no connection string for the change listener")
	}
	listener := pq.NewListener(s.listenDSN, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil && s.logger != nil {
			s.logger.Warn("change listener event", err, map[string]interface{}{"event": ev})
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		_ = listener.Close()
		return errors.Wrap(err, "listening for changes")
	}

	go func() {
		defer func() { _ = listener.Close() }()
		for {
			select {
			case <-s.stop:
				return
			case n := <-listener.Notify:
				if n == nil {
					// reconnected: notifications may have been missed
					if s.logger != nil {
						s.logger.Warn("change listener reconnected")
					}
					continue
				}
				s.dispatch(n.Extra)
			case <-time.After(90 * time.Second):
				go func() { _ = listener.Ping() }()
			}
		}
	}()
	return nil
}

func (s *Store) dispatch(payload string) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		if s.logger != nil {
			s.logger.Error("decoding change notification", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	change, err := s.change(ctx, n)
	switch {
	case errors.Cause(err) == syncstore.ErrNotFound:
		// deleted since; its own notification follows
		return
	case err != nil:
		if s.logger != nil {
			s.logger.Error("reading changed row", err, map[string]interface{}{"table": n.Table, "id": n.ID})
		}
		return
	}
	s.hub.Publish(change)
}
