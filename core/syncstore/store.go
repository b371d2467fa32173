package syncstore

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/record"
)

// Notice tells watchers that a collection changed.
type Notice struct {
	Collection string `json:"collection"`
}

// Store holds the modules, tasks and transactions of the current owner.
// One Store is created per running application and passed to its consumers.
type Store struct {
	remote RecordStore
	ident  Identity
	logger core.Logger

	modules      *Collection[record.Module]
	tasks        *Collection[record.Task]
	transactions *Collection[record.Transaction]

	mu       sync.Mutex
	loading  bool
	loaded   bool
	watchers map[chan Notice]struct{}

	// live subscriptions, keyed to the owner they were opened for
	listenMu    sync.Mutex
	listenCtx   context.Context
	listenOwner string
	stopListen  context.CancelFunc
}

func NewStore(remote RecordStore, ident Identity, logger core.Logger) *Store {
	s := &Store{
		remote:   remote,
		ident:    ident,
		logger:   logger,
		watchers: make(map[chan Notice]struct{}),
	}
	s.modules = newCollection(record.ModuleSchema, remote, ident, logger, s.broadcast)
	s.tasks = newCollection(record.TaskSchema, remote, ident, logger, s.broadcast)
	s.transactions = newCollection(record.TransactionSchema, remote, ident, logger, s.broadcast)
	return s
}

func (s *Store) Modules() *Collection[record.Module]           { return s.modules }
func (s *Store) Tasks() *Collection[record.Task]               { return s.tasks }
func (s *Store) Transactions() *Collection[record.Transaction] { return s.transactions }

// Loading reports whether the bulk load is in progress.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Loaded reports whether a bulk load has completed.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

type reloader interface {
	Reload(ctx context.Context) error
	Table() string
}

func (s *Store) collections() []reloader {
	return []reloader{s.modules, s.tasks, s.transactions}
}

// Load fetches the three collections for the current owner, replacing any local state.
// Once Listen has been called, Load also moves the live subscriptions to that owner.
func (s *Store) Load(ctx context.Context) error {
	owner, err := resolveOwner(ctx, s.ident)
	if err != nil {
		s.listenMu.Lock()
		s.unsubscribe()
		s.listenMu.Unlock()
		return err
	}
	if err = s.follow(owner); err != nil {
		s.logger.Warn("live changes unavailable", err, core.Owner{ID: owner})
	}
	s.setLoading(true)
	defer s.setLoading(false)

	var (
		wg   sync.WaitGroup
		errs = make([]error, len(s.collections()))
	)
	for i, coll := range s.collections() {
		wg.Add(1)
		go func(i int, coll reloader) {
			defer wg.Done()
			errs[i] = coll.Reload(ctx)
		}(i, coll)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			s.logger.Error("initial load failed", err)
			return err
		}
	}
	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

// Listen subscribes to the owner's remote changes and merges them until ctx is done.
// When no owner can be resolved yet, the next successful Load subscribes.
func (s *Store) Listen(ctx context.Context) error {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	s.listenCtx = ctx

	owner, err := resolveOwner(ctx, s.ident)
	if err != nil {
		s.unsubscribe()
		return err
	}
	return s.subscribe(owner)
}

// follow re-keys the subscriptions to owner if Listen is active. listenMu must not be held.
func (s *Store) follow(owner string) error {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	if s.listenCtx == nil || s.listenCtx.Err() != nil {
		return nil
	}
	if s.stopListen != nil && s.listenOwner == owner {
		return nil
	}
	return s.subscribe(owner)
}

// subscribe replaces the current subscriptions with those of owner. listenMu must be held.
func (s *Store) subscribe(owner string) error {
	s.unsubscribe()

	ctx, cancel := context.WithCancel(s.listenCtx)
	filter := record.OwnerFilter(owner)
	appliers := map[string]func(record.Change) error{
		record.TableModules:      s.modules.Apply,
		record.TableTasks:        s.tasks.Apply,
		record.TableTransactions: s.transactions.Apply,
	}
	for table, apply := range appliers {
		changes, err := s.remote.Subscribe(ctx, table, filter)
		if err != nil {
			cancel()
			return errors.Wrapf(err, "subscribing to %s", table)
		}
		go s.merge(ctx, table, changes, apply)
	}
	s.listenOwner, s.stopListen = owner, cancel
	return nil
}

// unsubscribe stops the current subscriptions, if any. listenMu must be held.
func (s *Store) unsubscribe() {
	if s.stopListen != nil {
		s.stopListen()
	}
	s.listenOwner, s.stopListen = "", nil
}

func (s *Store) merge(ctx context.Context, table string, changes <-chan record.Change, apply func(record.Change) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok || ctx.Err() != nil {
				return
			}
			if err := apply(change); err != nil {
				s.logger.Warn("ignoring "+table+" change", err, map[string]interface{}{
					"type": change.Type,
					"id":   change.ID(),
				})
			}
		}
	}
}

// Watch returns a channel of change notices, closed once ctx is done.
// Notices are dropped for watchers that do not keep up.
func (s *Store) Watch(ctx context.Context) <-chan Notice {
	ch := make(chan Notice, 16)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *Store) broadcast(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- Notice{Collection: table}:
		default:
		}
	}
}
