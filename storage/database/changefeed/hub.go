// Package changefeed fans change notifications out to in-process subscribers.
package changefeed

import (
	"context"
	"sync"

	"github.com/trezcool/unilife/core/record"
)

type subscriber struct {
	ctx    context.Context
	table  string
	filter record.Filter
	ch     chan record.Change
}

// Hub delivers published changes to the subscribers of the changed table.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Subscribe returns the changes of table matching filter. The channel is closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context, table string, filter record.Filter) <-chan record.Change {
	sub := &subscriber{ctx: ctx, table: table, filter: filter, ch: make(chan record.Change, 64)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, sub)
		close(sub.ch)
		h.mu.Unlock()
	}()
	return sub.ch
}

// Publish delivers change, waiting on subscribers whose buffer is full.
func (h *Hub) Publish(change record.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.table != change.Table || !matches(sub.filter, change) {
			continue
		}
		select {
		case sub.ch <- change:
		case <-sub.ctx.Done():
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func matches(f record.Filter, change record.Change) bool {
	if change.Type == record.ChangeDelete {
		return f.Match(change.Old)
	}
	return f.Match(change.New)
}
