// Package syncstore mirrors the remote record store in memory: mutations are applied
// locally first, persisted after, and rolled back when the remote store refuses them.
// Remote change notifications are merged into the same collections.
package syncstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/record"
)

var (
	// ErrNoIdentity is returned when no owner can be resolved; the mutation is abandoned.
	ErrNoIdentity = errors.New("please log in")
	ErrNotFound   = errors.New("not found")
)

// RecordStore is the remote record store, addressed by table name.
type RecordStore interface {
	// Select returns the rows matching filter, in the given order.
	Select(ctx context.Context, table string, filter record.Filter, order []core.DBOrdering) ([]record.Record, error)
	// Insert stores rec and returns the stored row, with its identifier and timestamps.
	Insert(ctx context.Context, table string, rec record.Record) (record.Record, error)
	Update(ctx context.Context, table, id string, rec record.Record) error
	Delete(ctx context.Context, table, id string) error
	// Subscribe streams the changes of the rows matching filter until ctx is done.
	Subscribe(ctx context.Context, table string, filter record.Filter) (<-chan record.Change, error)
}

// Identity yields the current owner's identifier.
type Identity interface {
	OwnerID(ctx context.Context) (string, error)
}

func resolveOwner(ctx context.Context, ident Identity) (string, error) {
	owner, err := ident.OwnerID(ctx)
	if err != nil {
		return "", errors.Wrap(ErrNoIdentity, err.Error())
	}
	if owner == "" {
		return "", ErrNoIdentity
	}
	return owner, nil
}
