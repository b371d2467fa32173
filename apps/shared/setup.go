// Package shared holds the set-up code common to the api and admin apps.
package shared

import (
	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/identity"
	"github.com/trezcool/unilife/core/syncstore"
	"github.com/trezcool/unilife/storage/database"
	inmemdb "github.com/trezcool/unilife/storage/database/inmem"
	"github.com/trezcool/unilife/storage/database/sqlstore"
	"github.com/trezcool/unilife/storage/localstate"
)

// OpenRecordStore returns the record store of the configured engine, and its closer.
// SQL databases are created when missing and migrated up.
func OpenRecordStore(conf *core.Config, logger core.Logger) (syncstore.RecordStore, func() error, error) {
	if conf.Database.Engine == core.EngineMemory {
		db, err := inmemdb.Open()
		return db, func() error { return nil }, err
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}
	if err = database.Ping(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	store := sqlstore.New(db, sqlstore.Options{ListenDSN: database.URL(conf), Logger: logger})
	closer := func() error {
		_ = store.Close()
		return db.Close()
	}
	return store, closer, nil
}

// NewIdentity resolves the owner from a session token when a secret key is configured:
// the configured token first, then the one saved by `admin login`.
// Without a secret key the apps run single-user under a generated owner id.
func NewIdentity(conf *core.Config, state *localstate.Store) syncstore.Identity {
	if conf.Session.SecretKey == "" {
		return identity.NewFallbackProvider(state)
	}
	secret := []byte(conf.Session.SecretKey)
	chain := identity.Chain{}
	if conf.Session.Token != "" {
		chain = append(chain, identity.NewSessionProvider(secret, identity.StaticToken(conf.Session.Token)))
	}
	return append(chain, identity.NewSessionProvider(secret, state))
}
