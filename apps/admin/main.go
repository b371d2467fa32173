package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/unilife/apps/shared"
	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/syncstore"
	logsvc "github.com/trezcool/unilife/services/logger"
	"github.com/trezcool/unilife/storage/database"
	"github.com/trezcool/unilife/storage/localstate"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	state, err := localstate.Open(conf.LocalState.Path)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening local state: %v", err), err)
	}

	// start CLI
	cli := newCommandLine(os.Stdout, state)
	cli.secret = []byte(conf.Session.SecretKey)
	cli.defaultTarget = conf.Academic.TargetAverage
	cli.openDB = func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}
	cli.openStore = func() (*syncstore.Store, func() error, error) {
		remote, closer, err := shared.OpenRecordStore(conf, logger)
		if err != nil {
			return nil, nil, err
		}
		return syncstore.NewStore(remote, shared.NewIdentity(conf, state), logger), closer, nil
	}

	err = cli.run(os.Args)
	if cErr := state.Close(); cErr != nil {
		logger.Error("Failed to close local state", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
