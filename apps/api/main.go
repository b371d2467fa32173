package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	echoapi "github.com/trezcool/unilife/apps/api/echo"
	"github.com/trezcool/unilife/apps/shared"
	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/record"
	"github.com/trezcool/unilife/core/syncstore"
	logsvc "github.com/trezcool/unilife/services/logger"
	"github.com/trezcool/unilife/storage/localstate"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up record store
	remote, closeRemote, err := shared.OpenRecordStore(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up record store: %v", err), err)
	}
	defer func() {
		if err = closeRemote(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up local state
	state, err := localstate.Open(conf.LocalState.Path)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening local state: %v", err), err)
	}
	defer func() {
		if err = state.Close(); err != nil {
			logger.Error("Failed to close local state", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	record.InitValidators(validate, translator)

	store := syncstore.NewStore(remote, shared.NewIdentity(conf, state), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err = store.Load(ctx); err != nil {
		// the API still serves; POST /v1/refresh retries once logged in
		logger.Warn(fmt.Sprintf("initial load failed: %v", err), err)
	}
	if err = store.Listen(ctx); err != nil {
		// the next successful load subscribes
		logger.Warn(fmt.Sprintf("live changes unavailable: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("engine").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Store:      store,
			Profiles:   state,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		cancel() // stop listening for changes

		// give outstanding requests a deadline for completion
		sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer scancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
