package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/record"
	"github.com/trezcool/unilife/core/syncstore"
)

// Profiles keeps the academic profile of the current owner.
type Profiles interface {
	Profile(ctx context.Context, defaultTarget float64) (record.Profile, error)
	SaveProfile(ctx context.Context, p record.Profile) error
}

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Store          *syncstore.Store
		Profiles       Profiles
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	v1.GET("/status", s.status)
	v1.POST("/refresh", s.refresh)
	v1.GET("/changes", s.changes)

	store := s.deps.Store
	registerCollectionAPI[record.Module, record.NewModule](
		v1.Group("/modules"), store.Modules(), record.ModuleSchema, s.deps.Validate, filterModules,
	)
	registerCollectionAPI[record.Task, record.NewTask](
		v1.Group("/tasks"), store.Tasks(), record.TaskSchema, s.deps.Validate, filterTasks,
	)
	registerCollectionAPI[record.Transaction, record.NewTransaction](
		v1.Group("/transactions"), store.Transactions(), record.TransactionSchema, s.deps.Validate, filterTransactions,
	)

	registerAcademicsAPI(v1.Group("/academics"), store, s.deps.Profiles, s.deps.Validate, conf.Academic.TargetAverage)
	registerFinancesAPI(v1.Group("/finances"), store)
	registerPlannerAPI(v1.Group("/planner"), store)
}

// Start listens on the configured address until Shutdown or Close is called.
// Listen failures are sent to Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

type StatusResponse struct {
	Build        string `json:"build"`
	Loading      bool   `json:"loading"`
	Loaded       bool   `json:"loaded"`
	Modules      int    `json:"modules"`
	Tasks        int    `json:"tasks"`
	Transactions int    `json:"transactions"`
}

func (s *Server) statusResponse() StatusResponse {
	store := s.deps.Store
	return StatusResponse{
		Build:        s.deps.Conf.Build,
		Loading:      store.Loading(),
		Loaded:       store.Loaded(),
		Modules:      store.Modules().Len(),
		Tasks:        store.Tasks().Len(),
		Transactions: store.Transactions().Len(),
	}
}

func (s *Server) status(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.statusResponse())
}

// refresh reloads every collection from the record store.
func (s *Server) refresh(ctx echo.Context) error {
	if err := s.deps.Store.Load(ctx.Request().Context()); err != nil {
		return storeError(err, "loading store")
	}
	return ctx.JSON(http.StatusOK, s.statusResponse())
}
