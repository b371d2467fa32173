package database

import (
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/unilife/core"
)

//go:embed migrations
var migrations embed.FS

// Driver names
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// URL is the postgres connection string, also used by the change listener.
func URL(conf *core.Config) string {
	return pgURL(conf.Database.Name, false, conf)
}

func pgURL(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func sqliteDSN(path string) string {
	q := make(url.Values)
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + filepath.Clean(path) + "?" + q.Encode()
}

// Open opens the SQL database of the configured engine.
func Open(conf *core.Config) (*sqlx.DB, error) {
	switch conf.Database.Engine {
	case core.EnginePostgres:
		return sqlx.Open(DriverPostgres, URL(conf))
	case core.EngineSQLite:
		if strings.TrimSpace(conf.Database.Path) == "" {
			return nil, errors.New("database path is required")
		}
		db, err := sqlx.Open(DriverSQLite, sqliteDSN(conf.Database.Path))
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1) // sqlite allows a single writer
		return db, nil
	}
	return nil, errors.Errorf("%q is not an SQL engine", conf.Database.Engine)
}

// Ping waits for the database to be ready. Waits 100ms longer between each attempt.
func Ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func createAppUser(db *sql.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	var exists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", conf.Database.User).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !exists {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sql.DB, conf *core.Config) error {
	var exists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !exists {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the postgres app user and database when missing.
// Other engines need no set-up.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine != core.EnginePostgres {
		return nil
	}

	// connect as admin
	db, err := sql.Open(DriverPostgres, pgURL("postgres", true, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	if err = Ping(sqlx.NewDb(db, DriverPostgres)); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, conf); err != nil {
		return err
	}

	// create DB as app user
	appDB, err := sql.Open(DriverPostgres, pgURL("postgres", false, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()
	return createDB(appDB, conf)
}

// dialect returns the goose dialect and the migrations directory of db.
func dialect(db *sqlx.DB) (string, string, error) {
	switch db.DriverName() {
	case DriverPostgres:
		return "postgres", "migrations/postgres", nil
	case DriverSQLite:
		return "sqlite3", "migrations/sqlite", nil
	}
	return "", "", errors.Errorf("no migrations for driver %q", db.DriverName())
}

// RunMigration runs a goose command (up, down, status, version, ...) against the embedded migrations.
func RunMigration(db *sqlx.DB, command string, args ...string) error {
	d, dir, err := dialect(db)
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	if err = goose.SetDialect(d); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err = goose.Run(command, db.DB, dir, args...); err != nil {
		return errors.Wrapf(err, "migrate %s", command)
	}
	return nil
}

func Migrate(db *sqlx.DB) error {
	return RunMigration(db, "up")
}
