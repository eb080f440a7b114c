package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrations embed.FS

// Credentials select and address the database. SQLitePath is only used by
// the sqlite driver; ":memory:" gives a private in-memory database.
type Credentials struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

func (c Credentials) dsn() (string, error) {
	switch c.Driver {
	case DriverPostgres, "":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, sslMode), nil
	case DriverSQLite:
		return c.SQLitePath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// DB is a connection pool that remembers its dialect.
type DB struct {
	*sql.DB
	Driver string
}

// Connect opens and pings the database.
func Connect(c Credentials) (*DB, error) {
	dsn, err := c.dsn()
	if err != nil {
		return nil, err
	}
	driver := c.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite allows a single writer, and every pooled connection to
		// :memory: would otherwise be a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{DB: db, Driver: driver}, nil
}

// ConnectAndMigrate opens the database and brings its schema up to date.
func ConnectAndMigrate(c Credentials) (*DB, error) {
	db, err := Connect(c)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded migrations for the pool's dialect.
func (db *DB) Migrate() error {
	var (
		driver migratedb.Driver
		err    error
	)
	switch db.Driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case DriverSQLite:
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		err = fmt.Errorf("unsupported database driver %q", db.Driver)
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrations, "migrations/"+db.Driver)
	if err != nil {
		return fmt.Errorf("could not read migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.Driver, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	logrus.WithField("driver", db.Driver).Info("database migrations applied")
	return nil
}

// Tx runs fn in a transaction, committing if it returns nil and rolling back
// otherwise.
func (db *DB) Tx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start a transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				logrus.WithError(rollbackErr).Error("failed to rollback tx")
			}
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit tx: %w", commitErr)
		}
	}()
	return fn(tx)
}

// IsUniqueViolation reports whether err is a unique index or constraint
// failure on either supported dialect. Primary key collisions are not
// included; callers map this to a domain conflict on a natural key.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Postgres shares 23505 with primary keys, which keep the default
		// <table>_pkey name in every migration.
		return pqErr.Code == "23505" && !strings.HasSuffix(pqErr.Constraint, "_pkey")
	}
	var liteErr *moderncsqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
