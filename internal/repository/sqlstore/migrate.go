package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

func (db *DB) gooseSetup() (string, error) {
	goose.SetBaseFS(migrations)
	switch db.Dialect {
	case SQLite:
		if err := goose.SetDialect("sqlite3"); err != nil {
			return "", err
		}
		return "migrations/sqlite", nil
	case Postgres:
		if err := goose.SetDialect("pgx"); err != nil {
			return "", err
		}
		return "migrations/postgres", nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", db.Dialect)
	}
}

// Migrate applies every pending migration.
func (db *DB) Migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	dir, err := db.gooseSetup()
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	dir, err := db.gooseSetup()
	if err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("roll back migration: %w", err)
	}
	return nil
}

// MigrationVersion reports the current schema version.
func (db *DB) MigrationVersion(ctx context.Context) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if _, err := db.gooseSetup(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// SetMigrationLogger routes goose progress output through logrus.
func SetMigrationLogger(logger *logrus.Entry) {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetLogger(gooseLogger{entry: logger})
}

// gooseLogger never exits the process on Fatalf.
type gooseLogger struct {
	entry *logrus.Entry
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.entry.Errorf(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.entry.Infof(strings.TrimSpace(format), v...)
}
