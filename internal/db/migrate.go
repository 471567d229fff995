package db

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies all pending migrations from the given directory.
// A database that is already up to date is not an error.
func Migrate(dbURL, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dbURL)

	if err != nil {
		return err
	}

	defer func() { _, _ = m.Close() }()

	err = m.Up()

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
