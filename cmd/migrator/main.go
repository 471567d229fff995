package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/geocoder89/monocontact/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// standalone migrator for deployments that run migrations as a separate
// step instead of at API start-up
func main() {
	var migrationsPath string
	var down bool

	flag.StringVar(&migrationsPath, "migrations-path", "migrations", "path to migrations")
	flag.BoolVar(&down, "down", false, "roll back one migration instead of applying all")
	flag.Parse()

	cfg := config.Load()

	m, err := migrate.New("file://"+migrationsPath, cfg.DBURL)

	if err != nil {
		panic(err)
	}

	if down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")
			return
		}

		panic(err)
	}

	fmt.Println("migrations applied")
}
