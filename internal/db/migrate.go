package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/geocoder89/authhub/internal/db/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// seams for tests
var (
	gooseUp     = goose.UpContext
	gooseDown   = goose.DownContext
	gooseStatus = goose.StatusContext
	openDB      = func(dbURL string) (*sql.DB, error) { return sql.Open("pgx", dbURL) }
)

// Migrate runs a goose command ("up", "down" or "status") with the embedded migrations.
func Migrate(ctx context.Context, dbURL, command string) error {
	run, err := migrationCommand(command)

	if err != nil {
		return err
	}

	sqlDB, err := openDB(dbURL)

	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)

	err = goose.SetDialect("postgres")

	if err != nil {
		return err
	}

	return run(ctx, sqlDB, ".")
}

func migrationCommand(command string) (func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error, error) {
	switch command {
	case "up":
		return gooseUp, nil
	case "down":
		return gooseDown, nil
	case "status":
		return gooseStatus, nil
	default:
		return nil, fmt.Errorf("unknown migration command %q", command)
	}
}
