package main

import (
	"flag"
	"os"
	"time"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/db"
	"github.com/geocoder89/authhub/internal/observability"
)

// usage: migrate [up|down|status]
func main() {
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()

	log := observability.NewLogger(cfg.Env)

	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if cfg.StoreDriver != config.StorePostgres {
		log.Error("migrations need the postgres store", "store", cfg.StoreDriver)
		os.Exit(1)
	}

	ctx, cancel := config.WithTimeout(time.Minute)
	defer cancel()

	err = db.Migrate(ctx, cfg.DBURL, command)

	if err != nil {
		log.Error("migration failed", "command", command, "err", err)
		os.Exit(1)
	}

	log.Info("migration finished", "command", command)
}
