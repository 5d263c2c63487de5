// Command migrate applies the embedded SQL schema to DATABASE_URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"supplierhub/internal/platform/config"
	"supplierhub/internal/platform/logger"
	"supplierhub/internal/platform/migrations"
)

func main() {
	list := flag.Bool("list", false, "print the embedded migrations and exit")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if *list {
		ms, err := migrations.List()
		if err != nil {
			log.Error("failed to read migrations", "error", err)
			os.Exit(1)
		}
		for _, m := range ms {
			fmt.Println(m.Version)
		}
		return
	}

	if cfg.Database.URL == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	applied, err := migrations.Apply(ctx, pool)
	if err != nil {
		log.Error("migration failed", "applied", applied, "error", err)
		pool.Close()
		os.Exit(1)
	}
	if len(applied) == 0 {
		log.Info("schema up to date")
		return
	}
	log.Info("migrations applied", "versions", applied)
}
