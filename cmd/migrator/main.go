package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/quiz-rooms/internal/config"
)

var commands = map[string]bool{
	"up":        true,
	"up-by-one": true,
	"down":      true,
	"redo":      true,
	"reset":     true,
	"status":    true,
	"version":   true,
}

func main() {
	command := flag.String("command", "up", "goose command: up, up-by-one, down, redo, reset, status, version")
	dir := flag.String("dir", "db/migrations", "migration directory")
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("app", "quiz-migrator").Logger()

	if !commands[*command] {
		log.Fatal().Str("command", *command).Msg("unsupported migration command")
	}

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("configs/.env"); err != nil {
			log.Warn().Err(err).Msg("no .env file loaded")
		}
	}

	cfg, err := config.LoadMigrator()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	migrations, err := filepath.Abs(*dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("bad migration directory")
	}
	if info, err := os.Stat(migrations); err != nil || !info.IsDir() {
		log.Fatal().Str("dir", migrations).Msg("migration directory not found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := goose.OpenDBWithDriver("pgx", cfg.Postgres.DSN())
	if err != nil {
		log.Fatal().Err(err).Str("host", cfg.Postgres.Host).Msg("failed to open postgres")
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Str("host", cfg.Postgres.Host).Msg("postgres unreachable")
	}

	log.Info().
		Str("database", cfg.Postgres.Database).
		Str("dir", migrations).
		Str("command", *command).
		Msg("running migrations")

	goose.SetTableName("goose_db_version")
	if err := goose.RunContext(ctx, *command, db, migrations); err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
	log.Info().Str("command", *command).Msg("migrations done")
}
