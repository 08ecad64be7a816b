package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/weightlog/internal/config"
	"github.com/claude/weightlog/internal/ingest"
	"github.com/claude/weightlog/internal/ingest/hevy"
	"github.com/claude/weightlog/internal/models"
	"github.com/claude/weightlog/internal/storage"
	"github.com/google/uuid"
)

// dryRunStore answers duplicate checks from the database but never writes.
type dryRunStore struct {
	*storage.DB
}

func (dryRunStore) InsertWorkout(context.Context, int, models.WorkoutRecord) (uuid.UUID, error) {
	return uuid.New(), nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	filePath := flag.String("file", "", "path to Hevy CSV export (required)")
	login := flag.String("login", "local", "user login to import for")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *filePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: weightlog-import -config config.yaml -file workouts.csv [-login user] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Error("failed to open CSV", "path", *filePath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	loc, err := cfg.Import.Location()
	if err != nil {
		log.Error("invalid import timezone", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode, no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	userID, err := db.GetOrCreateUser(ctx, *login, *login)
	if err != nil {
		log.Error("failed to resolve user", "login", *login, "error", err)
		os.Exit(1)
	}

	var store hevy.WorkoutStore = db
	if *dryRun {
		store = dryRunStore{db}
	}

	// Run import
	result, err := hevy.NewProvider(store, loc, log).Ingest(ctx, f, userID)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	printResult(log, result)
	log.Info("import complete")
}

func printResult(log *slog.Logger, r *ingest.Result) {
	log.Info("import summary",
		"workouts_found", r.WorkoutsFound,
		"imported", r.WorkoutsImported,
		"skipped", r.WorkoutsSkipped,
		"failed", r.WorkoutsFailed,
		"sets", r.SetsReceived,
	)
}
