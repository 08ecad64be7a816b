package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/weightlog/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "weightlog server URL (e.g. https://weightlog.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("WEIGHTLOG_API_KEY"), "ingest API key (default $WEIGHTLOG_API_KEY)")
	dryRun := flag.Bool("dry-run", false, "parse files locally but don't send to server")
	history := flag.Bool("history", false, "list previously uploaded files and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("weightlog-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := upload.OpenStateDB(filepath.Join(homeDir, ".weightlog-upload"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *history {
		files, err := state.History()
		if err != nil {
			log.Error("failed to read history", "error", err)
			os.Exit(1)
		}
		for _, f := range files {
			fmt.Printf("%s  %s  imported=%d skipped=%d failed=%d\n", f.UploadedAt, f.Path, f.Imported, f.Skipped, f.Failed)
		}
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: weightlog-upload -server <URL> [-dry-run] <file.csv|dir>...\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	if *dryRun {
		log.Info("DRY RUN mode, files will be parsed but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	u := upload.New(upload.NewClient(*serverURL, *apiKey), state, *dryRun, log)
	stats, err := u.Run(ctx, flag.Args())
	printStats(log, stats)
	if err != nil {
		log.Error("upload failed", "error", err)
		os.Exit(1)
	}
	if stats.FilesErrored > 0 {
		os.Exit(1)
	}
}

func printStats(log *slog.Logger, s *upload.Stats) {
	log.Info("upload summary",
		"files_total", s.FilesTotal,
		"files_uploaded", s.FilesUploaded,
		"files_skipped", s.FilesSkipped,
		"files_errored", s.FilesErrored,
		"workouts_found", s.WorkoutsFound,
		"workouts_imported", s.WorkoutsImported,
		"workouts_skipped", s.WorkoutsSkipped,
		"workouts_failed", s.WorkoutsFailed,
	)
}
