package upload

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/weightlog/internal/ingest/hevy"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	WorkoutsFound    int
	WorkoutsImported int
	WorkoutsSkipped  int
	WorkoutsFailed   int
}

// Uploader sends Hevy CSV exports to the weightlog server, remembering which
// files were already accepted.
type Uploader struct {
	client *Client
	state  *StateDB
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader.
func New(client *Client, state *StateDB, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		dryRun: dryRun,
		log:    log,
	}
}

// Run uploads every CSV file found under paths. A failed file is logged and
// counted; the remaining files are still processed.
func (u *Uploader) Run(ctx context.Context, paths []string) (*Stats, error) {
	files, err := CollectFiles(paths)
	if err != nil {
		return &u.stats, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		u.stats.FilesTotal++
		if err := u.processFile(ctx, f); err != nil {
			u.log.Warn("upload failed", "file", f, "error", err)
			u.stats.FilesErrored++
		}
	}

	return &u.stats, nil
}

func (u *Uploader) processFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	uploaded, err := u.state.IsUploaded(path, info.Size(), hash)
	if err != nil {
		return fmt.Errorf("state check: %w", err)
	}
	if uploaded {
		u.log.Debug("already uploaded", "file", path)
		u.stats.FilesSkipped++
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	if u.dryRun {
		workouts, err := hevy.Parse(string(data))
		if err != nil {
			return err
		}
		sets := 0
		for _, w := range workouts {
			sets += w.SetCount()
		}
		u.log.Info("dry-run: would send", "file", path, "workouts", len(workouts), "sets", sets)
		u.stats.WorkoutsFound += len(workouts)
		return nil
	}

	result, err := u.client.SendCSV(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}

	u.stats.FilesUploaded++
	u.stats.WorkoutsFound += result.WorkoutsFound
	u.stats.WorkoutsImported += result.WorkoutsImported
	u.stats.WorkoutsSkipped += result.WorkoutsSkipped
	u.stats.WorkoutsFailed += result.WorkoutsFailed

	u.log.Info("uploaded",
		"file", path,
		"imported", result.WorkoutsImported,
		"skipped", result.WorkoutsSkipped,
		"failed", result.WorkoutsFailed,
	)

	if err := u.state.MarkUploaded(path, info.Size(), hash,
		result.WorkoutsImported, result.WorkoutsSkipped, result.WorkoutsFailed); err != nil {
		u.log.Warn("failed to mark uploaded", "file", path, "error", err)
	}
	return nil
}

// CollectFiles expands paths into absolute CSV file paths. Directories are
// walked recursively; explicit files are taken as given.
func CollectFiles(paths []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	add := func(p string) error {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if !seen[abs] {
			seen[abs] = true
			files = append(files, abs)
		}
		return nil
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			if err := add(p); err != nil {
				return nil, err
			}
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
		sort.Strings(found)
		for _, f := range found {
			if err := add(f); err != nil {
				return nil, err
			}
		}
	}
	return files, nil
}
