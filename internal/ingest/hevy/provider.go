package hevy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/weightlog/internal/ingest"
	"github.com/claude/weightlog/internal/models"
	"github.com/claude/weightlog/internal/storage"
	"github.com/google/uuid"
)

// WorkoutStore is the persistence side of an import. InsertWorkout must
// return storage.ErrDuplicateWorkout when the natural key already exists and
// must insert at most once per key under concurrent callers.
type WorkoutStore interface {
	WorkoutExists(ctx context.Context, userID int, title, workoutDate, startTime string) (bool, error)
	InsertWorkout(ctx context.Context, userID int, rec models.WorkoutRecord) (uuid.UUID, error)
}

// Compile-time check: *storage.DB satisfies WorkoutStore.
var _ WorkoutStore = (*storage.DB)(nil)

// Provider processes Hevy workout CSV exports.
type Provider struct {
	store WorkoutStore
	loc   *time.Location
	log   *slog.Logger
}

// NewProvider creates a new Hevy ingest provider. Timestamps without an
// offset are read in loc.
func NewProvider(store WorkoutStore, loc *time.Location, log *slog.Logger) *Provider {
	if loc == nil {
		loc = time.UTC
	}
	return &Provider{store: store, loc: loc, log: log}
}

// Ingest parses a CSV export and stores each grouped workout.
// Only precondition failures (no data, missing columns, read errors) are
// returned as errors; per-workout problems are counted in the result.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	workouts, err := Parse(string(data))
	if err != nil {
		return nil, err
	}

	result := &ingest.Result{WorkoutsFound: len(workouts)}
	records := make([]models.WorkoutRecord, 0, len(workouts))
	for _, w := range workouts {
		result.SetsReceived += w.SetCount()
		rec, err := BuildRecord(w, p.loc)
		if err != nil {
			p.log.Warn("skipping workout with bad timestamps", "title", w.Title, "error", err)
			result.WorkoutsFailed++
			continue
		}
		records = append(records, rec)
	}

	p.submit(ctx, records, userID, result)
	return result, nil
}

// IngestRecords stores already-built records with the same accounting as Ingest.
func (p *Provider) IngestRecords(ctx context.Context, records []models.WorkoutRecord, userID int) (*ingest.Result, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	result := &ingest.Result{WorkoutsFound: len(records)}
	for _, rec := range records {
		result.SetsReceived += rec.TotalSets
	}
	p.submit(ctx, records, userID, result)
	return result, nil
}

// submit sends records one at a time, waiting for each outcome.
func (p *Provider) submit(ctx context.Context, records []models.WorkoutRecord, userID int, result *ingest.Result) {
	for _, rec := range records {
		switch err := p.storeRecord(ctx, rec, userID); {
		case err == nil:
			result.WorkoutsImported++
		case errors.Is(err, storage.ErrDuplicateWorkout):
			result.WorkoutsSkipped++
		default:
			p.log.Warn("workout import failed",
				"title", rec.Title, "date", rec.WorkoutDate, "start", rec.StartTime, "error", err)
			result.WorkoutsFailed++
		}
	}
}

func (p *Provider) storeRecord(ctx context.Context, rec models.WorkoutRecord, userID int) error {
	exists, err := p.store.WorkoutExists(ctx, userID, rec.Title, rec.WorkoutDate, rec.StartTime)
	if err != nil {
		return fmt.Errorf("checking existing workout: %w", err)
	}
	if exists {
		return storage.ErrDuplicateWorkout
	}
	if _, err := p.store.InsertWorkout(ctx, userID, rec); err != nil {
		return err
	}
	return nil
}
