package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/weightlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrDuplicateWorkout is returned by InsertWorkout when a workout with the same
// (user, title, workout_date, start_time) already exists.
var ErrDuplicateWorkout = errors.New("workout already exists")

// ErrWorkoutNotFound is returned when a workout ID does not exist for the user.
var ErrWorkoutNotFound = errors.New("workout not found")

const workoutColumns = `id, user_id, title, workout_date, start_time, duration_minutes,
	exercises, total_exercises, total_sets, description, created_at`

// WorkoutExists reports whether the natural key is already stored for the user.
func (db *DB) WorkoutExists(ctx context.Context, userID int, title, workoutDate, startTime string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM workouts
			WHERE user_id = $1 AND title = $2 AND workout_date = $3::text::date AND start_time = $4
		)`,
		userID, title, workoutDate, startTime).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking workout: %w", err)
	}
	return exists, nil
}

// InsertWorkout inserts a workout record and returns its new ID.
// The unique constraint on the natural key makes concurrent imports safe:
// the losing insert gets ErrDuplicateWorkout.
func (db *DB) InsertWorkout(ctx context.Context, userID int, rec models.WorkoutRecord) (uuid.UUID, error) {
	exercises, err := rec.ExercisesJSON()
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	var inserted uuid.UUID
	err = db.Pool.QueryRow(ctx,
		`INSERT INTO workouts (id, user_id, title, workout_date, start_time, duration_minutes,
		 exercises, total_exercises, total_sets, description)
		 VALUES ($1,$2,$3,$4::text::date,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (user_id, title, workout_date, start_time) DO NOTHING
		 RETURNING id`,
		id, userID, rec.Title, rec.WorkoutDate, rec.StartTime, rec.DurationMinutes,
		exercises, rec.TotalExercises, rec.TotalSets, rec.Description,
	).Scan(&inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrDuplicateWorkout
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting workout: %w", err)
	}
	return inserted, nil
}

// QueryWorkouts retrieves workouts whose date falls in [start, end).
func (db *DB) QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutColumns+`
		 FROM workouts
		 WHERE workout_date >= $1::date AND workout_date < $2::date AND user_id = $3
		 ORDER BY workout_date DESC, start_time DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	return scanWorkoutRows(rows)
}

// ExportWorkouts returns every workout of a user, oldest first.
func (db *DB) ExportWorkouts(ctx context.Context, userID int) ([]models.WorkoutRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutColumns+`
		 FROM workouts
		 WHERE user_id = $1
		 ORDER BY workout_date ASC, start_time ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("exporting workouts: %w", err)
	}
	defer rows.Close()

	return scanWorkoutRows(rows)
}

// GetWorkout retrieves a single workout by ID.
func (db *DB) GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*models.WorkoutRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+workoutColumns+`
		 FROM workouts
		 WHERE id = $1 AND user_id = $2`,
		workoutID, userID)

	w, err := scanWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}
	return &w, nil
}

// DeleteWorkout removes one workout. Returns ErrWorkoutNotFound if nothing was deleted.
func (db *DB) DeleteWorkout(ctx context.Context, workoutID uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workouts WHERE id = $1 AND user_id = $2`, workoutID, userID)
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// DeleteWorkouts removes several workouts at once. Returns the count deleted.
func (db *DB) DeleteWorkouts(ctx context.Context, workoutIDs []uuid.UUID, userID int) (int64, error) {
	if len(workoutIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(workoutIDs))
	for i, id := range workoutIDs {
		ids[i] = id.String()
	}
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workouts WHERE id = ANY($1::text[]::uuid[]) AND user_id = $2`, ids, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting workouts: %w", err)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row rowScanner) (models.WorkoutRow, error) {
	var w models.WorkoutRow
	err := row.Scan(&w.ID, &w.UserID, &w.Title, &w.WorkoutDate, &w.StartTime, &w.DurationMinutes,
		&w.Exercises, &w.TotalExercises, &w.TotalSets, &w.Description, &w.CreatedAt)
	return w, err
}

func scanWorkoutRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.WorkoutRow, error) {
	var result []models.WorkoutRow
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}
