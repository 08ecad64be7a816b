package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkoutRecord is a workout ready for insertion into the workouts table.
// WorkoutDate is YYYY-MM-DD and StartTime is HH:MM:SS, both local to the
// importer's configured timezone.
type WorkoutRecord struct {
	Title           string         `json:"title"`
	WorkoutDate     string         `json:"workout_date"`
	StartTime       string         `json:"start_time"`
	DurationMinutes int            `json:"duration_minutes"`
	Exercises       []HevyExercise `json:"exercises"`
	TotalExercises  int            `json:"total_exercises"`
	TotalSets       int            `json:"total_sets"`
	Description     string         `json:"description"`
}

// ExercisesJSON serializes the ordered exercise list for storage.
func (r WorkoutRecord) ExercisesJSON() ([]byte, error) {
	exercises := r.Exercises
	if exercises == nil {
		exercises = []HevyExercise{}
	}
	data, err := json.Marshal(exercises)
	if err != nil {
		return nil, fmt.Errorf("marshaling exercises: %w", err)
	}
	return data, nil
}

// WorkoutRow is a stored workout as read back from the workouts table.
type WorkoutRow struct {
	ID              uuid.UUID       `json:"id"`
	UserID          int             `json:"user_id"`
	Title           string          `json:"title"`
	WorkoutDate     time.Time       `json:"workout_date"`
	StartTime       string          `json:"start_time"`
	DurationMinutes int             `json:"duration_minutes"`
	Exercises       json.RawMessage `json:"exercises"`
	TotalExercises  int             `json:"total_exercises"`
	TotalSets       int             `json:"total_sets"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Record converts a stored row back into an importable record.
func (w WorkoutRow) Record() (WorkoutRecord, error) {
	rec := WorkoutRecord{
		Title:           w.Title,
		WorkoutDate:     w.WorkoutDate.Format("2006-01-02"),
		StartTime:       w.StartTime,
		DurationMinutes: w.DurationMinutes,
		TotalExercises:  w.TotalExercises,
		TotalSets:       w.TotalSets,
		Description:     w.Description,
	}
	if len(w.Exercises) > 0 {
		if err := json.Unmarshal(w.Exercises, &rec.Exercises); err != nil {
			return WorkoutRecord{}, fmt.Errorf("decoding exercises of %s: %w", w.ID, err)
		}
	}
	return rec, nil
}
