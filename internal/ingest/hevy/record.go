package hevy

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/claude/weightlog/internal/models"
)

// ErrBadTimestamp is returned when a workout's start or end time cannot be parsed.
var ErrBadTimestamp = errors.New("unparseable timestamp")

// timeLayouts are tried in order. Layouts with an explicit offset keep it;
// the rest are read in the importer's location.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2 Jan 2006, 15:04",
	"2 Jan 2006 15:04",
	"Jan 2, 2006, 15:04",
	"2006-01-02",
}

// ParseTime parses an export timestamp in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

// roundMinutes rounds half up, so -2.5 becomes -2 and 2.5 becomes 3.
func roundMinutes(d time.Duration) int {
	return int(math.Floor(d.Minutes() + 0.5))
}

// BuildRecord turns a grouped workout into its persistence record.
// End before start yields a negative duration; it is stored as is.
func BuildRecord(w models.HevyWorkout, loc *time.Location) (models.WorkoutRecord, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := ParseTime(w.StartTime, loc)
	if err != nil {
		return models.WorkoutRecord{}, fmt.Errorf("start_time of %q: %w", w.Title, err)
	}
	end, err := ParseTime(w.EndTime, loc)
	if err != nil {
		return models.WorkoutRecord{}, fmt.Errorf("end_time of %q: %w", w.Title, err)
	}

	exercises := w.Exercises
	if exercises == nil {
		exercises = []models.HevyExercise{}
	}

	return models.WorkoutRecord{
		Title:           w.Title,
		WorkoutDate:     start.Format("2006-01-02"),
		StartTime:       start.Format("15:04:05"),
		DurationMinutes: roundMinutes(end.Sub(start)),
		Exercises:       exercises,
		TotalExercises:  len(exercises),
		TotalSets:       w.SetCount(),
		Description:     w.Description,
	}, nil
}
