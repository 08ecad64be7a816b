package models

// HevySet is a single set parsed from one CSV row.
// Optional numeric fields are nil when the column is absent or unparseable.
type HevySet struct {
	SetIndex        int      `json:"set_index"`
	SetType         string   `json:"set_type,omitempty"`
	WeightKg        *float64 `json:"weight_kg"`
	Reps            *int     `json:"reps"`
	DurationSeconds *int     `json:"duration_seconds"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	RPE             *float64 `json:"rpe,omitempty"`
	Notes           string   `json:"notes"`
}

// HevyExercise groups the sets of one exercise title, in file order.
type HevyExercise struct {
	Title string    `json:"title"`
	Sets  []HevySet `json:"sets"`
}

// HevyWorkout is one session grouped by its natural key (title, start_time).
// Exercises keep first-seen order.
type HevyWorkout struct {
	Title       string
	StartTime   string
	EndTime     string
	Description string
	Exercises   []HevyExercise
}

// SetCount returns the number of sets across all exercises.
func (w HevyWorkout) SetCount() int {
	n := 0
	for _, ex := range w.Exercises {
		n += len(ex.Sets)
	}
	return n
}
