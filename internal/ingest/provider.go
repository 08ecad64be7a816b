package ingest

// Result holds the outcome of a workout import. Every grouped workout lands in
// exactly one of imported, skipped or failed.
type Result struct {
	WorkoutsFound    int `json:"workouts_found"`
	WorkoutsImported int `json:"imported"`
	WorkoutsSkipped  int `json:"skipped"`
	WorkoutsFailed   int `json:"failed"`

	SetsReceived int `json:"sets_received"`

	Message string `json:"message,omitempty"`
}
