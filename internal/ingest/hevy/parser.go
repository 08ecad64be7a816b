package hevy

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/claude/weightlog/internal/models"
)

var (
	// ErrNoData is returned when the export has no data rows at all.
	ErrNoData = errors.New("no data in CSV")

	// ErrMissingColumns is returned when the header lacks a required column.
	ErrMissingColumns = errors.New("missing required columns")
)

// Column names as written by the Hevy CSV export.
const (
	ColTitle           = "title"
	ColStartTime       = "start_time"
	ColEndTime         = "end_time"
	ColDescription     = "description"
	ColExerciseTitle   = "exercise_title"
	ColExerciseNotes   = "exercise_notes"
	ColSetIndex        = "set_index"
	ColSetType         = "set_type"
	ColWeightKg        = "weight_kg"
	ColReps            = "reps"
	ColDistanceKm      = "distance_km"
	ColDurationSeconds = "duration_seconds"
	ColRPE             = "rpe"
)

var knownColumns = []string{
	ColTitle, ColStartTime, ColEndTime, ColDescription, ColExerciseTitle, ColExerciseNotes,
	ColSetIndex, ColSetType, ColWeightKg, ColReps, ColDistanceKm, ColDurationSeconds, ColRPE,
}

var requiredColumns = []string{ColTitle, ColStartTime, ColEndTime, ColExerciseTitle, ColSetIndex}

// Columns maps logical column names to their position in the header.
// A column missing from the header has index -1.
type Columns struct {
	index map[string]int
	// Width is the number of fields in the header row.
	Width int
}

// Index returns the position of a column, or -1 when absent.
func (c Columns) Index(name string) int {
	if i, ok := c.index[name]; ok {
		return i
	}
	return -1
}

// Get reads a column from a tokenized row. Absent columns report ok=false.
func (c Columns) Get(row []string, name string) (string, bool) {
	i := c.Index(name)
	if i < 0 || i >= len(row) {
		return "", false
	}
	return row[i], true
}

// value reads a column with quote characters removed; absent columns read as "".
func (c Columns) value(row []string, name string) string {
	v, _ := c.Get(row, name)
	return strings.ReplaceAll(v, `"`, "")
}

// SplitLine splits one CSV line on commas that are not inside double quotes.
// A quote toggles the quoted state and is dropped; "" escapes are not
// supported and an unterminated quote runs to the end of the line.
func SplitLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}

// ResolveHeader builds the column table from the tokenized header row.
// Matching is exact and case-sensitive after trimming whitespace.
func ResolveHeader(fields []string) (Columns, error) {
	cols := Columns{index: make(map[string]int, len(knownColumns)), Width: len(fields)}

	for i, f := range fields {
		name := strings.TrimSpace(strings.ReplaceAll(f, `"`, ""))
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		if _, seen := cols.index[name]; seen {
			continue
		}
		cols.index[name] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if cols.Index(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Columns{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}

// SplitLines breaks raw CSV text into lines, dropping carriage returns.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Parse groups a full CSV export into workouts in first-seen order.
func Parse(text string) ([]models.HevyWorkout, error) {
	lines := SplitLines(text)
	if len(lines) < 2 {
		return nil, ErrNoData
	}

	cols, err := ResolveHeader(SplitLine(strings.TrimSpace(lines[0])))
	if err != nil {
		return nil, err
	}
	return Group(cols, lines[1:]), nil
}

// workoutGroups is an insertion-ordered map of workouts keyed by natural key.
type workoutGroups struct {
	order []string
	byKey map[string]*workoutGroup
}

type workoutGroup struct {
	workout   models.HevyWorkout
	exercises map[string]int // exercise title -> index into workout.Exercises
}

func (g *workoutGroups) get(key string, create func() models.HevyWorkout) *workoutGroup {
	if wg, ok := g.byKey[key]; ok {
		return wg
	}
	wg := &workoutGroup{workout: create(), exercises: map[string]int{}}
	g.byKey[key] = wg
	g.order = append(g.order, key)
	return wg
}

// addSet appends a set to the named exercise, creating it on first sight.
func (wg *workoutGroup) addSet(exerciseTitle string, set models.HevySet) {
	i, ok := wg.exercises[exerciseTitle]
	if !ok {
		i = len(wg.workout.Exercises)
		wg.exercises[exerciseTitle] = i
		wg.workout.Exercises = append(wg.workout.Exercises, models.HevyExercise{Title: exerciseTitle})
	}
	wg.workout.Exercises[i].Sets = append(wg.workout.Exercises[i].Sets, set)
}

// Group consumes data rows in file order and groups them into workouts,
// exercises and sets. Blank rows and rows with fewer fields than the header
// are dropped.
func Group(cols Columns, lines []string) []models.HevyWorkout {
	groups := &workoutGroups{byKey: map[string]*workoutGroup{}}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		row := SplitLine(line)
		if len(row) < cols.Width {
			continue
		}

		title := cols.value(row, ColTitle)
		start := cols.value(row, ColStartTime)

		wg := groups.get(title+"_"+start, func() models.HevyWorkout {
			return models.HevyWorkout{
				Title:       title,
				StartTime:   start,
				EndTime:     cols.value(row, ColEndTime),
				Description: cols.value(row, ColDescription),
			}
		})
		wg.addSet(cols.value(row, ColExerciseTitle), parseSet(cols, row))
	}

	workouts := make([]models.HevyWorkout, 0, len(groups.order))
	for _, key := range groups.order {
		workouts = append(workouts, groups.byKey[key].workout)
	}
	return workouts
}

func parseSet(cols Columns, row []string) models.HevySet {
	setIndex := 0
	if v := parseInt(cols.value(row, ColSetIndex)); v != nil {
		setIndex = *v
	}
	return models.HevySet{
		SetIndex:        setIndex,
		SetType:         strings.TrimSpace(cols.value(row, ColSetType)),
		WeightKg:        parseFloat(cols.value(row, ColWeightKg)),
		Reps:            parseInt(cols.value(row, ColReps)),
		DurationSeconds: parseInt(cols.value(row, ColDurationSeconds)),
		DistanceKm:      parseFloat(cols.value(row, ColDistanceKm)),
		RPE:             parseFloat(cols.value(row, ColRPE)),
		Notes:           cols.value(row, ColExerciseNotes),
	}
}

// parseFloat returns nil for empty or non-numeric input.
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseInt accepts "8" and integral decimals like "8.0"; anything else is nil.
func parseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return nil
	}
	n := int(f)
	return &n
}
