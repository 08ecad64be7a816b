package hevy

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const sampleCSV = `"title","start_time","end_time","description","exercise_title","superset_id","exercise_notes","set_index","set_type","weight_kg","reps","distance_km","duration_seconds","rpe"
"Leg Day, Heavy","2024-01-01T10:00:00","2024-01-01T10:45:00","Felt strong","Squat (Barbell)",,"Belt on",0,"warmup",60,10,,,
"Leg Day, Heavy","2024-01-01T10:00:00","2024-01-01T10:45:00","Felt strong","Squat (Barbell)",,"Belt on",1,"normal",100,5,,,8
"Leg Day, Heavy","2024-01-01T10:00:00","2024-01-01T10:45:00","Felt strong","Leg Press (Machine)",,"",0,"normal",180,12,,,
"Leg Day, Heavy","2024-01-01T10:00:00","2024-01-01T10:45:00","Felt strong","Squat (Barbell)",,"Belt on",2,"normal",100,5,,,9
"Cardio","2024-01-02T07:30:00","2024-01-02T08:00:00","","Treadmill",,"",0,"normal",,,5.2,1800,
`

// TestSplitLine covers the tokenizer contract: quote toggling, preserved
// trailing fields and tolerance of unterminated quotes.
func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{name: "plain", line: "a,b,c", want: []string{"a", "b", "c"}},
		{name: "quoted comma", line: `"Leg Day, Heavy","2024-01-01T10:00:00"`, want: []string{"Leg Day, Heavy", "2024-01-01T10:00:00"}},
		{name: "empty line", line: "", want: []string{""}},
		{name: "trailing comma", line: "a,b,", want: []string{"a", "b", ""}},
		{name: "empty middle", line: "a,,c", want: []string{"a", "", "c"}},
		{name: "unterminated quote", line: `a,"b,c`, want: []string{"a", "b,c"}},
		{name: "doubled quote is two toggles", line: `"say ""hi""",x`, want: []string{"say hi", "x"}},
		{name: "unicode", line: `Bankdrücken,"Übung, schwer"`, want: []string{"Bankdrücken", "Übung, schwer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitLine(tt.line); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

// TestResolveHeader verifies exact-match column lookup and the -1 sentinel for
// absent optional columns.
func TestResolveHeader(t *testing.T) {
	cols, err := ResolveHeader(SplitLine("\uFEFFtitle,start_time,end_time,exercise_title,set_index,weight_kg"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.Width != 6 {
		t.Errorf("Width = %d, want 6", cols.Width)
	}
	if i := cols.Index(ColTitle); i != 0 {
		t.Errorf("title index = %d, want 0 (BOM should be ignored)", i)
	}
	if i := cols.Index(ColWeightKg); i != 5 {
		t.Errorf("weight_kg index = %d, want 5", i)
	}
	if i := cols.Index(ColDescription); i != -1 {
		t.Errorf("description index = %d, want -1", i)
	}
	if v, ok := cols.Get([]string{"a", "b", "c", "d", "e", "f"}, ColReps); ok || v != "" {
		t.Errorf("Get(reps) = (%q, %v), want absent", v, ok)
	}
}

// TestResolveHeaderCaseSensitive verifies that "Title" does not satisfy the
// required "title" column.
func TestResolveHeaderCaseSensitive(t *testing.T) {
	_, err := ResolveHeader(SplitLine("Title,start_time,end_time,exercise_title,set_index"))
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("err = %v, want ErrMissingColumns", err)
	}
	if !strings.Contains(err.Error(), "title") {
		t.Errorf("error %q should name the missing column", err)
	}
}

// TestParseGrouping is the end-to-end grouping check: workouts by natural key
// in first-seen order, exercises by title, sets in file order.
func TestParseGrouping(t *testing.T) {
	workouts, err := Parse(sampleCSV)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(workouts) != 2 {
		t.Fatalf("workouts = %d, want 2", len(workouts))
	}

	legs := workouts[0]
	if legs.Title != "Leg Day, Heavy" {
		t.Errorf("title = %q, want quotes stripped and comma kept", legs.Title)
	}
	if legs.StartTime != "2024-01-01T10:00:00" || legs.EndTime != "2024-01-01T10:45:00" {
		t.Errorf("times = %q..%q", legs.StartTime, legs.EndTime)
	}
	if legs.Description != "Felt strong" {
		t.Errorf("description = %q", legs.Description)
	}
	if len(legs.Exercises) != 2 {
		t.Fatalf("exercises = %d, want 2", len(legs.Exercises))
	}
	if legs.Exercises[0].Title != "Squat (Barbell)" || legs.Exercises[1].Title != "Leg Press (Machine)" {
		t.Errorf("exercise order = %q, %q", legs.Exercises[0].Title, legs.Exercises[1].Title)
	}

	// The squat row after the leg press row still joins the squat exercise.
	squat := legs.Exercises[0]
	if len(squat.Sets) != 3 {
		t.Fatalf("squat sets = %d, want 3", len(squat.Sets))
	}
	for i, s := range squat.Sets {
		if s.SetIndex != i {
			t.Errorf("squat set %d has set_index %d", i, s.SetIndex)
		}
		if s.Notes != "Belt on" {
			t.Errorf("squat set %d notes = %q", i, s.Notes)
		}
	}
	if squat.Sets[0].SetType != "warmup" {
		t.Errorf("set_type = %q, want warmup", squat.Sets[0].SetType)
	}
	if squat.Sets[1].WeightKg == nil || *squat.Sets[1].WeightKg != 100 {
		t.Errorf("weight = %v, want 100", squat.Sets[1].WeightKg)
	}
	if squat.Sets[1].RPE == nil || *squat.Sets[1].RPE != 8 {
		t.Errorf("rpe = %v, want 8", squat.Sets[1].RPE)
	}
	if squat.Sets[0].RPE != nil {
		t.Errorf("empty rpe = %v, want nil", *squat.Sets[0].RPE)
	}
	if legs.SetCount() != 4 {
		t.Errorf("SetCount() = %d, want 4", legs.SetCount())
	}

	cardio := workouts[1].Exercises[0].Sets[0]
	if cardio.WeightKg != nil || cardio.Reps != nil {
		t.Errorf("cardio weight/reps = %v/%v, want nil", cardio.WeightKg, cardio.Reps)
	}
	if cardio.DurationSeconds == nil || *cardio.DurationSeconds != 1800 {
		t.Errorf("duration_seconds = %v, want 1800", cardio.DurationSeconds)
	}
	if cardio.DistanceKm == nil || *cardio.DistanceKm != 5.2 {
		t.Errorf("distance_km = %v, want 5.2", cardio.DistanceKm)
	}
}

// TestParseSetOrderIgnoresSetIndex verifies sets keep file order even when the
// set_index values are out of sequence.
func TestParseSetOrderIgnoresSetIndex(t *testing.T) {
	csv := "title,start_time,end_time,exercise_title,set_index,reps\n" +
		"A,2024-01-01 10:00,2024-01-01 11:00,Row,2,8\n" +
		"A,2024-01-01 10:00,2024-01-01 11:00,Row,0,10\n" +
		"A,2024-01-01 10:00,2024-01-01 11:00,Row,1,9\n"

	workouts, err := Parse(csv)
	if err != nil {
		t.Fatal(err)
	}
	var got []int
	for _, s := range workouts[0].Exercises[0].Sets {
		got = append(got, s.SetIndex)
	}
	if want := []int{2, 0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("set order = %v, want %v", got, want)
	}
}

// TestParseSameTitleDifferentStart verifies that the start time is part of the
// natural key: same title on two days is two workouts.
func TestParseSameTitleDifferentStart(t *testing.T) {
	csv := "title,start_time,end_time,exercise_title,set_index\n" +
		"Push,2024-01-01 10:00,2024-01-01 11:00,Bench,0\n" +
		"Push,2024-01-03 10:00,2024-01-03 11:00,Bench,0\n" +
		"Push,2024-01-01 10:00,2024-01-01 11:00,Dips,0\n"

	workouts, err := Parse(csv)
	if err != nil {
		t.Fatal(err)
	}
	if len(workouts) != 2 {
		t.Fatalf("workouts = %d, want 2", len(workouts))
	}
	if len(workouts[0].Exercises) != 2 {
		t.Errorf("first workout exercises = %d, want 2", len(workouts[0].Exercises))
	}
}

// TestParseMissingOptionalColumns verifies a minimal export without description
// or exercise_notes still parses with empty strings.
func TestParseMissingOptionalColumns(t *testing.T) {
	csv := "title,start_time,end_time,exercise_title,set_index,weight_kg,reps\n" +
		"Pull,2024-02-01T18:00:00,2024-02-01T19:00:00,Deadlift,0,140,3\n"

	workouts, err := Parse(csv)
	if err != nil {
		t.Fatal(err)
	}
	if workouts[0].Description != "" {
		t.Errorf("description = %q, want empty", workouts[0].Description)
	}
	set := workouts[0].Exercises[0].Sets[0]
	if set.Notes != "" {
		t.Errorf("notes = %q, want empty", set.Notes)
	}
	if set.DurationSeconds != nil {
		t.Errorf("duration_seconds = %v, want nil for absent column", *set.DurationSeconds)
	}
}

// TestParseShortRowDropped verifies that a truncated line is excluded and does
// not disturb the surrounding rows.
func TestParseShortRowDropped(t *testing.T) {
	csv := "title,start_time,end_time,exercise_title,set_index,reps\n" +
		"Legs,2024-01-01 10:00,2024-01-01 11:00,Squat,0,5\n" +
		"Broken,2024-01-01 12:00,2024-01-01\n" +
		"\n" +
		"Legs,2024-01-01 10:00,2024-01-01 11:00,Squat,1,5\n"

	workouts, err := Parse(csv)
	if err != nil {
		t.Fatal(err)
	}
	if len(workouts) != 1 {
		t.Fatalf("workouts = %d, want 1", len(workouts))
	}
	if n := len(workouts[0].Exercises[0].Sets); n != 2 {
		t.Errorf("sets = %d, want 2", n)
	}
}

// TestParseNonNumericFields verifies that bad numbers degrade to absent or the
// set_index default instead of failing the row.
func TestParseNonNumericFields(t *testing.T) {
	csv := "title,start_time,end_time,exercise_title,set_index,weight_kg,reps,duration_seconds\n" +
		"Legs,2024-01-01 10:00,2024-01-01 11:00,Squat,first,N/A,8,60\n" +
		"Legs,2024-01-01 10:00,2024-01-01 11:00,Squat,1,82.5,8.0,abc\n"

	workouts, err := Parse(csv)
	if err != nil {
		t.Fatal(err)
	}
	sets := workouts[0].Exercises[0].Sets
	if sets[0].SetIndex != 0 {
		t.Errorf("set_index = %d, want default 0", sets[0].SetIndex)
	}
	if sets[0].WeightKg != nil {
		t.Errorf("weight = %v, want nil for N/A", *sets[0].WeightKg)
	}
	if sets[0].Reps == nil || *sets[0].Reps != 8 {
		t.Errorf("reps = %v, want 8", sets[0].Reps)
	}
	if sets[0].DurationSeconds == nil || *sets[0].DurationSeconds != 60 {
		t.Errorf("duration = %v, want 60", sets[0].DurationSeconds)
	}
	if sets[1].WeightKg == nil || *sets[1].WeightKg != 82.5 {
		t.Errorf("weight = %v, want 82.5", sets[1].WeightKg)
	}
	if sets[1].Reps == nil || *sets[1].Reps != 8 {
		t.Errorf("reps = %v, want 8 from \"8.0\"", sets[1].Reps)
	}
	if sets[1].DurationSeconds != nil {
		t.Errorf("duration = %v, want nil", *sets[1].DurationSeconds)
	}
}

// TestParseRepeatedExerciseTitleMerges documents that two blocks with the same
// exercise title inside one workout are merged into one exercise.
func TestParseRepeatedExerciseTitleMerges(t *testing.T) {
	csv := "title,start_time,end_time,exercise_title,set_index\n" +
		"Circuit,2024-01-01 10:00,2024-01-01 11:00,Rest,0\n" +
		"Circuit,2024-01-01 10:00,2024-01-01 11:00,Burpee,0\n" +
		"Circuit,2024-01-01 10:00,2024-01-01 11:00,Rest,0\n"

	workouts, err := Parse(csv)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(workouts[0].Exercises); n != 2 {
		t.Fatalf("exercises = %d, want 2", n)
	}
	if n := len(workouts[0].Exercises[0].Sets); n != 2 {
		t.Errorf("Rest sets = %d, want 2", n)
	}
}

// TestParseNoData verifies the precondition check for empty input.
func TestParseNoData(t *testing.T) {
	for _, in := range []string{"", "title,start_time,end_time,exercise_title,set_index"} {
		if _, err := Parse(in); !errors.Is(err, ErrNoData) {
			t.Errorf("Parse(%q) err = %v, want ErrNoData", in, err)
		}
	}
}

// TestParseCRLF verifies Windows line endings do not leak into the last column.
func TestParseCRLF(t *testing.T) {
	csv := "title,start_time,end_time,exercise_title,set_index,reps\r\n" +
		"Legs,2024-01-01 10:00,2024-01-01 11:00,Squat,0,5\r\n"

	workouts, err := Parse(csv)
	if err != nil {
		t.Fatal(err)
	}
	if r := workouts[0].Exercises[0].Sets[0].Reps; r == nil || *r != 5 {
		t.Errorf("reps = %v, want 5", r)
	}
}
