package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/claude/weightlog/internal/models"
	"github.com/claude/weightlog/internal/storage"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("List imported workouts in a date range. Each workout includes its exercises, every set (weight, reps, duration), total sets and duration in minutes."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("title", mcp.Description("Filter by workout title (case-insensitive partial match, e.g. 'push')")),
	mcp.WithString("exercise", mcp.Description("Only return workouts containing this exercise (case-insensitive partial match)")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Fetch a single workout by ID with all of its exercises and sets."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout UUID")),
)

var toolGetImportLogs = mcp.NewTool("get_import_logs",
	mcp.WithDescription("Recent CSV and JSON imports with found, imported, skipped and failed workout counts."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of entries. Defaults to 20.")),
)

var toolGetDataStats = mcp.NewTool("get_data_stats",
	mcp.WithDescription("Totals over all stored workouts: workout count, set count, minutes trained, date range and per-title breakdown."),
)

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.ds.QueryWorkouts(ctx, start, end, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	workouts = filterWorkouts(workouts, req.GetString("title", ""), req.GetString("exercise", ""))

	result, err := mcp.NewToolResultJSON(workoutsOrEmpty(workouts))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// filterWorkouts keeps workouts whose title and exercises contain the given
// substrings. Empty filters match everything.
func filterWorkouts(workouts []models.WorkoutRow, title, exercise string) []models.WorkoutRow {
	title = strings.ToLower(title)
	exercise = strings.ToLower(exercise)
	if title == "" && exercise == "" {
		return workouts
	}

	var out []models.WorkoutRow
	for _, w := range workouts {
		if title != "" && !strings.Contains(strings.ToLower(w.Title), title) {
			continue
		}
		if exercise != "" && !hasExercise(w, exercise) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func hasExercise(w models.WorkoutRow, needle string) bool {
	rec, err := w.Record()
	if err != nil {
		return false
	}
	for _, ex := range rec.Exercises {
		if strings.Contains(strings.ToLower(ex.Title), needle) {
			return true
		}
	}
	return false
}

func workoutsOrEmpty(w []models.WorkoutRow) []models.WorkoutRow {
	if w == nil {
		return []models.WorkoutRow{}
	}
	return w
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid workout ID"), nil
	}

	w, err := h.ds.GetWorkout(ctx, id, UserIDFromContext(ctx))
	if errors.Is(err, storage.ErrWorkoutNotFound) {
		return mcp.NewToolResultError("workout not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(w)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getImportLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}

	logs, err := h.ds.QueryImportLogs(ctx, UserIDFromContext(ctx), limit)
	if err != nil {
		h.log.Error("mcp get_import_logs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if logs == nil {
		logs = []storage.ImportLog{}
	}

	result, err := mcp.NewToolResultJSON(logs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getDataStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.GetDataStats(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_data_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(stats)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
