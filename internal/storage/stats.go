package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's stored workouts.
type DataStats struct {
	TotalWorkouts  int64              `json:"total_workouts"`
	TotalSets      int64              `json:"total_sets"`
	TotalMinutes   int64              `json:"total_minutes"`
	EarliestData   *time.Time         `json:"earliest_data"`
	LatestData     *time.Time         `json:"latest_data"`
	WorkoutsByName []WorkoutTitleStat `json:"workouts_by_title"`
}

// WorkoutTitleStat holds summary stats for one workout title.
type WorkoutTitleStat struct {
	Title         string `json:"title"`
	Count         int64  `json:"count"`
	TotalSets     int64  `json:"total_sets"`
	TotalDuration int64  `json:"total_duration_min"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_sets), 0), COALESCE(SUM(duration_minutes), 0),
		 MIN(workout_date)::timestamptz, MAX(workout_date)::timestamptz
		 FROM workouts WHERE user_id = $1`, userID,
	).Scan(&stats.TotalWorkouts, &stats.TotalSets, &stats.TotalMinutes, &stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("counting workouts: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT title, COUNT(*), COALESCE(SUM(total_sets), 0), COALESCE(SUM(duration_minutes), 0)
		 FROM workouts
		 WHERE user_id = $1
		 GROUP BY title
		 ORDER BY COUNT(*) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts by title: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s WorkoutTitleStat
		if err := rows.Scan(&s.Title, &s.Count, &s.TotalSets, &s.TotalDuration); err != nil {
			return nil, fmt.Errorf("scanning workout title stat: %w", err)
		}
		stats.WorkoutsByName = append(stats.WorkoutsByName, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
