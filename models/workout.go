// Package models defines data structures for the scraper.
package models

import "time"

// LiftingLog represents a single set within an exercise: the set number,
// the weight lifted, and how many reps were performed.
type LiftingLog struct {
	SetNumber int     `csv:"set_number" json:"set_number"`
	Weight    float64 `csv:"weight" json:"weight"`
	Reps      int     `csv:"reps" json:"reps"`
}

// ExerciseBlock represents one exercise section of the logs page.
// LiftingLogs preserves the order the sets appear in the page text and
// may be empty when the log text matched no set tokens.
type ExerciseBlock struct {
	ExerciseName string       `json:"exercise_name"`
	OneRepMax    float64      `json:"one_rep_max"`
	ImageURL     string       `json:"image_url,omitempty"`
	LiftingLogs  []LiftingLog `json:"lifting_logs"`
}

// Workout is the result of one (username, date) fetch.
type Workout struct {
	Username   string          `json:"username"`
	Date       string          `json:"date"`
	ProfileURL string          `json:"profile_url,omitempty"`
	Exercises  []ExerciseBlock `json:"exercises"`
	ScrapedAt  time.Time       `json:"scraped_at"`
}

// ScrapeResult holds the overall result of a scraping run.
type ScrapeResult struct {
	Workouts     []*Workout
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	EmptyCount   int
	ErrorCount   int
	FailedDates  []string
	ErrorsByType map[string]int
	RequestCount int
}
