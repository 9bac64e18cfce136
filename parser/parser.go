// Package parser turns raw log text from the workout page into
// structured records.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-workouts/models"
)

// setPattern matches one set token of the form "Set 1 : 70x5". The
// colon must be surrounded by single spaces and weight/reps are
// integers; anything else fails to match and contributes no record.
var setPattern = regexp.MustCompile(`Set (\d+) : (\d+)x(\d+)`)

// ParseLiftingLogs extracts every set token from text, in the order
// they appear. Input with no matches yields an empty slice, not an
// error. Decimal weights do not match the pattern and are dropped.
func ParseLiftingLogs(text string) []models.LiftingLog {
	matches := setPattern.FindAllStringSubmatch(text, -1)
	logs := make([]models.LiftingLog, 0, len(matches))
	for _, m := range matches {
		setNumber, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		weight, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		reps, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		logs = append(logs, models.LiftingLog{
			SetNumber: setNumber,
			Weight:    float64(weight),
			Reps:      reps,
		})
	}
	return logs
}

// ParseOneRepMax converts the one-rep-max block's text content to a
// number. The site renders it as a bare numeric string.
func ParseOneRepMax(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("one rep max %q is not numeric", trimmed)
	}
	return value, nil
}

// ValidateWorkout ensures the scraper captured the required fields.
func ValidateWorkout(w *models.Workout) error {
	if w == nil {
		return fmt.Errorf("workout is nil")
	}
	if strings.TrimSpace(w.Username) == "" {
		return fmt.Errorf("workout missing username")
	}
	if strings.TrimSpace(w.Date) == "" {
		return fmt.Errorf("workout missing date for %s", w.Username)
	}
	for _, ex := range w.Exercises {
		if strings.TrimSpace(ex.ExerciseName) == "" {
			return fmt.Errorf("workout %s/%s has an exercise with no name", w.Username, w.Date)
		}
	}
	return nil
}
