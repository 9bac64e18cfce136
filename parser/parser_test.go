package parser

import (
	"fmt"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-workouts/models"
)

func TestParseLiftingLogs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []models.LiftingLog
	}{
		{
			name:  "single set",
			input: "Set 1 : 70x5",
			expected: []models.LiftingLog{
				{SetNumber: 1, Weight: 70, Reps: 5},
			},
		},
		{
			name:  "multiple sets",
			input: "Set 1 : 70x5 Set 2 : 70x5 Set 3 : 75x3",
			expected: []models.LiftingLog{
				{SetNumber: 1, Weight: 70, Reps: 5},
				{SetNumber: 2, Weight: 70, Reps: 5},
				{SetNumber: 3, Weight: 75, Reps: 3},
			},
		},
		{
			name:  "input order preserved, not sorted by set number",
			input: "Set 3 : 100x8 Set 1 : 90x10",
			expected: []models.LiftingLog{
				{SetNumber: 3, Weight: 100, Reps: 8},
				{SetNumber: 1, Weight: 90, Reps: 10},
			},
		},
		{
			name:  "surrounding prose ignored",
			input: "warmup done, then Set 1 : 60x12 felt easy",
			expected: []models.LiftingLog{
				{SetNumber: 1, Weight: 60, Reps: 12},
			},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []models.LiftingLog{},
		},
		{
			name:     "no matches",
			input:    "no matches here",
			expected: []models.LiftingLog{},
		},
		{
			name:     "wrong separator",
			input:    "Set 1 - 70x5",
			expected: []models.LiftingLog{},
		},
		{
			name:     "missing spaces around colon",
			input:    "Set 1: 70x5",
			expected: []models.LiftingLog{},
		},
		{
			name:  "decimal weight dropped",
			input: "Set 1 : 70.5x5 Set 2 : 70x5",
			expected: []models.LiftingLog{
				{SetNumber: 2, Weight: 70, Reps: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLiftingLogs(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("ParseLiftingLogs(%q) returned %d records, want %d", tt.input, len(got), len(tt.expected))
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("record %d = %+v, want %+v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseLiftingLogsRepeatedTokens(t *testing.T) {
	input := ""
	for i := 1; i <= 10; i++ {
		input += fmt.Sprintf("Set %d : %dx%d ", i, 100+i, i)
	}

	got := ParseLiftingLogs(input)
	if len(got) != 10 {
		t.Fatalf("expected 10 records, got %d", len(got))
	}
	for i, log := range got {
		want := models.LiftingLog{SetNumber: i + 1, Weight: float64(101 + i), Reps: i + 1}
		if log != want {
			t.Errorf("record %d = %+v, want %+v", i, log, want)
		}
	}
}

func TestParseOneRepMax(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		wantErr  bool
	}{
		{name: "integer", input: "225", expected: 225},
		{name: "decimal", input: "102.5", expected: 102.5},
		{name: "surrounding whitespace", input: "  180 \n", expected: 180},
		{name: "not numeric", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOneRepMax(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOneRepMax(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("ParseOneRepMax(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidateWorkout(t *testing.T) {
	tests := []struct {
		name    string
		workout *models.Workout
		wantErr bool
	}{
		{
			name: "valid workout",
			workout: &models.Workout{
				Username: "wstipp",
				Date:     "2023-01-14",
				Exercises: []models.ExerciseBlock{
					{ExerciseName: "Bench Press", OneRepMax: 225},
				},
				ScrapedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name: "empty workout is valid",
			workout: &models.Workout{
				Username:  "wstipp",
				Date:      "2023-01-15",
				Exercises: []models.ExerciseBlock{},
			},
			wantErr: false,
		},
		{
			name:    "nil workout",
			workout: nil,
			wantErr: true,
		},
		{
			name: "missing username",
			workout: &models.Workout{
				Username: "",
				Date:     "2023-01-14",
			},
			wantErr: true,
		},
		{
			name: "missing date",
			workout: &models.Workout{
				Username: "wstipp",
				Date:     "",
			},
			wantErr: true,
		},
		{
			name: "exercise without name",
			workout: &models.Workout{
				Username: "wstipp",
				Date:     "2023-01-14",
				Exercises: []models.ExerciseBlock{
					{ExerciseName: "  ", OneRepMax: 100},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWorkout(tt.workout)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWorkout() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
