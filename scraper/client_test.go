package scraper

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-workouts/config"
	"github.com/aluiziolira/go-scrape-workouts/models"
	"github.com/jarcoal/httpmock"
)

const testLogsURL = "http://example.test/members/user-logs/log/"

const fixturePage = `<html><body>
<div id="logList1">
  <div class="exercise-block">
    <div class="fixedLogBar">
      <div class="fixedLogBarBlock align-top"><img src="/images/bench.jpg"></div>
      <div class="fixedLogBarBlock align-top"><a href="/exercises/bench">Bench Press</a></div>
      <div class="fixedLogBarBlock align-top">225</div>
      <div class="fixedLogBarBlock align-top">Set 1 : 225x5 Set 2 : 225x5</div>
    </div>
  </div>
</div>
</body></html>`

const fixtureThreeBlocks = `<html><body>
<div id="logList1">
  <div class="exercise-block">
    <div class="fixedLogBar">
      <div class="fixedLogBarBlock align-top"><img src="/images/squat.jpg"></div>
      <div class="fixedLogBarBlock align-top"><a href="/exercises/squat">Squat</a></div>
      <div class="fixedLogBarBlock align-top">315</div>
    </div>
  </div>
</div>
</body></html>`

const fixtureTwoExercises = `<html><body>
<div id="logList1">
  <div class="exercise-block">
    <div class="fixedLogBar">
      <div class="fixedLogBarBlock align-top"><img src="/images/squat.jpg"></div>
      <div class="fixedLogBarBlock align-top"><a href="/exercises/squat">Squat</a></div>
      <div class="fixedLogBarBlock align-top">315</div>
      <div class="fixedLogBarBlock align-top">Set 1 : 275x5</div>
    </div>
  </div>
  <div class="exercise-block">
    <div class="fixedLogBar">
      <div class="fixedLogBarBlock align-top"><img src="/images/deadlift.jpg"></div>
      <div class="fixedLogBarBlock align-top"><a href="/exercises/deadlift">Deadlift</a></div>
      <div class="fixedLogBarBlock align-top">405</div>
      <div class="fixedLogBarBlock align-top">no sets logged yet</div>
    </div>
  </div>
</div>
</body></html>`

const fixtureNoContainer = `<html><body>
<div id="somethingElse">nothing logged today</div>
</body></html>`

const fixtureBadOneRepMax = `<html><body>
<div id="logList1">
  <div class="exercise-block">
    <div class="fixedLogBar">
      <div class="fixedLogBarBlock align-top"><img src="/images/row.jpg"></div>
      <div class="fixedLogBarBlock align-top"><a href="/exercises/row">Barbell Row</a></div>
      <div class="fixedLogBarBlock align-top">n/a</div>
      <div class="fixedLogBarBlock align-top">Set 1 : 135x10</div>
    </div>
  </div>
</div>
</body></html>`

func newTestClient(t *testing.T, mutate func(*config.Config)) (*Client, *httpmock.MockTransport) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.LogsBaseURL = testLogsURL
	cfg.UserBaseURL = "http://example.test/user"
	cfg.CacheSize = 0
	if mutate != nil {
		mutate(cfg)
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	transport := httpmock.NewMockTransport()
	client.WithTransport(transport)
	return client, transport
}

func htmlResponder(status int, body string) httpmock.Responder {
	return httpmock.NewStringResponder(status, body).
		HeaderSet(http.Header{"Content-Type": []string{"text/html; charset=utf-8"}})
}

func TestGetWorkoutExtractsExercises(t *testing.T) {
	client, transport := newTestClient(t, nil)
	transport.RegisterResponder("GET", testLogsURL, htmlResponder(http.StatusOK, fixturePage))

	workout, err := client.GetWorkout(context.Background(), "wstipp", "2023-01-14")
	if err != nil {
		t.Fatalf("get workout: %v", err)
	}

	if workout.Username != "wstipp" || workout.Date != "2023-01-14" {
		t.Fatalf("workout identity = %s/%s", workout.Username, workout.Date)
	}
	if workout.ProfileURL != "http://example.test/user/wstipp" {
		t.Errorf("profile url = %q", workout.ProfileURL)
	}
	if len(workout.Exercises) != 1 {
		t.Fatalf("exercises = %d, want 1", len(workout.Exercises))
	}

	exercise := workout.Exercises[0]
	if exercise.ExerciseName != "Bench Press" {
		t.Errorf("exercise name = %q, want %q", exercise.ExerciseName, "Bench Press")
	}
	if exercise.OneRepMax != 225.0 {
		t.Errorf("one rep max = %v, want 225", exercise.OneRepMax)
	}
	if exercise.ImageURL != "/images/bench.jpg" {
		t.Errorf("image url = %q", exercise.ImageURL)
	}

	wantLogs := []models.LiftingLog{
		{SetNumber: 1, Weight: 225, Reps: 5},
		{SetNumber: 2, Weight: 225, Reps: 5},
	}
	if len(exercise.LiftingLogs) != len(wantLogs) {
		t.Fatalf("lifting logs = %d, want %d", len(exercise.LiftingLogs), len(wantLogs))
	}
	for i := range wantLogs {
		if exercise.LiftingLogs[i] != wantLogs[i] {
			t.Errorf("log %d = %+v, want %+v", i, exercise.LiftingLogs[i], wantLogs[i])
		}
	}
}

func TestGetWorkoutDocumentOrderAndEmptyLogs(t *testing.T) {
	client, transport := newTestClient(t, nil)
	transport.RegisterResponder("GET", testLogsURL, htmlResponder(http.StatusOK, fixtureTwoExercises))

	workout, err := client.GetWorkout(context.Background(), "wstipp", "2023-01-14")
	if err != nil {
		t.Fatalf("get workout: %v", err)
	}
	if len(workout.Exercises) != 2 {
		t.Fatalf("exercises = %d, want 2", len(workout.Exercises))
	}
	if workout.Exercises[0].ExerciseName != "Squat" || workout.Exercises[1].ExerciseName != "Deadlift" {
		t.Errorf("document order not preserved: %q, %q",
			workout.Exercises[0].ExerciseName, workout.Exercises[1].ExerciseName)
	}
	if len(workout.Exercises[1].LiftingLogs) != 0 {
		t.Errorf("log text with no set tokens should yield no records, got %d",
			len(workout.Exercises[1].LiftingLogs))
	}
}

func TestGetWorkoutLayoutViolation(t *testing.T) {
	client, transport := newTestClient(t, nil)
	transport.RegisterResponder("GET", testLogsURL, htmlResponder(http.StatusOK, fixtureThreeBlocks))

	_, err := client.GetWorkout(context.Background(), "wstipp", "2023-01-14")
	var layoutErr LayoutError
	if !errors.As(err, &layoutErr) {
		t.Fatalf("expected LayoutError, got %v", err)
	}
	if layoutErr.Got != 3 || layoutErr.Want != 4 {
		t.Errorf("layout error = got %d want %d, expected 3/4", layoutErr.Got, layoutErr.Want)
	}
}

func TestGetWorkoutBadOneRepMax(t *testing.T) {
	client, transport := newTestClient(t, nil)
	transport.RegisterResponder("GET", testLogsURL, htmlResponder(http.StatusOK, fixtureBadOneRepMax))

	_, err := client.GetWorkout(context.Background(), "wstipp", "2023-01-14")
	var layoutErr LayoutError
	if !errors.As(err, &layoutErr) {
		t.Fatalf("expected LayoutError for non-numeric one rep max, got %v", err)
	}
	if !strings.Contains(layoutErr.Detail, "not numeric") {
		t.Errorf("layout error detail = %q", layoutErr.Detail)
	}
}

func TestGetWorkoutMissingContainerIsEmpty(t *testing.T) {
	client, transport := newTestClient(t, nil)
	transport.RegisterResponder("GET", testLogsURL, htmlResponder(http.StatusOK, fixtureNoContainer))

	workout, err := client.GetWorkout(context.Background(), "wstipp", "2023-01-15")
	if err != nil {
		t.Fatalf("missing container should not error, got %v", err)
	}
	if len(workout.Exercises) != 0 {
		t.Fatalf("expected empty workout, got %d exercises", len(workout.Exercises))
	}
}

func TestGetWorkoutHTTPErrors(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusNotFound, expected: "not_found"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusInternalServerError, expected: "http_status"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, transport := newTestClient(t, nil)
			transport.RegisterResponder("GET", testLogsURL, htmlResponder(tt.status, ""))

			workout, err := client.GetWorkout(context.Background(), "wstipp", "2023-01-14")
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}
			if workout != nil {
				t.Fatalf("expected no workout on HTTP error")
			}
			if got := ErrorTypeLabel(err); got != tt.expected {
				t.Errorf("error label = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetWorkoutNotFoundType(t *testing.T) {
	client, transport := newTestClient(t, nil)
	transport.RegisterResponder("GET", testLogsURL, htmlResponder(http.StatusNotFound, ""))

	_, err := client.GetWorkout(context.Background(), "nobody", "2023-01-14")
	var notFound ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetWorkoutCache(t *testing.T) {
	client, transport := newTestClient(t, func(cfg *config.Config) {
		cfg.CacheSize = 8
	})
	transport.RegisterResponder("GET", testLogsURL, htmlResponder(http.StatusOK, fixturePage))

	first, err := client.GetWorkout(context.Background(), "wstipp", "2023-01-14")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := client.GetWorkout(context.Background(), "wstipp", "2023-01-14")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if transport.GetTotalCallCount() != 1 {
		t.Fatalf("expected 1 HTTP call, got %d", transport.GetTotalCallCount())
	}
	if len(second.Exercises) != len(first.Exercises) {
		t.Fatalf("cached workout differs: %d vs %d exercises", len(second.Exercises), len(first.Exercises))
	}

	// A different date misses the cache and hits the network again.
	if _, err := client.GetWorkout(context.Background(), "wstipp", "2023-01-15"); err != nil {
		t.Fatalf("third fetch: %v", err)
	}
	if transport.GetTotalCallCount() != 2 {
		t.Fatalf("expected 2 HTTP calls after cache miss, got %d", transport.GetTotalCallCount())
	}
}

func TestGetWorkoutQueryParameters(t *testing.T) {
	client, transport := newTestClient(t, nil)
	transport.RegisterResponderWithQuery("GET", testLogsURL,
		map[string]string{"xid": "wstipp", "dd": "2023-01-14"},
		htmlResponder(http.StatusOK, fixturePage),
	)

	if _, err := client.GetWorkout(context.Background(), "wstipp", "2023-01-14"); err != nil {
		t.Fatalf("expected xid/dd query parameters to be sent: %v", err)
	}
}

func TestGetWorkoutInputValidation(t *testing.T) {
	client, _ := newTestClient(t, nil)

	if _, err := client.GetWorkout(context.Background(), "", "2023-01-14"); err == nil {
		t.Fatalf("expected error for empty username")
	}
	if _, err := client.GetWorkout(context.Background(), "wstipp", ""); err == nil {
		t.Fatalf("expected error for empty date")
	}
}

func TestUserProfileURL(t *testing.T) {
	client, _ := newTestClient(t, nil)
	if got := client.UserProfileURL("wstipp"); got != "http://example.test/user/wstipp" {
		t.Fatalf("profile url = %q", got)
	}
}
