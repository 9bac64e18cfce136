// Package scraper fetches a user's workout log page and extracts the
// exercise blocks out of its fixed HTML layout.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-workouts/config"
	"github.com/aluiziolira/go-scrape-workouts/models"
	"github.com/aluiziolira/go-scrape-workouts/parser"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Selectors for the fixed page layout. The logs page renders one
// container with id "logList1"; each exercise inside it is a
// div.exercise-block wrapping a div.fixedLogBar with exactly
// logBarBlockCount positional field blocks.
const (
	logListSelector     = "#logList1"
	exerciseSelector    = "div.exercise-block"
	logBarSelector      = "div.fixedLogBar"
	logBarBlockSelector = "div.fixedLogBarBlock.align-top"
	logBarBlockCount    = 4
)

// Positions of the field blocks inside a fixedLogBar.
const (
	blockPicture = iota
	blockName
	blockOneRepMax
	blockLogs
)

// Client retrieves workouts for a single user/date pair. It holds no
// mutable state besides the cache, so callers may issue GetWorkout
// calls concurrently; each call uses its own collector.
type Client struct {
	cfg       *config.Config
	logsURL   *url.URL
	transport http.RoundTripper
	cache     *lru.Cache[string, []models.ExerciseBlock]
	Metrics   *Metrics
}

// NewClient builds a client from cfg. cfg is not mutated and must not
// change after construction.
func NewClient(cfg *config.Config) (*Client, error) {
	logsURL, err := url.Parse(cfg.LogsBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse logs base url: %w", err)
	}
	if logsURL.Host == "" {
		return nil, fmt.Errorf("logs base url must include a host")
	}
	if _, err := url.Parse(cfg.UserBaseURL); err != nil {
		return nil, fmt.Errorf("parse user base url: %w", err)
	}

	c := &Client{
		cfg:     cfg,
		logsURL: logsURL,
		Metrics: NewMetrics(),
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []models.ExerciseBlock](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("build workout cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// WithTransport overrides the HTTP transport used for requests. Tests
// install mock transports through this.
func (c *Client) WithTransport(transport http.RoundTripper) {
	c.transport = transport
}

// UserProfileURL returns the profile page URL for a username.
func (c *Client) UserProfileURL(username string) string {
	return strings.TrimSuffix(c.cfg.UserBaseURL, "/") + "/" + url.PathEscape(username)
}

// GetWorkout performs one GET against the logs endpoint with
// xid=username and dd=date and extracts the exercise blocks from the
// response. A page without the log list container is treated as "no
// workout logged that day" and yields an empty workout. A page whose
// exercise blocks no longer carry the expected four field blocks fails
// the whole extraction with a LayoutError.
func (c *Client) GetWorkout(ctx context.Context, username, date string) (*models.Workout, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if strings.TrimSpace(date) == "" {
		return nil, fmt.Errorf("date cannot be empty")
	}

	key := username + "|" + date
	if c.cache != nil {
		if exercises, ok := c.cache.Get(key); ok {
			c.Metrics.IncCacheHit()
			return c.newWorkout(username, date, exercises), nil
		}
	}

	collector := c.newCollector()

	var (
		exercises      []models.ExerciseBlock
		extractErr     error
		containerFound bool
		requestErr     error
	)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Ctx.Put("start", time.Now())
		c.Metrics.IncRequest()
	})

	collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
			c.Metrics.ObserveDuration(time.Since(start))
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		requestErr = classifyError(err, statusCode)
	})

	collector.OnHTML(logListSelector, func(e *colly.HTMLElement) {
		containerFound = true
		exercises, extractErr = extractExercises(e.DOM)
	})

	target := c.logsPageURL(username, date)
	visitErr := collector.Visit(target)
	collector.Wait()

	if requestErr == nil && ctx.Err() != nil {
		requestErr = ctx.Err()
	}
	if requestErr != nil {
		c.Metrics.IncError(ErrorTypeLabel(requestErr))
		return nil, fmt.Errorf("fetch workout %s/%s: %w", username, date, requestErr)
	}
	if visitErr != nil {
		classified := classifyError(visitErr, 0)
		c.Metrics.IncError(ErrorTypeLabel(classified))
		return nil, fmt.Errorf("fetch workout %s/%s: %w", username, date, classified)
	}
	if extractErr != nil {
		c.Metrics.IncError(ErrorTypeLabel(extractErr))
		return nil, fmt.Errorf("extract workout %s/%s: %w", username, date, extractErr)
	}
	if !containerFound {
		slog.Debug("log list container absent, treating as empty workout",
			slog.String("username", username),
			slog.String("date", date),
		)
		exercises = []models.ExerciseBlock{}
	}

	c.Metrics.AddExercises(len(exercises))
	if c.cache != nil {
		c.cache.Add(key, exercises)
	}
	return c.newWorkout(username, date, exercises), nil
}

func (c *Client) newCollector() *colly.Collector {
	collector := colly.NewCollector(
		colly.UserAgent(c.cfg.UserAgent),
	)
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(c.cfg.Timeout)
	if c.transport != nil {
		collector.WithTransport(c.transport)
	}
	return collector
}

func (c *Client) logsPageURL(username, date string) string {
	target := *c.logsURL
	query := target.Query()
	query.Set("xid", username)
	query.Set("dd", date)
	target.RawQuery = query.Encode()
	return target.String()
}

func (c *Client) newWorkout(username, date string, exercises []models.ExerciseBlock) *models.Workout {
	return &models.Workout{
		Username:   username,
		Date:       date,
		ProfileURL: c.UserProfileURL(username),
		Exercises:  exercises,
		ScrapedAt:  time.Now(),
	}
}

// extractExercises walks every exercise block under the log list
// container, in document order.
func extractExercises(container *goquery.Selection) ([]models.ExerciseBlock, error) {
	exercises := []models.ExerciseBlock{}
	var walkErr error

	container.Find(exerciseSelector).EachWithBreak(func(i int, block *goquery.Selection) bool {
		exercise, err := extractExercise(i, block)
		if err != nil {
			walkErr = err
			return false
		}
		exercises = append(exercises, exercise)
		return true
	})

	if walkErr != nil {
		return nil, walkErr
	}
	return exercises, nil
}

func extractExercise(index int, block *goquery.Selection) (models.ExerciseBlock, error) {
	cells := block.Find(logBarSelector).First().Find(logBarBlockSelector)
	if cells.Length() != logBarBlockCount {
		return models.ExerciseBlock{}, LayoutError{
			Exercise: index,
			Want:     logBarBlockCount,
			Got:      cells.Length(),
		}
	}

	name := strings.TrimSpace(cells.Eq(blockName).Find("a").First().Text())
	imageURL, _ := cells.Eq(blockPicture).Find("img").First().Attr("src")

	oneRepMax, err := parser.ParseOneRepMax(cells.Eq(blockOneRepMax).Text())
	if err != nil {
		return models.ExerciseBlock{}, LayoutError{
			Exercise: index,
			Want:     logBarBlockCount,
			Got:      logBarBlockCount,
			Detail:   err.Error(),
		}
	}

	return models.ExerciseBlock{
		ExerciseName: name,
		OneRepMax:    oneRepMax,
		ImageURL:     imageURL,
		LiftingLogs:  parser.ParseLiftingLogs(cells.Eq(blockLogs).Text()),
	}, nil
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode >= http.StatusBadRequest {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		default:
			return ErrHTTPStatus{Status: statusCode, Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}
