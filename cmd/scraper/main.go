package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-workouts/config"
	"github.com/aluiziolira/go-scrape-workouts/models"
	"github.com/aluiziolira/go-scrape-workouts/pipeline"
	"github.com/aluiziolira/go-scrape-workouts/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()
	parallelDefault := defaultCfg.Parallelism
	if value, ok, err := config.EnvInt("SCRAPER_PARALLEL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PARALLEL: %v\n", err)
		os.Exit(1)
	} else if ok {
		parallelDefault = value
	}
	cacheDefault := defaultCfg.CacheSize
	if value, ok, err := config.EnvInt("SCRAPER_CACHE_SIZE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_CACHE_SIZE: %v\n", err)
		os.Exit(1)
	} else if ok {
		cacheDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	username := flag.String("user", "", "Site username (xid) to fetch workouts for")
	date := flag.String("date", "", "Workout date to fetch (YYYY-MM-DD)")
	from := flag.String("from", "", "Start of a date range (YYYY-MM-DD, inclusive)")
	to := flag.String("to", "", "End of a date range (YYYY-MM-DD, inclusive)")
	parallelism := flag.Int("parallel", parallelDefault, "Number of concurrent fetches")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "HTTP request timeout (seconds)")
	cacheSize := flag.Int("cache-size", cacheDefault, "Workout cache size (0 disables caching)")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	logsURL := flag.String("logs-url", defaultCfg.LogsBaseURL, "Logs endpoint base URL")
	userURL := flag.String("user-url", defaultCfg.UserBaseURL, "User profile base URL")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if *username == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(1)
	}

	dates, err := resolveDates(*date, *from, *to)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := defaultCfg
	cfg.LogsBaseURL = *logsURL
	cfg.UserBaseURL = *userURL
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.Parallelism = *parallelism
	cfg.CacheSize = *cacheSize
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = *outputFormat
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("user", *username),
		slog.Int("dates", len(dates)),
		slog.Int("workers", cfg.Parallelism),
	)

	client, err := scraper.NewClient(cfg)
	if err != nil {
		slog.Error("initialising client", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && client.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(client.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(cfg.Parallelism)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	result := fetchAll(ctx, client, p, *username, dates, cfg.Parallelism)

	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, p.GetMetrics(), cfg.OutputFile)

	if result.ErrorCount > 0 {
		os.Exit(1)
	}
}

// fetchAll retrieves every date with a bounded worker pool. Each call
// holds its own collector, so concurrent fetches are safe.
func fetchAll(ctx context.Context, client *scraper.Client, p *pipeline.Pipeline, username string, dates []string, workers int) *models.ScrapeResult {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(dates) {
		workers = len(dates)
	}

	result := &models.ScrapeResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}

	var mu sync.Mutex
	dateCh := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for date := range dateCh {
				workout, err := client.GetWorkout(ctx, username, date)
				if err != nil {
					label := scraper.ErrorTypeLabel(err)
					slog.Error("fetch failed",
						slog.String("date", date),
						slog.String("category", label),
						slog.Any("error", err),
					)
					mu.Lock()
					result.ErrorCount++
					result.ErrorsByType[label]++
					result.FailedDates = append(result.FailedDates, date)
					mu.Unlock()
					continue
				}

				mu.Lock()
				result.RequestCount++
				result.TotalCount += len(workout.Exercises)
				if len(workout.Exercises) == 0 {
					result.EmptyCount++
				}
				result.Workouts = append(result.Workouts, workout)
				mu.Unlock()

				if err := p.Process(workout); err != nil && err != pipeline.ErrPipelineClosed {
					slog.Error("pipeline process error", slog.Any("error", err))
				}
			}
		}()
	}

	for _, date := range dates {
		select {
		case <-ctx.Done():
		case dateCh <- date:
		}
	}
	close(dateCh)
	wg.Wait()

	result.EndTime = time.Now()
	return result
}

// resolveDates turns the -date or -from/-to flags into the list of
// dates to fetch, oldest first.
func resolveDates(date, from, to string) ([]string, error) {
	if date != "" {
		if from != "" || to != "" {
			return nil, fmt.Errorf("-date cannot be combined with -from/-to")
		}
		if _, err := time.Parse(config.DateFormat, date); err != nil {
			return nil, fmt.Errorf("invalid -date %q: want %s", date, config.DateFormat)
		}
		return []string{date}, nil
	}

	if from == "" || to == "" {
		return nil, fmt.Errorf("either -date or both -from and -to are required")
	}
	start, err := time.Parse(config.DateFormat, from)
	if err != nil {
		return nil, fmt.Errorf("invalid -from %q: want %s", from, config.DateFormat)
	}
	end, err := time.Parse(config.DateFormat, to)
	if err != nil {
		return nil, fmt.Errorf("invalid -to %q: want %s", to, config.DateFormat)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("-to %q is before -from %q", to, from)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(config.DateFormat))
	}
	return dates, nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.ScrapeResult, metrics map[string]interface{}, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	fmt.Printf("  Workouts:      %d\n", result.RequestCount)
	fmt.Printf("  Exercises:     %d\n", result.TotalCount)
	fmt.Printf("  Empty dates:   %d\n", result.EmptyCount)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if len(result.FailedDates) > 0 {
		fmt.Printf("  Failed dates:  %v\n", result.FailedDates)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
