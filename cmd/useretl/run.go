package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"useretl/pkg/auth"
	"useretl/pkg/checkpoint"
	"useretl/pkg/config"
	"useretl/pkg/ingest"
	"useretl/pkg/logger"
	"useretl/pkg/metrics"
	"useretl/pkg/randomuser"
	"useretl/pkg/ratelimit"
	"useretl/pkg/report"
	"useretl/pkg/retry"
	"useretl/pkg/storage"
	"useretl/pkg/ui"
)

var (
	// Run command flags
	apiURL          string
	batchSize       int
	checkpointPath  string
	onFetchFailure  string
	maxAttempts     int
	retryDelay      time.Duration
	dbHost          string
	dbPort          int
	dbName          string
	dbUser          string
	metricsTextfile string
	noReport        bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest one batch of users",
	Long: `Ingest one batch of users, starting after the stored checkpoint.

Each index is fetched with retries, normalized and inserted in its own
transaction; the checkpoint moves forward after every committed row. With
--on-fetch-failure=skip (default) an index whose fetch failed is skipped and
recorded in the ingest_runs table. With --on-fetch-failure=stop the batch ends
at that index so the next run retries it.`,
	Example: `  # Run one batch with defaults
  useretl run

  # Smaller batch against a remote database
  useretl run --batch-size 20 --db-host db.internal --db-user etl

  # Stop at the first failed fetch and export metrics
  useretl run --on-fetch-failure stop --metrics-textfile /var/lib/node_exporter/useretl.prom`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Registered on root as well so a bare "useretl" accepts the same flags.
	for _, cmd := range []*cobra.Command{runCmd, rootCmd} {
		cmd.Flags().StringVar(&apiURL, "api-url", "", "random user API URL")
		cmd.Flags().IntVarP(&batchSize, "batch-size", "n", 0, "indices per run (default 150)")
		cmd.Flags().StringVar(&checkpointPath, "checkpoint-file", "", "checkpoint file path")
		cmd.Flags().StringVar(&onFetchFailure, "on-fetch-failure", "", "skip or stop when a fetch fails after retries")
		cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "fetch attempts per index (default 5)")
		cmd.Flags().DurationVar(&retryDelay, "retry-delay", -1, "delay between fetch attempts (default 5s)")
		cmd.Flags().StringVar(&dbHost, "db-host", "", "database host")
		cmd.Flags().IntVar(&dbPort, "db-port", 0, "database port")
		cmd.Flags().StringVar(&dbName, "db-name", "", "database name")
		cmd.Flags().StringVar(&dbUser, "db-user", "", "database user")
		cmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")
		cmd.Flags().BoolVar(&noReport, "no-report", false, "skip the end-of-run report")
	}
}

func commandFlags(cmd *cobra.Command) map[string]interface{} {
	flags := map[string]interface{}{
		"api-url":          apiURL,
		"batch-size":       batchSize,
		"checkpoint-file":  checkpointPath,
		"on-fetch-failure": onFetchFailure,
		"max-attempts":     maxAttempts,
		"db-host":          dbHost,
		"db-port":          dbPort,
		"db-name":          dbName,
		"db-user":          dbUser,
		"metrics-textfile": metricsTextfile,
		"log-level":        logLevel,
	}
	if cmd.Flags().Changed("retry-delay") {
		flags["retry-delay"] = retryDelay
	}
	if noReport {
		flags["report-enabled"] = false
	}
	if noColor {
		flags["color"] = false
	}
	return flags
}

// loadConfig loads configuration and initializes logging for a command
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, commandFlags(cmd))
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if !cfg.Report.Color {
		ui.SetColor(false)
	}
	return cfg, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("useretl starting")

	ui.PrintBanner()

	resolveDatabasePassword(cfg)

	store, err := storage.Open(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	backoff, err := retry.NewBackoff(cfg.Retry.Strategy, cfg.Retry.Delay, cfg.Retry.MaxDelay)
	if err != nil {
		return err
	}

	client, err := randomuser.NewClient(randomuser.Options{
		URL:           cfg.API.URL,
		Timeout:       cfg.API.Timeout,
		MaxAttempts:   cfg.Retry.MaxAttempts,
		Backoff:       backoff,
		Limiter:       ratelimit.PerMinute(cfg.API.RequestsPerMinute),
		TransportOnly: !cfg.Retry.OnStatus,
	})
	if err != nil {
		return err
	}

	cp := checkpoint.NewManager(cfg.Ingest.CheckpointFile)
	orchestrator := ingest.New(client, store, cp, ingest.Options{
		BatchSize:      cfg.Ingest.BatchSize,
		OnFetchFailure: cfg.Ingest.OnFetchFailure,
	})

	progress := ui.NewProgressPrinter(ui.Output(), cfg.Ingest.BatchSize)
	if !ui.IsQuietMode() {
		orchestrator.SetProgress(progress)
	}

	result, runErr := orchestrator.Run(ctx)

	if result != nil && !ui.IsQuietMode() {
		progress.PrintSummary()
		if len(result.Skipped) > 0 {
			ui.PrintWarning("Skipped indices", fmt.Sprint(result.Skipped))
		}
		if result.HaltedAt >= 0 {
			ui.PrintWarning("Batch stopped at index", result.HaltedAt)
		}
		if cfg.Report.Enabled {
			if err := printReport(result, cfg); err != nil {
				log.WithError(err).Warn("failed to print report")
			}
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.WithError(err).WithField("path", cfg.Metrics.Textfile).Warn("failed to write metrics")
		}
	}

	if runErr != nil {
		return runErr
	}
	ui.PrintSuccess("Batch completed")
	return nil
}

// resolveDatabasePassword fills in a stored password when none is configured
func resolveDatabasePassword(cfg *config.Config) {
	if cfg.Database.Password != "" || !cfg.Database.UseKeyring {
		return
	}
	log := logger.GetLogger()

	creds, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("credential store unavailable")
		return
	}
	pw, err := creds.ResolvePassword(&cfg.Database)
	if err != nil {
		log.WithError(err).Warn("failed to read stored database password")
		return
	}
	cfg.Database.Password = pw
}

func printReport(result *ingest.Result, cfg *config.Config) error {
	out := ui.Output()
	summary := report.Summarize(result.Batch)

	fmt.Fprintln(out)
	if err := report.Print(out, summary); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return report.RenderChart(out, summary.Countries, report.ChartOptions{
		Width: cfg.Report.ChartWidth,
		Color: ui.ColorEnabled(),
	})
}
