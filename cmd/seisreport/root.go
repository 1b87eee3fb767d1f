package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/seisreport/internal/adapter/mapquest"
	"github.com/couchcryptid/seisreport/internal/adapter/usgs"
	"github.com/couchcryptid/seisreport/internal/adapter/xlsx"
	"github.com/couchcryptid/seisreport/internal/config"
	"github.com/couchcryptid/seisreport/internal/credentials"
	"github.com/couchcryptid/seisreport/internal/observability"
	"github.com/couchcryptid/seisreport/internal/pipeline"
	"github.com/couchcryptid/seisreport/internal/prompt"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "seisreport",
		Short: "Seismic design values report for a project address",
		Long: `seisreport - ASCE 7-16 seismic design values report

Prompts for a project address, risk category and site class, looks up the
design values from the USGS design maps service and writes them, with the
response spectra and their plots, to an Excel workbook named after the
address.

Settings are read from the environment (and a .env file if present):
  MAPQUEST_API_KEY, MAPQUEST_BASE_URL, DESIGNMAPS_BASE_URL, HTTP_TIMEOUT,
  CREDENTIALS_FILE, OUTPUT_DIR, LOG_LEVEL, LOG_FORMAT, METRICS_FILE`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newVersionCmd())
	return root
}

func run(ctx context.Context, in io.Reader, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, runID := observability.WithRunID(observability.NewLogger(cfg))
	metrics := observability.NewMetrics()
	defer func() {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("metrics export failed", "path", cfg.MetricsFile, "error", err)
		}
	}()
	logger.Debug("starting", "version", Version, "run_id", runID, "output_dir", cfg.OutputDir)

	// One console for every prompt so buffered stdin is never split.
	console := prompt.NewConsole(in, out)

	key, err := credentials.NewProvider(cfg.MapQuestAPIKey, credentials.NewStore(cfg.CredentialsFile), console, logger).APIKey(ctx)
	if err != nil {
		return err
	}

	geocoder := mapquest.NewClient(key, cfg.MapQuestBaseURL, cfg.HTTPTimeout, metrics, logger)
	fetcher := usgs.NewClient(cfg.DesignMapsBaseURL, cfg.HTTPTimeout, metrics, logger)
	writer := xlsx.NewWriter(cfg.OutputDir, metrics, logger)
	prompter := prompt.NewPrompter(console, geocoder, metrics, logger)

	result, err := pipeline.New(prompter, fetcher, writer, xlsx.PrintSummary, out, logger).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Saved %s\n", result.Path) //nolint:errcheck // console output
	return nil
}
