package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/seisreport/internal/domain"
)

// Collector gathers validated project input and the coordinates resolved
// while validating the address.
type Collector interface {
	Collect(ctx context.Context) (domain.ProjectInput, domain.Coordinates, error)
}

// ReportWriter persists a finished report and returns its path.
type ReportWriter interface {
	Write(ctx context.Context, report domain.Report, address string) (string, error)
}

// SummaryPrinter renders the base table to the console.
type SummaryPrinter func(out io.Writer, base []domain.DesignValue) error

// Result describes a completed run.
type Result struct {
	Input       domain.ProjectInput
	Coordinates domain.Coordinates
	Path        string
	BaseRows    int
	Spectra     int
}

// Session runs the collect, fetch, transform, summarize, write sequence once.
type Session struct {
	collector Collector
	fetcher   domain.DesignMapsFetcher
	writer    ReportWriter
	summary   SummaryPrinter
	out       io.Writer
	logger    *slog.Logger
}

// New creates a Session with the given stages. A nil summary skips the
// console summary.
func New(c Collector, f domain.DesignMapsFetcher, w ReportWriter, summary SummaryPrinter, out io.Writer, logger *slog.Logger) *Session {
	return &Session{
		collector: c,
		fetcher:   f,
		writer:    w,
		summary:   summary,
		out:       out,
		logger:    logger,
	}
}

// Run executes one report. Nothing is written to disk unless every earlier
// stage succeeded.
func (s *Session) Run(ctx context.Context) (Result, error) {
	input, coords, err := s.collector.Collect(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("collect input: %w", err)
	}
	s.logger.Info("input collected",
		"address", input.Address,
		"lat", coords.Lat,
		"lon", coords.Lon,
		"risk_category", input.RiskCategory,
		"site_class", input.SiteClass,
	)

	// Coordinates from address validation are reused; the address is not
	// geocoded a second time.
	resp, err := s.fetcher.FetchDesignValues(ctx, coords, input.RiskCategory, input.SiteClass)
	if err != nil {
		return Result{}, fmt.Errorf("fetch design values: %w", err)
	}

	report, err := domain.TransformResponse(resp)
	if err != nil {
		return Result{}, fmt.Errorf("transform design values: %w", err)
	}
	s.logger.Debug("response transformed", "base_rows", len(report.Base), "spectra", len(report.Spectra))

	if s.summary != nil {
		if err := s.summary(s.out, report.Base); err != nil {
			s.logger.Warn("print summary failed", "error", err)
		}
	}

	path, err := s.writer.Write(ctx, report, input.Address)
	if err != nil {
		return Result{}, fmt.Errorf("write report: %w", err)
	}

	return Result{
		Input:       input,
		Coordinates: coords,
		Path:        path,
		BaseRows:    len(report.Base),
		Spectra:     len(report.Spectra),
	}, nil
}
