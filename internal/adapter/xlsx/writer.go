// Package xlsx renders a design maps report into an Excel workbook with one
// scatter chart per response spectrum.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/seisreport/internal/domain"
	"github.com/couchcryptid/seisreport/internal/observability"
	"github.com/xuri/excelize/v2"
)

const (
	// BaseSheet holds the scalar design values.
	BaseSheet = "seismic_vals"

	PeriodHeader       = "Period [s]"
	AccelerationHeader = "Spectral Acceleration [g]"

	// chartAnchor is the top-left cell of each spectrum chart.
	chartAnchor = "C1"
	extension   = ".xlsx"

	reportFileMode = 0o644
)

// Writer saves reports under a fixed output directory.
type Writer struct {
	outputDir string
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewWriter creates a Writer for dir ("" means the working directory).
func NewWriter(dir string, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{outputDir: dir, metrics: metrics, logger: logger}
}

// Path returns where the workbook for address is written.
func (w *Writer) Path(address string) string {
	return filepath.Join(w.outputDir, domain.OutputName(address)+extension)
}

// Write builds the workbook in memory and moves it into place only once it
// is complete, so a failure leaves no partial file behind.
func (w *Writer) Write(ctx context.Context, report domain.Report, address string) (string, error) {
	if len(report.Spectra) != domain.SpectrumCount {
		return "", fmt.Errorf("%w: %d spectra, want %d", domain.ErrInsufficientData, len(report.Spectra), domain.SpectrumCount)
	}

	f, err := Build(report, address)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := w.Path(address)
	if err := saveAtomic(f, path); err != nil {
		return "", err
	}

	w.metrics.ReportsWritten.Inc()
	for _, s := range report.Spectra {
		w.metrics.SpectrumPoints.Observe(float64(len(s.Points)))
	}
	w.logger.Info("report written", "path", path, "base_rows", len(report.Base), "spectra", len(report.Spectra))
	return path, nil
}

// Build lays out the workbook: the base sheet first, then one sheet and
// chart per spectrum in report order.
func Build(report domain.Report, address string) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), BaseSheet); err != nil {
		f.Close() //nolint:errcheck,gosec // already failing
		return nil, fmt.Errorf("name base sheet: %w", err)
	}
	if err := writeBase(f, report.Base); err != nil {
		f.Close() //nolint:errcheck,gosec // already failing
		return nil, err
	}

	for _, s := range report.Spectra {
		if err := writeSpectrum(f, s); err != nil {
			f.Close() //nolint:errcheck,gosec // already failing
			return nil, fmt.Errorf("spectrum %q: %w", s.SheetName, err)
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       "Seismic design values: " + address,
		Subject:     "ASCE 7-16 design maps",
		Creator:     "seisreport",
		Description: "Design values and response spectra for " + address,
		Created:     domain.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		f.Close() //nolint:errcheck,gosec // already failing
		return nil, fmt.Errorf("set document properties: %w", err)
	}

	f.SetActiveSheet(0)
	return f, nil
}

// writeBase writes name/value pairs from A1 with no header row.
func writeBase(f *excelize.File, base []domain.DesignValue) error {
	for i, v := range base {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		var value any = v.Text
		if v.Numeric {
			value = v.Number
		}
		if err := f.SetSheetRow(BaseSheet, cell, &[]any{v.Name, value}); err != nil {
			return fmt.Errorf("write %s row %d: %w", BaseSheet, i+1, err)
		}
	}
	return nil
}

func writeSpectrum(f *excelize.File, s domain.SpectrumTable) error {
	if len(s.Points) == 0 {
		return fmt.Errorf("%w: no points", domain.ErrInsufficientData)
	}
	// NewSheet hands back an existing sheet instead of failing.
	if idx, err := f.GetSheetIndex(s.SheetName); err != nil {
		return fmt.Errorf("check sheet name: %w", err)
	} else if idx != -1 {
		return fmt.Errorf("%w: sheet %q already exists", domain.ErrInsufficientData, s.SheetName)
	}
	if _, err := f.NewSheet(s.SheetName); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := f.SetSheetRow(s.SheetName, "A1", &[]any{PeriodHeader, AccelerationHeader}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, p := range s.Points {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.SheetName, cell, &[]any{p.Period, p.Acceleration}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.AddChart(s.SheetName, chartAnchor, spectrumChart(s.SheetName, len(s.Points))); err != nil {
		return fmt.Errorf("add chart: %w", err)
	}
	return nil
}

// spectrumChart describes a smooth scatter plot of period vs acceleration
// over the sheet's value rows, 2 through points+1.
func spectrumChart(sheet string, points int) *excelize.Chart {
	ref := quoteSheet(sheet)
	last := points + 1
	return &excelize.Chart{
		Type: excelize.Scatter,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("%s!$B$1", ref),
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", ref, last),
				Values:     fmt.Sprintf("%s!$B$2:$B$%d", ref, last),
				Line:       excelize.ChartLine{Smooth: true, Width: 2},
				Marker:     excelize.ChartMarker{Symbol: "none"},
			},
		},
		Title:  []excelize.RichTextRun{{Text: sheet}},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: PeriodHeader}}, MajorGridLines: true},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: AccelerationHeader}}, MajorGridLines: true},
		Legend: excelize.ChartLegend{Position: "none"},
	}
}

// quoteSheet quotes a sheet name for use in a cell reference.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func saveAtomic(f *excelize.File, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) } //nolint:errcheck,gosec // best-effort cleanup

	if err := tmp.Chmod(reportFileMode); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		cleanup()
		return fmt.Errorf("set workbook permissions: %w", err)
	}
	if err := f.Write(tmp); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		cleanup()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close workbook: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("move workbook into place: %w", err)
	}
	return nil
}

// PrintSummary writes the base table, without header, as the console
// summary shown before the workbook is saved.
func PrintSummary(out io.Writer, base []domain.DesignValue) error {
	if _, err := fmt.Fprintln(out, "########## RESPONSE DATA ##########"); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, v := range base {
		fmt.Fprintf(tw, "%s\t%s\n", v.Name, v.String()) //nolint:errcheck // flushed below
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "See output spreadsheet for response spectra data and plots.")
	return err
}
