package integration_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/seisreport/internal/adapter/mapquest"
	"github.com/couchcryptid/seisreport/internal/adapter/usgs"
	"github.com/couchcryptid/seisreport/internal/adapter/xlsx"
	"github.com/couchcryptid/seisreport/internal/credentials"
	"github.com/couchcryptid/seisreport/internal/domain"
	"github.com/couchcryptid/seisreport/internal/observability"
	"github.com/couchcryptid/seisreport/internal/pipeline"
	"github.com/couchcryptid/seisreport/internal/prompt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testAddress = "1600 Pennsylvania Ave NW, Washington, DC"

// fakeAPIs serves canned MapQuest and design maps responses.
type fakeAPIs struct {
	geocodeCalls    atomic.Int32
	designMapsCalls atomic.Int32
	mapquest        *httptest.Server
	designMaps      *httptest.Server
}

func newFakeAPIs(t *testing.T, wantKey string) *fakeAPIs {
	t.Helper()
	fixture, err := os.ReadFile("../domain/testdata/asce7-16_dc.json")
	require.NoError(t, err)

	f := &fakeAPIs{}
	f.mapquest = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.geocodeCalls.Add(1)
		assert.Equal(t, wantKey, r.URL.Query().Get("key"))

		loc := r.URL.Query().Get("location")
		var locations []any
		if loc == testAddress {
			locations = append(locations, map[string]any{
				"latLng":         map[string]float64{"lat": 38.8977, "lng": -77.0365},
				"geocodeQuality": "POINT",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"results": []any{map[string]any{
				"providedLocation": map[string]string{"location": loc},
				"locations":        locations,
			}},
		}))
	}))
	f.designMaps = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.designMapsCalls.Add(1)
		assert.Equal(t, "38.8977", r.URL.Query().Get("latitude"))
		assert.Equal(t, "-77.0365", r.URL.Query().Get("longitude"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(fixture)
	}))
	t.Cleanup(func() {
		f.mapquest.Close()
		f.designMaps.Close()
	})
	return f
}

// workbookParts returns the contents of the zip parts of a saved workbook
// whose names start with prefix.
func workbookParts(t *testing.T, path, prefix string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var parts []string
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		parts = append(parts, string(data))
	}
	return parts
}

// session wires the real adapters the same way the command does.
func session(t *testing.T, apis *fakeAPIs, input, outDir, credFile string) (*pipeline.Session, *bytes.Buffer, *observability.Metrics) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	var out bytes.Buffer
	console := prompt.NewConsole(strings.NewReader(input), &out)

	key, err := credentials.NewProvider("", credentials.NewStore(credFile), console, logger).APIKey(ctx)
	require.NoError(t, err)

	geocoder := mapquest.NewClient(key, apis.mapquest.URL, 5*time.Second, metrics, logger)
	fetcher := usgs.NewClient(apis.designMaps.URL, 5*time.Second, metrics, logger)
	writer := xlsx.NewWriter(outDir, metrics, logger)
	prompter := prompt.NewPrompter(console, geocoder, metrics, logger)

	return pipeline.New(prompter, fetcher, writer, xlsx.PrintSummary, &out, logger), &out, metrics
}

func TestReport_EndToEnd(t *testing.T) {
	apis := newFakeAPIs(t, "first-run-key")
	outDir := t.TempDir()
	credFile := filepath.Join(t.TempDir(), "credentials.env")

	input := "first-run-key\n" + testAddress + "\nII\nD\n"
	s, out, metrics := session(t, apis, input, outDir, credFile)

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	wantPath := filepath.Join(outDir, "1600_Pennsylvania_Ave_NW_Washington_DC_outputData.xlsx")
	assert.Equal(t, wantPath, result.Path)
	assert.FileExists(t, wantPath)
	assert.Equal(t, int32(1), apis.geocodeCalls.Load(), "address is geocoded exactly once")
	assert.Equal(t, int32(1), apis.designMapsCalls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsWritten), 0)

	assert.Contains(t, out.String(), "########## RESPONSE DATA ##########")
	assert.Contains(t, out.String(), "sdc  B")

	f, err := excelize.OpenFile(wantPath)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		xlsx.BaseSheet,
		"verticalMCErSpectrum",
		"verticalDesignSpectrum",
		"twoPeriodMCErSpectrum",
		"twoPeriodDesignSpectrum",
	}, f.GetSheetList())

	for _, sheet := range f.GetSheetList()[1:] {
		rows, err := f.GetRows(sheet)
		require.NoError(t, err)
		require.NotEmpty(t, rows)
		assert.Equal(t, []string{xlsx.PeriodHeader, xlsx.AccelerationHeader}, rows[0])
	}

	// One scatter chart per spectrum sheet, each drawn on its own sheet.
	charts := workbookParts(t, wantPath, "xl/charts/chart")
	require.Len(t, charts, domain.SpectrumCount)
	assert.Len(t, workbookParts(t, wantPath, "xl/drawings/drawing"), domain.SpectrumCount)
	for _, sheet := range f.GetSheetList()[1:] {
		found := 0
		for _, c := range charts {
			assert.Contains(t, c, "scatterChart")
			if strings.Contains(c, "<a:t>"+sheet+"</a:t>") {
				found++
			}
		}
		assert.Equal(t, 1, found, "chart titled %s", sheet)
	}
	sheetRels := workbookParts(t, wantPath, "xl/worksheets/_rels/sheet1.xml.rels")
	for _, rels := range sheetRels {
		assert.NotContains(t, rels, "drawing", "base sheet has no chart")
	}

	// The key was persisted for the next run.
	key, ok, err := credentials.NewStore(credFile).Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "first-run-key", key)
}

func TestReport_RetriesInvalidInputWithoutExtraCalls(t *testing.T) {
	apis := newFakeAPIs(t, "stored-key")
	outDir := t.TempDir()
	credFile := filepath.Join(t.TempDir(), "credentials.env")
	require.NoError(t, credentials.NewStore(credFile).Save("stored-key"))

	input := "atlantis\n" + testAddress + "\nV\nIV\nF\nD-default\n"
	s, out, metrics := session(t, apis, input, outDir, credFile)

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RiskCategoryIV, result.Input.RiskCategory)
	assert.Equal(t, domain.SiteClassDDefault, result.Input.SiteClass)
	assert.Equal(t, int32(2), apis.geocodeCalls.Load(), "one call per address attempt")
	assert.Equal(t, int32(1), apis.designMapsCalls.Load())
	assert.NotContains(t, out.String(), credentials.KeyPrompt, "stored key is reused")

	for field, want := range map[string]float64{"address": 1, "risk_category": 1, "site_class": 1} {
		assert.InDelta(t, want, testutil.ToFloat64(metrics.PromptRejections.WithLabelValues(field)), 0, field)
	}
}

func TestReport_DesignMapsOutageWritesNothing(t *testing.T) {
	apis := newFakeAPIs(t, "k")
	apis.designMaps.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})
	outDir := t.TempDir()
	credFile := filepath.Join(t.TempDir(), "credentials.env")

	s, _, _ := session(t, apis, "k\n"+testAddress+"\nII\nD\n", outDir, credFile)
	_, err := s.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrNetwork)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
