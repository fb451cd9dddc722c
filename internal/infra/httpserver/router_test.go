package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	power "github.com/antmicro/dram-power-analysis/internal/domain/power"
	"github.com/antmicro/dram-power-analysis/internal/middleware"
)

type stubHistory struct {
	recs []*power.CornerRecord
}

func (s *stubHistory) Save(context.Context, *power.CornerRecord) error { return nil }

func (s *stubHistory) Latest(context.Context, int) ([]*power.CornerRecord, error) {
	return s.recs, nil
}

func (s *stubHistory) Summary(context.Context, int) (int, int, float64, error) {
	return 2, len(s.recs), 1.25, nil
}

func newTestServer(t *testing.T, dir string, hist power.History) *httptest.Server {
	t.Helper()
	checkers := map[string]middleware.HealthChecker{
		"reports": &middleware.ReportDirHealthChecker{Dir: dir},
	}
	srv := httptest.NewServer(NewRouter(dir, hist, nil, checkers, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func TestListReports(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"power_analysis_sweep_f100_a50.json",
		"power_analysis_vcd_f266.json",
		"activity_normalized.vcd",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	srv := newTestServer(t, dir, nil)

	resp, err := http.Get(srv.URL + "/v1/reports")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Reports []string `json:"reports"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{
		"power_analysis_sweep_f100_a50.json",
		"power_analysis_vcd_f266.json",
	}, body.Reports)
}

func TestGetReport(t *testing.T) {
	dir := t.TempDir()
	content := `{"frequency":100,"activity":0.5,"results":{}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "power_analysis_sweep_f100_a50.json"), []byte(content), 0o644))
	srv := newTestServer(t, dir, nil)

	resp, err := http.Get(srv.URL + "/v1/reports/power_analysis_sweep_f100_a50.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, 100.0, doc["frequency"])
}

func TestGetReportRejectsNonReportNames(t *testing.T) {
	srv := newTestServer(t, t.TempDir(), nil)

	resp, err := http.Get(srv.URL + "/v1/reports/config.yaml")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetReportNotFound(t *testing.T) {
	srv := newTestServer(t, t.TempDir(), nil)

	resp, err := http.Get(srv.URL + "/v1/reports/power_analysis_sweep_f100_a50.json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunsEndpointsWithoutHistory(t *testing.T) {
	srv := newTestServer(t, t.TempDir(), nil)

	resp, err := http.Get(srv.URL + "/v1/runs/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestRunsSummary(t *testing.T) {
	hist := &stubHistory{recs: []*power.CornerRecord{{RunID: "r1", TotalW: 1.25}}}
	srv := newTestServer(t, t.TempDir(), hist)

	resp, err := http.Get(srv.URL + "/v1/runs/summary?days=7")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Runs      int     `json:"runs"`
		Corners   int     `json:"corners"`
		MaxTotalW float64 `json:"max_total_w"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Runs)
	assert.Equal(t, 1, body.Corners)
	assert.Equal(t, 1.25, body.MaxTotalW)
}

func TestAnalyzeRejectsNonReportNames(t *testing.T) {
	srv := newTestServer(t, t.TempDir(), nil)

	resp, err := http.Post(srv.URL+"/v1/analyze", "application/json",
		strings.NewReader(`{"report":"../../etc/passwd"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeWithoutService(t *testing.T) {
	srv := newTestServer(t, t.TempDir(), nil)

	resp, err := http.Post(srv.URL+"/v1/analyze", "application/json",
		strings.NewReader(`{"report":"power_analysis_sweep_f100_a50.json"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, t.TempDir(), nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
