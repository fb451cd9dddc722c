package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalyze "github.com/antmicro/dram-power-analysis/internal/application/analyze"
	domai "github.com/antmicro/dram-power-analysis/internal/domain/ai"
	power "github.com/antmicro/dram-power-analysis/internal/domain/power"
	"github.com/antmicro/dram-power-analysis/internal/middleware"
)

// reportName guards the file-serving endpoint against path escapes: only
// names the report writer itself can produce are served.
var reportName = regexp.MustCompile(`^power_analysis_(sweep_f\d+_a\d+|vcd_f\d+)\.json$`)

type Router struct {
	reportDir  string
	history    power.History       // nil when no DB is configured
	analyzeSvc *appanalyze.Service // nil when no AI key is configured
}

// NewRouter builds the read-only report API served by the serve command.
func NewRouter(reportDir string, history power.History, analyzeSvc *appanalyze.Service, checkers map[string]middleware.HealthChecker, log *zap.Logger) http.Handler {
	r := &Router{reportDir: reportDir, history: history, analyzeSvc: analyzeSvc}
	mux := chi.NewRouter()

	mux.Use(middleware.Logging(log))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	mux.Get("/health", middleware.HealthHandler(checkers))

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/reports", r.wrap(r.handleListReports))
		rt.Get("/reports/{name}", r.wrap(r.handleGetReport))
		rt.Get("/runs/latest", r.wrap(r.handleLatest))
		rt.Get("/runs/summary", r.wrap(r.handleSummary))
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, sql.ErrNoRows) || errors.Is(err, os.ErrNotExist) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			if errors.Is(err, domai.ErrQuotaExceeded) {
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// GET /v1/reports lists the report file set currently on disk, in name order.
func (r *Router) handleListReports(w http.ResponseWriter, req *http.Request) error {
	entries, err := os.ReadDir(r.reportDir)
	if err != nil {
		return err
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && reportName.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return writeJSON(w, map[string]any{"reports": names})
}

// GET /v1/reports/{name} returns one report document as written.
func (r *Router) handleGetReport(w http.ResponseWriter, req *http.Request) error {
	name := chi.URLParam(req, "name")
	if !reportName.MatchString(name) {
		http.Error(w, "bad report name", http.StatusBadRequest)
		return nil
	}
	data, err := os.ReadFile(filepath.Join(r.reportDir, name))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	return err
}

// GET /v1/runs/latest?limit=N returns the newest corner history rows.
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	if r.history == nil {
		http.Error(w, "history database not configured", http.StatusNotImplemented)
		return nil
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	recs, err := r.history.Latest(req.Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"corners": recs})
}

// GET /v1/runs/summary?days=N returns run/corner counts and worst total power.
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	if r.history == nil {
		http.Error(w, "history database not configured", http.StatusNotImplemented)
		return nil
	}
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	runs, corners, maxTotal, err := r.history.Summary(req.Context(), days)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"runs":        runs,
		"corners":     corners,
		"max_total_w": maxTotal,
	})
}

// POST /v1/analyze {"report": "<name>"} returns an AI summary of one report file.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Report string `json:"report"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return nil
	}
	if !reportName.MatchString(body.Report) {
		http.Error(w, "bad report name", http.StatusBadRequest)
		return nil
	}
	if r.analyzeSvc == nil {
		http.Error(w, "ai summarization not configured", http.StatusNotImplemented)
		return nil
	}
	summary, err := r.analyzeSvc.SummarizeFile(req.Context(), filepath.Join(r.reportDir, body.Report))
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"report": body.Report, "summary": summary})
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}
