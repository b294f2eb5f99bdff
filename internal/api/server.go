package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/samber/lo"

	"CycleSentinel/internal/backtest"
	"CycleSentinel/internal/calculator"
	"CycleSentinel/internal/collector"
	"CycleSentinel/internal/config"
	"CycleSentinel/internal/metrics"
	"CycleSentinel/internal/model"
	"CycleSentinel/internal/recorder"
)

// Refresher runs one refresh cycle unless one is already in flight. The
// API reports busy instead of queueing a second cycle.
type Refresher interface {
	TryRunRefresh(ctx context.Context) ([]model.RefreshResult, bool)
}

// Backtester simulates the accumulation strategy over a date range.
type Backtester interface {
	Run(ctx context.Context, params model.BacktestParams) (*model.BacktestResult, error)
}

// Server is the read-mostly HTTP surface over the recorded snapshots,
// plus the manual refresh and backtest triggers.
type Server struct {
	httpServer *http.Server
	recorder   recorder.Recorder
	refresher  Refresher
	backtester Backtester
	metrics    *metrics.Metrics
	cfg        *config.Config
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(cfg *config.Config, rec recorder.Recorder, refresher Refresher, backtester Backtester, m *metrics.Metrics) *Server {
	s := &Server{
		recorder:   rec,
		refresher:  refresher,
		backtester: backtester,
		metrics:    m,
		cfg:        cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/indicators", s.handleIndicators)
	mux.HandleFunc("GET /api/v1/indicators/{name}", s.handleIndicator)
	mux.HandleFunc("GET /api/v1/indicators/{name}/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/cycle", s.handleCycle)
	mux.HandleFunc("POST /api/v1/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/v1/backtest", s.handleBacktest)

	s.httpServer = &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     withCORS(mux),
		ReadTimeout: 15 * time.Second,
		// Refresh and backtest run synchronously inside the request.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the configured routes, primarily for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start serves until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	log.Printf("[INFO] http api listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type indicatorEntry struct {
	Date     time.Time       `json:"date"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// handleIndicators returns every recorded latest snapshot plus the signal
// summary. Indicators that have never been recorded are simply absent.
func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	out := struct {
		Indicators map[string]indicatorEntry `json:"indicators"`
		Summary    json.RawMessage           `json:"summary,omitempty"`
	}{Indicators: make(map[string]indicatorEntry, len(model.IndicatorKeys))}

	for _, name := range model.IndicatorKeys {
		date, payload, err := s.recorder.GetLatest(name)
		if errors.Is(err, recorder.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Printf("[ERROR] read %s snapshot: %v", name, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		out.Indicators[name] = indicatorEntry{Date: date, Snapshot: payload}
	}
	if _, payload, err := s.recorder.GetLatest(model.KeySummary); err == nil {
		out.Summary = payload
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleIndicator(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !knownIndicator(name) {
		writeError(w, http.StatusNotFound, "unknown indicator "+name)
		return
	}
	_, payload, err := s.recorder.GetLatest(name)
	if errors.Is(err, recorder.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no snapshot recorded for "+name)
		return
	}
	if err != nil {
		log.Printf("[ERROR] read %s snapshot: %v", name, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !knownIndicator(name) {
		writeError(w, http.StatusNotFound, "unknown indicator "+name)
		return
	}
	var since time.Time
	if q := r.URL.Query().Get("since"); q != "" {
		t, err := time.Parse("2006-01-02", q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since date, expected YYYY-MM-DD")
			return
		}
		since = t
	}

	points, err := s.recorder.GetHistory(name, since)
	if err != nil {
		log.Printf("[ERROR] read %s history: %v", name, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if points == nil {
		points = []model.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, struct {
		Indicator string               `json:"indicator"`
		Points    []model.HistoryPoint `json:"points"`
	}{name, points})
}

// handleCycle computes the halving position live so it stays correct
// between refreshes, and attaches the persisted comparison curves when a
// cycle snapshot exists.
func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	halvings, err := s.cfg.HalvingTimes()
	if err != nil {
		log.Printf("[ERROR] halving table: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	pos, err := calculator.CyclePositionAt(time.Now().UTC(), halvings, s.cfg.Halving.ProjectedTopDays)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := struct {
		Position model.CyclePosition `json:"position"`
		Curves   []model.CycleCurve  `json:"curves,omitempty"`
	}{Position: pos}
	if _, payload, err := s.recorder.GetLatest(model.KeyHalving); err == nil {
		if snap, err := model.DecodeSnapshot[model.CycleSnapshot](payload); err == nil {
			out.Curves = snap.Curves
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	results, ok := s.refresher.TryRunRefresh(r.Context())
	if !ok {
		writeError(w, http.StatusConflict, "a refresh cycle is already running")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Results []model.RefreshResult `json:"results"`
	}{results})
}

// backtestRequest is the wire form of the simulation parameters. Strict
// flags are pointers so an omitted flag takes the strict default instead
// of false.
type backtestRequest struct {
	Start               string  `json:"start"`
	End                 string  `json:"end"`
	StrictEntry         *bool   `json:"strict_entry"`
	StrictExit          *bool   `json:"strict_exit"`
	LookbackWindow      int     `json:"lookback_window"`
	UnderperfPercentile float64 `json:"underperf_percentile"`
}

func (req backtestRequest) toParams() (model.BacktestParams, error) {
	params := model.BacktestParams{
		StrictEntry:         req.StrictEntry == nil || *req.StrictEntry,
		StrictExit:          req.StrictExit == nil || *req.StrictExit,
		LookbackWindow:      req.LookbackWindow,
		UnderperfPercentile: req.UnderperfPercentile,
	}
	if req.Start != "" {
		t, err := time.Parse("2006-01-02", req.Start)
		if err != nil {
			return params, errors.New("invalid start date, expected YYYY-MM-DD")
		}
		params.Start = t
	}
	if req.End != "" {
		t, err := time.Parse("2006-01-02", req.End)
		if err != nil {
			return params, errors.New("invalid end date, expected YYYY-MM-DD")
		}
		params.End = t
	}
	return params, nil
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	params, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.backtester.Run(r.Context(), params)
	s.metrics.BacktestRun(err == nil)
	if err != nil {
		var alignErr *calculator.AlignmentError
		switch {
		case errors.Is(err, backtest.ErrBadParams):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &alignErr),
			errors.Is(err, collector.ErrDataUnavailable),
			errors.Is(err, calculator.ErrInsufficientHistory):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			log.Printf("[ERROR] backtest: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func knownIndicator(name string) bool {
	return name == model.KeySummary || lo.Contains(model.IndicatorKeys, name)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[ERROR] marshal response: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, data)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Printf("[WARN] write response body: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
