package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/station-climate-etl/internal/domain"
	"github.com/couchcryptid/station-climate-etl/internal/store"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the read API for observations and annual stats, plus
// health, readiness, and metrics endpoints.
type Server struct {
	httpServer      *http.Server
	store           store.Store
	logger          *slog.Logger
	pageSizeDefault int
	pageSizeMax     int
}

// NewServer creates the HTTP server. Pagination defaults and limits come
// from configuration.
func NewServer(addr string, st store.Store, ready ReadinessChecker, logger *slog.Logger, pageSizeDefault, pageSizeMax int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:           st,
		logger:          logger,
		pageSizeDefault: pageSizeDefault,
		pageSizeMax:     pageSizeMax,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/observations", s.handleObservations)
	mux.HandleFunc("GET /v1/stats", s.handleStats)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// observationDTO is the external representation of an observation, with
// units converted and missing values rendered as null.
type observationDTO struct {
	StationID       string   `json:"station_id"`
	Date            string   `json:"date"`
	MaxTempCelsius  *float64 `json:"max_temp_celsius"`
	MinTempCelsius  *float64 `json:"min_temp_celsius"`
	PrecipitationCM *float64 `json:"precipitation_cm"`
}

type statsDTO struct {
	StationID          string   `json:"station_id"`
	Year               int      `json:"year"`
	AvgMaxTemp         *float64 `json:"avg_max_temp"`
	AvgMinTemp         *float64 `json:"avg_min_temp"`
	TotalPrecipitation float64  `json:"total_precipitation"`
}

type pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

type envelope struct {
	Data       any        `json:"data"`
	Pagination pagination `json:"pagination"`
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.ObservationFilter{StationID: q.Get("station_id")}
	var err error
	if filter.Date, err = parseDateParam(q.Get("date")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.From, err = parseDateParam(q.Get("start_date")); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid start_date: %w", err))
		return
	}
	if filter.To, err = parseDateParam(q.Get("end_date")); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid end_date: %w", err))
		return
	}

	page := s.parsePage(q.Get("page"), q.Get("per_page"))

	obs, total, err := s.store.ListObservations(r.Context(), filter, page)
	if err != nil {
		s.logger.Error("list observations failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("error retrieving data"))
		return
	}

	data := make([]observationDTO, 0, len(obs))
	for _, o := range obs {
		data = append(data, observationDTO{
			StationID:       o.StationID,
			Date:            o.Date.Format("2006-01-02"),
			MaxTempCelsius:  o.MaxTempCelsius(),
			MinTempCelsius:  o.MinTempCelsius(),
			PrecipitationCM: o.PrecipitationCM(),
		})
	}

	writeJSON(w, http.StatusOK, envelope{Data: data, Pagination: paginate(page, total)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.StatsFilter{StationID: q.Get("station_id")}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year: %q", v))
			return
		}
		filter.Year = year
	}

	page := s.parsePage(q.Get("page"), q.Get("per_page"))

	stats, total, err := s.store.GetStats(r.Context(), filter, page)
	if err != nil {
		s.logger.Error("list stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("error retrieving data"))
		return
	}

	data := make([]statsDTO, 0, len(stats))
	for _, st := range stats {
		data = append(data, statsDTO{
			StationID:          st.StationID,
			Year:               st.Year,
			AvgMaxTemp:         st.AvgMaxTemp,
			AvgMinTemp:         st.AvgMinTemp,
			TotalPrecipitation: st.TotalPrecipitation,
		})
	}

	writeJSON(w, http.StatusOK, envelope{Data: data, Pagination: paginate(page, total)})
}

// parsePage clamps page parameters to configured bounds.
func (s *Server) parsePage(pageStr, perPageStr string) store.Page {
	p := store.Page{Number: 1, PerPage: s.pageSizeDefault}
	if n, err := strconv.Atoi(pageStr); err == nil && n > 0 {
		p.Number = n
	}
	if n, err := strconv.Atoi(perPageStr); err == nil && n > 0 {
		p.PerPage = min(n, s.pageSizeMax)
	}
	return p
}

// parseDateParam accepts the formats callers commonly send for dates.
func parseDateParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02", domain.DateLayout, "2006/01/02"} {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format: %q", v)
}

func paginate(p store.Page, total int) pagination {
	pages := 0
	if p.PerPage > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return pagination{
		Page:    p.Number,
		PerPage: p.PerPage,
		Total:   total,
		Pages:   pages,
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
