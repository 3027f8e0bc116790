// Package api exposes the read-only HTTP surface over the packet store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Lukasxlama/weather-station-web-app/internal/debugsql"
	"github.com/Lukasxlama/weather-station-web-app/internal/model"
	"github.com/Lukasxlama/weather-station-web-app/internal/store"
)

const (
	queryTimeout   = 2 * time.Second
	requestTimeout = 30 * time.Second

	// bucketSeconds labels the nominal series granularity on /trends. The
	// series itself is returned at native resolution.
	bucketSeconds = 300
)

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	store   *store.Store
	sandbox *debugsql.Executor
	logger  *slog.Logger
}

// New constructs a Server over the given store.
func New(st *store.Store, sandbox *debugsql.Executor, logger *slog.Logger) *Server {
	return &Server{store: st, sandbox: sandbox, logger: logger}
}

// Routes builds the router with the standard middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", s.handleHealth)
	r.Get("/latest", s.handleLatest)
	r.Get("/trends", s.handleTrends)
	r.Post("/debug", s.handleDebug)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	packet, err := s.store.LatestPacket(ctx)
	if err != nil {
		s.logger.Error("failed to load latest packet", "error", err)
		http.Error(w, "failed to load latest packet", http.StatusInternalServerError)
		return
	}

	if packet == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, s.logger, packet)
}

// Point is one raw sample on a trends channel.
type Point struct {
	T string  `json:"t"`
	V float64 `json:"v"`
}

// TrendsResponse carries the per-channel series for a time range.
type TrendsResponse struct {
	BucketSeconds int                `json:"bucket_seconds"`
	From          string             `json:"from"`
	To            string             `json:"to"`
	Series        map[string][]Point `json:"series"`
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	from, err := parseInstant(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid or missing 'from' parameter", http.StatusBadRequest)
		return
	}

	to, err := parseInstant(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid or missing 'to' parameter", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	packets, err := s.store.PacketsInRange(ctx, from, to)
	if err != nil {
		s.logger.Error("failed to load packet range", "error", err)
		http.Error(w, "failed to load packets", http.StatusInternalServerError)
		return
	}

	if len(packets) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	response := TrendsResponse{
		BucketSeconds: bucketSeconds,
		From:          from.Format(time.RFC3339Nano),
		To:            to.Format(time.RFC3339Nano),
		Series: map[string][]Point{
			"temperature_c": {},
			"humidity_pct":  {},
			"pressure_hpa":  {},
			"gas_kohms":     {},
		},
	}

	for _, p := range packets {
		if p.Sensor == nil {
			s.logger.Warn("skipping packet without sensor data", "timestamp", p.Timestamp)
			continue
		}
		appendPoint(response.Series, p)
	}

	writeJSON(w, s.logger, response)
}

func appendPoint(series map[string][]Point, p model.Packet) {
	t := p.Timestamp.Format(time.RFC3339Nano)
	series["temperature_c"] = append(series["temperature_c"], Point{T: t, V: p.Sensor.TemperatureC})
	series["humidity_pct"] = append(series["humidity_pct"], Point{T: t, V: p.Sensor.HumidityPct})
	series["pressure_hpa"] = append(series["pressure_hpa"], Point{T: t, V: p.Sensor.PressureHPa})
	series["gas_kohms"] = append(series["gas_kohms"], Point{T: t, V: p.Sensor.GasKOhms})
}

// handleDebug runs an ad-hoc read query through the sandbox. The endpoint
// is deliberately unauthenticated to match the system it replaces; anyone
// embedding this service on a reachable network should front it with auth.
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SQL string `json:"sql"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	result, err := s.sandbox.Run(ctx, req.SQL)
	switch {
	case err == nil:
	case errors.Is(err, debugsql.ErrForbiddenTable):
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	case errors.Is(err, debugsql.ErrExecution):
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(result.Rows) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, s.logger, result)
}

func parseInstant(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
