package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/skywatch/internal/config"
	"github.com/yegors/skywatch/internal/monitor"
	"github.com/yegors/skywatch/internal/paths"
	"github.com/yegors/skywatch/internal/rules"
	"github.com/yegors/skywatch/internal/storage/sqlite"
	"github.com/yegors/skywatch/internal/track"
	"github.com/yegors/skywatch/internal/websocket"
	"github.com/yegors/skywatch/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	monitor       *monitor.Monitor
	engine        *rules.Engine
	trackStorage  *sqlite.TrackStorage
	reportStorage *sqlite.ReportStorage
	pathLibrary   *paths.Store
	config        *config.Config
	logger        *logger.Logger
	wsServer      *websocket.Server
}

// NewHandler creates a new API handler
func NewHandler(mon *monitor.Monitor, engine *rules.Engine, trackStorage *sqlite.TrackStorage, reportStorage *sqlite.ReportStorage, pathLibrary *paths.Store, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server) *Handler {
	return &Handler{
		monitor:       mon,
		engine:        engine,
		trackStorage:  trackStorage,
		reportStorage: reportStorage,
		pathLibrary:   pathLibrary,
		config:        cfg,
		logger:        log.Named("api-handler"),
		wsServer:      wsServer,
	}
}

// evaluateRequest is the body of POST /api/v1/evaluate: a complete track
// plus optional flight-plan metadata.
type evaluateRequest struct {
	FlightID string                `json:"flight_id"`
	Points   []track.Point         `json:"points"`
	Metadata *track.FlightMetadata `json:"metadata,omitempty"`
	Persist  bool                  `json:"persist,omitempty"`
}

// EvaluateTrack evaluates a submitted track and returns the report.
func (h *Handler) EvaluateTrack(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FlightID == "" {
		h.respondError(w, http.StatusBadRequest, "flight_id is required")
		return
	}
	if len(req.Points) == 0 {
		h.respondError(w, http.StatusBadRequest, "points are required")
		return
	}

	points, dropped := track.Sanitize(req.Points)
	if dropped > 0 {
		h.logger.Warn("Dropped malformed points from submission",
			logger.String("flight_id", req.FlightID),
			logger.Int("dropped", dropped))
	}
	if len(points) == 0 {
		h.respondError(w, http.StatusBadRequest, "no valid points after sanitization")
		return
	}
	for i := range points {
		points[i].FlightID = req.FlightID
	}

	if req.Persist && h.trackStorage != nil {
		if err := h.trackStorage.InsertPoints(r.Context(), req.FlightID, points); err != nil {
			h.logger.Error("Failed to persist submitted points",
				logger.Error(err), logger.String("flight_id", req.FlightID))
		}
		if req.Metadata != nil {
			if err := h.trackStorage.UpsertMetadata(r.Context(), req.FlightID, req.Metadata); err != nil {
				h.logger.Error("Failed to persist submitted metadata",
					logger.Error(err), logger.String("flight_id", req.FlightID))
			}
		}
	}

	ft := &track.FlightTrack{FlightID: req.FlightID, Points: points}
	report, err := h.monitor.EvaluateSubmitted(r.Context(), ft, req.Metadata)
	if err != nil {
		h.logger.Error("Evaluation failed",
			logger.Error(err), logger.String("flight_id", req.FlightID))
		h.respondError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	h.respondJSON(w, http.StatusOK, report)
}

// ingestRequest is the body of POST /api/v1/flights/{id}/points.
type ingestRequest struct {
	Points   []track.Point         `json:"points"`
	Metadata *track.FlightMetadata `json:"metadata,omitempty"`
}

// IngestPoints stores track points (and optional metadata) for a flight.
func (h *Handler) IngestPoints(w http.ResponseWriter, r *http.Request) {
	flightID := chi.URLParam(r, "id")

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	points, dropped := track.Sanitize(req.Points)
	for i := range points {
		points[i].FlightID = flightID
	}

	if len(points) > 0 {
		if err := h.trackStorage.InsertPoints(r.Context(), flightID, points); err != nil {
			h.logger.Error("Failed to insert points",
				logger.Error(err), logger.String("flight_id", flightID))
			h.respondError(w, http.StatusInternalServerError, "failed to store points")
			return
		}
	}
	if req.Metadata != nil {
		if err := h.trackStorage.UpsertMetadata(r.Context(), flightID, req.Metadata); err != nil {
			h.logger.Error("Failed to upsert metadata",
				logger.Error(err), logger.String("flight_id", flightID))
			h.respondError(w, http.StatusInternalServerError, "failed to store metadata")
			return
		}
	}

	h.respondJSON(w, http.StatusAccepted, map[string]any{
		"flight_id": flightID,
		"stored":    len(points),
		"dropped":   dropped,
	})
}

// GetFlightReport returns the report for a stored flight, evaluating it on
// demand when no cached report exists. Pass ?refresh=true to force
// re-evaluation.
func (h *Handler) GetFlightReport(w http.ResponseWriter, r *http.Request) {
	flightID := chi.URLParam(r, "id")
	refresh := r.URL.Query().Get("refresh") == "true"

	if !refresh {
		report, found, err := h.monitor.CachedReport(r.Context(), flightID)
		if err != nil {
			h.logger.Error("Failed to load stored report",
				logger.Error(err), logger.String("flight_id", flightID))
			h.respondError(w, http.StatusInternalServerError, "failed to load report")
			return
		}
		if found {
			h.respondJSON(w, http.StatusOK, report)
			return
		}
	}

	report, err := h.monitor.EvaluateFlight(r.Context(), flightID)
	if err != nil {
		if errors.Is(err, track.ErrFlightNotFound) {
			h.respondError(w, http.StatusNotFound, "flight not found")
			return
		}
		h.logger.Error("Evaluation failed",
			logger.Error(err), logger.String("flight_id", flightID))
		h.respondError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	h.respondJSON(w, http.StatusOK, report)
}

// ListReports returns recent report summaries. ?limit= caps the count
// (default 50, max 500).
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	summaries, err := h.reportStorage.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list reports", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if summaries == nil {
		summaries = []sqlite.ReportSummary{}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(summaries),
		"reports": summaries,
	})
}

// GetRuleCatalog returns the loaded rule descriptions.
func (h *Handler) GetRuleCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := h.engine.Catalog()
	h.respondJSON(w, http.StatusOK, map[string]any{
		"count": len(catalog),
		"rules": catalog,
	})
}

// GetPathStats returns counts from the current path library snapshot.
func (h *Handler) GetPathStats(w http.ResponseWriter, r *http.Request) {
	snap := h.pathLibrary.Snapshot()

	heatmapCells := 0
	if snap.Heatmap != nil {
		heatmapCells = len(snap.Heatmap.Cells)
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"paths":         len(snap.Paths),
		"tubes":         len(snap.Tubes),
		"turn_zones":    len(snap.TurnZones),
		"sids":          len(snap.SIDs),
		"stars":         len(snap.STARs),
		"heatmap_cells": heatmapCells,
		"generated_at":  time.Now().UTC(),
	})
}

// AddPaths appends learned paths to the library and publishes the change.
func (h *Handler) AddPaths(w http.ResponseWriter, r *http.Request) {
	var newPaths []paths.Path
	if err := json.NewDecoder(r.Body).Decode(&newPaths); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(newPaths) == 0 {
		h.respondError(w, http.StatusBadRequest, "no paths provided")
		return
	}

	h.pathLibrary.AddODPaths(newPaths)
	h.logger.Info("Added paths to library", logger.Int("count", len(newPaths)))

	if h.wsServer != nil {
		for _, p := range newPaths {
			h.wsServer.Broadcast(&websocket.Message{
				Type: websocket.MessageTypePathPromoted,
				Data: map[string]any{
					"path_id":     p.ID,
					"origin":      p.Origin,
					"destination": p.Destination,
				},
			})
		}
	}

	h.respondJSON(w, http.StatusCreated, map[string]any{"added": len(newPaths)})
}

// GetHealth returns a liveness response.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// HandleWebSocket upgrades the connection and attaches it to the hub.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.HandleConnection(w, r)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
