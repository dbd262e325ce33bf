package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yegors/skywatch/internal/config"
	"github.com/yegors/skywatch/internal/monitor"
	"github.com/yegors/skywatch/internal/paths"
	"github.com/yegors/skywatch/internal/rules"
	"github.com/yegors/skywatch/internal/storage/sqlite"
	"github.com/yegors/skywatch/internal/websocket"
	"github.com/yegors/skywatch/pkg/logger"
)

// Router wires the HTTP API.
type Router struct {
	handler *Handler
	config  *config.Config
	logger  *logger.Logger
}

// NewRouter creates the API router.
func NewRouter(
	mon *monitor.Monitor,
	engine *rules.Engine,
	trackStorage *sqlite.TrackStorage,
	reportStorage *sqlite.ReportStorage,
	pathLibrary *paths.Store,
	cfg *config.Config,
	log *logger.Logger,
	wsServer *websocket.Server,
) *Router {
	return &Router{
		handler: NewHandler(mon, engine, trackStorage, reportStorage, pathLibrary, cfg, log, wsServer),
		config:  cfg,
		logger:  log.Named("router"),
	}
}

// Routes returns the HTTP handler with all routes and middleware attached.
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(rt.corsMiddleware)

	r.Get("/api/v1/health", rt.handler.GetHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluate", rt.handler.EvaluateTrack)

		r.Route("/flights/{id}", func(r chi.Router) {
			r.Post("/points", rt.handler.IngestPoints)
			r.Get("/report", rt.handler.GetFlightReport)
		})

		r.Get("/reports", rt.handler.ListReports)
		r.Get("/rules", rt.handler.GetRuleCatalog)
		r.Get("/paths/stats", rt.handler.GetPathStats)
		r.Post("/paths", rt.handler.AddPaths)
	})

	r.Get("/ws", rt.handler.HandleWebSocket)

	return r
}

// corsMiddleware applies the configured allowed origins.
func (rt *Router) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && rt.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rt *Router) originAllowed(origin string) bool {
	for _, allowed := range rt.config.Server.CORSAllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
