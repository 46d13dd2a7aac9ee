package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/vibecheck/backend/internal/handler/app"
	"github.com/zhouzirui/vibecheck/backend/internal/handler/realtime"
	"github.com/zhouzirui/vibecheck/backend/internal/handler/stream"
	"github.com/zhouzirui/vibecheck/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/vibecheck/backend/internal/middleware"
	"github.com/zhouzirui/vibecheck/backend/internal/service/device"
	"github.com/zhouzirui/vibecheck/backend/pkg/utils"
)

// heartbeatInterval keeps idle SSE connections open through proxies.
const heartbeatInterval = 15 * time.Second

// NewRouter wires HTTP routes to core services.
func NewRouter(devices *device.Manager, limiter *middlewarePkg.SendLimiter, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewarePkg.Device)

		app.New(devices, limiter).RegisterRoutes(api)
		stream.New(devices, heartbeatInterval, logger).RegisterRoutes(api)
		realtime.NewWebSocketHandler(devices, logger).RegisterRoutes(api)
	})

	return r
}
