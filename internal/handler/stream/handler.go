package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/vibecheck/backend/internal/middleware"
	"github.com/zhouzirui/vibecheck/backend/internal/service/device"
	"github.com/zhouzirui/vibecheck/backend/pkg/utils"
)

// EventState is the SSE event name carrying a device.State snapshot.
const EventState = "state"

// Handler pushes device state snapshots over Server-Sent Events.
type Handler struct {
	devices   *device.Manager
	heartbeat time.Duration
	log       *zap.Logger
}

// New creates a new stream handler. heartbeat <= 0 disables keep-alive
// comments.
func New(devices *device.Manager, heartbeat time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{devices: devices, heartbeat: heartbeat, log: logger.Named("sse")}
}

// RegisterRoutes 注册 SSE 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/state/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	c, err := h.devices.Get(middleware.DeviceID(r.Context()))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updates, cancel := c.Subscribe()
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var tick <-chan time.Time
	if h.heartbeat > 0 {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	ctx := r.Context()
	h.log.Debug("opening state stream", zap.String("device", c.ID()))
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("closing state stream", zap.String("device", c.ID()))
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, EventState, state); err != nil {
				h.log.Warn("failed to write state event", zap.Error(err))
				return
			}
		case <-tick:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
