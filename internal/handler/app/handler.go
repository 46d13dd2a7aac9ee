package app

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/vibecheck/backend/internal/middleware"
	"github.com/zhouzirui/vibecheck/backend/internal/service/device"
	"github.com/zhouzirui/vibecheck/backend/pkg/utils"
)

// Handler 把设备控制器的操作暴露为 HTTP 接口。
type Handler struct {
	devices *device.Manager
	limiter *middleware.SendLimiter
}

// New 创建应用处理器。limiter 可以为 nil。
func New(devices *device.Manager, limiter *middleware.SendLimiter) *Handler {
	return &Handler{devices: devices, limiter: limiter}
}

// actionResponse 是所有操作的响应体。
type actionResponse struct {
	Applied bool         `json:"applied"`
	State   device.State `json:"state"`
}

// RegisterRoutes 注册应用相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.handleState)
	r.Post("/navigate", h.handleNavigate)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
	r.Get("/inbox", h.handleInbox)
	r.Post("/search", h.handleSearch)
	r.With(h.limiter.Middleware).Post("/send", h.handleSend)
	r.Post("/reply", h.handleReply)
	r.Post("/messages/{id}/open", h.handleOpen)
	r.Post("/messages/{id}/chat", h.handleOpenChat)
	r.Delete("/messages/{id}", h.handleDelete)
	r.Post("/detail/tab", h.handleSelectTab)
	r.Post("/detail/close", h.handleCloseDetail)
	r.Post("/share/modal", h.handleShareModal)
	r.Post("/share/{platform}", h.handleShare)
}

// controller 取出当前设备的控制器，失败时已写出响应。
func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*device.Controller, bool) {
	c, err := h.devices.Get(middleware.DeviceID(r.Context()))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, device.ErrDeviceRequired) || errors.Is(err, device.ErrInvalidDevice) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return nil, false
	}
	return c, true
}

func respondAction(w http.ResponseWriter, state device.State, applied bool) {
	utils.RespondJSON(w, http.StatusOK, actionResponse{Applied: applied, State: state})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	respondAction(w, c.Snapshot(), true)
}

func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Fragment string `json:"fragment"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	respondAction(w, c.Navigate(r.Context(), payload.Fragment), true)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	state, applied := c.Register(r.Context(), payload.Name)
	respondAction(w, state, applied)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	respondAction(w, c.Logout(r.Context()), true)
}

// handleInbox 是 navigate("#/inbox") 加可选搜索的快捷方式。
func (h *Handler) handleInbox(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if q, present := r.URL.Query()["q"]; present && len(q) > 0 {
		c.Search(q[0])
	}
	respondAction(w, c.Navigate(r.Context(), "#/inbox"), true)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query string `json:"query"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	respondAction(w, c.Search(payload.Query), true)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content *string `json:"content"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if payload.Content != nil {
		c.Compose(*payload.Content)
	}
	state, applied := c.Send(r.Context())
	respondAction(w, state, applied)
}

func (h *Handler) handleReply(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content *string `json:"content"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if payload.Content != nil {
		c.ComposeReply(*payload.Content)
	}
	state, applied := c.Reply(r.Context())
	respondAction(w, state, applied)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	state, applied := c.Open(r.Context(), chi.URLParam(r, "id"))
	respondAction(w, state, applied)
}

func (h *Handler) handleOpenChat(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	state, applied := c.OpenChat(r.Context(), chi.URLParam(r, "id"))
	respondAction(w, state, applied)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	state, applied := c.Delete(r.Context(), chi.URLParam(r, "id"))
	respondAction(w, state, applied)
}

func (h *Handler) handleSelectTab(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Tab device.DetailTab `json:"tab"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	state, applied := c.SelectTab(payload.Tab)
	respondAction(w, state, applied)
}

func (h *Handler) handleCloseDetail(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	respondAction(w, c.CloseDetail(), true)
}

func (h *Handler) handleShareModal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Open bool `json:"open"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	respondAction(w, c.ToggleShare(payload.Open), true)
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	state, _ := c.Share(chi.URLParam(r, "platform"))
	respondAction(w, state, true)
}
