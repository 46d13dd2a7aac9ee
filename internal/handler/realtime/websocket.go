package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/vibecheck/backend/internal/middleware"
	"github.com/zhouzirui/vibecheck/backend/internal/service/device"
	"github.com/zhouzirui/vibecheck/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Inbound command types. They cover the keystroke-level edits that would be
// chatty over REST.
const (
	CmdCompose      = "compose"
	CmdComposeReply = "composeReply"
	CmdSearch       = "search"
	CmdNavigate     = "navigate"
)

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type textPayload struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// WebSocketHandler 通过 WebSocket 推送设备状态并接收输入事件
type WebSocketHandler struct {
	devices  *device.Manager
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(devices *device.Manager, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		devices: devices,
		log:     logger.Named("websocket"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	c, err := h.devices.Get(middleware.DeviceID(r.Context()))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.log.With(zap.String("device", c.ID()))
	log.Debug("new connection")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	// gorilla connections allow one concurrent writer; the write loop owns
	// every write and the read loop reports errors through outbox.
	outbox := make(chan outgoingMessage, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(ctx, conn, updates, outbox, log)
		// unblock the read loop when the writer gives up first
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("read error", zap.Error(err))
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if errMsg := h.apply(r.Context(), c, msg); errMsg != "" {
			select {
			case outbox <- outgoingMessage{Type: "error", Data: map[string]string{"message": errMsg}, Timestamp: time.Now().UnixMilli()}:
			default:
			}
		}
	}

	cancel()
	<-done
}

// apply runs one inbound command and returns an error text for the client,
// or "" on success. The resulting state reaches the client through the
// subscription.
func (h *WebSocketHandler) apply(ctx context.Context, c *device.Controller, msg inboundMessage) string {
	var payload textPayload
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return "invalid data"
		}
	}

	switch msg.Type {
	case CmdCompose:
		c.Compose(payload.Text)
	case CmdComposeReply:
		c.ComposeReply(payload.Text)
	case CmdSearch:
		c.Search(payload.Text)
	case CmdNavigate:
		c.Navigate(ctx, payload.Text)
	default:
		return "unknown message type"
	}
	return ""
}

func (h *WebSocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, updates <-chan device.State, outbox <-chan outgoingMessage, log *zap.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	write := func(msg outgoingMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug("write failed", zap.Error(err))
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "device closed"), time.Now().Add(writeTimeout))
				return
			}
			if !write(outgoingMessage{Type: "state", Data: state, Timestamp: time.Now().UnixMilli()}) {
				return
			}
		case msg := <-outbox:
			if !write(msg) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
