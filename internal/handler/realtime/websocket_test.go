package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/vibecheck/backend/internal/middleware"
	"github.com/zhouzirui/vibecheck/backend/internal/service/ai"
	"github.com/zhouzirui/vibecheck/backend/internal/service/device"
	"github.com/zhouzirui/vibecheck/backend/internal/service/messages"
	"github.com/zhouzirui/vibecheck/backend/internal/storage"
)

type stateMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func dial(t *testing.T) (*websocket.Conn, string) {
	t.Helper()
	logger := zap.NewNop()
	store := storage.New(storage.NewMemoryKV(), logger)
	mgr := device.NewManager(device.Deps{
		Store:     store,
		Messages:  messages.NewRepository(store, logger),
		Tracker:   messages.NewTracker(store),
		Annotator: ai.NewAnnotator(ai.OfflineGenerator{}, logger),
		Logger:    logger,
	})

	r := chi.NewRouter()
	r.Use(middleware.Device)
	NewWebSocketHandler(mgr, logger).RegisterRoutes(r)
	srv := httptest.NewServer(r)

	id := device.NewDeviceID()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?device=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		srv.Close()
		mgr.Close()
	})
	return conn, id
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(stateMessage) bool) stateMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg stateMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read err: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebSocketPushesStateAndAppliesDrafts(t *testing.T) {
	conn, id := dial(t)

	first := readUntil(t, conn, func(m stateMessage) bool { return m.Type == "state" })
	var state device.State
	if err := json.Unmarshal(first.Data, &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.DeviceID != id {
		t.Fatalf("unexpected device %q", state.DeviceID)
	}
	if now := time.Now().UnixMilli(); first.Timestamp < now-60_000 || first.Timestamp > now+60_000 {
		t.Fatalf("expected epoch millis timestamp, got %d", first.Timestamp)
	}

	if err := conn.WriteJSON(map[string]any{"type": CmdCompose, "data": map[string]string{"text": "psst"}}); err != nil {
		t.Fatalf("write err: %v", err)
	}
	readUntil(t, conn, func(m stateMessage) bool {
		if m.Type != "state" {
			return false
		}
		var s device.State
		return json.Unmarshal(m.Data, &s) == nil && s.Draft == "psst"
	})
}

func TestWebSocketUnknownCommand(t *testing.T) {
	conn, _ := dial(t)
	if err := conn.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatalf("write err: %v", err)
	}
	msg := readUntil(t, conn, func(m stateMessage) bool { return m.Type == "error" })
	if !strings.Contains(string(msg.Data), "unknown message type") {
		t.Fatalf("unexpected error payload %s", msg.Data)
	}
}
