package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/vibecheck/backend/internal/middleware"
	"github.com/zhouzirui/vibecheck/backend/internal/navigation"
	"github.com/zhouzirui/vibecheck/backend/internal/service/ai"
	"github.com/zhouzirui/vibecheck/backend/internal/service/device"
	"github.com/zhouzirui/vibecheck/backend/internal/service/messages"
	"github.com/zhouzirui/vibecheck/backend/internal/storage"
)

func setup(t *testing.T) (*httptest.Server, *device.Manager) {
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
	New(mgr, time.Hour, logger).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		mgr.Close()
	})
	return srv, mgr
}

// nextState reads lines until the next state event and decodes it.
func nextState(t *testing.T, reader *bufio.Reader) device.State {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var state device.State
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &state); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		return state
	}
}

func TestStreamPushesSnapshots(t *testing.T) {
	srv, mgr := setup(t)
	id := device.NewDeviceID()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/state/stream?device="+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request err: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	first := nextState(t, reader)
	if first.DeviceID != id || first.Screen != navigation.Landing {
		t.Fatalf("unexpected initial state %+v", first)
	}

	c, err := mgr.Get(id)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	c.Navigate(context.Background(), "#/u/erin")

	for {
		state := nextState(t, reader)
		if state.Screen == navigation.SenderView {
			if state.Recipient != "erin" {
				t.Fatalf("unexpected recipient %q", state.Recipient)
			}
			return
		}
	}
}

func TestStreamRejectsInvalidDevice(t *testing.T) {
	srv, _ := setup(t)
	resp, err := http.Get(srv.URL + "/state/stream?device=nope")
	if err != nil {
		t.Fatalf("request err: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
