package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/vibecheck/backend/internal/service/device"
)

// DeviceHeader carries the browser's device id in both directions.
const DeviceHeader = "X-Device-ID"

type deviceKey struct{}

// Device resolves the caller's device id from the header (or the "device"
// query parameter, for EventSource and websocket clients), minting one when
// absent, and echoes it back.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(DeviceHeader))
		if id == "" {
			id = strings.TrimSpace(r.URL.Query().Get("device"))
		}
		if id == "" {
			id = device.NewDeviceID()
		}
		w.Header().Set(DeviceHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), deviceKey{}, id)))
	})
}

// DeviceID returns the id stored by Device.
func DeviceID(ctx context.Context) string {
	id, _ := ctx.Value(deviceKey{}).(string)
	return id
}
