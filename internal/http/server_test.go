// README: Route tests for the rider map API (status codes, proximity, websocket snapshot).
package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ridemap/internal/config"
	httptransport "ridemap/internal/http"
	"ridemap/internal/modules/fleet"
	"ridemap/internal/modules/location"
	"ridemap/internal/session"
	"ridemap/internal/types"
)

type grantedProvider struct{}

func (grantedProvider) RequestPermission(context.Context) (bool, error) { return true, nil }

func (grantedProvider) CurrentFix(context.Context) (location.RiderPosition, error) {
	return location.RiderPosition{Coordinate: types.Point{Lat: 14.0, Lng: 121.0}, Timestamp: time.Now()}, nil
}

func (grantedProvider) Watch(ctx context.Context, _ location.WatchConfig, _ func(location.RiderPosition)) (*location.Subscription, error) {
	_, cancel := context.WithCancel(ctx)
	return location.NewSubscription(cancel), nil
}

func buildTestServer(t *testing.T) (http.Handler, *session.Session) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Fleet.TickInterval = time.Hour
	cfg.Fleet.Jitter = 0
	cfg.Pulse.FrameInterval = 0

	s, err := session.New(session.Deps{
		Config:   cfg,
		Provider: grantedProvider{},
		Seeds: []fleet.Seed{
			{ID: "1", Latitude: 14.0001, Longitude: 121.0, Driver: "John Doe", Rating: 4.8, ETA: "5 mins", Price: 50},
			{ID: "2", Latitude: 14.02, Longitude: 121.0, Driver: "Jane Smith", Rating: 4.9, ETA: "3 mins", Price: 45},
		},
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(s.Close)
	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for s.Rider().Status != location.StatusReady {
		if time.Now().After(deadline) {
			t.Fatal("rider never became ready")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return httptransport.NewServer(httptransport.ServerDeps{Session: s}).Routes(), s
}

func doRequest(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
}

func TestRouteStatusCodes(t *testing.T) {
	h, _ := buildTestServer(t)
	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/fleet", http.StatusOK},
		{http.MethodGet, "/api/vehicles/1", http.StatusOK},
		{http.MethodGet, "/api/vehicles/99", http.StatusNotFound},
		{http.MethodGet, "/api/vehicles/bad$id", http.StatusBadRequest},
		{http.MethodPost, "/api/vehicles/99/tap", http.StatusNotFound},
		{http.MethodPost, "/api/vehicles/2/tap", http.StatusOK},
		{http.MethodDelete, "/api/selection", http.StatusOK},
		{http.MethodGet, "/api/selection", http.StatusOK},
		{http.MethodGet, "/api/rider", http.StatusOK},
		{http.MethodGet, "/api/panel", http.StatusOK},
		{http.MethodGet, "/api/proximity", http.StatusOK},
		{http.MethodGet, "/api/fleet/nearby", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/fleet/nearby?radius_km=-1", http.StatusBadRequest},
	}
	for _, tc := range cases {
		if w := doRequest(h, tc.method, tc.path); w.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, w.Code)
		}
	}
}

func TestTapThenProximity(t *testing.T) {
	h, _ := buildTestServer(t)

	if w := doRequest(h, http.MethodPost, "/api/vehicles/1/tap"); w.Code != http.StatusOK {
		t.Fatalf("tap: expected 200, got %d", w.Code)
	}
	var prox map[string]string
	decode(t, doRequest(h, http.MethodGet, "/api/proximity"), &prox)
	if prox["label"] != "11m away" {
		t.Fatalf("proximity label = %q, want 11m away", prox["label"])
	}

	var panel session.PanelView
	decode(t, doRequest(h, http.MethodGet, "/api/panel"), &panel)
	if panel.Kind != session.PanelDriver || panel.Driver.PriceLabel != "₱50" {
		t.Fatalf("panel = %+v", panel)
	}

	// A tap on an unknown marker keeps the current selection.
	doRequest(h, http.MethodPost, "/api/vehicles/404/tap")
	var sel struct {
		Selected  bool   `json:"selected"`
		VehicleID string `json:"vehicleId"`
	}
	decode(t, doRequest(h, http.MethodGet, "/api/selection"), &sel)
	if !sel.Selected || sel.VehicleID != "1" {
		t.Fatalf("selection = %+v, want vehicle 1", sel)
	}

	doRequest(h, http.MethodDelete, "/api/selection")
	decode(t, doRequest(h, http.MethodGet, "/api/proximity"), &prox)
	if prox["label"] != "" {
		t.Fatalf("proximity after clear = %q, want empty", prox["label"])
	}
}

func TestVehicleDetails(t *testing.T) {
	h, _ := buildTestServer(t)
	var v struct {
		ID         string `json:"id"`
		DriverName string `json:"driverName"`
		PriceLabel string `json:"priceLabel"`
	}
	decode(t, doRequest(h, http.MethodGet, "/api/vehicles/2"), &v)
	if v.ID != "2" || v.DriverName != "Jane Smith" || v.PriceLabel != "₱45" {
		t.Fatalf("vehicle = %+v", v)
	}
}

func TestWebSocketInitialSnapshot(t *testing.T) {
	h, _ := buildTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first struct {
		Type string         `json:"type"`
		Data []fleet.Marker `json:"data"`
	}
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Type != string(session.EventFleet) || len(first.Data) != 2 {
		t.Fatalf("first message = %+v, want fleet snapshot of 2", first)
	}
	if first.Data[0].Glyph != fleet.MarkerGlyph {
		t.Errorf("glyph = %q", first.Data[0].Glyph)
	}
}
