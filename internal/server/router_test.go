package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chiara-ciriani/collab-paint/internal/config"
	"github.com/chiara-ciriani/collab-paint/internal/models"
	"github.com/chiara-ciriani/collab-paint/internal/ratelimit"
	"github.com/chiara-ciriani/collab-paint/internal/service"
	"github.com/chiara-ciriani/collab-paint/internal/store"
	"github.com/chiara-ciriani/collab-paint/internal/ws"
)

func newTestRouter() (*gin.Engine, *service.RoomService) {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{Port: "0", Env: "dev", MaxPayloadBytes: 100 * 1024, EmptyRoomTTL: 5 * time.Minute, SendBuffer: 16, HTTPRate: 100, HTTPBurst: 200}
	svc := service.NewRoomService(store.New(), cfg.EmptyRoomTTL)
	hub := ws.NewHub()
	disp := ws.NewDispatcher(svc, hub, ratelimit.New(ratelimit.DefaultRules()))
	return SetupRouter(cfg, svc, hub, disp), svc
}

func TestHealthz(t *testing.T) {
	engine, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	engine, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGetRoom(t *testing.T) {
	engine, svc := newTestRouter()
	svc.JoinRoom("room-1", models.UserInRoom{ConnID: "c1", UserID: "alice"})
	svc.StartStroke("room-1", "s1", "alice", "#FF0000", 5, models.Point{X: 0.1, Y: 0.1})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/room-1", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snap models.RoomSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if snap.ID != "room-1" || len(snap.Strokes) != 1 || len(snap.Users) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestGetRoom_NotFound(t *testing.T) {
	engine, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/no-such-room", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetStats(t *testing.T) {
	engine, svc := newTestRouter()
	svc.JoinRoom("room-1", models.UserInRoom{ConnID: "c1", UserID: "alice"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Rooms int `json:"rooms"`
		Users int `json:"users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Rooms != 1 || body.Users != 1 {
		t.Errorf("stats = %+v, want 1 room, 1 user", body)
	}
}
