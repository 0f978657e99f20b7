package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/chiara-ciriani/collab-paint/internal/config"
	"github.com/chiara-ciriani/collab-paint/internal/metrics"
	"github.com/chiara-ciriani/collab-paint/internal/mw"
	"github.com/chiara-ciriani/collab-paint/internal/service"
	"github.com/chiara-ciriani/collab-paint/internal/ws"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
func SetupRouter(cfg config.Config, svc *service.RoomService, hub *ws.Hub, disp *ws.Dispatcher) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/readyz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ready"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	// REST 面的限速按 IP 走令牌桶，与 WebSocket 事件限速互不相干。
	api.Use(mw.RateLimit(rate.Limit(cfg.HTTPRate), cfg.HTTPBurst))

	api.GET("/rooms/:id", func(c *gin.Context) {
		snap, ok := svc.Snapshot(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	api.GET("/stats", func(c *gin.Context) {
		rooms, users, strokes := svc.Stats()
		hubRooms, conns := hub.Counts()
		c.JSON(http.StatusOK, gin.H{
			"rooms":        rooms,
			"users":        users,
			"strokes":      strokes,
			"active_rooms": hubRooms,
			"connections":  conns,
			"timestamp":    time.Now().UnixMilli(),
		})
	})

	r.GET("/ws", ws.Serve(disp, cfg))

	return r
}
