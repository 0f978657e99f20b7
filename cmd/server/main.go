package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chiara-ciriani/collab-paint/internal/config"
	clog "github.com/chiara-ciriani/collab-paint/internal/log"
	"github.com/chiara-ciriani/collab-paint/internal/ratelimit"
	"github.com/chiara-ciriani/collab-paint/internal/server"
	"github.com/chiara-ciriani/collab-paint/internal/service"
	"github.com/chiara-ciriani/collab-paint/internal/store"
	"github.com/chiara-ciriani/collab-paint/internal/ws"
)

func main() {
	// main 函数负责加载配置、初始化日志、装配各层并启动 Gin 服务。
	cfg := config.Load()
	clog.Init(cfg.Env)

	st := store.New()
	svc := service.NewRoomService(st, cfg.EmptyRoomTTL)
	hub := ws.NewHub()
	limiter := ratelimit.New(ratelimit.DefaultRules())
	disp := ws.NewDispatcher(svc, hub, limiter)

	r := server.SetupRouter(cfg, svc, hub, disp)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("server stopped")
}
