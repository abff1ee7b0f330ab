package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchlink/backend/internal/api/handler"
	"matchlink/backend/internal/chathub"
	"matchlink/backend/internal/chatlink"
	"matchlink/backend/internal/config"
	"matchlink/backend/internal/ledger"
	"matchlink/backend/internal/localization"
	"matchlink/backend/internal/logging"
	"matchlink/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()
	log.Info().Msg("starting matchlink backend")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Postgres, Redis, migrations
	db, err := storage.OpenPostgres(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	rdb, err := storage.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer rdb.Close()

	s := storage.NewStorageService(db, rdb)
	if err := s.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	log.Info().Msg("database and redis connections established, migrations complete")

	// 2. Ledger client and workflow
	rpc := ledger.NewRPCClient(cfg.RPCEndpoint, cfg.RPCTimeout)
	linker := chatlink.NewService(rpc, s, cfg.Contracts)

	// 3. Realtime hub
	hub := chathub.NewManagerService(s)
	go func() {
		if err := hub.Run(ctx); err != nil {
			log.Error().Err(err).Msg("chat ready hub stopped")
		}
	}()

	// 4. HTTP
	loc, err := localization.NewLocalizer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load translations")
	}
	h := handler.NewHandler(linker, hub, handler.NewSessions(cfg.JWTSecret), loc)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(h, cfg.CorsOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("rpc", cfg.RPCEndpoint).Msg("http server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("shutdown complete")
}
