package cli

import (
	"context"

	"matchlink/backend/internal/chatlink"
	"matchlink/backend/internal/config"
	"matchlink/backend/internal/ledger"
	"matchlink/backend/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// deps is what a command needs from the environment. Redis is only opened
// on request.
type deps struct {
	cfg     config.Config
	storage *storage.Service
	ledger  *ledger.RPCClient
	service *chatlink.Service
}

func openDeps(ctx context.Context, opts *RootOptions, withRedis bool) (*deps, error) {
	if opts.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := storage.OpenPostgres(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	s := storage.NewStorageService(db, nil)
	if withRedis {
		rdb, err := storage.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		s.Redis = rdb
	}

	rpc := ledger.NewRPCClient(cfg.RPCEndpoint, cfg.RPCTimeout)
	log.Debug().Str("rpc", cfg.RPCEndpoint).Str("package", cfg.Contracts.PackageID).Msg("dependencies ready")
	return &deps{
		cfg:     cfg,
		storage: s,
		ledger:  rpc,
		service: chatlink.NewService(rpc, s, cfg.Contracts),
	}, nil
}

func (d *deps) Close() {
	if d.storage.Redis != nil {
		d.storage.Redis.Close()
	}
	if sqlDB, err := d.storage.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
