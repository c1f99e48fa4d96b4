package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polling_contract/internal/address"
	"polling_contract/internal/api"
	"polling_contract/internal/bot"
	"polling_contract/internal/config"
	"polling_contract/internal/database"
	"polling_contract/internal/events"
	"polling_contract/internal/handler"
	"polling_contract/internal/host"
	"polling_contract/internal/kvstore"
	"polling_contract/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC822,
		},
	).With().Timestamp().Logger()

	if err := config.LoadEnvFile(); err != nil {
		logger.Err(err).Msg("Could not read .env")
		return err
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Err(err).Msg("Invalid configuration")
		return err
	}
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger = logger.Level(level)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Err(err).Str("backend", cfg.StorageBackend).Msg("Could not open storage")
		return err
	}
	defer closeStore()

	publisher, closePublisher, err := openPublisher(config.AMQPConfigLoad(), logger)
	if err != nil {
		logger.Err(err).Msg("Could not connect to the event broker")
		return err
	}
	defer closePublisher()

	var validator address.Validator = address.MockValidator{}
	if cfg.AddressPrefix != "" {
		validator = address.NewBech32Validator(cfg.AddressPrefix)
	}

	contractHost := host.New(store, validator, publisher, logger)
	if err := ensureInstantiated(ctx, contractHost, cfg, logger); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.HTTPAddr != "" {
		app := &api.App{Host: contractHost, Logger: logger}
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           app.Router(),
			ReadHeaderTimeout: cfg.HTTPTimeout,
		}
		g.Go(func() error {
			logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.MattermostURL != "" {
		pollBot := bot.NewBot(cfg, logger, handler.NewPollCommandHandler(contractHost))
		g.Go(func() error {
			if err := pollBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Err(err).Msg("Shutting down after failure")
		return err
	}
	logger.Info().Msg("Shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (kvstore.Store, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		redisCfg := config.RedisConfigLoad()
		client, err := database.ConnectRedis(ctx, redisCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return kvstore.NewRedisStore(client, redisCfg.Prefix), func() { client.Close() }, nil

	case config.BackendTarantool:
		tarantoolCfg := config.TarantoolConfigLoad()
		if err := tarantoolCfg.Validate(); err != nil {
			return nil, nil, err
		}
		conn, err := database.ConnectWithRetry(tarantoolCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return kvstore.NewTarantoolStore(conn.Connection(), tarantoolCfg.Database), func() { conn.Close() }, nil

	default:
		logger.Warn().Msg("Using in-memory storage, state is lost on exit")
		return kvstore.NewMemoryStore(), func() {}, nil
	}
}

func openPublisher(cfg config.AMQPConfig, logger zerolog.Logger) (events.Publisher, func(), error) {
	if cfg.URL == "" {
		return events.NopPublisher{}, func() {}, nil
	}

	conn, err := database.ConnectAMQP(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return events.NewAMQPPublisher(conn.Channel(), cfg.Queue), func() { conn.Close() }, nil
}

// ensureInstantiated plays the deployment step on a fresh store.
func ensureInstantiated(ctx context.Context, h *host.Host, cfg config.Config, logger zerolog.Logger) error {
	ok, err := h.Instantiated(ctx)
	if err != nil {
		logger.Err(err).Msg("Could not read contract state")
		return err
	}
	if ok {
		info, err := h.ContractInfo(ctx)
		if err != nil {
			return err
		}
		logger.Info().Str("contract", info.Contract).Str("version", info.Version).Msg("Contract already instantiated")
		return nil
	}

	if cfg.AdminAddress == "" {
		logger.Warn().Msg("ADMIN_ADDRESS not set, contract left uninstantiated")
		return nil
	}

	if _, err := h.Instantiate(ctx, cfg.AdminAddress, models.InstantiateMsg{AdminAddress: cfg.AdminAddress}); err != nil {
		logger.Err(err).Msg("Instantiation failed")
		return err
	}
	return nil
}
