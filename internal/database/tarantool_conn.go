package database

import (
	"fmt"

	"polling_contract/internal/config"

	"github.com/rs/zerolog"
	"github.com/tarantool/go-tarantool"
)

type TarantoolConnection struct {
	conn *tarantool.Connection
}

func ConnectWithRetry(cfg config.TarantoolConfig, logger zerolog.Logger) (*TarantoolConnection, error) {
	opts := tarantool.Opts{
		User:          cfg.User,
		Pass:          cfg.Password,
		Timeout:       cfg.Timeout,
		Reconnect:     0,
		MaxReconnects: 0,
	}

	var conn *tarantool.Connection
	logger.Debug().Str("address", cfg.Address).Msg("Connecting to Tarantool")

	err := retry(cfg.Retries, logger, func() error {
		var err error
		conn, err = tarantool.Connect(cfg.Address, opts)
		if err != nil {
			return err
		}
		if _, pingErr := conn.Ping(); pingErr != nil {
			conn.Close()
			return fmt.Errorf("ping failed: %w", pingErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tarantool: %w", err)
	}

	logger.Info().Msg("Connected to Tarantool")
	return &TarantoolConnection{conn: conn}, nil
}

func (t *TarantoolConnection) Close() error {
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

func (t *TarantoolConnection) Connection() *tarantool.Connection {
	return t.conn
}
