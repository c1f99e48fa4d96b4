package database

import (
	"fmt"

	"polling_contract/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type AMQPConnection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// ConnectAMQP dials the broker and declares the durable event queue.
func ConnectAMQP(cfg config.AMQPConfig, logger zerolog.Logger) (*AMQPConnection, error) {
	var conn *amqp.Connection
	err := retry(cfg.Retries, logger, func() error {
		var err error
		conn, err = amqp.Dial(cfg.URL)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}

	logger.Info().Str("queue", cfg.Queue).Msg("Connected to RabbitMQ")
	return &AMQPConnection{conn: conn, channel: ch}, nil
}

func (a *AMQPConnection) Channel() *amqp.Channel {
	return a.channel
}

func (a *AMQPConnection) Close() error {
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
