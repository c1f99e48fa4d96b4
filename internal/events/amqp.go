package events

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"polling_contract/internal/models"
)

type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher sends events to a queue through the default exchange.
// amqp channels are not safe for concurrent publishing, hence the mutex.
type AMQPPublisher struct {
	channel      AMQPChannel
	queue        string
	channelMutex sync.Mutex
}

func NewAMQPPublisher(ch AMQPChannel, queue string) *AMQPPublisher {
	return &AMQPPublisher{
		channel: ch,
		queue:   queue,
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := models.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.channelMutex.Lock()
	defer p.channelMutex.Unlock()

	err = p.channel.PublishWithContext(
		ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.CallID,
			Timestamp:    event.Timestamp,
			Type:         event.Entrypoint,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
