// Package events publishes the action descriptors of committed calls.
package events

import (
	"context"
	"time"

	"polling_contract/internal/models"
)

type Event struct {
	CallID     string             `json:"call_id"`
	Entrypoint string             `json:"entrypoint"`
	Sender     string             `json:"sender"`
	Attributes []models.Attribute `json:"attributes"`
	Timestamp  time.Time          `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
