// Package mq provides a broker-agnostic publish/subscribe layer used to hand
// password-reset email jobs off to the delivery worker.
package mq

import (
	"context"
	"fmt"
	"strings"

	"github.com/tienda-api/authserver/config"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// NewBackend constructs the broker named by the notifier config.
func NewBackend(ctx context.Context, cfg config.NotifierConfig) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}
