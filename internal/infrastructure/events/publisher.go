package events

import (
	"context"
	"fmt"
	"strings"

	"fixversity/internal/bootstrap/config"
	"fixversity/internal/ports"
)

// Publisher is an EventPublisher that owns a broker connection.
type Publisher interface {
	ports.EventPublisher
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }

// Open returns the publisher selected by cfg.Driver.
func Open(cfg config.EventsConfig) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return NopPublisher{}, nil
	case "nats":
		return NewNATSPublisher(cfg.NATSURL, cfg.SubjectPrefix)
	case "rabbitmq", "amqp":
		return NewRabbitPublisher(cfg.AMQPURL, cfg.Exchange, cfg.SubjectPrefix)
	default:
		return nil, fmt.Errorf("unsupported events driver %q", cfg.Driver)
	}
}

func subject(prefix string, name string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
