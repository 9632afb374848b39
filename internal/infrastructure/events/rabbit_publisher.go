package events

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	"fixversity/internal/errs"
)

// RabbitPublisher publishes JSON events to a topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	prefix   string
}

func NewRabbitPublisher(url string, exchange string, prefix string) (*RabbitPublisher, error) {
	if url == "" {
		return nil, errors.New("events.amqp_url is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errs.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errs.Wrap(err, "open rabbitmq channel")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errs.Wrap(err, "declare exchange")
	}
	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange, prefix: prefix}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, name string, payload any) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(err, "encode event")
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, subject(p.prefix, name), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	}); err != nil {
		return errs.Wrap(err, "publish rabbitmq event")
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		_ = p.conn.Close()
		return errs.Wrap(err, "close rabbitmq channel")
	}
	return p.conn.Close()
}
