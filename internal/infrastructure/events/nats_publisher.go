package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"

	"fixversity/internal/errs"
)

type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(url string, prefix string) (*NATSPublisher, error) {
	if url == "" {
		return nil, errors.New("events.nats_url is required")
	}
	conn, err := nats.Connect(url, nats.Name("fixversity"))
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, name string, payload any) error {
	if p == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(err, "encode event")
	}
	if err := p.conn.Publish(subject(p.prefix, name), body); err != nil {
		return errs.Wrap(err, "publish nats event")
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.conn.Drain()
}
