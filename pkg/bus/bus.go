// Package bus is a thin JetStream layer for the gift event subjects.
// Producers publish JSON payloads; consumers attach durable subscriptions
// that ack or nak per message.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/nats-io/nats.go"
)

// Bus holds a NATS connection and its JetStream context.
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New connects to the given NATS endpoint and initialises JetStream.
func New(url string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Bus{conn: nc, js: js}, nil
}

// Close drains the connection, falling back to a hard close if draining fails.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Publish sends v to the subject as JSON.
func (b *Bus) Publish(ctx context.Context, subj string, v any) error {
	if b == nil {
		return errors.New("nil bus")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = b.js.Publish(subj, data, nats.Context(ctx))
	return err
}

// Subscribe attaches a durable, explicit-ack consumer to the subject. Each
// message is passed to fn; a non-nil return naks the message for redelivery.
// The subscription drains when ctx is cancelled or the returned Closer closes.
func (b *Bus) Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error) {
	if b == nil {
		return nil, errors.New("nil bus")
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}

	deliver := func(msg *nats.Msg) {
		msgCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		if err := fn(msgCtx, msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}

	sub, err := b.js.Subscribe(subj, deliver, nats.Durable(durable), nats.ManualAck(), nats.AckExplicit())
	if err != nil {
		return nil, err
	}

	c := &consumer{sub: sub}
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	return c, nil
}

// consumer drains its subscription exactly once.
type consumer struct {
	sub  *nats.Subscription
	once sync.Once
	err  error
}

func (c *consumer) Close() error {
	c.once.Do(func() {
		c.err = c.sub.Drain()
	})
	return c.err
}
