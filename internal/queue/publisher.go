package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends domain events to RabbitMQ.  Each publish dials a fresh
// connection; sharing is rare enough that a pooled channel is not worth
// the reconnect bookkeeping.
type Publisher struct {
	url string
	log *zap.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, log: log.Named("publisher")}
}

// PublishProgramShared publishes ev to the program.shared queue as a
// persistent JSON message.  Errors are logged and returned so the caller
// can choose to ignore them.
func (p *Publisher) PublishProgramShared(ctx context.Context, ev ProgramSharedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal event failed", zap.Error(err))
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch); err != nil {
		p.log.Warn("queue declare failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ProgramSharedQueue, false, false, pub); err != nil {
		p.log.Warn("publish failed", zap.Error(err), zap.Uint64("program_id", ev.ProgramID))
		return err
	}
	p.log.Debug("event published", zap.Uint64("program_id", ev.ProgramID))
	return nil
}

// declare makes sure the durable queue exists.  It is idempotent.
func declare(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		ProgramSharedQueue, // name
		true,               // durable
		false,              // autoDelete
		false,              // exclusive
		false,              // noWait
		nil,                // args
	)
	return err
}
