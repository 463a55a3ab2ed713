package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher publishes events to RabbitMQ.  It dials per publish: event
// volume is one message per sale, and a fresh connection never leaves a
// dead channel behind after a broker restart.
type AMQPPublisher struct {
	URL string
	Log *zap.Logger
	// Timeout bounds dial, handshake and publish when ctx has no earlier
	// deadline.
	Timeout time.Duration
}

const defaultPublishTimeout = 2 * time.Second

// NewAMQPPublisher returns a publisher for url.
func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &AMQPPublisher{URL: url, Log: log, Timeout: defaultPublishTimeout}
}

func (p *AMQPPublisher) PublishSaleCommitted(ctx context.Context, ev SaleCommittedEvent) error {
	return p.publish(ctx, SaleCommittedQueue, ev)
}

func (p *AMQPPublisher) PublishDeliverySettled(ctx context.Context, ev DeliverySettledEvent) error {
	return p.publish(ctx, DeliverySettledQueue, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, event any) error {
	log := p.Log.With(zap.String("queue", queue))
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}

	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()
	// Channel open and declare take no context; drop the socket once ctx
	// is done so they return.
	stop := context.AfterFunc(ctx, func() { _ = conn.CloseDeadline(time.Now()) })
	defer stop()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch, queue); err != nil {
		log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		log.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}
	return nil
}

// declare makes sure queue exists (idempotent, durable).
func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	return err
}
