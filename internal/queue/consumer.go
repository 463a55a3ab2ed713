package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StartAuditConsumer connects to RabbitMQ, declares both event queues and
// writes one audit line per message through audit.  It reconnects with
// exponential backoff until ctx is cancelled, then returns ctx.Err().
// Messages that cannot be decoded are rejected without requeue so a bad
// payload never loops.
func StartAuditConsumer(ctx context.Context, url string, audit *zap.Logger) error {
	if audit == nil {
		audit = zap.NewNop()
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			audit.Warn("audit-consumer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, audit)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		audit.Warn("audit-consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, audit *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		audit.Warn("audit-consumer: set QoS failed", zap.Error(err))
	}

	type source struct {
		queue string
		msgs  <-chan amqp.Delivery
	}
	var sources []source
	for _, q := range []string{SaleCommittedQueue, DeliverySettledQueue} {
		if err := declare(ch, q); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		sources = append(sources, source{queue: q, msgs: msgs})
	}

	sales, settlements := sources[0].msgs, sources[1].msgs
	for {
		var (
			d     amqp.Delivery
			ok    bool
			queue string
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-sales:
			queue = SaleCommittedQueue
		case d, ok = <-settlements:
			queue = DeliverySettledQueue
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := HandleMessage(queue, d.Body, audit); err != nil {
			audit.Warn("audit-consumer: handle message failed", zap.String("queue", queue), zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

// HandleMessage decodes one event body from queue and writes its audit
// line.
func HandleMessage(queue string, body []byte, audit *zap.Logger) error {
	switch queue {
	case SaleCommittedQueue:
		var ev SaleCommittedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.TenantCode == "" || ev.SaleNumber == "" {
			return errors.New("sale event without tenant or sale number")
		}
		audit.Info("sale committed",
			zap.String("tenant", ev.TenantCode),
			zap.Int64("sale_id", ev.SaleID),
			zap.String("sale_number", ev.SaleNumber),
			zap.Int64("user_id", ev.UserID),
			zap.String("operator", ev.Operator),
			zap.String("payment_method", ev.PaymentMethod),
			zap.String("order_type", ev.OrderType),
			zap.Int("items", ev.ItemCount),
			zap.Float64("total", ev.Total),
			zap.String("committed_at", ev.CommittedAt),
		)
	case DeliverySettledQueue:
		var ev DeliverySettledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.TenantCode == "" {
			return errors.New("settlement event without tenant")
		}
		audit.Info("delivery settled",
			zap.String("tenant", ev.TenantCode),
			zap.Int64("delivery_boy_id", ev.DeliveryBoyID),
			zap.String("delivery_boy", ev.DeliveryBoyName),
			zap.String("date", ev.Date),
			zap.String("kind", ev.Kind),
			zap.Int64("orders", ev.Orders),
			zap.Float64("amount", ev.Amount),
			zap.Int64("settled_by", ev.SettledBy),
			zap.String("settled_at", ev.SettledAt),
		)
	default:
		return fmt.Errorf("unknown queue %q", queue)
	}
	return nil
}
