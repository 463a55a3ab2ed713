// Package queue defines the domain events published to RabbitMQ, the
// publisher used by the services and the audit consumer.
package queue

import "context"

// Queue names.  Both queues are durable and use the default exchange.
const (
	SaleCommittedQueue   = "pos.sale.committed"
	DeliverySettledQueue = "pos.delivery.settled"
)

// SaleCommittedEvent is published after a sale transaction commits.  It
// carries enough for auditing and analytics without reading the tenant store.
type SaleCommittedEvent struct {
	TenantCode    string  `json:"tenant_code"`
	SaleID        int64   `json:"sale_id"`
	SaleNumber    string  `json:"sale_number"`
	UserID        int64   `json:"user_id"`
	Operator      string  `json:"operator"`
	PaymentMethod string  `json:"payment_method"`
	OrderType     string  `json:"order_type"`
	ItemCount     int     `json:"item_count"`
	Total         float64 `json:"total"`
	CommittedAt   string  `json:"committed_at"`
}

// DeliverySettledEvent is published after a full or partial settlement.
type DeliverySettledEvent struct {
	TenantCode      string  `json:"tenant_code"`
	DeliveryBoyID   int64   `json:"delivery_boy_id"`
	DeliveryBoyName string  `json:"delivery_boy_name"`
	Date            string  `json:"date"`
	Kind            string  `json:"kind"` // "full" or "partial"
	Orders          int64   `json:"orders"`
	Amount          float64 `json:"amount"`
	SettledBy       int64   `json:"settled_by"`
	SettledAt       string  `json:"settled_at"`
}

// Publisher is what the services need from the broker.  Implementations
// must not block the request for long; callers log and ignore errors.
type Publisher interface {
	PublishSaleCommitted(ctx context.Context, ev SaleCommittedEvent) error
	PublishDeliverySettled(ctx context.Context, ev DeliverySettledEvent) error
}

// NopPublisher drops every event.  Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishSaleCommitted(context.Context, SaleCommittedEvent) error     { return nil }
func (NopPublisher) PublishDeliverySettled(context.Context, DeliverySettledEvent) error { return nil }
