package model

import "time"

// DeliveryStatus is the state of a pay-after-delivery order.
type DeliveryStatus string

const (
	DeliveryPending          DeliveryStatus = "pending"
	DeliveryAssigned         DeliveryStatus = "assigned"
	DeliveryOutForDelivery   DeliveryStatus = "out_for_delivery"
	DeliveryDelivered        DeliveryStatus = "delivered"
	DeliveryPaymentCollected DeliveryStatus = "payment_collected"
	DeliverySettled          DeliveryStatus = "settled"
)

// deliveryOrder is the canonical forward order of the workflow.
var deliveryOrder = map[DeliveryStatus]int{
	DeliveryPending:          0,
	DeliveryAssigned:         1,
	DeliveryOutForDelivery:   2,
	DeliveryDelivered:        3,
	DeliveryPaymentCollected: 4,
	DeliverySettled:          5,
}

// Valid reports whether s is one of the six workflow states.
func (s DeliveryStatus) Valid() bool {
	_, ok := deliveryOrder[s]
	return ok
}

// Terminal reports whether no further delivery work is expected.
func (s DeliveryStatus) Terminal() bool { return s == DeliverySettled }

// IsForwardOf reports whether s comes after prev in the canonical order.
// Transitions are not restricted by it; it only classifies them.
func (s DeliveryStatus) IsForwardOf(prev DeliveryStatus) bool {
	a, okA := deliveryOrder[prev]
	b, okB := deliveryOrder[s]
	return okA && okB && b > a
}

// DeliveryBoyStatus tells whether a delivery person can take new orders.
type DeliveryBoyStatus string

const (
	DeliveryBoyActive   DeliveryBoyStatus = "active"
	DeliveryBoyInactive DeliveryBoyStatus = "inactive"
)

// DeliveryBoy mirrors the `delivery_boys` table.
type DeliveryBoy struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Phone     *string           `json:"phone"`
	Address   *string           `json:"address"`
	Status    DeliveryBoyStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// SettlementSummary is the per delivery person, per calendar day money
// position.  PendingSettlement = TotalCollected - TotalSettled - PartialSettled.
type SettlementSummary struct {
	DeliveryBoyID     int64   `json:"delivery_boy_id"`
	DeliveryBoyName   string  `json:"delivery_boy_name"`
	Date              string  `json:"date"`
	OrderCount        int     `json:"order_count"`
	CollectedCount    int     `json:"collected_count"`
	TotalCollected    float64 `json:"total_collected"`
	TotalSettled      float64 `json:"total_settled"`
	PartialSettled    float64 `json:"partial_settled"`
	PendingSettlement float64 `json:"pending_settlement"`
}

// PartialSettlement records cash handed over before the day is settled in
// full.  AbsorbedAt is stamped when a full settle covers it.
type PartialSettlement struct {
	ID            int64      `json:"id"`
	DeliveryBoyID int64      `json:"delivery_boy_id"`
	SettleDate    string     `json:"settle_date"`
	Amount        float64    `json:"amount"`
	Notes         *string    `json:"notes"`
	CreatedBy     int64      `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	AbsorbedAt    *time.Time `json:"absorbed_at"`
}
