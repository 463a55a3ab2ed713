package model

import "time"

// PaymentMethod is how a sale is paid.
type PaymentMethod string

const (
	PayCash          PaymentMethod = "cash"
	PayCard          PaymentMethod = "card"
	PayOnline        PaymentMethod = "online"
	PayAfterDelivery PaymentMethod = "payAfterDelivery"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCash, PayCard, PayOnline, PayAfterDelivery:
		return true
	}
	return false
}

// OrderType is where the order is consumed.
type OrderType string

const (
	OrderDineIn   OrderType = "dine-in"
	OrderTakeaway OrderType = "takeaway"
	OrderDelivery OrderType = "delivery"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	switch t {
	case OrderDineIn, OrderTakeaway, OrderDelivery:
		return true
	}
	return false
}

// DiscountType tells how the cashier entered the discount.  The stored
// discount_amount is always the monetary deduction.
type DiscountType string

const (
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool { return t == DiscountFixed || t == DiscountPercentage }

// CartLine is one requested line of a cart, used both for committing a sale
// and for the serialized snapshot of a held sale.
type CartLine struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// Sale mirrors the `sales` table.  Monetary fields are immutable after the
// commit; only the delivery_* columns change afterwards.
type Sale struct {
	ID                       int64           `json:"id"`
	SaleNumber               string          `json:"sale_number"`
	CustomerID               *int64          `json:"customer_id"`
	UserID                   int64           `json:"user_id"`
	OperatorName             string          `json:"operator_name"`
	Subtotal                 float64         `json:"subtotal"`
	DiscountAmount           float64         `json:"discount_amount"`
	DiscountType             DiscountType    `json:"discount_type"`
	VATPercentage            float64         `json:"vat_percentage"`
	VATAmount                float64         `json:"vat_amount"`
	Total                    float64         `json:"total"`
	PaymentMethod            PaymentMethod   `json:"payment_method"`
	PaymentAmount            float64         `json:"payment_amount"`
	ChangeAmount             float64         `json:"change_amount"`
	OrderType                OrderType       `json:"order_type"`
	Notes                    *string         `json:"notes"`
	DeliveryBoyID            *int64          `json:"delivery_boy_id"`
	DeliveryStatus           *DeliveryStatus `json:"delivery_status"`
	DeliveryPaymentCollected bool            `json:"delivery_payment_collected"`
	DeliveryAssignedAt       *time.Time      `json:"delivery_assigned_at"`
	DeliveryDeliveredAt      *time.Time      `json:"delivery_delivered_at"`
	DeliverySettledAt        *time.Time      `json:"delivery_settled_at"`
	CreatedAt                time.Time       `json:"created_at"`
}

// IsPayAfterDelivery reports whether the delivery workflow applies.
func (s Sale) IsPayAfterDelivery() bool { return s.PaymentMethod == PayAfterDelivery }

// SaleItem mirrors the `sale_items` table.  ProductName is a snapshot taken
// at sale time; ProductID becomes nil when the product is later deleted.
type SaleItem struct {
	ID          int64   `json:"id"`
	SaleID      int64   `json:"sale_id"`
	ProductID   *int64  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// SaleDetail is a sale joined with its display names and lines, in the
// order the lines were committed.
type SaleDetail struct {
	Sale
	CustomerName    *string    `json:"customer_name"`
	DeliveryBoyName *string    `json:"delivery_boy_name"`
	Items           []SaleItem `json:"items"`
}

// HeldSale is a suspended cart, resumable by its hold number.
type HeldSale struct {
	ID             int64        `json:"id"`
	HoldNumber     string       `json:"hold_number"`
	Items          []CartLine   `json:"items"`
	CustomerID     *int64       `json:"customer_id"`
	OrderType      OrderType    `json:"order_type"`
	Subtotal       float64      `json:"subtotal"`
	DiscountAmount float64      `json:"discount_amount"`
	DiscountType   DiscountType `json:"discount_type"`
	VATPercentage  float64      `json:"vat_percentage"`
	VATAmount      float64      `json:"vat_amount"`
	Total          float64      `json:"total"`
	Notes          *string      `json:"notes"`
	UserID         int64        `json:"user_id"`
	CreatedAt      time.Time    `json:"created_at"`
}
