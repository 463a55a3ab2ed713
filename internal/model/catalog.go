package model

import "time"

// Category groups products on the cashier screen.  Names are unique per
// tenant.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a sellable catalog item.  StockQuantity is only meaningful
// when TrackStock is set; sale commits and deletions adjust it under that
// same flag.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	CategoryID    *int64    `json:"category_id"`
	CategoryName  *string   `json:"category_name,omitempty"`
	TrackStock    bool      `json:"track_stock"`
	StockQuantity float64   `json:"stock_quantity"`
	ExpiryDate    *string   `json:"expiry_date"`
	Barcode       *string   `json:"barcode"`
	ImagePath     *string   `json:"image_path"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Customer is an optional party attached to a sale.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	Email     *string   `json:"email"`
	Address   *string   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a tenant-local staff account stored in the tenant's own store.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
