package inventory

import (
	"errors"
	"time"
)

// Item represents a product in the store catalogue.
type Item struct {
	ID             string     `json:"id"`
	SKU            string     `json:"sku"`
	Name           string     `json:"name"`
	Category       string     `json:"category,omitempty"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// StockLevel is the current quantity on hand for an item.
type StockLevel struct {
	ItemID    string    `json:"item_id"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Movement is a single entry in the append-only stock history.
type Movement struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	Delta         int64     `json:"delta"`
	QuantityAfter int64     `json:"quantity_after"`
	Reason        string    `json:"reason,omitempty"`
	AdjustedBy    string    `json:"adjusted_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Threshold is a manager-set low-stock alert level for an item.
type Threshold struct {
	ItemID      string    `json:"item_id"`
	MinQuantity int64     `json:"min_quantity"`
	SetBy       string    `json:"set_by"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Breach pairs an item with its threshold when stock has fallen to or
// below the alert level.
type Breach struct {
	Item      Item  `json:"item"`
	Quantity  int64 `json:"quantity"`
	Threshold int64 `json:"threshold"`
}

// Sentinel errors for inventory operations.
var (
	ErrItemNotFound      = errors.New("item not found")
	ErrSKUExists         = errors.New("sku already exists")
	ErrThresholdNotFound = errors.New("threshold not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrZeroDelta         = errors.New("adjustment delta must be non-zero")
)
