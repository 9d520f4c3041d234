package domain

import "time"

// StockStatus is the inventory state reported by the POS for a product
type StockStatus string

const (
	StockInStock    StockStatus = "IN_STOCK"
	StockQuantity   StockStatus = "QUANTITY" // limited quantity remaining
	StockOutOfStock StockStatus = "OUT_OF_STOCK"
)

// Product is a read-only snapshot of a POS product, valid for one load cycle
type Product struct {
	GUID      string         `json:"guid"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Price     float64        `json:"price"`
	Available bool           `json:"availability"`
	Inventory *InventoryItem `json:"inventory,omitempty"`
}

// InventoryItem is the stock state of one POS product
type InventoryItem struct {
	GUID     string      `json:"guid"`
	Status   StockStatus `json:"status"`
	Quantity *float64    `json:"quantity,omitempty"`
}

// ShiftStatus tells whether the point of sale is accepting orders
type ShiftStatus struct {
	IsOpen    bool       `json:"isOpen"`
	ShiftID   string     `json:"shiftId,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// Token is a bearer credential with its absolute expiry
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// ValidFor reports whether the token stays valid for at least margin after now.
func (t Token) ValidFor(now time.Time, margin time.Duration) bool {
	return t.Value != "" && now.Add(margin).Before(t.ExpiresAt)
}
