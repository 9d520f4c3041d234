package pos

import (
	"strings"
	"time"

	"github.com/storefront/backend/internal/domain"
)

// Wire types for the POS API. Only the fields the catalog uses are decoded.

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
	TokenType   string `json:"token_type"`
}

type inventoryEnvelope struct {
	Items      []inventoryItemDTO `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type inventoryItemDTO struct {
	GUID     string   `json:"guid"`
	Status   string   `json:"status"`
	Quantity *float64 `json:"quantity,omitempty"`
}

type productsEnvelope struct {
	Products   []productDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type productDTO struct {
	GUID         string            `json:"guid"`
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	Price        float64           `json:"price"`
	Availability bool              `json:"availability"`
	Inventory    *inventoryItemDTO `json:"inventory,omitempty"`
}

type shiftStatusDTO struct {
	IsOpen    bool       `json:"is_open"`
	ShiftID   string     `json:"shift_id,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// MapStockStatus normalizes a POS stock status string
func MapStockStatus(status string) domain.StockStatus {
	return domain.StockStatus(strings.ToUpper(strings.TrimSpace(status)))
}

func mapInventoryItem(dto inventoryItemDTO) domain.InventoryItem {
	return domain.InventoryItem{
		GUID:     dto.GUID,
		Status:   MapStockStatus(dto.Status),
		Quantity: dto.Quantity,
	}
}

func mapInventory(dtos []inventoryItemDTO) []domain.InventoryItem {
	items := make([]domain.InventoryItem, 0, len(dtos))
	for _, dto := range dtos {
		items = append(items, mapInventoryItem(dto))
	}
	return items
}

func mapProducts(dtos []productDTO) []domain.Product {
	products := make([]domain.Product, 0, len(dtos))
	for _, dto := range dtos {
		p := domain.Product{
			GUID:      dto.GUID,
			Name:      dto.Name,
			Category:  dto.Category,
			Price:     dto.Price,
			Available: dto.Availability,
		}
		if dto.Inventory != nil {
			inv := mapInventoryItem(*dto.Inventory)
			p.Inventory = &inv
		}
		products = append(products, p)
	}
	return products
}

func mapShiftStatus(dto shiftStatusDTO) *domain.ShiftStatus {
	return &domain.ShiftStatus{
		IsOpen:    dto.IsOpen,
		ShiftID:   dto.ShiftID,
		StartedAt: dto.StartedAt,
	}
}
