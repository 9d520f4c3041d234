package catalog

import (
	"math"

	"github.com/storefront/backend/internal/domain"
)

// PromoDiscount is the fixed promotional discount applied to live size prices.
const PromoDiscount = 0.15

// Mapper merges live POS data into the local catalog.
type Mapper struct {
	mappings *MappingTable
}

var defaultMapper = NewMapper(MustMappingTable(defaultMappings))

// NewMapper creates a mapper over the given mapping table
func NewMapper(mappings *MappingTable) *Mapper {
	return &Mapper{mappings: mappings}
}

// DefaultMapper returns the mapper backed by the compiled-in mapping table
func DefaultMapper() *Mapper {
	return defaultMapper
}

// Map resolves the catalog with the compiled-in mapping table.
func Map(products []domain.Product, inventory []domain.InventoryItem) domain.Catalog {
	return defaultMapper.Map(products, inventory)
}

// Map returns the local catalog with prices and availability taken from the
// POS wherever a mapped product exists. Entries without a mapping, or whose
// mapped product is missing, keep their defaults. Output order always follows
// the local catalog. Inputs are never modified.
func (m *Mapper) Map(products []domain.Product, inventory []domain.InventoryItem) domain.Catalog {
	cat := Defaults()
	if len(products) == 0 {
		return cat
	}

	productsByID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		if _, seen := productsByID[p.GUID]; !seen {
			productsByID[p.GUID] = p
		}
	}
	stockByID := make(map[string]domain.StockStatus, len(inventory))
	for _, item := range inventory {
		if _, seen := stockByID[item.GUID]; !seen {
			stockByID[item.GUID] = item.Status
		}
	}

	for i := range cat.Sizes {
		size := &cat.Sizes[i]
		product, ok := m.lookup(size.ID, domain.KindSize, productsByID)
		if !ok {
			continue
		}
		size.RemoteID = product.GUID
		size.OriginalPrice = int64(math.Round(product.Price))
		size.Price = DiscountedPrice(product.Price)
		size.Available = available(product.GUID, stockByID)
	}

	// add-ons are free, only availability follows the POS
	for i := range cat.Addons {
		addon := &cat.Addons[i]
		product, ok := m.lookup(addon.ID, domain.KindAddon, productsByID)
		if !ok {
			continue
		}
		addon.RemoteID = product.GUID
		addon.Available = available(product.GUID, stockByID)
	}

	return cat
}

func (m *Mapper) lookup(localID string, kind domain.ItemKind, products map[string]domain.Product) (domain.Product, bool) {
	remoteID, ok := m.mappings.RemoteID(localID, kind)
	if !ok {
		return domain.Product{}, false
	}
	p, ok := products[remoteID]
	return p, ok
}

// available treats an untracked product as available.
func available(guid string, stock map[string]domain.StockStatus) bool {
	status, tracked := stock[guid]
	if !tracked {
		return true
	}
	return status != domain.StockOutOfStock
}

// DiscountedPrice applies PromoDiscount and rounds to whole currency units.
func DiscountedPrice(price float64) int64 {
	return int64(math.Round(price * (1 - PromoDiscount)))
}
