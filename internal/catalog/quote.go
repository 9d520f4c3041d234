package catalog

import (
	"fmt"

	"github.com/storefront/backend/internal/domain"
)

// Quote prices one size plus any number of add-ons against a resolved catalog.
// Repeated add-on ids count once.
func Quote(cat domain.Catalog, sizeID string, addonIDs []string) (*domain.Quote, error) {
	if sizeID == "" {
		return nil, fmt.Errorf("%w: size is required", domain.ErrInvalidRequest)
	}

	var size *domain.SizeEntry
	for i := range cat.Sizes {
		if cat.Sizes[i].ID == sizeID {
			size = &cat.Sizes[i]
			break
		}
	}
	if size == nil {
		return nil, fmt.Errorf("%w: size %q", domain.ErrUnknownItem, sizeID)
	}
	if !size.Available {
		return nil, fmt.Errorf("%w: size %q", domain.ErrItemUnavailable, sizeID)
	}

	addons := make(map[string]domain.AddonEntry, len(cat.Addons))
	for _, a := range cat.Addons {
		addons[a.ID] = a
	}

	q := &domain.Quote{SizeID: size.ID, AddonIDs: []string{}}
	seen := make(map[string]bool, len(addonIDs))
	var addonTotal int64
	for _, id := range addonIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		addon, ok := addons[id]
		if !ok {
			return nil, fmt.Errorf("%w: add-on %q", domain.ErrUnknownItem, id)
		}
		if !addon.Available {
			return nil, fmt.Errorf("%w: add-on %q", domain.ErrItemUnavailable, id)
		}
		addonTotal += addon.Price
		q.AddonIDs = append(q.AddonIDs, id)
	}

	list := size.OriginalPrice
	if list < size.Price {
		list = size.Price
	}
	q.Subtotal = list + addonTotal
	q.Total = size.Price + addonTotal
	q.Savings = q.Subtotal - q.Total

	return q, nil
}
