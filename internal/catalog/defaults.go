// Package catalog holds the compiled-in storefront catalog and merges it with
// live POS data.
package catalog

import "github.com/storefront/backend/internal/domain"

// Add-on groups
const (
	GroupFruits  = "Frutas"
	GroupCrunchy = "Crocantes"
	GroupSauces  = "Salsas"
)

// defaultSizes is the single source of truth for container sizes.
// Price is the promotional price, OriginalPrice the list price.
var defaultSizes = []domain.SizeEntry{
	{
		ID:            "go",
		Name:          "Go",
		Description:   "Vaso de 12 oz, ideal para llevar",
		Price:         5500,
		OriginalPrice: 6500,
	},
	{
		ID:            "tipico",
		Name:          "Típico",
		Description:   "Vaso de 16 oz, el tamaño de la casa",
		Price:         6500,
		OriginalPrice: 7600,
	},
	{
		ID:            "clasico",
		Name:          "Clásico",
		Description:   "Bowl de 22 oz para compartir",
		Price:         7700,
		OriginalPrice: 9100,
	},
}

var defaultAddons = []domain.AddonEntry{
	{ID: "fresa", Name: "Fresa", Group: GroupFruits},
	{ID: "banano", Name: "Banano", Group: GroupFruits},
	{ID: "mango", Name: "Mango", Group: GroupFruits},
	{ID: "kiwi", Name: "Kiwi", Group: GroupFruits},
	{ID: "granola", Name: "Granola", Group: GroupCrunchy},
	{ID: "coco", Name: "Coco rallado", Group: GroupCrunchy},
	{ID: "mani", Name: "Maní", Group: GroupCrunchy},
	{ID: "chia", Name: "Chía", Group: GroupCrunchy},
	{ID: "leche-condensada", Name: "Leche condensada", Group: GroupSauces},
	{ID: "miel", Name: "Miel", Group: GroupSauces},
	{ID: "nutella", Name: "Nutella", Group: GroupSauces},
	{ID: "arequipe", Name: "Arequipe", Group: GroupSauces},
}

// Defaults returns a fresh copy of the local catalog with every entry available.
// It is both the mapper's baseline and the degraded-cycle output.
func Defaults() domain.Catalog {
	sizes := make([]domain.SizeEntry, len(defaultSizes))
	for i, s := range defaultSizes {
		s.Category = domain.KindSize
		s.Available = true
		sizes[i] = s
	}

	addons := make([]domain.AddonEntry, len(defaultAddons))
	for i, a := range defaultAddons {
		a.Category = domain.KindAddon
		a.Available = true
		addons[i] = a
	}

	return domain.Catalog{Sizes: sizes, Addons: addons}
}
