package domain

import "time"

// ItemKind separates container sizes from add-ons in the ID mapping table
type ItemKind string

const (
	KindSize  ItemKind = "size"
	KindAddon ItemKind = "addon"
)

// SizeEntry is a container size offered by the storefront.
// Prices are whole currency units.
type SizeEntry struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Category      ItemKind `json:"category"`
	Description   string   `json:"description"`
	RemoteID      string   `json:"remoteId,omitempty"`
	Available     bool     `json:"availability"`
	Price         int64    `json:"price"`
	OriginalPrice int64    `json:"originalPrice"`
}

// AddonEntry is an add-on item; Group is the label used to group add-ons in the UI
type AddonEntry struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Category  ItemKind `json:"category"`
	Group     string   `json:"group"`
	RemoteID  string   `json:"remoteId,omitempty"`
	Available bool     `json:"availability"`
	Price     int64    `json:"price"`
}

// IDMapping pairs a local catalog id with a POS product GUID
type IDMapping struct {
	LocalID  string   `json:"localId"`
	RemoteID string   `json:"remoteId"`
	Kind     ItemKind `json:"kind"`
}

// Catalog is the resolved, UI-ready catalog of one load cycle
type Catalog struct {
	Sizes  []SizeEntry  `json:"sizes"`
	Addons []AddonEntry `json:"addons"`
}

// LoadState is a step of the catalog load cycle
type LoadState string

const (
	StateIdle           LoadState = "idle"
	StateAuthenticating LoadState = "authenticating"
	StateCheckingShift  LoadState = "checking_shift"
	StateLoadingCatalog LoadState = "loading_catalog"
	StateReady          LoadState = "ready"
	StateDegraded       LoadState = "degraded"
)

// CatalogResult is the outcome of one load cycle.
// IsStoreOpen is nil when the shift status is unknown (degraded cycles).
type CatalogResult struct {
	CycleID     string    `json:"cycleId"`
	State       LoadState `json:"state"`
	Catalog     Catalog   `json:"catalog"`
	IsStoreOpen *bool     `json:"isStoreOpen"`
	LoadedAt    time.Time `json:"loadedAt"`
	Err         error     `json:"-"`
	Error       string    `json:"error,omitempty"`
}

// Degraded reports whether the cycle fell back to the local defaults
func (r *CatalogResult) Degraded() bool {
	return r.State == StateDegraded
}

// StoreStatus renders the tri-state shift flag
func (r *CatalogResult) StoreStatus() string {
	switch {
	case r.IsStoreOpen == nil:
		return "unknown"
	case *r.IsStoreOpen:
		return "open"
	default:
		return "closed"
	}
}

// Quote is the price of one size plus a set of add-ons
type Quote struct {
	SizeID   string   `json:"sizeId"`
	AddonIDs []string `json:"addonIds"`
	Subtotal int64    `json:"subtotal"`
	Savings  int64    `json:"savings"`
	Total    int64    `json:"total"`
}
