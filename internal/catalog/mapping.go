package catalog

import (
	"fmt"

	"github.com/storefront/backend/internal/domain"
)

// defaultMappings links local ids to POS product GUIDs.
var defaultMappings = []domain.IDMapping{
	{LocalID: "go", RemoteID: "3f1c2a9e-5b1d-4c8e-9a47-0d2b6e8f1a01", Kind: domain.KindSize},
	{LocalID: "tipico", RemoteID: "3f1c2a9e-5b1d-4c8e-9a47-0d2b6e8f1a02", Kind: domain.KindSize},
	{LocalID: "clasico", RemoteID: "3f1c2a9e-5b1d-4c8e-9a47-0d2b6e8f1a03", Kind: domain.KindSize},

	{LocalID: "fresa", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b11", Kind: domain.KindAddon},
	{LocalID: "banano", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b12", Kind: domain.KindAddon},
	{LocalID: "mango", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b13", Kind: domain.KindAddon},
	{LocalID: "kiwi", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b14", Kind: domain.KindAddon},
	{LocalID: "granola", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b21", Kind: domain.KindAddon},
	{LocalID: "coco", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b22", Kind: domain.KindAddon},
	{LocalID: "mani", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b23", Kind: domain.KindAddon},
	{LocalID: "chia", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b24", Kind: domain.KindAddon},
	{LocalID: "leche-condensada", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b31", Kind: domain.KindAddon},
	{LocalID: "miel", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b32", Kind: domain.KindAddon},
	{LocalID: "nutella", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b33", Kind: domain.KindAddon},
	{LocalID: "arequipe", RemoteID: "8a7e44c0-2f6b-4b59-b1d3-6c0e9f2a7b34", Kind: domain.KindAddon},
}

type mappingKey struct {
	id   string
	kind domain.ItemKind
}

// MappingTable indexes ID mappings in both directions.
type MappingTable struct {
	byLocal  map[mappingKey]domain.IDMapping
	byRemote map[mappingKey]domain.IDMapping
}

// NewMappingTable builds a table, rejecting a second entry for the same
// (local id, kind) or (remote id, kind) pair.
func NewMappingTable(entries []domain.IDMapping) (*MappingTable, error) {
	t := &MappingTable{
		byLocal:  make(map[mappingKey]domain.IDMapping, len(entries)),
		byRemote: make(map[mappingKey]domain.IDMapping, len(entries)),
	}

	for _, m := range entries {
		if m.LocalID == "" || m.RemoteID == "" {
			return nil, fmt.Errorf("mapping %+v: local and remote ids are required", m)
		}
		if m.Kind != domain.KindSize && m.Kind != domain.KindAddon {
			return nil, fmt.Errorf("mapping %q: unknown kind %q", m.LocalID, m.Kind)
		}

		lk := mappingKey{m.LocalID, m.Kind}
		if _, dup := t.byLocal[lk]; dup {
			return nil, fmt.Errorf("duplicate mapping for %s %q", m.Kind, m.LocalID)
		}
		rk := mappingKey{m.RemoteID, m.Kind}
		if prev, dup := t.byRemote[rk]; dup {
			return nil, fmt.Errorf("remote id %q mapped to both %q and %q", m.RemoteID, prev.LocalID, m.LocalID)
		}

		t.byLocal[lk] = m
		t.byRemote[rk] = m
	}

	return t, nil
}

// MustMappingTable is like NewMappingTable but panics on an invalid table.
func MustMappingTable(entries []domain.IDMapping) *MappingTable {
	t, err := NewMappingTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// RemoteID returns the POS GUID mapped to a local id.
func (t *MappingTable) RemoteID(localID string, kind domain.ItemKind) (string, bool) {
	m, ok := t.byLocal[mappingKey{localID, kind}]
	return m.RemoteID, ok
}

// LocalID returns the local id mapped to a POS GUID.
func (t *MappingTable) LocalID(remoteID string, kind domain.ItemKind) (string, bool) {
	m, ok := t.byRemote[mappingKey{remoteID, kind}]
	return m.LocalID, ok
}

// Len returns the number of mappings.
func (t *MappingTable) Len() int {
	return len(t.byLocal)
}
