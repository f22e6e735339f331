package service

import "inventory-recon/internal/reconcile/model"

// index groups records by a key, remembering the order keys were first seen.
type index struct {
	order  []string
	groups map[string][]*model.InventoryRecord
}

func buildIndex(rows []*model.InventoryRecord, key func(*model.InventoryRecord) string) *index {
	idx := &index{groups: make(map[string][]*model.InventoryRecord)}
	for _, r := range rows {
		k := key(r)
		if _, ok := idx.groups[k]; !ok {
			idx.order = append(idx.order, k)
		}
		idx.groups[k] = append(idx.groups[k], r)
	}
	return idx
}

func bySkuKey(r *model.InventoryRecord) string { return r.SkuKey }
func bySkuRaw(r *model.InventoryRecord) string { return r.SkuRaw }

func (idx *index) has(k string) bool {
	_, ok := idx.groups[k]
	return ok
}

func (idx *index) first(k string) *model.InventoryRecord {
	if list := idx.groups[k]; len(list) > 0 {
		return list[0]
	}
	return nil
}
