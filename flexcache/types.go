package flexcache

import "vendroute/store"

// FlexItem is the cached form of one stop. It carries every product column
// the flex table edits, so a cache hit never needs a follow-up SQL read.
type FlexItem struct {
	ID              int64         `json:"id"`
	Code            string        `json:"code"`
	Name            string        `json:"name"`
	Location        string        `json:"location"`
	InventoryStatus string        `json:"inventory_status"`
	Latitude        string        `json:"latitude"`
	Longitude       string        `json:"longitude"`
	Address         string        `json:"address"`
	OperatingHours  string        `json:"operating_hours"`
	MachineType     string        `json:"machine_type"`
	PaymentMethods  string        `json:"payment_methods"`
	LastMaintenance string        `json:"last_maintenance"`
	Status          string        `json:"status"`
	PowerMode       string        `json:"power_mode"`
	Images          []store.Image `json:"images"`
}

func itemFromProduct(p *store.Product) FlexItem {
	return FlexItem{
		ID:              p.ID,
		Code:            p.Code,
		Name:            p.Name,
		Location:        p.Location,
		InventoryStatus: p.InventoryStatus,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		Address:         p.Address,
		OperatingHours:  p.OperatingHours,
		MachineType:     p.MachineType,
		PaymentMethods:  p.PaymentMethods,
		LastMaintenance: p.LastMaintenance,
		Status:          p.Status,
		PowerMode:       p.PowerMode,
		Images:          p.Images,
	}
}

func itemsFromProducts(products []*store.Product) []FlexItem {
	items := make([]FlexItem, len(products))
	for i, p := range products {
		items[i] = itemFromProduct(p)
	}
	return items
}
