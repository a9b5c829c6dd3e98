// Package insight is the read-only analytical layer over the shop
// collections: it joins independently stored records by their weak keys,
// derives per-entity metrics, classifies entities into tiers and surfaces
// heuristic alerts. Every entry point is a pure function of a snapshot plus
// an injected reference time; nothing here mutates or caches state.
package insight

import (
	"servisaja/backend/internal/domain"
)

// Index holds the per-snapshot lookup maps all calculators share. Keys are
// compared exactly as stored (case-sensitive, no whitespace folding) because
// that is what the dashboard has always done; duplicate or typo'd names
// silently merging or splitting records is a known data-quality gap that
// lives in this one place.
type Index struct {
	ClientsByName map[string]domain.Client
	BrandsByName  map[string]domain.Brand
	ItemsByID     map[string]domain.StockItem

	SalesByCustomer   map[string][]domain.Sale
	RepairsByCustomer map[string][]domain.Repair
	SalesByProductID  map[string][]domain.Sale
	ItemsByBrand      map[string][]domain.StockItem

	ComplaintsByUser map[string]int

	// Customer name -> has an active non-trial subscription.
	SubscribedCustomers map[string]bool

	// Activity log entries grouped by the record they reference.
	LogsByRef map[string][]domain.ActivityLog
}

// BuildIndex builds the join maps once per snapshot. All calculators then do
// O(1) lookups instead of rescanning collections per field.
func BuildIndex(snap domain.Snapshot) *Index {
	idx := &Index{
		ClientsByName:       make(map[string]domain.Client, len(snap.Clients)),
		BrandsByName:        make(map[string]domain.Brand, len(snap.Brands)),
		ItemsByID:           make(map[string]domain.StockItem, len(snap.StockItems)),
		SalesByCustomer:     make(map[string][]domain.Sale),
		RepairsByCustomer:   make(map[string][]domain.Repair),
		SalesByProductID:    make(map[string][]domain.Sale),
		ItemsByBrand:        make(map[string][]domain.StockItem),
		ComplaintsByUser:    make(map[string]int),
		SubscribedCustomers: make(map[string]bool),
		LogsByRef:           make(map[string][]domain.ActivityLog),
	}

	for _, c := range snap.Clients {
		idx.ClientsByName[c.Name] = c
	}
	for _, b := range snap.Brands {
		idx.BrandsByName[b.Name] = b
	}
	for _, item := range snap.StockItems {
		idx.ItemsByID[item.ID] = item
		if item.Brand != "" {
			idx.ItemsByBrand[item.Brand] = append(idx.ItemsByBrand[item.Brand], item)
		}
	}
	for _, sale := range snap.Sales {
		if sale.Customer != "" {
			idx.SalesByCustomer[sale.Customer] = append(idx.SalesByCustomer[sale.Customer], sale)
		}
		if sale.ProductID != "" {
			idx.SalesByProductID[sale.ProductID] = append(idx.SalesByProductID[sale.ProductID], sale)
		}
	}
	for _, repair := range snap.Repairs {
		if repair.CustomerName != "" {
			idx.RepairsByCustomer[repair.CustomerName] = append(idx.RepairsByCustomer[repair.CustomerName], repair)
		}
	}
	for _, complaint := range snap.Complaints {
		if complaint.User != "" {
			idx.ComplaintsByUser[complaint.User]++
		}
	}
	for _, sub := range snap.Subscriptions {
		if sub.Status == domain.SubscriptionStatusActive && sub.Plan != domain.SubscriptionPlanTrial {
			idx.SubscribedCustomers[sub.Customer] = true
		}
	}
	for _, entry := range snap.ActivityLogs {
		if entry.RefID != "" {
			idx.LogsByRef[entry.RefID] = append(idx.LogsByRef[entry.RefID], entry)
		}
	}

	return idx
}
