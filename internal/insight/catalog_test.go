package insight

import (
	"testing"

	"servisaja/backend/internal/domain"
)

func runBrands(snap domain.Snapshot) domain.BrandIntelReport {
	return Brands(snap, BuildIndex(snap), DefaultThresholds())
}

func runStock(snap domain.Snapshot) domain.StockIntelReport {
	return Stock(snap, BuildIndex(snap), DefaultThresholds(), testNow, SubstringMatcher{})
}

func TestBrandsAcmeRestockScenario(t *testing.T) {
	snap := domain.Snapshot{
		Brands: []domain.Brand{
			{ID: "brd-1", Name: "Acme"},
			{ID: "brd-2", Name: "Bulk"},
		},
		StockItems: []domain.StockItem{
			{ID: "itm-1", Name: "Acme Part", Brand: "Acme", Price: 100, Stock: 3},
			{ID: "itm-2", Name: "Bulk Part", Brand: "Bulk", Price: 10, Stock: 97},
		},
		Sales: []domain.Sale{
			{ID: "sal-1", ProductID: "itm-1", Qty: 2, Total: 200, Date: daysAgo(5)},
			{ID: "sal-2", ProductID: "itm-2", Qty: 80, Total: 800, Date: daysAgo(5)},
		},
	}

	report := runBrands(snap)
	var acme domain.BrandIntel
	for _, brand := range report.Brands {
		if brand.Name == "Acme" {
			acme = brand
		}
	}

	if acme.InventoryShare != 3.0 {
		t.Fatalf("expected inventory share 3.0, got %v", acme.InventoryShare)
	}
	if acme.RevenueShare != 20.0 {
		t.Fatalf("expected revenue share 20.0, got %v", acme.RevenueShare)
	}
	if acme.Alert != domain.BrandAlertRestock {
		t.Fatalf("expected restock alert, got %q", acme.Alert)
	}
	if acme.Status != domain.BrandStatusActive {
		t.Fatalf("expected Active status, got %q", acme.Status)
	}
}

func TestBrandsRiskAlert(t *testing.T) {
	snap := domain.Snapshot{
		Brands: []domain.Brand{
			{ID: "brd-1", Name: "Hoarder"},
			{ID: "brd-2", Name: "Seller"},
		},
		StockItems: []domain.StockItem{
			{ID: "itm-1", Name: "Hoarder Part", Brand: "Hoarder", Price: 10, Stock: 40},
			{ID: "itm-2", Name: "Seller Part", Brand: "Seller", Price: 10, Stock: 60},
		},
		Sales: []domain.Sale{
			{ID: "sal-1", ProductID: "itm-1", Qty: 1, Total: 10, Date: daysAgo(4)},
			{ID: "sal-2", ProductID: "itm-2", Qty: 99, Total: 990, Date: daysAgo(4)},
		},
	}

	report := runBrands(snap)
	var hoarder domain.BrandIntel
	for _, brand := range report.Brands {
		if brand.Name == "Hoarder" {
			hoarder = brand
		}
	}

	// inventoryShare 40 > 30, revenueShare 1 < 5.
	if hoarder.Alert != domain.BrandAlertRisk {
		t.Fatalf("expected risk alert, got %q", hoarder.Alert)
	}
}

func TestBrandsShareBoundsAndSumInvariant(t *testing.T) {
	snap := domain.Snapshot{
		Brands: []domain.Brand{
			{ID: "brd-1", Name: "Alpha"},
			{ID: "brd-2", Name: "Beta"},
			{ID: "brd-3", Name: "Gamma"},
		},
		StockItems: []domain.StockItem{
			{ID: "itm-1", Name: "A", Brand: "Alpha", Price: 20, Stock: 5},
			{ID: "itm-2", Name: "B", Brand: "Beta", Price: 30, Stock: 10},
		},
		Sales: []domain.Sale{
			{ID: "sal-1", ProductID: "itm-1", Qty: 2, Total: 40, Date: daysAgo(3)},
			{ID: "sal-2", ProductID: "itm-2", Qty: 1, Total: 30, Date: daysAgo(2)},
			// Orphan sale: product maps to no known item/brand.
			{ID: "sal-3", ProductID: "itm-gone", Qty: 1, Total: 100, Date: daysAgo(1)},
		},
	}

	report := runBrands(snap)

	globalRevenue := 0.0
	for _, sale := range snap.Sales {
		globalRevenue += float64(sale.Total)
	}
	brandRevenue := 0.0
	for _, brand := range report.Brands {
		if brand.InventoryShare < 0 || brand.InventoryShare > 100 {
			t.Fatalf("inventory share out of bounds for %s: %v", brand.Name, brand.InventoryShare)
		}
		if brand.RevenueShare < 0 || brand.RevenueShare > 100 {
			t.Fatalf("revenue share out of bounds for %s: %v", brand.Name, brand.RevenueShare)
		}
		brandRevenue += brand.Revenue
	}

	if brandRevenue > globalRevenue {
		t.Fatalf("brand revenue sum %v exceeds global revenue %v", brandRevenue, globalRevenue)
	}
	// The orphan sale widens the denominator without contributing to a brand.
	if brandRevenue != 70 {
		t.Fatalf("expected matched brand revenue 70, got %v", brandRevenue)
	}
}

func TestBrandsZeroDenominators(t *testing.T) {
	snap := domain.Snapshot{
		Brands: []domain.Brand{{ID: "brd-1", Name: "Empty"}},
	}

	report := runBrands(snap)
	brand := report.Brands[0]
	if brand.InventoryShare != 0 || brand.RevenueShare != 0 {
		t.Fatalf("expected zero shares on zero denominators, got %+v", brand)
	}
	if brand.Status != domain.BrandStatusInactive {
		t.Fatalf("expected Inactive, got %q", brand.Status)
	}
}

func TestBrandsDeadBrandList(t *testing.T) {
	snap := domain.Snapshot{
		Brands: []domain.Brand{
			{ID: "brd-1", Name: "Living"},
			{ID: "brd-2", Name: "Dead"},
		},
		StockItems: []domain.StockItem{
			{ID: "itm-1", Name: "Part", Brand: "Living", Price: 10, Stock: 4},
		},
	}

	report := runBrands(snap)
	if len(report.DeadBrands) != 1 || report.DeadBrands[0] != "Dead" {
		t.Fatalf("expected dead brand list [Dead], got %v", report.DeadBrands)
	}
}

func TestStockMarginFallbackCost(t *testing.T) {
	snap := domain.Snapshot{
		StockItems: []domain.StockItem{
			{ID: "itm-1", Name: "With Cost", Price: 100, ActualCost: 70, Stock: 5},
			{ID: "itm-2", Name: "No Cost", Price: 100, ActualCost: 0, Stock: 5},
		},
	}

	report := runStock(snap)
	if report.Items[0].CostPerUnit != 70 || report.Items[0].Margin != 30 {
		t.Fatalf("expected recorded cost basis 70/margin 30, got %+v", report.Items[0])
	}
	if report.Items[1].CostPerUnit != 60 || report.Items[1].Margin != 40 {
		t.Fatalf("expected fallback cost 60 (price*0.6), got %+v", report.Items[1])
	}
	if report.Items[1].MarginPercent != 40 {
		t.Fatalf("expected margin percent 40, got %v", report.Items[1].MarginPercent)
	}
}

func TestStockVelocityAndDaysRemaining(t *testing.T) {
	snap := domain.Snapshot{
		StockItems: []domain.StockItem{
			{ID: "itm-1", Name: "LCD Panel", Price: 200, Stock: 10},
		},
		Sales: []domain.Sale{
			{ID: "sal-1", ProductID: "itm-1", Qty: 4, Total: 800, Date: daysAgo(4)},
		},
	}

	item := runStock(snap).Items[0]
	if item.TotalSold != 4 {
		t.Fatalf("expected 4 sold, got %d", item.TotalSold)
	}
	if item.DailyVelocity != 1.0 {
		t.Fatalf("expected velocity 1.0, got %v", item.DailyVelocity)
	}
	if item.DaysRemaining != 10 {
		t.Fatalf("expected 10 days remaining, got %d", item.DaysRemaining)
	}
}

func TestStockNoDepletionSignalSentinel(t *testing.T) {
	snap := domain.Snapshot{
		StockItems: []domain.StockItem{
			{ID: "itm-1", Name: "Shelf Warmer", Price: 50, Stock: 9},
		},
	}

	item := runStock(snap).Items[0]
	if item.DaysRemaining != domain.NoSignalDays {
		t.Fatalf("expected sentinel %d, got %d", domain.NoSignalDays, item.DaysRemaining)
	}
	if item.DailyVelocity != 0 {
		t.Fatalf("expected zero velocity, got %v", item.DailyVelocity)
	}
}

func TestStockRepairUsageSubstringMatch(t *testing.T) {
	snap := domain.Snapshot{
		StockItems: []domain.StockItem{
			{ID: "itm-1", Name: "LCD Samsung A15", SKU: "LCD-A15", Price: 300, Stock: 3},
		},
		Repairs: []domain.Repair{
			{ID: "rep-1", Description: "Ganti LCD Samsung A15, retak parah", Date: daysAgo(6)},
			{ID: "rep-2", Description: "Battery swap", InternalNotes: "pakai LCD-A15 bekas", Date: daysAgo(3)},
			{ID: "rep-3", Description: "Cleaning only", Date: daysAgo(1)},
		},
	}

	item := runStock(snap).Items[0]
	if item.TotalRepairUsed != 2 {
		t.Fatalf("expected 2 repair usages (name + SKU match), got %d", item.TotalRepairUsed)
	}
}

func TestStockTimelineNewestFirst(t *testing.T) {
	snap := domain.Snapshot{
		StockItems: []domain.StockItem{
			{ID: "itm-1", Name: "Charger 20W", Price: 80, Stock: 6},
		},
		Sales: []domain.Sale{
			{ID: "sal-old", ProductID: "itm-1", Qty: 1, Total: 80, Date: daysAgo(10)},
			{ID: "sal-new", ProductID: "itm-1", Qty: 2, Total: 160, Date: daysAgo(1)},
		},
		Repairs: []domain.Repair{
			{ID: "rep-1", Description: "replaced Charger 20W", Date: daysAgo(5)},
		},
		ActivityLogs: []domain.ActivityLog{
			{ID: "act-1", ActionType: domain.ActionStockAdded, RefID: "itm-1", UserName: "admin", Timestamp: daysAgo(20)},
		},
	}

	timeline := runStock(snap).Items[0].Timeline
	if len(timeline) != 4 {
		t.Fatalf("expected 4 timeline events, got %d", len(timeline))
	}
	for i := 1; i < len(timeline); i++ {
		if timeline[i-1].Date < timeline[i].Date {
			t.Fatalf("timeline not descending at %d: %s < %s", i, timeline[i-1].Date, timeline[i].Date)
		}
	}
	if timeline[0].RefID != "sal-new" || timeline[0].QtyDelta != -2 {
		t.Fatalf("expected newest event to be sal-new with delta -2, got %+v", timeline[0])
	}
	if timeline[len(timeline)-1].Kind != domain.TimelineStockAdded {
		t.Fatalf("expected oldest event to be the stock_added entry, got %+v", timeline[len(timeline)-1])
	}
}

func TestStockTimelineMixedOffsets(t *testing.T) {
	snap := domain.Snapshot{
		StockItems: []domain.StockItem{
			{ID: "itm-1", Name: "Charger 20W", Price: 80, Stock: 6},
		},
		Sales: []domain.Sale{
			// 10:00+07:00 is 03:00Z, two hours before the 05:00Z sale even
			// though its local timestamp string reads later.
			{ID: "sal-jakarta", ProductID: "itm-1", Qty: 1, Total: 80, Date: "2026-08-20T10:00:00+07:00"},
			{ID: "sal-utc", ProductID: "itm-1", Qty: 1, Total: 80, Date: "2026-08-20T05:00:00Z"},
		},
	}

	timeline := runStock(snap).Items[0].Timeline
	if len(timeline) != 2 {
		t.Fatalf("expected 2 timeline events, got %d", len(timeline))
	}
	if timeline[0].RefID != "sal-utc" || timeline[1].RefID != "sal-jakarta" {
		t.Fatalf("expected descending absolute order [sal-utc sal-jakarta], got [%s %s]",
			timeline[0].RefID, timeline[1].RefID)
	}
	if timeline[1].Date != "2026-08-20T03:00:00Z" {
		t.Fatalf("expected offset date normalized to UTC, got %q", timeline[1].Date)
	}
}

func TestStockUsageBreakdownAggregates(t *testing.T) {
	snap := domain.Snapshot{
		StockItems: []domain.StockItem{
			{ID: "itm-1", Name: "Tempered Glass", Price: 25, Stock: 30},
			{ID: "itm-2", Name: "Back Cover", Price: 40, Stock: 12},
		},
		Sales: []domain.Sale{
			{ID: "sal-1", ProductID: "itm-1", Qty: 3, Total: 75, Date: daysAgo(2)},
			{ID: "sal-2", ProductID: "itm-2", Qty: 1, Total: 40, Date: daysAgo(2)},
		},
		Repairs: []domain.Repair{
			{ID: "rep-1", Description: "pasang Tempered Glass", Date: daysAgo(1)},
		},
	}

	report := runStock(snap)
	if report.Usage.SoldUnits != 4 {
		t.Fatalf("expected 4 sold units, got %d", report.Usage.SoldUnits)
	}
	if report.Usage.RepairUnits != 1 {
		t.Fatalf("expected 1 repair unit, got %d", report.Usage.RepairUnits)
	}
}

func TestSubstringMatcher(t *testing.T) {
	matcher := SubstringMatcher{}
	item := domain.StockItem{Name: "LCD Samsung A15", SKU: "LCD-A15"}

	if !matcher.Matches(domain.Repair{Description: "Ganti LCD Samsung A15"}, item) {
		t.Fatalf("expected name match")
	}
	if !matcher.Matches(domain.Repair{InternalNotes: "order LCD-A15"}, item) {
		t.Fatalf("expected SKU match in notes")
	}
	if matcher.Matches(domain.Repair{Description: "battery replacement"}, item) {
		t.Fatalf("did not expect match")
	}
	if matcher.Matches(domain.Repair{Description: "lcd samsung a15 lowercase"}, item) {
		t.Fatalf("matcher is case-sensitive, lowercase text must not match")
	}
}
