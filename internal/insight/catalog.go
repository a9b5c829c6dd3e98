package insight

import (
	"math"
	"sort"
	"strings"
	"time"

	"servisaja/backend/internal/domain"
	"servisaja/backend/internal/normalize"
)

// Brands derives the per-brand intelligence view: inventory and revenue
// share, status classification and the restock/risk alert heuristic.
//
// Share denominators are global: all stock units and all sale revenue in the
// snapshot, including sales whose product maps to no known brand. Such sales
// are omitted from per-brand aggregates but still widen the denominator,
// which is why the brand revenue sum can undershoot total revenue.
func Brands(snap domain.Snapshot, idx *Index, th Thresholds) domain.BrandIntelReport {
	globalUnits := 0
	for _, item := range snap.StockItems {
		globalUnits += int(item.Stock)
	}
	globalRevenue := 0.0
	for _, sale := range snap.Sales {
		globalRevenue += float64(sale.Total)
	}

	soldByBrand := make(map[string]int, len(snap.Brands))
	revenueByBrand := make(map[string]float64, len(snap.Brands))
	for _, sale := range snap.Sales {
		item, ok := idx.ItemsByID[sale.ProductID]
		if !ok || item.Brand == "" {
			continue
		}
		soldByBrand[item.Brand] += int(sale.Qty)
		revenueByBrand[item.Brand] += float64(sale.Total)
	}

	report := domain.BrandIntelReport{
		Brands:        make([]domain.BrandIntel, 0, len(snap.Brands)),
		DeadBrands:    []string{},
		RevenueSeries: []domain.ChartPoint{},
	}

	for _, brand := range snap.Brands {
		intel := domain.BrandIntel{
			BrandID:   brand.ID,
			Name:      brand.Name,
			SoldUnits: soldByBrand[brand.Name],
			Revenue:   revenueByBrand[brand.Name],
		}
		for _, item := range idx.ItemsByBrand[brand.Name] {
			intel.ItemsCount++
			intel.UnitsCount += int(item.Stock)
			intel.StockValue += float64(item.Price) * float64(item.Stock)
		}

		switch {
		case intel.UnitsCount > 0 && intel.SoldUnits > 0:
			intel.Status = domain.BrandStatusActive
			report.Active++
		case intel.UnitsCount > 0:
			intel.Status = domain.BrandStatusStockOnly
			report.StockOnly++
		default:
			intel.Status = domain.BrandStatusInactive
			report.Inactive++
		}

		if globalUnits > 0 {
			intel.InventoryShare = round2(float64(intel.UnitsCount) / float64(globalUnits) * 100)
		}
		if globalRevenue > 0 {
			intel.RevenueShare = round2(intel.Revenue / globalRevenue * 100)
		}

		// Restock wins over risk when both would fire.
		if intel.RevenueShare > th.RestockRevenueShare && intel.UnitsCount < th.RestockMaxUnits {
			intel.Alert = domain.BrandAlertRestock
		} else if intel.InventoryShare > th.RiskInventoryShare && intel.RevenueShare < th.RiskMaxRevenueShare {
			intel.Alert = domain.BrandAlertRisk
		}

		if intel.UnitsCount == 0 && intel.SoldUnits == 0 {
			report.DeadBrands = append(report.DeadBrands, brand.Name)
		}
		if intel.Revenue > 0 {
			report.RevenueSeries = append(report.RevenueSeries, domain.ChartPoint{
				Label: brand.Name,
				Value: round2(intel.Revenue),
			})
		}

		report.Brands = append(report.Brands, intel)
	}

	report.Total = len(report.Brands)
	sort.SliceStable(report.RevenueSeries, func(a, b int) bool {
		return report.RevenueSeries[a].Value > report.RevenueSeries[b].Value
	})

	return report
}

// UsageMatcher decides whether a repair consumed a stock item. The production
// data has no structured part-to-repair link, so the default is a best-effort
// substring heuristic; a structured link can replace it without touching the
// calculators.
type UsageMatcher interface {
	Matches(repair domain.Repair, item domain.StockItem) bool
}

// SubstringMatcher reports usage when the repair's free-text description or
// internal notes contain the item's name or SKU. Heuristic, not
// authoritative: short or generic item names over-match.
type SubstringMatcher struct{}

func (SubstringMatcher) Matches(repair domain.Repair, item domain.StockItem) bool {
	text := repair.Description + "\n" + repair.InternalNotes
	if item.Name != "" && strings.Contains(text, item.Name) {
		return true
	}
	if item.SKU != "" && strings.Contains(text, item.SKU) {
		return true
	}
	return false
}

// Stock derives the per-item intelligence view: sales/usage totals, margin,
// consumption velocity, depletion forecast and the lifecycle timeline.
func Stock(snap domain.Snapshot, idx *Index, th Thresholds, now time.Time, matcher UsageMatcher) domain.StockIntelReport {
	if matcher == nil {
		matcher = SubstringMatcher{}
	}

	report := domain.StockIntelReport{
		Items: make([]domain.StockIntel, 0, len(snap.StockItems)),
	}

	for _, item := range snap.StockItems {
		intel := domain.StockIntel{
			ItemID:        item.ID,
			Name:          item.Name,
			SKU:           item.SKU,
			Brand:         item.Brand,
			Category:      item.Category,
			Stock:         int(item.Stock),
			Price:         float64(item.Price),
			DaysRemaining: domain.NoSignalDays,
		}

		intel.CostPerUnit = float64(item.ActualCost)
		if intel.CostPerUnit <= 0 {
			intel.CostPerUnit = intel.Price * th.FallbackCostRate
		}
		intel.Margin = intel.Price - intel.CostPerUnit
		if intel.Price > 0 {
			intel.MarginPercent = round2(intel.Margin / intel.Price * 100)
		}

		timeline := make([]domain.StockTimelineEvent, 0, 8)
		var firstSale time.Time
		for _, sale := range idx.SalesByProductID[item.ID] {
			intel.TotalSold += int(sale.Qty)
			at, ok := normalize.ParseDate(sale.Date)
			if !ok {
				continue
			}
			if firstSale.IsZero() || at.Before(firstSale) {
				firstSale = at
			}
			timeline = append(timeline, domain.StockTimelineEvent{
				Kind:     domain.TimelineSale,
				Date:     at.UTC().Format(time.RFC3339),
				QtyDelta: -int(sale.Qty),
				RefID:    sale.ID,
				Detail:   sale.Customer,
			})
		}

		for _, repair := range snap.Repairs {
			if !matcher.Matches(repair, item) {
				continue
			}
			intel.TotalRepairUsed++
			if at, ok := normalize.ParseDate(repair.Date); ok {
				timeline = append(timeline, domain.StockTimelineEvent{
					Kind:     domain.TimelineRepairUse,
					Date:     at.UTC().Format(time.RFC3339),
					QtyDelta: -1,
					RefID:    repair.ID,
					Detail:   repair.Device,
				})
			}
		}

		for _, entry := range idx.LogsByRef[item.ID] {
			var kind string
			switch entry.ActionType {
			case domain.ActionStockAdded:
				kind = domain.TimelineStockAdded
			case domain.ActionStockAdjusted:
				kind = domain.TimelineStockAdjusted
			default:
				continue
			}
			at, ok := normalize.ParseDate(entry.Timestamp)
			if !ok {
				continue
			}
			timeline = append(timeline, domain.StockTimelineEvent{
				Kind:   kind,
				Date:   at.UTC().Format(time.RFC3339),
				RefID:  entry.ID,
				Detail: entry.UserName,
			})
		}

		// Newest first; ties keep insertion order (sales, then repair usage,
		// then stock events). Dates are all UTC RFC3339 at this point, so the
		// string order is the chronological order.
		sort.SliceStable(timeline, func(a, b int) bool {
			return timeline[a].Date > timeline[b].Date
		})
		intel.Timeline = timeline

		consumed := intel.TotalSold + intel.TotalRepairUsed
		days := 0
		if !firstSale.IsZero() {
			days = normalize.DaysBetween(firstSale, now)
		}
		if days < 1 {
			days = 1
		}
		velocity := float64(consumed) / float64(days)
		if velocity > 0 {
			intel.DaysRemaining = int(math.Floor(float64(intel.Stock) / velocity))
		}
		intel.DailyVelocity = round2(velocity)

		report.Usage.SoldUnits += intel.TotalSold
		report.Usage.RepairUnits += intel.TotalRepairUsed
		report.Items = append(report.Items, intel)
	}

	return report
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
