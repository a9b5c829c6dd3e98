package insight

import (
	"sort"
	"strings"
	"time"

	"servisaja/backend/internal/domain"
)

// Assemble runs the three calculators over one snapshot and applies the
// caller's filter/sort parameters. It is a pure merge: every metric is
// computed upstream, only predicates and comparators run here. Identical
// snapshot + now + params always produce identical output.
func Assemble(snap domain.Snapshot, th Thresholds, now time.Time, params domain.ReportParams, matcher UsageMatcher) domain.DashboardReport {
	idx := BuildIndex(snap)

	report := domain.DashboardReport{
		SnapshotVersion: snap.Version,
		GeneratedAt:     now.Format(time.RFC3339),
		Customers:       Customers(snap, idx, th, now),
		Brands:          Brands(snap, idx, th),
		Stock:           Stock(snap, idx, th, now, matcher),
		Operations:      Operations(snap, th),
	}

	report.Customers = FilterCustomers(report.Customers, params)
	report.Brands = FilterBrands(report.Brands, params)
	report.Stock = FilterStock(report.Stock, params)
	return report
}

// FilterCustomers applies search/loyalty filtering and ordering to a
// computed customer report. Aggregate counts stay snapshot-wide; only the
// row list is narrowed.
func FilterCustomers(report domain.CustomerIntelReport, params domain.ReportParams) domain.CustomerIntelReport {
	rows := make([]domain.CustomerIntel, 0, len(report.Filtered))
	needle := strings.ToLower(strings.TrimSpace(params.Search))
	for _, row := range report.Filtered {
		if needle != "" &&
			!strings.Contains(strings.ToLower(row.Name), needle) &&
			!strings.Contains(strings.ToLower(row.Phone), needle) &&
			!strings.Contains(strings.ToLower(row.Email), needle) {
			continue
		}
		if params.Loyalty != "" && row.Loyalty != params.Loyalty {
			continue
		}
		rows = append(rows, row)
	}

	switch params.Sort {
	case "name_asc":
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Name < rows[b].Name })
	case "recent":
		sort.SliceStable(rows, func(a, b int) bool {
			return rows[a].DaysSinceLastVisit < rows[b].DaysSinceLastVisit
		})
	default: // spend_desc
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].TotalSpend > rows[b].TotalSpend })
	}

	if params.Limit > 0 && len(rows) > params.Limit {
		rows = rows[:params.Limit]
	}
	report.Filtered = rows
	return report
}

// FilterBrands narrows and orders the brand rows; aggregates, dead-brand
// list and chart series are untouched.
func FilterBrands(report domain.BrandIntelReport, params domain.ReportParams) domain.BrandIntelReport {
	rows := make([]domain.BrandIntel, 0, len(report.Brands))
	needle := strings.ToLower(strings.TrimSpace(params.Search))
	for _, row := range report.Brands {
		if needle != "" && !strings.Contains(strings.ToLower(row.Name), needle) {
			continue
		}
		if params.Status != "" && row.Status != params.Status {
			continue
		}
		rows = append(rows, row)
	}

	switch params.Sort {
	case "name_asc":
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Name < rows[b].Name })
	case "units_desc":
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].UnitsCount > rows[b].UnitsCount })
	default: // revenue_desc
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Revenue > rows[b].Revenue })
	}

	if params.Limit > 0 && len(rows) > params.Limit {
		rows = rows[:params.Limit]
	}
	report.Brands = rows
	return report
}

// FilterStock narrows and orders the stock rows; the usage breakdown stays
// snapshot-wide.
func FilterStock(report domain.StockIntelReport, params domain.ReportParams) domain.StockIntelReport {
	rows := make([]domain.StockIntel, 0, len(report.Items))
	needle := strings.ToLower(strings.TrimSpace(params.Search))
	for _, row := range report.Items {
		if needle != "" &&
			!strings.Contains(strings.ToLower(row.Name), needle) &&
			!strings.Contains(strings.ToLower(row.SKU), needle) {
			continue
		}
		if params.Status != "" && row.Category != params.Status {
			continue
		}
		rows = append(rows, row)
	}

	switch params.Sort {
	case "name_asc":
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Name < rows[b].Name })
	case "stock_asc":
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Stock < rows[b].Stock })
	default: // velocity_desc
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].DailyVelocity > rows[b].DailyVelocity })
	}

	if params.Limit > 0 && len(rows) > params.Limit {
		rows = rows[:params.Limit]
	}
	report.Items = rows
	return report
}
