package insight

import (
	"sort"
	"time"

	"servisaja/backend/internal/domain"
	"servisaja/backend/internal/normalize"
)

// Customers derives the per-client intelligence view: lifetime value, visit
// recency, loyalty tier, support-risk flag and high-value ranking. A client
// with zero matched activity yields all-zero metrics and the 999 sentinel,
// never an error.
func Customers(snap domain.Snapshot, idx *Index, th Thresholds, now time.Time) domain.CustomerIntelReport {
	report := domain.CustomerIntelReport{
		Filtered: make([]domain.CustomerIntel, 0, len(snap.Clients)),
	}

	for _, client := range snap.Clients {
		sales := idx.SalesByCustomer[client.Name]
		repairs := idx.RepairsByCustomer[client.Name]

		intel := domain.CustomerIntel{
			ClientID:           client.ID,
			Name:               client.Name,
			Phone:              client.Phone,
			Email:              client.Email,
			RepairCount:        len(repairs),
			PurchaseCount:      len(sales),
			DaysSinceLastVisit: domain.NoSignalDays,
			Sources:            []string{},
		}

		cancelled := 0
		var lastVisit time.Time
		for _, repair := range repairs {
			intel.TotalSpend += float64(repair.Cost)
			if repair.Status == domain.RepairStatusCancelled {
				cancelled++
			}
			if at, ok := normalize.ParseDate(repair.Date); ok && at.After(lastVisit) {
				lastVisit = at
			}
		}
		for _, sale := range sales {
			intel.TotalSpend += float64(sale.Total)
			if at, ok := normalize.ParseDate(sale.Date); ok && at.After(lastVisit) {
				lastVisit = at
			}
		}

		if !lastVisit.IsZero() {
			intel.LastVisit = lastVisit.Format(time.RFC3339)
			intel.DaysSinceLastVisit = normalize.DaysBetween(lastVisit, now)
		}

		visits := intel.RepairCount + intel.PurchaseCount
		switch {
		case visits >= th.LoyalVisits:
			intel.Loyalty = domain.LoyaltyLoyal
		case visits >= th.OccasionalVisits:
			intel.Loyalty = domain.LoyaltyOccasional
		default:
			intel.Loyalty = domain.LoyaltyDormant
		}

		complaints := idx.ComplaintsByUser[client.Name]
		intel.NeedsSupport = complaints >= th.SupportComplaints || cancelled >= th.SupportCancellations

		if created, ok := normalize.ParseDate(client.CreatedAt); ok {
			age := normalize.DaysBetween(created, now)
			intel.IsNew = age >= 0 && age <= th.NewClientDays
		}

		if intel.RepairCount > 0 {
			intel.Sources = append(intel.Sources, domain.SourceRepair)
		}
		if intel.PurchaseCount > 0 {
			intel.Sources = append(intel.Sources, domain.SourcePOS)
		}
		if idx.SubscribedCustomers[client.Name] {
			intel.Sources = append(intel.Sources, domain.SourceSubscription)
		}

		report.Filtered = append(report.Filtered, intel)
	}

	markHighValue(report.Filtered, th.HighValueRank)

	report.Total = len(report.Filtered)
	for _, intel := range report.Filtered {
		hasVisit := intel.DaysSinceLastVisit != domain.NoSignalDays
		if hasVisit && intel.DaysSinceLastVisit <= th.ActiveDays {
			report.Active++
		}
		if intel.RepairCount+intel.PurchaseCount >= 2 {
			report.Returning++
		}
		if !hasVisit || intel.DaysSinceLastVisit > th.InactiveDays {
			report.Inactive++
		}
	}

	return report
}

// markHighValue flags the union of the top-N clients by total spend and the
// top-N by repair count.
func markHighValue(intels []domain.CustomerIntel, rank int) {
	if rank < 1 || len(intels) == 0 {
		return
	}

	bySpend := make([]int, len(intels))
	byRepairs := make([]int, len(intels))
	for i := range intels {
		bySpend[i] = i
		byRepairs[i] = i
	}
	sort.SliceStable(bySpend, func(a, b int) bool {
		return intels[bySpend[a]].TotalSpend > intels[bySpend[b]].TotalSpend
	})
	sort.SliceStable(byRepairs, func(a, b int) bool {
		return intels[byRepairs[a]].RepairCount > intels[byRepairs[b]].RepairCount
	})

	for i := 0; i < rank && i < len(intels); i++ {
		intels[bySpend[i]].IsHighValue = true
		intels[byRepairs[i]].IsHighValue = true
	}
}
