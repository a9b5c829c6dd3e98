package insight

import (
	"sort"

	"servisaja/backend/internal/domain"
	"servisaja/backend/internal/normalize"
)

// unassignedTechnician buckets repairs with no assigned_to value so they
// still show up in workload totals.
const unassignedTechnician = "Unassigned"

// Operations derives the repair/technician intelligence view: per-repair
// margin and loss detection, per-technician workload, and the daily
// revenue/volume series. Read-only over repair status; transitions belong to
// the service layer.
func Operations(snap domain.Snapshot, th Thresholds) domain.OperationsIntelReport {
	report := domain.OperationsIntelReport{
		Technicians:  []domain.TechnicianStats{},
		Losses:       []domain.RepairProfit{},
		DailyRevenue: []domain.ChartPoint{},
		DailyVolume:  []domain.ChartPoint{},
	}

	statsByTech := make(map[string]*domain.TechnicianStats)
	techOrder := make([]string, 0, 8)
	revenueByDay := make(map[string]float64)
	volumeByDay := make(map[string]float64)
	days := make([]string, 0, 32)

	for _, repair := range snap.Repairs {
		profit := domain.RepairProfit{
			RepairID:       repair.ID,
			CustomerName:   repair.CustomerName,
			Device:         repair.Device,
			Brand:          repair.Brand,
			Status:         repair.Status,
			AssignedTo:     repair.AssignedTo,
			Cost:           float64(repair.Cost),
			PartsCost:      float64(repair.PartsCost),
			TechnicianCost: float64(repair.TechnicianCost),
		}
		profit.NetProfit = profit.Cost - (profit.PartsCost + profit.TechnicianCost)
		if profit.NetProfit < 0 {
			profit.Loss = true
			if profit.PartsCost > profit.Cost {
				profit.LossReason = domain.LossHighPartsCost
			} else {
				profit.LossReason = domain.LossOperationalDeficit
			}
			report.Losses = append(report.Losses, profit)
		}

		tech := repair.AssignedTo
		if tech == "" {
			tech = unassignedTechnician
		}
		stats, ok := statsByTech[tech]
		if !ok {
			stats = &domain.TechnicianStats{Name: tech}
			statsByTech[tech] = stats
			techOrder = append(techOrder, tech)
		}
		stats.Repairs++
		stats.Revenue += profit.Cost
		stats.Cost += profit.PartsCost + profit.TechnicianCost
		stats.Profit += profit.NetProfit

		report.TotalRevenue += profit.Cost
		report.TotalProfit += profit.NetProfit

		if at, ok := normalize.ParseDate(repair.Date); ok {
			day := at.Format("2006-01-02")
			if _, seen := revenueByDay[day]; !seen {
				days = append(days, day)
			}
			revenueByDay[day] += profit.Cost
			volumeByDay[day]++
		}
	}

	for _, tech := range techOrder {
		stats := statsByTech[tech]
		switch {
		case stats.Repairs > th.HighLoadRepairs:
			stats.Load = domain.LoadHigh
		case stats.Repairs > th.MediumLoadRepairs:
			stats.Load = domain.LoadMedium
		default:
			stats.Load = domain.LoadLight
		}
		report.Technicians = append(report.Technicians, *stats)
	}
	sort.SliceStable(report.Technicians, func(a, b int) bool {
		return report.Technicians[a].Repairs > report.Technicians[b].Repairs
	})

	sort.Strings(days)
	for _, day := range days {
		report.DailyRevenue = append(report.DailyRevenue, domain.ChartPoint{Label: day, Value: round2(revenueByDay[day])})
		report.DailyVolume = append(report.DailyVolume, domain.ChartPoint{Label: day, Value: volumeByDay[day]})
	}

	return report
}
