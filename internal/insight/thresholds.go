package insight

// Thresholds collects every cutoff the calculators classify against. The
// dashboard historically hardcoded these inside render logic; they live here
// so they are tunable and unit-testable without touching calculation code.
type Thresholds struct {
	// Loyalty tiers: total visits (repairs + purchases) for Loyal/Occasional.
	LoyalVisits      int
	OccasionalVisits int

	// High-value ranking depth (top-N by spend, top-N by repair count, union).
	HighValueRank int

	// A client counts as new when created within this many days.
	NewClientDays int

	// needsSupport triggers at either count.
	SupportComplaints    int
	SupportCancellations int

	// Aggregate lifecycle buckets for the customer report.
	ActiveDays   int
	InactiveDays int

	// Brand alert heuristics. Restock is evaluated before risk.
	RestockRevenueShare float64
	RestockMaxUnits     int
	RiskInventoryShare  float64
	RiskMaxRevenueShare float64

	// Technician load classification.
	HighLoadRepairs   int
	MediumLoadRepairs int

	// Cost basis fallback when a stock item has no recorded actual cost.
	FallbackCostRate float64
}

// DefaultThresholds mirrors the dashboard's historical magic numbers.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LoyalVisits:          3,
		OccasionalVisits:     1,
		HighValueRank:        5,
		NewClientDays:        7,
		SupportComplaints:    2,
		SupportCancellations: 2,
		ActiveDays:           30,
		InactiveDays:         90,
		RestockRevenueShare:  15,
		RestockMaxUnits:      5,
		RiskInventoryShare:   30,
		RiskMaxRevenueShare:  5,
		HighLoadRepairs:      5,
		MediumLoadRepairs:    2,
		FallbackCostRate:     0.6,
	}
}
