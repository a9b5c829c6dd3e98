package domain

// Report DTOs returned by the insight engine. All plain serializable data so
// they can cross the HTTP boundary unchanged.

const (
	LoyaltyLoyal      = "Loyal"
	LoyaltyOccasional = "Occasional"
	LoyaltyDormant    = "Dormant"
)

const (
	SourceRepair       = "Repair"
	SourcePOS          = "POS"
	SourceSubscription = "Subscription"
)

// NoSignalDays marks "no recorded visit" / "no depletion signal", distinct
// from zero.
const NoSignalDays = 999

type CustomerIntel struct {
	ClientID           string   `json:"client_id"`
	Name               string   `json:"name"`
	Phone              string   `json:"phone"`
	Email              string   `json:"email"`
	RepairCount        int      `json:"repair_count"`
	PurchaseCount      int      `json:"purchase_count"`
	TotalSpend         float64  `json:"total_spend"`
	LastVisit          string   `json:"last_visit,omitempty"`
	DaysSinceLastVisit int      `json:"days_since_last_visit"`
	Loyalty            string   `json:"loyalty"`
	NeedsSupport       bool     `json:"needs_support"`
	IsHighValue        bool     `json:"is_high_value"`
	IsNew              bool     `json:"is_new"`
	Sources            []string `json:"sources"`
}

type CustomerIntelReport struct {
	Total     int             `json:"total"`
	Active    int             `json:"active"`
	Returning int             `json:"returning"`
	Inactive  int             `json:"inactive"`
	Filtered  []CustomerIntel `json:"filtered"`
}

const (
	BrandStatusActive    = "Active"
	BrandStatusStockOnly = "Stock Only"
	BrandStatusInactive  = "Inactive"
)

const (
	BrandAlertRestock = "restock"
	BrandAlertRisk    = "risk"
)

type BrandIntel struct {
	BrandID        string  `json:"brand_id"`
	Name           string  `json:"name"`
	ItemsCount     int     `json:"items_count"`
	UnitsCount     int     `json:"units_count"`
	StockValue     float64 `json:"stock_value"`
	SoldUnits      int     `json:"sold_units"`
	Revenue        float64 `json:"revenue"`
	Status         string  `json:"status"`
	InventoryShare float64 `json:"inventory_share"`
	RevenueShare   float64 `json:"revenue_share"`
	Alert          string  `json:"alert,omitempty"`
}

// ChartPoint is one label/value pair of a chart series.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type BrandIntelReport struct {
	Total         int          `json:"total"`
	Active        int          `json:"active"`
	StockOnly     int          `json:"stock_only"`
	Inactive      int          `json:"inactive"`
	Brands        []BrandIntel `json:"brands"`
	DeadBrands    []string     `json:"dead_brands"`
	RevenueSeries []ChartPoint `json:"revenue_series"`
}

// Timeline event kinds, newest first in StockIntel.Timeline.
const (
	TimelineSale          = "sale"
	TimelineRepairUse     = "repair_use"
	TimelineStockAdded    = "stock_added"
	TimelineStockAdjusted = "stock_adjusted"
)

type StockTimelineEvent struct {
	Kind     string `json:"kind"`
	Date     string `json:"date"`
	QtyDelta int    `json:"qty_delta"`
	RefID    string `json:"ref_id,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

type StockIntel struct {
	ItemID          string               `json:"item_id"`
	Name            string               `json:"name"`
	SKU             string               `json:"sku"`
	Brand           string               `json:"brand"`
	Category        string               `json:"category"`
	Stock           int                  `json:"stock"`
	Price           float64              `json:"price"`
	CostPerUnit     float64              `json:"cost_per_unit"`
	Margin          float64              `json:"margin"`
	MarginPercent   float64              `json:"margin_percent"`
	TotalSold       int                  `json:"total_sold"`
	TotalRepairUsed int                  `json:"total_repair_used"`
	DailyVelocity   float64              `json:"daily_velocity"`
	DaysRemaining   int                  `json:"days_remaining"`
	Timeline        []StockTimelineEvent `json:"timeline"`
}

type StockUsageBreakdown struct {
	SoldUnits   int `json:"sold_units"`
	RepairUnits int `json:"repair_units"`
}

type StockIntelReport struct {
	Items []StockIntel        `json:"items"`
	Usage StockUsageBreakdown `json:"usage"`
}

const (
	LossHighPartsCost      = "High Parts Cost"
	LossOperationalDeficit = "Operational Deficit"
)

const (
	LoadHigh   = "High"
	LoadMedium = "Medium"
	LoadLight  = "Light"
)

type RepairProfit struct {
	RepairID       string  `json:"repair_id"`
	CustomerName   string  `json:"customer_name"`
	Device         string  `json:"device"`
	Brand          string  `json:"brand"`
	Status         string  `json:"status"`
	AssignedTo     string  `json:"assigned_to"`
	Cost           float64 `json:"cost"`
	PartsCost      float64 `json:"parts_cost"`
	TechnicianCost float64 `json:"technician_cost"`
	NetProfit      float64 `json:"net_profit"`
	Loss           bool    `json:"loss"`
	LossReason     string  `json:"loss_reason,omitempty"`
}

type TechnicianStats struct {
	Name    string  `json:"name"`
	Repairs int     `json:"repairs"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
	Load    string  `json:"load"`
}

type OperationsIntelReport struct {
	Technicians  []TechnicianStats `json:"technicians"`
	Losses       []RepairProfit    `json:"losses"`
	DailyRevenue []ChartPoint      `json:"daily_revenue"`
	DailyVolume  []ChartPoint      `json:"daily_volume"`
	TotalRevenue float64           `json:"total_revenue"`
	TotalProfit  float64           `json:"total_profit"`
}

// ReportParams are the assembler's filter/sort knobs. Zero value means "all".
type ReportParams struct {
	Search  string `json:"search"`
	Loyalty string `json:"loyalty"`
	Status  string `json:"status"`
	Sort    string `json:"sort"`
	Limit   int    `json:"limit"`
}

// DashboardReport merges the four intelligence views for a single snapshot.
type DashboardReport struct {
	SnapshotVersion string                `json:"snapshot_version"`
	GeneratedAt     string                `json:"generated_at"`
	Customers       CustomerIntelReport   `json:"customers"`
	Brands          BrandIntelReport      `json:"brands"`
	Stock           StockIntelReport      `json:"stock"`
	Operations      OperationsIntelReport `json:"operations"`
}
