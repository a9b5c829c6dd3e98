package domain

import (
	"time"

	"servisaja/backend/internal/normalize"
)

// Client is a shop customer. Name doubles as the join key against sales and
// repairs because the upstream collections carry no foreign keys.
type Client struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type ClientCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Sale is a point-of-sale line. Customer references Client.Name and ProductID
// references StockItem.ID, both weakly.
type Sale struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Customer    string          `json:"customer"`
	Qty         normalize.Int   `json:"qty"`
	Price       normalize.Float `json:"price"`
	Total       normalize.Float `json:"total"`
	Date        string          `json:"date"`
}

type SaleCreateRequest struct {
	ProductID string          `json:"product_id"`
	Customer  string          `json:"customer"`
	Qty       normalize.Int   `json:"qty"`
	Price     normalize.Float `json:"price,omitempty"`
}

// Repair is a workshop job ticket. CustomerName, Brand and AssignedTo are
// weak references (client name, brand name, technician name).
type Repair struct {
	ID             string          `json:"id"`
	CustomerName   string          `json:"customer_name"`
	Device         string          `json:"device"`
	Brand          string          `json:"brand"`
	Description    string          `json:"description"`
	Cost           normalize.Float `json:"cost"`
	Status         string          `json:"status"`
	AssignedTo     string          `json:"assigned_to"`
	PartsCost      normalize.Float `json:"parts_cost"`
	TechnicianCost normalize.Float `json:"technician_cost"`
	Date           string          `json:"date"`
	InternalNotes  string          `json:"internal_notes,omitempty"`
}

type RepairCreateRequest struct {
	CustomerName   string          `json:"customer_name"`
	Device         string          `json:"device"`
	Brand          string          `json:"brand"`
	Description    string          `json:"description"`
	Cost           normalize.Float `json:"cost"`
	AssignedTo     string          `json:"assigned_to"`
	PartsCost      normalize.Float `json:"parts_cost"`
	TechnicianCost normalize.Float `json:"technician_cost"`
	InternalNotes  string          `json:"internal_notes"`
}

type RepairStatusRequest struct {
	Status     string `json:"status"`
	ManagerPIN string `json:"manager_pin,omitempty"`
}

// StockItem is a sellable part or accessory. ActualCost is the cost basis;
// when zero the engine falls back to Price*0.6.
type StockItem struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	Brand      string          `json:"brand"`
	Category   string          `json:"category"`
	Price      normalize.Float `json:"price"`
	ActualCost normalize.Float `json:"actual_cost"`
	Stock      normalize.Int   `json:"stock"`
}

type StockItemCreateRequest struct {
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	Brand      string          `json:"brand"`
	Category   string          `json:"category"`
	Price      normalize.Float `json:"price"`
	ActualCost normalize.Float `json:"actual_cost"`
	Stock      normalize.Int   `json:"stock"`
}

type StockAdjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type Brand struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type BrandCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ActivityLog records every mutation against the shop collections. The stock
// lifecycle timeline is derived from these entries.
type ActivityLog struct {
	ID         string `json:"id"`
	ActionType string `json:"action_type"`
	RefID      string `json:"ref_id"`
	UserName   string `json:"user_name"`
	Timestamp  string `json:"timestamp"`
}

type Complaint struct {
	ID      string `json:"id"`
	User    string `json:"user"`
	Subject string `json:"subject"`
	Status  string `json:"status"`
	Date    string `json:"date"`
}

type ComplaintCreateRequest struct {
	User    string `json:"user"`
	Subject string `json:"subject"`
}

// Subscription marks a client on a recurring service plan. An active
// non-trial plan contributes the Subscription source tag in customer intel.
type Subscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Plan     string `json:"plan"`
	Status   string `json:"status"`
}

// Snapshot is one immutable computation cycle input: every collection the
// insight engine reads, copied out of the store in a single call. Version
// changes whenever any collection mutates and keys the report cache.
type Snapshot struct {
	Version       string         `json:"version"`
	Clients       []Client       `json:"clients"`
	Sales         []Sale         `json:"sales"`
	Repairs       []Repair       `json:"repairs"`
	StockItems    []StockItem    `json:"stock_items"`
	Brands        []Brand        `json:"brands"`
	ActivityLogs  []ActivityLog  `json:"activity_logs"`
	Complaints    []Complaint    `json:"complaints"`
	Subscriptions []Subscription `json:"subscriptions"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ShopID        string    `json:"shop_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	RepairStatusPending      = "pending"
	RepairStatusInProgress   = "in_progress"
	RepairStatusDiagnosing   = "diagnosing"
	RepairStatusPartsOrdered = "parts_ordered"
	RepairStatusCompleted    = "completed"
	RepairStatusReady        = "ready"
	RepairStatusDelivered    = "delivered"
	RepairStatusCancelled    = "cancelled"
	RepairStatusRefunded     = "refunded"
)

const (
	SubscriptionStatusActive = "active"
	SubscriptionPlanTrial    = "trial"
)

const (
	ActionSale          = "sale"
	ActionRepairCreate  = "repair_create"
	ActionRepairStatus  = "repair_status"
	ActionStockAdded    = "stock_added"
	ActionStockAdjusted = "stock_adjusted"
	ActionClientCreate  = "client_create"
	ActionBrandCreate   = "brand_create"
	ActionComplaint     = "complaint"
)

// RepairStatuses lists every valid repair status, in lifecycle order.
var RepairStatuses = []string{
	RepairStatusPending,
	RepairStatusDiagnosing,
	RepairStatusPartsOrdered,
	RepairStatusInProgress,
	RepairStatusCompleted,
	RepairStatusReady,
	RepairStatusDelivered,
	RepairStatusCancelled,
	RepairStatusRefunded,
}

func IsValidRepairStatus(status string) bool {
	for _, s := range RepairStatuses {
		if s == status {
			return true
		}
	}
	return false
}
