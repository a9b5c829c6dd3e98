package store

import (
	"context"
	"errors"
	"time"

	"servisaja/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Repository owns every shop collection. The insight engine never talks to
// it directly: the service pulls one Snapshot per computation cycle and
// hands it over as an immutable value.
type Repository interface {
	// Snapshot returns a consistent copy of all collections plus a version
	// string that changes on every mutation.
	Snapshot(ctx context.Context) (domain.Snapshot, error)

	ListClients(ctx context.Context) ([]domain.Client, error)
	CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error)
	GetClientByName(ctx context.Context, name string) (*domain.Client, error)

	ListBrands(ctx context.Context) ([]domain.Brand, error)
	CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error)

	ListStockItems(ctx context.Context) ([]domain.StockItem, error)
	CreateStockItem(ctx context.Context, item domain.StockItem) (*domain.StockItem, error)
	GetStockItemByID(ctx context.Context, id string) (*domain.StockItem, error)
	AdjustStock(ctx context.Context, itemID string, delta int) (*domain.StockItem, error)

	ListSales(ctx context.Context) ([]domain.Sale, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)

	ListRepairs(ctx context.Context) ([]domain.Repair, error)
	CreateRepair(ctx context.Context, repair domain.Repair) (*domain.Repair, error)
	GetRepairByID(ctx context.Context, id string) (*domain.Repair, error)
	UpdateRepairStatus(ctx context.Context, id string, status string) (*domain.Repair, error)

	CreateComplaint(ctx context.Context, complaint domain.Complaint) (*domain.Complaint, error)

	CreateActivityLog(ctx context.Context, entry domain.ActivityLog) error
	ListActivityLogs(ctx context.Context, limit int) ([]domain.ActivityLog, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
