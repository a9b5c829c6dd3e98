package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"servisaja/backend/internal/domain"
	"servisaja/backend/internal/store"
	"servisaja/backend/internal/store/memory"
)

var serviceTestNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

// countingCache records cache traffic so tests can assert hit/miss behavior.
type countingCache struct {
	mu      sync.Mutex
	entries map[string]*domain.DashboardReport
	gets    int
	hits    int
	sets    int
}

func newCountingCache() *countingCache {
	return &countingCache{entries: make(map[string]*domain.DashboardReport)}
}

func (c *countingCache) Get(_ context.Context, key string) (*domain.DashboardReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	report, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return report, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, value *domain.DashboardReport, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = value
	return nil
}

func newTestService(t *testing.T) (*Service, *countingCache) {
	t.Helper()
	reports := newCountingCache()
	svc := New(memory.NewSeeded(), reports, "test-shop", time.Minute, "739154")
	svc.now = func() time.Time { return serviceTestNow }
	return svc, reports
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func staffCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "staff", Role: "staff"})
}

func TestCreateClientTrimsAndStamps(t *testing.T) {
	svc, _ := newTestService(t)

	client, err := svc.CreateClient(staffCtx(), domain.ClientCreateRequest{Name: "  Amna  ", Phone: " 0811 "})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if client.Name != "Amna" || client.Phone != "0811" {
		t.Fatalf("expected trimmed fields, got %+v", client)
	}
	if client.CreatedAt != serviceTestNow.Format(time.RFC3339) {
		t.Fatalf("expected injected timestamp, got %q", client.CreatedAt)
	}
	if client.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestCreateClientRequiresName(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.CreateClient(staffCtx(), domain.ClientCreateRequest{Name: "   "}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateClientRejectsDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateClient(staffCtx(), domain.ClientCreateRequest{Name: "Budi Santoso"})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate name, got %v", err)
	}
}

func TestCreateBrandRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.CreateBrand(staffCtx(), domain.BrandCreateRequest{Name: "Oppo"}); err == nil {
		t.Fatalf("expected staff brand create to be rejected")
	}

	brand, err := svc.CreateBrand(adminCtx(), domain.BrandCreateRequest{Name: "Oppo"})
	if err != nil {
		t.Fatalf("admin brand create: %v", err)
	}
	if brand.Name != "Oppo" {
		t.Fatalf("unexpected brand: %+v", brand)
	}
}

func TestCreateStockItemUppercasesSKU(t *testing.T) {
	svc, _ := newTestService(t)

	item, err := svc.CreateStockItem(adminCtx(), domain.StockItemCreateRequest{
		Name: "LCD Oppo A17", SKU: "lcd-opp-a17", Price: 300000, Stock: 5,
	})
	if err != nil {
		t.Fatalf("create stock item: %v", err)
	}
	if item.SKU != "LCD-OPP-A17" {
		t.Fatalf("expected uppercased SKU, got %q", item.SKU)
	}
}

func TestAdjustStockRejectsZeroDelta(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.AdjustStock(adminCtx(), "itm-lcd-a15", domain.StockAdjustRequest{Delta: 0}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero delta, got %v", err)
	}
}

func TestRecordSaleDecrementsStockAndFallsBackToCatalogPrice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := staffCtx()

	before, err := svc.repo.GetStockItemByID(ctx, "itm-chg-inf")
	if err != nil {
		t.Fatalf("lookup item: %v", err)
	}

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{ProductID: "itm-chg-inf", Customer: "Budi Santoso", Qty: 2})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if float64(sale.Price) != float64(before.Price) {
		t.Fatalf("expected catalog price fallback %v, got %v", before.Price, sale.Price)
	}
	if float64(sale.Total) != float64(before.Price)*2 {
		t.Fatalf("expected total %v, got %v", float64(before.Price)*2, sale.Total)
	}

	after, _ := svc.repo.GetStockItemByID(ctx, "itm-chg-inf")
	if int(after.Stock) != int(before.Stock)-2 {
		t.Fatalf("expected stock %d, got %d", int(before.Stock)-2, int(after.Stock))
	}
}

func TestRecordSaleInsufficientStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := staffCtx()

	item, _ := svc.repo.GetStockItemByID(ctx, "itm-lcd-ip11")
	_, err := svc.RecordSale(ctx, domain.SaleCreateRequest{ProductID: "itm-lcd-ip11", Customer: "Siti Rahma", Qty: item.Stock + 1})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	unchanged, _ := svc.repo.GetStockItemByID(ctx, "itm-lcd-ip11")
	if int(unchanged.Stock) != int(item.Stock) {
		t.Fatalf("expected stock unchanged at %d, got %d", int(item.Stock), int(unchanged.Stock))
	}
}

func TestCreateRepairStartsPending(t *testing.T) {
	svc, _ := newTestService(t)

	repair, err := svc.CreateRepair(staffCtx(), domain.RepairCreateRequest{
		CustomerName: "Budi Santoso", Device: "Samsung A15", Cost: 250000,
	})
	if err != nil {
		t.Fatalf("create repair: %v", err)
	}
	if repair.Status != domain.RepairStatusPending {
		t.Fatalf("expected pending, got %q", repair.Status)
	}
}

func TestCreateRepairRejectsNegativeCosts(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateRepair(staffCtx(), domain.RepairCreateRequest{CustomerName: "Budi Santoso", Cost: -1})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateRepairStatusManagerPINGuard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := staffCtx()

	// Regular transitions need no PIN.
	if _, err := svc.UpdateRepairStatus(ctx, "rep-004", domain.RepairStatusRequest{Status: "IN_PROGRESS"}); err != nil {
		t.Fatalf("regular transition: %v", err)
	}

	if _, err := svc.UpdateRepairStatus(ctx, "rep-004", domain.RepairStatusRequest{Status: domain.RepairStatusCancelled}); err == nil {
		t.Fatalf("expected cancel without PIN to fail")
	}
	if _, err := svc.UpdateRepairStatus(ctx, "rep-004", domain.RepairStatusRequest{Status: domain.RepairStatusCancelled, ManagerPIN: "000000"}); err == nil {
		t.Fatalf("expected cancel with wrong PIN to fail")
	}

	updated, err := svc.UpdateRepairStatus(ctx, "rep-004", domain.RepairStatusRequest{Status: domain.RepairStatusCancelled, ManagerPIN: "739154"})
	if err != nil {
		t.Fatalf("cancel with correct PIN: %v", err)
	}
	if updated.Status != domain.RepairStatusCancelled {
		t.Fatalf("expected cancelled, got %q", updated.Status)
	}
}

func TestUpdateRepairStatusRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.UpdateRepairStatus(staffCtx(), "rep-004", domain.RepairStatusRequest{Status: "exploded"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDashboardReportCachesBySnapshotVersion(t *testing.T) {
	svc, reports := newTestService(t)
	ctx := staffCtx()

	first, err := svc.DashboardReport(ctx, domain.ReportParams{})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if reports.sets != 1 || reports.hits != 0 {
		t.Fatalf("expected cold cache (1 set, 0 hits), got sets=%d hits=%d", reports.sets, reports.hits)
	}

	second, err := svc.DashboardReport(ctx, domain.ReportParams{})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if reports.hits != 1 {
		t.Fatalf("expected cache hit on identical snapshot, got %d hits", reports.hits)
	}
	if first.SnapshotVersion != second.SnapshotVersion {
		t.Fatalf("expected same snapshot version, got %q then %q", first.SnapshotVersion, second.SnapshotVersion)
	}

	// A mutation bumps the snapshot version and naturally misses the cache.
	if _, err := svc.CreateClient(ctx, domain.ClientCreateRequest{Name: "Cache Buster"}); err != nil {
		t.Fatalf("create client: %v", err)
	}
	third, err := svc.DashboardReport(ctx, domain.ReportParams{})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if third.SnapshotVersion == second.SnapshotVersion {
		t.Fatalf("expected version change after mutation")
	}
	if reports.sets != 2 {
		t.Fatalf("expected recompute after mutation, got %d sets", reports.sets)
	}
}

func TestDashboardReportCacheKeyVariesWithParams(t *testing.T) {
	svc, reports := newTestService(t)
	ctx := staffCtx()

	if _, err := svc.DashboardReport(ctx, domain.ReportParams{}); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if _, err := svc.DashboardReport(ctx, domain.ReportParams{Search: "budi"}); err != nil {
		t.Fatalf("dashboard with search: %v", err)
	}
	if reports.sets != 2 || reports.hits != 0 {
		t.Fatalf("expected distinct cache entries per params, got sets=%d hits=%d", reports.sets, reports.hits)
	}
}

func TestDashboardReportCacheKeyIsCaseSensitiveForFilters(t *testing.T) {
	svc, reports := newTestService(t)
	ctx := staffCtx()

	// Loyalty tiers are matched verbatim by the report filter, so "Loyal" and
	// "loyal" are different requests and must not share a cache entry.
	upper, err := svc.DashboardReport(ctx, domain.ReportParams{Loyalty: domain.LoyaltyLoyal})
	if err != nil {
		t.Fatalf("dashboard with Loyal filter: %v", err)
	}
	if len(upper.Customers.Filtered) == 0 {
		t.Fatalf("expected seeded loyal clients")
	}

	lower, err := svc.DashboardReport(ctx, domain.ReportParams{Loyalty: "loyal"})
	if err != nil {
		t.Fatalf("dashboard with loyal filter: %v", err)
	}
	if len(lower.Customers.Filtered) != 0 {
		t.Fatalf("expected no rows for lowercase tier, got %d (cached rows leaked across params)", len(lower.Customers.Filtered))
	}
	if reports.sets != 2 || reports.hits != 0 {
		t.Fatalf("expected distinct cache entries, got sets=%d hits=%d", reports.sets, reports.hits)
	}
}

func TestSectionReportsMatchDashboard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := staffCtx()

	dashboard, err := svc.DashboardReport(ctx, domain.ReportParams{})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	customers, err := svc.CustomerReport(ctx, domain.ReportParams{})
	if err != nil {
		t.Fatalf("customer report: %v", err)
	}
	if customers.Total != dashboard.Customers.Total {
		t.Fatalf("expected section report to match dashboard, got %d vs %d", customers.Total, dashboard.Customers.Total)
	}

	ops, err := svc.OperationsReport(ctx)
	if err != nil {
		t.Fatalf("operations report: %v", err)
	}
	if ops.TotalRevenue != dashboard.Operations.TotalRevenue {
		t.Fatalf("expected matching operations revenue")
	}
}

func TestListAuditLogsRejectsBadDate(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.ListAuditLogs(staffCtx(), "29/08/2026", 10); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-ISO date, got %v", err)
	}
}

func TestMutationsWriteActivityLogs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := adminCtx()

	before, _ := svc.ListActivityLogs(ctx, 500)
	if _, err := svc.CreateClient(ctx, domain.ClientCreateRequest{Name: "Log Check"}); err != nil {
		t.Fatalf("create client: %v", err)
	}
	after, _ := svc.ListActivityLogs(ctx, 500)
	if len(after) != len(before)+1 {
		t.Fatalf("expected one new activity log, got %d -> %d", len(before), len(after))
	}
	if after[0].ActionType != domain.ActionClientCreate || after[0].UserName != "admin" {
		t.Fatalf("expected newest log to be the client_create by admin, got %+v", after[0])
	}
}
