package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"strings"
	"time"

	"servisaja/backend/internal/cache"
	"servisaja/backend/internal/domain"
	"servisaja/backend/internal/insight"
	"servisaja/backend/internal/normalize"
	"servisaja/backend/internal/store"
	"servisaja/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	reports    cache.ReportCache
	shopID     string
	reportTTL  time.Duration
	managerPIN string
	thresholds insight.Thresholds
	matcher    insight.UsageMatcher
	now        func() time.Time
}

func New(repo store.Repository, reports cache.ReportCache, shopID string, reportTTL time.Duration, managerPIN string) *Service {
	if shopID == "" {
		shopID = "main-shop"
	}
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if reportTTL <= 0 {
		reportTTL = 5 * time.Minute
	}

	return &Service{
		repo:       repo,
		reports:    reports,
		shopID:     shopID,
		reportTTL:  reportTTL,
		managerPIN: managerPIN,
		thresholds: insight.DefaultThresholds(),
		matcher:    insight.SubstringMatcher{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.repo.ListClients(ctx)
}

func (s *Service) CreateClient(ctx context.Context, req domain.ClientCreateRequest) (domain.Client, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" {
		return domain.Client{}, store.ErrInvalidInput
	}
	// Client names are the join key for sales and repairs; a duplicate would
	// silently merge two people's histories.
	if _, err := s.repo.GetClientByName(ctx, req.Name); err == nil {
		return domain.Client{}, fmt.Errorf("%w: client name already exists", store.ErrInvalidInput)
	}

	client := domain.Client{
		ID:        xid.New("cli"),
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		CreatedAt: s.now().Format(time.RFC3339),
	}

	created, err := s.repo.CreateClient(ctx, client)
	if err != nil {
		return domain.Client{}, err
	}

	s.logActivity(ctx, domain.ActionClientCreate, created.ID)
	s.logAudit(ctx, "client_create", "client", created.ID, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return s.repo.ListBrands(ctx)
}

func (s *Service) CreateBrand(ctx context.Context, req domain.BrandCreateRequest) (domain.Brand, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Brand{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Brand{}, store.ErrInvalidInput
	}

	brand := domain.Brand{
		ID:          xid.New("brand"),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
	}

	created, err := s.repo.CreateBrand(ctx, brand)
	if err != nil {
		return domain.Brand{}, err
	}

	s.logActivity(ctx, domain.ActionBrandCreate, created.ID)
	s.logAudit(ctx, "brand_create", "brand", created.ID, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) ListStockItems(ctx context.Context) ([]domain.StockItem, error) {
	return s.repo.ListStockItems(ctx)
}

func (s *Service) CreateStockItem(ctx context.Context, req domain.StockItemCreateRequest) (domain.StockItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.StockItem{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	if req.Name == "" || req.Price < 0 || req.ActualCost < 0 || req.Stock < 0 {
		return domain.StockItem{}, store.ErrInvalidInput
	}

	item := domain.StockItem{
		ID:         xid.New("itm"),
		Name:       req.Name,
		SKU:        req.SKU,
		Brand:      strings.TrimSpace(req.Brand),
		Category:   strings.TrimSpace(req.Category),
		Price:      req.Price,
		ActualCost: req.ActualCost,
		Stock:      req.Stock,
	}

	created, err := s.repo.CreateStockItem(ctx, item)
	if err != nil {
		return domain.StockItem{}, err
	}

	s.logActivity(ctx, domain.ActionStockAdded, created.ID)
	s.logAudit(ctx, "stock_item_create", "stock_item", created.ID, fmt.Sprintf("name=%s,stock=%d", created.Name, int(created.Stock)))
	return *created, nil
}

func (s *Service) AdjustStock(ctx context.Context, itemID string, req domain.StockAdjustRequest) (domain.StockItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.StockItem{}, fmt.Errorf("admin role required")
	}
	if itemID == "" || req.Delta == 0 {
		return domain.StockItem{}, store.ErrInvalidInput
	}

	updated, err := s.repo.AdjustStock(ctx, itemID, req.Delta)
	if err != nil {
		return domain.StockItem{}, err
	}

	s.logActivity(ctx, domain.ActionStockAdjusted, updated.ID)
	s.logAudit(ctx, "stock_adjust", "stock_item", updated.ID, fmt.Sprintf("delta=%d,reason=%s", req.Delta, strings.TrimSpace(req.Reason)))
	return *updated, nil
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

// RecordSale decrements stock, then persists the sale line. Price falls back
// to the catalog price when the request leaves it zero.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.Customer = strings.TrimSpace(req.Customer)
	if req.ProductID == "" || req.Qty < 1 {
		return domain.Sale{}, store.ErrInvalidInput
	}

	item, err := s.repo.GetStockItemByID(ctx, req.ProductID)
	if err != nil {
		return domain.Sale{}, err
	}

	price := req.Price
	if price <= 0 {
		price = item.Price
	}

	if _, err := s.repo.AdjustStock(ctx, item.ID, -int(req.Qty)); err != nil {
		return domain.Sale{}, err
	}

	sale := domain.Sale{
		ID:          xid.New("sale"),
		ProductID:   item.ID,
		ProductName: item.Name,
		Customer:    req.Customer,
		Qty:         req.Qty,
		Price:       price,
		Total:       normalize.Float(float64(price) * float64(req.Qty)),
		Date:        s.now().Format(time.RFC3339),
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		// Stock was already decremented; put it back so the ledger stays honest.
		if _, rbErr := s.repo.AdjustStock(ctx, item.ID, int(req.Qty)); rbErr != nil {
			log.Printf("[service] WARN: failed to restore stock after sale error item=%s: %v", item.ID, rbErr)
		}
		return domain.Sale{}, err
	}

	s.logActivity(ctx, domain.ActionSale, created.ID)
	s.logAudit(ctx, "sale_record", "sale", created.ID, fmt.Sprintf("product=%s,qty=%d,total=%.2f", created.ProductID, int(created.Qty), float64(created.Total)))
	return *created, nil
}

func (s *Service) ListRepairs(ctx context.Context) ([]domain.Repair, error) {
	return s.repo.ListRepairs(ctx)
}

func (s *Service) CreateRepair(ctx context.Context, req domain.RepairCreateRequest) (domain.Repair, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerName == "" {
		return domain.Repair{}, store.ErrInvalidInput
	}
	if req.Cost < 0 || req.PartsCost < 0 || req.TechnicianCost < 0 {
		return domain.Repair{}, store.ErrInvalidInput
	}

	repair := domain.Repair{
		ID:             xid.New("rep"),
		CustomerName:   req.CustomerName,
		Device:         strings.TrimSpace(req.Device),
		Brand:          strings.TrimSpace(req.Brand),
		Description:    strings.TrimSpace(req.Description),
		Cost:           req.Cost,
		Status:         domain.RepairStatusPending,
		AssignedTo:     strings.TrimSpace(req.AssignedTo),
		PartsCost:      req.PartsCost,
		TechnicianCost: req.TechnicianCost,
		Date:           s.now().Format(time.RFC3339),
		InternalNotes:  strings.TrimSpace(req.InternalNotes),
	}

	created, err := s.repo.CreateRepair(ctx, repair)
	if err != nil {
		return domain.Repair{}, err
	}

	s.logActivity(ctx, domain.ActionRepairCreate, created.ID)
	s.logAudit(ctx, "repair_create", "repair", created.ID, fmt.Sprintf("customer=%s,cost=%.2f", created.CustomerName, float64(created.Cost)))
	return *created, nil
}

// UpdateRepairStatus moves a ticket through its lifecycle. Cancelling or
// refunding a repair requires the manager PIN.
func (s *Service) UpdateRepairStatus(ctx context.Context, id string, req domain.RepairStatusRequest) (domain.Repair, error) {
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if id == "" || !domain.IsValidRepairStatus(req.Status) {
		return domain.Repair{}, store.ErrInvalidInput
	}

	if req.Status == domain.RepairStatusCancelled || req.Status == domain.RepairStatusRefunded {
		if !s.validManagerPIN(req.ManagerPIN) {
			return domain.Repair{}, fmt.Errorf("manager PIN required")
		}
	}

	updated, err := s.repo.UpdateRepairStatus(ctx, id, req.Status)
	if err != nil {
		return domain.Repair{}, err
	}

	s.logActivity(ctx, domain.ActionRepairStatus, updated.ID)
	s.logAudit(ctx, "repair_status", "repair", updated.ID, fmt.Sprintf("status=%s", updated.Status))
	return *updated, nil
}

func (s *Service) CreateComplaint(ctx context.Context, req domain.ComplaintCreateRequest) (domain.Complaint, error) {
	req.User = strings.TrimSpace(req.User)
	req.Subject = strings.TrimSpace(req.Subject)
	if req.User == "" || req.Subject == "" {
		return domain.Complaint{}, store.ErrInvalidInput
	}

	complaint := domain.Complaint{
		ID:      xid.New("cmp"),
		User:    req.User,
		Subject: req.Subject,
		Status:  "open",
		Date:    s.now().Format(time.RFC3339),
	}

	created, err := s.repo.CreateComplaint(ctx, complaint)
	if err != nil {
		return domain.Complaint{}, err
	}

	s.logActivity(ctx, domain.ActionComplaint, created.ID)
	s.logAudit(ctx, "complaint_create", "complaint", created.ID, fmt.Sprintf("user=%s", created.User))
	return *created, nil
}

func (s *Service) ListActivityLogs(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListActivityLogs(ctx, limit)
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = s.now().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, store.ErrInvalidInput
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

// DashboardReport assembles all four intelligence views from one snapshot.
// Reports are cached keyed by snapshot version and filter params, so writes
// invalidate naturally and repeated dashboard loads stay cheap.
func (s *Service) DashboardReport(ctx context.Context, params domain.ReportParams) (domain.DashboardReport, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return domain.DashboardReport{}, err
	}

	key := s.reportCacheKey(snap.Version, params)
	if cached, ok, err := s.reports.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: report cache read failed key=%s: %v", key, err)
	} else if ok {
		return *cached, nil
	}

	report := insight.Assemble(snap, s.thresholds, s.now(), params, s.matcher)

	if err := s.reports.Set(ctx, key, &report, s.reportTTL); err != nil {
		log.Printf("[service] WARN: report cache write failed key=%s: %v", key, err)
	}
	return report, nil
}

func (s *Service) CustomerReport(ctx context.Context, params domain.ReportParams) (domain.CustomerIntelReport, error) {
	report, err := s.DashboardReport(ctx, params)
	if err != nil {
		return domain.CustomerIntelReport{}, err
	}
	return report.Customers, nil
}

func (s *Service) BrandReport(ctx context.Context, params domain.ReportParams) (domain.BrandIntelReport, error) {
	report, err := s.DashboardReport(ctx, params)
	if err != nil {
		return domain.BrandIntelReport{}, err
	}
	return report.Brands, nil
}

func (s *Service) StockReport(ctx context.Context, params domain.ReportParams) (domain.StockIntelReport, error) {
	report, err := s.DashboardReport(ctx, params)
	if err != nil {
		return domain.StockIntelReport{}, err
	}
	return report.Stock, nil
}

func (s *Service) OperationsReport(ctx context.Context) (domain.OperationsIntelReport, error) {
	report, err := s.DashboardReport(ctx, domain.ReportParams{})
	if err != nil {
		return domain.OperationsIntelReport{}, err
	}
	return report.Operations, nil
}

func (s *Service) reportCacheKey(version string, params domain.ReportParams) string {
	// Loyalty, Status and Sort are matched verbatim by the report filters, so
	// the key must keep their exact form. Search is the only case-folded match.
	return fmt.Sprintf("report:%s:%s:%s|%s|%s|%s|%d",
		s.shopID,
		version,
		strings.ToLower(strings.TrimSpace(params.Search)),
		params.Loyalty,
		params.Status,
		params.Sort,
		params.Limit,
	)
}

func (s *Service) validManagerPIN(pin string) bool {
	if s.managerPIN == "" || pin == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.managerPIN), []byte(pin)) == 1
}

func (s *Service) logActivity(ctx context.Context, actionType string, refID string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateActivityLog(ctx, domain.ActivityLog{
		ID:         xid.New("act"),
		ActionType: actionType,
		RefID:      refID,
		UserName:   actor.Username,
		Timestamp:  s.now().Format(time.RFC3339),
	}); err != nil {
		log.Printf("[activity] WARN: failed to write activity log action=%s ref=%s: %v", actionType, refID, err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ShopID:        s.shopID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
