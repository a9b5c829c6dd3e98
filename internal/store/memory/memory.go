package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"servisaja/backend/internal/domain"
	"servisaja/backend/internal/normalize"
	"servisaja/backend/internal/store"
	"servisaja/backend/internal/xid"
)

// Store is the in-memory repository used for dev/demo mode and tests.
// Collections are append-only slices so snapshot ordering is stable.
type Store struct {
	mu            sync.RWMutex
	revision      uint64
	clients       []domain.Client
	brands        []domain.Brand
	stockItems    []domain.StockItem
	sales         []domain.Sale
	repairs       []domain.Repair
	complaints    []domain.Complaint
	subscriptions []domain.Subscription
	activityLogs  []domain.ActivityLog
	auditLogs     []domain.AuditLog
	users         map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. These credentials
// are never used in production (the backend uses PostgreSQL when
// DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"staff", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{users: seedUsers()}
}

// NewSeeded returns a store pre-populated with a small repair shop: brands,
// stock, clients, sales and repairs spread over the last two months. A few
// sale dates deliberately use the legacy DD/MM/YYYY format the old dashboard
// emitted, so the normalizer path is exercised in dev mode too.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	iso := func(daysAgo int) string { return now.AddDate(0, 0, -daysAgo).Format(time.RFC3339) }
	legacy := func(daysAgo int) string { return now.AddDate(0, 0, -daysAgo).Format("02/01/2006") }

	s.brands = []domain.Brand{
		{ID: "brand-samsung", Name: "Samsung", Description: "Ponsel dan tablet Samsung"},
		{ID: "brand-apple", Name: "Apple", Description: "iPhone dan iPad"},
		{ID: "brand-xiaomi", Name: "Xiaomi", Description: "Ponsel Xiaomi dan Redmi"},
		{ID: "brand-infinix", Name: "Infinix", Description: "Ponsel entry-level"},
		{ID: "brand-nokia", Name: "Nokia", Description: "Stok lama, tidak aktif"},
	}

	s.stockItems = []domain.StockItem{
		{ID: "itm-lcd-a15", Name: "LCD Samsung A15", SKU: "LCD-SAM-A15", Brand: "Samsung", Category: "screen", Price: 450000, ActualCost: 310000, Stock: 12},
		{ID: "itm-bat-a15", Name: "Baterai Samsung A15", SKU: "BAT-SAM-A15", Brand: "Samsung", Category: "battery", Price: 180000, ActualCost: 0, Stock: 20},
		{ID: "itm-lcd-ip11", Name: "LCD iPhone 11", SKU: "LCD-IP-11", Brand: "Apple", Category: "screen", Price: 850000, ActualCost: 620000, Stock: 4},
		{ID: "itm-bat-ip11", Name: "Baterai iPhone 11", SKU: "BAT-IP-11", Brand: "Apple", Category: "battery", Price: 350000, ActualCost: 240000, Stock: 7},
		{ID: "itm-lcd-rn12", Name: "LCD Redmi Note 12", SKU: "LCD-XIA-RN12", Brand: "Xiaomi", Category: "screen", Price: 380000, ActualCost: 260000, Stock: 9},
		{ID: "itm-chg-inf", Name: "Charger Infinix 33W", SKU: "CHG-INF-33", Brand: "Infinix", Category: "accessory", Price: 95000, ActualCost: 52000, Stock: 30},
		{ID: "itm-tg-uni", Name: "Tempered Glass Universal", SKU: "TG-UNI-01", Brand: "", Category: "accessory", Price: 25000, ActualCost: 9000, Stock: 80},
	}

	s.clients = []domain.Client{
		{ID: "cli-001", Name: "Budi Santoso", Phone: "081234567801", Email: "budi@example.com", CreatedAt: iso(120)},
		{ID: "cli-002", Name: "Siti Rahma", Phone: "081234567802", Email: "siti@example.com", CreatedAt: iso(75)},
		{ID: "cli-003", Name: "Andi Wijaya", Phone: "081234567803", Email: "andi@example.com", CreatedAt: iso(40)},
		{ID: "cli-004", Name: "Dewi Lestari", Phone: "081234567804", Email: "dewi@example.com", CreatedAt: iso(10)},
		{ID: "cli-005", Name: "Rudi Hartono", Phone: "081234567805", Email: "", CreatedAt: iso(2)},
	}

	s.sales = []domain.Sale{
		{ID: "sale-001", ProductID: "itm-chg-inf", ProductName: "Charger Infinix 33W", Customer: "Budi Santoso", Qty: 1, Price: 95000, Total: 95000, Date: iso(55)},
		{ID: "sale-002", ProductID: "itm-tg-uni", ProductName: "Tempered Glass Universal", Customer: "Budi Santoso", Qty: 2, Price: 25000, Total: 50000, Date: legacy(41)},
		{ID: "sale-003", ProductID: "itm-bat-ip11", ProductName: "Baterai iPhone 11", Customer: "Siti Rahma", Qty: 1, Price: 350000, Total: 350000, Date: iso(30)},
		{ID: "sale-004", ProductID: "itm-lcd-ip11", ProductName: "LCD iPhone 11", Customer: "Andi Wijaya", Qty: 1, Price: 850000, Total: 850000, Date: iso(21)},
		{ID: "sale-005", ProductID: "itm-tg-uni", ProductName: "Tempered Glass Universal", Customer: "Dewi Lestari", Qty: 3, Price: 25000, Total: 75000, Date: legacy(9)},
		{ID: "sale-006", ProductID: "itm-chg-inf", ProductName: "Charger Infinix 33W", Customer: "Siti Rahma", Qty: 1, Price: 95000, Total: 95000, Date: iso(5)},
	}

	s.repairs = []domain.Repair{
		{ID: "rep-001", CustomerName: "Budi Santoso", Device: "Samsung A15", Brand: "Samsung", Description: "Ganti LCD Samsung A15, layar pecah", Cost: 550000, Status: domain.RepairStatusDelivered, AssignedTo: "Agus", PartsCost: 310000, TechnicianCost: 50000, Date: iso(50)},
		{ID: "rep-002", CustomerName: "Siti Rahma", Device: "iPhone 11", Brand: "Apple", Description: "Baterai drop, pasang Baterai iPhone 11", Cost: 420000, Status: domain.RepairStatusDelivered, AssignedTo: "Agus", PartsCost: 240000, TechnicianCost: 40000, Date: iso(28)},
		{ID: "rep-003", CustomerName: "Andi Wijaya", Device: "Redmi Note 12", Brand: "Xiaomi", Description: "Ganti LCD Redmi Note 12", Cost: 300000, Status: domain.RepairStatusCompleted, AssignedTo: "Joko", PartsCost: 320000, TechnicianCost: 30000, Date: iso(14)},
		{ID: "rep-004", CustomerName: "Budi Santoso", Device: "Samsung A15", Brand: "Samsung", Description: "Mati total, cek mesin", Cost: 150000, Status: domain.RepairStatusDiagnosing, AssignedTo: "Joko", PartsCost: 0, TechnicianCost: 25000, Date: iso(6)},
		{ID: "rep-005", CustomerName: "Dewi Lestari", Device: "Infinix Hot 30", Brand: "Infinix", Description: "Port charger longgar", Cost: 120000, Status: domain.RepairStatusInProgress, AssignedTo: "Agus", PartsCost: 30000, TechnicianCost: 20000, Date: iso(3)},
		{ID: "rep-006", CustomerName: "Rudi Hartono", Device: "iPhone 11", Brand: "Apple", Description: "Konsultasi, batal servis", Cost: 0, Status: domain.RepairStatusCancelled, AssignedTo: "", PartsCost: 0, TechnicianCost: 0, Date: iso(1)},
	}

	s.complaints = []domain.Complaint{
		{ID: "cmp-001", User: "Andi Wijaya", Subject: "Servis lama selesai", Status: "open", Date: iso(12)},
		{ID: "cmp-002", User: "Andi Wijaya", Subject: "LCD bergaris setelah servis", Status: "open", Date: iso(4)},
	}

	s.subscriptions = []domain.Subscription{
		{ID: "sub-001", Customer: "Siti Rahma", Plan: "priority-care", Status: domain.SubscriptionStatusActive},
		{ID: "sub-002", Customer: "Rudi Hartono", Plan: domain.SubscriptionPlanTrial, Status: domain.SubscriptionStatusActive},
	}

	for _, item := range s.stockItems {
		s.activityLogs = append(s.activityLogs, domain.ActivityLog{
			ID:         xid.New("act"),
			ActionType: domain.ActionStockAdded,
			RefID:      item.ID,
			UserName:   "admin",
			Timestamp:  iso(60),
		})
	}

	s.revision = 1
	return s
}

func (s *Store) bump() {
	s.revision++
}

func (s *Store) Snapshot(_ context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.Snapshot{
		Version:       fmt.Sprintf("mem-%d", s.revision),
		Clients:       append([]domain.Client(nil), s.clients...),
		Sales:         append([]domain.Sale(nil), s.sales...),
		Repairs:       append([]domain.Repair(nil), s.repairs...),
		StockItems:    append([]domain.StockItem(nil), s.stockItems...),
		Brands:        append([]domain.Brand(nil), s.brands...),
		ActivityLogs:  append([]domain.ActivityLog(nil), s.activityLogs...),
		Complaints:    append([]domain.Complaint(nil), s.complaints...),
		Subscriptions: append([]domain.Subscription(nil), s.subscriptions...),
	}
	return snap, nil
}

func (s *Store) ListClients(_ context.Context) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Client(nil), s.clients...), nil
}

func (s *Store) CreateClient(_ context.Context, client domain.Client) (*domain.Client, error) {
	if client.ID == "" || strings.TrimSpace(client.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.clients {
		if existing.Name == client.Name {
			return nil, fmt.Errorf("%w: client name already exists", store.ErrInvalidInput)
		}
	}
	s.clients = append(s.clients, client)
	s.bump()
	created := client
	return &created, nil
}

func (s *Store) GetClientByName(_ context.Context, name string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		if client.Name == name {
			found := client
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListBrands(_ context.Context) ([]domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Brand(nil), s.brands...), nil
}

func (s *Store) CreateBrand(_ context.Context, brand domain.Brand) (*domain.Brand, error) {
	if brand.ID == "" || strings.TrimSpace(brand.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.brands {
		if existing.Name == brand.Name {
			return nil, fmt.Errorf("%w: brand name already exists", store.ErrInvalidInput)
		}
	}
	s.brands = append(s.brands, brand)
	s.bump()
	created := brand
	return &created, nil
}

func (s *Store) ListStockItems(_ context.Context) ([]domain.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.StockItem(nil), s.stockItems...), nil
}

func (s *Store) CreateStockItem(_ context.Context, item domain.StockItem) (*domain.StockItem, error) {
	if item.ID == "" || strings.TrimSpace(item.Name) == "" || item.Price < 0 || item.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.stockItems {
		if existing.SKU != "" && existing.SKU == item.SKU {
			return nil, fmt.Errorf("%w: sku already exists", store.ErrInvalidInput)
		}
	}
	s.stockItems = append(s.stockItems, item)
	s.bump()
	created := item
	return &created, nil
}

func (s *Store) GetStockItemByID(_ context.Context, id string) (*domain.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.stockItems {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) AdjustStock(_ context.Context, itemID string, delta int) (*domain.StockItem, error) {
	if itemID == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.stockItems {
		if s.stockItems[i].ID != itemID {
			continue
		}
		next := int(s.stockItems[i].Stock) + delta
		if next < 0 {
			return nil, store.ErrInsufficientStock
		}
		s.stockItems[i].Stock = normalize.Int(next)
		s.bump()
		updated := s.stockItems[i]
		return &updated, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Sale(nil), s.sales...), nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || sale.Qty < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, sale)
	s.bump()
	created := sale
	return &created, nil
}

func (s *Store) ListRepairs(_ context.Context) ([]domain.Repair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Repair(nil), s.repairs...), nil
}

func (s *Store) CreateRepair(_ context.Context, repair domain.Repair) (*domain.Repair, error) {
	if repair.ID == "" || strings.TrimSpace(repair.CustomerName) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.repairs = append(s.repairs, repair)
	s.bump()
	created := repair
	return &created, nil
}

func (s *Store) GetRepairByID(_ context.Context, id string) (*domain.Repair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, repair := range s.repairs {
		if repair.ID == id {
			found := repair
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateRepairStatus(_ context.Context, id string, status string) (*domain.Repair, error) {
	if id == "" || !domain.IsValidRepairStatus(status) {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.repairs {
		if s.repairs[i].ID != id {
			continue
		}
		s.repairs[i].Status = status
		s.bump()
		updated := s.repairs[i]
		return &updated, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateComplaint(_ context.Context, complaint domain.Complaint) (*domain.Complaint, error) {
	if complaint.ID == "" || strings.TrimSpace(complaint.User) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.complaints = append(s.complaints, complaint)
	s.bump()
	created := complaint
	return &created, nil
}

func (s *Store) CreateActivityLog(_ context.Context, entry domain.ActivityLog) error {
	if entry.ID == "" || entry.ActionType == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.activityLogs = append(s.activityLogs, entry)
	s.bump()
	return nil
}

func (s *Store) ListActivityLogs(_ context.Context, limit int) ([]domain.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 || limit > len(s.activityLogs) {
		limit = len(s.activityLogs)
	}
	// Newest entries last in storage; return newest first.
	result := make([]domain.ActivityLog, 0, limit)
	for i := len(s.activityLogs) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.activityLogs[i])
	}
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	if entry.ID == "" || entry.Action == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	result := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(result) < limit; i-- {
		entry := s.auditLogs[i]
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Username]; exists {
		return fmt.Errorf("%w: username already exists", store.ErrInvalidInput)
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		result = append(result, user)
	}
	return result, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}
