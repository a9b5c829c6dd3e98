package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"servisaja/backend/internal/domain"
	"servisaja/backend/internal/normalize"
	"servisaja/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// bumpRevision advances the single-row shop revision counter. Every mutation
// calls it inside the same statement set, so Snapshot versions change whenever
// any collection changes.
func bumpRevision(ctx context.Context, execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}) error {
	_, err := execer.ExecContext(ctx, `
		INSERT INTO shop_revision (id, revision)
		VALUES (1, 1)
		ON CONFLICT (id)
		DO UPDATE SET revision = shop_revision.revision + 1
	`)
	return err
}

// Snapshot reads every collection inside one repeatable-read transaction so
// the returned version matches the returned rows.
func (s *Store) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return snap, err
	}
	defer func() { _ = tx.Rollback() }()

	var revision int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE((SELECT revision FROM shop_revision WHERE id = 1), 0)
	`).Scan(&revision)
	if err != nil {
		return snap, err
	}
	snap.Version = fmt.Sprintf("pg-%d", revision)

	if snap.Clients, err = listClientsTx(ctx, tx); err != nil {
		return snap, err
	}
	if snap.Sales, err = listSalesTx(ctx, tx); err != nil {
		return snap, err
	}
	if snap.Repairs, err = listRepairsTx(ctx, tx); err != nil {
		return snap, err
	}
	if snap.StockItems, err = listStockItemsTx(ctx, tx); err != nil {
		return snap, err
	}
	if snap.Brands, err = listBrandsTx(ctx, tx); err != nil {
		return snap, err
	}
	if snap.ActivityLogs, err = listActivityLogsTx(ctx, tx, 0); err != nil {
		return snap, err
	}
	if snap.Complaints, err = listComplaintsTx(ctx, tx); err != nil {
		return snap, err
	}
	if snap.Subscriptions, err = listSubscriptionsTx(ctx, tx); err != nil {
		return snap, err
	}

	if err := tx.Commit(); err != nil {
		return snap, err
	}
	return snap, nil
}

type querier interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}

func listClientsTx(ctx context.Context, q querier) ([]domain.Client, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone,''), COALESCE(email,''), COALESCE(created_at,'')
		FROM clients
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]domain.Client, 0, 128)
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	return listClientsTx(ctx, s.db)
}

func (s *Store) CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error) {
	if client.ID == "" || strings.TrimSpace(client.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO clients (id, name, phone, email, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, client.ID, client.Name, nullIfEmpty(client.Phone), nullIfEmpty(client.Email), client.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: client name already exists", store.ErrInvalidInput)
		}
		return nil, err
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := client
	return &created, nil
}

func (s *Store) GetClientByName(ctx context.Context, name string) (*domain.Client, error) {
	var c domain.Client
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(phone,''), COALESCE(email,''), COALESCE(created_at,'')
		FROM clients
		WHERE name = $1
	`, name).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func listBrandsTx(ctx context.Context, q querier) ([]domain.Brand, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, COALESCE(description,'')
		FROM brands
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brands := make([]domain.Brand, 0, 32)
	for rows.Next() {
		var b domain.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.Description); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return brands, nil
}

func (s *Store) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return listBrandsTx(ctx, s.db)
}

func (s *Store) CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error) {
	if brand.ID == "" || strings.TrimSpace(brand.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO brands (id, name, description)
		VALUES ($1,$2,$3)
	`, brand.ID, brand.Name, brand.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: brand name already exists", store.ErrInvalidInput)
		}
		return nil, err
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := brand
	return &created, nil
}

func scanStockItem(rows *sql.Rows) (domain.StockItem, error) {
	var item domain.StockItem
	var price, actualCost float64
	var stock int
	err := rows.Scan(&item.ID, &item.Name, &item.SKU, &item.Brand, &item.Category, &price, &actualCost, &stock)
	if err != nil {
		return item, err
	}
	item.Price = normalize.Float(price)
	item.ActualCost = normalize.Float(actualCost)
	item.Stock = normalize.Int(stock)
	return item, nil
}

func listStockItemsTx(ctx context.Context, q querier) ([]domain.StockItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, COALESCE(sku,''), COALESCE(brand,''), COALESCE(category,''),
			price, actual_cost, stock
		FROM stock_items
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.StockItem, 0, 128)
	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListStockItems(ctx context.Context) ([]domain.StockItem, error) {
	return listStockItemsTx(ctx, s.db)
}

func (s *Store) CreateStockItem(ctx context.Context, item domain.StockItem) (*domain.StockItem, error) {
	if item.ID == "" || strings.TrimSpace(item.Name) == "" || item.Price < 0 || item.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_items (id, name, sku, brand, category, price, actual_cost, stock)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, item.ID, item.Name, nullIfEmpty(item.SKU), item.Brand, item.Category,
		float64(item.Price), float64(item.ActualCost), int(item.Stock))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sku already exists", store.ErrInvalidInput)
		}
		return nil, err
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := item
	return &created, nil
}

func (s *Store) GetStockItemByID(ctx context.Context, id string) (*domain.StockItem, error) {
	var item domain.StockItem
	var price, actualCost float64
	var stock int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(sku,''), COALESCE(brand,''), COALESCE(category,''),
			price, actual_cost, stock
		FROM stock_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.SKU, &item.Brand, &item.Category, &price, &actualCost, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.Price = normalize.Float(price)
	item.ActualCost = normalize.Float(actualCost)
	item.Stock = normalize.Int(stock)
	return &item, nil
}

func (s *Store) AdjustStock(ctx context.Context, itemID string, delta int) (*domain.StockItem, error) {
	if itemID == "" {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var item domain.StockItem
	var price, actualCost float64
	var stock int
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(sku,''), COALESCE(brand,''), COALESCE(category,''),
			price, actual_cost, stock
		FROM stock_items
		WHERE id = $1
		FOR UPDATE
	`, itemID).Scan(&item.ID, &item.Name, &item.SKU, &item.Brand, &item.Category, &price, &actualCost, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	next := stock + delta
	if next < 0 {
		return nil, store.ErrInsufficientStock
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE stock_items
		SET stock = $2
		WHERE id = $1
	`, itemID, next)
	if err != nil {
		return nil, err
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	item.Price = normalize.Float(price)
	item.ActualCost = normalize.Float(actualCost)
	item.Stock = normalize.Int(next)
	return &item, nil
}

func listSalesTx(ctx context.Context, q querier) ([]domain.Sale, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, COALESCE(product_id,''), COALESCE(product_name,''), COALESCE(customer,''),
			qty, price, total, COALESCE(date,'')
		FROM sales
		ORDER BY date ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 256)
	for rows.Next() {
		var sale domain.Sale
		var qty int
		var price, total float64
		if err := rows.Scan(&sale.ID, &sale.ProductID, &sale.ProductName, &sale.Customer, &qty, &price, &total, &sale.Date); err != nil {
			return nil, err
		}
		sale.Qty = normalize.Int(qty)
		sale.Price = normalize.Float(price)
		sale.Total = normalize.Float(total)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return listSalesTx(ctx, s.db)
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || sale.Qty < 1 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, product_id, product_name, customer, qty, price, total, date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sale.ID, nullIfEmpty(sale.ProductID), sale.ProductName, sale.Customer,
		int(sale.Qty), float64(sale.Price), float64(sale.Total), sale.Date)
	if err != nil {
		return nil, err
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

func scanRepair(rows *sql.Rows) (domain.Repair, error) {
	var repair domain.Repair
	var cost, partsCost, technicianCost float64
	err := rows.Scan(&repair.ID, &repair.CustomerName, &repair.Device, &repair.Brand, &repair.Description,
		&cost, &repair.Status, &repair.AssignedTo, &partsCost, &technicianCost, &repair.Date, &repair.InternalNotes)
	if err != nil {
		return repair, err
	}
	repair.Cost = normalize.Float(cost)
	repair.PartsCost = normalize.Float(partsCost)
	repair.TechnicianCost = normalize.Float(technicianCost)
	return repair, nil
}

func listRepairsTx(ctx context.Context, q querier) ([]domain.Repair, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, customer_name, COALESCE(device,''), COALESCE(brand,''), COALESCE(description,''),
			cost, status, COALESCE(assigned_to,''), parts_cost, technician_cost,
			COALESCE(date,''), COALESCE(internal_notes,'')
		FROM repairs
		ORDER BY date ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	repairs := make([]domain.Repair, 0, 256)
	for rows.Next() {
		repair, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		repairs = append(repairs, repair)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return repairs, nil
}

func (s *Store) ListRepairs(ctx context.Context) ([]domain.Repair, error) {
	return listRepairsTx(ctx, s.db)
}

func (s *Store) CreateRepair(ctx context.Context, repair domain.Repair) (*domain.Repair, error) {
	if repair.ID == "" || strings.TrimSpace(repair.CustomerName) == "" {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO repairs (
			id, customer_name, device, brand, description, cost, status,
			assigned_to, parts_cost, technician_cost, date, internal_notes
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, repair.ID, repair.CustomerName, repair.Device, repair.Brand, repair.Description,
		float64(repair.Cost), repair.Status, repair.AssignedTo,
		float64(repair.PartsCost), float64(repair.TechnicianCost), repair.Date, repair.InternalNotes)
	if err != nil {
		return nil, err
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := repair
	return &created, nil
}

func (s *Store) GetRepairByID(ctx context.Context, id string) (*domain.Repair, error) {
	var repair domain.Repair
	var cost, partsCost, technicianCost float64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, COALESCE(device,''), COALESCE(brand,''), COALESCE(description,''),
			cost, status, COALESCE(assigned_to,''), parts_cost, technician_cost,
			COALESCE(date,''), COALESCE(internal_notes,'')
		FROM repairs
		WHERE id = $1
	`, id).Scan(&repair.ID, &repair.CustomerName, &repair.Device, &repair.Brand, &repair.Description,
		&cost, &repair.Status, &repair.AssignedTo, &partsCost, &technicianCost, &repair.Date, &repair.InternalNotes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	repair.Cost = normalize.Float(cost)
	repair.PartsCost = normalize.Float(partsCost)
	repair.TechnicianCost = normalize.Float(technicianCost)
	return &repair, nil
}

func (s *Store) UpdateRepairStatus(ctx context.Context, id string, status string) (*domain.Repair, error) {
	if id == "" || !domain.IsValidRepairStatus(status) {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE repairs
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetRepairByID(ctx, id)
}

func listComplaintsTx(ctx context.Context, q querier) ([]domain.Complaint, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, username, COALESCE(subject,''), COALESCE(status,''), COALESCE(date,'')
		FROM complaints
		ORDER BY date ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	complaints := make([]domain.Complaint, 0, 32)
	for rows.Next() {
		var c domain.Complaint
		if err := rows.Scan(&c.ID, &c.User, &c.Subject, &c.Status, &c.Date); err != nil {
			return nil, err
		}
		complaints = append(complaints, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return complaints, nil
}

func (s *Store) CreateComplaint(ctx context.Context, complaint domain.Complaint) (*domain.Complaint, error) {
	if complaint.ID == "" || strings.TrimSpace(complaint.User) == "" {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO complaints (id, username, subject, status, date)
		VALUES ($1,$2,$3,$4,$5)
	`, complaint.ID, complaint.User, complaint.Subject, complaint.Status, complaint.Date)
	if err != nil {
		return nil, err
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := complaint
	return &created, nil
}

func listSubscriptionsTx(ctx context.Context, q querier) ([]domain.Subscription, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, customer, COALESCE(plan,''), COALESCE(status,'')
		FROM subscriptions
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]domain.Subscription, 0, 32)
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(&sub.ID, &sub.Customer, &sub.Plan, &sub.Status); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func listActivityLogsTx(ctx context.Context, q querier, limit int) ([]domain.ActivityLog, error) {
	query := `
		SELECT id, action_type, COALESCE(ref_id,''), COALESCE(user_name,''), COALESCE(timestamp,'')
		FROM activity_logs
		ORDER BY timestamp DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.ActivityLog, 0, 256)
	for rows.Next() {
		var entry domain.ActivityLog
		if err := rows.Scan(&entry.ID, &entry.ActionType, &entry.RefID, &entry.UserName, &entry.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateActivityLog(ctx context.Context, entry domain.ActivityLog) error {
	if entry.ID == "" || entry.ActionType == "" {
		return store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO activity_logs (id, action_type, ref_id, user_name, timestamp)
		VALUES ($1,$2,$3,$4,$5)
	`, entry.ID, entry.ActionType, nullIfEmpty(entry.RefID), entry.UserName, entry.Timestamp)
	if err != nil {
		return err
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListActivityLogs(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	if limit < 1 {
		limit = 100
	}
	return listActivityLogsTx(ctx, s.db, limit)
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" || entry.Action == "" {
		return store.ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, shop_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.ShopID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ShopID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "staff"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username already exists", store.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
