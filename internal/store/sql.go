package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"stockroom/m/domain"
)

// SQL stores everything through sqlx. Queries are written with ? bindvars and
// rebound for the driver, so the same adapter serves SQLite, PostgreSQL and
// MySQL. Ids are assigned as max+1 instead of relying on dialect-specific
// auto increment.
type SQL struct {
	sqlTx
	db *sqlx.DB
}

var _ Store = (*SQL)(nil)

func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{sqlTx: sqlTx{q: db}, db: db}
}

func (s *SQL) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(sqlTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// sqlTx runs against either the pool or an open transaction.
type sqlTx struct {
	q sqlx.ExtContext
}

func (t sqlTx) get(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := sqlx.GetContext(ctx, t.q, dest, t.q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t sqlTx) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, t.q, dest, t.q.Rebind(query), args...)
}

func (t sqlTx) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.q.ExecContext(ctx, t.q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t sqlTx) nextID(ctx context.Context, table string) (int64, error) {
	var id int64
	if _, err := t.get(ctx, &id, `SELECT COALESCE(MAX(id), 0) + 1 FROM `+table); err != nil {
		return 0, fmt.Errorf("next %s id: %w", table, err)
	}
	return id, nil
}

// Suppliers

const supplierColumns = `id, name, address, phone`

func (t sqlTx) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	suppliers := []domain.Supplier{}
	if err := t.selectAll(ctx, &suppliers, `SELECT `+supplierColumns+` FROM suppliers ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return suppliers, nil
}

func (t sqlTx) FindSupplierByID(ctx context.Context, id int64) (*domain.Supplier, error) {
	var s domain.Supplier
	found, err := t.get(ctx, &s, `SELECT `+supplierColumns+` FROM suppliers WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("find supplier %d: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

func (t sqlTx) FindSupplierByName(ctx context.Context, name string) (*domain.Supplier, error) {
	var s domain.Supplier
	found, err := t.get(ctx, &s, `SELECT `+supplierColumns+` FROM suppliers WHERE name_key = ? ORDER BY id LIMIT 1`, domain.SupplierKey(name))
	if err != nil {
		return nil, fmt.Errorf("find supplier %q: %w", name, err)
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

func (t sqlTx) CreateSupplier(ctx context.Context, s *domain.Supplier) error {
	id, err := t.nextID(ctx, "suppliers")
	if err != nil {
		return err
	}
	_, err = t.exec(ctx, `INSERT INTO suppliers (id, name, name_key, address, phone) VALUES (?, ?, ?, ?, ?)`,
		id, s.Name, domain.SupplierKey(s.Name), s.Address, s.Phone)
	if err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	s.ID = id
	return nil
}

func (t sqlTx) UpdateSupplier(ctx context.Context, s domain.Supplier) (bool, error) {
	n, err := t.exec(ctx, `UPDATE suppliers SET name = ?, name_key = ?, address = ?, phone = ? WHERE id = ?`,
		s.Name, domain.SupplierKey(s.Name), s.Address, s.Phone, s.ID)
	if err != nil {
		return false, fmt.Errorf("update supplier %d: %w", s.ID, err)
	}
	return n > 0, nil
}

// Garments

const garmentColumns = `id, garment_type, size, stock, purchase_price, sale_price, supplier_id`

func (t sqlTx) ListGarments(ctx context.Context) ([]domain.Garment, error) {
	garments := []domain.Garment{}
	if err := t.selectAll(ctx, &garments, `SELECT `+garmentColumns+` FROM garments ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list garments: %w", err)
	}
	return garments, nil
}

func (t sqlTx) FindGarmentByID(ctx context.Context, id int64) (*domain.Garment, error) {
	var g domain.Garment
	found, err := t.get(ctx, &g, `SELECT `+garmentColumns+` FROM garments WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("find garment %d: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &g, nil
}

func (t sqlTx) CreateGarment(ctx context.Context, g *domain.Garment) error {
	id, err := t.nextID(ctx, "garments")
	if err != nil {
		return err
	}
	_, err = t.exec(ctx, `INSERT INTO garments (`+garmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, g.Type, g.Size, g.Stock, g.PurchasePrice, g.SalePrice, g.SupplierID)
	if err != nil {
		return fmt.Errorf("insert garment: %w", err)
	}
	g.ID = id
	return nil
}

func (t sqlTx) UpdateGarment(ctx context.Context, g domain.Garment) (bool, error) {
	n, err := t.exec(ctx, `UPDATE garments SET garment_type = ?, size = ?, stock = ?, sale_price = ? WHERE id = ?`,
		g.Type, g.Size, g.Stock, g.SalePrice, g.ID)
	if err != nil {
		return false, fmt.Errorf("update garment %d: %w", g.ID, err)
	}
	return n > 0, nil
}

func (t sqlTx) AdjustStock(ctx context.Context, garmentID int64, delta int) error {
	// The guard sees the row as locked by the UPDATE: a decrement committed
	// first leaves nothing to match.
	n, err := t.exec(ctx, `UPDATE garments SET stock = stock + ? WHERE id = ? AND stock + ? >= 0`, delta, garmentID, delta)
	if err != nil {
		return fmt.Errorf("adjust stock of garment %d: %w", garmentID, err)
	}
	if n > 0 {
		return nil
	}
	var id int64
	found, err := t.get(ctx, &id, `SELECT id FROM garments WHERE id = ?`, garmentID)
	if err != nil {
		return fmt.Errorf("adjust stock of garment %d: %w", garmentID, err)
	}
	if !found {
		return fmt.Errorf("adjust stock of garment %d: %w", garmentID, ErrNotFound)
	}
	return fmt.Errorf("adjust stock of garment %d by %d: %w", garmentID, delta, ErrNegativeStock)
}

func (t sqlTx) DeleteGarment(ctx context.Context, id int64) (bool, int, error) {
	var saleIDs []int64
	if err := t.selectAll(ctx, &saleIDs, `SELECT DISTINCT sale_id FROM sale_items WHERE garment_id = ?`, id); err != nil {
		return false, 0, fmt.Errorf("find sales of garment %d: %w", id, err)
	}

	if len(saleIDs) > 0 {
		for _, table := range []string{"sale_items", "sales"} {
			column := "id"
			if table == "sale_items" {
				column = "sale_id"
			}
			query, args, err := sqlx.In(`DELETE FROM `+table+` WHERE `+column+` IN (?)`, saleIDs)
			if err != nil {
				return false, 0, fmt.Errorf("prepare delete from %s: %w", table, err)
			}
			if _, err := t.exec(ctx, query, args...); err != nil {
				return false, 0, fmt.Errorf("delete from %s: %w", table, err)
			}
		}
	}

	n, err := t.exec(ctx, `DELETE FROM garments WHERE id = ?`, id)
	if err != nil {
		return false, 0, fmt.Errorf("delete garment %d: %w", id, err)
	}
	return n > 0, len(saleIDs), nil
}

// Sales

func (t sqlTx) ListSales(ctx context.Context) ([]domain.Sale, error) {
	sales := []domain.Sale{}
	if err := t.selectAll(ctx, &sales, `SELECT id, sale_date, total FROM sales ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	var items []domain.SaleItem
	if err := t.selectAll(ctx, &items, `SELECT sale_id, line_no, garment_id, quantity, unit_price FROM sale_items ORDER BY sale_id, line_no`); err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}

	itemsBySale := make(map[int64][]domain.SaleItem)
	for _, item := range items {
		itemsBySale[item.SaleID] = append(itemsBySale[item.SaleID], item)
	}
	for i := range sales {
		sales[i].Items = itemsBySale[sales[i].ID]
		if sales[i].Items == nil {
			sales[i].Items = []domain.SaleItem{}
		}
	}
	return sales, nil
}

func (t sqlTx) FindSaleByID(ctx context.Context, id int64) (*domain.Sale, error) {
	var s domain.Sale
	found, err := t.get(ctx, &s, `SELECT id, sale_date, total FROM sales WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("find sale %d: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	s.Items = []domain.SaleItem{}
	if err := t.selectAll(ctx, &s.Items, `SELECT sale_id, line_no, garment_id, quantity, unit_price FROM sale_items WHERE sale_id = ? ORDER BY line_no`, id); err != nil {
		return nil, fmt.Errorf("find items of sale %d: %w", id, err)
	}
	return &s, nil
}

func (t sqlTx) CreateSale(ctx context.Context, s *domain.Sale) error {
	id, err := t.nextID(ctx, "sales")
	if err != nil {
		return err
	}
	if _, err := t.exec(ctx, `INSERT INTO sales (id, sale_date, total) VALUES (?, ?, ?)`, id, s.Date, s.Total); err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	for i := range s.Items {
		item := &s.Items[i]
		item.SaleID = id
		item.LineNo = i + 1
		_, err := t.exec(ctx, `INSERT INTO sale_items (sale_id, line_no, garment_id, quantity, unit_price) VALUES (?, ?, ?, ?, ?)`,
			item.SaleID, item.LineNo, item.GarmentID, item.Quantity, item.Price)
		if err != nil {
			return fmt.Errorf("insert sale item %d: %w", item.LineNo, err)
		}
	}
	s.ID = id
	return nil
}

// Users

const userColumns = `id, username, email, password, role, created_at`

func (s *SQL) CreateUser(ctx context.Context, u *domain.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	t := sqlTx{q: tx}

	email := strings.ToLower(u.Email)
	var existing int64
	found, err := t.get(ctx, &existing, `SELECT id FROM users WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("check user %s: %w", email, err)
	}
	if found {
		return fmt.Errorf("create user %s: %w", email, ErrDuplicate)
	}

	id, err := t.nextID(ctx, "users")
	if err != nil {
		return err
	}
	if u.CreatedAt == "" {
		u.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err = t.exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		id, u.Username, email, u.Password, u.Role, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	u.ID = id
	u.Email = email
	return nil
}

func (s *SQL) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	found, err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", email, err)
	}
	if !found {
		return nil, nil
	}
	return &u, nil
}

func (s *SQL) CountUsers(ctx context.Context) (int, error) {
	var n int
	if _, err := s.get(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *SQL) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	n, err := s.exec(ctx, `UPDATE users SET password = ? WHERE id = ?`, hash, userID)
	if err != nil {
		return fmt.Errorf("update password for user %d: %w", userID, err)
	}
	if n == 0 {
		return fmt.Errorf("update password for user %d: %w", userID, ErrNotFound)
	}
	return nil
}
