package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"stockroom/m/domain"
)

// Memory keeps everything in maps keyed by id. Operations are serialized by
// a single mutex.
type Memory struct {
	mu   sync.Mutex
	data *memData
}

var _ Store = (*Memory)(nil)

type memData struct {
	suppliers map[int64]domain.Supplier
	garments  map[int64]domain.Garment
	sales     map[int64]domain.Sale
	users     map[int64]domain.User
}

func NewMemory() *Memory {
	return &Memory{data: &memData{
		suppliers: make(map[int64]domain.Supplier),
		garments:  make(map[int64]domain.Garment),
		sales:     make(map[int64]domain.Sale),
		users:     make(map[int64]domain.User),
	}}
}

func (d *memData) clone() *memData {
	c := &memData{
		suppliers: make(map[int64]domain.Supplier, len(d.suppliers)),
		garments:  make(map[int64]domain.Garment, len(d.garments)),
		sales:     make(map[int64]domain.Sale, len(d.sales)),
		users:     make(map[int64]domain.User, len(d.users)),
	}
	for id, s := range d.suppliers {
		c.suppliers[id] = s
	}
	for id, g := range d.garments {
		c.garments[id] = copyGarment(g)
	}
	for id, s := range d.sales {
		c.sales[id] = copySale(s)
	}
	for id, u := range d.users {
		c.users[id] = u
	}
	return c
}

func copyGarment(g domain.Garment) domain.Garment {
	if g.Size != nil {
		size := *g.Size
		g.Size = &size
	}
	return g
}

func copySale(s domain.Sale) domain.Sale {
	items := make([]domain.SaleItem, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for id := range m {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func nextID[V any](m map[int64]V) int64 {
	var maxID int64
	for id := range m {
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

// Atomic holds the lock for the whole of fn and restores the previous state
// when fn fails.
func (m *Memory) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(memTx{d: m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) tx() (memTx, func()) {
	m.mu.Lock()
	return memTx{d: m.data}, m.mu.Unlock
}

func (m *Memory) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	tx, unlock := m.tx()
	defer unlock()
	return tx.ListSuppliers(ctx)
}

func (m *Memory) FindSupplierByID(ctx context.Context, id int64) (*domain.Supplier, error) {
	tx, unlock := m.tx()
	defer unlock()
	return tx.FindSupplierByID(ctx, id)
}

func (m *Memory) FindSupplierByName(ctx context.Context, name string) (*domain.Supplier, error) {
	tx, unlock := m.tx()
	defer unlock()
	return tx.FindSupplierByName(ctx, name)
}

func (m *Memory) CreateSupplier(ctx context.Context, s *domain.Supplier) error {
	tx, unlock := m.tx()
	defer unlock()
	return tx.CreateSupplier(ctx, s)
}

func (m *Memory) UpdateSupplier(ctx context.Context, s domain.Supplier) (bool, error) {
	tx, unlock := m.tx()
	defer unlock()
	return tx.UpdateSupplier(ctx, s)
}

func (m *Memory) ListGarments(ctx context.Context) ([]domain.Garment, error) {
	tx, unlock := m.tx()
	defer unlock()
	return tx.ListGarments(ctx)
}

func (m *Memory) FindGarmentByID(ctx context.Context, id int64) (*domain.Garment, error) {
	tx, unlock := m.tx()
	defer unlock()
	return tx.FindGarmentByID(ctx, id)
}

func (m *Memory) CreateGarment(ctx context.Context, g *domain.Garment) error {
	tx, unlock := m.tx()
	defer unlock()
	return tx.CreateGarment(ctx, g)
}

func (m *Memory) UpdateGarment(ctx context.Context, g domain.Garment) (bool, error) {
	tx, unlock := m.tx()
	defer unlock()
	return tx.UpdateGarment(ctx, g)
}

func (m *Memory) AdjustStock(ctx context.Context, garmentID int64, delta int) error {
	tx, unlock := m.tx()
	defer unlock()
	return tx.AdjustStock(ctx, garmentID, delta)
}

func (m *Memory) DeleteGarment(ctx context.Context, id int64) (bool, int, error) {
	tx, unlock := m.tx()
	defer unlock()
	return tx.DeleteGarment(ctx, id)
}

func (m *Memory) ListSales(ctx context.Context) ([]domain.Sale, error) {
	tx, unlock := m.tx()
	defer unlock()
	return tx.ListSales(ctx)
}

func (m *Memory) FindSaleByID(ctx context.Context, id int64) (*domain.Sale, error) {
	tx, unlock := m.tx()
	defer unlock()
	return tx.FindSaleByID(ctx, id)
}

func (m *Memory) CreateSale(ctx context.Context, s *domain.Sale) error {
	tx, unlock := m.tx()
	defer unlock()
	return tx.CreateSale(ctx, s)
}

func (m *Memory) CreateUser(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(u.Email)
	for _, existing := range m.data.users {
		if existing.Email == email {
			return fmt.Errorf("create user %s: %w", email, ErrDuplicate)
		}
	}
	u.ID = nextID(m.data.users)
	u.Email = email
	m.data.users[u.ID] = *u
	return nil
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(email)
	for _, id := range sortedKeys(m.data.users) {
		if u := m.data.users[id]; u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) CountUsers(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data.users), nil
}

func (m *Memory) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.data.users[userID]
	if !ok {
		return fmt.Errorf("update password for user %d: %w", userID, ErrNotFound)
	}
	u.Password = hash
	m.data.users[userID] = u
	return nil
}

// memTx works on the maps directly; the caller holds the lock.
type memTx struct {
	d *memData
}

func (t memTx) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	out := make([]domain.Supplier, 0, len(t.d.suppliers))
	for _, id := range sortedKeys(t.d.suppliers) {
		out = append(out, t.d.suppliers[id])
	}
	return out, nil
}

func (t memTx) FindSupplierByID(ctx context.Context, id int64) (*domain.Supplier, error) {
	s, ok := t.d.suppliers[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (t memTx) FindSupplierByName(ctx context.Context, name string) (*domain.Supplier, error) {
	key := domain.SupplierKey(name)
	for _, id := range sortedKeys(t.d.suppliers) {
		if s := t.d.suppliers[id]; domain.SupplierKey(s.Name) == key {
			return &s, nil
		}
	}
	return nil, nil
}

func (t memTx) CreateSupplier(ctx context.Context, s *domain.Supplier) error {
	s.ID = nextID(t.d.suppliers)
	t.d.suppliers[s.ID] = *s
	return nil
}

func (t memTx) UpdateSupplier(ctx context.Context, s domain.Supplier) (bool, error) {
	if _, ok := t.d.suppliers[s.ID]; !ok {
		return false, nil
	}
	t.d.suppliers[s.ID] = s
	return true, nil
}

func (t memTx) ListGarments(ctx context.Context) ([]domain.Garment, error) {
	out := make([]domain.Garment, 0, len(t.d.garments))
	for _, id := range sortedKeys(t.d.garments) {
		out = append(out, copyGarment(t.d.garments[id]))
	}
	return out, nil
}

func (t memTx) FindGarmentByID(ctx context.Context, id int64) (*domain.Garment, error) {
	g, ok := t.d.garments[id]
	if !ok {
		return nil, nil
	}
	g = copyGarment(g)
	return &g, nil
}

func (t memTx) CreateGarment(ctx context.Context, g *domain.Garment) error {
	g.ID = nextID(t.d.garments)
	t.d.garments[g.ID] = copyGarment(*g)
	return nil
}

func (t memTx) UpdateGarment(ctx context.Context, g domain.Garment) (bool, error) {
	current, ok := t.d.garments[g.ID]
	if !ok {
		return false, nil
	}
	current.Type = g.Type
	current.Size = g.Size
	current.Stock = g.Stock
	current.SalePrice = g.SalePrice
	t.d.garments[g.ID] = copyGarment(current)
	return true, nil
}

func (t memTx) AdjustStock(ctx context.Context, garmentID int64, delta int) error {
	g, ok := t.d.garments[garmentID]
	if !ok {
		return fmt.Errorf("adjust stock of garment %d: %w", garmentID, ErrNotFound)
	}
	if g.Stock+delta < 0 {
		return fmt.Errorf("adjust stock of garment %d by %d: %w", garmentID, delta, ErrNegativeStock)
	}
	g.Stock += delta
	t.d.garments[garmentID] = g
	return nil
}

func (t memTx) DeleteGarment(ctx context.Context, id int64) (bool, int, error) {
	_, existed := t.d.garments[id]
	delete(t.d.garments, id)

	removed := 0
	for saleID, sale := range t.d.sales {
		if sale.References(id) {
			delete(t.d.sales, saleID)
			removed++
		}
	}
	return existed, removed, nil
}

func (t memTx) ListSales(ctx context.Context) ([]domain.Sale, error) {
	out := make([]domain.Sale, 0, len(t.d.sales))
	for _, id := range sortedKeys(t.d.sales) {
		out = append(out, copySale(t.d.sales[id]))
	}
	return out, nil
}

func (t memTx) FindSaleByID(ctx context.Context, id int64) (*domain.Sale, error) {
	s, ok := t.d.sales[id]
	if !ok {
		return nil, nil
	}
	s = copySale(s)
	return &s, nil
}

func (t memTx) CreateSale(ctx context.Context, s *domain.Sale) error {
	s.ID = nextID(t.d.sales)
	for i := range s.Items {
		s.Items[i].SaleID = s.ID
		s.Items[i].LineNo = i + 1
	}
	t.d.sales[s.ID] = copySale(*s)
	return nil
}
