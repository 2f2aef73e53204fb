// Package store holds the persistence port for suppliers, garments, sales
// and users, with an in-memory and a SQL adapter.
package store

import (
	"context"
	"errors"

	"stockroom/m/domain"
)

var (
	// ErrNotFound is returned by mutations that target a missing row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrNegativeStock is returned when a stock adjustment would go below
	// zero. The stock is left unchanged.
	ErrNegativeStock = errors.New("stock would go negative")
)

// Tx is the set of operations available both inside and outside a unit of
// work. Lookups by id return nil without error when the row is absent.
type Tx interface {
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	FindSupplierByID(ctx context.Context, id int64) (*domain.Supplier, error)
	// FindSupplierByName matches case-insensitively.
	FindSupplierByName(ctx context.Context, name string) (*domain.Supplier, error)
	// CreateSupplier assigns the next id to s.
	CreateSupplier(ctx context.Context, s *domain.Supplier) error
	UpdateSupplier(ctx context.Context, s domain.Supplier) (bool, error)

	ListGarments(ctx context.Context) ([]domain.Garment, error)
	FindGarmentByID(ctx context.Context, id int64) (*domain.Garment, error)
	// CreateGarment assigns the next id to g.
	CreateGarment(ctx context.Context, g *domain.Garment) error
	// UpdateGarment overwrites type, size, stock and sale price.
	UpdateGarment(ctx context.Context, g domain.Garment) (bool, error)
	// AdjustStock adds delta to the stock, failing with ErrNegativeStock
	// instead of going below zero.
	AdjustStock(ctx context.Context, garmentID int64, delta int) error
	// DeleteGarment removes the garment and every sale with a line for it.
	DeleteGarment(ctx context.Context, id int64) (deleted bool, removedSales int, err error)

	ListSales(ctx context.Context) ([]domain.Sale, error)
	FindSaleByID(ctx context.Context, id int64) (*domain.Sale, error)
	// CreateSale assigns the next id to s and stores its items.
	CreateSale(ctx context.Context, s *domain.Sale) error
}

// Users persists shop accounts.
type Users interface {
	// CreateUser assigns the next id to u. Emails are unique.
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	CountUsers(ctx context.Context) (int, error)
}

type Store interface {
	Tx
	Users
	// Atomic runs fn as one unit of work: either every change fn makes is
	// kept or, when fn returns an error, none is.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
