package inventory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"stockroom/m/domain"
	"stockroom/m/internal/store"
)

type SupplierInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (in SupplierInput) supplier(id int64) domain.Supplier {
	return domain.Supplier{
		ID:      id,
		Name:    strings.TrimSpace(in.Name),
		Address: strings.TrimSpace(in.Address),
		Phone:   strings.TrimSpace(in.Phone),
	}
}

func (s *Service) CreateSupplier(ctx context.Context, in SupplierInput) (domain.Supplier, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Supplier{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}

	out := in.supplier(0)
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		existing, err := tx.FindSupplierByName(ctx, out.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("supplier %q: %w", out.Name, ErrAlreadyExists)
		}
		return tx.CreateSupplier(ctx, &out)
	})
	if err != nil {
		return domain.Supplier{}, fmt.Errorf("create supplier: %w", err)
	}

	s.invalidateStats(ctx)
	s.log.Info("supplier created", zap.Int64("supplier_id", out.ID), zap.String("name", out.Name))
	return out, nil
}

// UpdateSupplier overwrites name, address and phone. The new name must not
// belong to another supplier.
func (s *Service) UpdateSupplier(ctx context.Context, id int64, in SupplierInput) (domain.Supplier, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Supplier{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}

	out := in.supplier(id)
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		current, err := tx.FindSupplierByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("supplier %d: %w", id, ErrNotFound)
		}
		clash, err := tx.FindSupplierByName(ctx, out.Name)
		if err != nil {
			return err
		}
		if clash != nil && clash.ID != id {
			return fmt.Errorf("supplier %q: %w", out.Name, ErrAlreadyExists)
		}
		_, err = tx.UpdateSupplier(ctx, out)
		return err
	})
	if err != nil {
		return domain.Supplier{}, fmt.Errorf("update supplier: %w", err)
	}

	s.log.Info("supplier updated", zap.Int64("supplier_id", id))
	return out, nil
}

// FindSupplier returns nil when the supplier does not exist.
func (s *Service) FindSupplier(ctx context.Context, id int64) (*domain.Supplier, error) {
	supplier, err := s.store.FindSupplierByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find supplier: %w", err)
	}
	return supplier, nil
}

// ListSuppliers returns every supplier with the number of garments it
// supplies, ordered by id.
func (s *Service) ListSuppliers(ctx context.Context) ([]domain.SupplierSummary, error) {
	suppliers, err := s.store.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	garments, err := s.store.ListGarments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list garments: %w", err)
	}

	counts := make(map[int64]int, len(suppliers))
	for _, g := range garments {
		counts[g.SupplierID]++
	}
	out := make([]domain.SupplierSummary, len(suppliers))
	for i, supplier := range suppliers {
		out[i] = domain.SupplierSummary{Supplier: supplier, GarmentCount: counts[supplier.ID]}
	}
	return out, nil
}
