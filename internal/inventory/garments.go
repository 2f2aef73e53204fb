package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockroom/m/domain"
	"stockroom/m/internal/store"
)

// GarmentRegistration is the intake of a new batch of garments. Either
// PurchasePrice (per unit) or PurchaseTotal (for the whole batch) is given;
// a total is split into a unit price rounded to cents.
type GarmentRegistration struct {
	Type            string          `json:"type"`
	Size            string          `json:"size"`
	Quantity        int             `json:"quantity"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	PurchaseTotal   decimal.Decimal `json:"purchase_total"`
	SalePrice       decimal.Decimal `json:"sale_price"`
	SupplierName    string          `json:"supplier_name"`
	SupplierAddress string          `json:"supplier_address"`
	SupplierPhone   string          `json:"supplier_phone"`
}

// UnitPurchasePrice resolves the per-unit purchase price.
func (r GarmentRegistration) UnitPurchasePrice() decimal.Decimal {
	if !r.PurchasePrice.IsZero() || r.Quantity <= 0 {
		return r.PurchasePrice
	}
	return domain.RoundMoney(r.PurchaseTotal.Div(decimal.NewFromInt(int64(r.Quantity))))
}

func (r GarmentRegistration) validate() error {
	switch {
	case strings.TrimSpace(r.Type) == "":
		return fmt.Errorf("%w: type is required", ErrInvalidArgument)
	case r.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidArgument)
	case !r.UnitPurchasePrice().IsPositive():
		return fmt.Errorf("%w: purchase price must be greater than zero", ErrInvalidArgument)
	case !r.SalePrice.IsPositive():
		return fmt.Errorf("%w: sale price must be greater than zero", ErrInvalidArgument)
	case strings.TrimSpace(r.SupplierName) == "":
		return fmt.Errorf("%w: supplier name is required", ErrInvalidArgument)
	}
	return nil
}

// Registration is the outcome of RegisterGarment.
type Registration struct {
	Garment         domain.Garment  `json:"garment"`
	Supplier        domain.Supplier `json:"supplier"`
	SupplierCreated bool            `json:"supplier_created"`
}

// RegisterGarment stores a new garment with stock equal to the registered
// quantity. The supplier is matched by name ignoring case and created when
// no match exists.
func (s *Service) RegisterGarment(ctx context.Context, req GarmentRegistration) (Registration, error) {
	if err := req.validate(); err != nil {
		return Registration{}, err
	}

	var out Registration
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		supplier, err := tx.FindSupplierByName(ctx, req.SupplierName)
		if err != nil {
			return err
		}
		if supplier == nil {
			supplier = &domain.Supplier{
				Name:    strings.TrimSpace(req.SupplierName),
				Address: strings.TrimSpace(req.SupplierAddress),
				Phone:   strings.TrimSpace(req.SupplierPhone),
			}
			if err := tx.CreateSupplier(ctx, supplier); err != nil {
				return err
			}
			out.SupplierCreated = true
		}

		garment := domain.Garment{
			Type:          strings.TrimSpace(req.Type),
			Size:          domain.OptionalSize(req.Size),
			Stock:         req.Quantity,
			PurchasePrice: req.UnitPurchasePrice(),
			SalePrice:     req.SalePrice,
			SupplierID:    supplier.ID,
		}
		if err := tx.CreateGarment(ctx, &garment); err != nil {
			return err
		}
		out.Garment = garment
		out.Supplier = *supplier
		return nil
	})
	if err != nil {
		return Registration{}, fmt.Errorf("register garment: %w", err)
	}

	s.invalidateStats(ctx)
	s.log.Info("garment registered",
		zap.Int64("garment_id", out.Garment.ID),
		zap.String("type", out.Garment.Type),
		zap.Int("stock", out.Garment.Stock),
		zap.Int64("supplier_id", out.Supplier.ID),
		zap.Bool("supplier_created", out.SupplierCreated))
	return out, nil
}

// GarmentUpdate carries the editable fields of a garment. Purchase price and
// supplier are fixed at registration.
type GarmentUpdate struct {
	Type      string          `json:"type"`
	Size      string          `json:"size"`
	Stock     int             `json:"stock"`
	SalePrice decimal.Decimal `json:"sale_price"`
}

func (u GarmentUpdate) validate() error {
	switch {
	case strings.TrimSpace(u.Type) == "":
		return fmt.Errorf("%w: type is required", ErrInvalidArgument)
	case u.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidArgument)
	case !u.SalePrice.IsPositive():
		return fmt.Errorf("%w: sale price must be greater than zero", ErrInvalidArgument)
	}
	return nil
}

func (s *Service) UpdateGarment(ctx context.Context, id int64, upd GarmentUpdate) (domain.Garment, error) {
	if err := upd.validate(); err != nil {
		return domain.Garment{}, err
	}

	var out domain.Garment
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		g, err := tx.FindGarmentByID(ctx, id)
		if err != nil {
			return err
		}
		if g == nil {
			return fmt.Errorf("garment %d: %w", id, ErrNotFound)
		}
		g.Type = strings.TrimSpace(upd.Type)
		g.Size = domain.OptionalSize(upd.Size)
		g.Stock = upd.Stock
		g.SalePrice = upd.SalePrice
		if _, err := tx.UpdateGarment(ctx, *g); err != nil {
			return err
		}
		out = *g
		return nil
	})
	if err != nil {
		return domain.Garment{}, fmt.Errorf("update garment: %w", err)
	}

	s.invalidateStats(ctx)
	s.log.Info("garment updated", zap.Int64("garment_id", id), zap.Int("stock", out.Stock))
	return out, nil
}

// DeleteGarment removes the garment together with every sale that has a
// line for it, and returns how many sales went with it.
func (s *Service) DeleteGarment(ctx context.Context, id int64) (int, error) {
	var removed int
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		deleted, n, err := tx.DeleteGarment(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("garment %d: %w", id, ErrNotFound)
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete garment: %w", err)
	}

	s.invalidateStats(ctx)
	if removed > 0 {
		s.log.Warn("garment deleted with its sales", zap.Int64("garment_id", id), zap.Int("removed_sales", removed))
	} else {
		s.log.Info("garment deleted", zap.Int64("garment_id", id))
	}
	return removed, nil
}

// FindGarment returns nil when the garment does not exist.
func (s *Service) FindGarment(ctx context.Context, id int64) (*domain.Garment, error) {
	g, err := s.store.FindGarmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find garment: %w", err)
	}
	return g, nil
}

// ListGarments returns the garments matching filter ordered by id.
func (s *Service) ListGarments(ctx context.Context, filter domain.GarmentFilter) ([]domain.Garment, error) {
	garments, err := s.store.ListGarments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list garments: %w", err)
	}
	return domain.FilterGarments(garments, filter), nil
}

// LowStock lists garments with stock below threshold; a non-positive
// threshold means the configured one.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]domain.Garment, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	garments, err := s.store.ListGarments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list garments: %w", err)
	}
	return domain.LowStock(garments, threshold), nil
}

func (s *Service) StockByType(ctx context.Context) ([]domain.TypeStock, error) {
	garments, err := s.store.ListGarments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list garments: %w", err)
	}
	return domain.SortedStockByType(garments), nil
}
