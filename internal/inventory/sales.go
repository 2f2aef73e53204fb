package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"stockroom/m/domain"
	"stockroom/m/internal/store"
)

const idempotencyKeyPrefix = "sale:"

func validateSaleLines(lines []domain.SaleItem) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: a sale needs at least one line", ErrInvalidArgument)
	}
	for i, line := range lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d: quantity must be greater than zero", ErrInvalidArgument, i+1)
		}
		if line.Price.IsNegative() {
			return fmt.Errorf("%w: line %d: price cannot be negative", ErrInvalidArgument, i+1)
		}
	}
	return nil
}

// RegisterSale records a sale dated today and takes its quantities out of
// stock. Quantities of lines for the same garment are added up before they
// are checked, and nothing changes unless every garment has enough stock.
// A non-empty idempotencyKey that was already used fails with
// ErrDuplicateRequest.
func (s *Service) RegisterSale(ctx context.Context, lines []domain.SaleItem, idempotencyKey string) (domain.Sale, error) {
	if err := validateSaleLines(lines); err != nil {
		return domain.Sale{}, err
	}

	if idempotencyKey != "" {
		key := idempotencyKeyPrefix + idempotencyKey
		ok, err := s.idem.SetIdempotency(ctx, key)
		if err != nil {
			return domain.Sale{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return domain.Sale{}, ErrDuplicateRequest
		}
		sale, err := s.registerSale(ctx, lines)
		if err != nil {
			if relErr := s.idem.ReleaseIdempotency(ctx, key); relErr != nil {
				s.log.Warn("idempotency key release failed", zap.String("key", idempotencyKey), zap.Error(relErr))
			}
		}
		return sale, err
	}
	return s.registerSale(ctx, lines)
}

func (s *Service) registerSale(ctx context.Context, lines []domain.SaleItem) (domain.Sale, error) {
	sale := domain.Sale{
		Date:  s.Today(),
		Items: make([]domain.SaleItem, len(lines)),
	}
	copy(sale.Items, lines)
	for i := range sale.Items {
		sale.Items[i].Price = domain.RoundMoney(sale.Items[i].Price)
	}
	sale.Total = domain.SaleTotal(sale.Items)

	requested := domain.QuantitiesByGarment(sale.Items)
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		checked := make(map[int64]bool, len(requested))
		for _, line := range sale.Items {
			if checked[line.GarmentID] {
				continue
			}
			checked[line.GarmentID] = true

			g, err := tx.FindGarmentByID(ctx, line.GarmentID)
			if err != nil {
				return err
			}
			if g == nil {
				return fmt.Errorf("garment %d: %w", line.GarmentID, ErrNotFound)
			}
			if want := requested[g.ID]; g.Stock < want {
				return fmt.Errorf("%w: garment %d has %d in stock, %d requested", ErrInsufficientStock, g.ID, g.Stock, want)
			}
		}

		if err := tx.CreateSale(ctx, &sale); err != nil {
			return err
		}
		for _, line := range sale.Items {
			want, ok := requested[line.GarmentID]
			if !ok {
				continue
			}
			delete(requested, line.GarmentID)
			err := tx.AdjustStock(ctx, line.GarmentID, -want)
			if errors.Is(err, store.ErrNegativeStock) {
				return fmt.Errorf("%w: garment %d was sold concurrently", ErrInsufficientStock, line.GarmentID)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrNotFound) {
			s.log.Info("sale rejected", zap.Error(err))
		}
		return domain.Sale{}, fmt.Errorf("register sale: %w", err)
	}

	s.invalidateStats(ctx)
	s.log.Info("sale registered",
		zap.Int64("sale_id", sale.ID),
		zap.String("date", sale.Date),
		zap.Int("lines", len(sale.Items)),
		zap.String("total", sale.Total.StringFixed(2)))
	return sale, nil
}

// ListSales returns the sales dated within [from, to], newest first. Empty
// bounds are open.
func (s *Service) ListSales(ctx context.Context, from, to string) ([]domain.Sale, error) {
	for _, bound := range []string{from, to} {
		if bound == "" {
			continue
		}
		if _, err := domain.ParseDay(bound); err != nil {
			return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidArgument, bound)
		}
	}
	if from != "" && to != "" && from > to {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidArgument, from, to)
	}

	sales, err := s.store.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	out := domain.SalesBetween(sales, from, to)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// SaleDetail returns the sale with each line resolved against the current
// inventory, or nil when the sale does not exist.
func (s *Service) SaleDetail(ctx context.Context, id int64) (*domain.SaleDetail, error) {
	sale, err := s.store.FindSaleByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find sale: %w", err)
	}
	if sale == nil {
		return nil, nil
	}

	detail := &domain.SaleDetail{
		ID:    sale.ID,
		Date:  sale.Date,
		Total: sale.Total,
		Lines: make([]domain.SaleLineDetail, len(sale.Items)),
	}
	for i, item := range sale.Items {
		line := domain.SaleLineDetail{SaleItem: item, Subtotal: domain.RoundMoney(item.Subtotal())}
		g, err := s.store.FindGarmentByID(ctx, item.GarmentID)
		if err != nil {
			return nil, fmt.Errorf("find garment: %w", err)
		}
		if g != nil {
			line.Type = g.Type
			line.Size = g.Size
		}
		detail.Lines[i] = line
	}
	return detail, nil
}

// SalesOnDate returns the sales dated exactly date.
func (s *Service) SalesOnDate(ctx context.Context, date string) ([]domain.Sale, error) {
	if _, err := domain.ParseDay(date); err != nil {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidArgument, date)
	}
	sales, err := s.store.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return domain.SalesOn(sales, date), nil
}
