package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stockroom/m/domain"
)

const seriesDays = 7

// SalesByDayLast7 returns the income of each of the last seven days, oldest
// first, today included.
func (s *Service) SalesByDayLast7(ctx context.Context) ([]domain.DayTotal, error) {
	sales, err := s.store.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return domain.SalesByDay(sales, s.now(), seriesDays), nil
}

// DailyReport summarizes the sales of date, today when date is empty.
func (s *Service) DailyReport(ctx context.Context, date string) (domain.DailyReport, error) {
	if date == "" {
		date = s.Today()
	}
	sales, err := s.SalesOnDate(ctx, date)
	if err != nil {
		return domain.DailyReport{}, err
	}
	return domain.DailyReport{
		Date:       date,
		SalesCount: len(sales),
		Income:     domain.Income(sales),
	}, nil
}

// Stats computes the dashboard figures. Results are served from the stats
// cache while they are for today.
func (s *Service) Stats(ctx context.Context) (domain.DashboardStats, error) {
	now := s.now()
	today := domain.Day(now)

	cached, err := s.stats.GetStats(ctx)
	if err != nil {
		s.log.Warn("stats cache read failed", zap.Error(err))
	} else if cached != nil && cached.Date == today {
		return *cached, nil
	}

	// Read before the store so a mutation landing mid-computation keeps
	// this result out of the cache.
	gen, genErr := s.stats.StatsGeneration(ctx)
	if genErr != nil {
		s.log.Warn("stats cache generation read failed", zap.Error(genErr))
	}

	suppliers, err := s.store.ListSuppliers(ctx)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("list suppliers: %w", err)
	}
	garments, err := s.store.ListGarments(ctx)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("list garments: %w", err)
	}
	sales, err := s.store.ListSales(ctx)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("list sales: %w", err)
	}

	todays := domain.SalesOn(sales, today)
	stats := domain.DashboardStats{
		Date:          today,
		TotalStock:    domain.TotalStock(garments),
		SalesToday:    len(todays),
		IncomeToday:   domain.Income(todays),
		SupplierCount: len(suppliers),
		LowStock:      domain.LowStock(garments, s.threshold),
		StockByType:   domain.StockByType(garments),
		SalesByDay:    domain.SalesByDay(sales, now, seriesDays),
	}

	if genErr == nil {
		if err := s.stats.SetStats(ctx, gen, stats); err != nil {
			s.log.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}
