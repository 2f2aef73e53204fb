package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold flags garments that need reordering.
const DefaultLowStockThreshold = 5

// DayTotal is one point of the sales-by-day series.
type DayTotal struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// TypeStock is the summed stock of one garment type.
type TypeStock struct {
	Type  string `json:"type"`
	Stock int    `json:"stock"`
}

// DailyReport summarizes the sales of one day.
type DailyReport struct {
	Date       string          `json:"date"`
	SalesCount int             `json:"sales_count"`
	Income     decimal.Decimal `json:"income"`
}

// DashboardStats is everything the dashboard renders.
type DashboardStats struct {
	Date          string          `json:"date"`
	TotalStock    int             `json:"total_stock"`
	SalesToday    int             `json:"sales_today"`
	IncomeToday   decimal.Decimal `json:"income_today"`
	SupplierCount int             `json:"supplier_count"`
	LowStock      []Garment       `json:"low_stock"`
	StockByType   map[string]int  `json:"stock_by_type"`
	SalesByDay    []DayTotal      `json:"sales_by_day"`
}

func TotalStock(garments []Garment) int {
	total := 0
	for _, g := range garments {
		total += g.Stock
	}
	return total
}

// LowStock returns the garments whose stock is strictly below threshold.
func LowStock(garments []Garment, threshold int) []Garment {
	out := make([]Garment, 0)
	for _, g := range garments {
		if g.Stock < threshold {
			out = append(out, g)
		}
	}
	return out
}

func StockByType(garments []Garment) map[string]int {
	out := make(map[string]int)
	for _, g := range garments {
		out[g.Type] += g.Stock
	}
	return out
}

// SortedStockByType returns StockByType ordered by type name.
func SortedStockByType(garments []Garment) []TypeStock {
	byType := StockByType(garments)
	out := make([]TypeStock, 0, len(byType))
	for t, stock := range byType {
		out = append(out, TypeStock{Type: t, Stock: stock})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// SalesOn returns the sales dated exactly day.
func SalesOn(sales []Sale, day string) []Sale {
	out := make([]Sale, 0)
	for _, s := range sales {
		if s.Date == day {
			out = append(out, s)
		}
	}
	return out
}

// SalesBetween returns sales dated within [from, to]. Empty bounds are open.
func SalesBetween(sales []Sale, from, to string) []Sale {
	out := make([]Sale, 0)
	for _, s := range sales {
		if from != "" && s.Date < from {
			continue
		}
		if to != "" && s.Date > to {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Income sums sale totals.
func Income(sales []Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.Total)
	}
	return RoundMoney(total)
}

// SalesByDay returns one entry per calendar day for the days ending on
// today, oldest first, with zero for days without sales.
func SalesByDay(sales []Sale, today time.Time, days int) []DayTotal {
	series := make([]DayTotal, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := time.Date(today.Year(), today.Month(), today.Day()-(days-1-i), 0, 0, 0, 0, today.Location())
		series[i] = DayTotal{Date: Day(d), Total: decimal.Zero}
		index[series[i].Date] = i
	}
	for _, s := range sales {
		if i, ok := index[s.Date]; ok {
			series[i].Total = series[i].Total.Add(s.Total)
		}
	}
	for i := range series {
		series[i].Total = RoundMoney(series[i].Total)
	}
	return series
}
