package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the day-granularity format used for sale dates.
const DateLayout = "2006-01-02"

type Sale struct {
	ID    int64           `db:"id" json:"id"`
	Date  string          `db:"sale_date" json:"date"`
	Items []SaleItem      `db:"-" json:"items"`
	Total decimal.Decimal `db:"total" json:"total"`
}

// SaleItem is one line of a sale. Price is captured when the sale is made and
// does not follow later edits of the garment's sale price.
type SaleItem struct {
	SaleID    int64           `db:"sale_id" json:"-"`
	LineNo    int             `db:"line_no" json:"-"`
	GarmentID int64           `db:"garment_id" json:"garment_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"unit_price" json:"price"`
}

// Subtotal is quantity × price.
func (i SaleItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// References reports whether any line of the sale is for garmentID.
func (s Sale) References(garmentID int64) bool {
	for _, item := range s.Items {
		if item.GarmentID == garmentID {
			return true
		}
	}
	return false
}

// SaleTotal sums the line subtotals and rounds to cents.
func SaleTotal(items []SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return RoundMoney(total)
}

// QuantitiesByGarment sums line quantities per garment.
func QuantitiesByGarment(items []SaleItem) map[int64]int {
	out := make(map[int64]int, len(items))
	for _, item := range items {
		out[item.GarmentID] += item.Quantity
	}
	return out
}

// SaleLineDetail is a sale line enriched with the garment it refers to.
// Type and Size are empty when the garment no longer exists.
type SaleLineDetail struct {
	SaleItem
	Type     string          `json:"type"`
	Size     *string         `json:"size"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type SaleDetail struct {
	ID    int64            `json:"id"`
	Date  string           `json:"date"`
	Total decimal.Decimal  `json:"total"`
	Lines []SaleLineDetail `json:"lines"`
}

// Day formats t as a sale date in t's location.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDay validates a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
