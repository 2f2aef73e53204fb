package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Garment struct {
	ID            int64           `db:"id" json:"id"`
	Type          string          `db:"garment_type" json:"type"`
	Size          *string         `db:"size" json:"size"`
	Stock         int             `db:"stock" json:"stock"`
	PurchasePrice decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	SalePrice     decimal.Decimal `db:"sale_price" json:"sale_price"`
	SupplierID    int64           `db:"supplier_id" json:"supplier_id"`
}

// SizeLabel returns the size or an empty string when the garment has none.
func (g Garment) SizeLabel() string {
	if g.Size == nil {
		return ""
	}
	return *g.Size
}

// OptionalSize maps an empty size to nil.
func OptionalSize(size string) *string {
	trimmed := strings.TrimSpace(size)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// GarmentFilter narrows an inventory listing. Type is an exact match, Query
// is a case-insensitive substring over type and size.
type GarmentFilter struct {
	Type  string
	Query string
}

func (f GarmentFilter) Match(g Garment) bool {
	if f.Type != "" && g.Type != f.Type {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	if strings.Contains(strings.ToLower(g.Type), q) {
		return true
	}
	return g.Size != nil && strings.Contains(strings.ToLower(*g.Size), q)
}

// FilterGarments keeps the garments matching f, preserving order.
func FilterGarments(garments []Garment, f GarmentFilter) []Garment {
	out := make([]Garment, 0, len(garments))
	for _, g := range garments {
		if f.Match(g) {
			out = append(out, g)
		}
	}
	return out
}
