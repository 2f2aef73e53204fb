package domain

import "strings"

// Supplier is a wholesaler garments are bought from.
type Supplier struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Address string `db:"address" json:"address"`
	Phone   string `db:"phone" json:"phone"`
}

// SupplierSummary is a supplier row with the number of garments it supplies.
type SupplierSummary struct {
	Supplier
	GarmentCount int `json:"garment_count"`
}

// SupplierKey normalizes a supplier name for case-insensitive matching.
func SupplierKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
