package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockroom/m/domain"
	"stockroom/m/internal/inventory"
)

// Columns of the garment CSV, in order.
var header = []string{"type", "size", "quantity", "purchase_price", "sale_price", "supplier_name", "supplier_address", "supplier_phone"}

// Registrar is the part of the inventory service the loader needs.
type Registrar interface {
	RegisterGarment(ctx context.Context, req inventory.GarmentRegistration) (inventory.Registration, error)
	ListGarments(ctx context.Context, filter domain.GarmentFilter) ([]domain.Garment, error)
	ListSuppliers(ctx context.Context) ([]domain.SupplierSummary, error)
}

// LoadGarments registers every row of the CSV at path as a new garment and
// returns how many were registered. Rows for a garment already in stock
// (same type, size and supplier) are ignored, so loading a file twice
// registers nothing the second time. Rows that cannot be parsed or are
// rejected are logged and skipped. A missing file is not an error.
func LoadGarments(ctx context.Context, svc Registrar, path string, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("no garment seed file", zap.String("path", path))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open garment seed: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("read garment seed header: %w", err)
	}

	seen, err := existingGarments(ctx, svc)
	if err != nil {
		return 0, err
	}

	rows, ignored := 0, 0
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logger.Warn("unreadable garment row", zap.Int("line", line), zap.Error(err))
			continue
		}
		req, err := parseRow(record)
		if err != nil {
			logger.Warn("skipping garment row", zap.Int("line", line), zap.Error(err))
			continue
		}
		key := garmentKey(req.Type, req.Size, req.SupplierName)
		if seen[key] {
			ignored++
			continue
		}
		if _, err := svc.RegisterGarment(ctx, req); err != nil {
			if errors.Is(err, inventory.ErrInvalidArgument) {
				logger.Warn("skipping garment row", zap.Int("line", line), zap.Error(err))
				continue
			}
			return rows, fmt.Errorf("seed line %d: %w", line, err)
		}
		seen[key] = true
		rows++
	}

	logger.Info("seeded garments", zap.String("path", path), zap.Int("rows", rows), zap.Int("ignored", ignored))
	return rows, nil
}

func garmentKey(garmentType, size, supplier string) string {
	return strings.ToLower(strings.TrimSpace(garmentType)) + "|" +
		strings.ToLower(strings.TrimSpace(size)) + "|" +
		domain.SupplierKey(supplier)
}

func existingGarments(ctx context.Context, svc Registrar) (map[string]bool, error) {
	suppliers, err := svc.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	names := make(map[int64]string, len(suppliers))
	for _, s := range suppliers {
		names[s.ID] = s.Name
	}
	garments, err := svc.ListGarments(ctx, domain.GarmentFilter{})
	if err != nil {
		return nil, fmt.Errorf("list garments: %w", err)
	}
	seen := make(map[string]bool, len(garments))
	for _, g := range garments {
		seen[garmentKey(g.Type, g.SizeLabel(), names[g.SupplierID])] = true
	}
	return seen, nil
}

func parseRow(record []string) (inventory.GarmentRegistration, error) {
	if len(record) < len(header) {
		return inventory.GarmentRegistration{}, fmt.Errorf("expected %d columns, got %d", len(header), len(record))
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	quantity, err := strconv.Atoi(record[2])
	if err != nil {
		return inventory.GarmentRegistration{}, fmt.Errorf("quantity %q: %w", record[2], err)
	}
	purchase, err := decimal.NewFromString(record[3])
	if err != nil {
		return inventory.GarmentRegistration{}, fmt.Errorf("purchase_price %q: %w", record[3], err)
	}
	sale, err := decimal.NewFromString(record[4])
	if err != nil {
		return inventory.GarmentRegistration{}, fmt.Errorf("sale_price %q: %w", record[4], err)
	}

	return inventory.GarmentRegistration{
		Type:            record[0],
		Size:            record[1],
		Quantity:        quantity,
		PurchasePrice:   purchase,
		SalePrice:       sale,
		SupplierName:    record[5],
		SupplierAddress: record[6],
		SupplierPhone:   record[7],
	}, nil
}
