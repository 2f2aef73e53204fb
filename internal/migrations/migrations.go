package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the schema. The DDL sticks to types and clauses understood by
// SQLite, PostgreSQL and MySQL alike; ids are assigned by the store.
func Run(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id BIGINT PRIMARY KEY,
            username VARCHAR(100) NOT NULL,
            email VARCHAR(255) NOT NULL UNIQUE,
            password VARCHAR(255) NOT NULL,
            role VARCHAR(20) NOT NULL,
            created_at VARCHAR(32) NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS suppliers (
            id BIGINT PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            name_key VARCHAR(255) NOT NULL UNIQUE,
            address VARCHAR(255) NOT NULL DEFAULT '',
            phone VARCHAR(50) NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS garments (
            id BIGINT PRIMARY KEY,
            garment_type VARCHAR(100) NOT NULL,
            size VARCHAR(20),
            stock INTEGER NOT NULL CHECK (stock >= 0),
            purchase_price NUMERIC(12,2) NOT NULL,
            sale_price NUMERIC(12,2) NOT NULL,
            supplier_id BIGINT NOT NULL,
            FOREIGN KEY (supplier_id) REFERENCES suppliers(id)
        )`,
		`CREATE TABLE IF NOT EXISTS sales (
            id BIGINT PRIMARY KEY,
            sale_date VARCHAR(10) NOT NULL,
            total NUMERIC(12,2) NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS sale_items (
            sale_id BIGINT NOT NULL,
            line_no INTEGER NOT NULL,
            garment_id BIGINT NOT NULL,
            quantity INTEGER NOT NULL,
            unit_price NUMERIC(12,2) NOT NULL,
            PRIMARY KEY (sale_id, line_no),
            FOREIGN KEY (sale_id) REFERENCES sales(id)
        )`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
