package store

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"stockroom/m/internal/database"
	"stockroom/m/internal/migrations"
)

// serverStore connects to a database server named by envVar, or skips.
// Tables are dropped and recreated for every case.
func serverStore(driver, envVar string) func(t *testing.T) Store {
	return func(t *testing.T) Store {
		t.Helper()
		dsn := os.Getenv(envVar)
		if dsn == "" {
			t.Skipf("%s not set", envVar)
		}
		db, err := database.Connect(context.Background(), driver, dsn)
		if err != nil {
			t.Skipf("database not available: %v", err)
		}
		resetSchema(t, db)
		st := NewSQL(db)
		t.Cleanup(func() { st.Close() })
		return st
	}
}

func resetSchema(t *testing.T, db *sqlx.DB) {
	t.Helper()
	for _, table := range []string{"sale_items", "sales", "garments", "suppliers", "users"} {
		_, err := db.Exec(`DROP TABLE IF EXISTS ` + table)
		require.NoError(t, err)
	}
	require.NoError(t, migrations.Run(db))
}

func TestMySQL(t *testing.T) {
	runContract(t, serverStore(database.DriverMySQL, "MYSQL_DSN"))
}

func TestPostgres(t *testing.T) {
	runContract(t, serverStore(database.DriverPostgres, "POSTGRES_DSN"))
}
