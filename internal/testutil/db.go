package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/codr1/marketplace/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// Fixture holds the ids created by SeedShop.
type Fixture struct {
	CustomerID  int64
	VendorID    int64
	AdminID     int64
	BusinessID  int64
	ShopID      int64
	CatalogueID int64
}

// SeedShop inserts a customer, a vendor owning an active shop with one
// bookable catalogue item, and an admin.
func SeedShop(t *testing.T, database *db.DB) Fixture {
	t.Helper()

	ctx := context.Background()
	var f Fixture
	exec := func(query string, args ...any) int64 {
		res, err := database.ExecContext(ctx, query, args...)
		if err != nil {
			t.Fatalf("seed %q: %v", query, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			t.Fatalf("seed last insert id: %v", err)
		}
		return id
	}

	f.CustomerID = exec(`INSERT INTO users (email, password_hash, full_name, role) VALUES ('customer@example.com', 'x', 'Cara Customer', 'customer')`)
	f.VendorID = exec(`INSERT INTO users (email, password_hash, full_name, role) VALUES ('vendor@example.com', 'x', 'Vic Vendor', 'vendor')`)
	f.AdminID = exec(`INSERT INTO users (email, password_hash, full_name, role) VALUES ('admin@example.com', 'x', 'Ada Admin', 'admin')`)
	f.BusinessID = exec(`INSERT INTO businesses (owner_id, name) VALUES (?, 'Vic Trading')`, f.VendorID)
	f.ShopID = exec(`INSERT INTO shops (business_id, name, slug, category, city, latitude, longitude, status)
		VALUES (?, 'Corner Barber', 'corner-barber', 'barber', 'Lisbon', 38.7223, -9.1393, 'active')`, f.BusinessID)
	f.CatalogueID = exec(`INSERT INTO catalogues (shop_id, name, price_cents, duration_minutes) VALUES (?, 'Haircut', 2500, 30)`, f.ShopID)

	return f
}

// SeedHours replaces the shop's opening hours with one open window per day id.
func SeedHours(t *testing.T, database *sql.DB, shopID int64, start, end string, dayIDs ...int) {
	t.Helper()

	ctx := context.Background()
	if _, err := database.ExecContext(ctx, `DELETE FROM opening_hours WHERE shop_id = ?`, shopID); err != nil {
		t.Fatalf("clear hours: %v", err)
	}
	for _, day := range dayIDs {
		if _, err := database.ExecContext(ctx,
			`INSERT INTO opening_hours (shop_id, day_id, is_closed, start_time, end_time) VALUES (?, ?, 0, ?, ?)`,
			shopID, day, start, end,
		); err != nil {
			t.Fatalf("seed hours: %v", err)
		}
	}
}
