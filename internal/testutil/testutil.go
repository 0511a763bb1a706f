package testutil

import (
	"testing"

	"pallet-backend/internal/database"
	"pallet-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a migrated in-memory SQLite database for one test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test DB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedWarehouse creates a warehouse row.
func SeedWarehouse(t *testing.T, db *gorm.DB, name string, primary bool) models.Warehouse {
	t.Helper()
	w := models.Warehouse{Name: name, IsPrimary: primary}
	if err := db.Create(&w).Error; err != nil {
		t.Fatalf("Failed to seed warehouse %s: %v", name, err)
	}
	return w
}

// SeedGroup creates an active pallet group.
func SeedGroup(t *testing.T, db *gorm.DB, name, lineItem string) models.PalletGroup {
	t.Helper()
	g := models.PalletGroup{Name: name, LineItem: lineItem, Active: true}
	if err := db.Create(&g).Error; err != nil {
		t.Fatalf("Failed to seed group %s: %v", name, err)
	}
	return g
}

// SeedStock sets the physical pallet count for a warehouse/group.
func SeedStock(t *testing.T, db *gorm.DB, warehouseID uint, group string, pallets int) {
	t.Helper()
	s := models.Stock{WarehouseID: warehouseID, GroupName: group, Pallets: pallets}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("Failed to seed stock: %v", err)
	}
}

// StockOf returns the current pallet count (0 when no row exists).
func StockOf(t *testing.T, db *gorm.DB, warehouseID uint, group string) int {
	t.Helper()
	var s models.Stock
	err := db.Where("warehouse_id = ? AND group_name = ?", warehouseID, group).Limit(1).Find(&s).Error
	if err != nil {
		t.Fatalf("Failed to read stock: %v", err)
	}
	return s.Pallets
}
