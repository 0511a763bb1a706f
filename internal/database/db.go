package database

import (
	"fmt"
	"log"

	"pallet-backend/internal/config"
	"pallet-backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	db, err := Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Veritabanına bağlanılamadı: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("AutoMigrate hatası: %v", err)
	}

	DB = db
	log.Println("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
}

// Open: sürücü adına göre gorm bağlantısı açar (postgres | sqlite)
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("bilinmeyen veritabanı sürücüsü: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// in-memory sqlite her bağlantıda ayrı veritabanı açar
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
		&models.Warehouse{},
		&models.PalletGroup{},
		&models.Stock{},
		&models.Transaction{},
		&models.Shipment{},
		&models.ShipmentLine{},
		&models.ProductionBatch{},
		&models.ProductionPallet{},
		&models.Order{},
		&models.OrderLine{},
		&models.OrderAllocation{},
		&models.Reservation{},
	)
}
