// Package registry resolves pallet groups and warehouses for the allocation engine.
// Every lookup is a plain query over the current registry rows.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"pallet-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrGroupNotFound     = errors.New("palet grubu bulunamadı")
	ErrWarehouseNotFound = errors.New("depo bulunamadı")
	ErrDuplicateGroup    = errors.New("palet grubu adı veya line item zaten kullanılıyor")
)

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Resolve maps a group name or line item code to the canonical group name.
// Matching ignores case and repeated whitespace; only active groups match.
func Resolve(db *gorm.DB, nameOrCode string) (string, error) {
	key := normalize(nameOrCode)
	if key == "" {
		return "", ErrGroupNotFound
	}

	var groups []models.PalletGroup
	if err := db.Where("active = ?", true).Find(&groups).Error; err != nil {
		return "", err
	}
	// isim eşleşmesi line item eşleşmesinden önce gelir
	for _, g := range groups {
		if normalize(g.Name) == key {
			return g.Name, nil
		}
	}
	for _, g := range groups {
		if g.LineItem != "" && normalize(g.LineItem) == key {
			return g.Name, nil
		}
	}
	return "", ErrGroupNotFound
}

func IsActive(db *gorm.DB, groupName string) (bool, error) {
	var g models.PalletGroup
	err := db.Where("name = ?", groupName).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return g.Active, nil
}

// CreateGroup inserts a group after checking name and line item uniqueness.
func CreateGroup(db *gorm.DB, g *models.PalletGroup) error {
	g.Name = strings.TrimSpace(g.Name)
	g.LineItem = strings.TrimSpace(g.LineItem)
	if g.Name == "" {
		return fmt.Errorf("palet grubu adı zorunludur")
	}

	var count int64
	q := db.Model(&models.PalletGroup{}).Where("LOWER(name) = ?", strings.ToLower(g.Name))
	if g.LineItem != "" {
		q = q.Or("LOWER(line_item) = ?", strings.ToLower(g.LineItem))
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateGroup
	}

	active := g.Active
	if err := db.Create(g).Error; err != nil {
		return err
	}
	// gorm default:true sıfır değeri yazmaz
	if !active {
		g.Active = false
		return db.Model(g).Update("active", false).Error
	}
	return nil
}

// renameTargets: grup adını taşıyan tüm tablolar
var renameTargets = []interface{}{
	&models.Stock{},
	&models.Transaction{},
	&models.ShipmentLine{},
	&models.ProductionPallet{},
	&models.Reservation{},
	&models.OrderLine{},
	&models.OrderAllocation{},
}

// Rename changes a group's name and every record referencing it in one
// database transaction. It returns the number of referencing rows updated.
func Rename(db *gorm.DB, oldName, newName string) (int64, error) {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return 0, fmt.Errorf("yeni palet grubu adı zorunludur")
	}
	if oldName == newName {
		return 0, nil
	}

	var total int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var g models.PalletGroup
		if err := tx.Where("name = ?", oldName).First(&g).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}

		var clash int64
		if err := tx.Model(&models.PalletGroup{}).Where("name = ?", newName).Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return ErrDuplicateGroup
		}

		if err := tx.Model(&g).Update("name", newName).Error; err != nil {
			return err
		}
		for _, m := range renameTargets {
			res := tx.Model(m).Where("group_name = ?", oldName).Update("group_name", newName)
			if res.Error != nil {
				return fmt.Errorf("%T güncellenemedi: %w", m, res.Error)
			}
			total += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
