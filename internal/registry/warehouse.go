package registry

import (
	"errors"

	"pallet-backend/internal/models"

	"gorm.io/gorm"
)

type WarehouseInfo struct {
	ID        uint `json:"id"`
	IsPrimary bool `json:"is_primary"`
}

func List(db *gorm.DB) ([]WarehouseInfo, error) {
	var rows []models.Warehouse
	if err := db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]WarehouseInfo, 0, len(rows))
	for _, w := range rows {
		out = append(out, WarehouseInfo{ID: w.ID, IsPrimary: w.IsPrimary})
	}
	return out, nil
}

// Paired returns the "second" warehouse of id, or nil when there is none.
// An explicit PairedWarehouseID wins. Otherwise a primary warehouse pairs
// with the first non-primary one and the other way round; when no primary
// flag distinguishes them, any other warehouse is used.
func Paired(db *gorm.DB, id uint) (*uint, error) {
	var w models.Warehouse
	if err := db.First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWarehouseNotFound
		}
		return nil, err
	}
	if w.PairedWarehouseID != nil && *w.PairedWarehouseID != w.ID {
		p := *w.PairedWarehouseID
		return &p, nil
	}

	var others []models.Warehouse
	if err := db.Where("id <> ?", id).Order("id ASC").Find(&others).Error; err != nil {
		return nil, err
	}
	for _, o := range others {
		if o.IsPrimary != w.IsPrimary {
			p := o.ID
			return &p, nil
		}
	}
	if len(others) > 0 {
		p := others[0].ID
		return &p, nil
	}
	return nil, nil
}

// Scope returns id together with its paired warehouse, if any.
func Scope(db *gorm.DB, id uint) ([]uint, error) {
	p, err := Paired(db, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return []uint{id}, nil
	}
	return []uint{id, *p}, nil
}
