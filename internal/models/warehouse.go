package models

import "time"

// Warehouse: fiziksel depo. Her deponun tek bir "ikinci" (eş) deposu vardır.
type Warehouse struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"size:100;not null;unique" json:"name"`
	Address           string    `gorm:"size:255" json:"address"`
	IsPrimary         bool      `gorm:"not null;default:false" json:"is_primary"`
	PairedWarehouseID *uint     `json:"paired_warehouse_id"` // açık eşleme yoksa registry.Paired kuralına göre çözülür
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
