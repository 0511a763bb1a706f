package models

import "time"

// PalletGroup: satılabilir palet tipi. LineItem sipariş girişinde kullanılan dış koddur.
type PalletGroup struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:150;not null;unique" json:"name"`
	LineItem    string    `gorm:"size:150;index" json:"line_item"` // boş değilse katalogda tekil
	Active      bool      `gorm:"not null;default:true" json:"active"`
	PalletName  string    `gorm:"size:150" json:"pallet_name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
