package models

import "time"

// Stock: (depo, palet grubu) başına fiziksel palet adedi
type Stock struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WarehouseID uint      `gorm:"not null;uniqueIndex:idx_stock_wh_group" json:"warehouse_id"`
	GroupName   string    `gorm:"size:150;not null;uniqueIndex:idx_stock_wh_group" json:"group_name"`
	Pallets     int       `gorm:"not null;default:0" json:"pallets"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TransactionStatus string

const (
	TxnDelivered  TransactionStatus = "Delivered"
	TxnOnWater    TransactionStatus = "On-Water"
	TxnAdjustment TransactionStatus = "Adjustment"
)

// Transaction: her fiziksel stok değişiminin değiştirilemez kaydı
type Transaction struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	BatchID     string            `gorm:"size:36;index" json:"batch_id"`   // aynı fiziksel olayın satırları
	Reference   string            `gorm:"size:100;index" json:"reference"` // PO# veya sipariş no
	GroupName   string            `gorm:"size:150;not null;index" json:"group_name"`
	WarehouseID uint              `gorm:"not null;index" json:"warehouse_id"`
	Delta       int               `gorm:"not null" json:"delta"`
	Status      TransactionStatus `gorm:"size:20;not null" json:"status"`
	Reason      string            `gorm:"size:100" json:"reason"`
	Actor       string            `gorm:"size:100" json:"actor"`
	CommittedAt time.Time         `gorm:"index;not null" json:"committed_at"`
	CreatedAt   time.Time         `json:"created_at"`
}
