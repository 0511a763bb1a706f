package models

import "time"

type ShipmentKind string

const (
	ShipmentImport   ShipmentKind = "import"
	ShipmentTransfer ShipmentKind = "transfer"
)

type ShipmentStatus string

const (
	ShipmentOnWater     ShipmentStatus = "on_water"
	ShipmentDelivered   ShipmentStatus = "delivered"
	ShipmentTransferred ShipmentStatus = "transferred"
)

// Shipment: yoldaki ithalat veya depolar arası transfer
type Shipment struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Kind              ShipmentKind   `gorm:"size:20;not null" json:"kind"`
	Status            ShipmentStatus `gorm:"size:20;not null;index" json:"status"`
	Reference         string         `gorm:"size:100;index" json:"reference"`
	SourceWarehouseID *uint          `json:"source_warehouse_id"`
	WarehouseID       uint           `gorm:"not null;index" json:"warehouse_id"`
	EstDeliveryDate   *time.Time     `gorm:"index" json:"est_delivery_date"`
	DeliveredAt       *time.Time     `json:"delivered_at"`
	Notes             string         `gorm:"size:255" json:"notes"`
	CreatedBy         string         `gorm:"size:100" json:"created_by"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	Lines []ShipmentLine `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE" json:"lines"`
}

// ShipmentLine: sevkiyat içindeki palet grubu miktarı
type ShipmentLine struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ShipmentID uint   `gorm:"index;not null" json:"shipment_id"`
	GroupName  string `gorm:"size:150;not null;index" json:"group_name"`
	Pallets    int    `gorm:"not null" json:"pallets"`
}
