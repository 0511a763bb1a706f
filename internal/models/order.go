package models

import "time"

type OrderStatus string

const (
	OrderProcessing  OrderStatus = "processing"
	OrderReadyToShip OrderStatus = "ready_to_ship"
	OrderShipped     OrderStatus = "shipped"
	OrderDelivered   OrderStatus = "delivered"
	OrderCompleted   OrderStatus = "completed"
	OrderCanceled    OrderStatus = "canceled"
)

// HoldsReservations: stok düşülmeden önceki, yalnızca rezervasyon tutan durumlar
func (s OrderStatus) HoldsReservations() bool {
	return s == OrderProcessing || s == OrderReadyToShip
}

// ConsumedStock: sevk edilmiş ve fiziksel stoktan düşülmüş durumlar
func (s OrderStatus) ConsumedStock() bool {
	return s == OrderShipped || s == OrderDelivered
}

type Tier string

const (
	TierPrimary   Tier = "primary"
	TierOnWater   Tier = "on_water"
	TierSecond    Tier = "second"
	TierOnProcess Tier = "on_process"
)

// TierPriority: sabit tahsis önceliği (yüksekten düşüğe)
var TierPriority = []Tier{TierPrimary, TierOnWater, TierSecond, TierOnProcess}

func (t Tier) Valid() bool {
	for _, p := range TierPriority {
		if p == t {
			return true
		}
	}
	return false
}

// Physical: fiziksel depo stoğundan beslenen katmanlar
func (t Tier) Physical() bool {
	return t == TierPrimary || t == TierSecond
}

// Order: müşteri siparişi
type Order struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	OrderNumber     string      `gorm:"size:50;not null;unique" json:"order_number"`
	WarehouseID     uint        `gorm:"not null;index" json:"warehouse_id"`
	CustomerName    string      `gorm:"size:150" json:"customer_name"`
	CustomerEmail   string      `gorm:"size:150" json:"customer_email"`
	CustomerPhone   string      `gorm:"size:50" json:"customer_phone"`
	ShippingAddress string      `gorm:"size:255" json:"shipping_address"`
	Notes           string      `gorm:"size:255" json:"notes"`
	Status          OrderStatus `gorm:"size:20;not null;index" json:"status"`
	EstShipDate     *time.Time  `json:"est_ship_date"`
	DeliveryDate    *time.Time  `json:"delivery_date"`
	Actor           string      `gorm:"size:100" json:"actor"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	Lines       []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
	Allocations []OrderAllocation `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"allocations"`
}

type OrderLine struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	OrderID   uint   `gorm:"index;not null" json:"order_id"`
	LineItem  string `gorm:"size:150" json:"line_item"`
	GroupName string `gorm:"size:150;not null;index" json:"group_name"`
	Qty       int    `gorm:"not null" json:"qty"`
}

// OrderAllocation: siparişin kendi rezervasyonlarının görüntüleme kopyası
type OrderAllocation struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderID     uint   `gorm:"index;not null" json:"order_id"`
	GroupName   string `gorm:"size:150;not null;index" json:"group_name"`
	Qty         int    `gorm:"not null" json:"qty"`
	Tier        Tier   `gorm:"size:20;not null" json:"tier"`
	WarehouseID *uint  `json:"warehouse_id"` // primary/second için kaynak depo
}

// Reservation: katman arzı üzerindeki mantıksal talep; fiziksel düşüm değildir
type Reservation struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	OrderNumber       string    `gorm:"size:50;not null;index" json:"order_number"`
	WarehouseID       uint      `gorm:"not null;index:idx_res_wh_group_tier" json:"warehouse_id"` // hedef depo
	SourceWarehouseID *uint     `gorm:"index" json:"source_warehouse_id"`
	GroupName         string    `gorm:"size:150;not null;index:idx_res_wh_group_tier" json:"group_name"`
	Tier              Tier      `gorm:"size:20;not null;index:idx_res_wh_group_tier" json:"tier"`
	Qty               int       `gorm:"not null" json:"qty"`
	Actor             string    `gorm:"size:100" json:"actor"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
