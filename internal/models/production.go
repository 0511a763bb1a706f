package models

import "time"

type BatchStatus string

const (
	BatchInProgress  BatchStatus = "in_progress"
	BatchPartialDone BatchStatus = "partial_done"
	BatchCompleted   BatchStatus = "completed"
)

type ProductionStatus string

const (
	ProductionInProgress ProductionStatus = "in_progress"
	ProductionPartial    ProductionStatus = "partial"
	ProductionCompleted  ProductionStatus = "completed"
	ProductionCancelled  ProductionStatus = "cancelled"
)

// ProductionBatch: üretimdeki PO partisi
type ProductionBatch struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	Reference     string      `gorm:"size:100;not null;unique" json:"reference"`
	PONumber      string      `gorm:"size:100;not null;index" json:"po_number"`
	Status        BatchStatus `gorm:"size:20;not null" json:"status"`
	EstFinishDate *time.Time  `json:"est_finish_date"`
	Notes         string      `gorm:"size:255" json:"notes"`
	CreatedBy     string      `gorm:"size:100" json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	Pallets []ProductionPallet `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"pallets"`
}

// ProductionPallet: partideki palet grubu satırı.
// Değişmez: TotalPallets >= TransferredPallets + FinishedPallets
type ProductionPallet struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	BatchID            uint             `gorm:"index;not null" json:"batch_id"`
	PONumber           string           `gorm:"size:100;not null;uniqueIndex:idx_production_po_group" json:"po_number"`
	GroupName          string           `gorm:"size:150;not null;uniqueIndex:idx_production_po_group" json:"group_name"`
	TotalPallets       int              `gorm:"not null" json:"total_pallets"`
	FinishedPallets    int              `gorm:"not null;default:0" json:"finished_pallets"`
	TransferredPallets int              `gorm:"not null;default:0" json:"transferred_pallets"`
	Status             ProductionStatus `gorm:"size:20;not null" json:"status"`
	Locked             bool             `gorm:"not null;default:false" json:"locked"`
	Notes              string           `gorm:"size:255" json:"notes"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Remaining: henüz transfer edilmemiş (on-process katmanına katkı veren) miktar
func (p ProductionPallet) Remaining() int {
	r := p.TotalPallets - p.TransferredPallets
	if r < 0 {
		return 0
	}
	return r
}
