// Package ledger owns physical pallet stock and its append-only transaction log.
// Stock rows change only through Apply, which writes one Transaction per delta.
package ledger

import (
	"errors"
	"fmt"
	"log"
	"time"

	"pallet-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInsufficientStock = errors.New("yetersiz palet stoğu")

// InsufficientStockError: koşullu düşüm eşleşmediğinde döner
type InsufficientStockError struct {
	WarehouseID uint
	GroupName   string
	Required    int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s için yetersiz palet (depo %d): mevcut %d, gerekli %d",
		e.GroupName, e.WarehouseID, e.Available, e.Required)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Delta: tek bir (depo, grup) stok değişimi. Negatif Qty düşüm demektir.
type Delta struct {
	WarehouseID uint
	GroupName   string
	Qty         int
}

// Entry: bir fiziksel olayın tüm Transaction satırlarına yazılan ortak bilgiler
type Entry struct {
	Reference   string
	Status      models.TransactionStatus
	Reason      string
	Actor       string
	CommittedAt time.Time
}

type appliedStep struct {
	delta Delta
	txnID uint
}

// Apply writes every delta and its Transaction row. Deductions use a
// "pallets >= qty" conditional update unless allowNegative is set. When a later
// step fails, already-applied steps are compensated and the error returned.
func Apply(db *gorm.DB, entry Entry, deltas []Delta, allowNegative bool) ([]models.Transaction, error) {
	if entry.CommittedAt.IsZero() {
		entry.CommittedAt = time.Now()
	}
	batchID := uuid.NewString()

	var applied []appliedStep
	txns := make([]models.Transaction, 0, len(deltas))
	for _, d := range deltas {
		if d.Qty == 0 || d.GroupName == "" {
			continue
		}
		if err := adjust(db, d, allowNegative); err != nil {
			compensate(db, applied)
			return nil, err
		}

		txn := models.Transaction{
			BatchID:     batchID,
			Reference:   entry.Reference,
			GroupName:   d.GroupName,
			WarehouseID: d.WarehouseID,
			Delta:       d.Qty,
			Status:      entry.Status,
			Reason:      entry.Reason,
			Actor:       entry.Actor,
			CommittedAt: entry.CommittedAt,
		}
		if err := db.Create(&txn).Error; err != nil {
			compensate(db, append(applied, appliedStep{delta: d}))
			return nil, fmt.Errorf("transaction kaydedilemedi: %w", err)
		}
		applied = append(applied, appliedStep{delta: d, txnID: txn.ID})
		txns = append(txns, txn)
	}
	return txns, nil
}

func adjust(db *gorm.DB, d Delta, allowNegative bool) error {
	if d.Qty < 0 && !allowNegative {
		need := -d.Qty
		res := db.Model(&models.Stock{}).
			Where("warehouse_id = ? AND group_name = ? AND pallets >= ?", d.WarehouseID, d.GroupName, need).
			UpdateColumn("pallets", gorm.Expr("pallets - ?", need))
		if res.Error != nil {
			return fmt.Errorf("stok güncellenemedi: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			available, _ := Current(db, d.WarehouseID, d.GroupName)
			return &InsufficientStockError{
				WarehouseID: d.WarehouseID,
				GroupName:   d.GroupName,
				Required:    need,
				Available:   available,
			}
		}
		return nil
	}

	row := models.Stock{WarehouseID: d.WarehouseID, GroupName: d.GroupName, Pallets: d.Qty}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "warehouse_id"}, {Name: "group_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"pallets":    gorm.Expr("stocks.pallets + ?", d.Qty),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("stok güncellenemedi: %w", err)
	}
	return nil
}

// compensate: uygulanmış adımları ters sırada geri alır; hata loglanır, dönülmez
func compensate(db *gorm.DB, applied []appliedStep) {
	for i := len(applied) - 1; i >= 0; i-- {
		a := applied[i]
		err := db.Model(&models.Stock{}).
			Where("warehouse_id = ? AND group_name = ?", a.delta.WarehouseID, a.delta.GroupName).
			UpdateColumn("pallets", gorm.Expr("pallets - ?", a.delta.Qty)).Error
		if err != nil {
			log.Printf("ledger rollback: stok geri alınamadı (depo=%d grup=%s qty=%d): %v",
				a.delta.WarehouseID, a.delta.GroupName, a.delta.Qty, err)
		}
		if a.txnID == 0 {
			continue
		}
		if err := db.Delete(&models.Transaction{}, a.txnID).Error; err != nil {
			log.Printf("ledger rollback: transaction %d silinemedi: %v", a.txnID, err)
		}
	}
}

// Current returns the pallet count of one stock row, 0 when it does not exist.
func Current(db *gorm.DB, warehouseID uint, groupName string) (int, error) {
	var s models.Stock
	err := db.Where("warehouse_id = ? AND group_name = ?", warehouseID, groupName).Limit(1).Find(&s).Error
	if err != nil {
		return 0, err
	}
	return s.Pallets, nil
}

// Totals sums pallets per group for one warehouse, optionally restricted to groups.
func Totals(db *gorm.DB, warehouseID uint, groups []string) (map[string]int, error) {
	q := db.Model(&models.Stock{}).Where("warehouse_id = ?", warehouseID)
	if len(groups) > 0 {
		q = q.Where("group_name IN ?", groups)
	}
	var rows []models.Stock
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.GroupName] += r.Pallets
	}
	return out, nil
}

// Revert undoes previously applied transactions: stock is moved back by each
// delta and the transaction rows are removed. The first error stops the walk.
func Revert(db *gorm.DB, txns []models.Transaction) error {
	for i := len(txns) - 1; i >= 0; i-- {
		t := txns[i]
		err := db.Model(&models.Stock{}).
			Where("warehouse_id = ? AND group_name = ?", t.WarehouseID, t.GroupName).
			UpdateColumn("pallets", gorm.Expr("pallets - ?", t.Delta)).Error
		if err != nil {
			return err
		}
		if err := db.Delete(&models.Transaction{}, t.ID).Error; err != nil {
			return err
		}
	}
	return nil
}
