package allocation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pallet-backend/internal/ledger"
	"pallet-backend/internal/models"

	"gorm.io/gorm"
)

const ReasonProductionTransfer = "production_transfer"

type TransferMode string

const (
	TransferDelivered TransferMode = "delivered"
	TransferOnWater   TransferMode = "on_water"
)

type BatchPalletInput struct {
	GroupName    string `json:"group_name"`
	TotalPallets int    `json:"total_pallets"`
	Notes        string `json:"notes"`
}

type BatchInput struct {
	Reference     string             `json:"reference"`
	PONumber      string             `json:"po_number"`
	EstFinishDate *time.Time         `json:"est_finish_date"`
	Notes         string             `json:"notes"`
	Pallets       []BatchPalletInput `json:"pallets"`
}

// PalletUpdate: nil alanlar değişmez
type PalletUpdate struct {
	TotalPallets    *int                     `json:"total_pallets"`
	FinishedPallets *int                     `json:"finished_pallets"`
	Status          *models.ProductionStatus `json:"status"`
	Notes           *string                  `json:"notes"`
}

type PalletUpdateResult struct {
	Pallet  models.ProductionPallet `json:"pallet"`
	Clamped []ConsistencyError      `json:"clamped,omitempty"`
}

type TransferItem struct {
	GroupName string `json:"group_name"`
	Qty       int    `json:"qty"`
}

type TransferInput struct {
	Mode            TransferMode   `json:"mode"`
	WarehouseID     uint           `json:"warehouse_id"`
	EstDeliveryDate *time.Time     `json:"est_delivery_date"`
	Items           []TransferItem `json:"items"`
}

type TransferredLine struct {
	GroupName string `json:"group_name"`
	Requested int    `json:"requested"`
	Qty       int    `json:"qty"`
}

type TransferResult struct {
	Batch    models.ProductionBatch `json:"batch"`
	Lines    []TransferredLine      `json:"lines"`
	Clamped  []ConsistencyError     `json:"clamped,omitempty"`
	Shipment *models.Shipment       `json:"shipment,omitempty"`
}

func loadBatch(db *gorm.DB, id uint) (*models.ProductionBatch, error) {
	var b models.ProductionBatch
	err := db.Preload("Pallets", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (e *Engine) GetBatch(id uint) (*models.ProductionBatch, error) {
	return loadBatch(e.db, id)
}

func (e *Engine) ListBatches() ([]models.ProductionBatch, error) {
	var out []models.ProductionBatch
	err := e.db.Preload("Pallets").Order("id DESC").Find(&out).Error
	return out, err
}

// CreateBatch registers a production batch; its pallets join the on-process tier.
func (e *Engine) CreateBatch(in BatchInput, actor string) (*models.ProductionBatch, error) {
	ref := strings.TrimSpace(in.Reference)
	if ref == "" {
		return nil, invalid("parti referansı zorunludur")
	}
	po := strings.TrimSpace(in.PONumber)
	if po == "" {
		po = ref
	}
	if len(in.Pallets) == 0 {
		return nil, invalid("en az bir palet satırı gereklidir")
	}

	var b *models.ProductionBatch
	err := e.run("create-batch", func(u *unit) error {
		var count int64
		if err := u.db.Model(&models.ProductionBatch{}).Where("reference = ?", ref).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("parti referansı zaten kayıtlı: %s", ref)
		}

		seen := map[string]bool{}
		b = &models.ProductionBatch{
			Reference:     ref,
			PONumber:      po,
			Status:        models.BatchInProgress,
			EstFinishDate: in.EstFinishDate,
			Notes:         in.Notes,
			CreatedBy:     actor,
		}
		for i, p := range in.Pallets {
			if p.TotalPallets <= 0 {
				return invalid("satır %d: toplam palet 0'dan büyük olmalıdır", i+1)
			}
			name, err := e.resolveGroup(u.db, p.GroupName)
			if err != nil {
				return err
			}
			if seen[name] {
				return invalid("palet grubu partide birden fazla kez geçiyor: %s", name)
			}
			seen[name] = true
			b.Pallets = append(b.Pallets, models.ProductionPallet{
				PONumber:     po,
				GroupName:    name,
				TotalPallets: p.TotalPallets,
				Status:       models.ProductionInProgress,
				Notes:        p.Notes,
			})
		}

		return u.create(b, func(db *gorm.DB) error {
			if err := db.Where("batch_id = ?", b.ID).Delete(&models.ProductionPallet{}).Error; err != nil {
				return err
			}
			return db.Delete(&models.ProductionBatch{}, b.ID).Error
		})
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, conflict("bu PO ve palet grubu için üretim kaydı zaten var")
		}
		return nil, err
	}
	e.publish("production_batch", b.ID, "created")
	return b, nil
}

func palletStatus(p models.ProductionPallet) models.ProductionStatus {
	switch {
	case p.Status == models.ProductionCancelled:
		return models.ProductionCancelled
	case p.TransferredPallets >= p.TotalPallets:
		return models.ProductionCompleted
	case p.TransferredPallets > 0:
		return models.ProductionPartial
	}
	return models.ProductionInProgress
}

func batchStatus(pallets []models.ProductionPallet) models.BatchStatus {
	done, started := 0, false
	for _, p := range pallets {
		switch p.Status {
		case models.ProductionCompleted, models.ProductionCancelled:
			done++
			started = true
		case models.ProductionPartial:
			started = true
		}
	}
	switch {
	case len(pallets) > 0 && done == len(pallets):
		return models.BatchCompleted
	case started:
		return models.BatchPartialDone
	}
	return models.BatchInProgress
}

func (u *unit) savePallet(before, after models.ProductionPallet) error {
	return u.updateColumns(&models.ProductionPallet{ID: after.ID},
		map[string]interface{}{
			"total_pallets":       after.TotalPallets,
			"finished_pallets":    after.FinishedPallets,
			"transferred_pallets": after.TransferredPallets,
			"status":              after.Status,
			"notes":               after.Notes,
		},
		map[string]interface{}{
			"total_pallets":       before.TotalPallets,
			"finished_pallets":    before.FinishedPallets,
			"transferred_pallets": before.TransferredPallets,
			"status":              before.Status,
			"notes":               before.Notes,
		})
}

func (u *unit) refreshBatchStatus(batchID uint) error {
	b, err := loadBatch(u.db, batchID)
	if err != nil {
		return err
	}
	next := batchStatus(b.Pallets)
	if next == b.Status {
		return nil
	}
	return u.updateColumns(&models.ProductionBatch{ID: b.ID},
		map[string]interface{}{"status": next},
		map[string]interface{}{"status": b.Status})
}

// UpdateProductionPallet edits planned/finished quantities. Out-of-range
// values are clamped and reported instead of rejected.
func (e *Engine) UpdateProductionPallet(batchID, palletID uint, in PalletUpdate) (*PalletUpdateResult, error) {
	var res *PalletUpdateResult
	err := e.run("update-production-pallet", func(u *unit) error {
		var p models.ProductionPallet
		if err := u.db.Where("id = ? AND batch_id = ?", palletID, batchID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		before := p
		res = &PalletUpdateResult{}

		if p.Locked {
			if in.FinishedPallets != nil || in.Status != nil {
				return conflict("kilitli üretim satırında yalnızca toplam artırılabilir")
			}
			if in.TotalPallets != nil && *in.TotalPallets < p.TotalPallets {
				return conflict("kilitli üretim satırının toplamı azaltılamaz")
			}
		}

		if in.Status != nil {
			switch *in.Status {
			case models.ProductionCancelled:
				if p.TransferredPallets > 0 {
					return conflict("transfer başlamış üretim iptal edilemez")
				}
				p.Status = models.ProductionCancelled
			case models.ProductionInProgress:
				if p.Status == models.ProductionCancelled {
					p.Status = models.ProductionInProgress
				}
			default:
				return invalid("geçersiz üretim durumu: %s", *in.Status)
			}
		}

		if in.TotalPallets != nil {
			total := *in.TotalPallets
			if floor := p.TransferredPallets + p.FinishedPallets; total < floor {
				res.Clamped = append(res.Clamped, ConsistencyError{
					GroupName: p.GroupName,
					Requested: total,
					Applied:   floor,
					Message:   fmt.Sprintf("toplam, transfer edilen ve biten miktarın altına indirilemez (%d)", floor),
				})
				total = floor
			}
			p.TotalPallets = total
		}
		if in.FinishedPallets != nil {
			finished := *in.FinishedPallets
			ceiling := p.TotalPallets - p.TransferredPallets
			applied := max(0, min(finished, ceiling))
			if applied != finished {
				res.Clamped = append(res.Clamped, ConsistencyError{
					GroupName: p.GroupName,
					Requested: finished,
					Applied:   applied,
					Message:   fmt.Sprintf("biten miktar 0 ile %d arasında olmalıdır", ceiling),
				})
			}
			p.FinishedPallets = applied
		}
		if in.Notes != nil {
			p.Notes = *in.Notes
		}
		p.Status = palletStatus(p)

		if err := u.savePallet(before, p); err != nil {
			return err
		}
		res.Pallet = p
		return u.refreshBatchStatus(batchID)
	})
	if err != nil {
		return nil, err
	}
	e.publish("production_batch", batchID, "updated")
	return res, nil
}

// TransferProduction moves finished pallets out of production, either
// straight into a warehouse or onto the water toward it.
func (e *Engine) TransferProduction(batchID uint, in TransferInput, actor string) (*TransferResult, error) {
	if in.Mode != TransferDelivered && in.Mode != TransferOnWater {
		return nil, invalid("geçersiz transfer modu: %s", in.Mode)
	}
	if len(in.Items) == 0 {
		return nil, invalid("en az bir transfer satırı gereklidir")
	}

	var res *TransferResult
	err := e.run("transfer-production", func(u *unit) error {
		if _, err := e.loadWarehouse(u.db, in.WarehouseID); err != nil {
			return err
		}
		b, err := loadBatch(u.db, batchID)
		if err != nil {
			return err
		}
		res = &TransferResult{}

		byGroup := map[string]int{}
		for i, p := range b.Pallets {
			byGroup[p.GroupName] = i
		}

		var moved []models.ShipmentLine
		for _, item := range in.Items {
			name, err := e.resolveGroup(u.db, item.GroupName)
			if err != nil {
				return err
			}
			i, ok := byGroup[name]
			if !ok {
				return invalid("palet grubu bu partide yok: %s", name)
			}
			if item.Qty <= 0 {
				return invalid("%s: transfer miktarı 0'dan büyük olmalıdır", name)
			}
			p := b.Pallets[i]
			if p.Status == models.ProductionCancelled {
				return conflict("iptal edilmiş üretim transfer edilemez: %s", name)
			}

			qty := min(item.Qty, p.FinishedPallets, p.Remaining())
			if qty != item.Qty {
				res.Clamped = append(res.Clamped, ConsistencyError{
					GroupName: name,
					Requested: item.Qty,
					Applied:   qty,
					Message:   fmt.Sprintf("%s: transfer miktarı biten (%d) ve kalan (%d) miktarla sınırlandı", name, p.FinishedPallets, p.Remaining()),
				})
			}
			res.Lines = append(res.Lines, TransferredLine{GroupName: name, Requested: item.Qty, Qty: qty})
			if qty <= 0 {
				continue
			}

			before := p
			p.TransferredPallets += qty
			p.FinishedPallets -= qty
			p.Status = palletStatus(p)
			if err := u.savePallet(before, p); err != nil {
				return err
			}
			b.Pallets[i] = p
			moved = append(moved, models.ShipmentLine{GroupName: name, Pallets: qty})
		}
		if len(moved) == 0 {
			res.Batch = *b
			return nil
		}
		if err := u.refreshBatchStatus(b.ID); err != nil {
			return err
		}

		switch in.Mode {
		case TransferDelivered:
			deltas := make([]ledger.Delta, 0, len(moved))
			for _, l := range moved {
				deltas = append(deltas, ledger.Delta{WarehouseID: in.WarehouseID, GroupName: l.GroupName, Qty: l.Pallets})
			}
			entry := ledger.Entry{
				Reference:   b.PONumber,
				Status:      models.TxnDelivered,
				Reason:      ReasonProductionTransfer,
				Actor:       actor,
				CommittedAt: e.now(),
			}
			if _, err := u.applyLedger(entry, deltas, false); err != nil {
				return err
			}
			for _, l := range moved {
				if _, err := e.migrate(u, l.GroupName, models.TierOnProcess, models.TierPrimary,
					[]uint{in.WarehouseID}, nil, l.Pallets); err != nil {
					return err
				}
			}
		case TransferOnWater:
			s := &models.Shipment{
				Kind:            models.ShipmentImport,
				Status:          models.ShipmentOnWater,
				Reference:       b.PONumber,
				WarehouseID:     in.WarehouseID,
				EstDeliveryDate: in.EstDeliveryDate,
				Notes:           "production transfer " + b.Reference,
				CreatedBy:       actor,
				Lines:           moved,
			}
			if err := u.createShipment(s); err != nil {
				return err
			}
			res.Shipment = s
			deps, err := dependents(u.db, in.WarehouseID)
			if err != nil {
				return err
			}
			for _, l := range moved {
				if _, err := e.migrate(u, l.GroupName, models.TierOnProcess, models.TierOnWater,
					deps, nil, l.Pallets); err != nil {
					return err
				}
			}
		}

		if _, err := e.rebalance(u, &in.WarehouseID, groupsOf(moved)); err != nil {
			return err
		}
		nb, err := loadBatch(u.db, b.ID)
		if err != nil {
			return err
		}
		res.Batch = *nb
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish("production_batch", batchID, "transferred")
	if res.Shipment != nil {
		e.publish("shipment", res.Shipment.ID, "created")
	}
	return res, nil
}

// lockTransferred locks fully transferred production rows of a PO once
// its goods have arrived.
func (e *Engine) lockTransferred(u *unit, poNumber string) error {
	var rows []models.ProductionPallet
	err := u.db.Where("po_number = ? AND locked = ? AND transferred_pallets >= total_pallets", poNumber, false).
		Find(&rows).Error
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := u.updateColumns(&models.ProductionPallet{ID: r.ID},
			map[string]interface{}{"locked": true},
			map[string]interface{}{"locked": false}); err != nil {
			return err
		}
	}
	return nil
}
