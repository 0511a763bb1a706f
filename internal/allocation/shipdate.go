package allocation

import (
	"sort"
	"time"

	"pallet-backend/internal/models"
	"pallet-backend/internal/registry"

	"gorm.io/gorm"
)

// shipDate derives the promised ship date from the tiers backing an order.
// Fully primary orders ship from the moment their primary claim was last set.
func (e *Engine) shipDate(db *gorm.DB, order *models.Order, rows []models.Reservation) (*time.Time, error) {
	now := e.now()
	if len(rows) == 0 {
		return nil, nil
	}

	if fullyPrimary(rows) {
		var latest time.Time
		for _, r := range rows {
			if r.UpdatedAt.After(latest) {
				latest = r.UpdatedAt
			}
		}
		if latest.IsZero() {
			latest = now
		}
		return &latest, nil
	}

	onWater := map[string]int{}
	onProcess := map[string]bool{}
	second := false
	for _, r := range rows {
		switch r.Tier {
		case models.TierOnWater:
			onWater[r.GroupName] += r.Qty
		case models.TierOnProcess:
			onProcess[r.GroupName] = true
		case models.TierSecond:
			second = true
		}
	}

	var candidates []time.Time
	for group, need := range onWater {
		d, err := e.onWaterDate(db, order, group, need)
		if err != nil {
			return nil, err
		}
		if d != nil {
			candidates = append(candidates, *d)
		}
	}
	if len(onProcess) > 0 {
		earliest, err := earliestFinish(db, onProcess)
		if err != nil {
			return nil, err
		}
		base := now
		if earliest != nil {
			base = *earliest
		}
		candidates = append(candidates, base.AddDate(0, 0, e.cfg.OnProcessLeadDays))
	}
	if second {
		candidates = append(candidates, now.AddDate(0, 0, e.cfg.SecondWarehouseLeadDays))
	}

	if len(candidates) == 0 {
		return nil, nil
	}
	out := candidates[0]
	for _, c := range candidates[1:] {
		if c.After(out) {
			out = c
		}
	}
	return &out, nil
}

type transitLot struct {
	ID      uint
	EDD     *time.Time
	Pallets int
}

// onWaterDate walks undelivered shipments of the pool by delivery date. Claims
// of earlier orders are consumed first; the order's date is that of the
// shipment where cumulative quantity covers its own need.
func (e *Engine) onWaterDate(db *gorm.DB, order *models.Order, group string, need int) (*time.Time, error) {
	scope, err := registry.Scope(db, order.WarehouseID)
	if err != nil {
		return nil, err
	}

	var shipments []models.Shipment
	err = db.Preload("Lines", "group_name = ?", group).
		Where("status = ? AND warehouse_id IN ?", models.ShipmentOnWater, scope).
		Find(&shipments).Error
	if err != nil {
		return nil, err
	}
	var lots []transitLot
	for _, s := range shipments {
		n := 0
		for _, l := range s.Lines {
			n += l.Pallets
		}
		if n > 0 {
			lots = append(lots, transitLot{ID: s.ID, EDD: s.EstDeliveryDate, Pallets: n})
		}
	}
	if len(lots) == 0 {
		return nil, nil
	}
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i].EDD, lots[j].EDD
		switch {
		case a == nil && b == nil:
			return lots[i].ID < lots[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return lots[i].ID < lots[j].ID
	})

	var ahead int64
	err = db.Model(&models.Reservation{}).
		Joins("JOIN orders ON orders.order_number = reservations.order_number").
		Where("reservations.tier = ? AND reservations.group_name = ? AND reservations.warehouse_id IN ? AND orders.id < ?",
			models.TierOnWater, group, scope, order.ID).
		Select("COALESCE(SUM(reservations.qty), 0)").
		Scan(&ahead).Error
	if err != nil {
		return nil, err
	}

	target := int(ahead) + need
	cum := 0
	var last *time.Time
	for _, l := range lots {
		cum += l.Pallets
		if l.EDD != nil {
			last = l.EDD
		}
		if cum >= target {
			if l.EDD == nil {
				return last, nil
			}
			d := *l.EDD
			return &d, nil
		}
	}
	return last, nil
}

func earliestFinish(db *gorm.DB, groups map[string]bool) (*time.Time, error) {
	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	var batchIDs []uint
	err := db.Model(&models.ProductionPallet{}).
		Where("group_name IN ? AND status <> ? AND total_pallets > transferred_pallets", names, models.ProductionCancelled).
		Distinct().Pluck("batch_id", &batchIDs).Error
	if err != nil || len(batchIDs) == 0 {
		return nil, err
	}
	var batches []models.ProductionBatch
	err = db.Where("id IN ? AND est_finish_date IS NOT NULL", batchIDs).
		Order("est_finish_date ASC").Limit(1).Find(&batches).Error
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return batches[0].EstFinishDate, nil
}
