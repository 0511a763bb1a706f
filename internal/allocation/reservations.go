package allocation

import (
	"sort"

	"pallet-backend/internal/models"

	"gorm.io/gorm"
)

func (u *unit) createReservation(r *models.Reservation) error {
	return u.create(r, func(db *gorm.DB) error {
		return db.Delete(&models.Reservation{}, r.ID).Error
	})
}

// setReservationQty changes a reservation's quantity; rows that reach zero are deleted.
func (u *unit) setReservationQty(r models.Reservation, qty int) error {
	if qty <= 0 {
		if err := u.db.Delete(&models.Reservation{}, r.ID).Error; err != nil {
			return err
		}
		u.onRollback(func(db *gorm.DB) error {
			restored := r
			return db.Create(&restored).Error
		})
		return nil
	}
	return u.updateColumns(&models.Reservation{ID: r.ID},
		map[string]interface{}{"qty": qty},
		map[string]interface{}{"qty": r.Qty})
}

// addReservation increments the matching (order, group, tier, source) row or creates it.
func (u *unit) addReservation(order *models.Order, group string, tier models.Tier, source *uint, qty int, actor string) error {
	q := u.db.Where("order_number = ? AND group_name = ? AND tier = ?", order.OrderNumber, group, tier)
	if source == nil {
		q = q.Where("source_warehouse_id IS NULL")
	} else {
		q = q.Where("source_warehouse_id = ?", *source)
	}
	var existing models.Reservation
	if err := q.Limit(1).Find(&existing).Error; err != nil {
		return err
	}
	if existing.ID != 0 {
		return u.setReservationQty(existing, existing.Qty+qty)
	}
	r := models.Reservation{
		OrderNumber:       order.OrderNumber,
		WarehouseID:       order.WarehouseID,
		SourceWarehouseID: source,
		GroupName:         group,
		Tier:              tier,
		Qty:               qty,
		Actor:             actor,
	}
	return u.createReservation(&r)
}

func (u *unit) deleteReservations(orderNumber string) error {
	var rows []models.Reservation
	if err := u.db.Where("order_number = ?", orderNumber).Find(&rows).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := u.db.Where("order_number = ?", orderNumber).Delete(&models.Reservation{}).Error; err != nil {
		return err
	}
	u.onRollback(func(db *gorm.DB) error { return db.Create(&rows).Error })
	return nil
}

func reservationsOf(db *gorm.DB, orderNumber string) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := db.Where("order_number = ?", orderNumber).Order("created_at ASC, id ASC").Find(&rows).Error
	return rows, err
}

// syncAllocations rewrites the order's allocation mirror from its reservations.
func (u *unit) syncAllocations(order *models.Order) error {
	rows, err := reservationsOf(u.db, order.OrderNumber)
	if err != nil {
		return err
	}
	return u.replaceAllocations(order.ID, mirror(order.ID, rows))
}

func (u *unit) replaceAllocations(orderID uint, next []models.OrderAllocation) error {
	var prev []models.OrderAllocation
	if err := u.db.Where("order_id = ?", orderID).Find(&prev).Error; err != nil {
		return err
	}
	if err := u.db.Where("order_id = ?", orderID).Delete(&models.OrderAllocation{}).Error; err != nil {
		return err
	}
	if len(next) > 0 {
		if err := u.db.Create(&next).Error; err != nil {
			return err
		}
	}
	u.onRollback(func(db *gorm.DB) error {
		if err := db.Where("order_id = ?", orderID).Delete(&models.OrderAllocation{}).Error; err != nil {
			return err
		}
		if len(prev) == 0 {
			return nil
		}
		return db.Create(&prev).Error
	})
	return nil
}

func tierRank(t models.Tier) int {
	for i, p := range models.TierPriority {
		if p == t {
			return i
		}
	}
	return len(models.TierPriority)
}

func mirror(orderID uint, rows []models.Reservation) []models.OrderAllocation {
	type key struct {
		group  string
		tier   models.Tier
		source uint
	}
	idx := map[key]int{}
	var out []models.OrderAllocation
	for _, r := range rows {
		if r.Qty <= 0 {
			continue
		}
		k := key{r.GroupName, r.Tier, 0}
		if r.SourceWarehouseID != nil {
			k.source = *r.SourceWarehouseID
		}
		if i, ok := idx[k]; ok {
			out[i].Qty += r.Qty
			continue
		}
		idx[k] = len(out)
		out = append(out, models.OrderAllocation{
			OrderID:     orderID,
			GroupName:   r.GroupName,
			Qty:         r.Qty,
			Tier:        r.Tier,
			WarehouseID: r.SourceWarehouseID,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].GroupName != out[j].GroupName {
			return out[i].GroupName < out[j].GroupName
		}
		return tierRank(out[i].Tier) < tierRank(out[j].Tier)
	})
	return out
}
