package allocation

import (
	"pallet-backend/internal/models"
	"pallet-backend/internal/registry"

	"gorm.io/gorm"
)

// TierSupply is the available quantity of one group per tier for a
// destination warehouse: tier total minus what other orders reserved.
type TierSupply struct {
	GroupName string `json:"group_name"`
	Primary   int    `json:"primary"`
	OnWater   int    `json:"on_water"`
	Second    int    `json:"second"`
	OnProcess int    `json:"on_process"`
}

func (s TierSupply) Of(t models.Tier) int {
	switch t {
	case models.TierPrimary:
		return s.Primary
	case models.TierOnWater:
		return s.OnWater
	case models.TierSecond:
		return s.Second
	case models.TierOnProcess:
		return s.OnProcess
	}
	return 0
}

// supplyView evaluates tier availability for one destination warehouse.
// Reservations of excludeOrder are not counted, so an order can be
// re-planned against its own claims.
type supplyView struct {
	db           *gorm.DB
	dest         uint
	paired       *uint
	scope        []uint
	excludeOrder string
}

func newSupplyView(db *gorm.DB, dest uint, excludeOrder string) (*supplyView, error) {
	scope, err := registry.Scope(db, dest)
	if err != nil {
		return nil, err
	}
	v := &supplyView{db: db, dest: dest, scope: scope, excludeOrder: excludeOrder}
	if len(scope) > 1 {
		p := scope[1]
		v.paired = &p
	}
	return v, nil
}

func (v *supplyView) reserved() *gorm.DB {
	q := v.db.Model(&models.Reservation{})
	if v.excludeOrder != "" {
		q = q.Where("order_number <> ?", v.excludeOrder)
	}
	return q
}

func sum(q *gorm.DB, expr string) (int, error) {
	var n int64
	if err := q.Select("COALESCE(SUM(" + expr + "), 0)").Scan(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// physical: stock at a warehouse minus primary and second claims sourced there
func (v *supplyView) physical(warehouseID uint, group string) (int, error) {
	stock, err := sum(v.db.Model(&models.Stock{}).
		Where("warehouse_id = ? AND group_name = ?", warehouseID, group), "pallets")
	if err != nil {
		return 0, err
	}
	claimed, err := sum(v.reserved().
		Where("source_warehouse_id = ? AND group_name = ? AND tier IN ?", warehouseID, group,
			[]models.Tier{models.TierPrimary, models.TierSecond}), "qty")
	if err != nil {
		return 0, err
	}
	return stock - claimed, nil
}

func (v *supplyView) onWater(group string) (int, error) {
	inTransit, err := sum(v.db.Model(&models.ShipmentLine{}).
		Joins("JOIN shipments ON shipments.id = shipment_lines.shipment_id").
		Where("shipments.status = ? AND shipments.warehouse_id IN ? AND shipment_lines.group_name = ?",
			models.ShipmentOnWater, v.scope, group), "shipment_lines.pallets")
	if err != nil {
		return 0, err
	}
	claimed, err := sum(v.reserved().
		Where("tier = ? AND warehouse_id IN ? AND group_name = ?", models.TierOnWater, v.scope, group), "qty")
	if err != nil {
		return 0, err
	}
	return inTransit - claimed, nil
}

func (v *supplyView) onProcess(group string) (int, error) {
	remaining, err := sum(v.db.Model(&models.ProductionPallet{}).
		Where("group_name = ? AND status <> ?", group, models.ProductionCancelled),
		"CASE WHEN total_pallets > transferred_pallets THEN total_pallets - transferred_pallets ELSE 0 END")
	if err != nil {
		return 0, err
	}
	claimed, err := sum(v.reserved().
		Where("tier = ? AND group_name = ?", models.TierOnProcess, group), "qty")
	if err != nil {
		return 0, err
	}
	return remaining - claimed, nil
}

// available returns the unclamped availability; negative means overbooked.
func (v *supplyView) available(t models.Tier, group string) (int, error) {
	switch t {
	case models.TierPrimary:
		return v.physical(v.dest, group)
	case models.TierSecond:
		if v.paired == nil {
			return 0, nil
		}
		return v.physical(*v.paired, group)
	case models.TierOnWater:
		return v.onWater(group)
	case models.TierOnProcess:
		return v.onProcess(group)
	}
	return 0, nil
}

// source is the physical warehouse a reservation at tier t draws from.
func (v *supplyView) source(t models.Tier) *uint {
	switch t {
	case models.TierPrimary:
		d := v.dest
		return &d
	case models.TierSecond:
		if v.paired == nil {
			return nil
		}
		p := *v.paired
		return &p
	}
	return nil
}

func (v *supplyView) supply(group string) (TierSupply, error) {
	out := TierSupply{GroupName: group}
	for _, t := range models.TierPriority {
		n, err := v.available(t, group)
		if err != nil {
			return out, err
		}
		if n < 0 {
			n = 0
		}
		switch t {
		case models.TierPrimary:
			out.Primary = n
		case models.TierOnWater:
			out.OnWater = n
		case models.TierSecond:
			out.Second = n
		case models.TierOnProcess:
			out.OnProcess = n
		}
	}
	return out, nil
}

// Availability reports tier availability for a destination warehouse. With no
// groups given, every active pallet group is reported.
func (e *Engine) Availability(warehouseID uint, groups []string) ([]TierSupply, error) {
	if _, err := e.loadWarehouse(e.db, warehouseID); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		if err := e.db.Model(&models.PalletGroup{}).Where("active = ?", true).
			Order("name ASC").Pluck("name", &groups).Error; err != nil {
			return nil, err
		}
	}
	v, err := newSupplyView(e.db, warehouseID, "")
	if err != nil {
		return nil, err
	}
	out := make([]TierSupply, 0, len(groups))
	for _, g := range groups {
		s, err := v.supply(g)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
