package allocation

import (
	"pallet-backend/internal/models"
	"pallet-backend/internal/registry"

	"gorm.io/gorm"
)

const rebalanceActor = "rebalance"

var holdingStatuses = []models.OrderStatus{models.OrderProcessing, models.OrderReadyToShip}

// promotions: her hedef katman ve onu besleyen alt katmanlar, en yakından başlayarak
var promotions = []struct {
	to   models.Tier
	from []models.Tier
}{
	{models.TierPrimary, []models.Tier{models.TierOnWater, models.TierSecond, models.TierOnProcess}},
	{models.TierOnWater, []models.Tier{models.TierSecond, models.TierOnProcess}},
	{models.TierSecond, []models.Tier{models.TierOnProcess}},
}

// Rebalance first demotes claims whose tier lost its backing supply, then
// promotes reservations toward primary wherever a higher tier has free
// capacity. scopeWarehouse limits it to orders whose supply pool includes
// that warehouse; groups limits the pallet groups considered. It returns the
// number of orders whose reservations changed.
func (e *Engine) Rebalance(scopeWarehouse *uint, groups []string) (int, error) {
	var touched map[uint]*models.Order
	err := e.run("rebalance", func(u *unit) error {
		var err error
		touched, err = e.rebalance(u, scopeWarehouse, groups)
		return err
	})
	if err != nil {
		return 0, err
	}
	for id := range touched {
		e.publish("order", id, "rebalanced")
	}
	return len(touched), nil
}

// dependents lists the destination warehouses whose supply pool contains id.
func dependents(db *gorm.DB, id uint) ([]uint, error) {
	all, err := registry.List(db)
	if err != nil {
		return nil, err
	}
	var out []uint
	for _, w := range all {
		scope, err := registry.Scope(db, w.ID)
		if err != nil {
			return nil, err
		}
		for _, s := range scope {
			if s == id {
				out = append(out, w.ID)
				break
			}
		}
	}
	return out, nil
}

type promoter struct {
	e       *Engine
	u       *unit
	views   map[uint]*supplyView
	orders  map[string]*models.Order
	touched map[uint]*models.Order
}

func (e *Engine) newPromoter(u *unit) *promoter {
	return &promoter{
		e:       e,
		u:       u,
		views:   map[uint]*supplyView{},
		orders:  map[string]*models.Order{},
		touched: map[uint]*models.Order{},
	}
}

func (p *promoter) view(dest uint) (*supplyView, error) {
	if v, ok := p.views[dest]; ok {
		return v, nil
	}
	v, err := newSupplyView(p.u.db, dest, "")
	if err != nil {
		return nil, err
	}
	p.views[dest] = v
	return v, nil
}

func (p *promoter) order(number string) (*models.Order, error) {
	if o, ok := p.orders[number]; ok {
		return o, nil
	}
	var o models.Order
	if err := p.u.db.Where("order_number = ?", number).First(&o).Error; err != nil {
		return nil, err
	}
	p.orders[number] = &o
	return &o, nil
}

// holding returns reservations at the given tiers that belong to
// reservation-holding orders, oldest first.
func (p *promoter) holding(tiers []models.Tier, warehouses []uint, groups []string, source *uint) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := p.holdingQuery(tiers, warehouses, groups, source).
		Order("reservations.created_at ASC, reservations.id ASC").Find(&rows).Error
	return rows, err
}

func (p *promoter) holdingQuery(tiers []models.Tier, warehouses []uint, groups []string, source *uint) *gorm.DB {
	q := p.u.db.Model(&models.Reservation{}).
		Joins("JOIN orders ON orders.order_number = reservations.order_number").
		Where("orders.status IN ? AND reservations.tier IN ?", holdingStatuses, tiers)
	if warehouses != nil {
		q = q.Where("reservations.warehouse_id IN ?", warehouses)
	}
	if len(groups) > 0 {
		q = q.Where("reservations.group_name IN ?", groups)
	}
	if source != nil {
		q = q.Where("reservations.source_warehouse_id = ?", *source)
	}
	return q
}

// excess is how much of r its tier no longer backs.
func (p *promoter) excess(r models.Reservation) (int, error) {
	order, err := p.order(r.OrderNumber)
	if err != nil {
		return 0, err
	}
	v, err := p.view(order.WarehouseID)
	if err != nil {
		return 0, err
	}
	avail, err := v.available(r.Tier, r.GroupName)
	if err != nil || avail >= 0 {
		return 0, err
	}
	return min(r.Qty, -avail), nil
}

// repair demotes claims of overbooked tiers, newest first, into lower tiers
// with room. Excess that no lower tier can take stays put and surfaces as a
// shortage at ship time.
func (p *promoter) repair(warehouses []uint, groups []string) error {
	for i, tier := range models.TierPriority {
		lower := models.TierPriority[i+1:]
		if len(lower) == 0 {
			break
		}
		var rows []models.Reservation
		if err := p.holdingQuery([]models.Tier{tier}, warehouses, groups, nil).
			Order("reservations.created_at DESC, reservations.id DESC").Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			excess, err := p.excess(r)
			if err != nil {
				return err
			}
			for _, to := range lower {
				if excess <= 0 {
					break
				}
				n, err := p.move(r, to, excess)
				if err != nil {
					return err
				}
				r.Qty -= n
				excess -= n
			}
		}
	}
	return nil
}

// move shifts up to limit units of r to tier to, bounded by that tier's free
// capacity for the order. limit < 0 means unbounded.
func (p *promoter) move(r models.Reservation, to models.Tier, limit int) (int, error) {
	order, err := p.order(r.OrderNumber)
	if err != nil {
		return 0, err
	}
	v, err := p.view(order.WarehouseID)
	if err != nil {
		return 0, err
	}
	if to == models.TierSecond && v.paired == nil {
		return 0, nil
	}
	capacity, err := v.available(to, r.GroupName)
	if err != nil {
		return 0, err
	}
	qty := min(r.Qty, capacity)
	if limit >= 0 {
		qty = min(qty, limit)
	}
	if qty <= 0 {
		return 0, nil
	}

	if err := p.u.setReservationQty(r, r.Qty-qty); err != nil {
		return 0, err
	}
	if err := p.u.addReservation(order, r.GroupName, to, v.source(to), qty, rebalanceActor); err != nil {
		return 0, err
	}
	p.touched[order.ID] = order
	return qty, nil
}

// settle refreshes every order whose reservations moved.
func (p *promoter) settle() error {
	for _, o := range p.touched {
		if err := p.e.settle(p.u, o); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) rebalance(u *unit, scopeWarehouse *uint, groups []string) (map[uint]*models.Order, error) {
	var warehouses []uint
	if scopeWarehouse != nil {
		deps, err := dependents(u.db, *scopeWarehouse)
		if err != nil {
			return nil, err
		}
		if len(deps) == 0 {
			return nil, nil
		}
		warehouses = deps
	}

	p := e.newPromoter(u)
	if err := p.repair(warehouses, groups); err != nil {
		return nil, err
	}
	for pass := 0; pass < len(models.TierPriority); pass++ {
		moved := false
		for _, step := range promotions {
			for _, from := range step.from {
				rows, err := p.holding([]models.Tier{from}, warehouses, groups, nil)
				if err != nil {
					return nil, err
				}
				for _, r := range rows {
					n, err := p.move(r, step.to, -1)
					if err != nil {
						return nil, err
					}
					if n > 0 {
						moved = true
					}
				}
			}
		}
		if !moved {
			break
		}
	}
	if err := p.settle(); err != nil {
		return nil, err
	}
	return p.touched, nil
}

// migrate moves up to qty units of group from one tier to another for
// orders destined to warehouses, FIFO by reservation creation. Only
// reservations drawing from source are considered when source is set.
func (e *Engine) migrate(u *unit, group string, from, to models.Tier, warehouses []uint, source *uint, qty int) (map[uint]*models.Order, error) {
	p := e.newPromoter(u)
	rows, err := p.holding([]models.Tier{from}, warehouses, []string{group}, source)
	if err != nil {
		return nil, err
	}
	left := qty
	for _, r := range rows {
		if left <= 0 {
			break
		}
		n, err := p.move(r, to, left)
		if err != nil {
			return nil, err
		}
		left -= n
	}
	if err := p.settle(); err != nil {
		return nil, err
	}
	return p.touched, nil
}
