package allocation

import (
	"sort"

	"pallet-backend/internal/ledger"
	"pallet-backend/internal/models"
)

const ReasonAdjustment = "adjustment"

type GroupBreakdown struct {
	GroupName string              `json:"group_name"`
	Required  int                 `json:"required"`
	Reserved  int                 `json:"reserved"`
	Tiers     map[models.Tier]int `json:"tiers"`
}

type Breakdown struct {
	OrderID     uint               `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	Status      models.OrderStatus `json:"status"`
	Groups      []GroupBreakdown   `json:"groups"`
}

// GetReservationBreakdown reports per group how much of the order sits in each
// tier. Shipped orders no longer hold reservations and report their
// allocation mirror instead.
func (e *Engine) GetReservationBreakdown(orderID uint) (*Breakdown, error) {
	order, err := loadOrder(e.db, orderID)
	if err != nil {
		return nil, err
	}

	groups := map[string]*GroupBreakdown{}
	get := func(name string) *GroupBreakdown {
		g, ok := groups[name]
		if !ok {
			g = &GroupBreakdown{GroupName: name, Tiers: map[models.Tier]int{}}
			groups[name] = g
		}
		return g
	}
	for _, l := range order.Lines {
		get(l.GroupName).Required += l.Qty
	}

	if order.Status.HoldsReservations() {
		rows, err := reservationsOf(e.db, order.OrderNumber)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			g := get(r.GroupName)
			g.Tiers[r.Tier] += r.Qty
			g.Reserved += r.Qty
		}
	} else {
		for _, a := range order.Allocations {
			g := get(a.GroupName)
			g.Tiers[a.Tier] += a.Qty
			g.Reserved += a.Qty
		}
	}

	out := &Breakdown{OrderID: order.ID, OrderNumber: order.OrderNumber, Status: order.Status}
	for _, g := range groups {
		out.Groups = append(out.Groups, *g)
	}
	sort.Slice(out.Groups, func(i, j int) bool { return out.Groups[i].GroupName < out.Groups[j].GroupName })
	return out, nil
}

type AdjustInput struct {
	WarehouseID   uint   `json:"warehouse_id"`
	GroupName     string `json:"group_name"`
	Delta         int    `json:"delta"`
	Reason        string `json:"reason"`
	Reference     string `json:"reference"`
	AllowNegative bool   `json:"allow_negative"`
}

// AdjustStock applies a manual stock correction. allowNegative permits a
// backorder that takes stock below zero.
func (e *Engine) AdjustStock(in AdjustInput, actor string) (*models.Transaction, error) {
	if in.Delta == 0 {
		return nil, invalid("düzeltme miktarı 0 olamaz")
	}
	var txn models.Transaction
	err := e.run("adjust-stock", func(u *unit) error {
		if _, err := e.loadWarehouse(u.db, in.WarehouseID); err != nil {
			return err
		}
		name, err := e.resolveGroup(u.db, in.GroupName)
		if err != nil {
			return err
		}
		reason := in.Reason
		if reason == "" {
			reason = ReasonAdjustment
		}
		txns, err := u.applyLedger(ledger.Entry{
			Reference:   in.Reference,
			Status:      models.TxnAdjustment,
			Reason:      reason,
			Actor:       actor,
			CommittedAt: e.now(),
		}, []ledger.Delta{{WarehouseID: in.WarehouseID, GroupName: name, Qty: in.Delta}}, in.AllowNegative)
		if err != nil {
			return err
		}
		txn = txns[0]
		// artış terfi, azalış karşılıksız kalan talepleri indirir
		_, err = e.rebalance(u, &in.WarehouseID, []string{name})
		return err
	})
	if err != nil {
		return nil, err
	}
	e.publish("stock", in.WarehouseID, "adjusted")
	return &txn, nil
}
