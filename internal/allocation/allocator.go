package allocation

import (
	"strings"

	"pallet-backend/internal/models"

	"gorm.io/gorm"
)

type DemandLine struct {
	GroupName string `json:"group_name"` // grup adı veya line item kodu
	Qty       int    `json:"qty"`
	LineItem  string `json:"line_item,omitempty"`
}

type Allocation struct {
	GroupName         string      `json:"group_name"`
	Tier              models.Tier `json:"tier"`
	Qty               int         `json:"qty"`
	SourceWarehouseID *uint       `json:"source_warehouse_id,omitempty"`
}

type Plan struct {
	WarehouseID uint         `json:"warehouse_id"`
	Lines       []DemandLine `json:"lines"`
	Allocations []Allocation `json:"allocations"`
}

// Allocate plans demand lines against current availability at dest without
// writing anything. Any uncovered line fails the whole call with a
// ShortageError.
func (e *Engine) Allocate(dest uint, lines []DemandLine) (*Plan, error) {
	if _, err := e.loadWarehouse(e.db, dest); err != nil {
		return nil, err
	}
	lines, err := e.normalizeLines(e.db, lines)
	if err != nil {
		return nil, err
	}
	return e.plan(e.db, dest, lines, "")
}

// normalizeLines validates quantities and resolves group names or line item codes.
func (e *Engine) normalizeLines(db *gorm.DB, lines []DemandLine) ([]DemandLine, error) {
	if len(lines) == 0 {
		return nil, invalid("en az bir sipariş satırı gereklidir")
	}
	out := make([]DemandLine, 0, len(lines))
	for i, l := range lines {
		if l.Qty <= 0 {
			return nil, invalid("satır %d: miktar 0'dan büyük olmalıdır", i+1)
		}
		input := strings.TrimSpace(l.GroupName)
		if input == "" {
			input = strings.TrimSpace(l.LineItem)
		}
		name, err := e.resolveGroup(db, input)
		if err != nil {
			return nil, err
		}
		lineItem := l.LineItem
		if lineItem == "" && !strings.EqualFold(input, name) {
			lineItem = input
		}
		out = append(out, DemandLine{GroupName: name, Qty: l.Qty, LineItem: lineItem})
	}
	return out, nil
}

type tierKey struct {
	tier  models.Tier
	group string
}

// plan walks the tiers for each line in priority order. Repeated groups share
// a local consumption counter so they never claim the same supply twice.
func (e *Engine) plan(db *gorm.DB, dest uint, lines []DemandLine, excludeOrder string) (*Plan, error) {
	v, err := newSupplyView(db, dest, excludeOrder)
	if err != nil {
		return nil, err
	}

	avail := map[tierKey]int{}
	index := map[tierKey]int{}
	p := &Plan{WarehouseID: dest, Lines: lines}
	var shortages []ShortageLine

	for _, l := range lines {
		need := l.Qty
		for _, t := range models.TierPriority {
			k := tierKey{t, l.GroupName}
			n, ok := avail[k]
			if !ok {
				n, err = v.available(t, l.GroupName)
				if err != nil {
					return nil, err
				}
				if n < 0 {
					n = 0
				}
				avail[k] = n
			}
			if need == 0 || n == 0 {
				continue
			}
			take := min(need, n)
			avail[k] = n - take
			need -= take

			if i, ok := index[k]; ok {
				p.Allocations[i].Qty += take
				continue
			}
			index[k] = len(p.Allocations)
			p.Allocations = append(p.Allocations, Allocation{
				GroupName:         l.GroupName,
				Tier:              t,
				Qty:               take,
				SourceWarehouseID: v.source(t),
			})
		}
		if need > 0 {
			shortages = append(shortages, ShortageLine{
				GroupName: l.GroupName,
				Required:  l.Qty,
				Available: l.Qty - need,
			})
		}
	}

	if len(shortages) > 0 {
		return nil, &ShortageError{Lines: shortages}
	}
	return p, nil
}

// writePlan stores one reservation per (group, tier) of the plan.
func (u *unit) writePlan(order *models.Order, p *Plan, actor string) error {
	for _, a := range p.Allocations {
		r := models.Reservation{
			OrderNumber:       order.OrderNumber,
			WarehouseID:       order.WarehouseID,
			SourceWarehouseID: a.SourceWarehouseID,
			GroupName:         a.GroupName,
			Tier:              a.Tier,
			Qty:               a.Qty,
			Actor:             actor,
		}
		if err := u.createReservation(&r); err != nil {
			return err
		}
	}
	return nil
}
