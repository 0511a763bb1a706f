package allocation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pallet-backend/internal/ledger"
	"pallet-backend/internal/models"

	"gorm.io/gorm"
)

type OrderInput struct {
	WarehouseID     uint         `json:"warehouse_id"`
	CustomerName    string       `json:"customer_name"`
	CustomerEmail   string       `json:"customer_email"`
	CustomerPhone   string       `json:"customer_phone"`
	ShippingAddress string       `json:"shipping_address"`
	Notes           string       `json:"notes"`
	Lines           []DemandLine `json:"lines"`
}

// OrderDetails holds the editable non-allocation fields; nil means unchanged.
type OrderDetails struct {
	CustomerName    *string `json:"customer_name"`
	CustomerEmail   *string `json:"customer_email"`
	CustomerPhone   *string `json:"customer_phone"`
	ShippingAddress *string `json:"shipping_address"`
	Notes           *string `json:"notes"`
}

type TransitionParams struct {
	DeliveryDate  *time.Time
	AllowNegative bool
	Actor         string
}

const (
	ReasonOrderShipped = "order_shipped"
	ReasonOrderCancel  = "order_cancel"
)

func (e *Engine) GetOrder(id uint) (*models.Order, error) {
	return loadOrder(e.db, id)
}

func loadOrder(db *gorm.DB, id uint) (*models.Order, error) {
	var o models.Order
	err := db.Preload("Lines").Preload("Allocations").First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (e *Engine) ListOrders(status models.OrderStatus) ([]models.Order, error) {
	q := e.db.Preload("Lines").Preload("Allocations").Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	err := q.Find(&orders).Error
	return orders, err
}

// nextOrderNumber continues from the highest number issued so far.
func (e *Engine) nextOrderNumber(db *gorm.DB) (string, error) {
	prefix := e.cfg.OrderNumberPrefix + "-"
	var last models.Order
	err := db.Where("order_number LIKE ?", prefix+"%").Order("id DESC").Limit(1).Find(&last).Error
	if err != nil {
		return "", err
	}
	n := 0
	if last.ID != 0 {
		n, _ = strconv.Atoi(strings.TrimPrefix(last.OrderNumber, prefix))
	}
	return fmt.Sprintf("%s%04d", prefix, n+1), nil
}

// CreateOrder allocates the lines and stores the order with its reservations.
// A shortage on any line leaves no order and no reservations behind.
func (e *Engine) CreateOrder(in OrderInput, actor string) (*models.Order, error) {
	var created *models.Order
	err := e.run("create-order", func(u *unit) error {
		if _, err := e.loadWarehouse(u.db, in.WarehouseID); err != nil {
			return err
		}
		lines, err := e.normalizeLines(u.db, in.Lines)
		if err != nil {
			return err
		}
		p, err := e.plan(u.db, in.WarehouseID, lines, "")
		if err != nil {
			return err
		}

		number, err := e.nextOrderNumber(u.db)
		if err != nil {
			return err
		}
		order := &models.Order{
			OrderNumber:     number,
			WarehouseID:     in.WarehouseID,
			CustomerName:    strings.TrimSpace(in.CustomerName),
			CustomerEmail:   strings.TrimSpace(in.CustomerEmail),
			CustomerPhone:   strings.TrimSpace(in.CustomerPhone),
			ShippingAddress: strings.TrimSpace(in.ShippingAddress),
			Notes:           in.Notes,
			Status:          models.OrderProcessing,
			Actor:           actor,
		}
		for _, l := range lines {
			order.Lines = append(order.Lines, models.OrderLine{LineItem: l.LineItem, GroupName: l.GroupName, Qty: l.Qty})
		}
		if err := u.create(order, func(db *gorm.DB) error {
			if err := db.Where("order_id = ?", order.ID).Delete(&models.OrderLine{}).Error; err != nil {
				return err
			}
			return db.Delete(&models.Order{}, order.ID).Error
		}); err != nil {
			if isUniqueViolation(err) {
				return conflict("sipariş numarası zaten kullanılıyor: %s", number)
			}
			return err
		}

		if err := u.writePlan(order, p, actor); err != nil {
			return err
		}
		if err := e.settle(u, order); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish("order", created.ID, "created")
	return loadOrder(e.db, created.ID)
}

// UpdateOrderLines replaces the lines of a reservation-holding order and
// re-runs the allocator against availability excluding the order's own claims.
func (e *Engine) UpdateOrderLines(id uint, lines []DemandLine, actor string) (*models.Order, error) {
	err := e.run("update-order-lines", func(u *unit) error {
		order, err := loadOrder(u.db, id)
		if err != nil {
			return err
		}
		if order.Status == models.OrderCompleted {
			return conflict("tamamlanmış sipariş değiştirilemez")
		}
		if !order.Status.HoldsReservations() {
			return invalid("sipariş satırları yalnızca processing/ready_to_ship durumunda değiştirilebilir")
		}
		normalized, err := e.normalizeLines(u.db, lines)
		if err != nil {
			return err
		}
		p, err := e.plan(u.db, order.WarehouseID, normalized, order.OrderNumber)
		if err != nil {
			return err
		}

		prevLines := order.Lines
		if err := u.db.Where("order_id = ?", order.ID).Delete(&models.OrderLine{}).Error; err != nil {
			return err
		}
		u.onRollback(func(db *gorm.DB) error {
			if err := db.Where("order_id = ?", id).Delete(&models.OrderLine{}).Error; err != nil {
				return err
			}
			if len(prevLines) == 0 {
				return nil
			}
			return db.Create(&prevLines).Error
		})
		next := make([]models.OrderLine, 0, len(normalized))
		for _, l := range normalized {
			next = append(next, models.OrderLine{OrderID: order.ID, LineItem: l.LineItem, GroupName: l.GroupName, Qty: l.Qty})
		}
		if err := u.db.Create(&next).Error; err != nil {
			return err
		}

		if err := u.deleteReservations(order.OrderNumber); err != nil {
			return err
		}
		if err := u.writePlan(order, p, actor); err != nil {
			return err
		}
		return e.settle(u, order)
	})
	if err != nil {
		return nil, err
	}
	e.publish("order", id, "updated")
	return loadOrder(e.db, id)
}

func (e *Engine) UpdateOrderDetails(id uint, d OrderDetails) (*models.Order, error) {
	order, err := loadOrder(e.db, id)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderCompleted {
		return nil, conflict("tamamlanmış sipariş değiştirilemez")
	}
	updates := map[string]interface{}{}
	if d.CustomerName != nil {
		updates["customer_name"] = strings.TrimSpace(*d.CustomerName)
	}
	if d.CustomerEmail != nil {
		updates["customer_email"] = strings.TrimSpace(*d.CustomerEmail)
	}
	if d.CustomerPhone != nil {
		updates["customer_phone"] = strings.TrimSpace(*d.CustomerPhone)
	}
	if d.ShippingAddress != nil {
		updates["shipping_address"] = strings.TrimSpace(*d.ShippingAddress)
	}
	if d.Notes != nil {
		updates["notes"] = *d.Notes
	}
	if len(updates) > 0 {
		if err := e.db.Model(&models.Order{ID: id}).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return loadOrder(e.db, id)
}

// Transition moves an order through its status machine, converting
// reservations into stock deductions on ship and restoring stock on cancel.
func (e *Engine) Transition(id uint, next models.OrderStatus, params TransitionParams) (*models.Order, error) {
	changed := false
	err := e.run("order-transition", func(u *unit) error {
		order, err := loadOrder(u.db, id)
		if err != nil {
			return err
		}
		if order.Status == models.OrderCompleted {
			return conflict("tamamlanmış sipariş kilitlidir")
		}
		if order.Status == next {
			return nil
		}
		changed = true

		switch next {
		case models.OrderReadyToShip:
			return e.markReady(u, order)
		case models.OrderShipped:
			return e.ship(u, order, params)
		case models.OrderDelivered:
			if order.Status != models.OrderShipped {
				return invalid("delivered durumuna yalnızca shipped siparişler geçebilir")
			}
			return u.setStatus(order, next, nil)
		case models.OrderCompleted:
			if !order.Status.ConsumedStock() {
				return invalid("completed durumuna yalnızca shipped/delivered siparişler geçebilir")
			}
			return u.setStatus(order, next, nil)
		case models.OrderCanceled:
			return e.cancel(u, order, params)
		case models.OrderProcessing:
			if order.Status != models.OrderCanceled {
				return invalid("processing durumuna yalnızca iptal edilmiş siparişler geri alınabilir")
			}
			return e.reopen(u, order, params.Actor)
		}
		return invalid("geçersiz sipariş durumu: %s", next)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		e.publish("order", id, string(next))
	}
	return loadOrder(e.db, id)
}

func (u *unit) setStatus(order *models.Order, status models.OrderStatus, extra map[string]interface{}) error {
	values := map[string]interface{}{"status": status}
	before := map[string]interface{}{"status": order.Status}
	for k, v := range extra {
		values[k] = v
	}
	if _, ok := extra["delivery_date"]; ok {
		before["delivery_date"] = order.DeliveryDate
	}
	if _, ok := extra["est_ship_date"]; ok {
		before["est_ship_date"] = order.EstShipDate
	}
	if err := u.updateColumns(&models.Order{ID: order.ID}, values, before); err != nil {
		return err
	}
	order.Status = status
	return nil
}

func (e *Engine) markReady(u *unit, order *models.Order) error {
	if order.Status != models.OrderProcessing {
		return invalid("ready_to_ship durumuna yalnızca processing siparişler geçebilir")
	}
	rows, err := reservationsOf(u.db, order.OrderNumber)
	if err != nil {
		return err
	}
	if !fullyPrimary(rows) {
		return invalid("sipariş tamamen primary stokla karşılanmadan ready_to_ship olamaz")
	}
	return u.setStatus(order, models.OrderReadyToShip, nil)
}

// deductionWarehouse: primary/second kendi kaynak deposundan, diğerleri hedef depodan düşülür
func deductionWarehouse(order *models.Order, a models.OrderAllocation) uint {
	if a.Tier.Physical() && a.WarehouseID != nil {
		return *a.WarehouseID
	}
	return order.WarehouseID
}

func (e *Engine) ship(u *unit, order *models.Order, params TransitionParams) error {
	if !order.Status.HoldsReservations() {
		return invalid("shipped durumuna yalnızca processing/ready_to_ship siparişler geçebilir")
	}
	if params.DeliveryDate == nil || params.DeliveryDate.IsZero() {
		return invalid("sevk için teslim tarihi zorunludur")
	}

	deltas := make([]ledger.Delta, 0, len(order.Allocations))
	for _, a := range order.Allocations {
		deltas = append(deltas, ledger.Delta{
			WarehouseID: deductionWarehouse(order, a),
			GroupName:   a.GroupName,
			Qty:         -a.Qty,
		})
	}
	entry := ledger.Entry{
		Reference:   order.OrderNumber,
		Status:      models.TxnAdjustment,
		Reason:      ReasonOrderShipped,
		Actor:       params.Actor,
		CommittedAt: e.now(),
	}
	if _, err := u.applyLedger(entry, deltas, params.AllowNegative); err != nil {
		return err
	}
	if err := u.deleteReservations(order.OrderNumber); err != nil {
		return err
	}
	date := *params.DeliveryDate
	return u.setStatus(order, models.OrderShipped, map[string]interface{}{"delivery_date": &date})
}

func (e *Engine) cancel(u *unit, order *models.Order, params TransitionParams) error {
	if order.Status.ConsumedStock() {
		net, err := shippedNet(u.db, order.OrderNumber)
		if err != nil {
			return err
		}
		var deltas []ledger.Delta
		for _, d := range net {
			if d.Qty < 0 {
				deltas = append(deltas, ledger.Delta{WarehouseID: d.WarehouseID, GroupName: d.GroupName, Qty: -d.Qty})
			}
		}
		entry := ledger.Entry{
			Reference:   order.OrderNumber,
			Status:      models.TxnAdjustment,
			Reason:      ReasonOrderCancel,
			Actor:       params.Actor,
			CommittedAt: e.now(),
		}
		if _, err := u.applyLedger(entry, deltas, true); err != nil {
			return err
		}
	}
	if err := u.deleteReservations(order.OrderNumber); err != nil {
		return err
	}
	if err := u.replaceAllocations(order.ID, nil); err != nil {
		return err
	}
	return u.setStatus(order, models.OrderCanceled, map[string]interface{}{"est_ship_date": (*time.Time)(nil)})
}

// shippedNet sums the order's ship and cancel transactions per (warehouse, group).
func shippedNet(db *gorm.DB, orderNumber string) ([]ledger.Delta, error) {
	var rows []ledger.Delta
	err := db.Model(&models.Transaction{}).
		Select("warehouse_id, group_name, SUM(delta) AS qty").
		Where("reference = ? AND reason IN ?", orderNumber, []string{ReasonOrderShipped, ReasonOrderCancel}).
		Group("warehouse_id, group_name").
		Order("group_name ASC").
		Scan(&rows).Error
	return rows, err
}

func (e *Engine) reopen(u *unit, order *models.Order, actor string) error {
	lines := make([]DemandLine, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, DemandLine{GroupName: l.GroupName, Qty: l.Qty, LineItem: l.LineItem})
	}
	p, err := e.plan(u.db, order.WarehouseID, lines, order.OrderNumber)
	if err != nil {
		return err
	}
	if err := u.writePlan(order, p, actor); err != nil {
		return err
	}
	if err := u.setStatus(order, models.OrderProcessing, map[string]interface{}{"delivery_date": (*time.Time)(nil)}); err != nil {
		return err
	}
	return e.settle(u, order)
}

func fullyPrimary(rows []models.Reservation) bool {
	if len(rows) == 0 {
		return false
	}
	for _, r := range rows {
		if r.Tier != models.TierPrimary {
			return false
		}
	}
	return true
}

// settle refreshes the allocation mirror, readiness and estimated ship date
// of a reservation-holding order.
func (e *Engine) settle(u *unit, order *models.Order) error {
	if err := u.syncAllocations(order); err != nil {
		return err
	}
	if !order.Status.HoldsReservations() {
		return nil
	}
	rows, err := reservationsOf(u.db, order.OrderNumber)
	if err != nil {
		return err
	}
	status := models.OrderProcessing
	if fullyPrimary(rows) {
		status = models.OrderReadyToShip
	}
	date, err := e.shipDate(u.db, order, rows)
	if err != nil {
		return err
	}
	return u.setStatus(order, status, map[string]interface{}{"est_ship_date": date})
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
