package allocation

import (
	"errors"
	"strings"
	"time"

	"pallet-backend/internal/ledger"
	"pallet-backend/internal/models"

	"gorm.io/gorm"
)

const (
	ReasonTransferOut       = "transfer_out"
	ReasonShipmentDelivered = "shipment_delivered"
	ReasonTransferDelivered = "transfer_delivered"
)

type ShipmentLineInput struct {
	GroupName string `json:"group_name"`
	Pallets   int    `json:"pallets"`
}

type ShipmentInput struct {
	SourceWarehouseID *uint               `json:"source_warehouse_id"`
	WarehouseID       uint                `json:"warehouse_id"`
	Reference         string              `json:"reference"`
	EstDeliveryDate   *time.Time          `json:"est_delivery_date"`
	Notes             string              `json:"notes"`
	Lines             []ShipmentLineInput `json:"lines"`
}

func (e *Engine) normalizeShipmentLines(db *gorm.DB, lines []ShipmentLineInput) ([]models.ShipmentLine, error) {
	if len(lines) == 0 {
		return nil, invalid("en az bir sevkiyat satırı gereklidir")
	}
	merged := map[string]int{}
	var order []string
	for i, l := range lines {
		if l.Pallets <= 0 {
			return nil, invalid("satır %d: palet adedi 0'dan büyük olmalıdır", i+1)
		}
		name, err := e.resolveGroup(db, l.GroupName)
		if err != nil {
			return nil, err
		}
		if _, ok := merged[name]; !ok {
			order = append(order, name)
		}
		merged[name] += l.Pallets
	}
	out := make([]models.ShipmentLine, 0, len(order))
	for _, name := range order {
		out = append(out, models.ShipmentLine{GroupName: name, Pallets: merged[name]})
	}
	return out, nil
}

func (u *unit) createShipment(s *models.Shipment) error {
	return u.create(s, func(db *gorm.DB) error {
		if err := db.Where("shipment_id = ?", s.ID).Delete(&models.ShipmentLine{}).Error; err != nil {
			return err
		}
		return db.Delete(&models.Shipment{}, s.ID).Error
	})
}

// CreateImportShipment records an incoming on-water shipment. It only adds
// on-water supply; stock changes on delivery.
func (e *Engine) CreateImportShipment(in ShipmentInput, actor string) (*models.Shipment, error) {
	var s *models.Shipment
	err := e.run("create-shipment", func(u *unit) error {
		if _, err := e.loadWarehouse(u.db, in.WarehouseID); err != nil {
			return err
		}
		lines, err := e.normalizeShipmentLines(u.db, in.Lines)
		if err != nil {
			return err
		}
		s = &models.Shipment{
			Kind:            models.ShipmentImport,
			Status:          models.ShipmentOnWater,
			Reference:       strings.TrimSpace(in.Reference),
			WarehouseID:     in.WarehouseID,
			EstDeliveryDate: in.EstDeliveryDate,
			Notes:           in.Notes,
			CreatedBy:       actor,
			Lines:           lines,
		}
		if err := u.createShipment(s); err != nil {
			return err
		}
		// yeni yoldaki arz second/on_process taleplerini yukarı taşıyabilir
		_, err = e.rebalance(u, &in.WarehouseID, groupsOf(lines))
		return err
	})
	if err != nil {
		return nil, err
	}
	e.publish("shipment", s.ID, "created")
	return s, nil
}

// CreateTransfer moves stock from a source warehouse onto the water toward
// dest. Stock reserved by other orders cannot be moved; second-tier claims
// on the source by orders at dest follow the goods to the on-water tier.
func (e *Engine) CreateTransfer(in ShipmentInput, actor string) (*models.Shipment, error) {
	if in.SourceWarehouseID == nil {
		return nil, invalid("transfer için kaynak depo zorunludur")
	}
	src := *in.SourceWarehouseID
	if src == in.WarehouseID {
		return nil, invalid("kaynak ve hedef depo aynı olamaz")
	}

	var s *models.Shipment
	err := e.run("create-transfer", func(u *unit) error {
		if _, err := e.loadWarehouse(u.db, src); err != nil {
			return err
		}
		if _, err := e.loadWarehouse(u.db, in.WarehouseID); err != nil {
			return err
		}
		lines, err := e.normalizeShipmentLines(u.db, in.Lines)
		if err != nil {
			return err
		}

		if err := transferable(u.db, src, in.WarehouseID, lines); err != nil {
			return err
		}

		deltas := make([]ledger.Delta, 0, len(lines))
		for _, l := range lines {
			deltas = append(deltas, ledger.Delta{WarehouseID: src, GroupName: l.GroupName, Qty: -l.Pallets})
		}
		entry := ledger.Entry{
			Reference:   strings.TrimSpace(in.Reference),
			Status:      models.TxnOnWater,
			Reason:      ReasonTransferOut,
			Actor:       actor,
			CommittedAt: e.now(),
		}
		if _, err := u.applyLedger(entry, deltas, false); err != nil {
			return err
		}

		s = &models.Shipment{
			Kind:              models.ShipmentTransfer,
			Status:            models.ShipmentOnWater,
			Reference:         entry.Reference,
			SourceWarehouseID: &src,
			WarehouseID:       in.WarehouseID,
			EstDeliveryDate:   in.EstDeliveryDate,
			Notes:             in.Notes,
			CreatedBy:         actor,
			Lines:             lines,
		}
		if err := u.createShipment(s); err != nil {
			return err
		}

		for _, l := range lines {
			if _, err := e.migrate(u, l.GroupName, models.TierSecond, models.TierOnWater,
				[]uint{in.WarehouseID}, &src, l.Pallets); err != nil {
				return err
			}
		}
		_, err = e.rebalance(u, nil, groupsOf(lines))
		return err
	})
	if err != nil {
		return nil, err
	}
	e.publish("shipment", s.ID, "created")
	return s, nil
}

// transferable checks that a transfer only takes stock nobody else holds:
// unreserved stock at src plus second claims of orders at dest, which
// follow the goods onto the water.
func transferable(db *gorm.DB, src, dest uint, lines []models.ShipmentLine) error {
	v := &supplyView{db: db}
	var short []ShortageLine
	for _, l := range lines {
		free, err := v.physical(src, l.GroupName)
		if err != nil {
			return err
		}
		following, err := sum(db.Model(&models.Reservation{}).
			Where("tier = ? AND source_warehouse_id = ? AND warehouse_id = ? AND group_name = ?",
				models.TierSecond, src, dest, l.GroupName), "qty")
		if err != nil {
			return err
		}
		if avail := free + following; l.Pallets > avail {
			short = append(short, ShortageLine{GroupName: l.GroupName, Required: l.Pallets, Available: max(avail, 0)})
		}
	}
	if len(short) > 0 {
		return &ShortageError{Lines: short}
	}
	return nil
}

func loadShipment(db *gorm.DB, id uint) (*models.Shipment, error) {
	var s models.Shipment
	err := db.Preload("Lines").First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (e *Engine) GetShipment(id uint) (*models.Shipment, error) {
	return loadShipment(e.db, id)
}

func (e *Engine) ListShipments(status models.ShipmentStatus) ([]models.Shipment, error) {
	q := e.db.Preload("Lines").Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Shipment
	err := q.Find(&out).Error
	return out, err
}

// DueToday lists on-water shipments whose estimated delivery is today or earlier.
func (e *Engine) DueToday() ([]models.Shipment, error) {
	now := e.now()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	var out []models.Shipment
	err := e.db.Preload("Lines").
		Where("status = ? AND est_delivery_date IS NOT NULL AND est_delivery_date < ?", models.ShipmentOnWater, end).
		Order("est_delivery_date ASC").Find(&out).Error
	return out, err
}

// DeliverShipment books an on-water shipment into destination stock and
// rebalances the orders it can now serve.
func (e *Engine) DeliverShipment(id uint, actor string) (*models.Shipment, error) {
	var s *models.Shipment
	err := e.run("deliver-shipment", func(u *unit) error {
		var err error
		s, err = loadShipment(u.db, id)
		if err != nil {
			return err
		}
		if s.Status != models.ShipmentOnWater {
			return conflict("sevkiyat zaten teslim alınmış: %s", s.Status)
		}
		if s.EstDeliveryDate == nil {
			return invalid("tahmini teslim tarihi girilmeden sevkiyat teslim alınamaz")
		}
		now := e.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		if !s.EstDeliveryDate.Before(today) {
			return invalid("tahmini teslim tarihi ileri bir tarih, sevkiyat henüz teslim alınamaz")
		}

		reason, next := ReasonShipmentDelivered, models.ShipmentDelivered
		if s.Kind == models.ShipmentTransfer {
			reason, next = ReasonTransferDelivered, models.ShipmentTransferred
		}
		deltas := make([]ledger.Delta, 0, len(s.Lines))
		for _, l := range s.Lines {
			deltas = append(deltas, ledger.Delta{WarehouseID: s.WarehouseID, GroupName: l.GroupName, Qty: l.Pallets})
		}
		entry := ledger.Entry{
			Reference:   s.Reference,
			Status:      models.TxnDelivered,
			Reason:      reason,
			Actor:       actor,
			CommittedAt: now,
		}
		if _, err := u.applyLedger(entry, deltas, false); err != nil {
			return err
		}

		if err := u.updateColumns(&models.Shipment{ID: s.ID},
			map[string]interface{}{"status": next, "delivered_at": &now},
			map[string]interface{}{"status": s.Status, "delivered_at": s.DeliveredAt}); err != nil {
			return err
		}
		s.Status, s.DeliveredAt = next, &now

		if s.Reference != "" {
			if err := e.lockTransferred(u, s.Reference); err != nil {
				return err
			}
		}
		_, err = e.rebalance(u, &s.WarehouseID, groupsOf(s.Lines))
		return err
	})
	if err != nil {
		return nil, err
	}
	e.publish("shipment", id, "delivered")
	return s, nil
}

// UpdateShipmentEDD changes the estimated delivery date of an on-water
// shipment and refreshes ship dates of orders drawing on its pool.
func (e *Engine) UpdateShipmentEDD(id uint, edd *time.Time) (*models.Shipment, error) {
	err := e.run("update-shipment-edd", func(u *unit) error {
		s, err := loadShipment(u.db, id)
		if err != nil {
			return err
		}
		if s.Status != models.ShipmentOnWater {
			return conflict("teslim alınmış sevkiyatın tarihi değiştirilemez")
		}
		if err := u.updateColumns(&models.Shipment{ID: id},
			map[string]interface{}{"est_delivery_date": edd},
			map[string]interface{}{"est_delivery_date": s.EstDeliveryDate}); err != nil {
			return err
		}
		return e.refreshDependents(u, s.WarehouseID)
	})
	if err != nil {
		return nil, err
	}
	e.publish("shipment", id, "updated")
	return loadShipment(e.db, id)
}

// refreshDependents re-settles reservation-holding orders whose pool contains warehouseID.
func (e *Engine) refreshDependents(u *unit, warehouseID uint) error {
	deps, err := dependents(u.db, warehouseID)
	if err != nil || len(deps) == 0 {
		return err
	}
	var orders []models.Order
	if err := u.db.Where("status IN ? AND warehouse_id IN ?", holdingStatuses, deps).Find(&orders).Error; err != nil {
		return err
	}
	for i := range orders {
		if err := e.settle(u, &orders[i]); err != nil {
			return err
		}
	}
	return nil
}

func groupsOf(lines []models.ShipmentLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.GroupName)
	}
	return out
}
