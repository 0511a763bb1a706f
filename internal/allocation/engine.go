// Package allocation is the multi-tier pallet allocation and reservation
// engine: supply-tier aggregation, the allocator, the order state machine,
// the rebalancer and the supply-side events that drive it.
package allocation

import (
	"errors"
	"log"
	"time"

	"pallet-backend/internal/config"
	"pallet-backend/internal/ledger"
	"pallet-backend/internal/models"
	"pallet-backend/internal/registry"

	"gorm.io/gorm"
)

// Publisher receives change notifications after a successful operation.
type Publisher interface {
	Publish(entity string, id uint, action string)
}

type Engine struct {
	db  *gorm.DB
	cfg config.EngineConfig
	pub Publisher
	now func() time.Time
}

func New(db *gorm.DB, cfg config.EngineConfig, pub Publisher) *Engine {
	if cfg.OrderNumberPrefix == "" {
		cfg.OrderNumberPrefix = "ORD"
	}
	return &Engine{db: db, cfg: cfg, pub: pub, now: time.Now}
}

func (e *Engine) DB() *gorm.DB { return e.db }

func (e *Engine) publish(entity string, id uint, action string) {
	if e.pub != nil {
		e.pub.Publish(entity, id, action)
	}
}

// unit is one engine operation. Inside a database transaction it only
// carries tx; without one it records compensating writes to undo on failure.
type unit struct {
	db   *gorm.DB
	tx   bool
	undo []func(db *gorm.DB) error
}

func (u *unit) onRollback(fn func(db *gorm.DB) error) {
	if !u.tx {
		u.undo = append(u.undo, fn)
	}
}

func (u *unit) rollback(op string) {
	for i := len(u.undo) - 1; i >= 0; i-- {
		if err := u.undo[i](u.db); err != nil {
			log.Printf("[%s] rollback adımı başarısız: %v", op, err)
		}
	}
}

func (e *Engine) run(op string, fn func(u *unit) error) error {
	if e.cfg.Transactional {
		return e.db.Transaction(func(tx *gorm.DB) error {
			return fn(&unit{db: tx, tx: true})
		})
	}
	u := &unit{db: e.db}
	if err := fn(u); err != nil {
		u.rollback(op)
		return err
	}
	return nil
}

// applyLedger writes stock deltas and registers their reversal. Stock
// shortages are turned into a ShortageError.
func (u *unit) applyLedger(entry ledger.Entry, deltas []ledger.Delta, allowNegative bool) ([]models.Transaction, error) {
	txns, err := ledger.Apply(u.db, entry, deltas, allowNegative)
	if err != nil {
		var ise *ledger.InsufficientStockError
		if errors.As(err, &ise) {
			return nil, &ShortageError{Lines: []ShortageLine{{
				GroupName: ise.GroupName,
				Required:  ise.Required,
				Available: ise.Available,
			}}}
		}
		return nil, err
	}
	u.onRollback(func(db *gorm.DB) error { return ledger.Revert(db, txns) })
	return txns, nil
}

func (u *unit) create(row interface{}, del func(db *gorm.DB) error) error {
	if err := u.db.Create(row).Error; err != nil {
		return err
	}
	u.onRollback(del)
	return nil
}

// updateColumns updates model (with its ID set) and restores before on rollback.
func (u *unit) updateColumns(model interface{}, values, before map[string]interface{}) error {
	if err := u.db.Model(model).Updates(values).Error; err != nil {
		return err
	}
	u.onRollback(func(db *gorm.DB) error { return db.Model(model).Updates(before).Error })
	return nil
}

func (e *Engine) loadWarehouse(db *gorm.DB, id uint) (*models.Warehouse, error) {
	var w models.Warehouse
	if err := db.First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("depo bulunamadı: %d", id)
		}
		return nil, err
	}
	return &w, nil
}

func (e *Engine) resolveGroup(db *gorm.DB, input string) (string, error) {
	name, err := registry.Resolve(db, input)
	if errors.Is(err, registry.ErrGroupNotFound) {
		return "", invalid("palet grubu bulunamadı veya aktif değil: %s", input)
	}
	return name, err
}
