package inventory

import (
	"fmt"

	"pallet-backend/internal/allocation"
	"pallet-backend/internal/auth"
	"pallet-backend/internal/database"
	"pallet-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type StockRow struct {
	WarehouseID   uint   `json:"warehouse_id"`
	WarehouseName string `json:"warehouse_name"`
	GroupName     string `json:"group_name"`
	Pallets       int    `json:"pallets"`
}

func stockQuery(c *fiber.Ctx) *gorm.DB {
	dbq := database.DB.Table("stocks").
		Select("stocks.warehouse_id, warehouses.name AS warehouse_name, stocks.group_name, stocks.pallets").
		Joins("LEFT JOIN warehouses ON warehouses.id = stocks.warehouse_id")

	if wh := c.QueryInt("warehouse_id", 0); wh > 0 {
		dbq = dbq.Where("stocks.warehouse_id = ?", wh)
	}
	if groups := splitGroups(c.Query("group")); len(groups) > 0 {
		dbq = dbq.Where("stocks.group_name IN ?", groups)
	}
	if c.Query("nonzero") == "true" {
		dbq = dbq.Where("stocks.pallets <> 0")
	}
	return dbq.Order("warehouses.name ASC, stocks.group_name ASC")
}

// GET /api/stock?warehouse_id=1&group=a,b&nonzero=true
func ListStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []StockRow
		if err := stockQuery(c).Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok listelenemedi")
		}
		if rows == nil {
			rows = []StockRow{}
		}
		return c.JSON(rows)
	}
}

// GET /api/stock/export.xlsx
func ExportStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []StockRow
		if err := stockQuery(c).Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok listelenemedi")
		}

		data := make([][]interface{}, 0, len(rows))
		for _, r := range rows {
			data = append(data, []interface{}{r.WarehouseName, r.GroupName, r.Pallets})
		}
		return sendExcel(c, "Stok", "stok.xlsx", []string{"Depo", "Palet Grubu", "Palet"}, data)
	}
}

type AdjustStockRequest struct {
	WarehouseID   uint   `json:"warehouse_id"`
	GroupName     string `json:"group_name"`
	Delta         int    `json:"delta"`
	Reason        string `json:"reason"`
	Reference     string `json:"reference"`
	AllowNegative bool   `json:"allow_negative"`
}

// POST /api/stock/adjust
func AdjustStockHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AdjustStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		_, actor := auth.Actor(c)
		txn, err := eng.AdjustStock(allocation.AdjustInput{
			WarehouseID:   body.WarehouseID,
			GroupName:     body.GroupName,
			Delta:         body.Delta,
			Reason:        body.Reason,
			Reference:     body.Reference,
			AllowNegative: body.AllowNegative,
		}, actor)
		if err != nil {
			return engineError(c, err)
		}

		writeAudit(c, "stock", txn.WarehouseID, models.AuditActionUpdate,
			fmt.Sprintf("Stok düzeltme: %s %+d", txn.GroupName, txn.Delta), nil, txn)
		return c.Status(fiber.StatusCreated).JSON(txn)
	}
}

// GET /api/transactions?warehouse_id=&group=&reference=&status=&start=&end=&limit=
func ListTransactionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Transaction{})

		if wh := c.QueryInt("warehouse_id", 0); wh > 0 {
			dbq = dbq.Where("warehouse_id = ?", wh)
		}
		if groups := splitGroups(c.Query("group")); len(groups) > 0 {
			dbq = dbq.Where("group_name IN ?", groups)
		}
		if ref := c.Query("reference"); ref != "" {
			dbq = dbq.Where("reference = ?", ref)
		}
		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}

		start, err := parseDate(c.Query("start"))
		if err != nil {
			return err
		}
		if start != nil {
			dbq = dbq.Where("committed_at >= ?", *start)
		}
		end, err := parseDate(c.Query("end"))
		if err != nil {
			return err
		}
		if end != nil {
			dbq = dbq.Where("committed_at < ?", end.AddDate(0, 0, 1))
		}

		limit := c.QueryInt("limit", 500)
		if limit <= 0 || limit > 5000 {
			limit = 500
		}

		var txns []models.Transaction
		if err := dbq.Order("committed_at DESC, id DESC").Limit(limit).Find(&txns).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hareketler listelenemedi")
		}
		return c.JSON(txns)
	}
}
