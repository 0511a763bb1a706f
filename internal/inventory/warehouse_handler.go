package inventory

import (
	"strings"

	"pallet-backend/internal/database"
	"pallet-backend/internal/models"
	"pallet-backend/internal/registry"

	"github.com/gofiber/fiber/v2"
)

type WarehouseRequest struct {
	Name              string `json:"name"`
	Address           string `json:"address"`
	IsPrimary         bool   `json:"is_primary"`
	PairedWarehouseID *uint  `json:"paired_warehouse_id"`
}

type WarehouseResponse struct {
	models.Warehouse
	ResolvedPairID *uint `json:"resolved_pair_id"`
}

// GET /api/warehouses
func ListWarehousesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []models.Warehouse
		if err := database.DB.Order("id ASC").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Depolar listelenemedi")
		}

		resp := make([]WarehouseResponse, 0, len(rows))
		for _, w := range rows {
			pair, err := registry.Paired(database.DB, w.ID)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Eş depo çözülemedi")
			}
			resp = append(resp, WarehouseResponse{Warehouse: w, ResolvedPairID: pair})
		}
		return c.JSON(resp)
	}
}

// POST /api/warehouses
func CreateWarehouseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body WarehouseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Depo adı zorunludur")
		}
		if err := checkPair(body.PairedWarehouseID, 0); err != nil {
			return err
		}

		var count int64
		database.DB.Model(&models.Warehouse{}).Where("name = ?", body.Name).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu isimde bir depo zaten var")
		}

		w := models.Warehouse{
			Name:              body.Name,
			Address:           body.Address,
			IsPrimary:         body.IsPrimary,
			PairedWarehouseID: body.PairedWarehouseID,
		}
		if err := database.DB.Create(&w).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Depo oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(w)
	}
}

// PUT /api/warehouses/:id
func UpdateWarehouseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var w models.Warehouse
		if err := database.DB.First(&w, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Depo bulunamadı")
		}

		var body WarehouseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := checkPair(body.PairedWarehouseID, id); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"address":             body.Address,
			"is_primary":          body.IsPrimary,
			"paired_warehouse_id": body.PairedWarehouseID,
		}
		if name := strings.TrimSpace(body.Name); name != "" {
			updates["name"] = name
		}
		if err := database.DB.Model(&w).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Depo güncellenemedi")
		}

		database.DB.First(&w, id)
		return c.JSON(w)
	}
}

func checkPair(pair *uint, self uint) error {
	if pair == nil {
		return nil
	}
	if *pair == self {
		return fiber.NewError(fiber.StatusBadRequest, "Depo kendisiyle eşlenemez")
	}
	var count int64
	database.DB.Model(&models.Warehouse{}).Where("id = ?", *pair).Count(&count)
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Eş depo bulunamadı")
	}
	return nil
}
