package dashboard

import (
	"time"

	"pallet-backend/internal/database"
	"pallet-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SummaryResponse struct {
	OrdersByStatus   map[models.OrderStatus]int64 `json:"orders_by_status"`
	ReservedByTier   map[models.Tier]int64        `json:"reserved_by_tier"`
	OnWaterShipments int64                        `json:"on_water_shipments"`
	OnWaterPallets   int64                        `json:"on_water_pallets"`
	DueToday         int64                        `json:"due_today"`
	InProduction     int                          `json:"in_production"` // transfer edilmemiş palet
}

// GET /api/dashboard/summary
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp := SummaryResponse{
			OrdersByStatus: map[models.OrderStatus]int64{},
			ReservedByTier: map[models.Tier]int64{},
		}

		var byStatus []struct {
			Status models.OrderStatus
			Total  int64
		}
		if err := database.DB.Model(&models.Order{}).
			Select("status, COUNT(*) AS total").Group("status").Scan(&byStatus).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Sipariş özeti alınamadı")
		}
		for _, r := range byStatus {
			resp.OrdersByStatus[r.Status] = r.Total
		}

		var byTier []struct {
			Tier  models.Tier
			Total int64
		}
		if err := database.DB.Model(&models.Reservation{}).
			Select("tier, COALESCE(SUM(qty), 0) AS total").Group("tier").Scan(&byTier).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Rezervasyon özeti alınamadı")
		}
		for _, r := range byTier {
			resp.ReservedByTier[r.Tier] = r.Total
		}

		database.DB.Model(&models.Shipment{}).Where("status = ?", models.ShipmentOnWater).Count(&resp.OnWaterShipments)
		database.DB.Model(&models.ShipmentLine{}).
			Joins("JOIN shipments ON shipments.id = shipment_lines.shipment_id").
			Where("shipments.status = ?", models.ShipmentOnWater).
			Select("COALESCE(SUM(shipment_lines.pallets), 0)").Scan(&resp.OnWaterPallets)

		now := time.Now()
		tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		database.DB.Model(&models.Shipment{}).
			Where("status = ? AND est_delivery_date IS NOT NULL AND est_delivery_date < ?", models.ShipmentOnWater, tomorrow).
			Count(&resp.DueToday)

		var pallets []models.ProductionPallet
		if err := database.DB.Where("status <> ?", models.ProductionCancelled).Find(&pallets).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Üretim özeti alınamadı")
		}
		for _, p := range pallets {
			resp.InProduction += p.Remaining()
		}

		return c.JSON(resp)
	}
}
