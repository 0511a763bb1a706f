package inventory

import (
	"pallet-backend/internal/allocation"
	"pallet-backend/internal/auth"
	"pallet-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateShipmentRequest: ithalat veya depolar arası transfer
type CreateShipmentRequest struct {
	SourceWarehouseID *uint                          `json:"source_warehouse_id"` // sadece transfer
	WarehouseID       uint                           `json:"warehouse_id"`
	Reference         string                         `json:"reference"`
	EstDeliveryDate   string                         `json:"est_delivery_date"` // "2025-12-09"
	Notes             string                         `json:"notes"`
	Lines             []allocation.ShipmentLineInput `json:"lines"`
}

type UpdateEDDRequest struct {
	EstDeliveryDate string `json:"est_delivery_date"`
}

func (r CreateShipmentRequest) input() (allocation.ShipmentInput, error) {
	edd, err := parseDate(r.EstDeliveryDate)
	if err != nil {
		return allocation.ShipmentInput{}, err
	}
	return allocation.ShipmentInput{
		SourceWarehouseID: r.SourceWarehouseID,
		WarehouseID:       r.WarehouseID,
		Reference:         r.Reference,
		EstDeliveryDate:   edd,
		Notes:             r.Notes,
		Lines:             r.Lines,
	}, nil
}

// POST /api/shipments
func CreateShipmentHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateShipmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		in, err := body.input()
		if err != nil {
			return err
		}

		_, actor := auth.Actor(c)
		s, err := eng.CreateImportShipment(in, actor)
		if err != nil {
			return engineError(c, err)
		}

		writeAudit(c, "shipment", s.ID, models.AuditActionCreate, "İthalat sevkiyatı oluşturuldu: "+s.Reference, nil, s)
		return c.Status(fiber.StatusCreated).JSON(s)
	}
}

// POST /api/shipments/transfer
func CreateTransferHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateShipmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.SourceWarehouseID == nil {
			return fiber.NewError(fiber.StatusBadRequest, "source_warehouse_id zorunlu")
		}
		in, err := body.input()
		if err != nil {
			return err
		}

		_, actor := auth.Actor(c)
		s, err := eng.CreateTransfer(in, actor)
		if err != nil {
			return engineError(c, err)
		}

		writeAudit(c, "shipment", s.ID, models.AuditActionCreate, "Depolar arası transfer oluşturuldu: "+s.Reference, nil, s)
		return c.Status(fiber.StatusCreated).JSON(s)
	}
}

// GET /api/shipments?status=on_water
func ListShipmentsHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := eng.ListShipments(models.ShipmentStatus(c.Query("status")))
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(rows)
	}
}

// GET /api/shipments/due-today
func DueTodayShipmentsHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := eng.DueToday()
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(rows)
	}
}

// GET /api/shipments/:id
func GetShipmentHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		s, err := eng.GetShipment(id)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(s)
	}
}

// POST /api/shipments/:id/deliver
func DeliverShipmentHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		_, actor := auth.Actor(c)
		s, err := eng.DeliverShipment(id, actor)
		if err != nil {
			return engineError(c, err)
		}

		writeAudit(c, "shipment", s.ID, models.AuditActionDeliver, "Sevkiyat teslim alındı: "+s.Reference,
			fiber.Map{"status": models.ShipmentOnWater}, fiber.Map{"status": s.Status})
		return c.JSON(s)
	}
}

// PUT /api/shipments/:id/edd
func UpdateShipmentEDDHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body UpdateEDDRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		edd, err := parseDate(body.EstDeliveryDate)
		if err != nil {
			return err
		}

		s, err := eng.UpdateShipmentEDD(id, edd)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(s)
	}
}
