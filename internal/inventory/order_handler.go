package inventory

import (
	"fmt"

	"pallet-backend/internal/allocation"
	"pallet-backend/internal/auth"
	"pallet-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type OrderLinesRequest struct {
	Lines []allocation.DemandLine `json:"lines"`
}

type TransitionRequest struct {
	Status        models.OrderStatus `json:"status"`
	DeliveryDate  string             `json:"delivery_date"` // shipped için zorunlu
	AllowNegative bool               `json:"allow_negative"`
}

type AllocateRequest struct {
	WarehouseID uint                    `json:"warehouse_id"`
	Lines       []allocation.DemandLine `json:"lines"`
}

// POST /api/orders
func CreateOrderHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body allocation.OrderInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		_, actor := auth.Actor(c)
		o, err := eng.CreateOrder(body, actor)
		if err != nil {
			return engineError(c, err)
		}

		writeAudit(c, "order", o.ID, models.AuditActionCreate, "Sipariş oluşturuldu: "+o.OrderNumber, nil, o)
		return c.Status(fiber.StatusCreated).JSON(o)
	}
}

// POST /api/orders/allocate
// Kayıt yapmadan tahsis planı döner.
func AllocateHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AllocateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		p, err := eng.Allocate(body.WarehouseID, body.Lines)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(p)
	}
}

// GET /api/orders?status=processing
func ListOrdersHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := eng.ListOrders(models.OrderStatus(c.Query("status")))
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(rows)
	}
}

// GET /api/orders/:id
func GetOrderHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		o, err := eng.GetOrder(id)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(o)
	}
}

// PUT /api/orders/:id
func UpdateOrderDetailsHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body allocation.OrderDetails
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		o, err := eng.UpdateOrderDetails(id, body)
		if err != nil {
			return engineError(c, err)
		}
		writeAudit(c, "order", o.ID, models.AuditActionUpdate, "Sipariş bilgileri güncellendi: "+o.OrderNumber, body, nil)
		return c.JSON(o)
	}
}

// PUT /api/orders/:id/lines
func UpdateOrderLinesHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body OrderLinesRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		before, err := eng.GetOrder(id)
		if err != nil {
			return engineError(c, err)
		}

		_, actor := auth.Actor(c)
		o, err := eng.UpdateOrderLines(id, body.Lines, actor)
		if err != nil {
			return engineError(c, err)
		}

		writeAudit(c, "order", o.ID, models.AuditActionUpdate, "Sipariş satırları güncellendi: "+o.OrderNumber, before.Lines, o.Lines)
		return c.JSON(o)
	}
}

// POST /api/orders/:id/status
func TransitionOrderHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body TransitionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Status == "" {
			return fiber.NewError(fiber.StatusBadRequest, "status zorunlu")
		}
		delivery, err := parseDate(body.DeliveryDate)
		if err != nil {
			return err
		}

		before, err := eng.GetOrder(id)
		if err != nil {
			return engineError(c, err)
		}

		_, actor := auth.Actor(c)
		o, err := eng.Transition(id, body.Status, allocation.TransitionParams{
			DeliveryDate:  delivery,
			AllowNegative: body.AllowNegative,
			Actor:         actor,
		})
		if err != nil {
			return engineError(c, err)
		}

		if before.Status != o.Status {
			writeAudit(c, "order", o.ID, models.AuditActionTransition,
				fmt.Sprintf("Sipariş %s: %s -> %s", o.OrderNumber, before.Status, o.Status),
				fiber.Map{"status": before.Status, "allocations": before.Allocations},
				fiber.Map{"status": o.Status, "allocations": o.Allocations})
		}
		return c.JSON(o)
	}
}

// GET /api/orders/:id/reservations
func OrderReservationsHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		b, err := eng.GetReservationBreakdown(id)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(b)
	}
}

// GET /api/orders/:id/reservations.xlsx
func ExportOrderReservationsHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		b, err := eng.GetReservationBreakdown(id)
		if err != nil {
			return engineError(c, err)
		}

		headers := []string{"Palet Grubu", "Gerekli", "Rezerve"}
		for _, t := range models.TierPriority {
			headers = append(headers, string(t))
		}
		rows := make([][]interface{}, 0, len(b.Groups))
		for _, g := range b.Groups {
			row := []interface{}{g.GroupName, g.Required, g.Reserved}
			for _, t := range models.TierPriority {
				row = append(row, g.Tiers[t])
			}
			rows = append(rows, row)
		}

		return sendExcel(c, "Rezervasyonlar", b.OrderNumber+"-rezervasyon.xlsx", headers, rows)
	}
}
