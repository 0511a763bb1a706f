package inventory

import (
	"pallet-backend/internal/allocation"
	"pallet-backend/internal/database"
	"pallet-backend/internal/registry"

	"github.com/gofiber/fiber/v2"
)

type RebalanceRequest struct {
	WarehouseID *uint    `json:"warehouse_id"` // boşsa tüm depolar
	Groups      []string `json:"groups"`
}

func resolveGroups(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		name, err := registry.Resolve(database.DB, n)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// GET /api/supply?warehouse_id=1&group=a,b
func SupplyHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wh := c.QueryInt("warehouse_id", 0)
		if wh <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "warehouse_id zorunlu")
		}
		groups, err := resolveGroups(splitGroups(c.Query("group")))
		if err != nil {
			return engineError(c, err)
		}

		rows, err := eng.Availability(uint(wh), groups)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(rows)
	}
}

// POST /api/rebalance
func RebalanceHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RebalanceRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
			}
		}
		groups, err := resolveGroups(body.Groups)
		if err != nil {
			return engineError(c, err)
		}

		changed, err := eng.Rebalance(body.WarehouseID, groups)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(fiber.Map{"orders_changed": changed})
	}
}
