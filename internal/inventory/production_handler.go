package inventory

import (
	"pallet-backend/internal/allocation"
	"pallet-backend/internal/auth"
	"pallet-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateBatchRequest struct {
	Reference     string                        `json:"reference"`
	PONumber      string                        `json:"po_number"` // boşsa reference
	EstFinishDate string                        `json:"est_finish_date"`
	Notes         string                        `json:"notes"`
	Pallets       []allocation.BatchPalletInput `json:"pallets"`
}

type TransferProductionRequest struct {
	Mode            allocation.TransferMode   `json:"mode"` // delivered / on_water
	WarehouseID     uint                      `json:"warehouse_id"`
	EstDeliveryDate string                    `json:"est_delivery_date"`
	Items           []allocation.TransferItem `json:"items"`
}

// POST /api/production/batches
func CreateBatchHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBatchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		finish, err := parseDate(body.EstFinishDate)
		if err != nil {
			return err
		}

		_, actor := auth.Actor(c)
		b, err := eng.CreateBatch(allocation.BatchInput{
			Reference:     body.Reference,
			PONumber:      body.PONumber,
			EstFinishDate: finish,
			Notes:         body.Notes,
			Pallets:       body.Pallets,
		}, actor)
		if err != nil {
			return engineError(c, err)
		}

		writeAudit(c, "production_batch", b.ID, models.AuditActionCreate, "Üretim partisi oluşturuldu: "+b.Reference, nil, b)
		return c.Status(fiber.StatusCreated).JSON(b)
	}
}

// GET /api/production/batches
func ListBatchesHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := eng.ListBatches()
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(rows)
	}
}

// GET /api/production/batches/:id
func GetBatchHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		b, err := eng.GetBatch(id)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(b)
	}
}

// PUT /api/production/batches/:id/pallets/:palletId
// Tutarsız değerler reddedilmez, düzeltilip "clamped" içinde raporlanır.
func UpdateProductionPalletHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		batchID, err := paramID(c, "id")
		if err != nil {
			return err
		}
		palletID, err := paramID(c, "palletId")
		if err != nil {
			return err
		}

		var body allocation.PalletUpdate
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		res, err := eng.UpdateProductionPallet(batchID, palletID, body)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(res)
	}
}

// POST /api/production/batches/:id/transfer
func TransferProductionHandler(eng *allocation.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		batchID, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body TransferProductionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		edd, err := parseDate(body.EstDeliveryDate)
		if err != nil {
			return err
		}

		_, actor := auth.Actor(c)
		res, err := eng.TransferProduction(batchID, allocation.TransferInput{
			Mode:            body.Mode,
			WarehouseID:     body.WarehouseID,
			EstDeliveryDate: edd,
			Items:           body.Items,
		}, actor)
		if err != nil {
			return engineError(c, err)
		}

		writeAudit(c, "production_batch", batchID, models.AuditActionUpdate,
			"Üretim transferi ("+string(body.Mode)+"): "+res.Batch.Reference, nil, res.Lines)
		return c.JSON(res)
	}
}
