package inventory

import (
	"errors"
	"net/url"
	"strings"

	"pallet-backend/internal/database"
	"pallet-backend/internal/models"
	"pallet-backend/internal/registry"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PalletGroupRequest struct {
	Name        string `json:"name"`
	LineItem    string `json:"line_item"`
	Active      *bool  `json:"active"` // boşsa true
	PalletName  string `json:"pallet_name"`
	Description string `json:"description"`
}

type RenameGroupRequest struct {
	NewName string `json:"new_name"`
}

// GET /api/pallet-groups?active=true
func ListPalletGroupsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.PalletGroup{})
		switch c.Query("active") {
		case "true":
			dbq = dbq.Where("active = ?", true)
		case "false":
			dbq = dbq.Where("active = ?", false)
		}

		var groups []models.PalletGroup
		if err := dbq.Order("name ASC").Find(&groups).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Palet grupları listelenemedi")
		}
		return c.JSON(groups)
	}
}

// GET /api/pallet-groups/resolve?q=
func ResolvePalletGroupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := registry.Resolve(database.DB, c.Query("q"))
		if err != nil {
			if errors.Is(err, registry.ErrGroupNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Palet grubu bulunamadı")
			}
			return err
		}
		return c.JSON(fiber.Map{"name": name})
	}
}

// POST /api/pallet-groups
func CreatePalletGroupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PalletGroupRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if strings.TrimSpace(body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Palet grubu adı zorunludur")
		}

		g := models.PalletGroup{
			Name:        body.Name,
			LineItem:    body.LineItem,
			Active:      body.Active == nil || *body.Active,
			PalletName:  body.PalletName,
			Description: body.Description,
		}
		if err := registry.CreateGroup(database.DB, &g); err != nil {
			return engineError(c, err)
		}

		writeAudit(c, "pallet_group", g.ID, models.AuditActionCreate, "Palet grubu oluşturuldu: "+g.Name, nil, g)
		return c.Status(fiber.StatusCreated).JSON(g)
	}
}

// PUT /api/pallet-groups/:id
// İsim değişikliği için /rename kullanılır.
func UpdatePalletGroupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var g models.PalletGroup
		if err := database.DB.First(&g, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Palet grubu bulunamadı")
			}
			return err
		}
		before := g

		var body PalletGroupRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		lineItem := strings.TrimSpace(body.LineItem)
		if lineItem != "" && !strings.EqualFold(lineItem, g.LineItem) {
			var count int64
			database.DB.Model(&models.PalletGroup{}).
				Where("LOWER(line_item) = ? AND id <> ?", strings.ToLower(lineItem), g.ID).
				Count(&count)
			if count > 0 {
				return fiber.NewError(fiber.StatusConflict, "Bu kalem kodu başka bir grupta kayıtlı")
			}
		}

		updates := map[string]interface{}{
			"line_item":   lineItem,
			"pallet_name": body.PalletName,
			"description": body.Description,
		}
		if body.Active != nil {
			updates["active"] = *body.Active
		}
		if err := database.DB.Model(&g).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Palet grubu güncellenemedi")
		}

		database.DB.First(&g, id)
		writeAudit(c, "pallet_group", g.ID, models.AuditActionUpdate, "Palet grubu güncellendi: "+g.Name, before, g)
		return c.JSON(g)
	}
}

// POST /api/pallet-groups/:name/rename
func RenamePalletGroupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		oldName, err := url.PathUnescape(c.Params("name"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz grup adı")
		}

		var body RenameGroupRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if strings.TrimSpace(body.NewName) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Yeni isim zorunludur")
		}

		updated, err := registry.Rename(database.DB, oldName, body.NewName)
		if err != nil {
			return engineError(c, err)
		}

		var g models.PalletGroup
		database.DB.Where("name = ?", strings.TrimSpace(body.NewName)).First(&g)
		writeAudit(c, "pallet_group", g.ID, models.AuditActionRename,
			"Palet grubu yeniden adlandırıldı: "+oldName+" -> "+g.Name,
			fiber.Map{"name": oldName}, fiber.Map{"name": g.Name, "updated_rows": updated})

		return c.JSON(fiber.Map{
			"group":        g,
			"updated_rows": updated,
		})
	}
}
