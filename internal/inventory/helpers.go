package inventory

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"pallet-backend/internal/allocation"
	"pallet-backend/internal/audit"
	"pallet-backend/internal/auth"
	"pallet-backend/internal/models"
	"pallet-backend/internal/registry"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// engineError: motor hatalarını HTTP yanıtına çevirir.
// Bilinmeyen hatalar olduğu gibi döner, app ErrorHandler 500 üretir.
func engineError(c *fiber.Ctx, err error) error {
	var shortage *allocation.ShortageError
	if errors.As(err, &shortage) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":     "Yetersiz stok",
			"shortages": shortage.Lines,
		})
	}

	var validation *allocation.ValidationError
	if errors.As(err, &validation) {
		return fiber.NewError(fiber.StatusBadRequest, validation.Message)
	}

	var conflict *allocation.ConflictError
	if errors.As(err, &conflict) {
		return fiber.NewError(fiber.StatusConflict, conflict.Message)
	}

	switch {
	case errors.Is(err, allocation.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Kayıt bulunamadı")
	case errors.Is(err, registry.ErrGroupNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Palet grubu bulunamadı")
	case errors.Is(err, registry.ErrWarehouseNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Depo bulunamadı")
	case errors.Is(err, registry.ErrDuplicateGroup):
		return fiber.NewError(fiber.StatusConflict, "Bu isim veya kalem kodu zaten kayıtlı")
	}

	return err
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
	}
	return uint(v), nil
}

// parseDate: boş string nil döner
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
	}
	return &d, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// splitGroups: "a,b , c" -> [a b c]
func splitGroups(s string) []string {
	var out []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

func writeAudit(c *fiber.Ctx, entity string, id uint, action models.AuditAction, desc string, before, after any) {
	userID, userName := auth.Actor(c)
	if err := audit.WriteLog(audit.LogOptions{
		UserID:      userID,
		UserName:    userName,
		EntityType:  entity,
		EntityID:    id,
		Action:      action,
		Description: desc,
		Before:      before,
		After:       after,
	}); err != nil {
		log.Printf("audit log yazılamadı (%s #%d): %v", entity, id, err)
	}
}
