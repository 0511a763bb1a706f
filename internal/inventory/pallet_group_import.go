package inventory

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"pallet-backend/internal/database"
	"pallet-backend/internal/models"
	"pallet-backend/internal/registry"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

type ImportSkip struct {
	Row    int    `json:"row"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// isHeaderRow: ilk hücrede "GRUP", "GROUP" veya "PALET" geçiyorsa başlık satırıdır
func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimSpace(row[0]))
	return strings.Contains(first, "GRUP") || strings.Contains(first, "GROUP") || strings.Contains(first, "PALET")
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// POST /api/pallet-groups/import
// XLSX kolonları: grup adı, line item, palet adı, açıklama
func ImportPalletGroupsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya yüklenemedi: "+err.Error())
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Sadece .xlsx dosyaları yüklenebilir")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Dosya açılamadı: "+err.Error())
		}
		defer file.Close()

		excelFile, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyası okunamadı: "+err.Error())
		}
		defer excelFile.Close()

		sheetList := excelFile.GetSheetList()
		if len(sheetList) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyasında sheet bulunamadı")
		}
		rows, err := excelFile.GetRows(sheetList[0])
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Sheet okunamadı: "+err.Error())
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyası boş")
		}

		startIndex := 0
		if isHeaderRow(rows[0]) {
			startIndex = 1
		}

		created := make([]models.PalletGroup, 0)
		skipped := make([]ImportSkip, 0)

		for i := startIndex; i < len(rows); i++ {
			row := rows[i]
			name := cell(row, 0)
			if name == "" {
				continue
			}

			g := models.PalletGroup{
				Name:        name,
				LineItem:    cell(row, 1),
				Active:      true,
				PalletName:  cell(row, 2),
				Description: cell(row, 3),
			}
			if err := registry.CreateGroup(database.DB, &g); err != nil {
				reason := "kaydedilemedi"
				if errors.Is(err, registry.ErrDuplicateGroup) {
					reason = "zaten kayıtlı"
				} else {
					log.Printf("Palet grubu içe aktarılırken hata (satır %d): %v", i+1, err)
				}
				skipped = append(skipped, ImportSkip{Row: i + 1, Name: name, Reason: reason})
				continue
			}
			created = append(created, g)
		}

		writeAudit(c, "pallet_group", 0, models.AuditActionCreate,
			fmt.Sprintf("Excel'den %d palet grubu içe aktarıldı", len(created)), nil, created)

		return c.JSON(fiber.Map{
			"created_count": len(created),
			"created":       created,
			"skipped":       skipped,
			"message":       fmt.Sprintf("%d palet grubu eklendi. %d satır atlandı.", len(created), len(skipped)),
		})
	}
}
