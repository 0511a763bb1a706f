package inventory

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"pallet-backend/internal/database"
	"pallet-backend/internal/models"
	"pallet-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		row := row
		if err := f.SetSheetRow("Sheet1", cellName, &row); err != nil {
			t.Fatalf("Failed to write row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to build workbook: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(content)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestImportPalletGroupsHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	database.DB = db
	testutil.SeedGroup(t, db, "Existing", "LI-X")

	app := fiber.New()
	app.Post("/import", ImportPalletGroupsHandler())

	content := workbook(t, [][]interface{}{
		{"Palet Grubu", "Line Item", "Palet Adı", "Açıklama"},
		{"Oak Panel", "LI-1", "Oak 120", "meşe"},
		{"", "LI-2"},
		{"existing", "LI-3"},
		{"Pine Panel", "li-x"},
		{"Birch Panel"},
	})

	resp, err := app.Test(uploadRequest(t, "groups.xlsx", content), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		CreatedCount int          `json:"created_count"`
		Skipped      []ImportSkip `json:"skipped"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out.CreatedCount != 2 {
		t.Errorf("Expected 2 created groups, got %d", out.CreatedCount)
	}
	if len(out.Skipped) != 2 {
		t.Fatalf("Expected 2 skipped rows, got %+v", out.Skipped)
	}
	if out.Skipped[0].Row != 4 || out.Skipped[1].Row != 5 {
		t.Errorf("Unexpected skipped rows: %+v", out.Skipped)
	}

	var g models.PalletGroup
	if err := db.Where("name = ?", "Oak Panel").First(&g).Error; err != nil {
		t.Fatalf("Expected Oak Panel to be created: %v", err)
	}
	if g.LineItem != "LI-1" || g.PalletName != "Oak 120" || !g.Active {
		t.Errorf("Unexpected group fields: %+v", g)
	}
}

func TestImportPalletGroupsHandler_RejectsNonXLSX(t *testing.T) {
	db := testutil.SetupTestDB(t)
	database.DB = db

	app := fiber.New()
	app.Post("/import", ImportPalletGroupsHandler())

	resp, err := app.Test(uploadRequest(t, "groups.csv", []byte("a,b")), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}
