package inventory

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"pallet-backend/internal/allocation"
	"pallet-backend/internal/config"
	"pallet-backend/internal/database"
	"pallet-backend/internal/models"
	"pallet-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type testEnv struct {
	app  *fiber.App
	db   *gorm.DB
	main models.Warehouse
	sec  models.Warehouse
}

func setupApp(t *testing.T) testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	database.DB = db
	eng := allocation.New(db, config.DefaultEngineConfig(), nil)

	app := fiber.New()
	api := app.Group("/api")
	api.Get("/warehouses", ListWarehousesHandler())
	api.Post("/pallet-groups/:name/rename", RenamePalletGroupHandler())
	api.Get("/stock", ListStockHandler())
	api.Post("/stock/adjust", AdjustStockHandler(eng))
	api.Get("/supply", SupplyHandler(eng))
	api.Post("/orders", CreateOrderHandler(eng))
	api.Get("/orders/:id", GetOrderHandler(eng))
	api.Post("/orders/:id/status", TransitionOrderHandler(eng))
	api.Get("/orders/:id/reservations.xlsx", ExportOrderReservationsHandler(eng))

	env := testEnv{
		app:  app,
		db:   db,
		main: testutil.SeedWarehouse(t, db, "Main", true),
		sec:  testutil.SeedWarehouse(t, db, "Second", false),
	}
	testutil.SeedGroup(t, db, "Alpha One", "LI-A")
	return env
}

func (env testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, raw
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func orderBody(wh uint, qty int) fiber.Map {
	return fiber.Map{
		"warehouse_id":  wh,
		"customer_name": "Acme",
		"lines":         []fiber.Map{{"group_name": "li-a", "qty": qty}},
	}
}

func TestCreateOrderHandler_ShortageReturnsLines(t *testing.T) {
	env := setupApp(t)
	testutil.SeedStock(t, env.db, env.main.ID, "Alpha One", 2)

	resp, raw := env.do(t, http.MethodPost, "/api/orders", orderBody(env.main.ID, 5))
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", resp.StatusCode, raw)
	}

	var payload struct {
		Error     string                    `json:"error"`
		Shortages []allocation.ShortageLine `json:"shortages"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(payload.Shortages) != 1 {
		t.Fatalf("Expected one shortage line, got %+v", payload.Shortages)
	}
	if s := payload.Shortages[0]; s.GroupName != "Alpha One" || s.Required != 5 {
		t.Errorf("Unexpected shortage line: %+v", s)
	}

	var count int64
	env.db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no order after shortage, got %d", count)
	}
}

func TestCreateOrderHandler_StatusCodes(t *testing.T) {
	env := setupApp(t)
	testutil.SeedStock(t, env.db, env.main.ID, "Alpha One", 10)

	tests := []struct {
		name   string
		body   fiber.Map
		status int
	}{
		{"unknown group", fiber.Map{"warehouse_id": env.main.ID, "lines": []fiber.Map{{"group_name": "nope", "qty": 1}}}, fiber.StatusBadRequest},
		{"zero qty", fiber.Map{"warehouse_id": env.main.ID, "lines": []fiber.Map{{"group_name": "Alpha One", "qty": 0}}}, fiber.StatusBadRequest},
		{"unknown warehouse", orderBody(999, 1), fiber.StatusBadRequest},
		{"ok", orderBody(env.main.ID, 3), fiber.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := env.do(t, http.MethodPost, "/api/orders", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, resp.StatusCode, raw)
			}
		})
	}

	resp, _ := env.do(t, http.MethodGet, "/api/orders/999", nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected 404 for missing order, got %d", resp.StatusCode)
	}
}

func TestTransitionOrderHandler_ShipWritesAudit(t *testing.T) {
	env := setupApp(t)
	testutil.SeedStock(t, env.db, env.main.ID, "Alpha One", 10)

	resp, raw := env.do(t, http.MethodPost, "/api/orders", orderBody(env.main.ID, 4))
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Failed to create order: %d %s", resp.StatusCode, raw)
	}
	var order models.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		t.Fatalf("Failed to decode order: %v", err)
	}
	if order.Status != models.OrderReadyToShip {
		t.Errorf("Expected ready_to_ship, got %s", order.Status)
	}

	path := "/api/orders/" + itoa(order.ID) + "/status"

	resp, _ = env.do(t, http.MethodPost, path, fiber.Map{"status": "shipped"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected 400 without delivery date, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, path, fiber.Map{"status": "shipped", "delivery_date": "bad"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for malformed date, got %d", resp.StatusCode)
	}

	resp, raw = env.do(t, http.MethodPost, path, fiber.Map{"status": "shipped", "delivery_date": "2025-03-12"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, raw)
	}
	if got := testutil.StockOf(t, env.db, env.main.ID, "Alpha One"); got != 6 {
		t.Errorf("Expected stock 6 after shipping, got %d", got)
	}

	var logs []models.AuditLog
	env.db.Where("entity_type = ? AND entity_id = ?", "order", order.ID).Order("id ASC").Find(&logs)
	if len(logs) != 2 {
		t.Fatalf("Expected create and transition audit rows, got %d", len(logs))
	}
	if logs[1].Action != models.AuditActionTransition {
		t.Errorf("Expected transition action, got %s", logs[1].Action)
	}

	resp, _ = env.do(t, http.MethodPost, path, fiber.Map{"status": "completed"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 for completed, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, path, fiber.Map{"status": "canceled"})
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("Expected 409 for completed order, got %d", resp.StatusCode)
	}
}

func TestExportOrderReservationsHandler(t *testing.T) {
	env := setupApp(t)
	testutil.SeedStock(t, env.db, env.main.ID, "Alpha One", 2)
	testutil.SeedStock(t, env.db, env.sec.ID, "Alpha One", 5)

	_, raw := env.do(t, http.MethodPost, "/api/orders", orderBody(env.main.ID, 4))
	var order models.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		t.Fatalf("Failed to decode order: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+itoa(order.ID)+"/reservations.xlsx", nil)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); ct != xlsxContentType {
		t.Errorf("Unexpected content type %q", ct)
	}

	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Rezervasyonlar")
	if err != nil {
		t.Fatalf("Failed to read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header and one group row, got %d rows", len(rows))
	}
	// Palet Grubu, Gerekli, Rezerve, primary, on_water, second, on_process
	want := []string{"Alpha One", "4", "4", "2", "0", "2", "0"}
	for i, v := range want {
		if rows[1][i] != v {
			t.Errorf("Column %d: expected %q, got %q", i, v, rows[1][i])
		}
	}
}

func TestAdjustStockHandler_PromotesAndSupply(t *testing.T) {
	env := setupApp(t)
	testutil.SeedStock(t, env.db, env.sec.ID, "Alpha One", 3)

	resp, raw := env.do(t, http.MethodPost, "/api/orders", orderBody(env.main.ID, 3))
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Failed to create order: %d %s", resp.StatusCode, raw)
	}

	resp, raw = env.do(t, http.MethodPost, "/api/stock/adjust", fiber.Map{
		"warehouse_id": env.main.ID,
		"group_name":   "Alpha One",
		"delta":        5,
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, raw)
	}

	resp, raw = env.do(t, http.MethodGet, "/api/supply?warehouse_id="+itoa(env.main.ID)+"&group=Alpha%20One", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, raw)
	}
	var supply []allocation.TierSupply
	if err := json.Unmarshal(raw, &supply); err != nil {
		t.Fatalf("Failed to decode supply: %v", err)
	}
	if len(supply) != 1 {
		t.Fatalf("Expected one supply row, got %d", len(supply))
	}
	// rezervasyon ikinci depodan ana depoya taşındı
	if supply[0].Primary != 2 || supply[0].Second != 3 {
		t.Errorf("Unexpected supply after promotion: %+v", supply[0])
	}

	resp, _ = env.do(t, http.MethodPost, "/api/stock/adjust", fiber.Map{
		"warehouse_id": env.main.ID,
		"group_name":   "Alpha One",
		"delta":        -50,
	})
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("Expected 409 for deduction below zero, got %d", resp.StatusCode)
	}
}

func TestRenamePalletGroupHandler(t *testing.T) {
	env := setupApp(t)
	testutil.SeedStock(t, env.db, env.main.ID, "Alpha One", 2)

	resp, raw := env.do(t, http.MethodPost, "/api/pallet-groups/Alpha%20One/rename", fiber.Map{"new_name": "Alpha Two"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, raw)
	}
	if got := testutil.StockOf(t, env.db, env.main.ID, "Alpha Two"); got != 2 {
		t.Errorf("Expected renamed stock row, got %d", got)
	}

	var count int64
	env.db.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionRename).Count(&count)
	if count != 1 {
		t.Errorf("Expected one rename audit row, got %d", count)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/pallet-groups/Missing/rename", fiber.Map{"new_name": "X"})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected 404 for unknown group, got %d", resp.StatusCode)
	}
}

func TestListWarehousesHandler_ResolvesPair(t *testing.T) {
	env := setupApp(t)

	resp, raw := env.do(t, http.MethodGet, "/api/warehouses", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var rows []WarehouseResponse
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatalf("Failed to decode warehouses: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 warehouses, got %d", len(rows))
	}
	if rows[0].ResolvedPairID == nil || *rows[0].ResolvedPairID != env.sec.ID {
		t.Errorf("Expected main to pair with second, got %v", rows[0].ResolvedPairID)
	}
}
