package dashboard

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"pallet-backend/internal/database"
	"pallet-backend/internal/models"
	"pallet-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
)

func TestBucketOf(t *testing.T) {
	// 2025-03-12 çarşamba
	wed := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		period string
		want   string
	}{
		{"daily", "2025-03-12"},
		{"weekly", "2025-03-10"},
		{"monthly", "2025-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			if got := bucketOf(wed, tt.period).Format("2006-01-02"); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}

	sun := time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)
	if got := bucketOf(sun, "weekly").Format("2006-01-02"); got != "2025-03-10" {
		t.Errorf("Expected sunday to fall in the week of 2025-03-10, got %s", got)
	}
}

func TestMovementChartHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	database.DB = db
	wh := testutil.SeedWarehouse(t, db, "Main", true)

	now := time.Now()
	txns := []models.Transaction{
		{WarehouseID: wh.ID, GroupName: "A", Delta: 10, Status: models.TxnDelivered, CommittedAt: now},
		{WarehouseID: wh.ID, GroupName: "A", Delta: -3, Status: models.TxnAdjustment, CommittedAt: now},
		{WarehouseID: wh.ID, GroupName: "A", Delta: -2, Status: models.TxnOnWater, CommittedAt: now.AddDate(0, 0, -1)},
		{WarehouseID: wh.ID, GroupName: "A", Delta: 99, Status: models.TxnDelivered, CommittedAt: now.AddDate(0, 0, -30)},
	}
	if err := db.Create(&txns).Error; err != nil {
		t.Fatalf("Failed to seed transactions: %v", err)
	}

	app := fiber.New()
	app.Get("/chart", MovementChartHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/chart?period=daily&count=7", nil), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, raw)
	}

	var chart MovementChartResponse
	if err := json.Unmarshal(raw, &chart); err != nil {
		t.Fatalf("Failed to decode chart: %v", err)
	}
	if len(chart.Points) != 2 {
		t.Fatalf("Expected 2 buckets in range, got %+v", chart.Points)
	}
	want := MovementTotals{Delivered: 10, OnWater: -2, Adjustment: -3, In: 10, Out: 5}
	if chart.GrandTotals != want {
		t.Errorf("Expected totals %+v, got %+v", want, chart.GrandTotals)
	}
}

func TestSummaryHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	database.DB = db
	wh := testutil.SeedWarehouse(t, db, "Main", true)

	tomorrow := time.Now().AddDate(0, 0, 3)
	yesterday := time.Now().AddDate(0, 0, -1)
	shipments := []models.Shipment{
		{Kind: models.ShipmentImport, Status: models.ShipmentOnWater, WarehouseID: wh.ID, EstDeliveryDate: &yesterday,
			Lines: []models.ShipmentLine{{GroupName: "A", Pallets: 4}}},
		{Kind: models.ShipmentImport, Status: models.ShipmentOnWater, WarehouseID: wh.ID, EstDeliveryDate: &tomorrow,
			Lines: []models.ShipmentLine{{GroupName: "A", Pallets: 6}}},
		{Kind: models.ShipmentImport, Status: models.ShipmentDelivered, WarehouseID: wh.ID,
			Lines: []models.ShipmentLine{{GroupName: "A", Pallets: 50}}},
	}
	if err := db.Create(&shipments).Error; err != nil {
		t.Fatalf("Failed to seed shipments: %v", err)
	}

	orders := []models.Order{
		{OrderNumber: "ORD-0001", WarehouseID: wh.ID, Status: models.OrderProcessing},
		{OrderNumber: "ORD-0002", WarehouseID: wh.ID, Status: models.OrderProcessing},
		{OrderNumber: "ORD-0003", WarehouseID: wh.ID, Status: models.OrderShipped},
	}
	if err := db.Create(&orders).Error; err != nil {
		t.Fatalf("Failed to seed orders: %v", err)
	}
	reservations := []models.Reservation{
		{OrderNumber: "ORD-0001", WarehouseID: wh.ID, GroupName: "A", Tier: models.TierPrimary, Qty: 2},
		{OrderNumber: "ORD-0002", WarehouseID: wh.ID, GroupName: "A", Tier: models.TierOnWater, Qty: 3},
	}
	if err := db.Create(&reservations).Error; err != nil {
		t.Fatalf("Failed to seed reservations: %v", err)
	}

	batch := models.ProductionBatch{Reference: "PO-1", PONumber: "PO-1", Status: models.BatchInProgress,
		Pallets: []models.ProductionPallet{
			{PONumber: "PO-1", GroupName: "A", TotalPallets: 10, TransferredPallets: 4, Status: models.ProductionPartial},
			{PONumber: "PO-1", GroupName: "B", TotalPallets: 7, Status: models.ProductionCancelled},
		}}
	if err := db.Create(&batch).Error; err != nil {
		t.Fatalf("Failed to seed batch: %v", err)
	}

	app := fiber.New()
	app.Get("/summary", SummaryHandler())
	resp, err := app.Test(httptest.NewRequest("GET", "/summary", nil), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var got SummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}

	if got.OrdersByStatus[models.OrderProcessing] != 2 || got.OrdersByStatus[models.OrderShipped] != 1 {
		t.Errorf("Unexpected order counts: %+v", got.OrdersByStatus)
	}
	if got.ReservedByTier[models.TierPrimary] != 2 || got.ReservedByTier[models.TierOnWater] != 3 {
		t.Errorf("Unexpected reserved tiers: %+v", got.ReservedByTier)
	}
	if got.OnWaterShipments != 2 || got.OnWaterPallets != 10 {
		t.Errorf("Expected 2 shipments with 10 pallets on water, got %d / %d", got.OnWaterShipments, got.OnWaterPallets)
	}
	if got.DueToday != 1 {
		t.Errorf("Expected 1 shipment due, got %d", got.DueToday)
	}
	if got.InProduction != 6 {
		t.Errorf("Expected 6 pallets in production, got %d", got.InProduction)
	}
}
