package main

import (
	"log"
	"net/http"
	"strings"

	"pallet-backend/internal/allocation"
	"pallet-backend/internal/audit"
	"pallet-backend/internal/auth"
	"pallet-backend/internal/config"
	"pallet-backend/internal/dashboard"
	"pallet-backend/internal/database"
	"pallet-backend/internal/events"
	"pallet-backend/internal/inventory"
	"pallet-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	// CORS origins'i virgülle ayrılmış string'den array'e çevir
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}

	// Canlı değişiklik bildirimleri ayrı portta
	hub := events.NewHub(strings.Join(corsOrigins, ","))
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		log.Println("WebSocket çalışıyor port:", cfg.WSPort)
		if err := http.ListenAndServe(":"+cfg.WSPort, mux); err != nil {
			log.Fatal(err)
		}
	}()

	eng := allocation.New(database.DB, cfg.Engine, hub)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	adminOnly := auth.RequireRole(models.RoleAdmin)

	// Kullanıcı yönetimi
	protected.Post("/users", adminOnly, auth.CreateUserHandler())

	// Depolar
	protected.Get("/warehouses", inventory.ListWarehousesHandler())
	protected.Post("/warehouses", adminOnly, inventory.CreateWarehouseHandler())
	protected.Put("/warehouses/:id", adminOnly, inventory.UpdateWarehouseHandler())

	// Palet grupları
	protected.Get("/pallet-groups", inventory.ListPalletGroupsHandler())
	protected.Get("/pallet-groups/resolve", inventory.ResolvePalletGroupHandler())
	protected.Post("/pallet-groups", adminOnly, inventory.CreatePalletGroupHandler())
	protected.Post("/pallet-groups/import", adminOnly, inventory.ImportPalletGroupsHandler())
	protected.Put("/pallet-groups/:id", adminOnly, inventory.UpdatePalletGroupHandler())
	protected.Post("/pallet-groups/:name/rename", adminOnly, inventory.RenamePalletGroupHandler())

	// Stok ve hareketler
	protected.Get("/stock", inventory.ListStockHandler())
	protected.Get("/stock/export.xlsx", inventory.ExportStockHandler())
	protected.Post("/stock/adjust", adminOnly, inventory.AdjustStockHandler(eng))
	protected.Get("/transactions", inventory.ListTransactionsHandler())

	// Sevkiyatlar (ithalat + depolar arası transfer)
	protected.Post("/shipments", inventory.CreateShipmentHandler(eng))
	protected.Post("/shipments/transfer", inventory.CreateTransferHandler(eng))
	protected.Get("/shipments", inventory.ListShipmentsHandler(eng))
	protected.Get("/shipments/due-today", inventory.DueTodayShipmentsHandler(eng))
	protected.Get("/shipments/:id", inventory.GetShipmentHandler(eng))
	protected.Post("/shipments/:id/deliver", inventory.DeliverShipmentHandler(eng))
	protected.Put("/shipments/:id/edd", inventory.UpdateShipmentEDDHandler(eng))

	// Üretim
	protected.Post("/production/batches", inventory.CreateBatchHandler(eng))
	protected.Get("/production/batches", inventory.ListBatchesHandler(eng))
	protected.Get("/production/batches/:id", inventory.GetBatchHandler(eng))
	protected.Put("/production/batches/:id/pallets/:palletId", inventory.UpdateProductionPalletHandler(eng))
	protected.Post("/production/batches/:id/transfer", inventory.TransferProductionHandler(eng))

	// Siparişler
	protected.Post("/orders", inventory.CreateOrderHandler(eng))
	protected.Post("/orders/allocate", inventory.AllocateHandler(eng))
	protected.Get("/orders", inventory.ListOrdersHandler(eng))
	protected.Get("/orders/:id", inventory.GetOrderHandler(eng))
	protected.Put("/orders/:id", inventory.UpdateOrderDetailsHandler(eng))
	protected.Put("/orders/:id/lines", inventory.UpdateOrderLinesHandler(eng))
	protected.Post("/orders/:id/status", inventory.TransitionOrderHandler(eng))
	protected.Get("/orders/:id/reservations", inventory.OrderReservationsHandler(eng))
	protected.Get("/orders/:id/reservations.xlsx", inventory.ExportOrderReservationsHandler(eng))

	// Arz ve yeniden dengeleme
	protected.Get("/supply", inventory.SupplyHandler(eng))
	protected.Post("/rebalance", adminOnly, inventory.RebalanceHandler(eng))

	// Dashboard
	protected.Get("/dashboard/summary", dashboard.SummaryHandler())
	protected.Get("/dashboard/movement-chart", dashboard.MovementChartHandler())

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	log.Println("Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
