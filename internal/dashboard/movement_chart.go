package dashboard

import (
	"sort"
	"time"

	"pallet-backend/internal/database"
	"pallet-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type MovementPoint struct {
	Label      string `json:"label"` // gün / hafta başlangıcı / ay başlangıcı
	Delivered  int    `json:"delivered"`
	OnWater    int    `json:"on_water"`
	Adjustment int    `json:"adjustment"`
	In         int    `json:"in"`
	Out        int    `json:"out"`
}

type MovementTotals struct {
	Delivered  int `json:"delivered"`
	OnWater    int `json:"on_water"`
	Adjustment int `json:"adjustment"`
	In         int `json:"in"`
	Out        int `json:"out"`
}

type MovementChartResponse struct {
	WarehouseID uint            `json:"warehouse_id,omitempty"`
	Period      string          `json:"period"` // daily | weekly | monthly
	From        string          `json:"from"`
	To          string          `json:"to"`
	Points      []MovementPoint `json:"points"`
	GrandTotals MovementTotals  `json:"grand_totals"`
}

// chartRange: period ve count'a göre [start, end) aralığı
func chartRange(now time.Time, period string, count int) (string, time.Time, time.Time) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch period {
	case "weekly":
		weekStart := bucketOf(today, "weekly")
		return period, weekStart.AddDate(0, 0, -7*(count-1)), weekStart.AddDate(0, 0, 7)
	case "monthly":
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return period, monthStart.AddDate(0, -(count - 1), 0), monthStart.AddDate(0, 1, 0)
	default:
		return "daily", today.AddDate(0, 0, -(count - 1)), today.AddDate(0, 0, 1)
	}
}

// bucketOf: haftalar pazartesi başlar
func bucketOf(t time.Time, period string) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch period {
	case "weekly":
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return day
}

// GET /api/dashboard/movement-chart?period=daily&count=7&warehouse_id=1
func MovementChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "daily")
		count := c.QueryInt("count", 0)
		if count < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "count geçersiz")
		}
		if count == 0 {
			switch period {
			case "weekly":
				count = 8
			case "monthly":
				count = 12
			default:
				count = 7
			}
		}

		period, start, end := chartRange(time.Now(), period, count)

		dbq := database.DB.Model(&models.Transaction{}).
			Where("committed_at >= ? AND committed_at < ?", start, end)
		var whID uint
		if wh := c.QueryInt("warehouse_id", 0); wh > 0 {
			whID = uint(wh)
			dbq = dbq.Where("warehouse_id = ?", whID)
		}

		var txns []models.Transaction
		if err := dbq.Find(&txns).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Veri toplanırken hata oluştu")
		}

		buckets := make(map[time.Time]*MovementPoint)
		for _, t := range txns {
			key := bucketOf(t.CommittedAt.In(start.Location()), period)
			p, ok := buckets[key]
			if !ok {
				p = &MovementPoint{Label: key.Format("2006-01-02")}
				buckets[key] = p
			}

			switch t.Status {
			case models.TxnDelivered:
				p.Delivered += t.Delta
			case models.TxnOnWater:
				p.OnWater += t.Delta
			case models.TxnAdjustment:
				p.Adjustment += t.Delta
			}
			if t.Delta > 0 {
				p.In += t.Delta
			} else {
				p.Out -= t.Delta
			}
		}

		keys := make([]time.Time, 0, len(buckets))
		for k := range buckets {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

		points := make([]MovementPoint, 0, len(keys))
		grand := MovementTotals{}
		for _, k := range keys {
			p := *buckets[k]
			points = append(points, p)

			grand.Delivered += p.Delivered
			grand.OnWater += p.OnWater
			grand.Adjustment += p.Adjustment
			grand.In += p.In
			grand.Out += p.Out
		}

		return c.JSON(MovementChartResponse{
			WarehouseID: whID,
			Period:      period,
			From:        start.Format("2006-01-02"),
			To:          end.AddDate(0, 0, -1).Format("2006-01-02"),
			Points:      points,
			GrandTotals: grand,
		})
	}
}
