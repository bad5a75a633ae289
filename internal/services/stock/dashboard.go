package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hookahledger/internal/models"
)

type StockSummary struct {
	TotalGrams      float64         `json:"totalGrams"`
	AvgPricePerGram decimal.Decimal `json:"avgPricePerGram"`
	OutOfStockCount int             `json:"outOfStockCount"`
	InStockCount    int             `json:"inStockCount"`
}

type MonthlySummary struct {
	Since         time.Time       `json:"since"`
	SessionsCount int64           `json:"sessionsCount"`
	TotalCost     decimal.Decimal `json:"totalCost"`
	TotalGrams    float64         `json:"totalGrams"`
}

type LowStockItem struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	CurrentWeight   float64 `json:"currentWeight"`
	ThresholdWeight float64 `json:"thresholdWeight"`
}

type Summary struct {
	TotalStockValue    decimal.Decimal `json:"totalStockValue"`
	TotalPositions     int             `json:"totalPositions"`
	LowStockItemsCount int             `json:"lowStockItemsCount"`
	LowStockItems      []LowStockItem  `json:"lowStockItems"`
	Stock              StockSummary    `json:"stock"`
	Monthly            MonthlySummary  `json:"monthly"`
}

// Summarize folds the current catalogue into dashboard counters.
func Summarize(ts []models.Tobacco) Summary {
	sum := Summary{TotalPositions: len(ts), LowStockItems: []LowStockItem{}}
	for _, t := range ts {
		if t.CurrentWeight <= 0 {
			sum.Stock.OutOfStockCount++
			continue
		}
		sum.Stock.InStockCount++
		sum.Stock.TotalGrams += t.CurrentWeight
		sum.TotalStockValue = sum.TotalStockValue.Add(grams(t.CurrentWeight).Mul(t.PricePerGram))
		if t.CurrentWeight <= t.ThresholdWeight {
			sum.LowStockItemsCount++
			sum.LowStockItems = append(sum.LowStockItems, LowStockItem{
				ID: t.ID, Name: t.FullName(), CurrentWeight: t.CurrentWeight, ThresholdWeight: t.ThresholdWeight,
			})
		}
	}
	sum.TotalStockValue = sum.TotalStockValue.Round(costDigits)
	if sum.Stock.TotalGrams > 0 {
		sum.Stock.AvgPricePerGram = sum.TotalStockValue.DivRound(grams(sum.Stock.TotalGrams), priceDigits)
	}
	return sum
}

func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	ts, err := s.ListTobaccos(ctx)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	sum := Summarize(ts)

	since := monthStart(s.now())
	var row struct {
		SessionsCount int64
		TotalCost     decimal.Decimal
		TotalGrams    float64
	}
	err = s.db.WithContext(ctx).Model(&models.Session{}).
		Select("COUNT(*) AS sessions_count, COALESCE(SUM(total_cost), 0) AS total_cost, COALESCE(SUM(total_grams), 0) AS total_grams").
		Where("created_at >= ?", since).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	sum.Monthly = MonthlySummary{
		Since:         since,
		SessionsCount: row.SessionsCount,
		TotalCost:     row.TotalCost.Round(costDigits),
		TotalGrams:    row.TotalGrams,
	}
	return &sum, nil
}
