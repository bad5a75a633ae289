// Package stock owns every mutation of tobacco inventory: catalogue edits,
// restocks, manual corrections and the mixing sessions that consume stock.
// Each mutation writes a StockMovement row in the same transaction.
package stock

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hookahledger/internal/services/apperr"
)

const (
	priceDigits = 4
	costDigits  = 2
)

type Service struct {
	db  *gorm.DB
	lg  *zap.SugaredLogger
	now func() time.Time
}

func NewService(db *gorm.DB, lg *zap.SugaredLogger) *Service {
	return &Service{db: db, lg: lg, now: time.Now}
}

// forUpdate row-locks the selected rows on postgres. sqlite already runs
// one writer at a time and has no FOR UPDATE.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func grams(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// itemCost is grams x price rounded to kopecks.
func itemCost(g float64, price decimal.Decimal) decimal.Decimal {
	return grams(g).Mul(price).Round(costDigits)
}

// weightedPrice blends the cost basis of the stock on hand with a purchase.
func weightedPrice(oldWeight float64, oldPrice decimal.Decimal, added float64, cost decimal.Decimal) decimal.Decimal {
	total := grams(oldWeight + added)
	if total.IsZero() {
		return oldPrice
	}
	return grams(oldWeight).Mul(oldPrice).Add(cost).DivRound(total, priceDigits)
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return err
}

func uintPtr(v uint) *uint {
	if v == 0 {
		return nil
	}
	return &v
}
