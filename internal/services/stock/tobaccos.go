package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"hookahledger/internal/metrics"
	"hookahledger/internal/models"
	"hookahledger/internal/services/apperr"
)

const msgTobaccoNotFound = "Табак не найден"

type CreateTobaccoInput struct {
	Brand           string   `json:"brand" validate:"required,max=100"`
	Name            string   `json:"name" validate:"required,max=100"`
	Line            *string  `json:"line" validate:"omitempty,max=100"`
	Strength        *int     `json:"strength" validate:"omitempty,min=1,max=10"`
	CurrentWeight   float64  `json:"currentWeight" validate:"gte=0"`
	ThresholdWeight *float64 `json:"thresholdWeight" validate:"omitempty,gte=0"`
	PricePerGram    float64  `json:"pricePerGram" validate:"gte=0"`
}

type UpdateTobaccoInput struct {
	Brand           *string  `json:"brand" validate:"omitempty,min=1,max=100"`
	Name            *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Line            *string  `json:"line" validate:"omitempty,max=100"`
	Strength        *int     `json:"strength" validate:"omitempty,min=1,max=10"`
	ThresholdWeight *float64 `json:"thresholdWeight" validate:"omitempty,gte=0"`
}

type RestockInput struct {
	GramsAdded float64 `json:"gramsAdded" validate:"gt=0"`
	TotalCost  float64 `json:"totalCost" validate:"gte=0"`
}

type CorrectionInput struct {
	NewWeight *float64 `json:"newWeight" validate:"required,gte=0"`
	Reason    string   `json:"reason" validate:"max=200"`
}

type RestockCalculation struct {
	OldWeight           float64         `json:"oldWeight"`
	OldPricePerGram     decimal.Decimal `json:"oldPricePerGram"`
	GramsAdded          float64         `json:"gramsAdded"`
	TotalCost           decimal.Decimal `json:"totalCost"`
	RestockPricePerGram decimal.Decimal `json:"restockPricePerGram"`
	NewWeight           float64         `json:"newWeight"`
	NewPricePerGram     decimal.Decimal `json:"newPricePerGram"`
}

type RestockResult struct {
	Success     bool               `json:"success"`
	Tobacco     models.Tobacco     `json:"tobacco"`
	Calculation RestockCalculation `json:"calculation"`
}

type Adjustment struct {
	OldWeight float64 `json:"oldWeight"`
	NewWeight float64 `json:"newWeight"`
	Delta     float64 `json:"delta"`
}

type CorrectionResult struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Tobacco    models.Tobacco `json:"tobacco"`
	Adjustment Adjustment     `json:"adjustment"`
}

func normalizeLine(line *string) *string {
	if line == nil {
		return nil
	}
	v := strings.TrimSpace(*line)
	if v == "" {
		return nil
	}
	return &v
}

func (s *Service) ListTobaccos(ctx context.Context) ([]models.Tobacco, error) {
	var ts []models.Tobacco
	if err := s.db.WithContext(ctx).Order("brand, line, name").Find(&ts).Error; err != nil {
		return nil, fmt.Errorf("list tobaccos: %w", err)
	}
	return ts, nil
}

func (s *Service) GetTobacco(ctx context.Context, id uint) (*models.Tobacco, error) {
	var t models.Tobacco
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, fmt.Errorf("get tobacco %d: %w", id, notFoundOr(err, msgTobaccoNotFound))
	}
	return &t, nil
}

func duplicateExists(tx *gorm.DB, brand, name string, line *string, exceptID uint) (bool, error) {
	l := ""
	if line != nil {
		l = *line
	}
	q := tx.Model(&models.Tobacco{}).
		Where("LOWER(brand) = LOWER(?) AND LOWER(name) = LOWER(?) AND LOWER(COALESCE(line, '')) = LOWER(?)", brand, name, l)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateTobacco adds a catalogue entry. Any initial stock is recorded as a
// create movement costed at the given price.
func (s *Service) CreateTobacco(ctx context.Context, actor uint, in CreateTobaccoInput) (*models.Tobacco, error) {
	in.Brand = strings.TrimSpace(in.Brand)
	in.Name = strings.TrimSpace(in.Name)
	in.Line = normalizeLine(in.Line)
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	t := models.Tobacco{
		Brand:           in.Brand,
		Name:            in.Name,
		Line:            in.Line,
		Strength:        in.Strength,
		CurrentWeight:   in.CurrentWeight,
		ThresholdWeight: 50,
		PricePerGram:    decimal.NewFromFloat(in.PricePerGram).Round(priceDigits),
	}
	if in.ThresholdWeight != nil {
		t.ThresholdWeight = *in.ThresholdWeight
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := duplicateExists(tx, t.Brand, t.Name, t.Line, 0)
		if err != nil {
			return err
		}
		if dup {
			return apperr.Conflict("Табак с таким брендом и названием уже существует")
		}
		if err := tx.Create(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("Табак с таким брендом и названием уже существует")
			}
			return err
		}
		if t.CurrentWeight == 0 {
			return nil
		}
		return tx.Create(&models.StockMovement{
			TobaccoID:   t.ID,
			UserID:      uintPtr(actor),
			Kind:        models.MovementCreate,
			DeltaGrams:  t.CurrentWeight,
			WeightAfter: t.CurrentWeight,
			PriceAfter:  t.PricePerGram,
			Cost:        itemCost(t.CurrentWeight, t.PricePerGram),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create tobacco: %w", err)
	}
	s.lg.Infow("tobacco created", "id", t.ID, "name", t.FullName(), "weight", t.CurrentWeight)
	return &t, nil
}

// UpdateTobacco edits catalogue fields. Weight and price only change through
// restock, correction and sessions.
func (s *Service) UpdateTobacco(ctx context.Context, id uint, in UpdateTobaccoInput) (*models.Tobacco, error) {
	if in.Brand != nil {
		v := strings.TrimSpace(*in.Brand)
		in.Brand = &v
	}
	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		in.Name = &v
	}
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	var t models.Tobacco
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&t, id).Error; err != nil {
			return notFoundOr(err, msgTobaccoNotFound)
		}
		if in.Brand != nil {
			t.Brand = *in.Brand
		}
		if in.Name != nil {
			t.Name = *in.Name
		}
		if in.Line != nil {
			t.Line = normalizeLine(in.Line)
		}
		if in.Strength != nil {
			t.Strength = in.Strength
		}
		if in.ThresholdWeight != nil {
			t.ThresholdWeight = *in.ThresholdWeight
		}
		dup, err := duplicateExists(tx, t.Brand, t.Name, t.Line, t.ID)
		if err != nil {
			return err
		}
		if dup {
			return apperr.Conflict("Табак с таким брендом и названием уже существует")
		}
		t.UpdatedAt = s.now()
		return tx.Model(&t).Select("brand", "name", "line", "strength", "threshold_weight", "updated_at").Updates(&t).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update tobacco %d: %w", id, err)
	}
	return &t, nil
}

// Restock adds purchased grams and folds their cost into the weighted
// average price per gram.
func (s *Service) Restock(ctx context.Context, actor, id uint, in RestockInput) (*RestockResult, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	cost := decimal.NewFromFloat(in.TotalCost).Round(costDigits)
	var res RestockResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tobacco
		if err := forUpdate(tx).First(&t, id).Error; err != nil {
			return notFoundOr(err, msgTobaccoNotFound)
		}
		calc := RestockCalculation{
			OldWeight:           t.CurrentWeight,
			OldPricePerGram:     t.PricePerGram,
			GramsAdded:          in.GramsAdded,
			TotalCost:           cost,
			RestockPricePerGram: cost.DivRound(grams(in.GramsAdded), priceDigits),
			NewWeight:           t.CurrentWeight + in.GramsAdded,
			NewPricePerGram:     weightedPrice(t.CurrentWeight, t.PricePerGram, in.GramsAdded, cost),
		}
		if err := tx.Model(&t).Updates(map[string]any{
			"current_weight": calc.NewWeight,
			"price_per_gram": calc.NewPricePerGram,
		}).Error; err != nil {
			return err
		}
		t.CurrentWeight = calc.NewWeight
		t.PricePerGram = calc.NewPricePerGram
		if err := tx.Create(&models.StockMovement{
			TobaccoID:    t.ID,
			UserID:       uintPtr(actor),
			Kind:         models.MovementRestock,
			DeltaGrams:   in.GramsAdded,
			WeightBefore: calc.OldWeight,
			WeightAfter:  calc.NewWeight,
			PriceBefore:  calc.OldPricePerGram,
			PriceAfter:   calc.NewPricePerGram,
			Cost:         cost,
		}).Error; err != nil {
			return err
		}
		res = RestockResult{Success: true, Tobacco: t, Calculation: calc}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("restock tobacco %d: %w", id, err)
	}
	metrics.Restocks.Inc()
	metrics.GramsMoved.WithLabelValues(string(models.MovementRestock)).Add(in.GramsAdded)
	s.lg.Infow("restock", "tobacco", id, "grams", in.GramsAdded, "cost", cost, "price", res.Calculation.NewPricePerGram)
	return &res, nil
}

// CorrectInventory overwrites the on-hand weight after a physical recount.
func (s *Service) CorrectInventory(ctx context.Context, actor, id uint, in CorrectionInput) (*CorrectionResult, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	newWeight := *in.NewWeight
	var res CorrectionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tobacco
		if err := forUpdate(tx).First(&t, id).Error; err != nil {
			return notFoundOr(err, msgTobaccoNotFound)
		}
		adj := Adjustment{OldWeight: t.CurrentWeight, NewWeight: newWeight, Delta: newWeight - t.CurrentWeight}
		if err := tx.Model(&t).Update("current_weight", newWeight).Error; err != nil {
			return err
		}
		t.CurrentWeight = newWeight
		mv := models.StockMovement{
			TobaccoID:    t.ID,
			UserID:       uintPtr(actor),
			Kind:         models.MovementCorrection,
			DeltaGrams:   adj.Delta,
			WeightBefore: adj.OldWeight,
			WeightAfter:  adj.NewWeight,
			PriceBefore:  t.PricePerGram,
			PriceAfter:   t.PricePerGram,
			Cost:         itemCost(adj.Delta, t.PricePerGram),
		}
		if in.Reason != "" {
			mv.Metadata = models.NewJSONB(map[string]string{"reason": in.Reason})
		}
		if err := tx.Create(&mv).Error; err != nil {
			return err
		}
		res = CorrectionResult{
			Success:    true,
			Message:    fmt.Sprintf("Остаток %s обновлён: %g г (%+g г)", t.FullName(), adj.NewWeight, adj.Delta),
			Tobacco:    t,
			Adjustment: adj,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("correct inventory %d: %w", id, err)
	}
	s.lg.Infow("inventory corrected", "tobacco", id, "old", res.Adjustment.OldWeight, "new", res.Adjustment.NewWeight)
	return &res, nil
}

// Movements returns the newest stock movements of one tobacco.
func (s *Service) Movements(ctx context.Context, id uint, limit int) ([]models.StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if _, err := s.GetTobacco(ctx, id); err != nil {
		return nil, err
	}
	var ms []models.StockMovement
	if err := s.db.WithContext(ctx).Where("tobacco_id = ?", id).Order("id desc").Limit(limit).Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("list movements %d: %w", id, err)
	}
	return ms, nil
}
