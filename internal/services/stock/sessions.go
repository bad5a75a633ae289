package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hookahledger/internal/metrics"
	"hookahledger/internal/models"
	"hookahledger/internal/services/apperr"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type MixEntry struct {
	TobaccoID uint    `json:"id" validate:"required"`
	Grams     float64 `json:"grams" validate:"gt=0"`
}

type CreateSessionInput struct {
	UserID      uint       `json:"userId" validate:"required"`
	TableNumber *string    `json:"tableNumber" validate:"omitempty,max=20"`
	Mix         []MixEntry `json:"mix" validate:"required,min=1,dive"`
}

type SessionItemView struct {
	TobaccoID       uint            `json:"tobaccoId"`
	Brand           string          `json:"brand"`
	Line            *string         `json:"line"`
	Name            string          `json:"name"`
	Grams           float64         `json:"grams"`
	PricePerGram    decimal.Decimal `json:"pricePerGram"`
	Cost            decimal.Decimal `json:"cost"`
	RemainingWeight float64         `json:"remainingWeight"`
}

type CreatedSession struct {
	ID          uint              `json:"id"`
	UserID      uint              `json:"userId"`
	TableNumber *string           `json:"tableNumber"`
	TotalCost   decimal.Decimal   `json:"totalCost"`
	TotalGrams  float64           `json:"totalGrams"`
	CreatedAt   time.Time         `json:"createdAt"`
	Items       []SessionItemView `json:"items"`
}

type CreateSessionResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Session CreatedSession `json:"session"`
}

type RestoredItem struct {
	TobaccoID uint    `json:"tobaccoId"`
	Name      string  `json:"name"`
	Grams     float64 `json:"grams"`
	NewWeight float64 `json:"newWeight"`
	Skipped   bool    `json:"skipped,omitempty"`
}

type DeleteSessionResult struct {
	Success            bool           `json:"success"`
	Message            string         `json:"message"`
	SessionID          uint           `json:"sessionId"`
	Restored           []RestoredItem `json:"restored"`
	TotalGramsRestored float64        `json:"totalGramsRestored"`
}

// mergeMix folds repeated tobacco ids into one entry, keeping first-seen order.
func mergeMix(mix []MixEntry) []MixEntry {
	out := make([]MixEntry, 0, len(mix))
	idx := make(map[uint]int, len(mix))
	for _, m := range mix {
		if i, ok := idx[m.TobaccoID]; ok {
			out[i].Grams += m.Grams
			continue
		}
		idx[m.TobaccoID] = len(out)
		out = append(out, m)
	}
	return out
}

// lockTobaccos loads and locks tobaccos in ascending id order so concurrent
// sessions touching the same rows queue instead of deadlocking.
func lockTobaccos(tx *gorm.DB, ids []uint) (map[uint]*models.Tobacco, error) {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var ts []models.Tobacco
	if err := forUpdate(tx).Where("id IN ?", sorted).Order("id").Find(&ts).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]*models.Tobacco, len(ts))
	for i := range ts {
		out[ts[i].ID] = &ts[i]
	}
	return out, nil
}

// deduct takes grams off t only while enough stock is left, so a snapshot
// that went stale since it was read can never drive the weight negative.
func deduct(tx *gorm.DB, t *models.Tobacco, grams float64) error {
	res := tx.Model(&models.Tobacco{}).
		Where("id = ? AND current_weight >= ?", t.ID, grams).
		Update("current_weight", gorm.Expr("current_weight - ?", grams))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var weights []float64
		if err := tx.Model(&models.Tobacco{}).Where("id = ?", t.ID).Pluck("current_weight", &weights).Error; err != nil {
			return err
		}
		var available float64
		if len(weights) > 0 {
			available = weights[0]
		}
		return &apperr.InsufficientStockError{Items: []apperr.Shortage{{
			TobaccoID: t.ID, Name: t.FullName(), Requested: grams, Available: available,
			Shortfall: grams - available,
		}}}
	}
	return nil
}

// CreateSession records one bowl: it validates stock, freezes the current
// prices into the items and deducts every tobacco, all or nothing.
func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (*CreateSessionResult, error) {
	if in.TableNumber != nil {
		v := strings.TrimSpace(*in.TableNumber)
		in.TableNumber = &v
		if v == "" {
			in.TableNumber = nil
		}
	}
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	mix := mergeMix(in.Mix)
	ids := make([]uint, 0, len(mix))
	for _, m := range mix {
		ids = append(ids, m.TobaccoID)
	}

	var out CreatedSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, in.UserID).Error; err != nil {
			return notFoundOr(err, "Пользователь не найден")
		}
		if !user.IsActive {
			return apperr.NotFound("Пользователь не найден")
		}

		byID, err := lockTobaccos(tx, ids)
		if err != nil {
			return err
		}
		var missing []string
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				missing = append(missing, fmt.Sprint(id))
			}
		}
		if len(missing) > 0 {
			return apperr.NotFound("Табак не найден: " + strings.Join(missing, ", "))
		}

		var short []apperr.Shortage
		for _, m := range mix {
			t := byID[m.TobaccoID]
			if m.Grams > t.CurrentWeight {
				short = append(short, apperr.Shortage{
					TobaccoID: t.ID,
					Name:      t.FullName(),
					Requested: m.Grams,
					Available: t.CurrentWeight,
					Shortfall: m.Grams - t.CurrentWeight,
				})
			}
		}
		if len(short) > 0 {
			return &apperr.InsufficientStockError{Items: short}
		}

		sess := models.Session{UserID: user.ID, TableNumber: in.TableNumber, CreatedAt: s.now()}
		items := make([]models.SessionItem, 0, len(mix))
		for _, m := range mix {
			t := byID[m.TobaccoID]
			cost := itemCost(m.Grams, t.PricePerGram)
			sess.TotalCost = sess.TotalCost.Add(cost)
			sess.TotalGrams += m.Grams
			items = append(items, models.SessionItem{TobaccoID: t.ID, GramsUsed: m.Grams, PricePerGram: t.PricePerGram, Cost: cost})
		}
		if err := tx.Omit(clause.Associations).Create(&sess).Error; err != nil {
			return err
		}

		out = CreatedSession{
			ID:          sess.ID,
			UserID:      sess.UserID,
			TableNumber: sess.TableNumber,
			TotalCost:   sess.TotalCost,
			TotalGrams:  sess.TotalGrams,
			CreatedAt:   sess.CreatedAt,
		}
		for i := range items {
			it := &items[i]
			it.SessionID = sess.ID
			t := byID[it.TobaccoID]
			if err := tx.Omit(clause.Associations).Create(it).Error; err != nil {
				return err
			}
			if err := deduct(tx, t, it.GramsUsed); err != nil {
				return err
			}
			remaining := t.CurrentWeight - it.GramsUsed
			if err := tx.Create(&models.StockMovement{
				TobaccoID:    t.ID,
				UserID:       uintPtr(user.ID),
				SessionID:    uintPtr(sess.ID),
				Kind:         models.MovementConsumption,
				DeltaGrams:   -it.GramsUsed,
				WeightBefore: t.CurrentWeight,
				WeightAfter:  remaining,
				PriceBefore:  t.PricePerGram,
				PriceAfter:   t.PricePerGram,
				Cost:         it.Cost,
			}).Error; err != nil {
				return err
			}
			out.Items = append(out.Items, SessionItemView{
				TobaccoID:       t.ID,
				Brand:           t.Brand,
				Line:            t.Line,
				Name:            t.Name,
				Grams:           it.GramsUsed,
				PricePerGram:    it.PricePerGram,
				Cost:            it.Cost,
				RemainingWeight: remaining,
			})
		}
		return nil
	})
	if err != nil {
		var short *apperr.InsufficientStockError
		if errors.As(err, &short) {
			metrics.InsufficientStock.Inc()
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	metrics.SessionsCreated.Inc()
	metrics.GramsMoved.WithLabelValues(string(models.MovementConsumption)).Add(out.TotalGrams)
	s.lg.Infow("session created", "id", out.ID, "user", out.UserID, "grams", out.TotalGrams, "cost", out.TotalCost)
	return &CreateSessionResult{
		Success: true,
		Message: fmt.Sprintf("Забивка создана. Себестоимость: %s ₽", out.TotalCost.StringFixed(costDigits)),
		Session: out,
	}, nil
}

// DeleteSession undoes a bowl: grams go back to stock and the session rows
// are removed. Items whose tobacco no longer exists are skipped.
func (s *Service) DeleteSession(ctx context.Context, actor, id uint) (*DeleteSessionResult, error) {
	res := DeleteSessionResult{SessionID: id}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess models.Session
		if err := forUpdate(tx).First(&sess, id).Error; err != nil {
			return notFoundOr(err, "Забивка не найдена")
		}
		var items []models.SessionItem
		if err := tx.Where("session_id = ?", sess.ID).Order("id").Find(&items).Error; err != nil {
			return err
		}
		ids := make([]uint, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.TobaccoID)
		}
		byID, err := lockTobaccos(tx, ids)
		if err != nil {
			return err
		}
		for _, it := range items {
			t, ok := byID[it.TobaccoID]
			if !ok {
				s.lg.Warnw("session item references missing tobacco", "session", sess.ID, "tobacco", it.TobaccoID)
				res.Restored = append(res.Restored, RestoredItem{TobaccoID: it.TobaccoID, Grams: it.GramsUsed, Skipped: true})
				continue
			}
			if err := tx.Model(&models.Tobacco{}).Where("id = ?", t.ID).
				Update("current_weight", gorm.Expr("current_weight + ?", it.GramsUsed)).Error; err != nil {
				return err
			}
			before := t.CurrentWeight
			t.CurrentWeight += it.GramsUsed
			if err := tx.Create(&models.StockMovement{
				TobaccoID:    t.ID,
				UserID:       uintPtr(actor),
				SessionID:    uintPtr(sess.ID),
				Kind:         models.MovementRestore,
				DeltaGrams:   it.GramsUsed,
				WeightBefore: before,
				WeightAfter:  t.CurrentWeight,
				PriceBefore:  t.PricePerGram,
				PriceAfter:   t.PricePerGram,
				Cost:         it.Cost,
			}).Error; err != nil {
				return err
			}
			res.Restored = append(res.Restored, RestoredItem{TobaccoID: t.ID, Name: t.FullName(), Grams: it.GramsUsed, NewWeight: t.CurrentWeight})
			res.TotalGramsRestored += it.GramsUsed
		}
		if err := tx.Where("session_id = ?", sess.ID).Delete(&models.SessionItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Session{}, sess.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("delete session %d: %w", id, err)
	}
	res.Success = true
	res.Message = fmt.Sprintf("Забивка #%d удалена. Возвращено %g г табака", id, res.TotalGramsRestored)
	metrics.SessionsDeleted.Inc()
	metrics.GramsMoved.WithLabelValues(string(models.MovementRestore)).Add(res.TotalGramsRestored)
	s.lg.Infow("session deleted", "id", id, "restored", res.TotalGramsRestored)
	return &res, nil
}
