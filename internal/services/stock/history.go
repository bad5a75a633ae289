package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"hookahledger/internal/models"
	"hookahledger/internal/services/apperr"
)

// SessionQuery pages the ledger. A zero Limit selects DefaultPageSize.
type SessionQuery struct {
	Limit  int
	Offset int
	UserID uint
}

type MixLine struct {
	TobaccoID    uint            `json:"tobacco_id"`
	Brand        string          `json:"brand"`
	Line         *string         `json:"line"`
	Name         string          `json:"name"`
	TobaccoName  string          `json:"tobacco_name"`
	GramsUsed    float64         `json:"grams_used"`
	PricePerGram decimal.Decimal `json:"price_per_gram"`
	Cost         decimal.Decimal `json:"cost"`
}

type SessionView struct {
	ID          uint            `json:"id"`
	UserID      uint            `json:"user_id"`
	UserName    string          `json:"user_name"`
	TableNumber *string         `json:"table_number"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	TotalGrams  float64         `json:"total_grams"`
	CreatedAt   time.Time       `json:"created_at"`
	Mix         []MixLine       `json:"mix"`
}

type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

type SessionPage struct {
	Sessions   []SessionView `json:"sessions"`
	Pagination Pagination    `json:"pagination"`
}

func (q *SessionQuery) normalize() error {
	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit < 1 || q.Limit > MaxPageSize {
		return apperr.Invalid("limit", fmt.Sprintf("должно быть от 1 до %d", MaxPageSize))
	}
	if q.Offset < 0 {
		return apperr.Invalid("offset", "должно быть не меньше 0")
	}
	return nil
}

// ListSessions pages through the ledger newest first, with each bowl's mix
// at the prices frozen when it was made.
func (s *Service) ListSessions(ctx context.Context, q SessionQuery) (*SessionPage, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	filter := func(tx *gorm.DB) *gorm.DB {
		if q.UserID != 0 {
			return tx.Where("user_id = ?", q.UserID)
		}
		return tx
	}

	var total int64
	if err := db.Model(&models.Session{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	var sessions []models.Session
	err := db.Scopes(filter).
		Preload("User").
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Preload("Items.Tobacco").
		Order("created_at desc, id desc").
		Limit(q.Limit).Offset(q.Offset).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	page := SessionPage{
		Sessions: make([]SessionView, 0, len(sessions)),
		Pagination: Pagination{
			Total:   total,
			Limit:   q.Limit,
			Offset:  q.Offset,
			HasMore: int64(q.Offset+len(sessions)) < total,
		},
	}
	for _, sess := range sessions {
		v := SessionView{
			ID:          sess.ID,
			UserID:      sess.UserID,
			TableNumber: sess.TableNumber,
			TotalCost:   sess.TotalCost,
			TotalGrams:  sess.TotalGrams,
			CreatedAt:   sess.CreatedAt,
			Mix:         make([]MixLine, 0, len(sess.Items)),
		}
		if sess.User != nil {
			v.UserName = sess.User.Name
		}
		for _, it := range sess.Items {
			line := MixLine{
				TobaccoID:    it.TobaccoID,
				GramsUsed:    it.GramsUsed,
				PricePerGram: it.PricePerGram,
				Cost:         it.Cost,
			}
			if it.Tobacco != nil {
				line.Brand = it.Tobacco.Brand
				line.Line = it.Tobacco.Line
				line.Name = it.Tobacco.Name
				line.TobaccoName = it.Tobacco.FullName()
			}
			v.Mix = append(v.Mix, line)
		}
		page.Sessions = append(page.Sessions, v)
	}
	return &page, nil
}
