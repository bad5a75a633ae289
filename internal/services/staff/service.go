// Package staff handles lounge staff accounts and PIN login.
package staff

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hookahledger/internal/auth"
)

type Service struct {
	db        *gorm.DB
	iss       *auth.Issuer
	lg        *zap.SugaredLogger
	failDelay time.Duration
}

// NewService wires the staff service. failDelay is slept on every failed
// login before answering.
func NewService(db *gorm.DB, iss *auth.Issuer, lg *zap.SugaredLogger, failDelay time.Duration) *Service {
	return &Service{db: db, iss: iss, lg: lg, failDelay: failDelay}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
