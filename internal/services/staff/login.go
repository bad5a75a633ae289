package staff

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hookahledger/internal/auth"
	"hookahledger/internal/metrics"
	"hookahledger/internal/models"
	"hookahledger/internal/services/apperr"
)

const msgWrongPIN = "Неверный ПИН-код"

type LoginResult struct {
	Success   bool        `json:"success"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Login finds the active user whose PIN matches. Rows still holding a
// plaintext PIN are matched by equality and re-hashed on the spot.
func (s *Service) Login(ctx context.Context, pin string) (*LoginResult, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return nil, apperr.Invalid("pin", "PIN-код обязателен")
	}
	db := s.db.WithContext(ctx)
	var users []models.User
	if err := db.Where("is_active = ?", true).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	var (
		match  *models.User
		legacy bool
	)
	for i := range users {
		if ok, l := auth.CheckPIN(users[i].PINHash, pin); ok {
			match, legacy = &users[i], l
			break
		}
	}
	if match == nil {
		metrics.LoginFailures.Inc()
		s.lg.Warnw("login failed")
		sleepCtx(ctx, s.failDelay)
		return nil, apperr.Unauthorized(msgWrongPIN)
	}

	if legacy {
		if hash, err := auth.HashPIN(pin); err == nil {
			if err := db.Model(match).Update("pin_hash", hash).Error; err != nil {
				s.lg.Warnw("rehash legacy pin failed", "user", match.ID, "error", err)
			} else {
				s.lg.Infow("legacy pin rehashed", "user", match.ID)
			}
		}
	}

	tok, err := s.iss.Sign(*match)
	if err != nil {
		return nil, fmt.Errorf("login: sign: %w", err)
	}
	if err := db.Create(&models.AuthSession{JTI: tok.JWTID, UserID: match.ID, ExpiresAt: tok.ExpiresAt}).Error; err != nil {
		return nil, fmt.Errorf("login: store session: %w", err)
	}
	s.lg.Infow("login", "user", match.ID, "role", match.Role)
	return &LoginResult{Success: true, Token: tok.Raw, ExpiresAt: tok.ExpiresAt, User: *match}, nil
}

// Logout revokes the token identified by jti.
func (s *Service) Logout(ctx context.Context, jti string) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&models.AuthSession{}).
		Where("jti = ? AND revoked_at IS NULL", jti).
		Update("revoked_at", &now).Error
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		return nil, fmt.Errorf("profile: %w", notFoundOr(err))
	}
	if !u.IsActive {
		return nil, fmt.Errorf("profile: %w", apperr.NotFound(msgUserNotFound))
	}
	return &u, nil
}

// RehashLegacyPINs converts every remaining plaintext PIN to bcrypt and
// returns how many rows changed.
func (s *Service) RehashLegacyPINs(ctx context.Context) (int, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Find(&users).Error; err != nil {
		return 0, fmt.Errorf("rehash pins: %w", err)
	}
	n := 0
	for _, u := range users {
		if auth.IsHashed(u.PINHash) {
			continue
		}
		hash, err := auth.HashPIN(u.PINHash)
		if err != nil {
			return n, fmt.Errorf("rehash pins: user %d: %w", u.ID, err)
		}
		if err := s.db.WithContext(ctx).Model(&u).Update("pin_hash", hash).Error; err != nil {
			return n, fmt.Errorf("rehash pins: user %d: %w", u.ID, err)
		}
		n++
	}
	return n, nil
}
