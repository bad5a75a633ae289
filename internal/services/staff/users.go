package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"hookahledger/internal/auth"
	"hookahledger/internal/models"
	"hookahledger/internal/services/apperr"
)

const (
	msgUserNotFound = "Пользователь не найден"
	msgNameTaken    = "Пользователь с таким именем уже существует"
	msgPINTaken     = "Пользователь с таким PIN-кодом уже существует"
	msgLastAdmin    = "Нельзя удалить или понизить последнего администратора"
)

type CreateUserInput struct {
	Name    string      `json:"name" validate:"required,min=2,max=100"`
	PINCode string      `json:"pinCode" validate:"required,len=4,number"`
	Role    models.Role `json:"role" validate:"required,oneof=admin master"`
}

type UpdateUserInput struct {
	Name     *string      `json:"name" validate:"omitempty,min=2,max=100"`
	PINCode  *string      `json:"pinCode" validate:"omitempty,len=4,number"`
	Role     *models.Role `json:"role" validate:"omitempty,oneof=admin master"`
	IsActive *bool        `json:"isActive"`
}

type DeleteUserResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Deactivated bool   `json:"deactivated"`
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msgUserNotFound)
	}
	return err
}

func nameTaken(tx *gorm.DB, name string, exceptID uint) (bool, error) {
	q := tx.Model(&models.User{}).Where("LOWER(name) = LOWER(?)", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

// pinTaken compares pin against every stored PIN; hashes cannot be looked
// up by value.
func pinTaken(tx *gorm.DB, pin string, exceptID uint) (bool, error) {
	var users []models.User
	if err := tx.Select("id", "pin_hash").Find(&users).Error; err != nil {
		return false, err
	}
	for _, u := range users {
		if u.ID == exceptID {
			continue
		}
		if ok, _ := auth.CheckPIN(u.PINHash, pin); ok {
			return true, nil
		}
	}
	return false, nil
}

func activeAdmins(tx *gorm.DB) (int64, error) {
	var n int64
	err := tx.Model(&models.User{}).Where("role = ? AND is_active = ?", models.RoleAdmin, true).Count(&n).Error
	return n, err
}

func revokeAll(tx *gorm.DB, userID uint) error {
	now := time.Now()
	return tx.Model(&models.AuthSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", &now).Error
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at desc, id desc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, notFoundOr(err))
	}
	return &u, nil
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPIN(in.PINCode)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	u := models.User{Name: in.Name, PINHash: hash, Role: in.Role, IsActive: true}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if taken, err := pinTaken(tx, in.PINCode, 0); err != nil {
			return err
		} else if taken {
			return apperr.Conflict(msgPINTaken)
		}
		if taken, err := nameTaken(tx, in.Name, 0); err != nil {
			return err
		} else if taken {
			return apperr.Conflict(msgNameTaken)
		}
		if err := tx.Create(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict(msgNameTaken)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.lg.Infow("user created", "id", u.ID, "name", u.Name, "role", u.Role)
	return &u, nil
}

// UpdateUser applies a partial update. Demoting or deactivating the last
// active admin is refused.
func (s *Service) UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		in.Name = &v
	}
	if in.Name == nil && in.PINCode == nil && in.Role == nil && in.IsActive == nil {
		return nil, apperr.Invalid("", "Необходимо передать хотя бы одно поле для обновления")
	}
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	var u models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, id).Error; err != nil {
			return notFoundOr(err)
		}
		wasAdmin := u.IsActive && u.Role == models.RoleAdmin
		oldRole := u.Role
		if in.Name != nil {
			if taken, err := nameTaken(tx, *in.Name, u.ID); err != nil {
				return err
			} else if taken {
				return apperr.Conflict(msgNameTaken)
			}
			u.Name = *in.Name
		}
		if in.PINCode != nil {
			if taken, err := pinTaken(tx, *in.PINCode, u.ID); err != nil {
				return err
			} else if taken {
				return apperr.Conflict(msgPINTaken)
			}
			hash, err := auth.HashPIN(*in.PINCode)
			if err != nil {
				return err
			}
			u.PINHash = hash
		}
		if in.Role != nil {
			u.Role = *in.Role
		}
		if in.IsActive != nil {
			u.IsActive = *in.IsActive
		}
		if wasAdmin && (u.Role != models.RoleAdmin || !u.IsActive) {
			n, err := activeAdmins(tx)
			if err != nil {
				return err
			}
			if n <= 1 {
				return apperr.Invalid("", msgLastAdmin)
			}
		}
		// Tokens carry the role, so a role change or deactivation ends
		// every open login.
		if !u.IsActive || u.Role != oldRole {
			if err := revokeAll(tx, u.ID); err != nil {
				return err
			}
		}
		return tx.Save(&u).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return &u, nil
}

// DeleteUser removes a user. Users who authored sessions are deactivated
// instead so the ledger keeps its author.
func (s *Service) DeleteUser(ctx context.Context, id uint) (*DeleteUserResult, error) {
	var res DeleteUserResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, id).Error; err != nil {
			return notFoundOr(err)
		}
		if u.IsActive && u.Role == models.RoleAdmin {
			n, err := activeAdmins(tx)
			if err != nil {
				return err
			}
			if n <= 1 {
				return apperr.Invalid("", msgLastAdmin)
			}
		}
		if err := revokeAll(tx, u.ID); err != nil {
			return err
		}
		var sessions int64
		if err := tx.Model(&models.Session{}).Where("user_id = ?", u.ID).Count(&sessions).Error; err != nil {
			return err
		}
		if sessions > 0 {
			res = DeleteUserResult{Success: true, Deactivated: true, Message: fmt.Sprintf("Пользователь \"%s\" отключён", u.Name)}
			return tx.Model(&u).Update("is_active", false).Error
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&models.AuthSession{}).Error; err != nil {
			return err
		}
		res = DeleteUserResult{Success: true, Message: fmt.Sprintf("Пользователь \"%s\" удалён", u.Name)}
		return tx.Delete(&u).Error
	})
	if err != nil {
		return nil, fmt.Errorf("delete user %d: %w", id, err)
	}
	s.lg.Infow("user removed", "id", id, "deactivated", res.Deactivated)
	return &res, nil
}
