package auth

import (
	"context"

	"hookahledger/internal/models"
)

type ctxKey string

const (
	userKey ctxKey = "userClaims"
)

type Claims struct {
	UserID uint
	Name   string
	Role   models.Role
	JWTID  string
}

func (c Claims) HasRole(roles ...models.Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

func (c Claims) IsAdmin() bool { return c.Role == models.RoleAdmin }

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, userKey, c)
}

func FromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(userKey).(Claims); ok {
		return v
	}
	return Claims{}
}
