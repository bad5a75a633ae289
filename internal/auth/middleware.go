package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"hookahledger/internal/models"
)

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// JWTAuth accepts a bearer token only while its AuthSession is live. An
// expired token is 401, a malformed or forged one is 403.
func JWTAuth(db *gorm.DB, iss *Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				deny(w, http.StatusUnauthorized, "Требуется авторизация")
				return
			}
			claims, err := iss.Verify(strings.TrimPrefix(h, "Bearer "))
			if errors.Is(err, ErrTokenExpired) {
				deny(w, http.StatusUnauthorized, "Срок действия токена истёк")
				return
			}
			if err != nil {
				deny(w, http.StatusForbidden, "Недействительный токен")
				return
			}
			var sess models.AuthSession
			if err := db.WithContext(r.Context()).First(&sess, "jti = ?", claims.JWTID).Error; err != nil {
				deny(w, http.StatusUnauthorized, "Сессия не найдена")
				return
			}
			if sess.RevokedAt != nil || time.Now().After(sess.ExpiresAt) {
				deny(w, http.StatusUnauthorized, "Сессия завершена")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !FromContext(r.Context()).HasRole(roles...) {
				deny(w, http.StatusForbidden, "Недостаточно прав")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
