package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookahledger/internal/auth"
	"hookahledger/internal/database/dbtest"
	"hookahledger/internal/models"
)

const secret = "test-secret-0123456789"

func TestJWTAuthMiddleware(t *testing.T) {
	db := dbtest.New(t)
	iss := auth.NewIssuer(secret, time.Hour)
	u := models.User{ID: 3, Name: "Борис", Role: models.RoleMaster}
	tok, err := iss.Sign(u)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.AuthSession{JTI: tok.JWTID, UserID: u.ID, ExpiresAt: tok.ExpiresAt}).Error)

	var seen auth.Claims
	h := auth.JWTAuth(db, iss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusForbidden, do("Bearer garbage"))
	assert.Equal(t, http.StatusNoContent, do("Bearer "+tok.Raw))
	assert.Equal(t, uint(3), seen.UserID)

	now := time.Now()
	require.NoError(t, db.Model(&models.AuthSession{}).Where("jti = ?", tok.JWTID).Update("revoked_at", &now).Error)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+tok.Raw))

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "3",
		"role": "master",
		"jti":  tok.JWTID,
		"exp":  time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+expired))
}
