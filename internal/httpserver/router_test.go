package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hookahledger/internal/auth"
	"hookahledger/internal/database/dbtest"
	"hookahledger/internal/httpserver"
	"hookahledger/internal/models"
)

type apiFixture struct {
	t   *testing.T
	db  *gorm.DB
	srv http.Handler
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	db := dbtest.New(t)
	iss := auth.NewIssuer("router-test-secret-0123", time.Hour)
	srv := httpserver.NewRouter(db, iss, zap.NewNop().Sugar(), httpserver.Options{})
	f := &apiFixture{t: t, db: db, srv: srv}
	f.user("Админ", "1234", models.RoleAdmin)
	f.user("Мастер", "5555", models.RoleMaster)
	return f
}

func (f *apiFixture) user(name, pin string, role models.Role) models.User {
	f.t.Helper()
	hash, err := auth.HashPIN(pin)
	require.NoError(f.t, err)
	u := models.User{Name: name, PINHash: hash, Role: role, IsActive: true}
	require.NoError(f.t, f.db.Create(&u).Error)
	return u
}

func (f *apiFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) login(pin string) string {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"pin": pin})
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestHealth(t *testing.T) {
	f := newAPI(t)
	rec := f.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = f.do(http.MethodGet, "/api/health/db", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", decode(t, rec)["database"])
}

func TestLoginEndpoint(t *testing.T) {
	f := newAPI(t)

	rec := f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"pinCode": "5555"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	user := body["user"].(map[string]any)
	assert.Equal(t, "Мастер", user["name"])
	assert.Equal(t, "master", user["role"])
	assert.NotContains(t, user, "pin_hash")

	rec = f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Неверный ПИН-код", decode(t, rec)["error"])
}

func TestAuthGuards(t *testing.T) {
	f := newAPI(t)

	rec := f.do(http.MethodGet, "/api/tobaccos", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/tobaccos", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	master := f.login("5555")
	rec = f.do(http.MethodGet, "/api/users", master, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(http.MethodPost, "/api/tobaccos", master, map[string]any{"brand": "X", "name": "Y"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/auth/profile", master, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Мастер", decode(t, rec)["user"].(map[string]any)["name"])

	rec = f.do(http.MethodPost, "/api/auth/logout", master, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodGet, "/api/auth/profile", master, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStockFlow(t *testing.T) {
	f := newAPI(t)
	admin := f.login("1234")
	master := f.login("5555")

	rec := f.do(http.MethodPost, "/api/tobaccos", admin, map[string]any{
		"brand": "Darkside", "line": "Core", "name": "Bananapapa",
		"currentWeight": 100, "pricePerGram": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int(decode(t, rec)["id"].(float64))

	rec = f.do(http.MethodPost, "/api/tobaccos", admin, map[string]any{"brand": "darkside", "line": "Core", "name": "bananapapa"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPut, "/api/tobaccos/"+itoa(id)+"/restock", master, map[string]any{"gramsAdded": 50, "totalCost": 120})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	calc := decode(t, rec)["calculation"].(map[string]any)
	assert.Equal(t, 150.0, calc["newWeight"])
	assert.Equal(t, 2.1333, calc["newPricePerGram"])

	rec = f.do(http.MethodPost, "/api/sessions", master, map[string]any{
		"tableNumber": "5",
		"mix":         []map[string]any{{"id": id, "grams": 200}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["items"], 1)

	rec = f.do(http.MethodPost, "/api/sessions", master, map[string]any{
		"tableNumber": "5",
		"mix":         []map[string]any{{"id": id, "grams": 30}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sess := decode(t, rec)["session"].(map[string]any)
	sessionID := int(sess["id"].(float64))

	var tb models.Tobacco
	require.NoError(t, f.db.First(&tb, id).Error)
	assert.Equal(t, 120.0, tb.CurrentWeight)

	rec = f.do(http.MethodGet, "/api/sessions?limit=10", master, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	assert.Len(t, page["sessions"], 1)
	assert.Equal(t, 1.0, page["pagination"].(map[string]any)["total"])

	rec = f.do(http.MethodGet, "/api/sessions?limit=500", master, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(http.MethodGet, "/api/sessions?limit=0", master, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/dashboard/summary", master, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["totalPositions"])

	rec = f.do(http.MethodDelete, "/api/sessions/"+itoa(sessionID), master, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, f.db.First(&tb, id).Error)
	assert.Equal(t, 150.0, tb.CurrentWeight)
	assert.True(t, decimal.RequireFromString("2.1333").Equal(tb.PricePerGram))

	rec = f.do(http.MethodDelete, "/api/sessions/"+itoa(sessionID), master, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPatch, "/api/tobaccos/"+itoa(id)+"/inventory", admin, map[string]any{"newWeight": 140, "reason": "взвешивание"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/tobaccos/"+itoa(id)+"/movements", master, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var moves []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &moves))
	assert.Len(t, moves, 5)
}

func TestMasterCannotRecordForOthers(t *testing.T) {
	f := newAPI(t)
	other := f.user("Второй", "7777", models.RoleMaster)
	master := f.login("5555")

	rec := f.do(http.MethodPost, "/api/sessions", master, map[string]any{
		"userId": other.ID,
		"mix":    []map[string]any{{"id": 1, "grams": 5}},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUsersEndpoints(t *testing.T) {
	f := newAPI(t)
	admin := f.login("1234")

	rec := f.do(http.MethodPost, "/api/users", admin, map[string]any{"name": "Новый", "pinCode": "8888", "role": "master"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int(decode(t, rec)["id"].(float64))

	rec = f.do(http.MethodPost, "/api/users", admin, map[string]any{"name": "Дубль", "pinCode": "8888", "role": "master"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPost, "/api/users", admin, map[string]any{"name": "Плохой", "pinCode": "88", "role": "master"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/users/"+itoa(id), admin, map[string]any{"role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", decode(t, rec)["role"])

	rec = f.do(http.MethodGet, "/api/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 3)

	rec = f.do(http.MethodDelete, "/api/users/"+itoa(id), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["deactivated"])

	rec = f.do(http.MethodGet, "/api/users/"+itoa(id), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/users/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsExposed(t *testing.T) {
	f := newAPI(t)
	rec := f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func itoa(n int) string { return strconv.Itoa(n) }

func TestDemotedAdminLosesAccess(t *testing.T) {
	f := newAPI(t)
	second := f.user("Второй", "4321", models.RoleAdmin)
	admin := f.login("1234")
	demoted := f.login("4321")

	rec := f.do(http.MethodPut, "/api/users/"+itoa(int(second.ID)), admin, map[string]any{"role": "master"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/users", demoted, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(http.MethodPost, "/api/users", demoted, map[string]any{"name": "Захват", "pinCode": "9090", "role": "admin"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	again := f.login("4321")
	rec = f.do(http.MethodGet, "/api/users", again, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
