package staff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookahledger/internal/auth"
	"hookahledger/internal/models"
	"hookahledger/internal/services/apperr"
)

func ptr[T any](v T) *T { return &v }

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "  Мастер  ", "5555", models.RoleMaster)

	assert.Equal(t, "Мастер", u.Name)
	assert.True(t, u.IsActive)
	assert.True(t, auth.IsHashed(u.PINHash))
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name  string
		in    CreateUserInput
		field string
	}{
		{"short name", CreateUserInput{Name: "A", PINCode: "1234", Role: models.RoleMaster}, "name"},
		{"pin letters", CreateUserInput{Name: "Мастер", PINCode: "12ab", Role: models.RoleMaster}, "pinCode"},
		{"pin length", CreateUserInput{Name: "Мастер", PINCode: "12345", Role: models.RoleMaster}, "pinCode"},
		{"pin minus sign", CreateUserInput{Name: "Мастер", PINCode: "-123", Role: models.RoleMaster}, "pinCode"},
		{"pin plus sign", CreateUserInput{Name: "Мастер", PINCode: "+123", Role: models.RoleMaster}, "pinCode"},
		{"pin decimal point", CreateUserInput{Name: "Мастер", PINCode: "1.23", Role: models.RoleMaster}, "pinCode"},
		{"role", CreateUserInput{Name: "Мастер", PINCode: "1234", Role: "owner"}, "role"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateUser(f.ctx, tc.in)
			var ve *apperr.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestCreateUserConflicts(t *testing.T) {
	f := newFixture(t)
	f.user(t, "Мастер", "5555", models.RoleMaster)

	_, err := f.svc.CreateUser(f.ctx, CreateUserInput{Name: "Другой", PINCode: "5555", Role: models.RoleMaster})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = f.svc.CreateUser(f.ctx, CreateUserInput{Name: "мастер", PINCode: "6666", Role: models.RoleMaster})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	f.user(t, "Админ", "1234", models.RoleAdmin)
	m := f.user(t, "Мастер", "5555", models.RoleMaster)

	got, err := f.svc.UpdateUser(f.ctx, m.ID, UpdateUserInput{Name: ptr("Мастер Вика"), PINCode: ptr("7777")})
	require.NoError(t, err)
	assert.Equal(t, "Мастер Вика", got.Name)

	_, err = f.svc.Login(f.ctx, "7777")
	require.NoError(t, err)

	_, err = f.svc.UpdateUser(f.ctx, m.ID, UpdateUserInput{PINCode: ptr("1234")})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = f.svc.UpdateUser(f.ctx, m.ID, UpdateUserInput{})
	var ve *apperr.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = f.svc.UpdateUser(f.ctx, 999, UpdateUserInput{Name: ptr("Кто-то")})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestLastAdminIsProtected(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "Админ", "1234", models.RoleAdmin)

	var ve *apperr.ValidationError
	_, err := f.svc.UpdateUser(f.ctx, admin.ID, UpdateUserInput{Role: ptr(models.RoleMaster)})
	assert.True(t, errors.As(err, &ve))
	_, err = f.svc.UpdateUser(f.ctx, admin.ID, UpdateUserInput{IsActive: ptr(false)})
	assert.True(t, errors.As(err, &ve))
	_, err = f.svc.DeleteUser(f.ctx, admin.ID)
	assert.True(t, errors.As(err, &ve))

	second := f.user(t, "Второй", "4321", models.RoleAdmin)
	got, err := f.svc.UpdateUser(f.ctx, admin.ID, UpdateUserInput{Role: ptr(models.RoleMaster)})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMaster, got.Role)

	_, err = f.svc.DeleteUser(f.ctx, second.ID)
	assert.True(t, errors.As(err, &ve))
}

func TestDeleteUserHardDelete(t *testing.T) {
	f := newFixture(t)
	f.user(t, "Админ", "1234", models.RoleAdmin)
	m := f.user(t, "Мастер", "5555", models.RoleMaster)

	res, err := f.svc.DeleteUser(f.ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, res.Deactivated)

	_, err = f.svc.GetUser(f.ctx, m.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestDeleteUserWithSessionsDeactivates(t *testing.T) {
	f := newFixture(t)
	f.user(t, "Админ", "1234", models.RoleAdmin)
	m := f.user(t, "Мастер", "5555", models.RoleMaster)
	login, err := f.svc.Login(f.ctx, "5555")
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.Session{UserID: m.ID}).Error)

	res, err := f.svc.DeleteUser(f.ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, res.Deactivated)

	got, err := f.svc.GetUser(f.ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	claims, err := f.iss.Verify(login.Token)
	require.NoError(t, err)
	var sess models.AuthSession
	require.NoError(t, f.db.First(&sess, "jti = ?", claims.JWTID).Error)
	assert.NotNil(t, sess.RevokedAt)
}

func TestListUsersHidesPIN(t *testing.T) {
	f := newFixture(t)
	f.user(t, "Админ", "1234", models.RoleAdmin)
	f.user(t, "Мастер", "5555", models.RoleMaster)

	users, err := f.svc.ListUsers(f.ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestRoleChangeRevokesTokens(t *testing.T) {
	f := newFixture(t)
	f.user(t, "Админ", "1234", models.RoleAdmin)
	second := f.user(t, "Второй", "4321", models.RoleAdmin)
	login, err := f.svc.Login(f.ctx, "4321")
	require.NoError(t, err)
	claims, err := f.iss.Verify(login.Token)
	require.NoError(t, err)

	_, err = f.svc.UpdateUser(f.ctx, second.ID, UpdateUserInput{Name: ptr("Второй Админ")})
	require.NoError(t, err)
	var sess models.AuthSession
	require.NoError(t, f.db.First(&sess, "jti = ?", claims.JWTID).Error)
	assert.Nil(t, sess.RevokedAt)

	_, err = f.svc.UpdateUser(f.ctx, second.ID, UpdateUserInput{Role: ptr(models.RoleMaster)})
	require.NoError(t, err)
	require.NoError(t, f.db.First(&sess, "jti = ?", claims.JWTID).Error)
	assert.NotNil(t, sess.RevokedAt)
}
