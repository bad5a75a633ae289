package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrappedKinds(t *testing.T) {
	err := fmt.Errorf("restock: %w", NotFound("Табак не найден"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "Табак не найден", Message(err))

	err = fmt.Errorf("create user: %w", Conflict("duplicate"))
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestValidate(t *testing.T) {
	type req struct {
		Grams float64 `validate:"gt=0"`
		PIN   string  `validate:"required,len=4,number"`
	}
	require.NoError(t, Validate(req{Grams: 1, PIN: "1234"}))

	err := Validate(req{Grams: 0, PIN: "1234"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Grams", verr.Field)
	assert.Equal(t, "должно быть больше 0", verr.Msg)

	for _, pin := range []string{"12a4", "-123", "+123", "1.23"} {
		err = Validate(req{Grams: 2, PIN: pin})
		require.True(t, errors.As(err, &verr), pin)
		assert.Equal(t, "PIN", verr.Field)
		assert.Equal(t, "допустимы только цифры", verr.Msg)
	}
}

func TestInsufficientStockMessage(t *testing.T) {
	err := &InsufficientStockError{Items: []Shortage{{TobaccoID: 1, Name: "Darkside - Supernova", Requested: 30, Available: 12.5, Shortfall: 17.5}}}
	assert.Equal(t, "Недостаточно табака на складе (Darkside - Supernova: нужно 30г, в наличии 12.5г)", Message(fmt.Errorf("create session: %w", err)))
}
