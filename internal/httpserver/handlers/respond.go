package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hookahledger/internal/services/apperr"
)

const msgInternal = "Внутренняя ошибка сервера"

func respondJSON(w http.ResponseWriter, v interface{}) {
	respondStatus(w, http.StatusOK, v)
}

func respondStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondStatus(w, status, map[string]string{"error": msg})
}

// writeError maps the apperr taxonomy onto status codes. Anything it does
// not recognise is logged and answered with a generic 500.
func writeError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	var (
		short *apperr.InsufficientStockError
		inval *apperr.ValidationError
	)
	switch {
	case errors.As(err, &short):
		respondStatus(w, http.StatusBadRequest, map[string]any{"error": short.Error(), "items": short.Items})
	case errors.As(err, &inval):
		respondError(w, http.StatusBadRequest, inval.Error())
	case errors.Is(err, apperr.ErrNotFound):
		respondError(w, http.StatusNotFound, apperr.Message(err))
	case errors.Is(err, apperr.ErrConflict):
		respondError(w, http.StatusConflict, apperr.Message(err))
	case errors.Is(err, gorm.ErrDuplicatedKey):
		respondError(w, http.StatusConflict, "Запись уже существует")
	case errors.Is(err, apperr.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, apperr.Message(err))
	default:
		lg.Errorw("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, msgInternal)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Некорректный JSON в теле запроса")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id == 0 {
		respondError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return 0, false
	}
	return uint(id), true
}

// queryInt reads an optional integer query parameter; def is returned when
// the parameter is absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid(key, "должно быть целым числом")
	}
	return v, nil
}
