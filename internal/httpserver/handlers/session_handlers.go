package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"hookahledger/internal/auth"
	"hookahledger/internal/services/apperr"
	"hookahledger/internal/services/stock"
)

// CreateSession records a bowl. Masters always record under their own
// account; admins may name any user.
func CreateSession(svc *stock.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in stock.CreateSessionInput
		if !decodeJSON(w, r, &in) {
			return
		}
		claims := auth.FromContext(r.Context())
		if in.UserID == 0 {
			in.UserID = claims.UserID
		}
		if in.UserID != claims.UserID && !claims.IsAdmin() {
			respondError(w, http.StatusForbidden, "Нельзя создавать забивки от имени другого пользователя")
			return
		}
		res, err := svc.CreateSession(r.Context(), in)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, res)
	}
}

func ListSessions(svc *stock.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			q   stock.SessionQuery
			err error
		)
		if q.Limit, err = queryInt(r, "limit", stock.DefaultPageSize); err != nil {
			writeError(w, lg, err)
			return
		}
		if q.Limit < 1 {
			writeError(w, lg, apperr.Invalid("limit", fmt.Sprintf("должно быть от 1 до %d", stock.MaxPageSize)))
			return
		}
		if q.Offset, err = queryInt(r, "offset", 0); err != nil {
			writeError(w, lg, err)
			return
		}
		userID, err := queryInt(r, "userId", 0)
		if err != nil || userID < 0 {
			respondError(w, http.StatusBadRequest, "userId: должно быть положительным числом")
			return
		}
		q.UserID = uint(userID)
		page, err := svc.ListSessions(r.Context(), q)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, page)
	}
}

func DeleteSession(svc *stock.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		res, err := svc.DeleteSession(r.Context(), auth.FromContext(r.Context()).UserID, id)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, res)
	}
}
