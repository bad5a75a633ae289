package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"hookahledger/internal/auth"
	"hookahledger/internal/services/staff"
)

// loginReq accepts both field names the web client has used for the PIN.
type loginReq struct {
	PIN     string `json:"pin"`
	PINCode string `json:"pinCode"`
}

func Login(svc *staff.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if !decodeJSON(w, r, &req) {
			return
		}
		pin := req.PIN
		if pin == "" {
			pin = req.PINCode
		}
		res, err := svc.Login(r.Context(), pin)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, res)
	}
}

func Profile(svc *staff.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.Profile(r.Context(), auth.FromContext(r.Context()).UserID)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"user": u})
	}
}

func Logout(svc *staff.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context(), auth.FromContext(r.Context()).JWTID); err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"success": true})
	}
}
