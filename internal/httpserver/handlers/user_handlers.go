package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"hookahledger/internal/services/staff"
)

func ListUsers(svc *staff.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.ListUsers(r.Context())
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, users)
	}
}

func GetUser(svc *staff.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		u, err := svc.GetUser(r.Context(), id)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, u)
	}
}

func CreateUser(svc *staff.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in staff.CreateUserInput
		if !decodeJSON(w, r, &in) {
			return
		}
		u, err := svc.CreateUser(r.Context(), in)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, u)
	}
}

func UpdateUser(svc *staff.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var in staff.UpdateUserInput
		if !decodeJSON(w, r, &in) {
			return
		}
		u, err := svc.UpdateUser(r.Context(), id, in)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, u)
	}
}

func DeleteUser(svc *staff.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		res, err := svc.DeleteUser(r.Context(), id)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, res)
	}
}
