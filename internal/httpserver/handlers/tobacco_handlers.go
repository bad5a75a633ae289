package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"hookahledger/internal/auth"
	"hookahledger/internal/services/stock"
)

const defaultMovementsLimit = 50

func ListTobaccos(svc *stock.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListTobaccos(r.Context())
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, list)
	}
}

func GetTobacco(svc *stock.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		t, err := svc.GetTobacco(r.Context(), id)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, t)
	}
}

func CreateTobacco(svc *stock.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in stock.CreateTobaccoInput
		if !decodeJSON(w, r, &in) {
			return
		}
		t, err := svc.CreateTobacco(r.Context(), auth.FromContext(r.Context()).UserID, in)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, t)
	}
}

func UpdateTobacco(svc *stock.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var in stock.UpdateTobaccoInput
		if !decodeJSON(w, r, &in) {
			return
		}
		t, err := svc.UpdateTobacco(r.Context(), id, in)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, t)
	}
}

func RestockTobacco(svc *stock.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var in stock.RestockInput
		if !decodeJSON(w, r, &in) {
			return
		}
		res, err := svc.Restock(r.Context(), auth.FromContext(r.Context()).UserID, id, in)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, res)
	}
}

func CorrectInventory(svc *stock.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var in stock.CorrectionInput
		if !decodeJSON(w, r, &in) {
			return
		}
		res, err := svc.CorrectInventory(r.Context(), auth.FromContext(r.Context()).UserID, id, in)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, res)
	}
}

func TobaccoMovements(svc *stock.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		limit, err := queryInt(r, "limit", defaultMovementsLimit)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		list, err := svc.Movements(r.Context(), id, limit)
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, list)
	}
}
