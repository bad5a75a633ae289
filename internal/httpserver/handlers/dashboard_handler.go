package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"hookahledger/internal/services/stock"
)

func DashboardSummary(svc *stock.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := svc.Summary(r.Context())
		if err != nil {
			writeError(w, lg, err)
			return
		}
		respondJSON(w, sum)
	}
}
