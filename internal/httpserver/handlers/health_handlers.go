package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]string{"status": "ok"})
	}
}

// HealthDB pings the pool with the request context.
func HealthDB(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			lg.Errorw("database ping failed", "error", err)
			respondStatus(w, http.StatusInternalServerError, map[string]string{"status": "error", "database": "disconnected"})
			return
		}
		respondJSON(w, map[string]any{"status": "ok", "database": "connected", "timestamp": time.Now()})
	}
}
