package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hookahledger/internal/auth"
	"hookahledger/internal/httpserver/handlers"
	"hookahledger/internal/models"
	"hookahledger/internal/services/staff"
	"hookahledger/internal/services/stock"
)

type Options struct {
	CORSOrigins    []string
	LoginFailDelay time.Duration
}

func NewRouter(db *gorm.DB, iss *auth.Issuer, lg *zap.SugaredLogger, opts Options) http.Handler {
	inv := stock.NewService(db, lg)
	users := staff.NewService(db, iss, lg, opts.LoginFailDelay)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Route("/api", func(api chi.Router) {
		api.Get("/health", handlers.Health())
		api.Get("/health/db", handlers.HealthDB(db, lg))
		api.Post("/auth/login", handlers.Login(users, lg))

		api.Group(func(protected chi.Router) {
			protected.Use(auth.JWTAuth(db, iss))
			protected.Get("/auth/profile", handlers.Profile(users, lg))
			protected.Post("/auth/logout", handlers.Logout(users, lg))

			protected.Get("/tobaccos", handlers.ListTobaccos(inv, lg))
			protected.Get("/tobaccos/{id}", handlers.GetTobacco(inv, lg))
			protected.Get("/tobaccos/{id}/movements", handlers.TobaccoMovements(inv, lg))
			protected.Put("/tobaccos/{id}/restock", handlers.RestockTobacco(inv, lg))

			protected.Post("/sessions", handlers.CreateSession(inv, lg))
			protected.Get("/sessions", handlers.ListSessions(inv, lg))
			protected.Delete("/sessions/{id}", handlers.DeleteSession(inv, lg))

			protected.Get("/dashboard/summary", handlers.DashboardSummary(inv, lg))

			protected.Group(func(admin chi.Router) {
				admin.Use(auth.RequireRole(models.RoleAdmin))
				admin.Post("/tobaccos", handlers.CreateTobacco(inv, lg))
				admin.Put("/tobaccos/{id}", handlers.UpdateTobacco(inv, lg))
				admin.Patch("/tobaccos/{id}/inventory", handlers.CorrectInventory(inv, lg))

				admin.Get("/users", handlers.ListUsers(users, lg))
				admin.Post("/users", handlers.CreateUser(users, lg))
				admin.Get("/users/{id}", handlers.GetUser(users, lg))
				admin.Put("/users/{id}", handlers.UpdateUser(users, lg))
				admin.Delete("/users/{id}", handlers.DeleteUser(users, lg))
			})
		})
	})

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(r)
}
