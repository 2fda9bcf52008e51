package routes

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/saraspatika/absensi_backend/config"
	"github.com/saraspatika/absensi_backend/internal/handlers"
	absensiHandlers "github.com/saraspatika/absensi_backend/internal/handlers/absensi"
	adminHandlers "github.com/saraspatika/absensi_backend/internal/handlers/admin"
	authHandlers "github.com/saraspatika/absensi_backend/internal/handlers/auth"
	faceHandlers "github.com/saraspatika/absensi_backend/internal/handlers/face"
	"github.com/saraspatika/absensi_backend/internal/middleware"
	"github.com/saraspatika/absensi_backend/internal/pkg/response"
	"github.com/saraspatika/absensi_backend/internal/queue"
	"github.com/saraspatika/absensi_backend/internal/repositories"
	authService "github.com/saraspatika/absensi_backend/internal/services/auth"
	"github.com/saraspatika/absensi_backend/internal/services/face"
	"github.com/saraspatika/absensi_backend/internal/services/live"
	"github.com/saraspatika/absensi_backend/internal/services/rbac"
	"github.com/saraspatika/absensi_backend/internal/services/storage"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/redis/go-redis/v9"
)

// Setup wires repositories, services and handlers into the API router.
func Setup(cfg *config.Config, database *sql.DB, redisClient *redis.Client, store storage.ObjectStore, hub *live.Hub) *chi.Mux {
	jwtAuth := jwtauth.New("HS256", []byte(cfg.JwtSecret), nil)
	jwtService := authService.NewJWTService(cfg.JwtSecret, redisClient)

	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Unknown timezone %q, falling back to UTC", cfg.Timezone)
		tz = time.UTC
	}

	resolver := rbac.NewResolver(repositories.NewRBACRepository(database), cfg.PermCacheTTL)
	matcher := face.NewMatcher(face.NewHTTPDetector(cfg.FaceDetectorURL), store)
	tasks := queue.NewQueue(redisClient)

	absensiRepo := repositories.NewAbsensiRepository(database)
	lokasiRepo := repositories.NewLokasiRepository(database)
	faceRepo := repositories.NewFaceRepository(database)
	userRepo := repositories.NewUserRepository(database)

	metric := face.Metric(cfg.FaceMetric)
	authHandler := authHandlers.NewAuthHandler(database, jwtService)
	absensiHandler := absensiHandlers.NewHandler(matcher, tasks, lokasiRepo, absensiRepo, metric, cfg.FaceThreshold, tz)
	faceHandler := faceHandlers.NewHandler(matcher, store, tasks, faceRepo, userRepo, metric, cfg.FaceThreshold)

	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(jwtauth.Verifier(jwtAuth))
	router.Use(middleware.AddUserIDToContext())

	// Public routes
	router.Post("/api/auth/login", authHandler.LoginHandler)
	router.Post("/api/auth/refresh", authHandler.RefreshTokenHandler)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Group(func(r chi.Router) {
		r.Use(jwtauth.Authenticator(jwtAuth))

		r.Post("/api/logout", authHandler.LogoutHandler)

		r.With(middleware.RequirePermission(resolver, "absensi", "create")).
			Post("/api/absensi/check-in", absensiHandler.CheckInHandler)
		r.With(middleware.RequirePermission(resolver, "absensi", "update")).
			Post("/api/absensi/check-out", absensiHandler.CheckOutHandler)
		r.With(middleware.RequirePermission(resolver, "absensi", "read")).
			Get("/api/absensi/status", absensiHandler.StatusHandler)

		r.With(middleware.RequirePermission(resolver, "face", "create")).
			Post("/api/face/enroll", faceHandler.EnrollHandler)
		r.With(middleware.RequirePermission(resolver, "face", "read")).
			Post("/api/face/verify", faceHandler.VerifyHandler)
		r.With(middleware.RequirePermission(resolver, "face", "read")).
			Get("/api/face/status", faceHandler.StatusHandler)
		r.With(middleware.RequirePermission(resolver, "face", "delete")).
			Delete("/api/face", faceHandler.DeleteHandler)

		r.Get("/ws/live", handlers.LiveFeedHandler(hub))

		// Admin
		r.With(middleware.RequirePermission(resolver, "absensi", "export")).
			Get("/api/admin/absensi/export", adminHandlers.ExportAbsensiHandler(database))
		r.With(middleware.RequirePermission(resolver, "jadwal", "create")).
			Post("/api/admin/shifts/import", adminHandlers.ImportShiftsHandler(database))
		r.With(middleware.RequirePermission(resolver, "rbac", "manage")).
			Post("/api/admin/permissions/invalidate", adminHandlers.InvalidatePermissionsHandler(resolver))
	})

	return router
}
