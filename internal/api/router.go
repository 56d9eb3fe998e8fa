package api

import (
	"net/http"
	"time"

	"github.com/dom/blog/internal/api/handlers"
	"github.com/dom/blog/internal/api/middleware"
	"github.com/dom/blog/internal/api/response"
	"github.com/dom/blog/internal/config"
	"github.com/dom/blog/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func NewRouter(services *service.Services, cfg *config.Config, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// JSON errors for unmatched routes, inherited by every sub-router
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, response.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, response.NewError(http.StatusMethodNotAllowed, "Method not allowed"))
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, cfg)
	articleHandler := handlers.NewArticleHandler(services.Articles)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/session", authHandler.Session)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(services.Auth))
				r.Post("/extend", authHandler.Extend)
				r.Post("/logout-all", authHandler.LogoutAll)
			})
		})

		// Public article routes; an admin session also reveals drafts
		r.Route("/articles", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(services.Auth))
			r.Get("/", articleHandler.List)
			r.Get("/{idOrSlug}", articleHandler.Get)
		})

		r.Route("/admin/articles", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(services.Auth))
			r.Get("/", articleHandler.List)
			r.Post("/", articleHandler.Create)
			r.Get("/{idOrSlug}", articleHandler.Get)
			r.Put("/{idOrSlug}", articleHandler.Update)
			r.Delete("/{idOrSlug}", articleHandler.Delete)
		})
	})

	return r
}
