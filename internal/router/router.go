// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-review-api/internal/config"
	"github.com/iliyamo/movie-review-api/internal/handler"
	"github.com/iliyamo/movie-review-api/internal/middleware"
)

// PostersRoute is the URL prefix uploaded posters are served under.
const PostersRoute = "/Pictures"

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Users   *handler.UserHandler
	Movies  *handler.MovieHandler
	Reviews *handler.ReviewHandler
	Admin   *handler.AdminHandler
	Health  *handler.HealthHandler
	Contact *handler.ContactHandler
}

// New builds the echo instance with every route mounted.  rdb may be nil, in
// which case rate limiting and caching are skipped.
func New(cfg config.Config, h Handlers, rdb *redis.Client, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log))

	cache := middleware.NewResponseCache(cfg.Cache, rdb, log)
	limit := middleware.NewTokenBucket(cfg.RateLimit, rdb, log)

	e.Static(PostersRoute, cfg.PostersDir)

	api := e.Group("/api")
	api.GET("/health", h.Health.Health)

	api.GET("/movies", h.Movies.List, cache.Middleware(middleware.NamespaceMovies))
	api.POST("/movies/import", h.Movies.Import, cache.Invalidate(middleware.NamespaceMovies))

	users := api.Group("/users")
	users.POST("/register", h.Users.Register)
	users.POST("/login", h.Users.Login, limit)

	api.GET("/reviews", h.Reviews.List, cache.Middleware(middleware.NamespaceReviews))
	api.POST("/reviews", h.Reviews.Create, cache.Invalidate(middleware.NamespaceReviews))

	api.POST("/contact", h.Contact.Submit)
	e.POST("/contact_action", h.Contact.Submit)

	api.POST("/admin/login", h.Admin.Login, limit)

	admin := api.Group("/admin", middleware.AdminGuard(cfg.AdminToken))
	admin.GET("/stats", h.Admin.Stats)
	admin.POST("/movies", h.Movies.Add, cache.Invalidate(middleware.NamespaceMovies))
	admin.POST("/movies/upload", h.Movies.Upload, cache.Invalidate(middleware.NamespaceMovies))
	admin.DELETE("/movies/:id", h.Movies.Delete, cache.Invalidate(middleware.NamespaceMovies))

	return e
}
