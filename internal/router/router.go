// Package router assembles services, handlers and middleware into the HTTP API.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yamdb/yamdb-api/internal/config"
	"github.com/yamdb/yamdb-api/internal/handler"
	"github.com/yamdb/yamdb-api/internal/middleware"
	"github.com/yamdb/yamdb-api/internal/permissions"
	"github.com/yamdb/yamdb-api/internal/repository"
	"github.com/yamdb/yamdb-api/internal/service"
	"gorm.io/gorm"
)

type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Catalog  *service.CatalogService
	Titles   *service.TitleService
	Reviews  *service.ReviewService
	Comments *service.CommentService
}

func NewServices(db *gorm.DB, sender service.CodeSender, cfg *config.Config) *Services {
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	genreRepo := repository.NewGenreRepository(db)
	titleRepo := repository.NewTitleRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	auth := service.NewAuthService(userRepo, sender, cfg.JWTSecret, cfg.JWTExpiry, cfg.ConfirmationCodeTTL)
	reviews := service.NewReviewService(reviewRepo, titleRepo)

	return &Services{
		Auth:     auth,
		Users:    service.NewUserService(userRepo, auth),
		Catalog:  service.NewCatalogService(categoryRepo, genreRepo),
		Titles:   service.NewTitleService(titleRepo, categoryRepo, genreRepo),
		Reviews:  reviews,
		Comments: service.NewCommentService(commentRepo, reviews),
	}
}

// New builds the gin engine serving /api/v1. authLimiter throttles the
// signup and token endpoints.
func New(cfg *config.Config, svc *Services, authLimiter middleware.Limiter) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.HSTSMiddleware(cfg.IsProduction()))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	authHandler := handler.NewAuthHandler(svc.Auth)
	userHandler := handler.NewUserHandler(svc.Users, cfg.PageSize)
	catalogHandler := handler.NewCatalogHandler(svc.Catalog, cfg.PageSize)
	titleHandler := handler.NewTitleHandler(svc.Titles, cfg.PageSize)
	reviewHandler := handler.NewReviewHandler(svc.Reviews, svc.Comments, cfg.PageSize)

	api := r.Group("/api/v1")
	api.GET("/health", middleware.RequirePolicy(permissions.ReadOnly), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.Use(middleware.Authenticate(cfg.JWTSecret, svc.Users))

	auth := api.Group("/auth", middleware.RateLimit(authLimiter, "auth"))
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/token", authHandler.Token)
	}

	me := api.Group("/users/me", middleware.RequirePolicy(permissions.Authenticated))
	{
		me.GET("", userHandler.Me)
		me.PATCH("", userHandler.UpdateMe)
	}

	users := api.Group("/users", middleware.RequirePolicy(permissions.AdminOnly))
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.GET("/:username", userHandler.Get)
		users.PATCH("/:username", userHandler.Update)
		users.DELETE("/:username", userHandler.Delete)
	}

	catalog := api.Group("", middleware.RequirePolicy(permissions.AdminOrReadOnly))
	{
		catalog.GET("/categories", catalogHandler.ListCategories)
		catalog.POST("/categories", catalogHandler.CreateCategory)
		catalog.DELETE("/categories/:slug", catalogHandler.DeleteCategory)

		catalog.GET("/genres", catalogHandler.ListGenres)
		catalog.POST("/genres", catalogHandler.CreateGenre)
		catalog.DELETE("/genres/:slug", catalogHandler.DeleteGenre)

		catalog.GET("/titles", titleHandler.List)
		catalog.POST("/titles", titleHandler.Create)
		catalog.GET("/titles/:title_id", titleHandler.Get)
		catalog.PATCH("/titles/:title_id", titleHandler.Update)
		catalog.DELETE("/titles/:title_id", titleHandler.Delete)
	}

	reviews := api.Group("/titles/:title_id/reviews", middleware.RequirePolicy(permissions.AuthenticatedWrite))
	{
		reviews.GET("", reviewHandler.ListReviews)
		reviews.POST("", reviewHandler.CreateReview)
		reviews.GET("/:review_id", reviewHandler.GetReview)
		reviews.PATCH("/:review_id", reviewHandler.UpdateReview)
		reviews.DELETE("/:review_id", reviewHandler.DeleteReview)

		reviews.GET("/:review_id/comments", reviewHandler.ListComments)
		reviews.POST("/:review_id/comments", reviewHandler.CreateComment)
		reviews.GET("/:review_id/comments/:comment_id", reviewHandler.GetComment)
		reviews.PATCH("/:review_id/comments/:comment_id", reviewHandler.UpdateComment)
		reviews.DELETE("/:review_id/comments/:comment_id", reviewHandler.DeleteComment)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
