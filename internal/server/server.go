package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/devflowhq/devflow/backend/internal/cache"
	"github.com/devflowhq/devflow/backend/internal/config"
	"github.com/devflowhq/devflow/backend/internal/database"
	"github.com/devflowhq/devflow/backend/internal/events"
	"github.com/devflowhq/devflow/backend/internal/handlers"
	"github.com/devflowhq/devflow/backend/internal/middleware"
)

type Server struct {
	cfg     *config.Config
	db      database.Service
	handler *handlers.Handler
}

// NewServer wires the storage, cache and broker adapters into the HTTP stack
func NewServer(cfg *config.Config) (*http.Server, func()) {
	if err := database.Ping(cfg); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}

	db := database.New(cfg)
	store := cache.New(cfg)
	publisher := events.New(cfg)

	handler := handlers.NewHandler(db, cfg, store, publisher)

	newServer := &Server{
		cfg:     cfg,
		db:      db,
		handler: handler,
	}

	router := newServer.RegisterRoutes()

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.App.Port,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	cleanup := func() {
		publisher.Close()
		if err := store.Close(); err != nil {
			log.Printf("Error closing redis: %v", err)
		}
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	log.Printf("🚀 Server starting on port %s\n", cfg.App.Port)

	return server, cleanup
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.db.Health())
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Question routes (public reads)
		api.GET("/questions", s.handler.Question.GetQuestions)
		api.GET("/question/:questionId", s.handler.Question.GetQuestion)
		api.GET("/hot-questions", s.handler.Question.GetHotQuestions)

		// Answer routes (public reads)
		api.GET("/answers/:questionId", s.handler.Answer.GetAnswers)

		// User and tag routes (public reads)
		api.GET("/users", s.handler.User.GetUsers)
		api.GET("/get-tags", s.handler.Tag.GetTags)
		api.GET("/question-by-tag/:tagId", s.handler.Tag.GetQuestionsByTag)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(s.cfg.JWT.Secret))
		{
			protected.GET("/me", s.handler.Auth.GetMe)

			// Question protected routes
			protected.POST("/create-question", s.handler.Question.CreateQuestion)
			protected.PUT("/edit-question/:questionId", s.handler.Question.EditQuestion)
			protected.DELETE("/question/:questionId", s.handler.Question.DeleteQuestion)
			protected.PUT("/upvote-question/:questionId", s.handler.Question.UpvoteQuestion)
			protected.PUT("/downvote-question/:questionId", s.handler.Question.DownvoteQuestion)

			// Answer protected routes
			protected.POST("/create-answer", s.handler.Answer.CreateAnswer)
			protected.DELETE("/answer/:answerId", s.handler.Answer.DeleteAnswer)
			protected.PUT("/upvote-answer/:answerId", s.handler.Answer.UpvoteAnswer)
			protected.PUT("/downvote-answer/:answerId", s.handler.Answer.DownvoteAnswer)

			// User protected routes
			protected.PUT("/update-user-profile", s.handler.User.UpdateProfile)
			protected.POST("/toggle-save-question/:questionId", s.handler.User.ToggleSaveQuestion)
			protected.GET("/saved-questions", s.handler.User.GetSavedQuestions)
			protected.GET("/user-questions", s.handler.User.GetUserQuestions)
			protected.GET("/user-answers", s.handler.User.GetUserAnswers)

			// Interaction protected routes
			protected.GET("/view-question/:questionId", s.handler.Interaction.ViewQuestion)
		}
	}

	return r
}
