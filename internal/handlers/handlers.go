package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/devflowhq/devflow/backend/internal/cache"
	"github.com/devflowhq/devflow/backend/internal/config"
	"github.com/devflowhq/devflow/backend/internal/database"
	"github.com/devflowhq/devflow/backend/internal/events"
	"github.com/devflowhq/devflow/backend/internal/ledger"
)

// Handler combines all handler types
type Handler struct {
	Auth        *AuthHandler
	Question    *QuestionHandler
	Answer      *AnswerHandler
	User        *UserHandler
	Tag         *TagHandler
	Interaction *InteractionHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(db database.Service, cfg *config.Config, store *cache.Cache, publisher *events.Publisher) *Handler {
	gormDB := db.GetDB()
	led := ledger.New(gormDB, slog.Default())

	return &Handler{
		Auth:        NewAuthHandler(gormDB, cfg.JWT.Secret),
		Question:    NewQuestionHandler(gormDB, led, store, publisher),
		Answer:      NewAnswerHandler(gormDB, led, publisher),
		User:        NewUserHandler(gormDB),
		Tag:         NewTagHandler(gormDB),
		Interaction: NewInteractionHandler(gormDB, store, publisher),
	}
}

func extractUserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
