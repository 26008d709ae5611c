package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devflowhq/devflow/backend/internal/cache"
	"github.com/devflowhq/devflow/backend/internal/events"
	"github.com/devflowhq/devflow/backend/internal/models"
)

type InteractionHandler struct {
	db        *gorm.DB
	cache     *cache.Cache
	publisher *events.Publisher
}

func NewInteractionHandler(db *gorm.DB, store *cache.Cache, publisher *events.Publisher) *InteractionHandler {
	return &InteractionHandler{db: db, cache: store, publisher: publisher}
}

// ViewQuestion records one view of a question per user (PROTECTED). Repeat
// views by the same user bump nothing; the dedupe set lives in Redis.
func (h *InteractionHandler) ViewQuestion(c *gin.Context) {
	questionID, err := strconv.Atoi(c.Param("questionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question id"})
		return
	}

	userID, exists := extractUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var question models.Question
	if err := h.db.First(&question, questionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	firstView, views, err := h.cache.RecordView(questionID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record view"})
		return
	}
	if !firstView {
		c.JSON(http.StatusOK, gin.H{"message": "Already viewed", "views": views})
		return
	}

	err = h.db.Model(&models.Question{}).Where("id = ?", questionID).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record view"})
		return
	}

	interaction := models.Interaction{
		UserID:     userID,
		Action:     models.ActionView,
		QuestionID: questionID,
	}
	h.db.Create(&interaction)
	h.publisher.PublishInteraction(c.Request.Context(), interaction)

	c.JSON(http.StatusOK, gin.H{"message": "Question viewed successfully", "views": question.Views + 1})
}
