package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devflowhq/devflow/backend/internal/events"
	"github.com/devflowhq/devflow/backend/internal/ledger"
	"github.com/devflowhq/devflow/backend/internal/models"
)

type AnswerHandler struct {
	db        *gorm.DB
	ledger    *ledger.Ledger
	publisher *events.Publisher
}

func NewAnswerHandler(db *gorm.DB, led *ledger.Ledger, publisher *events.Publisher) *AnswerHandler {
	return &AnswerHandler{db: db, ledger: led, publisher: publisher}
}

func (h *AnswerHandler) calculateVotes(answerID int) (int, int) {
	var upvotes, downvotes int64
	h.db.Model(&models.Vote{}).Where("answer_id = ? AND vote_type = ?", answerID, 1).Count(&upvotes)
	h.db.Model(&models.Vote{}).Where("answer_id = ? AND vote_type = ?", answerID, -1).Count(&downvotes)
	return int(upvotes), int(downvotes)
}

func (h *AnswerHandler) answerResponse(a models.Answer) gin.H {
	up, down := h.calculateVotes(a.ID)
	return gin.H{
		"id":          a.ID,
		"content":     a.Content,
		"question_id": a.QuestionID,
		"author_id":   a.AuthorID,
		"author":      a.Author,
		"upvotes":     up,
		"downvotes":   down,
		"created_at":  a.CreatedAt,
		"updated_at":  a.UpdatedAt,
	}
}

// CreateAnswer posts an answer to a question, awards the author and records
// the answer interaction (PROTECTED)
func (h *AnswerHandler) CreateAnswer(c *gin.Context) {
	var input struct {
		Content    string `json:"content" binding:"required"`
		QuestionID int    `json:"question_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content and question ID are required"})
		return
	}

	authorID, exists := extractUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	// Verify the question exists
	var question models.Question
	if err := h.db.First(&question, input.QuestionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	answer := models.Answer{
		Content:    input.Content,
		QuestionID: question.ID,
		AuthorID:   authorID,
	}

	if err := h.db.Create(&answer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create answer"})
		return
	}

	interaction := models.Interaction{
		UserID:     authorID,
		Action:     models.ActionAnswer,
		QuestionID: question.ID,
		AnswerID:   answer.ID,
	}
	h.db.Create(&interaction)
	h.publisher.PublishInteraction(c.Request.Context(), interaction)

	if err := h.ledger.AddReputation(c.Request.Context(), authorID, ledger.ReputationPostAnswer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update reputation"})
		return
	}

	h.db.Preload("Author").First(&answer, answer.ID)
	c.JSON(http.StatusCreated, h.answerResponse(answer))
}

// GetAnswers returns all answers for a question
func (h *AnswerHandler) GetAnswers(c *gin.Context) {
	questionID := c.Param("questionId")

	query := h.db.Where("question_id = ?", questionID).Preload("Author")

	switch c.Query("sort") {
	case "old":
		query = query.Order("created_at asc")
	default:
		query = query.Order("created_at desc")
	}

	var answers []models.Answer
	if err := query.Find(&answers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch answers"})
		return
	}

	responses := make([]gin.H, 0, len(answers))
	for _, a := range answers {
		responses = append(responses, h.answerResponse(a))
	}

	c.JSON(http.StatusOK, gin.H{"answers": responses})
}

// DeleteAnswer runs the deletion cascade for one answer (PROTECTED -
// requires ownership). An already-deleted id succeeds without side effects.
func (h *AnswerHandler) DeleteAnswer(c *gin.Context) {
	answerID, err := strconv.Atoi(c.Param("answerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid answer id"})
		return
	}

	userID, exists := extractUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var answer models.Answer
	if err := h.db.First(&answer, answerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "Answer deleted successfully"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load answer"})
		return
	}

	if answer.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own answers"})
		return
	}

	if err := h.ledger.DeleteAnswer(c.Request.Context(), answerID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete answer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Answer deleted successfully"})
}

// UpvoteAnswer applies or toggles an upvote (PROTECTED)
func (h *AnswerHandler) UpvoteAnswer(c *gin.Context) {
	h.vote(c, ledger.Upvote)
}

// DownvoteAnswer applies or toggles a downvote (PROTECTED)
func (h *AnswerHandler) DownvoteAnswer(c *gin.Context) {
	h.vote(c, ledger.Downvote)
}

func (h *AnswerHandler) vote(c *gin.Context, action ledger.Action) {
	answerID, err := strconv.Atoi(c.Param("answerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid answer id"})
		return
	}

	voterID, exists := extractUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	_, err = h.ledger.ApplyVote(c.Request.Context(), voterID, ledger.KindAnswer, answerID, action)
	if err != nil {
		if errors.Is(err, ledger.ErrItemNotFound) || errors.Is(err, ledger.ErrVoterNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Answer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
		return
	}

	var answer models.Answer
	if err := h.db.Preload("Author").First(&answer, answerID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load answer"})
		return
	}

	c.JSON(http.StatusOK, h.answerResponse(answer))
}
