package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devflowhq/devflow/backend/internal/cache"
	"github.com/devflowhq/devflow/backend/internal/events"
	"github.com/devflowhq/devflow/backend/internal/ledger"
	"github.com/devflowhq/devflow/backend/internal/models"
)

type QuestionHandler struct {
	db        *gorm.DB
	ledger    *ledger.Ledger
	cache     *cache.Cache
	publisher *events.Publisher
}

func NewQuestionHandler(db *gorm.DB, led *ledger.Ledger, store *cache.Cache, publisher *events.Publisher) *QuestionHandler {
	return &QuestionHandler{db: db, ledger: led, cache: store, publisher: publisher}
}

func (h *QuestionHandler) calculateVotes(questionID int) (int, int) {
	var upvotes, downvotes int64
	h.db.Model(&models.Vote{}).Where("question_id = ? AND vote_type = ?", questionID, 1).Count(&upvotes)
	h.db.Model(&models.Vote{}).Where("question_id = ? AND vote_type = ?", questionID, -1).Count(&downvotes)
	return int(upvotes), int(downvotes)
}

func (h *QuestionHandler) questionResponse(q models.Question) gin.H {
	up, down := h.calculateVotes(q.ID)
	var answers int64
	h.db.Model(&models.Answer{}).Where("question_id = ?", q.ID).Count(&answers)

	return gin.H{
		"id":         q.ID,
		"title":      q.Title,
		"content":    q.Content,
		"author_id":  q.AuthorID,
		"author":     q.Author,
		"tags":       q.Tags,
		"views":      q.Views,
		"upvotes":    up,
		"downvotes":  down,
		"answers":    answers,
		"created_at": q.CreatedAt,
		"updated_at": q.UpdatedAt,
	}
}

// GetQuestions returns a page of questions, optionally searched and filtered
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	query := h.db.Model(&models.Question{}).Preload("Author").Preload("Tags")

	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title ILIKE ? OR content ILIKE ?", pattern, pattern)
	}

	switch c.Query("filter") {
	case "frequent":
		query = query.Order("views desc")
	case "unanswered":
		query = query.Where("NOT EXISTS (SELECT 1 FROM answers WHERE answers.question_id = questions.id)").
			Order("created_at desc")
	default: // newest
		query = query.Order("created_at desc")
	}

	var total int64
	query.Count(&total)

	var questions []models.Question
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&questions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch questions"})
		return
	}

	responses := make([]gin.H, 0, len(questions))
	for _, q := range questions {
		responses = append(responses, h.questionResponse(q))
	}

	c.JSON(http.StatusOK, gin.H{
		"questions": responses,
		"is_next":   total > int64(page*pageSize),
	})
}

// GetQuestion returns a single question by ID
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	questionID := c.Param("questionId")
	var question models.Question

	if err := h.db.Preload("Author").Preload("Tags").First(&question, questionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	c.JSON(http.StatusOK, h.questionResponse(question))
}

// CreateQuestion creates a question, attaches its tags, awards the author
// and records the ask interaction (PROTECTED)
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var input struct {
		Title   string   `json:"title" binding:"required"`
		Content string   `json:"content" binding:"required"`
		Tags    []string `json:"tags"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and content are required"})
		return
	}

	authorID, exists := extractUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	question := models.Question{
		Title:    input.Title,
		Content:  input.Content,
		AuthorID: authorID,
	}

	if err := h.db.Create(&question).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create question"})
		return
	}

	// Create the tags or reuse them if they already exist
	for _, name := range input.Tags {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		var tag models.Tag
		if err := h.db.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
			continue
		}
		h.db.Model(&question).Association("Tags").Append(&tag)
	}

	interaction := models.Interaction{
		UserID:     authorID,
		Action:     models.ActionAskQuestion,
		QuestionID: question.ID,
	}
	h.db.Create(&interaction)
	h.publisher.PublishInteraction(c.Request.Context(), interaction)

	if err := h.ledger.AddReputation(c.Request.Context(), authorID, ledger.ReputationAskQuestion); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update reputation"})
		return
	}

	h.db.Preload("Author").Preload("Tags").First(&question, question.ID)
	c.JSON(http.StatusCreated, h.questionResponse(question))
}

// EditQuestion updates title/content (PROTECTED - requires ownership)
func (h *QuestionHandler) EditQuestion(c *gin.Context) {
	questionID := c.Param("questionId")

	userID, exists := extractUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var question models.Question
	if err := h.db.First(&question, questionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	if question.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own questions"})
		return
	}

	if input.Title != "" {
		question.Title = input.Title
	}
	if input.Content != "" {
		question.Content = input.Content
	}

	if err := h.db.Save(&question).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update question"})
		return
	}

	h.db.Preload("Author").Preload("Tags").First(&question, question.ID)
	c.JSON(http.StatusOK, h.questionResponse(question))
}

// DeleteQuestion runs the deletion cascade (PROTECTED - requires ownership).
// Deleting an id that is already gone succeeds without touching anything.
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
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
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load question"})
		return
	}

	if question.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own questions"})
		return
	}

	if err := h.ledger.DeleteQuestion(c.Request.Context(), questionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete question"})
		return
	}

	// Ranking cleanup is cosmetic, the record itself is gone.
	_ = h.cache.ForgetQuestion(questionID)

	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}

// UpvoteQuestion applies or toggles an upvote (PROTECTED)
func (h *QuestionHandler) UpvoteQuestion(c *gin.Context) {
	h.vote(c, ledger.Upvote)
}

// DownvoteQuestion applies or toggles a downvote (PROTECTED)
func (h *QuestionHandler) DownvoteQuestion(c *gin.Context) {
	h.vote(c, ledger.Downvote)
}

func (h *QuestionHandler) vote(c *gin.Context, action ledger.Action) {
	questionID, err := strconv.Atoi(c.Param("questionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question id"})
		return
	}

	voterID, exists := extractUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	_, err = h.ledger.ApplyVote(c.Request.Context(), voterID, ledger.KindQuestion, questionID, action)
	if err != nil {
		if errors.Is(err, ledger.ErrItemNotFound) || errors.Is(err, ledger.ErrVoterNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Question not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
		return
	}

	var question models.Question
	if err := h.db.Preload("Author").Preload("Tags").First(&question, questionID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load question"})
		return
	}

	c.JSON(http.StatusOK, h.questionResponse(question))
}

// GetHotQuestions returns the most viewed questions, ranked by Redis when
// available and by the persisted view counter otherwise
func (h *QuestionHandler) GetHotQuestions(c *gin.Context) {
	const limit = 5

	ids, err := h.cache.HotQuestions(limit)
	if err != nil || len(ids) == 0 {
		var questions []models.Question
		if err := h.db.Preload("Author").Order("views desc").Limit(limit).Find(&questions).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch hot questions"})
			return
		}
		responses := make([]gin.H, 0, len(questions))
		for _, q := range questions {
			responses = append(responses, h.questionResponse(q))
		}
		c.JSON(http.StatusOK, gin.H{"questions": responses})
		return
	}

	responses := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		var q models.Question
		if err := h.db.Preload("Author").First(&q, id).Error; err != nil {
			continue // deleted since it was ranked
		}
		responses = append(responses, h.questionResponse(q))
	}

	c.JSON(http.StatusOK, gin.H{"questions": responses})
}
