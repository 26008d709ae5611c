package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devflowhq/devflow/backend/internal/models"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// GetUsers returns all users, optionally filtered and searched
func (h *UserHandler) GetUsers(c *gin.Context) {
	query := h.db.Model(&models.User{})

	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR username ILIKE ?", pattern, pattern)
	}

	switch c.Query("filter") {
	case "top_contributors":
		query = query.Order("reputation desc")
	case "old_users":
		query = query.Order("created_at asc")
	default: // new_users
		query = query.Order("created_at desc")
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateProfile updates the authenticated user's profile fields
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, exists := extractUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Name             string `json:"name"`
		Username         string `json:"username"`
		Bio              string `json:"bio"`
		Avatar           string `json:"avatar"`
		Location         string `json:"location"`
		PortfolioWebsite string `json:"portfolio_website"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Username != "" {
		user.Username = input.Username
	}
	if input.Bio != "" {
		user.Bio = input.Bio
	}
	if input.Avatar != "" {
		user.Avatar = input.Avatar
	}
	if input.Location != "" {
		user.Location = input.Location
	}
	if input.PortfolioWebsite != "" {
		user.PortfolioWebsite = input.PortfolioWebsite
	}

	if err := h.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ToggleSaveQuestion adds or removes a question from the caller's saved set
func (h *UserHandler) ToggleSaveQuestion(c *gin.Context) {
	userID, exists := extractUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	questionID, err := strconv.Atoi(c.Param("questionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question id"})
		return
	}

	var question models.Question
	if err := h.db.First(&question, questionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var saved int64
	h.db.Table("saved_questions").
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Count(&saved)

	if saved > 0 {
		err = h.db.Model(&user).Association("Saved").Delete(&question)
	} else {
		err = h.db.Model(&user).Association("Saved").Append(&question)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle save"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Toggle successful", "saved": saved == 0})
}

// GetSavedQuestions returns the caller's bookmarked questions
func (h *UserHandler) GetSavedQuestions(c *gin.Context) {
	userID, exists := extractUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	err := h.db.Preload("Saved").Preload("Saved.Author").Preload("Saved.Tags").
		First(&user, userID).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": user.Saved})
}

// GetUserQuestions returns the questions a user authored
func (h *UserHandler) GetUserQuestions(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		if id, ok := extractUserID(c); ok {
			userID = strconv.Itoa(id)
		}
	}

	var questions []models.Question
	err := h.db.Where("author_id = ?", userID).
		Preload("Author").Preload("Tags").
		Order("created_at desc").
		Find(&questions).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user questions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions, "total": len(questions)})
}

// GetUserAnswers returns the answers a user authored
func (h *UserHandler) GetUserAnswers(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		if id, ok := extractUserID(c); ok {
			userID = strconv.Itoa(id)
		}
	}

	var answers []models.Answer
	err := h.db.Where("author_id = ?", userID).
		Preload("Author").
		Order("created_at desc").
		Find(&answers).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user answers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answers": answers, "total": len(answers)})
}
