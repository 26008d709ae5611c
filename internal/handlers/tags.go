package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devflowhq/devflow/backend/internal/models"
)

type TagHandler struct {
	db *gorm.DB
}

func NewTagHandler(db *gorm.DB) *TagHandler {
	return &TagHandler{db: db}
}

// GetTags returns all tags with their question counts
func (h *TagHandler) GetTags(c *gin.Context) {
	query := h.db.Model(&models.Tag{})

	if search := c.Query("search"); search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	switch c.Query("filter") {
	case "name":
		query = query.Order("name asc")
	case "old":
		query = query.Order("created_at asc")
	default: // recent
		query = query.Order("created_at desc")
	}

	var tags []models.Tag
	if err := query.Find(&tags).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	responses := make([]gin.H, 0, len(tags))
	for _, tag := range tags {
		var count int64
		h.db.Table("question_tags").Where("tag_id = ?", tag.ID).Count(&count)
		responses = append(responses, gin.H{
			"id":         tag.ID,
			"name":       tag.Name,
			"questions":  count,
			"created_at": tag.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"tags": responses})
}

// GetQuestionsByTag returns every question carrying the tag
func (h *TagHandler) GetQuestionsByTag(c *gin.Context) {
	tagID := c.Param("tagId")

	var tag models.Tag
	err := h.db.Preload("Questions").Preload("Questions.Author").Preload("Questions.Tags").
		First(&tag, tagID).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tag":       gin.H{"id": tag.ID, "name": tag.Name},
		"questions": tag.Questions,
	})
}
