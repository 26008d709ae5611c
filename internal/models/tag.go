package models

import "time"

type Tag struct {
	ID        int        `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"unique;not null" json:"name"`
	Questions []Question `gorm:"many2many:question_tags" json:"questions,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
