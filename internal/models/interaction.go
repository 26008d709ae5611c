package models

import "time"

// Interaction actions recorded for the recommendation pipeline.
const (
	ActionAskQuestion = "ask_question"
	ActionAnswer      = "answer"
	ActionView        = "view"
)

// Interaction is an append-only audit record of a user touching content.
// It is written here and consumed elsewhere; nothing in this service reads
// it back except the deletion cascade, which removes records for deleted
// content.
type Interaction struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	UserID     int       `gorm:"index" json:"user_id"`
	Action     string    `gorm:"not null" json:"action"`
	QuestionID int       `gorm:"index" json:"question_id"` // zero when not question-scoped
	AnswerID   int       `gorm:"index" json:"answer_id"`   // zero when not answer-scoped
	CreatedAt  time.Time `json:"created_at"`
}
