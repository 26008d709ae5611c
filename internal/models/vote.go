package models

import "time"

// Vote is one user's standing vote on a question or answer. Exactly one of
// QuestionID/AnswerID is set; the other stays NULL. VoteType is +1 (upvote)
// or -1 (downvote), so a single row per (user, item) keeps the upvoter and
// downvoter sets of an item disjoint.
type Vote struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	UserID     int       `gorm:"uniqueIndex:idx_votes_user_question;uniqueIndex:idx_votes_user_answer" json:"user_id"`
	QuestionID *int      `gorm:"uniqueIndex:idx_votes_user_question" json:"question_id,omitempty"`
	AnswerID   *int      `gorm:"uniqueIndex:idx_votes_user_answer" json:"answer_id,omitempty"`
	VoteType   int       `gorm:"not null" json:"vote_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
