package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/devflowhq/devflow/backend/internal/models"
)

// Authoring awards, applied once when content is created.
const (
	ReputationAskQuestion = 5
	ReputationPostAnswer  = 10
)

// AddReputation shifts a user's score by delta with a single SQL increment,
// so concurrent updates accumulate instead of overwriting each other.
func (l *Ledger) AddReputation(ctx context.Context, userID, delta int) error {
	if delta == 0 {
		return nil
	}
	return l.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("reputation", gorm.Expr("reputation + ?", delta)).Error
}

// applyDelta pushes the voter and author movements in fixed order. Both
// updates are attempted even when the first fails, and even when voter and
// author are the same user: the increments then compound on that one row.
func (l *Ledger) applyDelta(ctx context.Context, d Delta, voterID, authorID int) error {
	var errs []error
	if err := l.AddReputation(ctx, voterID, d.Voter); err != nil {
		errs = append(errs, fmt.Errorf("voter %d: %w", voterID, err))
	}
	if err := l.AddReputation(ctx, authorID, d.Author); err != nil {
		errs = append(errs, fmt.Errorf("author %d: %w", authorID, err))
	}
	return errors.Join(errs...)
}
