package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/devflowhq/devflow/backend/internal/models"
)

// DeleteQuestion removes a question and unwinds every reputation effect its
// votes caused, including the votes on all of its answers. The reversal is
// recomputed from the raw vote rows at delete time; no running total is kept
// anywhere. Deleting an id that no longer exists is a no-op success, so the
// operation is safe to retry.
func (l *Ledger) DeleteQuestion(ctx context.Context, questionID int) error {
	var q models.Question
	err := l.db.WithContext(ctx).Select("id", "author_id").First(&q, questionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading question %d: %w", questionID, err)
	}

	if err := l.reverseVotes(ctx, KindQuestion, q.ID, q.AuthorID); err != nil {
		return err
	}

	var answers []models.Answer
	err = l.db.WithContext(ctx).Select("id", "author_id").
		Where("question_id = ?", q.ID).
		Find(&answers).Error
	if err != nil {
		return fmt.Errorf("loading answers of question %d: %w", q.ID, err)
	}
	for _, a := range answers {
		if err := l.reverseVotes(ctx, KindAnswer, a.ID, a.AuthorID); err != nil {
			return err
		}
		err = l.db.WithContext(ctx).Where("answer_id = ?", a.ID).Delete(&models.Interaction{}).Error
		if err != nil {
			return fmt.Errorf("deleting interactions of answer %d: %w", a.ID, err)
		}
	}
	if len(answers) > 0 {
		err = l.db.WithContext(ctx).Where("question_id = ?", q.ID).Delete(&models.Answer{}).Error
		if err != nil {
			return fmt.Errorf("deleting answers of question %d: %w", q.ID, err)
		}
	}

	// Detach from the tag index and from every user's saved set.
	if err := l.db.WithContext(ctx).Exec("DELETE FROM question_tags WHERE question_id = ?", q.ID).Error; err != nil {
		return fmt.Errorf("detaching tags of question %d: %w", q.ID, err)
	}
	if err := l.db.WithContext(ctx).Exec("DELETE FROM saved_questions WHERE question_id = ?", q.ID).Error; err != nil {
		return fmt.Errorf("removing saved references of question %d: %w", q.ID, err)
	}

	if err := l.db.WithContext(ctx).Where("question_id = ?", q.ID).Delete(&models.Interaction{}).Error; err != nil {
		return fmt.Errorf("deleting interactions of question %d: %w", q.ID, err)
	}

	if err := l.db.WithContext(ctx).Delete(&models.Question{}, q.ID).Error; err != nil {
		return fmt.Errorf("deleting question %d: %w", q.ID, err)
	}

	l.log.Info("question deleted", "question_id", q.ID, "answers", len(answers))
	return nil
}

// DeleteAnswer removes a single answer, reversing the reputation its votes
// granted. Absent ids are a no-op success.
func (l *Ledger) DeleteAnswer(ctx context.Context, answerID int) error {
	var a models.Answer
	err := l.db.WithContext(ctx).Select("id", "author_id").First(&a, answerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading answer %d: %w", answerID, err)
	}

	if err := l.reverseVotes(ctx, KindAnswer, a.ID, a.AuthorID); err != nil {
		return err
	}

	if err := l.db.WithContext(ctx).Where("answer_id = ?", a.ID).Delete(&models.Interaction{}).Error; err != nil {
		return fmt.Errorf("deleting interactions of answer %d: %w", a.ID, err)
	}

	if err := l.db.WithContext(ctx).Delete(&models.Answer{}, a.ID).Error; err != nil {
		return fmt.Errorf("deleting answer %d: %w", a.ID, err)
	}

	return nil
}

// reverseVotes undoes the reputation every standing vote on an item granted,
// one remove-edge per voter. Each row is dropped before its delta lands, so a
// retry only reverses rows that are still there; a failure between the two
// forfeits that one reversal rather than repeating it.
func (l *Ledger) reverseVotes(ctx context.Context, kind TargetKind, itemID, authorID int) error {
	var votes []models.Vote
	if err := l.db.WithContext(ctx).Where(voteScope(kind), itemID).Find(&votes).Error; err != nil {
		return fmt.Errorf("loading votes of %s %d: %w", kind, itemID, err)
	}

	for _, v := range votes {
		var t Transition
		switch v.VoteType {
		case 1:
			t.RemovedUpvote = true
		case -1:
			t.RemovedDownvote = true
		default:
			continue
		}
		if err := l.db.WithContext(ctx).Delete(&models.Vote{}, v.ID).Error; err != nil {
			return fmt.Errorf("deleting vote %d: %w", v.ID, err)
		}
		if err := l.applyDelta(ctx, t.Delta(), v.UserID, authorID); err != nil {
			l.log.Error("reputation reversal failed",
				"kind", kind.String(), "item_id", itemID, "voter_id", v.UserID, "error", err)
			return fmt.Errorf("reversing vote of user %d on %s %d: %w", v.UserID, kind, itemID, err)
		}
	}

	return nil
}
