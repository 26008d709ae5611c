package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/devflowhq/devflow/backend/internal/models"
)

var (
	ErrVoterNotFound = errors.New("voter not found")
	ErrItemNotFound  = errors.New("content item not found")
)

// Ledger owns every mutation of vote state and reputation. Callers pass the
// authenticated voter id explicitly; the ledger never reads ambient request
// state.
//
// The item write and the two reputation writes are three independent
// statements with no cross-table transaction: they run in a fixed order
// (item, voter, author) and a failure after the item write is logged and
// surfaced, never rolled back.
type Ledger struct {
	db  *gorm.DB
	log *slog.Logger
}

func New(db *gorm.DB, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{db: db, log: log}
}

// ApplyVote moves voterID's vote on the given item per the requested action
// and propagates the reputation deltas to voter and author. It returns the
// transition that fired so callers can report what changed.
func (l *Ledger) ApplyVote(ctx context.Context, voterID int, kind TargetKind, itemID int, action Action) (Transition, error) {
	if err := l.db.WithContext(ctx).Select("id").First(&models.User{}, voterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Transition{}, ErrVoterNotFound
		}
		return Transition{}, fmt.Errorf("loading voter: %w", err)
	}

	authorID, err := l.itemAuthor(ctx, kind, itemID)
	if err != nil {
		return Transition{}, err
	}

	var votes []models.Vote
	err = l.db.WithContext(ctx).
		Where(voteScope(kind), itemID).
		Where("user_id = ?", voterID).
		Find(&votes).Error
	if err != nil {
		return Transition{}, fmt.Errorf("loading vote state: %w", err)
	}

	var wasUp, wasDown bool
	switch len(votes) {
	case 0:
	case 1:
		wasUp = votes[0].VoteType == 1
		wasDown = votes[0].VoteType == -1
	default:
		// A voter must never hold more than one standing vote on an item.
		// Repair by clearing everything and treating the voter as fresh.
		l.log.Warn("vote invariant violated, clearing duplicate rows",
			"voter_id", voterID, "kind", kind.String(), "item_id", itemID, "rows", len(votes))
		err = l.db.WithContext(ctx).
			Where(voteScope(kind), itemID).
			Where("user_id = ?", voterID).
			Delete(&models.Vote{}).Error
		if err != nil {
			return Transition{}, fmt.Errorf("repairing vote state: %w", err)
		}
		votes = nil
	}

	t := Resolve(wasUp, wasDown, action)

	if err := l.writeVote(ctx, votes, t, voterID, kind, itemID); err != nil {
		return Transition{}, fmt.Errorf("writing vote: %w", err)
	}

	if err := l.applyDelta(ctx, t.Delta(), voterID, authorID); err != nil {
		// The vote row is already written. Report, don't compensate.
		l.log.Error("reputation update failed after vote write",
			"voter_id", voterID, "author_id", authorID,
			"kind", kind.String(), "item_id", itemID, "action", action.String(), "error", err)
		return t, fmt.Errorf("updating reputation: %w", err)
	}

	return t, nil
}

// writeVote turns the transition into a single row mutation: retraction
// deletes the row, a flip rewrites it, a fresh vote inserts one.
func (l *Ledger) writeVote(ctx context.Context, existing []models.Vote, t Transition, voterID int, kind TargetKind, itemID int) error {
	switch {
	case !t.AddedUpvote && !t.AddedDownvote:
		if len(existing) == 0 {
			return nil
		}
		return l.db.WithContext(ctx).Delete(&models.Vote{}, existing[0].ID).Error

	case len(existing) == 1:
		value := 1
		if t.AddedDownvote {
			value = -1
		}
		return l.db.WithContext(ctx).Model(&models.Vote{}).
			Where("id = ?", existing[0].ID).
			Update("vote_type", value).Error

	default:
		vote := models.Vote{UserID: voterID, VoteType: 1}
		if t.AddedDownvote {
			vote.VoteType = -1
		}
		id := itemID
		switch kind {
		case KindQuestion:
			vote.QuestionID = &id
		case KindAnswer:
			vote.AnswerID = &id
		}
		return l.db.WithContext(ctx).Create(&vote).Error
	}
}

func (l *Ledger) itemAuthor(ctx context.Context, kind TargetKind, itemID int) (int, error) {
	var authorID int
	var err error
	switch kind {
	case KindQuestion:
		var q models.Question
		err = l.db.WithContext(ctx).Select("id", "author_id").First(&q, itemID).Error
		authorID = q.AuthorID
	case KindAnswer:
		var a models.Answer
		err = l.db.WithContext(ctx).Select("id", "author_id").First(&a, itemID).Error
		authorID = a.AuthorID
	default:
		return 0, fmt.Errorf("unknown target kind %d", kind)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrItemNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("loading %s %d: %w", kind, itemID, err)
	}
	return authorID, nil
}

func voteScope(kind TargetKind) string {
	if kind == KindAnswer {
		return "answer_id = ?"
	}
	return "question_id = ?"
}
