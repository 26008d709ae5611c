package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devflowhq/devflow/backend/internal/models"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// setupLedger starts a shared postgres container (once per test run), opens a
// fresh gorm session, migrates the schema, and truncates everything so each
// test starts clean.
func setupLedger(t *testing.T) *Ledger {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	containerOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()

		ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("devflow_test"),
			tcpostgres.WithUsername("testuser"),
			tcpostgres.WithPassword("testpass"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("start container: %w", err)
			return
		}
		containerDSN, containerErr = ctr.ConnectionString(ctx, "sslmode=disable")
	})
	require.NoError(t, containerErr)

	db, err := gorm.Open(postgres.Open(containerDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.Answer{},
		&models.Vote{},
		&models.Tag{},
		&models.Interaction{},
	))

	err = db.Exec("TRUNCATE users, questions, answers, votes, tags, interactions, question_tags, saved_questions RESTART IDENTITY CASCADE").Error
	require.NoError(t, err)

	return New(db, slog.Default())
}

func seedUser(t *testing.T, l *Ledger, name string) models.User {
	t.Helper()
	u := models.User{
		Name:     name,
		Username: name,
		Email:    name + "@example.com",
		Password: "x",
	}
	require.NoError(t, l.db.Create(&u).Error)
	return u
}

func seedQuestion(t *testing.T, l *Ledger, author models.User) models.Question {
	t.Helper()
	q := models.Question{Title: "t", Content: "c", AuthorID: author.ID}
	require.NoError(t, l.db.Create(&q).Error)
	return q
}

func seedAnswer(t *testing.T, l *Ledger, q models.Question, author models.User) models.Answer {
	t.Helper()
	a := models.Answer{Content: "a", QuestionID: q.ID, AuthorID: author.ID}
	require.NoError(t, l.db.Create(&a).Error)
	return a
}

func reputation(t *testing.T, l *Ledger, userID int) int {
	t.Helper()
	var u models.User
	require.NoError(t, l.db.First(&u, userID).Error)
	return u.Reputation
}

func voteSets(t *testing.T, l *Ledger, kind TargetKind, itemID int) (up, down []int) {
	t.Helper()
	var votes []models.Vote
	require.NoError(t, l.db.Where(voteScope(kind), itemID).Find(&votes).Error)
	for _, v := range votes {
		if v.VoteType == 1 {
			up = append(up, v.UserID)
		} else {
			down = append(down, v.UserID)
		}
	}
	return up, down
}

func TestApplyVoteFreshUpvote(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	author := seedUser(t, l, "author")
	voter := seedUser(t, l, "voter")
	q := seedQuestion(t, l, author)

	tr, err := l.ApplyVote(ctx, voter.ID, KindQuestion, q.ID, Upvote)
	require.NoError(t, err)
	assert.Equal(t, Transition{AddedUpvote: true}, tr)

	up, down := voteSets(t, l, KindQuestion, q.ID)
	assert.Equal(t, []int{voter.ID}, up)
	assert.Empty(t, down)
	assert.Equal(t, 1, reputation(t, l, voter.ID))
	assert.Equal(t, 10, reputation(t, l, author.ID))
}

func TestApplyVoteToggleRestoresState(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	author := seedUser(t, l, "author")
	voter := seedUser(t, l, "voter")
	q := seedQuestion(t, l, author)

	_, err := l.ApplyVote(ctx, voter.ID, KindQuestion, q.ID, Upvote)
	require.NoError(t, err)
	_, err = l.ApplyVote(ctx, voter.ID, KindQuestion, q.ID, Upvote)
	require.NoError(t, err)

	up, down := voteSets(t, l, KindQuestion, q.ID)
	assert.Empty(t, up)
	assert.Empty(t, down)
	assert.Equal(t, 0, reputation(t, l, voter.ID))
	assert.Equal(t, 0, reputation(t, l, author.ID))
}

func TestApplyVoteFlipCompounds(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	author := seedUser(t, l, "author")
	voter := seedUser(t, l, "voter")
	q := seedQuestion(t, l, author)

	_, err := l.ApplyVote(ctx, voter.ID, KindQuestion, q.ID, Downvote)
	require.NoError(t, err)
	assert.Equal(t, -2, reputation(t, l, voter.ID))
	assert.Equal(t, -10, reputation(t, l, author.ID))

	tr, err := l.ApplyVote(ctx, voter.ID, KindQuestion, q.ID, Upvote)
	require.NoError(t, err)
	assert.Equal(t, Transition{AddedUpvote: true, RemovedDownvote: true}, tr)

	up, down := voteSets(t, l, KindQuestion, q.ID)
	assert.Equal(t, []int{voter.ID}, up)
	assert.Empty(t, down)

	// Net of the flip alone is +3 voter / +20 author on top of the downvote.
	assert.Equal(t, 1, reputation(t, l, voter.ID))
	assert.Equal(t, 10, reputation(t, l, author.ID))
}

func TestApplyVoteDisjointSets(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	author := seedUser(t, l, "author")
	voter := seedUser(t, l, "voter")
	q := seedQuestion(t, l, author)

	actions := []Action{Upvote, Downvote, Downvote, Upvote, Upvote, Downvote, Upvote}
	for _, a := range actions {
		_, err := l.ApplyVote(ctx, voter.ID, KindQuestion, q.ID, a)
		require.NoError(t, err)

		up, down := voteSets(t, l, KindQuestion, q.ID)
		for _, u := range up {
			assert.NotContains(t, down, u, "voter in both sets after %v", a)
		}
		assert.LessOrEqual(t, len(up)+len(down), 1)
	}
}

func TestApplyVoteCommutes(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	run := func(reversed bool) (up, down []int, reps [3]int) {
		require.NoError(t, l.db.Exec("TRUNCATE users, questions, votes RESTART IDENTITY CASCADE").Error)
		author := seedUser(t, l, "author")
		u1 := seedUser(t, l, "u1")
		u2 := seedUser(t, l, "u2")
		q := seedQuestion(t, l, author)

		calls := [][2]interface{}{{u1.ID, Upvote}, {u2.ID, Downvote}}
		if reversed {
			calls[0], calls[1] = calls[1], calls[0]
		}
		for _, c := range calls {
			_, err := l.ApplyVote(ctx, c[0].(int), KindQuestion, q.ID, c[1].(Action))
			require.NoError(t, err)
		}

		up, down = voteSets(t, l, KindQuestion, q.ID)
		reps = [3]int{reputation(t, l, author.ID), reputation(t, l, u1.ID), reputation(t, l, u2.ID)}
		return up, down, reps
	}

	up1, down1, reps1 := run(false)
	up2, down2, reps2 := run(true)

	assert.ElementsMatch(t, up1, up2)
	assert.ElementsMatch(t, down1, down2)
	assert.Equal(t, reps1, reps2)
}

func TestSelfVoteCompounds(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	author := seedUser(t, l, "author")
	q := seedQuestion(t, l, author)

	_, err := l.ApplyVote(ctx, author.ID, KindQuestion, q.ID, Upvote)
	require.NoError(t, err)

	// +1 as voter and +10 as author land on the same row additively.
	assert.Equal(t, 11, reputation(t, l, author.ID))
}

func TestApplyVoteNotFound(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	author := seedUser(t, l, "author")
	q := seedQuestion(t, l, author)

	_, err := l.ApplyVote(ctx, 9999, KindQuestion, q.ID, Upvote)
	assert.ErrorIs(t, err, ErrVoterNotFound)

	_, err = l.ApplyVote(ctx, author.ID, KindQuestion, 9999, Upvote)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = l.ApplyVote(ctx, author.ID, KindAnswer, 9999, Downvote)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestApplyVoteRepairsDuplicateRows(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	author := seedUser(t, l, "author")
	voter := seedUser(t, l, "voter")
	q := seedQuestion(t, l, author)

	// Forge corrupted state: the voter sits in both camps at once. The unique
	// index normally prevents this, so drop it for the duration of the test
	// (the next AutoMigrate puts it back once the duplicates are gone).
	require.NoError(t, l.db.Exec("DROP INDEX IF EXISTS idx_votes_user_question").Error)
	qid := q.ID
	require.NoError(t, l.db.Create(&models.Vote{UserID: voter.ID, QuestionID: &qid, VoteType: 1}).Error)
	require.NoError(t, l.db.Create(&models.Vote{UserID: voter.ID, QuestionID: &qid, VoteType: -1}).Error)

	_, err := l.ApplyVote(ctx, voter.ID, KindQuestion, q.ID, Upvote)
	require.NoError(t, err)

	// Corruption cleared, the voter holds exactly the fresh upvote.
	up, down := voteSets(t, l, KindQuestion, q.ID)
	assert.Equal(t, []int{voter.ID}, up)
	assert.Empty(t, down)
}

func TestDeleteQuestionReversesReputation(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	author := seedUser(t, l, "author")
	up1 := seedUser(t, l, "up1")
	up2 := seedUser(t, l, "up2")
	down1 := seedUser(t, l, "down1")
	q := seedQuestion(t, l, author)

	_, err := l.ApplyVote(ctx, up1.ID, KindQuestion, q.ID, Upvote)
	require.NoError(t, err)
	_, err = l.ApplyVote(ctx, up2.ID, KindQuestion, q.ID, Upvote)
	require.NoError(t, err)
	_, err = l.ApplyVote(ctx, down1.ID, KindQuestion, q.ID, Downvote)
	require.NoError(t, err)

	// 2 upvotes and 1 downvote leave the author at net +10.
	require.Equal(t, 10, reputation(t, l, author.ID))

	require.NoError(t, l.DeleteQuestion(ctx, q.ID))

	assert.Equal(t, 0, reputation(t, l, author.ID))
	assert.Equal(t, 0, reputation(t, l, up1.ID))
	assert.Equal(t, 0, reputation(t, l, up2.ID))
	assert.Equal(t, 0, reputation(t, l, down1.ID))

	var count int64
	require.NoError(t, l.db.Model(&models.Question{}).Where("id = ?", q.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, l.db.Model(&models.Vote{}).Where("question_id = ?", q.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteQuestionRetryReversesOnlyStandingVotes(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	author := seedUser(t, l, "author")
	unwound := seedUser(t, l, "unwound")
	pending := seedUser(t, l, "pending")
	q := seedQuestion(t, l, author)

	_, err := l.ApplyVote(ctx, unwound.ID, KindQuestion, q.ID, Upvote)
	require.NoError(t, err)
	_, err = l.ApplyVote(ctx, pending.ID, KindQuestion, q.ID, Upvote)
	require.NoError(t, err)

	// An earlier delete attempt fully unwound one vote (row gone, both
	// reputation reversals applied) before stopping.
	require.NoError(t, l.db.
		Where("user_id = ? AND question_id = ?", unwound.ID, q.ID).
		Delete(&models.Vote{}).Error)
	require.NoError(t, l.applyDelta(ctx, Transition{RemovedUpvote: true}.Delta(), unwound.ID, author.ID))

	require.Equal(t, 0, reputation(t, l, unwound.ID))
	require.Equal(t, 10, reputation(t, l, author.ID))

	require.NoError(t, l.DeleteQuestion(ctx, q.ID))

	// Only the standing vote is reversed; the unwound one is not repeated.
	assert.Equal(t, 0, reputation(t, l, unwound.ID))
	assert.Equal(t, 0, reputation(t, l, pending.ID))
	assert.Equal(t, 0, reputation(t, l, author.ID))
}

func TestDeleteQuestionCascadesIntoAnswers(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	asker := seedUser(t, l, "asker")
	answerer := seedUser(t, l, "answerer")
	voter := seedUser(t, l, "voter")
	q := seedQuestion(t, l, asker)
	a := seedAnswer(t, l, q, answerer)

	_, err := l.ApplyVote(ctx, voter.ID, KindAnswer, a.ID, Upvote)
	require.NoError(t, err)
	require.Equal(t, 10, reputation(t, l, answerer.ID))

	require.NoError(t, l.DeleteQuestion(ctx, q.ID))

	assert.Equal(t, 0, reputation(t, l, answerer.ID))
	assert.Equal(t, 0, reputation(t, l, voter.ID))

	var count int64
	require.NoError(t, l.db.Model(&models.Answer{}).Where("question_id = ?", q.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteMissingItemIsNoop(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	u := seedUser(t, l, "bystander")

	require.NoError(t, l.DeleteQuestion(ctx, 424242))
	require.NoError(t, l.DeleteAnswer(ctx, 424242))
	assert.Equal(t, 0, reputation(t, l, u.ID))
}

func TestDeleteQuestionDetachesTagsAndSaves(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	author := seedUser(t, l, "author")
	fan := seedUser(t, l, "fan")
	q := seedQuestion(t, l, author)

	tag := models.Tag{Name: "go"}
	require.NoError(t, l.db.Create(&tag).Error)
	require.NoError(t, l.db.Exec("INSERT INTO question_tags (question_id, tag_id) VALUES (?, ?)", q.ID, tag.ID).Error)
	require.NoError(t, l.db.Exec("INSERT INTO saved_questions (user_id, question_id) VALUES (?, ?)", fan.ID, q.ID).Error)
	require.NoError(t, l.db.Create(&models.Interaction{UserID: author.ID, Action: models.ActionAskQuestion, QuestionID: q.ID}).Error)

	require.NoError(t, l.DeleteQuestion(ctx, q.ID))

	var count int64
	require.NoError(t, l.db.Table("question_tags").Where("question_id = ?", q.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, l.db.Table("saved_questions").Where("question_id = ?", q.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, l.db.Model(&models.Interaction{}).Where("question_id = ?", q.ID).Count(&count).Error)
	assert.Zero(t, count)

	// The tag itself survives, only the membership edge goes.
	require.NoError(t, l.db.Model(&models.Tag{}).Where("id = ?", tag.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
