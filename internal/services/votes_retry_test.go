package services

import (
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/testutil"
	"github.com/emilythestrangee/stackit/backend/internal/voting"
)

// failVoteInserts makes the next n vote inserts fail with a duplicate key
// error before they reach the database. It returns a counter of the failed
// inserts.
func (s *ServiceSuite) failVoteInserts(n int) *int {
	failed := 0
	err := s.db.Callback().Create().Before("gorm:create").Register("test:fail_vote_insert", func(db *gorm.DB) {
		if _, ok := db.Statement.Dest.(*models.Vote); !ok || failed >= n {
			return
		}
		failed++
		db.AddError(gorm.ErrDuplicatedKey)
	})
	s.Require().NoError(err)
	return &failed
}

// A concurrent request by the same user inserted its vote between our read
// and our insert. The retry must see that vote and update it.
func (s *ServiceSuite) TestCastRetriesAfterLosingInsertRace() {
	q := testutil.CreateQuestion(s.T(), s.db, s.alice, "Raced")
	failed := s.failVoteInserts(1)

	// The winning request lands before the retry reads the caller's vote.
	landed := false
	err := s.db.Callback().Query().Before("gorm:query").Register("test:winning_vote", func(db *gorm.DB) {
		if _, ok := db.Statement.Dest.(*models.Vote); !ok || *failed == 0 || landed {
			return
		}
		landed = true
		tx := db.Session(&gorm.Session{NewDB: true})
		if err := tx.Create(&models.Vote{UserID: s.bob.ID, QuestionID: &q.ID, VoteType: models.VoteDown}).Error; err != nil {
			db.AddError(err)
			return
		}
		db.AddError(tx.Model(&models.User{}).Where("id = ?", s.alice.ID).
			UpdateColumn("reputation", gorm.Expr("reputation + ?", -2)).Error)
	})
	s.Require().NoError(err)

	res, err := s.svc.Votes.Cast(s.ctx, actorOf(s.bob), onQuestion(q, models.VoteUp))
	s.Require().NoError(err)
	s.Equal(1, *failed)
	s.True(landed)

	s.Equal(voting.ActionChanged, res.Action)
	s.Equal(12, res.ReputationDelta)
	s.Equal(voting.Counts{Upvotes: 1, Downvotes: 0, Total: 1}, res.VoteCounts)
	s.Equal(10, s.reputation(s.alice))

	var votes []models.Vote
	s.Require().NoError(s.db.Where("user_id = ? AND question_id = ?", s.bob.ID, q.ID).Find(&votes).Error)
	s.Require().Len(votes, 1)
	s.Equal(models.VoteUp, votes[0].VoteType)

	var got models.Question
	s.Require().NoError(s.db.First(&got, q.ID).Error)
	s.Equal(1, got.VoteCount)
}

func (s *ServiceSuite) TestCastGivesUpAfterRepeatedCollisions() {
	q := testutil.CreateQuestion(s.T(), s.db, s.alice, "Always raced")
	failed := s.failVoteInserts(castAttempts)

	_, err := s.svc.Votes.Cast(s.ctx, actorOf(s.bob), onQuestion(q, models.VoteUp))
	s.Require().Error(err)
	s.ErrorIs(err, ErrConflict)
	s.Equal(castAttempts, *failed)

	s.Equal(0, s.reputation(s.alice))
	var n int64
	s.Require().NoError(s.db.Model(&models.Vote{}).Count(&n).Error)
	s.Zero(n)
}
