package services

import (
	"sync"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/testutil"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
	"github.com/emilythestrangee/stackit/backend/internal/voting"
)

func uintPtr(v uint) *uint { return &v }

func onQuestion(q *models.Question, t models.VoteType) CastVoteInput {
	return CastVoteInput{Target: Target{QuestionID: uintPtr(q.ID)}, VoteType: t}
}

func onAnswer(a *models.Answer, t models.VoteType) CastVoteInput {
	return CastVoteInput{Target: Target{AnswerID: uintPtr(a.ID)}, VoteType: t}
}

func (s *ServiceSuite) TestVoteToggleOnQuestion() {
	q := testutil.CreateQuestion(s.T(), s.db, s.alice, "Toggle")
	bob := actorOf(s.bob)

	res, err := s.svc.Votes.Cast(s.ctx, bob, onQuestion(q, models.VoteUp))
	s.Require().NoError(err)
	s.Equal(voting.ActionCreated, res.Action)
	s.Equal(10, res.ReputationDelta)
	s.Equal(voting.Counts{Upvotes: 1, Downvotes: 0, Total: 1}, res.VoteCounts)
	s.Equal(10, s.reputation(s.alice))

	res, err = s.svc.Votes.Cast(s.ctx, bob, onQuestion(q, models.VoteUp))
	s.Require().NoError(err)
	s.Equal(voting.ActionRemoved, res.Action)
	s.Equal(-10, res.ReputationDelta)
	s.Nil(res.VoteType)
	s.Equal(voting.Counts{}, res.VoteCounts)
	s.Equal(0, s.reputation(s.alice))

	res, err = s.svc.Votes.Cast(s.ctx, bob, onQuestion(q, models.VoteUp))
	s.Require().NoError(err)
	s.Equal(voting.ActionCreated, res.Action)

	var n int64
	s.Require().NoError(s.db.Model(&models.Vote{}).Where("user_id = ?", s.bob.ID).Count(&n).Error)
	s.EqualValues(1, n)
}

func (s *ServiceSuite) TestVoteChangeOnAnswer() {
	q := testutil.CreateQuestion(s.T(), s.db, s.alice, "Change")
	a := testutil.CreateAnswer(s.T(), s.db, s.bob, q, "answer")
	carol := actorOf(s.carol)

	_, err := s.svc.Votes.Cast(s.ctx, carol, onAnswer(a, models.VoteUp))
	s.Require().NoError(err)

	res, err := s.svc.Votes.Cast(s.ctx, carol, onAnswer(a, models.VoteDown))
	s.Require().NoError(err)
	s.Equal(voting.ActionChanged, res.Action)
	s.Equal(-12, res.ReputationDelta)
	s.Equal(models.VoteDown, *res.VoteType)
	s.Equal(voting.Counts{Upvotes: 0, Downvotes: 1, Total: -1}, res.VoteCounts)
	s.Equal(-2, s.reputation(s.bob))

	var fresh models.Answer
	s.Require().NoError(s.db.First(&fresh, a.ID).Error)
	s.Equal(-1, fresh.VoteCount)
}

func (s *ServiceSuite) TestVoteReputationIsReversible() {
	q := testutil.CreateQuestion(s.T(), s.db, s.alice, "Reversible")
	sequence := []models.VoteType{models.VoteUp, models.VoteDown, models.VoteDown, models.VoteUp, models.VoteUp}
	for _, vt := range sequence {
		_, err := s.svc.Votes.Cast(s.ctx, actorOf(s.bob), onQuestion(q, vt))
		s.Require().NoError(err)
	}
	// up, change to down, remove, up, remove: back to nothing.
	s.Equal(0, s.reputation(s.alice))

	var fresh models.Question
	s.Require().NoError(s.db.First(&fresh, q.ID).Error)
	s.Equal(0, fresh.VoteCount)
}

func (s *ServiceSuite) TestVoteRejectsSelfVote() {
	q := testutil.CreateQuestion(s.T(), s.db, s.alice, "Mine")
	_, err := s.svc.Votes.Cast(s.ctx, actorOf(s.alice), onQuestion(q, models.VoteUp))
	s.ErrorIs(err, ErrForbidden)
	s.Equal(0, s.reputation(s.alice))
}

func (s *ServiceSuite) TestVoteTargetValidation() {
	q := testutil.CreateQuestion(s.T(), s.db, s.alice, "Target")
	a := testutil.CreateAnswer(s.T(), s.db, s.alice, q, "x")

	both := CastVoteInput{Target: Target{QuestionID: uintPtr(q.ID), AnswerID: uintPtr(a.ID)}, VoteType: models.VoteUp}
	_, err := s.svc.Votes.Cast(s.ctx, actorOf(s.bob), both)
	errs, ok := validation.AsErrors(err)
	s.Require().True(ok)
	s.Equal("target", errs[0].Field)

	neither := CastVoteInput{Target: Target{QuestionID: uintPtr(0)}, VoteType: models.VoteUp}
	_, err = s.svc.Votes.Cast(s.ctx, actorOf(s.bob), neither)
	_, ok = validation.AsErrors(err)
	s.True(ok)

	_, err = s.svc.Votes.Cast(s.ctx, actorOf(s.bob), onQuestion(q, "sideways"))
	errs, ok = validation.AsErrors(err)
	s.Require().True(ok)
	s.Equal("vote_type", errs[0].Field)

	_, err = s.svc.Votes.Cast(s.ctx, actorOf(s.bob), CastVoteInput{Target: Target{QuestionID: uintPtr(9999)}, VoteType: models.VoteUp})
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestVoteModelRejectsBadTargetBeforeWrite() {
	q := testutil.CreateQuestion(s.T(), s.db, s.alice, "Hook")
	a := testutil.CreateAnswer(s.T(), s.db, s.alice, q, "x")
	err := s.db.Create(&models.Vote{UserID: s.bob.ID, QuestionID: &q.ID, AnswerID: &a.ID, VoteType: models.VoteUp}).Error
	s.ErrorIs(err, models.ErrInvalidVoteTarget)
}

func (s *ServiceSuite) TestVoteMissingAuthorRollsBack() {
	q := testutil.CreateQuestion(s.T(), s.db, s.alice, "Orphan")
	s.Require().NoError(s.db.Exec("PRAGMA foreign_keys = OFF").Error)
	s.Require().NoError(s.db.Exec("DELETE FROM users WHERE id = ?", s.alice.ID).Error)
	s.Require().NoError(s.db.Exec("PRAGMA foreign_keys = ON").Error)

	_, err := s.svc.Votes.Cast(s.ctx, actorOf(s.bob), onQuestion(q, models.VoteUp))
	s.ErrorIs(err, ErrInconsistent)

	var n int64
	s.Require().NoError(s.db.Model(&models.Vote{}).Count(&n).Error)
	s.Zero(n)
}

func (s *ServiceSuite) TestConcurrentVotesStayUnique() {
	q := testutil.CreateQuestion(s.T(), s.db, s.alice, "Race")
	var wg sync.WaitGroup
	results := make([]*VoteResult, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.svc.Votes.Cast(s.ctx, actorOf(s.bob), onQuestion(q, models.VoteUp))
		}(i)
	}
	wg.Wait()

	var rows int64
	s.Require().NoError(s.db.Model(&models.Vote{}).Where("question_id = ?", q.ID).Count(&rows).Error)
	s.LessOrEqual(rows, int64(1))

	// Whatever interleaving happened, reputation matches the rows left.
	s.Equal(int(rows)*10, s.reputation(s.alice))
}

func (s *ServiceSuite) TestVoteReadEndpoints() {
	q := testutil.CreateQuestion(s.T(), s.db, s.alice, "Reads")
	a := testutil.CreateAnswer(s.T(), s.db, s.bob, q, "x")

	_, err := s.svc.Votes.Cast(s.ctx, actorOf(s.bob), onQuestion(q, models.VoteUp))
	s.Require().NoError(err)
	_, err = s.svc.Votes.Cast(s.ctx, actorOf(s.carol), onQuestion(q, models.VoteDown))
	s.Require().NoError(err)
	_, err = s.svc.Votes.Cast(s.ctx, actorOf(s.alice), onAnswer(a, models.VoteUp))
	s.Require().NoError(err)

	counts, err := s.svc.Votes.Counts(s.ctx, Target{QuestionID: &q.ID})
	s.Require().NoError(err)
	s.Equal(voting.Counts{Upvotes: 1, Downvotes: 1, Total: 0}, counts)

	v, err := s.svc.Votes.UserVote(s.ctx, s.carol.ID, Target{QuestionID: &q.ID})
	s.Require().NoError(err)
	s.Require().NotNil(v)
	s.Equal(models.VoteDown, v.VoteType)

	v, err = s.svc.Votes.UserVote(s.ctx, s.mod.ID, Target{QuestionID: &q.ID})
	s.Require().NoError(err)
	s.Nil(v)

	stats, err := s.svc.Votes.Stats(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(voting.Counts{Upvotes: 1, Downvotes: 0, Total: 1}, stats.Cast)
	s.Equal(voting.Counts{Upvotes: 1, Downvotes: 0, Total: 1}, stats.Received)

	stats, err = s.svc.Votes.Stats(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(voting.Counts{Upvotes: 1, Downvotes: 1, Total: 0}, stats.Received)

	other := testutil.CreateQuestion(s.T(), s.db, s.carol, "Another")
	_, err = s.svc.Votes.Cast(s.ctx, actorOf(s.bob), onQuestion(other, models.VoteDown))
	s.Require().NoError(err)
	stats, err = s.svc.Votes.Stats(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(voting.Counts{Upvotes: 1, Downvotes: 1, Total: 2}, stats.Cast)
}
