package services

import (
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

func (s *ServiceSuite) TestCreateAnswerNotifiesQuestionAuthor() {
	q := s.createQuestion(s.alice, "Needs help")
	before := len(s.notificationsFor(s.alice))

	a, err := s.svc.Answers.Create(s.ctx, actorOf(s.bob), q.ID, AnswerInput{Content: "<p>Try this</p>"})
	s.Require().NoError(err)
	s.Equal("<p>Try this</p>", a.Content)
	s.Require().NotNil(a.User)
	s.Equal("bob", a.User.Username)

	notes := s.notificationsFor(s.alice)
	s.Require().Len(notes, before+1)
	s.Equal("New answer on your question: Needs help", notes[len(notes)-1].Message)

	var fresh models.Question
	s.Require().NoError(s.db.First(&fresh, q.ID).Error)
	s.Equal(1, fresh.AnswerCount)

	// Answering your own question does not notify you.
	_, err = s.svc.Answers.Create(s.ctx, actorOf(s.alice), q.ID, AnswerInput{Content: "self"})
	s.Require().NoError(err)
	s.Len(s.notificationsFor(s.alice), before+1)
}

func (s *ServiceSuite) TestCreateAnswerMissingQuestion() {
	_, err := s.svc.Answers.Create(s.ctx, actorOf(s.bob), 404, AnswerInput{Content: "x"})
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestListAnswersOldestFirst() {
	q := s.createQuestion(s.alice, "Many answers")
	for _, u := range []*models.User{s.bob, s.carol, s.mod} {
		_, err := s.svc.Answers.Create(s.ctx, actorOf(u), q.ID, AnswerInput{Content: "from " + u.Username})
		s.Require().NoError(err)
	}
	list, info, err := s.svc.Answers.List(s.ctx, q.ID, NewPage(1, 0, DefaultPerPage))
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("from bob", list[0].Content)
	s.Equal("from mod", list[2].Content)
	s.EqualValues(3, info.TotalItems)

	_, _, err = s.svc.Answers.List(s.ctx, 999, NewPage(1, 0, DefaultPerPage))
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestUpdateAndDeleteAnswer() {
	q := s.createQuestion(s.alice, "Edits")
	a, err := s.svc.Answers.Create(s.ctx, actorOf(s.bob), q.ID, AnswerInput{Content: "v1"})
	s.Require().NoError(err)

	_, err = s.svc.Answers.Update(s.ctx, actorOf(s.carol), a.ID, AnswerInput{Content: "hijack"})
	s.ErrorIs(err, ErrForbidden)

	updated, err := s.svc.Answers.Update(s.ctx, actorOf(s.bob), a.ID, AnswerInput{Content: "v2"})
	s.Require().NoError(err)
	s.Equal("v2", updated.Content)

	_, err = s.svc.Votes.Cast(s.ctx, actorOf(s.carol), onAnswer(a, models.VoteUp))
	s.Require().NoError(err)

	s.ErrorIs(s.svc.Answers.Delete(s.ctx, actorOf(s.carol), a.ID), ErrForbidden)
	s.Require().NoError(s.svc.Answers.Delete(s.ctx, actorOf(s.bob), a.ID))

	var votes int64
	s.Require().NoError(s.db.Model(&models.Vote{}).Where("answer_id = ?", a.ID).Count(&votes).Error)
	s.Zero(votes)

	var fresh models.Question
	s.Require().NoError(s.db.First(&fresh, q.ID).Error)
	s.Equal(0, fresh.AnswerCount)

	s.ErrorIs(s.svc.Answers.Delete(s.ctx, actorOf(s.bob), a.ID), ErrNotFound)
}

func (s *ServiceSuite) TestAcceptAnswerKeepsOneAccepted() {
	q := s.createQuestion(s.alice, "Pick one")
	first, err := s.svc.Answers.Create(s.ctx, actorOf(s.bob), q.ID, AnswerInput{Content: "first"})
	s.Require().NoError(err)
	second, err := s.svc.Answers.Create(s.ctx, actorOf(s.carol), q.ID, AnswerInput{Content: "second"})
	s.Require().NoError(err)

	_, err = s.svc.Answers.Accept(s.ctx, actorOf(s.bob), first.ID)
	s.ErrorIs(err, ErrForbidden)

	got, err := s.svc.Answers.Accept(s.ctx, actorOf(s.alice), first.ID)
	s.Require().NoError(err)
	s.True(got.IsAccepted)

	got, err = s.svc.Answers.Accept(s.ctx, actorOf(s.alice), second.ID)
	s.Require().NoError(err)
	s.True(got.IsAccepted)

	var accepted []models.Answer
	s.Require().NoError(s.db.Where("question_id = ? AND is_accepted = ?", q.ID, true).Find(&accepted).Error)
	s.Require().Len(accepted, 1)
	s.Equal(second.ID, accepted[0].ID)
}
