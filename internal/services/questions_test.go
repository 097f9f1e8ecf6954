package services

import (
	"strings"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/testutil"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

func (s *ServiceSuite) createQuestion(u *models.User, title string, tags ...string) *models.Question {
	q, err := s.svc.Questions.Create(s.ctx, actorOf(u), CreateQuestionInput{
		Title:   title,
		Content: "<p>Body of " + title + "</p>",
		Tags:    tags,
	})
	s.Require().NoError(err)
	return q
}

func (s *ServiceSuite) TestCreateQuestionNotifiesAuthorOnce() {
	q := s.createQuestion(s.alice, "Test Question")

	s.Equal("test-question", q.Slug)
	s.Require().NotNil(q.User)
	s.Equal("alice", q.User.Username)

	notes := s.notificationsFor(s.alice)
	s.Require().Len(notes, 1)
	s.Equal("New question posted: Test Question", notes[0].Message)
	s.False(notes[0].IsRead)

	events := s.pub.all()
	s.Require().Len(events, 1)
	s.Equal(s.alice.ID, events[0].UserID)
	s.Equal(EventNotification, events[0].Event)
}

func (s *ServiceSuite) TestCreateQuestionTruncatesNotificationTitle() {
	title := strings.Repeat("a", 60)
	s.createQuestion(s.alice, title)
	notes := s.notificationsFor(s.alice)
	s.Require().Len(notes, 1)
	s.Equal("New question posted: "+strings.Repeat("a", 50), notes[0].Message)
}

func (s *ServiceSuite) TestQuestionSlugsGetSuffixes() {
	first := s.createQuestion(s.alice, "How to test?")
	second := s.createQuestion(s.bob, "How to test!")
	third := s.createQuestion(s.carol, "how TO test")
	s.Equal("how-to-test", first.Slug)
	s.Equal("how-to-test-1", second.Slug)
	s.Equal("how-to-test-2", third.Slug)

	fallback := s.createQuestion(s.alice, "???")
	s.Equal("question", fallback.Slug)
}

func (s *ServiceSuite) TestCreateQuestionValidation() {
	_, err := s.svc.Questions.Create(s.ctx, actorOf(s.alice), CreateQuestionInput{Title: " ", Content: ""})
	errs, ok := validation.AsErrors(err)
	s.Require().True(ok)
	s.Len(errs, 2)

	// Content that sanitizes to nothing counts as empty.
	_, err = s.svc.Questions.Create(s.ctx, actorOf(s.alice), CreateQuestionInput{Title: "ok", Content: "<script>x()</script>"})
	errs, ok = validation.AsErrors(err)
	s.Require().True(ok)
	s.Equal("content", errs[0].Field)

	_, err = s.svc.Questions.Create(s.ctx, actorOf(s.alice), CreateQuestionInput{Title: "ok", Content: "ok", Tags: []string{"bad|tag"}})
	_, ok = validation.AsErrors(err)
	s.True(ok)
}

func (s *ServiceSuite) TestCreateQuestionSanitizesContent() {
	q, err := s.svc.Questions.Create(s.ctx, actorOf(s.alice), CreateQuestionInput{
		Title:   "XSS",
		Content: `<p onclick="steal()">hello</p><script>alert(1)</script>`,
	})
	s.Require().NoError(err)
	s.Equal("<p>hello</p>", q.Content)
}

func (s *ServiceSuite) TestQuestionTagsAndUsageCount() {
	q := s.createQuestion(s.alice, "Tagged", "go", "Go", "sql")
	s.Len(q.Tags, 2)

	tag, err := s.svc.Tags.GetBySlug(s.ctx, "go")
	s.Require().NoError(err)
	s.Equal(1, tag.UsageCount)

	_, changed, err := s.svc.Questions.AttachTag(s.ctx, actorOf(s.alice), q.ID, "go")
	s.Require().NoError(err)
	s.False(changed)

	tag, _ = s.svc.Tags.GetBySlug(s.ctx, "go")
	s.Equal(1, tag.UsageCount)

	q, changed, err = s.svc.Questions.DetachTag(s.ctx, actorOf(s.alice), q.ID, "go")
	s.Require().NoError(err)
	s.True(changed)
	s.Len(q.Tags, 1)
	tag, _ = s.svc.Tags.GetBySlug(s.ctx, "go")
	s.Equal(0, tag.UsageCount)

	_, changed, err = s.svc.Questions.DetachTag(s.ctx, actorOf(s.alice), q.ID, "go")
	s.Require().NoError(err)
	s.False(changed)
	tag, _ = s.svc.Tags.GetBySlug(s.ctx, "go")
	s.Equal(0, tag.UsageCount)

	_, _, err = s.svc.Questions.AttachTag(s.ctx, actorOf(s.bob), q.ID, "rust")
	s.ErrorIs(err, ErrForbidden)
}

func (s *ServiceSuite) TestGetQuestionCountsViews() {
	q := s.createQuestion(s.alice, "Views")
	for i := 0; i < 3; i++ {
		_, err := s.svc.Questions.Get(s.ctx, q.ID)
		s.Require().NoError(err)
	}
	got, err := s.svc.Questions.Get(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal(4, got.ViewCount)

	bySlug, err := s.svc.Questions.BySlug(s.ctx, "views")
	s.Require().NoError(err)
	s.Equal(q.ID, bySlug.ID)

	_, err = s.svc.Questions.Get(s.ctx, 12345)
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestListQuestionsFilters() {
	s.createQuestion(s.alice, "Goroutines leak", "go")
	s.createQuestion(s.bob, "Postgres index", "sql")
	s.createQuestion(s.carol, "Go generics", "go")

	list, info, err := s.svc.Questions.List(s.ctx, ListQuestionsParams{Page: NewPage(1, 2, DefaultPerPage)})
	s.Require().NoError(err)
	s.Len(list, 2)
	s.Equal("Go generics", list[0].Title)
	s.Equal(PageInfo{Page: 1, PerPage: 2, TotalPages: 2, TotalItems: 3}, info)

	list, info, err = s.svc.Questions.List(s.ctx, ListQuestionsParams{Page: NewPage(1, 0, DefaultPerPage), Tag: "go"})
	s.Require().NoError(err)
	s.Len(list, 2)
	s.EqualValues(2, info.TotalItems)

	list, _, err = s.svc.Questions.List(s.ctx, ListQuestionsParams{Page: NewPage(1, 0, DefaultPerPage), Query: "POSTGRES"})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("Postgres index", list[0].Title)

	list, _, err = s.svc.Questions.List(s.ctx, ListQuestionsParams{Page: NewPage(1, 0, DefaultPerPage), Query: "100%"})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *ServiceSuite) TestUpdateQuestionAuthorOnly() {
	q := s.createQuestion(s.alice, "Original", "go")
	title := "Renamed"
	tags := []string{"sql"}

	_, err := s.svc.Questions.Update(s.ctx, actorOf(s.bob), q.ID, UpdateQuestionInput{Title: &title})
	s.ErrorIs(err, ErrForbidden)

	got, err := s.svc.Questions.Update(s.ctx, actorOf(s.alice), q.ID, UpdateQuestionInput{Title: &title, Tags: &tags})
	s.Require().NoError(err)
	s.Equal("Renamed", got.Title)
	s.Equal("original", got.Slug)
	s.Require().Len(got.Tags, 1)
	s.Equal("sql", got.Tags[0].Name)

	goTag, err := s.svc.Tags.GetBySlug(s.ctx, "go")
	s.Require().NoError(err)
	s.Equal(0, goTag.UsageCount)

	blank := " "
	_, err = s.svc.Questions.Update(s.ctx, actorOf(s.alice), q.ID, UpdateQuestionInput{Title: &blank})
	_, ok := validation.AsErrors(err)
	s.True(ok)
}

func (s *ServiceSuite) TestDeleteQuestionCascades() {
	q := s.createQuestion(s.alice, "Doomed", "go")
	a, err := s.svc.Answers.Create(s.ctx, actorOf(s.bob), q.ID, AnswerInput{Content: "answer"})
	s.Require().NoError(err)
	_, err = s.svc.Votes.Cast(s.ctx, actorOf(s.carol), onQuestion(q, models.VoteUp))
	s.Require().NoError(err)
	_, err = s.svc.Votes.Cast(s.ctx, actorOf(s.carol), onAnswer(a, models.VoteUp))
	s.Require().NoError(err)

	s.ErrorIs(s.svc.Questions.Delete(s.ctx, actorOf(s.bob), q.ID), ErrForbidden)
	s.Require().NoError(s.svc.Questions.Delete(s.ctx, actorOf(s.mod), q.ID))

	for _, model := range []interface{}{&models.Question{}, &models.Answer{}, &models.Vote{}, &models.QuestionTag{}} {
		var n int64
		s.Require().NoError(s.db.Model(model).Count(&n).Error)
		s.Zero(n)
	}
	tag, err := s.svc.Tags.GetBySlug(s.ctx, "go")
	s.Require().NoError(err)
	s.Equal(0, tag.UsageCount)

	// Reputation earned stays with the authors.
	s.Equal(10, s.reputation(s.alice))
	s.Equal(10, s.reputation(s.bob))
}

func (s *ServiceSuite) TestCloseReopenFeature() {
	q := s.createQuestion(s.alice, "Closable")

	_, err := s.svc.Questions.Close(s.ctx, actorOf(s.alice), q.ID)
	s.ErrorIs(err, ErrForbidden)

	closed, err := s.svc.Questions.Close(s.ctx, actorOf(s.mod), q.ID)
	s.Require().NoError(err)
	s.True(closed.IsClosed)
	s.Require().NotNil(closed.ClosedBy)
	s.Equal(s.mod.ID, *closed.ClosedBy)
	s.NotNil(closed.ClosedAt)

	_, err = s.svc.Questions.Close(s.ctx, actorOf(s.mod), q.ID)
	s.ErrorIs(err, ErrConflict)

	_, err = s.svc.Answers.Create(s.ctx, actorOf(s.bob), q.ID, AnswerInput{Content: "late"})
	s.ErrorIs(err, ErrConflict)

	reopened, err := s.svc.Questions.Reopen(s.ctx, actorOf(s.admin), q.ID)
	s.Require().NoError(err)
	s.False(reopened.IsClosed)
	s.Nil(reopened.ClosedBy)

	featured, err := s.svc.Questions.ToggleFeatured(s.ctx, actorOf(s.admin), q.ID)
	s.Require().NoError(err)
	s.True(featured.IsFeatured)
	featured, err = s.svc.Questions.ToggleFeatured(s.ctx, actorOf(s.admin), q.ID)
	s.Require().NoError(err)
	s.False(featured.IsFeatured)
}

func (s *ServiceSuite) TestRecountQuestion() {
	q := s.createQuestion(s.alice, "Drifted")
	a := testutil.CreateAnswer(s.T(), s.db, s.bob, q, "one")
	_, err := s.svc.Votes.Cast(s.ctx, actorOf(s.carol), onQuestion(q, models.VoteDown))
	s.Require().NoError(err)
	_, err = s.svc.Votes.Cast(s.ctx, actorOf(s.carol), onAnswer(a, models.VoteUp))
	s.Require().NoError(err)

	s.Require().NoError(s.db.Model(&models.Question{}).Where("id = ?", q.ID).
		UpdateColumns(map[string]interface{}{"answer_count": 7, "vote_count": 9}).Error)
	s.Require().NoError(s.db.Model(&models.Answer{}).Where("id = ?", a.ID).UpdateColumn("vote_count", 5).Error)

	got, err := s.svc.Questions.RecountQuestion(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal(1, got.AnswerCount)
	s.Equal(-1, got.VoteCount)

	var fresh models.Answer
	s.Require().NoError(s.db.First(&fresh, a.ID).Error)
	s.Equal(1, fresh.VoteCount)
}
