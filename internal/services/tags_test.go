package services

import (
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

func (s *ServiceSuite) TestCreateTag() {
	tag, err := s.svc.Tags.Create(s.ctx, actorOf(s.mod), CreateTagInput{Name: "  C#  ", Description: "Sharp", Color: "#ff0000"})
	s.Require().NoError(err)
	s.Equal("C#", tag.Name)
	s.Equal("c", tag.Slug)
	s.Equal("#FF0000", tag.Color)
	s.Require().NotNil(tag.CreatedBy)
	s.Equal(s.mod.ID, *tag.CreatedBy)

	_, err = s.svc.Tags.Create(s.ctx, actorOf(s.mod), CreateTagInput{Name: "c#"})
	s.ErrorIs(err, ErrConflict)

	other, err := s.svc.Tags.Create(s.ctx, actorOf(s.mod), CreateTagInput{Name: "C"})
	s.Require().NoError(err)
	s.Equal("c-1", other.Slug)
	s.Equal(models.DefaultTagColor, other.Color)
}

func (s *ServiceSuite) TestCreateTagValidation() {
	tests := []CreateTagInput{
		{Name: ""},
		{Name: "semi;colon"},
		{Name: "ok", Color: "red"},
		{Name: "ok", Color: "#12345"},
	}
	for _, in := range tests {
		_, err := s.svc.Tags.Create(s.ctx, actorOf(s.mod), in)
		_, ok := validation.AsErrors(err)
		s.True(ok, "%+v", in)
	}
}

func (s *ServiceSuite) TestTagSearchAndPopular() {
	s.createQuestion(s.alice, "One", "golang", "postgres")
	s.createQuestion(s.bob, "Two", "golang")
	s.createQuestion(s.carol, "Three", "gorm", "golang", "postgres")

	popular, err := s.svc.Tags.Popular(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(popular, 3)
	s.Equal("golang", popular[0].Name)
	s.Equal(3, popular[0].UsageCount)
	s.Equal("postgres", popular[1].Name)

	found, err := s.svc.Tags.Search(s.ctx, "GO", 1)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("golang", found[0].Name)

	found, err = s.svc.Tags.Search(s.ctx, "  ", 10)
	s.Require().NoError(err)
	s.Empty(found)

	list, info, err := s.svc.Tags.List(s.ctx, NewPage(1, 2, DefaultPerPage))
	s.Require().NoError(err)
	s.Len(list, 2)
	s.EqualValues(3, info.TotalItems)
}

func (s *ServiceSuite) TestClampLimit() {
	s.Equal(DefaultTagSearchLimit, ClampLimit(0))
	s.Equal(MaxTagSearchLimit, ClampLimit(500))
	s.Equal(7, ClampLimit(7))
}

func (s *ServiceSuite) TestUpdateTag() {
	_, err := s.svc.Tags.Create(s.ctx, actorOf(s.mod), CreateTagInput{Name: "docker"})
	s.Require().NoError(err)

	desc, color, active := "Containers", "#00aaff", false
	tag, err := s.svc.Tags.Update(s.ctx, "docker", UpdateTagInput{Description: &desc, Color: &color, IsActive: &active})
	s.Require().NoError(err)
	s.Equal("Containers", tag.Description)
	s.Equal("#00AAFF", tag.Color)
	s.False(tag.IsActive)

	bad := "nope"
	_, err = s.svc.Tags.Update(s.ctx, "docker", UpdateTagInput{Color: &bad})
	_, ok := validation.AsErrors(err)
	s.True(ok)

	_, err = s.svc.Tags.Update(s.ctx, "missing", UpdateTagInput{Description: &desc})
	s.ErrorIs(err, ErrNotFound)

	// Inactive tags drop out of listings.
	list, _, err := s.svc.Tags.List(s.ctx, NewPage(1, 0, DefaultPerPage))
	s.Require().NoError(err)
	s.Empty(list)
}
