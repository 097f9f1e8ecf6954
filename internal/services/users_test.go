package services

import (
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/testutil"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

func (s *ServiceSuite) TestRegister() {
	sess, err := s.svc.Auth.Register(s.ctx, RegisterInput{Username: "newbie", Email: " NewBie@Example.com ", Password: "Secr3tPass"})
	s.Require().NoError(err)
	s.Equal("newbie@example.com", sess.User.Email)
	s.Equal(models.RoleUser, sess.User.Role)
	s.NotEmpty(sess.AccessToken)
	s.NotEmpty(sess.RefreshToken)

	_, err = s.svc.Auth.Register(s.ctx, RegisterInput{Username: "other", Email: "newbie@example.com", Password: "Secr3tPass"})
	s.ErrorIs(err, ErrConflict)
	s.Equal("Email already registered", err.Error())

	_, err = s.svc.Auth.Register(s.ctx, RegisterInput{Username: "NEWBIE", Email: "x@example.com", Password: "Secr3tPass"})
	s.ErrorIs(err, ErrConflict)
	s.Equal("Username already taken", err.Error())
}

func (s *ServiceSuite) TestRegisterValidation() {
	_, err := s.svc.Auth.Register(s.ctx, RegisterInput{Username: "", Email: "not-an-email", Password: "weak"})
	errs, ok := validation.AsErrors(err)
	s.Require().True(ok)
	fields := map[string]bool{}
	for _, fe := range errs {
		fields[fe.Field] = true
	}
	s.True(fields["username"])
	s.True(fields["email"])
	s.True(fields["password"])
}

func (s *ServiceSuite) TestLoginByEmailOrUsername() {
	sess, err := s.svc.Auth.Login(s.ctx, LoginInput{Identifier: "ALICE@example.com", Password: testutil.DefaultPassword})
	s.Require().NoError(err)
	s.Equal(s.alice.ID, sess.User.ID)

	sess, err = s.svc.Auth.Login(s.ctx, LoginInput{Username: "alice", Password: testutil.DefaultPassword})
	s.Require().NoError(err)
	s.Equal(s.alice.ID, sess.User.ID)

	_, err = s.svc.Auth.Login(s.ctx, LoginInput{Identifier: "alice", Password: "wrong"})
	s.ErrorIs(err, ErrUnauthorized)

	_, err = s.svc.Auth.Login(s.ctx, LoginInput{Identifier: "ghost", Password: "whatever"})
	s.ErrorIs(err, ErrUnauthorized)

	_, err = s.svc.Auth.Login(s.ctx, LoginInput{Password: "x"})
	_, ok := validation.AsErrors(err)
	s.True(ok)
}

func (s *ServiceSuite) TestLoginRejectsInactive() {
	s.Require().NoError(s.db.Model(s.bob).Update("is_active", false).Error)
	_, err := s.svc.Auth.Login(s.ctx, LoginInput{Identifier: "bob", Password: testutil.DefaultPassword})
	s.ErrorIs(err, ErrUnauthorized)
	s.Equal("Account is deactivated", err.Error())
}

func (s *ServiceSuite) TestRefresh() {
	sess, err := s.svc.Auth.Login(s.ctx, LoginInput{Identifier: "carol", Password: testutil.DefaultPassword})
	s.Require().NoError(err)

	tok, err := s.svc.Auth.Refresh(s.ctx, sess.RefreshToken)
	s.Require().NoError(err)
	s.NotEmpty(tok.AccessToken)

	_, err = s.svc.Auth.Refresh(s.ctx, sess.AccessToken)
	s.ErrorIs(err, ErrUnauthorized)

	s.Require().NoError(s.db.Model(s.carol).Update("is_active", false).Error)
	_, err = s.svc.Auth.Refresh(s.ctx, sess.RefreshToken)
	s.ErrorIs(err, ErrUnauthorized)
}
