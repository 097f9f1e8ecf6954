package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
	"github.com/emilythestrangee/stackit/backend/internal/voting"
)

// castAttempts bounds retries when a concurrent first vote wins the insert.
const castAttempts = 3

type VoteService struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewVoteService(db *gorm.DB, logger *slog.Logger) *VoteService {
	return &VoteService{db: db, log: logger}
}

// Target names the question or answer a vote points at. Exactly one id must
// be set; zero counts as unset.
type Target struct {
	QuestionID *uint `json:"question_id" form:"question_id"`
	AnswerID   *uint `json:"answer_id" form:"answer_id"`
}

func (t Target) normalize() (Target, error) {
	t.QuestionID = nonZero(t.QuestionID)
	t.AnswerID = nonZero(t.AnswerID)
	if (t.QuestionID == nil) == (t.AnswerID == nil) {
		return t, validation.Single("target", "Provide exactly one of question_id or answer_id")
	}
	return t, nil
}

func (t Target) kind() models.TargetKind {
	if t.QuestionID != nil {
		return models.TargetQuestion
	}
	return models.TargetAnswer
}

func (t Target) column() (string, uint) {
	if t.QuestionID != nil {
		return "question_id", *t.QuestionID
	}
	return "answer_id", *t.AnswerID
}

type CastVoteInput struct {
	Target
	VoteType models.VoteType `json:"vote_type"`
}

type VoteResult struct {
	Action          voting.Action    `json:"action"`
	VoteType        *models.VoteType `json:"vote_type"`
	ReputationDelta int              `json:"reputation_delta"`
	VoteCounts      voting.Counts    `json:"vote_counts"`
}

// Cast applies the vote state machine for actor on the target, adjusting the
// author's reputation and the target's vote_count in the same transaction.
func (s *VoteService) Cast(ctx context.Context, actor Actor, in CastVoteInput) (*VoteResult, error) {
	target, err := in.Target.normalize()
	if err != nil {
		return nil, err
	}
	if !in.VoteType.Valid() {
		return nil, validation.Single("vote_type", "vote_type must be up or down")
	}

	for attempt := 1; attempt <= castAttempts; attempt++ {
		res, err := s.castOnce(ctx, actor, target, in.VoteType)
		if err == nil {
			return res, nil
		}
		if !database.IsUniqueViolation(err) {
			if errors.Is(err, ErrInconsistent) {
				s.log.Error("vote rolled back", "user_id", actor.ID, "error", err)
			}
			return nil, err
		}
		s.log.Warn("vote collided with a concurrent vote, retrying", "user_id", actor.ID, "attempt", attempt)
	}
	return nil, conflict("Your vote collided with another request, please retry")
}

func (s *VoteService) castOnce(ctx context.Context, actor Actor, target Target, requested models.VoteType) (*VoteResult, error) {
	kind := target.kind()
	col, id := target.column()

	var result *VoteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Locking the target serializes votes on it, so the tally below
		// sees every committed vote.
		authorID, err := targetAuthor(tx.Clauses(clause.Locking{Strength: "UPDATE"}), kind, id)
		if err != nil {
			return err
		}
		if authorID == actor.ID {
			return forbidden("You cannot vote on your own content")
		}

		var existing *models.Vote
		var v models.Vote
		err = tx.Where("user_id = ? AND "+col+" = ?", actor.ID, id).Take(&v).Error
		switch {
		case err == nil:
			existing = &v
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		var current *models.VoteType
		if existing != nil {
			current = &existing.VoteType
		}
		tr, err := voting.Decide(current, requested, kind)
		if err != nil {
			return err
		}

		switch tr.Action {
		case voting.ActionCreated:
			vote := &models.Vote{UserID: actor.ID, VoteType: tr.Type}
			if kind == models.TargetQuestion {
				vote.QuestionID = &id
			} else {
				vote.AnswerID = &id
			}
			err = tx.Create(vote).Error
		case voting.ActionChanged:
			existing.VoteType = tr.Type
			err = tx.Save(existing).Error
		case voting.ActionRemoved:
			err = tx.Delete(existing).Error
		}
		if err != nil {
			return err
		}

		res := tx.Model(&models.User{}).Where("id = ?", authorID).
			UpdateColumn("reputation", gorm.Expr("reputation + ?", tr.Delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("author %d of %s %d missing: %w", authorID, kind, id, ErrInconsistent)
		}

		counts, err := tallyVotes(tx, col, id)
		if err != nil {
			return err
		}
		if err := tx.Table(tableFor(kind)).Where("id = ?", id).
			UpdateColumn("vote_count", counts.Total).Error; err != nil {
			return err
		}

		result = &VoteResult{
			Action:          tr.Action,
			ReputationDelta: tr.Delta,
			VoteCounts:      counts,
		}
		if tr.Action != voting.ActionRemoved {
			t := tr.Type
			result.VoteType = &t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("vote cast", "user_id", actor.ID, "target", kind, "target_id", id,
		"action", result.Action, "delta", result.ReputationDelta)
	return result, nil
}

func tableFor(kind models.TargetKind) string {
	if kind == models.TargetQuestion {
		return "questions"
	}
	return "answers"
}

// targetAuthor returns the author of the target or a 404.
func targetAuthor(tx *gorm.DB, kind models.TargetKind, id uint) (uint, error) {
	var row struct{ UserID uint }
	res := tx.Table(tableFor(kind)).Select("user_id").Where("id = ?", id).Limit(1).Scan(&row)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if kind == models.TargetQuestion {
			return 0, notFound("Question not found")
		}
		return 0, notFound("Answer not found")
	}
	return row.UserID, nil
}

// tallyVotes counts up and down votes where column = id.
func tallyVotes(tx *gorm.DB, column string, id uint) (voting.Counts, error) {
	var rows []struct {
		VoteType models.VoteType
		N        int
	}
	err := tx.Model(&models.Vote{}).
		Select("vote_type, COUNT(*) AS n").
		Where(column+" = ?", id).
		Group("vote_type").
		Scan(&rows).Error
	if err != nil {
		return voting.Counts{}, err
	}
	var up, down int
	for _, r := range rows {
		switch r.VoteType {
		case models.VoteUp:
			up = r.N
		case models.VoteDown:
			down = r.N
		}
	}
	return voting.NewCounts(up, down), nil
}

// Counts returns the tally for a target.
func (s *VoteService) Counts(ctx context.Context, target Target) (voting.Counts, error) {
	target, err := target.normalize()
	if err != nil {
		return voting.Counts{}, err
	}
	db := s.db.WithContext(ctx)
	col, id := target.column()
	if _, err := targetAuthor(db, target.kind(), id); err != nil {
		return voting.Counts{}, err
	}
	return tallyVotes(db, col, id)
}

// UserVote returns the caller's vote on the target, or nil.
func (s *VoteService) UserVote(ctx context.Context, userID uint, target Target) (*models.Vote, error) {
	target, err := target.normalize()
	if err != nil {
		return nil, err
	}
	col, id := target.column()
	var v models.Vote
	err = s.db.WithContext(ctx).Where("user_id = ? AND "+col+" = ?", userID, id).Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type VoteStats struct {
	Cast     voting.Counts `json:"votes_cast"`
	Received voting.Counts `json:"votes_received"`
}

// Stats summarizes the votes a user cast and the votes their content got.
func (s *VoteService) Stats(ctx context.Context, userID uint) (*VoteStats, error) {
	db := s.db.WithContext(ctx)
	var stats VoteStats

	var castUp, castDown int64
	if err := db.Model(&models.Vote{}).Where("user_id = ? AND vote_type = ?", userID, models.VoteUp).Count(&castUp).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Vote{}).Where("user_id = ? AND vote_type = ?", userID, models.VoteDown).Count(&castDown).Error; err != nil {
		return nil, err
	}
	// Total here is how many votes the user cast, not a net score.
	stats.Cast = voting.Counts{Upvotes: int(castUp), Downvotes: int(castDown), Total: int(castUp + castDown)}

	received := func(vt models.VoteType) (int64, error) {
		var n int64
		err := db.Model(&models.Vote{}).
			Where("vote_type = ?", vt).
			Where(db.Where("question_id IN (?)", db.Model(&models.Question{}).Select("id").Where("user_id = ?", userID)).
				Or("answer_id IN (?)", db.Model(&models.Answer{}).Select("id").Where("user_id = ?", userID))).
			Count(&n).Error
		return n, err
	}
	up, err := received(models.VoteUp)
	if err != nil {
		return nil, err
	}
	down, err := received(models.VoteDown)
	if err != nil {
		return nil, err
	}
	stats.Received = voting.NewCounts(int(up), int(down))
	return &stats, nil
}
