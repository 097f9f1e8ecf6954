package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

func (t VoteType) Valid() bool {
	return t == VoteUp || t == VoteDown
}

// TargetKind says which kind of content a vote points at.
type TargetKind string

const (
	TargetQuestion TargetKind = "question"
	TargetAnswer   TargetKind = "answer"
)

var ErrInvalidVoteTarget = errors.New("vote must reference exactly one of question_id or answer_id")

// Vote tracks one user's vote on a question or an answer, never both.
type Vote struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:uq_user_question_vote;uniqueIndex:uq_user_answer_vote" json:"user_id"`
	QuestionID *uint     `gorm:"uniqueIndex:uq_user_question_vote;check:vote_target_check,(question_id IS NOT NULL AND answer_id IS NULL) OR (question_id IS NULL AND answer_id IS NOT NULL)" json:"question_id,omitempty"`
	AnswerID   *uint     `gorm:"uniqueIndex:uq_user_answer_vote" json:"answer_id,omitempty"`
	VoteType   VoteType  `gorm:"size:8;not null;check:vote_type_check,vote_type IN ('up','down')" json:"vote_type"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Question   *Question `gorm:"foreignKey:QuestionID;constraint:OnDelete:RESTRICT" json:"-"`
	Answer     *Answer   `gorm:"foreignKey:AnswerID;constraint:OnDelete:RESTRICT" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Kind returns the kind of content the vote targets.
func (v *Vote) Kind() TargetKind {
	if v.QuestionID != nil {
		return TargetQuestion
	}
	return TargetAnswer
}

// ValidateTarget enforces that exactly one target reference is set.
func (v *Vote) ValidateTarget() error {
	if (v.QuestionID == nil) == (v.AnswerID == nil) {
		return ErrInvalidVoteTarget
	}
	if !v.VoteType.Valid() {
		return errors.New("vote_type must be up or down")
	}
	return nil
}

func (v *Vote) BeforeSave(tx *gorm.DB) error {
	return v.ValidateTarget()
}
