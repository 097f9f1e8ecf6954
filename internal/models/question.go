package models

import "time"

type Question struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	Slug        string     `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	ViewCount   int        `gorm:"not null;default:0" json:"view_count"`
	VoteCount   int        `gorm:"not null;default:0" json:"vote_count"`
	AnswerCount int        `gorm:"not null;default:0" json:"answer_count"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	IsClosed    bool       `gorm:"not null;default:false" json:"is_closed"`
	IsFeatured  bool       `gorm:"not null;default:false" json:"is_featured"`
	ClosedBy    *uint      `json:"closed_by,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	Tags        []Tag      `gorm:"many2many:question_tags" json:"tags"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// QuestionTag is the join row between questions and tags. It is written
// explicitly so that usage_count upkeep stays next to the insert.
type QuestionTag struct {
	QuestionID uint      `gorm:"primaryKey"`
	TagID      uint      `gorm:"primaryKey"`
	CreatedAt  time.Time
}

// QuestionResponse is the wire shape of a question.
type QuestionResponse struct {
	Question
	Author *UserSummary `json:"author,omitempty"`
}

func (q *Question) Response() QuestionResponse {
	if q.Tags == nil {
		q.Tags = []Tag{}
	}
	return QuestionResponse{Question: *q, Author: q.User.Summary()}
}
