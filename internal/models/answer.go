package models

import "time"

type Answer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	QuestionID uint      `gorm:"not null;index" json:"question_id"`
	Question   *Question `gorm:"foreignKey:QuestionID;constraint:OnDelete:RESTRICT" json:"-"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	IsAccepted bool      `gorm:"not null;default:false" json:"is_accepted"`
	VoteCount  int       `gorm:"not null;default:0" json:"vote_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type AnswerResponse struct {
	Answer
	Author *UserSummary `json:"author,omitempty"`
}

func (a *Answer) Response() AnswerResponse {
	return AnswerResponse{Answer: *a, Author: a.User.Summary()}
}
