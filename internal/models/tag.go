package models

import "time"

const DefaultTagColor = "#3B82F6"

type Tag struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"size:60;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Color       string    `gorm:"size:7;not null;default:'#3B82F6'" json:"color"`
	UsageCount  int       `gorm:"not null;default:0;index" json:"usage_count"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedBy   *uint     `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
