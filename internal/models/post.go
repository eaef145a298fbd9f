package models

import "time"

// Post is a blog post. Slug is derived from Title and is not unique.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Slug         string    `gorm:"size:255;index;not null" json:"slug"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	Author       string    `gorm:"size:50;not null" json:"author"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ThumbnailURL string    `gorm:"size:512" json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName pins the posts table name.
func (Post) TableName() string { return "posts" }

// PostSummary is the projection returned when listing posts by tag.
type PostSummary struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
