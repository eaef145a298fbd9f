// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a registered author on the blog.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Bio       *string   `gorm:"type:text" json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName pins the users table name.
func (User) TableName() string { return "users" }

// Identity returns the immutable identity view of the user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Email: u.Email}
}
