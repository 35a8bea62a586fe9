package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           string `gorm:"primarykey;size:100"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Username     string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null" json:"-"`
	DisplayName  string `gorm:"size:100"`
	Role         string `gorm:"size:20;not null;default:'user'"`
	IsActive     bool   `gorm:"not null"`
	LastLoginAt  *time.Time
	Version      int `gorm:"default:1"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
