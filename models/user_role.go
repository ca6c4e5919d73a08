package models

import "time"

// UserRole is the membership join table between User and Role.
type UserRole struct {
	UserID    string `gorm:"primaryKey;size:36"`
	RoleID    string `gorm:"primaryKey;size:36;index"`
	CreatedAt time.Time
}

// TableName keeps the join table shared with the many2many associations.
func (UserRole) TableName() string {
	return "user_roles"
}
