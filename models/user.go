package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID              string    `gorm:"primaryKey;size:36"`
	Email           string    `gorm:"size:256;not null"`
	NormalizedEmail string    `gorm:"size:256;not null;uniqueIndex"`
	FullName        string    `gorm:"size:256"`
	Password        string    `gorm:"not null" json:"-"` // Don't expose password hash
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Roles           []Role `gorm:"many2many:user_roles;"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.NormalizedEmail = NormalizeName(u.Email)
	return nil
}

// RoleNames returns the names of the preloaded roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
