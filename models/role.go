package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a named group of users. Names are unique by NormalizedName.
type Role struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Name           string    `gorm:"size:256;not null" json:"name"`
	NormalizedName string    `gorm:"size:256;not null;uniqueIndex" json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.NormalizedName = NormalizeName(r.Name)
	return nil
}

// RoleSummary is a role joined with its membership count. It is never persisted.
type RoleSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TotalUsers int64  `json:"totalUsers"`
}

// NormalizeName is the lookup key for role names and emails.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
