package models

import "time"

// User is a platform login owned by an account. Email is unique among active
// users, compared case-insensitively.
type User struct {
	BaseModel

	Email    string `gorm:"not null;index" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	AccountID     string       `gorm:"not null;index" json:"account_id"`
	IsIntegration bool         `gorm:"default:false" json:"is_integration"`
	Status        EntityStatus `gorm:"not null;default:active;index" json:"status"`

	PasswordChangedAt *time.Time `json:"-"`
}

// FullName returns the display name used in outbound mail.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
