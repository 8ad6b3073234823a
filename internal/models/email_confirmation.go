package models

import "time"

// EmailConfirmation records a verified email address; existence implies verified.
type EmailConfirmation struct {
	BaseModel

	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
